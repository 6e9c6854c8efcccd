// Package periph exposes the auxiliary communication peripherals of the
// controller: the RS232/RS485 serial port and the CAN interface.
//
// These are pass-through peripherals: the core validates and applies
// their configuration and hands the application a byte-level port. No
// protocol runs on top of them here.
package periph
