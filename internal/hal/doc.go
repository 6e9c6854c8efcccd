// Package hal defines the hardware adapter interfaces the IronPin core
// talks through, and a full in-memory Simulator implementation.
//
// The core never owns hardware directly: a single Context object, built
// at boot, bundles the ADIO port adapter, rail sensing, the expansion
// module bus, the buzzer and the DAC rail, plus the installed hardware
// Revision. The Context is passed by reference wherever hardware access
// is needed, so there is no hidden global handle.
//
// # Non-blocking contract
//
// Adapter reads and writes must return immediately. A read that cannot
// complete right now reports ok=false and the supervisor keeps its
// previous cached value until the next tick. The single exception is
// ModuleBus.Probe, which may block briefly and runs only during boot-time
// topology discovery.
package hal
