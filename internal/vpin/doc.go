// Package vpin defines the virtual-pin vocabulary shared by every other
// IronPin package: the packed 32-bit PinID handle, the closed PinMode and
// TrigMode enumerations, expansion module types, and fault sentinels
// with their validity tests.
//
// # Addressing
//
// A PinID hides the three-level addressing hierarchy (unit role × module
// type/index × pin number) behind one integer. Compose and the field
// accessors are pure bit arithmetic and exact inverses of each other, so
// a handle always decodes to the same four fields and two handles are
// equal exactly when all four fields are equal.
//
//	id := vpin.Compose(2, vpin.ModuleRelay, 1, 7) // sibling 2, relay module 1, channel 7
//	id.IsLocal(0)     // false on the master unit
//	id.IsExpansion()  // true
//
// # Fault sentinels
//
// Wiring and sensor faults are reported as reserved values, never as
// errors: TINOpenCircuit/TINShortCircuit bound the thermistor domain,
// FaultOpenCircuit..FaultRTDLoop occupy a high bit-range of TC/PT
// readings, and CINOvercurrent is the fixed negative current-loop
// sentinel. The IsXXXValid helpers exclude exactly these values.
//
// Everything in this package is a pure value type; there is no state and
// no synchronisation.
package vpin
