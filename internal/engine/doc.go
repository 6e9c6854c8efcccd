// Package engine owns the pin runtime of an IronPin unit: per-pin
// configuration, the mode-specific state machines and the supervisor
// loop that is the sole place hardware gets touched.
//
// # Execution model
//
// Every configured pin advances exactly once per supervisor tick
// (20 ms by default). The tick samples inputs, runs debounce, relay
// derating and pulse counting, applies writes queued by callers, and
// caches the resulting value. Public reads and writes only touch this
// cached state under a short-lived mutex, so application code never
// waits on a bus transaction.
//
// Values are plain ints in mode-dependent units: millivolts for AIN,
// deci-Celsius for the temperature modes, permille for duty and ratio
// modes, centi-milliamps for CIN. Wiring faults ride in-band as the
// sentinel values defined in the vpin package rather than as errors.
//
// # Persistence
//
// Pin configurations survive restarts through a ConfigRepository.
// Mode setters mark the change dirty and return immediately; the
// supervisor flushes dirty configs to the repository in the background
// after each tick.
package engine
