package vpin

// Thermistor (TIN) fault sentinels, in the deci-Celsius value domain.
//
// A disconnected probe reads as near-infinite resistance and maps to
// TINOpenCircuit; a shorted probe reads as near-zero resistance and maps
// to TINShortCircuit. Both sit outside any temperature a thermistor can
// report, so the validity test is a plain half-open range check.
const (
	TINOpenCircuit  = -10000
	TINShortCircuit = 10000
)

// IsTINValid reports whether a TIN reading is a computed temperature
// rather than a wiring-fault sentinel.
func IsTINValid(v int) bool {
	return v > TINOpenCircuit && v < TINShortCircuit
}

// Thermocouple/RTD fault flags, folded into a reserved high bit-range of
// the returned value. When any flag is set the low bits carry no
// temperature.
const (
	FaultOpenCircuit = 1 << 24 // probe or loop wiring open
	FaultRefUnder    = 1 << 25 // cold-junction/reference under-range
	FaultRefOver     = 1 << 26 // cold-junction/reference over-range
	FaultRTDLoop     = 1 << 27 // RTD excitation loop fault

	// FaultMask covers every defined fault flag.
	FaultMask = FaultOpenCircuit | FaultRefUnder | FaultRefOver | FaultRTDLoop
)

// Plausible deci-Celsius bounds for thermocouple and RTD readings.
// Anything outside is treated as invalid even with no fault flag set.
const (
	tcMinDeciCelsius = -2700
	tcMaxDeciCelsius = 17500
)

// Faults extracts the fault flags from a TC/PT reading.
func Faults(v int) int {
	return v & FaultMask
}

// IsTCValid reports whether a TC/PT reading is a usable temperature:
// no fault flags, and the remaining value inside the plausible range.
func IsTCValid(v int) bool {
	if v&FaultMask != 0 {
		return false
	}
	return v >= tcMinDeciCelsius && v <= tcMaxDeciCelsius
}

// Current-loop (CIN) sentinel. Scaled readings are centi-milliamps and
// always non-negative; anything above the overcurrent threshold reports
// the sentinel instead of a scaled value.
const (
	// CINOvercurrent is returned when the loop current exceeds the
	// overcurrent threshold.
	CINOvercurrent = -1

	// CINOvercurrentThreshold is the trip point in centi-milliamps (21 mA).
	CINOvercurrentThreshold = 2100
)

// IsCINValid reports whether a CIN reading is a scaled current rather
// than the overcurrent sentinel.
func IsCINValid(v int) bool {
	return v >= 0
}
