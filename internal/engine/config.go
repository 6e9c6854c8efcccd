package engine

import "github.com/orehall/ironpin-core/internal/vpin"

// Main-unit pin ranges. Pins 1-8 carry the analog input front end;
// pins 9-16 carry the push-pull PWM driver used by AOUT.
const (
	MinPin        = 1
	MaxPin        = 16
	MaxAnalogPin  = 8
	MinPWMOutPin  = 9
)

// Mode parameter defaults, matching the controller's documented
// behaviour when a special mode is selected without explicit tuning.
const (
	DefaultDebounceMs = 100
	DefaultBeta       = 3988
	DefaultRefOhms    = 10000
	DefaultHoldValue  = 500
	DefaultDerateMs   = 1000
	DefaultAOUTFreq   = 500
	DefaultPOUTFreq   = 1000
)

// Shared configuration bounds.
const (
	// POUT-family PWM frequency range in Hz. All POUT and RELAY pins
	// share one frequency.
	MinPOUTFreq = 50
	MaxPOUTFreq = 1500

	// AOUT per-pin PWM frequency range in Hz.
	MinAOUTFreq = 50
	MaxAOUTFreq = 20000

	// Duty/power values are permille: 0-1000.
	MaxDuty = 1000

	// DAC output range in millivolts.
	MaxDACMillivolts = 5000

	// Buzzer frequency range in Hz.
	MinBuzzerFreq = 50
	MaxBuzzerFreq = 20000
)

// PinConfig is the complete configuration of one local pin: its mode and
// every mode-specific parameter. Exactly one PinConfig exists per local
// pin; the mode setters replace it atomically.
type PinConfig struct {
	Mode vpin.PinMode

	// PWMFreq is the per-pin AOUT frequency in Hz.
	PWMFreq int

	// DebounceMs is the SWT stability window in whole milliseconds.
	DebounceMs int

	// Beta and RefOhms parameterise the TIN thermistor model.
	Beta    int
	RefOhms int

	// HoldValue (permille) and DerateMs parameterise the RELAY cycle.
	HoldValue int
	DerateMs  int

	// BothEdges selects both-edge counting for PCC; false counts
	// rising edges only.
	BothEdges bool
}

// defaultConfig returns the configuration applied when a mode is set
// without explicit parameters.
func defaultConfig(mode vpin.PinMode) PinConfig {
	return PinConfig{
		Mode:       mode,
		PWMFreq:    DefaultAOUTFreq,
		DebounceMs: DefaultDebounceMs,
		Beta:       DefaultBeta,
		RefOhms:    DefaultRefOhms,
		HoldValue:  DefaultHoldValue,
		DerateMs:   DefaultDerateMs,
	}
}
