package vpin

// PinMode is the closed enumeration of pin operating modes.
//
// The numeric values are part of the external surface (they appear in the
// persisted configuration and in MQTT payloads) and must not change.
type PinMode uint8

// Sentinel modes. These are distinct from the functional modes below:
// a pin in one of these states has no active state machine.
const (
	// NoMode marks a pin that has never been configured.
	NoMode PinMode = 0xFF

	// Custom marks a pin released to direct caller control via NativePin.
	// The supervisor skips Custom pins entirely.
	Custom PinMode = 0xFE

	// Initializing is the transient state a pin holds while a mode change
	// is queued but not yet applied by the supervisor.
	Initializing PinMode = 0xFD
)

// Plain I/O modes.
const (
	DIN  PinMode = 0 // digital input
	DOUT PinMode = 1 // digital output
	AIN  PinMode = 2 // analog input, millivolts
	AOUT PinMode = 3 // pseudo-analog output (push-pull PWM), per-pin frequency
	POUT PinMode = 4 // power PWM output, shared POUT-family frequency
)

// Special modes. Each carries a per-pin state machine advanced once per
// supervisor tick.
const (
	SWT   PinMode = 8  // debounced switch input
	TIN   PinMode = 9  // thermistor temperature input, deci-Celsius
	RELAY PinMode = 10 // power output with start/hold derate cycle
	RAIN  PinMode = 11 // ratio-metric analog input, 0-1000 of VOut
	PCC   PinMode = 12 // pulse counter, count-and-clear
	CIN   PinMode = 13 // 4-20 mA current loop input, centi-milliamps
	PH    PinMode = 14 // pH probe input
	TC    PinMode = 15 // thermocouple input (expansion front end)
	PT3W  PinMode = 16 // 3-wire RTD input (expansion front end)
	PT24W PinMode = 17 // 2/4-wire RTD input (expansion front end)
)

// IsSentinel reports whether m is one of the non-functional sentinel modes.
func (m PinMode) IsSentinel() bool {
	return m == NoMode || m == Custom || m == Initializing
}

// IsInput reports whether m samples the terminal.
func (m PinMode) IsInput() bool {
	switch m {
	case DIN, AIN, SWT, TIN, RAIN, PCC, CIN, PH, TC, PT3W, PT24W:
		return true
	default:
		return false
	}
}

// IsOutput reports whether m drives the terminal.
func (m PinMode) IsOutput() bool {
	switch m {
	case DOUT, AOUT, POUT, RELAY:
		return true
	default:
		return false
	}
}

// IsDigital reports whether m produces a boolean stable level that the
// trigger tracker can observe.
func (m PinMode) IsDigital() bool {
	switch m {
	case DIN, DOUT, SWT, PCC:
		return true
	default:
		return false
	}
}

// IsPOUTFamily reports whether m shares the global power-PWM frequency.
func (m PinMode) IsPOUTFamily() bool {
	return m == POUT || m == RELAY
}

// IsAnalogInput reports whether m requires the analog front end
// (main-unit pins 1-8, or AIO expansion channels).
func (m PinMode) IsAnalogInput() bool {
	switch m {
	case AIN, TIN, RAIN, CIN, PH:
		return true
	default:
		return false
	}
}

// String returns the short uppercase mode mnemonic.
func (m PinMode) String() string {
	switch m {
	case NoMode:
		return "NO_MODE"
	case Custom:
		return "CUSTOM"
	case Initializing:
		return "INIT"
	case DIN:
		return "DIN"
	case DOUT:
		return "DOUT"
	case AIN:
		return "AIN"
	case AOUT:
		return "AOUT"
	case POUT:
		return "POUT"
	case SWT:
		return "SWT"
	case TIN:
		return "TIN"
	case RELAY:
		return "RELAY"
	case RAIN:
		return "RAIN"
	case PCC:
		return "PCC"
	case CIN:
		return "CIN"
	case PH:
		return "PH"
	case TC:
		return "TC"
	case PT3W:
		return "PT3W"
	case PT24W:
		return "PT24W"
	default:
		return "UNKNOWN"
	}
}

// TrigMode selects how a boolean read interprets the stable level.
type TrigMode uint8

// Trigger modes. STATE returns the level itself; the edge modes return
// true at most once per qualifying transition, against an edge memory
// shared by all three.
const (
	State     TrigMode = 0
	OnRising  TrigMode = 1
	OnFalling TrigMode = 2
	OnToggle  TrigMode = 3
)

// IsValid reports whether t is a defined trigger mode.
func (t TrigMode) IsValid() bool {
	return t <= OnToggle
}

// String returns the trigger mode name.
func (t TrigMode) String() string {
	switch t {
	case State:
		return "STATE"
	case OnRising:
		return "ON_RISING"
	case OnFalling:
		return "ON_FALLING"
	case OnToggle:
		return "ON_TOGGLE"
	default:
		return "UNKNOWN"
	}
}
