package hal

import "github.com/orehall/ironpin-core/internal/vpin"

// Sample is one raw acquisition from a terminal or expansion channel.
//
// Raw is in mode-dependent units: millivolts for analog front ends,
// deci-Celsius for TC/PT front ends. Faults carries the vpin fault flags
// reported by the measurement front end, zero when the reading is clean.
type Sample struct {
	Raw    int
	Level  bool
	Faults int
}

// PortAdapter drives the main-unit ADIO bank.
//
// Every method must return immediately. A read that cannot complete this
// instant returns ok=false ("stale, retry next tick") rather than
// blocking; the supervisor keeps the previous cached value and tries
// again on its next tick.
type PortAdapter interface {
	// ReadDigital samples the digital level of a pin.
	ReadDigital(pin int) (level bool, ok bool)

	// ReadAnalog samples a pin in millivolts.
	ReadAnalog(pin int) (mV int, ok bool)

	// WriteDigital drives a pin high or low.
	WriteDigital(pin int, level bool) bool

	// WritePWM drives a pin with a 0-1000 duty at the given frequency.
	WritePWM(pin int, duty, freqHz int) bool

	// NativePin maps a virtual pin to the underlying host line number,
	// or -1 when the pin has no direct host mapping.
	NativePin(pin int) int
}

// RailAdapter senses the supply rails. The output rail doubles as the
// reference voltage for TIN and RAIN conversions.
type RailAdapter interface {
	InputVoltage() (mV int, ok bool)
	OutputVoltage() (mV int, ok bool)
}

// ModuleBus reaches expansion modules and sibling units over the
// external bus.
//
// Probe is the one call allowed to block briefly; it runs only during
// boot-time topology discovery, strictly before the supervisor starts.
// ReadChannel and WriteChannel follow the same immediate-return contract
// as PortAdapter.
type ModuleBus interface {
	// Probe checks whether a module of the given type and index answers
	// on the bus. Boot-time only.
	Probe(modType vpin.ModuleType, index int) bool

	// ReadChannel samples one expansion channel.
	ReadChannel(modType vpin.ModuleType, index, channel int) (Sample, bool)

	// WriteChannel drives one expansion channel with a 0-1000 value.
	WriteChannel(modType vpin.ModuleType, index, channel, value int) bool
}

// Buzzer drives the on-board signalling buzzer.
type Buzzer interface {
	On(freqHz int) bool
	Off()
}

// DAC drives the true analog output rail of analog-revision hardware,
// in millivolts.
type DAC interface {
	Write(channel, mV int) bool
}

// Revision identifies the installed hardware revision. Capability checks
// gate the modes a revision cannot serve.
type Revision string

// Known hardware revisions.
const (
	// RevisionBase is the standard 16-pin ADIO controller.
	RevisionBase Revision = "base"

	// RevisionAnalog adds the current-sense front end, the pH front end
	// and the two-channel DAC rail.
	RevisionAnalog Revision = "analog"
)

// HasCurrentSense reports whether the revision carries the 4-20 mA
// current-sense front end required for CIN.
func (r Revision) HasCurrentSense() bool { return r == RevisionAnalog }

// HasPHFrontEnd reports whether the revision carries the pH probe front
// end required for PH.
func (r Revision) HasPHFrontEnd() bool { return r == RevisionAnalog }

// HasDAC reports whether the revision carries the analog output rail.
func (r Revision) HasDAC() bool { return r == RevisionAnalog }

// IsValid reports whether r is a known revision.
func (r Revision) IsValid() bool {
	return r == RevisionBase || r == RevisionAnalog
}

// Context bundles every adapter handle the runtime needs. It is built
// once at boot and passed by reference into the engine, the topology
// manager and the peripheral layer; nothing in the core reaches for
// hardware through package-level state.
type Context struct {
	Ports    PortAdapter
	Rails    RailAdapter
	Bus      ModuleBus
	Buzzer   Buzzer
	DAC      DAC
	Revision Revision
}
