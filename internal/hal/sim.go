package hal

import (
	"sync"

	"github.com/orehall/ironpin-core/internal/vpin"
)

// Simulator is an in-memory implementation of every adapter interface.
//
// It backs the engine and topology tests and the --sim run mode, where
// the runtime comes up with no hardware attached. Test code sets raw
// levels and voltages; the code under test observes them through the
// same interfaces it uses against real hardware.
//
// Thread Safety: all methods are safe for concurrent use.
type Simulator struct {
	mu sync.Mutex

	digital map[int]bool
	analog  map[int]int

	drivenLevel map[int]bool
	drivenDuty  map[int]int
	drivenFreq  map[int]int

	inputMV  int
	outputMV int

	presentModules map[moduleKey]bool
	channelSamples map[channelKey]Sample
	channelWrites  map[channelKey]int
	writeFail      bool

	buzzerFreq int
	dacMV      map[int]int

	// stale forces every read to report not-ok, exercising the
	// "retry next tick" path of the supervisor.
	stale bool
}

type moduleKey struct {
	typ   vpin.ModuleType
	index int
}

type channelKey struct {
	typ     vpin.ModuleType
	index   int
	channel int
}

// Default simulated rail voltages.
const (
	simDefaultInputMV  = 24000
	simDefaultOutputMV = 5000
)

// NewSimulator creates a simulator with nominal 24 V input and 5 V
// output rails and no expansion modules present.
func NewSimulator() *Simulator {
	return &Simulator{
		digital:        make(map[int]bool),
		analog:         make(map[int]int),
		drivenLevel:    make(map[int]bool),
		drivenDuty:     make(map[int]int),
		drivenFreq:     make(map[int]int),
		inputMV:        simDefaultInputMV,
		outputMV:       simDefaultOutputMV,
		presentModules: make(map[moduleKey]bool),
		channelSamples: make(map[channelKey]Sample),
		channelWrites:  make(map[channelKey]int),
		dacMV:          make(map[int]int),
	}
}

// SetDigital sets the raw digital level seen on a pin.
func (s *Simulator) SetDigital(pin int, level bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digital[pin] = level
}

// SetAnalog sets the raw millivolt reading seen on a pin.
func (s *Simulator) SetAnalog(pin, mV int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analog[pin] = mV
}

// SetRails sets the sensed supply rail voltages.
func (s *Simulator) SetRails(inputMV, outputMV int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputMV = inputMV
	s.outputMV = outputMV
}

// SetModulePresent marks a module as answering probes on the bus.
func (s *Simulator) SetModulePresent(typ vpin.ModuleType, index int, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presentModules[moduleKey{typ, index}] = present
}

// SetChannelSample sets the sample an expansion channel returns.
func (s *Simulator) SetChannelSample(typ vpin.ModuleType, index, channel int, sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelSamples[channelKey{typ, index, channel}] = sample
}

// SetStale makes every subsequent read report ok=false until cleared.
func (s *Simulator) SetStale(stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = stale
}

// SetWriteFail makes every subsequent write report failure until cleared.
func (s *Simulator) SetWriteFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeFail = fail
}

// ReadDigital implements PortAdapter.
func (s *Simulator) ReadDigital(pin int) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		return false, false
	}
	return s.digital[pin], true
}

// ReadAnalog implements PortAdapter.
func (s *Simulator) ReadAnalog(pin int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		return 0, false
	}
	return s.analog[pin], true
}

// WriteDigital implements PortAdapter.
func (s *Simulator) WriteDigital(pin int, level bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeFail {
		return false
	}
	s.drivenLevel[pin] = level
	return true
}

// WritePWM implements PortAdapter.
func (s *Simulator) WritePWM(pin, duty, freqHz int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeFail {
		return false
	}
	s.drivenDuty[pin] = duty
	s.drivenFreq[pin] = freqHz
	return true
}

// NativePin implements PortAdapter. The simulator maps virtual pin n to
// host line 100+n so tests can tell the two apart.
func (s *Simulator) NativePin(pin int) int {
	return 100 + pin
}

// DrivenLevel returns the last digital level written to a pin.
func (s *Simulator) DrivenLevel(pin int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drivenLevel[pin]
}

// DrivenDuty returns the last PWM duty and frequency written to a pin.
func (s *Simulator) DrivenDuty(pin int) (duty, freqHz int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drivenDuty[pin], s.drivenFreq[pin]
}

// InputVoltage implements RailAdapter.
func (s *Simulator) InputVoltage() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		return 0, false
	}
	return s.inputMV, true
}

// OutputVoltage implements RailAdapter.
func (s *Simulator) OutputVoltage() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		return 0, false
	}
	return s.outputMV, true
}

// Probe implements ModuleBus.
func (s *Simulator) Probe(modType vpin.ModuleType, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presentModules[moduleKey{modType, index}]
}

// ReadChannel implements ModuleBus.
func (s *Simulator) ReadChannel(modType vpin.ModuleType, index, channel int) (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		return Sample{}, false
	}
	sample, ok := s.channelSamples[channelKey{modType, index, channel}]
	if !ok {
		return Sample{}, true
	}
	return sample, true
}

// WriteChannel implements ModuleBus.
func (s *Simulator) WriteChannel(modType vpin.ModuleType, index, channel, value int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeFail {
		return false
	}
	s.channelWrites[channelKey{modType, index, channel}] = value
	return true
}

// ChannelWrite returns the last value written to an expansion channel.
func (s *Simulator) ChannelWrite(modType vpin.ModuleType, index, channel int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelWrites[channelKey{modType, index, channel}]
}

// On implements Buzzer.
func (s *Simulator) On(freqHz int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeFail {
		return false
	}
	s.buzzerFreq = freqHz
	return true
}

// Off implements Buzzer.
func (s *Simulator) Off() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buzzerFreq = 0
}

// BuzzerFreq returns the current buzzer frequency, 0 when off.
func (s *Simulator) BuzzerFreq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buzzerFreq
}

// Write implements DAC.
func (s *Simulator) Write(channel, mV int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeFail {
		return false
	}
	s.dacMV[channel] = mV
	return true
}

// DACMillivolts returns the last value written to a DAC channel.
func (s *Simulator) DACMillivolts(channel int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dacMV[channel]
}

// NewSimContext builds a Context whose every adapter is the same
// Simulator, with the given hardware revision.
func NewSimContext(revision Revision) (*Context, *Simulator) {
	sim := NewSimulator()
	return &Context{
		Ports:    sim,
		Rails:    sim,
		Bus:      sim,
		Buzzer:   sim,
		DAC:      sim,
		Revision: revision,
	}, sim
}
