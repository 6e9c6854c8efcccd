package engine

import "github.com/orehall/ironpin-core/internal/vpin"

// pinSlot is the runtime record of one local pin: its configuration,
// its cached reading and the state machine for its active mode.
//
// Slots are owned by the Engine and only ever touched under the engine
// mutex. The mode-specific machine lives in mach and holds exactly the
// state the active mode needs; a mode change replaces it wholesale so no
// stale timing or edge memory leaks across modes.
type pinSlot struct {
	id  vpin.PinID
	cfg PinConfig

	// mach is nil for stateless modes, otherwise one of *swtState,
	// *relayState or *pccState.
	mach any

	// trig tracks edge memory for digital modes.
	trig triggerTracker

	// value is the cached mode-dependent reading published to callers.
	value int

	// stable is the current boolean level for digital modes. For DOUT
	// it is the commanded level.
	stable bool

	// pending holds a caller write queued for the next tick.
	pending  *int
	lastDuty int

	// settled flips true once the supervisor has produced the first
	// reading after a mode change; until then the pin reports the
	// Initializing runtime state.
	settled bool
}

// resetRuntime clears all runtime state and installs a fresh machine for
// the configured mode. Called whenever the mode or its parameters change.
func (s *pinSlot) resetRuntime() {
	s.value = 0
	s.stable = false
	s.pending = nil
	s.lastDuty = 0
	s.settled = false
	s.trig = triggerTracker{}

	switch s.cfg.Mode {
	case vpin.SWT:
		s.mach = &swtState{}
	case vpin.RELAY:
		s.mach = &relayState{}
	case vpin.PCC:
		s.mach = &pccState{}
	default:
		s.mach = nil
	}
}

// runtimeMode is the mode the pin reports right now: the transient
// Initializing sentinel between a mode change and the first settled
// reading, the configured mode afterwards.
func (s *pinSlot) runtimeMode() vpin.PinMode {
	m := s.cfg.Mode
	if m.IsSentinel() || s.settled {
		return m
	}
	return vpin.Initializing
}
