package engine

// relayPhase is the position in the relay power cycle.
type relayPhase uint8

const (
	relayOff relayPhase = iota
	relayStart
	relayHold
)

// relayState runs the inrush-then-hold power cycle of a RELAY pin.
//
// Commanding any non-zero value from OFF drives that value for the
// derate window, then drops to the configured hold power for as long as
// the relay stays engaged. Re-commanding a non-zero value while engaged
// is a no-op: the derate timer keeps running and an energised coil is
// never kicked back to start power. Commanding zero releases immediately
// from any phase.
type relayState struct {
	phase      relayPhase
	startValue int
	elapsedMs  int
}

// command applies a caller write. Non-zero engages at that power, zero
// releases.
func (r *relayState) command(v int) {
	if v == 0 {
		r.phase = relayOff
		r.startValue = 0
		r.elapsedMs = 0
		return
	}
	if r.phase == relayOff {
		r.phase = relayStart
		r.startValue = v
		r.elapsedMs = 0
	}
}

// tick advances the cycle by one supervisor period and returns the
// power (permille) to drive this tick.
func (r *relayState) tick(tickMs, holdValue, derateMs int) int {
	switch r.phase {
	case relayStart:
		r.elapsedMs += tickMs
		if r.elapsedMs >= derateMs {
			r.phase = relayHold
			return holdValue
		}
		return r.startValue
	case relayHold:
		return holdValue
	default:
		return 0
	}
}

// engaged reports whether the relay is currently commanded on.
func (r *relayState) engaged() bool {
	return r.phase != relayOff
}
