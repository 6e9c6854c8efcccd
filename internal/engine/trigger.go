package engine

import "github.com/orehall/ironpin-core/internal/vpin"

// triggerTracker turns a stream of stable digital levels into one-shot
// edge reports. All edge modes share a single memory of the last level
// any of them observed, so whichever reader polls first consumes the
// transition: an ON_RISING read across a falling edge records the low
// level, and a later ON_FALLING read reports nothing. A missed polarity
// is never retroactively reported.
//
// The tracker is seeded with the first stable level after a mode change;
// seeding never produces an edge, so a pin that comes up high does not
// report a phantom rising edge.
type triggerTracker struct {
	last   bool
	seeded bool
}

// seed resets the tracker to a known level.
func (t *triggerTracker) seed(level bool) {
	t.last = level
	t.seeded = true
}

// observe feeds the tracker one stable level. Only the first level after
// a mode change matters; edges are detected at read time against the
// shared memory.
func (t *triggerTracker) observe(level bool) {
	if !t.seeded {
		t.seed(level)
	}
}

// read answers one query against the tracker. State queries report the
// current level without touching the edge memory; edge queries compare
// the level against the shared memory, report a qualifying transition,
// and record the level for every edge mode at once.
func (t *triggerTracker) read(trig vpin.TrigMode, level bool) int {
	switch trig {
	case vpin.OnRising, vpin.OnFalling, vpin.OnToggle:
		if !t.seeded {
			t.seed(level)
			return 0
		}
		prev := t.last
		t.last = level

		var hit bool
		switch trig {
		case vpin.OnRising:
			hit = !prev && level
		case vpin.OnFalling:
			hit = prev && !level
		default:
			hit = prev != level
		}
		if hit {
			return 1
		}
		return 0
	default:
		if level {
			return 1
		}
		return 0
	}
}
