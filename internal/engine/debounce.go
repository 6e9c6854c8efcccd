package engine

// swtState debounces a raw digital input into a stable level.
//
// The stable level changes only after the raw level has disagreed with
// it continuously for the configured window. Any raw transition restarts
// the countdown, so a contact that keeps bouncing never commits; a raw
// level that returns to the stable level cancels the pending change.
type swtState struct {
	stable      bool
	lastRaw     bool
	remainingMs int
	seeded      bool
}

// tick advances the debouncer by one supervisor period. It returns the
// stable level and whether it changed on this tick.
func (s *swtState) tick(raw bool, tickMs, debounceMs int) (stable, changed bool) {
	if !s.seeded {
		s.stable = raw
		s.lastRaw = raw
		s.seeded = true
		return s.stable, false
	}

	if raw != s.lastRaw {
		s.lastRaw = raw
		s.remainingMs = debounceMs
	}

	if raw == s.stable {
		s.remainingMs = 0
		return s.stable, false
	}

	s.remainingMs -= tickMs
	if s.remainingMs <= 0 {
		s.stable = raw
		return s.stable, true
	}
	return s.stable, false
}
