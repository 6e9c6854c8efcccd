package engine

// pccState accumulates qualifying edges for a pulse-counter pin.
//
// Counting is rising-edge only unless both-edge mode is configured. The
// first observed level seeds the edge detector without counting, and
// reads drain the accumulator so each pulse is reported exactly once.
type pccState struct {
	count  int
	last   bool
	seeded bool
}

// observe feeds one sampled level into the counter.
func (p *pccState) observe(level, bothEdges bool) {
	if !p.seeded {
		p.last = level
		p.seeded = true
		return
	}
	if level == p.last {
		return
	}
	if level || bothEdges {
		p.count++
	}
	p.last = level
}

// drain returns the accumulated count and resets it to zero.
func (p *pccState) drain() int {
	c := p.count
	p.count = 0
	return c
}
