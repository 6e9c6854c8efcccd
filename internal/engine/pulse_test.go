package engine

import "testing"

func TestPccState_RisingOnly(t *testing.T) {
	var p pccState
	levels := []bool{false, true, false, true, true, false, true}
	for _, l := range levels {
		p.observe(l, false)
	}
	if got := p.drain(); got != 3 {
		t.Errorf("drain = %d, want 3 rising edges", got)
	}
	if got := p.drain(); got != 0 {
		t.Errorf("second drain = %d, want 0", got)
	}
}

func TestPccState_BothEdges(t *testing.T) {
	var p pccState
	levels := []bool{false, true, false, true, false}
	for _, l := range levels {
		p.observe(l, true)
	}
	if got := p.drain(); got != 4 {
		t.Errorf("drain = %d, want 4 edges", got)
	}
}

func TestPccState_SeedLevelNotCounted(t *testing.T) {
	var p pccState
	// First observation seeds at high; no edge has occurred.
	p.observe(true, false)
	p.observe(true, false)
	if got := p.drain(); got != 0 {
		t.Errorf("drain = %d, want 0 after seeding high", got)
	}
}

func TestPccState_AccumulatesAcrossDrains(t *testing.T) {
	var p pccState
	p.observe(false, false)
	for i := 0; i < 37; i++ {
		p.observe(true, false)
		p.observe(false, false)
	}
	if got := p.drain(); got != 37 {
		t.Errorf("drain = %d, want 37", got)
	}
	p.observe(true, false)
	if got := p.drain(); got != 1 {
		t.Errorf("drain after one more pulse = %d, want 1", got)
	}
}
