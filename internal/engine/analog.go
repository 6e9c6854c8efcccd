package engine

import "github.com/orehall/ironpin-core/internal/vpin"

// Current-sense front end: 250 ohm burden, so 1 mA drops 250 mV and
// centi-milliamps come out as mV * 100 / 250.
const cinBurdenOhms = 250

// ratioPermille converts a millivolt reading into a 0-1000 ratio of the
// output rail, clamped at both ends.
func ratioPermille(mV, railMV int) int {
	if railMV <= 0 {
		return 0
	}
	r := mV * 1000 / railMV
	if r < 0 {
		return 0
	}
	if r > 1000 {
		return 1000
	}
	return r
}

// currentCentiMilliamps converts a burden-resistor voltage into loop
// current. Readings above the overcurrent threshold collapse to the
// sentinel so callers never mistake a tripped loop for a large signal.
func currentCentiMilliamps(mV int) int {
	if mV < 0 {
		mV = 0
	}
	centiMA := mV * 100 / cinBurdenOhms
	if centiMA > vpin.CINOvercurrentThreshold {
		return vpin.CINOvercurrent
	}
	return centiMA
}

// phCentiUnits converts the pH front-end voltage into centi-pH. The
// front end maps the full 0-14 scale linearly across 0-5000 mV.
func phCentiUnits(mV int) int {
	if mV < 0 {
		mV = 0
	}
	pH := mV * 1400 / 5000
	if pH > 1400 {
		return 1400
	}
	return pH
}
