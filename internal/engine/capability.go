package engine

import (
	"github.com/orehall/ironpin-core/internal/hal"
	"github.com/orehall/ironpin-core/internal/vpin"
)

// resolveMode validates a requested mode against the pin's physical
// capabilities and returns the mode actually applied.
//
// The one place the applied mode differs from the requested mode is the
// analog-revision fallback: CIN and PH on base-revision hardware degrade
// silently to AIN, so applications written for the analog revision keep
// running on base boards and read raw millivolts instead of failing.
func resolveMode(id vpin.PinID, mode vpin.PinMode, revision hal.Revision) (vpin.PinMode, bool) {
	if id.IsExpansion() {
		return resolveExpansionMode(id, mode)
	}
	return resolveMainMode(id.Pin(), mode, revision)
}

func resolveMainMode(pin int, mode vpin.PinMode, revision hal.Revision) (vpin.PinMode, bool) {
	if pin < MinPin || pin > MaxPin {
		return vpin.NoMode, false
	}

	switch mode {
	case vpin.NoMode, vpin.Custom:
		return mode, true

	case vpin.DIN, vpin.DOUT, vpin.SWT, vpin.PCC, vpin.POUT, vpin.RELAY:
		return mode, true

	case vpin.AIN, vpin.TIN, vpin.RAIN:
		if pin > MaxAnalogPin {
			return vpin.NoMode, false
		}
		return mode, true

	case vpin.CIN:
		if pin > MaxAnalogPin {
			return vpin.NoMode, false
		}
		if !revision.HasCurrentSense() {
			return vpin.AIN, true
		}
		return mode, true

	case vpin.PH:
		if pin > MaxAnalogPin {
			return vpin.NoMode, false
		}
		if !revision.HasPHFrontEnd() {
			return vpin.AIN, true
		}
		return mode, true

	case vpin.AOUT:
		if pin < MinPWMOutPin {
			return vpin.NoMode, false
		}
		return mode, true

	default:
		// TC and PT probes need expansion front ends.
		return vpin.NoMode, false
	}
}

func resolveExpansionMode(id vpin.PinID, mode vpin.PinMode) (vpin.PinMode, bool) {
	modType := id.ModuleType()
	channels := modType.ChannelCount()
	if channels == 0 {
		return vpin.NoMode, false
	}
	if ch := id.Pin(); ch < 1 || ch > channels {
		return vpin.NoMode, false
	}

	if mode == vpin.NoMode {
		return mode, true
	}

	var allowed bool
	switch modType {
	case vpin.ModuleRelay:
		allowed = mode == vpin.DOUT || mode == vpin.POUT || mode == vpin.RELAY
	case vpin.ModuleAIO:
		switch mode {
		case vpin.DIN, vpin.DOUT, vpin.SWT, vpin.PCC, vpin.AIN, vpin.AOUT, vpin.TIN, vpin.RAIN:
			allowed = true
		}
	case vpin.ModuleTC:
		allowed = mode == vpin.TC
	case vpin.ModulePT:
		allowed = mode == vpin.PT3W || mode == vpin.PT24W
	}
	if !allowed {
		return vpin.NoMode, false
	}
	return mode, true
}
