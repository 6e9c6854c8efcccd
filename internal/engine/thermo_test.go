package engine

import (
	"testing"

	"github.com/orehall/ironpin-core/internal/hal"
	"github.com/orehall/ironpin-core/internal/vpin"
)

func TestThermistorDeciCelsius_NominalPoint(t *testing.T) {
	// At the divider midpoint the thermistor equals the reference
	// resistor, which is the 25 C calibration point by definition.
	if got := thermistorDeciCelsius(2500, 5000, 3988, 10000); got != 250 {
		t.Errorf("thermistorDeciCelsius(midpoint) = %d, want 250", got)
	}
}

func TestThermistorDeciCelsius_Monotonic(t *testing.T) {
	// NTC against a pull-up: lower voltage means lower resistance means
	// hotter probe.
	hot := thermistorDeciCelsius(1000, 5000, 3988, 10000)
	cold := thermistorDeciCelsius(4000, 5000, 3988, 10000)
	if hot <= 250 {
		t.Errorf("low-voltage reading = %d deci-C, want above 250", hot)
	}
	if cold >= 250 {
		t.Errorf("high-voltage reading = %d deci-C, want below 250", cold)
	}
	if !vpin.IsTINValid(hot) || !vpin.IsTINValid(cold) {
		t.Error("in-range conversions should be valid readings")
	}
}

func TestThermistorDeciCelsius_WiringFaults(t *testing.T) {
	tests := []struct {
		name string
		mV   int
		want int
	}{
		{"shorted probe reads ground", 0, vpin.TINShortCircuit},
		{"open probe reads rail", 5000, vpin.TINOpenCircuit},
		{"above rail clamps to open", 5100, vpin.TINOpenCircuit},
		{"negative clamps to short", -5, vpin.TINShortCircuit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := thermistorDeciCelsius(tt.mV, 5000, 3988, 10000)
			if got != tt.want {
				t.Errorf("thermistorDeciCelsius(%d) = %d, want %d", tt.mV, got, tt.want)
			}
			if vpin.IsTINValid(got) {
				t.Error("fault sentinel should not validate")
			}
		})
	}
}

func TestThermistorDeciCelsius_DeadRail(t *testing.T) {
	if got := thermistorDeciCelsius(2500, 0, 3988, 10000); got != vpin.TINOpenCircuit {
		t.Errorf("dead rail = %d, want open-circuit sentinel", got)
	}
}

func TestFoldProbeSample(t *testing.T) {
	tests := []struct {
		name      string
		sample    hal.Sample
		want      int
		wantValid bool
	}{
		{"clean reading", hal.Sample{Raw: 231}, 231, true},
		{"negative reading", hal.Sample{Raw: -195}, -195, true},
		{"open circuit", hal.Sample{Raw: 0, Faults: vpin.FaultOpenCircuit}, vpin.FaultOpenCircuit, false},
		{"rtd loop fault", hal.Sample{Raw: 100, Faults: vpin.FaultRTDLoop}, vpin.FaultRTDLoop, false},
		{"implausibly hot", hal.Sample{Raw: 20000}, 20000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := foldProbeSample(tt.sample)
			if got != tt.want {
				t.Errorf("foldProbeSample = %d, want %d", got, tt.want)
			}
			if vpin.IsTCValid(got) != tt.wantValid {
				t.Errorf("IsTCValid(%d) = %v, want %v", got, !tt.wantValid, tt.wantValid)
			}
		})
	}
}
