package engine

import (
	"math"

	"github.com/orehall/ironpin-core/internal/hal"
	"github.com/orehall/ironpin-core/internal/vpin"
)

// Thermistor nominal temperature in Kelvin (25 C), the reference point of
// the beta model.
const thermistorNominalK = 298.15

// thermistorDeciCelsius converts a divider voltage into deci-Celsius
// using the NTC beta model.
//
// The thermistor sits between the terminal and ground, pulled up to the
// output rail through the reference resistor. A reading pinned at the
// rail means the thermistor leg is open; a reading pinned at ground
// means it is shorted. Both map to the TIN wiring-fault sentinels.
func thermistorDeciCelsius(mV, railMV, beta, refOhms int) int {
	if railMV <= 0 || beta <= 0 || refOhms <= 0 {
		return vpin.TINOpenCircuit
	}
	if mV <= 0 {
		return vpin.TINShortCircuit
	}
	if mV >= railMV {
		return vpin.TINOpenCircuit
	}

	rTherm := float64(refOhms) * float64(mV) / float64(railMV-mV)
	invT := 1.0/thermistorNominalK + math.Log(rTherm/float64(refOhms))/float64(beta)
	if invT <= 0 {
		return vpin.TINOpenCircuit
	}
	celsius := 1.0/invT - 273.15
	return int(math.Round(celsius * 10))
}

// foldProbeSample folds a TC/PT front-end sample into the single reading
// value: fault flags when the front end reports any, the raw
// deci-Celsius otherwise. An in-range raw with no flags passes
// vpin.IsTCValid; anything else fails it.
func foldProbeSample(sample hal.Sample) int {
	if f := sample.Faults & vpin.FaultMask; f != 0 {
		return f
	}
	return sample.Raw
}
