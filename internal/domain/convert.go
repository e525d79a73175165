package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// FillValue is the sentinel used by several gridded products for "no retrieval".
	FillValue = -999.0

	// PM25PerAOD and PM10PerAOD convert 550 nm aerosol optical depth into
	// rough surface concentration estimates in µg/m³.
	PM25PerAOD = 35.0
	PM10PerAOD = 60.0

	kelvinOffset = 273.15

	// kelvinMeanThreshold: a field whose mean exceeds this is assumed to be Kelvin.
	kelvinMeanThreshold = 100.0

	// fractionMaxThreshold: a humidity field whose max does not exceed this is
	// assumed to be a fraction rather than a percentage.
	fractionMaxThreshold = 1.0
)

// IsFill reports whether v is the fill sentinel or non-finite.
func IsFill(v float64) bool {
	return v == FillValue || math.IsNaN(v) || math.IsInf(v, 0)
}

// MaskFill replaces fill sentinels with NaN in place so later unit
// conversions cannot turn them into plausible values. Returns the number of
// values masked.
func MaskFill(values []float64) int {
	n := 0
	for i, v := range values {
		if IsFill(v) && !math.IsNaN(v) {
			values[i] = math.NaN()
			n++
		}
	}
	return n
}

// NormalizeTemperature converts a Kelvin field to Celsius in place when its
// mean (over finite values) exceeds 100. Returns true if it converted.
func NormalizeTemperature(values []float64) bool {
	finite := finiteValues(values)
	if len(finite) == 0 || stat.Mean(finite, nil) <= kelvinMeanThreshold {
		return false
	}
	for i, v := range values {
		if !math.IsNaN(v) {
			values[i] = v - kelvinOffset
		}
	}
	return true
}

// NormalizeHumidity converts a fractional field to percent in place when its
// maximum (over finite values) is at most 1. Returns true if it converted.
func NormalizeHumidity(values []float64) bool {
	finite := finiteValues(values)
	if len(finite) == 0 || floats.Max(finite) > fractionMaxThreshold {
		return false
	}
	floats.Scale(100, values)
	return true
}

// WindSpeed derives speed from two horizontal components, element-wise.
// The slices must have equal length; a NaN in either component gives NaN.
func WindSpeed(u, v []float64) []float64 {
	out := make([]float64, len(u))
	for i := range u {
		out[i] = math.Hypot(u[i], v[i])
	}
	return out
}

// EstimatePM converts aerosol optical depth into PM2.5 and PM10 estimates.
func EstimatePM(aod float64) (pm25, pm10 float64) {
	return aod * PM25PerAOD, aod * PM10PerAOD
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}
