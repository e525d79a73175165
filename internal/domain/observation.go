package domain

import (
	"math"
	"time"
)

// Observation is one long-form value produced by an extractor. Observations are
// ephemeral: they are consumed by Reshape and never stored.
type Observation struct {
	Time     time.Time
	Lat      float64
	Lon      float64
	Variable string
	Value    float64
	Source   Source
}

// Valid reports whether the observation carries a usable value and position.
func (o Observation) Valid() bool {
	return !o.Time.IsZero() && isFinite(o.Value) && isFinite(o.Lat) && isFinite(o.Lon)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
