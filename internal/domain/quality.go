package domain

import (
	"math"
	"time"
)

// QualityOptions are the thresholds a published table is checked against.
type QualityOptions struct {
	// MaxMissingRatio is the largest tolerated share of missing hours per pollutant.
	MaxMissingRatio float64
	// MinRecordsPerDay is the least number of hours per day that must carry
	// at least one pollutant.
	MinRecordsPerDay int
}

// DefaultQualityOptions returns the thresholds used for the published dataset.
func DefaultQualityOptions() QualityOptions {
	return QualityOptions{MaxMissingRatio: 0.3, MinRecordsPerDay: 12}
}

// QualityReport summarizes the completeness of a finalized table.
type QualityReport struct {
	Rows        int       `json:"rows"`
	NoDataHours int       `json:"no_data_hours"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`

	// Completeness is the share of non-missing hours per canonical variable, 0..1.
	Completeness map[string]float64 `json:"completeness"`

	// ShortDays are UTC days with fewer than MinRecordsPerDay hours of data.
	// Days only partly covered by the window are not judged.
	ShortDays []time.Time `json:"short_days,omitempty"`

	Passed bool `json:"passed"`
}

// AssessQuality computes the completeness report for records.
func AssessQuality(records []UnifiedRecord, opts QualityOptions) QualityReport {
	rep := QualityReport{
		Rows:         len(records),
		Completeness: make(map[string]float64, len(CanonicalVariables())),
	}
	if len(records) == 0 {
		for _, v := range CanonicalVariables() {
			rep.Completeness[v] = 0
		}
		return rep
	}
	rep.Start = records[0].Time
	rep.End = records[len(records)-1].Time

	counts := make(map[string]int)
	type dayTally struct{ hours, withData int }
	days := make(map[time.Time]*dayTally)
	var order []time.Time

	for _, r := range records {
		if r.NoDataFlag {
			rep.NoDataHours++
		}
		for _, v := range CanonicalVariables() {
			if !math.IsNaN(r.Value(v)) {
				counts[v]++
			}
		}
		day := r.Time.UTC().Truncate(24 * time.Hour)
		d, ok := days[day]
		if !ok {
			d = &dayTally{}
			days[day] = d
			order = append(order, day)
		}
		d.hours++
		if !r.NoDataFlag {
			d.withData++
		}
	}

	n := float64(len(records))
	rep.Passed = true
	for _, v := range CanonicalVariables() {
		rep.Completeness[v] = float64(counts[v]) / n
		if IsPollutant(v) && 1-rep.Completeness[v] > opts.MaxMissingRatio {
			rep.Passed = false
		}
	}
	for _, day := range order {
		d := days[day]
		if d.hours < 24 {
			continue
		}
		if d.withData < opts.MinRecordsPerDay {
			rep.ShortDays = append(rep.ShortDays, day)
			rep.Passed = false
		}
	}
	return rep
}
