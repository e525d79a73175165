package domain

import (
	"math"
	"slices"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// recoverySuffixes are tried, in order, when the merged table carries no
// canonical column at all.
var recoverySuffixes = []string{SourceSatellite.Suffix(), SourceAerosol.Suffix()}

// AggregateSpatial collapses every grid cell of an hour into one value per
// column: the mean over the cells where that column is present.
//
// If none of the canonical variables exists under its own name (for example
// only aerosol PM estimates were joined), the first matching suffixed
// fallback column is renamed to the canonical name before averaging.
func AggregateSpatial(t WideTable) HourlyTable {
	if t.Empty() {
		return HourlyTable{}
	}

	rename := recoveryRenames(t.Columns)

	type hour struct {
		time   time.Time
		values map[string][]float64
	}
	hours := make(map[int64]*hour)
	for _, r := range t.Rows {
		k := r.Time.Unix()
		h, ok := hours[k]
		if !ok {
			h = &hour{time: r.Time, values: make(map[string][]float64)}
			hours[k] = h
		}
		for col, v := range r.Values {
			if math.IsNaN(v) {
				continue
			}
			if to, ok := rename[col]; ok {
				col = to
			}
			h.values[col] = append(h.values[col], v)
		}
	}

	out := HourlyTable{Rows: make([]HourlyRow, 0, len(hours))}
	for _, col := range t.Columns {
		if to, ok := rename[col]; ok {
			col = to
		}
		out.Columns = appendColumn(out.Columns, col)
	}
	for _, h := range hours {
		row := HourlyRow{Time: h.time, Values: make(map[string]float64, len(h.values))}
		for col, vals := range h.values {
			sort.Float64s(vals)
			row.Values[col] = stat.Mean(vals, nil)
		}
		out.Rows = append(out.Rows, row)
	}
	slices.SortFunc(out.Rows, func(a, b HourlyRow) int { return a.Time.Compare(b.Time) })
	return out
}

func recoveryRenames(columns []string) map[string]string {
	for _, v := range CanonicalVariables() {
		if slices.Contains(columns, v) {
			return nil
		}
	}
	rename := make(map[string]string)
	for _, v := range CanonicalVariables() {
		for _, suffix := range recoverySuffixes {
			if slices.Contains(columns, v+suffix) {
				rename[v+suffix] = v
				break
			}
		}
	}
	return rename
}
