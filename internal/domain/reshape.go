package domain

import (
	"slices"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Reshape pivots long-form observations into a wide table keyed by
// (hour, grid cell). Observations sharing a key and variable are averaged.
// Non-finite values are skipped. The result does not depend on input order.
func Reshape(obs []Observation, res float64) WideTable {
	if len(obs) == 0 {
		return WideTable{}
	}

	type bucket struct {
		time   time.Time
		cell   GridCell
		values map[string][]float64
	}
	buckets := make(map[cellKey]*bucket)
	columns := make(map[string]struct{})

	for _, o := range obs {
		if !o.Valid() {
			continue
		}
		t := o.Time.UTC().Truncate(time.Hour)
		cell := Snap(o.Lat, o.Lon, res)
		k := keyOf(t, cell)
		b, ok := buckets[k]
		if !ok {
			b = &bucket{time: t, cell: cell, values: make(map[string][]float64)}
			buckets[k] = b
		}
		b.values[o.Variable] = append(b.values[o.Variable], o.Value)
		columns[o.Variable] = struct{}{}
	}

	out := WideTable{Rows: make([]WideRow, 0, len(buckets))}
	for _, b := range buckets {
		row := WideRow{Time: b.time, Cell: b.cell, Values: make(map[string]float64, len(b.values))}
		for name, vals := range b.values {
			// Sorting first keeps the floating-point sum independent of input order.
			sort.Float64s(vals)
			row.Values[name] = stat.Mean(vals, nil)
		}
		out.Rows = append(out.Rows, row)
	}
	for name := range columns {
		out.Columns = append(out.Columns, name)
	}
	sort.Strings(out.Columns)
	sortWideRows(out.Rows)
	return out
}

func sortWideRows(rows []WideRow) {
	slices.SortFunc(rows, func(a, b WideRow) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		if a.Cell.Lat != b.Cell.Lat {
			if a.Cell.Lat < b.Cell.Lat {
				return -1
			}
			return 1
		}
		switch {
		case a.Cell.Lon < b.Cell.Lon:
			return -1
		case a.Cell.Lon > b.Cell.Lon:
			return 1
		}
		return 0
	})
}
