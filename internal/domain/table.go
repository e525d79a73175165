package domain

import (
	"math"
	"slices"
	"time"
)

// WideRow holds every variable observed at one (time, cell) key.
type WideRow struct {
	Time   time.Time
	Cell   GridCell
	Values map[string]float64
}

// Value returns the value of column name, or NaN when the row has none.
func (r WideRow) Value(name string) float64 {
	return lookup(r.Values, name)
}

// WideTable has one row per (time, cell) and one column per variable.
// Within a table the (time, cell) key is unique.
type WideTable struct {
	Columns []string
	Rows    []WideRow
}

// Empty reports whether the table has no rows.
func (t WideTable) Empty() bool { return len(t.Rows) == 0 }

// HasColumn reports whether the table carries a column called name.
func (t WideTable) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Clone returns a deep copy so the caller owns the result outright.
func (t WideTable) Clone() WideTable {
	out := WideTable{
		Columns: slices.Clone(t.Columns),
		Rows:    make([]WideRow, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = WideRow{Time: r.Time, Cell: r.Cell, Values: cloneValues(r.Values)}
	}
	return out
}

// HourlyRow is one aggregated hour.
type HourlyRow struct {
	Time   time.Time
	Values map[string]float64
}

// Value returns the value of column name, or NaN when the row has none.
func (r HourlyRow) Value(name string) float64 {
	return lookup(r.Values, name)
}

// HourlyTable is a regional time series keyed by hour.
type HourlyTable struct {
	Columns []string
	Rows    []HourlyRow
}

// HasColumn reports whether the table carries a column called name.
func (t HourlyTable) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

type cellKey struct {
	hour int64
	lat  float64
	lon  float64
}

func keyOf(t time.Time, c GridCell) cellKey {
	return cellKey{hour: t.Unix(), lat: c.Lat, lon: c.Lon}
}

func lookup(values map[string]float64, name string) float64 {
	v, ok := values[name]
	if !ok {
		return math.NaN()
	}
	return v
}

func present(values map[string]float64, name string) bool {
	v, ok := values[name]
	return ok && !math.IsNaN(v)
}

func cloneValues(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// appendColumn adds name to cols unless it is already there.
func appendColumn(cols []string, name string) []string {
	if slices.Contains(cols, name) {
		return cols
	}
	return append(cols, name)
}
