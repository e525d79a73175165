package domain

import "time"

// DefaultWindowHours is the length of the published window: seven days.
const DefaultWindowHours = 7 * 24

// Scaffold is the authoritative, gap-free sequence of output hours.
type Scaffold []time.Time

// BuildScaffold returns the hours of the window that ends at windowEnd
// truncated to the hour. The window is left-closed and right-open, so the
// last timestamp is one hour before the truncated end. A zero windowEnd
// means now.
func BuildScaffold(windowEnd time.Time, hours int) Scaffold {
	if windowEnd.IsZero() {
		windowEnd = now()
	}
	if hours <= 0 {
		return Scaffold{}
	}
	end := windowEnd.UTC().Truncate(time.Hour)
	start := end.Add(-time.Duration(hours) * time.Hour)

	s := make(Scaffold, hours)
	for i := range s {
		s[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return s
}

// Start returns the first hour of the window, or the zero time when empty.
func (s Scaffold) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0]
}

// End returns the exclusive end of the window, or the zero time when empty.
func (s Scaffold) End() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Add(time.Hour)
}

// JoinScaffold left-joins aggregated hours onto the scaffold. Every scaffold
// hour produces exactly one row; hours outside the window are dropped.
func JoinScaffold(s Scaffold, agg HourlyTable) HourlyTable {
	byHour := make(map[int64]map[string]float64, len(agg.Rows))
	for _, r := range agg.Rows {
		byHour[r.Time.Unix()] = r.Values
	}

	out := HourlyTable{
		Columns: append([]string(nil), agg.Columns...),
		Rows:    make([]HourlyRow, len(s)),
	}
	for i, t := range s {
		values, ok := byHour[t.Unix()]
		if !ok {
			values = map[string]float64{}
		}
		out.Rows[i] = HourlyRow{Time: t, Values: cloneValues(values)}
	}
	return out
}
