package domain

import "slices"

// Finalize converts the imputed hourly table into published records: sorted
// by time, one row per hour (first occurrence wins), fixed schema, and the
// no-data flag set. Canonical columns absent from the table stay missing.
func Finalize(t HourlyTable) []UnifiedRecord {
	rows := slices.Clone(t.Rows)
	slices.SortStableFunc(rows, func(a, b HourlyRow) int { return a.Time.Compare(b.Time) })

	out := make([]UnifiedRecord, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		k := r.Time.Unix()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		rec := EmptyRecord(r.Time.UTC())
		for _, v := range CanonicalVariables() {
			rec.SetValue(v, r.Value(v))
		}
		rec.NoDataFlag = rec.AllPollutantsMissing()
		out = append(out, rec)
	}
	return out
}
