package domain

// Merge left-joins the per-source wide tables on (hour, cell).
//
// Ground is the base when it has rows, otherwise satellite. With neither, the
// result is empty and the caller falls back to an all-missing scaffold. The
// other non-empty tables are joined in the order weather, satellite, aerosol.
// A column that already exists in the merged table is renamed with the joining
// source's suffix so no value is overwritten; the imputer resolves the
// suffixed columns later. Rows of the base are always preserved.
func Merge(ground, satellite, weather, aerosol WideTable) WideTable {
	base, baseSource := ground, SourceGround
	if ground.Empty() {
		base, baseSource = satellite, SourceSatellite
	}
	if base.Empty() {
		return WideTable{}
	}

	merged := base.Clone()
	secondaries := []struct {
		table  WideTable
		source Source
	}{
		{weather, SourceWeather},
		{satellite, SourceSatellite},
		{aerosol, SourceAerosol},
	}
	for _, s := range secondaries {
		if s.source == baseSource || s.table.Empty() {
			continue
		}
		merged = leftJoin(merged, s.table, s.source.Suffix())
	}
	return merged
}

// leftJoin adds the columns of right onto left, matching rows by key. left is
// modified in place and returned; right is only read.
func leftJoin(left, right WideTable, suffix string) WideTable {
	rename := make(map[string]string, len(right.Columns))
	for _, col := range right.Columns {
		name := col
		if left.HasColumn(col) {
			name = col + suffix
		}
		rename[col] = name
	}
	for _, col := range right.Columns {
		left.Columns = appendColumn(left.Columns, rename[col])
	}

	index := make(map[cellKey]map[string]float64, len(right.Rows))
	for _, r := range right.Rows {
		index[keyOf(r.Time, r.Cell)] = r.Values
	}

	for i := range left.Rows {
		values, ok := index[keyOf(left.Rows[i].Time, left.Rows[i].Cell)]
		if !ok {
			continue
		}
		for col, v := range values {
			left.Rows[i].Values[rename[col]] = v
		}
	}
	return left
}
