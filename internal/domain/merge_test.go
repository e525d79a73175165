package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var la = GridCell{Lat: 34.0, Lon: -118.25}

func wide(cols []string, rows ...WideRow) WideTable {
	return WideTable{Columns: cols, Rows: rows}
}

func row(t time.Time, c GridCell, values map[string]float64) WideRow {
	return WideRow{Time: t, Cell: c, Values: values}
}

func TestMerge_GroundWithEmptySecondariesIsIdentity(t *testing.T) {
	ground := wide([]string{VarPM25},
		row(baseHour, la, map[string]float64{VarPM25: 12}),
		row(baseHour.Add(time.Hour), la, map[string]float64{VarPM25: 14}),
	)
	got := Merge(ground, WideTable{}, WideTable{}, WideTable{})

	if diff := cmp.Diff(ground, got, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("merge with empty secondaries changed the table (-want +got):\n%s", diff)
	}
}

func TestMerge_DoesNotShareStorageWithInput(t *testing.T) {
	ground := wide([]string{VarPM25}, row(baseHour, la, map[string]float64{VarPM25: 12}))
	got := Merge(ground, WideTable{}, WideTable{}, WideTable{})
	got.Rows[0].Values[VarPM25] = 99
	assert.Equal(t, 12.0, ground.Rows[0].Values[VarPM25])
}

func TestMerge_SuffixesCollidingColumns(t *testing.T) {
	ground := wide([]string{VarNO2, VarPM25}, row(baseHour, la, map[string]float64{VarNO2: 20, VarPM25: 12}))
	satellite := wide([]string{VarHCHO, VarNO2}, row(baseHour, la, map[string]float64{VarNO2: 35, VarHCHO: 1.5}))
	weather := wide([]string{VarTemperature}, row(baseHour, la, map[string]float64{VarTemperature: 21}))
	aerosol := wide([]string{VarPM10, VarPM25}, row(baseHour, la, map[string]float64{VarPM25: 40, VarPM10: 70}))

	got := Merge(ground, satellite, weather, aerosol)

	require.Len(t, got.Rows, 1)
	r := got.Rows[0]
	assert.Equal(t, 20.0, r.Value(VarNO2), "base value untouched")
	assert.Equal(t, 35.0, r.Value("NO2_satellite"))
	assert.Equal(t, 1.5, r.Value(VarHCHO), "no collision, no suffix")
	assert.Equal(t, 21.0, r.Value(VarTemperature))
	assert.Equal(t, 12.0, r.Value(VarPM25))
	assert.Equal(t, 40.0, r.Value("PM2.5_aerosol"))
	assert.Equal(t, 70.0, r.Value(VarPM10))
	assert.ElementsMatch(t,
		[]string{VarNO2, VarPM25, VarTemperature, VarHCHO, "NO2_satellite", VarPM10, "PM2.5_aerosol"},
		got.Columns)
}

func TestMerge_LeftJoinKeepsUnmatchedBaseRows(t *testing.T) {
	other := GridCell{Lat: 40.0, Lon: -74.0}
	ground := wide([]string{VarPM25},
		row(baseHour, la, map[string]float64{VarPM25: 12}),
		row(baseHour, other, map[string]float64{VarPM25: 8}),
	)
	weather := wide([]string{VarHumidity},
		row(baseHour, la, map[string]float64{VarHumidity: 55}),
		row(baseHour.Add(time.Hour), la, map[string]float64{VarHumidity: 60}),
	)

	got := Merge(ground, WideTable{}, weather, WideTable{})

	require.Len(t, got.Rows, 2, "weather-only hours are not added")
	assert.Equal(t, 55.0, got.Rows[0].Value(VarHumidity))
	assert.True(t, math.IsNaN(got.Rows[1].Value(VarHumidity)))
}

func TestMerge_SatelliteBaseWhenGroundEmpty(t *testing.T) {
	satellite := wide([]string{VarNO2}, row(baseHour, la, map[string]float64{VarNO2: 35}))
	aerosol := wide([]string{VarPM25}, row(baseHour, la, map[string]float64{VarPM25: 40}))

	got := Merge(WideTable{}, satellite, WideTable{}, aerosol)

	require.Len(t, got.Rows, 1)
	assert.Equal(t, 35.0, got.Rows[0].Value(VarNO2), "satellite is the base, unsuffixed")
	assert.Equal(t, 40.0, got.Rows[0].Value(VarPM25))
	assert.False(t, got.HasColumn("NO2_satellite"), "satellite is not joined onto itself")
}

func TestMerge_NoBase(t *testing.T) {
	weather := wide([]string{VarTemperature}, row(baseHour, la, map[string]float64{VarTemperature: 21}))
	aerosol := wide([]string{VarPM25}, row(baseHour, la, map[string]float64{VarPM25: 40}))

	assert.True(t, Merge(WideTable{}, WideTable{}, weather, aerosol).Empty())
	assert.True(t, Merge(WideTable{}, WideTable{}, WideTable{}, WideTable{}).Empty())
}
