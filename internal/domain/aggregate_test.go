package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSpatial_MeanExcludesMissing(t *testing.T) {
	c1 := GridCell{Lat: 34, Lon: -118}
	c2 := GridCell{Lat: 35, Lon: -118}
	c3 := GridCell{Lat: 36, Lon: -118}
	merged := wide([]string{VarPM25, VarO3},
		row(baseHour, c1, map[string]float64{VarPM25: 10, VarO3: math.NaN()}),
		row(baseHour, c2, map[string]float64{VarPM25: 20, VarO3: 30}),
		row(baseHour, c3, map[string]float64{VarPM25: 30}),
		row(baseHour.Add(time.Hour), c1, map[string]float64{VarPM25: 5}),
	)

	got := AggregateSpatial(merged)

	require.Len(t, got.Rows, 2)
	assert.Equal(t, baseHour, got.Rows[0].Time)
	assert.Equal(t, 20.0, got.Rows[0].Value(VarPM25))
	assert.Equal(t, 30.0, got.Rows[0].Value(VarO3), "NaN cell is excluded, not zero")
	assert.Equal(t, 5.0, got.Rows[1].Value(VarPM25))
	assert.True(t, math.IsNaN(got.Rows[1].Value(VarO3)))
}

func TestAggregateSpatial_KeepsFallbackColumns(t *testing.T) {
	merged := wide([]string{VarNO2, "NO2_satellite"},
		row(baseHour, la, map[string]float64{VarNO2: math.NaN(), "NO2_satellite": 33}),
	)
	got := AggregateSpatial(merged)

	require.Len(t, got.Rows, 1)
	assert.Equal(t, 33.0, got.Rows[0].Value("NO2_satellite"))
	assert.True(t, got.HasColumn("NO2_satellite"))
}

func TestAggregateSpatial_RecoversFallbackColumnsWhenNoCanonical(t *testing.T) {
	merged := wide([]string{VarHCHO, "PM2.5_satellite", "PM2.5_aerosol", "PM10_aerosol"},
		row(baseHour, la, map[string]float64{VarHCHO: 1, "PM2.5_satellite": 11, "PM2.5_aerosol": 40, "PM10_aerosol": 70}),
	)
	got := AggregateSpatial(merged)

	require.Len(t, got.Rows, 1)
	r := got.Rows[0]
	assert.Equal(t, 11.0, r.Value(VarPM25), "satellite wins the rename")
	assert.Equal(t, 70.0, r.Value(VarPM10))
	assert.Equal(t, 40.0, r.Value("PM2.5_aerosol"), "losing candidate stays available")
	assert.True(t, got.HasColumn(VarPM25))
	assert.False(t, got.HasColumn("PM10_aerosol"))
}

func TestAggregateSpatial_NoRecoveryWhenCanonicalPresent(t *testing.T) {
	merged := wide([]string{VarNO2, "PM2.5_aerosol"},
		row(baseHour, la, map[string]float64{VarNO2: 20, "PM2.5_aerosol": 40}),
	)
	got := AggregateSpatial(merged)
	assert.True(t, got.HasColumn("PM2.5_aerosol"))
	assert.False(t, got.HasColumn(VarPM25))
}

func TestAggregateSpatial_Empty(t *testing.T) {
	got := AggregateSpatial(WideTable{})
	assert.Empty(t, got.Rows)
}
