package netcdf

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/air-quality-unifier/internal/adapter/netcdf/netcdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndRead(t *testing.T) {
	fixture := netcdftest.Grid("NO2",
		[]float32{34, 34.5},
		[]float32{-118.5, -118, -117.5},
		[]float32{1, 2, -999, 4, 5, 6},
	)
	fixture.Vars[2].Attrs = map[string]interface{}{
		"_FillValue": []float32{-999},
		"units":      "molecules/cm^2",
	}
	fixture.Global = map[string]interface{}{"time_coverage_start": "2025-10-01T14:00:00Z"}
	path := netcdftest.Write(t, t.TempDir(), "tempo.nc", fixture)

	ds, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	assert.Equal(t, []string{"lat", "lon", "NO2"}, ds.Variables())
	assert.Equal(t, []string{"lat", "lon"}, ds.Dimensions("NO2"))
	assert.Equal(t, []int{2, 3}, ds.Shape("NO2"))
	assert.True(t, ds.IsNumeric("NO2"))

	units, ok := ds.StringAttribute("NO2", "units")
	require.True(t, ok)
	assert.Equal(t, "molecules/cm^2", units)
	start, ok := ds.StringAttribute("", "time_coverage_start")
	require.True(t, ok)
	assert.Equal(t, "2025-10-01T14:00:00Z", start)

	f, err := ds.Read("NO2")
	require.NoError(t, err)
	require.Equal(t, 6, f.Len())
	assert.Equal(t, 1.0, f.Values[0])
	assert.True(t, math.IsNaN(f.Values[2]), "_FillValue becomes NaN")
	assert.Equal(t, 6.0, f.Values[5])

	lon, err := ds.Read("lon")
	require.NoError(t, err)
	assert.Equal(t, []float64{-118.5, -118, -117.5}, lon.Values)
}

func TestRead_ScaleAndOffset(t *testing.T) {
	fixture := netcdftest.File{
		Dims:    []string{"x"},
		Lengths: []int{3},
		Vars: []netcdftest.Var{{
			Name:   "AOD_550",
			Dims:   []string{"x"},
			Values: []int16{10, 20, -1},
			Attrs: map[string]interface{}{
				"scale_factor": []float64{0.01},
				"add_offset":   []float64{0},
				"_FillValue":   []int16{-1},
			},
		}},
	}
	ds, err := Open(netcdftest.Write(t, t.TempDir(), "aod.nc", fixture))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	f, err := ds.Read("AOD_550")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, f.Values[0], 1e-9)
	assert.InDelta(t, 0.2, f.Values[1], 1e-9)
	assert.True(t, math.IsNaN(f.Values[2]))
}

func TestRead_MissingVariable(t *testing.T) {
	ds, err := Open(netcdftest.Write(t, t.TempDir(), "x.nc",
		netcdftest.Grid("O3", []float32{1}, []float32{2}, []float32{3})))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	_, err = ds.Read("NO2")
	assert.ErrorIs(t, err, ErrNoVariable)
}

func TestOpen_HDF5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tempo.nc")
	require.NoError(t, os.WriteFile(path, append([]byte("\x89HDF\r\n\x1a\n"), make([]byte, 64)...), 0o600))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrHDF5)
}

func TestOpen_NotNetCDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.nc")
	require.NoError(t, os.WriteFile(path, []byte("this is not a dataset"), 0o600))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrNotNetCDF)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.nc"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
