// Package netcdftest writes small NetCDF classic files for tests.
package netcdftest

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
)

// Var is one variable to write. Values must be []float32, []float64, []int16
// or []int32 with as many elements as the product of its dimension lengths.
type Var struct {
	Name   string
	Dims   []string
	Values interface{}
	Attrs  map[string]interface{}
}

// File describes a whole dataset.
type File struct {
	Dims    []string
	Lengths []int
	Vars    []Var
	Global  map[string]interface{}
}

// Write creates name under dir and returns its path. The test fails on error.
func Write(t testing.TB, dir, name string, spec File) string {
	t.Helper()

	h := cdf.NewHeader(spec.Dims, spec.Lengths)
	for k, v := range spec.Global {
		h.AddAttribute("", k, v)
	}
	for _, v := range spec.Vars {
		h.AddVariable(v.Name, v.Dims, v.Values)
		for k, a := range v.Attrs {
			h.AddAttribute(v.Name, k, a)
		}
	}
	h.Define()

	path := filepath.Join(dir, name)
	ff, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer ff.Close()

	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatalf("write header %s: %v", path, err)
	}
	for _, v := range spec.Vars {
		// The cdf writer reports io.EOF once a fixed-size variable is filled.
		if _, err := f.Writer(v.Name, nil, nil).Write(v.Values); err != nil && err != io.EOF {
			t.Fatalf("write %s/%s: %v", path, v.Name, err)
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		t.Fatalf("update numrecs %s: %v", path, err)
	}
	return path
}

// Grid returns a dataset with 1-D lat/lon coordinates and one float32 field
// shaped (lat, lon). Extra variables and attributes can be appended by the caller.
func Grid(field string, lats, lons []float32, values []float32) File {
	return File{
		Dims:    []string{"lat", "lon"},
		Lengths: []int{len(lats), len(lons)},
		Vars: []Var{
			{Name: "lat", Dims: []string{"lat"}, Values: lats},
			{Name: "lon", Dims: []string{"lon"}, Values: lons},
			{Name: field, Dims: []string{"lat", "lon"}, Values: values},
		},
	}
}
