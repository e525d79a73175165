// Package netcdf reads variables out of NetCDF classic (CDF-1/CDF-2) files.
//
// NetCDF-4 files are HDF5 containers and cannot be decoded here; Open reports
// them with ErrHDF5 so callers can classify them separately from corrupt files.
package netcdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/ctessum/cdf"
)

var (
	// ErrHDF5 is returned for NetCDF-4/HDF5 containers.
	ErrHDF5 = errors.New("hdf5 container")
	// ErrNotNetCDF is returned when the file has no NetCDF signature.
	ErrNotNetCDF = errors.New("not a netcdf file")
	// ErrNotNumeric is returned when reading a character variable.
	ErrNotNumeric = errors.New("variable is not numeric")
	// ErrNoVariable is returned when the variable does not exist.
	ErrNoVariable = errors.New("no such variable")
)

var hdf5Magic = []byte("\x89HDF\r\n\x1a\n")

// Dataset is an open NetCDF classic file.
type Dataset struct {
	path string
	file *os.File
	nc   *cdf.File
	size int64
}

// Field is a variable decoded to float64 in row-major order. Fill values and
// the variable's _FillValue are mapped to NaN.
type Field struct {
	Name   string
	Dims   []string
	Shape  []int
	Values []float64
}

// Len returns the number of elements.
func (f Field) Len() int { return len(f.Values) }

// Open opens path and reads the NetCDF header.
func Open(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	magic := make([]byte, len(hdf5Magic))
	n, err := f.ReadAt(magic, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, err
	}
	magic = magic[:n]
	switch {
	case bytes.Equal(magic, hdf5Magic):
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrHDF5)
	case !bytes.HasPrefix(magic, []byte("CDF")):
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotNetCDF)
	}

	nc, err := cdf.Open(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read netcdf header %s: %w", path, err)
	}
	return &Dataset{path: path, file: f, nc: nc, size: st.Size()}, nil
}

// Close releases the underlying file.
func (d *Dataset) Close() error {
	return d.file.Close()
}

// Path returns the file the dataset was opened from.
func (d *Dataset) Path() string { return d.path }

// Variables lists every variable in header order.
func (d *Dataset) Variables() []string {
	return d.nc.Header.Variables()
}

// HasVariable reports whether name is defined.
func (d *Dataset) HasVariable(name string) bool {
	for _, v := range d.nc.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// Dimensions returns the dimension names of a variable.
func (d *Dataset) Dimensions(name string) []string {
	return d.nc.Header.Dimensions(name)
}

// Shape returns the dimension lengths of a variable with the record
// dimension resolved to the number of records in the file.
func (d *Dataset) Shape(name string) []int {
	lengths := d.nc.Header.Lengths(name)
	if lengths == nil {
		return nil
	}
	shape := append([]int(nil), lengths...)
	if d.nc.Header.IsRecordVariable(name) {
		shape[0] = int(d.nc.Header.NumRecs(d.size))
	}
	return shape
}

// IsNumeric reports whether the variable holds numbers rather than characters.
func (d *Dataset) IsNumeric(name string) bool {
	switch d.nc.Header.ZeroValue(name, 0).(type) {
	case []int16, []int32, []float32, []float64:
		return true
	}
	return false
}

// Attribute returns the raw attribute value of a variable, or of the file when
// name is empty. The value is nil when absent.
func (d *Dataset) Attribute(name, attr string) interface{} {
	return d.nc.Header.GetAttribute(name, attr)
}

// StringAttribute returns a text attribute.
func (d *Dataset) StringAttribute(name, attr string) (string, bool) {
	switch v := d.Attribute(name, attr).(type) {
	case string:
		return strings.TrimRight(v, "\x00"), true
	case []uint8:
		return strings.TrimRight(string(v), "\x00"), true
	}
	return "", false
}

// FloatAttribute returns the first element of a numeric attribute.
func (d *Dataset) FloatAttribute(name, attr string) (float64, bool) {
	switch v := d.Attribute(name, attr).(type) {
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	}
	return 0, false
}

// Read decodes a numeric variable. Integer and single-precision values are
// widened to float64; _FillValue and missing_value entries become NaN, and
// scale_factor/add_offset are applied when present.
func (d *Dataset) Read(name string) (Field, error) {
	if !d.HasVariable(name) {
		return Field{}, fmt.Errorf("%s: %w", name, ErrNoVariable)
	}
	if !d.IsNumeric(name) {
		return Field{}, fmt.Errorf("%s: %w", name, ErrNotNumeric)
	}

	shape := d.Shape(name)
	total := 1
	for _, n := range shape {
		total *= n
	}
	field := Field{Name: name, Dims: d.Dimensions(name), Shape: shape}
	if total == 0 {
		return field, nil
	}

	var end []int
	if d.nc.Header.IsRecordVariable(name) {
		end = make([]int, len(shape))
		for i, n := range shape {
			end[i] = n - 1
		}
	}
	r := d.nc.Reader(name, nil, end)
	buf := r.Zero(total)
	if _, err := r.Read(buf); err != nil && !errors.Is(err, io.EOF) {
		return Field{}, fmt.Errorf("read %s: %w", name, err)
	}

	field.Values = widen(buf)
	d.applyMissing(name, field.Values)
	d.applyScale(name, field.Values)
	return field, nil
}

func (d *Dataset) applyMissing(name string, values []float64) {
	for _, attr := range []string{"_FillValue", "missing_value"} {
		fill, ok := d.FloatAttribute(name, attr)
		if !ok {
			continue
		}
		for i, v := range values {
			if v == fill || (math.IsNaN(fill) && math.IsNaN(v)) {
				values[i] = math.NaN()
			}
		}
	}
}

func (d *Dataset) applyScale(name string, values []float64) {
	scale, hasScale := d.FloatAttribute(name, "scale_factor")
	offset, hasOffset := d.FloatAttribute(name, "add_offset")
	if !hasScale && !hasOffset {
		return
	}
	if !hasScale {
		scale = 1
	}
	for i, v := range values {
		values[i] = v*scale + offset
	}
}

func widen(buf interface{}) []float64 {
	switch b := buf.(type) {
	case []float64:
		return b
	case []float32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	case []int32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	case []int16:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	}
	return nil
}
