package extract

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-unifier/internal/adapter/netcdf"
	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// griddedFile is an open NetCDF file plus the file-level time, if any.
type griddedFile struct {
	ds       *netcdf.Dataset
	fileTime time.Time
}

func openGridded(path string) (*griddedFile, error) {
	ds, err := netcdf.Open(path)
	if err != nil {
		if errors.Is(err, netcdf.ErrHDF5) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}
		return nil, err
	}
	g := &griddedFile{ds: ds}
	if s, ok := ds.StringAttribute("", "time_coverage_start"); ok {
		if t, err := ParseTimestamp(s); err == nil {
			g.fileTime = t
		}
	}
	if g.fileTime.IsZero() {
		if t, ok := TimeFromFilename(path); ok {
			g.fileTime = t
		}
	}
	return g, nil
}

func (g *griddedFile) Close() error {
	return g.ds.Close()
}

// axisCoord reads one coordinate value for a multi-index into a field.
type axisCoord struct {
	values []float64
	axes   []int
	shape  []int
}

func (c axisCoord) at(idx []int) float64 {
	flat := 0
	for k, ax := range c.axes {
		flat = flat*c.shape[k] + idx[ax]
	}
	return c.values[flat]
}

// layout geolocates every element of one field.
type layout struct {
	lat, lon axisCoord
	timeAxis int
	times    []time.Time
	fileTime time.Time
}

func (l layout) timeAt(idx []int) time.Time {
	if l.timeAxis >= 0 {
		return l.times[idx[l.timeAxis]]
	}
	return l.fileTime
}

// layoutFor resolves coordinates and times for field.
func (g *griddedFile) layoutFor(f netcdf.Field) (layout, error) {
	lat, err := g.findCoord(f, latNames, isLatDim)
	if err != nil {
		return layout{}, err
	}
	lon, err := g.findCoord(f, lonNames, isLonDim)
	if err != nil {
		return layout{}, err
	}
	l := layout{lat: lat, lon: lon, timeAxis: -1, fileTime: g.fileTime}

	if axis, times, ok := g.timeCoord(f); ok {
		l.timeAxis, l.times = axis, times
	} else if g.fileTime.IsZero() {
		return layout{}, fmt.Errorf("%s in %s: %w", f.Name, g.ds.Path(), ErrNoTime)
	}
	return l, nil
}

// findCoord looks for a 1-D coordinate variable along a matching dimension,
// then for a named latitude/longitude field spanning a subset of the
// field's dimensions.
func (g *griddedFile) findCoord(f netcdf.Field, names []string, isAxis func(string) bool) (axisCoord, error) {
	for i, dim := range f.Dims {
		if !isAxis(dim) {
			continue
		}
		candidates := append([]string{dim}, names...)
		for _, name := range candidates {
			dims := g.ds.Dimensions(name)
			if len(dims) != 1 || dims[0] != dim {
				continue
			}
			c, err := g.ds.Read(name)
			if err != nil || c.Len() != f.Shape[i] {
				continue
			}
			return axisCoord{values: c.Values, axes: []int{i}, shape: []int{f.Shape[i]}}, nil
		}
	}

	for _, name := range names {
		if !g.ds.HasVariable(name) || name == f.Name {
			continue
		}
		dims := g.ds.Dimensions(name)
		axes, ok := positions(f.Dims, dims)
		if !ok {
			continue
		}
		c, err := g.ds.Read(name)
		if err != nil {
			continue
		}
		shape := make([]int, len(axes))
		for k, ax := range axes {
			shape[k] = f.Shape[ax]
		}
		if product(shape) != c.Len() {
			continue
		}
		return axisCoord{values: c.Values, axes: axes, shape: shape}, nil
	}
	return axisCoord{}, fmt.Errorf("no %s coordinate for %s in %s: %w", names[0], f.Name, g.ds.Path(), ErrSchemaMismatch)
}

// timeCoord returns per-index times when the field has a CF time dimension.
func (g *griddedFile) timeCoord(f netcdf.Field) (int, []time.Time, bool) {
	for i, dim := range f.Dims {
		if !strings.EqualFold(dim, "time") {
			continue
		}
		units, ok := g.ds.StringAttribute(dim, "units")
		if !ok {
			return 0, nil, false
		}
		cf, err := ParseCFUnits(units)
		if err != nil {
			return 0, nil, false
		}
		c, err := g.ds.Read(dim)
		if err != nil || c.Len() != f.Shape[i] {
			return 0, nil, false
		}
		times := make([]time.Time, c.Len())
		for k, v := range c.Values {
			if math.IsNaN(v) {
				return 0, nil, false
			}
			times[k] = cf.At(v)
		}
		return i, times, true
	}
	return 0, nil, false
}

// each calls fn for every element that has a value and lies inside bbox.
// Longitudes in 0..360 are shifted to -180..180.
func (l layout) each(f netcdf.Field, bbox domain.BBox, fn func(t time.Time, lat, lon, v float64)) {
	idx := make([]int, len(f.Shape))
	for _, v := range f.Values {
		if !domain.IsFill(v) {
			lat, lon := l.lat.at(idx), l.lon.at(idx)
			if lon > 180 {
				lon -= 360
			}
			if !domain.IsFill(lat) && !domain.IsFill(lon) && bbox.Contains(lat, lon) {
				fn(l.timeAt(idx), lat, lon, v)
			}
		}
		for k := len(idx) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < f.Shape[k] {
				break
			}
			idx[k] = 0
		}
	}
}

// observe reads a matched variable and converts it to observations.
func (g *griddedFile) observe(name, variable string, src domain.Source, bbox domain.BBox) ([]domain.Observation, error) {
	f, err := g.ds.Read(name)
	if err != nil {
		return nil, err
	}
	return g.observeField(f, variable, src, bbox)
}

func (g *griddedFile) observeField(f netcdf.Field, variable string, src domain.Source, bbox domain.BBox) ([]domain.Observation, error) {
	l, err := g.layoutFor(f)
	if err != nil {
		return nil, err
	}
	var out []domain.Observation
	l.each(f, bbox, func(t time.Time, lat, lon, v float64) {
		out = append(out, domain.Observation{Time: t, Lat: lat, Lon: lon, Variable: variable, Value: v, Source: src})
	})
	return out, nil
}

// positions finds where each of sub appears in dims, in order.
func positions(dims, sub []string) ([]int, bool) {
	if len(sub) == 0 {
		return nil, false
	}
	out := make([]int, len(sub))
	for k, s := range sub {
		found := -1
		for i, d := range dims {
			if d == s {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		out[k] = found
	}
	return out, true
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
