package domain

import "math"

// DefaultResolution is the grid step in degrees (about 12.5 km at mid latitudes).
const DefaultResolution = 0.125

// GridCell is a coordinate pair snapped to the grid.
type GridCell struct {
	Lat float64 `json:"lat_grid"`
	Lon float64 `json:"lon_grid"`
}

// Snap rounds a coordinate to the nearest multiple of res on each axis. Every
// source goes through this one function so that unrelated grids line up.
// A non-positive resolution leaves the coordinate untouched.
func Snap(lat, lon, res float64) GridCell {
	return GridCell{Lat: snapAxis(lat, res), Lon: snapAxis(lon, res)}
}

func snapAxis(c, res float64) float64 {
	if res <= 0 {
		return c
	}
	v := math.Round(c/res) * res
	if v == 0 {
		// -0 and 0 must produce the same key.
		return 0
	}
	return v
}

// BBox is a geographic bounding box in degrees.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// DefaultBBox covers the contiguous United States and southern Canada.
var DefaultBBox = BBox{West: -130, South: 20, East: -60, North: 55}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}
