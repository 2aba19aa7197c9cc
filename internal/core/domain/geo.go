package domain

import (
	"math"
	"strconv"
)

// LocationKeyPrecision is the number of decimal places kept in a location key.
const LocationKeyPrecision = 6

// Coordinate represents a geographic coordinate (WGS 84).
// The zero value is the "no location" placeholder.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether c is a usable location: finite, in range and not
// the (0,0) placeholder.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return false
	}
	return !(c.Lat == 0 && c.Lon == 0)
}

// LocationKey returns the "lat,lng" grouping key at LocationKeyPrecision.
// The key is only meaningful for valid coordinates.
func (c Coordinate) LocationKey() string {
	return formatKeyPart(c.Lat) + "," + formatKeyPart(c.Lon)
}

func formatKeyPart(v float64) string {
	scale := math.Pow10(LocationKeyPrecision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', LocationKeyPrecision, 64)
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Valid reports whether b describes a non-inverted box inside WGS 84 ranges.
func (b Bounds) Valid() bool {
	return b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon &&
		b.MinLat >= -90 && b.MaxLat <= 90 && b.MinLon >= -180 && b.MaxLon <= 180
}
