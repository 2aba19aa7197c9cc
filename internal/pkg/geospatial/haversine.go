package geospatial

import (
	"math"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

const earthRadiusMeters = 6371000.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Distance returns the great-circle distance in meters between a and b.
// Identical coordinates yield exactly 0.
func Distance(a, b domain.Coordinate) float64 {
	if a == b {
		return 0
	}
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(center domain.Coordinate, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(center.Lat)))

	return domain.Bounds{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MinLon: math.Max(center.Lon-lonDelta, -180),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MaxLon: math.Min(center.Lon+lonDelta, 180),
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
