package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/pkg/geospatial"
)

func TestDistance_Identical(t *testing.T) {
	points := []domain.Coordinate{
		{Lat: 51.5074, Lon: -0.1278},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 89.9999, Lon: 179.9999},
	}
	for _, p := range points {
		if d := geospatial.Distance(p, p); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := domain.Coordinate{Lat: 43.263, Lon: -2.935}
	b := domain.Coordinate{Lat: 40.4168, Lon: -3.7038}
	ab := geospatial.Distance(a, b)
	ba := geospatial.Distance(b, a)
	if math.Abs(ab-ba) > 1e-6 {
		t.Errorf("asymmetric distance: %v vs %v", ab, ba)
	}
}

func TestDistance_KnownValues(t *testing.T) {
	// London (Charing Cross) to Paris (Notre-Dame) is about 343.5 km.
	london := domain.Coordinate{Lat: 51.5074, Lon: -0.1278}
	paris := domain.Coordinate{Lat: 48.8530, Lon: 2.3499}
	d := geospatial.Distance(london, paris)
	if d < 340000 || d > 347000 {
		t.Errorf("London-Paris distance out of range: %.0f m", d)
	}

	// 0.00001 degrees of latitude is roughly 1.11 m.
	near := domain.Coordinate{Lat: london.Lat + 0.00001, Lon: london.Lon}
	if d := geospatial.Distance(london, near); d < 1.0 || d > 1.2 {
		t.Errorf("expected ~1.11 m, got %v", d)
	}
}

func TestBoundingBox(t *testing.T) {
	c := domain.Coordinate{Lat: 43.263, Lon: -2.935}
	b := geospatial.BoundingBox(c, 1000)
	if !b.Valid() {
		t.Fatalf("invalid bounds %+v", b)
	}
	if b.MinLat >= c.Lat || b.MaxLat <= c.Lat || b.MinLon >= c.Lon || b.MaxLon <= c.Lon {
		t.Errorf("center not inside bounds %+v", b)
	}
	north := domain.Coordinate{Lat: b.MaxLat, Lon: c.Lon}
	if d := geospatial.Distance(c, north); math.Abs(d-1000) > 10 {
		t.Errorf("expected ~1000 m to northern edge, got %v", d)
	}
}
