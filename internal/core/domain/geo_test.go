package domain_test

import (
	"math"
	"testing"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

func TestCoordinate_Valid(t *testing.T) {
	tests := []struct {
		name string
		c    domain.Coordinate
		want bool
	}{
		{"london", domain.Coordinate{Lat: 51.5074, Lon: -0.1278}, true},
		{"placeholder", domain.Coordinate{}, false},
		{"nan lat", domain.Coordinate{Lat: math.NaN(), Lon: 1}, false},
		{"inf lon", domain.Coordinate{Lat: 1, Lon: math.Inf(1)}, false},
		{"lat out of range", domain.Coordinate{Lat: 91, Lon: 1}, false},
		{"lon out of range", domain.Coordinate{Lat: 1, Lon: -181}, false},
		{"equator only", domain.Coordinate{Lat: 0, Lon: 12.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Valid(); got != tt.want {
				t.Errorf("Valid(%v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestCoordinate_LocationKey(t *testing.T) {
	c := domain.Coordinate{Lat: 51.5074, Lon: -0.1278}
	if got := c.LocationKey(); got != "51.507400,-0.127800" {
		t.Errorf("unexpected key %q", got)
	}
	if c.LocationKey() != c.LocationKey() {
		t.Error("key must be deterministic")
	}

	// Sub-precision jitter collapses onto the same key.
	a := domain.Coordinate{Lat: 43.2630001, Lon: -2.9350004}
	b := domain.Coordinate{Lat: 43.2629999, Lon: -2.9349996}
	if a.LocationKey() != b.LocationKey() {
		t.Errorf("expected equal keys, got %q and %q", a.LocationKey(), b.LocationKey())
	}

	// Negative zero must not produce "-0.000000".
	z := domain.Coordinate{Lat: 10, Lon: -0.0000001}
	if got := z.LocationKey(); got != "10.000000,0.000000" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestResolvedCandidateSet_All(t *testing.T) {
	set := domain.ResolvedCandidateSet{
		InternalVenues:     []domain.InternalVenue{{ID: "v1", Name: "The Garage"}},
		ExternalCandidates: []domain.ExternalCandidate{{ExternalID: "x1", Name: "Scala"}, {ExternalID: "x2", Name: "Koko"}},
	}
	all := set.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(all))
	}
	if all[0].Source() != domain.SourceInternal || all[0].DisplayName() != "The Garage" {
		t.Errorf("internal venue must come first, got %v", all[0])
	}
	if all[2].DisplayName() != "Koko" {
		t.Errorf("external order not preserved, got %s", all[2].DisplayName())
	}
}
