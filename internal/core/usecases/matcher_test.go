package usecases_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/usecases"
)

var london = domain.Coordinate{Lat: 51.5074, Lon: -0.1278}

// offsetNorth moves c roughly meters to the north.
func offsetNorth(c domain.Coordinate, meters float64) domain.Coordinate {
	return domain.Coordinate{Lat: c.Lat + meters/111195.0, Lon: c.Lon}
}

func TestResolve_EmptyExternal(t *testing.T) {
	internal := []domain.InternalVenue{{ID: "v1", Name: "The Garage"}, {ID: "v2", Name: "Scala"}}
	got := usecases.Resolve(internal, nil)
	if !reflect.DeepEqual(got.InternalVenues, internal) {
		t.Errorf("internal venues changed: %+v", got.InternalVenues)
	}
	if got.ExternalCandidates == nil || len(got.ExternalCandidates) != 0 {
		t.Errorf("expected an empty non-nil external slice, got %#v", got.ExternalCandidates)
	}
}

func TestResolve_EmptySetEncodesArrays(t *testing.T) {
	data, err := json.Marshal(usecases.Resolve(nil, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"internal":[],"external":[],"degraded":false}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestResolve_EmptyInternal(t *testing.T) {
	external := []domain.ExternalCandidate{{ExternalID: "x1", Name: "Koko"}, {ExternalID: "x2", Name: "Electric Ballroom"}}
	got := usecases.Resolve(nil, external)
	if len(got.InternalVenues) != 0 {
		t.Errorf("expected no internals, got %d", len(got.InternalVenues))
	}
	if !reflect.DeepEqual(got.ExternalCandidates, external) {
		t.Errorf("externals changed: %+v", got.ExternalCandidates)
	}
}

func TestResolve_TierIdentityWins(t *testing.T) {
	internal := []domain.InternalVenue{{ID: "v1", Name: "The Garage", ExternalID: "X", Coordinate: london}}
	external := []domain.ExternalCandidate{{
		ExternalID: "X",
		Name:       "Completely Different Name",
		Address:    "1 Elsewhere Road",
		Coordinate: offsetNorth(london, 5000),
	}}

	got, dups := usecases.ResolveWithDuplicates(internal, external)
	if len(got.ExternalCandidates) != 0 {
		t.Fatalf("expected candidate dropped, got %+v", got.ExternalCandidates)
	}
	if len(dups) != 1 || dups[0].Tier != usecases.TierIdentity || dups[0].VenueID != "v1" {
		t.Errorf("expected identity duplicate of v1, got %+v", dups)
	}
}

func TestResolve_TierProximity(t *testing.T) {
	internal := []domain.InternalVenue{{ID: "v1", Name: "The Garage", Coordinate: london}}
	external := []domain.ExternalCandidate{{ExternalID: "g1", Name: "The Garage", Coordinate: offsetNorth(london, 1)}}

	got, dups := usecases.ResolveWithDuplicates(internal, external)
	if len(got.ExternalCandidates) != 0 {
		t.Fatalf("expected candidate dropped, got %+v", got.ExternalCandidates)
	}
	if dups[0].Tier != usecases.TierProximity {
		t.Errorf("expected proximity tier, got %s", dups[0].Tier)
	}
}

func TestResolve_TierName(t *testing.T) {
	internal := []domain.InternalVenue{{ID: "v1", Name: "The Garage", Coordinate: london}}
	external := []domain.ExternalCandidate{{ExternalID: "g1", Name: "The Garage", Coordinate: offsetNorth(london, 500)}}

	got, dups := usecases.ResolveWithDuplicates(internal, external)
	if len(got.ExternalCandidates) != 0 {
		t.Fatalf("expected candidate dropped, got %+v", got.ExternalCandidates)
	}
	if dups[0].Tier != usecases.TierName {
		t.Errorf("expected name tier, got %s", dups[0].Tier)
	}
}

func TestResolve_NameVariants(t *testing.T) {
	internal := []domain.InternalVenue{{
		ID:           "v1",
		Name:         "O2 Academy Brixton",
		NameVariants: []string{"Brixton Academy", "The Dog & Rat"},
	}}
	external := []domain.ExternalCandidate{
		{ExternalID: "g1", Name: "brixton academy"},
		{ExternalID: "g2", Name: "The Dog and Rat"},
		{ExternalID: "g3", Name: "Hootananny"},
	}

	got := usecases.Resolve(internal, external)
	if len(got.ExternalCandidates) != 1 || got.ExternalCandidates[0].ExternalID != "g3" {
		t.Errorf("expected only g3 to survive, got %+v", got.ExternalCandidates)
	}
}

func TestResolve_MissingCoordinatesFallThrough(t *testing.T) {
	internal := []domain.InternalVenue{{ID: "v1", Name: "Scala"}}
	external := []domain.ExternalCandidate{
		{ExternalID: "g1", Name: "Scala"},       // no coordinate, name tier
		{ExternalID: "g2", Name: "Union Chapel"}, // no coordinate, no match
	}

	got := usecases.Resolve(internal, external)
	if len(got.ExternalCandidates) != 1 || got.ExternalCandidates[0].ExternalID != "g2" {
		t.Errorf("unexpected externals %+v", got.ExternalCandidates)
	}
}

func TestResolve_FarAndDissimilarSurvives(t *testing.T) {
	internal := []domain.InternalVenue{{ID: "v1", Name: "The Garage", ExternalID: "A", Coordinate: london}}
	external := []domain.ExternalCandidate{{ExternalID: "B", Name: "Roundhouse", Coordinate: offsetNorth(london, 51)}}

	got := usecases.Resolve(internal, external)
	if len(got.ExternalCandidates) != 1 {
		t.Errorf("expected candidate kept, got %+v", got.ExternalCandidates)
	}
}

func TestResolve_EmptyNamesNeverMatch(t *testing.T) {
	internal := []domain.InternalVenue{{ID: "v1", Name: ""}}
	external := []domain.ExternalCandidate{{ExternalID: "g1", Name: "!!!"}}

	got := usecases.Resolve(internal, external)
	if len(got.ExternalCandidates) != 1 {
		t.Errorf("blank names must not deduplicate, got %+v", got.ExternalCandidates)
	}
}

func TestResolve_EmptyExternalIDsNeverMatch(t *testing.T) {
	internal := []domain.InternalVenue{{ID: "v1", Name: "Roundhouse"}}
	external := []domain.ExternalCandidate{{Name: "Jazz Cafe"}}

	got := usecases.Resolve(internal, external)
	if len(got.ExternalCandidates) != 1 {
		t.Errorf("empty external ids must not match, got %+v", got.ExternalCandidates)
	}
}

func TestResolve_PreservesOrderAndInputs(t *testing.T) {
	internal := []domain.InternalVenue{{ID: "v1", Name: "Scala", NameVariants: []string{"Scala Kings Cross"}}}
	external := []domain.ExternalCandidate{
		{ExternalID: "1", Name: "Koko"},
		{ExternalID: "2", Name: "Scala"},
		{ExternalID: "3", Name: "Electric Ballroom"},
		{ExternalID: "4", Name: "Lexington"},
	}
	internalCopy := append([]domain.InternalVenue(nil), internal...)
	externalCopy := append([]domain.ExternalCandidate(nil), external...)

	first := usecases.Resolve(internal, external)
	second := usecases.Resolve(internal, external)

	if !reflect.DeepEqual(first, second) {
		t.Error("Resolve must be deterministic")
	}
	var ids []string
	for _, c := range first.ExternalCandidates {
		ids = append(ids, c.ExternalID)
	}
	if !reflect.DeepEqual(ids, []string{"1", "3", "4"}) {
		t.Errorf("unexpected order %v", ids)
	}
	if !reflect.DeepEqual(internal, internalCopy) || !reflect.DeepEqual(external, externalCopy) {
		t.Error("inputs were mutated")
	}

	// Mutating the output must not reach back into the inputs.
	first.InternalVenues[0].Name = "changed"
	if internal[0].Name != "Scala" {
		t.Error("output aliases the internal input")
	}
}

func TestResolve_NoSurvivorMatchesAnyVenue(t *testing.T) {
	internal := []domain.InternalVenue{
		{ID: "v1", Name: "Moth Club", Coordinate: london},
		{ID: "v2", Name: "Village Underground", ExternalID: "vu"},
	}
	external := []domain.ExternalCandidate{
		{ExternalID: "a", Name: "Moth Club Hackney", Coordinate: offsetNorth(london, 20)},
		{ExternalID: "vu", Name: "VU"},
		{ExternalID: "b", Name: "Village Undergound"},
		{ExternalID: "c", Name: "Oslo Hackney", Coordinate: offsetNorth(london, 900)},
	}

	got := usecases.Resolve(internal, external)
	if len(got.ExternalCandidates) != 1 || got.ExternalCandidates[0].ExternalID != "c" {
		t.Errorf("expected only c to survive, got %+v", got.ExternalCandidates)
	}
}
