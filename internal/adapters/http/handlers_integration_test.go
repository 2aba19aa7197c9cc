//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	handler "github.com/samirrijal/gigmap/internal/adapters/http"
	"github.com/samirrijal/gigmap/internal/adapters/cluster"
	"github.com/samirrijal/gigmap/internal/adapters/postgres"
	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/usecases"
	"github.com/samirrijal/gigmap/internal/pkg/config"
)

// setupTestDB connects to the test database described by GIGMAP_DB_* settings.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("gigmap-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

// setupTestDeps wires real repositories with no cache and no provider results.
func setupTestDeps(db *postgres.DB) *handler.Dependencies {
	venues := postgres.NewVenueRepo(db)
	layer := cluster.NewLayer()
	return &handler.Dependencies{
		Search:   usecases.NewSearchService(venues, &mockPlaces{}, nil, usecases.SearchOptions{}, nil),
		Venues:   usecases.NewVenueService(venues, nil),
		Markers:  usecases.NewMarkerService(postgres.NewEventRepo(db), usecases.NewReconciler(&mockRenderer{}, layer, nil), 0, nil),
		Clusters: layer,
		DB:       db,
	}
}

// seedVenue upserts a venue by external id and returns its UUID.
func seedVenue(t *testing.T, db *postgres.DB, externalID, name string, c domain.Coordinate) string {
	t.Helper()
	var id string
	if err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO venues (name, external_id, location)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography)
		ON CONFLICT (external_id) WHERE external_id IS NOT NULL
		DO UPDATE SET name = EXCLUDED.name, location = EXCLUDED.location
		RETURNING id
	`, name, externalID, c.Lon, c.Lat).Scan(&id); err != nil {
		t.Fatalf("seed venue: %v", err)
	}
	return id
}

func seedEvent(t *testing.T, db *postgres.DB, venueID, title string, startsAt time.Time) string {
	t.Helper()
	var id string
	if err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO events (title, venue_id, starts_at) VALUES ($1, $2, $3) RETURNING id
	`, title, venueID, startsAt).Scan(&id); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM events WHERE id = $1`, id)
	})
	return id
}

func uniqueSuffix() string {
	return time.Now().Format("20060102150405.000000")
}

func TestSearchVenues_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	name := "Integration Hall " + uniqueSuffix()
	seedVenue(t, db, "test/"+name, name, domain.Coordinate{Lat: 51.5465, Lon: -0.1058})

	app := setupApp(setupTestDeps(db))
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/venues/search?q="+url.QueryEscape(name), nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var set domain.ResolvedCandidateSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	found := false
	for _, v := range set.InternalVenues {
		if v.Name == name {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q among internal venues, got %+v", name, set.InternalVenues)
	}
}

func TestNearbyVenues_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	seedVenue(t, db, "test/nearby-garage", "Nearby Garage", domain.Coordinate{Lat: 51.5465, Lon: -0.1058})

	app := setupApp(setupTestDeps(db))
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/venues/nearby?lat=51.5466&lon=-0.1059&radius=500", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var venues []domain.InternalVenue
	if err := json.NewDecoder(resp.Body).Decode(&venues); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(venues) == 0 {
		t.Fatal("expected at least 1 nearby venue, got 0")
	}
	if venues[0].Distance == nil || *venues[0].Distance > 500 {
		t.Errorf("expected a distance within the radius, got %+v", venues[0].Distance)
	}
}

func TestRefreshMarkers_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	venueID := seedVenue(t, db, "test/marker-chapel", "Marker Chapel", domain.Coordinate{Lat: 51.5440, Lon: -0.1030})
	start := time.Now().Add(24 * time.Hour)
	seedEvent(t, db, venueID, "Early show", start)
	seedEvent(t, db, venueID, "Late show", start.Add(3*time.Hour))

	deps := setupTestDeps(db)
	runMarkers(t, deps.Markers)
	app := setupApp(deps)

	resp, err := app.Test(httptest.NewRequest("POST", "/v1/markers/refresh", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	waitForCycles(t, deps.Markers, 1)

	key := domain.Coordinate{Lat: 51.5440, Lon: -0.1030}.LocationKey()
	for _, m := range deps.Markers.Markers() {
		if m.LocationKey == key {
			if m.EventCount < 2 {
				t.Errorf("expected both events on one marker, got %d", m.EventCount)
			}
			return
		}
	}
	t.Errorf("expected a marker at %s", key)
}
