package places_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/gigmap/internal/adapters/places"
	"github.com/samirrijal/gigmap/internal/core/domain"
)

const searchBody = `[
	{"place_id": 1, "osm_type": "node", "osm_id": 42, "name": "The Garage",
	 "display_name": "The Garage, 20-22 Highbury Corner, London", "lat": "51.5465", "lon": "-0.1058"},
	{"place_id": 2, "osm_type": "way", "osm_id": 7, "name": "",
	 "display_name": "Union Chapel, Compton Terrace, London", "lat": 51.5440, "lon": -0.1030},
	{"place_id": 3, "name": "Broken", "display_name": "Broken", "lat": "n/a", "lon": ""}
]`

func TestSearchExternal(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Query().Get("viewbox") == "" {
			t.Error("expected a viewbox for a valid center")
		}
		if r.URL.Query().Get("countrycodes") != "gb,ie" {
			t.Errorf("unexpected countrycodes %q", r.URL.Query().Get("countrycodes"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	client := places.New(places.Options{BaseURL: srv.URL, UserAgent: "gigmap-test", CountryCodes: []string{"gb", "ie"}})
	got, err := client.SearchExternal(context.Background(), "garage", domain.Coordinate{Lat: 51.5, Lon: -0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery != "garage" || gotUA != "gigmap-test" {
		t.Errorf("unexpected request q=%q ua=%q", gotQuery, gotUA)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].ExternalID != "node/42" || got[0].Name != "The Garage" {
		t.Errorf("unexpected first candidate %+v", got[0])
	}
	if got[0].Coordinate.Lat != 51.5465 || got[0].Coordinate.Lon != -0.1058 {
		t.Errorf("unexpected coordinate %+v", got[0].Coordinate)
	}
	if got[1].Name != "Union Chapel" {
		t.Errorf("expected name from display_name, got %q", got[1].Name)
	}
	if got[2].ExternalID != "3" || got[2].Coordinate.Valid() {
		t.Errorf("expected unparseable coordinate as missing, got %+v", got[2])
	}
}

func TestSearchExternal_NoCenterNoViewbox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("viewbox") != "" {
			t.Error("expected no viewbox without a center")
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	got, err := places.New(places.Options{BaseURL: srv.URL}).SearchExternal(context.Background(), "garage", domain.Coordinate{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %d", len(got))
	}
}

func TestSearchExternal_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	got, err := places.New(places.Options{BaseURL: srv.URL}).SearchExternal(context.Background(), "garage", domain.Coordinate{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected success on third attempt, got %d results after %d calls", len(got), calls)
	}
}

func TestSearchExternal_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := places.New(places.Options{BaseURL: srv.URL}).SearchExternal(context.Background(), "garage", domain.Coordinate{})
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestSearchExternal_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := places.New(places.Options{BaseURL: srv.URL}).SearchExternal(ctx, "garage", domain.Coordinate{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("search did not honour the context deadline")
	}
}
