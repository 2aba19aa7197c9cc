package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/usecases"
)

func TestVenueService_FindNearby(t *testing.T) {
	repo := &mockVenueRepo{
		findNearbyFn: func(ctx context.Context, center domain.Coordinate, radius float64, limit int) ([]domain.InternalVenue, error) {
			return []domain.InternalVenue{
				{ID: "1", Name: "The Garage", Coordinate: pointA},
				{ID: "2", Name: "Union Chapel", Coordinate: pointA},
			}, nil
		},
	}
	svc := usecases.NewVenueService(repo, nil)

	venues, err := svc.FindNearby(context.Background(), pointA, 500, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(venues) != 2 {
		t.Fatalf("expected 2 venues, got %d", len(venues))
	}
	if venues[0].Name != "The Garage" {
		t.Errorf("expected The Garage, got %s", venues[0].Name)
	}
}

func TestVenueService_FindNearby_Clamps(t *testing.T) {
	tests := []struct {
		name       string
		radius     float64
		limit      int
		wantRadius float64
		wantLimit  int
	}{
		{"defaults", 0, 0, usecases.MinNearbyRadius, 50},
		{"too large", 1e6, 500, usecases.MaxNearbyRadius, 50},
		{"in range", 750, 5, 750, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRadius float64
			var gotLimit int
			repo := &mockVenueRepo{
				findNearbyFn: func(ctx context.Context, center domain.Coordinate, radius float64, limit int) ([]domain.InternalVenue, error) {
					gotRadius, gotLimit = radius, limit
					return nil, nil
				},
			}
			svc := usecases.NewVenueService(repo, nil)
			if _, err := svc.FindNearby(context.Background(), pointA, tt.radius, tt.limit); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotRadius != tt.wantRadius || gotLimit != tt.wantLimit {
				t.Errorf("got radius=%v limit=%d, want radius=%v limit=%d", gotRadius, gotLimit, tt.wantRadius, tt.wantLimit)
			}
		})
	}
}

func TestVenueService_FindNearby_InvalidCenter(t *testing.T) {
	svc := usecases.NewVenueService(&mockVenueRepo{}, nil)

	_, err := svc.FindNearby(context.Background(), domain.Coordinate{}, 500, 10)
	if !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
}

func TestVenueService_GetByID_Cached(t *testing.T) {
	calls := 0
	repo := &mockVenueRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.InternalVenue, error) {
			calls++
			return &domain.InternalVenue{ID: id, Name: "Scala"}, nil
		},
	}
	svc := usecases.NewVenueService(repo, newMockCache())

	for i := 0; i < 3; i++ {
		v, err := svc.GetByID(context.Background(), "v1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Name != "Scala" {
			t.Errorf("expected Scala, got %s", v.Name)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 repository call, got %d", calls)
	}
}

func TestVenueService_GetByID_NotFound(t *testing.T) {
	svc := usecases.NewVenueService(&mockVenueRepo{}, nil)

	_, err := svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
