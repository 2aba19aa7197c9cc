package ports

import (
	"context"
	"time"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

// VenueRepository is the internal venue store.
type VenueRepository interface {
	// SearchInternal matches query against venue names and name variants.
	SearchInternal(ctx context.Context, query string, limit int) ([]domain.InternalVenue, error)
	GetByID(ctx context.Context, id string) (*domain.InternalVenue, error)
	FindNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.InternalVenue, error)
}

// EventRepository exposes the upstream event collection.
type EventRepository interface {
	// ListUpcoming returns events starting at or after from, ordered by start time.
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]domain.GeoEvent, error)
}

// CandidateRepository stores external candidates awaiting moderation.
type CandidateRepository interface {
	SaveCandidates(ctx context.Context, candidates []domain.ExternalCandidate) (int, error)
}
