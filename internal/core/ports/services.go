package ports

import (
	"context"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

// PlaceSearchProvider is the external place-search provider.
type PlaceSearchProvider interface {
	SearchExternal(ctx context.Context, query string, center domain.Coordinate) ([]domain.ExternalCandidate, error)
}

// MarkerRenderer creates and destroys visual marker handles.
type MarkerRenderer interface {
	CreateMarker(ctx context.Context, coord domain.Coordinate, label string) (domain.MarkerHandle, error)
	DestroyMarker(ctx context.Context, handle domain.MarkerHandle) error
}

// MarkerUpdater is implemented by renderers that can relabel a marker in place.
type MarkerUpdater interface {
	UpdateMarker(ctx context.Context, handle domain.MarkerHandle, label string) error
}

// ClusterLayer aggregates live markers into viewport clusters.
type ClusterLayer interface {
	SetMarkers(ctx context.Context, members []domain.ClusterMember) error
}

// EventPublisher publishes domain messages to a message broker.
type EventPublisher interface {
	PublishMarkerCommand(ctx context.Context, cmd domain.MarkerCommand) error
	PublishEventsChanged(ctx context.Context, reason string) error
}

// EventSubscriber subscribes to domain messages from a message broker.
type EventSubscriber interface {
	SubscribeEventsChanged(ctx context.Context, handler func(ctx context.Context, reason string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// HarvestStarter starts a background venue harvest and returns its run id.
type HarvestStarter interface {
	StartHarvest(ctx context.Context, query string, center domain.Coordinate) (string, error)
}
