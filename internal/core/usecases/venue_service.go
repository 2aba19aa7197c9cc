package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/ports"
)

// Radius bounds for nearby venue lookups, in meters.
const (
	MinNearbyRadius = 1.0
	MaxNearbyRadius = 10000.0
)

// VenueService handles venue lookups against the internal store.
type VenueService struct {
	venues ports.VenueRepository
	cache  ports.CacheService
}

// NewVenueService creates a new VenueService. cache may be nil.
func NewVenueService(venues ports.VenueRepository, cache ports.CacheService) *VenueService {
	return &VenueService{venues: venues, cache: cache}
}

// FindNearby returns venues within radiusMeters of center, nearest first.
func (s *VenueService) FindNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.InternalVenue, error) {
	if !center.Valid() {
		return nil, domain.ErrInvalidCoordinate
	}
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	switch {
	case radiusMeters < MinNearbyRadius:
		radiusMeters = MinNearbyRadius
	case radiusMeters > MaxNearbyRadius:
		radiusMeters = MaxNearbyRadius
	}

	cacheKey := fmt.Sprintf("venues:nearby:%.4f:%.4f:%.0f:%d", center.Lat, center.Lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var venues []domain.InternalVenue
			if err := json.Unmarshal(data, &venues); err == nil {
				return venues, nil
			}
		}
	}

	venues, err := s.venues.FindNearby(ctx, center, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	// venues change rarely; 5 minutes
	if s.cache != nil {
		if data, err := json.Marshal(venues); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return venues, nil
}

// GetByID returns a single venue.
func (s *VenueService) GetByID(ctx context.Context, id string) (*domain.InternalVenue, error) {
	cacheKey := "venues:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var venue domain.InternalVenue
			if err := json.Unmarshal(data, &venue); err == nil {
				return &venue, nil
			}
		}
	}

	venue, err := s.venues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(venue); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return venue, nil
}
