package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/ports"
)

// Activity names used by HarvestWorkflow.
const (
	ActivitySearchInternal = "SearchInternal"
	ActivitySearchExternal = "SearchExternal"
	ActivitySaveCandidates = "SaveCandidates"
)

// HarvestActivities holds the activity implementations for the harvest workflow.
type HarvestActivities struct {
	Venues     ports.VenueRepository
	Places     ports.PlaceSearchProvider
	Candidates ports.CandidateRepository
}

// SearchInternal matches query against the internal venue store.
func (a *HarvestActivities) SearchInternal(ctx context.Context, query string, limit int) ([]domain.InternalVenue, error) {
	venues, err := a.Venues.SearchInternal(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search internal venues: %w", err)
	}
	return venues, nil
}

// SearchExternal queries the external place provider.
func (a *HarvestActivities) SearchExternal(ctx context.Context, query string, center domain.Coordinate) ([]domain.ExternalCandidate, error) {
	candidates, err := a.Places.SearchExternal(ctx, query, center)
	if err != nil {
		return nil, fmt.Errorf("search external places: %w", err)
	}
	return candidates, nil
}

// SaveCandidates queues surviving external candidates for moderation.
func (a *HarvestActivities) SaveCandidates(ctx context.Context, candidates []domain.ExternalCandidate) (int, error) {
	saved, err := a.Candidates.SaveCandidates(ctx, candidates)
	if err != nil {
		return saved, fmt.Errorf("save candidates: %w", err)
	}
	activity.GetLogger(ctx).Info("venue candidates queued", "received", len(candidates), "new", saved)
	return saved, nil
}
