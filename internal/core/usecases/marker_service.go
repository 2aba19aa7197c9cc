package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/ports"
)

// MarkerService keeps the live marker set in step with the event collection.
// Run is the only goroutine that reconciles; everything else submits event
// collections or reads snapshots.
type MarkerService struct {
	events     ports.EventRepository
	reconciler *Reconciler
	limit      int
	logger     *slog.Logger

	submitMu sync.Mutex
	mailbox  chan []domain.GeoEvent

	mu       sync.RWMutex
	snapshot []domain.MarkerRecord
	cycles   uint64

	// owned by Run
	registry *Registry
	previous map[string]domain.LocationGroup
}

// NewMarkerService creates a MarkerService. limit caps how many upcoming
// events Refresh loads.
func NewMarkerService(events ports.EventRepository, reconciler *Reconciler, limit int, logger *slog.Logger) *MarkerService {
	if limit <= 0 {
		limit = 5000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkerService{
		events:     events,
		reconciler: reconciler,
		limit:      limit,
		logger:     logger,
		mailbox:    make(chan []domain.GeoEvent, 1),
		registry:   NewRegistry(),
	}
}

// Submit queues an event collection for reconciliation. A collection still
// waiting in the queue is replaced, so Run only ever sees the newest one.
func (s *MarkerService) Submit(events []domain.GeoEvent) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	select {
	case <-s.mailbox:
	default:
	}
	s.mailbox <- events
}

// Refresh loads upcoming events from the repository and submits them.
func (s *MarkerService) Refresh(ctx context.Context) error {
	events, err := s.events.ListUpcoming(ctx, time.Now(), s.limit)
	if err != nil {
		return fmt.Errorf("list upcoming events: %w", err)
	}
	s.Submit(events)
	return nil
}

// RefreshEvery calls Refresh on every tick until ctx is done.
func (s *MarkerService) RefreshEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("periodic marker refresh failed", "error", err)
			}
		}
	}
}

// Run reconciles submitted collections one at a time until ctx is done.
func (s *MarkerService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case events := <-s.mailbox:
			s.apply(ctx, events)
		}
	}
}

func (s *MarkerService) apply(ctx context.Context, events []domain.GeoEvent) {
	current := Group(events)
	res := s.reconciler.Reconcile(ctx, s.previous, current, s.registry)
	s.previous = res.Applied

	if res.Changed() {
		s.logger.Debug("markers reconciled",
			"created", res.Created,
			"updated", res.Updated,
			"removed", res.Removed,
			"failed", res.Failed,
			"resynced", res.Resynced,
			"live", s.registry.Len(),
		)
	}

	records := s.registry.Records()
	s.mu.Lock()
	s.snapshot = records
	s.cycles++
	s.mu.Unlock()
}

// Markers returns the live markers ordered by location key.
func (s *MarkerService) Markers() []domain.MarkerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MarkerRecord(nil), s.snapshot...)
}

// Cycles returns the number of completed reconciliation cycles.
func (s *MarkerService) Cycles() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycles
}
