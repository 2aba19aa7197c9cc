package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/ports"
	"github.com/samirrijal/gigmap/internal/pkg/metrics"
	"github.com/samirrijal/gigmap/internal/pkg/similarity"
)

// MaxSearchLimit caps how many venues of each source a search returns.
const MaxSearchLimit = 50

var tracer = otel.Tracer("github.com/samirrijal/gigmap/internal/core/usecases")

// SearchOptions tunes SearchService.
type SearchOptions struct {
	ExternalTimeout time.Duration
	DefaultLimit    int
	CacheTTLSeconds int
}

// SearchService runs a venue search against both sources and deduplicates
// the results.
type SearchService struct {
	venues ports.VenueRepository
	places ports.PlaceSearchProvider
	cache  ports.CacheService
	opts   SearchOptions
	logger *slog.Logger
}

// NewSearchService creates a new SearchService. places and cache may be nil.
func NewSearchService(venues ports.VenueRepository, places ports.PlaceSearchProvider, cache ports.CacheService, opts SearchOptions, logger *slog.Logger) *SearchService {
	if opts.ExternalTimeout <= 0 {
		opts.ExternalTimeout = 2500 * time.Millisecond
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > MaxSearchLimit {
		opts.DefaultLimit = 20
	}
	if opts.CacheTTLSeconds <= 0 {
		opts.CacheTTLSeconds = 300
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{venues: venues, places: places, cache: cache, opts: opts, logger: logger}
}

// Search returns internal venues matching query plus the external candidates
// that do not duplicate any of them. An external provider failure degrades
// the result instead of failing it; cancellation of ctx returns ctx.Err().
func (s *SearchService) Search(ctx context.Context, query string, center domain.Coordinate, limit int) (domain.ResolvedCandidateSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.ResolvedCandidateSet{}, domain.ErrEmptyQuery
	}
	if limit <= 0 || limit > MaxSearchLimit {
		limit = s.opts.DefaultLimit
	}

	ctx, span := tracer.Start(ctx, "SearchService.Search", trace.WithAttributes(
		attribute.String("search.query", query),
		attribute.Int("search.limit", limit),
	))
	defer span.End()

	var (
		internal []domain.InternalVenue
		external []domain.ExternalCandidate
		extErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		venues, err := s.venues.SearchInternal(gctx, query, limit)
		if err != nil {
			return fmt.Errorf("search internal venues: %w", err)
		}
		internal = venues
		return nil
	})
	g.Go(func() error {
		external, extErr = s.searchExternal(gctx, query, center)
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		metrics.SearchRequests.WithLabelValues("canceled").Inc()
		return domain.ResolvedCandidateSet{}, ctx.Err()
	}
	if err != nil {
		metrics.SearchRequests.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.ResolvedCandidateSet{}, err
	}

	set, dups := ResolveWithDuplicates(internal, external)
	for _, d := range dups {
		metrics.DuplicatesDropped.WithLabelValues(d.Tier.String()).Inc()
	}
	if len(set.ExternalCandidates) > limit {
		set.ExternalCandidates = set.ExternalCandidates[:limit]
	}

	outcome := "ok"
	if extErr != nil {
		outcome = "degraded"
		set.Degraded = true
		s.logger.Warn("external place search failed, returning internal venues only",
			"query", query, "error", extErr)
	}
	metrics.SearchRequests.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.Int("search.internal", len(set.InternalVenues)),
		attribute.Int("search.external", len(set.ExternalCandidates)),
		attribute.Int("search.duplicates", len(dups)),
		attribute.Bool("search.degraded", set.Degraded),
	)
	return set, nil
}

func (s *SearchService) searchExternal(ctx context.Context, query string, center domain.Coordinate) ([]domain.ExternalCandidate, error) {
	if s.places == nil {
		return nil, nil
	}

	cacheKey := fmt.Sprintf("places:search:%s:%.3f:%.3f", similarity.Normalize(query), center.Lat, center.Lon)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached []domain.ExternalCandidate
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.WithLabelValues("places_search").Inc()
				return cached, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("places_search").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ExternalTimeout)
	defer cancel()

	start := time.Now()
	candidates, err := s.places.SearchExternal(ctx, query, center)
	metrics.ExternalSearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("search external places: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(candidates); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.opts.CacheTTLSeconds)
		}
	}
	return candidates, nil
}
