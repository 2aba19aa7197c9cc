package usecases

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/pkg/metrics"
)

// Debounce bounds for user-driven search input.
const (
	MinDebounce     = 300 * time.Millisecond
	MaxDebounce     = 500 * time.Millisecond
	DefaultDebounce = 400 * time.Millisecond
)

// Searcher runs one venue search.
type Searcher interface {
	Search(ctx context.Context, query string, center domain.Coordinate, limit int) (domain.ResolvedCandidateSet, error)
}

// LiveResult is the outcome of one live search generation.
type LiveResult struct {
	Generation uint64
	Query      string
	Set        domain.ResolvedCandidateSet
	Err        error
}

// ClampDebounce returns d bounded to [MinDebounce, MaxDebounce], or
// DefaultDebounce when d is not positive.
func ClampDebounce(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultDebounce
	case d < MinDebounce:
		return MinDebounce
	case d > MaxDebounce:
		return MaxDebounce
	default:
		return d
	}
}

// LiveSearch debounces search input for one session. Each Submit supersedes
// the previous one: its timer is reset, an in-flight search is canceled and
// any response it still produces is discarded.
type LiveSearch struct {
	searcher Searcher
	debounce time.Duration
	limit    int
	logger   *slog.Logger

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	closed  bool
	results chan LiveResult
}

// NewLiveSearch creates a LiveSearch. The debounce is clamped with ClampDebounce.
func NewLiveSearch(searcher Searcher, debounce time.Duration, limit int, logger *slog.Logger) *LiveSearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveSearch{
		searcher: searcher,
		debounce: ClampDebounce(debounce),
		limit:    limit,
		logger:   logger,
		results:  make(chan LiveResult, 1),
	}
}

// Results delivers the newest result. An unread result is replaced by a
// newer one. The channel is closed by Close.
func (l *LiveSearch) Results() <-chan LiveResult {
	return l.results
}

// Submit schedules a search for query and returns its generation. A blank
// query cancels pending work and delivers an empty result immediately.
func (l *LiveSearch) Submit(query string, center domain.Coordinate) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return l.gen
	}
	l.gen++
	gen := l.gen
	l.stopLocked()

	if strings.TrimSpace(query) == "" {
		l.sendLocked(LiveResult{Generation: gen, Query: query})
		return gen
	}
	l.timer = time.AfterFunc(l.debounce, func() { l.fire(gen, query, center) })
	return gen
}

// Close cancels pending work and closes the results channel.
func (l *LiveSearch) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	l.stopLocked()
	close(l.results)
}

func (l *LiveSearch) fire(gen uint64, query string, center domain.Coordinate) {
	l.mu.Lock()
	if l.closed || gen != l.gen {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	set, err := l.searcher.Search(ctx, query, center, l.limit)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || gen != l.gen {
		metrics.LiveSearchStaleDiscarded.Inc()
		l.logger.Debug("discarding superseded search", "generation", gen, "current", l.gen)
		return
	}
	l.sendLocked(LiveResult{Generation: gen, Query: query, Set: set, Err: err})
}

func (l *LiveSearch) stopLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// sendLocked replaces any unread result with res.
func (l *LiveSearch) sendLocked(res LiveResult) {
	select {
	case <-l.results:
	default:
	}
	l.results <- res
}
