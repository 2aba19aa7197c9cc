package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/gigmap/internal/adapters/cluster"
	"github.com/samirrijal/gigmap/internal/core/ports"
	"github.com/samirrijal/gigmap/internal/core/usecases"
)

// Pinger is a backing service that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Search   *usecases.SearchService
	Venues   *usecases.VenueService
	Markers  *usecases.MarkerService
	Clusters *cluster.Layer
	Harvests ports.HarvestStarter

	// SearchDebounce and SearchLimit configure live search on /ws.
	SearchDebounce time.Duration
	SearchLimit    int

	NATS   *nats.Conn
	DB     Pinger
	Cache  ports.CacheService
	Logger *slog.Logger
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
