package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"github.com/samirrijal/gigmap/internal/adapters/cluster"
	"github.com/samirrijal/gigmap/internal/adapters/http"
	natsadapter "github.com/samirrijal/gigmap/internal/adapters/nats"
	"github.com/samirrijal/gigmap/internal/adapters/places"
	"github.com/samirrijal/gigmap/internal/adapters/postgres"
	"github.com/samirrijal/gigmap/internal/adapters/render"
	"github.com/samirrijal/gigmap/internal/adapters/valkey"
	"github.com/samirrijal/gigmap/internal/core/ports"
	"github.com/samirrijal/gigmap/internal/core/usecases"
	"github.com/samirrijal/gigmap/internal/pkg/config"
	"github.com/samirrijal/gigmap/internal/pkg/logging"
	"github.com/samirrijal/gigmap/internal/pkg/metrics"
	"github.com/samirrijal/gigmap/internal/pkg/telemetry"
	"github.com/samirrijal/gigmap/internal/workflows"
)

func main() {
	cfg, err := config.Load("gigmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			logger.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// The cache is optional: searches and lookups fall through to the source.
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
	if err != nil {
		logger.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer publisher.Close()

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		logger.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	venueRepo := postgres.NewVenueRepo(db)
	eventRepo := postgres.NewEventRepo(db)
	placesClient := places.New(places.Options{
		BaseURL:      cfg.Places.BaseURL,
		UserAgent:    cfg.Places.UserAgent,
		Timeout:      cfg.Places.Timeout(),
		CountryCodes: cfg.Places.CountryCodes,
	})

	searchSvc := usecases.NewSearchService(venueRepo, placesClient, cache, usecases.SearchOptions{
		ExternalTimeout: cfg.Search.ExternalTimeout(),
		DefaultLimit:    cfg.Search.Limit,
		CacheTTLSeconds: cfg.Search.CacheTTL,
	}, logger)
	venueSvc := usecases.NewVenueService(venueRepo, cache)

	layer := cluster.NewLayer()
	reconciler := usecases.NewReconciler(render.New(publisher), layer, logger)
	markerSvc := usecases.NewMarkerService(eventRepo, reconciler, cfg.Markers.EventLimit, logger)

	go func() {
		if err := markerSvc.Run(ctx); err != nil {
			logger.Error("marker loop stopped", "error", err)
		}
	}()
	if err := markerSvc.Refresh(ctx); err != nil {
		logger.Warn("initial marker load failed", "error", err)
	}
	go markerSvc.RefreshEvery(ctx, cfg.Markers.Interval())

	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.Durable)
	if err != nil {
		logger.Warn("events.changed subscriber unavailable, relying on periodic refresh", "error", err)
	} else {
		defer subscriber.Close()
		err := subscriber.SubscribeEventsChanged(ctx, func(ctx context.Context, reason string) error {
			logger.Debug("events changed", "reason", reason)
			return markerSvc.Refresh(ctx)
		})
		if err != nil {
			logger.Warn("subscribe events.changed failed", "error", err)
		}
	}

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			}
		}
	}()

	deps := &http.Dependencies{
		Search:         searchSvc,
		Venues:         venueSvc,
		Markers:        markerSvc,
		Clusters:       layer,
		SearchDebounce: cfg.Search.Debounce(),
		SearchLimit:    cfg.Search.Limit,
		NATS:           natsConn,
		DB:             db,
		Cache:          cache,
		Logger:         logger,
	}

	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    tlog.NewStructuredLogger(logger),
		})
		if err != nil {
			logger.Warn("temporal unavailable, harvests disabled", "error", err)
		} else {
			defer tc.Close()
			deps.Harvests = workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
		}
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "Gigmap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
