package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/gigmap/internal/adapters/places"
	"github.com/samirrijal/gigmap/internal/adapters/postgres"
	"github.com/samirrijal/gigmap/internal/pkg/config"
	"github.com/samirrijal/gigmap/internal/pkg/logging"
	"github.com/samirrijal/gigmap/internal/workflows"
)

func main() {
	cfg, err := config.Load("gigmap-harvester")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	db, err := postgres.New(context.Background(), cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.HarvestWorkflow)
	w.RegisterActivity(&workflows.HarvestActivities{
		Venues: postgres.NewVenueRepo(db),
		Places: places.New(places.Options{
			BaseURL:      cfg.Places.BaseURL,
			UserAgent:    cfg.Places.UserAgent,
			Timeout:      cfg.Places.Timeout(),
			CountryCodes: cfg.Places.CountryCodes,
		}),
		Candidates: postgres.NewCandidateRepo(db),
	})

	logger.Info("harvest worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
