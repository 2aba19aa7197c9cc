package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	natsadapter "github.com/samirrijal/gigmap/internal/adapters/nats"
	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/pkg/config"
	"github.com/samirrijal/gigmap/internal/pkg/logging"
)

const batchSize = 500

// Manifest is an import file of venues and the events held at them.
type Manifest struct {
	Source string       `json:"source"`
	Venues []VenueEntry `json:"venues"`
	Events []EventEntry `json:"events"`
}

type VenueEntry struct {
	ExternalID   string   `json:"external_id"`
	Name         string   `json:"name"`
	NameVariants []string `json:"name_variants"`
	Address      string   `json:"address"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	Verified     bool     `json:"verified"`
}

type EventEntry struct {
	ID              string    `json:"id"` // optional UUID; new events get one
	Title           string    `json:"title"`
	VenueExternalID string    `json:"venue_external_id"`
	ArtistIDs       []string  `json:"artist_ids"`
	Lat             *float64  `json:"lat"`
	Lon             *float64  `json:"lon"`
	StartsAt        time.Time `json:"starts_at"`
}

func main() {
	cfg, err := config.Load("gigmap-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("importing", "source", manifest.Source, "venues", len(manifest.Venues), "events", len(manifest.Events))

	venues, err := importVenues(ctx, pool, manifest.Venues)
	if err != nil {
		log.Fatalf("venues: %v", err)
	}
	events, err := importEvents(ctx, pool, manifest.Events)
	if err != nil {
		log.Fatalf("events: %v", err)
	}
	logger.Info("import complete", "venues", venues, "events", events)

	// Live API instances refresh their markers on this message.
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		logger.Warn("nats unavailable, markers update on the next periodic refresh", "error", err)
		return
	}
	defer publisher.Close()
	if err := publisher.PublishEventsChanged(ctx, "import:"+manifest.Source); err != nil {
		logger.Warn("publish events.changed failed", "error", err)
	}
}

func importVenues(ctx context.Context, pool *pgxpool.Pool, entries []VenueEntry) (int, error) {
	batch := &pgx.Batch{}
	count, total := 0, 0
	for _, v := range entries {
		if strings.TrimSpace(v.ExternalID) == "" || strings.TrimSpace(v.Name) == "" {
			slog.Warn("skipping venue without external_id or name", "name", v.Name)
			continue
		}
		if !(domain.Coordinate{Lat: v.Lat, Lon: v.Lon}).Valid() {
			slog.Warn("skipping venue without a usable location", "external_id", v.ExternalID)
			continue
		}
		variants := v.NameVariants
		if variants == nil {
			variants = []string{}
		}
		batch.Queue(`
			INSERT INTO venues (external_id, name, name_variants, address, location, verified)
			VALUES ($1, $2, $3, NULLIF($4, ''), ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography, $7)
			ON CONFLICT (external_id) WHERE external_id IS NOT NULL DO UPDATE SET
				name = EXCLUDED.name,
				name_variants = EXCLUDED.name_variants,
				address = EXCLUDED.address,
				location = EXCLUDED.location,
				verified = EXCLUDED.verified,
				updated_at = now()
		`, v.ExternalID, v.Name, variants, v.Address, v.Lon, v.Lat, v.Verified)
		count++

		if count >= batchSize {
			if err := flushBatch(ctx, pool, batch, count); err != nil {
				return total, err
			}
			total += count
			batch, count = &pgx.Batch{}, 0
		}
	}
	if count > 0 {
		if err := flushBatch(ctx, pool, batch, count); err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

// importEvents upserts events. An event without its own location is placed
// at its venue when the marker set is built.
func importEvents(ctx context.Context, pool *pgxpool.Pool, entries []EventEntry) (int, error) {
	batch := &pgx.Batch{}
	count, total := 0, 0
	for _, e := range entries {
		if e.StartsAt.IsZero() {
			slog.Warn("skipping event without starts_at", "title", e.Title)
			continue
		}
		var lat, lon *float64
		if e.Lat != nil && e.Lon != nil && (domain.Coordinate{Lat: *e.Lat, Lon: *e.Lon}).Valid() {
			lat, lon = e.Lat, e.Lon
		}
		artists := e.ArtistIDs
		if artists == nil {
			artists = []string{}
		}
		batch.Queue(`
			INSERT INTO events (id, title, venue_id, artist_ids, location, starts_at)
			VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2,
			        (SELECT id FROM venues WHERE external_id = NULLIF($3, '')),
			        $4,
			        CASE WHEN $5::float8 IS NULL THEN NULL
			             ELSE ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography END,
			        $7)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				venue_id = EXCLUDED.venue_id,
				artist_ids = EXCLUDED.artist_ids,
				location = EXCLUDED.location,
				starts_at = EXCLUDED.starts_at
		`, e.ID, e.Title, e.VenueExternalID, artists, lon, lat, e.StartsAt)
		count++

		if count >= batchSize {
			if err := flushBatch(ctx, pool, batch, count); err != nil {
				return total, err
			}
			total += count
			batch, count = &pgx.Batch{}, 0
		}
	}
	if count > 0 {
		if err := flushBatch(ctx, pool, batch, count); err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

func flushBatch(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch, count int) error {
	br := pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < count; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return nil
}
