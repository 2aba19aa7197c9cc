package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/gigmap/internal/pkg/config"
)

const migrationsDir = "migrations"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|status>")
	}

	cfg, err := config.Load("gigmap-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Fatalf("schema_migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		runUp(ctx, pool)
	case "down":
		runDown(ctx, pool)
	case "status":
		runStatus(ctx, pool)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// migrationFiles returns the *.sql files in lexical (version) order.
func migrationFiles() []string {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}
	sort.Strings(files)
	return files
}

func applied(ctx context.Context, pool *pgxpool.Pool) map[string]bool {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		log.Fatalf("read schema_migrations: %v", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		log.Fatalf("read schema_migrations: %v", err)
	}
	done := make(map[string]bool, len(versions))
	for _, v := range versions {
		done[v] = true
	}
	return done
}

// runUp applies each pending file in its own transaction.
func runUp(ctx context.Context, pool *pgxpool.Pool) {
	done := applied(ctx, pool)
	count := 0
	for _, f := range migrationFiles() {
		version := filepath.Base(f)
		if done[version] {
			continue
		}

		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		})
		if err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}
		fmt.Printf("OK  %s\n", version)
		count++
	}
	log.Printf("%d migrations applied", count)
}

// runDown drops every table created by the up migrations. Extensions are kept.
func runDown(ctx context.Context, pool *pgxpool.Pool) {
	for _, table := range []string{"venue_candidates", "events", "venues"} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			log.Fatalf("drop %s: %v", table, err)
		}
		fmt.Printf("DROP %s\n", table)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM schema_migrations`); err != nil {
		log.Fatalf("reset schema_migrations: %v", err)
	}
	log.Println("all tables dropped")
}

func runStatus(ctx context.Context, pool *pgxpool.Pool) {
	done := applied(ctx, pool)
	for _, f := range migrationFiles() {
		state := "pending"
		if done[filepath.Base(f)] {
			state = "applied"
		}
		fmt.Printf("%-8s %s\n", state, filepath.Base(f))
	}
}
