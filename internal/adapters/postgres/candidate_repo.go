package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

// CandidateRepo implements ports.CandidateRepository with pgx.
type CandidateRepo struct {
	db *DB
}

// NewCandidateRepo creates a new CandidateRepo.
func NewCandidateRepo(db *DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

// SaveCandidates queues external candidates for moderation using pgx.Batch.
// Candidates already queued are skipped. It returns how many rows were new.
func (r *CandidateRepo) SaveCandidates(ctx context.Context, candidates []domain.ExternalCandidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, c := range candidates {
		var lat, lon *float64
		if c.Coordinate.Valid() {
			lat, lon = &c.Coordinate.Lat, &c.Coordinate.Lon
		}
		batch.Queue(`
			INSERT INTO venue_candidates (external_id, name, address, location)
			VALUES ($1, $2, NULLIF($3, ''),
			        CASE WHEN $4::float8 IS NULL THEN NULL
			             ELSE ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography END)
			ON CONFLICT (external_id) DO NOTHING
		`, c.ExternalID, c.Name, c.Address, lon, lat)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range candidates {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("batch exec: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
