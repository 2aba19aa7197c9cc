package postgres

import (
	"context"
	"time"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

// EventRepo implements ports.EventRepository with pgx.
type EventRepo struct {
	db *DB
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

// ListUpcoming returns events starting at or after from. An event without
// its own location takes its venue's.
func (r *EventRepo) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]domain.GeoEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT e.id,
		       COALESCE(ST_Y(COALESCE(e.location, v.location)::geometry), 0) AS lat,
		       COALESCE(ST_X(COALESCE(e.location, v.location)::geometry), 0) AS lon,
		       e.starts_at,
		       COALESCE(e.venue_id::text, ''),
		       e.artist_ids
		FROM events e
		LEFT JOIN venues v ON v.id = e.venue_id
		WHERE e.starts_at >= $1
		ORDER BY e.starts_at, e.id
		LIMIT $2
	`, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.GeoEvent
	for rows.Next() {
		var e domain.GeoEvent
		if err := rows.Scan(
			&e.ID, &e.Coordinate.Lat, &e.Coordinate.Lon,
			&e.StartDateTime, &e.VenueRef, &e.ArtistRefs,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
