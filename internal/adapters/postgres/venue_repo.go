package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

// venueColumns selects a venue row. Venues without a location scan as the
// (0,0) placeholder.
const venueColumns = `
	v.id, v.name, v.name_variants, COALESCE(v.address, ''),
	COALESCE(ST_Y(v.location::geometry), 0) AS lat,
	COALESCE(ST_X(v.location::geometry), 0) AS lon,
	COALESCE(v.external_id, ''), v.verified`

// VenueRepo implements ports.VenueRepository with pgx.
type VenueRepo struct {
	db *DB
}

// NewVenueRepo creates a new VenueRepo.
func NewVenueRepo(db *DB) *VenueRepo {
	return &VenueRepo{db: db}
}

func scanVenue(row pgx.Row, extra ...any) (domain.InternalVenue, error) {
	var v domain.InternalVenue
	dest := append([]any{
		&v.ID, &v.Name, &v.NameVariants, &v.Address,
		&v.Coordinate.Lat, &v.Coordinate.Lon,
		&v.ExternalID, &v.Verified,
	}, extra...)
	err := row.Scan(dest...)
	return v, err
}

// SearchInternal performs trigram search over venue names and name variants.
func (r *VenueRepo) SearchInternal(ctx context.Context, query string, limit int) ([]domain.InternalVenue, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+venueColumns+`,
		       GREATEST(similarity(v.name, $1),
		                COALESCE((SELECT max(similarity(nv, $1)) FROM unnest(v.name_variants) nv), 0)) AS sim
		FROM venues v
		WHERE v.name % $1
		   OR v.name ILIKE '%' || $1 || '%'
		   OR EXISTS (SELECT 1 FROM unnest(v.name_variants) nv WHERE nv % $1 OR nv ILIKE '%' || $1 || '%')
		ORDER BY sim DESC, v.name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []domain.InternalVenue
	for rows.Next() {
		var sim float64
		v, err := scanVenue(rows, &sim)
		if err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// GetByID returns a venue by UUID.
func (r *VenueRepo) GetByID(ctx context.Context, id string) (*domain.InternalVenue, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues v WHERE v.id = $1`, id)
	v, err := scanVenue(row)
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

// FindNearby returns venues within radiusMeters using PostGIS ST_DWithin.
func (r *VenueRepo) FindNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.InternalVenue, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+venueColumns+`,
		       ST_Distance(v.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance
		FROM venues v
		WHERE ST_DWithin(v.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, center.Lon, center.Lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []domain.InternalVenue
	for rows.Next() {
		var dist float64
		v, err := scanVenue(rows, &dist)
		if err != nil {
			return nil, err
		}
		v.Distance = &dist
		venues = append(venues, v)
	}
	return venues, rows.Err()
}
