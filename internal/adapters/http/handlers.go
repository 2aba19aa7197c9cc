package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

// queryFloat parses a float query parameter. ok is false when it is absent.
func queryFloat(c *fiber.Ctx, name string) (value float64, ok bool, err error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a number", name)
	}
	return value, true, nil
}

// centerParams reads lat/lon. When required is false both may be omitted,
// which yields the zero "no location" coordinate.
func centerParams(c *fiber.Ctx, required bool) (domain.Coordinate, error) {
	lat, hasLat, err := queryFloat(c, "lat")
	if err != nil {
		return domain.Coordinate{}, err
	}
	lon, hasLon, err := queryFloat(c, "lon")
	if err != nil {
		return domain.Coordinate{}, err
	}
	if !hasLat && !hasLon && !required {
		return domain.Coordinate{}, nil
	}
	if !hasLat || !hasLon {
		return domain.Coordinate{}, errors.New("lat and lon are required together")
	}
	center := domain.Coordinate{Lat: lat, Lon: lon}
	if !center.Valid() {
		return domain.Coordinate{}, domain.ErrInvalidCoordinate
	}
	return center, nil
}

// SearchVenuesHandler runs a dual-source venue search.
// GET /v1/venues/search?q=...&lat=...&lon=...&limit=...
func SearchVenuesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if strings.TrimSpace(query) == "" {
			return errBadRequest(c, "q is required")
		}
		center, err := centerParams(c, false)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		set, err := deps.Search.Search(c.UserContext(), query, center, c.QueryInt("limit", 0))
		switch {
		case errors.Is(err, domain.ErrEmptyQuery):
			return errBadRequest(c, err.Error())
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return err
		case err != nil:
			LoggerFromCtx(c.UserContext()).Error("venue search failed", "query", query, "error", err)
			return errInternal(c, "venue search failed")
		}

		if set.Degraded {
			c.Set("X-Search-Degraded", "true")
		}
		return c.JSON(set)
	}
}

// NearbyVenuesHandler lists internal venues around a point.
// GET /v1/venues/nearby?lat=...&lon=...&radius=...&limit=...
func NearbyVenuesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, err := centerParams(c, true)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius, hasRadius, err := queryFloat(c, "radius")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if !hasRadius {
			radius = 1000
		}

		venues, err := deps.Venues.FindNearby(c.UserContext(), center, radius, c.QueryInt("limit", 20))
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCoordinate) {
				return errBadRequest(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		if venues == nil {
			venues = []domain.InternalVenue{}
		}
		return c.JSON(venues)
	}
}

// GetVenueHandler returns one internal venue.
// GET /v1/venues/:id
func GetVenueHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		venue, err := deps.Venues.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "venue not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(venue)
	}
}

// ListMarkersHandler returns the live markers, ordered by location key.
// GET /v1/markers?offset=...&limit=...
func ListMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c)
		page, pg := paginate(deps.Markers.Markers(), offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// RefreshMarkersHandler reloads upcoming events and queues a reconciliation.
// POST /v1/markers/refresh
func RefreshMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Markers.Refresh(c.UserContext()); err != nil {
			LoggerFromCtx(c.UserContext()).Error("marker refresh failed", "error", err)
			return errInternal(c, "marker refresh failed")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
	}
}

// boundsParams reads min_lat, min_lon, max_lat and max_lon. All four are required.
func boundsParams(c *fiber.Ctx) (domain.Bounds, error) {
	var vals [4]float64
	for i, name := range []string{"min_lat", "min_lon", "max_lat", "max_lon"} {
		v, ok, err := queryFloat(c, name)
		if err != nil {
			return domain.Bounds{}, err
		}
		if !ok {
			return domain.Bounds{}, fmt.Errorf("%s is required", name)
		}
		vals[i] = v
	}
	b := domain.Bounds{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}
	if !b.Valid() {
		return domain.Bounds{}, errors.New("invalid bounds")
	}
	return b, nil
}

// ClustersHandler aggregates live markers for a viewport.
// GET /v1/clusters?min_lat=...&min_lon=...&max_lat=...&max_lon=...&zoom=...
func ClustersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bounds, err := boundsParams(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		zoom := c.QueryInt("zoom", 12)
		if zoom < 0 || zoom > 22 {
			return errBadRequest(c, "zoom must be between 0 and 22")
		}
		return c.JSON(deps.Clusters.Clusters(bounds, zoom))
	}
}

type harvestRequest struct {
	Query string   `json:"query"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
}

// StartHarvestHandler starts a background venue harvest.
// POST /v1/harvests {"query": "...", "lat": 0, "lon": 0}
func StartHarvestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Harvests == nil {
			return errUnavailable(c, "harvests are not enabled")
		}

		var req harvestRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if strings.TrimSpace(req.Query) == "" {
			return errBadRequest(c, "query is required")
		}
		var center domain.Coordinate
		if req.Lat != nil && req.Lon != nil {
			center = domain.Coordinate{Lat: *req.Lat, Lon: *req.Lon}
			if !center.Valid() {
				return errBadRequest(c, domain.ErrInvalidCoordinate.Error())
			}
		}

		runID, err := deps.Harvests.StartHarvest(c.UserContext(), req.Query, center)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("start harvest failed", "query", req.Query, "error", err)
			return errInternal(c, "could not start harvest")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"workflow_id": runID})
	}
}
