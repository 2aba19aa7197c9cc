package usecases

import (
	"github.com/samirrijal/gigmap/internal/core/domain"
)

// Group buckets events by location key. Events without a usable coordinate
// are skipped. Within a group events keep their input order, and each group
// takes the coordinate of its first event.
func Group(events []domain.GeoEvent) map[string]domain.LocationGroup {
	groups := make(map[string]domain.LocationGroup)
	for _, e := range events {
		if !e.Coordinate.Valid() {
			continue
		}
		key := e.Coordinate.LocationKey()
		g, ok := groups[key]
		if !ok {
			g = domain.LocationGroup{LocationKey: key, Coordinate: e.Coordinate}
		}
		g.Events = append(g.Events, e)
		groups[key] = g
	}
	return groups
}
