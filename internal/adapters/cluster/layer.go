package cluster

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

const (
	// ZoomOffset is how many levels finer than the viewport the grouping grid is.
	ZoomOffset = 3
	// MaxClusterZoom is the viewport zoom from which markers are never merged.
	MaxClusterZoom = 17
	maxZoom        = 22
)

// Layer implements ports.ClusterLayer. It keeps the live marker set and
// aggregates it per web-mercator tile on request.
type Layer struct {
	mu      sync.RWMutex
	members []domain.ClusterMember
}

// NewLayer creates an empty Layer.
func NewLayer() *Layer {
	return &Layer{}
}

// SetMarkers replaces the live marker set.
func (l *Layer) SetMarkers(ctx context.Context, members []domain.ClusterMember) error {
	cp := append([]domain.ClusterMember(nil), members...)
	l.mu.Lock()
	l.members = cp
	l.mu.Unlock()
	return nil
}

// Len returns the number of markers in the layer.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.members)
}

// Clusters aggregates the markers inside bounds for a viewport at zoom.
// Clusters are ordered by key, handles within a cluster by handle.
func (l *Layer) Clusters(bounds domain.Bounds, zoom int) []domain.Cluster {
	if zoom < 0 {
		zoom = 0
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	box := orb.Bound{
		Min: orb.Point{bounds.MinLon, bounds.MinLat},
		Max: orb.Point{bounds.MaxLon, bounds.MaxLat},
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	type bucket struct {
		points orb.MultiPoint
		c      domain.Cluster
	}
	buckets := make(map[string]*bucket)

	for _, m := range l.members {
		p := orb.Point{m.Coordinate.Lon, m.Coordinate.Lat}
		if !box.Contains(p) {
			continue
		}

		key := "m:" + string(m.Handle)
		if zoom < MaxClusterZoom {
			t := maptile.At(p, maptile.Zoom(zoom+ZoomOffset))
			key = fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{c: domain.Cluster{Key: key}}
			buckets[key] = b
		}
		b.points = append(b.points, p)
		b.c.MarkerCount++
		b.c.EventCount += m.EventCount
		b.c.Handles = append(b.c.Handles, m.Handle)
	}

	out := make([]domain.Cluster, 0, len(buckets))
	for _, b := range buckets {
		center, _ := planar.CentroidArea(b.points)
		b.c.Center = domain.Coordinate{Lat: center.Lat(), Lon: center.Lon()}
		sort.Slice(b.c.Handles, func(i, j int) bool { return b.c.Handles[i] < b.c.Handles[j] })
		out = append(out, b.c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
