package cluster_test

import (
	"context"
	"math"
	"testing"

	"github.com/samirrijal/gigmap/internal/adapters/cluster"
	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/ports"
)

var _ ports.ClusterLayer = (*cluster.Layer)(nil)

var london = domain.Bounds{MinLat: 51.2, MinLon: -0.6, MaxLat: 51.8, MaxLon: 0.4}

func members() []domain.ClusterMember {
	return []domain.ClusterMember{
		{Handle: "garage", Coordinate: domain.Coordinate{Lat: 51.5465, Lon: -0.1058}, EventCount: 3},
		{Handle: "chapel", Coordinate: domain.Coordinate{Lat: 51.5440, Lon: -0.1030}, EventCount: 1},
		{Handle: "brixton", Coordinate: domain.Coordinate{Lat: 51.4650, Lon: -0.1150}, EventCount: 2},
		{Handle: "paris", Coordinate: domain.Coordinate{Lat: 48.8566, Lon: 2.3522}, EventCount: 5},
	}
}

func TestLayer_LowZoomAggregates(t *testing.T) {
	l := cluster.NewLayer()
	if err := l.SetMarkers(context.Background(), members()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clusters := l.Clusters(london, 5)
	if len(clusters) != 1 {
		t.Fatalf("expected one London cluster at zoom 5, got %+v", clusters)
	}
	c := clusters[0]
	if c.MarkerCount != 3 || c.EventCount != 6 {
		t.Errorf("expected 3 markers / 6 events, got %d / %d", c.MarkerCount, c.EventCount)
	}
	if c.Handles[0] != "brixton" || c.Handles[2] != "garage" {
		t.Errorf("expected sorted handles, got %v", c.Handles)
	}
	wantLat := (51.5465 + 51.5440 + 51.4650) / 3
	if math.Abs(c.Center.Lat-wantLat) > 1e-9 {
		t.Errorf("expected centroid lat %v, got %v", wantLat, c.Center.Lat)
	}
}

func TestLayer_MidZoomSplits(t *testing.T) {
	l := cluster.NewLayer()
	_ = l.SetMarkers(context.Background(), members())

	clusters := l.Clusters(london, 12)
	if len(clusters) != 2 {
		t.Fatalf("expected Highbury and Brixton clusters at zoom 12, got %+v", clusters)
	}
	total := 0
	for _, c := range clusters {
		total += c.MarkerCount
	}
	if total != 3 {
		t.Errorf("expected 3 markers across clusters, got %d", total)
	}
}

func TestLayer_HighZoomNeverMerges(t *testing.T) {
	l := cluster.NewLayer()
	_ = l.SetMarkers(context.Background(), members())

	clusters := l.Clusters(london, cluster.MaxClusterZoom)
	if len(clusters) != 3 {
		t.Fatalf("expected one cluster per marker, got %d", len(clusters))
	}
	for _, c := range clusters {
		if c.MarkerCount != 1 || len(c.Handles) != 1 {
			t.Errorf("expected singleton cluster, got %+v", c)
		}
	}
}

func TestLayer_SetMarkersReplaces(t *testing.T) {
	l := cluster.NewLayer()
	ms := members()
	_ = l.SetMarkers(context.Background(), ms)
	_ = l.SetMarkers(context.Background(), nil)

	if l.Len() != 0 {
		t.Errorf("expected empty layer, got %d", l.Len())
	}
	ms[0].Handle = "mutated"
	if got := l.Clusters(london, 5); len(got) != 0 {
		t.Errorf("expected no clusters, got %+v", got)
	}
}
