package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/ports"
	"github.com/samirrijal/gigmap/internal/pkg/metrics"
)

// Registry is the table of live markers keyed by location key.
// It is owned by a single Reconciler caller and is not safe for concurrent use.
type Registry struct {
	records map[string]*domain.MarkerRecord
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*domain.MarkerRecord)}
}

// Len returns the number of live markers.
func (r *Registry) Len() int { return len(r.records) }

// Get returns a copy of the record for key.
func (r *Registry) Get(key string) (domain.MarkerRecord, bool) {
	rec, ok := r.records[key]
	if !ok {
		return domain.MarkerRecord{}, false
	}
	return *rec, true
}

// Records returns copies of all records ordered by location key.
func (r *Registry) Records() []domain.MarkerRecord {
	out := make([]domain.MarkerRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationKey < out[j].LocationKey })
	return out
}

func (r *Registry) insert(rec domain.MarkerRecord) error {
	if _, exists := r.records[rec.LocationKey]; exists {
		return fmt.Errorf("%w: duplicate location key %s", domain.ErrRegistryDesync, rec.LocationKey)
	}
	r.records[rec.LocationKey] = &rec
	return nil
}

func (r *Registry) remove(key string) {
	delete(r.records, key)
}

// matches reports whether the registry holds exactly the markers described
// by snapshot.
func (r *Registry) matches(snapshot map[string]domain.LocationGroup) bool {
	if len(r.records) != len(snapshot) {
		return false
	}
	for key, g := range snapshot {
		rec, ok := r.records[key]
		if !ok || rec.EventCount != len(g.Events) {
			return false
		}
	}
	return true
}

// ReconcileResult summarises one reconciliation cycle.
type ReconcileResult struct {
	// Applied is the snapshot actually rendered. Pass it as previous to the
	// next cycle. Keys whose marker could not be created are left out so the
	// next cycle retries them.
	Applied  map[string]domain.LocationGroup
	Created  int
	Updated  int
	Removed  int
	Failed   int
	Resynced bool
}

// Changed reports whether the live handle set may differ from the previous cycle.
func (r ReconcileResult) Changed() bool {
	return r.Created+r.Updated+r.Removed+r.Failed > 0 || r.Resynced
}

// Diff computes the marker operations turning prev into curr, ordered by
// location key. Groups whose event count is unchanged produce no op.
func Diff(prev, curr map[string]domain.LocationGroup) []domain.MarkerOp {
	var ops []domain.MarkerOp
	for key, g := range curr {
		old, ok := prev[key]
		switch {
		case !ok:
			ops = append(ops, domain.MarkerOp{Kind: domain.MarkerOpAdd, LocationKey: key, Group: g})
		case len(old.Events) != len(g.Events):
			ops = append(ops, domain.MarkerOp{Kind: domain.MarkerOpUpdate, LocationKey: key, Group: g})
		}
	}
	for key := range prev {
		if _, ok := curr[key]; !ok {
			ops = append(ops, domain.MarkerOp{Kind: domain.MarkerOpRemove, LocationKey: key})
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].LocationKey < ops[j].LocationKey })
	return ops
}

// Reconciler applies location group diffs to a marker registry through the
// rendering collaborator.
type Reconciler struct {
	renderer ports.MarkerRenderer
	updater  ports.MarkerUpdater // nil when the renderer cannot relabel in place
	clusters ports.ClusterLayer
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler. clusters may be nil.
func NewReconciler(renderer ports.MarkerRenderer, clusters ports.ClusterLayer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{renderer: renderer, clusters: clusters, logger: logger}
	if u, ok := renderer.(ports.MarkerUpdater); ok {
		r.updater = u
	}
	return r
}

// Reconcile brings reg in line with current, given that reg was last
// reconciled against previous. Renderer failures are logged and never
// returned. If reg does not reflect previous it is torn down and rebuilt
// from current.
func (r *Reconciler) Reconcile(ctx context.Context, previous, current map[string]domain.LocationGroup, reg *Registry) ReconcileResult {
	start := time.Now()
	defer func() { metrics.ReconcileDuration.Observe(time.Since(start).Seconds()) }()

	var res ReconcileResult
	if !reg.matches(previous) {
		r.logger.Error("marker registry out of sync, rebuilding",
			"error", domain.ErrRegistryDesync,
			"registry_size", reg.Len(),
			"snapshot_size", len(previous),
		)
		metrics.ReconcileResyncs.Inc()
		r.clear(ctx, reg, &res)
		previous = nil
		res.Resynced = true
	}

	for _, op := range Diff(previous, current) {
		switch op.Kind {
		case domain.MarkerOpAdd:
			if r.create(ctx, reg, op.Group) {
				res.Created++
			} else {
				res.Failed++
			}
		case domain.MarkerOpUpdate:
			if r.update(ctx, reg, op.Group) {
				res.Updated++
			} else {
				res.Failed++
			}
		case domain.MarkerOpRemove:
			r.destroy(ctx, reg, op.LocationKey)
			res.Removed++
		}
	}

	res.Applied = make(map[string]domain.LocationGroup, reg.Len())
	for key, g := range current {
		if _, ok := reg.records[key]; ok {
			res.Applied[key] = g
		}
	}

	metrics.MarkersLive.Set(float64(reg.Len()))
	if res.Changed() {
		r.publishClusters(ctx, reg)
	}
	return res
}

func (r *Reconciler) create(ctx context.Context, reg *Registry, g domain.LocationGroup) bool {
	count := len(g.Events)
	handle, err := r.renderer.CreateMarker(ctx, g.Coordinate, label(count))
	if err != nil {
		r.logger.Warn("create marker failed", "location_key", g.LocationKey, "error", err)
		metrics.MarkerOps.WithLabelValues("failed").Inc()
		return false
	}
	rec := domain.MarkerRecord{
		LocationKey:         g.LocationKey,
		Coordinate:          g.Coordinate,
		Handle:              handle,
		EventCount:          count,
		RepresentativeEvent: g.Events[0],
	}
	if err := reg.insert(rec); err != nil {
		r.logger.Error("register marker failed", "location_key", g.LocationKey, "error", err)
		_ = r.renderer.DestroyMarker(ctx, handle)
		metrics.MarkerOps.WithLabelValues("failed").Inc()
		return false
	}
	metrics.MarkerOps.WithLabelValues("create").Inc()
	return true
}

func (r *Reconciler) update(ctx context.Context, reg *Registry, g domain.LocationGroup) bool {
	rec := reg.records[g.LocationKey]
	count := len(g.Events)

	if r.updater != nil {
		err := r.updater.UpdateMarker(ctx, rec.Handle, label(count))
		if err == nil {
			rec.EventCount = count
			rec.RepresentativeEvent = g.Events[0]
			metrics.MarkerOps.WithLabelValues("update").Inc()
			return true
		}
		r.logger.Warn("update marker failed, replacing", "location_key", g.LocationKey, "error", err)
	}

	r.destroy(ctx, reg, g.LocationKey)
	return r.create(ctx, reg, g)
}

// destroy removes key from reg even when the renderer fails to destroy it.
func (r *Reconciler) destroy(ctx context.Context, reg *Registry, key string) {
	rec, ok := reg.records[key]
	if !ok {
		return
	}
	if err := r.renderer.DestroyMarker(ctx, rec.Handle); err != nil {
		r.logger.Warn("destroy marker failed", "location_key", key, "handle", rec.Handle, "error", err)
		metrics.MarkerOps.WithLabelValues("failed").Inc()
	} else {
		metrics.MarkerOps.WithLabelValues("destroy").Inc()
	}
	reg.remove(key)
}

func (r *Reconciler) clear(ctx context.Context, reg *Registry, res *ReconcileResult) {
	for _, rec := range reg.Records() {
		r.destroy(ctx, reg, rec.LocationKey)
		res.Removed++
	}
}

// publishClusters hands the live handle set to the clustering layer. With a
// single marker or none the layer receives an empty set.
func (r *Reconciler) publishClusters(ctx context.Context, reg *Registry) {
	if r.clusters == nil {
		return
	}
	members := []domain.ClusterMember{}
	if reg.Len() > 1 {
		for _, rec := range reg.Records() {
			members = append(members, domain.ClusterMember{
				Handle:     rec.Handle,
				Coordinate: rec.Coordinate,
				EventCount: rec.EventCount,
			})
		}
	}
	if err := r.clusters.SetMarkers(ctx, members); err != nil {
		r.logger.Warn("update cluster layer failed", "markers", len(members), "error", err)
	}
}

func label(count int) string {
	return strconv.Itoa(count)
}
