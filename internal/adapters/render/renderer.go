package render

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/ports"
)

// Marker command ops.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDestroy = "destroy"
)

// Renderer implements ports.MarkerRenderer and ports.MarkerUpdater by
// publishing marker commands that map clients apply.
type Renderer struct {
	publisher ports.EventPublisher
	now       func() time.Time
}

// New creates a Renderer publishing through publisher.
func New(publisher ports.EventPublisher) *Renderer {
	return &Renderer{publisher: publisher, now: time.Now}
}

// CreateMarker allocates a new handle and announces the marker.
func (r *Renderer) CreateMarker(ctx context.Context, coord domain.Coordinate, label string) (domain.MarkerHandle, error) {
	handle := domain.MarkerHandle(uuid.NewString())
	err := r.publish(ctx, domain.MarkerCommand{
		Op:          OpCreate,
		Handle:      handle,
		LocationKey: coord.LocationKey(),
		Coordinate:  &coord,
		Label:       label,
	})
	if err != nil {
		return "", err
	}
	return handle, nil
}

// UpdateMarker relabels an existing marker in place.
func (r *Renderer) UpdateMarker(ctx context.Context, handle domain.MarkerHandle, label string) error {
	return r.publish(ctx, domain.MarkerCommand{Op: OpUpdate, Handle: handle, Label: label})
}

// DestroyMarker removes a marker.
func (r *Renderer) DestroyMarker(ctx context.Context, handle domain.MarkerHandle) error {
	return r.publish(ctx, domain.MarkerCommand{Op: OpDestroy, Handle: handle})
}

func (r *Renderer) publish(ctx context.Context, cmd domain.MarkerCommand) error {
	cmd.SentAt = r.now().UTC()
	if err := r.publisher.PublishMarkerCommand(ctx, cmd); err != nil {
		return fmt.Errorf("publish %s marker command: %w", cmd.Op, err)
	}
	return nil
}
