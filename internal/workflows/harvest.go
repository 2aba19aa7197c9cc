package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/usecases"
)

// HarvestInput is the input for the harvest workflow.
type HarvestInput struct {
	Query  string
	Center domain.Coordinate
	Limit  int
}

// HarvestResult summarises one harvest run.
type HarvestResult struct {
	Internal   int
	External   int
	Duplicates int
	Saved      int
	Degraded   bool
}

// HarvestWorkflow searches both venue sources, drops external candidates
// that duplicate an internal venue and queues the rest for moderation. A
// failing external provider degrades the run to zero candidates.
func HarvestWorkflow(ctx workflow.Context, input HarvestInput) (HarvestResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting harvest workflow", "query", input.Query)

	limit := input.Limit
	if limit <= 0 || limit > usecases.MaxSearchLimit {
		limit = usecases.MaxSearchLimit
	}

	storeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	providerCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 2 * time.Second,
			MaximumAttempts: 2,
		},
	})

	var internal []domain.InternalVenue
	if err := workflow.ExecuteActivity(storeCtx, ActivitySearchInternal, input.Query, limit).Get(ctx, &internal); err != nil {
		return HarvestResult{}, err
	}

	var result HarvestResult
	var external []domain.ExternalCandidate
	if err := workflow.ExecuteActivity(providerCtx, ActivitySearchExternal, input.Query, input.Center).Get(ctx, &external); err != nil {
		logger.Warn("external search failed, harvesting nothing", "error", err)
		external = nil
		result.Degraded = true
	}

	set, dups := usecases.ResolveWithDuplicates(internal, external)
	result.Internal = len(set.InternalVenues)
	result.External = len(set.ExternalCandidates)
	result.Duplicates = len(dups)

	if len(set.ExternalCandidates) > 0 {
		if err := workflow.ExecuteActivity(storeCtx, ActivitySaveCandidates, set.ExternalCandidates).Get(ctx, &result.Saved); err != nil {
			return result, err
		}
	}

	logger.Info("Harvest finished",
		"internal", result.Internal, "external", result.External,
		"duplicates", result.Duplicates, "saved", result.Saved)
	return result, nil
}

// Starter starts harvest workflows. It implements ports.HarvestStarter.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a Starter submitting to taskQueue.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartHarvest starts a HarvestWorkflow and returns its workflow ID.
func (s *Starter) StartHarvest(ctx context.Context, query string, center domain.Coordinate) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:                       "harvest-" + uuid.NewString(),
		TaskQueue:                s.taskQueue,
		WorkflowExecutionTimeout: 10 * time.Minute,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, HarvestWorkflow, HarvestInput{Query: query, Center: center})
	if err != nil {
		return "", fmt.Errorf("start harvest workflow: %w", err)
	}
	return run.GetID(), nil
}
