package workflows_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/workflows"
)

var (
	garage = domain.InternalVenue{
		ID: "v1", Name: "The Garage", ExternalID: "node/42",
		Coordinate: domain.Coordinate{Lat: 51.5465, Lon: -0.1058},
	}
	garageExternal = domain.ExternalCandidate{
		ExternalID: "node/42", Name: "The Garage",
		Coordinate: domain.Coordinate{Lat: 51.5465, Lon: -0.1058},
	}
	chapel = domain.ExternalCandidate{
		ExternalID: "way/7", Name: "Union Chapel",
		Coordinate: domain.Coordinate{Lat: 51.5440, Lon: -0.1030},
	}
)

func newEnv(t *testing.T) (*testsuite.TestWorkflowEnvironment, *workflows.HarvestActivities) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &workflows.HarvestActivities{}
	env.RegisterActivity(acts)
	return env, acts
}

func TestHarvestWorkflow_SavesNonDuplicates(t *testing.T) {
	env, acts := newEnv(t)
	center := domain.Coordinate{Lat: 51.54, Lon: -0.10}

	env.OnActivity(acts.SearchInternal, mock.Anything, "garage", 50).
		Return([]domain.InternalVenue{garage}, nil)
	env.OnActivity(acts.SearchExternal, mock.Anything, "garage", center).
		Return([]domain.ExternalCandidate{garageExternal, chapel}, nil)
	env.OnActivity(acts.SaveCandidates, mock.Anything, []domain.ExternalCandidate{chapel}).
		Return(1, nil)

	env.ExecuteWorkflow(workflows.HarvestWorkflow, workflows.HarvestInput{Query: "garage", Center: center})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected workflow error: %v", err)
	}
	var res workflows.HarvestResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatal(err)
	}
	want := workflows.HarvestResult{Internal: 1, External: 1, Duplicates: 1, Saved: 1}
	if res != want {
		t.Errorf("got %+v, want %+v", res, want)
	}
	env.AssertExpectations(t)
}

func TestHarvestWorkflow_ExternalFailureDegrades(t *testing.T) {
	env, acts := newEnv(t)

	env.OnActivity(acts.SearchInternal, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.InternalVenue{garage}, nil)
	env.OnActivity(acts.SearchExternal, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("provider down"))

	env.ExecuteWorkflow(workflows.HarvestWorkflow, workflows.HarvestInput{Query: "garage"})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("external failure must not fail the workflow: %v", err)
	}
	var res workflows.HarvestResult
	_ = env.GetWorkflowResult(&res)
	if !res.Degraded || res.Internal != 1 || res.Saved != 0 {
		t.Errorf("expected degraded run with internal venues only, got %+v", res)
	}
	env.AssertNotCalled(t, workflows.ActivitySaveCandidates, mock.Anything, mock.Anything)
}

func TestHarvestWorkflow_InternalFailureFails(t *testing.T) {
	env, acts := newEnv(t)

	env.OnActivity(acts.SearchInternal, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("db down"))

	env.ExecuteWorkflow(workflows.HarvestWorkflow, workflows.HarvestInput{Query: "garage"})

	if env.GetWorkflowError() == nil {
		t.Fatal("expected workflow error")
	}
}

func TestStarter_StartHarvest(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("harvest-abc")
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(run, nil)

	id, err := workflows.NewStarter(c, "gigmap-harvest").StartHarvest(t.Context(), "garage", domain.Coordinate{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "harvest-abc" {
		t.Errorf("unexpected id %q", id)
	}
	c.AssertExpectations(t)
}
