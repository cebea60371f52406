package workflows

import (
	"context"
	"fmt"
	"sync"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/observability"
	"github.com/testforge/pomsuite/internal/suite"
)

// Activities runs scenarios on a worker's harness
type Activities struct {
	runner  *suite.Runner
	logger  *zap.Logger
	metrics *observability.Metrics

	// The harness owns one browser session at a time
	mu sync.Mutex
}

// NewActivities creates the scenario activities
func NewActivities(h *suite.Harness, logger *zap.Logger, metrics *observability.Metrics) *Activities {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activities{
		runner:  suite.NewRunner(h, suite.WithRunnerLogger(logger), suite.WithRunnerMetrics(metrics)),
		logger:  logger,
		metrics: metrics,
	}
}

// RunScenario runs one catalogued scenario. A failing scenario is a normal
// result; only an unknown name is an activity error.
func (a *Activities) RunScenario(ctx context.Context, input ScenarioInput) (*suite.Result, error) {
	sc, ok := suite.Lookup(input.Name)
	if !ok {
		a.metrics.RecordActivityExecution(RunScenarioActivityName, "invalid")
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown scenario %q", input.Name), "UnknownScenario", nil)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("Running scenario",
		zap.String("run_id", input.RunID),
		zap.String("scenario", sc.Name),
		zap.String("workflow_id", activity.GetInfo(ctx).WorkflowExecution.ID),
	)

	res, _ := a.runner.RunOne(ctx, sc)
	a.metrics.RecordActivityExecution(RunScenarioActivityName, string(res.Status))
	return &res, nil
}

// Register adds the suite workflow and its activities to w
func (a *Activities) Register(w worker.Registry) {
	w.RegisterWorkflowWithOptions(SuiteWorkflow, workflow.RegisterOptions{Name: SuiteWorkflowName})
	w.RegisterActivityWithOptions(a.RunScenario, activity.RegisterOptions{Name: RunScenarioActivityName})
}
