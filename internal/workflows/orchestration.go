package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/testforge/pomsuite/internal/domain"
	"github.com/testforge/pomsuite/internal/suite"
)

// Activity names - must match registered activity names
const (
	RunScenarioActivityName = "RunScenarioActivity"
)

// SuiteWorkflowName is the registered workflow type
const SuiteWorkflowName = "SuiteWorkflow"

// DefaultScenarioTimeout applies when the input sets none
const DefaultScenarioTimeout = 5 * time.Minute

// SuiteWorkflow runs the selected scenarios one after another, each as an
// activity. A scenario that cannot get a browser aborts the rest of the run.
func SuiteWorkflow(ctx workflow.Context, input SuiteInput) (*SuiteOutput, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	output := &SuiteOutput{
		RunID:  input.RunID,
		Status: StatusPassed,
	}

	scenarios, err := suite.Select(input.Filters...)
	if err != nil {
		// Bad input will not improve on retry
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidInput", err)
	}

	logger.Info("Starting suite workflow",
		"run_id", input.RunID,
		"scenarios", len(scenarios),
	)

	timeout := input.ScenarioTimeout
	if timeout <= 0 {
		timeout = DefaultScenarioTimeout
	}
	actCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		// Scenario failures are results, not activity errors; retrying a
		// broken environment only repeats the failure
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var abort string
	for _, sc := range scenarios {
		if abort != "" {
			output.Results = append(output.Results, suite.Result{
				Name:      sc.Name,
				Group:     sc.Group,
				Status:    suite.StatusSkipped,
				StartedAt: workflow.Now(ctx),
				Error:     "run aborted: " + abort,
			})
			continue
		}

		var res suite.Result
		err := workflow.ExecuteActivity(actCtx, RunScenarioActivityName, ScenarioInput{
			RunID: input.RunID,
			Name:  sc.Name,
		}).Get(ctx, &res)
		if err != nil {
			logger.Error("Scenario activity failed", "scenario", sc.Name, "error", err)
			res = suite.Result{
				Name:      sc.Name,
				Group:     sc.Group,
				Status:    suite.StatusFailed,
				StartedAt: workflow.Now(ctx),
				Error:     fmt.Sprintf("activity failed: %v", err),
			}
		}

		if res.ErrorCode == domain.ErrCodeDriverUnavailable {
			abort = res.Error
			output.Error = fmt.Sprintf("browser unavailable: %s", res.Error)
		}

		logger.Info("Scenario finished",
			"scenario", res.Name,
			"status", string(res.Status),
			"healed", res.Healed,
		)
		output.Results = append(output.Results, res)
	}

	output.Summary = suite.Summarize(output.Results)
	output.Summary.RunID = input.RunID
	if !output.Summary.OK() {
		output.Status = StatusFailed
	}

	output.CompletedAt = workflow.Now(ctx)
	output.TotalDuration = output.CompletedAt.Sub(startTime)

	logger.Info("Suite workflow completed",
		"status", output.Status,
		"total", output.Summary.Total,
		"passed", output.Summary.Passed,
		"failed", output.Summary.Failed,
		"skipped", output.Summary.Skipped,
	)

	return output, nil
}
