package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/browser/browsertest"
	"github.com/testforge/pomsuite/internal/config"
	"github.com/testforge/pomsuite/internal/domain"
	"github.com/testforge/pomsuite/internal/suite"
)

func newTestHarness(t *testing.T, launcher browser.Launcher) *suite.Harness {
	t.Helper()
	dir := t.TempDir()
	props := filepath.Join(dir, "config.properties")
	require.NoError(t, os.WriteFile(props, []byte(
		"browser=chrome\nurl=http://fixture.test/login\nusername=tomsmith\npassword=SuperSecretPassword!\n"), 0644))

	disabled := false
	cfg := &config.Config{
		Suite:    config.SuiteConfig{PropertiesPath: props, ScreenshotDir: filepath.Join(dir, "screenshots")},
		Timeouts: config.TimeoutConfig{Medium: 200 * time.Millisecond, Poll: 5 * time.Millisecond},
		Healing:  config.HealingConfig{Enabled: &disabled, Backend: config.HealingBackendMemory},
	}

	h, err := suite.NewHarness(cfg, launcher, suite.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func siteLauncher() browser.Launcher {
	return browser.LauncherFunc(func(ctx context.Context, opts browser.LaunchOptions) (browser.Driver, error) {
		return browsertest.NewSite("tomsmith", "SuperSecretPassword!"), nil
	})
}

func newWorkflowEnv(t *testing.T, acts *Activities) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(SuiteWorkflow, workflow.RegisterOptions{Name: SuiteWorkflowName})
	env.RegisterActivityWithOptions(acts.RunScenario, activity.RegisterOptions{Name: RunScenarioActivityName})
	return env
}

func TestSuiteWorkflow_RunsSelectedScenarios(t *testing.T) {
	acts := NewActivities(newTestHarness(t, siteLauncher()), nil, nil)
	env := newWorkflowEnv(t, acts)

	env.ExecuteWorkflow(SuiteWorkflowName, SuiteInput{RunID: "run-1", Filters: []string{suite.GroupLogin, suite.GroupHome}})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out SuiteOutput
	require.NoError(t, env.GetWorkflowResult(&out))

	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, StatusPassed, out.Status)
	assert.Equal(t, 7, out.Summary.Total)
	assert.Equal(t, 7, out.Summary.Passed)
	assert.Equal(t, "run-1", out.Summary.RunID)
	require.Len(t, out.Results, 7)
	assert.Equal(t, "ValidLogin", out.Results[0].Name)
}

func TestSuiteWorkflow_ReportsFailures(t *testing.T) {
	acts := NewActivities(newTestHarness(t, siteLauncher()), nil, nil)
	env := newWorkflowEnv(t, acts)

	env.OnActivity(RunScenarioActivityName, mock.Anything, ScenarioInput{RunID: "run-2", Name: "PageTitle"}).
		Return(&suite.Result{Name: "PageTitle", Group: suite.GroupHome, Status: suite.StatusFailed, Error: "Page title is empty"}, nil)

	env.ExecuteWorkflow(SuiteWorkflowName, SuiteInput{RunID: "run-2", Filters: []string{"PageTitle"}})
	require.NoError(t, env.GetWorkflowError())

	var out SuiteOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 1, out.Summary.Failed)
	assert.Equal(t, 0, out.Summary.Passed)
	assert.Equal(t, "Page title is empty", out.Results[0].Error)
}

func TestSuiteWorkflow_AbortsWhenBrowserUnavailable(t *testing.T) {
	failing := browser.LauncherFunc(func(ctx context.Context, opts browser.LaunchOptions) (browser.Driver, error) {
		return nil, errors.New("browser binary missing")
	})
	acts := NewActivities(newTestHarness(t, failing), nil, nil)
	env := newWorkflowEnv(t, acts)

	env.ExecuteWorkflow(SuiteWorkflowName, SuiteInput{RunID: "run-3", Filters: []string{suite.GroupLogin}})
	require.NoError(t, env.GetWorkflowError())

	var out SuiteOutput
	require.NoError(t, env.GetWorkflowResult(&out))

	require.Len(t, out.Results, 4)
	assert.Equal(t, suite.StatusFailed, out.Results[0].Status)
	assert.Equal(t, domain.ErrCodeDriverUnavailable, out.Results[0].ErrorCode)
	for _, r := range out.Results[1:] {
		assert.Equal(t, suite.StatusSkipped, r.Status)
	}
	assert.Contains(t, out.Error, "browser unavailable")
	assert.Equal(t, StatusFailed, out.Status)
}

func TestSuiteWorkflow_ActivityErrorBecomesFailedResult(t *testing.T) {
	acts := NewActivities(newTestHarness(t, siteLauncher()), nil, nil)
	env := newWorkflowEnv(t, acts)

	env.OnActivity(RunScenarioActivityName, mock.Anything, mock.Anything).
		Return(nil, errors.New("worker lost"))

	env.ExecuteWorkflow(SuiteWorkflowName, SuiteInput{RunID: "run-4", Filters: []string{"PageTitle"}})
	require.NoError(t, env.GetWorkflowError())

	var out SuiteOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, suite.StatusFailed, out.Results[0].Status)
	assert.Contains(t, out.Results[0].Error, "worker lost")
}

func TestSuiteWorkflow_UnknownFilter(t *testing.T) {
	acts := NewActivities(newTestHarness(t, siteLauncher()), nil, nil)
	env := newWorkflowEnv(t, acts)

	env.ExecuteWorkflow(SuiteWorkflowName, SuiteInput{RunID: "run-5", Filters: []string{"nope"}})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}

func TestRunScenarioActivity(t *testing.T) {
	acts := NewActivities(newTestHarness(t, siteLauncher()), nil, nil)

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivityWithOptions(acts.RunScenario, activity.RegisterOptions{Name: RunScenarioActivityName})

	val, err := env.ExecuteActivity(RunScenarioActivityName, ScenarioInput{RunID: "run-6", Name: "ValidLogin"})
	require.NoError(t, err)

	var res suite.Result
	require.NoError(t, val.Get(&res))
	assert.Equal(t, suite.StatusPassed, res.Status)

	_, err = env.ExecuteActivity(RunScenarioActivityName, ScenarioInput{RunID: "run-6", Name: "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scenario")
}
