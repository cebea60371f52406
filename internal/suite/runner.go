package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/domain"
	"github.com/testforge/pomsuite/internal/observability"
)

// Status is the outcome of one scenario
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result records one scenario run
type Result struct {
	Name       string        `json:"name"`
	Group      string        `json:"group"`
	Status     Status        `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	ErrorCode  string        `json:"error_code,omitempty"`
	Screenshot string        `json:"screenshot,omitempty"`
	Healed     int           `json:"healed"`
}

// Summary contains run statistics
type Summary struct {
	RunID    string        `json:"run_id,omitempty"`
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Healed   int           `json:"healed"`
	Duration time.Duration `json:"duration"`
	PassRate float64       `json:"pass_rate"`
}

// OK reports whether no scenario failed
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Summarize totals results. Skipped scenarios do not count toward the pass
// rate.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Total++
		s.Healed += r.Healed
		s.Duration += r.Duration
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	if ran := s.Passed + s.Failed; ran > 0 {
		s.PassRate = float64(s.Passed) / float64(ran) * 100
	}
	return s
}

// Runner executes scenarios one at a time, each with its own session
type Runner struct {
	harness  *Harness
	logger   *zap.Logger
	metrics  *observability.Metrics
	onResult func(Result)
	now      func() time.Time
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger
func WithRunnerLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRunnerMetrics sets the metrics recorder
func WithRunnerMetrics(m *observability.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// OnResult registers a callback invoked after every scenario
func OnResult(fn func(Result)) RunnerOption {
	return func(r *Runner) { r.onResult = fn }
}

// NewRunner creates a runner on harness
func NewRunner(h *Harness, opts ...RunnerOption) *Runner {
	r := &Runner{
		harness: h,
		logger:  h.logger,
		metrics: h.metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes scenarios in order. A fatal environment error (no browser)
// aborts the run; the remaining scenarios are recorded as skipped.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) []Result {
	runID := uuid.New().String()
	logger := r.logger.With(zap.String("run_id", runID))
	logger.Info("Starting suite run", zap.Int("scenarios", len(scenarios)))

	results := make([]Result, 0, len(scenarios))
	var abort error

	for _, sc := range scenarios {
		var res Result
		switch {
		case abort != nil:
			res = Result{
				Name:      sc.Name,
				Group:     sc.Group,
				Status:    StatusSkipped,
				StartedAt: r.now(),
				Error:     fmt.Sprintf("run aborted: %v", abort),
			}
		case ctx.Err() != nil:
			res = Result{
				Name:      sc.Name,
				Group:     sc.Group,
				Status:    StatusSkipped,
				StartedAt: r.now(),
				Error:     fmt.Sprintf("run cancelled: %v", ctx.Err()),
			}
		default:
			var err error
			res, err = r.RunOne(ctx, sc)
			if domain.IsFatal(err) {
				abort = err
				logger.Error("Aborting suite run", zap.String("scenario", sc.Name), zap.Error(err))
			}
		}

		results = append(results, res)
		if r.onResult != nil {
			r.onResult(res)
		}
	}

	summary := Summarize(results)
	status := "passed"
	if !summary.OK() {
		status = "failed"
	}
	r.metrics.RecordSuiteRun(status)

	logger.Info("Suite run complete",
		zap.Int("total", summary.Total),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("healed", summary.Healed),
	)
	return results
}

// RunOne executes a single scenario between Setup and Teardown. The
// returned error is the scenario's failure cause, already reflected in the
// result.
func (r *Runner) RunOne(ctx context.Context, sc Scenario) (Result, error) {
	start := r.now()
	res := Result{Name: sc.Name, Group: sc.Group, StartedAt: start}

	env, err := r.harness.Setup(ctx)
	if err == nil {
		err = runScenario(ctx, sc, env)
	}

	switch {
	case err == nil:
		res.Status = StatusPassed
	case errors.Is(err, ErrSkipped):
		res.Status = StatusSkipped
		res.Error = err.Error()
	default:
		res.Status = StatusFailed
		res.Error = err.Error()
		res.ErrorCode = domain.GetErrorCode(err)
	}

	if terr := r.harness.Teardown(ctx, env, &res); terr != nil {
		r.logger.Warn("Teardown failed", zap.String("scenario", sc.Name), zap.Error(terr))
	}

	res.Duration = r.now().Sub(start)
	r.metrics.RecordScenario(sc.Name, string(res.Status), res.Duration)
	return res, err
}

func runScenario(ctx context.Context, sc Scenario, env *Env) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scenario %s panicked: %v", sc.Name, p)
		}
	}()
	return sc.Run(ctx, env)
}
