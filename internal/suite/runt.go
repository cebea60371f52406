package suite

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

// RunT runs scenarios as subtests of t. The subtest's own failure state is
// the result record teardown acts on, so a failed subtest leaves a
// screenshot the same way Runner does.
func RunT(t *testing.T, h *Harness, scenarios []Scenario) {
	t.Helper()

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			ctx := context.Background()

			env, err := h.Setup(ctx)
			t.Cleanup(func() {
				res := Result{Name: sc.Name, Group: sc.Group, Status: StatusPassed}
				switch {
				case t.Failed():
					res.Status = StatusFailed
				case t.Skipped():
					res.Status = StatusSkipped
				}
				if err := h.Teardown(ctx, env, &res); err != nil {
					h.logger.Warn("Teardown failed", zap.String("scenario", sc.Name), zap.Error(err))
				}
				if res.Screenshot != "" {
					t.Logf("screenshot: %s", res.Screenshot)
				}
			})
			if err != nil {
				t.Fatalf("setup: %v", err)
			}

			err = sc.Run(ctx, env)
			switch {
			case err == nil:
			case errors.Is(err, ErrSkipped):
				t.Skip(err.Error())
			default:
				t.Fatalf("%s: %v", sc.Description, err)
			}
		})
	}
}
