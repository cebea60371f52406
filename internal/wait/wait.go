// Package wait provides explicit waits: bounded polling loops that block
// until a condition on the browser holds or a timeout fires.
//
// Explicit waits are independent of the driver's implicit wait. A condition
// that looks an element up still pays the implicit wait on every poll, so a
// large implicit wait can stretch an explicit one well past its timeout.
// Keep the implicit wait short when mixing the two.
package wait

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/config"
	"github.com/testforge/pomsuite/internal/domain"
	"github.com/testforge/pomsuite/internal/observability"
)

const (
	// DefaultTimeout applies when no timeout option is given
	DefaultTimeout = config.MediumWait

	// DefaultPollInterval is the pause between condition checks
	DefaultPollInterval = 250 * time.Millisecond
)

// Condition reports whether the awaited state holds. A non-nil error does
// not stop the wait; it is kept and reported if the wait times out.
type Condition func(ctx context.Context) (bool, error)

// Helper runs explicit waits against one driver
type Helper struct {
	driver  browser.Driver
	timeout time.Duration
	poll    time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Option configures a Helper
type Option func(*Helper)

// WithTimeout sets the default timeout
func WithTimeout(d time.Duration) Option {
	return func(h *Helper) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithPollInterval sets the pause between checks
func WithPollInterval(d time.Duration) Option {
	return func(h *Helper) {
		if d > 0 {
			h.poll = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(h *Helper) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Helper) { h.metrics = m }
}

// New creates a wait helper for driver
func New(driver browser.Driver, opts ...Option) *Helper {
	h := &Helper{
		driver:  driver,
		timeout: DefaultTimeout,
		poll:    DefaultPollInterval,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Timeout returns the default timeout
func (h *Helper) Timeout() time.Duration {
	return h.timeout
}

// Driver returns the driver the helper waits on
func (h *Helper) Driver() browser.Driver {
	return h.driver
}

// WithTimeout returns a copy of the helper using timeout
func (h *Helper) WithTimeout(timeout time.Duration) *Helper {
	c := *h
	if timeout > 0 {
		c.timeout = timeout
	}
	return &c
}

// Until polls cond until it holds or the timeout elapses. Expiry returns a
// WAIT_TIMEOUT error; cancellation of ctx returns ctx's error.
func (h *Helper) Until(ctx context.Context, description string, cond Condition) error {
	return h.until(ctx, "custom", description, cond)
}

func (h *Helper) until(ctx context.Context, kind, description string, cond Condition) error {
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(h.poll), 1)
	var lastErr error

	for {
		if err := limiter.Wait(waitCtx); err != nil {
			// The next poll would land past the deadline. Use the rest of
			// the budget and check once more at the deadline.
			<-waitCtx.Done()
			if ctx.Err() == nil {
				ok, err := cond(ctx)
				if ok {
					h.metrics.RecordWait(kind, "success", time.Since(start))
					return nil
				}
				if err != nil {
					lastErr = err
				}
			}
			break
		}

		ok, err := cond(waitCtx)
		if ok {
			h.metrics.RecordWait(kind, "success", time.Since(start))
			return nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if err := ctx.Err(); err != nil {
		h.metrics.RecordWait(kind, "cancelled", time.Since(start))
		return err
	}

	h.metrics.RecordWait(kind, "timeout", time.Since(start))
	h.logger.Debug("Wait timed out",
		zap.String("condition", description),
		zap.Duration("timeout", h.timeout),
		zap.Error(lastErr),
	)
	return domain.ErrWaitTimeout(description, h.timeout, lastErr)
}

// WaitForVisible blocks until el is displayed
func (h *Helper) WaitForVisible(ctx context.Context, el browser.Element) error {
	return h.until(ctx, "visible", fmt.Sprintf("visibility of %s", el.Locator()), visible(el))
}

// WaitForClickable blocks until el is displayed and enabled
func (h *Helper) WaitForClickable(ctx context.Context, el browser.Element) error {
	return h.until(ctx, "clickable", fmt.Sprintf("%s to be clickable", el.Locator()), func(ctx context.Context) (bool, error) {
		shown, err := el.IsDisplayed()
		if err != nil || !shown {
			return false, err
		}
		return el.IsEnabled()
	})
}

// WaitForTitleContains blocks until the page title contains text
func (h *Helper) WaitForTitleContains(ctx context.Context, text string) error {
	return h.until(ctx, "title", fmt.Sprintf("title to contain %q", text), func(ctx context.Context) (bool, error) {
		title, err := h.driver.Title()
		if err != nil {
			return false, err
		}
		return strings.Contains(title, text), nil
	})
}

// WaitForElement blocks until el is displayed, using timeout instead of the
// helper's default. A timeout <= 0 checks once without waiting.
func (h *Helper) WaitForElement(ctx context.Context, el browser.Element, timeout time.Duration) error {
	if timeout > 0 {
		return h.WithTimeout(timeout).WaitForVisible(ctx, el)
	}

	description := fmt.Sprintf("visibility of %s", el.Locator())
	shown, err := el.IsDisplayed()
	if shown {
		h.metrics.RecordWait("visible", "success", 0)
		return nil
	}
	h.metrics.RecordWait("visible", "timeout", 0)
	return domain.ErrWaitTimeout(description, 0, err)
}

// WaitForURLContains blocks until the current URL contains fragment
func (h *Helper) WaitForURLContains(ctx context.Context, fragment string) error {
	return h.until(ctx, "url", fmt.Sprintf("url to contain %q", fragment), func(ctx context.Context) (bool, error) {
		return strings.Contains(h.driver.CurrentURL(), fragment), nil
	})
}

// WaitForURLNotContains blocks until the current URL no longer contains
// fragment
func (h *Helper) WaitForURLNotContains(ctx context.Context, fragment string) error {
	return h.until(ctx, "url", fmt.Sprintf("url to not contain %q", fragment), func(ctx context.Context) (bool, error) {
		return !strings.Contains(h.driver.CurrentURL(), fragment), nil
	})
}

// WaitForPresent blocks until loc matches an element and returns it
func (h *Helper) WaitForPresent(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	var found browser.Element
	err := h.until(ctx, "present", fmt.Sprintf("presence of %s", loc), func(ctx context.Context) (bool, error) {
		el, err := h.driver.FindElement(ctx, loc)
		if err != nil {
			return false, err
		}
		found = el
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// WaitForVisibleLocated blocks until loc matches a displayed element and
// returns it
func (h *Helper) WaitForVisibleLocated(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	var found browser.Element
	err := h.until(ctx, "visible", fmt.Sprintf("visibility of %s", loc), func(ctx context.Context) (bool, error) {
		el, err := h.driver.FindElement(ctx, loc)
		if err != nil {
			return false, err
		}
		shown, err := el.IsDisplayed()
		if err != nil || !shown {
			return false, err
		}
		found = el
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// SetImplicitWait changes the driver-wide lookup timeout. It affects every
// later lookup on the session, including those inside explicit waits.
func (h *Helper) SetImplicitWait(timeout time.Duration) {
	h.driver.SetImplicitWait(timeout)
}

// IsTimeout reports whether err came from an expired wait
func IsTimeout(err error) bool {
	return errors.Is(err, domain.ErrWaitTimeoutSentinel)
}

func visible(el browser.Element) Condition {
	return func(ctx context.Context) (bool, error) {
		return el.IsDisplayed()
	}
}
