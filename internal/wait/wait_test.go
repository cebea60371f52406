package wait

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/browser/browsertest"
	"github.com/testforge/pomsuite/internal/domain"
	"github.com/testforge/pomsuite/internal/observability"
)

func newHelper(d browser.Driver, opts ...Option) *Helper {
	opts = append([]Option{WithTimeout(200 * time.Millisecond), WithPollInterval(5 * time.Millisecond)}, opts...)
	return New(d, opts...)
}

func TestNew_Defaults(t *testing.T) {
	h := New(browsertest.NewDriver(nil))
	assert.Equal(t, 10*time.Second, h.Timeout())
	assert.Equal(t, DefaultPollInterval, h.poll)
}

func TestHelper_WithTimeoutCopies(t *testing.T) {
	h := New(browsertest.NewDriver(nil))
	short := h.WithTimeout(time.Second)

	assert.Equal(t, time.Second, short.Timeout())
	assert.Equal(t, 10*time.Second, h.Timeout(), "original policy is unchanged")
	assert.Equal(t, 10*time.Second, h.WithTimeout(0).Timeout())
}

func TestHelper_Until(t *testing.T) {
	h := newHelper(browsertest.NewDriver(nil))

	var calls int32
	err := h.Until(context.Background(), "third call", func(ctx context.Context) (bool, error) {
		return atomic.AddInt32(&calls, 1) >= 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHelper_UntilTimeout(t *testing.T) {
	h := newHelper(browsertest.NewDriver(nil))
	last := errors.New("still loading")

	start := time.Now()
	err := h.Until(context.Background(), "never", func(ctx context.Context) (bool, error) {
		return false, last
	})

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.ErrorIs(t, err, last)
	assert.Less(t, time.Since(start), 2*time.Second)

	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "never", appErr.Metadata["condition"])
}

func TestHelper_UntilChecksAtDeadline(t *testing.T) {
	// Polls land at 0 and 80ms; the condition only holds from 90ms, before
	// the 100ms deadline.
	h := New(browsertest.NewDriver(nil), WithTimeout(100*time.Millisecond), WithPollInterval(80*time.Millisecond))

	start := time.Now()
	err := h.Until(context.Background(), "true after 90ms", func(ctx context.Context) (bool, error) {
		return time.Since(start) >= 90*time.Millisecond, nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestHelper_UntilTimeoutUsesWholeBudget(t *testing.T) {
	h := New(browsertest.NewDriver(nil), WithTimeout(100*time.Millisecond), WithPollInterval(80*time.Millisecond))

	start := time.Now()
	err := h.Until(context.Background(), "never", func(ctx context.Context) (bool, error) {
		return false, nil
	})

	assert.True(t, IsTimeout(err))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestHelper_UntilCancelled(t *testing.T) {
	h := New(browsertest.NewDriver(nil), WithTimeout(time.Minute), WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := h.Until(ctx, "never", func(ctx context.Context) (bool, error) { return false, nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeout(err))
}

func TestHelper_WaitForVisible(t *testing.T) {
	el := &browsertest.Element{Tag: "div", ID: "banner", Hidden: true}
	d := browsertest.NewDriver(map[string]*browsertest.Page{
		"/": (&browsertest.Page{}).Add(el),
	})
	require.NoError(t, d.Navigate(context.Background(), "http://app.test/"))

	found, err := d.FindElement(context.Background(), browser.ID("banner"))
	require.NoError(t, err)

	h := newHelper(d)
	assert.True(t, IsTimeout(h.WaitForVisible(context.Background(), found)))

	go func() {
		time.Sleep(20 * time.Millisecond)
		el.SetHidden(false)
	}()
	assert.NoError(t, h.WaitForVisible(context.Background(), found))
}

func TestHelper_WaitForClickable(t *testing.T) {
	el := &browsertest.Element{Tag: "button", ID: "login", Disabled: true}
	d := browsertest.NewDriver(map[string]*browsertest.Page{"/": (&browsertest.Page{}).Add(el)})
	require.NoError(t, d.Navigate(context.Background(), "http://app.test/"))
	found, err := d.FindElement(context.Background(), browser.ID("login"))
	require.NoError(t, err)

	h := newHelper(d)
	assert.True(t, IsTimeout(h.WaitForClickable(context.Background(), found)))

	el.SetDisabled(false)
	assert.NoError(t, h.WaitForClickable(context.Background(), found))
}

func TestHelper_WaitForTitleContains(t *testing.T) {
	d := browsertest.NewDriver(map[string]*browsertest.Page{
		"/": {Title: "The Internet"},
	})
	require.NoError(t, d.Navigate(context.Background(), "http://app.test/"))

	h := newHelper(d)
	assert.NoError(t, h.WaitForTitleContains(context.Background(), "Internet"))
	assert.True(t, IsTimeout(h.WaitForTitleContains(context.Background(), "Dashboard")))
}

func TestHelper_WaitForElementUsesOwnTimeout(t *testing.T) {
	el := &browsertest.Element{Tag: "div", ID: "late", Hidden: true}
	d := browsertest.NewDriver(map[string]*browsertest.Page{"/": (&browsertest.Page{}).Add(el)})
	require.NoError(t, d.Navigate(context.Background(), "http://app.test/"))
	found, err := d.FindElement(context.Background(), browser.ID("late"))
	require.NoError(t, err)

	h := New(d, WithTimeout(time.Hour), WithPollInterval(5*time.Millisecond))

	start := time.Now()
	err = h.WaitForElement(context.Background(), found, 50*time.Millisecond)
	assert.True(t, IsTimeout(err))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, time.Hour, h.Timeout())
}

func TestHelper_WaitForElementZeroTimeoutChecksOnce(t *testing.T) {
	hidden := &browsertest.Element{Tag: "div", ID: "hidden", Hidden: true}
	shown := &browsertest.Element{Tag: "div", ID: "shown"}
	d := browsertest.NewDriver(map[string]*browsertest.Page{"/": (&browsertest.Page{}).Add(hidden, shown)})
	require.NoError(t, d.Navigate(context.Background(), "http://app.test/"))

	h := New(d, WithTimeout(time.Hour), WithPollInterval(5*time.Millisecond))

	el, err := d.FindElement(context.Background(), browser.ID("shown"))
	require.NoError(t, err)
	assert.NoError(t, h.WaitForElement(context.Background(), el, 0))

	el, err = d.FindElement(context.Background(), browser.ID("hidden"))
	require.NoError(t, err)
	start := time.Now()
	err = h.WaitForElement(context.Background(), el, 0)
	assert.True(t, IsTimeout(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestHelper_WaitForURL(t *testing.T) {
	d := browsertest.NewDriver(nil)
	require.NoError(t, d.Navigate(context.Background(), "http://app.test/login"))

	h := newHelper(d)
	go func() {
		time.Sleep(20 * time.Millisecond)
		d.Go("/secure")
	}()

	require.NoError(t, h.WaitForURLContains(context.Background(), "secure"))
	assert.True(t, IsTimeout(h.WaitForURLNotContains(context.Background(), "secure")))

	d.Go("/login")
	assert.NoError(t, h.WaitForURLNotContains(context.Background(), "secure"))
}

func TestHelper_WaitForPresent(t *testing.T) {
	d := browsertest.NewDriver(map[string]*browsertest.Page{"/": {}})
	require.NoError(t, d.Navigate(context.Background(), "http://app.test/"))
	h := newHelper(d)

	_, err := h.WaitForPresent(context.Background(), browser.ID("flash"))
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.True(t, browser.IsNotFound(err), "last lookup error is kept as the cause")

	go func() {
		time.Sleep(20 * time.Millisecond)
		d.SetPage("/", (&browsertest.Page{}).Add(&browsertest.Element{Tag: "div", ID: "flash"}))
	}()
	el, err := h.WaitForPresent(context.Background(), browser.ID("flash"))
	require.NoError(t, err)
	assert.Equal(t, browser.ID("flash"), el.Locator())
}

func TestHelper_WaitForVisibleLocated(t *testing.T) {
	el := &browsertest.Element{Tag: "div", ID: "flash", Hidden: true}
	d := browsertest.NewDriver(map[string]*browsertest.Page{"/": (&browsertest.Page{}).Add(el)})
	require.NoError(t, d.Navigate(context.Background(), "http://app.test/"))
	h := newHelper(d)

	_, err := h.WaitForVisibleLocated(context.Background(), browser.ID("flash"))
	assert.True(t, IsTimeout(err))

	el.SetHidden(false)
	found, err := h.WaitForVisibleLocated(context.Background(), browser.ID("flash"))
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func TestHelper_SetImplicitWait(t *testing.T) {
	d := browsertest.NewDriver(nil)
	h := New(d)

	h.SetImplicitWait(3 * time.Second)
	assert.Equal(t, 3*time.Second, d.ImplicitWait())
}

func TestHelper_RecordsMetrics(t *testing.T) {
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	d := browsertest.NewDriver(nil)
	require.NoError(t, d.Navigate(context.Background(), "http://app.test/secure"))
	h := newHelper(d, WithMetrics(m))

	require.NoError(t, h.WaitForURLContains(context.Background(), "secure"))
	_ = h.WaitForURLContains(context.Background(), "login")

	assert.Equal(t, 2, testutil.CollectAndCount(m.WaitDuration))
}
