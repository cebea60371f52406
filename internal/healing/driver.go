package healing

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/observability"
)

// Driver decorates a browser.Driver with self-healing lookups. Only
// FindElement is intercepted; everything else passes straight through.
type Driver struct {
	browser.Driver

	store    Store
	logger   *zap.Logger
	metrics  *observability.Metrics
	learn    bool
	minScore float64

	mu    sync.Mutex
	heals int
}

// Option configures a healing Driver
type Option func(*Driver)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithLearning turns recording of alternates on successful lookups on or off
func WithLearning(learn bool) Option {
	return func(d *Driver) { d.learn = learn }
}

// WithMinScore ignores stored candidates scoring below min
func WithMinScore(min float64) Option {
	return func(d *Driver) { d.minScore = min }
}

// Wrap decorates inner
func Wrap(inner browser.Driver, store Store, opts ...Option) *Driver {
	d := &Driver{
		Driver: inner,
		store:  store,
		logger: zap.NewNop(),
		learn:  true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decorator returns a browser.Decorator that wraps every new session
func Decorator(store Store, opts ...Option) browser.Decorator {
	return func(inner browser.Driver) browser.Driver {
		return Wrap(inner, store, opts...)
	}
}

// Unwrap returns the decorated driver
func (d *Driver) Unwrap() browser.Driver {
	return d.Driver
}

// Heals returns how many lookups were healed on this session
func (d *Driver) Heals() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.heals
}

// FindElement looks loc up on the delegate. On a miss it tries stored
// alternates for the same element, best first, unless ctx marks an exact
// lookup.
func (d *Driver) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	el, err := d.Driver.FindElement(ctx, loc)
	key := KeyFor(d.Driver.CurrentURL(), loc)

	if err == nil {
		if d.learn {
			d.remember(ctx, key, el)
		}
		return el, nil
	}
	if !browser.IsNotFound(err) || browser.IsExactLookup(ctx) {
		return nil, err
	}

	if healed, ok := d.heal(ctx, key); ok {
		return healed, nil
	}
	return nil, err
}

func (d *Driver) remember(ctx context.Context, key Key, el browser.Element) {
	cs := Fingerprint(el)
	if len(cs) == 0 {
		return
	}
	if err := d.store.Save(ctx, key, cs); err != nil {
		d.logger.Debug("Failed to save locator alternates", zap.String("key", key.String()), zap.Error(err))
	}
}

func (d *Driver) heal(ctx context.Context, key Key) (browser.Element, bool) {
	cs, err := d.store.Candidates(ctx, key)
	if err != nil {
		d.logger.Debug("Failed to load locator alternates", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	cs = Filter(cs, d.minScore)
	if len(cs) == 0 {
		return nil, false
	}

	// The original lookup already paid the implicit wait; probes are
	// one-shot so a long candidate list cannot multiply it.
	prev := d.Driver.ImplicitWait()
	d.Driver.SetImplicitWait(0)
	defer d.Driver.SetImplicitWait(prev)

	for _, c := range cs {
		el, err := d.Driver.FindElement(ctx, c.Locator)
		if err != nil {
			continue
		}

		pageURL := d.Driver.CurrentURL()
		ev := NewEvent(key, c, pageURL)
		if err := d.store.RecordHeal(ctx, ev); err != nil {
			d.logger.Debug("Failed to record heal", zap.Error(err))
		}

		d.mu.Lock()
		d.heals++
		d.mu.Unlock()

		d.metrics.RecordSelfHealing(string(c.Locator.Strategy), "healed")
		d.logger.Warn("Locator healed",
			zap.String("page", key.Page),
			zap.String("locator", key.Locator.String()),
			zap.String("healed", c.Locator.String()),
			zap.Float64("score", c.Score),
		)
		return el, true
	}

	d.metrics.RecordSelfHealing(string(key.Locator.Strategy), "failed")
	d.logger.Debug("No stored alternate matched",
		zap.String("key", key.String()),
		zap.Int("candidates", len(cs)),
	)
	return nil, false
}
