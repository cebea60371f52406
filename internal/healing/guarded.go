package healing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/domain"
	"github.com/testforge/pomsuite/internal/observability"
	"github.com/testforge/pomsuite/internal/resilience"
)

// DefaultStoreTimeout bounds every call to a guarded store
const DefaultStoreTimeout = 2 * time.Second

// GuardedStore puts a circuit breaker and a per-call timeout in front of a
// remote store. While the backend is failing, reads return no candidates
// and writes are dropped, so lookups degrade to plain lookups instead of
// stalling.
type GuardedStore struct {
	name    string
	inner   Store
	breaker *resilience.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewGuardedStore wraps inner. name labels logs and metrics.
func NewGuardedStore(name string, inner Store, logger *zap.Logger, metrics *observability.Metrics) *GuardedStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := resilience.DefaultCircuitBreakerConfig(name)
	cfg.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
		logger.Warn("Locator store circuit changed state",
			zap.String("store", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &GuardedStore{
		name:    name,
		inner:   inner,
		breaker: resilience.NewCircuitBreaker(cfg),
		timeout: DefaultStoreTimeout,
		logger:  logger,
		metrics: metrics,
	}
}

// WithBreaker replaces the circuit breaker
func (s *GuardedStore) WithBreaker(cb *resilience.CircuitBreaker) *GuardedStore {
	s.breaker = cb
	return s
}

// State returns the breaker state
func (s *GuardedStore) State() resilience.CircuitBreakerState {
	return s.breaker.State()
}

func (s *GuardedStore) Candidates(ctx context.Context, key Key) ([]Candidate, error) {
	cs, err := resilience.Execute(ctx, s.breaker, func(ctx context.Context) ([]Candidate, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.inner.Candidates(ctx, key)
	})
	if err != nil {
		s.degraded("candidates", err)
		return nil, nil
	}
	s.metrics.RecordStoreOperation(s.name, "candidates", "success")
	return cs, nil
}

func (s *GuardedStore) Save(ctx context.Context, key Key, cs []Candidate) error {
	s.run(ctx, "save", func(ctx context.Context) error { return s.inner.Save(ctx, key, cs) })
	return nil
}

func (s *GuardedStore) RecordHeal(ctx context.Context, ev Event) error {
	s.run(ctx, "record_heal", func(ctx context.Context) error { return s.inner.RecordHeal(ctx, ev) })
	return nil
}

// Events is not guarded: it serves reporting, not the lookup path
func (s *GuardedStore) Events(ctx context.Context, limit int) ([]Event, error) {
	events, err := s.inner.Events(ctx, limit)
	if err != nil {
		return nil, domain.ErrStoreUnavailable(s.name, err)
	}
	return events, nil
}

func (s *GuardedStore) run(ctx context.Context, op string, fn func(context.Context) error) {
	err := s.breaker.Run(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return fn(ctx)
	})
	if err != nil {
		s.degraded(op, err)
		return
	}
	s.metrics.RecordStoreOperation(s.name, op, "success")
}

func (s *GuardedStore) degraded(op string, err error) {
	status := "failure"
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		status = "rejected"
	}
	s.metrics.RecordStoreOperation(s.name, op, status)
	s.logger.Warn("Locator store unavailable",
		zap.String("operation", op),
		zap.Error(domain.ErrStoreUnavailable(s.name, err)),
	)
}
