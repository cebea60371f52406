package healing

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/config"
	"github.com/testforge/pomsuite/internal/observability"
)

// ResolveEnabled decides once, at startup, whether sessions are healed.
// HEALING_ENABLED wins when set; otherwise the properties file decides.
func ResolveEnabled(cfg config.HealingConfig, logger *zap.Logger) bool {
	if cfg.Enabled != nil {
		return *cfg.Enabled
	}
	return NewToggle(cfg.PropertiesPath, logger).Enabled()
}

// OpenStore builds the configured history store. The returned close func
// releases any connections and is never nil.
func OpenStore(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (Store, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() error { return nil }

	switch cfg.Healing.Backend {
	case "", config.HealingBackendMemory:
		return NewMemoryStore(), noop, nil

	case config.HealingBackendPostgres:
		db, err := OpenPostgres(cfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("opening locator history: %w", err)
		}
		var store Store = NewPostgresStore(db)
		closers := []func() error{db.Close}

		if cfg.Healing.CacheEnabled {
			client, err := OpenRedis(cfg.Redis)
			if err != nil {
				logger.Warn("Locator cache unavailable, continuing without it", zap.Error(err))
			} else {
				store = NewCachedStore(store, client, cfg.Redis.TTL, logger)
				closers = append(closers, client.Close)
			}
		}

		closeAll := func() error {
			var first error
			for i := len(closers) - 1; i >= 0; i-- {
				if err := closers[i](); err != nil && first == nil {
					first = err
				}
			}
			return first
		}

		return NewGuardedStore(config.HealingBackendPostgres, store, logger, metrics), closeAll, nil

	default:
		return nil, noop, fmt.Errorf("unknown healing backend %q", cfg.Healing.Backend)
	}
}

// DecoratorFor returns the session decorator for the run: the healing
// wrapper when enabled, nil otherwise
func DecoratorFor(enabled bool, store Store, cfg config.HealingConfig, logger *zap.Logger, metrics *observability.Metrics) browser.Decorator {
	if !enabled {
		return nil
	}
	return Decorator(store,
		WithLogger(logger),
		WithMetrics(metrics),
		WithLearning(cfg.Learn),
		WithMinScore(cfg.MinScore),
	)
}
