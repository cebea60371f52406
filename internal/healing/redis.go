package healing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/config"
)

// Key prefixes
const (
	PrefixCandidates = "pomsuite:candidates:"
)

// DefaultCacheTTL applies when no TTL is configured
const DefaultCacheTTL = 24 * time.Hour

// CachedStore is a read-through Redis cache in front of another store.
// Redis failures are logged and fall back to the inner store.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedStore wraps inner with a Redis cache
func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

// OpenRedis creates a client from cfg and verifies the connection
func OpenRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return client, nil
}

func cacheKey(key Key) string {
	return PrefixCandidates + key.String()
}

func (s *CachedStore) Candidates(ctx context.Context, key Key) ([]Candidate, error) {
	data, err := s.client.Get(ctx, cacheKey(key)).Bytes()
	switch {
	case err == nil:
		var cs []Candidate
		if err := json.Unmarshal(data, &cs); err == nil {
			return cs, nil
		}
		s.logger.Warn("Discarding unreadable cache entry", zap.String("key", key.String()))
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("Candidate cache read failed", zap.String("key", key.String()), zap.Error(err))
	}

	cs, err := s.inner.Candidates(ctx, key)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(cs); err == nil {
		if err := s.client.Set(ctx, cacheKey(key), data, s.ttl).Err(); err != nil {
			s.logger.Warn("Candidate cache write failed", zap.String("key", key.String()), zap.Error(err))
		}
	}

	return cs, nil
}

func (s *CachedStore) Save(ctx context.Context, key Key, cs []Candidate) error {
	if err := s.inner.Save(ctx, key, cs); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *CachedStore) RecordHeal(ctx context.Context, ev Event) error {
	return s.inner.RecordHeal(ctx, ev)
}

func (s *CachedStore) Events(ctx context.Context, limit int) ([]Event, error) {
	return s.inner.Events(ctx, limit)
}

func (s *CachedStore) invalidate(ctx context.Context, key Key) {
	if err := s.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		s.logger.Warn("Candidate cache invalidation failed", zap.String("key", key.String()), zap.Error(err))
	}
}
