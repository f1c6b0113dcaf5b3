package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "clusterize-backend/internal/errors"
	"clusterize-backend/internal/observability"
)

// Store is the cache store contract. Every operation is best-effort:
// implementations log failures and degrade to a no-op return instead of
// propagating store errors. The cache is an accelerator, never a source
// of truth.
type Store interface {
	// Available reports whether the store was reachable at startup.
	Available() bool
	// Get returns the value for key and whether it was present. Store
	// failures read as a miss.
	Get(ctx context.Context, key string) (string, bool)
	// GetResult is Get with the failure mode preserved: a miss returns
	// ("", nil) while an unreachable store returns an Unavailable-kind
	// error. Callers that only want the forgiving behavior use Get.
	GetResult(ctx context.Context, key string) (string, error)
	// Set writes value under key. A zero ttl writes a non-expiring
	// entry. Returns false when the write was skipped or failed.
	Set(ctx context.Context, key, value string, ttl time.Duration) bool
	// Delete removes the given keys. Deleting absent keys is a no-op.
	Delete(ctx context.Context, keys ...string) bool
	// ScanDelete removes every key matching pattern and returns how
	// many were deleted.
	ScanDelete(ctx context.Context, pattern string) int
}

// scanBatchSize is the COUNT hint for SCAN iterations.
const scanBatchSize = 1000

// RedisStore implements Store over a Redis client. Connectivity is
// probed once at construction; when the probe fails the process keeps
// running and every operation degrades to its no-op return. A circuit
// breaker turns a store that dies later into fast failures instead of
// per-call timeouts.
type RedisStore struct {
	client    *redis.Client
	available bool
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewRedisStore creates a RedisStore and probes the connection. The
// returned store is usable regardless of the probe's outcome.
func NewRedisStore(client *redis.Client, logger *zap.Logger, metrics *observability.Metrics) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &RedisStore{
		client:  client,
		logger:  logger,
		metrics: metrics,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "redis",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			Timeout: 30 * time.Second,
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, running in degraded (uncached) mode", zap.Error(err))
		s.available = false
		return s
	}
	logger.Info("redis connection established")
	s.available = true
	return s
}

// Available reports whether the startup probe reached the store.
func (s *RedisStore) Available() bool {
	return s.available
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	value, err := s.GetResult(ctx, key)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

// GetResult implements Store.
func (s *RedisStore) GetResult(ctx context.Context, key string) (string, error) {
	if !s.available || key == "" {
		return "", apperrors.Unavailable("CACHE_UNAVAILABLE", "cache store is not available")
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Get(ctx, key).Result()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.metrics.CacheMiss()
			return "", nil
		}
		s.metrics.CacheError()
		s.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		return "", apperrors.Unavailable("CACHE_GET_FAILED", "cache get failed").WithCause(err)
	}

	s.metrics.CacheHit()
	return result.(string), nil
}

// Set implements Store. A zero ttl takes the non-expiring write path
// (plain SET); a positive ttl writes SET with expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if !s.available || key == "" {
		return false
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		// go-redis treats expiration 0 as "no expiry", which is
		// exactly the non-expiring path.
		return nil, s.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		s.metrics.CacheError()
		s.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) bool {
	if !s.available || len(keys) == 0 {
		return false
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		s.metrics.CacheError()
		s.logger.Warn("redis delete failed", zap.Strings("keys", keys), zap.Error(err))
		return false
	}
	return true
}

// ScanDelete implements Store. It walks the keyspace with SCAN and
// deletes matches in batches, so large namespaces never block the store
// the way KEYS would.
func (s *RedisStore) ScanDelete(ctx context.Context, pattern string) int {
	if !s.available || pattern == "" {
		return 0
	}

	deleted, err := s.breaker.Execute(func() (interface{}, error) {
		var total int
		var cursor uint64
		for {
			keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
			if err != nil {
				return total, err
			}
			if len(keys) > 0 {
				if err := s.client.Del(ctx, keys...).Err(); err != nil {
					return total, err
				}
				total += len(keys)
			}
			if next == 0 {
				return total, nil
			}
			cursor = next
		}
	})
	if err != nil {
		s.metrics.CacheError()
		s.logger.Warn("redis scan-delete failed", zap.String("pattern", pattern), zap.Error(err))
		return 0
	}
	return deleted.(int)
}
