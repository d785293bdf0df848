package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/quoting/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IdempotencyStore remembers request keys so a retried execute or co-term
// replays the first response instead of running twice
type IdempotencyStore interface {
	RateStore
	// Reserve stores value under key only if the key is absent.
	// It reports false when another request already holds the key.
	Reserve(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

const idempotencyKeyPrefix = "quoting:idempotency:"

// RedisIdempotencyStore implements IdempotencyStore using Redis.
// Instances sharing a Redis see each other's keys.
type RedisIdempotencyStore struct {
	*RedisRateStore
}

// NewRedisIdempotencyStoreWithClient creates a store with an existing Redis client
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = idempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{RedisRateStore: NewRedisRateStoreWithClient(client, keyPrefix)}
}

// Reserve uses SETNX so only one request wins the key
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

// InMemoryIdempotencyStore implements IdempotencyStore with a map.
// Suitable for single-instance deployments and tests.
type InMemoryIdempotencyStore struct {
	*InMemoryRateStore
}

// NewInMemoryIdempotencyStore creates a store and starts its cleanup goroutine
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{InMemoryRateStore: NewInMemoryRateStore()}
}

// Reserve implements IdempotencyStore; expired keys can be reserved again
func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	s.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
	return true, nil
}

// NewIdempotencyStore returns a Redis store, or an in-memory one when Redis
// is unreachable and fallback is allowed
func NewIdempotencyStore(cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (IdempotencyStore, error) {
	rates, err := NewRedisRateStore(cfg)
	if err == nil {
		logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Addr()))
		return NewRedisIdempotencyStoreWithClient(rates.client, ""), nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("redis required for idempotency keys but unavailable: %w", err)
	}
	logger.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}

var (
	_ IdempotencyStore = (*RedisIdempotencyStore)(nil)
	_ IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
)
