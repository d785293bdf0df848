// Package cache holds the Redis-backed tax rate cache and idempotency key store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/quoting/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateStore is a string key/value store with per-key expiry.
// Get reports ok=false on a miss.
type RateStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// RedisRateStore implements RateStore using Redis.
// Suitable for deployments where several instances share the cache.
type RedisRateStore struct {
	client    *redis.Client
	keyPrefix string
}

const defaultKeyPrefix = "quoting:tax_rate:"

// NewRedisRateStore connects to Redis and verifies the connection
func NewRedisRateStore(cfg config.RedisConfig) (*RedisRateStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisRateStoreWithClient(client, ""), nil
}

// NewRedisRateStoreWithClient creates a store with an existing Redis client
func NewRedisRateStoreWithClient(client *redis.Client, keyPrefix string) *RedisRateStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisRateStore{client: client, keyPrefix: keyPrefix}
}

// Get implements RateStore
func (s *RedisRateStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached rate: %w", err)
	}
	return value, true, nil
}

// Set implements RateStore
func (s *RedisRateStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rate: %w", err)
	}
	return nil
}

// Delete implements RateStore
func (s *RedisRateStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keyPrefix+key).Err()
}

// Close closes the Redis client
func (s *RedisRateStore) Close() error {
	return s.client.Close()
}

// entry is a cached value with its expiry
type entry struct {
	value     string
	expiresAt time.Time
}

// InMemoryRateStore implements RateStore with a map.
// Suitable for single-instance deployments and tests.
type InMemoryRateStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRateStore creates a store and starts its cleanup goroutine
func NewInMemoryRateStore() *InMemoryRateStore {
	s := &InMemoryRateStore{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// Get implements RateStore
func (s *InMemoryRateStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || s.now().After(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set implements RateStore
func (s *InMemoryRateStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// Delete implements RateStore
func (s *InMemoryRateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryRateStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of entries, expired ones included
func (s *InMemoryRateStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryRateStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryRateStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// NewRateStore returns a Redis store, or an in-memory one when Redis is
// unreachable and fallback is allowed
func NewRateStore(cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (RateStore, error) {
	store, err := NewRedisRateStore(cfg)
	if err == nil {
		logger.Info("Using Redis tax rate cache", zap.String("addr", cfg.Addr()))
		return store, nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("redis required for tax rate cache but unavailable: %w", err)
	}
	logger.Warn("Redis unavailable, falling back to in-memory tax rate cache", zap.Error(err))
	return NewInMemoryRateStore(), nil
}

var (
	_ RateStore = (*RedisRateStore)(nil)
	_ RateStore = (*InMemoryRateStore)(nil)
)
