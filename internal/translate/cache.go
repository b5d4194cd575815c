package translate

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyperjump/ayuda/internal/cache"
	"github.com/hyperjump/ayuda/pkg/utils"
)

// Store keeps translations by key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryStore is an in-process LRU store.
type MemoryStore struct {
	lru *cache.LRU[string]
}

// NewMemoryStore returns an LRU store holding up to capacity translations.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{lru: cache.NewLRU[string](capacity)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.lru.Set(key, value)
	return nil
}

// RedisStore shares translations between processes. Entries expire after ttl
// (0 keeps them until evicted by Redis).
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", opts.Addr, err)
	}
	return &RedisStore{client: client, ttl: opts.TTL}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Cached memoizes a Translator so that the first answer for a given text is
// reused. Store failures are logged and the call goes to the translator.
type Cached struct {
	next   Translator
	store  Store
	logger *zap.Logger
}

// NewCached wraps next with store.
func NewCached(next Translator, store Store, logger *zap.Logger) *Cached {
	return &Cached{next: next, store: store, logger: utils.OrNop(logger)}
}

// Translate implements Translator.
func (c *Cached) Translate(ctx context.Context, text, from, to string) (string, error) {
	key := Key(text, from, to)
	if v, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Warn("translation cache read failed", zap.Error(err))
	} else if ok {
		return v, nil
	}
	out, err := c.next.Translate(ctx, text, from, to)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, key, out); err != nil {
		c.logger.Warn("translation cache write failed", zap.Error(err))
	}
	return out, nil
}

// Key is the cache key for a translation: translate:<from>:<to>:<sha1(text)>.
func Key(text, from, to string) string {
	sum := sha1.Sum([]byte(text))
	return "translate:" + from + ":" + to + ":" + hex.EncodeToString(sum[:])
}
