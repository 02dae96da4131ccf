// Package countcache mirrors each vendor's active entry count into Redis
// so read paths can answer without counting rows.
package countcache

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// DefaultPrefix namespaces every key this package writes.
const DefaultPrefix = "catalogsync"

// Config holds the Redis connection settings.
type Config struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WrapResource("ping", "redis", cfg.Addr, err)
	}
	return client, nil
}

// Store decorates a catalog.Store: SetCachedCount writes through to the
// wrapped store and then to Redis.
type Store struct {
	catalog.Store
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires cached counts after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New wraps store.
func New(store catalog.Store, client *redis.Client, opts ...Option) *Store {
	s := &Store{Store: store, client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key holding vendorID's count.
func (s *Store) Key(vendorID string) string {
	return fmt.Sprintf("%s:vendor:%s:active_count", s.prefix, vendorID)
}

// SetCachedCount implements catalog.Store.
func (s *Store) SetCachedCount(ctx context.Context, vendorID string, count int) error {
	if err := s.Store.SetCachedCount(ctx, vendorID, count); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.Key(vendorID), count, s.ttl).Err(); err != nil {
		return errors.WrapResource("cache", "active count", vendorID, err)
	}
	return nil
}

// CachedCount returns the cached count, or an error matching
// errors.ErrNotFound when none is cached.
func (s *Store) CachedCount(ctx context.Context, vendorID string) (int, error) {
	val, err := s.client.Get(ctx, s.Key(vendorID)).Result()
	if stderrors.Is(err, redis.Nil) {
		return 0, errors.NewNotFoundError("active count", vendorID)
	}
	if err != nil {
		return 0, errors.WrapResource("read", "active count", vendorID, err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.WrapParse("int", s.Key(vendorID), err)
	}
	return n, nil
}

// Invalidate drops the cached count for vendorID.
func (s *Store) Invalidate(ctx context.Context, vendorID string) error {
	if err := s.client.Del(ctx, s.Key(vendorID)).Err(); err != nil {
		return errors.WrapResource("invalidate", "active count", vendorID, err)
	}
	return nil
}
