package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

const scanBatchSize = 256

// RedisConfig configures the shared Redis cache store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration

	// Timeout bounds every call to Redis. A slow store is treated like an
	// unavailable one.
	Timeout time.Duration
}

// Validate checks if the configuration values are valid.
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return &ConfigError{Field: "Addr", Message: "cannot be empty"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "Timeout", Message: "must be non-negative"}
	}
	return nil
}

// RedisService stores msgpack-encoded query results in Redis so that every
// service instance shares one cache. Backend failures never fail a read:
// GetOrFetch logs them and serves the result of fetchFn instead.
type RedisService struct {
	client  redis.UniversalClient
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewRedisService connects a RedisService. An unreachable server is not an
// error here; it is logged and the cache degrades to pass-through until the
// server comes back.
func NewRedisService(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	s := NewRedisServiceWithClient(client, cfg.TTL, cfg.Timeout, logger)
	if err := s.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis cache unreachable, reads fall back to the store")
	}
	return s, nil
}

// NewRedisServiceWithClient wraps an existing client.
func NewRedisServiceWithClient(client redis.UniversalClient, ttl, timeout time.Duration, logger zerolog.Logger) *RedisService {
	return &RedisService{
		client:  client,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger.With().Str("component", "cache").Str("backend", "redis").Logger(),
	}
}

// GetOrFetch returns the decoded value stored under key, or runs fetchFn and
// stores its result for the configured TTL.
func (s *RedisService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	if value, ok := s.lookup(ctx, key, fetchResultType(fetchFn)); ok {
		return value, nil
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		value, err := callFetchFunctionWithReflection(ctx, fetchFn)
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, value)
		return value, nil
	})
	return value, err
}

func (s *RedisService) lookup(ctx context.Context, key string, typ reflect.Type) (any, bool) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}

	target := reflect.New(typ)
	if err := msgpack.Unmarshal(raw, target.Interface()); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache entry could not be decoded")
		return nil, false
	}
	return target.Elem().Interface(), true
}

func (s *RedisService) store(ctx context.Context, key string, value any) {
	raw, err := msgpack.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache entry could not be encoded")
		return
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Delete removes a single entry.
func (s *RedisService) Delete(ctx context.Context, key string) error {
	return s.InvalidateKeys(ctx, []string{key})
}

// InvalidateKeys removes multiple entries in one round trip.
func (s *RedisService) InvalidateKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: delete %d keys: %w", ErrBackendUnavailable, len(keys), err)
	}
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix. Keys are
// collected with SCAN so the server is never blocked by KEYS.
func (s *RedisService) DeleteByPrefix(ctx context.Context, prefix string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var keys []string
	iter := s.client.Scan(ctx, 0, escapePattern(prefix)+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: scan %q: %w", ErrBackendUnavailable, prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: delete prefix %q: %w", ErrBackendUnavailable, prefix, err)
	}
	return nil
}

// Ping reports whether Redis answers.
func (s *RedisService) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return nil
}

// Close releases the client connections.
func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

var patternEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapePattern quotes the glob metacharacters understood by SCAN MATCH.
func escapePattern(s string) string {
	return patternEscaper.Replace(s)
}
