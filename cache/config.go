package cache

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-studentdb/internal/cacheinfra"
	"github.com/rs/zerolog"
)

// Backend names accepted by Config.Backend.
const (
	BackendSturdyc = "sturdyc"
	BackendRedis   = "redis"
	BackendNone    = "none"
)

// DefaultTTL is how long a query result stays cached.
const DefaultTTL = 300 * time.Second

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend              string        `mapstructure:"backend"`
	TTL                  time.Duration `mapstructure:"ttl"`
	Capacity             int           `mapstructure:"capacity"`
	NumShards            int           `mapstructure:"num_shards"`
	EvictionPercentage   int           `mapstructure:"eviction_percentage"`
	EvictionInterval     time.Duration `mapstructure:"eviction_interval"`
	MissingRecordStorage bool          `mapstructure:"missing_record_storage"`
	EarlyRefresh         *EarlyRefreshConfig
	Redis                RedisConfig `mapstructure:"redis"`
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// RedisConfig locates the shared cache store.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendSturdyc,
		TTL:                DefaultTTL,
		Capacity:           10000,
		NumShards:          256,
		EvictionPercentage: 10,
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Timeout: 250 * time.Millisecond,
		},
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendSturdyc, BackendRedis, BackendNone)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&c.Capacity, validation.When(c.Backend == BackendSturdyc, validation.Required, validation.Min(1))),
		validation.Field(&c.NumShards, validation.When(c.Backend == BackendSturdyc, validation.Required, validation.Min(1))),
		validation.Field(&c.EvictionPercentage, validation.When(c.Backend == BackendSturdyc, validation.Min(1), validation.Max(100))),
		validation.Field(&c.Redis, validation.When(c.Backend == BackendRedis, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Redis,
				validation.Field(&c.Redis.Addr, validation.Required),
				validation.Field(&c.Redis.Timeout, validation.Min(time.Duration(0))),
			)
		}))),
	)
}

// NewCacheService constructs the cache service selected by cfg.Backend.
func NewCacheService(ctx context.Context, cfg Config, logger zerolog.Logger) (CacheService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache config: %w", err)
	}

	switch cfg.Backend {
	case BackendRedis:
		svc, err := cacheinfra.NewRedisService(ctx, cacheinfra.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.TTL,
			Timeout:  cfg.Redis.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case BackendNone:
		return cacheinfra.NewNoopService(), nil
	default:
		svc, err := cacheinfra.NewSturdycService(cfg.toInternal())
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
}
