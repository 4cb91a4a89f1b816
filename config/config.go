// Package config loads the service configuration from defaults, an optional
// YAML file and STUDENTDB_ prefixed environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/goliatone/go-studentdb/cache"
	"github.com/goliatone/go-studentdb/internal/logging"
	"github.com/goliatone/go-studentdb/jobs"
)

// EnvPrefix is prepended to every environment variable, e.g.
// STUDENTDB_CACHE_BACKEND for cache.backend.
const EnvPrefix = "STUDENTDB"

// User store kinds accepted by auth.store.
const (
	AuthStoreMemory   = "memory"
	AuthStoreDatabase = "database"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    cache.Config   `mapstructure:"cache"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      logging.Config `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// MaxOpenConns of zero lets the store pick a pool size for the driver.
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

type JobsConfig struct {
	jobs.Options `mapstructure:",squash"`
	DataDir      string `mapstructure:"data_dir"`
}

type AuthConfig struct {
	Store string `mapstructure:"store"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:data/studentdb.sqlite?_busy_timeout=5000")
	v.SetDefault("database.max_open_conns", 0)

	c := cache.DefaultConfig()
	v.SetDefault("cache.backend", c.Backend)
	v.SetDefault("cache.ttl", c.TTL)
	v.SetDefault("cache.capacity", c.Capacity)
	v.SetDefault("cache.num_shards", c.NumShards)
	v.SetDefault("cache.eviction_percentage", c.EvictionPercentage)
	v.SetDefault("cache.eviction_interval", c.EvictionInterval)
	v.SetDefault("cache.missing_record_storage", c.MissingRecordStorage)
	v.SetDefault("cache.redis.addr", c.Redis.Addr)
	v.SetDefault("cache.redis.password", c.Redis.Password)
	v.SetDefault("cache.redis.db", c.Redis.DB)
	v.SetDefault("cache.redis.timeout", c.Redis.Timeout)

	j := jobs.DefaultOptions()
	v.SetDefault("jobs.workers", j.Workers)
	v.SetDefault("jobs.queue_size", j.QueueSize)
	v.SetDefault("jobs.timeout", j.Timeout)
	v.SetDefault("jobs.status_retention", j.Retention)
	v.SetDefault("jobs.data_dir", "data")

	v.SetDefault("auth.store", AuthStoreMemory)

	l := logging.DefaultConfig()
	v.SetDefault("log.level", l.Level)
	v.SetDefault("log.format", l.Format)
}

// Load reads the configuration. An empty path searches config.yaml in the
// working directory and /etc/studentdb; a missing file there is not an
// error. An explicit path must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/studentdb")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration as a whole.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.Cache),
		validation.Field(&c.Jobs),
		validation.Field(&c.Auth),
		validation.Field(&c.Log, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Log,
				validation.Field(&c.Log.Level, validation.In("trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled")),
				validation.Field(&c.Log.Format, validation.In(logging.FormatJSON, logging.FormatConsole)),
			)
		})),
	)
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.ShutdownTimeout, validation.Required, validation.Min(time.Duration(1))),
	)
}

func (c DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.MaxOpenConns, validation.Min(0)),
	)
}

func (c JobsConfig) Validate() error {
	if err := c.Options.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.DataDir, validation.Required),
	)
}

func (c AuthConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Store, validation.Required, validation.In(AuthStoreMemory, AuthStoreDatabase)),
	)
}
