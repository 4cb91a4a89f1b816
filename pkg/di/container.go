// Package di builds the service graph from configuration and owns its
// lifecycle.
package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-studentdb/auth"
	"github.com/goliatone/go-studentdb/cache"
	"github.com/goliatone/go-studentdb/config"
	"github.com/goliatone/go-studentdb/internal/server"
	"github.com/goliatone/go-studentdb/internal/storeinfra"
	"github.com/goliatone/go-studentdb/jobs"
	"github.com/goliatone/go-studentdb/repositorycache"
	"github.com/goliatone/go-studentdb/student"
)

// Container owns the service graph. Everything it opens is released by
// Close, and a failed NewContainer releases what it had already opened.
type Container struct {
	config        config.Config
	db            *storeinfra.DB
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	repository    *repositorycache.CachedRepository
	runner        *jobs.Runner
	gate          *auth.Gate
	handler       *server.Server
	logger        zerolog.Logger
}

// NewContainer opens the store, builds the cache and wires the cached
// repository, job runner, access gate and HTTP handler on top of them.
func NewContainer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (_ *Container, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Container{
		config:        cfg,
		keySerializer: cache.NewDefaultKeySerializer(),
		logger:        logger,
	}
	defer func() {
		if err != nil {
			_ = c.release(context.Background())
		}
	}()

	c.db, err = storeinfra.Open(ctx, storeinfra.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	c.cacheService, err = cache.NewCacheService(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	c.repository = repositorycache.New(
		storeinfra.NewStudentRepository(c.db),
		c.cacheService,
		c.keySerializer,
		logger,
	)

	c.runner, err = jobs.NewRunner(cfg.Jobs.Options, logger)
	if err != nil {
		return nil, err
	}

	var users auth.UserStore
	switch cfg.Auth.Store {
	case config.AuthStoreDatabase:
		users = storeinfra.NewUserStore(c.db)
	default:
		users = auth.NewMemoryUserStore()
	}
	c.gate = auth.NewGate(users, logger)

	deps := server.Deps{
		Repository: c.repository,
		Runner:     c.runner,
		Gate:       c.gate,
		DataDir:    cfg.Jobs.DataDir,
		Store:      c.db,
		Logger:     logger,
	}
	if p, ok := c.cacheService.(cache.Pinger); ok {
		deps.Cache = p
	}
	c.handler = server.New(deps)

	logger.Info().
		Str("driver", cfg.Database.Driver).
		Str("cache", cfg.Cache.Backend).
		Str("auth_store", cfg.Auth.Store).
		Msg("container ready")
	return c, nil
}

// Config returns the configuration the container was built with.
func (c *Container) Config() config.Config {
	return c.config
}

// CacheService returns the shared cache service.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Repository returns the cached student repository.
func (c *Container) Repository() student.Repository {
	return c.repository
}

// Runner returns the background job runner.
func (c *Container) Runner() *jobs.Runner {
	return c.runner
}

// Gate returns the access gate.
func (c *Container) Gate() *auth.Gate {
	return c.gate
}

// Handler returns the HTTP handler.
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Close drains the job runner, then closes the cache and the store. Jobs
// still running when ctx ends are cancelled.
func (c *Container) Close(ctx context.Context) error {
	return c.release(ctx)
}

func (c *Container) release(ctx context.Context) error {
	var errs []error
	if c.runner != nil {
		if err := c.runner.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close jobs: %w", err))
		}
	}
	if closer, ok := c.cacheService.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
