package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-studentdb/internal/cacheinfra"
)

var (
	// ErrInvalidResultType is returned when a cached value does not have the
	// type the caller asked for.
	ErrInvalidResultType = errors.New("cache: invalid result type")

	// ErrCacheUnavailable marks failures of the cache backend itself. Only
	// invalidation and Ping report it; GetOrFetch recovers locally.
	ErrCacheUnavailable = cacheinfra.ErrBackendUnavailable
)

// KeySerializer builds a cache key from a namespace + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through and invalidation operations used by
// the cached repository.
//
// GetOrFetch must fall back to calling fetchFn when the backend cannot be
// reached: the cache is an optimization, never a dependency of correctness.
// Errors returned by fetchFn are propagated and never cached.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
}

// Pinger is implemented by cache services that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}

	// nil interface results come back for nil pointers, slices and interfaces
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T", ErrInvalidResultType, key, result)
	}
	return typed, nil
}
