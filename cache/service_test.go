package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockCacheService returns a fixed result for every GetOrFetch call
type mockCacheService struct {
	result any
	err    error
}

func (m *mockCacheService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	return m.result, m.err
}

func (m *mockCacheService) Delete(ctx context.Context, key string) error {
	return nil
}

func (m *mockCacheService) DeleteByPrefix(ctx context.Context, prefix string) error {
	return nil
}

func (m *mockCacheService) InvalidateKeys(ctx context.Context, keys []string) error {
	return nil
}

func TestGetOrFetch_NilInterfaceResult(t *testing.T) {
	mock := &mockCacheService{result: nil}

	type SomeInterface interface {
		DoSomething() string
	}

	result, err := GetOrFetch[SomeInterface](context.Background(), mock, "test-key", func(ctx context.Context) (SomeInterface, error) {
		return nil, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestGetOrFetch_NilSliceResult(t *testing.T) {
	mock := &mockCacheService{result: nil}

	result, err := GetOrFetch[[]string](context.Background(), mock, "courses", func(ctx context.Context) ([]string, error) {
		return nil, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil slice but got: %v", result)
	}
}

func TestGetOrFetch_TypeAssertionFailure(t *testing.T) {
	mock := &mockCacheService{result: "wrong-type"}

	result, err := GetOrFetch[int](context.Background(), mock, "test-key", func(ctx context.Context) (int, error) {
		return 42, nil
	})

	if !errors.Is(err, ErrInvalidResultType) {
		t.Errorf("expected ErrInvalidResultType but got: %v", err)
	}
	if result != 0 {
		t.Errorf("expected zero value (0) but got: %v", result)
	}
}

func TestGetOrFetch_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	mock := &mockCacheService{err: boom}

	_, err := GetOrFetch[int](context.Background(), mock, "test-key", func(ctx context.Context) (int, error) {
		return 0, nil
	})

	if !errors.Is(err, boom) {
		t.Errorf("expected boom but got: %v", err)
	}
}

func TestGetOrFetch_ValidResult(t *testing.T) {
	mock := &mockCacheService{result: "test-value"}

	result, err := GetOrFetch[string](context.Background(), mock, "test-key", func(ctx context.Context) (string, error) {
		return "test-value", nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != "test-value" {
		t.Errorf("expected 'test-value' but got: '%s'", result)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "none backend", mutate: func(c *Config) { c.Backend = BackendNone }},
		{name: "redis backend", mutate: func(c *Config) { c.Backend = BackendRedis }},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "memcached" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }, wantErr: true},
		{name: "sturdyc without capacity", mutate: func(c *Config) { c.Capacity = 0 }, wantErr: true},
		{name: "redis ignores capacity", mutate: func(c *Config) { c.Backend = BackendRedis; c.Capacity = 0 }},
		{name: "redis without addr", mutate: func(c *Config) { c.Backend = BackendRedis; c.Redis.Addr = "" }, wantErr: true},
		{name: "eviction percentage too high", mutate: func(c *Config) { c.EvictionPercentage = 101 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no validation error but got: %v", err)
			}
		})
	}
}

func TestDefaultConfig_TTL(t *testing.T) {
	if DefaultConfig().TTL != 300*time.Second {
		t.Errorf("expected 300s default TTL, got %v", DefaultConfig().TTL)
	}
}

func TestNewCacheService_Backends(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{BackendSturdyc, BackendNone} {
		cfg := DefaultConfig()
		cfg.Backend = backend

		svc, err := NewCacheService(ctx, cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", backend, err)
		}

		calls := 0
		fetch := func(ctx context.Context) (int, error) {
			calls++
			return 7, nil
		}
		for i := 0; i < 2; i++ {
			v, err := GetOrFetch(ctx, svc, "k", fetch)
			if err != nil || v != 7 {
				t.Fatalf("%s: got %v, %v", backend, v, err)
			}
		}

		want := 1
		if backend == BackendNone {
			want = 2
		}
		if calls != want {
			t.Errorf("%s: expected %d fetches, got %d", backend, want, calls)
		}
		if _, ok := svc.(Pinger); !ok {
			t.Errorf("%s: service should implement Pinger", backend)
		}
	}
}
