package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type cachedRow struct {
	ID    int64  `msgpack:"id"`
	Name  string `msgpack:"name"`
	Found bool   `msgpack:"found"`
}

func newTestRedis(t *testing.T) (*RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisServiceWithClient(client, time.Minute, time.Second, zerolog.Nop()), mr
}

func TestRedisConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   RedisConfig
		field string
	}{
		{name: "valid", cfg: RedisConfig{Addr: "localhost:6379", TTL: time.Minute}},
		{name: "missing addr", cfg: RedisConfig{TTL: time.Minute}, field: "Addr"},
		{name: "zero ttl", cfg: RedisConfig{Addr: "localhost:6379"}, field: "TTL"},
		{name: "negative timeout", cfg: RedisConfig{Addr: "localhost:6379", TTL: time.Minute, Timeout: -1}, field: "Timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var configErr *ConfigError
			if !errors.As(err, &configErr) || configErr.Field != tt.field {
				t.Fatalf("expected ConfigError on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestRedisService_GetOrFetch(t *testing.T) {
	service, mr := newTestRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (cachedRow, error) {
		calls++
		return cachedRow{ID: 7, Name: "Ivanov", Found: true}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := service.GetOrFetch(ctx, "student_by_id_7", fetch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		row, ok := got.(cachedRow)
		if !ok {
			t.Fatalf("expected cachedRow, got %T", got)
		}
		if row.ID != 7 || row.Name != "Ivanov" || !row.Found {
			t.Fatalf("unexpected row %+v", row)
		}
	}
	if calls != 1 {
		t.Errorf("expected one fetch, got %d", calls)
	}
	if !mr.Exists("student_by_id_7") {
		t.Error("expected entry to be stored in redis")
	}
	if ttl := mr.TTL("student_by_id_7"); ttl != time.Minute {
		t.Errorf("expected ttl of one minute, got %v", ttl)
	}
}

func TestRedisService_Expiry(t *testing.T) {
	service, mr := newTestRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"1", "2"}, nil
	}

	if _, err := service.GetOrFetch(ctx, "courses", fetch); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := service.GetOrFetch(ctx, "courses", fetch)
	if err != nil {
		t.Fatal(err)
	}
	if courses := got.([]string); len(courses) != 2 {
		t.Fatalf("unexpected courses %v", courses)
	}
	if calls != 2 {
		t.Errorf("expected expired entry to be fetched again, got %d fetches", calls)
	}
}

func TestRedisService_FetchErrorsAreNotCached(t *testing.T) {
	service, mr := newTestRedis(t)
	ctx := context.Background()

	storeErr := errors.New("store down")
	_, err := service.GetOrFetch(ctx, "all_students", func(ctx context.Context) ([]cachedRow, error) {
		return nil, storeErr
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if mr.Exists("all_students") {
		t.Error("failed fetch must not be stored")
	}
}

func TestRedisService_BackendFailureFallsBack(t *testing.T) {
	service, mr := newTestRedis(t)
	ctx := context.Background()

	mr.SetError("ERR injected failure")

	calls := 0
	fetch := func(ctx context.Context) (float64, error) {
		calls++
		return 4.5, nil
	}
	for i := 0; i < 2; i++ {
		got, err := service.GetOrFetch(ctx, "avg_grade_CS", fetch)
		if err != nil {
			t.Fatalf("read must not fail when redis is down: %v", err)
		}
		if got.(float64) != 4.5 {
			t.Fatalf("unexpected value %v", got)
		}
	}
	if calls != 2 {
		t.Errorf("expected every read to reach the store, got %d", calls)
	}

	if err := service.InvalidateKeys(ctx, []string{"avg_grade_CS"}); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
	if err := service.Ping(ctx); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ping to fail, got %v", err)
	}

	mr.SetError("")
	if err := service.Ping(ctx); err != nil {
		t.Errorf("expected ping to recover, got %v", err)
	}
}

func TestRedisService_Invalidation(t *testing.T) {
	service, mr := newTestRedis(t)
	ctx := context.Background()

	for _, key := range []string{"students_CS", "students_Math", "avg_grade_CS", "avg_grade_Math", "courses"} {
		if err := mr.Set(key, "x"); err != nil {
			t.Fatal(err)
		}
	}
	// glob metacharacters in the prefix must be matched literally
	if err := mr.Set("avg_grade_*", "x"); err != nil {
		t.Fatal(err)
	}

	if err := service.DeleteByPrefix(ctx, "avg_grade_"); err != nil {
		t.Fatal(err)
	}
	if err := service.InvalidateKeys(ctx, []string{"students_CS"}); err != nil {
		t.Fatal(err)
	}
	if err := service.Delete(ctx, "courses"); err != nil {
		t.Fatal(err)
	}
	if err := service.DeleteByPrefix(ctx, "nothing_"); err != nil {
		t.Fatal(err)
	}

	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "students_Math" {
		t.Errorf("expected only students_Math to remain, got %v", keys)
	}
}

func TestEscapePattern(t *testing.T) {
	if got := escapePattern(`a*b?[c]\`); got != `a\*b\?\[c\]\\` {
		t.Errorf("unexpected escaped pattern %q", got)
	}
}

func TestNewRedisService_Unreachable(t *testing.T) {
	service, err := NewRedisService(context.Background(), RedisConfig{
		Addr:    "127.0.0.1:1",
		TTL:     time.Minute,
		Timeout: 50 * time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unreachable redis must not fail construction: %v", err)
	}
	defer service.Close()

	got, err := service.GetOrFetch(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "from-store", nil
	})
	if err != nil || got != "from-store" {
		t.Fatalf("expected fallback value, got %v, %v", got, err)
	}
}
