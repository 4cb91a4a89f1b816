package di

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-studentdb/cache"
	"github.com/goliatone/go-studentdb/internal/storeinfra"
	"github.com/goliatone/go-studentdb/student"
)

func seedStudents(b *testing.B, repo student.Repository, n int) {
	b.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := repo.Create(ctx, student.NewStudent{
			LastName:  fmt.Sprintf("Last%d", i),
			FirstName: fmt.Sprintf("First%d", i),
			Faculty:   fmt.Sprintf("F%d", i%5),
			Course:    fmt.Sprintf("%d", i%4+1),
			Grade:     i % 6,
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCachedVsBaseRepository compares the sqlite store with and
// without the read-through cache in front of it.
func BenchmarkCachedVsBaseRepository(b *testing.B) {
	container := newTestContainer(b, testConfig(b))
	cached := container.Repository()
	base := storeinfra.NewStudentRepository(container.db)
	seedStudents(b, cached, 200)
	ctx := context.Background()

	for name, repo := range map[string]student.Repository{"base": base, "cached": cached} {
		b.Run(name+"_GetByID", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = repo.GetByID(ctx, int64(i%100+1))
			}
		})
		b.Run(name+"_AverageGrade", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = repo.AverageGrade(ctx, fmt.Sprintf("F%d", i%5))
			}
		})
		b.Run(name+"_List", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = repo.List(ctx)
			}
		})
	}
}

func BenchmarkKeySerialization(b *testing.B) {
	serializer := cache.NewDefaultKeySerializer()
	long := fmt.Sprintf("%0100d", 7)

	for name, args := range map[string][]any{
		"none":    nil,
		"faculty": {"CS"},
		"id":      {"12345"},
		"hashed":  {long},
	} {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = serializer.SerializeKey("students", args...)
			}
		})
	}
}

func BenchmarkConcurrentCacheAccess(b *testing.B) {
	container := newTestContainer(b, testConfig(b))
	repo := container.Repository()
	seedStudents(b, repo, 100)
	ctx := context.Background()

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = repo.GetByID(ctx, int64(i%100+1))
			i++
		}
	})
}
