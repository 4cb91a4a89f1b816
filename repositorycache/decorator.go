package repositorycache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/goliatone/go-studentdb/cache"
	"github.com/goliatone/go-studentdb/student"
	"github.com/rs/zerolog"
)

// Interface assertion to ensure CachedRepository implements student.Repository
var _ student.Repository = (*CachedRepository)(nil)

// Key namespaces, one per cached read.
var (
	nsStudents    = toSnake("Students")
	nsAvgGrade    = toSnake("AvgGrade")
	nsAllStudents = toSnake("AllStudents")
	nsCourses     = toSnake("Courses")
	nsStudentByID = toSnake("StudentByID")
)

// byIDEntry is what GetByID stores, so that misses are cached too.
type byIDEntry struct {
	Student student.Student `json:"student" msgpack:"student"`
	Found   bool            `json:"found" msgpack:"found"`
}

// CachedRepository decorates a student.Repository with read-through caching
// and invalidates the affected entries after every successful write.
type CachedRepository struct {
	base          student.Repository
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	logger        zerolog.Logger
}

// New creates a new CachedRepository that wraps the base repository with caching
func New(base student.Repository, cacheService cache.CacheService, keySerializer cache.KeySerializer, logger zerolog.Logger) *CachedRepository {
	return &CachedRepository{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		logger:        logger.With().Str("component", "repositorycache").Logger(),
	}
}

// ListByFaculty returns the students of faculty, cached under students_{faculty}.
func (c *CachedRepository) ListByFaculty(ctx context.Context, faculty string) ([]student.FacultyMember, error) {
	key := c.keySerializer.SerializeKey(nsStudents, faculty)
	members, err := readThrough(ctx, c, key, func(ctx context.Context) ([]student.FacultyMember, error) {
		return c.base.ListByFaculty(ctx, faculty)
	})
	if err != nil {
		return nil, err
	}
	return cloneSlice(members), nil
}

// ListCourses returns the distinct courses, cached under courses.
func (c *CachedRepository) ListCourses(ctx context.Context) ([]string, error) {
	key := c.keySerializer.SerializeKey(nsCourses)
	courses, err := readThrough(ctx, c, key, c.base.ListCourses)
	if err != nil {
		return nil, err
	}
	return cloneSlice(courses), nil
}

// AverageGrade returns the mean grade of faculty, cached under avg_grade_{faculty}.
func (c *CachedRepository) AverageGrade(ctx context.Context, faculty string) (student.AverageGrade, error) {
	key := c.keySerializer.SerializeKey(nsAvgGrade, faculty)
	return readThrough(ctx, c, key, func(ctx context.Context) (student.AverageGrade, error) {
		return c.base.AverageGrade(ctx, faculty)
	})
}

// List returns every student, cached under all_students.
func (c *CachedRepository) List(ctx context.Context) ([]student.Student, error) {
	key := c.keySerializer.SerializeKey(nsAllStudents)
	students, err := readThrough(ctx, c, key, c.base.List)
	if err != nil {
		return nil, err
	}
	return cloneSlice(students), nil
}

// GetByID returns one student, cached under student_by_id_{id}. A missing id
// is cached as well and reported as student.ErrNotFound.
func (c *CachedRepository) GetByID(ctx context.Context, id int64) (student.Student, error) {
	key := c.keySerializer.SerializeKey(nsStudentByID, strconv.FormatInt(id, 10))
	entry, err := readThrough(ctx, c, key, func(ctx context.Context) (byIDEntry, error) {
		s, err := c.base.GetByID(ctx, id)
		if errors.Is(err, student.ErrNotFound) {
			return byIDEntry{}, nil
		}
		if err != nil {
			return byIDEntry{}, err
		}
		return byIDEntry{Student: s, Found: true}, nil
	})
	if err != nil {
		return student.Student{}, err
	}
	if !entry.Found {
		return student.Student{}, fmt.Errorf("%w: id %d", student.ErrNotFound, id)
	}
	return entry.Student, nil
}

// Create inserts a student and invalidates every entry the new row affects.
func (c *CachedRepository) Create(ctx context.Context, input student.NewStudent) (student.Student, error) {
	created, err := c.base.Create(ctx, input)
	if err != nil {
		return created, err
	}
	c.apply(ctx, c.recordChanged(created.ID, created.Faculty))
	return created, nil
}

// Update applies patch to the student with id. When the patch moves the
// student to another faculty every faculty listing is dropped, since the
// previous faculty is not known here.
func (c *CachedRepository) Update(ctx context.Context, id int64, patch student.Patch) (student.Student, error) {
	updated, err := c.base.Update(ctx, id, patch)
	if err != nil {
		return updated, err
	}

	inv := c.recordChanged(updated.ID, updated.Faculty)
	if patch.Faculty.IsPresent() {
		inv.prefix(c.prefix(nsStudents))
	}
	c.apply(ctx, inv)
	return updated, nil
}

// Delete removes the student with id and invalidates like Create.
func (c *CachedRepository) Delete(ctx context.Context, id int64) (student.Student, error) {
	deleted, err := c.base.Delete(ctx, id)
	if err != nil {
		return deleted, err
	}
	c.apply(ctx, c.recordChanged(deleted.ID, deleted.Faculty))
	return deleted, nil
}

func (c *CachedRepository) prefix(namespace string) string {
	return cache.KeyPrefix(namespace)
}

// readThrough runs fetch through the cache. If the cache itself misbehaves
// the read is answered by fetch directly.
func readThrough[T any](ctx context.Context, c *CachedRepository, key string, fetch cache.FetchFn[T]) (T, error) {
	value, err := cache.GetOrFetch(ctx, c.cache, key, fetch)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, cache.ErrInvalidResultType) || errors.Is(err, cache.ErrCacheUnavailable) {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, serving from store")
		return fetch(ctx)
	}
	return value, err
}

// cloneSlice hands callers their own copy so cached snapshots stay intact.
// A nil input becomes an empty slice.
func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
