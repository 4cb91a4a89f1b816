package storeinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-studentdb/auth"
	"github.com/goliatone/go-studentdb/student"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "db", "students.sqlite") + "?_busy_timeout=5000"
	db, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: dsn, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{Driver: DriverSQLite, DSN: "file:x.db"}.Validate())
	assert.Error(t, Options{Driver: "mysql", DSN: "x"}.Validate())
	assert.Error(t, Options{Driver: DriverPostgres}.Validate())
	assert.Error(t, Options{Driver: DriverSQLite, DSN: "x", MaxOpenConns: -1}.Validate())
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "students.sqlite")
	ctx := context.Background()

	db, err := Open(ctx, Options{Driver: DriverSQLite, DSN: dsn, Logger: zerolog.Nop()})
	require.NoError(t, err)
	_, err = NewStudentRepository(db).Create(ctx, student.NewStudent{LastName: "A", FirstName: "B", Faculty: "CS", Course: "1", Grade: 1})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, Options{Driver: DriverSQLite, DSN: dsn, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer db.Close()

	all, err := NewStudentRepository(db).List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.NoError(t, db.Ping(ctx))
}

func TestStudentRepository_Scenario(t *testing.T) {
	repo := NewStudentRepository(openTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, student.NewStudent{
		LastName: "Ivanov", FirstName: "Petr", Faculty: "CS", Course: "2", Grade: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, 5, got.Grade)

	members, err := repo.ListByFaculty(ctx, "CS")
	require.NoError(t, err)
	assert.Equal(t, []student.FacultyMember{{LastName: "Ivanov", FirstName: "Petr", Course: "2"}}, members)

	avg, err := repo.AverageGrade(ctx, "CS")
	require.NoError(t, err)
	assert.True(t, avg.HasData)
	assert.Equal(t, 5.0, avg.Value)
}

func TestStudentRepository_EmptyResults(t *testing.T) {
	repo := NewStudentRepository(openTestDB(t))
	ctx := context.Background()

	avg, err := repo.AverageGrade(ctx, "Nobody")
	require.NoError(t, err)
	assert.False(t, avg.HasData)

	body, err := json.Marshal(avg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"faculty":"Nobody","average_grade":"no data"}`, string(body))

	members, err := repo.ListByFaculty(ctx, "Nobody")
	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)

	courses, err := repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, courses)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = repo.GetByID(ctx, 42)
	assert.ErrorIs(t, err, student.ErrNotFound)
}

func TestStudentRepository_QueriesOverSeveralRows(t *testing.T) {
	repo := NewStudentRepository(openTestDB(t))
	ctx := context.Background()

	rows := []student.NewStudent{
		{LastName: "Ivanov", FirstName: "Petr", Faculty: "CS", Course: "2", Grade: 5},
		{LastName: "Petrova", FirstName: "Anna", Faculty: "CS", Course: "3", Grade: 4},
		{LastName: "Smirnov", FirstName: "Oleg", Faculty: "Math", Course: "2", Grade: 3},
		{LastName: "Orlova", FirstName: "Ira", Faculty: "CS", Course: "2", Grade: 0},
	}
	for _, r := range rows {
		_, err := repo.Create(ctx, r)
		require.NoError(t, err)
	}

	courses, err := repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "3"}, courses)

	avg, err := repo.AverageGrade(ctx, "CS")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, avg.Value, 1e-9)

	members, err := repo.ListByFaculty(ctx, "CS")
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "Ivanov", members[0].LastName)
	assert.Equal(t, "Orlova", members[2].LastName)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, s := range all {
		assert.Equal(t, int64(i+1), s.ID)
	}
}

func TestStudentRepository_ListsAreNotPaged(t *testing.T) {
	repo := NewStudentRepository(openTestDB(t))
	ctx := context.Background()

	const total = 40
	for i := 0; i < total; i++ {
		_, err := repo.Create(ctx, student.NewStudent{
			LastName: fmt.Sprintf("Last%02d", i), FirstName: "First", Faculty: "CS", Course: "1", Grade: i % 6,
		})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, total)

	members, err := repo.ListByFaculty(ctx, "CS")
	require.NoError(t, err)
	require.Len(t, members, total)
	assert.Equal(t, "Last00", members[0].LastName)
	assert.Equal(t, "Last39", members[total-1].LastName)
}

func TestStudentRepository_CreateReturnsAssignedIDs(t *testing.T) {
	repo := NewStudentRepository(openTestDB(t))
	ctx := context.Background()

	first, err := repo.Create(ctx, student.NewStudent{LastName: "Ivanov", FirstName: "Petr", Faculty: "CS", Course: "2", Grade: 0})
	require.NoError(t, err)
	second, err := repo.Create(ctx, student.NewStudent{LastName: "Petrova", FirstName: "Anna", Faculty: "CS", Course: "3", Grade: 4})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestStudentRepository_PartialUpdate(t *testing.T) {
	repo := NewStudentRepository(openTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, student.NewStudent{LastName: "Ivanov", FirstName: "Petr", Faculty: "CS", Course: "2", Grade: 3})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, created.ID, student.Patch{Grade: student.Some(5)})
	require.NoError(t, err)
	expected := created
	expected.Grade = 5
	assert.Equal(t, expected, updated)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, expected, got)

	// zero is a value, not an absent field
	updated, err = repo.Update(ctx, created.ID, student.Patch{Grade: student.Some(0), Course: student.Some("3")})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Grade)
	assert.Equal(t, "3", updated.Course)
	assert.Equal(t, "Ivanov", updated.LastName)

	// an empty patch returns the record unchanged
	same, err := repo.Update(ctx, created.ID, student.Patch{})
	require.NoError(t, err)
	assert.Equal(t, updated, same)

	_, err = repo.Update(ctx, 999, student.Patch{Grade: student.Some(1)})
	assert.ErrorIs(t, err, student.ErrNotFound)

	_, err = repo.Update(ctx, created.ID, student.Patch{Grade: student.Some(-1)})
	assert.ErrorIs(t, err, student.ErrMalformedInput)
}

func TestStudentRepository_Delete(t *testing.T) {
	repo := NewStudentRepository(openTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, student.NewStudent{LastName: "Ivanov", FirstName: "Petr", Faculty: "CS", Course: "2", Grade: 3})
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, deleted)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, student.ErrNotFound)

	_, err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, student.ErrNotFound)
}

func TestStudentRepository_CreateValidates(t *testing.T) {
	repo := NewStudentRepository(openTestDB(t))

	_, err := repo.Create(context.Background(), student.NewStudent{FirstName: "Petr", Faculty: "CS", Course: "2", Grade: 3})
	assert.ErrorIs(t, err, student.ErrMalformedInput)
}

func TestStudentRepository_ClosedStoreIsUnavailable(t *testing.T) {
	db := openTestDB(t)
	repo := NewStudentRepository(db)
	require.NoError(t, db.Close())

	_, err := repo.List(context.Background())
	assert.ErrorIs(t, err, student.ErrStoreUnavailable)

	var storeErr *student.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "list", storeErr.Op)

	assert.ErrorIs(t, db.Ping(context.Background()), student.ErrStoreUnavailable)
}

func TestUserStore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	gate := auth.NewGate(NewUserStore(db), zerolog.Nop())

	user, err := gate.Register(ctx, "Petr", "Ivanov")
	require.NoError(t, err)

	got, err := gate.Authorize(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Petr", got.FirstName)
	assert.WithinDuration(t, user.CreatedAt, got.CreatedAt, time.Second)

	_, err = NewUserStore(db).Find(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrUnknownUser)

	_, err = gate.Authorize(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrAccessDenied)
}
