package storeinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-studentdb/student"
)

// StudentRepository implements student.Repository on the students table.
// Row access goes through a generic go-repository-bun repository; the
// aggregate queries it has no criteria for use bun directly.
type StudentRepository struct {
	db      *DB
	records repository.Repository[*student.Student]
}

var _ student.Repository = (*StudentRepository)(nil)

// NewStudentRepository returns the SQL query service.
func NewStudentRepository(db *DB) *StudentRepository {
	return &StudentRepository{
		db:      db,
		records: repository.NewRepository[*student.Student](db.DB, studentHandlers()),
	}
}

// studentHandlers adapts the integer keyed student model to the repository.
// Ids come from the autoincrement column, so there is no uuid to assign.
func studentHandlers() repository.ModelHandlers[*student.Student] {
	return repository.ModelHandlers[*student.Student]{
		NewRecord:     func() *student.Student { return &student.Student{} },
		GetID:         func(*student.Student) uuid.UUID { return uuid.Nil },
		SetID:         func(*student.Student, uuid.UUID) {},
		GetIdentifier: func() string { return "id" },
	}
}

func (r *StudentRepository) ListByFaculty(ctx context.Context, faculty string) ([]student.FacultyMember, error) {
	records, _, err := r.records.List(ctx,
		repository.SelectColumns("id", "last_name", "first_name", "course"),
		repository.SelectBy("faculty", "=", faculty),
		repository.OrderBy("id ASC"),
		unpaginated(),
	)
	if err != nil {
		return nil, student.NewStoreError("list by faculty", err)
	}

	members := make([]student.FacultyMember, 0, len(records))
	for _, s := range records {
		members = append(members, student.FacultyMember{
			LastName:  s.LastName,
			FirstName: s.FirstName,
			Course:    s.Course,
		})
	}
	return members, nil
}

func (r *StudentRepository) ListCourses(ctx context.Context) ([]string, error) {
	courses := []string{}
	err := r.db.NewSelect().
		Model((*student.Student)(nil)).
		Distinct().
		Column("course").
		Scan(ctx, &courses)
	if err != nil {
		return nil, student.NewStoreError("list courses", err)
	}
	return courses, nil
}

func (r *StudentRepository) AverageGrade(ctx context.Context, faculty string) (student.AverageGrade, error) {
	var avg sql.NullFloat64
	err := r.db.NewSelect().
		Model((*student.Student)(nil)).
		ColumnExpr("AVG(grade)").
		Where("faculty = ?", faculty).
		Scan(ctx, &avg)
	if err != nil {
		return student.AverageGrade{}, student.NewStoreError("average grade", err)
	}
	return student.AverageGrade{Faculty: faculty, Value: avg.Float64, HasData: avg.Valid}, nil
}

func (r *StudentRepository) List(ctx context.Context) ([]student.Student, error) {
	records, _, err := r.records.List(ctx, repository.OrderBy("id ASC"), unpaginated())
	if err != nil {
		return nil, student.NewStoreError("list", err)
	}

	students := make([]student.Student, 0, len(records))
	for _, s := range records {
		students = append(students, *s)
	}
	return students, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id int64) (student.Student, error) {
	return r.get(ctx, r.db, id, "get")
}

func (r *StudentRepository) Create(ctx context.Context, input student.NewStudent) (student.Student, error) {
	if err := input.Validate(); err != nil {
		return student.Student{}, err
	}

	record := input.Record()
	created, err := r.records.Create(ctx, &record)
	if err != nil {
		return student.Student{}, student.NewStoreError("create", err)
	}
	return *created, nil
}

// Update runs the read-modify-write inside one transaction. On PostgreSQL
// the row is locked with FOR UPDATE; SQLite serializes writers itself.
func (r *StudentRepository) Update(ctx context.Context, id int64, patch student.Patch) (student.Student, error) {
	if err := patch.Validate(); err != nil {
		return student.Student{}, err
	}

	var updated student.Student
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := r.get(ctx, tx, id, "update")
		if err != nil {
			return err
		}

		columns := patch.Apply(&current)
		if len(columns) == 0 {
			updated = current
			return nil
		}

		saved, err := r.records.UpdateTx(ctx, tx, &current, setColumns(current, columns)...)
		if err != nil {
			return student.NewStoreError("update", err)
		}
		updated = *saved
		return nil
	})
	if err != nil {
		return student.Student{}, txError("update", err)
	}
	return updated, nil
}

func (r *StudentRepository) Delete(ctx context.Context, id int64) (student.Student, error) {
	var deleted student.Student
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := r.get(ctx, tx, id, "delete")
		if err != nil {
			return err
		}
		if err := r.records.DeleteTx(ctx, tx, &current); err != nil {
			return student.NewStoreError("delete", err)
		}
		deleted = current
		return nil
	})
	if err != nil {
		return student.Student{}, txError("delete", err)
	}
	return deleted, nil
}

func (r *StudentRepository) get(ctx context.Context, idb bun.IDB, id int64, op string) (student.Student, error) {
	var criteria []repository.SelectCriteria
	if op != "get" && r.db.isPostgres() {
		criteria = append(criteria, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.For("UPDATE")
		}))
	}

	s, err := r.records.GetByIDTx(ctx, idb, strconv.FormatInt(id, 10), criteria...)
	if repository.IsRecordNotFound(err) {
		return student.Student{}, fmt.Errorf("%w: id %d", student.ErrNotFound, id)
	}
	if err != nil {
		return student.Student{}, student.NewStoreError(op, err)
	}
	return *s, nil
}

// setColumns sets each changed column explicitly. The generic update omits
// zero values from the model, which would drop a grade patched to 0.
func setColumns(s student.Student, columns []string) []repository.UpdateCriteria {
	criteria := make([]repository.UpdateCriteria, 0, len(columns))
	for _, column := range columns {
		var value any
		switch column {
		case "last_name":
			value = s.LastName
		case "first_name":
			value = s.FirstName
		case "faculty":
			value = s.Faculty
		case "course":
			value = s.Course
		case "grade":
			value = s.Grade
		default:
			continue
		}
		criteria = append(criteria, repository.UpdateSetColumn(column, value))
	}
	return criteria
}

// unpaginated lifts the default page size of repository lists.
func unpaginated() repository.SelectCriteria {
	return repository.SelectPaginate(0, 0)
}

// txError keeps domain errors from the transaction body and wraps failures
// of begin or commit as store errors.
func txError(op string, err error) error {
	if errors.Is(err, student.ErrNotFound) || errors.Is(err, student.ErrStoreUnavailable) {
		return err
	}
	return student.NewStoreError(op, err)
}
