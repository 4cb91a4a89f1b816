package student

import "context"

// Repository is the query service over student records.
//
// Lookups and mutations by id return ErrNotFound when the id does not exist.
// Empty result sets are not errors.
type Repository interface {
	// ListByFaculty returns the members of faculty ordered by id.
	ListByFaculty(ctx context.Context, faculty string) ([]FacultyMember, error)
	// ListCourses returns every distinct course label.
	ListCourses(ctx context.Context) ([]string, error)
	// AverageGrade returns the mean grade of faculty. HasData is false when
	// the faculty has no records.
	AverageGrade(ctx context.Context, faculty string) (AverageGrade, error)
	// List returns every record ordered by id.
	List(ctx context.Context) ([]Student, error)
	GetByID(ctx context.Context, id int64) (Student, error)
	// Create inserts a record and returns it with its assigned id.
	Create(ctx context.Context, input NewStudent) (Student, error)
	// Update applies patch to the record and returns the result.
	Update(ctx context.Context, id int64, patch Patch) (Student, error)
	// Delete removes the record and returns it as it was.
	Delete(ctx context.Context, id int64) (Student, error)
}
