package student

import (
	"encoding/json"

	"github.com/uptrace/bun"
)

// Student is a persisted student record.
type Student struct {
	bun.BaseModel `bun:"table:students,alias:s" json:"-" msgpack:"-"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id" msgpack:"id"`
	LastName  string `bun:"last_name,notnull" json:"last_name" msgpack:"last_name"`
	FirstName string `bun:"first_name,notnull" json:"first_name" msgpack:"first_name"`
	Faculty   string `bun:"faculty,notnull" json:"faculty" msgpack:"faculty"`
	Course    string `bun:"course,notnull" json:"course" msgpack:"course"`
	Grade     int    `bun:"grade,notnull" json:"grade" msgpack:"grade"`
}

// NewStudent holds the fields required to insert a record. The id is
// assigned by the store.
type NewStudent struct {
	LastName  string `json:"last_name" form:"last_name"`
	FirstName string `json:"first_name" form:"first_name"`
	Faculty   string `json:"faculty" form:"faculty"`
	Course    string `json:"course" form:"course"`
	Grade     int    `json:"grade" form:"grade"`
}

// Record builds the Student that will be inserted for n.
func (n NewStudent) Record() Student {
	return Student{
		LastName:  n.LastName,
		FirstName: n.FirstName,
		Faculty:   n.Faculty,
		Course:    n.Course,
		Grade:     n.Grade,
	}
}

// FacultyMember is the projection returned when listing a faculty.
type FacultyMember struct {
	LastName  string `json:"last_name" msgpack:"last_name"`
	FirstName string `json:"first_name" msgpack:"first_name"`
	Course    string `json:"course" msgpack:"course"`
}

// NoData is rendered in place of an average when a faculty has no records.
const NoData = "no data"

// AverageGrade is the mean grade of a faculty. HasData is false when no
// record matched, in which case Value is meaningless.
type AverageGrade struct {
	Faculty string  `msgpack:"faculty"`
	Value   float64 `msgpack:"value"`
	HasData bool    `msgpack:"has_data"`
}

type averageGradeJSON struct {
	Faculty      string `json:"faculty"`
	AverageGrade any    `json:"average_grade"`
}

// MarshalJSON renders the average as a number, or NoData when HasData is false.
func (a AverageGrade) MarshalJSON() ([]byte, error) {
	out := averageGradeJSON{Faculty: a.Faculty, AverageGrade: NoData}
	if a.HasData {
		out.AverageGrade = a.Value
	}
	return json.Marshal(out)
}
