package server

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-studentdb/student"
)

// studentFields accepts both snake_case and camelCase names, from a JSON
// body or from query and form parameters.
type studentFields struct {
	LastName       *string `json:"last_name" form:"last_name"`
	LastNameCamel  *string `json:"lastName" form:"lastName"`
	FirstName      *string `json:"first_name" form:"first_name"`
	FirstNameCamel *string `json:"firstName" form:"firstName"`
	Faculty        *string `json:"faculty" form:"faculty"`
	Course         *string `json:"course" form:"course"`
	Grade          *int    `json:"grade" form:"grade"`
}

func (f studentFields) patch() student.Patch {
	return student.Patch{
		LastName:  student.FromPtr(firstOf(f.LastName, f.LastNameCamel)),
		FirstName: student.FromPtr(firstOf(f.FirstName, f.FirstNameCamel)),
		Faculty:   student.FromPtr(f.Faculty),
		Course:    student.FromPtr(f.Course),
		Grade:     student.FromPtr(f.Grade),
	}
}

// newStudent requires every field, grade included.
func (f studentFields) newStudent() (student.NewStudent, error) {
	p := f.patch()
	if !p.Grade.IsPresent() {
		return student.NewStudent{}, student.Malformed(errors.New("grade: cannot be blank"))
	}
	in := student.NewStudent{
		LastName:  p.LastName.OrElse(""),
		FirstName: p.FirstName.OrElse(""),
		Faculty:   p.Faculty.OrElse(""),
		Course:    p.Course.OrElse(""),
		Grade:     p.Grade.OrElse(0),
	}
	return in, in.Validate()
}

type loadRequest struct {
	FileName      string `json:"fileName" form:"fileName"`
	FileNameSnake string `json:"file_name" form:"file_name"`
}

func (r loadRequest) name() string {
	if r.FileName != "" {
		return r.FileName
	}
	return r.FileNameSnake
}

type userRequest struct {
	UserID         string `json:"user_id" form:"user_id"`
	UserIDCamel    string `json:"userId" form:"userId"`
	FirstName      string `json:"first_name" form:"first_name"`
	FirstNameCamel string `json:"firstName" form:"firstName"`
	LastName       string `json:"last_name" form:"last_name"`
	LastNameCamel  string `json:"lastName" form:"lastName"`
}

func (r userRequest) id() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.UserIDCamel
}

func firstOf[T any](ptrs ...*T) *T {
	for _, p := range ptrs {
		if p != nil {
			return p
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// bindRequest fills dst from the query string and then from the body, so
// body fields win. An empty body is not an error.
func bindRequest(c *gin.Context, dst any) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return student.Malformed(err)
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBind(dst); err != nil && !errors.Is(err, io.EOF) {
		return student.Malformed(err)
	}
	return nil
}

func parseID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, student.Malformed(fmt.Errorf("invalid id %q", raw))
	}
	return id, nil
}
