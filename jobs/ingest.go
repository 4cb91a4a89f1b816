package jobs

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-studentdb/student"
)

// Creator is the part of student.Repository an ingestion job needs.
type Creator interface {
	Create(ctx context.Context, input student.NewStudent) (student.Student, error)
}

// Deleter is the part of student.Repository a bulk delete needs.
type Deleter interface {
	Delete(ctx context.Context, id int64) (student.Student, error)
}

type column int

const (
	colLastName column = iota
	colFirstName
	colFaculty
	colCourse
	colGrade
	numColumns
)

var columnNames = [numColumns]string{"last_name", "first_name", "faculty", "course", "grade"}

// headerAliases maps lower-cased header cells to columns. The Russian names
// are those of the legacy export files.
var headerAliases = map[string]column{
	"last_name":  colLastName,
	"lastname":   colLastName,
	"фамилия":    colLastName,
	"first_name": colFirstName,
	"firstname":  colFirstName,
	"имя":        colFirstName,
	"faculty":    colFaculty,
	"факультет":  colFaculty,
	"course":     colCourse,
	"курс":       colCourse,
	"grade":      colGrade,
	"оценка":     colGrade,
}

// ValidateFileName accepts plain base names only, so a job can never read
// outside its data directory.
func ValidateFileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return student.Malformed(errors.New("file name is required"))
	case name == "." || name == "..":
		return student.Malformed(fmt.Errorf("invalid file name %q", name))
	case strings.ContainsAny(name, `/\`) || filepath.Base(name) != name || filepath.IsAbs(name):
		return student.Malformed(fmt.Errorf("file name %q must not contain a path", name))
	}
	return nil
}

// Ingest returns a job that inserts one record per row of dataDir/fileName.
// The first malformed row stops the job; rows inserted before it stay.
func Ingest(repo Creator, dataDir, fileName string) (Func, error) {
	if err := ValidateFileName(fileName); err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, fileName)

	return func(ctx context.Context) (Report, error) {
		f, err := os.Open(path)
		if err != nil {
			return Report{}, fmt.Errorf("open %s: %w", fileName, err)
		}
		defer f.Close()

		return ingest(ctx, repo, f)
	}, nil
}

func ingest(ctx context.Context, repo Creator, r io.Reader) (Report, error) {
	var report Report

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return report, student.Malformed(errors.New("empty file"))
	}
	if err != nil {
		return report, student.Malformed(fmt.Errorf("header: %w", err))
	}
	index, err := mapHeader(header)
	if err != nil {
		return report, err
	}

	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("stopped before row %d: %w", row, err)
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		if err != nil {
			return report, student.Malformed(fmt.Errorf("row %d: %w", row, err))
		}

		input, err := decodeRow(record, index)
		if err != nil {
			return report, fmt.Errorf("row %d: %w", row, err)
		}
		if _, err := repo.Create(ctx, input); err != nil {
			return report, fmt.Errorf("row %d: %w", row, err)
		}
		report.Processed++
	}
}

func mapHeader(header []string) ([numColumns]int, error) {
	var index [numColumns]int
	for i := range index {
		index[i] = -1
	}

	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		if col, ok := headerAliases[name]; ok && index[col] < 0 {
			index[col] = i
		}
	}

	var missing []string
	for col, pos := range index {
		if pos < 0 {
			missing = append(missing, columnNames[col])
		}
	}
	if len(missing) > 0 {
		return index, student.Malformed(fmt.Errorf("missing columns: %s", strings.Join(missing, ", ")))
	}
	return index, nil
}

func decodeRow(record []string, index [numColumns]int) (student.NewStudent, error) {
	field := func(col column) string {
		return strings.TrimSpace(record[index[col]])
	}

	grade, err := parseGrade(field(colGrade))
	if err != nil {
		return student.NewStudent{}, student.Malformed(err)
	}

	input := student.NewStudent{
		LastName:  field(colLastName),
		FirstName: field(colFirstName),
		Faculty:   field(colFaculty),
		Course:    field(colCourse),
		Grade:     grade,
	}
	if err := input.Validate(); err != nil {
		return student.NewStudent{}, err
	}
	return input, nil
}

// parseGrade accepts integers and integral floats such as "5.0", which
// spreadsheet exports produce for numeric columns.
func parseGrade(s string) (int, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > math.MaxInt32 || n < -math.MaxInt32 {
			return 0, fmt.Errorf("grade %q is out of range", s)
		}
		return int(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("grade %q is not an integer", s)
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("grade %q is out of range", s)
	}
	return int(f), nil
}
