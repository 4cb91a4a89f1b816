package student

// Patch is a partial update. Absent fields are left unchanged.
type Patch struct {
	LastName  Optional[string]
	FirstName Optional[string]
	Faculty   Optional[string]
	Course    Optional[string]
	Grade     Optional[int]
}

// IsEmpty reports whether no field is present.
func (p Patch) IsEmpty() bool {
	return !p.LastName.IsPresent() &&
		!p.FirstName.IsPresent() &&
		!p.Faculty.IsPresent() &&
		!p.Course.IsPresent() &&
		!p.Grade.IsPresent()
}

// Apply writes the present fields into s and returns their column names.
func (p Patch) Apply(s *Student) []string {
	var columns []string
	if v, ok := p.LastName.Get(); ok {
		s.LastName = v
		columns = append(columns, "last_name")
	}
	if v, ok := p.FirstName.Get(); ok {
		s.FirstName = v
		columns = append(columns, "first_name")
	}
	if v, ok := p.Faculty.Get(); ok {
		s.Faculty = v
		columns = append(columns, "faculty")
	}
	if v, ok := p.Course.Get(); ok {
		s.Course = v
		columns = append(columns, "course")
	}
	if v, ok := p.Grade.Get(); ok {
		s.Grade = v
		columns = append(columns, "grade")
	}
	return columns
}
