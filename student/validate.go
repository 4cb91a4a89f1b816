package student

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxFieldLength = 255

var textRules = []validation.Rule{
	validation.Required,
	validation.Length(1, maxFieldLength),
}

// Validate checks that every field required for an insert is usable.
func (n NewStudent) Validate() error {
	err := validation.ValidateStruct(&n,
		validation.Field(&n.LastName, textRules...),
		validation.Field(&n.FirstName, textRules...),
		validation.Field(&n.Faculty, textRules...),
		validation.Field(&n.Course, textRules...),
		validation.Field(&n.Grade, validation.Min(0)),
	)
	return Malformed(err)
}

// Validate checks the present fields only.
func (p Patch) Validate() error {
	errs := validation.Errors{}
	for name, field := range map[string]Optional[string]{
		"last_name":  p.LastName,
		"first_name": p.FirstName,
		"faculty":    p.Faculty,
		"course":     p.Course,
	} {
		if v, ok := field.Get(); ok {
			errs[name] = validation.Validate(v, textRules...)
		}
	}
	if v, ok := p.Grade.Get(); ok {
		errs["grade"] = validation.Validate(v, validation.Min(0))
	}
	return Malformed(errs.Filter())
}
