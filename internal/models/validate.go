package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks a subject before it is stored.
func (s Subject) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required),
		validation.Field(&s.Name, validation.Required, validation.Length(1, 200)),
	)
}

// Validate checks a task before it is stored.
func (t Task) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.Required),
		validation.Field(&t.SubjectID, validation.Required),
		validation.Field(&t.Title, validation.Required),
		validation.Field(&t.Status, validation.Required, validation.In(StatusTodo, StatusDoing, StatusDone)),
		validation.Field(&t.Priority, validation.Required, validation.In(PriorityLow, PriorityMedium, PriorityHigh)),
	)
}

// Validate checks a note before it is stored. Content may be empty.
func (n Note) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.ID, validation.Required),
		validation.Field(&n.SubjectID, validation.Required),
		validation.Field(&n.Title, validation.Required),
	)
}

// Validate checks a resource before it is stored.
func (r Resource) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.SubjectID, validation.Required),
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Type, validation.Required, validation.In(ResourceLink, ResourceFile, ResourceAudio)),
		validation.Field(&r.URL, validation.Required),
	)
}
