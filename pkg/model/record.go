package model

import "context"

// Record is an addressable content entity with named fields.
type Record interface {
	ID() int64
	Path() string
	Template() string

	// Field returns the descriptor for name when the record carries it.
	Field(name string) (Field, bool)
	Fields() []Field

	// Editable reports whether the record, or one of its fields when name is
	// non-empty, may be edited. This is the record's own field-level check
	// (workflow, locks, field ACL) and is separate from actor permissions.
	Editable(name string) bool

	Get(name string) any
	Set(name string, value any)
	Formatted(name string) string
	Unformatted(name string) string

	TrackChanges(on bool)
	TrackChange(name string)
	Changes() []string
}

// Derived is implemented by records that live inside another record (for
// example a repeated sub-record). Permission and editability checks are
// delegated to the owning record and the field holding the derived record.
type Derived interface {
	OwnerRecord() Record
	OwnerField() string
}

// LanguageValues is implemented by field values that keep one value per
// language. The save pipeline mutates these in place instead of replacing
// the whole value.
type LanguageValues interface {
	LanguageValue(language int) string
	SetLanguageValue(language int, value string)
}

// Actor is the authenticated user making the request.
type Actor interface {
	Name() string
	HasPermission(name string, record Record) bool
}

// Store is the record storage collaborator.
type Store interface {
	// Get resolves a locator (numeric id or path) to a fresh record instance.
	Get(ctx context.Context, locator string) (Record, error)
	// Save persists tracked changes on the record.
	Save(ctx context.Context, record Record) error
}

// LanguageAware is implemented by records that format language values for a
// selected language. Language 0 is the default language.
type LanguageAware interface {
	SetLanguage(language int)
}
