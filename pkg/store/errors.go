package store

import "errors"

var (
	// ErrNotFound is returned when a locator does not match any record.
	ErrNotFound = errors.New("store: record not found")
	// ErrConcurrentModification is returned when a record changed since it
	// was loaded.
	ErrConcurrentModification = errors.New("store: concurrent modification")
	// ErrUnsupportedRecord is returned when a store is handed a record type
	// it did not produce.
	ErrUnsupportedRecord = errors.New("store: unsupported record type")
)
