package widgets

import (
	"errors"

	"github.com/goliatone/go-frontedit/pkg/model"
)

// ErrNoControl is returned when no registered control handles a field.
var ErrNoControl = errors.New("widgets: no control for field")

// Control is the input-control contract the save pipeline drives: seed it
// with the current value, hand it the raw submitted value, then read back the
// decoded value and whether it changed.
type Control interface {
	SetValue(value any)
	Value() any
	// ProcessInput decodes and validates raw. On validation errors the
	// control keeps its previous value.
	ProcessInput(raw string) []error
	Changed() bool
}

// InitDataProvider is implemented by controls that need configuration on the
// client before the inline editor starts. Keys become data-* attributes on
// the inline container.
type InitDataProvider interface {
	InitData() map[string]string
}

// Provider builds controls for record fields.
type Provider interface {
	Control(record model.Record, field model.Field) (Control, error)
}

// Factory constructs a control for a field.
type Factory func(field model.Field) Control
