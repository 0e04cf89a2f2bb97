package editor

import "github.com/goliatone/go-frontedit/pkg/model"

// Kind distinguishes inline from modal regions.
type Kind int

const (
	// KindInline edits one field in place.
	KindInline Kind = iota + 1
	// KindModal opens the edit endpoint for one or more fields.
	KindModal
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindModal:
		return "modal"
	default:
		return "unknown"
	}
}

// Region is one resolved marker. An inline region carries exactly one
// inline-capable field; a modal region carries at least one field.
type Region struct {
	Kind   Kind
	Record model.Record
	Fields []model.Field
	Markup string
}
