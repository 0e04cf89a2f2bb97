package widgets

import (
	"reflect"
	"strings"

	"github.com/goliatone/go-frontedit/pkg/model"
)

// DefaultInlineTypes lists the base types that can be edited in place.
var DefaultInlineTypes = []string{
	model.TypeText,
	model.TypeTextarea,
	model.TypeRichText,
	model.TypeMarkdown,
	model.TypeInteger,
	model.TypeFloat,
	model.TypeEmail,
	model.TypeURL,
}

// Classifier decides whether a field is edited inline or through the modal
// editor.
type Classifier struct {
	allowed  map[string]struct{}
	provider Provider
}

// NewClassifier builds a classifier over an allow-list of base types. A nil
// provider disables the blank-value probe, so inherited types fall back to
// modal editing.
func NewClassifier(provider Provider, types ...string) *Classifier {
	if len(types) == 0 {
		types = DefaultInlineTypes
	}
	allowed := make(map[string]struct{}, len(types))
	for _, name := range types {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}
	return &Classifier{allowed: allowed, provider: provider}
}

// Supports reports whether field can be edited inline. Exact allow-list
// matches are supported. Types inheriting from an allow-listed type are
// supported only when their blank value is scalar; types that manage blank
// values as objects need the modal editor.
func (c *Classifier) Supports(field model.Field) bool {
	if c == nil {
		return false
	}
	if _, ok := c.allowed[field.Type]; ok {
		return true
	}
	inherits := false
	for _, parent := range field.Inherits {
		if _, ok := c.allowed[parent]; ok {
			inherits = true
			break
		}
	}
	if !inherits || c.provider == nil {
		return false
	}
	control, err := c.provider.Control(nil, field)
	if err != nil {
		return false
	}
	return isScalar(control.Value())
}

func isScalar(value any) bool {
	if value == nil {
		return true
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
