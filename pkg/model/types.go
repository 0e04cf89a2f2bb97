package model

import (
	"sort"
	"strconv"
	"strings"
)

// Built-in field type tags. Stores and schema loaders may introduce their own
// tags; the classifier treats unknown tags as modal-only unless they inherit
// from an allow-listed type.
const (
	TypeText     = "text"
	TypeTextarea = "textarea"
	TypeRichText = "richtext"
	TypeMarkdown = "markdown"
	TypeInteger  = "integer"
	TypeFloat    = "float"
	TypeCheckbox = "checkbox"
	TypeEmail    = "email"
	TypeURL      = "url"
	TypeJSON     = "json"
)

// Capability is a bit set describing how a field behaves in an editor.
type Capability uint8

const (
	// CapText marks plain text values (single or multi-line).
	CapText Capability = 1 << iota
	// CapMultiline marks block-level values rendered inside a block element.
	CapMultiline
	// CapRichText marks values that carry markup and skip text normalisation.
	CapRichText
	// CapLanguages marks fields that store one value per language.
	CapLanguages
)

// Has reports whether every bit in flag is set.
func (c Capability) Has(flag Capability) bool {
	return flag != 0 && c&flag == flag
}

// String renders the set as a stable, comma separated list.
func (c Capability) String() string {
	var parts []string
	for _, item := range capabilityNames {
		if c.Has(item.flag) {
			parts = append(parts, item.name)
		}
	}
	return strings.Join(parts, ",")
}

var capabilityNames = []struct {
	flag Capability
	name string
}{
	{CapText, "text"},
	{CapMultiline, "multiline"},
	{CapRichText, "richtext"},
	{CapLanguages, "languages"},
}

// ParseCapabilities converts capability names (as written in schema files)
// into a Capability set. Unknown names are ignored.
func ParseCapabilities(names ...string) Capability {
	var out Capability
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		for _, item := range capabilityNames {
			if item.name == name {
				out |= item.flag
			}
		}
	}
	return out
}

// DefaultCapabilities returns the capabilities implied by a built-in type tag.
func DefaultCapabilities(fieldType string) Capability {
	switch strings.TrimSpace(fieldType) {
	case TypeText, TypeEmail, TypeURL:
		return CapText
	case TypeTextarea:
		return CapText | CapMultiline
	case TypeMarkdown:
		return CapText | CapMultiline
	case TypeRichText:
		return CapMultiline | CapRichText
	default:
		return 0
	}
}

// Field describes a named, typed attribute of a record.
type Field struct {
	ID       int               `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Label    string            `json:"label,omitempty" yaml:"label,omitempty"`
	Type     string            `json:"type" yaml:"type"`
	Inherits []string          `json:"inherits,omitempty" yaml:"inherits,omitempty"`
	Caps     Capability        `json:"caps,omitempty" yaml:"-"`
	Config   map[string]string `json:"config,omitempty" yaml:"config,omitempty"`
}

// ConfigValue returns a trimmed configuration value or an empty string.
func (f Field) ConfigValue(key string) string {
	if f.Config == nil {
		return ""
	}
	return strings.TrimSpace(f.Config[key])
}

// IsType reports whether the field is, or inherits from, the given type tag.
func (f Field) IsType(fieldType string) bool {
	if f.Type == fieldType {
		return true
	}
	for _, parent := range f.Inherits {
		if parent == fieldType {
			return true
		}
	}
	return false
}

// Widget returns the widget class configured for the field, falling back to
// the type tag.
func (f Field) Widget() string {
	if widget := f.ConfigValue("widget"); widget != "" {
		return widget
	}
	return f.Type
}

// FieldIDs joins the numeric ids of fields with sep, in the order given.
func FieldIDs(fields []Field, sep string) string {
	ids := make([]string, 0, len(fields))
	for _, field := range fields {
		ids = append(ids, strconv.Itoa(field.ID))
	}
	return strings.Join(ids, sep)
}

// FieldNames joins field names with sep, in the order given.
func FieldNames(fields []Field, sep string) string {
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.Name)
	}
	return strings.Join(names, sep)
}

// SortFields orders fields by id, then name, for deterministic listings.
func SortFields(fields []Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].ID == fields[j].ID {
			return fields[i].Name < fields[j].Name
		}
		return fields[i].ID < fields[j].ID
	})
}
