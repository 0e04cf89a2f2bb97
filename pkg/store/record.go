// Package store provides the record implementation shared by the bundled
// stores, together with value formatting and per-language values.
package store

import (
	"reflect"
	"strings"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/schema"
)

// Record is a template-backed record held by the memory and DynamoDB stores.
type Record struct {
	id       int64
	path     string
	template schema.Template
	values   map[string]any
	locked   map[string]struct{}
	readOnly bool
	version  int64
	language int

	tracking bool
	changes  []string
}

var (
	_ model.Record        = (*Record)(nil)
	_ model.LanguageAware = (*Record)(nil)
)

// RecordOption configures a Record.
type RecordOption func(*Record)

// WithValues seeds field values.
func WithValues(values map[string]any) RecordOption {
	return func(r *Record) {
		for key, value := range values {
			r.values[key] = value
		}
	}
}

// WithLocked marks fields as not editable regardless of permissions.
func WithLocked(names ...string) RecordOption {
	return func(r *Record) {
		for _, name := range names {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				r.locked[trimmed] = struct{}{}
			}
		}
	}
}

// WithReadOnly marks the whole record as not editable.
func WithReadOnly() RecordOption {
	return func(r *Record) { r.readOnly = true }
}

// WithVersion sets the optimistic-locking version.
func WithVersion(version int64) RecordOption {
	return func(r *Record) { r.version = version }
}

// NewRecord constructs a record for the given template.
func NewRecord(id int64, path string, tpl schema.Template, opts ...RecordOption) *Record {
	r := &Record{
		id:       id,
		path:     NormalizePath(path),
		template: tpl,
		values:   make(map[string]any),
		locked:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Record) ID() int64        { return r.id }
func (r *Record) Path() string     { return r.path }
func (r *Record) Template() string { return r.template.Name }
func (r *Record) Version() int64   { return r.version }

// SetVersion is called by stores after a successful save.
func (r *Record) SetVersion(version int64) { r.version = version }

// SetLanguage selects the language used by Formatted and Unformatted.
func (r *Record) SetLanguage(language int) { r.language = language }

func (r *Record) Field(name string) (model.Field, bool) {
	return r.template.Field(name)
}

func (r *Record) Fields() []model.Field {
	return append([]model.Field(nil), r.template.Fields...)
}

// Editable reports whether the record, or the named field, accepts edits.
// Unknown fields are never editable.
func (r *Record) Editable(name string) bool {
	if r.readOnly {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return true
	}
	if _, ok := r.template.Field(name); !ok {
		return false
	}
	_, locked := r.locked[name]
	return !locked
}

func (r *Record) Get(name string) any {
	return r.values[name]
}

// Set stores value and records a change when tracking is on and the value
// differs from the current one.
func (r *Record) Set(name string, value any) {
	previous, existed := r.values[name]
	r.values[name] = value
	if !existed || !reflect.DeepEqual(previous, value) {
		r.TrackChange(name)
	}
}

func (r *Record) Formatted(name string) string {
	field, ok := r.template.Field(name)
	if !ok {
		return ""
	}
	return Format(field, r.values[name], r.language)
}

func (r *Record) Unformatted(name string) string {
	return Raw(r.values[name], r.language)
}

// TrackChanges switches change tracking. Turning it off clears the list.
func (r *Record) TrackChanges(on bool) {
	r.tracking = on
	if !on {
		r.changes = nil
	}
}

func (r *Record) TrackChange(name string) {
	if !r.tracking {
		return
	}
	for _, existing := range r.changes {
		if existing == name {
			return
		}
	}
	r.changes = append(r.changes, name)
}

func (r *Record) Changes() []string {
	return append([]string(nil), r.changes...)
}

// CommitChanges clears tracked changes while keeping tracking enabled.
func (r *Record) CommitChanges() {
	r.changes = nil
}

// Values returns a deep copy of the field values.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for key, value := range r.values {
		out[key] = cloneValue(value)
	}
	return out
}

// Locked lists the locked field names.
func (r *Record) Locked() []string {
	out := make([]string, 0, len(r.locked))
	for name := range r.locked {
		out = append(out, name)
	}
	return out
}

// ReadOnly reports whether the whole record is locked.
func (r *Record) ReadOnly() bool { return r.readOnly }

// TemplateDef returns the backing template.
func (r *Record) TemplateDef() schema.Template { return r.template }

// Clone returns an independent copy without tracked changes.
func (r *Record) Clone() *Record {
	out := NewRecord(r.id, r.path, r.template,
		WithValues(r.Values()),
		WithLocked(r.Locked()...),
		WithVersion(r.version),
	)
	out.readOnly = r.readOnly
	return out
}

// DerivedRecord lives inside an owning record, for example a repeated block.
// Permission checks are delegated to the owner and the owning field.
type DerivedRecord struct {
	*Record
	owner      model.Record
	ownerField string
}

var _ model.Derived = (*DerivedRecord)(nil)

// NewDerivedRecord wraps rec as a child of owner stored in ownerField.
func NewDerivedRecord(rec *Record, owner model.Record, ownerField string) *DerivedRecord {
	return &DerivedRecord{Record: rec, owner: owner, ownerField: strings.TrimSpace(ownerField)}
}

func (d *DerivedRecord) OwnerRecord() model.Record { return d.owner }
func (d *DerivedRecord) OwnerField() string        { return d.ownerField }

// NormalizePath returns path with a leading and trailing slash. Empty paths
// stay empty.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case LanguageValue:
		return v.Clone()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}
