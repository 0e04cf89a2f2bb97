// Package access decides whether an actor may edit a record or one of its
// fields. Permission checks come from the actor; field-level checks come from
// the record itself.
package access

import (
	"strings"

	"github.com/goliatone/go-frontedit/pkg/model"
)

// DefaultPermission is the permission name checked when none is configured.
const DefaultPermission = "record-edit"

// Option configures a Resolver.
type Option func(*Resolver)

// WithPermission overrides the permission name the actor must hold.
func WithPermission(name string) Option {
	return func(r *Resolver) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			r.permission = trimmed
		}
	}
}

// Resolver combines actor permissions with record editability.
type Resolver struct {
	permission string
}

// NewResolver constructs a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{permission: DefaultPermission}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Permission returns the configured permission name.
func (r *Resolver) Permission() string {
	if r == nil || r.permission == "" {
		return DefaultPermission
	}
	return r.permission
}

// CanEditRecord reports whether the actor may edit the record at all. Derived
// records delegate to their owner and the owning field.
func (r *Resolver) CanEditRecord(actor model.Actor, record model.Record) bool {
	if actor == nil || record == nil {
		return false
	}
	if derived, ok := record.(model.Derived); ok {
		owner := derived.OwnerRecord()
		if owner == nil {
			return false
		}
		if !actor.HasPermission(r.Permission(), owner) {
			return false
		}
		return owner.Editable(derived.OwnerField())
	}
	return actor.HasPermission(r.Permission(), record)
}

// CanEdit reports whether the actor may edit fieldName on record. The record
// must pass CanEditRecord and also report the field itself editable.
func (r *Resolver) CanEdit(actor model.Actor, record model.Record, fieldName string) bool {
	if !r.CanEditRecord(actor, record) {
		return false
	}
	fieldName = strings.TrimSpace(fieldName)
	if fieldName == "" {
		return false
	}
	return record.Editable(fieldName)
}
