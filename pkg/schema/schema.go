// Package schema loads record templates (named field lists) from YAML files
// and OpenAPI component schemas. Field capabilities are resolved while
// loading so the rest of the module never inspects type names.
package schema

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-frontedit/pkg/model"
)

// Template is a named set of fields shared by records.
type Template struct {
	Name   string
	Label  string
	Fields []model.Field
}

// Field returns the named field.
func (t Template) Field(name string) (model.Field, bool) {
	for _, field := range t.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return model.Field{}, false
}

// Set is a read-mostly collection of templates keyed by name.
type Set struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{templates: make(map[string]Template)}
}

// Add registers a template, replacing any template with the same name.
func (s *Set) Add(tpl Template) {
	name := strings.TrimSpace(tpl.Name)
	if s == nil || name == "" {
		return
	}
	tpl.Name = name
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.templates == nil {
		s.templates = make(map[string]Template)
	}
	s.templates[name] = tpl
}

// Merge copies every template from other into s.
func (s *Set) Merge(other *Set) {
	if s == nil || other == nil {
		return
	}
	for _, name := range other.Names() {
		tpl, _ := other.Lookup(name)
		s.Add(tpl)
	}
}

// Lookup returns the template registered under name.
func (s *Set) Lookup(name string) (Template, bool) {
	if s == nil {
		return Template{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[strings.TrimSpace(name)]
	return tpl, ok
}

// Names lists template names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveCapabilities fills field.Caps from the type tag and its ancestors
// when no capabilities were declared explicitly.
func ResolveCapabilities(field model.Field, declared []string, languages bool) model.Field {
	caps := model.ParseCapabilities(declared...)
	if caps == 0 {
		caps = model.DefaultCapabilities(field.Type)
		for _, parent := range field.Inherits {
			caps |= model.DefaultCapabilities(parent)
		}
	}
	if languages {
		caps |= model.CapLanguages
	}
	field.Caps = caps
	return field
}
