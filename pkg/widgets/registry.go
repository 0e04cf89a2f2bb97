package widgets

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-frontedit/pkg/model"
)

// Built-in control identifiers exposed by the registry.
const (
	ControlText     = "text"
	ControlTextarea = "textarea"
	ControlRichText = "richtext"
	ControlInteger  = "integer"
	ControlFloat    = "float"
	ControlCheckbox = "checkbox"
	ControlEmail    = "email"
	ControlURL      = "url"
	ControlJSON     = "json"
)

// Matcher decides whether a control should handle the supplied field.
type Matcher func(field model.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	factory  Factory
	order    int
}

// Registry selects controls for fields based on an explicit widget setting or
// registered matchers. Higher priority wins; ties fall back to registration
// order. An empty registry never resolves a control.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

var _ Provider = (*Registry)(nil)

// NewRegistry constructs a registry with the built-in controls registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a control with the provided name, priority and matcher.
// Callers should avoid duplicate names; the latest registration wins when a
// field names the control explicitly.
func (r *Registry) Register(name string, priority int, matcher Matcher, factory Factory) {
	if r == nil || matcher == nil || factory == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		factory:  factory,
		order:    len(r.rules),
	})
}

// Resolve returns the control name and factory for a field. A field naming a
// registered control through Config["widget"] bypasses matcher evaluation.
func (r *Registry) Resolve(field model.Field) (string, Factory, bool) {
	if r == nil {
		return "", nil, false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", nil, false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()

	if explicit := field.ConfigValue("widget"); explicit != "" {
		for idx := len(rules) - 1; idx >= 0; idx-- {
			if rules[idx].name == explicit {
				return rules[idx].name, rules[idx].factory, true
			}
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, entry.factory, true
		}
	}
	return "", nil, false
}

// Control implements Provider. The record is not consulted by the built-in
// controls; custom providers may use it to scope choices.
func (r *Registry) Control(_ model.Record, field model.Field) (Control, error) {
	name, factory, ok := r.Resolve(field)
	if !ok {
		return nil, fmt.Errorf("%w %q (type %q)", ErrNoControl, field.Name, field.Type)
	}
	control := factory(field)
	if control == nil {
		return nil, fmt.Errorf("widgets: control %q returned nil for field %q", name, field.Name)
	}
	return control, nil
}

func (r *Registry) registerBuiltins() {
	r.Register(ControlJSON, 100, func(field model.Field) bool {
		return field.IsType(model.TypeJSON)
	}, NewJSON)

	r.Register(ControlCheckbox, 90, func(field model.Field) bool {
		return field.IsType(model.TypeCheckbox)
	}, NewCheckbox)

	r.Register(ControlRichText, 80, func(field model.Field) bool {
		return field.Caps.Has(model.CapRichText) || field.IsType(model.TypeRichText)
	}, NewRichText)

	r.Register(ControlInteger, 70, func(field model.Field) bool {
		return field.IsType(model.TypeInteger)
	}, NewInteger)

	r.Register(ControlFloat, 70, func(field model.Field) bool {
		return field.IsType(model.TypeFloat)
	}, NewFloat)

	r.Register(ControlEmail, 60, func(field model.Field) bool {
		return field.IsType(model.TypeEmail)
	}, NewEmail)

	r.Register(ControlURL, 60, func(field model.Field) bool {
		return field.IsType(model.TypeURL)
	}, NewURL)

	r.Register(ControlTextarea, 50, func(field model.Field) bool {
		return field.Caps.Has(model.CapMultiline) || field.IsType(model.TypeTextarea) || field.IsType(model.TypeMarkdown)
	}, NewTextarea)

	r.Register(ControlText, 40, func(field model.Field) bool {
		return field.Caps.Has(model.CapText) || field.IsType(model.TypeText)
	}, NewText)
}
