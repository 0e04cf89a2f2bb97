package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-frontedit/pkg/access"
	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/save"
)

// Session collects field edits for one record.
type Session struct {
	Driver Driver
	Access *access.Resolver
	Actor  model.Actor
}

// Collect asks which editable fields to change and prompts for each new
// value. Only values that differ from the stored raw value are returned. A
// declined confirmation returns no entries.
func (s Session) Collect(ctx context.Context, rec model.Record) ([]save.Entry, error) {
	if s.Driver == nil {
		return nil, fmt.Errorf("prompt: missing driver")
	}
	if rec == nil {
		return nil, fmt.Errorf("prompt: missing record")
	}
	resolver := s.Access
	if resolver == nil {
		resolver = access.NewResolver()
	}

	var (
		fields  []model.Field
		options []string
	)
	for _, field := range rec.Fields() {
		if !resolver.CanEdit(s.Actor, rec, field.Name) {
			continue
		}
		fields = append(fields, field)
		options = append(options, optionLabel(field))
	}
	if len(fields) == 0 {
		return nil, s.Driver.Info(ctx, fmt.Sprintf("Nothing on record %d can be edited.", rec.ID()))
	}

	chosen, err := s.Driver.MultiSelect(ctx, SelectConfig{
		Message:  fmt.Sprintf("Fields to edit on %s", describe(rec)),
		Options:  options,
		PageSize: 12,
	})
	if err != nil {
		return nil, err
	}

	var entries []save.Entry
	for _, idx := range chosen {
		if idx < 0 || idx >= len(fields) {
			continue
		}
		field := fields[idx]
		current := rec.Unformatted(field.Name)
		value, err := s.ask(ctx, field, current)
		if err != nil {
			return nil, err
		}
		if value == current {
			continue
		}
		entries = append(entries, save.Entry{Key: save.Key(rec.ID(), field.Name), Value: value})
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ok, err := s.Driver.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf("Save %d change(s)?", len(entries)),
		Default: true,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return entries, nil
}

func (s Session) ask(ctx context.Context, field model.Field, current string) (string, error) {
	message := label(field)
	switch {
	case field.IsType(model.TypeCheckbox):
		checked, err := s.Driver.Confirm(ctx, ConfirmConfig{Message: message, Default: current == "true"})
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(checked), nil
	case field.Caps.Has(model.CapMultiline):
		return s.Driver.TextArea(ctx, TextAreaConfig{Message: message, Default: current})
	default:
		return s.Driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   current,
			Validator: validator(field),
		})
	}
}

// Report prints the outcome of a save.
func Report(ctx context.Context, driver Driver, result save.Result) error {
	lines := []string{fmt.Sprintf("Status: %s", result.Status)}
	if result.Changes != "" {
		lines = append(lines, "Changed: "+result.Changes)
	}
	if result.Error != "" {
		lines = append(lines, "Errors:")
		for _, line := range strings.Split(result.Error, "\n") {
			lines = append(lines, "  "+line)
		}
	}
	return driver.Info(ctx, strings.Join(lines, "\n"))
}

func validator(field model.Field) func(string) error {
	switch {
	case field.IsType(model.TypeInteger):
		return func(value string) error {
			if strings.TrimSpace(value) == "" {
				return nil
			}
			if _, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err != nil {
				return fmt.Errorf("%s must be a whole number", label(field))
			}
			return nil
		}
	case field.IsType(model.TypeFloat):
		return func(value string) error {
			if strings.TrimSpace(value) == "" {
				return nil
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
				return fmt.Errorf("%s must be a number", label(field))
			}
			return nil
		}
	default:
		return nil
	}
}

func optionLabel(field model.Field) string {
	return fmt.Sprintf("%s (%s)", label(field), field.Type)
}

func label(field model.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func describe(rec model.Record) string {
	if rec.Path() != "" {
		return fmt.Sprintf("%s (#%d)", rec.Path(), rec.ID())
	}
	return fmt.Sprintf("#%d", rec.ID())
}
