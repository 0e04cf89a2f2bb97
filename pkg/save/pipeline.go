package save

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"

	"github.com/goliatone/go-frontedit/pkg/access"
	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/sanitize"
	"github.com/goliatone/go-frontedit/pkg/widgets"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithControls sets the input control provider. Defaults to the built-in
// widget registry.
func WithControls(provider widgets.Provider) Option {
	return func(p *Pipeline) {
		if provider != nil {
			p.controls = provider
		}
	}
}

// WithAccess replaces the default editability resolver.
func WithAccess(resolver *access.Resolver) Option {
	return func(p *Pipeline) {
		if resolver != nil {
			p.access = resolver
		}
	}
}

// WithClassifier replaces the classifier deciding which fields may be saved
// from an inline editor.
func WithClassifier(classifier *widgets.Classifier) Option {
	return func(p *Pipeline) {
		if classifier != nil {
			p.classifier = classifier
		}
	}
}

// WithTokenChecker enables CSRF validation.
func WithTokenChecker(checker TokenChecker) Option {
	return func(p *Pipeline) { p.tokens = checker }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Request is one save batch.
type Request struct {
	Entries []Entry
	Actor   model.Actor
	// Record is the record already loaded for the current page, if any. It is
	// used instead of a store read when a key targets it.
	Record   model.Record
	Language int
	Session  string
	Token    string
	// Modal marks a batch posted from the edit form. Fields only need to be
	// editable by the actor; inline support is not required.
	Modal bool
}

// Pipeline applies save batches.
type Pipeline struct {
	store      model.Store
	controls   widgets.Provider
	access     *access.Resolver
	classifier *widgets.Classifier
	tokens     TokenChecker
	logger     *slog.Logger
}

// NewPipeline constructs a Pipeline writing through store.
func NewPipeline(store model.Store, opts ...Option) *Pipeline {
	registry := widgets.NewRegistry()
	p := &Pipeline{
		store:    store,
		controls: registry,
		access:   access.NewResolver(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.classifier == nil {
		p.classifier = widgets.NewClassifier(p.controls)
	}
	return p
}

type target struct {
	key   string
	field string
	value string
}

type group struct {
	id      int64
	record  model.Record
	targets []target
}

// Save runs the batch and returns the result. It never returns an error;
// failures are reported through Result.Status and Result.Error.
func (p *Pipeline) Save(ctx context.Context, req Request) Result {
	if p.tokens != nil {
		if err := p.tokens.Check(ctx, req.Session, req.Token); err != nil {
			p.logger.Warn("save: csrf check failed", "error", err)
			return Result{
				Status:      StatusError,
				Error:       FailedCSRFMessage,
				Formatted:   map[string]string{},
				Unformatted: map[string]string{},
				Errors:      []string{FailedCSRFMessage},
			}
		}
	}

	out := newCollector()
	groups := p.resolve(ctx, req, p.group(req.Entries))

	for _, g := range groups {
		for _, t := range g.targets {
			for _, err := range p.apply(req, g.record, t) {
				out.fail(err.Error())
			}
		}
	}

	for _, g := range groups {
		changes := g.record.Changes()
		if len(changes) == 0 {
			out.unchanged()
			continue
		}
		if err := p.store.Save(ctx, g.record); err != nil {
			p.logger.Error("save: commit failed", "record", g.id, "error", err)
			out.commitFailed(commitMessage(g.id, err))
			continue
		}
		out.commitSucceeded(changes)
	}

	result := out.result()
	for _, g := range groups {
		p.respond(ctx, req, g, &result)
	}
	p.logger.Info("save: batch processed",
		"entries", len(req.Entries),
		"records", len(groups),
		"status", result.Status.String(),
		"errors", len(result.Errors),
	)
	return result
}

// group drops invalid keys and groups the rest by record id, in the order
// records first appear.
func (p *Pipeline) group(entries []Entry) []*group {
	var groups []*group
	index := make(map[int64]*group)
	for _, entry := range entries {
		id, name, ok := ParseKey(entry.Key)
		if !ok {
			p.logger.Debug("save: dropping invalid key", "key", entry.Key)
			continue
		}
		g, exists := index[id]
		if !exists {
			g = &group{id: id}
			index[id] = g
			groups = append(groups, g)
		}
		g.targets = append(g.targets, target{key: entry.Key, field: name, value: entry.Value})
	}
	return groups
}

// resolve loads each record once. Groups whose record cannot be loaded are
// dropped along with their keys.
func (p *Pipeline) resolve(ctx context.Context, req Request, groups []*group) []*group {
	out := groups[:0]
	for _, g := range groups {
		rec, err := p.load(ctx, req, g.id)
		if err != nil {
			p.logger.Debug("save: skipping unresolved record", "record", g.id, "error", err)
			continue
		}
		rec.TrackChanges(true)
		g.record = rec
		out = append(out, g)
	}
	return out
}

func (p *Pipeline) load(ctx context.Context, req Request, id int64) (model.Record, error) {
	if req.Record != nil && req.Record.ID() == id {
		setLanguage(req.Record, req.Language)
		return req.Record, nil
	}
	if p.store == nil {
		return nil, errors.New("save: no store configured")
	}
	rec, err := p.store.Get(ctx, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("save: record %d not found", id)
	}
	setLanguage(rec, req.Language)
	return rec, nil
}

// apply runs one field through its control and writes the result to rec.
// Returned errors are user-facing and name the field.
func (p *Pipeline) apply(req Request, rec model.Record, t target) []error {
	field, ok := rec.Field(t.field)
	if !ok {
		return []error{fmt.Errorf("%s: unknown field on record %d", t.field, rec.ID())}
	}
	if !p.access.CanEdit(req.Actor, rec, field.Name) || (!req.Modal && !p.classifier.Supports(field)) {
		return []error{fmt.Errorf("%s: not editable", fieldLabel(field))}
	}

	control, err := p.controls.Control(rec, field)
	if err != nil {
		p.logger.Warn("save: no input control", "field", field.Name, "error", err)
		return []error{fmt.Errorf("%s: cannot be edited here", fieldLabel(field))}
	}

	current := rec.Get(field.Name)
	languages, localized := languageValues(field, current)
	if localized {
		control.SetValue(languages.LanguageValue(req.Language))
	} else {
		control.SetValue(current)
	}

	plain := field.Caps.Has(model.CapText) && !field.Caps.Has(model.CapRichText)
	raw := t.value
	if plain {
		raw = sanitize.LineBreaks(raw)
	}
	if errs := control.ProcessInput(raw); len(errs) > 0 {
		return fieldErrors(field, errs)
	}
	if !control.Changed() {
		return nil
	}

	value := control.Value()
	if text, ok := value.(string); ok && plain {
		value = sanitize.StripTags(text)
	}

	if localized {
		text := fmt.Sprint(value)
		if languages.LanguageValue(req.Language) == text {
			return nil
		}
		languages.SetLanguageValue(req.Language, text)
		rec.TrackChange(field.Name)
		return nil
	}
	rec.Set(field.Name, value)
	return nil
}

// respond adds fresh formatted and raw values for every key of g.
func (p *Pipeline) respond(ctx context.Context, req Request, g *group, result *Result) {
	fresh := g.record
	if p.store != nil {
		if rec, err := p.store.Get(ctx, strconv.FormatInt(g.id, 10)); err == nil && rec != nil {
			setLanguage(rec, req.Language)
			fresh = rec
		} else if err != nil {
			p.logger.Debug("save: using in-request record for response", "record", g.id, "error", err)
		}
	}
	for _, t := range g.targets {
		if _, ok := fresh.Field(t.field); !ok {
			continue
		}
		result.Formatted[t.key] = fresh.Formatted(t.field)
		result.Unformatted[t.key] = fresh.Unformatted(t.field)
	}
}

func setLanguage(rec model.Record, language int) {
	if aware, ok := rec.(model.LanguageAware); ok {
		aware.SetLanguage(language)
	}
}

// languageValues reports whether value holds per-language values that can
// be mutated in place.
func languageValues(field model.Field, value any) (model.LanguageValues, bool) {
	if !field.Caps.Has(model.CapLanguages) {
		return nil, false
	}
	languages, ok := value.(model.LanguageValues)
	if !ok {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Map && rv.IsNil() {
		return nil, false
	}
	return languages, true
}

func fieldLabel(field model.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func fieldErrors(field model.Field, errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		out = append(out, fmt.Errorf("%s: %w", fieldLabel(field), err))
	}
	return out
}

func commitMessage(id int64, err error) string {
	return fmt.Sprintf("record %d: %v", id, err)
}
