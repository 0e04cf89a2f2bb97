// Package markup rewrites rendered HTML: it finds edit markers, resolves them
// to record fields and replaces them with editor wrappers, or strips them
// when editing is not allowed.
//
// Two marker syntaxes are recognised and processed in this order:
//
//	<edit [field=|name=|fields=|names=]LIST [page=ID]>INNER</edit>
//	<TAG ... edit=ID.field1,field2 ...>
package markup

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/goliatone/go-frontedit/pkg/access"
	"github.com/goliatone/go-frontedit/pkg/editor"
	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/widgets"
)

// Defaults for marker names.
const (
	DefaultTag       = "edit"
	DefaultAttribute = "edit"
)

// Option configures a Scanner.
type Option func(*Scanner)

// WithStore sets the store used to resolve explicit locators.
func WithStore(store model.Store) Option {
	return func(s *Scanner) { s.store = store }
}

// WithAccess replaces the default editability resolver.
func WithAccess(resolver *access.Resolver) Option {
	return func(s *Scanner) {
		if resolver != nil {
			s.access = resolver
		}
	}
}

// WithClassifier replaces the default inline classifier.
func WithClassifier(classifier *widgets.Classifier) Option {
	return func(s *Scanner) {
		if classifier != nil {
			s.classifier = classifier
		}
	}
}

// WithTag sets the marker tag name.
func WithTag(name string) Option {
	return func(s *Scanner) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			s.tag = trimmed
		}
	}
}

// WithAttribute sets the marker attribute name.
func WithAttribute(name string) Option {
	return func(s *Scanner) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			s.attr = trimmed
		}
	}
}

// WithLogger sets the scanner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Request is the per-render input of a scan.
type Request struct {
	Pass   *editor.Pass
	Actor  model.Actor
	Record model.Record
}

// Scanner finds markers and replaces them with editor wrappers.
type Scanner struct {
	renderer   *editor.Renderer
	store      model.Store
	access     *access.Resolver
	classifier *widgets.Classifier
	tag        string
	attr       string
	logger     *slog.Logger

	openRe  *regexp.Regexp
	closeRe *regexp.Regexp
	pairRe  *regexp.Regexp
}

// NewScanner constructs a Scanner rendering through renderer.
func NewScanner(renderer *editor.Renderer, opts ...Option) *Scanner {
	s := &Scanner{
		renderer:   renderer,
		access:     access.NewResolver(),
		classifier: widgets.NewClassifier(widgets.NewRegistry()),
		tag:        DefaultTag,
		attr:       DefaultAttribute,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	quoted := regexp.QuoteMeta(s.tag)
	s.openRe = regexp.MustCompile(`(?i)<` + quoted + `(\s[^>]*)?>`)
	s.closeRe = regexp.MustCompile(`(?i)</` + quoted + `\s*>`)
	s.pairRe = regexp.MustCompile(`(?is)<` + quoted + `(?:\s[^>]*)?>(.*?)</` + quoted + `\s*>`)
	return s
}

// Scan runs the tag pass and then the attribute pass over markup.
func (s *Scanner) Scan(ctx context.Context, req Request, markup string) string {
	if req.Pass == nil {
		req.Pass = editor.NewPass()
	}
	records := newRecordCache(s.store, req)
	out := s.scanTags(ctx, req, records, markup)
	return s.scanAttributes(ctx, req, records, out)
}

// Strip removes every marker while keeping enclosed content. Stripping is
// idempotent.
func (s *Scanner) Strip(markup string) string {
	return s.stripAttributes(s.stripTags(markup))
}

// editableFields keeps the named fields that exist on rec and are editable by
// the actor, in request order.
func (s *Scanner) editableFields(req Request, rec model.Record, names []string) []model.Field {
	var out []model.Field
	for _, name := range names {
		field, ok := rec.Field(name)
		if !ok {
			continue
		}
		if !s.access.CanEdit(req.Actor, rec, name) {
			continue
		}
		out = append(out, field)
	}
	return out
}

type recordCache struct {
	store   model.Store
	current model.Record
	pass    *editor.Pass
	loaded  map[string]model.Record
}

func newRecordCache(store model.Store, req Request) *recordCache {
	return &recordCache{store: store, current: req.Record, pass: req.Pass, loaded: make(map[string]model.Record)}
}

// resolve loads the record for locator once per scan. Empty or unresolvable
// locators fall back to the current record.
func (c *recordCache) resolve(ctx context.Context, locator string) (model.Record, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" || c.store == nil {
		return c.fallback()
	}
	if c.current != nil && (locator == fmt.Sprint(c.current.ID()) || locator == c.current.Path()) {
		return c.current, nil
	}
	if rec, ok := c.loaded[locator]; ok {
		if rec == nil {
			return c.fallback()
		}
		return rec, nil
	}
	rec, err := c.store.Get(ctx, locator)
	if err != nil {
		c.loaded[locator] = nil
		return c.fallback()
	}
	if aware, ok := rec.(model.LanguageAware); ok {
		language, _ := c.pass.Language()
		aware.SetLanguage(language)
	}
	c.loaded[locator] = rec
	return rec, nil
}

func (c *recordCache) fallback() (model.Record, error) {
	if c.current == nil {
		return nil, fmt.Errorf("markup: no current record")
	}
	return c.current, nil
}
