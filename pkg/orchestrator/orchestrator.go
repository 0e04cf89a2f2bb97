package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goliatone/go-frontedit/pkg/access"
	"github.com/goliatone/go-frontedit/pkg/assets"
	"github.com/goliatone/go-frontedit/pkg/editor"
	"github.com/goliatone/go-frontedit/pkg/i18n"
	"github.com/goliatone/go-frontedit/pkg/markup"
	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/render"
	"github.com/goliatone/go-frontedit/pkg/save"
	"github.com/goliatone/go-frontedit/pkg/widgets"
)

// Defaults for the client bootstrap.
const (
	DefaultSaveURL       = "/frontedit/save"
	DefaultCSRFField     = "_csrf"
	DefaultLanguageField = "language"
)

// TokenIssuer mints and checks CSRF tokens per session.
type TokenIssuer interface {
	save.TokenChecker
	Token(session string) string
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithStore sets the record store used to resolve locators and commit saves.
func WithStore(store model.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithRenderer injects a preconfigured editor renderer.
func WithRenderer(renderer *editor.Renderer) Option {
	return func(o *Orchestrator) { o.renderer = renderer }
}

// WithControls sets the widget provider shared by the renderer and the save
// pipeline.
func WithControls(provider widgets.Provider) Option {
	return func(o *Orchestrator) { o.controls = provider }
}

// WithAccess replaces the editability resolver.
func WithAccess(resolver *access.Resolver) Option {
	return func(o *Orchestrator) { o.access = resolver }
}

// WithClassifier replaces the inline classifier.
func WithClassifier(classifier *widgets.Classifier) Option {
	return func(o *Orchestrator) { o.classifier = classifier }
}

// WithAssets injects an asset resolver.
func WithAssets(resolver *assets.Resolver) Option {
	return func(o *Orchestrator) { o.assets = resolver }
}

// WithTokens enables CSRF tokens in the bootstrap and the save pipeline.
func WithTokens(tokens TokenIssuer) Option {
	return func(o *Orchestrator) { o.tokens = tokens }
}

// WithCSRFField overrides the hidden input name carrying the CSRF token.
func WithCSRFField(name string) Option {
	return func(o *Orchestrator) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			o.csrfField = trimmed
		}
	}
}

// WithSaveURL overrides the save endpoint published to the client.
func WithSaveURL(url string) Option {
	return func(o *Orchestrator) {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			o.saveURL = trimmed
		}
	}
}

// WithEditURL overrides the modal edit endpoint.
func WithEditURL(url string) Option {
	return func(o *Orchestrator) { o.editURL = strings.TrimSpace(url) }
}

// WithLanguages enables language-aware editing.
func WithLanguages(languages i18n.Languages) Option {
	return func(o *Orchestrator) { o.languages = languages }
}

// WithTranslator sets the translator used for editor labels.
func WithTranslator(translator i18n.Translator) Option {
	return func(o *Orchestrator) { o.translator = translator }
}

// WithMarkers overrides the marker tag and attribute names.
func WithMarkers(tag, attribute string) Option {
	return func(o *Orchestrator) {
		o.markerTag = tag
		o.markerAttr = attribute
	}
}

// WithTransformers registers transformers run after marker processing.
func WithTransformers(transformers ...Transformer) Option {
	return func(o *Orchestrator) {
		o.transformers = append(o.transformers, transformers...)
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates page transformation and saving.
type Orchestrator struct {
	store        model.Store
	renderer     *editor.Renderer
	controls     widgets.Provider
	access       *access.Resolver
	classifier   *widgets.Classifier
	assets       *assets.Resolver
	tokens       TokenIssuer
	csrfField    string
	saveURL      string
	editURL      string
	languages    i18n.Languages
	translator   i18n.Translator
	markerTag    string
	markerAttr   string
	transformers []Transformer
	logger       *slog.Logger

	scanner       *markup.Scanner
	pipeline      *save.Pipeline
	initialiseErr error
}

// New constructs an Orchestrator. Missing collaborators are initialised with
// the built-in implementations; construction errors are reported by the
// first Transform call.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		csrfField: DefaultCSRFField,
		saveURL:   DefaultSaveURL,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes the page being transformed.
type Request struct {
	Actor  model.Actor
	Record model.Record
	// Session identifies the browser session owning the CSRF token.
	Session  string
	Language int
	Theme    string
	Variant  string
}

// Transform processes markers in a rendered page. Render problems never
// fail the page: markers that cannot be resolved are left unprocessed and
// asset failures only skip the head injection.
func (o *Orchestrator) Transform(ctx context.Context, req Request, page string) (string, error) {
	if ctx == nil {
		return "", errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := o.initialiseErr; err != nil {
		return "", err
	}

	if !o.access.CanEditRecord(req.Actor, req.Record) {
		return o.applyTransformers(ctx, o.scanner.Strip(page))
	}

	if aware, ok := req.Record.(model.LanguageAware); ok {
		aware.SetLanguage(req.Language)
	}
	pass := o.newPass(req.Language)
	out := o.scanner.Scan(ctx, markup.Request{Pass: pass, Actor: req.Actor, Record: req.Record}, page)
	if pass.Regions() > 0 {
		head, err := o.head(req, pass)
		if err != nil {
			o.logger.Warn("orchestrator: editor assets skipped", "error", err)
		} else {
			out = InjectHead(out, head)
		}
	}
	return o.applyTransformers(ctx, out)
}

// Strip removes every marker from page.
func (o *Orchestrator) Strip(page string) string {
	return o.scanner.Strip(page)
}

// Save runs a save batch. When tokens are configured the request must carry
// a valid token for its session.
func (o *Orchestrator) Save(ctx context.Context, req save.Request) save.Result {
	return o.pipeline.Save(ctx, req)
}

// Token returns the CSRF token of session, or "" without a token issuer.
func (o *Orchestrator) Token(session string) string {
	if o.tokens == nil {
		return ""
	}
	return o.tokens.Token(session)
}

// Store returns the configured record store.
func (o *Orchestrator) Store() model.Store { return o.store }

// Languages returns the configured languages.
func (o *Orchestrator) Languages() i18n.Languages { return o.languages }

// Err reports a construction error.
func (o *Orchestrator) Err() error { return o.initialiseErr }

func (o *Orchestrator) newPass(language int) *editor.Pass {
	if !o.languages.Active() {
		return editor.NewPass()
	}
	return editor.NewPass(editor.WithLanguage(language, o.languages.Locale(language)))
}

func (o *Orchestrator) head(req Request, pass *editor.Pass) (string, error) {
	bundle, err := o.assets.Resolve(req.Theme, req.Variant)
	if err != nil {
		return "", err
	}
	language, locale := pass.Language()
	fields := []render.HiddenField{render.LanguageField(DefaultLanguageField, language)}
	if req.Record != nil {
		fields = append(fields, render.Hidden("id", strconv.FormatInt(req.Record.ID(), 10)))
	}
	if o.tokens != nil {
		fields = append(fields, render.CSRFToken(o.csrfField, o.tokens.Token(req.Session)))
	}
	return o.assets.Head(bundle, assets.Bootstrap{
		SaveURL:  o.saveURL,
		EditURL:  o.editURL,
		Language: language,
		Locale:   locale,
		Hidden:   render.MergeHiddenFields(nil, fields...),
	})
}

func (o *Orchestrator) applyTransformers(ctx context.Context, page string) (string, error) {
	for _, transformer := range o.transformers {
		if transformer == nil {
			continue
		}
		out, err := transformer.Transform(ctx, page)
		if err != nil {
			return "", fmt.Errorf("orchestrator: transform page: %w", err)
		}
		page = out
	}
	return page, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.controls == nil {
		o.controls = widgets.NewRegistry()
	}
	if o.access == nil {
		o.access = access.NewResolver()
	}
	if o.classifier == nil {
		o.classifier = widgets.NewClassifier(o.controls)
	}
	if o.renderer == nil {
		opts := []editor.Option{
			editor.WithProvider(o.controls),
			editor.WithTranslator(o.translator),
			editor.WithLogger(o.logger),
		}
		if o.editURL != "" {
			opts = append(opts, editor.WithEditURL(o.editURL))
		}
		renderer, err := editor.NewRenderer(opts...)
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: editor renderer: %w", err)
		}
		o.renderer = renderer
	}
	if o.assets == nil {
		resolver, err := assets.NewResolver()
		if err != nil {
			o.initialiseErr = errors.Join(o.initialiseErr, fmt.Errorf("orchestrator: asset resolver: %w", err))
		}
		o.assets = resolver
	}

	o.scanner = markup.NewScanner(o.renderer,
		markup.WithStore(o.store),
		markup.WithAccess(o.access),
		markup.WithClassifier(o.classifier),
		markup.WithTag(o.markerTag),
		markup.WithAttribute(o.markerAttr),
		markup.WithLogger(o.logger),
	)

	saveOpts := []save.Option{
		save.WithControls(o.controls),
		save.WithAccess(o.access),
		save.WithClassifier(o.classifier),
		save.WithLogger(o.logger),
	}
	if o.tokens != nil {
		saveOpts = append(saveOpts, save.WithTokenChecker(o.tokens))
	}
	o.pipeline = save.NewPipeline(o.store, saveOpts...)
}
