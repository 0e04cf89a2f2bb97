package editor

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-frontedit/pkg/editor/templates"
	"github.com/goliatone/go-frontedit/pkg/i18n"
	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/render/template"
	"github.com/goliatone/go-frontedit/pkg/render/template/gotemplate"
	"github.com/goliatone/go-frontedit/pkg/widgets"
)

// DefaultEditURL is the modal edit endpoint used when none is configured.
const DefaultEditURL = "/frontedit/edit"

// inlineMarker matches the id carried by every inline container.
var inlineMarker = regexp.MustCompile(`id="fe-edit-\d+"`)

// HasInlineMarker reports whether markup already contains an inline editor.
func HasInlineMarker(markup string) bool {
	return inlineMarker.MatchString(markup)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithEngine replaces the embedded templates with a custom engine. The engine
// must provide inline, modal and modal_attrs templates.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(r *Renderer) { r.engine = engine }
}

// WithProvider sets the control provider consulted for widget init data.
func WithProvider(provider widgets.Provider) Option {
	return func(r *Renderer) { r.provider = provider }
}

// WithEditURL sets the modal edit endpoint.
func WithEditURL(editURL string) Option {
	return func(r *Renderer) {
		if trimmed := strings.TrimSpace(editURL); trimmed != "" {
			r.editURL = trimmed
		}
	}
}

// WithTranslator localizes the modal trigger label.
func WithTranslator(t i18n.Translator) Option {
	return func(r *Renderer) { r.translator = t }
}

// WithLogger sets the renderer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Renderer produces inline and modal editor wrappers.
type Renderer struct {
	engine     template.TemplateRenderer
	provider   widgets.Provider
	translator i18n.Translator
	editURL    string
	logger     *slog.Logger
}

// NewRenderer constructs a Renderer backed by the embedded templates unless
// WithEngine is supplied.
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{editURL: DefaultEditURL, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.engine == nil {
		engine, err := gotemplate.New(gotemplate.WithFS(templates.FS))
		if err != nil {
			return nil, fmt.Errorf("editor: template engine: %w", err)
		}
		r.engine = engine
	}
	return r, nil
}

// Render dispatches on the region kind.
func (r *Renderer) Render(pass *Pass, region Region) (string, error) {
	switch region.Kind {
	case KindInline:
		if len(region.Fields) != 1 {
			return "", fmt.Errorf("editor: inline region needs exactly one field, got %d", len(region.Fields))
		}
		return r.Inline(pass, region.Record, region.Fields[0], region.Markup)
	case KindModal:
		return r.Modal(pass, region.Record, region.Fields, region.Markup)
	default:
		return "", fmt.Errorf("editor: unknown region kind %d", region.Kind)
	}
}

// Inline wraps formatted in a container holding the display copy and a hidden
// contenteditable copy of the raw value. Markup that already carries an
// inline container is returned unchanged.
func (r *Renderer) Inline(pass *Pass, record model.Record, field model.Field, formatted string) (string, error) {
	if HasInlineMarker(formatted) {
		return formatted, nil
	}
	if record == nil {
		return "", fmt.Errorf("editor: inline field %q has no record", field.Name)
	}

	tag := "span"
	if field.Caps.Has(model.CapMultiline) {
		tag = "div"
	}
	// Numbers are passed as strings; the engine round-trips data through JSON.
	data := map[string]any{
		"tag":         tag,
		"seq":         strconv.Itoa(pass.Next()),
		"widget":      cssToken(field.Widget()),
		"name":        field.Name,
		"record":      strconv.FormatInt(record.ID(), 10),
		"formatted":   formatted,
		"unformatted": record.Unformatted(field.Name),
		"rich":        field.Caps.Has(model.CapRichText),
	}
	if language, locale := pass.Language(); pass.Localized() && field.Caps.Has(model.CapLanguages) {
		data["language"] = strconv.Itoa(language)
		data["lang"] = locale
	}
	if init := r.initData(record, field); len(init) > 0 {
		data["init"] = init
	}

	out, err := r.engine.RenderTemplate("inline", data)
	if err != nil {
		return "", fmt.Errorf("editor: render inline %q: %w", field.Name, err)
	}
	return out, nil
}

// Modal wraps markup in a modal trigger with a registry-issued id.
func (r *Renderer) Modal(pass *Pass, record model.Record, fields []model.Field, markup string) (string, error) {
	attrs, err := r.ModalAttributes(pass, record, fields, "id")
	if err != nil {
		return "", err
	}
	out, err := r.engine.RenderTemplate("modal", map[string]any{
		"attrs":  attrs,
		"markup": markup,
	})
	if err != nil {
		return "", fmt.Errorf("editor: render modal: %w", err)
	}
	return out, nil
}

// ModalAttributes renders the modal trigger attributes shared by modal
// wrappers and attribute markers. idAttr names the attribute receiving the
// issued id ("id", or "data-fe-id" when the host element already has one).
// The result starts with a space.
func (r *Renderer) ModalAttributes(pass *Pass, record model.Record, fields []model.Field, idAttr string) (string, error) {
	if record == nil || len(fields) == 0 {
		return "", fmt.Errorf("editor: modal needs a record and at least one field")
	}
	names := model.FieldNames(fields, ",")
	_, locale := pass.Language()
	label := i18n.Translate(r.translator, nil, locale, "frontedit.modal.label", "Edit %s", labels(fields))

	out, err := r.engine.RenderTemplate("modal_attrs", map[string]any{
		"id_attr": strings.TrimSpace(idAttr),
		"id":      pass.Modals().Issue(record.ID(), fields),
		"names":   names,
		"href":    r.EditHref(record.ID(), names),
		"label":   label,
	})
	if err != nil {
		return "", fmt.Errorf("editor: render modal attributes: %w", err)
	}
	return out, nil
}

// EditHref builds the modal edit endpoint URL for a record and field list.
func (r *Renderer) EditHref(recordID int64, names string) string {
	query := url.Values{}
	query.Set("id", strconv.FormatInt(recordID, 10))
	query.Set("fields", names)
	query.Set("modal", "1")
	sep := "?"
	if strings.Contains(r.editURL, "?") {
		sep = "&"
	}
	return r.editURL + sep + query.Encode()
}

func (r *Renderer) initData(record model.Record, field model.Field) map[string]string {
	if r.provider == nil {
		return nil
	}
	control, err := r.provider.Control(record, field)
	if err != nil {
		r.logger.Debug("editor: no control for inline field", "field", field.Name, "error", err)
		return nil
	}
	if init, ok := control.(widgets.InitDataProvider); ok {
		return init.InitData()
	}
	return nil
}

func labels(fields []model.Field) string {
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		label := field.Label
		if label == "" {
			label = field.Name
		}
		out = append(out, label)
	}
	return strings.Join(out, ", ")
}

func cssToken(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
