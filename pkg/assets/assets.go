// Package assets resolves the editor stylesheet and script URLs from a
// go-theme selection and renders the head tags injected into editable pages.
package assets

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-frontedit/pkg/assets/templates"
	"github.com/goliatone/go-frontedit/pkg/render"
	"github.com/goliatone/go-frontedit/pkg/render/template"
	"github.com/goliatone/go-frontedit/pkg/render/template/gotemplate"
)

// Asset keys looked up in theme manifests.
const (
	ScriptKey     = "frontedit.script"
	StylesheetKey = "frontedit.stylesheet"
)

// DefaultPrefix is the URL prefix of the bundled assets.
const DefaultPrefix = "/frontedit/assets"

// DefaultFiles maps asset keys to the bundled file names.
var DefaultFiles = map[string]string{
	ScriptKey:     "frontedit.js",
	StylesheetKey: "frontedit.css",
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSelector resolves assets through a theme selector. name and variant
// are used when a request does not pick a theme.
func WithSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(r *Resolver) {
		r.selector = selector
		r.theme = strings.TrimSpace(name)
		r.variant = strings.TrimSpace(variant)
	}
}

// WithPrefix overrides the URL prefix of the bundled assets.
func WithPrefix(prefix string) Option {
	return func(r *Resolver) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			r.prefix = trimmed
		}
	}
}

// WithFiles merges additional fallback files keyed by asset key.
func WithFiles(files map[string]string) Option {
	return func(r *Resolver) {
		for key, file := range files {
			if strings.TrimSpace(key) != "" && strings.TrimSpace(file) != "" {
				r.files[key] = file
			}
		}
	}
}

// WithEngine overrides the template engine rendering the head tags.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(r *Resolver) { r.engine = engine }
}

// Resolver turns theme selections into asset bundles.
type Resolver struct {
	selector theme.ThemeSelector
	theme    string
	variant  string
	prefix   string
	files    map[string]string
	engine   template.TemplateRenderer
}

// NewResolver constructs a Resolver. Without a selector the bundled assets
// are used.
func NewResolver(opts ...Option) (*Resolver, error) {
	r := &Resolver{prefix: DefaultPrefix, files: make(map[string]string, len(DefaultFiles))}
	for key, file := range DefaultFiles {
		r.files[key] = file
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.engine == nil {
		engine, err := gotemplate.New(gotemplate.WithFS(templates.FS))
		if err != nil {
			return nil, fmt.Errorf("assets: template engine: %w", err)
		}
		r.engine = engine
	}
	return r, nil
}

// Bundle is a resolved set of editor assets.
type Bundle struct {
	Theme       string
	Variant     string
	Stylesheets []string
	Scripts     []string
	Tokens      map[string]string
}

// Resolve selects the theme and variant (falling back to the configured
// defaults) and returns the asset URLs in key order.
func (r *Resolver) Resolve(name, variant string) (Bundle, error) {
	urls := make(map[string]string, len(r.files))
	for key, file := range r.files {
		urls[key] = join(r.prefix, file)
	}
	bundle := Bundle{}

	if r.selector != nil {
		if strings.TrimSpace(name) == "" {
			name = r.theme
		}
		if strings.TrimSpace(variant) == "" {
			variant = r.variant
		}
		selection, err := r.selector.Select(name, variant)
		if err != nil {
			return Bundle{}, fmt.Errorf("assets: select theme %q: %w", name, err)
		}
		if selection != nil {
			bundle.Theme = selection.Theme
			bundle.Variant = selection.Variant
			bundle.Tokens = mergeSelection(selection, urls)
		}
	}

	keys := make([]string, 0, len(urls))
	for key := range urls {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch {
		case strings.HasSuffix(key, ".stylesheet"), strings.HasSuffix(urls[key], ".css"):
			bundle.Stylesheets = append(bundle.Stylesheets, urls[key])
		case strings.HasSuffix(key, ".script"), strings.HasSuffix(urls[key], ".js"):
			bundle.Scripts = append(bundle.Scripts, urls[key])
		}
	}
	return bundle, nil
}

// mergeSelection overlays manifest and variant assets onto urls and returns
// the merged tokens. Only frontedit.* keys are taken from the manifest.
func mergeSelection(selection *theme.Selection, urls map[string]string) map[string]string {
	manifest := selection.Manifest
	if manifest == nil {
		return nil
	}
	tokens := make(map[string]string, len(manifest.Tokens))
	for key, value := range manifest.Tokens {
		tokens[key] = value
	}

	prefix := manifest.Assets.Prefix
	files := map[string]string{}
	for key, file := range manifest.Assets.Files {
		files[key] = file
	}
	if v, ok := manifest.Variants[selection.Variant]; ok {
		if v.Assets.Prefix != "" {
			prefix = v.Assets.Prefix
		}
		for key, file := range v.Assets.Files {
			files[key] = file
		}
		for key, value := range v.Tokens {
			tokens[key] = value
		}
	}
	for key, file := range files {
		if strings.HasPrefix(key, "frontedit.") {
			urls[key] = join(prefix, file)
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// Bootstrap is the client configuration published with the head tags.
type Bootstrap struct {
	SaveURL  string            `json:"saveURL"`
	EditURL  string            `json:"editURL,omitempty"`
	Language int               `json:"language"`
	Locale   string            `json:"locale,omitempty"`
	Tokens   map[string]string `json:"tokens,omitempty"`
	Hidden   map[string]string `json:"-"`
}

// Head renders the stylesheet links, the JSON bootstrap, a hidden form
// carrying Hidden fields and the script tags.
func (r *Resolver) Head(bundle Bundle, boot Bootstrap) (string, error) {
	if boot.Tokens == nil {
		boot.Tokens = bundle.Tokens
	}
	config, err := json.Marshal(boot)
	if err != nil {
		return "", fmt.Errorf("assets: encode bootstrap: %w", err)
	}
	out, err := r.engine.RenderTemplate("head", map[string]any{
		"stylesheets": bundle.Stylesheets,
		"scripts":     bundle.Scripts,
		"config":      string(config),
		"hidden":      render.HiddenInputs(boot.Hidden),
	})
	if err != nil {
		return "", fmt.Errorf("assets: render head: %w", err)
	}
	return out, nil
}

func join(prefix, file string) string {
	file = strings.TrimSpace(file)
	if strings.Contains(file, "://") || strings.HasPrefix(file, "//") || prefix == "" {
		return file
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(file, "/")
}
