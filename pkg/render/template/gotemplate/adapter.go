package gotemplate

import (
	"fmt"
	"html"
	"io/fs"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"
	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-frontedit/pkg/render/template"
)

// Option configures the adapter before construction.
type Option func(*config)

type config struct {
	baseDir    string
	templates  fs.FS
	templateFn map[string]any
	globalData map[string]any
}

// WithBaseDir loads templates from a directory on disk. It is searched before
// the fs.FS given to WithFS, so a site can override bundled templates.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithTemplateFunc registers helper functions or filters when the engine loads.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		for name, fn := range funcs {
			if cfg.templateFn == nil {
				cfg.templateFn = make(map[string]any, len(funcs))
			}
			cfg.templateFn[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds global context values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		for key, value := range data {
			if cfg.globalData == nil {
				cfg.globalData = make(map[string]any, len(data))
			}
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// Engine is a go-template renderer with the attrs filter registered.
// Templates use the .tpl extension and data is converted to a template
// context through JSON, so struct values follow their json tags.
type Engine struct {
	*gotemplatepkg.Engine
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New constructs an Engine. At least one of WithBaseDir or WithFS is required.
func New(options ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.baseDir == "" && cfg.templates == nil {
		return nil, fmt.Errorf("gotemplate: need to provide either base dir or fs.FS")
	}

	funcs := map[string]any{"attrs": filterAttrs}
	for name, fn := range cfg.templateFn {
		if name != "" && fn != nil {
			funcs[name] = fn
		}
	}
	opts := []gotemplatepkg.Option{gotemplatepkg.WithTemplateFunc(funcs)}
	if cfg.baseDir != "" {
		opts = append(opts, gotemplatepkg.WithBaseDir(cfg.baseDir))
	}
	if cfg.templates != nil {
		opts = append(opts, gotemplatepkg.WithFS(cfg.templates))
	}
	if len(cfg.globalData) > 0 {
		opts = append(opts, gotemplatepkg.WithGlobalData(cfg.globalData))
	}

	engine, err := gotemplatepkg.NewRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load templates: %w", err)
	}
	return &Engine{Engine: engine}, nil
}

// filterAttrs renders a map as a sorted, escaped HTML attribute list with a
// leading space per attribute. The optional parameter prefixes every name,
// e.g. {{ init|attrs:"data-" }}.
func filterAttrs(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	values, ok := in.Interface().(map[string]any)
	if !ok || len(values) == 0 {
		return pongo2.AsSafeValue(""), nil
	}
	prefix := ""
	if param != nil && !param.IsNil() {
		prefix = param.String()
	}

	names := make([]string, 0, len(values))
	for name := range values {
		if isAttrName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(" ")
		b.WriteString(prefix)
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(fmt.Sprint(values[name])))
		b.WriteString(`"`)
	}
	return pongo2.AsSafeValue(b.String()), nil
}

func isAttrName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
