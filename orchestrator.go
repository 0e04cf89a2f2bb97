// Package frontedit overlays in-place editing controls onto server-rendered
// HTML and saves the edits posted back by the browser. The root package
// re-exports the orchestrator so most callers need a single import.
package frontedit

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-frontedit/pkg/assets"
	"github.com/goliatone/go-frontedit/pkg/markup"
	"github.com/goliatone/go-frontedit/pkg/orchestrator"
	"github.com/goliatone/go-frontedit/pkg/save"
	theme "github.com/goliatone/go-theme"
)

// Request describes a page passed to Transform.
type Request = orchestrator.Request

// SaveRequest is one batch of posted edits.
type SaveRequest = save.Request

// SaveResult is the JSON payload returned by the save endpoint.
type SaveResult = save.Result

// Transformer post-processes transformed pages.
type Transformer = orchestrator.Transformer

// New exposes the orchestrator constructor from the top-level module.
func New(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Transform builds an orchestrator and transforms a single page. Prefer New
// when handling many requests.
func Transform(ctx context.Context, req Request, page string, options ...orchestrator.Option) (string, error) {
	return orchestrator.New(options...).Transform(ctx, req, page)
}

// Strip removes every edit marker from page using the default marker names.
func Strip(page string) string {
	return markup.Strip(page)
}

// WithThemeSelector resolves editor assets through a go-theme selector.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) (orchestrator.Option, error) {
	resolver, err := assets.NewResolver(assets.WithSelector(selector, name, variant))
	if err != nil {
		return nil, err
	}
	return orchestrator.WithAssets(resolver), nil
}

// AssetsFS exposes the bundled editor script and stylesheet.
func AssetsFS() fs.FS {
	return assets.StaticFS()
}
