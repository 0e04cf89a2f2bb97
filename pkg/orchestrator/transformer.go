package orchestrator

import (
	"context"
	"regexp"
	"strings"
)

// Transformer rewrites a page after markers have been processed.
type Transformer interface {
	Transform(ctx context.Context, markup string) (string, error)
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, markup string) (string, error)

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, markup string) (string, error) {
	if fn == nil {
		return markup, nil
	}
	return fn(ctx, markup)
}

var (
	headCloseRe = regexp.MustCompile(`(?i)</head\s*>`)
	bodyOpenRe  = regexp.MustCompile(`(?i)<body(?:\s[^>]*)?>`)
)

// InjectHead inserts tags before the first </head>. Documents without a head
// get the tags right after <body>, and fragments get them prepended.
func InjectHead(markup, tags string) string {
	if strings.TrimSpace(tags) == "" {
		return markup
	}
	if loc := headCloseRe.FindStringIndex(markup); loc != nil {
		return markup[:loc[0]] + tags + markup[loc[0]:]
	}
	if loc := bodyOpenRe.FindStringIndex(markup); loc != nil {
		return markup[:loc[1]] + tags + markup[loc[1]:]
	}
	return tags + markup
}
