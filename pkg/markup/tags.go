package markup

import (
	"context"
	"regexp"
	"strings"

	"github.com/goliatone/go-frontedit/pkg/editor"
)

// markerTokenRe matches key=value pairs and bare tokens in a tag marker's
// attribute list. Values may be quoted.
var markerTokenRe = regexp.MustCompile(`([A-Za-z]+)\s*=\s*("[^"]*"|'[^']*'|[^\s"']+)|("[^"]*"|'[^']*'|[^\s"'=]+)`)

// ParseTagMarker parses the attribute list of a tag marker. Bare tokens and
// field=, name=, fields=, names= contribute to the field list; page= sets
// the locator. A locator embedded in the field list wins over page=.
func ParseTagMarker(attrs string) Reference {
	var lists []string
	var locator string
	for _, m := range markerTokenRe.FindAllStringSubmatch(attrs, -1) {
		if m[1] == "" {
			lists = append(lists, unquote(m[3]))
			continue
		}
		value := unquote(m[2])
		switch strings.ToLower(m[1]) {
		case "field", "name", "fields", "names":
			lists = append(lists, value)
		case "page":
			locator = value
		}
	}
	names, locator := splitReference(strings.Join(lists, ","), locator)
	return Reference{Locator: locator, Names: splitNames(names)}
}

// scanTags replaces tag markers innermost first, so a marker nested inside
// another is resolved before its parent sees the result.
func (s *Scanner) scanTags(ctx context.Context, req Request, records *recordCache, markup string) string {
	if !s.closeRe.MatchString(markup) {
		return markup
	}
	out := markup
	from := 0
	for {
		loc := s.closeRe.FindStringIndex(out[from:])
		if loc == nil {
			return out
		}
		closeStart, closeEnd := from+loc[0], from+loc[1]
		opens := s.openRe.FindAllStringSubmatchIndex(out[:closeStart], -1)
		if len(opens) == 0 {
			from = closeEnd
			continue
		}
		open := opens[len(opens)-1]
		var attrs string
		if open[2] >= 0 {
			attrs = out[open[2]:open[3]]
		}
		inner := out[open[1]:closeStart]

		replacement := s.resolveTag(ctx, req, records, attrs, inner)
		out = out[:open[0]] + replacement + out[closeEnd:]
		from = open[0] + len(replacement)
	}
}

// resolveTag returns the replacement for one marker. Anything that cannot be
// resolved leaves the inner markup in place without an editor.
func (s *Scanner) resolveTag(ctx context.Context, req Request, records *recordCache, attrs, inner string) string {
	if editor.HasInlineMarker(inner) {
		return inner
	}
	ref := ParseTagMarker(attrs)
	if len(ref.Names) == 0 {
		return inner
	}
	rec, err := records.resolve(ctx, ref.Locator)
	if err != nil {
		return inner
	}

	fields := s.editableFields(req, rec, ref.Names)
	region := editor.Region{Record: rec, Fields: fields, Markup: inner}
	switch {
	case len(fields) == 0:
		return inner
	case len(fields) == 1 && s.classifier.Supports(fields[0]):
		region.Kind = editor.KindInline
		if strings.TrimSpace(inner) == "" {
			region.Markup = rec.Formatted(fields[0].Name)
		}
	default:
		region.Kind = editor.KindModal
	}

	out, err := s.renderer.Render(req.Pass, region)
	if err != nil {
		s.logger.Warn("markup: render region", "kind", region.Kind.String(), "record", rec.ID(), "error", err)
		return inner
	}
	return out
}
