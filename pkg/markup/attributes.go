package markup

import (
	"context"
	"regexp"
	"strings"
)

const unquotedValue = "[^\\s\"'<>=`]+"

var (
	// startTagRe matches an HTML start tag with its attribute list.
	startTagRe = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9:-]*)((?:\s+[^\s"'<>/=]+(?:\s*=\s*(?:"[^"]*"|'[^']*'|` + unquotedValue + `))?)*)(\s*/?)>`)
	// attrTokenRe matches one attribute, including its leading whitespace.
	attrTokenRe = regexp.MustCompile(`(\s+)([^\s"'<>/=]+)(?:\s*=\s*("[^"]*"|'[^']*'|` + unquotedValue + `))?`)
)

// rewriteStartTags calls fn for every start tag carrying the marker
// attribute. fn receives the unquoted marker value and whether the element
// already has an id, and returns the text replacing the marker attribute
// (including leading whitespace), or "" to drop it. Each occurrence is
// rewritten on its own; identical elements elsewhere are not touched.
func (s *Scanner) rewriteStartTags(markup string, fn func(value string, hasID bool) string) string {
	if !strings.Contains(strings.ToLower(markup), strings.ToLower(s.attr)) {
		return markup
	}
	return startTagRe.ReplaceAllStringFunc(markup, func(tag string) string {
		m := startTagRe.FindStringSubmatch(tag)
		if m == nil {
			return tag
		}
		attrs := m[2]
		tokens := attrTokenRe.FindAllStringSubmatchIndex(attrs, -1)

		marker := -1
		hasID := false
		for i, tok := range tokens {
			name := attrs[tok[4]:tok[5]]
			switch {
			case strings.EqualFold(name, s.attr) && marker < 0:
				marker = i
			case strings.EqualFold(name, "id"):
				hasID = true
			}
		}
		if marker < 0 {
			return tag
		}

		tok := tokens[marker]
		var value string
		if tok[6] >= 0 {
			value = unquote(attrs[tok[6]:tok[7]])
		}
		rewritten := attrs[:tok[0]] + fn(value, hasID) + attrs[tok[1]:]
		return "<" + m[1] + rewritten + m[3] + ">"
	})
}

func (s *Scanner) scanAttributes(ctx context.Context, req Request, records *recordCache, markup string) string {
	return s.rewriteStartTags(markup, func(value string, hasID bool) string {
		return s.resolveAttribute(ctx, req, records, value, hasID)
	})
}

// resolveAttribute returns the modal trigger attributes for a marker value,
// or "" when no named field is editable.
func (s *Scanner) resolveAttribute(ctx context.Context, req Request, records *recordCache, value string, hasID bool) string {
	ref := ParseReference(value)
	if len(ref.Names) == 0 {
		return ""
	}
	rec, err := records.resolve(ctx, ref.Locator)
	if err != nil {
		return ""
	}
	fields := s.editableFields(req, rec, ref.Names)
	if len(fields) == 0 {
		return ""
	}

	idAttr := "id"
	if hasID {
		idAttr = "data-fe-id"
	}
	attrs, err := s.renderer.ModalAttributes(req.Pass, rec, fields, idAttr)
	if err != nil {
		s.logger.Warn("markup: render attribute marker", "record", rec.ID(), "error", err)
		return ""
	}
	return attrs
}
