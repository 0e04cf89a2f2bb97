// Package sanitize holds the HTML policies used when values come back from the
// browser: a rich-text policy for markup-bearing fields and a strict policy
// that removes every tag from plain text fields.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicyOnce sync.Once
	richPolicy     *bluemonday.Policy

	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy

	nameCharset = regexp.MustCompile(`[^A-Za-z0-9_]`)
	lineBreaks  = strings.NewReplacer(
		"<br>", "\n",
		"<br/>", "\n",
		"<br />", "\n",
		"<BR>", "\n",
		"<BR/>", "\n",
		"<BR />", "\n",
		"</p><p>", "\n",
		"</div><div>", "\n",
		"<p>", "",
		"</p>", "",
		"<div>", "\n",
		"</div>", "",
	)
)

// RichText cleans markup submitted for rich text fields, keeping the tags a
// user-generated-content policy allows.
func RichText(raw string) string {
	return strings.TrimSpace(richTextPolicy().Sanitize(raw))
}

// StripTags removes every tag and decodes entities, returning plain text.
func StripTags(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := strictTextPolicy().Sanitize(raw)
	return html.UnescapeString(cleaned)
}

// LineBreaks converts the line-break markup produced by contenteditable
// regions into literal newlines. A leading newline introduced by an opening
// block element is dropped.
func LineBreaks(raw string) string {
	if raw == "" {
		return ""
	}
	out := lineBreaks.Replace(raw)
	return strings.TrimPrefix(out, "\n")
}

// FieldName reduces name to the canonical field-name charset. Callers compare
// the result with the input to reject non-canonical names.
func FieldName(name string) string {
	return nameCharset.ReplaceAllString(strings.TrimSpace(name), "")
}

// IsFieldName reports whether name is already canonical and non-empty.
func IsFieldName(name string) bool {
	return name != "" && FieldName(name) == name
}

func richTextPolicy() *bluemonday.Policy {
	richPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class").Globally()
		policy.AllowElements("figure", "figcaption")
		richPolicy = policy
	})
	return richPolicy
}

func strictTextPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}
