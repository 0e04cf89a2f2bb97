package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/goliatone/go-frontedit/pkg/model"
)

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func markdownRenderer() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

// Format renders a field value for display. Text is escaped, with newlines
// turned into <br> when the field lists the nl2br text formatter. Markdown
// is rendered to HTML and rich text is returned as stored.
func Format(field model.Field, value any, language int) string {
	raw := Raw(value, language)
	switch {
	case field.IsType(model.TypeMarkdown):
		var buf bytes.Buffer
		if err := markdownRenderer().Convert([]byte(raw), &buf); err != nil {
			return html.EscapeString(raw)
		}
		return strings.TrimSpace(buf.String())
	case field.Caps.Has(model.CapRichText) || field.IsType(model.TypeRichText):
		return raw
	case field.IsType(model.TypeCheckbox):
		if raw == "true" || raw == "1" {
			return "1"
		}
		return "0"
	}

	escaped := html.EscapeString(raw)
	if hasFormatter(field, "nl2br") {
		escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
	}
	return escaped
}

// Raw returns the unformatted string form of a value.
func Raw(value any, language int) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case model.LanguageValues:
		return v.LanguageValue(language)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]any, []any:
		payload, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(payload)
	default:
		return fmt.Sprint(v)
	}
}

func hasFormatter(field model.Field, name string) bool {
	for _, item := range strings.Split(field.ConfigValue("textformatters"), ",") {
		if strings.EqualFold(strings.TrimSpace(item), name) {
			return true
		}
	}
	return false
}
