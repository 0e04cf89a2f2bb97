// Package i18n is the localization seam. Callers plug in their own Translator;
// the package supplies fallback handling, template helpers and the mapping
// between numeric language ids used by records and BCP 47 locale tags.
package i18n

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingTranslator is passed to MissingTranslationHandler when no
// translator is configured.
var ErrMissingTranslator = errors.New("i18n: translator not configured")

// Translator resolves a message key for a locale.
type Translator interface {
	Translate(locale, key string, params ...any) (string, error)
}

// MissingTranslationHandler decides what to render when a key cannot be
// translated. err is ErrMissingTranslator or the translator's error.
type MissingTranslationHandler func(locale, key string, params []any, err error) string

// MissingTranslationDefault renders the fallback passed as
// map[string]any{"default": ...} in params, or the key itself.
func MissingTranslationDefault(_ string, key string, params []any, _ error) string {
	for _, param := range params {
		if values, ok := param.(map[string]any); ok {
			if fallback, ok := values["default"].(string); ok && strings.TrimSpace(fallback) != "" {
				return fallback
			}
		}
	}
	return key
}

// Translate resolves key, falling back to fallback (formatted with args) when
// t is nil or has no usable message.
func Translate(t Translator, onMissing MissingTranslationHandler, locale, key, fallback string, args ...any) string {
	if len(args) > 0 {
		fallback = fmt.Sprintf(fallback, args...)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	if onMissing == nil {
		onMissing = MissingTranslationDefault
	}
	params := append([]any{map[string]any{"default": fallback}}, args...)

	if t == nil {
		return onMissing(locale, key, params, ErrMissingTranslator)
	}
	result, err := t.Translate(locale, key, args...)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, params, err)
}

// Catalog is an in-memory Translator keyed by locale then message key.
// Messages are fmt format strings applied to the translation params.
type Catalog map[string]map[string]string

var _ Translator = Catalog(nil)

func (c Catalog) Translate(locale, key string, params ...any) (string, error) {
	messages, ok := c[locale]
	if !ok {
		if base, _, found := strings.Cut(locale, "-"); found {
			messages, ok = c[base]
		}
	}
	if !ok {
		return "", fmt.Errorf("i18n: locale %q not found", locale)
	}
	msg, ok := messages[key]
	if !ok {
		return "", fmt.Errorf("i18n: key %q not found for %q", key, locale)
	}
	if len(params) > 0 {
		return fmt.Sprintf(msg, params...), nil
	}
	return msg, nil
}
