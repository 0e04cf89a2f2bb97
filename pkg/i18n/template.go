package i18n

import (
	"fmt"
	"reflect"
	"strings"
)

// TemplateConfig configures template-level translation helpers.
type TemplateConfig struct {
	// LocaleKey selects the key used to infer the locale when templates pass
	// a map or struct instead of a locale string.
	LocaleKey string
	// FuncName customises the translator helper name (defaults to "translate").
	FuncName string
	OnMissing MissingTranslationHandler
}

// TemplateFuncs returns helpers suitable for the template engine's global
// context:
//
//	translate(localeSrc, key, ...args) string
//	current_locale(localeSrc) string
func TemplateFuncs(t Translator, cfg TemplateConfig) map[string]any {
	localeKey := strings.TrimSpace(cfg.LocaleKey)
	if localeKey == "" {
		localeKey = "locale"
	}
	translateName := strings.TrimSpace(cfg.FuncName)
	if translateName == "" {
		translateName = "translate"
	}
	onMissing := cfg.OnMissing
	if onMissing == nil {
		onMissing = MissingTranslationDefault
	}

	return map[string]any{
		translateName: func(localeSrc any, key string, params ...any) string {
			key = strings.TrimSpace(key)
			if key == "" {
				return ""
			}
			locale := resolveLocale(localeSrc, localeKey)
			if t == nil {
				return onMissing(locale, key, params, ErrMissingTranslator)
			}
			msg, err := t.Translate(locale, key, params...)
			if err != nil || strings.TrimSpace(msg) == "" {
				return onMissing(locale, key, params, err)
			}
			return msg
		},
		"current_locale": func(localeSrc any) string {
			return resolveLocale(localeSrc, localeKey)
		},
	}
}

func resolveLocale(src any, key string) string {
	if src == nil {
		return ""
	}
	if str, ok := src.(string); ok {
		return str
	}

	switch data := src.(type) {
	case map[string]any:
		if v, ok := data[key]; ok {
			if str, ok := v.(string); ok {
				return str
			}
			return strings.TrimSpace(fmt.Sprint(v))
		}
	case map[string]string:
		return data[key]
	}

	value := reflect.ValueOf(src)
	for value.IsValid() && value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return ""
		}
		value = value.Elem()
	}
	if value.IsValid() && value.Kind() == reflect.Struct {
		field := value.FieldByName(key)
		if field.IsValid() && field.Kind() == reflect.String {
			return field.String()
		}
	}
	return ""
}
