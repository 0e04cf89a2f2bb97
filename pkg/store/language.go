package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-frontedit/pkg/model"
)

// LanguageValue keeps one string per language id. Language 0 is the default
// and the fallback for languages without a value.
type LanguageValue map[int]string

var _ model.LanguageValues = LanguageValue(nil)

// NewLanguageValue returns a value holding def for the default language.
func NewLanguageValue(def string) LanguageValue {
	return LanguageValue{0: def}
}

func (v LanguageValue) LanguageValue(language int) string {
	if value, ok := v[language]; ok && value != "" {
		return value
	}
	return v[0]
}

// SetLanguageValue mutates v in place. v must be non-nil.
func (v LanguageValue) SetLanguageValue(language int, value string) {
	v[language] = value
}

func (v LanguageValue) String() string {
	return v[0]
}

// Clone returns an independent copy.
func (v LanguageValue) Clone() LanguageValue {
	out := make(LanguageValue, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// ParseLanguageValue converts a decoded map (string or int keys) into a
// LanguageValue. Plain strings become the default language value.
func ParseLanguageValue(raw any) (LanguageValue, error) {
	out := LanguageValue{}
	switch v := raw.(type) {
	case nil:
		return out, nil
	case LanguageValue:
		return v.Clone(), nil
	case string:
		out[0] = v
		return out, nil
	case map[string]any:
		for key, value := range v {
			id, err := strconv.Atoi(strings.TrimSpace(key))
			if err != nil {
				return nil, fmt.Errorf("store: language id %q: %w", key, err)
			}
			out[id] = fmt.Sprint(value)
		}
		return out, nil
	case map[string]string:
		for key, value := range v {
			id, err := strconv.Atoi(strings.TrimSpace(key))
			if err != nil {
				return nil, fmt.Errorf("store: language id %q: %w", key, err)
			}
			out[id] = value
		}
		return out, nil
	case map[any]any:
		for key, value := range v {
			id, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(key)))
			if err != nil {
				return nil, fmt.Errorf("store: language id %v: %w", key, err)
			}
			out[id] = fmt.Sprint(value)
		}
		return out, nil
	case map[int]any:
		for key, value := range v {
			out[key] = fmt.Sprint(value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("store: unsupported language value %T", raw)
	}
}
