package i18n

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Languages maps numeric language ids, as stored on language-aware records,
// to canonical BCP 47 tags. Id 0 is the default language.
type Languages struct {
	tags map[int]language.Tag
}

// ParseLanguages validates and canonicalises a map of id to locale strings.
func ParseLanguages(raw map[int]string) (Languages, error) {
	out := Languages{tags: make(map[int]language.Tag, len(raw))}
	for id, value := range raw {
		if id < 0 {
			return Languages{}, fmt.Errorf("i18n: negative language id %d", id)
		}
		tag, err := language.Parse(strings.TrimSpace(value))
		if err != nil {
			return Languages{}, fmt.Errorf("i18n: language %d (%q): %w", id, value, err)
		}
		out.tags[id] = tag
	}
	return out, nil
}

// Tag returns the canonical locale for id.
func (l Languages) Tag(id int) (string, bool) {
	tag, ok := l.tags[id]
	if !ok {
		return "", false
	}
	return tag.String(), true
}

// Locale returns the locale for id, falling back to the default language.
func (l Languages) Locale(id int) string {
	if tag, ok := l.Tag(id); ok {
		return tag
	}
	tag, _ := l.Tag(0)
	return tag
}

// Active reports whether more than the default language is configured.
func (l Languages) Active() bool {
	return len(l.tags) > 1
}

// IDs lists configured ids in ascending order.
func (l Languages) IDs() []int {
	ids := make([]int, 0, len(l.tags))
	for id := range l.tags {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
