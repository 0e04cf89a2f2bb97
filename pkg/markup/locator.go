package markup

import (
	"strings"

	"github.com/goliatone/go-frontedit/pkg/sanitize"
)

// Reference is the parsed target of a marker: a record locator (numeric id,
// path, or empty for the current record) and the requested field names.
type Reference struct {
	Locator string
	Names   []string
}

// ParseReference splits a marker value such as "123.title,body",
// "title.123", "123:title" or "title". The left side of the separator is the
// locator and the right side the field list, unless the right side is all
// digits and the left is not, in which case they are swapped. When both
// sides are all digits the first token is read as the field list.
func ParseReference(value string) Reference {
	names, locator := splitReference(strings.TrimSpace(value), "")
	return Reference{Locator: locator, Names: splitNames(names)}
}

// splitReference separates an embedded locator from names and applies the
// swap heuristic against locator.
func splitReference(names, locator string) (string, string) {
	embedded := false
	if idx := strings.IndexAny(names, ".:"); idx >= 0 {
		locator, names = names[:idx], names[idx+1:]
		embedded = true
	}
	names = strings.TrimSpace(names)
	locator = strings.TrimSpace(locator)
	if locator == "" || !isDigits(names) {
		return names, locator
	}
	if !isDigits(locator) || embedded {
		names, locator = locator, names
	}
	return names, locator
}

func splitNames(list string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(list, ",") {
		// Names are matched as written; "t-i tle" must not resolve to title.
		name := strings.TrimSpace(raw)
		if !sanitize.IsFieldName(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return value
}
