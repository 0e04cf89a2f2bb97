package save

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-frontedit/pkg/sanitize"
)

// KeySeparator separates the record id from the field name in a batch key.
const KeySeparator = "__"

// Entry is one posted edit.
type Entry struct {
	Key   string
	Value string
}

// Key builds the batch key for a record field.
func Key(recordID int64, field string) string {
	return strconv.FormatInt(recordID, 10) + KeySeparator + field
}

// ParseKey splits a batch key into record id and field name. Keys with a
// non-numeric record part or a non-canonical field name are rejected.
func ParseKey(key string) (int64, string, bool) {
	idx := strings.Index(key, KeySeparator)
	if idx <= 0 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(key[:idx], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	name := key[idx+len(KeySeparator):]
	if !sanitize.IsFieldName(name) {
		return 0, "", false
	}
	return id, name, true
}

// EntriesFromMap converts an unordered mapping into entries sorted by key.
func EntriesFromMap(values map[string]string) []Entry {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		out = append(out, Entry{Key: key, Value: values[key]})
	}
	return out
}

// DecodeEntries reads a JSON object of key/value pairs keeping the order in
// which keys appear. Non-string scalar values are kept in their JSON form.
func DecodeEntries(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("save: decode entries: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("save: decode entries: expected a JSON object")
	}

	var out []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("save: decode entries: %w", err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("save: decode entry %q: %w", key, err)
		}
		value, err := entryValue(raw)
		if err != nil {
			return nil, fmt.Errorf("save: decode entry %q: %w", key, err)
		}
		out = append(out, Entry{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("save: decode entries: %w", err)
	}
	return out, nil
}

func entryValue(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return "", nil
	case trimmed[0] == '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return "", err
		}
		return value, nil
	default:
		return string(trimmed), nil
	}
}
