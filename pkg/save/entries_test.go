package save

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseKey(t *testing.T) {
	cases := []struct {
		key  string
		id   int64
		name string
		ok   bool
	}{
		{"5__title", 5, "title", true},
		{"12__meta_title", 12, "meta_title", true},
		{"5__", 0, "", false},
		{"__title", 0, "", false},
		{"x__title", 0, "", false},
		{"5__ti tle", 0, "", false},
		{"5_title", 0, "", false},
	}
	for _, tc := range cases {
		id, name, ok := ParseKey(tc.key)
		if id != tc.id || name != tc.name || ok != tc.ok {
			t.Fatalf("ParseKey(%q) = %d, %q, %v", tc.key, id, name, ok)
		}
	}
	if got := Key(7, "body"); got != "7__body" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestDecodeEntries_KeepsOrder(t *testing.T) {
	entries, err := DecodeEntries(strings.NewReader(`{"9__title":"B","5__year":2001,"5__title":"A","5__body":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []Entry{
		{Key: "9__title", Value: "B"},
		{Key: "5__year", Value: "2001"},
		{Key: "5__title", Value: "A"},
		{Key: "5__body", Value: ""},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	if _, err := DecodeEntries(strings.NewReader(`["5__title"]`)); err == nil {
		t.Fatalf("expected error for non-object payload")
	}
}

func TestEntriesFromMap(t *testing.T) {
	got := EntriesFromMap(map[string]string{"9__title": "B", "5__title": "A"})
	want := []Entry{{Key: "5__title", Value: "A"}, {Key: "9__title", Value: "B"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionTokens(t *testing.T) {
	tokens := NewSessionTokens()
	first := tokens.Token("abc")
	if first == "" || tokens.Token("abc") != first {
		t.Fatalf("expected a stable token per session")
	}
	if tokens.Token("other") == first {
		t.Fatalf("expected distinct tokens per session")
	}
	if err := tokens.Check(context.Background(), "abc", first); err != nil {
		t.Fatalf("expected token to validate: %v", err)
	}
	if err := tokens.Check(context.Background(), "other", first); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	tokens.Revoke("abc")
	if err := tokens.Check(context.Background(), "abc", first); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
}

func TestNormalizeMessages(t *testing.T) {
	got := normalizeMessages([]string{" a ", "", "b", "a", "  "})
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if normalizeMessages([]string{" "}) != nil {
		t.Fatalf("expected nil for blank input")
	}
}
