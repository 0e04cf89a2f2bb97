package save

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/schema"
	"github.com/goliatone/go-frontedit/pkg/store"
	"github.com/goliatone/go-frontedit/pkg/store/memory"
)

var pageTemplate = schema.Template{
	Name: "basic-page",
	Fields: []model.Field{
		{ID: 1, Name: "title", Type: model.TypeText, Caps: model.CapText},
		{ID: 2, Name: "summary", Type: model.TypeTextarea, Caps: model.CapText | model.CapMultiline},
		{ID: 3, Name: "body", Type: model.TypeRichText, Caps: model.CapMultiline | model.CapRichText | model.CapLanguages},
		{ID: 4, Name: "year", Type: model.TypeInteger},
		{ID: 5, Name: "slug", Type: model.TypeText, Caps: model.CapText},
		{ID: 6, Name: "settings", Type: model.TypeJSON},
	},
}

var editorActor = model.StaticActor{Username: "ed", Permissions: []string{"record-edit"}}

func newStore(t *testing.T, opts ...memory.Option) *memory.Store {
	t.Helper()
	st := memory.New(opts...)
	st.Put(store.NewRecord(5, "/about/", pageTemplate, store.WithLocked("slug"), store.WithValues(map[string]any{
		"title":   "About",
		"summary": "Summary",
		"body":    store.LanguageValue{0: "<p>Hello</p>", 2: "<p>Hallo</p>"},
		"year":    int64(2001),
		"slug":    "about",
	})))
	st.Put(store.NewRecord(9, "/contact/", pageTemplate, store.WithValues(map[string]any{
		"title": "Contact",
	})))
	return st
}

func get(t *testing.T, st model.Store, locator string) model.Record {
	t.Helper()
	rec, err := st.Get(context.Background(), locator)
	if err != nil {
		t.Fatalf("get %s: %v", locator, err)
	}
	return rec
}

func TestSave_ChangedField(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{{Key: "5__title", Value: "Hello"}},
		Actor:   editorActor,
	})

	if result.Status != StatusSuccess {
		t.Fatalf("expected status 1, got %d (%s)", result.Status, result.Error)
	}
	if result.Error != "" {
		t.Fatalf("expected no error, got %q", result.Error)
	}
	if got := result.Unformatted["5__title"]; got != "Hello" {
		t.Fatalf("expected unformatted Hello, got %q", got)
	}
	if result.Changes != "title" {
		t.Fatalf("expected changes title, got %q", result.Changes)
	}
	if got := get(t, st, "5").Get("title"); got != "Hello" {
		t.Fatalf("expected title persisted, got %v", got)
	}
}

func TestSave_PartialWhenFieldDenied(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{
			{Key: "5__title", Value: "Hello"},
			{Key: "5__slug", Value: "hello"},
		},
		Actor: editorActor,
	})

	if result.Status != StatusPartial {
		t.Fatalf("expected status 2, got %d (%s)", result.Status, result.Error)
	}
	if !strings.Contains(result.Error, "slug") {
		t.Fatalf("expected error to name the denied field, got %q", result.Error)
	}
	rec := get(t, st, "5")
	if rec.Get("title") != "Hello" || rec.Get("slug") != "about" {
		t.Fatalf("expected title saved and slug untouched, got %v / %v", rec.Get("title"), rec.Get("slug"))
	}
}

func TestSave_NoChanges(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{{Key: "5__title", Value: "About"}, {Key: "5__summary", Value: "Summary"}},
		Actor:   editorActor,
	})

	want := Result{
		Status:      StatusNoChanges,
		Formatted:   map[string]string{"5__title": "About", "5__summary": "Summary"},
		Unformatted: map[string]string{"5__title": "About", "5__summary": "Summary"},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_FailedCSRFCheck(t *testing.T) {
	saves := 0
	st := newStore(t, memory.WithSaveHook(func(context.Context, model.Record) error {
		saves++
		return nil
	}))
	tokens := NewSessionTokens()
	valid := tokens.Token("session-1")
	pipeline := NewPipeline(st, WithTokenChecker(tokens))

	for _, token := range []string{"", "tampered", valid + "x"} {
		result := pipeline.Save(context.Background(), Request{
			Entries: []Entry{{Key: "5__title", Value: "Hello"}},
			Actor:   editorActor,
			Session: "session-1",
			Token:   token,
		})
		if result.Status != StatusError || result.Error != FailedCSRFMessage {
			t.Fatalf("token %q: expected CSRF failure, got %d %q", token, result.Status, result.Error)
		}
		if len(result.Unformatted) != 0 {
			t.Fatalf("token %q: expected no values, got %v", token, result.Unformatted)
		}
	}
	if saves != 0 {
		t.Fatalf("expected no saves, got %d", saves)
	}
	if got := get(t, st, "5").Get("title"); got != "About" {
		t.Fatalf("expected title untouched, got %v", got)
	}

	result := pipeline.Save(context.Background(), Request{
		Entries: []Entry{{Key: "5__title", Value: "Hello"}},
		Actor:   editorActor,
		Session: "session-1",
		Token:   valid,
	})
	if result.Status != StatusSuccess {
		t.Fatalf("expected valid token to pass, got %d %q", result.Status, result.Error)
	}
}

func TestSave_PersistenceFailure(t *testing.T) {
	boom := errors.New("disk full")
	st := newStore(t, memory.WithSaveHook(func(_ context.Context, rec model.Record) error {
		if rec.ID() == 9 {
			return boom
		}
		return nil
	}))
	pipeline := NewPipeline(st)

	only := pipeline.Save(context.Background(), Request{
		Entries: []Entry{{Key: "9__title", Value: "Write to us"}},
		Actor:   editorActor,
	})
	if only.Status != StatusError || !strings.Contains(only.Error, "disk full") {
		t.Fatalf("expected status 0 with persistence error, got %d %q", only.Status, only.Error)
	}
	if got := only.Unformatted["9__title"]; got != "Contact" {
		t.Fatalf("expected response from stored record, got %q", got)
	}

	mixed := pipeline.Save(context.Background(), Request{
		Entries: []Entry{
			{Key: "5__title", Value: "Hello"},
			{Key: "9__title", Value: "Write to us"},
		},
		Actor: editorActor,
	})
	if mixed.Status != StatusPartial {
		t.Fatalf("expected status 2, got %d %q", mixed.Status, mixed.Error)
	}
	if mixed.Changes != "title" || mixed.Unformatted["5__title"] != "Hello" {
		t.Fatalf("expected record 5 saved, got %+v", mixed)
	}
}

func TestSave_ValidationError(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{{Key: "5__year", Value: "soon"}},
		Actor:   editorActor,
	})
	if result.Status != StatusError {
		t.Fatalf("expected status 0, got %d", result.Status)
	}
	if !strings.HasPrefix(result.Error, "year: ") {
		t.Fatalf("expected error annotated with field name, got %q", result.Error)
	}
	if got := get(t, st, "5").Get("year"); got != int64(2001) {
		t.Fatalf("expected year untouched, got %v", got)
	}
}

func TestSave_DropsInvalidKeysAndUnknownRecords(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{
			{Key: "5__ti-tle", Value: "x"},
			{Key: "abc__title", Value: "x"},
			{Key: "title", Value: "x"},
			{Key: "99__title", Value: "x"},
		},
		Actor: editorActor,
	})
	if result.Status != StatusNoChanges || result.Error != "" {
		t.Fatalf("expected status 3 without errors, got %d %q", result.Status, result.Error)
	}
	if len(result.Formatted) != 0 || len(result.Unformatted) != 0 {
		t.Fatalf("expected no values, got %v %v", result.Formatted, result.Unformatted)
	}
}

func TestSave_UnknownAndModalOnlyFields(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{
			{Key: "5__missing", Value: "x"},
			{Key: "5__settings", Value: `{"a":1}`},
		},
		Actor: editorActor,
	})
	if result.Status != StatusError {
		t.Fatalf("expected status 0, got %d", result.Status)
	}
	want := []string{"missing: unknown field on record 5", "settings: not editable"}
	if diff := cmp.Diff(want, result.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_ModalAcceptsFormOnlyFields(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{{Key: "5__settings", Value: `{"a":"b"}`}},
		Actor:   editorActor,
		Modal:   true,
	})
	if result.Status != StatusSuccess {
		t.Fatalf("expected status 1, got %d (%s)", result.Status, result.Error)
	}
	want := map[string]any{"a": "b"}
	if diff := cmp.Diff(want, get(t, st, "5").Get("settings")); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_ModalStillChecksAccess(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{{Key: "5__slug", Value: "hello"}},
		Actor:   editorActor,
		Modal:   true,
	})
	if result.Status != StatusError {
		t.Fatalf("expected status 0, got %d", result.Status)
	}
	if diff := cmp.Diff([]string{"slug: not editable"}, result.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_TextNormalization(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{
			{Key: "5__title", Value: "<b>Tea</b> &amp; cake"},
			{Key: "5__summary", Value: "<p>one</p><p>two<br>three</p>"},
		},
		Actor: editorActor,
	})
	if result.Status != StatusSuccess {
		t.Fatalf("expected status 1, got %d %q", result.Status, result.Error)
	}
	if got := result.Unformatted["5__title"]; got != "Tea & cake" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := result.Formatted["5__title"]; got != "Tea &amp; cake" {
		t.Fatalf("unexpected formatted title %q", got)
	}
	if got := result.Unformatted["5__summary"]; got != "one\ntwo\nthree" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestSave_LanguageValue(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries:  []Entry{{Key: "5__body", Value: "<p>Guten Tag</p><script>x()</script>"}},
		Actor:    editorActor,
		Language: 2,
	})
	if result.Status != StatusSuccess {
		t.Fatalf("expected status 1, got %d %q", result.Status, result.Error)
	}
	if got := result.Unformatted["5__body"]; got != "<p>Guten Tag</p>" {
		t.Fatalf("unexpected body %q", got)
	}

	stored, ok := get(t, st, "5").Get("body").(model.LanguageValues)
	if !ok {
		t.Fatalf("expected language values to be kept")
	}
	if got := stored.LanguageValue(0); got != "<p>Hello</p>" {
		t.Fatalf("expected default language untouched, got %q", got)
	}
	if got := stored.LanguageValue(2); got != "<p>Guten Tag</p>" {
		t.Fatalf("expected language 2 updated, got %q", got)
	}
}

func TestSave_PrefersInSessionRecord(t *testing.T) {
	st := newStore(t)
	current := get(t, st, "5")

	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{{Key: "5__title", Value: "Hello"}},
		Actor:   editorActor,
		Record:  current,
	})
	if result.Status != StatusSuccess {
		t.Fatalf("expected status 1, got %d %q", result.Status, result.Error)
	}
	if got := current.Get("title"); got != "Hello" {
		t.Fatalf("expected in-session record mutated, got %v", got)
	}
}

func TestSave_DeniedActor(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{{Key: "5__title", Value: "Hello"}},
		Actor:   model.Guest,
	})
	if result.Status != StatusError || result.Error != "title: not editable" {
		t.Fatalf("expected denied save, got %d %q", result.Status, result.Error)
	}
}

func TestSave_FirstRecordUnchanged(t *testing.T) {
	st := newStore(t)
	result := NewPipeline(st).Save(context.Background(), Request{
		Entries: []Entry{
			{Key: "5__title", Value: "About"},
			{Key: "9__title", Value: "Write to us"},
		},
		Actor: editorActor,
	})
	if result.Status != StatusSuccess {
		t.Fatalf("expected status 1, got %d %q", result.Status, result.Error)
	}
}
