package markup

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-frontedit/pkg/editor"
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
		{ID: 3, Name: "settings", Type: model.TypeJSON},
		{ID: 4, Name: "year", Type: model.TypeInteger},
	},
}

var editorActor = model.StaticActor{Username: "ed", Permissions: []string{"record-edit"}}

type fixture struct {
	scanner *Scanner
	current model.Record
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := memory.New()
	st.Put(store.NewRecord(5, "/about/", pageTemplate, store.WithLocked("year"), store.WithValues(map[string]any{
		"title":   "About",
		"summary": "Summary",
	})))
	st.Put(store.NewRecord(9, "/contact/", pageTemplate, store.WithValues(map[string]any{
		"title": "Contact",
	})))

	renderer, err := editor.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	current, err := st.Get(context.Background(), "5")
	if err != nil {
		t.Fatalf("load current: %v", err)
	}
	return fixture{scanner: NewScanner(renderer, WithStore(st)), current: current}
}

func (f fixture) scan(markup string) string {
	return f.scanner.Scan(context.Background(), Request{
		Pass:   editor.NewPass(),
		Actor:  editorActor,
		Record: f.current,
	}, markup)
}

func TestScan_NoMarkersIsNoop(t *testing.T) {
	f := newFixture(t)
	docs := []string{
		"",
		"<html><body><p>Plain</p></body></html>",
		`<div data-edit="5.title" class="editor"><editor>x</editor></div>`,
		"<p>Please edit this text; edit=later</p><EDITOR/>",
	}
	for _, doc := range docs {
		if got := f.scan(doc); got != doc {
			t.Fatalf("expected byte-identical output\nwant: %q\n got: %q", doc, got)
		}
	}
}

func TestScan_TagInlineRegion(t *testing.T) {
	f := newFixture(t)
	got := f.scan(`<h1><edit title>About</edit></h1>`)
	want := `<h1><span id="fe-edit-1" class="fe-edit fe-edit-text" data-fe-name="title" data-fe-record="5">` +
		`<span class="fe-edit-orig">About</span>` +
		`<span class="fe-edit-copy" contenteditable="true" hidden>About</span></span></h1>`
	if got != want {
		t.Fatalf("inline mismatch\nwant: %s\n got: %s", want, got)
	}
}

func TestScan_TagRegionKinds(t *testing.T) {
	cases := []struct {
		name   string
		markup string
		inline int
		modal  int
		want   string
	}{
		{name: "single inline field", markup: `<edit title>About</edit>`, inline: 1},
		{name: "explicit field key", markup: `<EDIT field="title">About</EDIT>`, inline: 1},
		{name: "two fields", markup: `<edit title,summary><p>About</p></edit>`, modal: 1},
		{name: "bare tokens", markup: `<edit title summary><p>About</p></edit>`, modal: 1},
		{name: "non-inline field", markup: `<edit settings><p>About</p></edit>`, modal: 1},
		{name: "locked field only", markup: `<edit year><p>2001</p></edit>`, want: `<p>2001</p>`},
		{name: "unknown field", markup: `<edit nope><p>About</p></edit>`, want: `<p>About</p>`},
		{name: "non-canonical name", markup: `<edit names="t-i tle"><p>About</p></edit>`, want: `<p>About</p>`},
		{name: "no field list", markup: `<edit page=9><p>About</p></edit>`, want: `<p>About</p>`},
		{name: "locked and editable", markup: "<edit names='year,title'>\n<b>About</b>\n</edit>", inline: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			got := f.scan(tc.markup)
			if n := strings.Count(got, `class="fe-edit fe-edit-`); n != tc.inline {
				t.Fatalf("inline wrappers: want %d, got %d in %s", tc.inline, n, got)
			}
			if n := strings.Count(got, `class="fe-modal"`); n != tc.modal {
				t.Fatalf("modal wrappers: want %d, got %d in %s", tc.modal, n, got)
			}
			if tc.want != "" && got != tc.want {
				t.Fatalf("want %q, got %q", tc.want, got)
			}
			if strings.Contains(strings.ToLower(got), "<edit") {
				t.Fatalf("marker left in output: %s", got)
			}
		})
	}
}

func TestScan_TagLocators(t *testing.T) {
	cases := []struct {
		name   string
		markup string
		record string
	}{
		{"id before field", `<edit 9.title>Contact</edit>`, `data-fe-record="9"`},
		{"field before id", `<edit title.9>Contact</edit>`, `data-fe-record="9"`},
		{"colon separator", `<edit 9:title>Contact</edit>`, `data-fe-record="9"`},
		{"page attribute", `<edit title page=9>Contact</edit>`, `data-fe-record="9"`},
		{"path locator", `<edit title page="/contact/">Contact</edit>`, `data-fe-record="9"`},
		{"unresolved falls back to current", `<edit title page="/missing/">About</edit>`, `data-fe-record="5"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			got := f.scan(tc.markup)
			if !strings.Contains(got, tc.record) {
				t.Fatalf("expected %s in %s", tc.record, got)
			}
		})
	}
}

func TestScan_InlineEmptyMarkerUsesFormattedValue(t *testing.T) {
	f := newFixture(t)
	got := f.scan(`<edit 9.title></edit>`)
	if !strings.Contains(got, `<span class="fe-edit-orig">Contact</span>`) {
		t.Fatalf("expected formatted value from record, got %s", got)
	}
}

func TestScan_ExistingInlineMarkerIsUnwrapped(t *testing.T) {
	f := newFixture(t)
	first := f.scan(`<edit title>About</edit>`)

	replayed := f.scan(`<edit title>` + first + `</edit>`)
	if replayed != first {
		t.Fatalf("expected replay to keep existing editor\nwant: %s\n got: %s", first, replayed)
	}

	nested := f.scan(`<edit summary><edit title>About</edit></edit>`)
	if strings.Count(nested, `id="fe-edit-`) != 1 || strings.Contains(nested, "<edit") {
		t.Fatalf("expected nested marker resolved once and parent unwrapped, got %s", nested)
	}
}

func TestScan_ModalIDsUniqueAcrossRegions(t *testing.T) {
	f := newFixture(t)
	got := f.scan(`<edit title,summary>a</edit><edit title,summary>b</edit><edit settings>c</edit><edit settings>d</edit>`)
	for _, id := range []string{
		`id="fe-modal-5-1_2"`,
		`id="fe-modal-5-1_2_1"`,
		`id="fe-modal-5-3"`,
		`id="fe-modal-5-3_1"`,
	} {
		if strings.Count(got, id) != 1 {
			t.Fatalf("expected exactly one %s in %s", id, got)
		}
	}
}

func TestScan_AttributeMarkers(t *testing.T) {
	f := newFixture(t)
	got := f.scan(`<h2 class="lead" edit="9.title">Contact</h2><p id="intro" edit=summary>Summary</p>`)

	for _, fragment := range []string{
		`<h2 class="lead" id="fe-modal-9-1" data-fe-fields="title"`,
		`<p id="intro" data-fe-id="fe-modal-5-2" data-fe-fields="summary"`,
		`data-fe-trigger="dblclick"`,
	} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("expected %q in %s", fragment, got)
		}
	}
	if strings.Contains(got, ` edit=`) {
		t.Fatalf("marker attribute left in output: %s", got)
	}
}

func TestScan_AttributeMarkerDroppedFields(t *testing.T) {
	f := newFixture(t)
	got := f.scan(`<div class="x" edit="5.year,nope">2001</div><span edit='missing'>y</span>`)
	want := `<div class="x">2001</div><span>y</span>`
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}

	partial := f.scan(`<div edit="title,year,t!tle">x</div>`)
	if !strings.Contains(partial, `data-fe-fields="title"`) {
		t.Fatalf("expected only editable sanitized names kept, got %s", partial)
	}
}

func TestScan_AttributeIdenticalElementsReplacedOnePerOccurrence(t *testing.T) {
	f := newFixture(t)
	element := `<h1 edit="title">About</h1>`
	got := f.scan(element + "\n" + element)

	parts := strings.Split(got, "\n")
	if len(parts) != 2 {
		t.Fatalf("unexpected output %s", got)
	}
	if !strings.Contains(parts[0], `id="fe-modal-5-1"`) || strings.Contains(parts[0], `fe-modal-5-1_1`) {
		t.Fatalf("first element should get the first id, got %s", parts[0])
	}
	if !strings.Contains(parts[1], `id="fe-modal-5-1_1"`) {
		t.Fatalf("second element should get its own id, got %s", parts[1])
	}
}

func TestScan_DeniedActorLeavesContent(t *testing.T) {
	f := newFixture(t)
	got := f.scanner.Scan(context.Background(), Request{
		Pass:   editor.NewPass(),
		Actor:  model.Guest,
		Record: f.current,
	}, `<edit title>About</edit><p edit="title">x</p>`)
	if got != `About<p>x</p>` {
		t.Fatalf("expected markers dropped with content preserved, got %q", got)
	}
}

func TestStrip(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"tag", `<h1><edit title>About</edit></h1>`, `<h1>About</h1>`},
		{"tag across lines", "<Edit 5.body>\n<p>a</p>\n</EDIT>", "\n<p>a</p>\n"},
		{"nested tags", `<edit a><edit b>x</edit> y</edit>`, `x y`},
		{"attribute quoted", `<p class="c" edit="5.title" id=x>t</p>`, `<p class="c" id=x>t</p>`},
		{"attribute unquoted", `<img edit=5.image src="a.png" />`, `<img src="a.png" />`},
		{"attribute bare", `<p edit>t</p>`, `<p>t</p>`},
		{"both syntaxes", `<edit title><h1 edit='title'>A</h1></edit>`, `<h1>A</h1>`},
		{"no markers", `<p data-edit="1" title="edit=me">edit</p>`, `<p data-edit="1" title="edit=me">edit</p>`},
	}
	for _, tc := range cases {
		once := Strip(tc.in)
		if diff := cmp.Diff(tc.want, once); diff != "" {
			t.Fatalf("%s: strip mismatch (-want +got):\n%s", tc.name, diff)
		}
		if twice := Strip(once); twice != once {
			t.Fatalf("%s: strip is not idempotent: %q vs %q", tc.name, once, twice)
		}
	}
}

func TestParseReference(t *testing.T) {
	cases := []struct {
		in   string
		want Reference
	}{
		{"title", Reference{Names: []string{"title"}}},
		{"123.title,body", Reference{Locator: "123", Names: []string{"title", "body"}}},
		{"title.123", Reference{Locator: "123", Names: []string{"title"}}},
		{"123:title", Reference{Locator: "123", Names: []string{"title"}}},
		{"about:title", Reference{Locator: "about", Names: []string{"title"}}},
		{"12.34", Reference{Locator: "34", Names: []string{"12"}}},
		{" body , title , body ,, ", Reference{Names: []string{"body", "title"}}},
		{"t-i tle", Reference{}},
		{"5.t-i tle,summary", Reference{Locator: "5", Names: []string{"summary"}}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, ParseReference(tc.in)); diff != "" {
			t.Fatalf("parse %q mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestParseTagMarker(t *testing.T) {
	cases := []struct {
		in   string
		want Reference
	}{
		{` title`, Reference{Names: []string{"title"}}},
		{` fields="title, summary" page=9`, Reference{Locator: "9", Names: []string{"title", "summary"}}},
		{` name='title' page="/contact/"`, Reference{Locator: "/contact/", Names: []string{"title"}}},
		{` 9.title page=3`, Reference{Locator: "9", Names: []string{"title"}}},
		{` field=9 page=title`, Reference{Locator: "9", Names: []string{"title"}}},
		{` field=9 page=3`, Reference{Locator: "3", Names: []string{"9"}}},
		{``, Reference{}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, ParseTagMarker(tc.in)); diff != "" {
			t.Fatalf("parse %q mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}
