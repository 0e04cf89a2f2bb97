package access

import (
	"testing"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/schema"
	"github.com/goliatone/go-frontedit/pkg/store"
)

type recordActor struct {
	allowed map[int64]bool
}

func (a recordActor) Name() string { return "scoped" }

func (a recordActor) HasPermission(name string, record model.Record) bool {
	return name == DefaultPermission && record != nil && a.allowed[record.ID()]
}

func fixtures() (*store.Record, *store.DerivedRecord) {
	page := store.NewRecord(5, "/about/", schema.Template{
		Name: "basic-page",
		Fields: []model.Field{
			{ID: 1, Name: "title", Type: model.TypeText},
			{ID: 2, Name: "summary", Type: model.TypeTextarea},
			{ID: 3, Name: "blocks", Type: model.TypeJSON},
		},
	}, store.WithLocked("summary"))

	block := store.NewRecord(7, "/about/blocks/1/", schema.Template{
		Name:   "block",
		Fields: []model.Field{{ID: 11, Name: "heading", Type: model.TypeText}},
	})
	return page, store.NewDerivedRecord(block, page, "blocks")
}

func TestCanEdit_DirectRecord(t *testing.T) {
	page, _ := fixtures()
	resolver := NewResolver()
	editor := model.StaticActor{Username: "ed", Permissions: []string{DefaultPermission}}

	cases := []struct {
		name  string
		actor model.Actor
		field string
		want  bool
	}{
		{"editable field", editor, "title", true},
		{"locked field", editor, "summary", false},
		{"unknown field", editor, "missing", false},
		{"empty field name", editor, "", false},
		{"guest", model.Guest, "title", false},
		{"nil actor", nil, "title", false},
	}
	for _, tc := range cases {
		if got := resolver.CanEdit(tc.actor, page, tc.field); got != tc.want {
			t.Fatalf("%s: want %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestCanEdit_DerivedRecordDelegatesToOwner(t *testing.T) {
	page, block := fixtures()
	resolver := NewResolver()

	ownerOnly := recordActor{allowed: map[int64]bool{5: true}}
	if !resolver.CanEdit(ownerOnly, block, "heading") {
		t.Fatalf("expected permission on owner to grant derived edit")
	}

	childOnly := recordActor{allowed: map[int64]bool{7: true}}
	if resolver.CanEdit(childOnly, block, "heading") {
		t.Fatalf("expected permission on derived record alone to be insufficient")
	}

	lockedOwner := store.NewDerivedRecord(store.NewRecord(8, "/b/", block.TemplateDef()), page, "summary")
	if resolver.CanEdit(ownerOnly, lockedOwner, "heading") {
		t.Fatalf("expected locked owner field to deny derived edit")
	}
}

func TestCanEditRecord_CustomPermission(t *testing.T) {
	page, _ := fixtures()
	resolver := NewResolver(WithPermission("page-edit"))
	if resolver.Permission() != "page-edit" {
		t.Fatalf("unexpected permission %q", resolver.Permission())
	}

	editor := model.StaticActor{Username: "ed", Permissions: []string{DefaultPermission}}
	if resolver.CanEditRecord(editor, page) {
		t.Fatalf("expected default permission to be insufficient")
	}
	pageEditor := model.StaticActor{Username: "pe", Permissions: []string{"page-edit"}}
	if !resolver.CanEditRecord(pageEditor, page) {
		t.Fatalf("expected custom permission to grant access")
	}
}
