package assets

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	theme "github.com/goliatone/go-theme"
)

func acmeManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Tokens: map[string]string{
			"brand": "#123456",
		},
		Assets: theme.Assets{
			Prefix: "/assets/themes/acme",
			Files: map[string]string{
				StylesheetKey:       "editor.css",
				"preact.stylesheet": "ignored.css",
			},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"brand": "#654321",
				},
				Assets: theme.Assets{
					Files: map[string]string{
						ScriptKey: "editor.dark.js",
					},
				},
			},
		},
	}
}

func TestResolve_Defaults(t *testing.T) {
	resolver, err := NewResolver()
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	bundle, err := resolver.Resolve("", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := Bundle{
		Stylesheets: []string{"/frontedit/assets/frontedit.css"},
		Scripts:     []string{"/frontedit/assets/frontedit.js"},
	}
	if diff := cmp.Diff(want, bundle); diff != "" {
		t.Fatalf("bundle mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_ThemeVariant(t *testing.T) {
	resolver, err := NewResolver(WithSelector(NewManifestSelector(acmeManifest()), "acme", "dark"))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	bundle, err := resolver.Resolve("", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := Bundle{
		Theme:       "acme",
		Variant:     "dark",
		Stylesheets: []string{"/assets/themes/acme/editor.css"},
		Scripts:     []string{"/assets/themes/acme/editor.dark.js"},
		Tokens:      map[string]string{"brand": "#654321"},
	}
	if diff := cmp.Diff(want, bundle); diff != "" {
		t.Fatalf("bundle mismatch (-want +got):\n%s", diff)
	}

	light, err := resolver.Resolve("acme", "light")
	if err != nil {
		t.Fatalf("resolve light: %v", err)
	}
	if light.Variant != "" || light.Scripts[0] != "/frontedit/assets/frontedit.js" || light.Tokens["brand"] != "#123456" {
		t.Fatalf("expected base manifest for unknown variant, got %+v", light)
	}
}

func TestResolve_UnknownTheme(t *testing.T) {
	resolver, err := NewResolver(WithSelector(NewManifestSelector(acmeManifest()), "", ""))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	if _, err := resolver.Resolve("missing", ""); !errors.Is(err, ErrThemeNotFound) {
		t.Fatalf("expected ErrThemeNotFound, got %v", err)
	}
}

func TestHead(t *testing.T) {
	resolver, err := NewResolver(WithPrefix("/static/"))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	bundle, err := resolver.Resolve("", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	head, err := resolver.Head(bundle, Bootstrap{
		SaveURL:  "/frontedit/save",
		Language: 2,
		Hidden:   map[string]string{"_csrf": "t<k>"},
	})
	if err != nil {
		t.Fatalf("head: %v", err)
	}

	want := `<link rel="stylesheet" href="/static/frontedit.css">` +
		`<script type="application/json" id="fe-config">{"saveURL":"/frontedit/save","language":2}</script>` +
		`<form id="fe-form" hidden><input type="hidden" name="_csrf" value="t&lt;k&gt;"></form>` +
		`<script src="/static/frontedit.js" defer></script>`
	if head != want {
		t.Fatalf("head mismatch\nwant: %s\n got: %s", want, head)
	}
}

func TestLoadManifest(t *testing.T) {
	manifest, err := LoadManifest([]byte(strings.Join([]string{
		"name: plain",
		"version: 0.1.0",
		"assets:",
		"  prefix: /themes/plain",
		"  files:",
		"    frontedit.stylesheet: plain.css",
	}, "\n")))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if manifest.Name != "plain" || manifest.Assets.Files[StylesheetKey] != "plain.css" {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
	if _, err := LoadManifest([]byte("version: 1")); err == nil {
		t.Fatalf("expected error for unnamed manifest")
	}
}
