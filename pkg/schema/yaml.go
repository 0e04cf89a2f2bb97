package schema

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-frontedit/pkg/model"
)

// Document is the YAML layout for template files:
//
//	templates:
//	  - name: basic-page
//	    fields:
//	      - {id: 1, name: title, type: text, config: {maxlength: "120"}}
//	      - {id: 2, name: body, type: richtext, languages: true}
type Document struct {
	Templates []TemplateDoc `yaml:"templates"`
}

// TemplateDoc is one template entry in a Document.
type TemplateDoc struct {
	Name   string     `yaml:"name"`
	Label  string     `yaml:"label"`
	Fields []FieldDoc `yaml:"fields"`
}

// FieldDoc is one field entry in a TemplateDoc.
type FieldDoc struct {
	ID           int               `yaml:"id"`
	Name         string            `yaml:"name"`
	Label        string            `yaml:"label"`
	Type         string            `yaml:"type"`
	Inherits     []string          `yaml:"inherits"`
	Capabilities []string          `yaml:"capabilities"`
	Languages    bool              `yaml:"languages"`
	Config       map[string]string `yaml:"config"`
}

// Build converts the document into templates, validating names and ids.
func (d Document) Build(source string) ([]Template, error) {
	out := make([]Template, 0, len(d.Templates))
	for _, raw := range d.Templates {
		tpl, err := raw.template(source)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, nil
}

func (d TemplateDoc) template(source string) (Template, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return Template{}, fmt.Errorf("schema: %s defines a template without a name", source)
	}
	tpl := Template{Name: name, Label: strings.TrimSpace(d.Label)}
	seen := make(map[string]struct{}, len(d.Fields))
	for idx, raw := range d.Fields {
		field := model.Field{
			ID:       raw.ID,
			Name:     strings.TrimSpace(raw.Name),
			Label:    strings.TrimSpace(raw.Label),
			Type:     strings.TrimSpace(raw.Type),
			Inherits: append([]string(nil), raw.Inherits...),
			Config:   raw.Config,
		}
		if field.Name == "" {
			return Template{}, fmt.Errorf("schema: template %q (%s) field %d has no name", name, source, idx)
		}
		if _, dup := seen[field.Name]; dup {
			return Template{}, fmt.Errorf("schema: template %q (%s) defines field %q twice", name, source, field.Name)
		}
		seen[field.Name] = struct{}{}
		if field.Type == "" {
			field.Type = model.TypeText
		}
		if field.ID == 0 {
			field.ID = idx + 1
		}
		if field.Label == "" {
			field.Label = field.Name
		}
		tpl.Fields = append(tpl.Fields, ResolveCapabilities(field, raw.Capabilities, raw.Languages))
	}
	return tpl, nil
}

// LoadYAML parses a single template document.
func LoadYAML(data []byte) (*Set, error) {
	return parseYAML(data, "<inline>")
}

// LoadFS walks fsys and loads every .yaml/.yml file into one set. A template
// defined in more than one file is an error.
func LoadFS(fsys fs.FS) (*Set, error) {
	set := NewSet()
	if fsys == nil {
		return set, nil
	}
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isYAML(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		loaded, err := parseYAML(data, path)
		if err != nil {
			return err
		}
		for _, name := range loaded.Names() {
			if _, exists := set.Lookup(name); exists {
				return fmt.Errorf("schema: duplicate template %q (file %s)", name, path)
			}
		}
		set.Merge(loaded)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func parseYAML(data []byte, source string) (*Set, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("schema: %s is empty", source)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", source, err)
	}
	templates, err := doc.Build(source)
	if err != nil {
		return nil, err
	}
	set := NewSet()
	for _, tpl := range templates {
		set.Add(tpl)
	}
	return set, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
