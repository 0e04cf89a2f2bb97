package memory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/schema"
	"github.com/goliatone/go-frontedit/pkg/store"
)

// Fixtures is the YAML layout accepted by LoadFixtures. Templates may be
// declared inline or supplied by the caller.
//
//	templates:
//	  - name: basic-page
//	    fields: [{id: 1, name: title, type: text}]
//	records:
//	  - {id: 5, path: /about/, template: basic-page, values: {title: About}}
type Fixtures struct {
	schema.Document `yaml:",inline"`
	Records         []RecordFixture `yaml:"records"`
}

// RecordFixture describes one stored record.
type RecordFixture struct {
	ID         int64          `yaml:"id"`
	Path       string         `yaml:"path"`
	Template   string         `yaml:"template"`
	Values     map[string]any `yaml:"values"`
	Locked     []string       `yaml:"locked"`
	ReadOnly   bool           `yaml:"read_only"`
	Owner      int64          `yaml:"owner"`
	OwnerField string         `yaml:"owner_field"`
}

// LoadFixtureFile reads fixtures from path into s.
func (s *Store) LoadFixtureFile(path string, templates *schema.Set) (*schema.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read fixtures: %w", err)
	}
	return s.LoadFixtures(data, templates)
}

// LoadFixtures decodes data and stores every record. Inline templates are
// merged over templates; the merged set is returned.
func (s *Store) LoadFixtures(data []byte, templates *schema.Set) (*schema.Set, error) {
	var doc Fixtures
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("memory: parse fixtures: %w", err)
	}

	set := schema.NewSet()
	set.Merge(templates)
	inline, err := doc.Build("fixtures")
	if err != nil {
		return nil, err
	}
	for _, tpl := range inline {
		set.Add(tpl)
	}

	for _, raw := range doc.Records {
		tpl, ok := set.Lookup(raw.Template)
		if !ok {
			return nil, fmt.Errorf("memory: record %d uses unknown template %q", raw.ID, raw.Template)
		}
		if raw.ID <= 0 {
			return nil, fmt.Errorf("memory: record with path %q needs a positive id", raw.Path)
		}
		values, err := decodeValues(tpl, raw.Values)
		if err != nil {
			return nil, fmt.Errorf("memory: record %d: %w", raw.ID, err)
		}
		opts := []store.RecordOption{store.WithValues(values), store.WithLocked(raw.Locked...)}
		if raw.ReadOnly {
			opts = append(opts, store.WithReadOnly())
		}
		rec := store.NewRecord(raw.ID, raw.Path, tpl, opts...)
		if raw.Owner != 0 {
			s.PutDerived(rec, raw.Owner, raw.OwnerField)
			continue
		}
		s.Put(rec)
	}
	return set, nil
}

func decodeValues(tpl schema.Template, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for name, value := range raw {
		field, ok := tpl.Field(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		decoded, err := decodeValue(field, value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = decoded
	}
	return out, nil
}

func decodeValue(field model.Field, value any) (any, error) {
	if field.Caps.Has(model.CapLanguages) {
		return store.ParseLanguageValue(value)
	}
	switch v := value.(type) {
	case int:
		if field.IsType(model.TypeFloat) {
			return float64(v), nil
		}
		return int64(v), nil
	case string:
		if field.IsType(model.TypeText) || field.IsType(model.TypeEmail) || field.IsType(model.TypeURL) {
			return strings.TrimRight(v, "\n"), nil
		}
		return v, nil
	default:
		return value, nil
	}
}
