package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the frontedit configuration file.
type Settings struct {
	Store     StoreSettings  `yaml:"store"`
	Schema    SchemaSettings `yaml:"schema"`
	Languages map[int]string `yaml:"languages"`
	Editor    EditorSettings `yaml:"editor"`
	Serve     ServeSettings  `yaml:"serve"`
	Log       LogSettings    `yaml:"log"`
}

// StoreSettings selects the record store.
type StoreSettings struct {
	Driver   string         `yaml:"driver"` // "memory" or "dynamo"
	Fixtures string         `yaml:"fixtures"`
	Dynamo   DynamoSettings `yaml:"dynamo"`
}

// DynamoSettings configures the DynamoDB store.
type DynamoSettings struct {
	Table     string `yaml:"table"`
	PathIndex string `yaml:"path_index"`
	Region    string `yaml:"region"`
	Profile   string `yaml:"profile"`
	Endpoint  string `yaml:"endpoint"`
}

// SchemaSettings lists template sources.
type SchemaSettings struct {
	Files   []string `yaml:"files"`
	OpenAPI string   `yaml:"openapi"`
}

// EditorSettings controls markers, endpoints and assets.
type EditorSettings struct {
	Tag        string   `yaml:"tag"`
	Attribute  string   `yaml:"attribute"`
	SaveURL    string   `yaml:"save_url"`
	EditURL    string   `yaml:"edit_url"`
	CSRFField  string   `yaml:"csrf_field"`
	Permission string   `yaml:"permission"`
	Themes     []string `yaml:"themes"`
	Theme      string   `yaml:"theme"`
	Variant    string   `yaml:"variant"`
}

// ServeSettings configures "frontedit serve".
type ServeSettings struct {
	Addr      string                  `yaml:"addr"`
	Pages     string                  `yaml:"pages"`
	AssetPath string                  `yaml:"asset_path"`
	Users     map[string]UserSettings `yaml:"users"`
}

// UserSettings is a basic-auth account for the development server.
type UserSettings struct {
	Password    string   `yaml:"password"`
	Permissions []string `yaml:"permissions"`
}

// LogSettings configures the logger.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DefaultSettings returns the default configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Store: StoreSettings{
			Driver: "memory",
			Dynamo: DynamoSettings{
				Table:     "frontedit_records",
				PathIndex: "path-index",
			},
		},
		Languages: map[int]string{0: "en"},
		Editor: EditorSettings{
			Tag:        "edit",
			Attribute:  "edit",
			SaveURL:    "/frontedit/save",
			EditURL:    "/frontedit/edit",
			CSRFField:  "_csrf",
			Permission: "record-edit",
		},
		Serve: ServeSettings{
			Addr:      ":8080",
			Pages:     "pages",
			AssetPath: "/frontedit/assets",
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadSettings reads path over the defaults. An empty path returns the
// defaults; a missing file is an error.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()
	if strings.TrimSpace(path) == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return settings, nil
}

// Validate reports configuration errors.
func (s *Settings) Validate() error {
	var errs []error
	switch s.Store.Driver {
	case "memory":
	case "dynamo":
		if s.Store.Dynamo.Table == "" {
			errs = append(errs, errors.New("store.dynamo.table is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", s.Store.Driver))
	}
	if _, ok := s.Languages[0]; len(s.Languages) > 0 && !ok {
		errs = append(errs, errors.New("languages must define id 0"))
	}
	return errors.Join(errs...)
}
