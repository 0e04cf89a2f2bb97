package assets

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
	"gopkg.in/yaml.v3"
)

// ErrThemeNotFound is returned when a selector has no manifest for a theme.
var ErrThemeNotFound = errors.New("assets: theme not found")

// ManifestSelector selects among a fixed set of manifests. It implements
// theme.ThemeSelector for deployments that ship their theme files with the
// binary.
type ManifestSelector struct {
	mu        sync.RWMutex
	manifests map[string]*theme.Manifest
	fallback  string
}

var _ theme.ThemeSelector = (*ManifestSelector)(nil)

// NewManifestSelector registers manifests. The first manifest is the default.
func NewManifestSelector(manifests ...*theme.Manifest) *ManifestSelector {
	s := &ManifestSelector{manifests: make(map[string]*theme.Manifest)}
	for _, manifest := range manifests {
		s.Add(manifest)
	}
	return s
}

// Add registers manifest under its name.
func (s *ManifestSelector) Add(manifest *theme.Manifest) {
	if manifest == nil || strings.TrimSpace(manifest.Name) == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.TrimSpace(manifest.Name)
	s.manifests[name] = manifest
	if s.fallback == "" {
		s.fallback = name
	}
}

func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.fallback
	}
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}
	variant = strings.TrimSpace(variant)
	if _, ok := manifest.Variants[variant]; !ok {
		variant = ""
	}
	return &theme.Selection{Theme: manifest.Name, Variant: variant, Manifest: manifest}, nil
}

// LoadManifest decodes a YAML theme manifest.
func LoadManifest(data []byte) (*theme.Manifest, error) {
	var manifest theme.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("assets: decode manifest: %w", err)
	}
	if strings.TrimSpace(manifest.Name) == "" {
		return nil, errors.New("assets: manifest name is required")
	}
	return &manifest, nil
}

// LoadManifestFile reads and decodes a YAML theme manifest.
func LoadManifestFile(path string) (*theme.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("assets: read manifest: %w", err)
	}
	return LoadManifest(data)
}
