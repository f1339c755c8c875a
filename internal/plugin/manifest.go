// Package plugin loads extension manifests. A manifest names a plugin and
// the extension types it contributes; each extension adds scalar properties
// to an existing type, stored as extra columns of that type's table.
package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// Manifest is one plugin's YAML description
type Manifest struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description,omitempty"`
	Extensions  []Extension `yaml:"extensions"`

	path string
}

// Extension adds properties to the type named by Extends
type Extension struct {
	ID         string         `yaml:"id"`
	Extends    string         `yaml:"extends"`
	Properties []PropertySpec `yaml:"properties"`
}

// PropertySpec declares one extension property
type PropertySpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Ref      string `yaml:"ref,omitempty"`
	Nullable *bool  `yaml:"nullable,omitempty"`
}

// Path returns the file the manifest was read from, if any
func (m *Manifest) Path() string { return m.path }

// Parse decodes and validates a manifest
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest reads a manifest file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.path = path
	return m, nil
}

// LoadDir reads every *.yaml and *.yml manifest in dir, sorted by file name.
// A missing directory holds no plugins.
func LoadDir(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	seen := make(map[string]string)
	var out []*Manifest
	for _, name := range names {
		m, err := LoadManifest(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[m.ID]; ok {
			return nil, fmt.Errorf("plugin %q declared by both %s and %s", m.ID, prev, name)
		}
		seen[m.ID] = name
		out = append(out, m)
	}
	return out, nil
}

func (m *Manifest) validate() error {
	if m.ID == "" {
		return fmt.Errorf("manifest has no id")
	}
	ids := make(map[string]bool)
	for i, ext := range m.Extensions {
		if ext.ID == "" {
			return fmt.Errorf("plugin %s: extension %d has no id", m.ID, i)
		}
		if ids[ext.ID] {
			return fmt.Errorf("plugin %s: duplicate extension %q", m.ID, ext.ID)
		}
		ids[ext.ID] = true
		if ext.Extends == "" {
			return fmt.Errorf("plugin %s: extension %s does not name the type it extends", m.ID, ext.ID)
		}
		for _, p := range ext.Properties {
			if p.Name == "" {
				return fmt.Errorf("plugin %s: extension %s has a property without a name", m.ID, ext.ID)
			}
			t, err := models.ParseValueType(p.Type)
			if err != nil {
				return fmt.Errorf("plugin %s: %s.%s: %w", m.ID, ext.ID, p.Name, err)
			}
			if t == models.TypeReference && p.Ref == "" {
				return fmt.Errorf("plugin %s: %s.%s: reference without target type", m.ID, ext.ID, p.Name)
			}
		}
	}
	return nil
}

// Descriptors converts the manifest's extensions to type descriptors
func (m *Manifest) Descriptors() ([]*models.TypeDescriptor, error) {
	var out []*models.TypeDescriptor
	for _, ext := range m.Extensions {
		td := &models.TypeDescriptor{ID: ext.ID, BaseID: ext.Extends, Extension: true}
		for _, ps := range ext.Properties {
			t, err := models.ParseValueType(ps.Type)
			if err != nil {
				return nil, err
			}
			nullable := true
			if ps.Nullable != nil {
				nullable = *ps.Nullable
			}
			td.Properties = append(td.Properties, &models.Property{
				Name:     ps.Name,
				Kind:     models.KindScalar,
				Type:     t,
				Ref:      ps.Ref,
				Nullable: nullable,
			})
		}
		out = append(out, td)
	}
	return out, nil
}

// Register adds the manifest's extensions to reg
func (m *Manifest) Register(reg *models.Registry) error {
	tds, err := m.Descriptors()
	if err != nil {
		return err
	}
	for _, td := range tds {
		if err := reg.Register(td); err != nil {
			return fmt.Errorf("plugin %s: %w", m.ID, err)
		}
	}
	return nil
}

// RegisterAll registers every manifest in order
func RegisterAll(reg *models.Registry, manifests []*Manifest) error {
	for _, m := range manifests {
		if err := m.Register(reg); err != nil {
			return err
		}
	}
	return nil
}
