// Package catalog reads the YAML list of object types used to seed an empty
// backend.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/storage"
	"gopkg.in/yaml.v3"
)

//go:embed default_palette.yaml
var defaultPalette []byte

// Entry is one object type in the catalog file.
type Entry struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Rows        int    `yaml:"rows"`
	Cols        int    `yaml:"cols"`
	Walkable    bool   `yaml:"walkable"`
	ShelfLevels int    `yaml:"shelf_levels,omitempty"`
}

// Palette is the parsed catalog file.
type Palette struct {
	ShelfLevels int     `yaml:"shelf_levels"`
	ObjectTypes []Entry `yaml:"object_types"`
}

// LoadPalette parses the catalog at path. A missing file is created with
// the built-in defaults.
func LoadPalette(path string) (*Palette, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, defaultPalette, 0644); err != nil {
			return nil, fmt.Errorf("failed to write default palette: %w", err)
		}
		fmt.Printf("[Catalog] Created default palette at %s\n", path)
		data = defaultPalette
	} else if err != nil {
		return nil, err
	}
	return parse(data)
}

// Default returns the built-in catalog.
func Default() *Palette {
	p, err := parse(defaultPalette)
	if err != nil {
		panic(fmt.Sprintf("built-in palette is invalid: %v", err))
	}
	return p
}

// ParsePalette parses a catalog from r.
func ParsePalette(r io.Reader) (*Palette, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*Palette, error) {
	var p Palette
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate rejects entries without a name, with an unknown category or a
// footprint smaller than one cell. Names must be unique.
func (p *Palette) Validate() error {
	seen := make(map[string]bool, len(p.ObjectTypes))
	for i, e := range p.ObjectTypes {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return fmt.Errorf("object type %d: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("object type %q: duplicate name", name)
		}
		seen[name] = true
		switch models.Category(e.Category) {
		case models.CategoryFurniture, models.CategoryWall, models.CategoryExit, models.CategoryOther:
		default:
			return fmt.Errorf("object type %q: unknown category %q", name, e.Category)
		}
		if e.Rows < 1 || e.Cols < 1 {
			return fmt.Errorf("object type %q: invalid footprint %dx%d", name, e.Rows, e.Cols)
		}
	}
	return nil
}

// Seeds converts the catalog for storage.DuckStore.SeedObjectTypes.
func (p *Palette) Seeds() []storage.SeedType {
	seeds := make([]storage.SeedType, 0, len(p.ObjectTypes))
	for _, e := range p.ObjectTypes {
		levels := e.ShelfLevels
		if levels == 0 {
			levels = p.ShelfLevels
		}
		seeds = append(seeds, storage.SeedType{
			Name:        strings.TrimSpace(e.Name),
			Category:    models.Category(e.Category),
			Rows:        e.Rows,
			Cols:        e.Cols,
			Walkable:    e.Walkable,
			ShelfLevels: levels,
		})
	}
	return seeds
}
