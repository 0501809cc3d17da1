package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/restock-console/mapeditor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePalette(t *testing.T) {
	content := `
shelf_levels: 2
object_types:
  - name: Góndola
    category: mueble
    rows: 1
    cols: 3
  - name: Salida
    category: salida
    rows: 1
    cols: 1
    walkable: true
  - name: Nevera
    category: mueble
    rows: 1
    cols: 1
    shelf_levels: 6
`
	p, err := ParsePalette(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, p.ObjectTypes, 3)

	seeds := p.Seeds()
	assert.Equal(t, models.CategoryFurniture, seeds[0].Category)
	assert.Equal(t, 2, seeds[0].ShelfLevels, "inherits the file default")
	assert.True(t, seeds[1].Walkable)
	assert.Equal(t, 6, seeds[2].ShelfLevels)
}

func TestParsePalette_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "object_types:\n  - category: muro\n    rows: 1\n    cols: 1\n"},
		{"unknown category", "object_types:\n  - name: X\n    category: mesa\n    rows: 1\n    cols: 1\n"},
		{"zero footprint", "object_types:\n  - name: X\n    category: muro\n    rows: 0\n    cols: 1\n"},
		{"duplicate", "object_types:\n  - {name: X, category: muro, rows: 1, cols: 1}\n  - {name: X, category: otro, rows: 1, cols: 1}\n"},
		{"bad yaml", "object_types: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePalette(strings.NewReader(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadPalette_WritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "palette.yaml")

	p, err := LoadPalette(path)
	require.NoError(t, err)
	assert.Equal(t, len(Default().ObjectTypes), len(p.ObjectTypes))

	_, err = os.Stat(path)
	require.NoError(t, err)

	var exits int
	for _, s := range p.Seeds() {
		if s.Category == models.CategoryExit {
			exits++
		}
	}
	assert.Equal(t, 1, exits)
}
