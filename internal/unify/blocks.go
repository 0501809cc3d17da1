// Package unify merges furniture cells that belong to the same object type
// into rectangular display blocks.
package unify

import (
	"sort"

	"github.com/restock-console/mapeditor/internal/models"
	"github.com/zyedidia/generic/mapset"
)

// Block is a derived rectangle covering same-identity furniture cells.
// Blocks are recomputed on every change and never stored.
type Block struct {
	MinX     int             `json:"minX" msgpack:"minX"`
	MinY     int             `json:"minY" msgpack:"minY"`
	Width    int             `json:"width" msgpack:"width"`
	Height   int             `json:"height" msgpack:"height"`
	Name     string          `json:"name" msgpack:"name"`
	ObjectID models.ObjectID `json:"objectId" msgpack:"objectId"`
}

// Contains reports whether the block covers the cell.
func (b Block) Contains(p models.Point) bool {
	return p.X >= b.MinX && p.X < b.MinX+b.Width && p.Y >= b.MinY && p.Y < b.MinY+b.Height
}

// Cells lists the covered cells row-major.
func (b Block) Cells() []models.Point {
	cells := make([]models.Point, 0, b.Width*b.Height)
	for y := b.MinY; y < b.MinY+b.Height; y++ {
		for x := b.MinX; x < b.MinX+b.Width; x++ {
			cells = append(cells, models.Point{X: x, Y: y})
		}
	}
	return cells
}

// Options tunes identity matching.
type Options struct {
	// NameFallback resolves placements whose ObjectID is missing from the
	// palette through their Label. Two furniture types sharing a display name
	// are indistinguishable under this shim; keep it off unless loading data
	// with stale identities.
	NameFallback bool
}

type groupKey struct {
	id          models.ObjectID
	orientation int
}

// Blocks returns the furniture blocks for a set of placements. Non-furniture
// and unknown placements are ignored. Output is sorted by MinY, MinX, Name.
func Blocks(placements []models.Placement, palette models.Palette, opts Options) []Block {
	groups := make(map[groupKey][]models.Point)
	names := make(map[groupKey]string)

	for _, p := range placements {
		t, ok := resolve(p, palette, opts)
		if !ok || !t.IsFurniture() {
			continue
		}
		key := groupKey{id: t.ID, orientation: models.NormalizeRotation(p.Rotation) % 180}
		groups[key] = append(groups[key], p.Cell())
		names[key] = t.Name
	}

	var blocks []Block
	for key, cells := range groups {
		blocks = append(blocks, Regions(cells, names[key], key.id)...)
	}
	SortBlocks(blocks)
	return blocks
}

// Regions covers cells of one identity with rectangles, splitting them into
// 4-connected components first. Duplicate cells are ignored.
func Regions(cells []models.Point, name string, id models.ObjectID) []Block {
	var out []Block
	for _, comp := range Components(dedupe(cells)) {
		out = append(out, rectangles(comp, name, id)...)
	}
	return out
}

// SortBlocks orders blocks by MinY, MinX, Name.
func SortBlocks(blocks []Block) {
	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if a.MinY != b.MinY {
			return a.MinY < b.MinY
		}
		if a.MinX != b.MinX {
			return a.MinX < b.MinX
		}
		return a.Name < b.Name
	})
}

func resolve(p models.Placement, palette models.Palette, opts Options) (models.ObjectType, bool) {
	if t, ok := palette.Lookup(p.ObjectID); ok {
		return t, true
	}
	if opts.NameFallback && p.Label != "" {
		return palette.ByName(p.Label)
	}
	return models.ObjectType{}, false
}

func dedupe(cells []models.Point) []models.Point {
	seen := mapset.New[models.Point]()
	out := cells[:0:0]
	for _, c := range cells {
		if seen.Has(c) {
			continue
		}
		seen.Put(c)
		out = append(out, c)
	}
	return out
}

// rectangles covers one connected component greedily: from each unclaimed
// top-left-most cell grow right while cells are present and unclaimed, then
// grow down while the whole row span is present and unclaimed.
func rectangles(comp []models.Point, name string, id models.ObjectID) []Block {
	present := mapset.New[models.Point]()
	for _, c := range comp {
		present.Put(c)
	}
	claimed := mapset.New[models.Point]()
	free := func(x, y int) bool {
		p := models.Point{X: x, Y: y}
		return present.Has(p) && !claimed.Has(p)
	}

	var out []Block
	for _, start := range comp {
		if claimed.Has(start) {
			continue
		}

		width := 1
		for free(start.X+width, start.Y) {
			width++
		}

		height := 1
		for {
			rowFree := true
			for dx := 0; dx < width; dx++ {
				if !free(start.X+dx, start.Y+height) {
					rowFree = false
					break
				}
			}
			if !rowFree {
				break
			}
			height++
		}

		b := Block{MinX: start.X, MinY: start.Y, Width: width, Height: height, Name: name, ObjectID: id}
		for _, c := range b.Cells() {
			claimed.Put(c)
		}
		out = append(out, b)
	}
	return out
}
