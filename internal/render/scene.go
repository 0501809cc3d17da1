// Package render turns an editor snapshot into a layered display list and
// paints it. The whole scene is rebuilt on every change.
package render

import (
	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/unify"
	"github.com/zyedidia/generic/mapset"
)

// Rect is a pixel rectangle.
type Rect struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	W float64 `json:"w" msgpack:"w"`
	H float64 `json:"h" msgpack:"h"`
}

// Center returns the middle of the rectangle.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// CellState is how a base cell is tinted.
type CellState string

const (
	CellBase      CellState = "base"
	CellHighlight CellState = "highlight"
	CellHover     CellState = "hover"
)

// CellOp draws one base grid cell.
type CellOp struct {
	Cell  models.Point `json:"cell" msgpack:"cell"`
	Rect  Rect         `json:"rect" msgpack:"rect"`
	State CellState    `json:"state" msgpack:"state"`
	Fill  string       `json:"fill" msgpack:"fill"`
}

// ObjectOp draws one rectangle of same-identity non-furniture cells. Cell
// is the top-left cell; Width and Height are in cells.
type ObjectOp struct {
	Cell     models.Point    `json:"cell" msgpack:"cell"`
	Width    int             `json:"width" msgpack:"width"`
	Height   int             `json:"height" msgpack:"height"`
	ObjectID models.ObjectID `json:"objectId" msgpack:"objectId"`
	Category models.Category `json:"category" msgpack:"category"`
	Rect     Rect            `json:"rect" msgpack:"rect"`
	Radius   float64         `json:"radius" msgpack:"radius"`
	Style    Style           `json:"style" msgpack:"style"`
	Label    string          `json:"label,omitempty" msgpack:"label,omitempty"`
}

// BlockOp draws one unified furniture block.
type BlockOp struct {
	Block  unify.Block `json:"block" msgpack:"block"`
	Rect   Rect        `json:"rect" msgpack:"rect"`
	Radius float64     `json:"radius" msgpack:"radius"`
	Style  Style       `json:"style" msgpack:"style"`
	Label  string      `json:"label,omitempty" msgpack:"label,omitempty"`
}

// PreviewOp draws the drag preview.
type PreviewOp struct {
	Anchor     models.Point `json:"anchor" msgpack:"anchor"`
	Rows       int          `json:"rows" msgpack:"rows"`
	Cols       int          `json:"cols" msgpack:"cols"`
	Rect       Rect         `json:"rect" msgpack:"rect"`
	Fill       string       `json:"fill" msgpack:"fill"`
	Stroke     string       `json:"stroke" msgpack:"stroke"`
	Dash       []float64    `json:"dash" msgpack:"dash"`
	DashOffset float64      `json:"dashOffset" msgpack:"dashOffset"`
	Glyph      string       `json:"glyph" msgpack:"glyph"`
}

// RouteOp draws the route overlay as a polyline through cell centers.
type RouteOp struct {
	Points []models.Point `json:"points" msgpack:"points"`
	Path   [][2]float64   `json:"path" msgpack:"path"`
	Stroke string         `json:"stroke" msgpack:"stroke"`
	Width  float64        `json:"width" msgpack:"width"`
}

// Scene is the display list, one slice per pass, back to front.
type Scene struct {
	Grid      models.Grid `json:"grid" msgpack:"grid"`
	CellSize  int         `json:"cellSize" msgpack:"cellSize"`
	Width     int         `json:"width" msgpack:"width"`
	Height    int         `json:"height" msgpack:"height"`
	Cells     []CellOp    `json:"cells" msgpack:"cells"`
	Objects   []ObjectOp  `json:"objects" msgpack:"objects"`
	Furniture []BlockOp   `json:"furniture" msgpack:"furniture"`
	Route     *RouteOp    `json:"route,omitempty" msgpack:"route,omitempty"`
	Preview   *PreviewOp  `json:"preview,omitempty" msgpack:"preview,omitempty"`
}

// Drag describes the object being dragged.
type Drag struct {
	Type     models.ObjectType
	Rotation int
}

// Input is everything a redraw depends on.
type Input struct {
	Grid       models.Grid
	Placements []models.Placement
	Palette    models.Palette
	Highlight  []models.Point
	Hover      *models.Point
	Drag       *Drag
	DashOffset float64
	Route      []models.Point
	MaxCanvas  int
	Unify      unify.Options
}

// Build produces the scene for in. It has no side effects.
func Build(in Input) *Scene {
	cs := CellSize(in.Grid.MaxDimension(), in.MaxCanvas)
	s := &Scene{
		Grid:     in.Grid,
		CellSize: cs,
		Width:    in.Grid.Width * cs,
		Height:   in.Grid.Height * cs,
	}

	s.Cells = buildCells(in, cs)
	s.Objects = buildObjects(in, cs)
	s.Furniture = buildFurniture(in, cs)
	s.Route = buildRoute(in, cs)
	s.Preview = buildPreview(in, cs)
	return s
}

// CellRect returns the pixel rectangle of a cell.
func CellRect(p models.Point, cellSize int) Rect {
	cs := float64(cellSize)
	return Rect{X: float64(p.X) * cs, Y: float64(p.Y) * cs, W: cs, H: cs}
}

func spanRect(x, y, w, h, cellSize int) Rect {
	cs := float64(cellSize)
	return Rect{X: float64(x) * cs, Y: float64(y) * cs, W: float64(w) * cs, H: float64(h) * cs}
}

func inset(r Rect, cellSize int) Rect {
	d := float64(cellSize) / 10
	if d < 1 {
		d = 1
	}
	return Rect{X: r.X + d, Y: r.Y + d, W: r.W - 2*d, H: r.H - 2*d}
}

func radius(cellSize int) float64 {
	r := float64(cellSize) / 4
	if r > 6 {
		r = 6
	}
	return r
}

func buildCells(in Input, cs int) []CellOp {
	highlight := mapset.New[models.Point]()
	for _, p := range in.Highlight {
		highlight.Put(p)
	}

	ops := make([]CellOp, 0, in.Grid.Width*in.Grid.Height)
	for y := 0; y < in.Grid.Height; y++ {
		for x := 0; x < in.Grid.Width; x++ {
			p := models.Point{X: x, Y: y}
			op := CellOp{Cell: p, Rect: CellRect(p, cs), State: CellBase, Fill: CellColor}
			switch {
			case in.Hover != nil && *in.Hover == p:
				op.State, op.Fill = CellHover, HoverColor
			case highlight.Has(p):
				op.State, op.Fill = CellHighlight, HighlightColor
			}
			ops = append(ops, op)
		}
	}
	return ops
}

type objectKey struct {
	id   models.ObjectID
	name string
}

func buildObjects(in Input, cs int) []ObjectOp {
	groups := make(map[objectKey][]models.Point)
	types := make(map[objectKey]models.ObjectType)
	for _, p := range in.Placements {
		t, ok := in.Palette.Lookup(p.ObjectID)
		if !ok || t.IsFurniture() || !in.Grid.Contains(p.Cell()) {
			continue
		}
		key := objectKey{id: p.ObjectID, name: t.Name}
		if p.Label != "" {
			key.name = p.Label
		}
		groups[key] = append(groups[key], p.Cell())
		types[key] = t
	}

	var regions []unify.Block
	for key, cells := range groups {
		regions = append(regions, unify.Regions(cells, key.name, key.id)...)
	}
	unify.SortBlocks(regions)

	ops := make([]ObjectOp, 0, len(regions))
	for _, b := range regions {
		t := types[objectKey{id: b.ObjectID, name: b.Name}]
		r := inset(spanRect(b.MinX, b.MinY, b.Width, b.Height, cs), cs)
		ops = append(ops, ObjectOp{
			Cell:     models.Point{X: b.MinX, Y: b.MinY},
			Width:    b.Width,
			Height:   b.Height,
			ObjectID: b.ObjectID,
			Category: t.Category,
			Rect:     r,
			Radius:   radius(cs),
			Style:    StyleFor(t.Category),
			Label:    labelFor(b.Name, cs, r.W),
		})
	}
	return ops
}

func buildFurniture(in Input, cs int) []BlockOp {
	blocks := unify.Blocks(in.Placements, in.Palette, in.Unify)
	ops := make([]BlockOp, 0, len(blocks))
	for _, b := range blocks {
		r := inset(spanRect(b.MinX, b.MinY, b.Width, b.Height, cs), cs)
		ops = append(ops, BlockOp{
			Block:  b,
			Rect:   r,
			Radius: radius(cs),
			Style:  StyleFor(models.CategoryFurniture),
			Label:  labelFor(b.Name, cs, r.W),
		})
	}
	return ops
}

func buildRoute(in Input, cs int) *RouteOp {
	if len(in.Route) == 0 {
		return nil
	}
	op := &RouteOp{Stroke: RouteColor, Width: RouteWidth}
	for _, p := range in.Route {
		if !in.Grid.Contains(p) {
			continue
		}
		cx, cy := CellRect(p, cs).Center()
		op.Points = append(op.Points, p)
		op.Path = append(op.Path, [2]float64{cx, cy})
	}
	if len(op.Points) == 0 {
		return nil
	}
	return op
}

func buildPreview(in Input, cs int) *PreviewOp {
	if in.Drag == nil || in.Hover == nil || !in.Grid.Contains(*in.Hover) {
		return nil
	}
	rows, cols := in.Drag.Type.Footprint(in.Drag.Rotation)
	w := min(cols, in.Grid.Width-in.Hover.X)
	h := min(rows, in.Grid.Height-in.Hover.Y)
	r := spanRect(in.Hover.X, in.Hover.Y, w, h, cs)
	if r.W < MinPreviewSize || r.H < MinPreviewSize {
		return nil
	}
	return &PreviewOp{
		Anchor:     *in.Hover,
		Rows:       rows,
		Cols:       cols,
		Rect:       r,
		Fill:       PreviewFill,
		Stroke:     PreviewStroke,
		Dash:       []float64{DashLength, DashGap},
		DashOffset: in.DashOffset,
		Glyph:      "+",
	}
}
