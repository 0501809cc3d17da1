// Package layout holds the grid occupancy rules: footprint expansion,
// occupant lookup and placement checks.
package layout

import (
	"fmt"
	"sort"

	"github.com/restock-console/mapeditor/internal/models"
)

// RejectReason says why a placement was refused.
type RejectReason string

const (
	OutOfBounds      RejectReason = "out_of_bounds"
	Occupied         RejectReason = "occupied"
	InvalidFootprint RejectReason = "invalid_footprint"
)

// Rejection is returned when a placement cannot be applied. Nothing is
// placed when a Rejection is returned.
type Rejection struct {
	Reason RejectReason   `json:"reason"`
	Anchor models.Point   `json:"anchor"`
	Cells  []models.Point `json:"cells,omitempty"`
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case OutOfBounds:
		return fmt.Sprintf("placement at %s leaves the grid (%d cells outside)", r.Anchor, len(r.Cells))
	case Occupied:
		return fmt.Sprintf("placement at %s overlaps %d occupied cells", r.Anchor, len(r.Cells))
	default:
		return fmt.Sprintf("placement at %s has an invalid footprint", r.Anchor)
	}
}

// Footprint expands an r x c object anchored at (x, y) into its cells,
// row-major starting at the anchor.
func Footprint(anchor models.Point, rows, cols int) []models.Point {
	if rows < 1 || cols < 1 {
		return nil
	}
	cells := make([]models.Point, 0, rows*cols)
	for dy := 0; dy < rows; dy++ {
		for dx := 0; dx < cols; dx++ {
			cells = append(cells, models.Point{X: anchor.X + dx, Y: anchor.Y + dy})
		}
	}
	return cells
}

// Occupancy indexes placements by cell.
type Occupancy struct {
	grid  models.Grid
	cells map[models.Point]models.Placement
}

// NewOccupancy builds the index. Later duplicates of a cell are ignored so
// the first placement wins.
func NewOccupancy(grid models.Grid, placements []models.Placement) *Occupancy {
	o := &Occupancy{
		grid:  grid,
		cells: make(map[models.Point]models.Placement, len(placements)),
	}
	for _, p := range placements {
		if _, exists := o.cells[p.Cell()]; !exists {
			o.cells[p.Cell()] = p
		}
	}
	return o
}

// Grid returns the bounds the index checks against.
func (o *Occupancy) Grid() models.Grid {
	return o.grid
}

// At returns the placement occupying (x, y), if any.
func (o *Occupancy) At(x, y int) (models.Placement, bool) {
	p, ok := o.cells[models.Point{X: x, Y: y}]
	return p, ok
}

// Len returns the number of occupied cells.
func (o *Occupancy) Len() int {
	return len(o.cells)
}

// Check verifies that every cell is in bounds and free.
func (o *Occupancy) Check(anchor models.Point, cells []models.Point) *Rejection {
	if len(cells) == 0 {
		return &Rejection{Reason: InvalidFootprint, Anchor: anchor}
	}

	var outside, taken []models.Point
	for _, c := range cells {
		if !o.grid.Contains(c) {
			outside = append(outside, c)
			continue
		}
		if _, ok := o.cells[c]; ok {
			taken = append(taken, c)
		}
	}

	if len(outside) > 0 {
		return &Rejection{Reason: OutOfBounds, Anchor: anchor, Cells: outside}
	}
	if len(taken) > 0 {
		return &Rejection{Reason: Occupied, Anchor: anchor, Cells: taken}
	}
	return nil
}

// Placements returns the indexed placements ordered by row, then column.
func (o *Occupancy) Placements() []models.Placement {
	out := make([]models.Placement, 0, len(o.cells))
	for _, p := range o.cells {
		out = append(out, p)
	}
	SortPlacements(out)
	return out
}

// SortPlacements orders placements by row, then column.
func SortPlacements(ps []models.Placement) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Y != ps[j].Y {
			return ps[i].Y < ps[j].Y
		}
		return ps[i].X < ps[j].X
	})
}
