// Package interaction maps pointer positions on the drawing surface to grid
// cells and turns pointer activity into editor events.
package interaction

import (
	"math"

	"github.com/restock-console/mapeditor/internal/models"
)

// Mapper converts surface pixel offsets to cells. CellSize must be the value
// the renderer used for the same grid.
type Mapper struct {
	Grid     models.Grid
	CellSize int
}

// CellAt floors px/py by the cell size. Positions outside the grid, including
// the far edges, resolve to no cell.
func (m Mapper) CellAt(px, py float64) (models.Point, bool) {
	if m.CellSize <= 0 || math.IsNaN(px) || math.IsNaN(py) {
		return models.Point{}, false
	}
	x := int(math.Floor(px / float64(m.CellSize)))
	y := int(math.Floor(py / float64(m.CellSize)))
	if !m.Grid.InBounds(x, y) {
		return models.Point{}, false
	}
	return models.Point{X: x, Y: y}, true
}

// EventKind identifies a translated pointer action.
type EventKind string

const (
	EventClick EventKind = "click"
	EventDrop  EventKind = "drop"
)

// Event is a click or drop resolved to a cell.
type Event struct {
	Kind     EventKind    `json:"kind"`
	Cell     models.Point `json:"cell"`
	Modifier bool         `json:"modifier,omitempty"`
}

// Surface tracks the hovered cell. It is not safe for concurrent use; the
// owner serialises access.
type Surface struct {
	mapper Mapper
	hover  *models.Point
}

// NewSurface creates a surface for a mapper.
func NewSurface(m Mapper) *Surface {
	return &Surface{mapper: m}
}

// Resize swaps the mapper after a grid change and clears the hover.
func (s *Surface) Resize(m Mapper) {
	s.mapper = m
	s.hover = nil
}

// Mapper returns the current mapper.
func (s *Surface) Mapper() Mapper {
	return s.mapper
}

// Hover returns the hovered cell, or nil.
func (s *Surface) Hover() *models.Point {
	if s.hover == nil {
		return nil
	}
	p := *s.hover
	return &p
}

// Move updates the hover and reports whether it changed.
func (s *Surface) Move(px, py float64) bool {
	p, ok := s.mapper.CellAt(px, py)
	if !ok {
		return s.Leave()
	}
	if s.hover != nil && *s.hover == p {
		return false
	}
	s.hover = &p
	return true
}

// Leave clears the hover and reports whether it changed.
func (s *Surface) Leave() bool {
	if s.hover == nil {
		return false
	}
	s.hover = nil
	return true
}

// Click translates a click. ok is false when the pointer is off the grid.
func (s *Surface) Click(px, py float64, modifier bool) (Event, bool) {
	p, ok := s.mapper.CellAt(px, py)
	if !ok {
		return Event{}, false
	}
	return Event{Kind: EventClick, Cell: p, Modifier: modifier}, true
}

// Drop translates a drop. The hover is updated to the drop cell so the
// preview matches what was placed.
func (s *Surface) Drop(px, py float64) (Event, bool) {
	p, ok := s.mapper.CellAt(px, py)
	if !ok {
		s.hover = nil
		return Event{}, false
	}
	s.hover = &p
	return Event{Kind: EventDrop, Cell: p}, true
}
