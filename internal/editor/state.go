// Package editor holds the map editor state machine. State is a plain value
// and every operation returns a new one; Editor wraps it for a live session.
package editor

import (
	"fmt"

	"github.com/restock-console/mapeditor/internal/layout"
	"github.com/restock-console/mapeditor/internal/models"
)

// DraggedObject is the placement candidate between palette pick and drop.
type DraggedObject struct {
	Type     models.ObjectType `json:"type" msgpack:"type"`
	Rotation int               `json:"rotation" msgpack:"rotation"`

	// Offset is the footprint cell under the pointer; the anchor is the
	// drop cell minus Offset.
	Offset models.Point `json:"offset" msgpack:"offset"`
}

// State is one editor session's layout and mode.
type State struct {
	MapID      string              `json:"mapId" msgpack:"mapId"`
	Name       string              `json:"name" msgpack:"name"`
	Grid       models.Grid         `json:"grid" msgpack:"grid"`
	Types      []models.ObjectType `json:"palette" msgpack:"palette"`
	Placements []models.Placement  `json:"placements" msgpack:"placements"`
	Mode       models.EditorMode   `json:"mode" msgpack:"mode"`
	Dragged    *DraggedObject      `json:"dragged,omitempty" msgpack:"dragged,omitempty"`
	Dirty      bool                `json:"hasUnsavedChanges" msgpack:"hasUnsavedChanges"`
}

// NewState starts a clean edit-mode session on a loaded layout. An empty
// placement set is valid.
func NewState(l *models.Layout) State {
	placements := append([]models.Placement(nil), l.Placements...)
	layout.SortPlacements(placements)
	return State{
		MapID:      l.MapID,
		Name:       l.Name,
		Grid:       l.Grid,
		Types:      append([]models.ObjectType(nil), l.Palette...),
		Placements: placements,
		Mode:       models.ModeEdit,
	}
}

// Palette indexes the state's object types.
func (s State) Palette() models.Palette {
	return models.NewPalette(s.Types)
}

// Occupancy indexes the state's placements.
func (s State) Occupancy() *layout.Occupancy {
	return layout.NewOccupancy(s.Grid, s.Placements)
}

// At returns the placement on a cell.
func (s State) At(x, y int) (models.Placement, bool) {
	for _, p := range s.Placements {
		if p.X == x && p.Y == y {
			return p, true
		}
	}
	return models.Placement{}, false
}

// Place puts t with its footprint anchored at (x, y). Either every cell is
// placed or the state is returned unchanged with a *layout.Rejection.
func (s State) Place(x, y int, t models.ObjectType, rotation int) (State, error) {
	if _, ok := s.Palette().Lookup(t.ID); !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownObject, t.ID)
	}
	rotation = models.NormalizeRotation(rotation)
	rows, cols := t.Footprint(rotation)
	anchor := models.Point{X: x, Y: y}
	cells := layout.Footprint(anchor, rows, cols)
	if rej := s.Occupancy().Check(anchor, cells); rej != nil {
		return s, rej
	}

	next := s.clone()
	for _, c := range cells {
		next.Placements = append(next.Placements, models.Placement{
			X:        c.X,
			Y:        c.Y,
			ObjectID: t.ID,
			Rotation: rotation,
			Label:    t.Name,
		})
	}
	layout.SortPlacements(next.Placements)
	next.Dirty = true
	return next, nil
}

// Drop places the dragged object at a cell. The drag stays active so the
// same object can be placed again.
func (s State) Drop(x, y int) (State, []models.Point, error) {
	if s.Mode != models.ModeEdit {
		return s, nil, ErrWrongMode
	}
	if s.Dragged == nil {
		return s, nil, ErrNoDraggedObject
	}
	d := s.Dragged
	next, err := s.Place(x-d.Offset.X, y-d.Offset.Y, d.Type, d.Rotation)
	if err != nil {
		return s, nil, err
	}
	rows, cols := d.Type.Footprint(d.Rotation)
	return next, layout.Footprint(models.Point{X: x - d.Offset.X, Y: y - d.Offset.Y}, rows, cols), nil
}

// Remove deletes the single placement on a cell.
func (s State) Remove(x, y int) (State, error) {
	if s.Mode != models.ModeEdit {
		return s, ErrWrongMode
	}
	if !s.Grid.InBounds(x, y) {
		p := models.Point{X: x, Y: y}
		return s, &layout.Rejection{Reason: layout.OutOfBounds, Anchor: p, Cells: []models.Point{p}}
	}
	idx := -1
	for i, p := range s.Placements {
		if p.X == x && p.Y == y {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, ErrEmptyCell
	}

	next := s.clone()
	next.Placements = append(next.Placements[:idx], next.Placements[idx+1:]...)
	next.Dirty = true
	return next, nil
}

// Clear removes every placement. It needs explicit confirmation.
func (s State) Clear(confirm bool) (State, error) {
	if s.Mode != models.ModeEdit {
		return s, ErrWrongMode
	}
	if !confirm {
		return s, ErrConfirmationRequired
	}
	next := s.clone()
	next.Placements = nil
	next.Dirty = true
	return next, nil
}

// SetMode switches between edit and assign. Any drag is cancelled.
func (s State) SetMode(m models.EditorMode) (State, error) {
	if m != models.ModeEdit && m != models.ModeAssign {
		return s, fmt.Errorf("%w: unknown mode %q", ErrWrongMode, m)
	}
	next := s.clone()
	next.Mode = m
	next.Dragged = nil
	return next, nil
}

// Select picks a palette entry as the dragged object.
func (s State) Select(id models.ObjectID, rotation int, offset models.Point) (State, error) {
	if s.Mode != models.ModeEdit {
		return s, ErrWrongMode
	}
	t, ok := s.Palette().Lookup(id)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	rows, cols := t.Footprint(rotation)
	if offset.X < 0 || offset.Y < 0 || offset.X >= cols || offset.Y >= rows {
		offset = models.Point{}
	}
	next := s.clone()
	next.Dragged = &DraggedObject{Type: t, Rotation: models.NormalizeRotation(rotation), Offset: offset}
	return next, nil
}

// CancelDrag drops the dragged object, if any.
func (s State) CancelDrag() State {
	if s.Dragged == nil {
		return s
	}
	next := s.clone()
	next.Dragged = nil
	return next
}

// DefineFurniture adds a furniture type that only exists locally until the
// next save. key must be unique within the session.
func (s State) DefineFurniture(key, name string, rows, cols int) (State, models.ObjectType, error) {
	t := models.ObjectType{
		ID:       models.Pending(key),
		Name:     name,
		Category: models.CategoryFurniture,
		Rows:     rows,
		Cols:     cols,
	}
	if err := t.Validate(); err != nil {
		return s, models.ObjectType{}, err
	}
	if _, exists := s.Palette().Lookup(t.ID); exists {
		return s, models.ObjectType{}, fmt.Errorf("object type %s already defined", t.ID)
	}
	next := s.clone()
	next.Types = append(next.Types, t)
	return next, t, nil
}

// AssignTarget resolves an assign-mode click to the furniture under it.
func (s State) AssignTarget(x, y int) (models.ObjectType, error) {
	if s.Mode != models.ModeAssign {
		return models.ObjectType{}, ErrWrongMode
	}
	p, ok := s.At(x, y)
	if !ok {
		return models.ObjectType{}, ErrEmptyCell
	}
	t, ok := s.Palette().Lookup(p.ObjectID)
	if !ok {
		return models.ObjectType{}, fmt.Errorf("%w: %s", ErrUnknownObject, p.ObjectID)
	}
	if !t.IsFurniture() {
		return t, ErrNotAssignable
	}
	return t, nil
}

func (s State) clone() State {
	next := s
	next.Types = append([]models.ObjectType(nil), s.Types...)
	next.Placements = append([]models.Placement(nil), s.Placements...)
	if s.Dragged != nil {
		d := *s.Dragged
		next.Dragged = &d
	}
	return next
}
