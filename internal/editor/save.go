package editor

import (
	"fmt"

	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/unify"
)

// ExitGroups counts exits. Adjacent exit cells of the same type form one
// group, so a 2-cell door is a single exit.
func (s State) ExitGroups() int {
	palette := s.Palette()
	byType := make(map[models.ObjectID][]models.Point)
	for _, p := range s.Placements {
		t, ok := palette.Lookup(p.ObjectID)
		if !ok || t.Category != models.CategoryExit {
			continue
		}
		byType[p.ObjectID] = append(byType[p.ObjectID], p.Cell())
	}
	n := 0
	for _, cells := range byType {
		n += len(unify.Components(cells))
	}
	return n
}

// Validate runs the pre-save checks.
func (s State) Validate() error {
	switch n := s.ExitGroups(); {
	case n == 0:
		return ErrMissingExit
	case n > 1:
		return fmt.Errorf("%w: found %d", ErrMultipleExits, n)
	}
	return nil
}

// SavePayload validates the layout and serialises it. Placements of pending
// types reference the type's temporary key; all others reference the
// persisted id.
func (s State) SavePayload() (*models.SavePayload, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	palette := s.Palette()
	payload := &models.SavePayload{
		MapID:      s.MapID,
		NewObjects: []models.NewObject{},
		Placements: make([]models.PlacementRecord, 0, len(s.Placements)),
	}
	defined := make(map[string]bool)

	for _, p := range s.Placements {
		rec := models.PlacementRecord{X: p.X, Y: p.Y, Rotation: p.Rotation}
		switch {
		case p.ObjectID.IsPending():
			t, ok := palette.Lookup(p.ObjectID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownObject, p.ObjectID)
			}
			if !defined[t.ID.Key] {
				defined[t.ID.Key] = true
				payload.NewObjects = append(payload.NewObjects, models.NewObject{
					TempKey:  t.ID.Key,
					Name:     t.Name,
					Category: t.Category,
					Rows:     t.Rows,
					Cols:     t.Cols,
					Walkable: t.Walkable,
				})
			}
			rec.TempKey = t.ID.Key
		case p.ObjectID.IsPersisted():
			rec.ObjectRef = p.ObjectID.Ref
		default:
			return nil, fmt.Errorf("%w: placement at %s has no identity", ErrUnknownObject, p.Cell())
		}
		payload.Placements = append(payload.Placements, rec)
	}
	return payload, nil
}

// ApplySaved swaps pending identities for the ones the backend assigned.
// The dirty flag is cleared only when clean is true, i.e. nothing changed
// while the save was in flight.
func (s State) ApplySaved(res *models.SaveResult, clean bool) (State, error) {
	remap := make(map[models.ObjectID]models.ObjectID)
	for _, t := range s.Types {
		if !t.ID.IsPending() {
			continue
		}
		ref, ok := res.Created[t.ID.Key]
		if !ok {
			continue
		}
		remap[t.ID] = models.Persisted(ref)
	}
	for _, p := range s.Placements {
		if p.ObjectID.IsPending() {
			if _, ok := remap[p.ObjectID]; !ok && clean {
				return s, fmt.Errorf("backend returned no id for pending object %s", p.ObjectID)
			}
		}
	}

	next := s.clone()
	for i, t := range next.Types {
		if id, ok := remap[t.ID]; ok {
			next.Types[i].ID = id
		}
	}
	for i, p := range next.Placements {
		if id, ok := remap[p.ObjectID]; ok {
			next.Placements[i].ObjectID = id
		}
	}
	if next.Dragged != nil {
		if id, ok := remap[next.Dragged.Type.ID]; ok {
			next.Dragged.Type.ID = id
		}
	}
	if clean {
		next.Dirty = false
	}
	return next, nil
}
