package editor

import (
	"errors"
	"testing"

	"github.com/restock-console/mapeditor/internal/layout"
	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/testutil"
	"github.com/restock-console/mapeditor/internal/unify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T, w, h int) State {
	t.Helper()
	return NewState(testutil.NewLayout("m1", w, h))
}

func mustPlace(t *testing.T, s State, x, y int, ot models.ObjectType) State {
	t.Helper()
	next, err := s.Place(x, y, ot, 0)
	require.NoError(t, err)
	return next
}

func TestState_PlaceBounds(t *testing.T) {
	s := newState(t, 10, 10)
	for _, p := range []models.Point{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 9, Y: 9}} {
		ot := testutil.Wall
		if p == (models.Point{X: 9, Y: 9}) {
			ot = testutil.Rack // 2x3 footprint spills out of the grid
		}
		next, err := s.Place(p.X, p.Y, ot, 0)

		var rej *layout.Rejection
		require.ErrorAs(t, err, &rej, "point %s", p)
		assert.Equal(t, layout.OutOfBounds, rej.Reason)
		assert.Empty(t, next.Placements)
		assert.False(t, next.Dirty)
	}
}

func TestState_PlaceNoOverlap(t *testing.T) {
	s := mustPlace(t, newState(t, 10, 10), 2, 3, testutil.Wall)

	next, err := s.Place(2, 3, testutil.Shelf, 0)
	var rej *layout.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, layout.Occupied, rej.Reason)
	assert.Len(t, next.Placements, 1)

	// A multi-cell footprint touching the occupied cell is rejected whole.
	next, err = s.Place(1, 2, testutil.Rack, 0)
	require.Error(t, err)
	assert.Len(t, next.Placements, 1)
}

func TestState_PlaceMultiCellAndRotation(t *testing.T) {
	s := newState(t, 10, 10)

	next, err := s.Place(0, 0, testutil.Rack, 0)
	require.NoError(t, err)
	assert.Len(t, next.Placements, 6)
	assert.True(t, next.Dirty)
	assert.Empty(t, s.Placements, "original state untouched")

	next, err = s.Place(0, 0, testutil.Rack, 90)
	require.NoError(t, err)
	_, ok := next.At(1, 2)
	assert.True(t, ok, "rotated footprint is 3 rows by 2 cols")
	_, ok = next.At(2, 0)
	assert.False(t, ok)
}

func TestState_PlaceUnknownType(t *testing.T) {
	ghost := models.ObjectType{ID: models.Persisted(404), Name: "Ghost", Category: models.CategoryWall, Rows: 1, Cols: 1}
	_, err := newState(t, 10, 10).Place(0, 0, ghost, 0)
	assert.ErrorIs(t, err, ErrUnknownObject)
}

func TestState_WallScenario(t *testing.T) {
	s := mustPlace(t, newState(t, 10, 10), 2, 3, testutil.Wall)

	assert.Empty(t, unify.Blocks(s.Placements, s.Palette(), unify.Options{}))
	p, ok := s.At(2, 3)
	require.True(t, ok)
	assert.Equal(t, testutil.Wall.ID, p.ObjectID)
}

func TestState_DropKeepsDrag(t *testing.T) {
	s := newState(t, 10, 10)

	_, _, err := s.Drop(1, 1)
	assert.ErrorIs(t, err, ErrNoDraggedObject)

	s, err = s.Select(testutil.Shelf.ID, 0, models.Point{})
	require.NoError(t, err)
	s, cells, err := s.Drop(1, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Point{{X: 1, Y: 1}}, cells)
	require.NotNil(t, s.Dragged)

	s, _, err = s.Drop(2, 1)
	require.NoError(t, err)
	assert.Len(t, s.Placements, 2)
}

func TestState_DropWithOffset(t *testing.T) {
	s, err := newState(t, 10, 10).Select(testutil.Rack.ID, 0, models.Point{X: 2, Y: 1})
	require.NoError(t, err)

	s, cells, err := s.Drop(5, 5)
	require.NoError(t, err)
	assert.Equal(t, models.Point{X: 3, Y: 4}, cells[0])
	assert.Len(t, s.Placements, 6)
}

func TestState_ModeGates(t *testing.T) {
	s, err := newState(t, 10, 10).Select(testutil.Shelf.ID, 0, models.Point{})
	require.NoError(t, err)

	s, err = s.SetMode(models.ModeAssign)
	require.NoError(t, err)
	assert.Nil(t, s.Dragged, "mode change cancels the drag")
	assert.False(t, s.Dirty)

	_, _, err = s.Drop(0, 0)
	assert.ErrorIs(t, err, ErrWrongMode)
	_, err = s.Select(testutil.Shelf.ID, 0, models.Point{})
	assert.ErrorIs(t, err, ErrWrongMode)
	_, err = s.Clear(true)
	assert.ErrorIs(t, err, ErrWrongMode)

	_, err = s.SetMode("draw")
	assert.ErrorIs(t, err, ErrWrongMode)
}

func TestState_AssignTarget(t *testing.T) {
	s := newState(t, 10, 10)
	s = mustPlace(t, s, 0, 0, testutil.Shelf)
	s = mustPlace(t, s, 4, 4, testutil.Wall)
	s, err := s.SetMode(models.ModeAssign)
	require.NoError(t, err)

	tests := []struct {
		name    string
		x, y    int
		want    models.ObjectID
		wantErr error
	}{
		{"furniture", 0, 0, testutil.Shelf.ID, nil},
		{"wall is not assignable", 4, 4, testutil.Wall.ID, ErrNotAssignable},
		{"empty cell", 7, 7, models.ObjectID{}, ErrEmptyCell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.AssignTarget(tt.x, tt.y)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestState_RemoveAndClear(t *testing.T) {
	s := mustPlace(t, newState(t, 10, 10), 0, 0, testutil.Rack)
	s.Dirty = false

	next, err := s.Remove(1, 1)
	require.NoError(t, err)
	assert.Len(t, next.Placements, 5)
	assert.True(t, next.Dirty)

	_, err = s.Remove(9, 9)
	assert.ErrorIs(t, err, ErrEmptyCell)

	var rej *layout.Rejection
	_, err = s.Remove(10, 0)
	assert.ErrorAs(t, err, &rej)

	_, err = s.Clear(false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	cleared, err := s.Clear(true)
	require.NoError(t, err)
	assert.Empty(t, cleared.Placements)
	assert.True(t, cleared.Dirty)
}

func TestState_Validate(t *testing.T) {
	base := newState(t, 10, 10)

	t.Run("missing exit", func(t *testing.T) {
		err := base.Validate()
		assert.ErrorIs(t, err, ErrMissingExit)
		assert.False(t, errors.Is(err, ErrMultipleExits))
	})

	t.Run("single exit", func(t *testing.T) {
		assert.NoError(t, mustPlace(t, base, 5, 5, testutil.Exit).Validate())
	})

	t.Run("adjacent exit cells are one exit", func(t *testing.T) {
		s := mustPlace(t, base, 5, 5, testutil.Exit)
		s = mustPlace(t, s, 6, 5, testutil.Exit)
		assert.NoError(t, s.Validate())
	})

	t.Run("two exits", func(t *testing.T) {
		s := mustPlace(t, base, 0, 0, testutil.Exit)
		s = mustPlace(t, s, 9, 9, testutil.Exit)
		err := s.Validate()
		assert.ErrorIs(t, err, ErrMultipleExits)
		assert.False(t, errors.Is(err, ErrMissingExit))
	})
}

func TestState_SavePayload(t *testing.T) {
	s := newState(t, 10, 10)
	s, shelf, err := s.DefineFurniture("tmp-1", "Nevera", 1, 2)
	require.NoError(t, err)
	assert.True(t, shelf.ID.IsPending())

	s = mustPlace(t, s, 0, 0, shelf)
	s = mustPlace(t, s, 5, 5, testutil.Exit)

	payload, err := s.SavePayload()
	require.NoError(t, err)
	assert.Equal(t, "m1", payload.MapID)
	require.Len(t, payload.NewObjects, 1)
	assert.Equal(t, "tmp-1", payload.NewObjects[0].TempKey)
	assert.Equal(t, models.CategoryFurniture, payload.NewObjects[0].Category)

	require.Len(t, payload.Placements, 3)
	for _, rec := range payload.Placements {
		hasRef := rec.ObjectRef != 0
		hasKey := rec.TempKey != ""
		assert.True(t, hasRef != hasKey, "exactly one reference at %d,%d", rec.X, rec.Y)
	}

	_, _, err = s.DefineFurniture("tmp-1", "Otra", 1, 1)
	assert.Error(t, err, "duplicate key")
	_, _, err = s.DefineFurniture("tmp-2", "", 1, 1)
	assert.Error(t, err, "empty name")
}

func TestState_SavePayloadBlockedByValidation(t *testing.T) {
	payload, err := newState(t, 10, 10).SavePayload()
	assert.Nil(t, payload)
	assert.ErrorIs(t, err, ErrMissingExit)
}

func TestState_ApplySaved(t *testing.T) {
	s, pending, err := newState(t, 10, 10).DefineFurniture("tmp-1", "Nevera", 1, 1)
	require.NoError(t, err)
	s = mustPlace(t, s, 0, 0, pending)
	s = mustPlace(t, s, 5, 5, testutil.Exit)

	t.Run("clean save clears dirty", func(t *testing.T) {
		next, err := s.ApplySaved(&models.SaveResult{Created: map[string]int64{"tmp-1": 50}}, true)
		require.NoError(t, err)
		assert.False(t, next.Dirty)
		p, _ := next.At(0, 0)
		assert.Equal(t, models.Persisted(50), p.ObjectID)
		_, ok := next.Palette().Lookup(models.Persisted(50))
		assert.True(t, ok)
	})

	t.Run("changes during save keep dirty", func(t *testing.T) {
		next, err := s.ApplySaved(&models.SaveResult{Created: map[string]int64{"tmp-1": 50}}, false)
		require.NoError(t, err)
		assert.True(t, next.Dirty)
	})

	t.Run("missing id leaves state unchanged", func(t *testing.T) {
		next, err := s.ApplySaved(&models.SaveResult{Created: map[string]int64{}}, true)
		require.Error(t, err)
		assert.Equal(t, s, next)
	})
}
