// mock_backend.go - In-memory editor backend for testing
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/restock-console/mapeditor/internal/models"
)

// ErrMapNotFound is returned by MockBackend for unknown maps.
var ErrMapNotFound = models.ErrMapNotFound

// MockBackend implements editor.Backend in memory, with failure injection
// and an optional gate that holds saves until released.
type MockBackend struct {
	mu      sync.Mutex
	layouts map[string]*models.Layout
	points  map[int64][]models.RestockPoint
	nextRef int64

	loadErr   error
	saveErr   error
	lookupErr error
	saveGate  chan struct{}

	Saves   []*models.SavePayload
	Lookups []int64
}

// NewMockBackend creates an empty backend. Objects created by saves get ids
// starting at 1000.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		layouts: make(map[string]*models.Layout),
		points:  make(map[int64][]models.RestockPoint),
		nextRef: 1000,
	}
}

func (m *MockBackend) LoadLayout(ctx context.Context, mapID string) (*models.Layout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}
	l, ok := m.layouts[mapID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, mapID)
	}
	return copyLayout(l), nil
}

func (m *MockBackend) SaveLayout(ctx context.Context, payload *models.SavePayload) (*models.SaveResult, error) {
	m.mu.Lock()
	m.Saves = append(m.Saves, payload)
	gate := m.saveGate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return nil, m.saveErr
	}
	l, ok := m.layouts[payload.MapID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, payload.MapID)
	}

	res := &models.SaveResult{Created: make(map[string]int64)}
	for _, obj := range payload.NewObjects {
		ref := m.nextRef
		m.nextRef++
		res.Created[obj.TempKey] = ref
		l.Palette = append(l.Palette, models.ObjectType{
			ID:       models.Persisted(ref),
			Name:     obj.Name,
			Category: obj.Category,
			Rows:     obj.Rows,
			Cols:     obj.Cols,
			Walkable: obj.Walkable,
		})
	}

	l.Placements = l.Placements[:0]
	for _, rec := range payload.Placements {
		ref := rec.ObjectRef
		if rec.TempKey != "" {
			ref = res.Created[rec.TempKey]
		}
		l.Placements = append(l.Placements, models.Placement{X: rec.X, Y: rec.Y, Rotation: rec.Rotation, ObjectID: models.Persisted(ref)})
	}
	return res, nil
}

func (m *MockBackend) RestockPoints(ctx context.Context, objectID int64) ([]models.RestockPoint, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Lookups = append(m.Lookups, objectID)
	if m.lookupErr != nil {
		return nil, false, m.lookupErr
	}
	pts, ok := m.points[objectID]
	return pts, ok, nil
}

// Test Helper Methods

// AddLayout stores a layout under its MapID.
func (m *MockBackend) AddLayout(l *models.Layout) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layouts[l.MapID] = copyLayout(l)
}

// Layout returns the stored copy of a map.
func (m *MockBackend) Layout(mapID string) (*models.Layout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.layouts[mapID]
	if !ok {
		return nil, false
	}
	return copyLayout(l), true
}

// SetRestockPoints registers the sub-grid of a furniture type.
func (m *MockBackend) SetRestockPoints(objectID int64, pts []models.RestockPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[objectID] = pts
}

// FailLoad makes LoadLayout return err; nil restores normal behaviour.
func (m *MockBackend) FailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// FailSave makes SaveLayout return err; nil restores normal behaviour.
func (m *MockBackend) FailSave(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// FailLookup makes RestockPoints return err; nil restores normal behaviour.
func (m *MockBackend) FailLookup(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupErr = err
}

// HoldSaves blocks SaveLayout until the returned function is called.
func (m *MockBackend) HoldSaves() (release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.saveGate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.saveGate = nil
			m.mu.Unlock()
			close(gate)
		})
	}
}

// SaveCount returns how many saves were attempted.
func (m *MockBackend) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Saves)
}

func copyLayout(l *models.Layout) *models.Layout {
	out := *l
	out.Placements = append([]models.Placement(nil), l.Placements...)
	out.Palette = append([]models.ObjectType(nil), l.Palette...)
	return &out
}
