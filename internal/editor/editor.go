package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/restock-console/mapeditor/internal/event"
	"github.com/restock-console/mapeditor/internal/interaction"
	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/render"
	"github.com/restock-console/mapeditor/internal/unify"
)

// Options configures an Editor.
type Options struct {
	MaxCanvas         int
	NameFallback      bool
	AnimationInterval time.Duration
	DashStep          float64
}

// DefaultOptions matches the renderer defaults.
func DefaultOptions() Options {
	return Options{
		MaxCanvas:         render.DefaultMaxCanvas,
		AnimationInterval: 50 * time.Millisecond,
		DashStep:          1,
	}
}

// OutcomeKind says what a click or drop did.
type OutcomeKind string

const (
	OutcomeNone   OutcomeKind = "none"
	OutcomePlaced OutcomeKind = "placed"
	OutcomeAssign OutcomeKind = "assign"
)

// Outcome is the result of a pointer action that reached the grid.
type Outcome struct {
	Kind     OutcomeKind           `json:"kind"`
	Cell     *models.Point         `json:"cell,omitempty"`
	Modifier bool                  `json:"modifier,omitempty"`
	Placed   []models.Point        `json:"placed,omitempty"`
	Object   *models.ObjectType    `json:"object,omitempty"`
	Points   []models.RestockPoint `json:"points,omitempty"`
	Found    bool                  `json:"found"`
}

// Editor is a live editing session: the State plus hover, overlays, the
// preview animation and the backend round trips. It is safe for concurrent
// use; backend calls run without the lock held.
type Editor struct {
	id      string
	backend Backend
	events  *event.Dispatcher
	opts    Options

	mu        sync.Mutex
	state     State
	loaded    bool
	version   uint64
	mutations uint64
	saving    bool
	surface   *interaction.Surface
	highlight []models.Point
	route     []models.Point

	animator *Animator
}

// New creates an editor with no map loaded. events may be nil.
func New(id string, backend Backend, events *event.Dispatcher, opts Options) *Editor {
	if events == nil {
		events = event.NewDispatcher()
	}
	e := &Editor{
		id:      id,
		backend: backend,
		events:  events,
		opts:    opts,
		state:   State{Mode: models.ModeEdit},
		surface: interaction.NewSurface(interaction.Mapper{}),
	}
	e.animator = NewAnimator(opts.AnimationInterval, opts.DashStep, render.DashLength+render.DashGap, e.frame)
	return e
}

// ID returns the session id.
func (e *Editor) ID() string { return e.id }

// Events returns the dispatcher this editor publishes on.
func (e *Editor) Events() *event.Dispatcher { return e.events }

func (e *Editor) frame(offset float64) {
	e.publish(event.Frame, map[string]float64{"dashOffset": offset})
}

func (e *Editor) publish(t event.Type, data any) {
	e.events.Dispatch(event.Event{Type: t, SessionID: e.id, Data: data})
}

func (e *Editor) logf(format string, args ...any) {
	fmt.Printf("[Editor %s] "+format+"\n", append([]any{shortID(e.id)}, args...)...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// commit installs a new state. Callers hold mu.
func (e *Editor) commit(next State) {
	hadDrag := e.state.Dragged != nil
	e.state = next
	e.version++
	switch {
	case next.Dragged != nil && !hadDrag:
		e.animator.Start()
	case next.Dragged == nil && hadDrag:
		e.animator.Stop()
	}
}

// Load switches to another map. With unsaved changes it fails with
// ErrUnsavedChanges unless discard is set. No switch happens while a save is
// in flight.
func (e *Editor) Load(ctx context.Context, mapID string, discard bool) error {
	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return ErrSaveInProgress
	}
	if e.state.Dirty && !discard {
		e.mu.Unlock()
		return ErrUnsavedChanges
	}
	e.mu.Unlock()

	l, err := e.backend.LoadLayout(ctx, mapID)
	if err != nil {
		return &CollaboratorError{Op: "load", Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.saving {
		return ErrSaveInProgress
	}
	if e.state.Dirty && !discard {
		return ErrUnsavedChanges
	}
	e.commit(NewState(l))
	e.loaded = true
	e.highlight, e.route = nil, nil
	cs := render.CellSize(l.Grid.MaxDimension(), e.opts.MaxCanvas)
	e.surface.Resize(interaction.Mapper{Grid: l.Grid, CellSize: cs})

	e.logf("loaded map %s (%dx%d, %d placements)", l.MapID, l.Grid.Width, l.Grid.Height, len(l.Placements))
	e.publish(event.MapLoaded, e.infoLocked())
	return nil
}

// State returns a copy of the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Version increases on every state change.
func (e *Editor) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Info summarises the session.
type Info struct {
	MapID      string            `json:"mapId"`
	MapName    string            `json:"mapName"`
	Mode       models.EditorMode `json:"mode"`
	Dirty      bool              `json:"hasUnsavedChanges"`
	Saving     bool              `json:"saving"`
	Placements int               `json:"placements"`
	Dragging   bool              `json:"dragging"`
	Loaded     bool              `json:"loaded"`
}

// Info returns the session summary.
func (e *Editor) Info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.infoLocked()
}

func (e *Editor) infoLocked() Info {
	return Info{
		MapID:      e.state.MapID,
		MapName:    e.state.Name,
		Mode:       e.state.Mode,
		Dirty:      e.state.Dirty,
		Saving:     e.saving,
		Placements: len(e.state.Placements),
		Dragging:   e.state.Dragged != nil,
		Loaded:     e.loaded,
	}
}

// SetMode switches mode. A drag in progress is cancelled.
func (e *Editor) SetMode(m models.EditorMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := e.state.SetMode(m)
	if err != nil {
		return err
	}
	dragging := e.state.Dragged != nil
	e.commit(next)
	if dragging {
		e.publish(event.DragEnded, nil)
	}
	e.publish(event.ModeChanged, m)
	return nil
}

// Select picks a palette entry for placement and starts the preview
// animation.
func (e *Editor) Select(id models.ObjectID, rotation int, offset models.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := e.state.Select(id, rotation, offset)
	if err != nil {
		return err
	}
	e.commit(next)
	e.publish(event.DragStarted, next.Dragged)
	return nil
}

// CancelDrag ends the drag and stops the animation.
func (e *Editor) CancelDrag() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Dragged == nil {
		return
	}
	e.commit(e.state.CancelDrag())
	e.publish(event.DragEnded, nil)
}

// DefineFurniture adds a pending furniture type to the palette.
func (e *Editor) DefineFurniture(name string, rows, cols int) (models.ObjectType, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, t, err := e.state.DefineFurniture(uuid.NewString(), name, rows, cols)
	if err != nil {
		return models.ObjectType{}, err
	}
	e.commit(next)
	return t, nil
}

// PointerMove updates hover from surface pixels and reports a change.
func (e *Editor) PointerMove(px, py float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.surface.Move(px, py) {
		return false
	}
	e.version++
	e.publish(event.HoverChanged, e.surface.Hover())
	return true
}

// PointerLeave clears hover.
func (e *Editor) PointerLeave() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.surface.Leave() {
		return false
	}
	e.version++
	e.publish(event.HoverChanged, nil)
	return true
}

// Click handles a click at surface pixels. Clicks off the grid, and
// edit-mode clicks with nothing selected, are OutcomeNone.
func (e *Editor) Click(ctx context.Context, px, py float64, modifier bool) (Outcome, error) {
	e.mu.Lock()
	ev, ok := e.surface.Click(px, py, modifier)
	if !ok {
		e.mu.Unlock()
		return Outcome{Kind: OutcomeNone}, nil
	}
	cell := ev.Cell

	if e.state.Mode == models.ModeEdit {
		defer e.mu.Unlock()
		if e.state.Dragged == nil {
			return Outcome{Kind: OutcomeNone, Cell: &cell, Modifier: modifier}, nil
		}
		return e.placeLocked(cell, modifier)
	}

	t, err := e.state.AssignTarget(cell.X, cell.Y)
	e.mu.Unlock()
	if err != nil {
		return Outcome{Kind: OutcomeNone, Cell: &cell, Modifier: modifier}, err
	}

	out := Outcome{Kind: OutcomeAssign, Cell: &cell, Modifier: modifier, Object: &t}
	if t.ID.IsPending() {
		return out, nil
	}
	points, found, err := e.backend.RestockPoints(ctx, t.ID.Ref)
	if err != nil {
		return Outcome{Kind: OutcomeNone, Cell: &cell, Modifier: modifier}, &CollaboratorError{Op: "restock lookup", Err: err}
	}
	out.Points, out.Found = points, found
	return out, nil
}

// Drop places the dragged object at surface pixels.
func (e *Editor) Drop(px, py float64) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev, ok := e.surface.Drop(px, py)
	if !ok {
		return Outcome{Kind: OutcomeNone}, nil
	}
	return e.placeLocked(ev.Cell, false)
}

func (e *Editor) placeLocked(cell models.Point, modifier bool) (Outcome, error) {
	next, placed, err := e.state.Drop(cell.X, cell.Y)
	if err != nil {
		return Outcome{Kind: OutcomeNone, Cell: &cell, Modifier: modifier}, err
	}
	e.commit(next)
	e.mutations++
	e.publish(event.LayoutChanged, e.infoLocked())
	return Outcome{Kind: OutcomePlaced, Cell: &cell, Modifier: modifier, Placed: placed}, nil
}

// Place is the cell-addressed form of Drop.
func (e *Editor) Place(cell models.Point) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placeLocked(cell, false)
}

// Delete removes the placement on a cell.
func (e *Editor) Delete(cell models.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := e.state.Remove(cell.X, cell.Y)
	if err != nil {
		return err
	}
	e.commit(next)
	e.mutations++
	e.publish(event.LayoutChanged, e.infoLocked())
	return nil
}

// Clear removes all placements once confirmed.
func (e *Editor) Clear(confirm bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := e.state.Clear(confirm)
	if err != nil {
		return err
	}
	e.commit(next)
	e.mutations++
	e.logf("cleared layout")
	e.publish(event.LayoutChanged, e.infoLocked())
	return nil
}

// Validate runs the pre-save checks without saving.
func (e *Editor) Validate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Validate()
}

// Save validates and sends the layout. Only one save runs at a time. On
// failure the state is left exactly as it was. A successful save leaves the
// layout dirty only if a placement changed while it was in flight.
func (e *Editor) Save(ctx context.Context) (*models.SaveResult, error) {
	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return nil, ErrSaveInProgress
	}
	payload, err := e.state.SavePayload()
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.saving = true
	mutations := e.mutations
	e.mu.Unlock()

	res, err := e.backend.SaveLayout(ctx, payload)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false
	if err == nil && res == nil {
		err = errors.New("empty save result")
	}
	if err == nil {
		var next State
		next, err = e.state.ApplySaved(res, e.mutations == mutations)
		if err == nil {
			e.commit(next)
			e.logf("saved %d placements (%d new objects)", len(payload.Placements), len(payload.NewObjects))
			e.publish(event.Saved, e.infoLocked())
			return res, nil
		}
	}
	e.logf("ERROR: save failed: %v", err)
	e.publish(event.SaveFailed, err.Error())
	return nil, &CollaboratorError{Op: "save", Err: err}
}

// SetHighlight replaces the highlighted cells.
func (e *Editor) SetHighlight(cells []models.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.highlight = append([]models.Point(nil), cells...)
	e.version++
	e.publish(event.LayoutChanged, e.infoLocked())
}

// SetRoute replaces the route overlay. Points outside the grid are kept but
// not drawn.
func (e *Editor) SetRoute(points []models.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.route = append([]models.Point(nil), points...)
	e.version++
	e.publish(event.LayoutChanged, e.infoLocked())
}

// Mapper returns the pointer mapping for the loaded grid.
func (e *Editor) Mapper() interaction.Mapper {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface.Mapper()
}

// Scene builds the current display list.
func (e *Editor) Scene() *render.Scene {
	e.mu.Lock()
	in := render.Input{
		Grid:       e.state.Grid,
		Placements: e.state.Placements,
		Palette:    e.state.Palette(),
		Highlight:  e.highlight,
		Hover:      e.surface.Hover(),
		Route:      e.route,
		MaxCanvas:  e.opts.MaxCanvas,
		Unify:      unify.Options{NameFallback: e.opts.NameFallback},
	}
	if d := e.state.Dragged; d != nil {
		in.Drag = &render.Drag{Type: d.Type, Rotation: d.Rotation}
	}
	e.mu.Unlock()

	in.DashOffset = e.animator.Offset()
	return render.Build(in)
}

// Animating reports whether the preview animation runs.
func (e *Editor) Animating() bool {
	return e.animator.Running()
}

// Close stops the animation. The editor must not be used afterwards.
func (e *Editor) Close() {
	e.animator.Stop()
	e.logf("closed")
}
