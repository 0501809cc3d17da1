package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/restock-console/mapeditor/internal/editor"
	"github.com/restock-console/mapeditor/internal/event"
	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/render"
)

const statusBarHeight = 36

var (
	backgroundColor = color.RGBA{0xf1, 0xf3, 0xf5, 0xff}
	numberKeys      = []ebiten.Key{
		ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5,
		ebiten.Key6, ebiten.Key7, ebiten.Key8, ebiten.Key9,
	}
)

// redrawFlag marks the cached frame stale on any editor event.
type redrawFlag struct {
	stale atomic.Bool
}

func (f *redrawFlag) OnEvent(event.Event) { f.stale.Store(true) }

// App adapts an editor.Editor to ebiten's game loop.
type App struct {
	ctx     context.Context
	ed      *editor.Editor
	painter *render.Painter
	redraw  *redrawFlag

	maps    []string
	current int

	frame  *ebiten.Image
	width  int
	height int

	cursorX, cursorY int
	rotation         int

	confirmClear  confirmGate
	confirmSwitch confirmGate

	statusMu sync.Mutex
	status   string
}

func newApp(ctx context.Context, ed *editor.Editor, painter *render.Painter, maps []string, current int) *App {
	a := &App{
		ctx:     ctx,
		ed:      ed,
		painter: painter,
		redraw:  &redrawFlag{},
		maps:    maps,
		current: current,
		cursorX: -1,
		cursorY: -1,

		confirmClear:  confirmGate{key: ebiten.KeyC},
		confirmSwitch: confirmGate{key: ebiten.KeyN},
	}
	a.redraw.stale.Store(true)
	ed.Events().SubscribeAll(a.redraw)
	a.setStatus("E editar | A asignar | 1-9 elegir | R rotar | Esc soltar | S guardar | C vaciar | N mapa")
	return a
}

func (a *App) setStatus(format string, args ...any) {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	a.status = fmt.Sprintf(format, args...)
}

func (a *App) getStatus() string {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	return a.status
}

// confirmGate asks for a second consecutive press of key before a
// destructive action. Any other key or a click disarms it.
type confirmGate struct {
	key   ebiten.Key
	armed bool
}

func (g *confirmGate) observe(keys []ebiten.Key, clicked bool) {
	if clicked {
		g.armed = false
		return
	}
	for _, k := range keys {
		if k != g.key {
			g.armed = false
			return
		}
	}
}

func (a *App) Update() error {
	keys := inpututil.AppendJustPressedKeys(nil)
	clicked := inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) ||
		inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight)
	a.confirmClear.observe(keys, clicked)
	a.confirmSwitch.observe(keys, clicked)

	a.handlePointer()
	a.handleKeys()
	return nil
}

func (a *App) handlePointer() {
	x, y := ebiten.CursorPosition()
	if x != a.cursorX || y != a.cursorY {
		a.cursorX, a.cursorY = x, y
		if x < 0 || y < 0 || x >= a.width || y >= a.height {
			a.ed.PointerLeave()
		} else {
			a.ed.PointerMove(float64(x), float64(y))
		}
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		shift := ebiten.IsKeyPressed(ebiten.KeyShift)
		out, err := a.ed.Click(a.ctx, float64(x), float64(y), shift)
		switch {
		case err != nil:
			a.setStatus("Error: %v", err)
		case out.Kind == editor.OutcomeAssign && !out.Found:
			a.setStatus("%s: sin puntos de reposición", out.Object.Name)
		case out.Kind == editor.OutcomeAssign:
			a.setStatus("%s: %d puntos de reposición", out.Object.Name, len(out.Points))
		case out.Kind == editor.OutcomePlaced:
			a.setStatus("Colocado en %s (%d celdas)", out.Cell, len(out.Placed))
		}
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		if cell, ok := a.ed.Mapper().CellAt(float64(x), float64(y)); ok {
			if err := a.ed.Delete(cell); err != nil {
				a.setStatus("Error: %v", err)
			}
		}
	}
}

func (a *App) handleKeys() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyE):
		a.setMode(models.ModeEdit)
	case inpututil.IsKeyJustPressed(ebiten.KeyA):
		a.setMode(models.ModeAssign)
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		a.ed.CancelDrag()
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		a.rotate()
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		go a.save()
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		a.clear()
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		a.nextMap()
	}

	for i, k := range numberKeys {
		if inpututil.IsKeyJustPressed(k) {
			a.pick(i)
		}
	}
}

func (a *App) setMode(m models.EditorMode) {
	if err := a.ed.SetMode(m); err != nil {
		a.setStatus("Error: %v", err)
		return
	}
	a.setStatus("Modo: %s", m)
}

func (a *App) pick(i int) {
	types := a.ed.State().Types
	if i >= len(types) {
		return
	}
	if err := a.ed.Select(types[i].ID, a.rotation, models.Point{}); err != nil {
		a.setStatus("Error: %v", err)
		return
	}
	a.setStatus("Arrastrando %s", types[i].Name)
}

func (a *App) rotate() {
	a.rotation = models.NormalizeRotation(a.rotation + 90)
	if d := a.ed.State().Dragged; d != nil {
		if err := a.ed.Select(d.Type.ID, a.rotation, models.Point{}); err != nil {
			a.setStatus("Error: %v", err)
			return
		}
	}
	a.setStatus("Rotación: %d°", a.rotation)
}

func (a *App) save() {
	a.setStatus("Guardando...")
	res, err := a.ed.Save(a.ctx)
	if err != nil {
		a.setStatus("No se pudo guardar: %v", err)
		return
	}
	a.setStatus("Guardado (%d objetos nuevos)", len(res.Created))
}

func (a *App) clear() {
	if !a.confirmClear.armed {
		a.confirmClear.armed = true
		a.setStatus("Pulse C otra vez para vaciar el mapa")
		return
	}
	a.confirmClear.armed = false
	if err := a.ed.Clear(true); err != nil {
		a.setStatus("Error: %v", err)
		return
	}
	a.setStatus("Mapa vaciado")
}

func (a *App) nextMap() {
	next := (a.current + 1) % len(a.maps)
	err := a.ed.Load(a.ctx, a.maps[next], a.confirmSwitch.armed)
	if errors.Is(err, editor.ErrUnsavedChanges) {
		a.confirmSwitch.armed = true
		a.setStatus("Hay cambios sin guardar. Pulse N otra vez para descartarlos")
		return
	}
	a.confirmSwitch.armed = false
	if err != nil {
		a.setStatus("Error: %v", err)
		return
	}
	a.current = next
	a.width = 0
	ebiten.SetWindowSize(a.Layout(0, 0))
	a.redraw.stale.Store(true)
	a.setStatus("Mapa %s", a.ed.Info().MapName)
}

func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	if a.redraw.stale.Swap(false) || a.frame == nil {
		scene := a.ed.Scene()
		a.width, a.height = scene.Width, scene.Height
		if a.frame != nil {
			a.frame.Deallocate()
		}
		a.frame = ebiten.NewImageFromImage(a.painter.Paint(scene))
	}
	screen.DrawImage(a.frame, nil)

	info := a.ed.Info()
	dirty := ""
	if info.Dirty {
		dirty = " *"
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s [%s]%s", info.MapName, info.Mode, dirty), 4, a.height+2)
	ebitenutil.DebugPrintAt(screen, a.getStatus(), 4, a.height+18)
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	if a.width == 0 {
		scene := a.ed.Scene()
		a.width, a.height = scene.Width, scene.Height
	}
	w := a.width
	if w < 480 {
		w = 480
	}
	return w, a.height + statusBarHeight
}
