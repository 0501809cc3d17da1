package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/restock-console/mapeditor/internal/editor"
	"github.com/restock-console/mapeditor/internal/layout"
	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/render"
	"github.com/restock-console/mapeditor/internal/session"
	"github.com/restock-console/mapeditor/internal/storage"
	"github.com/restock-console/mapeditor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type mockMapStore struct {
	mu   sync.Mutex
	maps []models.MapInfo
}

func (m *mockMapStore) CreateMap(ctx context.Context, name string, width, height int) (*models.MapInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := models.MapInfo{ID: fmt.Sprint(len(m.maps) + 1), Name: name, Width: width, Height: height, Cells: width * height}
	m.maps = append(m.maps, info)
	return &info, nil
}

func (m *mockMapStore) ListMaps(ctx context.Context) ([]models.MapInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.MapInfo(nil), m.maps...), nil
}

type testServer struct {
	e       *echo.Echo
	backend *testutil.MockBackend
	mgr     *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	backend := testutil.NewMockBackend()
	backend.AddLayout(testutil.NewLayout("m1", 10, 10))
	backend.AddLayout(testutil.NewLayout("m2", 30, 30))

	mgr := session.NewManager(backend, session.Config{Editor: editor.DefaultOptions()})
	t.Cleanup(mgr.Close)

	exports, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	painter, err := render.NewPainter()
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	h := NewHandler(&mockMapStore{}, mgr, exports, painter, "test")
	RegisterRoutes(e, h)
	RegisterWebSocketRoutes(e, h)
	return &testServer{e: e, backend: backend, mgr: mgr}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) startSession(t *testing.T, mapID string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/sessions", `{"mapId":"`+mapID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var info models.SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	return info.ID
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr), rec.Body.String())
	return apiErr.Code
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}

func TestMapHandlers(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/maps", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/maps", `{"name":"Sala norte","width":12,"height":8}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Sala norte"`)

	rec = s.do(t, http.MethodPost, "/api/maps", `{"name":"Tiny","width":4,"height":8}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/maps", `{"width":10,"height":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/api/maps", "")
	assert.Contains(t, rec.Body.String(), `"cells":96`)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/sessions", `{"mapId":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := s.startSession(t, "m1")

	rec = s.do(t, http.MethodGet, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mapId":"m1"`)
	assert.Contains(t, rec.Body.String(), `"palette"`)

	rec = s.do(t, http.MethodGet, "/api/sessions/"+id+"/palette", "")
	assert.Contains(t, rec.Body.String(), `"name":"Salida"`)

	rec = s.do(t, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestPlaceValidateAndSave(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "m1")
	base := "/api/sessions/" + id

	// Clicking with nothing selected does nothing.
	rec := s.do(t, http.MethodPost, base+"/pointer/click", `{"x":60,"y":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"none"`)

	rec = s.do(t, http.MethodPost, base+"/drag", `{"objectId":{"ref":2}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"/pointer/click", `{"x":60,"y":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"placed"`)

	rec = s.do(t, http.MethodPost, base+"/pointer/click", `{"x":61,"y":79}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "CELL_OCCUPIED", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, base+"/save", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "MISSING_EXIT", errorCode(t, rec))
	assert.Equal(t, 0, s.backend.SaveCount())

	rec = s.do(t, http.MethodPost, base+"/drag", `{"objectId":{"ref":3}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, base+"/pointer/drop", `{"x":10,"y":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/validate", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/save", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"hasUnsavedChanges":false`)
	assert.Equal(t, 1, s.backend.SaveCount())

	saved, ok := s.backend.Layout("m1")
	require.True(t, ok)
	assert.Len(t, saved.Placements, 2)
}

func TestSaveFailureIsBadGateway(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "m1")
	base := "/api/sessions/" + id

	s.do(t, http.MethodPost, base+"/drag", `{"objectId":{"ref":3}}`)
	s.do(t, http.MethodPost, base+"/pointer/click", `{"x":20,"y":20}`)
	s.backend.FailSave(errors.New("disk full"))

	rec := s.do(t, http.MethodPost, base+"/save", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "COLLABORATOR_FAILURE", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/api/sessions/"+id, "")
	assert.Contains(t, rec.Body.String(), `"hasUnsavedChanges":true`)
}

func TestModesAndEditing(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "m1")
	base := "/api/sessions/" + id

	s.do(t, http.MethodPost, base+"/drag", `{"objectId":{"ref":2}}`)
	s.do(t, http.MethodPost, base+"/pointer/click", `{"x":60,"y":60}`)

	rec := s.do(t, http.MethodPost, base+"/mode", `{"mode":"assign"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mode":"assign"`)

	rec = s.do(t, http.MethodPost, base+"/pointer/click", `{"x":60,"y":60}`)
	assert.Equal(t, "NOT_ASSIGNABLE", errorCode(t, rec))

	rec = s.do(t, http.MethodDelete, base+"/cells/1/1", "")
	assert.Equal(t, "WRONG_MODE", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, base+"/mode", `{"mode":"paint"}`)
	assert.Equal(t, "WRONG_MODE", errorCode(t, rec))

	s.do(t, http.MethodPost, base+"/mode", `{"mode":"edit"}`)

	rec = s.do(t, http.MethodDelete, base+"/cells/5/5", "")
	assert.Equal(t, "EMPTY_CELL", errorCode(t, rec))
	rec = s.do(t, http.MethodDelete, base+"/cells/a/5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/clear", `{"confirm":false}`)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Equal(t, "CONFIRMATION_REQUIRED", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, base+"/clear", `{"confirm":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"placements":0`)

	rec = s.do(t, http.MethodPost, base+"/load", `{"mapId":"m2"}`)
	assert.Equal(t, "UNSAVED_CHANGES", errorCode(t, rec))
	rec = s.do(t, http.MethodPost, base+"/load", `{"mapId":"m2","discard":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mapId":"m2"`)

	rec = s.do(t, http.MethodPost, base+"/palette/furniture", `{"name":"Isla","rows":2,"cols":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"key"`)
	rec = s.do(t, http.MethodPost, base+"/palette/furniture", `{"name":"Isla","rows":0,"cols":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/drag", `{"objectId":{"ref":99}}`)
	assert.Equal(t, "UNKNOWN_OBJECT", errorCode(t, rec))
	rec = s.do(t, http.MethodDelete, base+"/drag", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPointerAndOverlays(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "m1")
	base := "/api/sessions/" + id

	rec := s.do(t, http.MethodPost, base+"/pointer/move", `{"x":45,"y":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"changed":true,"cell":{"x":1,"y":0}}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"/pointer/move", `{"x":44,"y":6}`)
	assert.JSONEq(t, `{"changed":false,"cell":{"x":1,"y":0}}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"/pointer/leave", "")
	assert.JSONEq(t, `{"changed":true}`, rec.Body.String())

	rec = s.do(t, http.MethodPut, base+"/highlight", `{"cells":[{"x":2,"y":2}]}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodPut, base+"/route", `{"points":[{"x":0,"y":0},{"x":0,"y":3},{"x":40,"y":40}]}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/scene", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var scene render.Scene
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scene))
	assert.Equal(t, 40, scene.CellSize)
	require.NotNil(t, scene.Route)
	assert.Len(t, scene.Route.Points, 2)
	assert.Equal(t, render.CellHighlight, scene.Cells[2*10+2].State)
}

func TestRenderAndExports(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "m1")
	base := "/api/sessions/" + id

	s.do(t, http.MethodPost, base+"/drag", `{"objectId":{"ref":4}}`)
	s.do(t, http.MethodPost, base+"/pointer/click", `{"x":100,"y":100}`)

	rec := s.do(t, http.MethodGet, base+"/render.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mimePNG, rec.Header().Get(echo.HeaderContentType))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = s.do(t, http.MethodGet, base+"/render.svg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="furniture"`)

	rec = s.do(t, http.MethodGet, base+"/scene/msgpack", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var scene render.Scene
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &scene))
	assert.Len(t, scene.Furniture, 1)

	rec = s.do(t, http.MethodGet, base+"/layout/msgpack", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot models.Layout
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, "m1", snapshot.MapID)
	assert.Len(t, snapshot.Placements, 6)

	rec = s.do(t, http.MethodPost, base+"/export", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var info models.ExportInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "Sala m1.png", info.Name)

	rec = s.do(t, http.MethodGet, "/api/exports/recent", "")
	assert.Contains(t, rec.Body.String(), info.ID)

	rec = s.do(t, http.MethodGet, "/api/exports/"+info.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = s.do(t, http.MethodDelete, "/api/exports/"+info.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/exports/"+info.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"out of bounds", &layout.Rejection{Reason: layout.OutOfBounds}, http.StatusUnprocessableEntity, "OUT_OF_BOUNDS"},
		{"invalid footprint", &layout.Rejection{Reason: layout.InvalidFootprint}, http.StatusUnprocessableEntity, "INVALID_FOOTPRINT"},
		{"multiple exits", fmt.Errorf("%w: found 2", editor.ErrMultipleExits), http.StatusUnprocessableEntity, "MULTIPLE_EXITS"},
		{"no drag", editor.ErrNoDraggedObject, http.StatusConflict, "NO_DRAGGED_OBJECT"},
		{"save in progress", editor.ErrSaveInProgress, http.StatusConflict, "SAVE_IN_PROGRESS"},
		{"map not found behind load", &editor.CollaboratorError{Op: "load", Err: fmt.Errorf("%w: x", models.ErrMapNotFound)}, http.StatusNotFound, "NOT_FOUND"},
		{"lookup failure", &editor.CollaboratorError{Op: "restock lookup", Err: errors.New("timeout")}, http.StatusBadGateway, "COLLABORATOR_FAILURE"},
		{"full", session.ErrTooManySessions, http.StatusServiceUnavailable, "TOO_MANY_SESSIONS"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}

func TestEventStream(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "m1")
	ed, ok := s.mgr.GetEditor(id)
	require.True(t, ok)

	srv := httptest.NewServer(s.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/events"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, MsgTypeConnected, msg.Type)
	assert.Equal(t, id, msg.ID)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, MsgTypePong, msg.Type)

	assert.True(t, ed.PointerMove(85, 85))
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, MsgTypeEvent, msg.Type)
	assert.Equal(t, "hover_changed", msg.ID)
	assert.Contains(t, string(msg.Payload), `"x":2`)

	rec := s.do(t, http.MethodGet, "/api/sessions/unknown/events", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
