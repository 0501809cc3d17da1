package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/restock-console/mapeditor/internal/editor"
	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/storage"
)

// Handler handles API requests.
type Handler struct {
	maps     MapStore
	sessions SessionManager
	exports  storage.ExportStore
	painter  ScenePainter
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(maps MapStore, sessions SessionManager, exports storage.ExportStore, painter ScenePainter, version string) *Handler {
	return &Handler{
		maps:     maps,
		sessions: sessions,
		exports:  exports,
		painter:  painter,
		version:  version,
	}
}

// editor resolves the :id path parameter to a live editor.
func (h *Handler) editor(c echo.Context) (*editor.Editor, error) {
	id := c.Param("id")
	if id == "" {
		return nil, NewValidationError("id")
	}
	ed, ok := h.sessions.GetEditor(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	return ed, nil
}

// HandleListMaps returns every stored map.
func (h *Handler) HandleListMaps(c echo.Context) error {
	maps, err := h.maps.ListMaps(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to list maps", err)
	}
	if maps == nil {
		maps = []models.MapInfo{}
	}
	return c.JSON(http.StatusOK, maps)
}

type createMapRequest struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// HandleCreateMap creates an empty map.
func (h *Handler) HandleCreateMap(c echo.Context) error {
	var req createMapRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}
	if _, err := models.NewGrid(req.Width, req.Height); err != nil {
		return NewBadRequestError("invalid map dimensions", err)
	}

	info, err := h.maps.CreateMap(c.Request().Context(), req.Name, req.Width, req.Height)
	if err != nil {
		return NewInternalError("failed to create map", err)
	}
	return c.JSON(http.StatusCreated, info)
}

type startSessionRequest struct {
	MapID string `json:"mapId"`
}

// HandleStartSession opens an editor on a map.
func (h *Handler) HandleStartSession(c echo.Context) error {
	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.MapID == "" {
		return NewValidationError("mapId")
	}

	info, err := h.sessions.StartSession(c.Request().Context(), req.MapID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleListSessions returns all open sessions.
func (h *Handler) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessions.ListSessions())
}

type sessionSnapshot struct {
	Session *models.SessionInfo `json:"session"`
	State   editor.State        `json:"state"`
}

// HandleGetSession returns the session summary and the full editor state.
func (h *Handler) HandleGetSession(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	info, ok := h.sessions.GetSession(ed.ID())
	if !ok {
		return NewNotFoundError("session", ed.ID())
	}
	return c.JSON(http.StatusOK, sessionSnapshot{Session: info, State: ed.State()})
}

// HandleCloseSession closes an editor. Unsaved changes are discarded.
func (h *Handler) HandleCloseSession(c echo.Context) error {
	id := c.Param("id")
	if !h.sessions.CloseSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

type loadMapRequest struct {
	MapID   string `json:"mapId"`
	Discard bool   `json:"discard"`
}

// HandleLoadMap switches the editor to another map.
func (h *Handler) HandleLoadMap(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	var req loadMapRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.MapID == "" {
		return NewValidationError("mapId")
	}
	if err := ed.Load(c.Request().Context(), req.MapID, req.Discard); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ed.Info())
}

// HandleGetPalette returns the palette, pending furniture included.
func (h *Handler) HandleGetPalette(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ed.State().Types)
}

type defineFurnitureRequest struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// HandleDefineFurniture adds a furniture type that is created on the next save.
func (h *Handler) HandleDefineFurniture(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	var req defineFurnitureRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	t, err := ed.DefineFurniture(req.Name, req.Rows, req.Cols)
	if err != nil {
		return NewBadRequestError("invalid furniture definition", err)
	}
	return c.JSON(http.StatusCreated, t)
}

type setModeRequest struct {
	Mode models.EditorMode `json:"mode"`
}

// HandleSetMode switches between edit and assign mode.
func (h *Handler) HandleSetMode(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	var req setModeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := ed.SetMode(req.Mode); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ed.Info())
}

type selectRequest struct {
	ObjectID models.ObjectID `json:"objectId"`
	Rotation int             `json:"rotation"`
	Offset   models.Point    `json:"offset"`
}

// HandleSelect picks a palette entry as the dragged object.
func (h *Handler) HandleSelect(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if !req.ObjectID.Valid() {
		return NewValidationError("objectId")
	}
	if err := ed.Select(req.ObjectID, req.Rotation, req.Offset); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ed.State().Dragged)
}

// HandleCancelDrag drops the selection.
func (h *Handler) HandleCancelDrag(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	ed.CancelDrag()
	return c.NoContent(http.StatusNoContent)
}

// HandleDeleteCell removes the placement on one cell.
func (h *Handler) HandleDeleteCell(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errX != nil || errY != nil {
		return NewBadRequestError("cell coordinates must be integers", nil)
	}
	if err := ed.Delete(models.Point{X: x, Y: y}); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ed.Info())
}

type clearRequest struct {
	Confirm bool `json:"confirm"`
}

// HandleClear empties the map. It requires {"confirm": true}.
func (h *Handler) HandleClear(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	var req clearRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := ed.Clear(req.Confirm); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ed.Info())
}

// HandleValidate runs the pre-save checks without saving.
func (h *Handler) HandleValidate(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	if err := ed.Validate(); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": true})
}

type saveResponse struct {
	Result  *models.SaveResult `json:"result"`
	Session editor.Info        `json:"session"`
}

// HandleSave validates and persists the layout.
func (h *Handler) HandleSave(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	res, err := ed.Save(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, saveResponse{Result: res, Session: ed.Info()})
}

type highlightRequest struct {
	Cells []models.Point `json:"cells"`
}

// HandleSetHighlight replaces the highlighted cells.
func (h *Handler) HandleSetHighlight(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	var req highlightRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	ed.SetHighlight(req.Cells)
	return c.NoContent(http.StatusNoContent)
}

type routeRequest struct {
	Points []models.Point `json:"points"`
}

// HandleSetRoute replaces the route overlay.
func (h *Handler) HandleSetRoute(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	var req routeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	ed.SetRoute(req.Points)
	return c.NoContent(http.StatusNoContent)
}
