// handlers_render.go - Display lists, rendered images and stored exports
package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/render"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	mimeMsgpack = "application/msgpack"
	mimeSVG     = "image/svg+xml"
	mimePNG     = "image/png"
)

// HandleGetScene returns the display list as JSON.
func (h *Handler) HandleGetScene(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ed.Scene())
}

// HandleGetSceneMsgpack returns the display list in MessagePack format.
func (h *Handler) HandleGetSceneMsgpack(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(ed.Scene())
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, mimeMsgpack, data)
}

// HandleGetLayoutMsgpack returns the current, possibly unsaved, layout in
// MessagePack format.
func (h *Handler) HandleGetLayoutMsgpack(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	st := ed.State()
	data, err := msgpack.Marshal(&models.Layout{
		MapID:      st.MapID,
		Name:       st.Name,
		Grid:       st.Grid,
		Placements: st.Placements,
		Palette:    st.Types,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, mimeMsgpack, data)
}

// HandleRenderPNG rasterises the current scene.
func (h *Handler) HandleRenderPNG(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.painter.EncodePNG(&buf, ed.Scene()); err != nil {
		return NewInternalError("failed to render png", err)
	}
	return c.Blob(http.StatusOK, mimePNG, buf.Bytes())
}

// HandleRenderSVG writes the current scene as SVG.
func (h *Handler) HandleRenderSVG(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := render.SVG(&buf, ed.Scene()); err != nil {
		return NewInternalError("failed to render svg", err)
	}
	return c.Blob(http.StatusOK, mimeSVG, buf.Bytes())
}

// HandleExport renders the scene and keeps the PNG in the export store.
func (h *Handler) HandleExport(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.painter.EncodePNG(&buf, ed.Scene()); err != nil {
		return NewInternalError("failed to render png", err)
	}

	st := ed.State()
	info, err := h.exports.Save(st.MapID, st.Name+".png", &buf)
	if err != nil {
		return NewInternalError("failed to store export", err)
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleRecentExports lists the most recent exports.
func (h *Handler) HandleRecentExports(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 20
	}
	list, err := h.exports.List(limit)
	if err != nil {
		return NewInternalError("failed to list exports", err)
	}
	if list == nil {
		list = []*models.ExportInfo{}
	}
	return c.JSON(http.StatusOK, list)
}

// HandleGetExport downloads a stored export.
func (h *Handler) HandleGetExport(c echo.Context) error {
	id := c.Param("id")
	info, err := h.exports.Get(id)
	if err != nil {
		return NewNotFoundError("export", id)
	}
	path, err := h.exports.GetFilePath(id)
	if err != nil {
		return NewNotFoundError("export", id)
	}
	return c.Attachment(path, info.Name)
}

// HandleDeleteExport removes a stored export.
func (h *Handler) HandleDeleteExport(c echo.Context) error {
	id := c.Param("id")
	if err := h.exports.Delete(id); err != nil {
		return NewNotFoundError("export", id)
	}
	return c.NoContent(http.StatusNoContent)
}
