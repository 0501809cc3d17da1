// handlers_pointer.go - Pointer events in surface pixels
package api

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
)

type pointerRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Modifier bool    `json:"modifier"`
}

func bindPointer(c echo.Context) (pointerRequest, error) {
	var req pointerRequest
	if err := c.Bind(&req); err != nil {
		return req, NewBadRequestError("invalid pointer payload", err)
	}
	if math.IsNaN(req.X) || math.IsNaN(req.Y) || math.IsInf(req.X, 0) || math.IsInf(req.Y, 0) {
		return req, NewValidationError("x/y")
	}
	return req, nil
}

// HandlePointerMove updates the hovered cell.
func (h *Handler) HandlePointerMove(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	req, err := bindPointer(c)
	if err != nil {
		return err
	}
	changed := ed.PointerMove(req.X, req.Y)
	cell, ok := ed.Mapper().CellAt(req.X, req.Y)
	resp := map[string]interface{}{"changed": changed}
	if ok {
		resp["cell"] = cell
	}
	return c.JSON(http.StatusOK, resp)
}

// HandlePointerLeave clears hover.
func (h *Handler) HandlePointerLeave(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"changed": ed.PointerLeave()})
}

// HandlePointerClick places the dragged object in edit mode or looks up
// restocking points in assign mode.
func (h *Handler) HandlePointerClick(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	req, err := bindPointer(c)
	if err != nil {
		return err
	}
	out, err := ed.Click(c.Request().Context(), req.X, req.Y, req.Modifier)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}

// HandlePointerDrop places the dragged object where it was released.
func (h *Handler) HandlePointerDrop(c echo.Context) error {
	ed, err := h.editor(c)
	if err != nil {
		return err
	}
	req, err := bindPointer(c)
	if err != nil {
		return err
	}
	out, err := ed.Drop(req.X, req.Y)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}
