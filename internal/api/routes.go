// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	// Health check
	e.GET("/api/health", h.HandleHealth)

	// Stored maps
	mapGroup := e.Group("/api/maps")
	mapGroup.GET("", h.HandleListMaps)
	mapGroup.POST("", h.HandleCreateMap)

	// Editor sessions
	sess := e.Group("/api/sessions")
	sess.GET("", h.HandleListSessions)
	sess.POST("", h.HandleStartSession)
	sess.GET("/:id", h.HandleGetSession)
	sess.DELETE("/:id", h.HandleCloseSession)
	sess.POST("/:id/load", h.HandleLoadMap)
	sess.GET("/:id/palette", h.HandleGetPalette)
	sess.POST("/:id/palette/furniture", h.HandleDefineFurniture)
	sess.POST("/:id/mode", h.HandleSetMode)
	sess.POST("/:id/drag", h.HandleSelect)
	sess.DELETE("/:id/drag", h.HandleCancelDrag)
	sess.DELETE("/:id/cells/:x/:y", h.HandleDeleteCell)
	sess.POST("/:id/clear", h.HandleClear)
	sess.POST("/:id/validate", h.HandleValidate)
	sess.POST("/:id/save", h.HandleSave)
	sess.PUT("/:id/highlight", h.HandleSetHighlight)
	sess.PUT("/:id/route", h.HandleSetRoute)

	// Pointer input
	sess.POST("/:id/pointer/move", h.HandlePointerMove)
	sess.POST("/:id/pointer/leave", h.HandlePointerLeave)
	sess.POST("/:id/pointer/click", h.HandlePointerClick)
	sess.POST("/:id/pointer/drop", h.HandlePointerDrop)

	// Rendering
	sess.GET("/:id/scene", h.HandleGetScene)
	sess.GET("/:id/scene/msgpack", h.HandleGetSceneMsgpack)
	sess.GET("/:id/layout/msgpack", h.HandleGetLayoutMsgpack)
	sess.GET("/:id/render.png", h.HandleRenderPNG)
	sess.GET("/:id/render.svg", h.HandleRenderSVG)
	sess.POST("/:id/export", h.HandleExport)

	// Stored exports
	exportGroup := e.Group("/api/exports")
	exportGroup.GET("/recent", h.HandleRecentExports)
	exportGroup.GET("/:id", h.HandleGetExport)
	exportGroup.DELETE("/:id", h.HandleDeleteExport)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, h *Handler) {
	ws := NewWebSocketHandler(h)
	e.GET("/api/sessions/:id/events", ws.HandleEvents)
}

// SkipRequestLog keeps high-frequency endpoints out of the request log.
func SkipRequestLog(path string) bool {
	switch path {
	case "/api/health",
		"/api/sessions/:id/pointer/move",
		"/api/sessions/:id/pointer/leave",
		"/api/sessions/:id/events":
		return true
	}
	return false
}
