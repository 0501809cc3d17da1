// interfaces.go - Dependencies the handlers need, as interfaces for mocking
package api

import (
	"context"
	"io"

	"github.com/restock-console/mapeditor/internal/editor"
	"github.com/restock-console/mapeditor/internal/models"
	"github.com/restock-console/mapeditor/internal/render"
)

// MapStore lists and creates stored maps
type MapStore interface {
	CreateMap(ctx context.Context, name string, width, height int) (*models.MapInfo, error)
	ListMaps(ctx context.Context) ([]models.MapInfo, error)
}

// SessionManager defines the interface for editor session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(ctx context.Context, mapID string) (*models.SessionInfo, error)
	GetEditor(id string) (*editor.Editor, bool)
	GetSession(id string) (*models.SessionInfo, bool)
	ListSessions() []models.SessionInfo
	CloseSession(id string) bool
}

// ScenePainter rasterises a display list
type ScenePainter interface {
	EncodePNG(w io.Writer, s *render.Scene) error
}
