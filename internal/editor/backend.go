package editor

import (
	"context"

	"github.com/restock-console/mapeditor/internal/models"
)

// Backend is the persistence and catalog collaborator. Calls are made
// without holding editor locks and are never retried.
type Backend interface {
	LoadLayout(ctx context.Context, mapID string) (*models.Layout, error)
	SaveLayout(ctx context.Context, payload *models.SavePayload) (*models.SaveResult, error)
	// RestockPoints returns the sub-grid of a persisted furniture type.
	// found is false when the type has no points.
	RestockPoints(ctx context.Context, objectID int64) (points []models.RestockPoint, found bool, err error)
}
