package testutil

import "github.com/restock-console/mapeditor/internal/models"

// Palette entries shared by tests.
var (
	Shelf = models.ObjectType{ID: models.Persisted(1), Name: "Góndola", Category: models.CategoryFurniture, Rows: 1, Cols: 1}
	Wall  = models.ObjectType{ID: models.Persisted(2), Name: "Muro", Category: models.CategoryWall, Rows: 1, Cols: 1, Walkable: false}
	Exit  = models.ObjectType{ID: models.Persisted(3), Name: "Salida", Category: models.CategoryExit, Rows: 1, Cols: 1, Walkable: true}
	Rack  = models.ObjectType{ID: models.Persisted(4), Name: "Rack", Category: models.CategoryFurniture, Rows: 2, Cols: 3}
)

// NewLayout returns an empty map with the shared palette.
func NewLayout(mapID string, width, height int) *models.Layout {
	return &models.Layout{
		MapID:   mapID,
		Name:    "Sala " + mapID,
		Grid:    models.Grid{Width: width, Height: height},
		Palette: []models.ObjectType{Shelf, Wall, Exit, Rack},
	}
}
