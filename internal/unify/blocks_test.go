package unify

import (
	"math/rand"
	"testing"

	"github.com/restock-console/mapeditor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	shelf = models.ObjectType{ID: models.Persisted(1), Name: "Góndola", Category: models.CategoryFurniture, Rows: 1, Cols: 1}
	rack  = models.ObjectType{ID: models.Persisted(2), Name: "Rack", Category: models.CategoryFurniture, Rows: 1, Cols: 1}
	wall  = models.ObjectType{ID: models.Persisted(3), Name: "Muro", Category: models.CategoryWall, Rows: 1, Cols: 1}
)

func testPalette() models.Palette {
	return models.NewPalette([]models.ObjectType{shelf, rack, wall})
}

func cellsOf(id models.ObjectID, pts ...models.Point) []models.Placement {
	out := make([]models.Placement, 0, len(pts))
	for _, p := range pts {
		out = append(out, models.Placement{X: p.X, Y: p.Y, ObjectID: id})
	}
	return out
}

func rect(minX, minY, w, h int) []models.Point {
	var pts []models.Point
	for y := minY; y < minY+h; y++ {
		for x := minX; x < minX+w; x++ {
			pts = append(pts, models.Point{X: x, Y: y})
		}
	}
	return pts
}

func covered(blocks []Block) map[models.Point]int {
	out := make(map[models.Point]int)
	for _, b := range blocks {
		for _, c := range b.Cells() {
			out[c]++
		}
	}
	return out
}

func TestBlocks_FullRectangle(t *testing.T) {
	blocks := Blocks(cellsOf(shelf.ID, rect(0, 0, 3, 2)...), testPalette(), Options{})

	require.Len(t, blocks, 1)
	assert.Equal(t, Block{MinX: 0, MinY: 0, Width: 3, Height: 2, Name: "Góndola", ObjectID: shelf.ID}, blocks[0])
}

func TestBlocks_MissingCorner(t *testing.T) {
	pts := rect(0, 0, 3, 2)
	removed := models.Point{X: 2, Y: 1}
	var remaining []models.Point
	for _, p := range pts {
		if p != removed {
			remaining = append(remaining, p)
		}
	}

	blocks := Blocks(cellsOf(shelf.ID, remaining...), testPalette(), Options{})

	assert.GreaterOrEqual(t, len(blocks), 2)
	cov := covered(blocks)
	assert.Len(t, cov, len(remaining))
	for _, p := range remaining {
		assert.Equal(t, 1, cov[p], "cell %s covered once", p)
	}
	assert.NotContains(t, cov, removed)
}

func TestBlocks_IdentitySeparation(t *testing.T) {
	placements := append(
		cellsOf(shelf.ID, models.Point{X: 0, Y: 0}),
		cellsOf(rack.ID, models.Point{X: 1, Y: 0})...,
	)

	blocks := Blocks(placements, testPalette(), Options{})

	require.Len(t, blocks, 2)
	for _, b := range blocks {
		assert.Equal(t, 1, b.Width*b.Height)
	}
}

func TestBlocks_DiagonalNotAdjacent(t *testing.T) {
	blocks := Blocks(cellsOf(shelf.ID, models.Point{X: 0, Y: 0}, models.Point{X: 1, Y: 1}), testPalette(), Options{})

	require.Len(t, blocks, 2)
	assert.Equal(t, models.Point{X: 0, Y: 0}, models.Point{X: blocks[0].MinX, Y: blocks[0].MinY})
	assert.Equal(t, models.Point{X: 1, Y: 1}, models.Point{X: blocks[1].MinX, Y: blocks[1].MinY})
}

func TestBlocks_SingleCell(t *testing.T) {
	blocks := Blocks(cellsOf(shelf.ID, models.Point{X: 4, Y: 7}), testPalette(), Options{})

	require.Len(t, blocks, 1)
	assert.Equal(t, 1, blocks[0].Width)
	assert.Equal(t, 1, blocks[0].Height)
}

func TestBlocks_IgnoresNonFurniture(t *testing.T) {
	blocks := Blocks(cellsOf(wall.ID, models.Point{X: 2, Y: 3}), testPalette(), Options{})
	assert.Empty(t, blocks)
}

func TestBlocks_OrientationSplitsGroups(t *testing.T) {
	placements := []models.Placement{
		{X: 0, Y: 0, ObjectID: shelf.ID, Rotation: 0},
		{X: 1, Y: 0, ObjectID: shelf.ID, Rotation: 180},
		{X: 2, Y: 0, ObjectID: shelf.ID, Rotation: 90},
	}

	blocks := Blocks(placements, testPalette(), Options{})

	require.Len(t, blocks, 2)
	assert.Equal(t, 2, blocks[0].Width)
	assert.Equal(t, 1, blocks[1].Width)
}

func TestBlocks_PermutedInputIsDeterministic(t *testing.T) {
	pts := append(rect(0, 0, 3, 2), rect(5, 5, 2, 3)...)
	pts = append(pts, models.Point{X: 3, Y: 0}, models.Point{X: 0, Y: 2})
	placements := cellsOf(shelf.ID, pts...)

	want := Blocks(placements, testPalette(), Options{})

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Placement(nil), placements...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Blocks(shuffled, testPalette(), Options{}))
	}
}

func TestBlocks_NameFallback(t *testing.T) {
	stale := models.Placement{X: 1, Y: 0, ObjectID: models.Persisted(99), Label: "Góndola"}
	placements := append(cellsOf(shelf.ID, models.Point{X: 0, Y: 0}), stale)

	t.Run("disabled ignores stale identity", func(t *testing.T) {
		blocks := Blocks(placements, testPalette(), Options{})
		require.Len(t, blocks, 1)
		assert.Equal(t, 1, blocks[0].Width)
	})

	t.Run("enabled merges by display name", func(t *testing.T) {
		blocks := Blocks(placements, testPalette(), Options{NameFallback: true})
		require.Len(t, blocks, 1)
		assert.Equal(t, 2, blocks[0].Width)
	})
}

func TestRegions(t *testing.T) {
	cells := append(rect(0, 0, 2, 1), rect(4, 0, 1, 3)...)
	cells = append(cells, models.Point{X: 0, Y: 0})
	regions := Regions(cells, "Salida", wall.ID)
	SortBlocks(regions)

	require.Len(t, regions, 2)
	assert.Equal(t, Block{MinX: 0, MinY: 0, Width: 2, Height: 1, Name: "Salida", ObjectID: wall.ID}, regions[0])
	assert.Equal(t, Block{MinX: 4, MinY: 0, Width: 1, Height: 3, Name: "Salida", ObjectID: wall.ID}, regions[1])
	assert.Empty(t, Regions(nil, "Salida", wall.ID))
}

func TestComponents(t *testing.T) {
	comps := Components([]models.Point{{X: 1, Y: 1}, {X: 0, Y: 0}, {X: 0, Y: 1}, {X: 3, Y: 3}})

	require.Len(t, comps, 2)
	assert.Equal(t, []models.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}, comps[0])
	assert.Equal(t, []models.Point{{X: 3, Y: 3}}, comps[1])
	assert.Nil(t, Components(nil))
}
