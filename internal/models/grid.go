package models

import "fmt"

// Grid size limits, inclusive.
const (
	MinGridSize = 5
	MaxGridSize = 100
)

// Point is one integer cell coordinate on the floor plan.
type Point struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Grid is the bounded lattice a map is drawn on.
type Grid struct {
	Width  int `json:"width" msgpack:"width"`
	Height int `json:"height" msgpack:"height"`
}

// NewGrid validates the dimensions against [MinGridSize, MaxGridSize].
func NewGrid(width, height int) (Grid, error) {
	if width < MinGridSize || width > MaxGridSize {
		return Grid{}, fmt.Errorf("grid width %d outside [%d, %d]", width, MinGridSize, MaxGridSize)
	}
	if height < MinGridSize || height > MaxGridSize {
		return Grid{}, fmt.Errorf("grid height %d outside [%d, %d]", height, MinGridSize, MaxGridSize)
	}
	return Grid{Width: width, Height: height}, nil
}

// InBounds reports whether (x, y) lies on the grid.
func (g Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Contains is InBounds for a Point.
func (g Grid) Contains(p Point) bool {
	return g.InBounds(p.X, p.Y)
}

// MaxDimension returns the larger of width and height.
func (g Grid) MaxDimension() int {
	if g.Width > g.Height {
		return g.Width
	}
	return g.Height
}
