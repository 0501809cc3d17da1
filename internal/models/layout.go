package models

import "errors"

// ErrMapNotFound is returned by backends for unknown or malformed map ids.
var ErrMapNotFound = errors.New("map not found")

// Placement is one occupied grid cell. Multi-cell object types are stored
// as several adjacent placements that share the same ObjectID.
type Placement struct {
	X        int      `json:"x" msgpack:"x"`
	Y        int      `json:"y" msgpack:"y"`
	ObjectID ObjectID `json:"objectId" msgpack:"objectId"`
	Rotation int      `json:"rotation" msgpack:"rotation"`

	// Label is the display name the backend reported with the cell. Only the
	// name fallback shim reads it.
	Label string `json:"label,omitempty" msgpack:"label,omitempty"`
}

// Cell returns the placement coordinate.
func (p Placement) Cell() Point {
	return Point{X: p.X, Y: p.Y}
}

// Layout is what the backend returns when a map is loaded.
type Layout struct {
	MapID      string       `json:"mapId" msgpack:"mapId"`
	Name       string       `json:"name" msgpack:"name"`
	Grid       Grid         `json:"grid" msgpack:"grid"`
	Placements []Placement  `json:"placements" msgpack:"placements"`
	Palette    []ObjectType `json:"palette" msgpack:"palette"`
}

// MapInfo describes a stored map without its placements.
type MapInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cells  int    `json:"cells"`
}

// RestockPoint is one assignable position inside a furniture piece.
type RestockPoint struct {
	ID      int64  `json:"id"`
	Level   int    `json:"level"`
	Column  int    `json:"column"`
	Product string `json:"product,omitempty"`
}
