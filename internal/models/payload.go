package models

// SavePayload is the validated layout handed to the backend.
type SavePayload struct {
	MapID      string            `json:"mapId"`
	NewObjects []NewObject       `json:"newObjects"`
	Placements []PlacementRecord `json:"placements"`
}

// NewObject is a locally defined object type sent for creation under a
// caller-local temporary key.
type NewObject struct {
	TempKey  string   `json:"tempKey"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Rows     int      `json:"rows"`
	Cols     int      `json:"cols"`
	Walkable bool     `json:"walkable"`
}

// PlacementRecord references its object type either by persisted id or by
// temporary key, never both.
type PlacementRecord struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Rotation  int    `json:"rotation"`
	ObjectRef int64  `json:"objectRef,omitempty"`
	TempKey   string `json:"tempKey,omitempty"`
}

// SaveResult maps every temporary key to the identity the backend assigned.
type SaveResult struct {
	Created map[string]int64 `json:"created"`
}
