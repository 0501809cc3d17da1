package models

import "time"

// EditorMode gates which pointer interactions are legal.
type EditorMode string

const (
	ModeEdit   EditorMode = "edit"
	ModeAssign EditorMode = "assign"
)

// SessionInfo summarises a live editor session.
type SessionInfo struct {
	ID           string     `json:"id"`
	MapID        string     `json:"mapId"`
	MapName      string     `json:"mapName"`
	Mode         EditorMode `json:"mode"`
	Dirty        bool       `json:"hasUnsavedChanges"`
	Saving       bool       `json:"saving"`
	Placements   int        `json:"placements"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastAccessed time.Time  `json:"lastAccessed"`
}
