package models

import "time"

// ExportInfo describes a rendered map image kept on disk.
type ExportInfo struct {
	ID          string    `json:"id"`
	MapID       string    `json:"mapId"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}
