package event

const (
	MapLoaded     Type = "map_loaded"
	LayoutChanged Type = "layout_changed"
	ModeChanged   Type = "mode_changed"
	DragStarted   Type = "drag_started"
	DragEnded     Type = "drag_ended"
	HoverChanged  Type = "hover_changed"
	Saved         Type = "saved"
	SaveFailed    Type = "save_failed"
	Frame         Type = "frame" // animation tick while dragging
)
