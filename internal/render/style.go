package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/restock-console/mapeditor/internal/models"
)

// Sizing policy and thresholds, in pixels.
const (
	LargeCellSize    = 40
	MediumCellSize   = 20
	MinCellSize      = 4
	DefaultMaxCanvas = 1000

	smallGridMax  = 20
	mediumGridMax = 50

	// Labels are dropped, not shrunk, below these sizes.
	MinLabelCellSize   = 14
	MinLabelBlockWidth = 24

	// The drag preview is skipped when its footprint is smaller than this.
	MinPreviewSize = 8

	CharWidth    = 7
	LabelPadding = 4

	ShadowOffset = 2.0
	DashLength   = 6.0
	DashGap      = 4.0
	RouteWidth   = 3.0
)

// Style is the fill and border of a drawn shape, as #rrggbb or #rrggbbaa.
type Style struct {
	Fill   string `json:"fill" msgpack:"fill"`
	Stroke string `json:"stroke" msgpack:"stroke"`
	Shadow string `json:"shadow,omitempty" msgpack:"shadow,omitempty"`
	Text   string `json:"text,omitempty" msgpack:"text,omitempty"`
}

var (
	CellColor      = "#ffffff"
	HighlightColor = "#fff3bf"
	HoverColor     = "#d0ebff"
	GridLineColor  = "#dee2e6"
	ShadowColor    = "#00000040"
	LabelColor     = "#ffffff"
	PreviewFill    = "#4dabf766"
	PreviewStroke  = "#1971c2"
	RouteColor     = "#e8590c"

	categoryStyles = map[models.Category]Style{
		models.CategoryFurniture: {Fill: "#8d6e63", Stroke: "#5d4037", Shadow: ShadowColor, Text: LabelColor},
		models.CategoryWall:      {Fill: "#495057", Stroke: "#212529", Shadow: ShadowColor, Text: LabelColor},
		models.CategoryExit:      {Fill: "#2f9e44", Stroke: "#2b8a3e", Shadow: ShadowColor, Text: LabelColor},
		models.CategoryOther:     {Fill: "#74c0fc", Stroke: "#1c7ed6", Shadow: ShadowColor, Text: LabelColor},
	}
)

// StyleFor returns the styling of a category.
func StyleFor(c models.Category) Style {
	if s, ok := categoryStyles[c]; ok {
		return s
	}
	return categoryStyles[models.CategoryOther]
}

// ParseColor decodes #rrggbb and #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func mustColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		return color.NRGBA{A: 0xff}
	}
	return c
}
