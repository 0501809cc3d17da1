package render

import "unicode/utf8"

const ellipsis = "…"

// CellSize picks the pixel size of one grid cell. Hit-testing divides by
// the same value, so drawing and pointer mapping must both go through here.
func CellSize(maxDimension, maxCanvas int) int {
	if maxDimension <= 0 {
		return LargeCellSize
	}
	if maxDimension <= smallGridMax {
		return LargeCellSize
	}
	if maxDimension <= mediumGridMax {
		return MediumCellSize
	}
	if maxCanvas <= 0 {
		maxCanvas = DefaultMaxCanvas
	}
	size := maxCanvas / maxDimension
	if size < MinCellSize {
		return MinCellSize
	}
	if size > MediumCellSize {
		return MediumCellSize
	}
	return size
}

// TruncateLabel shortens name so that it fits widthPx with the character
// width heuristic. The result never has more runes than name; an empty
// string means there is no room for a label.
func TruncateLabel(name string, widthPx float64) string {
	maxChars := int((widthPx - 2*LabelPadding) / CharWidth)
	if maxChars <= 0 {
		return ""
	}
	n := utf8.RuneCountInString(name)
	if n <= maxChars {
		return name
	}
	runes := []rune(name)
	if maxChars == 1 {
		return string(runes[:1])
	}
	return string(runes[:maxChars-1]) + ellipsis
}

// labelFor applies the size thresholds before truncating.
func labelFor(name string, cellSize int, widthPx float64) string {
	if cellSize < MinLabelCellSize || widthPx < MinLabelBlockWidth {
		return ""
	}
	return TruncateLabel(name, widthPx)
}
