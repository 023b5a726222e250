package layout

import (
	"math"
)

// MarkerSize returns the largest marker size, falling back to [DefaultMarkerSize].
func MarkerSize(sizes []float64) float64 {
	var largest float64
	for _, size := range sizes {
		largest = math.Max(largest, size)
	}

	if largest <= 0 {
		return DefaultMarkerSize
	}

	return largest
}

// AdditionalHeight is the room needed above the top data point to draw its marker,
// and its point label when labels are displayed.
func AdditionalHeight(markerSize, labelHeight float64, hasLabels bool) float64 {
	if hasLabels {
		return markerSize + labelHeight
	}

	return markerSize
}

// Qualifies tells if a plot needs extra room at the top to fit its markers.
//
// The plot must be a line plot, opted in to marker fitting, with its largest value close
// enough to the top of the y-axis: the pixel distance is approximated assuming that the
// grid spans the full plot height.
func Qualifies(line, optedIn bool, yMin, yMax, maxValue, plotHeight, additional float64) bool {
	if !line || !optedIn {
		return false
	}

	span := yMax - yMin
	if span <= 0 || math.IsNaN(maxValue) {
		return false
	}

	distance := (yMax - maxValue) / span * plotHeight

	return distance <= additional
}

// Cell is a tabular legend cell, positioned along the x-axis of the grid.
type Cell struct {
	Left  float64
	Width float64
}

// XDistances returns the distances between consecutive boundaries: the left edge of the grid,
// each tick position, then the right edge.
func XDistances(positions []float64, left, right float64) []float64 {
	boundaries := make([]float64, 0, len(positions)+2)
	boundaries = append(boundaries, left)
	boundaries = append(boundaries, positions...)
	boundaries = append(boundaries, right)

	distances := make([]float64, 0, len(boundaries)-1)
	for i := range len(boundaries) - 1 {
		distances = append(distances, boundaries[i+1]-boundaries[i])
	}

	return distances
}

// CellDimensions partitions the grid into one cell per tick position.
//
// Each cell spans half the distance to its neighbors, except at both ends where the
// distance to the grid edge is credited in full. The widths sum to right-left.
func CellDimensions(positions []float64, left, right float64) []Cell {
	distances := XDistances(positions, left, right)
	if len(distances) < 2 {
		return nil
	}

	cells := make([]Cell, 0, len(distances)-1)
	prev := left

	for i := range len(distances) - 1 {
		multLeft, multRight := 0.5, 0.5
		if i == 0 {
			multLeft = 1
		}
		if i == len(distances)-2 {
			multRight = 1
		}

		cell := Cell{
			Left:  prev,
			Width: multLeft*distances[i] + multRight*distances[i+1],
		}
		cells = append(cells, cell)
		prev = cell.Left + cell.Width
	}

	return cells
}

// Font sizes of the tabular legend, in px.
const (
	MaxFontSize = 12.5
	MinFontSize = 6.0

	fontShrink = 0.95
	glyphRatio = 0.6 // average glyph width, relative to the font size
)

// BaseFontSize is the font size of legend cells given their width.
func BaseFontSize(cellWidth float64) float64 {
	const cellToFont = 2.3

	return math.Min(cellWidth/cellToFont, MaxFontSize)
}

// TextWidth approximates the rendered width of a text.
func TextWidth(text string, fontSize float64) float64 {
	return float64(len([]rune(text))) * fontSize * glyphRatio
}

// AutofitFontSize shrinks the font size by steps of 5% until the text fits the width.
//
// Shrinking stops before the size would reach [MinFontSize]: the last size above the floor is kept.
func AutofitFontSize(text string, start, width float64) float64 {
	size := start
	for TextWidth(text, size) > width {
		next := size * fontShrink
		if next <= MinFontSize {
			break
		}
		size = next
	}

	return size
}
