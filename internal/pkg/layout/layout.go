// Package layout computes the derived geometry of a chart: bar widths, padded time axis
// domains, extra room for markers and point labels, tabular legend cell sizes.
//
// A derived layout lives for a single drawing pass and is never stored in the chart
// descriptor.
package layout

import (
	"math"
)

// Default chart dimensions, in px.
const (
	DefaultChartWidth = 600.0
	DefaultMarkerSize = 9.0

	// LabelWidth is the fixed width of the y-axis area when a tabular legend is displayed.
	LabelWidth = 120.0

	// TabularGridLeft is the left grid padding of charts with a tabular legend.
	TabularGridLeft = LabelWidth + 10
)

// Bounds is a closed [Min, Max] interval of widths, in px.
type Bounds struct {
	Min float64
	Max float64
}

// DefaultBarBounds constrains bar widths when no bounds are configured.
var DefaultBarBounds = Bounds{Min: 5, Max: 32} //nolint:gochecknoglobals // read-only default

// BarWidth fits bars using [DefaultBarBounds].
func BarWidth(chartWidth float64, maxPoints, seriesCount int, stacked bool) float64 {
	return DefaultBarBounds.BarWidth(chartWidth, maxPoints, seriesCount, stacked)
}

// BarWidth fits bars within the bounds:
//
//	min(Max, max(Min, 0.8*chartWidth/(maxPoints+1)/(seriesCount+1)))
//
// Stacked bars are multiplied by the number of series.
// A zero chart width stands for [DefaultChartWidth].
func (b Bounds) BarWidth(chartWidth float64, maxPoints, seriesCount int, stacked bool) float64 {
	if chartWidth <= 0 {
		chartWidth = DefaultChartWidth
	}

	const fill = 0.8
	width := fill * chartWidth / float64(maxPoints+1) / float64(seriesCount+1)
	width = math.Min(b.Max, math.Max(b.Min, width))

	if stacked {
		width *= float64(seriesCount)
	}

	return width
}

// AspectHeight computes the height of a chart from its width and a [W, H] aspect ratio.
//
// It returns false when the ratio is not a valid pair.
func AspectHeight(width float64, ratio []float64) (float64, bool) {
	if len(ratio) != 2 || ratio[0] <= 0 || ratio[1] <= 0 {
		return 0, false
	}

	return math.Round(width * ratio[1] / ratio[0]), true
}
