package chart

import (
	"math"
	"strings"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/hooks"
	"github.com/fredbi/chartviz/internal/pkg/layout"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/normalizer"
	"github.com/fredbi/chartviz/internal/pkg/pipeline"
)

// Grid padding before any layout hook applies, in px.
var defaultPadding = pipeline.Padding{Top: 60, Right: 20, Bottom: 70, Left: 60} //nolint:gochecknoglobals // read-only default

const yTicks = 5

// newPlot derives the drawing state of a chart from its descriptor.
func newPlot(id string, d model.ChartDescriptor, colors []string, series []normalizer.Options, o options) *pipeline.Plot {
	width := dimension(d.Width, d.WidthUnits, o.Width)
	height := dimension(d.Height, d.HeightUnits, o.Height)
	if h, ok := layout.AspectHeight(width, d.AspectRatio); ok {
		height = h
	}

	plot := &pipeline.Plot{
		ID:              id,
		Width:           width,
		Height:          height,
		GridPadding:     defaultPadding,
		XAxis:           xAxis(d),
		YAxis:           yAxis(d, o.AxisPadding),
		ShowPointLabels: d.PointLabels == "" || d.PointLabels == model.LabelsShow,
		LabelHeight:     o.LabelHeight,
		Legend:          legendKind(d, o),
		EventCanvas:     &pipeline.Canvas{},
		HighlightCanvas: &pipeline.Canvas{},
	}

	if d.Type() == model.ChartLine {
		plot.AddClass(hooks.ClassFitMarkers)
	}

	if plot.Legend == pipeline.LegendDefault && isEast(legendLocation(d, o)) {
		plot.GridPadding.Right = layout.LabelWidth
	}

	renderer := pipeline.RendererLine
	if d.Type().IsBar() {
		renderer = pipeline.RendererBar
	}

	for i, data := range normalizer.SeriesData(d) {
		s := &pipeline.Series{
			Index:      i,
			Label:      series[i].Label,
			Color:      colors[i],
			Renderer:   renderer,
			ShowLabels: series[i].PointLabels.Show,
			Data:       points(d, data),
		}

		if renderer == pipeline.RendererLine {
			s.MarkerSize = series[i].Marker.Size
		}

		plot.Series = append(plot.Series, s)
	}

	return plot
}

// dimension resolves a chart dimension: only pixel dimensions are honored.
func dimension(value float64, units string, def float64) float64 {
	if value > 0 && (units == "" || units == "px") {
		return value
	}

	return def
}

func legendKind(d model.ChartDescriptor, o options) pipeline.Legend {
	placement := config.LegendPlacement(d.LegendPlacement)
	if placement == "" {
		placement = o.LegendPlacement
	}

	switch {
	case placement == config.LegendTabular:
		return pipeline.LegendTabular
	case placement == config.LegendNone:
		return pipeline.LegendNone
	case len(d.Rendered()) > 1:
		return pipeline.LegendDefault
	default:
		return pipeline.LegendNone
	}
}

func legendLocation(d model.ChartDescriptor, o options) string {
	if d.LegendLocation != "" {
		return d.LegendLocation
	}

	if o.LegendLocation != "" {
		return o.LegendLocation
	}

	return "e"
}

func isEast(location string) bool {
	return strings.HasSuffix(location, "e")
}

// xAxis builds a date axis for time series, and a category axis otherwise.
//
// Date axes start one interval before the first date and end on the first tick after the
// last date.
func xAxis(d model.ChartDescriptor) pipeline.Axis {
	if !d.IsTimeSeries() {
		return pipeline.CategoryAxis(normalizer.UniqueKeys(d))
	}

	start, end, ok := layout.TimeseriesRange(d)
	if !ok {
		return pipeline.CategoryAxis(nil)
	}

	interval := layout.IntervalFor(d.Frequency)

	return pipeline.DateAxis(interval.Add(start, -1), end, interval.Add)
}

// yAxis uses the explicit range when set. Missing bounds are taken from the data extent
// (goal included), padded by a ratio of the span.
func yAxis(d model.ChartDescriptor, padding float64) pipeline.Axis {
	explicit := normalizer.YAxisFor(d)
	lo, hi := extent(d)

	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(hi), 1)
	}
	pad := span * padding

	axis := pipeline.Axis{Kind: pipeline.AxisLinear}

	switch {
	case explicit.Min != nil:
		axis.Min = *explicit.Min
	case lo >= 0 && lo-pad < 0:
		axis.Min = 0
	default:
		axis.Min = lo - pad
	}

	if explicit.Max != nil {
		axis.Max = *explicit.Max
	} else {
		axis.Max = hi + pad
	}

	if axis.Max <= axis.Min {
		axis.Max = axis.Min + 1
	}

	step := (axis.Max - axis.Min) / (yTicks - 1)
	for i := range yTicks {
		axis.Ticks = append(axis.Ticks, pipeline.Tick{Value: axis.Min + float64(i)*step})
	}

	return axis
}

// extent is the range of values over all rendered series.
//
// Bars rest on zero, and stacked bars extend to the sum of the values of their column.
func extent(d model.ChartDescriptor) (float64, float64) {
	var (
		lo, hi float64
		found  bool
	)

	include := func(v float64) {
		if !found {
			lo, hi, found = v, v, true

			return
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}

	stacks := make(map[string]float64)
	for _, data := range normalizer.SeriesData(d) {
		for _, c := range data.Coordinates {
			if c.Value.IsNull() {
				continue
			}

			include(c.Value.Float)
			if d.Type() == model.ChartStacked {
				stacks[c.Key.Ident()] += c.Value.Float
			}
		}
	}

	for _, sum := range stacks {
		include(sum)
	}

	if d.Goal != nil {
		include(*d.Goal)
	}

	if d.Type().IsBar() {
		include(0)
	}

	if !found {
		return 0, 1
	}

	return lo, hi
}

// points positions the values of a series along the x-axis: epoch milliseconds on date axes,
// the category index otherwise.
func points(d model.ChartDescriptor, data normalizer.Data) []pipeline.Point {
	result := make([]pipeline.Point, 0, len(data.Coordinates))

	for i, c := range data.Coordinates {
		x := float64(i)
		if d.IsTimeSeries() {
			if !c.Key.IsDate() {
				continue
			}
			x = float64(c.Key.Date.UnixMilli())
		}

		result = append(result, pipeline.Point{
			X:    x,
			Y:    c.Value.Float,
			Null: c.Value.IsNull(),
			Key:  c.Key,
		})
	}

	return result
}
