package pipeline

import (
	"math"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/model"
)

// AxisKind tells how values along an axis are interpreted.
type AxisKind string

// Supported axis kinds.
//
// Date axes hold epoch milliseconds. Category axes hold the index of the category.
const (
	AxisLinear   AxisKind = "linear"
	AxisDate     AxisKind = "date"
	AxisCategory AxisKind = "category"
)

// Renderer tells how a series is drawn.
type Renderer string

// Supported series renderers.
const (
	RendererLine Renderer = "line"
	RendererBar  Renderer = "bar"
)

// Legend tells which legend a plot displays.
type Legend string

// Supported plot legends.
const (
	LegendNone    Legend = ""
	LegendDefault Legend = "default"
	LegendTabular Legend = "tabular"
)

// Padding is the space around the grid, in px.
type Padding struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Canvas is a drawing layer positioned over the plot, in px.
type Canvas struct {
	Top    float64
	Height float64
}

// Tick is a tick mark along an axis.
type Tick struct {
	Value    float64
	Key      model.Key
	Label    string
	Position float64 // in px, set when drawing
}

// Axis describes the domain of an axis.
type Axis struct {
	Kind  AxisKind
	Min   float64
	Max   float64
	Ticks []Tick
}

// Project converts a value in user units to a pixel offset, along a span of the given length.
func (a Axis) Project(v, length float64) float64 {
	span := a.Max - a.Min
	if span == 0 {
		return 0
	}

	return (v - a.Min) / span * length
}

// DateAxis builds a date axis from start, with tick i at step(start, i).
//
// Ticks run up to the first one after end, which becomes the upper bound of the axis.
func DateAxis(start, end time.Time, step func(time.Time, int) time.Time) Axis {
	axis := Axis{
		Kind: AxisDate,
		Min:  float64(start.UnixMilli()),
	}

	last := start
	for i := 0; ; i++ {
		t := step(start, i)
		if i > 0 && !t.After(last) {
			break
		}

		axis.Ticks = append(axis.Ticks, Tick{Value: float64(t.UnixMilli()), Key: model.DateKey(t)})
		last = t

		if t.After(end) {
			break
		}
	}
	axis.Max = float64(last.UnixMilli())

	return axis
}

// TickIndex returns the index of the tick a value belongs to.
//
// On date axes, a value belongs to the last tick at or before it, within the axis domain.
// On other axes, the value must match a tick exactly.
func (a Axis) TickIndex(v float64) (int, bool) {
	if a.Kind != AxisDate {
		for i, tick := range a.Ticks {
			if tick.Value == v {
				return i, true
			}
		}

		return -1, false
	}

	if len(a.Ticks) == 0 || v < a.Ticks[0].Value || v > a.Max {
		return -1, false
	}

	i := sort.Search(len(a.Ticks), func(i int) bool {
		return a.Ticks[i].Value > v
	})

	return i - 1, true
}

// KeyIndex returns the index of the tick an x-axis key belongs to.
func (a Axis) KeyIndex(key model.Key) (int, bool) {
	if a.Kind == AxisDate {
		if !key.IsDate() {
			return -1, false
		}

		return a.TickIndex(float64(key.Date.UnixMilli()))
	}

	for i, tick := range a.Ticks {
		if tick.Key.Ident() == key.Ident() {
			return i, true
		}
	}

	return -1, false
}

// CategoryAxis builds a category axis with one band per key.
func CategoryAxis(keys []model.Key) Axis {
	const halfBand = 0.5

	axis := Axis{
		Kind: AxisCategory,
		Min:  -halfBand,
		Max:  float64(len(keys)) - halfBand,
	}

	for i, key := range keys {
		axis.Ticks = append(axis.Ticks, Tick{Value: float64(i), Key: key})
	}

	return axis
}

// Point is a data point in user units, or in pixels once projected.
type Point struct {
	X    float64
	Y    float64
	Null bool
	Key  model.Key // data key of the point, unset on grid data
}

// Series is a data series drawn on a plot.
type Series struct {
	Index      int
	Label      string
	Color      string
	Renderer   Renderer
	MarkerSize float64
	ShowLabels bool
	Data       []Point
	GridData   []Point
	Canvas     Canvas

	plot *Plot
}

// Plot returns the plot this series is bound to, or nil before the post-init hooks ran.
func (s *Series) Plot() *Plot {
	return s.plot
}

// Bind sets the back-reference of the series to its plot.
func (s *Series) Bind(p *Plot) {
	s.plot = p
}

// Plot is the drawing state of a chart for a single pass.
type Plot struct {
	ID              string
	Classes         []string
	Width           float64
	Height          float64
	GridPadding     Padding
	XAxis           Axis
	YAxis           Axis
	Series          []*Series
	ShowPointLabels bool    // point label default, for series that do not decide
	LabelHeight     float64 // height of a point label, in px
	Legend          Legend
	EventCanvas     *Canvas
	HighlightCanvas *Canvas
}

// HasClass tells if the plot carries a css class.
func (p *Plot) HasClass(class string) bool {
	return slices.Contains(p.Classes, class)
}

// AddClass adds a css class to the plot, once.
func (p *Plot) AddClass(class string) {
	if p.HasClass(class) {
		return
	}

	p.Classes = append(p.Classes, class)
}

// GridWidth is the width of the grid, inside the padding.
func (p *Plot) GridWidth() float64 {
	return math.Max(0, p.Width-p.GridPadding.Left-p.GridPadding.Right)
}

// GridHeight is the height of the grid, inside the padding.
func (p *Plot) GridHeight() float64 {
	return math.Max(0, p.Height-p.GridPadding.Top-p.GridPadding.Bottom)
}

// IsLine tells if all series are drawn as lines.
func (p *Plot) IsLine() bool {
	if len(p.Series) == 0 {
		return false
	}

	for _, s := range p.Series {
		if s.Renderer != RendererLine {
			return false
		}
	}

	return true
}

// HasLabels tells if any series displays point labels.
func (p *Plot) HasLabels() bool {
	if len(p.Series) == 0 {
		return p.ShowPointLabels
	}

	for _, s := range p.Series {
		if s.ShowLabels {
			return true
		}
	}

	return false
}

// MaxValue is the largest non-null y value over all series, or NaN if there is none.
func (p *Plot) MaxValue() float64 {
	maxValue := math.NaN()
	for _, s := range p.Series {
		for _, pt := range s.Data {
			if pt.Null {
				continue
			}

			if math.IsNaN(maxValue) || pt.Y > maxValue {
				maxValue = pt.Y
			}
		}
	}

	return maxValue
}

// MarkerSizes lists the marker size of each series.
func (p *Plot) MarkerSizes() []float64 {
	sizes := make([]float64, 0, len(p.Series))
	for _, s := range p.Series {
		sizes = append(sizes, s.MarkerSize)
	}

	return sizes
}

// DefaultTickLabel formats a tick: ISO dates on date axes, category names, or plain numbers.
func DefaultTickLabel(_ *Plot, axis Axis, tick Tick) string {
	switch axis.Kind {
	case AxisDate:
		return time.UnixMilli(int64(tick.Value)).UTC().Format(time.DateOnly)
	case AxisCategory:
		return tick.Key.Name
	default:
		return strconv.FormatFloat(tick.Value, 'g', -1, 64)
	}
}

// DefaultGridData projects the data of a series onto the grid, in pixels relative to the plot.
func DefaultGridData(p *Plot, s *Series) []Point {
	width, height := p.GridWidth(), p.GridHeight()
	grid := make([]Point, 0, len(s.Data))

	for _, pt := range s.Data {
		grid = append(grid, Point{
			X:    p.GridPadding.Left + p.XAxis.Project(pt.X, width),
			Y:    p.GridPadding.Top + height - p.YAxis.Project(pt.Y, height),
			Null: pt.Null,
		})
	}

	return grid
}
