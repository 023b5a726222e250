// Package thumbnail renders static images of drawn charts, without a browser.
//
// Thumbnails reuse the layout derived by the drawing pipeline: axis ranges, tick labels, series
// colors and the goal line. They are meant for previews and for reports rendered where no
// headless browser is available.
package thumbnail

import (
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"math"

	"github.com/fredbi/chartviz/internal/pkg/chart"
	"github.com/fredbi/chartviz/internal/pkg/legend"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/normalizer"
	"github.com/fredbi/chartviz/internal/pkg/pipeline"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Renderer draws chart thumbnails.
type Renderer struct {
	options

	l *slog.Logger
}

// New builds a thumbnail [Renderer].
func New(opts ...Option) *Renderer {
	return &Renderer{
		options: optionsWithDefaults(opts),
		l:       slog.Default().With(slog.String("module", "thumbnail")),
	}
}

// Render writes the image of a drawn chart.
func (r *Renderer) Render(w io.Writer, c *chart.Chart) error {
	p, err := r.plot(c)
	if err != nil {
		return fmt.Errorf("chart %q: %w", c.ID, err)
	}

	width, height := r.size(c.Plot)
	writer, err := p.WriterTo(width, height, r.Format)
	if err != nil {
		return fmt.Errorf("chart %q: creating %s writer: %w", c.ID, r.Format, err)
	}

	if _, err := writer.WriteTo(w); err != nil {
		return fmt.Errorf("chart %q: writing image: %w", c.ID, err)
	}

	r.l.Info("rendered thumbnail", slog.String("chart_id", c.ID), slog.String("format", r.Format))

	return nil
}

func (r *Renderer) size(plot *pipeline.Plot) (vg.Length, vg.Length) {
	return vg.Points(plot.Width * r.scale()), vg.Points(plot.Height * r.scale())
}

func (r *Renderer) scale() float64 {
	if r.Scale > 0 {
		return r.Scale
	}

	return 1
}

func (r *Renderer) plot(c *chart.Chart) (*plot.Plot, error) {
	d := c.Descriptor
	p := plot.New()
	p.Title.Text = d.Title
	p.X.Label.Text = d.XLabel
	p.Y.Label.Text = d.YLabel
	p.Y.Min = c.Plot.YAxis.Min
	p.Y.Max = c.Plot.YAxis.Max
	p.Legend.Top = true

	var err error
	if d.Type().IsBar() {
		err = r.addBars(p, c)
	} else {
		err = r.addLines(p, c)
	}
	if err != nil {
		return nil, err
	}

	if d.Goal != nil {
		goal := *d.Goal
		line := plotter.NewFunction(func(float64) float64 { return goal })
		line.Color = parseColor(orColor(d.GoalColor, goalColor))
		line.Dashes = goalDashes()
		p.Add(line)
	}

	p.Add(plotter.NewGrid())

	return p, nil
}

func (r *Renderer) addLines(p *plot.Plot, c *chart.Chart) error {
	axis := c.Plot.XAxis
	p.X.Min = axis.Min
	p.X.Max = axis.Max
	p.X.Tick.Marker = tickMarker(axis)

	for i, s := range c.Plot.Series {
		breakOnNull := i < len(c.Series) && c.Series[i].BreakOnNull
		clr := parseColor(s.Color)
		var legendAdded bool

		for _, xys := range segments(s.Data, breakOnNull) {
			line, points, err := plotter.NewLinePoints(xys)
			if err != nil {
				return fmt.Errorf("series %q: %w", s.Label, err)
			}

			line.Color = clr
			line.Width = vg.Points(lineWidth(c, i) * r.scale())
			points.Color = clr
			points.Shape = draw.CircleGlyph{}
			points.Radius = vg.Points(math.Max(s.MarkerSize, 1) * r.scale() / 2)

			p.Add(line, points)
			if !legendAdded {
				p.Legend.Add(s.Label, line, points)
				legendAdded = true
			}
		}
	}

	return nil
}

// segments splits the points of a series into the runs of a line. Nulls break the line
// when breakOnNull is set, and are skipped otherwise.
func segments(data []pipeline.Point, breakOnNull bool) []plotter.XYs {
	var (
		runs    []plotter.XYs
		current plotter.XYs
	)

	for _, pt := range data {
		if pt.Null {
			if breakOnNull && len(current) > 0 {
				runs = append(runs, current)
				current = nil
			}

			continue
		}

		current = append(current, plotter.XY{X: pt.X, Y: pt.Y})
	}

	if len(current) > 0 {
		runs = append(runs, current)
	}

	return runs
}

func (r *Renderer) addBars(p *plot.Plot, c *chart.Chart) error {
	axis := c.Plot.XAxis
	labels := make([]string, len(axis.Ticks))
	for i, tick := range axis.Ticks {
		labels[i] = tick.Label
	}
	p.NominalX(labels...)

	series := c.Plot.Series
	stacked := c.Descriptor.Type() == model.ChartStacked
	width := vg.Points(r.barWidth(c, stacked))

	var below *plotter.BarChart
	for i, s := range series {
		values := make(plotter.Values, len(axis.Ticks))
		for _, pt := range s.Data {
			j, ok := axis.TickIndex(pt.X)
			if !ok || pt.Null {
				continue
			}
			values[j] = pt.Y
		}

		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Label, err)
		}

		bars.Color = parseColor(s.Color)
		bars.LineStyle.Width = 0

		switch {
		case stacked && below != nil:
			bars.StackOn(below)
		case !stacked:
			// groups are centered on their tick
			bars.Offset = width * vg.Length(float64(i)-float64(len(series)-1)/2)
		}
		below = bars

		p.Add(bars)
		p.Legend.Add(s.Label, bars)
	}

	return nil
}

// barWidth is the bar width of the chart, scaled to the thumbnail.
func (r *Renderer) barWidth(c *chart.Chart, stacked bool) float64 {
	width := c.BarBounds.BarWidth(c.Plot.Width, normalizer.MaxPoints(c.Descriptor), len(c.Plot.Series), stacked)

	return math.Max(width*r.scale(), 1)
}

func lineWidth(c *chart.Chart, i int) float64 {
	if i < len(c.Series) && c.Series[i].LineWidth > 0 {
		return c.Series[i].LineWidth
	}

	return defaultLineWidth
}

// tickMarker places the tick labels derived by the pipeline.
func tickMarker(axis pipeline.Axis) plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, 0, len(axis.Ticks))
	for _, tick := range axis.Ticks {
		ticks = append(ticks, plot.Tick{Value: tick.Value, Label: tick.Label})
	}

	return ticks
}

func parseColor(css string) color.Color {
	rgb, ok := legend.RGB(css)
	if !ok {
		return color.Black
	}

	return color.RGBA{R: uint8(rgb[0]), G: uint8(rgb[1]), B: uint8(rgb[2]), A: math.MaxUint8} //nolint:gosec // 0..255
}

func orColor(css, def string) string {
	if css == "" {
		return def
	}

	return css
}

func goalDashes() []vg.Length {
	const dash, gap = 4, 2

	return []vg.Length{vg.Points(dash), vg.Points(gap)}
}
