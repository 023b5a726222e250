// Package pipeline draws a [Plot] through ordered lists of hooks.
//
// Hooks are registered on a [Pipeline] and run in registration order at fixed stages of
// [Pipeline.Draw]. The grid data and tick label routines may be wrapped: a wrapper receives
// the routine it replaces and may always call through.
package pipeline

import (
	"log/slog"
)

// PlotHook runs at a plot-level stage.
type PlotHook func(p *Plot)

// SeriesHook runs before each series is projected.
type SeriesHook func(s *Series)

// GridDataFunc projects the data of a series onto the grid.
type GridDataFunc func(p *Plot, s *Series) []Point

// TickLabelFunc produces the label of an axis tick.
type TickLabelFunc func(p *Plot, axis Axis, tick Tick) string

// Pipeline holds the hooks and routines used to draw plots.
//
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	postInit      []PlotHook
	preDraw       []PlotHook
	preDrawSeries []SeriesHook
	postDraw      []PlotHook
	gridData      GridDataFunc
	tickLabel     TickLabelFunc
	l             *slog.Logger
}

// New builds a [Pipeline] with no hooks.
func New(opts ...Option) *Pipeline {
	o := optionsWithDefaults(opts)

	return &Pipeline{
		gridData:  o.gridData,
		tickLabel: o.tickLabel,
		l:         slog.Default().With(slog.String("module", "pipeline")),
	}
}

// AddPostInit registers a hook run first, once the plot is initialized.
func (p *Pipeline) AddPostInit(h PlotHook) {
	p.postInit = append(p.postInit, h)
}

// AddPreDraw registers a hook run before the axes and series are drawn.
func (p *Pipeline) AddPreDraw(h PlotHook) {
	p.preDraw = append(p.preDraw, h)
}

// AddPreDrawSeries registers a hook run before each series is projected.
func (p *Pipeline) AddPreDrawSeries(h SeriesHook) {
	p.preDrawSeries = append(p.preDrawSeries, h)
}

// AddPostDraw registers a hook run last.
func (p *Pipeline) AddPostDraw(h PlotHook) {
	p.postDraw = append(p.postDraw, h)
}

// WrapGridData replaces the grid data routine with a wrapper of the current one.
func (p *Pipeline) WrapGridData(wrap func(next GridDataFunc) GridDataFunc) {
	p.gridData = wrap(p.gridData)
}

// WrapTickLabel replaces the tick label routine with a wrapper of the current one.
func (p *Pipeline) WrapTickLabel(wrap func(next TickLabelFunc) TickLabelFunc) {
	p.tickLabel = wrap(p.tickLabel)
}

// Hooks returns the number of hooks registered at each stage:
// post-init, pre-draw, pre-draw-series and post-draw.
func (p *Pipeline) Hooks() (postInit, preDraw, preDrawSeries, postDraw int) {
	return len(p.postInit), len(p.preDraw), len(p.preDrawSeries), len(p.postDraw)
}

// Draw runs a drawing pass over the plot.
//
// Stages run in this order: post-init hooks, pre-draw hooks, tick labels, then for each series
// the canvas placement, pre-draw-series hooks and grid data, and finally post-draw hooks.
func (p *Pipeline) Draw(plot *Plot) {
	for _, hook := range p.postInit {
		hook(plot)
	}

	for _, hook := range p.preDraw {
		hook(plot)
	}

	if plot.EventCanvas != nil {
		*plot.EventCanvas = p.gridCanvas(plot)
	}

	p.drawTicks(plot, &plot.XAxis, plot.GridPadding.Left, plot.GridWidth(), false)
	p.drawTicks(plot, &plot.YAxis, plot.GridPadding.Top, plot.GridHeight(), true)

	for _, s := range plot.Series {
		s.Canvas = p.gridCanvas(plot)

		for _, hook := range p.preDrawSeries {
			hook(s)
		}

		s.GridData = p.gridData(plot, s)
	}

	if plot.HighlightCanvas != nil {
		*plot.HighlightCanvas = p.gridCanvas(plot)
	}

	for _, hook := range p.postDraw {
		hook(plot)
	}

	p.l.Debug("plot drawn",
		slog.String("plot_id", plot.ID),
		slog.Int("series", len(plot.Series)),
		slog.Float64("grid_top", plot.GridPadding.Top),
	)
}

func (p *Pipeline) gridCanvas(plot *Plot) Canvas {
	return Canvas{Top: plot.GridPadding.Top, Height: plot.GridHeight()}
}

func (p *Pipeline) drawTicks(plot *Plot, axis *Axis, offset, length float64, inverted bool) {
	for i := range axis.Ticks {
		tick := &axis.Ticks[i]
		tick.Label = p.tickLabel(plot, *axis, *tick)

		pos := axis.Project(tick.Value, length)
		if inverted {
			pos = length - pos
		}
		tick.Position = offset + pos
	}
}

// Positions lists the pixel positions of the x-axis ticks, relative to the left edge of the grid.
func Positions(plot *Plot) []float64 {
	ticks := plot.XAxis.Ticks
	positions := make([]float64, 0, len(ticks))

	for _, tick := range ticks {
		positions = append(positions, tick.Position-plot.GridPadding.Left)
	}

	return positions
}
