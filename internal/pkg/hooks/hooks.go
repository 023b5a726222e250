// Package hooks installs the layout fix-ups of chart plots on a drawing pipeline.
//
// Installed hooks:
//   - bind each series to its plot;
//   - widen the left grid padding of plots with a tabular legend;
//   - make room at the top of the grid for the markers and labels of top data points
//     ("fitmarkers"), shifting series canvases and grid data accordingly;
//   - apply custom tick labels on date axes.
package hooks

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/layout"
	"github.com/fredbi/chartviz/internal/pkg/pipeline"
)

// ClassFitMarkers is the css class opting a plot in to marker fitting.
const ClassFitMarkers = "fitmarkers"

// LabelLookup returns the custom labels of a plot and the date of its last data point.
//
// It returns false when the plot has no date axis to relabel.
type LabelLookup func(plotID string) (labels layout.Labels, maxKey time.Time, ok bool)

// Installer registers the hooks on a pipeline, exactly once.
type Installer struct {
	once      sync.Once
	installed atomic.Bool
	labels    LabelLookup
	l         *slog.Logger
}

// NewInstaller builds an [Installer]. The lookup may be nil when no custom label applies.
func NewInstaller(labels LabelLookup) *Installer {
	return &Installer{
		labels: labels,
		l:      slog.Default().With(slog.String("module", "hooks")),
	}
}

// Installed tells if the hooks have been registered.
func (i *Installer) Installed() bool {
	return i.installed.Load()
}

// Install registers the hooks on the pipeline. Subsequent calls are no-ops.
func (i *Installer) Install(p *pipeline.Pipeline) {
	i.once.Do(func() {
		p.AddPostInit(bindSeries)
		p.AddPostInit(tabularPadding)
		p.AddPreDraw(i.overlapPadding)
		p.AddPreDrawSeries(seriesOverlap)
		p.AddPostDraw(highlightCanvas)
		p.WrapGridData(shiftGridData)
		p.WrapTickLabel(i.customTickLabel)

		i.installed.Store(true)
		i.l.Info("hooks installed")
	})
}

// AdditionalHeight is the room needed above the grid to fit top markers and labels.
func AdditionalHeight(plot *pipeline.Plot) float64 {
	return layout.AdditionalHeight(layout.MarkerSize(plot.MarkerSizes()), plot.LabelHeight, plot.HasLabels())
}

// Qualifies tells if a plot needs marker fitting.
func Qualifies(plot *pipeline.Plot) bool {
	return layout.Qualifies(
		plot.IsLine(),
		plot.HasClass(ClassFitMarkers),
		plot.YAxis.Min,
		plot.YAxis.Max,
		plot.MaxValue(),
		plot.Height,
		AdditionalHeight(plot),
	)
}

func bindSeries(plot *pipeline.Plot) {
	for _, s := range plot.Series {
		s.Bind(plot)
	}
}

func tabularPadding(plot *pipeline.Plot) {
	if plot.Legend != pipeline.LegendTabular {
		return
	}

	plot.GridPadding.Left = layout.TabularGridLeft
}

func (i *Installer) overlapPadding(plot *pipeline.Plot) {
	if !Qualifies(plot) {
		i.l.Debug("plot does not qualify for marker fitting", slog.String("plot_id", plot.ID))

		return
	}

	additional := AdditionalHeight(plot)
	plot.GridPadding.Top += additional

	i.l.Debug("marker fitting",
		slog.String("plot_id", plot.ID),
		slog.Float64("additional_height", additional),
	)
}

func seriesOverlap(s *pipeline.Series) {
	plot := s.Plot()
	if plot == nil || !Qualifies(plot) {
		return
	}

	additional := AdditionalHeight(plot)
	top := math.Max(0, s.Canvas.Top-additional)
	s.Canvas.Top = top
	s.Canvas.Height += additional

	// the event canvas is shared by all series
	if s.Index == 0 && plot.EventCanvas != nil && plot.EventCanvas.Top != 0 {
		plot.EventCanvas.Top = top
		plot.EventCanvas.Height += additional
	}
}

func highlightCanvas(plot *pipeline.Plot) {
	if plot.HighlightCanvas == nil || len(plot.Series) == 0 || !Qualifies(plot) {
		return
	}

	*plot.HighlightCanvas = plot.Series[0].Canvas
}

func shiftGridData(next pipeline.GridDataFunc) pipeline.GridDataFunc {
	return func(plot *pipeline.Plot, s *pipeline.Series) []pipeline.Point {
		points := next(plot, s)
		if !Qualifies(plot) {
			return points
		}

		additional := AdditionalHeight(plot)
		for j := range points {
			points[j].Y += additional
		}

		return points
	}
}

func (i *Installer) customTickLabel(next pipeline.TickLabelFunc) pipeline.TickLabelFunc {
	return func(plot *pipeline.Plot, axis pipeline.Axis, tick pipeline.Tick) string {
		if i.labels == nil || axis.Kind != pipeline.AxisDate {
			return next(plot, axis, tick)
		}

		labels, maxKey, ok := i.labels(plot.ID)
		if !ok {
			return next(plot, axis, tick)
		}

		if label, custom := layout.CustomTickLabel(labels, time.UnixMilli(int64(tick.Value)).UTC(), maxKey); custom {
			return label
		}

		return next(plot, axis, tick)
	}
}
