package chart

import (
	"log/slog"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/model"
)

// Builder constructs charts from chart descriptors.
type Builder struct {
	cfg    *config.Config
	drawer Drawer
	l      *slog.Logger
}

// New creates a new chart [Builder], given a [config.Config] and the [Drawer] that runs the
// layout pipeline.
//
// The builder embeds a [slog.Logger] to croak about warnings and issues.
func New(cfg *config.Config, drawer Drawer) *Builder {
	return &Builder{
		cfg:    cfg,
		drawer: drawer,
		l:      slog.Default().With(slog.String("module", "chart")),
	}
}

// Build prepares and draws a single chart.
//
// It returns nil when no series of the chart has data.
func (b *Builder) Build(id string, d model.ChartDescriptor, opts ...Option) *Chart {
	if len(d.Rendered()) == 0 {
		b.l.Warn("empty chart skipped", slog.String("chart_id", id))

		return nil
	}

	chart := NewChart(id, d, append(renderingOptions(b.cfg), opts...)...)
	chart.Draw(b.drawer)

	b.l.Info("added chart",
		slog.String("chart_id", id),
		slog.String("chart_type", string(d.Type())),
		slog.Int("series", len(chart.Plot.Series)),
	)

	return chart
}

// BuildPage creates a page with the charts of a report, in report order.
func (b *Builder) BuildPage(report model.Report) *Page {
	page := NewPage(b.cfg.Name)

	for _, entry := range report {
		chart := b.Build(entry.UID, entry.Chart)
		if chart == nil {
			continue
		}

		page.AddChart(chart)
	}

	b.l.Info("added charts", slog.Int("charts", len(page.Charts)))

	return page
}
