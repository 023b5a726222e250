package chart

import (
	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/layout"
)

// Theme constants from go-echarts.
const (
	ThemeRoma = "roma"
)

// Default plot dimensions, in px.
const (
	defaultHeight      = 300.0
	defaultLabelHeight = 14.0
)

// defaultColors is the series palette used when no palette is configured.
var defaultColors = []string{ //nolint:gochecknoglobals // read-only default
	"#4bb2c5", "#EAA228", "#c5b47f", "#579575", "#839557", "#958c12",
	"#953579", "#4b5de4", "#d8b83f", "#ff5800", "#0085cc",
}

// Option configures a [Chart].
type Option func(*options)

type options struct {
	Theme           string
	Width           float64
	Height          float64
	Colors          []string
	LegendPlacement config.LegendPlacement
	LegendLocation  string
	LabelHeight     float64
	AxisPadding     float64
	BarBounds       layout.Bounds
	Frequency       string
	API             string
}

// WithTheme sets the color theme.
func WithTheme(theme string) Option {
	return func(o *options) {
		o.Theme = theme
	}
}

// WithSize sets the default dimensions of charts that do not specify their own.
func WithSize(width, height float64) Option {
	return func(o *options) {
		if width > 0 {
			o.Width = width
		}
		if height > 0 {
			o.Height = height
		}
	}
}

// WithColors sets the default series colors. An empty palette keeps the default one.
func WithColors(colors []string) Option {
	return func(o *options) {
		if len(colors) > 0 {
			o.Colors = colors
		}
	}
}

// WithLegend sets the default legend placement and location.
//
// Locations are compass points (n, ne, e, se, s, sw, w, nw).
func WithLegend(placement config.LegendPlacement, location string) Option {
	return func(o *options) {
		o.LegendPlacement = placement
		o.LegendLocation = location
	}
}

// WithLabelHeight sets the height of a point label, in px.
func WithLabelHeight(height float64) Option {
	return func(o *options) {
		o.LabelHeight = height
	}
}

// WithAxisPadding sets the ratio of the value span added around the y-axis when its range
// is not explicit.
func WithAxisPadding(ratio float64) Option {
	return func(o *options) {
		o.AxisPadding = ratio
	}
}

// WithBarBounds constrains the width of bars.
func WithBarBounds(bounds layout.Bounds) Option {
	return func(o *options) {
		o.BarBounds = bounds
	}
}

// WithFrequency sets the frequency of time series that do not specify one.
func WithFrequency(frequency string) Option {
	return func(o *options) {
		o.Frequency = frequency
	}
}

// WithAPI sets the JSON API URL of the chart, exposed on its container.
func WithAPI(api string) Option {
	return func(o *options) {
		o.API = api
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		Theme:           ThemeRoma,
		Width:           layout.DefaultChartWidth,
		Height:          defaultHeight,
		LegendPlacement: config.LegendTabular,
		LegendLocation:  "e",
		LabelHeight:     defaultLabelHeight,
		BarBounds:       layout.DefaultBarBounds,
		Colors:          defaultColors,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

// renderingOptions translates the rendering configuration into chart options.
func renderingOptions(cfg *config.Config) []Option {
	r := cfg.Render

	return []Option{
		WithTheme(r.Theme),
		WithSize(r.Width, r.Height),
		WithColors(r.Colors),
		WithLegend(r.LegendPlacement, r.LegendLocation),
		WithLabelHeight(r.LabelHeight),
		WithAxisPadding(r.AxisPadding),
		WithBarBounds(layout.Bounds{Min: r.BarWidth.Min, Max: r.BarWidth.Max}),
		WithFrequency(cfg.Timeseries.Frequency),
	}
}
