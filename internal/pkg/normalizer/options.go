package normalizer

import (
	"github.com/fredbi/chartviz/internal/pkg/model"
)

// Marker describes how data points are marked on line charts.
type Marker struct {
	Style     string
	LineWidth float64
	Size      float64
	Color     string
}

// PointLabels describes the value labels drawn next to data points.
type PointLabels struct {
	Show      bool
	Format    string
	HideZeros bool
}

// Trend describes the optional trend line of a series.
type Trend struct {
	Show  bool
	Label string
	Width float64
	Color string
}

// Options holds the rendering options of a rendered series.
type Options struct {
	Label       string
	Marker      Marker
	BreakOnNull bool
	PointLabels PointLabels
	LineWidth   float64 // 0 means the backend default
	Trend       Trend
	Format      string // value format for overlays and legends, empty for the default
}

// ValueFormat returns the format used to display values of the series.
func (o Options) ValueFormat() string {
	if o.Format == "" {
		return DefaultFormat
	}

	return o.Format
}

// SeriesOptions builds the rendering options of each rendered series.
func SeriesOptions(d model.ChartDescriptor) []Options {
	rendered := d.Rendered()
	result := make([]Options, 0, len(rendered))

	for _, s := range rendered {
		o := Options{
			Label: s.Title,
			Marker: Marker{
				Style:     orString(s.MarkerStyle, DefaultMarkerStyle),
				LineWidth: orFloat(s.MarkerWidth, DefaultMarkerLineWidth),
				Size:      orFloat(s.MarkerSize, DefaultMarkerSize),
				Color:     s.MarkerColor,
			},
			BreakOnNull: bool(s.BreakLines),
			PointLabels: PointLabels{
				Show:   ShowPointLabels(d, s),
				Format: DefaultFormat,
			},
			LineWidth: orFloat(s.LineWidth, 0),
			Format:    s.DisplayFormat,
		}

		if s.Units != "" && o.Label != "" {
			o.Label += " [ " + s.Units + " ]"
		}

		if s.ShowTrend {
			o.Trend = Trend{
				Show:  true,
				Label: "Trend",
				Width: orFloat(s.TrendWidth, DefaultTrendWidth),
				Color: s.TrendColor,
			}

			if s.Title != "" {
				o.Trend.Label += ": " + s.Title
			}
		}

		result = append(result, o)
	}

	return result
}

func orString(s, def string) string {
	if s == "" {
		return def
	}

	return s
}

func orFloat(f *float64, def float64) float64 {
	if f == nil || *f == 0 {
		return def
	}

	return *f
}
