// Package model describes the chart data served by the CMS JSON API.
//
// All types are read-only once decoded: derived layouts and rendering options are computed
// from a [ChartDescriptor], never written back into it.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ChartType selects how series are drawn.
type ChartType string

// Supported chart types.
const (
	ChartLine    ChartType = "line"
	ChartBar     ChartType = "bar"
	ChartStacked ChartType = "stacked"
)

// IsBar reports whether the chart renders bars (plain or stacked).
func (t ChartType) IsBar() bool {
	return t == ChartBar || t == ChartStacked
}

// AxisType selects the kind of x-axis.
type AxisType string

// Supported x-axis types. The category axis is the default when the JSON omits the type.
const (
	AxisDate     AxisType = "date"
	AxisCategory AxisType = "category"
)

// Point label visibility values, at chart or series level.
const (
	LabelsShow  = "show"
	LabelsOmit  = "omit"
	LabelsDefer = "defer"
)

// ChartDescriptor is the JSON representation of a multi-series chart.
//
// Time series charts add frequency, start, end, labels and auto_crop.
type ChartDescriptor struct {
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	CSS             string             `json:"css,omitempty"`
	XLabel          string             `json:"x_label,omitempty"`
	YLabel          string             `json:"y_label,omitempty"`
	ChartType       ChartType          `json:"chart_type,omitempty"`
	Units           string             `json:"units,omitempty"`
	Goal            *float64           `json:"goal,omitempty"`
	GoalColor       string             `json:"goal_color,omitempty"`
	XAxisType       AxisType           `json:"x_axis_type,omitempty"`
	LegendPlacement string             `json:"legend_placement,omitempty"`
	LegendLocation  string             `json:"legend_location,omitempty"`
	RangeMin        *float64           `json:"range_min,omitempty"`
	RangeMax        *float64           `json:"range_max,omitempty"`
	PointLabels     string             `json:"point_labels,omitempty"`
	Width           float64            `json:"width,omitempty"`
	WidthUnits      string             `json:"width_units,omitempty"`
	Height          float64            `json:"height,omitempty"`
	HeightUnits     string             `json:"height_units,omitempty"`
	AspectRatio     []float64          `json:"aspect_ratio,omitempty"`
	Frequency       string             `json:"frequency,omitempty"`
	Start           string             `json:"start,omitempty"`
	End             string             `json:"end,omitempty"`
	Labels          map[string]string  `json:"labels,omitempty"`
	AutoCrop        Flag               `json:"auto_crop,omitempty"`
	Series          []SeriesDescriptor `json:"series"`
}

// Type returns the chart type, defaulting to a line chart.
func (d ChartDescriptor) Type() ChartType {
	if d.ChartType == "" {
		return ChartLine
	}

	return d.ChartType
}

// IsTimeSeries reports whether the x-axis is keyed by dates.
func (d ChartDescriptor) IsTimeSeries() bool {
	return d.XAxisType == AxisDate
}

// Rendered returns the series that carry data. Series without data are never drawn.
func (d ChartDescriptor) Rendered() []SeriesDescriptor {
	rendered := make([]SeriesDescriptor, 0, len(d.Series))
	for _, s := range d.Series {
		if !s.HasData() {
			continue
		}
		rendered = append(rendered, s)
	}

	return rendered
}

// StartDate returns the explicit start of a time series, if any.
func (d ChartDescriptor) StartDate() (time.Time, bool) {
	return parseOptionalDate(d.Start)
}

// EndDate returns the explicit end of a time series, if any.
func (d ChartDescriptor) EndDate() (time.Time, bool) {
	return parseOptionalDate(d.End)
}

// SeriesDescriptor is the JSON representation of a data series.
type SeriesDescriptor struct {
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	LineWidth     *float64   `json:"line_width,omitempty"`
	Color         string     `json:"color,omitempty"`
	MarkerColor   string     `json:"marker_color,omitempty"`
	MarkerWidth   *float64   `json:"marker_width,omitempty"`
	MarkerSize    *float64   `json:"marker_size,omitempty"`
	MarkerStyle   string     `json:"marker_style,omitempty"`
	ShowTrend     Flag       `json:"show_trend,omitempty"`
	TrendWidth    *float64   `json:"trend_width,omitempty"`
	TrendColor    string     `json:"trend_color,omitempty"`
	DisplayFormat string     `json:"display_format,omitempty"`
	PointLabels   string     `json:"point_labels,omitempty"`
	BreakLines    Flag       `json:"break_lines,omitempty"`
	Units         string     `json:"units,omitempty"`
	RangeMin      *float64   `json:"range_min,omitempty"`
	RangeMax      *float64   `json:"range_max,omitempty"`
	Data          []DataPair `json:"data"`
}

// HasData reports whether the series has at least one data pair.
func (s SeriesDescriptor) HasData() bool {
	return len(s.Data) > 0
}

// Lookup returns the point stored under the key identity, if any.
func (s SeriesDescriptor) Lookup(k Key) (Point, bool) {
	for _, pair := range s.Data {
		if pair.Key.Ident() == k.Ident() {
			return pair.Point, true
		}
	}

	return Point{}, false
}

// DataPair is one [key, point] element of a series.
type DataPair struct {
	Key   Key
	Point Point
}

// UnmarshalJSON decodes a two-item JSON array.
func (p *DataPair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("data pair: %w", err)
	}

	if len(raw) != 2 { //nolint:mnd // a pair
		return fmt.Errorf("data pair: expected 2 items, got %d", len(raw))
	}

	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return fmt.Errorf("data pair key: %w", err)
	}

	if err := json.Unmarshal(raw[1], &p.Point); err != nil {
		return fmt.Errorf("data pair point: %w", err)
	}

	if p.Point.Title == "" {
		p.Point.Title = titleCase(p.Key.Name)
	}

	return nil
}

// MarshalJSON encodes the pair as a two-item JSON array.
func (p DataPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Key, p.Point})
}

// Point is a single data point.
type Point struct {
	Key   string `json:"key,omitempty"`
	Value Value  `json:"value"`
	Title string `json:"title,omitempty"`
	Note  string `json:"note,omitempty"`
	URI   string `json:"uri,omitempty"`
}

func titleCase(in string) string {
	caser := cases.Title(language.English) // the caser is stateful: cannot declare it globally

	return caser.String(strings.TrimSpace(in))
}
