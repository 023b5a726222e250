// Package normalizer converts a chart descriptor into the per-series data arrays and
// rendering options consumed by the chart backend.
//
// Series without data are skipped everywhere, so that every derived slice is parallel to
// [model.ChartDescriptor.Rendered].
package normalizer

import (
	"github.com/fredbi/chartviz/internal/pkg/model"
)

// Default series rendering options.
const (
	DefaultMarkerStyle     = "square"
	DefaultMarkerLineWidth = 2.0
	DefaultMarkerSize      = 9.0
	DefaultFormat          = "%.1f"
	DefaultTrendWidth      = 1.0
	DefaultGoalColor       = "#333333"
)

// Coordinate is a point positioned along the x-axis.
//
// On category axes, the key is the category of the column the value is aligned to.
type Coordinate struct {
	Key   model.Key
	Value model.Value
}

// Data holds the coordinates of a rendered series.
type Data struct {
	Title       string
	Coordinates []Coordinate
}

// Values returns the bare values of the series.
func (d Data) Values() []model.Value {
	values := make([]model.Value, 0, len(d.Coordinates))
	for _, c := range d.Coordinates {
		values = append(values, c.Value)
	}

	return values
}

// Max returns the maximum non-null value of the series.
func (d Data) Max() (float64, bool) {
	var (
		maxValue float64
		found    bool
	)

	for _, c := range d.Coordinates {
		if c.Value.IsNull() {
			continue
		}

		if !found || c.Value.Float > maxValue {
			maxValue = c.Value.Float
			found = true
		}
	}

	return maxValue, found
}

// SeriesData builds one coordinate array per rendered series.
//
// Date axes keep the (date, value) pairs in the order of the descriptor. Category axes align
// values to [UniqueKeys]: categories a series does not provide are null gaps.
func SeriesData(d model.ChartDescriptor) []Data {
	rendered := d.Rendered()
	result := make([]Data, 0, len(rendered))

	if d.IsTimeSeries() {
		for _, s := range rendered {
			coordinates := make([]Coordinate, 0, len(s.Data))
			for _, pair := range s.Data {
				coordinates = append(coordinates, Coordinate{Key: pair.Key, Value: pair.Point.Value})
			}
			result = append(result, Data{Title: s.Title, Coordinates: coordinates})
		}

		return result
	}

	keys := UniqueKeys(d)
	for _, s := range rendered {
		coordinates := make([]Coordinate, 0, len(keys))
		for _, key := range keys {
			value := model.Null
			if point, ok := s.Lookup(key); ok {
				value = point.Value
			}
			coordinates = append(coordinates, Coordinate{Key: key, Value: value})
		}
		result = append(result, Data{Title: s.Title, Coordinates: coordinates})
	}

	return result
}

// UniqueKeys returns the de-duplicated keys of all rendered series, in first-seen order.
func UniqueKeys(d model.ChartDescriptor) []model.Key {
	seen := make(map[string]struct{})
	keys := make([]model.Key, 0)

	for _, s := range d.Rendered() {
		for _, pair := range s.Data {
			ident := pair.Key.Ident()
			if _, ok := seen[ident]; ok {
				continue
			}
			seen[ident] = struct{}{}
			keys = append(keys, pair.Key)
		}
	}

	return keys
}

// MaxPoints returns the largest number of points across rendered series.
func MaxPoints(d model.ChartDescriptor) int {
	var maxPoints int
	for _, s := range d.Rendered() {
		maxPoints = max(maxPoints, len(s.Data))
	}

	return maxPoints
}

// MaxValue returns the maximum non-null value across all rendered series.
func MaxValue(d model.ChartDescriptor) (float64, bool) {
	var (
		maxValue float64
		found    bool
	)

	for _, data := range SeriesData(d) {
		v, ok := data.Max()
		if !ok {
			continue
		}

		if !found || v > maxValue {
			maxValue = v
			found = true
		}
	}

	return maxValue, found
}

// SeriesColors resolves the color of each series.
//
// The defaults are copied, then overridden in order by the rendered series that specify a color.
// When there are more rendered series than defaults, the palette is cycled.
func SeriesColors(d model.ChartDescriptor, defaults []string) []string {
	rendered := d.Rendered()
	colors := make([]string, max(len(defaults), len(rendered)))
	copy(colors, defaults)

	for i := len(defaults); i < len(colors) && len(defaults) > 0; i++ {
		colors[i] = defaults[i%len(defaults)]
	}

	for i, s := range rendered {
		if s.Color == "" {
			continue
		}
		colors[i] = s.Color
	}

	return colors
}

// ShowPointLabels resolves the point label visibility of a series.
//
// The chart default is to show labels unless the chart point_labels is set to anything but "show".
// A series "show" always shows, "defer" or no value falls back to the chart default, and any
// other series value hides the labels.
func ShowPointLabels(chart model.ChartDescriptor, series model.SeriesDescriptor) bool {
	chartDefault := true
	if chart.PointLabels != "" {
		chartDefault = chart.PointLabels == model.LabelsShow
	}

	if series.PointLabels == "" || series.PointLabels == model.LabelsDefer {
		return chartDefault
	}

	return series.PointLabels == model.LabelsShow
}

// YRange is the y-axis range. Bounds are nil when unset.
type YRange struct {
	Min *float64
	Max *float64
}

// Range computes the y-axis range: the explicit chart range, widened by the ranges declared
// on rendered series.
func Range(d model.ChartDescriptor) YRange {
	r := YRange{
		Min: copyFloat(d.RangeMin),
		Max: copyFloat(d.RangeMax),
	}

	for _, s := range d.Rendered() {
		if s.RangeMin != nil {
			if r.Min == nil || *s.RangeMin < *r.Min {
				r.Min = copyFloat(s.RangeMin)
			}
		}

		if s.RangeMax != nil {
			if r.Max == nil || *s.RangeMax > *r.Max {
				r.Max = copyFloat(s.RangeMax)
			}
		}
	}

	return r
}

// YAxis describes the y-axis of a chart.
type YAxis struct {
	Label string
	YRange
}

// YAxisFor builds the y-axis label and range.
func YAxisFor(d model.ChartDescriptor) YAxis {
	label := d.YLabel
	switch {
	case d.YLabel != "" && d.Units != "":
		label = d.YLabel + " ( " + d.Units + " )"
	case d.Units != "":
		label = d.Units
	}

	return YAxis{
		Label:  label,
		YRange: Range(d),
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f

	return &v
}
