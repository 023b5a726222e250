package chart

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/fredbi/chartviz/internal/pkg/layout"
	"github.com/fredbi/chartviz/internal/pkg/legend"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/normalizer"
	"github.com/fredbi/chartviz/internal/pkg/pipeline"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	echartsopts "github.com/go-echarts/go-echarts/v2/opts"
)

const (
	defaultFontSize = 12
	xAxisLabelAngle = 30
	dateLabelAngle  = 65
	axisNameGap     = 32
	stackName       = "total"
	emptyValue      = "-" // echarts placeholder for missing values
)

// Drawer runs a drawing pass over a plot.
type Drawer interface {
	Draw(plot *pipeline.Plot)
}

// Chart is a chart descriptor prepared for rendering.
//
// The plot holds the derived layout of the last drawing pass.
type Chart struct {
	options

	ID         string
	Descriptor model.ChartDescriptor
	Colors     []string
	Series     []normalizer.Options
	Plot       *pipeline.Plot
	Legend     *legend.Table // set by [Chart.Draw] for tabular legends

	l *slog.Logger
}

// NewChart prepares a chart descriptor for rendering.
func NewChart(id string, d model.ChartDescriptor, opts ...Option) *Chart {
	o := optionsWithDefaults(opts)
	if d.IsTimeSeries() && d.Frequency == "" {
		d.Frequency = o.Frequency
	}

	colors := normalizer.SeriesColors(d, o.Colors)
	series := normalizer.SeriesOptions(d)

	return &Chart{
		options:    o,
		ID:         id,
		Descriptor: d,
		Colors:     colors,
		Series:     series,
		Plot:       newPlot(id, d, colors, series, o),
		l:          slog.Default().With(slog.String("module", "chart"), slog.String("chart_id", id)),
	}
}

// Draw runs a fresh drawing pass through the drawer, then packs the tabular legend
// against the final axis ticks.
func (c *Chart) Draw(drawer Drawer) {
	c.Plot = newPlot(c.ID, c.Descriptor, c.Colors, c.Series, c.options)
	drawer.Draw(c.Plot)

	c.Legend = nil
	if c.Plot.Legend != pipeline.LegendTabular {
		return
	}

	c.Legend = legend.NewTable(c.Descriptor, c.Colors, layout.ParseLabels(c.Descriptor.Labels))
	c.Legend.Pack(c.Plot)
}

// Keys lists the keys of the x-axis ticks, in axis order.
func (c *Chart) Keys() []string {
	keys := make([]string, 0, len(c.Plot.XAxis.Ticks))
	for _, tick := range c.Plot.XAxis.Ticks {
		keys = append(keys, tick.Key.Name)
	}

	return keys
}

// Build creates the ECharts chart from the drawn plot.
func (c *Chart) Build() components.Charter {
	if c.Descriptor.Type().IsBar() {
		return c.buildBar()
	}

	return c.buildLine()
}

func (c *Chart) buildLine() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(c.globalOptions()...)
	line.SetXAxis(c.categories())

	for i, s := range c.Plot.Series {
		marker := c.Series[i].Marker
		values := c.values(s)
		data := make([]echartsopts.LineData, 0, len(values))

		for _, v := range values {
			data = append(data, echartsopts.LineData{
				Value:      v,
				Symbol:     symbolFor(marker.Style),
				SymbolSize: int(math.Round(marker.Size)),
			})
		}

		seriesOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(echartsopts.LineChart{
				ConnectNulls: echartsopts.Bool(!c.Series[i].BreakOnNull),
			}),
			charts.WithLineStyleOpts(echartsopts.LineStyle{Color: s.Color}),
			charts.WithItemStyleOpts(echartsopts.ItemStyle{Color: orColor(marker.Color, s.Color)}),
			charts.WithLabelOpts(c.labelOpts(i)),
		}
		seriesOpts = append(seriesOpts, c.goalOpts(i)...)

		line.AddSeries(s.Label, data, seriesOpts...)
	}

	c.addTrends(line)

	return line
}

func (c *Chart) buildBar() *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(c.globalOptions()...)
	bar.SetXAxis(c.categories())

	barOpts := echartsopts.BarChart{
		BarCategoryGap: c.barCategoryGap(),
	}
	if c.Descriptor.Type() == model.ChartStacked {
		barOpts.Stack = stackName
	}

	for i, s := range c.Plot.Series {
		values := c.values(s)
		data := make([]echartsopts.BarData, 0, len(values))

		for _, v := range values {
			data = append(data, echartsopts.BarData{Value: v})
		}

		seriesOpts := []charts.SeriesOpts{
			charts.WithBarChartOpts(barOpts),
			charts.WithItemStyleOpts(echartsopts.ItemStyle{Color: s.Color}),
			charts.WithLabelOpts(c.labelOpts(i)),
		}
		seriesOpts = append(seriesOpts, c.goalOpts(i)...)

		bar.AddSeries(s.Label, data, seriesOpts...)
	}

	trends := charts.NewLine()
	trends.SetXAxis(c.categories())
	if c.addTrends(trends) > 0 {
		bar.Overlap(trends)
	}

	return bar
}

func (c *Chart) globalOptions() []charts.GlobalOpts {
	d := c.Descriptor
	plot := c.Plot

	titleOpts := echartsopts.Title{
		Title: d.Title,
	}
	if d.Description != "" {
		titleOpts.Subtitle = d.Description
		titleOpts.SubtitleStyle = &echartsopts.TextStyle{
			FontStyle: "italic",
			FontSize:  defaultFontSize,
		}
	}

	pointer := "line"
	if d.Type().IsBar() {
		pointer = "shadow"
	}

	return []charts.GlobalOpts{
		charts.WithInitializationOpts(echartsopts.Initialization{
			Theme:   c.Theme,
			ChartID: c.EChartsID(),
			Width:   pixels(plot.Width) + "px",
			Height:  pixels(plot.Height) + "px",
		}),
		charts.WithToolboxOpts(echartsopts.Toolbox{
			Left: "right",
			Feature: &echartsopts.ToolBoxFeature{
				SaveAsImage: &echartsopts.ToolBoxFeatureSaveAsImage{
					Title: "Save as image",
				},
			},
		}),
		charts.WithTitleOpts(titleOpts),
		charts.WithLegendOpts(c.legendOpts()),
		charts.WithGridOpts(echartsopts.Grid{
			Top:    pixels(plot.GridPadding.Top),
			Right:  pixels(plot.GridPadding.Right),
			Bottom: pixels(plot.GridPadding.Bottom),
			Left:   pixels(plot.GridPadding.Left),
		}),
		charts.WithXAxisOpts(c.xAxisOpts()),
		charts.WithYAxisOpts(c.yAxisOpts()),
		charts.WithTooltipOpts(echartsopts.Tooltip{
			Show:    echartsopts.Bool(true),
			Trigger: "axis",
			AxisPointer: &echartsopts.AxisPointer{
				Type: pointer,
			},
		}),
	}
}

// EChartsID is the id of the element ECharts draws into.
//
// go-echarts declares a javascript variable after it: the id is restricted to identifier characters.
func (c *Chart) EChartsID() string {
	return "echarts_" + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, c.ID)
}

func (c *Chart) legendOpts() echartsopts.Legend {
	if c.Plot.Legend != pipeline.LegendDefault {
		return echartsopts.Legend{Show: echartsopts.Bool(false)}
	}

	x, y, orient := legendPosition(legendLocation(c.Descriptor, c.options))

	return echartsopts.Legend{
		Show:   echartsopts.Bool(true),
		X:      x,
		Y:      y,
		Orient: orient,
	}
}

// legendPosition maps a compass location to echarts legend coordinates.
func legendPosition(location string) (x, y, orient string) {
	const (
		horizontal = "horizontal"
		vertical   = "vertical"
	)

	switch location {
	case "n":
		return "center", "top", horizontal
	case "s":
		return "center", "bottom", horizontal
	case "w":
		return "left", "center", vertical
	case "nw":
		return "left", "top", vertical
	case "sw":
		return "left", "bottom", vertical
	case "ne":
		return "right", "top", vertical
	case "se":
		return "right", "bottom", vertical
	default:
		return "right", "center", vertical
	}
}

func (c *Chart) xAxisOpts() echartsopts.XAxis {
	label := &echartsopts.AxisLabel{
		Rotate:       xAxisLabelAngle,
		Interval:     "0",
		ShowMinLabel: echartsopts.Bool(true),
		ShowMaxLabel: echartsopts.Bool(true),
		HideOverlap:  echartsopts.Bool(false),
	}
	if c.Plot.XAxis.Kind == pipeline.AxisDate {
		label.Rotate = dateLabelAngle
	}

	return echartsopts.XAxis{
		Name:         c.Descriptor.XLabel,
		Type:         "category",
		Position:     "bottom",
		NameLocation: "center",
		NameGap:      axisNameGap,
		AxisTick: &echartsopts.AxisTick{
			AlignWithLabel: echartsopts.Bool(true),
		},
		AxisLabel: label,
	}
}

func (c *Chart) yAxisOpts() echartsopts.YAxis {
	axis := c.Plot.YAxis

	return echartsopts.YAxis{
		Name: normalizer.YAxisFor(c.Descriptor).Label,
		Type: "value",
		Min:  axis.Min,
		Max:  axis.Max,
		AxisLabel: &echartsopts.AxisLabel{
			Formatter: echartsopts.FuncOpts(labelFormatter(normalizer.DefaultFormat)),
		},
	}
}

// categories are the labels of the x-axis ticks, custom labels included.
func (c *Chart) categories() []string {
	labels := make([]string, 0, len(c.Plot.XAxis.Ticks))
	for _, tick := range c.Plot.XAxis.Ticks {
		labels = append(labels, tick.Label)
	}

	return labels
}

// alignment places the points of a series on the x-axis ticks.
type alignment struct {
	values  []any
	keys    []string
	outside int // points out of the axis domain
	shared  int // points overridden by a later point of the same tick
}

// align places the points of a series on the x-axis ticks. On date axes a point goes to the
// tick of its period. Ticks without a value get the empty placeholder.
func (c *Chart) align(s *pipeline.Series) alignment {
	axis := c.Plot.XAxis
	a := alignment{
		values: make([]any, len(axis.Ticks)),
		keys:   make([]string, len(axis.Ticks)),
	}
	for i := range a.values {
		a.values[i] = emptyValue
	}

	for _, p := range s.Data {
		i, ok := axis.TickIndex(p.X)
		if !ok {
			a.outside++

			continue
		}

		if p.Null {
			continue
		}

		if a.keys[i] != "" {
			a.shared++
		}
		a.values[i] = p.Y
		a.keys[i] = p.Key.Name
	}

	return a
}

// values are the echarts values of a series, one per x-axis tick.
func (c *Chart) values(s *pipeline.Series) []any {
	a := c.align(s)

	if a.outside > 0 {
		c.l.Warn("points outside of the x-axis skipped",
			slog.String("series", s.Label),
			slog.Int("points", a.outside),
		)
	}

	if a.shared > 0 {
		c.l.Warn("points sharing an x-axis tick, the last one is kept",
			slog.String("series", s.Label),
			slog.Int("points", a.shared),
		)
	}

	return a.values
}

// PointKeys lists, for each series, the key of the data point shown at each x-axis tick.
// Ticks without a point have an empty key.
func (c *Chart) PointKeys() [][]string {
	keys := make([][]string, 0, len(c.Plot.Series))
	for _, s := range c.Plot.Series {
		keys = append(keys, c.align(s).keys)
	}

	return keys
}

// labelOpts configures point labels. Stacked bars use the series color as the label
// background, other charts as the label color.
func (c *Chart) labelOpts(i int) echartsopts.Label {
	s := c.Plot.Series[i]
	label := echartsopts.Label{
		Show:      echartsopts.Bool(s.ShowLabels),
		Formatter: string(echartsopts.FuncOpts(labelFormatter(c.Series[i].PointLabels.Format))),
	}

	if c.Descriptor.Type() == model.ChartStacked {
		label.Position = "inside"
		label.BackgroundColor = s.Color
		label.Color = legend.TextColor(legend.NormalizeColor(s.Color))

		return label
	}

	label.Position = "top"
	label.Color = s.Color

	return label
}

// goalOpts draws the goal line along with the first series.
func (c *Chart) goalOpts(i int) []charts.SeriesOpts {
	d := c.Descriptor
	if i != 0 || d.Goal == nil {
		return nil
	}

	return []charts.SeriesOpts{
		charts.WithMarkLineNameYAxisItemOpts(echartsopts.MarkLineNameYAxisItem{
			Name:  "Goal",
			YAxis: *d.Goal,
		}),
		charts.WithMarkLineStyleOpts(echartsopts.MarkLineStyle{
			LineStyle: &echartsopts.LineStyle{
				Color: orColor(d.GoalColor, normalizer.DefaultGoalColor),
			},
		}),
	}
}

// addTrends adds the trend lines of the series that show one. It returns the number of
// trend lines added.
func (c *Chart) addTrends(line *charts.Line) int {
	var added int

	for i, s := range c.Plot.Series {
		trend := c.Series[i].Trend
		if !trend.Show {
			continue
		}

		fit, ok := fitTrend(s.Data)
		if !ok {
			c.l.Warn("not enough points for a trend line", slog.String("series", s.Label))

			continue
		}

		data := make([]echartsopts.LineData, 0, len(c.Plot.XAxis.Ticks))
		for _, tick := range c.Plot.XAxis.Ticks {
			data = append(data, echartsopts.LineData{
				Value:  fit.At(tick.Value),
				Symbol: "none",
			})
		}

		line.AddSeries(trend.Label, data,
			charts.WithLineStyleOpts(echartsopts.LineStyle{Color: orColor(trend.Color, s.Color)}),
			charts.WithItemStyleOpts(echartsopts.ItemStyle{Color: orColor(trend.Color, s.Color)}),
		)
		added++
	}

	return added
}

// barCategoryGap fits bars to the width computed by [layout.Bounds.BarWidth], as a gap
// between categories.
func (c *Chart) barCategoryGap() string {
	ticks := len(c.Plot.XAxis.Ticks)
	series := len(c.Plot.Series)
	if ticks == 0 || series == 0 {
		return ""
	}

	stacked := c.Descriptor.Type() == model.ChartStacked
	width := c.BarBounds.BarWidth(c.Plot.Width, normalizer.MaxPoints(c.Descriptor), series, stacked)

	occupied := width
	if !stacked {
		occupied *= float64(series)
	}

	band := c.Plot.GridWidth() / float64(ticks)

	return gapPercent(occupied, band)
}

func gapPercent(occupied, band float64) string {
	const maxGap = 0.9

	if band <= 0 {
		return ""
	}

	gap := math.Min(maxGap, math.Max(0, 1-occupied/band))

	return strconv.Itoa(int(math.Round(gap*100))) + "%" //nolint:mnd // percent
}

// symbolFor maps marker styles to echarts symbols.
func symbolFor(style string) string {
	switch style {
	case "circle", "filledCircle":
		return "circle"
	case "diamond", "filledDiamond":
		return "diamond"
	case "triangle", "filledTriangle":
		return "triangle"
	case "x", "plus", "dash":
		return "emptyCircle"
	default:
		return "rect"
	}
}

// labelFormatter translates a printf-style format into an echarts formatter function.
func labelFormatter(format string) string {
	if format == "" {
		format = normalizer.DefaultFormat
	}

	directive := legend.ParseFormat(format)
	render := "String(v)"
	if decimals := directive.Decimals(); decimals >= 0 {
		render = fmt.Sprintf("v.toFixed(%d)", decimals)
	}

	return fmt.Sprintf(
		"function (p) { var v = (p !== null && typeof p === 'object') ? p.value : p; "+
			"if (typeof v !== 'number') { return ''; } return %s + %s + %s; }",
		strconv.Quote(directive.Prefix), render, strconv.Quote(directive.Suffix),
	)
}

func orColor(color, def string) string {
	if color == "" {
		return def
	}

	return color
}

func pixels(v float64) string {
	return strconv.Itoa(int(math.Round(v)))
}
