package chart

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/dom"
	"github.com/fredbi/chartviz/internal/pkg/hooks"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/pipeline"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
	"golang.org/x/net/html"
)

const monthly = `{
	"title": "Falls",
	"description": "per 1000 patient days",
	"x_axis_type": "date",
	"aspect_ratio": [4, 3],
	"series": [
		{"title": "North", "data": [
			["2013-01-01", {"value": 1}],
			["2013-02-01", {"value": 2.5}],
			["2013-03-01", {"value": 4}]
		]},
		{"title": "South", "show_trend": true, "data": [
			["2013-01-01", {"value": 3}],
			["2013-02-01", {"value": null}],
			["2013-03-01", {"value": 1}]
		]}
	]
}`

const stacked = `{
	"title": "Staffing",
	"chart_type": "stacked",
	"goal": 12,
	"legend_placement": "outside",
	"legend_location": "ne",
	"series": [
		{"title": "Day", "data": [["east", {"value": 4}], ["west", {"value": 6}]]},
		{"title": "Night", "color": "#333333", "data": [["east", {"value": 3}], ["west", {"value": 2}]]}
	]
}`

// TestSmokeRenderPage is an end-to-end smoke test that builds charts from descriptors,
// draws them through the layout pipeline and renders HTML output.
func TestSmokeRenderPage(t *testing.T) {
	cfg := mustLoadDefaults(t)
	builder := New(cfg, newTestDrawer())

	report := model.Report{
		{UID: "falls", Chart: decode(t, monthly)},
		{UID: "empty", Chart: decode(t, `{"title": "nothing", "series": [{"title": "x", "data": []}]}`)},
		{UID: "staffing", Chart: decode(t, stacked)},
	}

	page := builder.BuildPage(report)
	require.Len(t, page.Charts, 2)
	assert.Equal(t, cfg.Name, page.Title)
	page.OverlayURL = "/overlay"

	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf))

	out := buf.String()
	require.NotEmpty(t, out)

	assert.Contains(t, out, "echarts")
	assert.Contains(t, out, `id="falls"`)
	assert.Contains(t, out, `class="chartdiv fitmarkers"`)
	assert.Contains(t, out, `class="tabular-legend"`)
	assert.Contains(t, out, `data-ident="tinyOverlay"`)
	assert.Contains(t, out, "echarts.getInstanceByDom")
	assert.Contains(t, out, `"/overlay"`)

	doc, err := dom.Parse(strings.NewReader(out))
	require.NoError(t, err)
	falls := doc.ByID("falls")
	require.NotNil(t, falls)
	assert.NotNil(t, dom.First(falls, func(n *html.Node) bool { return dom.HasClass(n, "tabular-legend") }))
	staffing := doc.ByID("staffing")
	require.NotNil(t, staffing)
	assert.Nil(t, dom.First(staffing, func(n *html.Node) bool { return dom.HasClass(n, "tabular-legend") }))

	outFile := filepath.Join(t.TempDir(), "smoke_test_output.html")
	require.NoError(t, os.WriteFile(outFile, buf.Bytes(), 0o600))
	t.Logf("HTML output written to: %s (%d bytes)", outFile, buf.Len())
}

func TestRenderAPILink(t *testing.T) {
	cfg := mustLoadDefaults(t)
	builder := New(cfg, newTestDrawer())

	chart := builder.Build("chart-1", decode(t, monthly), WithAPI("http://cms.example.org/falls/@@json"))
	require.NotNil(t, chart)

	page := NewPage("api")
	page.AddChart(chart)

	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf))
	assert.NotContains(t, buf.String(), "getInstanceByDom", "no overlay script without an overlay endpoint")

	divs, err := dom.FindChartDivs(&buf)
	require.NoError(t, err)
	require.Len(t, divs, 1)
	assert.Equal(t, dom.ChartDiv{ID: "chart-1", API: "http://cms.example.org/falls/@@json"}, divs[0])
}

func TestRenderEmptyPage(t *testing.T) {
	page := NewPage("empty")

	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf))
	assert.NotEmpty(t, buf.String())
}

func TestNewChart(t *testing.T) {
	chart := NewChart("falls", decode(t, monthly))
	plot := chart.Plot

	assert.InDelta(t, 600.0, plot.Width, 1e-9)
	assert.InDelta(t, 450.0, plot.Height, 1e-9, "height follows the aspect ratio")
	assert.True(t, plot.HasClass(hooks.ClassFitMarkers))
	assert.Equal(t, pipeline.LegendTabular, plot.Legend)
	assert.Equal(t, pipeline.AxisDate, plot.XAxis.Kind)
	require.Len(t, plot.XAxis.Ticks, 5, "the date axis is padded by one interval on each side")
	assert.Equal(t, "2012-12-01", plot.XAxis.Ticks[0].Key.Name)
	assert.Equal(t, "2013-04-01", plot.XAxis.Ticks[4].Key.Name)

	require.Len(t, plot.Series, 2)
	assert.Equal(t, "#4bb2c5", plot.Series[0].Color)
	assert.InDelta(t, 9.0, plot.Series[0].MarkerSize, 1e-9)
	assert.True(t, plot.Series[1].Data[1].Null)

	assert.InDelta(t, 1.0, plot.YAxis.Min, 1e-9, "lines do not rest on zero")
	assert.InDelta(t, 4.0, plot.YAxis.Max, 1e-9)
	assert.Len(t, plot.YAxis.Ticks, 5)
}

func TestDraw(t *testing.T) {
	chart := NewChart("falls", decode(t, monthly))
	chart.Draw(newTestDrawer())
	t.Log(spew.Sdump(chart.Plot.GridPadding))

	plot := chart.Plot
	assert.InDelta(t, defaultPadding.Top+9+defaultLabelHeight, plot.GridPadding.Top, 1e-9,
		"the top data point leaves room for its marker and label")
	assert.InDelta(t, 130.0, plot.GridPadding.Left, 1e-9)
	assert.Equal(t, []string{"2012-12-01", "2013-01-01", "2013-02-01", "2013-03-01", "2013-04-01"}, chart.Keys())
	assert.Equal(t, chart.Keys(), chart.categories())

	require.NotNil(t, chart.Legend)
	assert.True(t, chart.Legend.Packed)
	assert.Len(t, chart.Legend.Headings, 5)

	t.Run("redraw starts from a fresh plot", func(t *testing.T) {
		top := plot.GridPadding.Top
		chart.Draw(newTestDrawer())
		assert.InDelta(t, top, chart.Plot.GridPadding.Top, 1e-9)
	})

	t.Run("values are aligned to ticks", func(t *testing.T) {
		assert.Equal(t, []any{emptyValue, 3.0, emptyValue, 1.0, emptyValue}, chart.values(chart.Plot.Series[1]))
	})
}

func TestUnalignedDates(t *testing.T) {
	t.Run("month ends", func(t *testing.T) {
		chart := NewChart("ends", decode(t, `{"x_axis_type": "date", "series": [{"title": "A", "data": [
			["2013-01-31", {"value": 1}],
			["2013-02-28", {"value": 2}],
			["2013-03-31", {"value": 3}],
			["2013-04-30", {"value": 4}]
		]}]}`))
		chart.Draw(newTestDrawer())

		assert.Equal(t, []string{"2012-12-31", "2013-01-31", "2013-02-28", "2013-03-31", "2013-04-30", "2013-05-31"}, chart.Keys())
		assert.Equal(t, []any{emptyValue, 1.0, 2.0, 3.0, 4.0, emptyValue}, chart.values(chart.Plot.Series[0]))
	})

	t.Run("dates within periods", func(t *testing.T) {
		chart := NewChart("mid", decode(t, `{"x_axis_type": "date", "start": "2013-01-01", "legend_placement": "tabular", "series": [{"title": "A", "data": [
			["2013-01-15", {"value": 1}],
			["2013-02-15", {"value": null}],
			["2013-03-15", {"value": 3}]
		]}]}`))
		chart.Draw(newTestDrawer())

		assert.Equal(t, []string{"2012-12-01", "2013-01-01", "2013-02-01", "2013-03-01", "2013-04-01"}, chart.Keys())
		assert.Equal(t, []any{emptyValue, 1.0, emptyValue, 3.0, emptyValue}, chart.values(chart.Plot.Series[0]))
		assert.Equal(t, [][]string{{"", "2013-01-15", "", "2013-03-15", ""}}, chart.PointKeys(),
			"clicks resolve to the date of the data point")

		require.NotNil(t, chart.Legend)
		assert.Equal(t, "1.0", chart.Legend.Rows[0].Cells[1].Text)
		assert.Equal(t, "3.0", chart.Legend.Rows[0].Cells[3].Text)
	})

	t.Run("points before an explicit start are off the axis", func(t *testing.T) {
		chart := NewChart("late", decode(t, `{"x_axis_type": "date", "start": "2013-02-01", "series": [{"title": "A", "data": [
			["2012-11-01", {"value": 1}],
			["2013-02-01", {"value": 2}]
		]}]}`))
		chart.Draw(newTestDrawer())

		assert.Equal(t, []any{emptyValue, 2.0, emptyValue}, chart.values(chart.Plot.Series[0]))
	})
}

func TestStackedChart(t *testing.T) {
	chart := NewChart("staffing", decode(t, stacked))
	chart.Draw(newTestDrawer())
	plot := chart.Plot

	assert.False(t, plot.HasClass(hooks.ClassFitMarkers))
	assert.Equal(t, pipeline.LegendDefault, plot.Legend)
	assert.InDelta(t, 120.0, plot.GridPadding.Right, 1e-9, "east legends take room on the right")
	assert.Nil(t, chart.Legend)
	assert.Equal(t, []string{"east", "west"}, chart.Keys())

	assert.InDelta(t, 0.0, plot.YAxis.Min, 1e-9)
	assert.InDelta(t, 12.0, plot.YAxis.Max, 1e-9, "the goal is above the largest stack")

	label := chart.labelOpts(1)
	assert.Contains(t, label.Formatter, "function")
	assert.Equal(t, "#333333", label.BackgroundColor)
	assert.Equal(t, "white", label.Color)

	legendOpts := chart.legendOpts()
	assert.Equal(t, "right", legendOpts.X)
	assert.Equal(t, "top", legendOpts.Y)

	assert.Len(t, chart.goalOpts(0), 2)
	assert.Empty(t, chart.goalOpts(1))
}

func TestLegendKind(t *testing.T) {
	two := `{"legend_placement": %q, "series": [
		{"title": "a", "data": [["x", {"value": 1}]]},
		{"title": "b", "data": [["x", {"value": 2}]]}
	]}`
	one := `{"legend_placement": %q, "series": [{"title": "a", "data": [["x", {"value": 1}]]}]}`

	tests := []struct {
		name      string
		js        string
		placement string
		want      pipeline.Legend
	}{
		{"tabular", one, "tabular", pipeline.LegendTabular},
		{"none", two, "none", pipeline.LegendNone},
		{"single series", one, "outside", pipeline.LegendNone},
		{"several series", two, "inside", pipeline.LegendDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decode(t, strings.Replace(tt.js, "%q", `"`+tt.placement+`"`, 1))
			assert.Equal(t, tt.want, legendKind(d, optionsWithDefaults(nil)))
		})
	}
}

func TestDimension(t *testing.T) {
	assert.InDelta(t, 800.0, dimension(800, "px", 600), 1e-9)
	assert.InDelta(t, 800.0, dimension(800, "", 600), 1e-9)
	assert.InDelta(t, 600.0, dimension(80, "%", 600), 1e-9)
	assert.InDelta(t, 600.0, dimension(0, "", 600), 1e-9)
}

func TestYAxis(t *testing.T) {
	t.Run("explicit range", func(t *testing.T) {
		d := decode(t, `{"range_min": -5, "range_max": 50, "series": [{"title": "a", "data": [["x", {"value": 1}]]}]}`)
		axis := yAxis(d, 0.1)
		assert.InDelta(t, -5.0, axis.Min, 1e-9)
		assert.InDelta(t, 50.0, axis.Max, 1e-9)
	})

	t.Run("padded extent", func(t *testing.T) {
		d := decode(t, `{"series": [{"title": "a", "data": [["x", {"value": 10}], ["y", {"value": 20}]]}]}`)
		axis := yAxis(d, 0.1)
		assert.InDelta(t, 9.0, axis.Min, 1e-9)
		assert.InDelta(t, 21.0, axis.Max, 1e-9)
		assert.InDelta(t, 12.0, axis.Ticks[1].Value, 1e-9)
	})

	t.Run("no data", func(t *testing.T) {
		d := decode(t, `{"series": []}`)
		axis := yAxis(d, 0)
		assert.InDelta(t, 0.0, axis.Min, 1e-9)
		assert.InDelta(t, 1.0, axis.Max, 1e-9)
	})
}

func TestBarCategoryGap(t *testing.T) {
	assert.Equal(t, "50%", gapPercent(20, 40))
	assert.Equal(t, "0%", gapPercent(50, 40))
	assert.Equal(t, "90%", gapPercent(1, 100))
	assert.Empty(t, gapPercent(1, 0))

	chart := NewChart("staffing", decode(t, stacked))
	// 0.8*600/3/3 = 53.3 clamped to 32, times 2 stacked series, over 2 bands of (600-60-120)/2 px
	assert.Equal(t, "70%", chart.barCategoryGap())
}

func TestSymbolFor(t *testing.T) {
	assert.Equal(t, "rect", symbolFor("square"))
	assert.Equal(t, "rect", symbolFor(""))
	assert.Equal(t, "circle", symbolFor("filledCircle"))
	assert.Equal(t, "diamond", symbolFor("diamond"))
	assert.Equal(t, "emptyCircle", symbolFor("x"))
}

func TestLegendPosition(t *testing.T) {
	x, y, orient := legendPosition("s")
	assert.Equal(t, []string{"center", "bottom", "horizontal"}, []string{x, y, orient})

	x, y, orient = legendPosition("")
	assert.Equal(t, []string{"right", "center", "vertical"}, []string{x, y, orient})
}

func TestLabelFormatter(t *testing.T) {
	js := labelFormatter("%.2f%%")
	assert.Contains(t, js, "v.toFixed(2)")
	assert.Contains(t, js, `"" + v.toFixed(2) + "%"`)

	assert.Contains(t, labelFormatter(""), "v.toFixed(1)")
	assert.Contains(t, labelFormatter("%s"), "String(v)")
}

func TestFitTrend(t *testing.T) {
	fit, ok := fitTrend([]pipeline.Point{{X: 0, Y: 1}, {X: 1, Y: 3}, {X: 1.5, Null: true}, {X: 2, Y: 5}})
	require.True(t, ok)
	assert.InDelta(t, 2.0, fit.Slope, 1e-9)
	assert.InDelta(t, 1.0, fit.Intercept, 1e-9)
	assert.InDelta(t, 7.0, fit.At(3), 1e-9)

	_, ok = fitTrend([]pipeline.Point{{X: 1, Y: 1}})
	assert.False(t, ok)

	_, ok = fitTrend([]pipeline.Point{{X: 1, Y: 1}, {X: 1, Y: 2}})
	assert.False(t, ok)
}

func TestEChartsID(t *testing.T) {
	chart := NewChart("chart-1.a", decode(t, monthly))
	assert.Equal(t, "echarts_chart_1_a", chart.EChartsID())
}

// helpers

type testDrawer struct {
	p *pipeline.Pipeline
}

func newTestDrawer() testDrawer {
	p := pipeline.New()
	hooks.NewInstaller(nil).Install(p)

	return testDrawer{p: p}
}

func (d testDrawer) Draw(plot *pipeline.Plot) {
	d.p.Draw(plot)
}

func mustLoadDefaults(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.LoadDefaults()
	require.NoError(t, err)

	return cfg
}

func decode(t *testing.T, js string) model.ChartDescriptor {
	t.Helper()

	var d model.ChartDescriptor
	require.NoError(t, json.Unmarshal([]byte(js), &d))

	return d
}
