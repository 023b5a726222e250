package thumbnail

import (
	"bytes"
	"encoding/json"
	"image/png"
	"testing"

	"github.com/fredbi/chartviz/internal/pkg/chart"
	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/hooks"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/pipeline"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

const monthly = `{
	"title": "Falls",
	"x_axis_type": "date",
	"goal": 3,
	"series": [
		{"title": "North", "data": [
			["2013-01-01", {"value": 1}],
			["2013-02-01", {"value": 2.5}],
			["2013-03-01", {"value": 4}]
		]},
		{"title": "South", "line_width": 4, "data": [
			["2013-01-01", {"value": 3}],
			["2013-02-01", {"value": null}],
			["2013-03-01", {"value": 1}]
		]}
	]
}`

const stacked = `{
	"title": "Staffing",
	"chart_type": "stacked",
	"series": [
		{"title": "Day", "data": [["east", {"value": 4}], ["west", {"value": 6}]]},
		{"title": "Night", "color": "#333333", "data": [["east", {"value": 3}], ["west", {"value": 2}]]}
	]
}`

const bars = `{
	"title": "Staffing",
	"chart_type": "bar",
	"series": [
		{"title": "Day", "data": [["east", {"value": 4}], ["west", {"value": 6}]]},
		{"title": "Night", "data": [["east", {"value": 3}], ["west", {"value": null}]]}
	]
}`

func TestRenderPNG(t *testing.T) {
	builder := newBuilder(t)
	r := New()

	for name, raw := range map[string]string{
		"line chart":    monthly,
		"stacked chart": stacked,
		"bar chart":     bars,
	} {
		t.Run(name, func(t *testing.T) {
			c := builder.Build("chart", mustDecode(t, raw))
			require.NotNil(t, c)

			var buf bytes.Buffer
			require.NoError(t, r.Render(&buf, c))

			img, err := png.Decode(&buf)
			require.NoError(t, err)
			assert.Positive(t, img.Bounds().Dx())
			assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
		})
	}
}

func TestRenderSVG(t *testing.T) {
	c := newBuilder(t).Build("falls", mustDecode(t, monthly))
	require.NotNil(t, c)

	var buf bytes.Buffer
	require.NoError(t, New(WithFormat(FormatSVG), WithScale(0.5)).Render(&buf, c))
	assert.Contains(t, buf.String(), "<svg")
}

func TestUnsupportedFormat(t *testing.T) {
	c := newBuilder(t).Build("falls", mustDecode(t, monthly))
	require.NotNil(t, c)

	var buf bytes.Buffer
	require.Error(t, New(WithFormat("bmp")).Render(&buf, c))
}

func TestTickMarker(t *testing.T) {
	axis := pipeline.Axis{Ticks: []pipeline.Tick{{Value: 0, Label: "east"}, {Value: 1, Label: "west"}}}

	ticks := tickMarker(axis)
	require.Len(t, ticks, 2)
	assert.EqualT(t, "west", ticks[1].Label)
}

func TestSegments(t *testing.T) {
	data := []pipeline.Point{{X: 0, Y: 1}, {X: 1, Null: true}, {X: 2, Y: 3}, {X: 3, Y: 4}, {X: 4, Null: true}}

	broken := segments(data, true)
	require.Len(t, broken, 2, "nulls break the line")
	assert.Len(t, broken[0], 1)
	assert.Len(t, broken[1], 2)

	joined := segments(data, false)
	require.Len(t, joined, 1, "nulls are skipped")
	assert.Len(t, joined[0], 3)

	assert.Empty(t, segments([]pipeline.Point{{Null: true}}, true))
}

func TestBarWidth(t *testing.T) {
	builder := newBuilder(t)

	for name, raw := range map[string]string{
		"grouped": bars,
		"stacked": stacked,
	} {
		t.Run(name, func(t *testing.T) {
			c := builder.Build("chart", mustDecode(t, raw))
			require.NotNil(t, c)

			isStacked := c.Descriptor.Type() == model.ChartStacked
			expected := c.BarBounds.BarWidth(c.Plot.Width, 2, 2, isStacked)

			assert.InDelta(t, expected, New().barWidth(c, isStacked), 1e-9)
			assert.InDelta(t, expected/2, New(WithScale(0.5)).barWidth(c, isStacked), 1e-9)
		})
	}
}

func TestParseColor(t *testing.T) {
	r, g, b, _ := parseColor("#4bb2c5").RGBA()
	assert.EqualT(t, uint32(0x4b4b), r)
	assert.EqualT(t, uint32(0xb2b2), g)
	assert.EqualT(t, uint32(0xc5c5), b)

	r, _, _, _ = parseColor("not a color").RGBA()
	assert.EqualT(t, uint32(0), r)
}

type testDrawer struct {
	p *pipeline.Pipeline
}

func (d testDrawer) Draw(plot *pipeline.Plot) {
	d.p.Draw(plot)
}

func newBuilder(t *testing.T) *chart.Builder {
	t.Helper()

	cfg, err := config.LoadDefaults()
	require.NoError(t, err)

	p := pipeline.New()
	hooks.NewInstaller(nil).Install(p)

	return chart.New(cfg, testDrawer{p: p})
}

func mustDecode(t *testing.T, raw string) model.ChartDescriptor {
	t.Helper()

	var d model.ChartDescriptor
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	return d
}
