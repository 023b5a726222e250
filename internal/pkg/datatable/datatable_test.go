package datatable

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fredbi/chartviz/internal/pkg/dom"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

const falls = `{
	"title": "Falls",
	"x_axis_type": "date",
	"series": [
		{"title": "North", "display_format": "%.2f%%", "data": [
			["2013-01-01", {"value": 1, "note": "first"}],
			["2013-02-01", {"value": null}],
			["2013-03-01", {"value": 2.456, "uri": "http://example.com/data"}]
		]},
		{"title": "Empty", "data": []}
	]
}`

const staffing = `{
	"title": "Staffing: day/night",
	"series": [
		{"title": "Day", "display_format": "%d", "data": [["east", {"value": 4.4}], ["west", {"value": 6}]]}
	]
}`

func TestForChart(t *testing.T) {
	tables := ForChart(mustDecode(t, falls))
	require.Len(t, tables, 1)

	north := tables[0]
	assert.EqualT(t, "North", north.Title)
	assert.Equal(t, []string{"date", "value", "note", "uri"}, north.Fields())
	assert.EqualT(t, 2, north.Precision)
	require.Len(t, north.Rows, 3)
	assert.EqualT(t, "2013-01-01", north.Rows[0].Key)
	assert.EqualT(t, "1.00", north.FormatValue(north.Rows[0].Value))
	assert.Empty(t, north.FormatValue(north.Rows[1].Value))
	assert.EqualT(t, "2.46", north.FormatValue(north.Rows[2].Value))
	assert.InDelta(t, 2.46, north.RoundValue(2.456), 1e-9)

	day := ForChart(mustDecode(t, staffing))[0]
	assert.EqualT(t, "name", day.KeyName)
	assert.EqualT(t, 0, day.Precision)
	assert.EqualT(t, "4", day.FormatValue(day.Rows[0].Value))
}

func TestPrecision(t *testing.T) {
	for format, expected := range map[string]int{
		"":       1,
		"%.3f":   3,
		"%d":     0,
		"%s":     1,
		"%f":     6,
		"no fmt": 1,
	} {
		assert.EqualT(t, expected, precision(format), "format %q", format)
	}
}

func TestNode(t *testing.T) {
	node := ForChart(mustDecode(t, falls))[0].Node()

	assert.True(t, dom.HasClass(node, ClassDataTable))
	assert.EqualT(t, "North", dom.TextContent(dom.First(node, dom.IsElement(atom.Caption))))

	headers := dom.FindAll(node, dom.IsElement(atom.Th))
	require.Len(t, headers, 4)
	assert.EqualT(t, "date", dom.TextContent(headers[0]))

	rows := dom.FindAll(dom.First(node, dom.IsElement(atom.Tbody)), dom.IsElement(atom.Tr))
	require.Len(t, rows, 3)

	cells := dom.FindAll(rows[2], dom.IsElement(atom.Td))
	require.Len(t, cells, 4)
	assert.EqualT(t, "2.46", dom.TextContent(cells[1]))
	assert.EqualT(t, "http://example.com/data", dom.TextContent(cells[3]))
}

func TestDocument(t *testing.T) {
	doc := Document(mustDecode(t, falls))

	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))

	parsed, err := html.Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, dom.FindAll(parsed, func(n *html.Node) bool { return dom.HasClass(n, ClassDataTable) }), 1)
	assert.EqualT(t, "Falls", dom.TextContent(dom.First(parsed, dom.IsElement(atom.H2))))
}

func TestWriteWorkbook(t *testing.T) {
	report := model.Report{
		{UID: "falls", Chart: mustDecode(t, falls)},
		{UID: "staffing", Chart: mustDecode(t, staffing)},
		{UID: "again", Chart: mustDecode(t, falls)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, []string{"Falls", "Staffing_ day_night", "Falls (2)"}, f.GetSheetList())

	cell := func(sheet, name string) string {
		t.Helper()

		v, err := f.GetCellValue(sheet, name)
		require.NoError(t, err)

		return v
	}

	assert.EqualT(t, "Falls", cell("Falls", "A1"))
	assert.EqualT(t, "North", cell("Falls", "A3"))
	assert.EqualT(t, "date", cell("Falls", "A4"))
	assert.EqualT(t, "value", cell("Falls", "B4"))
	assert.EqualT(t, "2013-01-01", cell("Falls", "A5"))
	assert.EqualT(t, "1", cell("Falls", "B5"))
	assert.EqualT(t, "first", cell("Falls", "C5"))
	assert.Empty(t, cell("Falls", "B6"))
	assert.EqualT(t, "2.46", cell("Falls", "B7"))

	assert.EqualT(t, "west", cell("Staffing_ day_night", "A6"))
	assert.EqualT(t, "6", cell("Staffing_ day_night", "B6"))
}

func TestSheetName(t *testing.T) {
	taken := make(map[string]struct{})

	assert.EqualT(t, "A very long chart title that is", sheetName("A very long chart title that is truncated", "u1", taken))
	assert.EqualT(t, "A very long chart title tha (2)", sheetName("A very long chart title that is truncated", "u2", taken))
	assert.EqualT(t, "u3", sheetName("  ", "u3", taken))
	assert.EqualT(t, "Chart", sheetName("", "", taken))
}

func mustDecode(t *testing.T, raw string) model.ChartDescriptor {
	t.Helper()

	var d model.ChartDescriptor
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	return d
}
