// Package datatable exposes the data points of chart series as tables: HTML tables for the
// page, and spreadsheet workbooks for download.
package datatable

import (
	"math"
	"strconv"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/dom"
	"github.com/fredbi/chartviz/internal/pkg/legend"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ClassDataTable marks data tables in a page.
const ClassDataTable = "datatable"

const defaultPrecision = 1

// Table holds the data points of a series.
type Table struct {
	Title     string
	KeyName   string // "date" or "name"
	Precision int
	Rows      []Row
}

// Row is a data point.
type Row struct {
	Key   string
	Value model.Value
	Note  string
	URI   string
}

// Fields returns the column names of the table.
func (t Table) Fields() []string {
	return []string{t.KeyName, "value", "note", "uri"}
}

// FormatValue formats a value with the precision of the table. Null values are blank.
func (t Table) FormatValue(v model.Value) string {
	if v.IsNull() {
		return ""
	}

	return strconv.FormatFloat(v.Float, 'f', t.Precision, 64)
}

// RoundValue rounds a value to the precision of the table.
func (t Table) RoundValue(v float64) float64 {
	scale := math.Pow10(t.Precision)

	return math.Round(v*scale) / scale
}

// ForSeries builds the table of a series.
func ForSeries(d model.ChartDescriptor, s model.SeriesDescriptor) Table {
	t := Table{
		Title:     s.Title,
		KeyName:   "name",
		Precision: precision(s.DisplayFormat),
		Rows:      make([]Row, 0, len(s.Data)),
	}

	if d.IsTimeSeries() {
		t.KeyName = "date"
	}

	for _, pair := range s.Data {
		key := pair.Key.Name
		if pair.Key.IsDate() {
			key = pair.Key.Date.Format(time.DateOnly)
		}

		t.Rows = append(t.Rows, Row{
			Key:   key,
			Value: pair.Point.Value,
			Note:  pair.Point.Note,
			URI:   pair.Point.URI,
		})
	}

	return t
}

// ForChart builds the tables of the rendered series of a chart.
func ForChart(d model.ChartDescriptor) []Table {
	rendered := d.Rendered()
	tables := make([]Table, 0, len(rendered))

	for _, s := range rendered {
		tables = append(tables, ForSeries(d, s))
	}

	return tables
}

// Node renders the table as a table.datatable element, captioned with the series title.
func (t Table) Node() *html.Node {
	table := dom.Element(atom.Table, dom.Attr("class", ClassDataTable))
	dom.Append(table, dom.Append(dom.Element(atom.Caption), dom.Text(t.Title)))

	head := dom.Element(atom.Tr)
	for _, field := range t.Fields() {
		dom.Append(head, dom.Append(dom.Element(atom.Th), dom.Text(field)))
	}
	dom.Append(table, dom.Append(dom.Element(atom.Thead), head))

	body := dom.Element(atom.Tbody)
	for _, row := range t.Rows {
		tr := dom.Element(atom.Tr)
		for _, cell := range []string{row.Key, t.FormatValue(row.Value), row.Note, row.URI} {
			dom.Append(tr, dom.Append(dom.Element(atom.Td), dom.Text(cell)))
		}
		dom.Append(body, tr)
	}
	dom.Append(table, body)

	return table
}

// Document renders the tables of a chart as a page.
func Document(d model.ChartDescriptor) *dom.Document {
	doc := dom.NewDocument()
	if head := doc.Head(); head != nil {
		dom.Append(head, dom.Append(dom.Element(atom.Title), dom.Text(d.Title)))
	}

	body := doc.Body()
	dom.Append(body, dom.Append(dom.Element(atom.H2), dom.Text(d.Title)))
	for _, t := range ForChart(d) {
		dom.Append(body, t.Node())
	}

	return doc
}

// precision is the number of decimals of a display format, 1 when the format does not say.
func precision(format string) int {
	if format == "" {
		return defaultPrecision
	}

	if decimals := legend.ParseFormat(format).Decimals(); decimals >= 0 {
		return decimals
	}

	return defaultPrecision
}
