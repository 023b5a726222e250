// Package legend renders the auxiliary HTML of a chart: the tabular legend and the
// detail overlays of data points.
package legend

import (
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/dom"
	"github.com/fredbi/chartviz/internal/pkg/layout"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/normalizer"
	"github.com/fredbi/chartviz/internal/pkg/pipeline"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Legend table css classes and styles.
const (
	ClassTable    = "tabular-legend"
	ClassHeadings = "legend-headings"
	ClassKeyCell  = "keycell"
	ClassValue    = "value"
	ClassKey      = "legendkey"

	Absent        = "--"
	KeyCellWidth  = 125.0
	ValueOpacity  = 0.45
	valueColor    = "#444"
	absentColor   = "#bbb"
	fillerContent = "\u00a0" // nbsp
)

// Heading is a column of the legend.
type Heading struct {
	Key      model.Key
	Title    string
	Filler   bool    // column added for an axis tick without data
	Width    float64 // in px, set by [Table.Pack]
	FontSize float64 // in px, set by [Table.Pack]
}

// Cell is a value cell of the legend.
type Cell struct {
	Text       string
	Absent     bool
	Background string
	Color      string
}

// Row is the legend of a series.
type Row struct {
	Label      string
	Color      string
	KeyColor   string // text color of the key cell
	Cells      []Cell
	Background string // background of the value cells

	values map[string]Cell
}

// Table is a tabular legend: one column per x-axis key, one row per series.
type Table struct {
	Headings []Heading
	Rows     []Row
	GridLeft float64 // left offset of the first column, in px
	FontSize float64
	Packed   bool
}

// NewTable builds the legend of a chart from its rendered series and their colors.
//
// Columns merge the keys of all series, in chronological order on date axes.
// Headings are the custom labels of keys when available, the ISO date of date keys,
// or the category name.
func NewTable(d model.ChartDescriptor, colors []string, labels layout.Labels) *Table {
	keys := normalizer.UniqueKeys(d)
	if d.IsTimeSeries() {
		slices.SortStableFunc(keys, func(a, b model.Key) int {
			return a.Date.Compare(b.Date)
		})
	}

	t := &Table{
		Headings: make([]Heading, 0, len(keys)),
		FontSize: layout.MaxFontSize,
	}

	for _, key := range keys {
		t.Headings = append(t.Headings, Heading{Key: key, Title: headingTitle(key, labels)})
	}

	options := normalizer.SeriesOptions(d)
	for i, s := range d.Rendered() {
		color := colorAt(colors, i)
		row := Row{
			Label:      options[i].Label,
			Color:      color,
			KeyColor:   TextColor(color),
			Background: RGBACSS(color, ValueOpacity),
			values:     make(map[string]Cell, len(s.Data)),
		}

		for _, pair := range s.Data {
			if pair.Point.Value.IsNull() {
				continue
			}

			row.values[pair.Key.Ident()] = Cell{
				Text:       FormatValue(options[i].ValueFormat(), pair.Point.Value.Float),
				Background: row.Background,
				Color:      valueColor,
			}
		}

		for _, h := range t.Headings {
			row.Cells = append(row.Cells, row.cell(h.Key))
		}

		t.Rows = append(t.Rows, row)
	}

	return t
}

func (r Row) cell(key model.Key) Cell {
	if c, ok := r.values[key.Ident()]; ok {
		return c
	}

	return Cell{
		Text:       Absent,
		Absent:     true,
		Background: r.Background,
		Color:      absentColor,
	}
}

func headingTitle(key model.Key, labels layout.Labels) string {
	if label, ok := labels[key.Ident()]; ok {
		return label
	}

	if key.IsDate() {
		return key.Date.Format(time.DateOnly)
	}

	return key.Name
}

func colorAt(colors []string, i int) string {
	if len(colors) == 0 {
		return "#000000"
	}

	return colors[i%len(colors)]
}

// Pack reconciles the columns with the x-axis ticks, once the axis is drawn.
//
// Columns follow the order of the ticks. On date axes a column goes to the tick of its period,
// and columns sharing a tick are merged, keeping the latest value. Ticks without data get a filler
// column, and columns outside of the axis are dropped. Each column is sized to the cell of
// its tick (see [layout.CellDimensions]) and the font size is shrunk to fit the cell contents.
func (t *Table) Pack(plot *pipeline.Plot) {
	l := slog.Default().With(slog.String("module", "legend"))
	ticks := plot.XAxis.Ticks
	gridWidth := plot.GridWidth()

	columns := make([][]int, len(ticks)) // indexes of the original columns at each tick
	var dropped int
	for i, h := range t.Headings {
		j, ok := plot.XAxis.KeyIndex(h.Key)
		if !ok {
			dropped++

			continue
		}
		columns[j] = append(columns[j], i)
	}

	if dropped > 0 {
		l.Warn("legend columns outside of the x-axis dropped", slog.String("plot_id", plot.ID), slog.Int("columns", dropped))
	}

	headings := make([]Heading, 0, len(ticks))
	for j, tick := range ticks {
		if len(columns[j]) == 0 {
			headings = append(headings, Heading{Key: tick.Key, Title: fillerContent, Filler: true})

			continue
		}

		headings = append(headings, t.Headings[columns[j][0]])
	}

	for r := range t.Rows {
		row := &t.Rows[r]
		cells := make([]Cell, 0, len(columns))
		for _, merged := range columns {
			if len(merged) == 0 {
				cells = append(cells, Cell{Text: fillerContent, Background: row.Background, Color: valueColor})

				continue
			}

			cell := row.Cells[merged[0]]
			for _, c := range merged[1:] {
				if !row.Cells[c].Absent {
					cell = row.Cells[c]
				}
			}
			cells = append(cells, cell)
		}
		row.Cells = cells
	}

	cellWidth := gridWidth
	if len(ticks) > 1 {
		cellWidth = gridWidth / float64(len(ticks)-1)
	}
	t.FontSize = layout.BaseFontSize(cellWidth)

	dims := layout.CellDimensions(pipeline.Positions(plot), 0, gridWidth)
	for i := range headings {
		if i >= len(dims) {
			break
		}

		h := &headings[i]
		h.Width = dims[i].Width
		h.FontSize = layout.AutofitFontSize(h.Title, t.FontSize, h.Width)

		for _, row := range t.Rows {
			h.FontSize = min(h.FontSize, layout.AutofitFontSize(row.Cells[i].Text, t.FontSize, h.Width))
		}
	}

	t.Headings = headings
	t.GridLeft = plot.GridPadding.Left
	t.Packed = true
}

// Width is the total width of the value columns.
func (t *Table) Width() float64 {
	var width float64
	for _, h := range t.Headings {
		width += h.Width
	}

	return width
}

// Node renders the legend as a table.tabular-legend element.
func (t *Table) Node() *html.Node {
	tableStyle := []string{"table-layout", "fixed", "border-collapse", "collapse"}
	if t.Packed {
		tableStyle = append(tableStyle,
			"width", px(KeyCellWidth+t.Width()),
			"margin-left", px(t.GridLeft-KeyCellWidth),
		)
	}

	table := dom.Element(atom.Table,
		dom.Attr("class", ClassTable),
		dom.Attr("style", dom.Style(tableStyle...)),
	)

	headingRow := dom.Element(atom.Tr, dom.Attr("class", ClassHeadings))
	dom.Append(headingRow, dom.Append(
		dom.Element(atom.Th, dom.Attr("class", ClassKeyCell), dom.Attr("style", dom.Style("width", px(KeyCellWidth)))),
		dom.Text(fillerContent),
	))

	for _, h := range t.Headings {
		th := dom.Element(atom.Th,
			dom.Attr("data-key", h.Key.Name),
			dom.Attr("style", dom.Style(t.sizing(h)...)),
		)
		dom.Append(headingRow, dom.Append(th, dom.Text(h.Title)))
	}
	dom.Append(table, headingRow)

	for _, row := range t.Rows {
		tr := dom.Element(atom.Tr)
		key := dom.Element(atom.Td,
			dom.Attr("class", ClassKeyCell),
			dom.Attr("style", dom.Style("background-color", row.Color, "color", row.KeyColor)),
		)
		dom.Append(key, dom.Append(dom.Element(atom.Div, dom.Attr("class", ClassKey)), dom.Text(row.Label)))
		dom.Append(tr, key)

		for i, c := range row.Cells {
			style := []string{"background-color", c.Background, "color", c.Color}
			if i < len(t.Headings) {
				style = append(style, t.sizing(t.Headings[i])...)
			}

			td := dom.Element(atom.Td, dom.Attr("class", ClassValue), dom.Attr("style", dom.Style(style...)))
			dom.Append(tr, dom.Append(td, dom.Text(c.Text)))
		}

		dom.Append(table, tr)
	}

	return table
}

func (t *Table) sizing(h Heading) []string {
	if !t.Packed {
		return nil
	}

	return []string{"width", px(h.Width), "font-size", px(h.FontSize)}
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "px"
}
