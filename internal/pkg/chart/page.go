package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fredbi/chartviz/internal/pkg/dom"
	"github.com/fredbi/chartviz/internal/pkg/legend"
	"github.com/go-echarts/go-echarts/v2/components"
	"golang.org/x/net/html/atom"
)

// ErrMissingContainer is returned when a chart cannot be located in the rendered page.
var ErrMissingContainer = errors.New("chart container not found")

// Page represents a page containing multiple charts.
//
// A [Page] knows how to [Page.Render] as HTML.
type Page struct {
	Title  string
	Charts []*Chart

	// OverlayURL is the endpoint serving point details. When set, clicking a data point
	// opens its detail overlay.
	OverlayURL string
}

// NewPage creates a new page with the given title.
func NewPage(title string) *Page {
	return &Page{
		Title: title,
	}
}

// AddChart adds a chart to the page.
func (p *Page) AddChart(c *Chart) {
	p.Charts = append(p.Charts, c)
}

// Render writes the page HTML to the given writer.
//
// Each chart is wrapped in a div.chartdiv container carrying its id, css classes and api
// link, followed by its tabular legend.
func (p *Page) Render(w io.Writer) error {
	doc, err := p.Document()
	if err != nil {
		return err
	}

	return doc.Render(w)
}

// Document renders the page as an HTML document.
func (p *Page) Document() (*dom.Document, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.SetPageTitle(p.Title)

	for _, c := range p.Charts {
		page.AddCharts(c.Build())
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering charts: %w", err)
	}

	doc, err := dom.Parse(&buf)
	if err != nil {
		return nil, err
	}

	for _, c := range p.Charts {
		if err := wrap(doc, c); err != nil {
			return nil, err
		}
	}

	if p.OverlayURL != "" && doc.Body() != nil {
		legend.EnsureStyle(doc)
		dom.Append(doc.Body(), dom.Append(dom.Element(atom.Script), dom.Text(overlayScript(p.OverlayURL))))
	}

	return doc, nil
}

func wrap(doc *dom.Document, c *Chart) error {
	target := doc.ByID(c.EChartsID())
	if target == nil {
		return fmt.Errorf("chart %q: %w", c.ID, ErrMissingContainer)
	}

	container := target
	if parent := target.Parent; parent != nil && dom.HasClass(parent, "container") {
		container = parent
	}

	keys, err := json.Marshal(c.PointKeys())
	if err != nil {
		return fmt.Errorf("chart %q: encoding keys: %w", c.ID, err)
	}

	div := dom.Element(atom.Div,
		dom.Attr("id", c.ID),
		dom.Attr("class", dom.ClassChartDiv),
		dom.Attr("data-echarts-id", c.EChartsID()),
		dom.Attr("data-keys", string(keys)),
	)
	for _, class := range c.Plot.Classes {
		dom.AddClass(div, class)
	}
	if css := c.Descriptor.CSS; css != "" {
		dom.SetAttr(div, "style", css)
	}

	if c.API != "" {
		link := dom.Element(atom.A,
			dom.Attr("rel", "api"),
			dom.Attr("type", "application/json"),
			dom.Attr("href", c.API),
			dom.Attr("style", dom.Style("display", "none")),
		)
		dom.Append(div, link)
	}

	dom.InsertAfter(container, div)
	dom.Remove(container)
	dom.Append(div, container)

	if c.Legend != nil {
		dom.Append(div, c.Legend.Node())
	}

	return nil
}
