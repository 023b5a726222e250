package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ClassChartDiv marks chart containers.
const ClassChartDiv = "chartdiv"

// Document is a parsed HTML page.
type Document struct {
	root *html.Node
}

// Parse parses an HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	return &Document{root: root}, nil
}

// NewDocument returns an empty page.
func NewDocument() *Document {
	doc, _ := Parse(strings.NewReader("<!DOCTYPE html><html><head></head><body></body></html>"))

	return doc
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Head returns the head element.
func (d *Document) Head() *html.Node {
	return First(d.root, IsElement(atom.Head))
}

// Body returns the body element.
func (d *Document) Body() *html.Node {
	return First(d.root, IsElement(atom.Body))
}

// ByID returns the element with the given id, or nil.
func (d *Document) ByID(id string) *html.Node {
	return First(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := AttrValue(n, "id")

		return ok && v == id
	})
}

// FindAll returns the nodes of the document matching the predicate.
func (d *Document) FindAll(pred func(*html.Node) bool) []*html.Node {
	return FindAll(d.root, pred)
}

// ByClass returns the elements carrying a css class.
func (d *Document) ByClass(class string) []*html.Node {
	return d.FindAll(func(n *html.Node) bool {
		return n.Type == html.ElementNode && HasClass(n, class)
	})
}

// ChartDivs returns the chart containers of the page.
func (d *Document) ChartDivs() []ChartDiv {
	divs := make([]ChartDiv, 0)

	for _, n := range d.ByClass(ClassChartDiv) {
		id, ok := AttrValue(n, "id")
		if !ok || id == "" {
			continue
		}

		link := First(n, IsAPILink)
		if link == nil {
			continue
		}

		href, _ := AttrValue(link, "href")
		if href == "" {
			continue
		}

		divs = append(divs, ChartDiv{ID: id, API: href})
	}

	return divs
}

// Render writes the page.
func (d *Document) Render(w io.Writer) error {
	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("rendering document: %w", err)
	}

	return nil
}
