// Package dom builds and inspects HTML trees with golang.org/x/net/html.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr builds an attribute.
func Attr(key, value string) html.Attribute {
	return html.Attribute{Key: key, Val: value}
}

// Element builds an element node.
func Element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

// Text builds a text node.
func Text(s string) *html.Node {
	return &html.Node{
		Type: html.TextNode,
		Data: s,
	}
}

// Append appends children to a parent node, and returns the parent.
func Append(parent *html.Node, children ...*html.Node) *html.Node {
	for _, child := range children {
		if child == nil {
			continue
		}
		parent.AppendChild(child)
	}

	return parent
}

// AttrValue returns the value of an attribute.
func AttrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

// SetAttr sets an attribute, replacing any previous value.
func SetAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value

			return
		}
	}

	n.Attr = append(n.Attr, Attr(key, value))
}

// HasClass tells if an element carries a css class.
func HasClass(n *html.Node, class string) bool {
	classes, ok := AttrValue(n, "class")
	if !ok {
		return false
	}

	return slices.Contains(strings.Fields(classes), class)
}

// AddClass adds a css class to an element, once.
func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}

	classes, _ := AttrValue(n, "class")
	SetAttr(n, "class", strings.TrimSpace(classes+" "+class))
}

// Style builds an inline style declaration from property/value pairs, in order.
func Style(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s: %s;", pairs[i], pairs[i+1])
	}

	return b.String()
}

// IsElement returns a predicate matching elements of the given kind.
func IsElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

// FindAll returns all nodes under n (n included) matching the predicate, in document order.
func FindAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var found []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if pred(node) {
			found = append(found, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return found
}

// First returns the first node under n matching the predicate, or nil.
func First(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := First(c, pred); found != nil {
			return found
		}
	}

	return nil
}

// TextContent concatenates all text under n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	for _, t := range FindAll(n, func(node *html.Node) bool { return node.Type == html.TextNode }) {
		b.WriteString(t.Data)
	}

	return b.String()
}

// InsertAfter inserts n as the next sibling of ref.
func InsertAfter(ref, n *html.Node) {
	if ref.Parent == nil {
		return
	}

	if ref.NextSibling == nil {
		ref.Parent.AppendChild(n)

		return
	}

	ref.Parent.InsertBefore(n, ref.NextSibling)
}

// Remove detaches n from its parent. It is a no-op for detached nodes.
func Remove(n *html.Node) {
	if n.Parent == nil {
		return
	}

	n.Parent.RemoveChild(n)
}

// Render renders a node as an HTML string.
func Render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}

	return buf.String(), nil
}

// ChartDiv is a chart container found in a page.
type ChartDiv struct {
	ID  string
	API string // url of the chart JSON data
}

// FindChartDivs parses a page and returns its chart containers: the elements with class
// "chartdiv", along with the href of their embedded anchor a[rel=api][type=application/json].
//
// Containers without an id or without an api link are ignored.
func FindChartDivs(r io.Reader) ([]ChartDiv, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, err
	}

	return doc.ChartDivs(), nil
}

// IsAPILink matches the anchor pointing at the JSON data of a chart.
func IsAPILink(n *html.Node) bool {
	if !IsElement(atom.A)(n) {
		return false
	}

	rel, _ := AttrValue(n, "rel")
	typ, _ := AttrValue(n, "type")

	return rel == "api" && typ == "application/json"
}
