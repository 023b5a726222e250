package legend

import (
	"strconv"
	"sync"

	"github.com/fredbi/chartviz/internal/pkg/dom"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Overlay css classes.
const (
	ClassOverlay      = "tinyOverlay"
	ClassPointOverlay = "pointOverlay"
	overlayStyleIdent = "tinyOverlay"
)

const overlayCSS = `div.tinyOverlay { position:absolute; border-radius:0.4em; border:0.1em solid rgba(0,0,0,0.5); ` +
	`box-shadow:0.1em 0.2em 0.5em #999; background-color:white; padding:0.3em 1em 0.3em 0.3em; }
.olControlBtn { background-color:rgba(255,255,255,0.85); font-weight:bold; font-size:140%; display:block; ` +
	`float:right; width:0.9em; margin-right:-1.1em; margin-top:-0.6em; text-align:center; line-height:100%; border-radius:0.5em; }
.olControlBtn a.close { color:#006; cursor:pointer; text-decoration:none !important; }
`

// Overlay is a floating panel.
type Overlay struct {
	ID      string
	Class   string
	Style   []string // css property/value pairs
	Content *html.Node
	OnClose []func()

	node *html.Node
}

// Node returns the element of an open overlay, or nil.
func (o *Overlay) Node() *html.Node {
	return o.node
}

// Overlays manages the overlays of a document: at most one overlay is open at any time.
type Overlays struct {
	mu      sync.Mutex
	doc     *dom.Document
	current *Overlay
	seq     int
}

// NewOverlays builds an overlay manager over a document.
func NewOverlays(doc *dom.Document) *Overlays {
	return &Overlays{doc: doc}
}

// Document returns the managed document.
func (m *Overlays) Document() *dom.Document {
	return m.doc
}

// Open closes any open overlay, then appends the overlay to the body of the document.
func (m *Overlays) Open(o *Overlay) *html.Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()
	m.ensureStyle()

	if o.ID == "" {
		m.seq++
		o.ID = "overlay-" + strconv.Itoa(m.seq)
	}

	div := dom.Element(atom.Div, dom.Attr("id", o.ID), dom.Attr("class", ClassOverlay))
	if o.Class != "" {
		dom.AddClass(div, o.Class)
	}
	if len(o.Style) > 0 {
		dom.SetAttr(div, "style", dom.Style(o.Style...))
	}

	control := dom.Append(
		dom.Element(atom.Div, dom.Attr("class", "olControl")),
		dom.Append(
			dom.Element(atom.Span, dom.Attr("class", "olControlBtn")),
			dom.Append(dom.Element(atom.A, dom.Attr("class", "close"), dom.Attr("title", "close")), dom.Text("×")),
		),
	)
	if o.Content != nil {
		dom.Remove(o.Content)
	}
	inner := dom.Append(dom.Element(atom.Div, dom.Attr("class", "overlayInner")), o.Content)
	dom.Append(div, control, inner)

	if body := m.doc.Body(); body != nil {
		body.AppendChild(div)
	}

	o.node = div
	m.current = o

	return div
}

// Close closes the open overlay: its element is removed and its close callbacks run in order.
//
// It returns false when no overlay is open.
func (m *Overlays) Close() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closeLocked()
}

// Current returns the open overlay, or nil.
func (m *Overlays) Current() *Overlay {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current
}

func (m *Overlays) closeLocked() bool {
	o := m.current
	if o == nil {
		return false
	}

	dom.Remove(o.node)
	if o.Content != nil {
		dom.Remove(o.Content)
	}
	o.node = nil
	m.current = nil

	for _, callback := range o.OnClose {
		callback()
	}

	return true
}

func (m *Overlays) ensureStyle() {
	EnsureStyle(m.doc)
}

// EnsureStyle adds the overlay stylesheet to the head of a document, once.
func EnsureStyle(doc *dom.Document) {
	head := doc.Head()
	if head == nil {
		return
	}

	exists := dom.First(head, func(n *html.Node) bool {
		v, ok := dom.AttrValue(n, "data-ident")

		return ok && v == overlayStyleIdent
	})
	if exists != nil {
		return
	}

	dom.Append(head, dom.Append(dom.Element(atom.Style, dom.Attr("data-ident", overlayStyleIdent)), dom.Text(overlayCSS)))
}

// Overlay placement, relative to the clicked point.
const (
	overlayOffsetX = 244
	overlayOffsetY = 3
	overlayWidth   = 220
	overlayZIndex  = 10000
)

// PointDetail builds the detail overlay of a data point clicked at page coordinates (x, y).
func PointDetail(series model.SeriesDescriptor, point model.Point, color string, x, y float64) *Overlay {
	return &Overlay{
		Class: ClassPointOverlay,
		Style: []string{
			"left", px(x - overlayOffsetX),
			"top", px(y - overlayOffsetY),
			"width", px(overlayWidth),
			"border", "2px solid " + color,
			"z-index", strconv.Itoa(overlayZIndex),
		},
		Content: PointContent(series, point, color),
	}
}

// PointContent renders the detail of a data point: series title, point title, value, note
// and an optional link to the data source.
func PointContent(series model.SeriesDescriptor, point model.Point, color string) *html.Node {
	wrap := dom.Element(atom.Div)

	title := dom.Element(atom.H5, dom.Attr("style", dom.Style("color", color)))
	dom.Append(wrap, dom.Append(title, dom.Text(series.Title)))

	value := "Value: n/a (null)"
	if !point.Value.IsNull() {
		value = "Value: " + FormatValue(series.DisplayFormat, point.Value.Float)
	}

	detail := dom.Append(dom.Element(atom.Dl),
		dom.Append(dom.Element(atom.Dt, dom.Attr("class", "name")), dom.Text(point.Title)),
		dom.Append(dom.Element(atom.Dd, dom.Attr("class", "value")), dom.Text(value)),
	)
	dom.Append(wrap, detail)
	dom.Append(wrap, dom.Append(dom.Element(atom.P, dom.Attr("class", "note")), dom.Text(point.Note)))

	if point.URI != "" {
		link := dom.Element(atom.A, dom.Attr("href", point.URI), dom.Attr("target", "_blank"))
		dom.Append(wrap, dom.Append(link, dom.Text("View data source")))
	}

	return wrap
}
