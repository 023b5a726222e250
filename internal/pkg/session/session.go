// Package session holds the state of a chart page: the cached descriptors of its charts,
// their custom labels, the drawing pipeline and the detail overlays.
//
// A [Session] is scoped to a single page or report. Hooks are installed on its pipeline on the
// first draw and remain for the lifetime of the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/chart"
	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/dom"
	"github.com/fredbi/chartviz/internal/pkg/hooks"
	"github.com/fredbi/chartviz/internal/pkg/layout"
	"github.com/fredbi/chartviz/internal/pkg/legend"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/normalizer"
	"github.com/fredbi/chartviz/internal/pkg/pipeline"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentLoads = 8

// Session errors.
var (
	ErrUnknownChart = errors.New("unknown chart")
	ErrUnknownPoint = errors.New("unknown data point")
	ErrNoFetcher    = errors.New("no fetcher configured")
)

// Fetcher retrieves the descriptor of a chart from its JSON API URL.
type Fetcher interface {
	Chart(ctx context.Context, url string) (model.ChartDescriptor, error)
}

type entry struct {
	api        string
	descriptor model.ChartDescriptor
	labels     layout.Labels
	maxKey     time.Time
}

// Session is the drawing context of a page.
//
// It is safe for concurrent use: draws are serialized on the session pipeline.
type Session struct {
	options

	cfg *config.Config

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	drawMu    sync.Mutex
	pipeline  *pipeline.Pipeline
	installer *hooks.Installer

	timerMu sync.Mutex
	timer   *time.Timer

	overlays *legend.Overlays
	builder  *chart.Builder
	l        *slog.Logger
}

// New builds a [Session] for a page.
func New(cfg *config.Config, opts ...Option) *Session {
	s := &Session{
		options:  optionsWithDefaults(opts),
		cfg:      cfg,
		entries:  make(map[string]*entry),
		pipeline: pipeline.New(),
		l:        slog.Default().With(slog.String("module", "session")),
	}

	s.installer = hooks.NewInstaller(s.labels)
	s.overlays = legend.NewOverlays(s.Document)
	s.builder = chart.New(cfg, s)

	return s
}

// Draw runs the layout pipeline on a plot. Hooks are installed on the first draw.
func (s *Session) Draw(plot *pipeline.Plot) {
	s.installer.Install(s.pipeline)

	s.drawMu.Lock()
	defer s.drawMu.Unlock()

	s.pipeline.Draw(plot)
}

// Put stores the descriptor of a chart, replacing any cached one.
func (s *Session) Put(id, api string, d model.ChartDescriptor) {
	e := &entry{
		api:        api,
		descriptor: d,
		labels:     layout.ParseLabels(d.Labels),
		maxKey:     maxDate(d),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists {
		s.order = append(s.order, id)
	}
	s.entries[id] = e
}

// Load returns the descriptor of a chart, fetching it from its API URL on a cache miss.
func (s *Session) Load(ctx context.Context, id, api string) (model.ChartDescriptor, error) {
	if d, ok := s.Descriptor(id); ok {
		return d, nil
	}

	if s.Fetcher == nil {
		return model.ChartDescriptor{}, fmt.Errorf("chart %q: %w", id, ErrNoFetcher)
	}

	d, err := s.Fetcher.Chart(ctx, api)
	if err != nil {
		return model.ChartDescriptor{}, fmt.Errorf("loading chart %q: %w", id, err)
	}

	s.Put(id, api, d)
	s.l.Info("loaded chart", slog.String("chart_id", id), slog.String("api", api))

	return d, nil
}

// LoadPage loads the charts of every chart container found in a page.
//
// Charts that fail to load are logged and left out. It returns the ids of the loaded charts,
// in page order.
func (s *Session) LoadPage(ctx context.Context, r io.Reader) ([]string, error) {
	divs, err := dom.FindChartDivs(r)
	if err != nil {
		return nil, err
	}

	loaded := make([]bool, len(divs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)

	for i, div := range divs {
		g.Go(func() error {
			if _, err := s.Load(gctx, div.ID, div.API); err != nil {
				s.l.Warn("chart not loaded", slog.String("chart_id", div.ID), slog.String("error", err.Error()))

				return nil
			}
			loaded[i] = true

			return nil
		})
	}

	_ = g.Wait()

	ids := make([]string, 0, len(divs))
	for i, div := range divs {
		if loaded[i] {
			ids = append(ids, div.ID)
		}
	}

	return ids, nil
}

// Descriptor returns the cached descriptor of a chart.
func (s *Session) Descriptor(id string) (model.ChartDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return model.ChartDescriptor{}, false
	}

	return e.descriptor, true
}

// IDs returns the ids of the cached charts, in insertion order.
func (s *Session) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.order)
}

// Chart draws a cached chart. It returns nil when the chart has no data to render.
func (s *Session) Chart(id string, opts ...chart.Option) (*chart.Chart, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("chart %q: %w", id, ErrUnknownChart)
	}

	return s.builder.Build(id, e.descriptor, append([]chart.Option{chart.WithAPI(e.api)}, opts...)...), nil
}

// Page draws all cached charts on a page.
func (s *Session) Page(title string, opts ...chart.Option) *chart.Page {
	page := chart.NewPage(title)

	for _, id := range s.IDs() {
		c, err := s.Chart(id, opts...)
		if err != nil || c == nil {
			continue
		}

		page.AddChart(c)
	}

	return page
}

// Resize requests a redraw of the page at a new default chart width.
//
// Requests are debounced: only the last request of a burst fires, once the session has been
// quiet for the debounce period. The page is drawn from cached descriptors.
func (s *Session) Resize(width float64, redraw func(*chart.Page)) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}

	s.timer = time.AfterFunc(s.Debounce, func() {
		s.l.Debug("redraw", slog.Float64("width", width))
		redraw(s.Page(s.cfg.Name, chart.WithSize(width, 0)))
	})
}

// Close cancels any pending redraw.
func (s *Session) Close() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// ClickPoint opens the detail overlay of a data point clicked at page coordinates (x, y).
//
// The series index counts rendered series only. Any open overlay is closed first.
func (s *Session) ClickPoint(id string, series int, key string, x, y float64) (*html.Node, error) {
	d, ok := s.Descriptor(id)
	if !ok {
		return nil, fmt.Errorf("chart %q: %w", id, ErrUnknownChart)
	}

	rendered := d.Rendered()
	if series < 0 || series >= len(rendered) {
		return nil, fmt.Errorf("chart %q, series %d: %w", id, series, ErrUnknownPoint)
	}

	sd := rendered[series]
	point, ok := sd.Lookup(model.ParseKey(key))
	if !ok {
		return nil, fmt.Errorf("chart %q, series %d, key %q: %w", id, series, key, ErrUnknownPoint)
	}

	colors := normalizer.SeriesColors(d, s.cfg.Render.Colors)
	var color string
	if series < len(colors) {
		color = colors[series]
	}

	return s.overlays.Open(legend.PointDetail(sd, point, color, x, y)), nil
}

// Overlays returns the overlay manager of the session.
func (s *Session) Overlays() *legend.Overlays {
	return s.overlays
}

func (s *Session) labels(plotID string) (layout.Labels, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[plotID]
	if !ok || len(e.labels) == 0 || e.maxKey.IsZero() {
		return nil, time.Time{}, false
	}

	return e.labels, e.maxKey, true
}

func maxDate(d model.ChartDescriptor) time.Time {
	var last time.Time
	for _, s := range d.Rendered() {
		for _, pair := range s.Data {
			if pair.Key.IsDate() && pair.Key.Date.After(last) {
				last = pair.Key.Date
			}
		}
	}

	return last
}
