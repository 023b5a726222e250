// Package server exposes the charts of a session over HTTP.
//
// Routes:
//   - GET /: the chart page, with clickable data points;
//   - GET /overlay: the detail overlay of a data point;
//   - GET /datatable: the data of a chart, as HTML tables;
//   - GET /thumbnail: a static image of a chart;
//   - GET /report.xlsx: the data of all charts, as a workbook;
//   - GET /datasets: the datasets available for a measure;
//   - POST /selection: the chart skeletons of a submitted population form.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/datatable"
	"github.com/fredbi/chartviz/internal/pkg/dom"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/populate"
	"github.com/fredbi/chartviz/internal/pkg/session"
	"github.com/fredbi/chartviz/internal/pkg/thumbnail"
)

const (
	contentHTML = "text/html; charset=utf-8"
	contentJSON = "application/json"
	contentXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentPNG  = "image/png"
	contentSVG  = "image/svg+xml"
)

// Server serves the charts held by a [session.Session].
type Server struct {
	options

	cfg     *config.Config
	session *session.Session
	l       *slog.Logger
}

// New builds a [Server] for a session.
func New(cfg *config.Config, s *session.Session, opts ...Option) *Server {
	o := optionsWithDefaults(opts)
	if o.Title == "" {
		o.Title = cfg.Name
	}

	return &Server{
		options: o,
		cfg:     cfg,
		session: s,
		l:       slog.Default().With(slog.String("module", "server")),
	}
}

// Handler returns the HTTP handler of the server routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.httpPage)
	mux.HandleFunc("GET "+defaultOverlayPath, s.httpOverlay)
	mux.HandleFunc("GET /datatable", s.httpDataTable)
	mux.HandleFunc("GET /thumbnail", s.httpThumbnail)
	mux.HandleFunc("GET /report.xlsx", s.httpWorkbook)
	mux.HandleFunc("GET /datasets", s.httpDatasets)
	mux.HandleFunc("POST /selection", s.httpSelection)

	return mux
}

// ListenAndServe serves on the configured address until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", s.cfg.Server.Addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on a listener until the context is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.ReadHeaderTimeout,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()

		done <- srv.Shutdown(shutdownCtx)
	}()

	s.l.Info("serving charts", slog.String("addr", ln.Addr().String()))

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	return <-done
}

func (s *Server) httpPage(w http.ResponseWriter, _ *http.Request) {
	page := s.session.Page(s.Title)
	page.OverlayURL = defaultOverlayPath

	w.Header().Set("Content-Type", contentHTML)
	if err := page.Render(w); err != nil {
		s.fail(w, err, http.StatusInternalServerError)
	}
}

func (s *Server) httpOverlay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	series, err := strconv.Atoi(q.Get("series"))
	if err != nil {
		s.fail(w, fmt.Errorf("series: %w", err), http.StatusBadRequest)

		return
	}

	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if err := errors.Join(errX, errY); err != nil {
		s.fail(w, fmt.Errorf("position: %w", err), http.StatusBadRequest)

		return
	}

	node, err := s.session.ClickPoint(q.Get("chart"), series, q.Get("point"), x, y)
	if err != nil {
		s.fail(w, err, statusFor(err))

		return
	}

	fragment, err := dom.Render(node)
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", contentHTML)
	_, _ = w.Write([]byte(fragment))
}

func (s *Server) httpDataTable(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("chart")
	d, ok := s.session.Descriptor(id)
	if !ok {
		s.fail(w, fmt.Errorf("chart %q: %w", id, session.ErrUnknownChart), http.StatusNotFound)

		return
	}

	w.Header().Set("Content-Type", contentHTML)
	if err := datatable.Document(d).Render(w); err != nil {
		s.fail(w, err, http.StatusInternalServerError)
	}
}

func (s *Server) httpThumbnail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("chart")

	c, err := s.session.Chart(id)
	if err != nil {
		s.fail(w, err, statusFor(err))

		return
	}
	if c == nil {
		s.fail(w, fmt.Errorf("chart %q: no data to render", id), http.StatusNotFound)

		return
	}

	format := q.Get("format")
	contentType := contentPNG
	switch format {
	case "", thumbnail.FormatPNG:
		format = thumbnail.FormatPNG
	case thumbnail.FormatSVG:
		contentType = contentSVG
	default:
		s.fail(w, fmt.Errorf("unsupported image format %q", format), http.StatusBadRequest)

		return
	}

	opts := []thumbnail.Option{thumbnail.WithFormat(format)}
	if raw := q.Get("scale"); raw != "" {
		scale, err := strconv.ParseFloat(raw, 64)
		if err != nil || scale <= 0 {
			s.fail(w, fmt.Errorf("invalid scale %q", raw), http.StatusBadRequest)

			return
		}
		opts = append(opts, thumbnail.WithScale(scale))
	}

	w.Header().Set("Content-Type", contentType)
	if err := thumbnail.New(opts...).Render(w, c); err != nil {
		s.fail(w, err, http.StatusInternalServerError)
	}
}

func (s *Server) httpWorkbook(w http.ResponseWriter, _ *http.Request) {
	ids := s.session.IDs()
	report := make(model.Report, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.session.Descriptor(id); ok {
			report = append(report, model.Entry{UID: id, Chart: d})
		}
	}

	w.Header().Set("Content-Type", contentXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="report.xlsx"`)
	if err := datatable.WriteWorkbook(w, report); err != nil {
		s.fail(w, err, http.StatusInternalServerError)
	}
}

func (s *Server) httpDatasets(w http.ResponseWriter, r *http.Request) {
	if s.Datasets == nil {
		s.fail(w, errors.New("dataset listing not configured"), http.StatusNotFound)

		return
	}

	measure := r.URL.Query().Get("measure")
	if measure == "" {
		s.fail(w, errors.New("missing measure"), http.StatusBadRequest)

		return
	}

	datasets, err := s.Datasets.ListDatasets(r.Context(), measure)
	if err != nil {
		s.fail(w, err, http.StatusBadGateway)

		return
	}

	s.writeJSON(w, datasets)
}

func (s *Server) httpSelection(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.fail(w, err, http.StatusBadRequest)

		return
	}

	sel, err := populate.ExtractSelection(r.PostForm)
	if err != nil {
		s.fail(w, err, http.StatusBadRequest)

		return
	}

	s.writeJSON(w, sel.Descriptors())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", contentJSON)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Warn("writing response", slog.String("error", err.Error()))
	}
}

func (s *Server) fail(w http.ResponseWriter, err error, status int) {
	if status >= http.StatusInternalServerError {
		s.l.Error("request failed", slog.String("error", err.Error()), slog.Int("status", status))
	} else {
		s.l.Debug("request rejected", slog.String("error", err.Error()), slog.Int("status", status))
	}

	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownChart), errors.Is(err, session.ErrUnknownPoint):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
