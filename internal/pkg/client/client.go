// Package client fetches chart data and content listings from the CMS JSON endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"golang.org/x/sync/errgroup"
)

// ErrUnexpectedStatus is returned when an endpoint answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Content types served by the finder and listing endpoints.
const (
	GroupType   = "uu.formlibrary.measuregroup"
	MeasureType = "uu.formlibrary.measure"
	DatasetType = "uu.formlibrary.setspecifier"
)

// Item is a content item returned by the finder and listing endpoints.
type Item struct {
	UID     string   `json:"uid"`
	Title   string   `json:"title"`
	Path    string   `json:"path,omitempty"`
	URL     string   `json:"url,omitempty"`
	Subject []string `json:"subject,omitempty"`
}

type listing struct {
	Items []Item `json:"items"`
}

// Dataset is a [value, title] choice returned by the dataset lister.
type Dataset struct {
	Value string
	Title string
}

// UnmarshalJSON decodes a [value, title] pair.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}

	if len(pair) != 2 {
		return fmt.Errorf("dataset: expected 2 items, got %d", len(pair))
	}

	d.Value, d.Title = pair[0], pair[1]

	return nil
}

// MarshalJSON encodes the dataset as a [value, title] pair.
func (d Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{d.Value, d.Title})
}

// Client talks to the CMS JSON API rooted at a base URL.
type Client struct {
	opts options
	base *url.URL
	l    *slog.Logger
}

// New builds a [Client] for the site at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	return &Client{
		opts: optionsWithDefaults(opts),
		base: base,
		l:    slog.Default().With(slog.String("module", "client")),
	}, nil
}

// FromConfig builds a [Client] from the endpoints and report sections of the configuration.
func FromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	return New(cfg.Endpoints.BaseURL, append([]Option{
		WithEndpoints(cfg.Endpoints),
		WithBatches(cfg.Report.FirstBatch, cfg.Report.MaxBatch),
	}, opts...)...)
}

// Chart fetches a chart descriptor. Relative URLs are resolved against the base URL.
func (c *Client) Chart(ctx context.Context, rawURL string) (model.ChartDescriptor, error) {
	var d model.ChartDescriptor
	if err := c.getJSON(ctx, rawURL, nil, &d); err != nil {
		return model.ChartDescriptor{}, err
	}

	return d, nil
}

// Report fetches the charts of a report.
//
// Charts are requested by UID, in batches of geometrically increasing sizes. Batches are fetched
// concurrently and merged in order. A batch that fails is logged and left out of the report.
//
// Without UIDs, the whole report is fetched in a single request.
func (c *Client) Report(ctx context.Context, rawURL string, uids []string) (model.Report, error) {
	if len(uids) == 0 {
		var report model.Report
		if err := c.getJSON(ctx, rawURL, nil, &report); err != nil {
			return nil, err
		}

		return report, nil
	}

	sizes := BatchSizes(len(uids), c.opts.FirstBatch, c.opts.MaxBatch)
	batches := make([]model.Report, len(sizes))

	g, gctx := errgroup.WithContext(ctx)
	var start int
	for i, size := range sizes {
		batch := uids[start : start+size]
		start += size

		g.Go(func() error {
			var report model.Report
			if err := c.getJSON(gctx, rawURL, url.Values{"uid": batch}, &report); err != nil {
				c.l.Warn("report batch skipped",
					slog.Int("batch", i),
					slog.Int("size", len(batch)),
					slog.String("error", err.Error()),
				)

				return nil
			}
			batches[i] = report

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetching report: %w", err)
	}

	report := make(model.Report, 0, len(uids))
	for _, batch := range batches {
		report = append(report, batch...)
	}

	c.l.Info("fetched report", slog.Int("charts", len(report)), slog.Int("batches", len(sizes)))

	return report, nil
}

// BatchSizes splits total items into batches starting at first items, each batch twice the
// size of the previous one and capped at maxSize. The last batch holds the remainder.
func BatchSizes(total, first, maxSize int) []int {
	first = max(first, 1)
	maxSize = max(maxSize, first)

	var sizes []int
	for size := first; total > 0; size = min(size*2, maxSize) {
		n := min(size, total)
		sizes = append(sizes, n)
		total -= n
	}

	return sizes
}

// ListDatasets returns the datasets available for a measure, as [value, title] pairs.
//
// A response that is not a JSON array yields no dataset.
func (c *Client) ListDatasets(ctx context.Context, measure string) ([]Dataset, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, c.opts.ListDatasets, url.Values{"measure": {measure}}, &raw); err != nil {
		return nil, err
	}

	datasets := make([]Dataset, 0)
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return datasets, nil
	}

	if err := json.Unmarshal(raw, &datasets); err != nil {
		return nil, fmt.Errorf("decoding datasets: %w", err)
	}

	return datasets, nil
}

// Finder lists the content items of a type across the site.
func (c *Client) Finder(ctx context.Context, portalType string) ([]Item, error) {
	var result listing
	query := url.Values{"root": {"1"}, "portal_type": {portalType}}
	if err := c.getJSON(ctx, c.opts.Finder, query, &result); err != nil {
		return nil, err
	}

	return result.Items, nil
}

// Listing lists the content items of a type within a container.
func (c *Client) Listing(ctx context.Context, containerURL, portalType string) ([]Item, error) {
	var result listing
	target := strings.TrimSuffix(containerURL, "/") + "/" + c.opts.Listing
	if err := c.getJSON(ctx, target, url.Values{"portal_type": {portalType}}, &result); err != nil {
		return nil, err
	}

	return result.Items, nil
}

func (c *Client) resolve(rawURL string, query url.Values) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	u := c.base.ResolveReference(ref)
	if len(query) > 0 {
		q := u.Query()
		for k, values := range query {
			for _, v := range values {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, query url.Values, v any) error {
	target, err := c.resolve(rawURL, query)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", target, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("GET %s: %w: %s", target, ErrUnexpectedStatus, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", target, err)
	}

	c.l.Debug("fetched", slog.String("url", target))

	return nil
}
