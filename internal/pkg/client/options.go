package client

import (
	"net/http"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/config"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultFirstBatch = 1
	defaultMaxBatch   = 64
)

// Option configures a [Client].
type Option func(*options)

type options struct {
	HTTPClient   *http.Client
	Timeout      time.Duration
	Finder       string
	Listing      string
	ListDatasets string
	FirstBatch   int
	MaxBatch     int
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.HTTPClient = c
		}
	}
}

// WithTimeout sets the timeout of a single request.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.Timeout = timeout
		}
	}
}

// WithEndpoints sets the view names of the finder, listing and dataset lister endpoints.
func WithEndpoints(e config.Endpoints) Option {
	return func(o *options) {
		o.Finder = orString(e.Finder, o.Finder)
		o.Listing = orString(e.Listing, o.Listing)
		o.ListDatasets = orString(e.ListDatasets, o.ListDatasets)
		if timeout := e.TimeoutDuration(); timeout > 0 {
			o.Timeout = timeout
		}
	}
}

// WithBatches sets the size of the first report batch and the maximum batch size.
//
// Batch sizes double from one batch to the next.
func WithBatches(first, maxSize int) Option {
	return func(o *options) {
		if first > 0 {
			o.FirstBatch = first
		}
		if maxSize > 0 {
			o.MaxBatch = maxSize
		}
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		Timeout:      defaultTimeout,
		Finder:       "@@finder",
		Listing:      "@@listing",
		ListDatasets: "@@list_datasets",
		FirstBatch:   defaultFirstBatch,
		MaxBatch:     defaultMaxBatch,
	}

	for _, apply := range opts {
		apply(&o)
	}

	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}

	o.MaxBatch = max(o.MaxBatch, o.FirstBatch)

	return o
}

func orString(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
