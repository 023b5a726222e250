package server

import (
	"context"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/client"
)

const (
	defaultOverlayPath       = "/overlay"
	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

// DatasetLister lists the datasets available for a measure.
type DatasetLister interface {
	ListDatasets(ctx context.Context, measure string) ([]client.Dataset, error)
}

// Option configures a [Server].
type Option func(*options)

type options struct {
	Title             string
	Datasets          DatasetLister
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// WithTitle sets the title of the chart page. Defaults to the configured name.
func WithTitle(title string) Option {
	return func(o *options) {
		if title != "" {
			o.Title = title
		}
	}
}

// WithDatasets enables the dataset listing endpoint.
func WithDatasets(lister DatasetLister) Option {
	return func(o *options) {
		o.Datasets = lister
	}
}

// WithShutdownTimeout sets the grace period given to in-flight requests on shutdown.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.ShutdownTimeout = timeout
		}
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ShutdownTimeout:   defaultShutdownTimeout,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}
