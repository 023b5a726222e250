package session

import (
	"time"

	"github.com/fredbi/chartviz/internal/pkg/dom"
)

const defaultDebounce = 250 * time.Millisecond

// Option configures a [Session].
type Option func(*options)

type options struct {
	Debounce time.Duration
	Document *dom.Document
	Fetcher  Fetcher
}

// WithDebounce sets the quiet period after the last resize request before charts are redrawn.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.Debounce = d
		}
	}
}

// WithDocument sets the document hosting the detail overlays.
func WithDocument(doc *dom.Document) Option {
	return func(o *options) {
		if doc != nil {
			o.Document = doc
		}
	}
}

// WithFetcher sets the source of chart descriptors missing from the cache.
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		o.Fetcher = f
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		Debounce: defaultDebounce,
	}

	for _, apply := range opts {
		apply(&o)
	}

	if o.Document == nil {
		o.Document = dom.NewDocument()
	}

	return o
}
