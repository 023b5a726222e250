package parser //nolint:revive // it's okay for an internal package to use this name

import "io"

// Option configures a [ChartParser].
type Option func(*options)

type options struct {
	stdin io.Reader
}

// WithStdin sets the reader consumed for the "-" input. Defaults to [os.Stdin].
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

func optionsWithDefaults(opts []Option) options {
	var o options
	for _, apply := range opts {
		apply(&o)
	}

	return o
}
