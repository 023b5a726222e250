package pipeline

// Option configures a [Pipeline].
type Option func(*options)

type options struct {
	gridData  GridDataFunc
	tickLabel TickLabelFunc
}

// WithGridData sets the base grid data routine, before any wrapper is applied.
func WithGridData(fn GridDataFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.gridData = fn
		}
	}
}

// WithTickLabel sets the base tick label routine, before any wrapper is applied.
func WithTickLabel(fn TickLabelFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.tickLabel = fn
		}
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		gridData:  DefaultGridData,
		tickLabel: DefaultTickLabel,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}
