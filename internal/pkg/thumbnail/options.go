package thumbnail

// Image formats supported by the renderer.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

const (
	goalColor        = "#333333"
	defaultLineWidth = 2.0
)

// Option configures a [Renderer].
type Option func(*options)

type options struct {
	Format string
	Scale  float64
}

// WithFormat sets the image format: png (default) or svg.
func WithFormat(format string) Option {
	return func(o *options) {
		if format != "" {
			o.Format = format
		}
	}
}

// WithScale scales the chart dimensions.
func WithScale(scale float64) Option {
	return func(o *options) {
		o.Scale = scale
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		Format: FormatPNG,
		Scale:  1,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}
