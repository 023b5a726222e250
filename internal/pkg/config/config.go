package config

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed default_config.yaml
var efs embed.FS

// Config holds the configuration for chartviz.
type Config struct {
	Name       string
	Render     Rendering
	Timeseries Timeseries
	Endpoints  Endpoints
	Report     Report
	Screenshot Screenshot
	Server     Server
	Outputs    Output `mapstructure:"-"`
}

// EncodeYAML serializes a [Config] to YAML into the provided writer.
//
// Runtime-only fields (Outputs) are excluded from the output.
func (c *Config) EncodeYAML(w io.Writer) error {
	var raw map[string]any

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Squash: true,
		Deep:   true,
		Result: &raw,
	})
	if err != nil {
		return fmt.Errorf("creating mapstructure decoder: %w", err)
	}

	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decoding config to map: %w", err)
	}

	return yaml.NewEncoder(w).Encode(raw)
}

// Rendering holds chart rendering settings.
type Rendering struct {
	Theme           string
	Width           float64 // default chart width in px, when a chart does not specify one
	Height          float64
	LegendPlacement LegendPlacement
	LegendLocation  string
	Colors          []string
	LabelHeight     float64 // height of a point label line, in px
	MarkerSize      float64 // marker size fallback, in px
	AxisPadding     float64 // ratio of the y-axis span added on each side when the range is not explicit
	BarWidth        Bounds
}

// Bounds is a closed [Min, Max] interval.
type Bounds struct {
	Min float64
	Max float64
}

// LegendPlacement controls where the chart legend is displayed.
type LegendPlacement string

// Supported legend placements.
const (
	LegendNone    LegendPlacement = "none"
	LegendInside  LegendPlacement = "inside"
	LegendOutside LegendPlacement = "outside"
	LegendTabular LegendPlacement = "tabular"
)

// IsValid reports whether the placement is known. The empty placement is valid and means "default".
func (p LegendPlacement) IsValid() bool {
	switch p {
	case "", LegendNone, LegendInside, LegendOutside, LegendTabular:
		return true
	default:
		return false
	}
}

// Timeseries holds defaults for date-keyed charts.
type Timeseries struct {
	Frequency string
}

// Endpoints locate the CMS JSON API.
type Endpoints struct {
	BaseURL      string
	Finder       string
	Listing      string
	ListDatasets string
	Timeout      string
}

// TimeoutDuration parses the Timeout field as a [time.Duration].
func (e Endpoints) TimeoutDuration() time.Duration {
	return parseDuration(e.Timeout)
}

// Report tunes the batched retrieval of report charts.
type Report struct {
	FirstBatch int
	MaxBatch   int
}

// Screenshot configures the headless Chrome screenshot used for PNG rendering.
type Screenshot struct {
	Height int64
	Width  int64
	Sleep  string
}

// SleepDuration parses the Sleep field as a [time.Duration].
func (s Screenshot) SleepDuration() time.Duration {
	return parseDuration(s.Sleep)
}

// Server configures the HTTP surface.
type Server struct {
	Addr     string
	Debounce string
}

// DebounceDuration parses the Debounce field as a [time.Duration].
func (s Server) DebounceDuration() time.Duration {
	return parseDuration(s.Debounce)
}

// Output holds the resolved output file paths for HTML and PNG rendering.
type Output struct {
	HTMLFile string
	PngFile  string
	IsTemp   bool
}

// Supported time series frequencies.
const (
	FrequencyMonthly   = "monthly"
	FrequencyWeekly    = "weekly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

// AllFrequencies returns all supported time series frequencies.
func AllFrequencies() []string {
	return []string{FrequencyMonthly, FrequencyWeekly, FrequencyQuarterly, FrequencyYearly}
}

var rexColor = regexp.MustCompile(`^(#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6}|[a-zA-Z]+)$`)

// IsColor reports whether the string is a CSS hex color (#rgb or #rrggbb) or a color name.
func IsColor(s string) bool {
	return rexColor.MatchString(s)
}

// Load a configuration file from the local file system.
//
// The file is layered over the embedded defaults.
func Load(file string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, fmt.Errorf("loading default config: %w", err)
	}

	fsys := os.DirFS(filepath.Dir(file))
	pth := filepath.Join(".", filepath.Base(file))

	cfg, err = load(fsys, pth, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Name == "" {
		base := filepath.Base(file)
		cfg.Name = titleize(strings.TrimSuffix(base, filepath.Ext(base)))
	}

	return cfg, nil
}

// LoadDefaults loads the default configuration from the embedded default_config.yaml.
func LoadDefaults() (*Config, error) {
	return loadDefaults()
}

func loadDefaults() (*Config, error) {
	return load(efs, "default_config.yaml", &Config{})
}

func load(fsys fs.FS, file string, cfg *Config) (*Config, error) {
	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}

	var raw any
	err = yaml.Unmarshal(content, &raw)
	if err != nil {
		return nil, err
	}

	err = mapstructure.Decode(raw, cfg)
	if err != nil {
		return nil, err
	}

	if err = cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := c.validateRendering(); err != nil {
		return err
	}

	if f := c.Timeseries.Frequency; f != "" && !slices.Contains(AllFrequencies(), f) {
		return fmt.Errorf("invalid timeseries: unsupported frequency %q (should be one of %v)", f, AllFrequencies())
	}

	if c.Report.FirstBatch <= 0 || c.Report.MaxBatch <= 0 {
		return fmt.Errorf("invalid report: batch sizes must be positive: firstBatch=%d, maxBatch=%d", c.Report.FirstBatch, c.Report.MaxBatch)
	}

	if c.Report.FirstBatch > c.Report.MaxBatch {
		return fmt.Errorf("invalid report: firstBatch=%d exceeds maxBatch=%d", c.Report.FirstBatch, c.Report.MaxBatch)
	}

	for _, d := range []struct{ name, value string }{
		{"endpoints.timeout", c.Endpoints.Timeout},
		{"screenshot.sleep", c.Screenshot.Sleep},
		{"server.debounce", c.Server.Debounce},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid duration %s=%q: %w", d.name, d.value, err)
		}
	}

	return nil
}

func (c *Config) validateRendering() error {
	r := c.Render

	if !r.LegendPlacement.IsValid() {
		return fmt.Errorf("invalid render: unsupported legend placement %q", r.LegendPlacement)
	}

	for i, color := range r.Colors {
		if !IsColor(color) {
			return fmt.Errorf("invalid render: invalid color: colors[%d]=%q", i, color)
		}
	}

	if r.BarWidth.Min <= 0 || r.BarWidth.Max < r.BarWidth.Min {
		return fmt.Errorf("invalid render: bar width bounds [%v, %v]", r.BarWidth.Min, r.BarWidth.Max)
	}

	if r.Width < 0 || r.Height < 0 || r.LabelHeight < 0 || r.MarkerSize < 0 {
		return fmt.Errorf("invalid render: negative dimension")
	}

	return nil
}

func parseDuration(in string) time.Duration {
	d, err := time.ParseDuration(in)
	if d == 0 || err != nil {
		return 0
	}

	return d
}

type str interface {
	~string
}

func titleize[T str](in T) string {
	caser := cases.Title(language.English, cases.NoLower) // the case is stateful: cannot declare it globally

	return caser.String(strings.Map(func(r rune) rune {
		switch r {
		case '_', '-':
			return ' '
		default:
			return r
		}
	}, string(in),
	))
}
