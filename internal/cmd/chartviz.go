// Package cmd owns the implementation details of the CLI command.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/chart"
	"github.com/fredbi/chartviz/internal/pkg/client"
	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/datatable"
	"github.com/fredbi/chartviz/internal/pkg/image"
	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/fredbi/chartviz/internal/pkg/parser"
	"github.com/fredbi/chartviz/internal/pkg/server"
	"github.com/fredbi/chartviz/internal/pkg/session"
	"github.com/fredbi/chartviz/internal/pkg/thumbnail"
)

const stdio = "-"

// ErrNoInput is returned when a mode requires chart inputs and none could be loaded.
var ErrNoInput = errors.New("no chart to render")

// Command holds command line flags and executes the chartviz command.
//
// It knows how to load a configuration file in a [config.Config] and manage CLI flag configuration overrides.
//
// The main purpose of this package is to deal with io's: opening and closing files, reaching out to the CMS.
//
// Charts are read from JSON files passed as arguments (chart descriptors or reports),
// from a report URL, from a chart URL or from the chart containers of an HTML page.
type Command struct {
	Config         string
	OutputFile     string
	Png            bool
	Workbook       string
	Thumbnails     string
	ReportURL      string
	UIDs           string
	ChartURL       string
	PageFile       string
	Datasets       string
	Serve          bool
	Addr           string
	Width          float64
	GenerateConfig bool
	Inspect        bool
	L              *slog.Logger

	stdout io.Writer
	stdin  io.Reader
}

// NewCommand builds a CLI command with registered flags and an injected logger.
func NewCommand() *Command {
	// inject a structured logger
	cli := &Command{
		L: slog.Default().With(slog.String("module", "main")),
	}

	cli.registerFlags()

	return cli
}

// Parse command line flags and arguments.
func (*Command) Parse() error {
	return flag.CommandLine.Parse(os.Args[1:])
}

// Fatalf logs an error message then exits. The output is spewed on both stderr and the structured logger output.
func (c *Command) Fatalf(err error) {
	c.L.Error(err.Error())
	log.Fatalf("%v", err)
}

// Execute the CLI with flags and extra arguments.
//
// If no argument is passed, command line arguments (i.e. [os.Args]) are used.
func (c *Command) Execute(args ...string) error {
	if args == nil { // passing explicit args allows for testing Execute without altering [os.Args]
		args = c.args()
	}

	if c.GenerateConfig {
		return c.generateConfig()
	}

	cfg, cleanup, err := c.prepareConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cl, err := client.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("preparing client: %w", err)
	}

	if c.Datasets != "" {
		// just want to list the datasets available for a measure
		return c.listDatasets(ctx, cl)
	}

	if len(args) == 0 && !c.hasRemoteInput() {
		args = append(args, stdio) // no file is provided: assume stdin
	}

	if c.Inspect {
		// just want to report about the content of the chart files
		return c.inspect(args)
	}

	// 1. load chart descriptors into a drawing session
	s := session.New(cfg, session.WithDebounce(cfg.Server.DebounceDuration()), session.WithFetcher(cl))
	defer s.Close()

	if err := c.load(ctx, s, cl, args); err != nil {
		return err
	}

	if c.Serve {
		srv := server.New(cfg, s, server.WithDatasets(cl))

		return srv.ListenAndServe(ctx)
	}

	if len(s.IDs()) == 0 {
		return ErrNoInput
	}

	// 2. render the page as HTML, possibly to stdout, possibly to temp file
	var opts []chart.Option
	if c.Width > 0 {
		opts = append(opts, chart.WithSize(c.Width, 0))
	}
	page := s.Page(cfg.Name, opts...)

	if err := c.renderHTML(cfg, page); err != nil {
		return err
	}

	// 3. convert the HTML page to a PNG image
	if cfg.Outputs.PngFile != "" {
		if err := c.renderPNG(ctx, cfg); err != nil {
			return err
		}
	}

	// 4. extra outputs: data workbook and static thumbnails
	if c.Workbook != "" {
		if err := c.writeWorkbook(s); err != nil {
			return err
		}
	}

	if c.Thumbnails != "" {
		return c.writeThumbnails(page)
	}

	return nil
}

func (*Command) args() []string {
	return flag.CommandLine.Args()
}

func (c *Command) registerFlags() {
	defaults := Command{
		Config:     "chartviz.yaml",
		OutputFile: stdio,
		Png:        false,
		Serve:      false,
	}

	flag.StringVar(&c.Config, "config", defaults.Config, "config file")
	flag.StringVar(&c.Config, "c", defaults.Config, "config file (shorthand)")
	flag.StringVar(&c.OutputFile, "output", defaults.OutputFile, "file output or - for standard output")
	flag.StringVar(&c.OutputFile, "o", defaults.OutputFile, "file output or - for standard output (shorthand)")
	flag.BoolVar(&c.Png, "png", defaults.Png, "enable PNG screenshot output")
	flag.StringVar(&c.Workbook, "xlsx", defaults.Workbook, "write the chart data as a workbook to this file")
	flag.StringVar(&c.Thumbnails, "thumbnails", defaults.Thumbnails, "write a static PNG image of each chart in this directory")
	flag.StringVar(&c.ReportURL, "report", defaults.ReportURL, "URL of a report to load charts from")
	flag.StringVar(&c.UIDs, "uids", defaults.UIDs, "comma-separated UIDs of the report charts to load (default: all)")
	flag.StringVar(&c.ChartURL, "chart", defaults.ChartURL, "URL of the JSON API of a chart to load")
	flag.StringVar(&c.PageFile, "page", defaults.PageFile, "HTML page whose chart containers are loaded from the CMS")
	flag.StringVar(&c.Datasets, "datasets", defaults.Datasets, "list the datasets available for this measure path, then exit")
	flag.BoolVar(&c.Serve, "serve", defaults.Serve, "serve the charts over HTTP")
	flag.StringVar(&c.Addr, "addr", defaults.Addr, "listen address when serving (overrides the config)")
	flag.Float64Var(&c.Width, "width", defaults.Width, "default chart width in px")
	flag.BoolVar(&c.Inspect, "i", defaults.Inspect, "report chart file contents only, no rendering (shorthand)")
	flag.BoolVar(&c.Inspect, "inspect", defaults.Inspect, "report chart file contents only")
	flag.BoolVar(&c.GenerateConfig, "generate-config", defaults.GenerateConfig, "write the default configuration to the config file, then exit")
}

func (c *Command) prepareConfig() (cfg *config.Config, cleanup func(), err error) {
	cfg, err = config.Load(c.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if err = c.setConfig(cfg); err != nil {
		return nil, nil, fmt.Errorf("preparing config: %w", err)
	}

	if cfg.Outputs.IsTemp {
		cleanup = func() {
			_ = os.Remove(cfg.Outputs.HTMLFile)
		}

		return cfg, cleanup, err
	}

	return cfg, func() {}, err
}

// apply CLI flags overrides to YAML config.
func (c *Command) setConfig(cfg *config.Config) error {
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	if c.OutputFile != "" && c.OutputFile != stdio {
		// an outfile is defined: infer the PNG file from the HTML file provided
		cfg.Outputs.HTMLFile = inferHTMLFile(c.OutputFile)
		if cfg.Outputs.PngFile == "" && c.Png {
			cfg.Outputs.PngFile = inferImageFile(cfg.Outputs.HTMLFile)
		}
	}

	if c.Serve || c.Inspect || c.Datasets != "" {
		return nil
	}

	switch {
	case cfg.Outputs.HTMLFile == "" && cfg.Outputs.PngFile == "":
		c.L.Info("output sent to standard output as HTML, no PNG image rendered")
		if c.Png {
			c.L.Info("set an output file to render a PNG image")
		}
		cfg.Outputs.HTMLFile = stdio
	case cfg.Outputs.HTMLFile == "" && cfg.Outputs.PngFile != "":
		c.L.Info("HTML generated as a temporary file to produce PNG")
		tmp, err := os.CreateTemp("", "chartviz.*.html")
		if err != nil {
			return err
		}
		cfg.Outputs.HTMLFile = tmp.Name()
		cfg.Outputs.IsTemp = true
		_ = tmp.Close()
	}

	return nil
}

func (c *Command) hasRemoteInput() bool {
	return c.ReportURL != "" || c.ChartURL != "" || c.PageFile != ""
}

// load charts from all inputs into the session.
func (c *Command) load(ctx context.Context, s *session.Session, cl *client.Client, args []string) error {
	t0 := time.Now()

	if len(args) > 0 {
		p := c.newParser()
		if err := p.ParseFiles(args...); err != nil {
			return fmt.Errorf("parsing files: %w", err)
		}

		for _, entry := range p.Charts() {
			s.Put(entry.UID, "", entry.Chart)
		}
	}

	if c.ChartURL != "" {
		if _, err := s.Load(ctx, parser.ChartID(c.ChartURL), c.ChartURL); err != nil {
			return err
		}
	}

	if c.ReportURL != "" {
		report, err := cl.Report(ctx, c.ReportURL, splitList(c.UIDs))
		if err != nil {
			return fmt.Errorf("loading report: %w", err)
		}

		for _, entry := range report {
			s.Put(entry.UID, "", entry.Chart)
		}
	}

	if c.PageFile != "" {
		rdr, closer, err := getReader(c.PageFile, "HTML")
		if err != nil {
			return err
		}
		defer closer()

		if _, err := s.LoadPage(ctx, rdr); err != nil {
			return fmt.Errorf("loading page charts: %w", err)
		}
	}

	c.L.Info("loaded charts", slog.Int("charts", len(s.IDs())), slog.Duration("duration", time.Since(t0)))

	return nil
}

func (c *Command) renderHTML(cfg *config.Config, page *chart.Page) error {
	htmlWriter, htmlCloser, err := c.getWriter(cfg.Outputs.HTMLFile, "HTML")
	if err != nil {
		return err
	}
	defer htmlCloser()

	if err := page.Render(htmlWriter); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}

	return nil
}

func (c *Command) renderPNG(ctx context.Context, cfg *config.Config) error {
	htmlReader, htmlCloser, err := getReader(cfg.Outputs.HTMLFile, "HTML")
	if err != nil {
		return err
	}
	defer htmlCloser()

	pngWriter, pngCloser, err := c.getWriter(cfg.Outputs.PngFile, "PNG")
	if err != nil {
		return err
	}
	defer pngCloser()

	r := image.New(image.WithScreenshot(cfg.Screenshot))
	if err = r.Render(ctx, pngWriter, htmlReader); err != nil {
		return fmt.Errorf("rendering image: %w", err)
	}

	return nil
}

func (c *Command) writeWorkbook(s *session.Session) error {
	ids := s.IDs()
	report := make(model.Report, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.Descriptor(id); ok {
			report = append(report, model.Entry{UID: id, Chart: d})
		}
	}

	wrt, closer, err := c.getWriter(c.Workbook, "workbook")
	if err != nil {
		return err
	}
	defer closer()

	if err := datatable.WriteWorkbook(wrt, report); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}

func (c *Command) writeThumbnails(page *chart.Page) error {
	if err := os.MkdirAll(c.Thumbnails, 0o755); err != nil { //nolint:mnd,gosec // regular directory permissions
		return fmt.Errorf("creating thumbnails directory: %w", err)
	}

	r := thumbnail.New()
	for _, ch := range page.Charts {
		file := filepath.Join(c.Thumbnails, safeFileName(ch.ID)+".png")

		wrt, closer, err := c.getWriter(file, "PNG")
		if err != nil {
			return err
		}

		err = r.Render(wrt, ch)
		closer()
		if err != nil {
			return fmt.Errorf("rendering thumbnail: %w", err)
		}
	}

	return nil
}

// listDatasets prints the datasets available for a measure as JSON.
func (c *Command) listDatasets(ctx context.Context, cl *client.Client) error {
	datasets, err := cl.ListDatasets(ctx, c.Datasets)
	if err != nil {
		return fmt.Errorf("listing datasets: %w", err)
	}

	enc := json.NewEncoder(c.out())
	enc.SetIndent("", " ")

	return enc.Encode(datasets)
}

// generateConfig writes the default configuration, for users to start from.
func (c *Command) generateConfig() error {
	cfg, err := config.LoadDefaults()
	if err != nil {
		return fmt.Errorf("loading default config: %w", err)
	}

	wrt, closer, err := c.getWriter(c.Config, "config")
	if err != nil {
		return err
	}
	defer closer()

	return cfg.EncodeYAML(wrt)
}

// inspect produces a report that explores the input charts.
func (c *Command) inspect(args []string) error {
	p := c.newParser()
	t0 := time.Now()
	if err := p.ParseFiles(args...); err != nil {
		return fmt.Errorf("parsing files: %w", err)
	}
	c.L.Info("parsed input charts", slog.Duration("duration", time.Since(t0)))

	enc := json.NewEncoder(c.out())
	enc.SetIndent("", " ")

	return enc.Encode(p.Report())
}

func (c *Command) newParser() *parser.ChartParser {
	var opts []parser.Option
	if c.stdin != nil {
		opts = append(opts, parser.WithStdin(c.stdin))
	}

	return parser.New(opts...)
}

func (c *Command) out() io.Writer {
	if c.stdout == nil {
		return os.Stdout
	}

	return c.stdout
}

func getReader(file, kind string) (rdr *os.File, cleanup func(), err error) {
	rdr, err = os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s file: %q: %w", kind, file, err)
	}

	cleanup = func() {
		_ = rdr.Close()
	}

	return rdr, cleanup, nil
}

func (c *Command) getWriter(file, kind string) (wrt io.Writer, cleanup func(), err error) {
	if file == stdio {
		return c.out(), func() {}, nil
	}

	f, err := os.Create(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s file for writing: %q: %w", kind, file, err)
	}

	cleanup = func() {
		_ = f.Close()
	}

	return f, cleanup, nil
}

func splitList(in string) []string {
	if in == "" {
		return nil
	}

	parts := strings.Split(in, ",")
	out := parts[:0]
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}

func safeFileName(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		default:
			return r
		}
	}, id)
}

func inferHTMLFile(base string) string {
	ext := path.Ext(base)
	name, _ := strings.CutSuffix(base, ext)

	return name + ".html"
}

func inferImageFile(base string) string {
	ext := path.Ext(base)
	name, _ := strings.CutSuffix(base, ext)

	return name + ".png"
}
