// Package image takes PNG screenshots of chart pages with a headless browser.
//
// The browser runs the page scripts, so screenshots show charts exactly as the drawing
// pipeline laid them out, including the tabular legends.
package image //nolint:revive // it's okay for an internal package to use this name

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
	"github.com/fredbi/chartviz/internal/pkg/chart"
)

// ErrNoChart is returned when a chart screenshot is requested for a chart not on the page.
var ErrNoChart = errors.New("chart not on page")

// Renderer knows how to take screenshots of HTML pages and write them as PNG.
type Renderer struct {
	options

	l *slog.Logger
}

// New builds an image [Renderer].
func New(opts ...Option) *Renderer {
	return &Renderer{
		options: optionsWithDefaults(opts),
		l:       slog.Default().With(slog.String("module", "image")),
	}
}

// Render a PNG image as a screenshot of the full HTML page read from source.
func (r *Renderer) Render(ctx context.Context, dest io.Writer, source io.Reader) error {
	content, err := io.ReadAll(source)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	var screenshot []byte
	const qualityPNG = 100 // 100 to force PNG

	if err := r.run(ctx, content, chromedp.FullScreenshot(&screenshot, qualityPNG)); err != nil {
		return fmt.Errorf("taking screenshot: %w", err)
	}

	return write(dest, screenshot)
}

// RenderPage renders a chart page then takes a screenshot of it.
func (r *Renderer) RenderPage(ctx context.Context, dest io.Writer, page *chart.Page) error {
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}

	return r.Render(ctx, dest, &buf)
}

// RenderChart takes a screenshot of a single chart container of a page, legend included.
func (r *Renderer) RenderChart(ctx context.Context, dest io.Writer, page *chart.Page, id string) error {
	found := false
	for _, c := range page.Charts {
		if c.ID == id {
			found = true

			break
		}
	}
	if !found {
		return fmt.Errorf("chart %q: %w", id, ErrNoChart)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}

	var screenshot []byte
	if err := r.run(ctx, buf.Bytes(),
		chromedp.Screenshot("#"+id, &screenshot, chromedp.ByID, chromedp.NodeVisible),
	); err != nil {
		return fmt.Errorf("taking screenshot of chart %q: %w", id, err)
	}

	return write(dest, screenshot)
}

func (r *Renderer) run(parent context.Context, content []byte, capture chromedp.Action) error {
	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	for _, flag := range r.Flags {
		allocOpts = append(allocOpts, chromedp.Flag(flag, true))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	r.l.Debug("taking screenshot",
		slog.Int64("width", r.Width),
		slog.Int64("height", r.Height),
		slog.Duration("sleep", r.SleepDuration),
	)

	return chromedp.Run(ctx,
		chromedp.Emulate(device.Info{
			Height:    r.Height,
			Width:     r.Width,
			Landscape: true,
		}),
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString(content)),
		chromedp.Sleep(r.SleepDuration), // charts are drawn by scripts after load
		capture,
	)
}

func write(dest io.Writer, screenshot []byte) error {
	if _, err := dest.Write(screenshot); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}

	return nil
}
