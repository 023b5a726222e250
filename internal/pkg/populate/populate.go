// Package populate drives the cascading selection of report contents.
//
// Selecting a group loads its measures and datasets. Selecting a measure loads the datasets
// available for it into a select list. Loads are not retried: a failed load leaves the prior
// selection state, and the responses of superseded loads are dropped.
package populate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/fredbi/chartviz/internal/pkg/client"
	"golang.org/x/sync/errgroup"
)

const (
	goalTagPrefix    = "goal_value_"
	defaultChartType = ChartTypeRunLine
)

// Chart types offered for a measure.
const (
	ChartTypeRunLine = "runchart-line"
	ChartTypeRunBar  = "runchart-bar"
)

// Lister lists the contents of the site.
type Lister interface {
	Finder(ctx context.Context, portalType string) ([]client.Item, error)
	Listing(ctx context.Context, containerURL, portalType string) ([]client.Item, error)
	ListDatasets(ctx context.Context, measure string) ([]client.Dataset, error)
}

// MeasureRow is a measure offered for selection, with the defaults of its chart.
type MeasureRow struct {
	UID       string
	Title     string
	ChartType string
	Goal      *float64
}

// DatasetRow is a dataset offered for selection.
type DatasetRow struct {
	UID   string
	Title string
}

// Populator holds the selection state of a report population form.
type Populator struct {
	lister Lister

	mu       sync.Mutex
	groups   []client.Item
	measures []MeasureRow
	datasets []DatasetRow
	gen      uint64

	l *slog.Logger
}

// New builds a [Populator].
func New(lister Lister) *Populator {
	return &Populator{
		lister: lister,
		l:      slog.Default().With(slog.String("module", "populate")),
	}
}

// LoadGroups loads the measure groups of the site.
func (p *Populator) LoadGroups(ctx context.Context) error {
	groups, err := p.lister.Finder(ctx, client.GroupType)
	if err != nil {
		p.l.Warn("groups not loaded", slog.String("error", err.Error()))

		return fmt.Errorf("loading groups: %w", err)
	}

	p.mu.Lock()
	p.groups = groups
	p.mu.Unlock()

	p.l.Info("loaded groups", slog.Int("groups", len(groups)))

	return nil
}

// Groups returns the loaded measure groups.
func (p *Populator) Groups() []client.Item {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.groups)
}

// GroupURL returns the URL of a loaded group.
func (p *Populator) GroupURL(uid string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, g := range p.groups {
		if g.UID == uid {
			return g.URL, true
		}
	}

	return "", false
}

// SelectGroup loads the measures and datasets of a group.
//
// The rows of the previous group are cleared first. Measures and datasets are loaded by two
// independent requests: one may fail while the other completes. Rows loaded for a group that
// has been deselected since are dropped.
func (p *Populator) SelectGroup(ctx context.Context, uid string) error {
	if uid == "" {
		return nil
	}

	groupURL, ok := p.GroupURL(uid)
	if !ok {
		return fmt.Errorf("group %q: %w", uid, ErrUnknownGroup)
	}

	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.measures = nil
	p.datasets = nil
	p.mu.Unlock()

	var g errgroup.Group

	g.Go(func() error {
		items, err := p.lister.Listing(ctx, groupURL, client.MeasureType)
		if err != nil {
			p.l.Warn("measures not loaded", slog.String("group", uid), slog.String("error", err.Error()))

			return fmt.Errorf("loading measures: %w", err)
		}

		rows := make([]MeasureRow, 0, len(items))
		for _, item := range items {
			rows = append(rows, measureRow(item))
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if gen == p.gen {
			p.measures = rows
		}

		return nil
	})

	g.Go(func() error {
		items, err := p.lister.Listing(ctx, groupURL, client.DatasetType)
		if err != nil {
			p.l.Warn("datasets not loaded", slog.String("group", uid), slog.String("error", err.Error()))

			return fmt.Errorf("loading datasets: %w", err)
		}

		rows := make([]DatasetRow, 0, len(items))
		for _, item := range items {
			rows = append(rows, DatasetRow{UID: item.UID, Title: item.Title})
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if gen == p.gen {
			p.datasets = rows
		}

		return nil
	})

	return g.Wait()
}

// Measures returns the measures of the selected group.
func (p *Populator) Measures() []MeasureRow {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.measures)
}

// Datasets returns the datasets of the selected group.
func (p *Populator) Datasets() []DatasetRow {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.datasets)
}

// SelectMeasure loads the datasets of a measure into a select list, replacing all of its
// options but the placeholder.
//
// On failure, the select list is left untouched.
func (p *Populator) SelectMeasure(ctx context.Context, measurePath string, sel *Select) error {
	gen := sel.begin()

	datasets, err := p.lister.ListDatasets(ctx, measurePath)
	if err != nil {
		p.l.Warn("datasets not listed", slog.String("measure", measurePath), slog.String("error", err.Error()))

		return fmt.Errorf("listing datasets of %q: %w", measurePath, err)
	}

	if !sel.replace(gen, datasets) {
		p.l.Debug("stale dataset listing dropped", slog.String("measure", measurePath))
	}

	return nil
}

func measureRow(item client.Item) MeasureRow {
	row := MeasureRow{
		UID:       item.UID,
		Title:     item.Title,
		ChartType: defaultChartType,
	}

	for _, tag := range item.Subject {
		if goal, ok := goalFromTag(tag); ok {
			row.Goal = &goal
		}
	}

	return row
}

// goalFromTag reads the goal of a measure from a "goal_value_<n>" subject tag.
func goalFromTag(tag string) (float64, bool) {
	raw, ok := strings.CutPrefix(tag, goalTagPrefix)
	if !ok {
		return 0, false
	}

	goal, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}

	return goal, true
}
