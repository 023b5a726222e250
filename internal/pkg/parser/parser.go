// Package parser reads chart descriptors from JSON inputs.
//
// An input holds one or several JSON documents. Each document is either a single chart
// descriptor, or a report: an object keyed by chart UID or an array of [uid, descriptor] pairs.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fredbi/chartviz/internal/pkg/model"
)

const stdio = "-"

// Set is the report decoded from an input file.
type Set struct {
	model.Report

	File string
}

// ParsingReport allows to inspect the contents of parsed charts.
type ParsingReport struct {
	NumberOfSets  int           `json:"sets"`
	AnalyzedFiles []string      `json:"analyzed_files"`
	Charts        []string      `json:"chart_titles"`
	Signatures    []Signature   `json:"charts"`
	Series        []MinMaxRange `json:"series"`
}

// Signature summarizes a chart.
type Signature struct {
	UID        string          `json:"uid"`
	Title      string          `json:"title"`
	ChartType  model.ChartType `json:"chart_type"`
	TimeSeries bool            `json:"time_series"`
	Keys       int             `json:"keys"`
	Empty      []string        `json:"empty_series,omitempty"`
	Origin     string          `json:"origin_file"`
}

// MinMaxRange summarizes the values of a series.
type MinMaxRange struct {
	Chart string  `json:"chart"`
	Title string  `json:"series"`
	Count int     `json:"values_count"`
	Nulls int     `json:"nulls_count"`
	Min   float64 `json:"min_value"`
	Max   float64 `json:"max_value"`
}

// ChartParser reads chart descriptors from files.
type ChartParser struct {
	options

	sets []Set
	l    *slog.Logger
}

// New [ChartParser] ready to parse chart files.
func New(opts ...Option) *ChartParser {
	return &ChartParser{
		options: optionsWithDefaults(opts),
		l:       slog.Default().With(slog.String("module", "parser")),
	}
}

// ParseFiles parses each file as a [Set]. The "-" file is the standard input.
func (p *ChartParser) ParseFiles(files ...string) error {
	for _, file := range files {
		var (
			reader io.ReadCloser
			err    error
		)

		if file == stdio {
			reader = io.NopCloser(p.stdinReader())
		} else {
			reader, err = os.Open(file)
			if err != nil {
				return fmt.Errorf("input file %q: %w", file, err)
			}
		}

		report, err := p.ParseInput(reader, ChartID(file))
		_ = reader.Close()
		if err != nil {
			return fmt.Errorf("input file %q: %w", file, err)
		}

		p.sets = append(p.sets, Set{Report: report, File: file})
	}

	p.l.Info("chart input parsed", slog.Int("parsed_files", len(files)))

	return nil
}

// ParseInput decodes all JSON documents of an input.
//
// A single chart descriptor is identified by id. When an input holds several descriptors,
// the second and following ones get a numbered suffix.
func (p *ChartParser) ParseInput(r io.Reader, id string) (model.Report, error) {
	dec := json.NewDecoder(r)
	report := make(model.Report, 0)
	var singles int

	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		if isDescriptor(raw) {
			var d model.ChartDescriptor
			if err := json.Unmarshal(raw, &d); err != nil {
				return nil, fmt.Errorf("decoding chart: %w", err)
			}

			uid := id
			if singles > 0 {
				uid += "-" + strconv.Itoa(singles+1)
			}
			singles++
			report = append(report, model.Entry{UID: uid, Chart: d})

			continue
		}

		var entries model.Report
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decoding report: %w", err)
		}
		report = append(report, entries...)
	}

	return report, nil
}

// Sets returns the parsed sets, in input order.
func (p *ChartParser) Sets() []Set {
	return p.sets
}

// Charts returns the charts of all parsed sets, in input order.
func (p *ChartParser) Charts() model.Report {
	var report model.Report
	for _, set := range p.sets {
		report = append(report, set.Report...)
	}

	return report
}

// Report produces a [ParsingReport], which allows for closer inspection of the content
// of parsed input.
func (p *ChartParser) Report() ParsingReport {
	const sensibleAllocs = 10
	r := ParsingReport{
		Signatures: make([]Signature, 0, sensibleAllocs),
	}
	seenFiles := make(map[string]struct{})
	seenTitles := make(map[string]struct{})

	for _, set := range p.sets {
		r.NumberOfSets++
		if _, seenFile := seenFiles[set.File]; !seenFile {
			seenFiles[set.File] = struct{}{}
			r.AnalyzedFiles = append(r.AnalyzedFiles, set.File)
		}

		for _, entry := range set.Report {
			d := entry.Chart
			if _, seenTitle := seenTitles[d.Title]; !seenTitle && d.Title != "" {
				seenTitles[d.Title] = struct{}{}
				r.Charts = append(r.Charts, d.Title)
			}

			signature := Signature{
				UID:        entry.UID,
				Title:      d.Title,
				ChartType:  d.Type(),
				TimeSeries: d.IsTimeSeries(),
				Keys:       countKeys(d),
				Origin:     set.File,
			}

			for _, s := range d.Series {
				if !s.HasData() {
					signature.Empty = append(signature.Empty, s.Title)

					continue
				}

				r.Series = append(r.Series, extractRange(entry.UID, s))
			}

			r.Signatures = append(r.Signatures, signature)
		}
	}

	sort.Strings(r.Charts)

	return r
}

func (p *ChartParser) stdinReader() io.Reader {
	if p.stdin == nil {
		return os.Stdin
	}

	return p.stdin
}

func extractRange(uid string, s model.SeriesDescriptor) MinMaxRange {
	m := MinMaxRange{
		Chart: uid,
		Title: s.Title,
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
	}

	for _, pair := range s.Data {
		if pair.Point.Value.IsNull() {
			m.Nulls++

			continue
		}

		v := pair.Point.Value.Float
		m.Count++
		m.Min = math.Min(m.Min, v)
		m.Max = math.Max(m.Max, v)
	}

	if m.Count == 0 {
		m.Min, m.Max = 0, 0
	}

	return m
}

func countKeys(d model.ChartDescriptor) int {
	keys := make(map[string]struct{})
	for _, s := range d.Series {
		for _, pair := range s.Data {
			keys[pair.Key.Ident()] = struct{}{}
		}
	}

	return len(keys)
}

// isDescriptor tells a single chart descriptor from a report keyed by UID.
func isDescriptor(raw json.RawMessage) bool {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}

	_, hasSeries := probe["series"]

	return hasSeries
}

// ChartID derives a chart id from a file path or a chart URL.
func ChartID(source string) string {
	if source == stdio || source == "" {
		return "chart"
	}

	base := strings.TrimSuffix(source, "/")
	if i := strings.LastIndex(base, "/@@"); i >= 0 { // a view on a content item
		base = base[:i]
	}
	base = path.Base(filepath.ToSlash(base))

	return strings.TrimSuffix(base, path.Ext(base))
}
