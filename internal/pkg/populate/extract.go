package populate

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/model"
)

// Populator errors.
var (
	ErrUnknownGroup        = errors.New("unknown group")
	ErrIncompleteSelection = errors.New("at least one dataset and one measure must be selected")
)

// Chart kinds created from a selection.
const (
	KindTimeSeries = "timeseries"
	KindNamed      = "named"
)

const (
	goalColor    = "#ff0000"
	labelDefault = "abbr+year"
)

// ChartSpec describes a chart to create for a selected measure.
type ChartSpec struct {
	MeasureUID      string
	Kind            string
	ChartType       model.ChartType
	Title           string
	Goal            *float64
	ShowGoal        bool
	GoalColor       string
	LegendPlacement string
	PointLabels     string
	LabelDefault    string
}

// SeriesSpec describes a series to create in each chart, for a selected dataset.
type SeriesSpec struct {
	DatasetUID string
	Title      string
}

// Selection is the content of a submitted population form: one chart per measure, each with
// one series per dataset.
type Selection struct {
	Charts []ChartSpec
	Series []SeriesSpec
}

// ExtractSelection reads the charts and series to create from a submitted form.
//
// Form fields are:
//   - selected_measures, selected_datasets: the selected UIDs;
//   - charttype-<uid>: runchart-line (default) or runchart-bar for time series, any other
//     value for a chart of named series;
//   - goal-<uid>: the goal of a measure;
//   - tabular_legend: the UIDs of the measures charted with a tabular legend;
//   - title-<uid>: the title of a chart or series.
//
// Zope-style ":list" suffixes on field names are accepted.
func ExtractSelection(form url.Values) (Selection, error) {
	measures := formList(form, "selected_measures")
	datasets := formList(form, "selected_datasets")
	if len(measures) == 0 || len(datasets) == 0 {
		return Selection{}, ErrIncompleteSelection
	}

	tabular := formList(form, "tabular_legend")
	sel := Selection{
		Charts: make([]ChartSpec, 0, len(measures)),
		Series: make([]SeriesSpec, 0, len(datasets)),
	}

	for _, uid := range measures {
		spec, err := chartSpec(form, uid, slices.Contains(tabular, uid))
		if err != nil {
			return Selection{}, err
		}
		sel.Charts = append(sel.Charts, spec)
	}

	for _, uid := range datasets {
		sel.Series = append(sel.Series, SeriesSpec{DatasetUID: uid, Title: form.Get("title-" + uid)})
	}

	return sel, nil
}

func chartSpec(form url.Values, uid string, tabular bool) (ChartSpec, error) {
	chartType := form.Get("charttype-" + uid)
	if chartType == "" {
		chartType = defaultChartType
	}

	spec := ChartSpec{
		MeasureUID: uid,
		Kind:       KindNamed,
		ChartType:  model.ChartLine,
		Title:      form.Get("title-" + uid),
	}

	if strings.Contains(chartType, "runchart") {
		spec.Kind = KindTimeSeries
		spec.LabelDefault = labelDefault
	}

	if strings.HasSuffix(chartType, "bar") {
		spec.ChartType = model.ChartBar
	}

	if raw := strings.TrimSpace(form.Get("goal-" + uid)); raw != "" {
		goal, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ChartSpec{}, fmt.Errorf("goal of measure %q: %w", uid, err)
		}

		spec.Goal = &goal
		spec.ShowGoal = true
		spec.GoalColor = goalColor
	}

	if tabular {
		spec.LegendPlacement = string(config.LegendTabular)
		spec.PointLabels = model.LabelsOmit
	}

	return spec, nil
}

// Descriptors returns the skeleton descriptors of the charts of a selection: chart settings
// and series titles, without data.
func (s Selection) Descriptors() []model.ChartDescriptor {
	descriptors := make([]model.ChartDescriptor, 0, len(s.Charts))

	for _, spec := range s.Charts {
		d := model.ChartDescriptor{
			Title:           spec.Title,
			ChartType:       spec.ChartType,
			Goal:            spec.Goal,
			GoalColor:       spec.GoalColor,
			LegendPlacement: spec.LegendPlacement,
			PointLabels:     spec.PointLabels,
			Series:          make([]model.SeriesDescriptor, 0, len(s.Series)),
		}

		if spec.Kind == KindTimeSeries {
			d.XAxisType = model.AxisDate
		}

		for _, series := range s.Series {
			d.Series = append(d.Series, model.SeriesDescriptor{Title: series.Title})
		}

		descriptors = append(descriptors, d)
	}

	return descriptors
}

func formList(form url.Values, name string) []string {
	values := slices.Clone(form[name])

	return append(values, form[name+":list"]...)
}
