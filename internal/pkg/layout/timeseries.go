package layout

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/model"
)

// Unit is the calendar unit of an [Interval].
type Unit string

// Supported interval units.
const (
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

const (
	daysPerWeek      = 7
	monthsPerQuarter = 3
	monthsPerYear    = 12
)

// Interval is the spacing between two consecutive points of a time series.
type Interval struct {
	N    int
	Unit Unit
}

// IntervalFor maps a frequency to its interval. Unknown frequencies are monthly.
func IntervalFor(frequency string) Interval {
	switch frequency {
	case "weekly":
		return Interval{N: 1, Unit: UnitWeek}
	case "quarterly":
		return Interval{N: monthsPerQuarter, Unit: UnitMonth}
	case "yearly":
		return Interval{N: 1, Unit: UnitYear}
	default:
		return Interval{N: 1, Unit: UnitMonth}
	}
}

func (i Interval) String() string {
	return fmt.Sprintf("%d %s", i.N, i.Unit)
}

// Add applies the interval n times to t. n may be negative.
//
// Month and year arithmetic clamps the day to the end of the target month, so that
// Jan 31 + 1 month is Feb 28 (or 29).
func (i Interval) Add(t time.Time, n int) time.Time {
	steps := i.N * n

	switch i.Unit {
	case UnitWeek:
		return t.AddDate(0, 0, daysPerWeek*steps)
	case UnitYear:
		return addMonths(t, monthsPerYear*steps)
	default:
		return addMonths(t, steps)
	}
}

func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()

	return first.AddDate(0, 0, min(day, last)-1)
}

// TimeseriesRange returns the unpadded domain of a time series chart.
//
// Explicit start and end dates take precedence. Otherwise the domain spans the date keys of
// the rendered series. With auto_crop, points with a null value are ignored when looking for
// the end of the domain.
//
// It returns false when no bound can be determined.
func TimeseriesRange(d model.ChartDescriptor) (time.Time, time.Time, bool) {
	start, fixedStart := d.StartDate()
	end, fixedEnd := d.EndDate()
	hasStart, hasEnd := fixedStart, fixedEnd

	for _, s := range d.Rendered() {
		for _, pair := range s.Data {
			if !pair.Key.IsDate() {
				continue
			}
			date := pair.Key.Date

			if !fixedStart && (!hasStart || date.Before(start)) {
				start, hasStart = date, true
			}

			if fixedEnd || (bool(d.AutoCrop) && pair.Point.Value.IsNull()) {
				continue
			}

			if !hasEnd || date.After(end) {
				end, hasEnd = date, true
			}
		}
	}

	if !hasStart || !hasEnd {
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}

// PaddedTimeseriesRange pads [TimeseriesRange] by exactly one interval on each side.
func PaddedTimeseriesRange(d model.ChartDescriptor) (time.Time, time.Time, bool) {
	start, end, ok := TimeseriesRange(d)
	if !ok {
		return start, end, false
	}

	interval := IntervalFor(d.Frequency)

	return interval.Add(start, -1), interval.Add(end, 1), true
}

// Labels are custom x-axis labels, indexed by key identity.
type Labels map[string]string

// ParseLabels indexes the labels of a chart descriptor.
//
// Label keys are ISO dates or epoch timestamps in milliseconds. Other keys are
// kept as category names.
func ParseLabels(raw map[string]string) Labels {
	if len(raw) == 0 {
		return nil
	}

	labels := make(Labels, len(raw))
	for k, v := range raw {
		labels[labelKey(k).Ident()] = v
	}

	return labels
}

func labelKey(k string) model.Key {
	if date, err := model.ParseDate(k); err == nil {
		return model.DateKey(date)
	}

	if ms, err := strconv.ParseInt(k, 10, 64); err == nil {
		return model.DateKey(time.UnixMilli(ms))
	}

	return model.CategoryKey(k)
}

// BiggestLabel returns the length, in runes, of the longest label.
func BiggestLabel(labels Labels) int {
	var biggest int
	for _, v := range labels {
		biggest = max(biggest, len([]rune(v)))
	}

	return biggest
}

// CustomTickLabel returns the custom label of a date tick.
//
// Ticks past the end of the data are blanked. Known ticks get their label, right-aligned to
// the width of the biggest label. Other ticks are blanked. It returns false when the chart
// has no custom labels, in which case the default tick label applies.
func CustomTickLabel(labels Labels, tick, maxKey time.Time) (string, bool) {
	const blank = " "

	if tick.After(maxKey) {
		return blank, true
	}

	if labels == nil {
		return "", false
	}

	label, ok := labels[model.DateKey(tick).Ident()]
	if !ok {
		return blank, true
	}

	const padding = "        "
	padded := []rune(padding + label)
	width := min(BiggestLabel(labels), len(padded))

	return string(padded[len(padded)-width:]), true
}
