package datatable

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fredbi/chartviz/internal/pkg/model"
	"github.com/xuri/excelize/v2"
)

const (
	maxSheetName  = 31
	firstSheet    = "Sheet1"
	invalidSheets = `:\/?*[]`
)

// WriteWorkbook writes the data of a report as a spreadsheet workbook, one sheet per chart.
//
// A sheet starts with the chart title, followed by one block per rendered series: the series
// title, the column names, then one row per data point. Blocks are separated by a blank row.
func WriteWorkbook(w io.Writer, report model.Report) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	names := make(map[string]struct{}, len(report))

	for i, entry := range report {
		sheet := sheetName(entry.Chart.Title, entry.UID, names)

		if i == 0 {
			if err := f.SetSheetName(firstSheet, sheet); err != nil {
				return fmt.Errorf("naming sheet %q: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("adding sheet %q: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, entry.Chart); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}

func writeSheet(f *excelize.File, sheet string, d model.ChartDescriptor) error {
	row := 1
	if err := setRow(f, sheet, row, d.Title); err != nil {
		return err
	}
	row += 2

	for _, t := range ForChart(d) {
		if err := setRow(f, sheet, row, t.Title); err != nil {
			return err
		}
		row++

		fields := t.Fields()
		header := make([]any, len(fields))
		for i, field := range fields {
			header[i] = field
		}
		if err := setRow(f, sheet, row, header...); err != nil {
			return err
		}
		row++

		for _, r := range t.Rows {
			var value any
			if !r.Value.IsNull() {
				value = t.RoundValue(r.Value.Float)
			}

			if err := setRow(f, sheet, row, r.Key, value, r.Note, r.URI); err != nil {
				return err
			}
			row++
		}

		row++
	}

	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("sheet %q: %w", sheet, err)
	}

	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("sheet %q, row %d: %w", sheet, row, err)
	}

	return nil
}

// sheetName derives a unique, valid sheet name from a chart title, falling back to its UID.
func sheetName(title, uid string, taken map[string]struct{}) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidSheets, r) {
			return '_'
		}

		return r
	}, strings.TrimSpace(title))

	name = strings.Trim(name, "'")
	if name == "" {
		name = uid
	}
	if name == "" {
		name = "Chart"
	}
	name = truncate(name, maxSheetName)

	base := name
	for n := 2; ; n++ {
		if _, exists := taken[strings.ToLower(name)]; !exists {
			break
		}

		suffix := " (" + strconv.Itoa(n) + ")"
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	taken[strings.ToLower(name)] = struct{}{}

	return name
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}
