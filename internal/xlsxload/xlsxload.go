// Package xlsxload implements the XLSX-reading collaborator: a thin
// normalizer that opens a workbook file and populates sheetmodel raw
// cells, not a bit-exact XLSX format implementation.
package xlsxload

import (
	"strconv"
	"strings"

	"github.com/corvid-sheets/formulacalc/internal/sheetmodel"
	"github.com/corvid-sheets/formulacalc/internal/value"
	"github.com/xuri/excelize/v2"
)

// Loader opens a workbook file and returns its cells as a Workbook of
// raw (unevaluated) values, ready for internal/workbook's Wire phase.
type Loader interface {
	Load(path string) (*sheetmodel.Workbook, error)
}

// ExcelizeLoader is the default Loader, backed by excelize.
type ExcelizeLoader struct{}

// Load opens path with excelize, walks every sheet's rows, and
// populates a sheetmodel.Workbook: a cell string starting with "="
// becomes Formula(text with the "=" stripped); everything else is
// classified as Num, Bool, or Text.
func (ExcelizeLoader) Load(path string) (*sheetmodel.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb := sheetmodel.NewWorkbook()
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, err
		}
		maxCols := 0
		for _, row := range rows {
			if len(row) > maxCols {
				maxCols = len(row)
			}
		}
		idx := wb.AddSheet(name, len(rows), maxCols)
		sheet := wb.Sheet(idx)
		for r, row := range rows {
			for c, raw := range row {
				if raw == "" {
					continue
				}
				if strings.HasPrefix(raw, "=") {
					sheet.SetFormula(r, c, raw[1:])
					continue
				}
				sheet.Set(r, c, classify(raw))
			}
		}
	}
	return wb, nil
}

// classify turns a raw cell string (no leading "=") into a scalar
// Value: a number when it parses as one, TRUE/FALSE case-insensitively
// as a Bool, otherwise Text.
func classify(raw string) value.Value {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.Num(n)
	}
	switch strings.ToUpper(raw) {
	case "TRUE":
		return value.Bool(true)
	case "FALSE":
		return value.Bool(false)
	}
	return value.Text(raw)
}
