// Package sheetmodel holds the ordered, sparse cell store that
// backs a workbook: sheets of raw values (mostly Formula(text), Num,
// Text, Bool, Empty) plus the bounds and name the rest of the engine
// needs to resolve references against.
package sheetmodel

import "github.com/corvid-sheets/formulacalc/internal/value"

// CellKey is the sparse-map key for a single cell within one sheet.
type CellKey struct {
	Row, Col int
}

// Sheet is an ordered (row, column)-indexed store of raw Values.
type Sheet struct {
	Name     string
	MaxRows  int
	MaxCols  int
	cells    map[CellKey]value.Value
	formulas map[CellKey]string // raw formula text (without leading "="), kept alongside the cached computed Value
}

// New constructs an empty sheet with the given bounds.
func New(name string, maxRows, maxCols int) *Sheet {
	return &Sheet{
		Name:     name,
		MaxRows:  maxRows,
		MaxCols:  maxCols,
		cells:    make(map[CellKey]value.Value),
		formulas: make(map[CellKey]string),
	}
}

// Get returns the stored value at (row, col), or Empty if the cell
// has never been set.
func (s *Sheet) Get(row, col int) value.Value {
	if v, ok := s.cells[CellKey{row, col}]; ok {
		return v
	}
	return value.Empty()
}

// Set stores v as the raw or computed value of (row, col), growing
// MaxRows/MaxCols if needed.
func (s *Sheet) Set(row, col int, v value.Value) {
	s.cells[CellKey{row, col}] = v
	if row+1 > s.MaxRows {
		s.MaxRows = row + 1
	}
	if col+1 > s.MaxCols {
		s.MaxCols = col + 1
	}
}

// SetFormula stores the raw (leading-"=" stripped) formula text for
// (row, col), independent of whatever computed Value currently sits
// there.
func (s *Sheet) SetFormula(row, col int, text string) {
	s.formulas[CellKey{row, col}] = text
}

// Formula returns the raw formula text at (row, col), if any.
func (s *Sheet) Formula(row, col int) (string, bool) {
	f, ok := s.formulas[CellKey{row, col}]
	return f, ok
}

// FormulaCells returns every (row, col) that currently holds a
// formula, in row-major order — used by the orchestrator's Wire
// phase to build the dependency graph.
func (s *Sheet) FormulaCells() []CellKey {
	keys := make([]CellKey, 0, len(s.formulas))
	for k := range s.formulas {
		keys = append(keys, k)
	}
	sortRowMajor(keys)
	return keys
}

func sortRowMajor(keys []CellKey) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && less(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

func less(a, b CellKey) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}
