package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/corvid-sheets/formulacalc/internal/value"
)

// buildWorkbook writes a minimal xlsx file at dir/name.xlsx. Formula
// cells are written as literal strings ("=..." via SetCellStr) so
// xlsxload's GetRows-based reader sees exactly the raw formula text it
// expects, rather than a cached calculated value.
func buildWorkbook(t *testing.T, dir, name string, sheets map[string][][]string) string {
	t.Helper()
	f := excelize.NewFile()
	first := true
	for sheet, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
			first = false
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for r, row := range rows {
			for c, cell := range row {
				if cell == "" {
					continue
				}
				axis, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellStr(sheet, axis, cell))
			}
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

// captureStdout redirects os.Stdout for the duration of fn and returns
// what was written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	fn()
	require.NoError(t, w.Close())
	os.Stdout = old
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestLoadCommandSucceedsOnWellFormedWorkbook(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {{"1", "2"}},
	})
	assert.Equal(t, 0, loadCommand([]string{path}))
}

func TestLoadCommandFailsOnMissingFile(t *testing.T) {
	assert.Equal(t, 4, loadCommand([]string{filepath.Join(t.TempDir(), "missing.xlsx")}))
}

func TestLoadCommandUsageError(t *testing.T) {
	assert.Equal(t, 2, loadCommand(nil))
}

func TestSheetsCommandListsSheetsInOrder(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {{"1"}},
	})
	out := captureStdout(t, func() {
		assert.Equal(t, 0, sheetsCommand([]string{path}))
	})
	assert.Equal(t, "Sheet1\n", out)
}

func TestGetCommandReadsRawCell(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {{"42"}},
	})
	out := captureStdout(t, func() {
		assert.Equal(t, 0, getCommand([]string{path, "A1"}))
	})
	assert.Equal(t, "42\n", out)
}

func TestGetCommandUnknownSheetIsNotFound(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {{"1"}},
	})
	assert.Equal(t, 4, getCommand([]string{path, "Missing!A1"}))
}

func TestDepsCommandPrintsDotGraph(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {
			{"1"},
			{"=A1+1"},
		},
	})
	out := captureStdout(t, func() {
		assert.Equal(t, 0, depsCommand([]string{path}))
	})
	assert.Contains(t, out, "digraph dependencies {")
	assert.Contains(t, out, "->")
}

func TestOrderCommandPrintsTopologicalOrder(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {
			{"1"},
			{"=A1+1"},
			{"=A2*2"},
		},
	})
	out := captureStdout(t, func() {
		assert.Equal(t, 0, orderCommand([]string{path}))
	})
	lines := splitNonEmpty(out)
	require.Len(t, lines, 3)
	indexOf := func(s string) int {
		for i, l := range lines {
			if l == s {
				return i
			}
		}
		return -1
	}
	// CellId.String() is "sheet.row.col"; A1/A2/A3 on the first sheet
	// are 0.0.0, 0.1.0, 0.2.0.
	assert.Less(t, indexOf("0.0.0"), indexOf("0.1.0"))
	assert.Less(t, indexOf("0.1.0"), indexOf("0.2.0"))
}

func TestOrderCommandDetectsCycle(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {
			{"=A2"},
			{"=A1"},
		},
	})
	assert.Equal(t, 2, orderCommand([]string{path}))
}

func TestCalculateCommandSumAndAverage(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {
			{"1", "2", "true", "x"},
			{"=SUM(A1:D1)"},
			{"=AVERAGE(A1:D1)"},
		},
	})
	out := captureStdout(t, func() {
		assert.Equal(t, 0, calculateCommand([]string{path, "A2"}))
	})
	assert.Equal(t, "3\n", out)

	out = captureStdout(t, func() {
		assert.Equal(t, 0, calculateCommand([]string{path, "A3"}))
	})
	assert.Equal(t, "1.5\n", out)
}

func TestCalculateCommandUnsupportedFunctionExitsThree(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {
			{"=NOTAREALFUNCTION(1)"},
		},
	})
	assert.Equal(t, 3, calculateCommand([]string{path, "A1"}))
}

func TestCalculateCommandVolatileOffsetAcrossPasses(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {
			{"1"},
			{"7"},
			{"=OFFSET(A1,1,0,1,1)"},
		},
	})
	out := captureStdout(t, func() {
		assert.Equal(t, 0, calculateCommand([]string{path, "A3"}))
	})
	assert.Equal(t, "7\n", out)
}

func TestCalculateCommandCycleExitsTwo(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {
			{"=A2"},
			{"=A1"},
		},
	})
	assert.Equal(t, 2, calculateCommand([]string{path, "A1"}))
}

func TestCalculateCommandProgressFlagDoesNotAffectResult(t *testing.T) {
	path := buildWorkbook(t, t.TempDir(), "wb.xlsx", map[string][][]string{
		"Sheet1": {
			{"2", "3"},
			{"=A1*B1"},
		},
	})
	out := captureStdout(t, func() {
		assert.Equal(t, 0, calculateCommand([]string{"--progress", path, "A2"}))
	})
	assert.Equal(t, "6\n", out)
}

func TestDisplayValueArrayAndArray2(t *testing.T) {
	arr := value.Array([]value.Value{value.Num(1), value.Num(2)})
	assert.Equal(t, "1, 2", displayValue(arr))

	arr2 := value.Array2D([][]value.Value{
		{value.Num(1), value.Num(2)},
		{value.Num(3), value.Num(4)},
	})
	assert.Equal(t, "1, 2; 3, 4", displayValue(arr2))
}

func splitNonEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if s[start:i] != "" {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
