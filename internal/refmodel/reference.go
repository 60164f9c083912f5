// Package refmodel parses and serializes A1-style cell and range
// references and provides the dimension math the rest of the engine
// builds on.
package refmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Infinite is used as the height/width of an unbounded full-column or
// full-row reference before it is clamped to a sheet's extent.
const Infinite = 1<<31 - 1

// MalformedReferenceError is raised when a reference string has no
// column letters, no digits, or an end-cell that cannot be ordered
// against the start-cell.
type MalformedReferenceError struct {
	Text string
	Msg  string
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("malformed reference %q: %s", e.Text, e.Msg)
}

// Cell is a zero-based (row, column) address.
type Cell struct {
	Row     int
	Col     int
	LockRow bool // "$" before the row component, accepted but not preserved on re-serialization
	LockCol bool // "$" before the column component
}

// Reference is a rectangular region within one sheet, or a span of
// sheets qualified by a leading "Sheet1:Sheet3!" prefix.
type Reference struct {
	SheetStart string // "" when unqualified (defaults to the owning cell's sheet)
	SheetEnd   string // "" unless the reference spans multiple sheets
	Start      Cell
	End        Cell // equals Start for a single-cell reference
	FullCol    bool
	FullRow    bool
}

// Parse parses an A1-style reference such as "B7", "A1:C3", "C:C",
// "3:3", or "Sheet1:Sheet3!A1". "$" markers are accepted and recorded
// on the relevant Cell but dropped by String.
func Parse(text string) (Reference, error) {
	raw := text
	var ref Reference

	if bang := strings.LastIndex(text, "!"); bang >= 0 {
		sheetPart := text[:bang]
		text = text[bang+1:]
		if colon := strings.Index(sheetPart, ":"); colon >= 0 {
			ref.SheetStart = sheetPart[:colon]
			ref.SheetEnd = sheetPart[colon+1:]
		} else {
			ref.SheetStart = sheetPart
		}
		if ref.SheetStart == "" {
			return Reference{}, &MalformedReferenceError{raw, "empty sheet name"}
		}
	}

	parts := strings.SplitN(text, ":", 2)
	switch len(parts) {
	case 1:
		start, err := parseCell(parts[0])
		if err != nil {
			return Reference{}, &MalformedReferenceError{raw, err.Error()}
		}
		ref.Start, ref.End = start, start
	case 2:
		if err := parseRangePair(&ref, parts[0], parts[1], raw); err != nil {
			return Reference{}, err
		}
	}

	normalize(&ref)
	return ref, nil
}

func parseRangePair(ref *Reference, left, right, raw string) error {
	// full-row: "3:3"
	if isAllDigits(left) && isAllDigits(right) {
		r1, err1 := strconv.Atoi(left)
		r2, err2 := strconv.Atoi(right)
		if err1 != nil || err2 != nil {
			return &MalformedReferenceError{raw, "bad row bound"}
		}
		ref.FullRow = true
		ref.Start = Cell{Row: r1 - 1, Col: 0}
		ref.End = Cell{Row: r2 - 1, Col: Infinite}
		return nil
	}
	// full-column: "C:C"
	if isAllLetters(left) && isAllLetters(right) {
		c1, err1 := ColumnToIndex(left)
		c2, err2 := ColumnToIndex(right)
		if err1 != nil || err2 != nil {
			return &MalformedReferenceError{raw, "bad column bound"}
		}
		ref.FullCol = true
		ref.Start = Cell{Row: 0, Col: c1}
		ref.End = Cell{Row: Infinite, Col: c2}
		return nil
	}
	start, err := parseCell(left)
	if err != nil {
		return &MalformedReferenceError{raw, err.Error()}
	}
	end, err := parseCell(right)
	if err != nil {
		return &MalformedReferenceError{raw, err.Error()}
	}
	ref.Start, ref.End = start, end
	return nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAllLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// parseCell parses a single cell like "$B$7", "B7", "$B7".
func parseCell(text string) (Cell, error) {
	var c Cell
	i := 0
	if i < len(text) && text[i] == '$' {
		c.LockCol = true
		i++
	}
	letterStart := i
	for i < len(text) && text[i] >= 'A' && text[i] <= 'Z' {
		i++
	}
	if i == letterStart {
		return Cell{}, fmt.Errorf("no column letters")
	}
	col, err := ColumnToIndex(text[letterStart:i])
	if err != nil {
		return Cell{}, err
	}
	if i < len(text) && text[i] == '$' {
		c.LockRow = true
		i++
	}
	digitStart := i
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i == digitStart || i != len(text) {
		return Cell{}, fmt.Errorf("no row digits")
	}
	row, err := strconv.Atoi(text[digitStart:i])
	if err != nil || row < 1 {
		return Cell{}, fmt.Errorf("invalid row number")
	}
	c.Row = row - 1
	c.Col = col
	return c, nil
}

// normalize swaps Start/End so Start <= End componentwise.
func normalize(ref *Reference) {
	if ref.Start.Row > ref.End.Row {
		ref.Start.Row, ref.End.Row = ref.End.Row, ref.Start.Row
	}
	if ref.Start.Col > ref.End.Col {
		ref.Start.Col, ref.End.Col = ref.End.Col, ref.Start.Col
	}
}

// ColumnToIndex converts a base-26 column letter string ("A", "AA")
// to a zero-based column index.
func ColumnToIndex(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("empty column")
	}
	col := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column letter %q", r)
		}
		col = col*26 + int(r-'A'+1)
	}
	return col - 1, nil
}

// IndexToColumn converts a zero-based column index to base-26 letters.
func IndexToColumn(idx int) string {
	idx++ // 1-based
	var buf []byte
	for idx > 0 {
		idx--
		buf = append([]byte{byte('A' + idx%26)}, buf...)
		idx /= 26
	}
	return string(buf)
}

// String renders the reference in A1 form. "$" lock markers are
// dropped per the documented non-preservation.
func (r Reference) String() string {
	var b strings.Builder
	if r.SheetStart != "" {
		b.WriteString(r.SheetStart)
		if r.SheetEnd != "" {
			b.WriteString(":")
			b.WriteString(r.SheetEnd)
		}
		b.WriteString("!")
	}
	switch {
	case r.FullRow:
		fmt.Fprintf(&b, "%d:%d", r.Start.Row+1, r.End.Row+1)
	case r.FullCol:
		fmt.Fprintf(&b, "%s:%s", IndexToColumn(r.Start.Col), IndexToColumn(r.End.Col))
	case r.IsMultiCell():
		fmt.Fprintf(&b, "%s%d:%s%d", IndexToColumn(r.Start.Col), r.Start.Row+1, IndexToColumn(r.End.Col), r.End.Row+1)
	default:
		fmt.Fprintf(&b, "%s%d", IndexToColumn(r.Start.Col), r.Start.Row+1)
	}
	return b.String()
}

// IsMultiCell reports whether the reference spans more than one cell.
func (r Reference) IsMultiCell() bool {
	return r.Start.Row != r.End.Row || r.Start.Col != r.End.Col
}

// Dimensions returns (startRow, startCol, height, width), clamping any
// unbounded full-row/full-column extent to the given sheet bounds.
func (r Reference) Dimensions(maxRows, maxCols int) (row, col, height, width int) {
	row, col = r.Start.Row, r.Start.Col
	endRow, endCol := r.End.Row, r.End.Col
	if endRow >= maxRows {
		endRow = maxRows - 1
	}
	if endCol >= maxCols {
		endCol = maxCols - 1
	}
	if endRow < row {
		endRow = row
	}
	if endCol < col {
		endCol = col
	}
	return row, col, endRow - row + 1, endCol - col + 1
}

// Offset returns a copy of r shifted by (dRow, dCol).
func (r Reference) Offset(dRow, dCol int) Reference {
	out := r
	out.Start.Row += dRow
	out.Start.Col += dCol
	out.End.Row += dRow
	out.End.Col += dCol
	return out
}

// Cells iterates every (row, col) pair within the clamped region, in
// row-major order.
func (r Reference) Cells(maxRows, maxCols int) []Cell {
	row, col, h, w := r.Dimensions(maxRows, maxCols)
	cells := make([]Cell, 0, h*w)
	for dr := 0; dr < h; dr++ {
		for dc := 0; dc < w; dc++ {
			cells = append(cells, Cell{Row: row + dr, Col: col + dc})
		}
	}
	return cells
}
