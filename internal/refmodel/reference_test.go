package refmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleCell(t *testing.T) {
	ref, err := Parse("B7")
	require.NoError(t, err)
	assert.Equal(t, Cell{Row: 6, Col: 1}, ref.Start)
	assert.Equal(t, ref.Start, ref.End)
	assert.False(t, ref.IsMultiCell())
}

func TestParseRange(t *testing.T) {
	ref, err := Parse("A1:C3")
	require.NoError(t, err)
	assert.Equal(t, Cell{Row: 0, Col: 0}, ref.Start)
	assert.Equal(t, Cell{Row: 2, Col: 2}, ref.End)
	assert.True(t, ref.IsMultiCell())
}

func TestParseInvertedRangeNormalizes(t *testing.T) {
	ref, err := Parse("C3:A1")
	require.NoError(t, err)
	assert.Equal(t, Cell{Row: 0, Col: 0}, ref.Start)
	assert.Equal(t, Cell{Row: 2, Col: 2}, ref.End)
}

func TestParseFullColumn(t *testing.T) {
	ref, err := Parse("C:C")
	require.NoError(t, err)
	assert.True(t, ref.FullCol)
	row, col, h, w := ref.Dimensions(10, 5)
	assert.Equal(t, 0, row)
	assert.Equal(t, 2, col)
	assert.Equal(t, 10, h)
	assert.Equal(t, 1, w)
}

func TestParseFullRow(t *testing.T) {
	ref, err := Parse("3:3")
	require.NoError(t, err)
	assert.True(t, ref.FullRow)
}

func TestParseMultiSheet(t *testing.T) {
	ref, err := Parse("Sheet1:Sheet3!A1")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", ref.SheetStart)
	assert.Equal(t, "Sheet3", ref.SheetEnd)
	assert.Equal(t, Cell{Row: 0, Col: 0}, ref.Start)
}

func TestParseAbsoluteMarkersAcceptedNotPreserved(t *testing.T) {
	ref, err := Parse("$B$7")
	require.NoError(t, err)
	assert.True(t, ref.Start.LockRow)
	assert.True(t, ref.Start.LockCol)
	assert.Equal(t, "B7", ref.String())
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("777")
	require.Error(t, err)
	var malformed *MalformedReferenceError
	assert.ErrorAs(t, err, &malformed)

	_, err = Parse("ABC")
	require.Error(t, err)
}

func TestRoundTripPreservesRegionModuloDollar(t *testing.T) {
	for _, text := range []string{"B7", "A1:C3", "AA10"} {
		ref, err := Parse(text)
		require.NoError(t, err)
		assert.Equal(t, text, ref.String())
	}
}

func TestColumnIndexRoundTrip(t *testing.T) {
	cases := map[string]int{"A": 0, "Z": 25, "AA": 26, "AB": 27}
	for letters, idx := range cases {
		got, err := ColumnToIndex(letters)
		require.NoError(t, err)
		assert.Equal(t, idx, got)
		assert.Equal(t, letters, IndexToColumn(idx))
	}
}

func TestCellsIteratesRowMajor(t *testing.T) {
	ref, err := Parse("A1:B2")
	require.NoError(t, err)
	cells := ref.Cells(10, 10)
	assert.Equal(t, []Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 1}}, cells)
}
