package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArithmeticAddition(t *testing.T) {
	assert.Equal(t, Num(3), Binary(OpAdd, Num(1), Num(2)))
}

func TestAdditionCommutative(t *testing.T) {
	a, b := Num(5), Num(9.5)
	assert.Equal(t, Binary(OpAdd, a, b), Binary(OpAdd, b, a))
}

func TestConcatNonCommutative(t *testing.T) {
	a, b := Text("a"), Text("b")
	ab := Binary(OpConcat, a, b)
	ba := Binary(OpConcat, b, a)
	assert.NotEqual(t, ab, ba)
	assert.Equal(t, "ab", ab.Text)
}

func TestPlusOnTextConcatenates(t *testing.T) {
	got := Binary(OpAdd, Text("foo"), Text("bar"))
	assert.Equal(t, Text("foobar"), got)
}

func TestDivisionByZeroIsDivError(t *testing.T) {
	got := Binary(OpDiv, Num(1), Num(0))
	assert.True(t, got.IsError())
	assert.Equal(t, ErrDiv, got.ErrorKind)
}

func TestErrorPropagatesThroughArithmetic(t *testing.T) {
	e := Err(ErrValue)
	assert.Equal(t, e, Binary(OpAdd, e, Num(1)))
	assert.Equal(t, e, Binary(OpAdd, Num(1), e))
}

func TestBoolCoercesToNumberInArithmetic(t *testing.T) {
	got := Binary(OpAdd, Bool(true), Num(1))
	assert.Equal(t, Num(2), got)
}

func TestBroadcastScalarOverArray(t *testing.T) {
	arr := Array([]Value{Num(1), Num(2), Num(3)})
	got := Binary(OpAdd, arr, Num(10))
	assert.Equal(t, Array([]Value{Num(11), Num(12), Num(13)}), got)
}

func TestBroadcastMismatchedArraysError(t *testing.T) {
	a := Array([]Value{Num(1), Num(2)})
	b := Array([]Value{Num(1), Num(2), Num(3)})
	got := Binary(OpAdd, a, b)
	assert.True(t, got.IsError())
	assert.Equal(t, ErrValue, got.ErrorKind)
}

func TestOrderingHeterogeneousRank(t *testing.T) {
	cmp, ok := Order(Bool(true), Text("a"))
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestOrderingNaNIncomparable(t *testing.T) {
	nan := Num(math.NaN())
	_, ok := Order(nan, Num(1))
	assert.False(t, ok)
}

func TestFlattenTreatsArray2LikeArray(t *testing.T) {
	arr2 := Array2D([][]Value{{Num(1), Num(2)}, {Num(3), Num(4)}})
	flat := Flatten(arr2)
	assert.Len(t, flat, 4)
}

func TestUnwrap1x1(t *testing.T) {
	single := Array2D([][]Value{{Num(42)}})
	assert.Equal(t, Num(42), Unwrap1x1(single))
}
