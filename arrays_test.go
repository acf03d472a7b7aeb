package beet

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestUniformFixedSizeArray(t *testing.T) {
	plain := UniformFixedSizeArray(U8, 3, false)
	require.Equal(t, 3, plain.ByteSize())
	fixedRoundTrip[[]uint8](t, plain, []uint8{1, 2, 3})

	prefixed := UniformFixedSizeArray(U8, 3, true)
	require.Equal(t, 7, prefixed.ByteSize())
	buf := make([]byte, 7)
	require.NoError(t, prefixed.Write(buf, 0, []uint8{1, 2, 3}))
	require.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3}, buf)

	err := plain.Write(buf, 0, []uint8{1})
	require.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)

	buf[0] = 2
	_, err = prefixed.Read(buf, 0)
	require.True(t, errors.Is(err, ErrMalformedBuffer), "got %v", err)
}

func TestUniformFixedArrayIsComposite(t *testing.T) {
	var c Composite[[]uint16, uint16] = UniformFixedSizeArray(U16, 2, true)
	require.Equal(t, "u16", c.Inner().Description())
	rebuilt := c.WithFixedInner(U16)
	require.Equal(t, 8, rebuilt.ByteSize())
}

func TestArrayOfFixedElements(t *testing.T) {
	c := Array[uint16](U16)
	data := resolvedRoundTrip(t, c, []uint16{1, 2})
	require.Equal(t, []byte{2, 0, 0, 0, 1, 0, 2, 0}, data)

	data = resolvedRoundTrip(t, c, []uint16{})
	require.Equal(t, []byte{0, 0, 0, 0}, data)
}

func TestArrayOfStrings(t *testing.T) {
	c := Array[string](UTF8String)
	value := []string{"a", "bb", "ccc"}

	fixed, err := c.FromValue(value)
	require.NoError(t, err)
	require.Equal(t, 22, fixed.ByteSize())

	data := resolvedRoundTrip(t, c, value)
	require.Len(t, data, 22)

	fromBytes, err := c.FromBytes(data, 0)
	require.NoError(t, err)
	require.Equal(t, 22, fromBytes.ByteSize())
	got, err := fromBytes.Read(data, 0)
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestNestedArrays(t *testing.T) {
	c := Array[[]string](Array[string](UTF8String))
	resolvedRoundTrip(t, c, [][]string{{"x"}, {}, {"yy", "zzz"}})
}

func TestArrayRejectsLyingCount(t *testing.T) {
	_, err := Array[uint32](U32).FromBytes([]byte{200, 0, 0, 0, 1, 2, 3, 4}, 0)
	require.True(t, errors.Is(err, ErrMalformedBuffer), "got %v", err)

	_, err = Array[string](UTF8String).FromBytes([]byte{3, 0, 0, 0, 1, 0, 0, 0, 'a'}, 0)
	require.True(t, errors.Is(err, ErrMalformedBuffer), "got %v", err)
}

func TestUniformArrayOfFixableElements(t *testing.T) {
	c := UniformArray[string](UTF8String, 2, false)
	require.Equal(t, KindFixable, c.Kind())

	same, err := FixFromValue(c, []string{"ab", "cd"})
	require.NoError(t, err)
	require.Equal(t, 12, same.ByteSize())

	mixed, err := FixFromValue(c, []string{"a", "bcd"})
	require.NoError(t, err)
	require.Equal(t, 12, mixed.ByteSize())

	resolvedRoundTrip(t, c, []string{"a", "bcd"})
	resolvedRoundTrip(t, UniformArray[string](UTF8String, 2, true), []string{"q", "r"})

	_, err = FixFromValue(c, []string{"a"})
	require.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
}

func pairCodec(t *testing.T) *FixableStruct[Record] {
	t.Helper()
	c, err := NewFixableArgsStruct("Pair", []Field[Record]{
		ArgsField[string]("a", UTF8String),
		ArgsField[string]("b", UTF8String),
	})
	require.NoError(t, err)
	return c
}

// Both pairs resolve to 11 bytes but split them differently between fields.
func TestUniformArrayOfEqualSizedLayouts(t *testing.T) {
	pair := pairCodec(t)
	left := Record{"a": "x", "b": "yy"}
	right := Record{"a": "xx", "b": "y"}

	structs := UniformArray[Record](pair, 2, false)
	data := resolvedRoundTrip(t, structs, []Record{left, right})
	require.Equal(t, []byte{
		1, 0, 0, 0, 'x', 2, 0, 0, 0, 'y', 'y',
		2, 0, 0, 0, 'x', 'x', 1, 0, 0, 0, 'y',
	}, data)

	options := UniformArray[*Record](Option[Record](pair), 2, true)
	resolvedRoundTrip(t, options, []*Record{&left, &right})

	enum, err := NewDataEnum("Shape", []EnumVariant{Variant[Record]("Pair", pair)})
	require.NoError(t, err)
	variants := UniformArray[EnumValue](enum, 2, false)
	resolvedRoundTrip(t, variants, []EnumValue{{Kind: "Pair", Data: left}, {Kind: "Pair", Data: right}})
}

func TestUniformArrayOfFixedElements(t *testing.T) {
	c := UniformArray[int32](I32, 2, false)
	require.Equal(t, KindFixed, c.Kind())
	data := resolvedRoundTrip(t, c, []int32{-1, 1})
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 1, 0, 0, 0}, data)
}

func TestFixedSizeTuple(t *testing.T) {
	c := FixedSizeTuple(EraseFixed(U8), EraseFixed(I16))
	require.Equal(t, 3, c.ByteSize())
	buf := make([]byte, 3)
	require.NoError(t, c.Write(buf, 0, []any{uint8(1), int16(-1)}))
	require.Equal(t, []byte{1, 0xff, 0xff}, buf)
	fixedRoundTrip(t, c, []any{uint8(9), int16(300)})

	err := c.Write(buf, 0, []any{uint8(1)})
	require.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	err = c.Write(buf, 0, []any{"x", int16(1)})
	require.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
}

func TestTuple(t *testing.T) {
	fixed := Tuple(Erase[uint8](U8), Erase[bool](Bool))
	require.Equal(t, KindFixed, fixed.Kind())

	c := Tuple(Erase[string](UTF8String), Erase[uint8](U8))
	require.Equal(t, KindFixable, c.Kind())
	data := resolvedRoundTrip(t, c, []any{"hey", uint8(5)})
	require.Equal(t, []byte{3, 0, 0, 0, 'h', 'e', 'y', 5}, data)

	_, err := FixFromValue(c, []any{"hey"})
	require.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
}
