package beet

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestWriterAdvances(t *testing.T) {
	w := NewWriter(7)
	require.NoError(t, WriteValue(w, U8, 1))
	require.NoError(t, WriteValue(w, U16, 2))
	require.NoError(t, w.Write(EraseFixed(U32), uint32(3)))
	require.Equal(t, 7, w.Offset())
	require.Equal(t, []byte{1, 2, 0, 3, 0, 0, 0}, w.Buffer())

	err := WriteValue(w, U8, 4)
	require.True(t, errors.Is(err, ErrCapacityOverflow), "got %v", err)
	require.Equal(t, 7, w.Offset())
}

func TestReaderAdvances(t *testing.T) {
	r := NewReader([]byte{9, 1, 2, 0, 3, 0, 0, 0}, 1)
	a, err := ReadValue(r, U8)
	require.NoError(t, err)
	b, err := ReadValue(r, U16)
	require.NoError(t, err)
	c, err := r.Read(EraseFixed(U32))
	require.NoError(t, err)
	require.Equal(t, uint8(1), a)
	require.Equal(t, uint16(2), b)
	require.Equal(t, uint32(3), c)
	require.Equal(t, 8, r.Offset())

	_, err = ReadValue(r, U8)
	require.True(t, errors.Is(err, ErrMalformedBuffer), "got %v", err)
}

func TestErasedRejectsWrongType(t *testing.T) {
	c := EraseFixed(U16)
	err := c.Write(make([]byte, 2), 0, "nope")
	require.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)

	s := Erase[string](UTF8String)
	_, err = FixFromValue(s, any(42))
	require.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
}

func TestEraseIsIdempotent(t *testing.T) {
	once := EraseFixed(U8)
	require.Same(t, once, EraseFixed(once))
	require.Same(t, once, Erase(Codec[any](once)).(FixedCodec[any]))
}
