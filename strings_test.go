package beet

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestFixedSizeString(t *testing.T) {
	c := FixedSizeUTF8String(4)
	require.Equal(t, 8, c.ByteSize())
	fixedRoundTrip(t, c, "abcd")

	buf := make([]byte, 8)
	require.NoError(t, c.Write(buf, 0, "abcd"))
	require.Equal(t, []byte{4, 0, 0, 0, 'a', 'b', 'c', 'd'}, buf)

	err := c.Write(buf, 0, "abc")
	require.True(t, errors.Is(err, ErrSizeMismatch), "got %v", err)

	buf[0] = 5
	_, err = c.Read(buf, 0)
	require.True(t, errors.Is(err, ErrMalformedBuffer), "got %v", err)
}

func TestUnprefixedString(t *testing.T) {
	c := UnprefixedUTF8String(3)
	require.Equal(t, 3, c.ByteSize())
	fixedRoundTrip(t, c, "héé"[:3])

	_, err := c.Read([]byte{0xff, 0xfe, 0xfd}, 0)
	require.True(t, errors.Is(err, ErrMalformedBuffer), "got %v", err)
}

func TestUTF8String(t *testing.T) {
	for _, s := range []string{"", "a", "hello world", "日本語"} {
		data := resolvedRoundTrip[string](t, UTF8String, s)
		require.Len(t, data, 4+len(s))
	}

	_, err := UTF8String.FromBytes([]byte{9, 0, 0, 0, 'a'}, 0)
	require.True(t, errors.Is(err, ErrMalformedBuffer), "got %v", err)

	_, err = UTF8String.FromBytes([]byte{1, 0}, 0)
	require.True(t, errors.Is(err, ErrMalformedBuffer), "got %v", err)
}

func TestFixedSizeBytes(t *testing.T) {
	c := FixedSizeBytes(3)
	require.Equal(t, 3, c.ByteSize())
	fixedRoundTrip(t, c, []byte{1, 2, 3})

	err := c.Write(make([]byte, 3), 0, []byte{1})
	require.True(t, errors.Is(err, ErrSizeMismatch), "got %v", err)

	src := []byte{7, 8, 9}
	got, err := c.Read(src, 0)
	require.NoError(t, err)
	src[0] = 0
	require.Equal(t, []byte{7, 8, 9}, got)
}

func TestPrefixedBytes(t *testing.T) {
	c := FixedSizePrefixedBytes(2)
	require.Equal(t, 6, c.ByteSize())
	fixedRoundTrip(t, c, []byte{0xaa, 0xbb})

	data := resolvedRoundTrip[[]byte](t, Bytes, []byte{1, 2, 3, 4, 5})
	require.Equal(t, []byte{5, 0, 0, 0, 1, 2, 3, 4, 5}, data)
	resolvedRoundTrip[[]byte](t, Bytes, []byte{})
}
