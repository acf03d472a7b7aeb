package beet

import (
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var bigComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

// fixedRoundTrip writes value at several offsets into exact and larger
// buffers and checks every read gives the value back.
func fixedRoundTrip[T any](t *testing.T, c FixedCodec[T], value T) {
	t.Helper()
	for _, offset := range []int{0, 4, 17} {
		for _, extra := range []int{0, 5} {
			buf := make([]byte, offset+c.ByteSize()+extra)
			require.NoError(t, c.Write(buf, offset, value))
			got, err := c.Read(buf, offset)
			require.NoError(t, err)
			if diff := cmp.Diff(value, got, bigComparer, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("%s at offset %d (-want +got):\n%s", c.Description(), offset, diff)
			}
		}
	}
}

// resolvedRoundTrip serializes value through the resolution engine, checks
// that resolving from the bytes agrees with resolving from the value and
// returns the encoding.
func resolvedRoundTrip[T any](t *testing.T, c Codec[T], value T, opts ...cmp.Option) []byte {
	t.Helper()
	fromValue, err := FixFromValue(c, value)
	require.NoError(t, err)

	data, err := Serialize(c, value)
	require.NoError(t, err)
	require.Len(t, data, fromValue.ByteSize())

	fromBytes, err := FixFromBytes(c, data, 0)
	require.NoError(t, err)
	require.Equal(t, fromValue.ByteSize(), fromBytes.ByteSize())
	require.Equal(t, fromValue.Description(), fromBytes.Description())

	opts = append(opts, bigComparer, cmpopts.EquateEmpty())
	for _, offset := range []int{0, 3} {
		buf := make([]byte, offset+len(data)+2)
		copy(buf[offset:], data)
		got, next, err := Deserialize(c, buf, offset)
		require.NoError(t, err)
		require.Equal(t, offset+len(data), next)
		if diff := cmp.Diff(value, got, opts...); diff != "" {
			t.Fatalf("%s at offset %d (-want +got):\n%s", c.Description(), offset, diff)
		}
	}
	return data
}

func ptr[T any](v T) *T { return &v }
