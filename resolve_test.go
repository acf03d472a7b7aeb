package beet

import (
	"testing"
	"testing/quick"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestResolutionAgreementQuick(t *testing.T) {
	strs := Array[string](UTF8String)
	opts := Option[[]byte](Bytes)
	tuple := Tuple(Erase[string](UTF8String), Erase[[]uint16](Array[uint16](U16)), Erase[*int64](Option[int64](I64)))
	lookup := Map[string, []string](UTF8String, strs)

	check := func(a []string, b []byte, present bool, c []uint16, d int64, key string) bool {
		resolvedRoundTrip(t, strs, a)
		var o *[]byte
		if present {
			o = &b
		}
		resolvedRoundTrip(t, opts, o)
		var p *int64
		if present {
			p = &d
		}
		resolvedRoundTrip(t, tuple, []any{key, c, p})
		resolvedRoundTrip(t, lookup, map[string][]string{key: a})
		return true
	}
	if err := quick.Check(check, &quick.Config{MaxCount: 50}); err != nil {
		t.Errorf("Error: %v", err)
	}
}

func TestResolutionIsInsideOut(t *testing.T) {
	c := Option[[]string](Array[string](UTF8String))
	fixed, err := FixFromValue(c, ptr([]string{"a", "bb", "ccc"}))
	require.NoError(t, err)
	require.Equal(t, 1+22, fixed.ByteSize())

	data, err := Serialize(c, ptr([]string{"a", "bb", "ccc"}))
	require.NoError(t, err)
	fromBytes, err := FixFromBytes(c, data, 0)
	require.NoError(t, err)
	require.Equal(t, fixed.Description(), fromBytes.Description())
}

func TestFixedCodecsResolveToThemselves(t *testing.T) {
	c := Codec[uint32](U32)
	fromValue, err := FixFromValue(c, 1)
	require.NoError(t, err)
	fromBytes, err := FixFromBytes(c, nil, 0)
	require.NoError(t, err)
	require.Same(t, U32, fromValue)
	require.Same(t, U32, fromBytes)
}

// mislabeled claims to be fixed but has no fixed layout.
type mislabeled struct{}

func (mislabeled) Kind() Kind          { return KindFixed }
func (mislabeled) encodes(uint8)       {}
func (mislabeled) Description() string { return "mislabeled" }

func TestKindMismatchIsAnError(t *testing.T) {
	var c Codec[uint8] = mislabeled{}

	_, err := FixFromValue(c, 1)
	require.True(t, errors.HasAssertionFailure(err), "got %v", err)

	erased := Erase(c)
	_, err = FixFromValue[any](erased, uint8(1))
	require.True(t, errors.HasAssertionFailure(err), "got %v", err)
	require.Equal(t, "mislabeled", erased.Description())

	converted := Convert(c,
		func(v int) (uint8, error) { return uint8(v), nil },
		func(v uint8) (int, error) { return int(v), nil })
	_, err = FixFromBytes(converted, []byte{1}, 0)
	require.True(t, errors.HasAssertionFailure(err), "got %v", err)
	_, err = Serialize(converted, 1)
	require.ErrorContains(t, err, "fixed kind without a fixed layout")
}

func FuzzStringArray(f *testing.F) {
	f.Add("a", "bb", "ccc")
	f.Fuzz(func(t *testing.T, a, b, c string) {
		value := []string{a, b, c}
		codec := Array[string](UTF8String)
		data, err := Serialize(codec, value)
		if err != nil {
			// invalid UTF-8 input is rejected on write
			return
		}
		got, next, err := Deserialize(codec, data, 0)
		require.NoError(t, err)
		require.Equal(t, len(data), next)
		require.Equal(t, value, got)
	})
}

func FuzzDecodeArbitraryBytes(f *testing.F) {
	f.Add([]byte{3, 0, 0, 0, 1, 0, 0, 0, 'a', 0, 0, 0, 0, 1, 0, 0, 0, 'b'})
	f.Add([]byte{255, 255, 255, 255})
	codec := Map[string, *[]uint16](UTF8String, Option[[]uint16](Array[uint16](U16)))
	f.Fuzz(func(t *testing.T, data []byte) {
		value, _, err := Deserialize[map[string]*[]uint16](codec, data, 0)
		if err != nil {
			return
		}
		again, err := Serialize(codec, value)
		require.NoError(t, err)
		back, _, err := Deserialize[map[string]*[]uint16](codec, again, 0)
		require.NoError(t, err)
		require.Equal(t, value, back)
	})
}
