package schema

import (
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/beet"
)

func TestCoerceNumbers(t *testing.T) {
	s := mustSchema(t)

	v, err := s.Coerce("u8", decodeJSON(t, `255`))
	require.NoError(t, err)
	assert.Equal(t, uint8(255), v)

	v, err = s.Coerce("i16", float64(-3))
	require.NoError(t, err)
	assert.Equal(t, int16(-3), v)

	v, err = s.Coerce("u64", "0xff")
	require.NoError(t, err)
	assert.Equal(t, uint64(255), v)

	v, err = s.Coerce("u256", decodeJSON(t, `"115792089237316195423570985008687907853269984665640564039457584007913129639935"`))
	require.NoError(t, err)
	limit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	assert.Equal(t, 0, limit.Cmp(v.(*big.Int)))

	v, err = s.Coerce("f32", decodeJSON(t, `1.5`))
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), v)

	for expr, raw := range map[string]string{
		"u8":  `256`,
		"i8":  `-129`,
		"u32": `-1`,
		"u16": `1.5`,
		"i64": `"nine"`,
		"f64": `true`,
	} {
		_, err := s.Coerce(expr, decodeJSON(t, raw))
		assert.True(t, errors.Is(err, beet.ErrShapeMismatch), "%s=%s: %v", expr, raw, err)
	}
}

func TestCoerceBytes(t *testing.T) {
	s := mustSchema(t)
	for _, raw := range []string{`"0x0102ff"`, `"AQL/"`, `[1, 2, 255]`} {
		v, err := s.Coerce("bytes", decodeJSON(t, raw))
		require.NoError(t, err, raw)
		assert.Equal(t, []byte{1, 2, 255}, v, raw)
	}
	_, err := s.Coerce("bytes", decodeJSON(t, `"0xzz"`))
	assert.True(t, errors.Is(err, beet.ErrShapeMismatch))
	_, err = s.Coerce("bytes", decodeJSON(t, `[256]`))
	assert.True(t, errors.Is(err, beet.ErrShapeMismatch))
}

func TestCoerceStructFields(t *testing.T) {
	s := mustSchema(t)

	_, err := s.Coerce("Results", decodeJSON(t, `{"win": 1, "totalWin": 2}`))
	require.True(t, errors.Is(err, beet.ErrShapeMismatch))
	require.Contains(t, err.Error(), `missing field "losses"`)

	_, err = s.Coerce("Results", decodeJSON(t, `{"win": 1, "totalWin": 2, "losses": 0, "draws": 4}`))
	require.True(t, errors.Is(err, beet.ErrShapeMismatch))
	require.Contains(t, err.Error(), `unknown field "draws"`)

	_, err = s.Coerce("Trader", decodeJSON(t, `{"name": "bob1", "age": 1, "results": {"win": 300, "totalWin": 2, "losses": 0}}`))
	require.True(t, errors.Is(err, beet.ErrShapeMismatch))
	require.Contains(t, err.Error(), "Trader.results.win")

	v, err := s.Coerce("Results", decodeJSON(t, `{"win": 1, "totalWin": 2, "losses": -3}`))
	require.NoError(t, err)
	require.Equal(t, beet.Record{"win": uint8(1), "totalWin": uint16(2), "losses": int32(-3)}, v)
}

func TestCoerceCollections(t *testing.T) {
	s := mustSchema(t)

	_, err := s.Coerce("tuple<u8, u8>", decodeJSON(t, `[1]`))
	require.True(t, errors.Is(err, beet.ErrShapeMismatch))

	_, err = s.Coerce("set<u8>", decodeJSON(t, `[1, 1]`))
	require.True(t, errors.Is(err, beet.ErrShapeMismatch))

	_, err = s.Coerce("map<u8, u8>", decodeJSON(t, `[[1, 2], [1, 3]]`))
	require.True(t, errors.Is(err, beet.ErrShapeMismatch))

	_, err = s.Coerce("map<u8, u8>", decodeJSON(t, `[[1, 2, 3]]`))
	require.True(t, errors.Is(err, beet.ErrShapeMismatch))

	v, err := s.Coerce("map<bool, u8>", decodeJSON(t, `{"true": 1}`))
	require.NoError(t, err)
	require.Equal(t, map[any]any{true: uint8(1)}, v)

	v, err = s.Coerce("option<u8>", decodeJSON(t, `4`))
	require.NoError(t, err)
	p, ok := v.(*any)
	require.True(t, ok)
	require.Equal(t, uint8(4), *p)
}

func TestExportSortsSetsAndPairs(t *testing.T) {
	s := mustSchema(t)

	out, err := s.Export("set<i16>", map[any]struct{}{int16(3): {}, int16(-7): {}, int16(0): {}})
	require.NoError(t, err)
	require.Equal(t, []any{int16(-7), int16(0), int16(3)}, out)

	out, err = s.Export("map<u32, bytes>", map[any]any{uint32(9): []byte{1}, uint32(2): []byte{}})
	require.NoError(t, err)
	require.Equal(t, []any{
		[]any{uint32(2), "0x"},
		[]any{uint32(9), "0x01"},
	}, out)

	out, err = s.Export("Command", beet.EnumValue{Kind: "Move", Data: beet.Record{"x": int32(1), "y": int32(2)}})
	require.NoError(t, err)
	require.Equal(t, map[string]any{KindKey: "Move", "x": int32(1), "y": int32(2)}, out)
}
