package schema

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/beet"
)

const traders = `
types:
  - name: Results
    struct:
      - {name: win, type: u8}
      - {name: totalWin, type: u16}
      - {name: losses, type: i32}
  - name: Trader
    struct:
      - {name: name, type: string(4)}
      - {name: results, type: Results}
      - {name: age, type: u8}
  - name: Color
    enum: [Red, Green, Blue]
  - name: Command
    dataEnum:
      - name: Quit
      - name: Move
        fields:
          - {name: x, type: i32}
          - {name: y, type: i32}
      - name: Say
        fields:
          - {name: text, type: string}
  - name: Account
    struct:
      - {name: owner, type: bytes(4)}
      - {name: balance, type: u128}
      - {name: tags, type: vec<string>}
      - {name: delegate, type: option<u8>}
      - {name: colors, type: set<Color>}
      - {name: limits, type: map<string, u64>}
`

func mustSchema(t *testing.T, opts ...beet.CodecOption) *Schema {
	t.Helper()
	s, err := Parse([]byte(traders), opts...)
	require.NoError(t, err)
	return s
}

func decodeJSON(t *testing.T, src string) any {
	t.Helper()
	d := json.NewDecoder(strings.NewReader(src))
	d.UseNumber()
	var v any
	require.NoError(t, d.Decode(&v))
	return v
}

func TestNames(t *testing.T) {
	s := mustSchema(t)
	require.Equal(t, []string{"Results", "Trader", "Color", "Command", "Account"}, s.Names())
}

func TestTraderLayout(t *testing.T) {
	s := mustSchema(t)
	layout, prefix, complete, err := s.Layout("Trader")
	require.NoError(t, err)
	require.Equal(t, 16, prefix)
	require.True(t, complete)

	type slot struct {
		Name         string
		Offset, Size int
	}
	got := make([]slot, len(layout))
	for i, l := range layout {
		got[i] = slot{l.Name, l.Offset, l.Size}
	}
	require.Equal(t, []slot{{"name", 0, 8}, {"results", 8, 7}, {"age", 15, 1}}, got)

	_, prefix, complete, err = s.Layout("Account")
	require.NoError(t, err)
	require.Equal(t, 4+16, prefix)
	require.False(t, complete)

	_, _, _, err = s.Layout("Color")
	require.True(t, errors.Is(err, ErrInvalidSchema))
}

func TestEncodeTrader(t *testing.T) {
	s := mustSchema(t)
	value := decodeJSON(t, `{"name": "bob1", "age": 18, "results": {"win": 3, "totalWin": 4, "losses": -100}}`)

	data, err := s.Encode("Trader", value)
	require.NoError(t, err)
	require.Equal(t, []byte{
		4, 0, 0, 0, 'b', 'o', 'b', '1',
		3,
		4, 0,
		0x9c, 0xff, 0xff, 0xff,
		18,
	}, data)

	out, next, err := s.Decode("Trader", append([]byte{0xaa}, data...), 1)
	require.NoError(t, err)
	require.Equal(t, 17, next)
	want := map[string]any{
		"name": "bob1",
		"age":  uint8(18),
		"results": map[string]any{
			"win":      uint8(3),
			"totalWin": uint16(4),
			"losses":   int32(-100),
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("decoded trader (-want +got):\n%s", diff)
	}
}

func TestDataEnum(t *testing.T) {
	s := mustSchema(t)

	data, err := s.Encode("Command", decodeJSON(t, `{"__kind": "Move", "x": 1, "y": -1}`))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}, data)

	data, err = s.Encode("Command", decodeJSON(t, `{"__kind": "Quit"}`))
	require.NoError(t, err)
	require.Equal(t, []byte{0}, data)

	out, next, err := s.Decode("Command", []byte{2, 2, 0, 0, 0, 'h', 'i'}, 0)
	require.NoError(t, err)
	require.Equal(t, 7, next)
	require.Equal(t, map[string]any{KindKey: "Say", "text": "hi"}, out)

	_, err = s.Encode("Command", decodeJSON(t, `{"__kind": "Jump"}`))
	require.True(t, errors.Is(err, beet.ErrShapeMismatch), "%v", err)
	require.Contains(t, err.Error(), "[ Quit, Move, Say ]")

	_, _, err = s.Decode("Command", []byte{3}, 0)
	require.True(t, errors.Is(err, beet.ErrMalformedBuffer), "%v", err)
}

func TestAccountRoundTrip(t *testing.T) {
	s := mustSchema(t)
	value := decodeJSON(t, `{
		"owner": "0xdeadbeef",
		"balance": "340282366920938463463374607431768211455",
		"tags": ["a", "bc"],
		"delegate": null,
		"colors": ["Red", "Blue"],
		"limits": {"daily": 10, "weekly": 70}
	}`)

	data, err := s.Encode("Account", value)
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, data[:4])
	require.Equal(t, bytes.Repeat([]byte{0xff}, 16), data[4:20])

	out, next, err := s.Decode("Account", data, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), next)
	want := map[string]any{
		"owner":    "0xdeadbeef",
		"balance":  "340282366920938463463374607431768211455",
		"tags":     []any{"a", "bc"},
		"delegate": nil,
		"colors":   []any{"Blue", "Red"},
		"limits":   map[string]any{"daily": uint64(10), "weekly": uint64(70)},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("decoded account (-want +got):\n%s", diff)
	}

	// the exported form is valid input again
	again, err := s.Encode("Account", out)
	require.NoError(t, err)
	require.Equal(t, len(data), len(again))
}

func TestTypeExpressions(t *testing.T) {
	s := mustSchema(t)
	tests := []struct {
		expr  string
		value string
		want  []byte
	}{
		{"array<u16, 2>", `[1, 2]`, []byte{1, 0, 2, 0}},
		{"vec<u8>", `[7]`, []byte{1, 0, 0, 0, 7}},
		{"tuple<u8, bool>", `[1, true]`, []byte{1, 1}},
		{"option<Color>", `"Blue"`, []byte{1, 2}},
		{"option<Color>", `null`, []byte{0}},
		{"map<u16, bool>", `[[513, false]]`, []byte{1, 0, 0, 0, 1, 2, 0}},
		{"map<u16, bool>", `{"513": true}`, []byte{1, 0, 0, 0, 1, 2, 1}},
		{"bytes", `[1, 2]`, []byte{2, 0, 0, 0, 1, 2}},
		{"bytes", `"AQI="`, []byte{2, 0, 0, 0, 1, 2}},
		{"i128", `-1`, bytes.Repeat([]byte{0xff}, 16)},
		{"unit", `null`, []byte{}},
	}
	for _, tc := range tests {
		t.Run(tc.expr+"="+tc.value, func(t *testing.T) {
			data, err := s.Encode(tc.expr, decodeJSON(t, tc.value))
			require.NoError(t, err)
			require.Equal(t, tc.want, data)

			_, next, err := s.Decode(tc.expr, data, 0)
			require.NoError(t, err)
			require.Equal(t, len(data), next)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := map[string]string{
		"unknown type": `
types:
  - name: A
    struct:
      - {name: b, type: Missing}`,
		"recursive type": `
types:
  - name: Node
    struct:
      - {name: next, type: option<Node>}`,
		"byte set": `
types:
  - name: A
    struct:
      - {name: b, type: set<bytes>}`,
		"struct map key": `
types:
  - name: K
    struct:
      - {name: k, type: u8}
  - name: A
    struct:
      - {name: b, type: map<K, u8>}`,
		"duplicate type": `
types:
  - name: A
    enum: [X]
  - name: A
    enum: [Y]`,
		"shadowed primitive": `
types:
  - name: u8
    enum: [X]`,
		"two shapes": `
types:
  - name: A
    enum: [X]
    struct:
      - {name: b, type: u8}`,
		"duplicate variant": `
types:
  - name: A
    enum: [X, X]`,
		"sized primitive": `
types:
  - name: A
    struct:
      - {name: b, type: u8(2)}`,
		"array without count": `
types:
  - name: A
    struct:
      - {name: b, type: array<u8>}`,
		"not yaml": `types: [`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidSchema), "%v", err)
		})
	}
}

func TestSchemaLogsDeclarations(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mustSchema(t, beet.WithLogger(logger))
	require.Contains(t, buf.String(), "struct=Trader")
	require.Contains(t, buf.String(), "enum=Command")
}
