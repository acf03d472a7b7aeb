package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/beet"
	"github.com/rawbytedev/beet/pkg/frame"
	"github.com/rawbytedev/beet/pkg/schema"
)

var cborMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("beet: CBOR encoder initialization failed: " + err.Error())
	}
	return mode
}()

func runEncode(args []string, s streams) error {
	var (
		common schemaFlags
		value  string
		out    string
		zstd   bool
		framed bool
	)
	fs := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	common.add(fs, true)
	fs.StringVar(&value, "value", "-", "JSON value to encode, or - to read it from stdin")
	fs.StringVarP(&out, "out", "o", "hex", "output format: hex or raw")
	fs.BoolVar(&zstd, "zstd", false, "zstd-compress the encoded bytes")
	fs.BoolVar(&framed, "frame", false, "wrap the value in a checksummed frame carrying its field offsets")
	if help, err := parseFlags(fs, args, s); help || err != nil {
		return err
	}
	if common.expr == "" {
		return errors.New("encode: --type is required")
	}
	if out != "hex" && out != "raw" {
		return errors.Newf("encode: unknown output format %q", out)
	}
	sc, err := common.load(s)
	if err != nil {
		return err
	}

	text := []byte(value)
	if value == "-" {
		if text, err = readInput("-", s); err != nil {
			return err
		}
	}
	v, err := parseValue(text)
	if err != nil {
		return err
	}
	data, err := sc.Encode(common.expr, v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", common.expr)
	}
	switch {
	case framed:
		if data, err = encodeFrame(sc, common.expr, data, zstd); err != nil {
			return err
		}
	case zstd:
		data = frame.Compress(data)
	}
	if out == "hex" {
		_, err = fmt.Fprintln(s.out, hex.EncodeToString(data))
		return err
	}
	_, err = s.out.Write(data)
	return err
}

func encodeFrame(sc *schema.Schema, expr string, payload []byte, zstd bool) ([]byte, error) {
	f := frame.Frame{Payload: payload}
	if layout, _, _, err := sc.Layout(expr); err == nil {
		f.Flags |= frame.FlagOffsets
		f.Offsets = frame.Offsets(layout)
	}
	if zstd {
		f.Flags |= frame.FlagZstd
	}
	return frame.Encode(f)
}

// parseValue decodes JSON with comments, keeping numbers exact.
func parseValue(text []byte) (any, error) {
	d := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(text)))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "parsing value")
	}
	return v, nil
}

func runDecode(args []string, s streams) error {
	var (
		common schemaFlags
		in     string
		isHex  bool
		zstd   bool
		offset int
		format string
		framed bool
	)
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	common.add(fs, true)
	fs.StringVarP(&in, "in", "i", "-", "file holding the encoded bytes, or - for stdin")
	fs.BoolVar(&isHex, "hex", false, "input is hex text rather than raw bytes")
	fs.BoolVar(&zstd, "zstd", false, "input is zstd-compressed")
	fs.BoolVar(&framed, "frame", false, "input is a sequence of frames, each holding one value")
	fs.IntVar(&offset, "offset", 0, "byte offset of the value in the input")
	fs.StringVarP(&format, "format", "f", "json", "output format: json, yaml or cbor")
	if help, err := parseFlags(fs, args, s); help || err != nil {
		return err
	}
	if common.expr == "" {
		return errors.New("decode: --type is required")
	}
	sc, err := common.load(s)
	if err != nil {
		return err
	}

	data, err := readInput(in, s)
	if err != nil {
		return err
	}
	if isHex {
		if data, err = hex.DecodeString(strings.TrimSpace(string(data))); err != nil {
			return errors.Wrap(err, "decoding hex input")
		}
	}
	if framed {
		return decodeFrames(sc, common.expr, data, format, s)
	}
	if zstd {
		if data, err = frame.Decompress(data); err != nil {
			return err
		}
	}
	v, next, err := sc.Decode(common.expr, data, offset)
	if err != nil {
		return errors.Wrapf(err, "decode %s", common.expr)
	}
	if next != len(data) {
		fmt.Fprintf(s.err, "decoded %d of %d bytes\n", next-offset, len(data)-offset)
	}
	return writeValue(s, format, v)
}

func decodeFrames(sc *schema.Schema, expr string, data []byte, format string, s streams) error {
	for n := 0; len(data) > 0; n++ {
		f, used, err := frame.Decode(data)
		if err != nil {
			return errors.Wrapf(err, "frame %d", n)
		}
		data = data[used:]
		v, next, err := sc.Decode(expr, f.Payload, 0)
		if err != nil {
			return errors.Wrapf(err, "frame %d: decode %s", n, expr)
		}
		if next != len(f.Payload) {
			return errors.Newf("frame %d: %d trailing payload bytes", n, len(f.Payload)-next)
		}
		if err := writeValue(s, format, v); err != nil {
			return err
		}
	}
	return nil
}

func writeValue(s streams, format string, v any) error {
	switch format {
	case "json":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrap(err, "rendering json")
		}
		_, err = fmt.Fprintln(s.out, string(out))
		return err
	case "yaml":
		out, err := yaml.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "rendering yaml")
		}
		_, err = s.out.Write(out)
		return err
	case "cbor":
		out, err := cborMode.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "rendering cbor")
		}
		_, err = s.out.Write(out)
		return err
	default:
		return errors.Newf("unknown output format %q", format)
	}
}

func runLayout(args []string, s streams) error {
	var common schemaFlags
	fs := pflag.NewFlagSet("layout", pflag.ContinueOnError)
	common.add(fs, true)
	if help, err := parseFlags(fs, args, s); help || err != nil {
		return err
	}
	if common.expr == "" {
		return errors.New("layout: --type is required")
	}
	sc, err := common.load(s)
	if err != nil {
		return err
	}
	layout, prefix, complete, err := sc.Layout(common.expr)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tOFFSET\tSIZE\tCODEC")
	for _, l := range layout {
		size := "?"
		if l.Size >= 0 {
			size = strconv.Itoa(l.Size)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", l.Name, l.Offset, size, l.Codec.Description())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if complete {
		_, err = fmt.Fprintf(s.out, "fixed size: %d bytes\n", prefix)
	} else {
		_, err = fmt.Fprintf(s.out, "fixed prefix: %d bytes\n", prefix)
	}
	return err
}

func runTypes(args []string, s streams) error {
	var common schemaFlags
	fs := pflag.NewFlagSet("types", pflag.ContinueOnError)
	common.add(fs, false)
	if help, err := parseFlags(fs, args, s); help || err != nil {
		return err
	}
	sc, err := common.load(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "primitives: %s\n", strings.Join(beet.PrimitiveNames(), ", "))
	fmt.Fprintln(s.out, "generics: vec<T>, array<T, N>, option<T>, set<K>, map<K, V>, tuple<T...>, string(N), bytes(N)")
	if names := sc.Names(); len(names) > 0 {
		fmt.Fprintf(s.out, "declared: %s\n", strings.Join(names, ", "))
	}
	return nil
}
