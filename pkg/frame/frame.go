// Package frame wraps encoded values in self-delimiting, checksummed
// frames so several of them can share a file or a stream.
//
// A frame is laid out as
//
//	magic "BT" | version u8 | total length u32 | flags u8
//	[offset count u16 | offsets u32...]    when FlagOffsets is set
//	payload                                zstd-compressed when FlagZstd is set
//	crc32 u32                              IEEE, over length through payload
//
// All integers are little-endian and the total length covers the whole
// frame including the checksum.
package frame

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/rawbytedev/beet"
)

const (
	magic0  = 'B'
	magic1  = 'T'
	version = 1

	preambleSize = 3
	headerSize   = preambleSize + 4 + 1
	crcSize      = 4

	// MaxSize bounds the total length of a frame.
	MaxSize = 1 << 30
)

// Flags select the optional parts of a frame.
type Flags uint8

const (
	// FlagOffsets adds a table of payload offsets, typically the field
	// offsets of the struct encoded in the payload.
	FlagOffsets Flags = 1 << iota
	// FlagZstd compresses the payload.
	FlagZstd

	knownFlags = FlagOffsets | FlagZstd
)

// ErrCorruptFrame marks input that is not a well-formed frame.
var ErrCorruptFrame = errors.New("corrupt frame")

func corruptf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruptFrame)
}

// Frame is one decoded frame. Payload is always uncompressed.
type Frame struct {
	Flags   Flags
	Offsets []uint32
	Payload []byte
}

// Encode serializes f, compressing the payload when FlagZstd is set.
func Encode(f Frame) ([]byte, error) {
	if f.Flags&^knownFlags != 0 {
		return nil, errors.Newf("unknown frame flags %#x", uint8(f.Flags))
	}
	if f.Flags&FlagOffsets == 0 && len(f.Offsets) > 0 {
		return nil, errors.New("offsets given without FlagOffsets")
	}
	if len(f.Offsets) > math.MaxUint16 {
		return nil, errors.Newf("%d offsets exceed the table limit", len(f.Offsets))
	}
	payload := f.Payload
	if f.Flags&FlagZstd != 0 {
		payload = Compress(payload)
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + 2 + 4*len(f.Offsets) + len(payload) + crcSize)
	buf.Write([]byte{magic0, magic1, version})
	buf.Write([]byte{0, 0, 0, 0})
	buf.WriteByte(byte(f.Flags))
	if f.Flags&FlagOffsets != 0 {
		_ = binary.Write(&buf, binary.LittleEndian, uint16(len(f.Offsets)))
		for _, off := range f.Offsets {
			_ = binary.Write(&buf, binary.LittleEndian, off)
		}
	}
	buf.Write(payload)

	out := buf.Bytes()
	total := len(out) + crcSize
	if total > MaxSize {
		return nil, errors.Newf("frame of %d bytes is too large", total)
	}
	binary.LittleEndian.PutUint32(out[preambleSize:], uint32(total))
	crc := crc32.ChecksumIEEE(out[preambleSize:])
	return binary.LittleEndian.AppendUint32(out, crc), nil
}

// Decode parses the frame at the start of data and returns it with the
// number of bytes it occupied.
func Decode(data []byte) (Frame, int, error) {
	if len(data) < headerSize+crcSize {
		return Frame{}, 0, corruptf("frame needs at least %d bytes, got %d", headerSize+crcSize, len(data))
	}
	if data[0] != magic0 || data[1] != magic1 {
		return Frame{}, 0, corruptf("bad magic %q", data[:2])
	}
	if data[2] != version {
		return Frame{}, 0, corruptf("unsupported version %d", data[2])
	}
	total := int(binary.LittleEndian.Uint32(data[preambleSize:]))
	if total < headerSize+crcSize || total > len(data) {
		return Frame{}, 0, corruptf("frame length %d does not fit %d bytes", total, len(data))
	}
	body := data[:total-crcSize]
	want := binary.LittleEndian.Uint32(data[total-crcSize:])
	if got := crc32.ChecksumIEEE(body[preambleSize:]); got != want {
		return Frame{}, 0, corruptf("crc mismatch: %#08x != %#08x", got, want)
	}

	f := Frame{Flags: Flags(body[headerSize-1])}
	if f.Flags&^knownFlags != 0 {
		return Frame{}, 0, corruptf("unknown flags %#x", uint8(f.Flags))
	}
	cursor := headerSize
	if f.Flags&FlagOffsets != 0 {
		if len(body) < cursor+2 {
			return Frame{}, 0, corruptf("truncated offset table")
		}
		count := int(binary.LittleEndian.Uint16(body[cursor:]))
		cursor += 2
		if len(body) < cursor+4*count {
			return Frame{}, 0, corruptf("offset table of %d entries is truncated", count)
		}
		f.Offsets = make([]uint32, count)
		for i := range f.Offsets {
			f.Offsets[i] = binary.LittleEndian.Uint32(body[cursor:])
			cursor += 4
		}
	}
	f.Payload = body[cursor:]
	if f.Flags&FlagZstd != 0 {
		payload, err := Decompress(f.Payload)
		if err != nil {
			return Frame{}, 0, errors.Mark(err, ErrCorruptFrame)
		}
		f.Payload = payload
	}
	return f, total, nil
}

// Read reads one frame from r. It returns io.EOF when r is exhausted
// before the first byte of a frame.
func Read(r io.Reader) (Frame, error) {
	head := make([]byte, headerSize)
	if _, err := io.ReadFull(r, head); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, errors.Mark(errors.Wrap(err, "reading frame header"), ErrCorruptFrame)
	}
	total := int(binary.LittleEndian.Uint32(head[preambleSize:]))
	if total < headerSize+crcSize || total > MaxSize {
		return Frame{}, corruptf("frame length %d out of range", total)
	}
	data := make([]byte, total)
	copy(data, head)
	if _, err := io.ReadFull(r, data[headerSize:]); err != nil {
		return Frame{}, errors.Mark(errors.Wrap(err, "reading frame body"), ErrCorruptFrame)
	}
	f, _, err := Decode(data)
	return f, err
}

// Offsets returns the offsets of the fields in layout, for use as a
// frame's offset table. Layouts only list fields whose offsets are known
// before a value is resolved.
func Offsets(layout []beet.FieldLayout) []uint32 {
	out := make([]uint32, 0, len(layout))
	for _, l := range layout {
		out = append(out, uint32(l.Offset))
	}
	return out
}
