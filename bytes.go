package beet

import (
	"encoding/binary"
	"fmt"
)

type fixedBytes struct {
	length   int
	prefixed bool
	name     string
}

// FixedSizeBytes encodes byte slices of exactly length bytes with no
// header, the layout of a borsh [u8; N].
func FixedSizeBytes(length int) FixedCodec[[]byte] {
	return &fixedBytes{length: length, name: fmt.Sprintf("Bytes(%d)", length)}
}

// FixedSizePrefixedBytes encodes byte slices of exactly length bytes
// behind a u32 length header.
func FixedSizePrefixedBytes(length int) FixedCodec[[]byte] {
	return &fixedBytes{length: length, prefixed: true, name: fmt.Sprintf("Bytes(4 + %d)", length)}
}

func (b *fixedBytes) Kind() Kind          { return KindFixed }
func (*fixedBytes) encodes([]byte)        {}
func (b *fixedBytes) Description() string { return b.name }

func (b *fixedBytes) ByteSize() int {
	if b.prefixed {
		return lengthPrefix + b.length
	}
	return b.length
}

func (b *fixedBytes) Write(buf []byte, offset int, value []byte) error {
	if len(value) != b.length {
		return sizeMismatchf("%s: value has %d bytes", b.name, len(value))
	}
	if err := needWrite(buf, offset, b.ByteSize(), b.name); err != nil {
		return err
	}
	if b.prefixed {
		binary.LittleEndian.PutUint32(buf[offset:], uint32(b.length))
		offset += lengthPrefix
	}
	copy(buf[offset:offset+b.length], value)
	return nil
}

// Read returns a copy; the result never aliases buf.
func (b *fixedBytes) Read(buf []byte, offset int) ([]byte, error) {
	if err := needRead(buf, offset, b.ByteSize(), b.name); err != nil {
		return nil, err
	}
	if b.prefixed {
		if n := binary.LittleEndian.Uint32(buf[offset:]); uint64(n) != uint64(b.length) {
			return nil, malformedf("%s: length header says %d", b.name, n)
		}
		offset += lengthPrefix
	}
	out := make([]byte, b.length)
	copy(out, buf[offset:offset+b.length])
	return out, nil
}

type dynamicBytes struct{}

// Bytes encodes byte slices of any length behind a u32 length header.
var Bytes FixableCodec[[]byte] = dynamicBytes{}

func (dynamicBytes) Kind() Kind          { return KindFixable }
func (dynamicBytes) encodes([]byte)      {}
func (dynamicBytes) Description() string { return "Bytes" }

func (dynamicBytes) FromValue(value []byte) (FixedCodec[[]byte], error) {
	return FixedSizePrefixedBytes(len(value)), nil
}

func (dynamicBytes) FromBytes(buf []byte, offset int) (FixedCodec[[]byte], error) {
	n, err := readLength(buf, offset, "Bytes")
	if err != nil {
		return nil, err
	}
	if err := needRead(buf, offset+lengthPrefix, n, "Bytes"); err != nil {
		return nil, err
	}
	return FixedSizePrefixedBytes(n), nil
}
