package beet

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// lengthPrefix is the byte width of every u32 length header.
const lengthPrefix = 4

type fixedString struct {
	length   int
	prefixed bool
	name     string
}

// FixedSizeUTF8String encodes strings of exactly length bytes behind a u32
// length header, for 4+length bytes in total.
func FixedSizeUTF8String(length int) FixedCodec[string] {
	return &fixedString{length: length, prefixed: true, name: fmt.Sprintf("Utf8String(4 + %d)", length)}
}

// UnprefixedUTF8String encodes strings of exactly length bytes with no
// header.
func UnprefixedUTF8String(length int) FixedCodec[string] {
	return &fixedString{length: length, name: fmt.Sprintf("Utf8String(%d)", length)}
}

func (s *fixedString) Kind() Kind          { return KindFixed }
func (*fixedString) encodes(string)        {}
func (s *fixedString) Description() string { return s.name }

func (s *fixedString) ByteSize() int {
	if s.prefixed {
		return lengthPrefix + s.length
	}
	return s.length
}

func (s *fixedString) Write(buf []byte, offset int, value string) error {
	if len(value) != s.length {
		return sizeMismatchf("%s: value has %d bytes", s.name, len(value))
	}
	if !utf8.ValidString(value) {
		return shapef("%s: value is not valid UTF-8", s.name)
	}
	if err := needWrite(buf, offset, s.ByteSize(), s.name); err != nil {
		return err
	}
	if s.prefixed {
		binary.LittleEndian.PutUint32(buf[offset:], uint32(s.length))
		offset += lengthPrefix
	}
	copy(buf[offset:offset+s.length], value)
	return nil
}

func (s *fixedString) Read(buf []byte, offset int) (string, error) {
	if err := needRead(buf, offset, s.ByteSize(), s.name); err != nil {
		return "", err
	}
	if s.prefixed {
		if n := binary.LittleEndian.Uint32(buf[offset:]); uint64(n) != uint64(s.length) {
			return "", malformedf("%s: length header says %d", s.name, n)
		}
		offset += lengthPrefix
	}
	raw := buf[offset : offset+s.length]
	if !utf8.Valid(raw) {
		return "", malformedf("%s: bytes are not valid UTF-8", s.name)
	}
	return string(raw), nil
}

type utf8String struct{}

// UTF8String encodes strings of any length behind a u32 length header.
var UTF8String FixableCodec[string] = utf8String{}

func (utf8String) Kind() Kind          { return KindFixable }
func (utf8String) encodes(string)      {}
func (utf8String) Description() string { return "Utf8String" }

func (utf8String) FromValue(value string) (FixedCodec[string], error) {
	return FixedSizeUTF8String(len(value)), nil
}

func (utf8String) FromBytes(buf []byte, offset int) (FixedCodec[string], error) {
	n, err := readLength(buf, offset, "Utf8String")
	if err != nil {
		return nil, err
	}
	if err := needRead(buf, offset+lengthPrefix, n, "Utf8String"); err != nil {
		return nil, err
	}
	return FixedSizeUTF8String(n), nil
}

// readLength decodes the u32 length header at offset.
func readLength(buf []byte, offset int, what string) (int, error) {
	if err := needRead(buf, offset, lengthPrefix, what); err != nil {
		return 0, err
	}
	n := binary.LittleEndian.Uint32(buf[offset:])
	if uint64(n) > uint64(len(buf)) {
		return 0, malformedf("%s: length header %d exceeds the %d byte buffer", what, n, len(buf))
	}
	return int(n), nil
}
