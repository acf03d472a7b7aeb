package beet

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type set[K comparable] struct {
	key  Codec[K]
	name string
}

// Set encodes a u32 count followed by each member. Members are written in
// map iteration order, so equal sets may encode differently.
func Set[K comparable](key Codec[K]) FixableCodec[map[K]struct{}] {
	return &set[K]{key: key, name: fmt.Sprintf("Set<%s>", key.Description())}
}

func (s *set[K]) Kind() Kind           { return KindFixable }
func (*set[K]) encodes(map[K]struct{}) {}
func (s *set[K]) Description() string  { return s.name }
func (s *set[K]) Inner() Codec[K]      { return s.key }

func (s *set[K]) FromValue(value map[K]struct{}) (FixedCodec[map[K]struct{}], error) {
	fixed := &fixedSet[K]{source: s.key, name: fmt.Sprintf("%s(%d)", s.name, len(value)), count: len(value), size: lengthPrefix}
	if f, ok := s.key.(FixedCodec[K]); ok && s.key.Kind() == KindFixed {
		fixed.key = f
		fixed.size += len(value) * f.ByteSize()
		return fixed, nil
	}
	fixed.table = make(map[K]FixedCodec[K], len(value))
	for k := range value {
		f, err := FixFromValue(s.key, k)
		if err != nil {
			return nil, errors.Wrapf(err, "%s member %v", s.name, k)
		}
		fixed.table[k] = f
		fixed.size += f.ByteSize()
	}
	return fixed, nil
}

func (s *set[K]) FromBytes(buf []byte, offset int) (FixedCodec[map[K]struct{}], error) {
	n, err := readLength(buf, offset, s.name)
	if err != nil {
		return nil, err
	}
	fixed := &fixedSet[K]{source: s.key, name: fmt.Sprintf("%s(%d)", s.name, n), count: n, size: lengthPrefix}
	if f, ok := s.key.(FixedCodec[K]); ok && s.key.Kind() == KindFixed {
		fixed.key = f
		fixed.size += n * f.ByteSize()
		if err := needRead(buf, offset, fixed.size, s.name); err != nil {
			return nil, err
		}
		return fixed, nil
	}
	fixed.table = make(map[K]FixedCodec[K])
	cursor := offset + lengthPrefix
	for i := 0; i < n; i++ {
		f, err := FixFromBytes(s.key, buf, cursor)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", s.name, i)
		}
		k, err := f.Read(buf, cursor)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", s.name, i)
		}
		if _, dup := fixed.table[k]; dup {
			return nil, malformedf("%s: duplicate member %v", s.name, k)
		}
		fixed.table[k] = f
		fixed.size += f.ByteSize()
		cursor += f.ByteSize()
	}
	return fixed, nil
}

// fixedSet is a resolved set. Either key holds the shared member codec,
// or table holds one resolved codec per member.
type fixedSet[K comparable] struct {
	source Codec[K]
	key    FixedCodec[K]
	table  map[K]FixedCodec[K]
	count  int
	size   int
	name   string
}

func (s *fixedSet[K]) Kind() Kind           { return KindFixed }
func (*fixedSet[K]) encodes(map[K]struct{}) {}
func (s *fixedSet[K]) Description() string  { return s.name }
func (s *fixedSet[K]) ByteSize() int        { return s.size }

func (s *fixedSet[K]) codecFor(k K) (FixedCodec[K], error) {
	if s.key != nil {
		return s.key, nil
	}
	f, ok := s.table[k]
	if !ok {
		return nil, shapef("%s: member %v was not part of the resolved value", s.name, k)
	}
	return f, nil
}

func (s *fixedSet[K]) Write(buf []byte, offset int, value map[K]struct{}) error {
	if len(value) != s.count {
		return shapef("%s: value has %d members", s.name, len(value))
	}
	w := writerAt(buf, offset)
	if err := WriteValue(w, U32, uint32(len(value))); err != nil {
		return err
	}
	for k := range value {
		f, err := s.codecFor(k)
		if err != nil {
			return err
		}
		if err := WriteValue(w, f, k); err != nil {
			return errors.Wrapf(err, "%s member %v", s.name, k)
		}
	}
	if written := w.Offset() - offset; written != s.size {
		return sizeMismatchf("%s: wrote %d bytes, resolved for %d", s.name, written, s.size)
	}
	return nil
}

func (s *fixedSet[K]) Read(buf []byte, offset int) (map[K]struct{}, error) {
	r := NewReader(buf, offset)
	n, err := ReadValue(r, U32)
	if err != nil {
		return nil, err
	}
	if uint64(n) != uint64(s.count) {
		return nil, malformedf("%s: count header says %d", s.name, n)
	}
	out := make(map[K]struct{}, s.count)
	for i := 0; i < s.count; i++ {
		f := s.key
		if f == nil {
			if f, err = FixFromBytes(s.source, buf, r.Offset()); err != nil {
				return nil, errors.Wrapf(err, "%s[%d]", s.name, i)
			}
		}
		k, err := ReadValue(r, f)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", s.name, i)
		}
		if _, dup := out[k]; dup {
			return nil, malformedf("%s: duplicate member %v", s.name, k)
		}
		out[k] = struct{}{}
	}
	if read := r.Offset() - offset; read != s.size {
		return nil, malformedf("%s: read %d bytes, resolved for %d", s.name, read, s.size)
	}
	return out, nil
}
