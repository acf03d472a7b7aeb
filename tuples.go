package beet

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

type fixedTuple struct {
	elements []FixedCodec[any]
	size     int
	name     string
}

// FixedSizeTuple packs one value per element codec with no header.
func FixedSizeTuple(elements ...FixedCodec[any]) FixedCodec[[]any] {
	size := 0
	for _, e := range elements {
		size += e.ByteSize()
	}
	return &fixedTuple{elements: elements, size: size, name: tupleName(elements)}
}

func (t *fixedTuple) Kind() Kind          { return KindFixed }
func (*fixedTuple) encodes([]any)         {}
func (t *fixedTuple) Description() string { return t.name }
func (t *fixedTuple) ByteSize() int       { return t.size }

func (t *fixedTuple) Write(buf []byte, offset int, value []any) error {
	if len(value) != len(t.elements) {
		return shapef("%s: value has %d elements", t.name, len(value))
	}
	w := writerAt(buf, offset)
	for i, e := range t.elements {
		if err := WriteValue(w, e, value[i]); err != nil {
			return errors.Wrapf(err, "%s[%d]", t.name, i)
		}
	}
	return nil
}

func (t *fixedTuple) Read(buf []byte, offset int) ([]any, error) {
	if err := needRead(buf, offset, t.size, t.name); err != nil {
		return nil, err
	}
	r := NewReader(buf, offset)
	out := make([]any, len(t.elements))
	for i, e := range t.elements {
		v, err := ReadValue(r, e)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", t.name, i)
		}
		out[i] = v
	}
	return out, nil
}

type tuple struct {
	elements []Codec[any]
	name     string
}

// Tuple packs one value per element codec with no header. When every
// element is fixed the result is a FixedSizeTuple.
func Tuple(elements ...Codec[any]) Codec[[]any] {
	fixed := make([]FixedCodec[any], 0, len(elements))
	for _, e := range elements {
		f, ok := e.(FixedCodec[any])
		if !ok || e.Kind() != KindFixed {
			return &tuple{elements: elements, name: tupleName(elements)}
		}
		fixed = append(fixed, f)
	}
	return FixedSizeTuple(fixed...)
}

func (t *tuple) Kind() Kind          { return KindFixable }
func (*tuple) encodes([]any)         {}
func (t *tuple) Description() string { return t.name }

func (t *tuple) FromValue(value []any) (FixedCodec[[]any], error) {
	if len(value) != len(t.elements) {
		return nil, shapef("%s: value has %d elements", t.name, len(value))
	}
	fixed := make([]FixedCodec[any], len(t.elements))
	for i, e := range t.elements {
		f, err := FixFromValue(e, value[i])
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", t.name, i)
		}
		fixed[i] = f
	}
	return FixedSizeTuple(fixed...), nil
}

func (t *tuple) FromBytes(buf []byte, offset int) (FixedCodec[[]any], error) {
	fixed := make([]FixedCodec[any], len(t.elements))
	cursor := offset
	for i, e := range t.elements {
		f, err := FixFromBytes(e, buf, cursor)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", t.name, i)
		}
		fixed[i] = f
		cursor += f.ByteSize()
	}
	return FixedSizeTuple(fixed...), nil
}

func tupleName[C Codec[any]](elements []C) string {
	names := make([]string, len(elements))
	for i, e := range elements {
		names[i] = e.Description()
	}
	return fmt.Sprintf("Tuple<%s>", strings.Join(names, ","))
}
