package beet

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/rawbytedev/beet/internal/common"
)

// UniformFixedArray holds exactly Count elements that share one fixed
// element codec.
type UniformFixedArray[T any] struct {
	element  FixedCodec[T]
	count    int
	prefixed bool
	name     string
}

// UniformFixedSizeArray builds a fixed array of count elements. With
// prefixed set, a u32 count header precedes the elements.
func UniformFixedSizeArray[T any](element FixedCodec[T], count int, prefixed bool) *UniformFixedArray[T] {
	return &UniformFixedArray[T]{
		element:  element,
		count:    count,
		prefixed: prefixed,
		name:     fmt.Sprintf("Array<%s>(%d)", element.Description(), count),
	}
}

func (a *UniformFixedArray[T]) Kind() Kind          { return KindFixed }
func (*UniformFixedArray[T]) encodes([]T)           {}
func (a *UniformFixedArray[T]) Description() string { return a.name }
func (a *UniformFixedArray[T]) Count() int          { return a.count }

func (a *UniformFixedArray[T]) ByteSize() int {
	n := a.count * a.element.ByteSize()
	if a.prefixed {
		n += lengthPrefix
	}
	return n
}

func (a *UniformFixedArray[T]) Inner() Codec[T] { return a.element }

func (a *UniformFixedArray[T]) WithFixedInner(inner FixedCodec[T]) FixedCodec[[]T] {
	return UniformFixedSizeArray(inner, a.count, a.prefixed)
}

func (a *UniformFixedArray[T]) Write(buf []byte, offset int, value []T) error {
	if len(value) != a.count {
		return shapef("%s: value has %d elements", a.name, len(value))
	}
	if err := needWrite(buf, offset, a.ByteSize(), a.name); err != nil {
		return err
	}
	w := writerAt(buf, offset)
	if a.prefixed {
		if err := WriteValue(w, U32, uint32(a.count)); err != nil {
			return err
		}
	}
	for i, v := range value {
		if err := WriteValue(w, a.element, v); err != nil {
			return errors.Wrapf(err, "%s[%d]", a.name, i)
		}
	}
	return nil
}

func (a *UniformFixedArray[T]) Read(buf []byte, offset int) ([]T, error) {
	if err := needRead(buf, offset, a.ByteSize(), a.name); err != nil {
		return nil, err
	}
	r := NewReader(buf, offset)
	if a.prefixed {
		n, err := ReadValue(r, U32)
		if err != nil {
			return nil, err
		}
		if uint64(n) != uint64(a.count) {
			return nil, malformedf("%s: count header says %d", a.name, n)
		}
	}
	out := make([]T, a.count)
	for i := range out {
		v, err := ReadValue(r, a.element)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", a.name, i)
		}
		out[i] = v
	}
	return out, nil
}

// elementsArray is a resolved array whose elements were fixed one by one
// and may differ in size.
type elementsArray[T any] struct {
	elements []FixedCodec[T]
	prefixed bool
	size     int
	name     string
}

func newElementsArray[T any](name string, elements []FixedCodec[T], prefixed bool) *elementsArray[T] {
	size := 0
	if prefixed {
		size = lengthPrefix
	}
	for _, e := range elements {
		size += e.ByteSize()
	}
	return &elementsArray[T]{elements: elements, prefixed: prefixed, size: size, name: name}
}

func (a *elementsArray[T]) Kind() Kind          { return KindFixed }
func (*elementsArray[T]) encodes([]T)           {}
func (a *elementsArray[T]) Description() string { return a.name }
func (a *elementsArray[T]) ByteSize() int       { return a.size }

func (a *elementsArray[T]) Write(buf []byte, offset int, value []T) error {
	if len(value) != len(a.elements) {
		return shapef("%s: value has %d elements, resolved for %d", a.name, len(value), len(a.elements))
	}
	if err := needWrite(buf, offset, a.size, a.name); err != nil {
		return err
	}
	w := writerAt(buf, offset)
	if a.prefixed {
		if err := WriteValue(w, U32, uint32(len(value))); err != nil {
			return err
		}
	}
	for i, v := range value {
		if err := WriteValue(w, a.elements[i], v); err != nil {
			return errors.Wrapf(err, "%s[%d]", a.name, i)
		}
	}
	return nil
}

func (a *elementsArray[T]) Read(buf []byte, offset int) ([]T, error) {
	if err := needRead(buf, offset, a.size, a.name); err != nil {
		return nil, err
	}
	r := NewReader(buf, offset)
	if a.prefixed {
		n, err := ReadValue(r, U32)
		if err != nil {
			return nil, err
		}
		if uint64(n) != uint64(len(a.elements)) {
			return nil, malformedf("%s: count header says %d, resolved for %d", a.name, n, len(a.elements))
		}
	}
	out := make([]T, len(a.elements))
	for i, e := range a.elements {
		v, err := ReadValue(r, e)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", a.name, i)
		}
		out[i] = v
	}
	return out, nil
}

type dynamicArray[T any] struct {
	element Codec[T]
	name    string
}

// Array encodes a u32 element count followed by the elements. Elements
// may resolve to different sizes, as with an array of strings.
func Array[T any](element Codec[T]) FixableCodec[[]T] {
	return &dynamicArray[T]{element: element, name: fmt.Sprintf("Array<%s>", element.Description())}
}

func (a *dynamicArray[T]) Kind() Kind          { return KindFixable }
func (*dynamicArray[T]) encodes([]T)           {}
func (a *dynamicArray[T]) Description() string { return a.name }
func (a *dynamicArray[T]) Inner() Codec[T]     { return a.element }

func (a *dynamicArray[T]) FromValue(value []T) (FixedCodec[[]T], error) {
	if f, ok := a.element.(FixedCodec[T]); ok && a.element.Kind() == KindFixed {
		return UniformFixedSizeArray(f, len(value), true), nil
	}
	elements, err := fixEach(a.name, a.element, value)
	if err != nil {
		return nil, err
	}
	return newElementsArray(fmt.Sprintf("%s(%d)", a.name, len(value)), elements, true), nil
}

func (a *dynamicArray[T]) FromBytes(buf []byte, offset int) (FixedCodec[[]T], error) {
	n, err := readLength(buf, offset, a.name)
	if err != nil {
		return nil, err
	}
	if f, ok := a.element.(FixedCodec[T]); ok && a.element.Kind() == KindFixed {
		fixed := UniformFixedSizeArray(f, n, true)
		if err := needRead(buf, offset, fixed.ByteSize(), a.name); err != nil {
			return nil, err
		}
		return fixed, nil
	}
	elements, err := fixEachFromBytes(a.name, a.element, n, buf, offset+lengthPrefix)
	if err != nil {
		return nil, err
	}
	return newElementsArray(fmt.Sprintf("%s(%d)", a.name, n), elements, true), nil
}

type uniformArray[T any] struct {
	element  Codec[T]
	count    int
	prefixed bool
	name     string
}

// UniformArray holds exactly count elements. A fixed element yields a
// UniformFixedArray; a fixable element yields a codec resolved element by
// element.
func UniformArray[T any](element Codec[T], count int, prefixed bool) Codec[[]T] {
	if f, ok := element.(FixedCodec[T]); ok && element.Kind() == KindFixed {
		return UniformFixedSizeArray(f, count, prefixed)
	}
	return &uniformArray[T]{
		element:  element,
		count:    count,
		prefixed: prefixed,
		name:     fmt.Sprintf("Array<%s>(%d)", element.Description(), count),
	}
}

func (a *uniformArray[T]) Kind() Kind          { return KindFixable }
func (*uniformArray[T]) encodes([]T)           {}
func (a *uniformArray[T]) Description() string { return a.name }
func (a *uniformArray[T]) Inner() Codec[T]     { return a.element }

func (a *uniformArray[T]) WithFixedInner(inner FixedCodec[T]) FixedCodec[[]T] {
	return UniformFixedSizeArray(inner, a.count, a.prefixed)
}

func (a *uniformArray[T]) FromValue(value []T) (FixedCodec[[]T], error) {
	if len(value) != a.count {
		return nil, shapef("%s: value has %d elements", a.name, len(value))
	}
	elements, err := fixEach(a.name, a.element, value)
	if err != nil {
		return nil, err
	}
	return newElementsArray(a.name, elements, a.prefixed), nil
}

func (a *uniformArray[T]) FromBytes(buf []byte, offset int) (FixedCodec[[]T], error) {
	start := offset
	if a.prefixed {
		n, err := readLength(buf, offset, a.name)
		if err != nil {
			return nil, err
		}
		if n != a.count {
			return nil, malformedf("%s: count header says %d", a.name, n)
		}
		start += lengthPrefix
	}
	elements, err := fixEachFromBytes(a.name, a.element, a.count, buf, start)
	if err != nil {
		return nil, err
	}
	return newElementsArray(a.name, elements, a.prefixed), nil
}

func fixEach[T any](name string, element Codec[T], values []T) ([]FixedCodec[T], error) {
	out := make([]FixedCodec[T], len(values))
	for i, v := range values {
		f, err := FixFromValue(element, v)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", name, i)
		}
		out[i] = f
	}
	return out, nil
}

func fixEachFromBytes[T any](name string, element Codec[T], count int, buf []byte, offset int) ([]FixedCodec[T], error) {
	out := make([]FixedCodec[T], 0, min(count, common.Remaining(buf, offset)+1))
	cursor := offset
	for i := 0; i < count; i++ {
		f, err := FixFromBytes(element, buf, cursor)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", name, i)
		}
		cursor += f.ByteSize()
		if cursor > len(buf) {
			return nil, malformedf("%s[%d]: element runs past the %d byte buffer", name, i, len(buf))
		}
		out = append(out, f)
	}
	return out, nil
}
