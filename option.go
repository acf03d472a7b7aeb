package beet

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

const (
	optionNone byte = 0
	optionSome byte = 1
)

// FixedOption reserves room for the inner value whether or not it is
// present: one tag byte plus the inner size. An absent value writes only
// the tag and leaves the following bytes untouched.
type FixedOption[T any] struct {
	inner FixedCodec[T]
	name  string
}

// FixedSizeOption wraps a fixed inner codec. A nil pointer is absent.
func FixedSizeOption[T any](inner FixedCodec[T]) *FixedOption[T] {
	return &FixedOption[T]{inner: inner, name: fmt.Sprintf("COption<%s>(%d)", inner.Description(), 1+inner.ByteSize())}
}

func (o *FixedOption[T]) Kind() Kind          { return KindFixed }
func (*FixedOption[T]) encodes(*T)            {}
func (o *FixedOption[T]) Description() string { return o.name }
func (o *FixedOption[T]) ByteSize() int       { return 1 + o.inner.ByteSize() }
func (o *FixedOption[T]) Inner() Codec[T]     { return o.inner }

func (o *FixedOption[T]) WithFixedInner(inner FixedCodec[T]) FixedCodec[*T] {
	return FixedSizeOption(inner)
}

func (o *FixedOption[T]) Write(buf []byte, offset int, value *T) error {
	if err := needWrite(buf, offset, o.ByteSize(), o.name); err != nil {
		return err
	}
	if value == nil {
		buf[offset] = optionNone
		return nil
	}
	buf[offset] = optionSome
	return errors.Wrap(o.inner.Write(buf, offset+1, *value), o.name)
}

func (o *FixedOption[T]) Read(buf []byte, offset int) (*T, error) {
	if err := needRead(buf, offset, o.ByteSize(), o.name); err != nil {
		return nil, err
	}
	return readOptional(o.name, o.inner, buf, offset)
}

func readOptional[T any](name string, inner FixedCodec[T], buf []byte, offset int) (*T, error) {
	switch tag := buf[offset]; tag {
	case optionNone:
		return nil, nil
	case optionSome:
		v, err := inner.Read(buf, offset+1)
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		return &v, nil
	default:
		return nil, malformedf("%s: invalid tag %#x", name, tag)
	}
}

type option[T any] struct {
	inner Codec[T]
	name  string
}

// Option encodes an absent value as a single zero byte and a present one
// as a one byte followed by the inner encoding.
func Option[T any](inner Codec[T]) FixableCodec[*T] {
	return &option[T]{inner: inner, name: fmt.Sprintf("COption<%s>", inner.Description())}
}

func (o *option[T]) Kind() Kind          { return KindFixable }
func (*option[T]) encodes(*T)            {}
func (o *option[T]) Description() string { return o.name }
func (o *option[T]) Inner() Codec[T]     { return o.inner }

func (o *option[T]) WithFixedInner(inner FixedCodec[T]) FixedCodec[*T] {
	return &someOption[T]{inner: inner, name: fmt.Sprintf("%s[1 + %d]", o.name, inner.ByteSize())}
}

func (o *option[T]) none() FixedCodec[*T] {
	return &noneOption[T]{name: fmt.Sprintf("%s[None]", o.name)}
}

func (o *option[T]) FromValue(value *T) (FixedCodec[*T], error) {
	if value == nil {
		return o.none(), nil
	}
	inner, err := FixFromValue(o.inner, *value)
	if err != nil {
		return nil, errors.Wrap(err, o.name)
	}
	return o.WithFixedInner(inner), nil
}

func (o *option[T]) FromBytes(buf []byte, offset int) (FixedCodec[*T], error) {
	if err := needRead(buf, offset, 1, o.name); err != nil {
		return nil, err
	}
	switch tag := buf[offset]; tag {
	case optionNone:
		return o.none(), nil
	case optionSome:
		inner, err := FixFromBytes(o.inner, buf, offset+1)
		if err != nil {
			return nil, errors.Wrap(err, o.name)
		}
		return o.WithFixedInner(inner), nil
	default:
		return nil, malformedf("%s: invalid tag %#x", o.name, tag)
	}
}

type noneOption[T any] struct {
	name string
}

func (o *noneOption[T]) Kind() Kind          { return KindFixed }
func (*noneOption[T]) encodes(*T)            {}
func (o *noneOption[T]) Description() string { return o.name }
func (o *noneOption[T]) ByteSize() int       { return 1 }

func (o *noneOption[T]) Write(buf []byte, offset int, value *T) error {
	if value != nil {
		return shapef("%s: resolved for an absent value", o.name)
	}
	if err := needWrite(buf, offset, 1, o.name); err != nil {
		return err
	}
	buf[offset] = optionNone
	return nil
}

func (o *noneOption[T]) Read(buf []byte, offset int) (*T, error) {
	if err := needRead(buf, offset, 1, o.name); err != nil {
		return nil, err
	}
	if tag := buf[offset]; tag != optionNone {
		return nil, malformedf("%s: tag %#x where an absent value was resolved", o.name, tag)
	}
	return nil, nil
}

type someOption[T any] struct {
	inner FixedCodec[T]
	name  string
}

func (o *someOption[T]) Kind() Kind          { return KindFixed }
func (*someOption[T]) encodes(*T)            {}
func (o *someOption[T]) Description() string { return o.name }
func (o *someOption[T]) ByteSize() int       { return 1 + o.inner.ByteSize() }

func (o *someOption[T]) Write(buf []byte, offset int, value *T) error {
	if value == nil {
		return shapef("%s: resolved for a present value", o.name)
	}
	if err := needWrite(buf, offset, o.ByteSize(), o.name); err != nil {
		return err
	}
	buf[offset] = optionSome
	return errors.Wrap(o.inner.Write(buf, offset+1, *value), o.name)
}

func (o *someOption[T]) Read(buf []byte, offset int) (*T, error) {
	if err := needRead(buf, offset, o.ByteSize(), o.name); err != nil {
		return nil, err
	}
	if tag := buf[offset]; tag != optionSome {
		return nil, malformedf("%s: tag %#x where a present value was resolved", o.name, tag)
	}
	return readOptional(o.name, o.inner, buf, offset)
}
