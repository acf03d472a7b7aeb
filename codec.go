// Package beet implements borsh-compatible binary codecs that compose into
// structs, enums and collections.
//
// Every codec is either fixed, with a byte size known up front, or fixable,
// meaning its size depends on the value being written or the bytes being
// read. A fixable codec is resolved into a fixed one before any I/O happens,
// either from a value (FixFromValue) or from a buffer (FixFromBytes).
package beet

import (
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
)

// Kind tells fixed codecs apart from fixable ones.
type Kind uint8

const (
	KindFixed Kind = iota
	KindFixable
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindFixable:
		return "fixable"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Codec is the common surface of every codec for values of type T.
// Concrete codecs also implement FixedCodec or FixableCodec, as reported
// by Kind.
type Codec[T any] interface {
	Kind() Kind
	Description() string
	// encodes ties the codec to T; it is never called.
	encodes(T)
}

// FixedCodec encodes values of T in exactly ByteSize bytes.
type FixedCodec[T any] interface {
	Codec[T]
	ByteSize() int
	// Write encodes value at buf[offset:offset+ByteSize()].
	Write(buf []byte, offset int, value T) error
	// Read decodes a value from buf[offset:offset+ByteSize()].
	Read(buf []byte, offset int) (T, error)
}

// FixableCodec produces a FixedCodec once the value or the encoded bytes
// are known.
type FixableCodec[T any] interface {
	Codec[T]
	FromValue(value T) (FixedCodec[T], error)
	FromBytes(buf []byte, offset int) (FixedCodec[T], error)
}

// Composite is implemented by codecs wrapping a single inner codec. Fixing
// happens inside-out: the inner codec is resolved first, then the wrapper
// is rebuilt around it.
type Composite[T, I any] interface {
	Inner() Codec[I]
	WithFixedInner(inner FixedCodec[I]) FixedCodec[T]
}

// FixFromValue returns the fixed codec that encodes value.
func FixFromValue[T any](c Codec[T], value T) (FixedCodec[T], error) {
	switch c.Kind() {
	case KindFixed:
		if f, ok := c.(FixedCodec[T]); ok {
			return f, nil
		}
	case KindFixable:
		if f, ok := c.(FixableCodec[T]); ok {
			return f.FromValue(value)
		}
	}
	return nil, kindMismatch(c)
}

// FixFromBytes returns the fixed codec that decodes the value at
// buf[offset:].
func FixFromBytes[T any](c Codec[T], buf []byte, offset int) (FixedCodec[T], error) {
	switch c.Kind() {
	case KindFixed:
		if f, ok := c.(FixedCodec[T]); ok {
			return f, nil
		}
	case KindFixable:
		if f, ok := c.(FixableCodec[T]); ok {
			return f.FromBytes(buf, offset)
		}
	}
	return nil, kindMismatch(c)
}

// kindMismatch reports a codec whose Kind disagrees with its method set.
func kindMismatch[T any](c Codec[T]) error {
	switch c.Kind() {
	case KindFixed:
		return errors.AssertionFailedf("%s reports a fixed kind without a fixed layout", c.Description())
	case KindFixable:
		return errors.AssertionFailedf("%s reports a fixable kind without a resolver", c.Description())
	default:
		return errors.AssertionFailedf("%s has unknown kind %s", c.Description(), c.Kind())
	}
}

// invalidCodec stands in for a codec that cannot be adapted. Resolving it
// always returns err.
type invalidCodec[T any] struct {
	name string
	err  error
}

func (c *invalidCodec[T]) Kind() Kind          { return KindFixable }
func (*invalidCodec[T]) encodes(T)             {}
func (c *invalidCodec[T]) Description() string { return c.name }

func (c *invalidCodec[T]) FromValue(T) (FixedCodec[T], error) { return nil, c.err }

func (c *invalidCodec[T]) FromBytes([]byte, int) (FixedCodec[T], error) { return nil, c.err }

// Serialize resolves c against value and returns its encoding in a buffer
// of exactly the resolved size.
func Serialize[T any](c Codec[T], value T) ([]byte, error) {
	fixed, err := FixFromValue(c, value)
	if err != nil {
		return nil, err
	}
	w := NewWriter(fixed.ByteSize())
	if err := WriteValue(w, fixed, value); err != nil {
		return nil, err
	}
	return w.Buffer(), nil
}

// Deserialize resolves c against buf at offset and decodes one value. It
// returns the value and the offset just past it.
func Deserialize[T any](c Codec[T], buf []byte, offset int) (T, int, error) {
	var zero T
	fixed, err := FixFromBytes(c, buf, offset)
	if err != nil {
		return zero, offset, err
	}
	r := NewReader(buf, offset)
	v, err := ReadValue(r, fixed)
	if err != nil {
		return zero, offset, err
	}
	return v, r.Offset(), nil
}

// Must panics if err is non-nil. It is meant for package-level codec
// declarations whose construction cannot fail at runtime.
func Must[C any](c C, err error) C {
	if err != nil {
		panic(err)
	}
	return c
}

// Erase hides the value type of c so codecs of different types can sit
// side by side in struct fields, tuples and enum variants. Values of the
// wrong dynamic type are rejected with ErrShapeMismatch.
func Erase[T any](c Codec[T]) Codec[any] {
	switch c.Kind() {
	case KindFixed:
		if f, ok := any(c).(FixedCodec[any]); ok {
			return f
		}
		if f, ok := c.(FixedCodec[T]); ok {
			return EraseFixed(f)
		}
	case KindFixable:
		if f, ok := any(c).(FixableCodec[any]); ok {
			return f
		}
		if f, ok := c.(FixableCodec[T]); ok {
			return &erasedFixable[T]{inner: f}
		}
	}
	return &invalidCodec[any]{name: c.Description(), err: kindMismatch(c)}
}

// EraseFixed is Erase for codecs already known to be fixed.
func EraseFixed[T any](c FixedCodec[T]) FixedCodec[any] {
	if f, ok := any(c).(FixedCodec[any]); ok {
		return f
	}
	return &erasedFixed[T]{inner: c}
}

// unwrapper exposes the typed codec behind an erased one.
type unwrapper interface {
	unwrap() any
}

type erasedFixed[T any] struct {
	inner FixedCodec[T]
}

func (e *erasedFixed[T]) Kind() Kind          { return KindFixed }
func (*erasedFixed[T]) encodes(any)           {}
func (e *erasedFixed[T]) Description() string { return e.inner.Description() }
func (e *erasedFixed[T]) ByteSize() int       { return e.inner.ByteSize() }
func (e *erasedFixed[T]) unwrap() any         { return e.inner }

func (e *erasedFixed[T]) Write(buf []byte, offset int, value any) error {
	v, err := cast[T](value, e.inner)
	if err != nil {
		return err
	}
	return e.inner.Write(buf, offset, v)
}

func (e *erasedFixed[T]) Read(buf []byte, offset int) (any, error) {
	v, err := e.inner.Read(buf, offset)
	if err != nil {
		return nil, err
	}
	return v, nil
}

type erasedFixable[T any] struct {
	inner FixableCodec[T]
}

func (e *erasedFixable[T]) Kind() Kind          { return KindFixable }
func (*erasedFixable[T]) encodes(any)           {}
func (e *erasedFixable[T]) Description() string { return e.inner.Description() }
func (e *erasedFixable[T]) unwrap() any         { return e.inner }

func (e *erasedFixable[T]) FromValue(value any) (FixedCodec[any], error) {
	v, err := cast[T](value, e.inner)
	if err != nil {
		return nil, err
	}
	fixed, err := e.inner.FromValue(v)
	if err != nil {
		return nil, err
	}
	return EraseFixed(fixed), nil
}

func (e *erasedFixable[T]) FromBytes(buf []byte, offset int) (FixedCodec[any], error) {
	fixed, err := e.inner.FromBytes(buf, offset)
	if err != nil {
		return nil, err
	}
	return EraseFixed(fixed), nil
}

// cast converts an erased value back to T. A nil value is accepted for
// nilable T such as pointers, slices and maps.
func cast[T any](value any, c Codec[T]) (T, error) {
	if v, ok := value.(T); ok {
		return v, nil
	}
	var zero T
	t := reflect.TypeFor[T]()
	if value == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			return zero, nil
		}
	}
	return zero, shapef("%s expects a value of type %s, got %T", c.Description(), t, value)
}

// unerased strips any erasure wrappers from c.
func unerased(c any) any {
	for {
		u, ok := c.(unwrapper)
		if !ok {
			return c
		}
		c = u.unwrap()
	}
}
