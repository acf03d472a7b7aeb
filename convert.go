package beet

// Convert presents a codec for U as a codec for T. The layout is that of
// c; to and from translate values on the way in and out. A public key
// codec, for instance, is FixedSizeBytes(32) converted to a [32]byte type.
func Convert[T, U any](c Codec[U], to func(T) (U, error), from func(U) (T, error)) Codec[T] {
	switch c.Kind() {
	case KindFixed:
		if f, ok := c.(FixedCodec[U]); ok {
			return ConvertFixed(f, to, from)
		}
	case KindFixable:
		if f, ok := c.(FixableCodec[U]); ok {
			return &convertedFixable[T, U]{inner: f, to: to, from: from}
		}
	}
	return &invalidCodec[T]{name: c.Description(), err: kindMismatch(c)}
}

// ConvertFixed is Convert for a fixed codec.
func ConvertFixed[T, U any](c FixedCodec[U], to func(T) (U, error), from func(U) (T, error)) FixedCodec[T] {
	return &convertedFixed[T, U]{inner: c, to: to, from: from}
}

type convertedFixed[T, U any] struct {
	inner FixedCodec[U]
	to    func(T) (U, error)
	from  func(U) (T, error)
}

func (c *convertedFixed[T, U]) Kind() Kind          { return KindFixed }
func (*convertedFixed[T, U]) encodes(T)             {}
func (c *convertedFixed[T, U]) Description() string { return c.inner.Description() }
func (c *convertedFixed[T, U]) ByteSize() int       { return c.inner.ByteSize() }
func (c *convertedFixed[T, U]) unwrap() any         { return c.inner }

func (c *convertedFixed[T, U]) Write(buf []byte, offset int, value T) error {
	u, err := c.to(value)
	if err != nil {
		return err
	}
	return c.inner.Write(buf, offset, u)
}

func (c *convertedFixed[T, U]) Read(buf []byte, offset int) (T, error) {
	u, err := c.inner.Read(buf, offset)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.from(u)
}

type convertedFixable[T, U any] struct {
	inner FixableCodec[U]
	to    func(T) (U, error)
	from  func(U) (T, error)
}

func (c *convertedFixable[T, U]) Kind() Kind          { return KindFixable }
func (*convertedFixable[T, U]) encodes(T)             {}
func (c *convertedFixable[T, U]) Description() string { return c.inner.Description() }
func (c *convertedFixable[T, U]) unwrap() any         { return c.inner }

func (c *convertedFixable[T, U]) FromValue(value T) (FixedCodec[T], error) {
	u, err := c.to(value)
	if err != nil {
		return nil, err
	}
	fixed, err := c.inner.FromValue(u)
	if err != nil {
		return nil, err
	}
	return ConvertFixed(fixed, c.to, c.from), nil
}

func (c *convertedFixable[T, U]) FromBytes(buf []byte, offset int) (FixedCodec[T], error) {
	fixed, err := c.inner.FromBytes(buf, offset)
	if err != nil {
		return nil, err
	}
	return ConvertFixed(fixed, c.to, c.from), nil
}
