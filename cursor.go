package beet

// Writer appends fixed-size encodings to a buffer allocated up front.
// Writes that would run past the buffer fail with ErrCapacityOverflow.
type Writer struct {
	buf    []byte
	offset int
}

// NewWriter allocates a zeroed buffer of size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, size)}
}

// writerAt continues writing into buf starting at offset.
func writerAt(buf []byte, offset int) *Writer {
	return &Writer{buf: buf, offset: offset}
}

// Buffer returns the whole underlying buffer, written or not.
func (w *Writer) Buffer() []byte { return w.buf }

// Offset returns the position of the next write.
func (w *Writer) Offset() int { return w.offset }

// Write encodes value with an erased codec and advances the cursor.
func (w *Writer) Write(c FixedCodec[any], value any) error {
	return WriteValue(w, c, value)
}

// WriteValue encodes value at the cursor and advances it by c.ByteSize().
func WriteValue[T any](w *Writer, c FixedCodec[T], value T) error {
	n := c.ByteSize()
	if err := needWrite(w.buf, w.offset, n, c.Description()); err != nil {
		return err
	}
	if err := c.Write(w.buf, w.offset, value); err != nil {
		return err
	}
	w.offset += n
	return nil
}

// Reader decodes consecutive fixed-size values from a buffer.
type Reader struct {
	buf    []byte
	offset int
}

// NewReader starts reading buf at offset.
func NewReader(buf []byte, offset int) *Reader {
	return &Reader{buf: buf, offset: offset}
}

// Offset returns the position of the next read.
func (r *Reader) Offset() int { return r.offset }

// Read decodes a value with an erased codec and advances the cursor.
func (r *Reader) Read(c FixedCodec[any]) (any, error) {
	return ReadValue(r, c)
}

// ReadValue decodes a value at the cursor and advances it by c.ByteSize().
func ReadValue[T any](r *Reader, c FixedCodec[T]) (T, error) {
	var zero T
	n := c.ByteSize()
	if err := needRead(r.buf, r.offset, n, c.Description()); err != nil {
		return zero, err
	}
	v, err := c.Read(r.buf, r.offset)
	if err != nil {
		return zero, err
	}
	r.offset += n
	return v, nil
}
