package beet

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// Record holds decoded field values by field name. Struct constructors
// receive one per decoded value.
type Record map[string]any

// Get returns the named field converted to F.
func Get[F any](r Record, name string) (F, error) {
	var zero F
	raw, ok := r[name]
	if !ok {
		return zero, shapef("record has no field %q", name)
	}
	v, ok := raw.(F)
	if !ok {
		return zero, shapef("field %q holds %T, want %T", name, raw, zero)
	}
	return v, nil
}

func (r Record) keys() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return strings.Join(keys, ", ")
}

// Field is one named member of a struct codec and the accessor that pulls
// its value out of S.
type Field[S any] struct {
	Name  string
	codec Codec[any]
	get   func(S) (any, error)
}

// NewField declares a struct field encoded with c and read from S by get.
func NewField[S, F any](name string, c Codec[F], get func(S) F) Field[S] {
	return Field[S]{
		Name:  name,
		codec: Erase(c),
		get:   func(s S) (any, error) { return get(s), nil },
	}
}

// ArgsField declares a field of a Record-valued struct.
func ArgsField[F any](name string, c Codec[F]) Field[Record] {
	return Field[Record]{
		Name:  name,
		codec: Erase(c),
		get: func(r Record) (any, error) {
			v, ok := r[name]
			if !ok {
				return nil, shapef("value with keys [ %s ] should include struct key %q", r.keys(), name)
			}
			return v, nil
		},
	}
}

// Codec returns the field's codec.
func (f Field[S]) Codec() Codec[any] { return f.codec }

// FieldLayout describes where a field sits in a struct encoding. Size is
// -1 for a field whose size is only known once resolved.
type FieldLayout struct {
	Name   string
	Offset int
	Size   int
	Codec  Codec[any]
}

type layoutProvider interface {
	Layout() []FieldLayout
	FixedPrefixSize() (int, bool)
}

func validateFields[S any](name string, fields []Field[S]) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" || f.codec == nil || f.get == nil {
			return errors.Newf("struct %s: incomplete field declaration %q", name, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return errors.Newf("struct %s: duplicate field %q", name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Struct is a fixed struct codec: every field has a fixed size and fields
// are packed in declaration order with no padding.
type Struct[S any] struct {
	fields    []Field[S]
	fixed     []FixedCodec[any]
	offsets   []int
	construct func(Record) (S, error)
	size      int
	name      string
	logger    *slog.Logger
}

// NewStruct builds a fixed struct codec. Every field codec must be fixed;
// use NewFixableStruct otherwise.
func NewStruct[S any](name string, fields []Field[S], construct func(Record) (S, error), opts ...CodecOption) (*Struct[S], error) {
	o := buildOptions(opts)
	if err := validateFields(name, fields); err != nil {
		return nil, err
	}
	if construct == nil {
		return nil, errors.Newf("struct %s: nil constructor", name)
	}
	fixed := make([]FixedCodec[any], len(fields))
	for i, f := range fields {
		fc, ok := f.codec.(FixedCodec[any])
		if !ok || f.codec.Kind() != KindFixed {
			return nil, errors.Newf("struct %s: field %q uses fixable %s, declare it with NewFixableStruct", name, f.Name, f.codec.Description())
		}
		fixed[i] = fc
	}
	s := newResolvedStruct(name, fields, fixed, construct, o.logger)
	s.logger.Debug("struct declared",
		slog.String("struct", name),
		slog.Int("byteSize", s.size),
		slog.Any("fields", describeLayout(s.Layout())))
	return s, nil
}

func newResolvedStruct[S any](name string, fields []Field[S], fixed []FixedCodec[any], construct func(Record) (S, error), logger *slog.Logger) *Struct[S] {
	offsets := make([]int, len(fixed))
	size := 0
	for i, f := range fixed {
		offsets[i] = size
		size += f.ByteSize()
	}
	return &Struct[S]{
		fields:    fields,
		fixed:     fixed,
		offsets:   offsets,
		construct: construct,
		size:      size,
		name:      name,
		logger:    logger,
	}
}

func (s *Struct[S]) Kind() Kind          { return KindFixed }
func (*Struct[S]) encodes(S)             {}
func (s *Struct[S]) Description() string { return s.name }
func (s *Struct[S]) ByteSize() int       { return s.size }

func (s *Struct[S]) Write(buf []byte, offset int, value S) error {
	if err := needWrite(buf, offset, s.size, s.name); err != nil {
		return err
	}
	w := writerAt(buf, offset)
	for i, f := range s.fields {
		v, err := f.get(value)
		if err != nil {
			return errors.Wrapf(err, "%s.%s", s.name, f.Name)
		}
		if err := w.Write(s.fixed[i], v); err != nil {
			return errors.Wrapf(err, "%s.%s", s.name, f.Name)
		}
	}
	return nil
}

func (s *Struct[S]) Read(buf []byte, offset int) (S, error) {
	var zero S
	if err := needRead(buf, offset, s.size, s.name); err != nil {
		return zero, err
	}
	r := NewReader(buf, offset)
	rec := make(Record, len(s.fields))
	for i, f := range s.fields {
		v, err := r.Read(s.fixed[i])
		if err != nil {
			return zero, errors.Wrapf(err, "%s.%s", s.name, f.Name)
		}
		rec[f.Name] = v
	}
	out, err := s.construct(rec)
	if err != nil {
		return zero, errors.Wrapf(err, "%s", s.name)
	}
	return out, nil
}

// Serialize encodes value into a buffer of exactly ByteSize bytes.
func (s *Struct[S]) Serialize(value S) ([]byte, error) {
	return s.SerializeInto(value, s.size)
}

// SerializeInto encodes value at the start of a zeroed buffer of size
// bytes. A size smaller than ByteSize fails with ErrCapacityOverflow.
func (s *Struct[S]) SerializeInto(value S, size int) ([]byte, error) {
	w := NewWriter(size)
	if err := WriteValue(w, s, value); err != nil {
		return nil, err
	}
	return w.Buffer(), nil
}

// Deserialize decodes a value at offset and returns the offset after it.
func (s *Struct[S]) Deserialize(buf []byte, offset int) (S, int, error) {
	r := NewReader(buf, offset)
	v, err := ReadValue(r, s)
	if err != nil {
		var zero S
		return zero, offset, err
	}
	return v, r.Offset(), nil
}

// OffsetOf returns the byte offset of the named field from the start of
// the struct.
func (s *Struct[S]) OffsetOf(name string) (int, error) {
	for i, f := range s.fields {
		if f.Name == name {
			return s.offsets[i], nil
		}
	}
	return 0, shapef("%s has no field %q", s.name, name)
}

// Layout returns every field with its offset and size.
func (s *Struct[S]) Layout() []FieldLayout {
	out := make([]FieldLayout, len(s.fields))
	for i, f := range s.fields {
		out[i] = FieldLayout{Name: f.Name, Offset: s.offsets[i], Size: s.fixed[i].ByteSize(), Codec: s.fixed[i]}
	}
	return out
}

// FixedPrefixSize returns ByteSize; every field of a fixed struct is part
// of the fixed prefix.
func (s *Struct[S]) FixedPrefixSize() (int, bool) { return s.size, true }

// FixableStruct is a struct codec with at least one field whose size
// depends on the value. It resolves to a Struct field by field.
type FixableStruct[S any] struct {
	fields    []Field[S]
	construct func(Record) (S, error)
	name      string
	logger    *slog.Logger
}

// NewFixableStruct builds a struct codec that accepts fixable fields.
func NewFixableStruct[S any](name string, fields []Field[S], construct func(Record) (S, error), opts ...CodecOption) (*FixableStruct[S], error) {
	o := buildOptions(opts)
	if err := validateFields(name, fields); err != nil {
		return nil, err
	}
	if construct == nil {
		return nil, errors.Newf("struct %s: nil constructor", name)
	}
	s := &FixableStruct[S]{fields: fields, construct: construct, name: name, logger: o.logger}
	prefix, _ := s.FixedPrefixSize()
	s.logger.Debug("fixable struct declared",
		slog.String("struct", name),
		slog.Int("fixedPrefix", prefix),
		slog.Any("fields", describeLayout(s.Layout())))
	return s, nil
}

func (s *FixableStruct[S]) Kind() Kind          { return KindFixable }
func (*FixableStruct[S]) encodes(S)             {}
func (s *FixableStruct[S]) Description() string { return s.name }

func (s *FixableStruct[S]) FromValue(value S) (FixedCodec[S], error) {
	fixed := make([]FixedCodec[any], len(s.fields))
	for i, f := range s.fields {
		v, err := f.get(value)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", s.name, f.Name)
		}
		if fixed[i], err = FixFromValue(f.codec, v); err != nil {
			return nil, errors.Wrapf(err, "%s.%s", s.name, f.Name)
		}
	}
	return s.resolved(fixed, "value"), nil
}

func (s *FixableStruct[S]) FromBytes(buf []byte, offset int) (FixedCodec[S], error) {
	fixed := make([]FixedCodec[any], len(s.fields))
	cursor := offset
	for i, f := range s.fields {
		fc, err := FixFromBytes(f.codec, buf, cursor)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", s.name, f.Name)
		}
		fixed[i] = fc
		cursor += fc.ByteSize()
	}
	return s.resolved(fixed, "bytes"), nil
}

func (s *FixableStruct[S]) resolved(fixed []FixedCodec[any], from string) *Struct[S] {
	out := newResolvedStruct(s.name, s.fields, fixed, s.construct, s.logger)
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.logger.Debug("struct resolved",
			slog.String("struct", s.name),
			slog.String("from", from),
			slog.Int("byteSize", out.size))
	}
	return out
}

// Serialize resolves the struct against value and encodes it.
func (s *FixableStruct[S]) Serialize(value S) ([]byte, error) {
	return Serialize[S](s, value)
}

// Deserialize resolves the struct against buf and decodes one value.
func (s *FixableStruct[S]) Deserialize(buf []byte, offset int) (S, int, error) {
	return Deserialize[S](s, buf, offset)
}

// Layout returns the fields whose offsets are known before resolution:
// the leading fixed fields and the first fixable one, which has Size -1.
func (s *FixableStruct[S]) Layout() []FieldLayout {
	var out []FieldLayout
	offset := 0
	for _, f := range s.fields {
		fc, ok := f.codec.(FixedCodec[any])
		if !ok || f.codec.Kind() != KindFixed {
			return append(out, FieldLayout{Name: f.Name, Offset: offset, Size: -1, Codec: f.codec})
		}
		out = append(out, FieldLayout{Name: f.Name, Offset: offset, Size: fc.ByteSize(), Codec: fc})
		offset += fc.ByteSize()
	}
	return out
}

// OffsetOf returns the offset of a field that precedes or is the first
// fixable field.
func (s *FixableStruct[S]) OffsetOf(name string) (int, error) {
	for _, l := range s.Layout() {
		if l.Name == name {
			return l.Offset, nil
		}
	}
	return 0, shapef("%s: offset of %q depends on the encoded value", s.name, name)
}

// FixedPrefixSize returns the size of the leading run of fixed fields.
// The boolean reports whether that run covers every field.
func (s *FixableStruct[S]) FixedPrefixSize() (int, bool) {
	size := 0
	for _, l := range s.Layout() {
		if l.Size < 0 {
			return size, false
		}
		size += l.Size
	}
	return size, true
}

// NewArgsStruct builds a fixed struct over Records, for values that have
// no Go type of their own.
func NewArgsStruct(name string, fields []Field[Record], opts ...CodecOption) (*Struct[Record], error) {
	return NewStruct(name, fields, identityRecord, opts...)
}

// NewFixableArgsStruct is NewArgsStruct for fields that may be fixable.
func NewFixableArgsStruct(name string, fields []Field[Record], opts ...CodecOption) (*FixableStruct[Record], error) {
	return NewFixableStruct(name, fields, identityRecord, opts...)
}

func identityRecord(r Record) (Record, error) { return r, nil }

func describeLayout(layout []FieldLayout) []string {
	out := make([]string, len(layout))
	for i, l := range layout {
		if l.Size < 0 {
			out[i] = fmt.Sprintf("%s@%d: %s", l.Name, l.Offset, l.Codec.Description())
			continue
		}
		out[i] = fmt.Sprintf("%s@%d: %s (%d B)", l.Name, l.Offset, l.Codec.Description(), l.Size)
	}
	return out
}
