package beet

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
)

// maxVariants is the number of discriminants a u8 tag can carry.
const maxVariants = 256

type scalarEnum[E comparable] struct {
	variants []E
	index    map[E]int
	name     string
}

// FixedScalarEnum encodes one of variants as its u8 declaration index.
func FixedScalarEnum[E comparable](name string, variants ...E) (FixedCodec[E], error) {
	if len(variants) == 0 || len(variants) > maxVariants {
		return nil, errors.Newf("enum %s: %d variants, want 1 to %d", name, len(variants), maxVariants)
	}
	index := make(map[E]int, len(variants))
	for i, v := range variants {
		if _, dup := index[v]; dup {
			return nil, errors.Newf("enum %s: duplicate variant %v", name, v)
		}
		index[v] = i
	}
	return &scalarEnum[E]{variants: variants, index: index, name: fmt.Sprintf("Enum<%s>", name)}, nil
}

func (e *scalarEnum[E]) Kind() Kind          { return KindFixed }
func (*scalarEnum[E]) encodes(E)             {}
func (e *scalarEnum[E]) Description() string { return e.name }
func (e *scalarEnum[E]) ByteSize() int       { return 1 }

func (e *scalarEnum[E]) Write(buf []byte, offset int, value E) error {
	i, ok := e.index[value]
	if !ok {
		return shapef("%s: %v is not a variant", e.name, value)
	}
	if err := needWrite(buf, offset, 1, e.name); err != nil {
		return err
	}
	buf[offset] = byte(i)
	return nil
}

func (e *scalarEnum[E]) Read(buf []byte, offset int) (E, error) {
	var zero E
	if err := needRead(buf, offset, 1, e.name); err != nil {
		return zero, err
	}
	i := int(buf[offset])
	if i >= len(e.variants) {
		return zero, malformedf("%s: discriminant %d out of range for %d variants", e.name, i, len(e.variants))
	}
	return e.variants[i], nil
}

// UniformEnumValue is a data enum value whose variants share one payload
// codec.
type UniformEnumValue[D any] struct {
	Kind uint8
	Data D
}

type uniformDataEnum[D any] struct {
	data FixedCodec[D]
	name string
}

// UniformDataEnum encodes a u8 kind followed by a payload that has the
// same layout for every kind.
func UniformDataEnum[D any](data FixedCodec[D]) FixedCodec[UniformEnumValue[D]] {
	return &uniformDataEnum[D]{data: data, name: fmt.Sprintf("UniformDataEnum<%s>", data.Description())}
}

func (e *uniformDataEnum[D]) Kind() Kind                { return KindFixed }
func (*uniformDataEnum[D]) encodes(UniformEnumValue[D]) {}
func (e *uniformDataEnum[D]) Description() string       { return e.name }
func (e *uniformDataEnum[D]) ByteSize() int             { return 1 + e.data.ByteSize() }

func (e *uniformDataEnum[D]) Write(buf []byte, offset int, value UniformEnumValue[D]) error {
	if err := needWrite(buf, offset, e.ByteSize(), e.name); err != nil {
		return err
	}
	buf[offset] = value.Kind
	return errors.Wrap(e.data.Write(buf, offset+1, value.Data), e.name)
}

func (e *uniformDataEnum[D]) Read(buf []byte, offset int) (UniformEnumValue[D], error) {
	if err := needRead(buf, offset, e.ByteSize(), e.name); err != nil {
		return UniformEnumValue[D]{}, err
	}
	d, err := e.data.Read(buf, offset+1)
	if err != nil {
		return UniformEnumValue[D]{}, errors.Wrap(err, e.name)
	}
	return UniformEnumValue[D]{Kind: buf[offset], Data: d}, nil
}

// EnumValue is a value of a data enum: the variant name and its payload.
type EnumValue struct {
	Kind string
	Data any
}

// EnumVariant is one named case of a data enum.
type EnumVariant struct {
	Kind   string
	data   Codec[any]
	record bool
}

// Variant declares a data enum case. The payload must be a struct codec
// built by NewStruct, NewFixableStruct or the reflection builder.
func Variant[S any](kind string, data Codec[S]) EnumVariant {
	_, record := unerased(data).(layoutProvider)
	return EnumVariant{Kind: kind, data: Erase(data), record: record}
}

// DataEnum encodes a u8 discriminant followed by the payload of the
// selected variant. It is always fixable since variants differ in size.
type DataEnum struct {
	variants []EnumVariant
	index    map[string]int
	name     string
	logger   *slog.Logger
}

// NewDataEnum builds a data enum. Discriminants follow declaration order.
func NewDataEnum(name string, variants []EnumVariant, opts ...CodecOption) (*DataEnum, error) {
	o := buildOptions(opts)
	if len(variants) == 0 || len(variants) > maxVariants {
		return nil, errors.Newf("data enum %s: %d variants, want 1 to %d", name, len(variants), maxVariants)
	}
	index := make(map[string]int, len(variants))
	for i, v := range variants {
		if !v.record {
			return nil, errors.Newf("data enum %s: variant %q payload %s is not a struct", name, v.Kind, v.data.Description())
		}
		if _, dup := index[v.Kind]; dup {
			return nil, errors.Newf("data enum %s: duplicate variant %q", name, v.Kind)
		}
		index[v.Kind] = i
	}
	e := &DataEnum{variants: variants, index: index, name: name, logger: o.logger}
	e.logger.Debug("data enum declared", slog.String("enum", name), slog.String("variants", e.kinds()))
	return e, nil
}

func (e *DataEnum) Kind() Kind          { return KindFixable }
func (*DataEnum) encodes(EnumValue)     {}
func (e *DataEnum) Description() string { return fmt.Sprintf("DataEnum<%s>", e.name) }

// Variants returns the variant names in discriminant order.
func (e *DataEnum) Variants() []string {
	out := make([]string, len(e.variants))
	for i, v := range e.variants {
		out[i] = v.Kind
	}
	return out
}

func (e *DataEnum) kinds() string {
	return strings.Join(e.Variants(), ", ")
}

func (e *DataEnum) FromValue(value EnumValue) (FixedCodec[EnumValue], error) {
	if value.Kind == "" {
		return nil, shapef("%s: value with %T data has no kind, needs to be one of [ %s ]", e.name, value.Data, e.kinds())
	}
	i, ok := e.index[value.Kind]
	if !ok {
		return nil, shapef("%s: %q is not a valid kind, needs to be one of [ %s ]", e.name, value.Kind, e.kinds())
	}
	data, err := FixFromValue(e.variants[i].data, value.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.%s", e.name, value.Kind)
	}
	return e.variantCodec(i, data), nil
}

func (e *DataEnum) FromBytes(buf []byte, offset int) (FixedCodec[EnumValue], error) {
	if err := needRead(buf, offset, 1, e.name); err != nil {
		return nil, err
	}
	i := int(buf[offset])
	if i >= len(e.variants) {
		return nil, malformedf("%s: discriminant %d out of range, valid kinds are [ %s ]", e.name, i, e.kinds())
	}
	data, err := FixFromBytes(e.variants[i].data, buf, offset+1)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.%s", e.name, e.variants[i].Kind)
	}
	return e.variantCodec(i, data), nil
}

func (e *DataEnum) variantCodec(i int, data FixedCodec[any]) *variantCodec {
	kind := e.variants[i].Kind
	return &variantCodec{
		discriminant: byte(i),
		kind:         kind,
		data:         data,
		name:         fmt.Sprintf("%s.%s<%s>", e.name, kind, data.Description()),
	}
}

// variantCodec is a data enum resolved to a single variant.
type variantCodec struct {
	discriminant byte
	kind         string
	data         FixedCodec[any]
	name         string
}

func (v *variantCodec) Kind() Kind          { return KindFixed }
func (*variantCodec) encodes(EnumValue)     {}
func (v *variantCodec) Description() string { return v.name }
func (v *variantCodec) ByteSize() int       { return 1 + v.data.ByteSize() }

func (v *variantCodec) Write(buf []byte, offset int, value EnumValue) error {
	if value.Kind != v.kind {
		return shapef("%s: value has kind %q", v.name, value.Kind)
	}
	if err := needWrite(buf, offset, v.ByteSize(), v.name); err != nil {
		return err
	}
	buf[offset] = v.discriminant
	return errors.Wrap(v.data.Write(buf, offset+1, value.Data), v.name)
}

func (v *variantCodec) Read(buf []byte, offset int) (EnumValue, error) {
	if err := needRead(buf, offset, v.ByteSize(), v.name); err != nil {
		return EnumValue{}, err
	}
	if d := buf[offset]; d != v.discriminant {
		return EnumValue{}, malformedf("%s: discriminant %d, resolved for %d", v.name, d, v.discriminant)
	}
	data, err := v.data.Read(buf, offset+1)
	if err != nil {
		return EnumValue{}, errors.Wrap(err, v.name)
	}
	return EnumValue{Kind: v.kind, Data: data}, nil
}
