package schema

import (
	"github.com/cockroachdb/errors"

	"github.com/rawbytedev/beet"
)

var builtins = map[string]int{
	"vec":    1,
	"array":  1,
	"option": 1,
	"set":    1,
	"map":    2,
	"tuple":  -1,
}

func isBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func invalidf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidSchema)
}

type builder struct {
	schema   *Schema
	visiting map[string]bool
}

func (b *builder) build(e *TypeExpr) (beet.Codec[any], error) {
	if e.Size >= 0 {
		if len(e.Params) > 0 || e.Count >= 0 {
			return nil, invalidf("%s: a sized type takes no parameters", e)
		}
		switch e.Name {
		case "string":
			return beet.EraseFixed(beet.FixedSizeUTF8String(e.Size)), nil
		case "bytes":
			return beet.EraseFixed(beet.FixedSizeBytes(e.Size)), nil
		default:
			return nil, invalidf("%s: only string and bytes take a length", e)
		}
	}
	if c, ok := beet.LookupPrimitive(e.Name); ok {
		if len(e.Params) > 0 || e.Count >= 0 {
			return nil, invalidf("%s: %s takes no parameters", e, e.Name)
		}
		return c, nil
	}
	arity, ok := builtins[e.Name]
	if !ok {
		if len(e.Params) > 0 || e.Count >= 0 {
			return nil, invalidf("%s: declared type %s takes no parameters", e, e.Name)
		}
		return b.named(e.Name)
	}
	if arity > 0 && len(e.Params) != arity {
		return nil, invalidf("%s: %s takes %d type parameter(s), got %d", e, e.Name, arity, len(e.Params))
	}
	if (e.Name == "array") != (e.Count >= 0) {
		if e.Name == "array" {
			return nil, invalidf("%s: array needs an element count", e)
		}
		return nil, invalidf("%s: %s takes no element count", e, e.Name)
	}
	if e.Name == "tuple" && len(e.Params) == 0 {
		return nil, invalidf("%s: empty tuple", e)
	}
	params := make([]beet.Codec[any], len(e.Params))
	for i, p := range e.Params {
		c, err := b.build(p)
		if err != nil {
			return nil, err
		}
		params[i] = c
	}
	switch e.Name {
	case "vec":
		return beet.Erase[[]any](beet.Array(params[0])), nil
	case "array":
		return beet.Erase(beet.UniformArray(params[0], e.Count, false)), nil
	case "option":
		return beet.Erase[*any](beet.Option(params[0])), nil
	case "set":
		if err := b.scalarKey(e.Params[0]); err != nil {
			return nil, err
		}
		return beet.Erase[map[any]struct{}](beet.Set(params[0])), nil
	case "map":
		if err := b.scalarKey(e.Params[0]); err != nil {
			return nil, err
		}
		return beet.Erase[map[any]any](beet.Map(params[0], params[1])), nil
	default:
		return beet.Erase(beet.Tuple(params...)), nil
	}
}

// scalarKey rejects set members and map keys whose decoded Go values are
// not usable as map keys or compare by identity.
func (b *builder) scalarKey(e *TypeExpr) error {
	switch e.Name {
	case "u8", "u16", "u32", "u64", "i8", "i16", "i32", "i64", "bool", "string":
		if len(e.Params) == 0 {
			return nil
		}
	default:
		if def, ok := b.schema.defs[e.Name]; ok {
			if k, _ := def.kind(); k == enumDef {
				return nil
			}
		}
	}
	return invalidf("%s cannot be a set member or map key", e)
}

func (b *builder) named(name string) (beet.Codec[any], error) {
	if c, ok := b.schema.codecs[name]; ok {
		return c, nil
	}
	def, ok := b.schema.defs[name]
	if !ok {
		return nil, invalidf("unknown type %q", name)
	}
	if b.visiting[name] {
		return nil, invalidf("type %q refers to itself", name)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	c, err := b.define(def)
	if err != nil {
		return nil, err
	}
	b.schema.codecs[name] = c
	return c, nil
}

func (b *builder) define(def TypeDef) (beet.Codec[any], error) {
	k, err := def.kind()
	if err != nil {
		return nil, err
	}
	switch k {
	case enumDef:
		c, err := beet.FixedScalarEnum(def.Name, def.Enum...)
		if err != nil {
			return nil, errors.Mark(err, ErrInvalidSchema)
		}
		return beet.EraseFixed(c), nil
	case dataEnumDef:
		variants := make([]beet.EnumVariant, len(def.DataEnum))
		for i, v := range def.DataEnum {
			payload, _, err := b.record(def.Name+"."+v.Name, v.Fields)
			if err != nil {
				return nil, err
			}
			variants[i] = beet.Variant(v.Name, payload)
		}
		e, err := beet.NewDataEnum(def.Name, variants, b.schema.opts...)
		if err != nil {
			return nil, errors.Mark(err, ErrInvalidSchema)
		}
		return beet.Erase[beet.EnumValue](e), nil
	default:
		c, l, err := b.record(def.Name, def.Struct)
		if err != nil {
			return nil, err
		}
		b.schema.structs[def.Name] = l
		return beet.Erase(c), nil
	}
}

func (b *builder) record(name string, defs []FieldDef) (beet.Codec[beet.Record], layouter, error) {
	fields := make([]beet.Field[beet.Record], len(defs))
	fixed := true
	for i, f := range defs {
		e, err := ParseType(f.Type)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "%s.%s", name, f.Name)
		}
		c, err := b.build(e)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "%s.%s", name, f.Name)
		}
		fixed = fixed && c.Kind() == beet.KindFixed
		fields[i] = beet.ArgsField(f.Name, c)
	}
	if fixed {
		s, err := beet.NewArgsStruct(name, fields, b.schema.opts...)
		if err != nil {
			return nil, nil, errors.Mark(err, ErrInvalidSchema)
		}
		return s, s, nil
	}
	s, err := beet.NewFixableArgsStruct(name, fields, b.schema.opts...)
	if err != nil {
		return nil, nil, errors.Mark(err, ErrInvalidSchema)
	}
	return s, s, nil
}
