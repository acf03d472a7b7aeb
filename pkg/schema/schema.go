// Package schema compiles YAML type descriptions into beet codecs.
//
// A schema document lists named types. Each is a struct, a scalar enum or
// a data enum, and fields refer to other types through type expressions:
//
//	types:
//	  - name: Results
//	    struct:
//	      - {name: win, type: u8}
//	      - {name: totalWin, type: u16}
//	  - name: Color
//	    enum: [Red, Green, Blue]
//	  - name: Command
//	    dataEnum:
//	      - name: Quit
//	      - name: Say
//	        fields:
//	          - {name: text, type: string}
package schema

import (
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/beet"
)

// ErrInvalidSchema marks documents and type expressions that cannot be
// compiled.
var ErrInvalidSchema = errors.New("invalid schema")

// Document is the YAML form of a schema.
type Document struct {
	Types []TypeDef `yaml:"types"`
}

// TypeDef declares one named type. Exactly one of Struct, Enum and
// DataEnum is set.
type TypeDef struct {
	Name     string       `yaml:"name"`
	Struct   []FieldDef   `yaml:"struct,omitempty"`
	Enum     []string     `yaml:"enum,omitempty"`
	DataEnum []VariantDef `yaml:"dataEnum,omitempty"`
}

// FieldDef is a struct or variant field.
type FieldDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// VariantDef is one case of a data enum.
type VariantDef struct {
	Name   string     `yaml:"name"`
	Fields []FieldDef `yaml:"fields,omitempty"`
}

type defKind int

const (
	structDef defKind = iota
	enumDef
	dataEnumDef
)

func (d TypeDef) kind() (defKind, error) {
	set := 0
	k := structDef
	if d.Struct != nil {
		set++
	}
	if d.Enum != nil {
		set++
		k = enumDef
	}
	if d.DataEnum != nil {
		set++
		k = dataEnumDef
	}
	if set != 1 {
		return 0, errors.Mark(errors.Newf("type %q must declare exactly one of struct, enum or dataEnum", d.Name), ErrInvalidSchema)
	}
	return k, nil
}

// layouter is implemented by both fixed and fixable struct codecs.
type layouter interface {
	Layout() []beet.FieldLayout
	FixedPrefixSize() (int, bool)
}

// Schema is a compiled document. It is immutable once built and safe for
// concurrent use.
type Schema struct {
	defs    map[string]TypeDef
	order   []string
	codecs  map[string]beet.Codec[any]
	structs map[string]layouter
	opts    []beet.CodecOption
}

// Parse decodes a YAML document and compiles it.
func Parse(data []byte, opts ...beet.CodecOption) (*Schema, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse schema"), ErrInvalidSchema)
	}
	return Compile(doc, opts...)
}

// Compile builds codecs for every type in doc.
func Compile(doc Document, opts ...beet.CodecOption) (*Schema, error) {
	s := &Schema{
		defs:    make(map[string]TypeDef, len(doc.Types)),
		codecs:  make(map[string]beet.Codec[any], len(doc.Types)),
		structs: make(map[string]layouter),
		opts:    opts,
	}
	for _, d := range doc.Types {
		if d.Name == "" {
			return nil, errors.Mark(errors.New("type without a name"), ErrInvalidSchema)
		}
		if _, taken := beet.LookupPrimitive(d.Name); taken || isBuiltin(d.Name) {
			return nil, errors.Mark(errors.Newf("type %q shadows a built-in type", d.Name), ErrInvalidSchema)
		}
		if _, dup := s.defs[d.Name]; dup {
			return nil, errors.Mark(errors.Newf("type %q declared twice", d.Name), ErrInvalidSchema)
		}
		if _, err := d.kind(); err != nil {
			return nil, err
		}
		s.defs[d.Name] = d
		s.order = append(s.order, d.Name)
	}
	b := &builder{schema: s, visiting: make(map[string]bool)}
	for _, name := range s.order {
		if _, err := b.named(name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Names returns the declared type names in document order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.order...)
}

// Codec returns the codec for a type expression, which may name a
// declared type or combine declared and built-in types.
func (s *Schema) Codec(expr string) (beet.Codec[any], error) {
	e, err := ParseType(expr)
	if err != nil {
		return nil, err
	}
	return s.codecFor(e)
}

func (s *Schema) codecFor(e *TypeExpr) (beet.Codec[any], error) {
	b := &builder{schema: s, visiting: make(map[string]bool)}
	return b.build(e)
}

// Layout returns the field layout of a declared struct, its fixed prefix
// size and whether that prefix covers the whole struct.
func (s *Schema) Layout(name string) ([]beet.FieldLayout, int, bool, error) {
	l, ok := s.structs[name]
	if !ok {
		return nil, 0, false, errors.Mark(errors.Newf("%q is not a declared struct", name), ErrInvalidSchema)
	}
	size, complete := l.FixedPrefixSize()
	return l.Layout(), size, complete, nil
}

// Encode coerces a JSON-decoded value to the type expr and serializes it.
func (s *Schema) Encode(expr string, value any) ([]byte, error) {
	e, err := ParseType(expr)
	if err != nil {
		return nil, err
	}
	c, err := s.codecFor(e)
	if err != nil {
		return nil, err
	}
	v, err := s.coerce(e, value, e.String())
	if err != nil {
		return nil, err
	}
	return beet.Serialize(c, v)
}

// Decode deserializes a value of type expr at offset and returns it in
// JSON-friendly form along with the offset after it.
func (s *Schema) Decode(expr string, data []byte, offset int) (any, int, error) {
	e, err := ParseType(expr)
	if err != nil {
		return nil, offset, err
	}
	c, err := s.codecFor(e)
	if err != nil {
		return nil, offset, err
	}
	v, next, err := beet.Deserialize(c, data, offset)
	if err != nil {
		return nil, offset, err
	}
	out, err := s.export(e, v)
	if err != nil {
		return nil, offset, err
	}
	return out, next, nil
}
