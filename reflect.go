package beet

import (
	"log/slog"
	"math/big"
	"reflect"
	"strings"
	"sync"

	"github.com/rawbytedev/beet/internal/common"
)

// Reflector derives codecs from Go struct types and caches them per type.
//
// Exported fields are encoded in declaration order. A `beet:"name"` tag
// renames a field, `beet:"-"` skips it, and `beet:",u128"` (or u256, u512,
// i128, i256, i512) selects the width of a *big.Int field. Pointers become
// options, slices become arrays, fixed-length Go arrays become unprefixed
// arrays and map[K]struct{} becomes a set.
type Reflector struct {
	opts  options
	mu    sync.RWMutex
	plans map[reflect.Type]Codec[any]
}

// NewReflector returns an empty Reflector.
func NewReflector(opts ...CodecOption) *Reflector {
	return &Reflector{
		opts:  buildOptions(opts),
		plans: make(map[reflect.Type]Codec[any]),
	}
}

// Reflect returns the codec for S, building it on first use.
func Reflect[S any](r *Reflector) (Codec[S], error) {
	t := reflect.TypeFor[S]()
	c, err := r.codecFor(t)
	if err != nil {
		return nil, err
	}
	return Convert(c,
		func(s S) (any, error) { return s, nil },
		func(v any) (S, error) {
			s, ok := v.(S)
			if !ok {
				return s, shapef("%s decoded %T", t, v)
			}
			return s, nil
		}), nil
}

func (r *Reflector) codecFor(t reflect.Type) (Codec[any], error) {
	r.mu.RLock()
	if c, ok := r.plans[t]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(t, make(map[reflect.Type]bool))
}

// build must be called with mu held.
func (r *Reflector) build(t reflect.Type, visiting map[reflect.Type]bool) (Codec[any], error) {
	if c, ok := r.plans[t]; ok {
		return c, nil
	}
	if visiting[t] {
		return nil, unsupportedf("recursive type %s", t)
	}
	visiting[t] = true
	defer delete(visiting, t)

	c, err := r.compile(t, visiting)
	if err != nil {
		return nil, err
	}
	r.plans[t] = c
	r.opts.logger.Debug("reflected codec",
		slog.String("type", t.String()),
		slog.String("codec", c.Description()),
		slog.String("kind", c.Kind().String()))
	return c, nil
}

var (
	bigIntType = reflect.TypeFor[*big.Int]()
	wideCodecs = map[string]FixedCodec[*big.Int]{
		"u128": U128, "u256": U256, "u512": U512,
		"i128": I128, "i256": I256, "i512": I512,
	}
)

func (r *Reflector) compile(t reflect.Type, visiting map[reflect.Type]bool) (Codec[any], error) {
	k := t.Kind()
	if common.IsFixedKind(k) {
		return primitiveFor(t), nil
	}
	switch k {
	case reflect.String:
		return adapt[string](UTF8String, t), nil
	case reflect.Pointer:
		if t == bigIntType {
			return nil, unsupportedf("%s needs a width tag such as `beet:\",u128\"`", t)
		}
		return r.compileOption(t, visiting)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return adapt[[]byte](Bytes, t), nil
		}
		return r.compileSlice(t, visiting)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return byteArrayFor(t), nil
		}
		return r.compileArray(t, visiting)
	case reflect.Map:
		return r.compileMap(t, visiting)
	case reflect.Struct:
		return r.compileStruct(t, visiting)
	default:
		return nil, unsupportedf("%s of kind %s", t, k)
	}
}

func primitiveFor(t reflect.Type) Codec[any] {
	switch t.Kind() {
	case reflect.Bool:
		return adapt[bool](Bool, t)
	case reflect.Int8:
		return adapt[int8](I8, t)
	case reflect.Int16:
		return adapt[int16](I16, t)
	case reflect.Int32:
		return adapt[int32](I32, t)
	case reflect.Int64:
		return adapt[int64](I64, t)
	case reflect.Uint8:
		return adapt[uint8](U8, t)
	case reflect.Uint16:
		return adapt[uint16](U16, t)
	case reflect.Uint32:
		return adapt[uint32](U32, t)
	case reflect.Uint64:
		return adapt[uint64](U64, t)
	case reflect.Float32:
		return adapt[float32](F32, t)
	default:
		return adapt[float64](F64, t)
	}
}

// adapt converts between values of t and the codec's own type U, which t
// must be convertible to.
func adapt[U any](c Codec[U], t reflect.Type) Codec[any] {
	ut := reflect.TypeFor[U]()
	if ut == t {
		return Erase(c)
	}
	return Convert(c,
		func(v any) (U, error) {
			var zero U
			rv, err := valueOf(v, t)
			if err != nil {
				return zero, err
			}
			return rv.Convert(ut).Interface().(U), nil
		},
		func(u U) (any, error) {
			return reflect.ValueOf(u).Convert(t).Interface(), nil
		})
}

func valueOf(v any, t reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Type() != t {
		return rv, shapef("expected a value of type %s, got %T", t, v)
	}
	return rv, nil
}

func byteArrayFor(t reflect.Type) Codec[any] {
	return Convert[any, []byte](FixedSizeBytes(t.Len()),
		func(v any) ([]byte, error) {
			rv, err := valueOf(v, t)
			if err != nil {
				return nil, err
			}
			out := make([]byte, t.Len())
			reflect.Copy(reflect.ValueOf(out), rv)
			return out, nil
		},
		func(b []byte) (any, error) {
			out := reflect.New(t).Elem()
			reflect.Copy(out, reflect.ValueOf(b))
			return out.Interface(), nil
		})
}

func (r *Reflector) compileOption(t reflect.Type, visiting map[reflect.Type]bool) (Codec[any], error) {
	elem, err := r.build(t.Elem(), visiting)
	if err != nil {
		return nil, err
	}
	return Convert[any, *any](Option(elem),
		func(v any) (*any, error) {
			rv, err := valueOf(v, t)
			if err != nil {
				return nil, err
			}
			if rv.IsNil() {
				return nil, nil
			}
			inner := rv.Elem().Interface()
			return &inner, nil
		},
		func(p *any) (any, error) {
			if p == nil {
				return reflect.Zero(t).Interface(), nil
			}
			out := reflect.New(t.Elem())
			out.Elem().Set(reflect.ValueOf(*p))
			return out.Interface(), nil
		}), nil
}

func toSlice(v any, t reflect.Type) ([]any, error) {
	rv, err := valueOf(v, t)
	if err != nil {
		return nil, err
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func (r *Reflector) compileSlice(t reflect.Type, visiting map[reflect.Type]bool) (Codec[any], error) {
	elem, err := r.build(t.Elem(), visiting)
	if err != nil {
		return nil, err
	}
	return Convert[any, []any](Array(elem),
		func(v any) ([]any, error) { return toSlice(v, t) },
		func(items []any) (any, error) {
			out := reflect.MakeSlice(t, len(items), len(items))
			for i, item := range items {
				out.Index(i).Set(reflect.ValueOf(item))
			}
			return out.Interface(), nil
		}), nil
}

func (r *Reflector) compileArray(t reflect.Type, visiting map[reflect.Type]bool) (Codec[any], error) {
	elem, err := r.build(t.Elem(), visiting)
	if err != nil {
		return nil, err
	}
	return Convert[any, []any](UniformArray(elem, t.Len(), false),
		func(v any) ([]any, error) { return toSlice(v, t) },
		func(items []any) (any, error) {
			out := reflect.New(t).Elem()
			for i, item := range items {
				out.Index(i).Set(reflect.ValueOf(item))
			}
			return out.Interface(), nil
		}), nil
}

func (r *Reflector) compileMap(t reflect.Type, visiting map[reflect.Type]bool) (Codec[any], error) {
	key, err := r.build(t.Key(), visiting)
	if err != nil {
		return nil, err
	}
	if t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0 {
		return Convert[any, map[any]struct{}](Set(key),
			func(v any) (map[any]struct{}, error) {
				rv, err := valueOf(v, t)
				if err != nil {
					return nil, err
				}
				out := make(map[any]struct{}, rv.Len())
				for _, k := range rv.MapKeys() {
					out[k.Interface()] = struct{}{}
				}
				return out, nil
			},
			func(members map[any]struct{}) (any, error) {
				out := reflect.MakeMapWithSize(t, len(members))
				empty := reflect.Zero(t.Elem())
				for k := range members {
					out.SetMapIndex(reflect.ValueOf(k), empty)
				}
				return out.Interface(), nil
			}), nil
	}
	value, err := r.build(t.Elem(), visiting)
	if err != nil {
		return nil, err
	}
	return Convert[any, map[any]any](Map(key, value),
		func(v any) (map[any]any, error) {
			rv, err := valueOf(v, t)
			if err != nil {
				return nil, err
			}
			out := make(map[any]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().Interface()] = iter.Value().Interface()
			}
			return out, nil
		},
		func(entries map[any]any) (any, error) {
			out := reflect.MakeMapWithSize(t, len(entries))
			for k, v := range entries {
				out.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(v))
			}
			return out.Interface(), nil
		}), nil
}

func (r *Reflector) compileStruct(t reflect.Type, visiting map[reflect.Type]bool) (Codec[any], error) {
	var (
		fields  []Field[any]
		indices []int
		fixable bool
	)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		name, width := parseTag(sf)
		if name == "-" {
			continue
		}
		var (
			c   Codec[any]
			err error
		)
		if width != "" {
			wide, ok := wideCodecs[width]
			if !ok || sf.Type != bigIntType {
				return nil, unsupportedf("%s.%s: width %q needs a *big.Int field", t, sf.Name, width)
			}
			c = EraseFixed(wide)
		} else if c, err = r.build(sf.Type, visiting); err != nil {
			return nil, err
		}
		if c.Kind() == KindFixable {
			fixable = true
		}
		idx := i
		fields = append(fields, Field[any]{
			Name:  name,
			codec: c,
			get: func(v any) (any, error) {
				rv, err := valueOf(v, t)
				if err != nil {
					return nil, err
				}
				return rv.Field(idx).Interface(), nil
			},
		})
		indices = append(indices, i)
	}

	construct := func(rec Record) (any, error) {
		out := reflect.New(t).Elem()
		for j, f := range fields {
			if x := reflect.ValueOf(rec[f.Name]); x.IsValid() {
				out.Field(indices[j]).Set(x)
			}
		}
		return out.Interface(), nil
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	opts := []CodecOption{WithLogger(r.opts.logger)}
	if fixable {
		s, err := NewFixableStruct(name, fields, construct, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := NewStruct(name, fields, construct, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseTag(sf reflect.StructField) (name, width string) {
	name = sf.Name
	tag, ok := sf.Tag.Lookup("beet")
	if !ok {
		return name, ""
	}
	head, rest, _ := strings.Cut(tag, ",")
	if head != "" {
		name = head
	}
	return name, rest
}
