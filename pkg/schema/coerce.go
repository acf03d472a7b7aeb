package schema

import (
	"cmp"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"maps"
	"math"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/rawbytedev/beet"
)

// KindKey holds the variant name when a data enum value is written as a
// JSON object.
const KindKey = "__kind"

func mismatchf(path, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(errors.Newf(format, args...), "%s", path), beet.ErrShapeMismatch)
}

// Coerce converts a JSON-decoded value (objects, arrays, strings, bools,
// json.Number or float64 numbers) into the Go value the codec for expr
// expects.
func (s *Schema) Coerce(expr string, value any) (any, error) {
	e, err := ParseType(expr)
	if err != nil {
		return nil, err
	}
	return s.coerce(e, value, e.String())
}

func (s *Schema) coerce(e *TypeExpr, value any, path string) (any, error) {
	switch e.Name {
	case "u8":
		return unsigned[uint8](value, path, math.MaxUint8)
	case "u16":
		return unsigned[uint16](value, path, math.MaxUint16)
	case "u32":
		return unsigned[uint32](value, path, math.MaxUint32)
	case "u64":
		return unsigned[uint64](value, path, math.MaxUint64)
	case "i8":
		return signed[int8](value, path, math.MinInt8, math.MaxInt8)
	case "i16":
		return signed[int16](value, path, math.MinInt16, math.MaxInt16)
	case "i32":
		return signed[int32](value, path, math.MinInt32, math.MaxInt32)
	case "i64":
		return signed[int64](value, path, math.MinInt64, math.MaxInt64)
	case "u128", "u256", "u512", "i128", "i256", "i512":
		return integer(value, path)
	case "f32":
		f, err := float(value, path, 32)
		return float32(f), err
	case "f64":
		return float(value, path, 64)
	case "bool":
		b, ok := value.(bool)
		if !ok {
			return nil, mismatchf(path, "want a bool, got %T", value)
		}
		return b, nil
	case "unit":
		if value != nil {
			return nil, mismatchf(path, "unit takes null, got %T", value)
		}
		return struct{}{}, nil
	case "string":
		str, ok := value.(string)
		if !ok {
			return nil, mismatchf(path, "want a string, got %T", value)
		}
		return str, nil
	case "bytes":
		return byteString(value, path)
	case "vec", "array", "tuple":
		items, ok := value.([]any)
		if !ok {
			return nil, mismatchf(path, "want an array, got %T", value)
		}
		if e.Name == "tuple" && len(items) != len(e.Params) {
			return nil, mismatchf(path, "tuple has %d elements, got %d", len(e.Params), len(items))
		}
		out := make([]any, len(items))
		for i, item := range items {
			elem := e.Params[0]
			if e.Name == "tuple" {
				elem = e.Params[i]
			}
			v, err := s.coerce(elem, item, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case "option":
		if value == nil {
			return (*any)(nil), nil
		}
		v, err := s.coerce(e.Params[0], value, path)
		if err != nil {
			return nil, err
		}
		return &v, nil
	case "set":
		items, ok := value.([]any)
		if !ok {
			return nil, mismatchf(path, "want an array of set members, got %T", value)
		}
		out := make(map[any]struct{}, len(items))
		for i, item := range items {
			k, err := s.coerce(e.Params[0], item, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			if _, dup := out[k]; dup {
				return nil, mismatchf(path, "duplicate set member %v", k)
			}
			out[k] = struct{}{}
		}
		return out, nil
	case "map":
		return s.coerceMap(e, value, path)
	}
	return s.coerceNamed(e.Name, value, path)
}

func (s *Schema) coerceMap(e *TypeExpr, value any, path string) (any, error) {
	out := make(map[any]any)
	put := func(rawKey, rawValue any, at string) error {
		k, err := s.coerce(e.Params[0], rawKey, at)
		if err != nil {
			return err
		}
		if _, dup := out[k]; dup {
			return mismatchf(path, "duplicate map key %v", k)
		}
		v, err := s.coerce(e.Params[1], rawValue, at)
		if err != nil {
			return err
		}
		out[k] = v
		return nil
	}
	switch m := value.(type) {
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(m)) {
			rawKey, err := s.keyFromString(e.Params[0], key, path)
			if err != nil {
				return nil, err
			}
			if err := put(rawKey, m[key], path+"."+key); err != nil {
				return nil, err
			}
		}
	case []any:
		for i, item := range m {
			pair, ok := item.([]any)
			if !ok || len(pair) != 2 {
				return nil, mismatchf(path, "entry %d must be a [key, value] pair", i)
			}
			if err := put(pair[0], pair[1], path+"["+strconv.Itoa(i)+"]"); err != nil {
				return nil, err
			}
		}
	default:
		return nil, mismatchf(path, "want an object or an array of pairs, got %T", value)
	}
	return out, nil
}

// keyFromString turns a JSON object key into the raw value for a map key
// of type e.
func (s *Schema) keyFromString(e *TypeExpr, key, path string) (any, error) {
	switch e.Name {
	case "bool":
		b, err := strconv.ParseBool(key)
		if err != nil {
			return nil, mismatchf(path, "key %q is not a bool", key)
		}
		return b, nil
	case "u8", "u16", "u32", "u64", "i8", "i16", "i32", "i64":
		return json.Number(key), nil
	default:
		return key, nil
	}
}

func (s *Schema) coerceNamed(name string, value any, path string) (any, error) {
	def, ok := s.defs[name]
	if !ok {
		return nil, invalidf("unknown type %q", name)
	}
	k, err := def.kind()
	if err != nil {
		return nil, err
	}
	switch k {
	case enumDef:
		v, ok := value.(string)
		if !ok {
			return nil, mismatchf(path, "want one of [ %s ], got %T", strings.Join(def.Enum, ", "), value)
		}
		return v, nil
	case dataEnumDef:
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, mismatchf(path, "want an object with a %q key, got %T", KindKey, value)
		}
		kind, ok := obj[KindKey].(string)
		if !ok {
			return nil, mismatchf(path, "data enum value needs a string %q key", KindKey)
		}
		i := slices.IndexFunc(def.DataEnum, func(v VariantDef) bool { return v.Name == kind })
		if i < 0 {
			// the codec reports unknown kinds with the full variant list
			return beet.EnumValue{Kind: kind, Data: beet.Record{}}, nil
		}
		fields := make(map[string]any, len(obj)-1)
		for k, v := range obj {
			if k != KindKey {
				fields[k] = v
			}
		}
		data, err := s.coerceRecord(def.DataEnum[i].Fields, fields, path+"."+kind)
		if err != nil {
			return nil, err
		}
		return beet.EnumValue{Kind: kind, Data: data}, nil
	default:
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, mismatchf(path, "want an object, got %T", value)
		}
		return s.coerceRecord(def.Struct, obj, path)
	}
}

func (s *Schema) coerceRecord(fields []FieldDef, obj map[string]any, path string) (beet.Record, error) {
	out := make(beet.Record, len(fields))
	for _, f := range fields {
		raw, ok := obj[f.Name]
		if !ok {
			return nil, mismatchf(path, "missing field %q", f.Name)
		}
		e, err := ParseType(f.Type)
		if err != nil {
			return nil, err
		}
		v, err := s.coerce(e, raw, path+"."+f.Name)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	if len(obj) != len(out) {
		for k := range obj {
			if _, known := out[k]; !known {
				return nil, mismatchf(path, "unknown field %q", k)
			}
		}
	}
	return out, nil
}

func integer(value any, path string) (*big.Int, error) {
	n := new(big.Int)
	switch v := value.(type) {
	case json.Number:
		if _, ok := n.SetString(v.String(), 10); !ok {
			return nil, mismatchf(path, "%s is not an integer", v)
		}
	case string:
		if _, ok := n.SetString(v, 0); !ok {
			return nil, mismatchf(path, "%q is not an integer", v)
		}
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, mismatchf(path, "%v is not an integer", v)
		}
		big.NewFloat(v).Int(n)
	case int:
		n.SetInt64(int64(v))
	case int64:
		n.SetInt64(v)
	case uint64:
		n.SetUint64(v)
	case *big.Int:
		if v == nil {
			return nil, mismatchf(path, "nil integer")
		}
		n.Set(v)
	default:
		return nil, mismatchf(path, "want an integer, got %T", value)
	}
	return n, nil
}

func unsigned[T uint8 | uint16 | uint32 | uint64](value any, path string, limit uint64) (T, error) {
	n, err := integer(value, path)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() || n.Uint64() > limit {
		return 0, mismatchf(path, "%s does not fit in %d unsigned bits", n, bitsOf[T]())
	}
	return T(n.Uint64()), nil
}

func signed[T int8 | int16 | int32 | int64](value any, path string, lo, hi int64) (T, error) {
	n, err := integer(value, path)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Int64() < lo || n.Int64() > hi {
		return 0, mismatchf(path, "%s does not fit in %d signed bits", n, bitsOf[T]())
	}
	return T(n.Int64()), nil
}

func bitsOf[T uint8 | uint16 | uint32 | uint64 | int8 | int16 | int32 | int64]() int {
	var zero T
	switch any(zero).(type) {
	case uint8, int8:
		return 8
	case uint16, int16:
		return 16
	case uint32, int32:
		return 32
	default:
		return 64
	}
}

func float(value any, path string, bits int) (float64, error) {
	switch v := value.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), bits)
		if err != nil {
			return 0, mismatchf(path, "%s is not a number", v)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(v, bits)
		if err != nil {
			return 0, mismatchf(path, "%q is not a number", v)
		}
		return f, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, mismatchf(path, "want a number, got %T", value)
	}
}

// byteString accepts 0x-prefixed hex, standard base64 or an array of
// byte values.
func byteString(value any, path string) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		if rest, ok := strings.CutPrefix(v, "0x"); ok {
			b, err := hex.DecodeString(rest)
			if err != nil {
				return nil, mismatchf(path, "invalid hex: %v", err)
			}
			return b, nil
		}
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, mismatchf(path, "bytes must be 0x hex or base64: %v", err)
		}
		return b, nil
	case []any:
		out := make([]byte, len(v))
		for i, item := range v {
			b, err := unsigned[uint8](item, path+"["+strconv.Itoa(i)+"]", math.MaxUint8)
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return out, nil
	default:
		return nil, mismatchf(path, "want bytes as a string or array, got %T", value)
	}
}

// Export converts a decoded value of type expr into plain values that
// encode cleanly as JSON, YAML or CBOR: wide integers become decimal
// strings, bytes become 0x hex, sets become sorted arrays and data enums
// become objects carrying KindKey.
func (s *Schema) Export(expr string, value any) (any, error) {
	e, err := ParseType(expr)
	if err != nil {
		return nil, err
	}
	return s.export(e, value)
}

func (s *Schema) export(e *TypeExpr, value any) (any, error) {
	switch e.Name {
	case "u128", "u256", "u512", "i128", "i256", "i512":
		n, ok := value.(*big.Int)
		if !ok || n == nil {
			return nil, mismatchf(e.String(), "want *big.Int, got %T", value)
		}
		return n.String(), nil
	case "unit":
		return nil, nil
	case "bytes":
		b, ok := value.([]byte)
		if !ok {
			return nil, mismatchf(e.String(), "want []byte, got %T", value)
		}
		return "0x" + hex.EncodeToString(b), nil
	case "vec", "array", "tuple":
		items, ok := value.([]any)
		if !ok {
			return nil, mismatchf(e.String(), "want []any, got %T", value)
		}
		out := make([]any, len(items))
		for i, item := range items {
			elem := e.Params[0]
			if e.Name == "tuple" {
				elem = e.Params[i]
			}
			v, err := s.export(elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case "option":
		p, ok := value.(*any)
		if !ok {
			return nil, mismatchf(e.String(), "want *any, got %T", value)
		}
		if p == nil {
			return nil, nil
		}
		return s.export(e.Params[0], *p)
	case "set":
		m, ok := value.(map[any]struct{})
		if !ok {
			return nil, mismatchf(e.String(), "want map[any]struct{}, got %T", value)
		}
		keys := make([]any, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeys)
		return keys, nil
	case "map":
		return s.exportMap(e, value)
	}
	if def, ok := s.defs[e.Name]; ok {
		return s.exportNamed(def, value)
	}
	return value, nil
}

func (s *Schema) exportMap(e *TypeExpr, value any) (any, error) {
	m, ok := value.(map[any]any)
	if !ok {
		return nil, mismatchf(e.String(), "want map[any]any, got %T", value)
	}
	keys := make([]any, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	if s.stringKeyed(e.Params[0]) {
		out := make(map[string]any, len(m))
		for _, k := range keys {
			v, err := s.export(e.Params[1], m[k])
			if err != nil {
				return nil, err
			}
			out[k.(string)] = v
		}
		return out, nil
	}
	pairs := make([]any, 0, len(m))
	for _, k := range keys {
		v, err := s.export(e.Params[1], m[k])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, []any{k, v})
	}
	return pairs, nil
}

// stringKeyed reports whether map keys of type e decode as Go strings.
func (s *Schema) stringKeyed(e *TypeExpr) bool {
	if e.Name == "string" {
		return true
	}
	def, ok := s.defs[e.Name]
	if !ok {
		return false
	}
	k, _ := def.kind()
	return k == enumDef
}

func (s *Schema) exportNamed(def TypeDef, value any) (any, error) {
	k, err := def.kind()
	if err != nil {
		return nil, err
	}
	switch k {
	case enumDef:
		return value, nil
	case dataEnumDef:
		ev, ok := value.(beet.EnumValue)
		if !ok {
			return nil, mismatchf(def.Name, "want beet.EnumValue, got %T", value)
		}
		i := slices.IndexFunc(def.DataEnum, func(v VariantDef) bool { return v.Name == ev.Kind })
		if i < 0 {
			return nil, mismatchf(def.Name, "unknown kind %q", ev.Kind)
		}
		rec, ok := ev.Data.(beet.Record)
		if !ok {
			return nil, mismatchf(def.Name, "want beet.Record data, got %T", ev.Data)
		}
		out, err := s.exportRecord(def.DataEnum[i].Fields, rec, def.Name+"."+ev.Kind)
		if err != nil {
			return nil, err
		}
		out[KindKey] = ev.Kind
		return out, nil
	default:
		rec, ok := value.(beet.Record)
		if !ok {
			return nil, mismatchf(def.Name, "want beet.Record, got %T", value)
		}
		return s.exportRecord(def.Struct, rec, def.Name)
	}
}

func (s *Schema) exportRecord(fields []FieldDef, rec beet.Record, path string) (map[string]any, error) {
	out := make(map[string]any, len(fields)+1)
	for _, f := range fields {
		e, err := ParseType(f.Type)
		if err != nil {
			return nil, err
		}
		v, err := s.export(e, rec[f.Name])
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", path, f.Name)
		}
		out[f.Name] = v
	}
	return out, nil
}

// compareKeys orders scalar keys of one dynamic type.
func compareKeys(a, b any) int {
	switch x := a.(type) {
	case string:
		return compareAs(x, b)
	case bool:
		y, _ := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case uint8:
		return compareAs(x, b)
	case uint16:
		return compareAs(x, b)
	case uint32:
		return compareAs(x, b)
	case uint64:
		return compareAs(x, b)
	case int8:
		return compareAs(x, b)
	case int16:
		return compareAs(x, b)
	case int32:
		return compareAs(x, b)
	case int64:
		return compareAs(x, b)
	default:
		return 0
	}
}

func compareAs[T cmp.Ordered](x T, other any) int {
	y, _ := other.(T)
	return cmp.Compare(x, y)
}
