package beet

import (
	"maps"
	"slices"
)

var primitives = map[string]Codec[any]{
	"u8":     EraseFixed(U8),
	"u16":    EraseFixed(U16),
	"u32":    EraseFixed(U32),
	"u64":    EraseFixed(U64),
	"u128":   EraseFixed(U128),
	"u256":   EraseFixed(U256),
	"u512":   EraseFixed(U512),
	"i8":     EraseFixed(I8),
	"i16":    EraseFixed(I16),
	"i32":    EraseFixed(I32),
	"i64":    EraseFixed(I64),
	"i128":   EraseFixed(I128),
	"i256":   EraseFixed(I256),
	"i512":   EraseFixed(I512),
	"f32":    EraseFixed(F32),
	"f64":    EraseFixed(F64),
	"bool":   EraseFixed(Bool),
	"unit":   EraseFixed(Unit),
	"string": Erase[string](UTF8String),
	"bytes":  Erase[[]byte](Bytes),
}

// LookupPrimitive returns the erased codec registered under name.
func LookupPrimitive(name string) (Codec[any], bool) {
	c, ok := primitives[name]
	return c, ok
}

// PrimitiveNames lists the registered names in sorted order.
func PrimitiveNames() []string {
	return slices.Sorted(maps.Keys(primitives))
}
