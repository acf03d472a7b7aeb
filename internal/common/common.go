package common

import (
	"math/big"
	"reflect"
)

// IsFixedKind reports whether k is a primitive kind with a borsh layout
// that does not depend on the value.
func IsFixedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// InBounds reports whether n bytes starting at offset fit inside buf.
func InBounds(buf []byte, offset, n int) bool {
	if offset < 0 || n < 0 {
		return false
	}
	return offset <= len(buf) && n <= len(buf)-offset
}

// Remaining returns the number of bytes in buf after offset, or 0 when
// offset is out of range.
func Remaining(buf []byte, offset int) int {
	if offset < 0 || offset >= len(buf) {
		return 0
	}
	return len(buf) - offset
}

// PutUintLE writes x as an unsigned little-endian magnitude filling dst.
// It reports false when x is negative or does not fit in len(dst) bytes.
func PutUintLE(dst []byte, x *big.Int) bool {
	if x.Sign() < 0 || x.BitLen() > len(dst)*8 {
		return false
	}
	x.FillBytes(dst)
	reverse(dst)
	return true
}

// UintFromLE decodes an unsigned little-endian magnitude.
func UintFromLE(src []byte) *big.Int {
	be := make([]byte, len(src))
	copy(be, src)
	reverse(be)
	return new(big.Int).SetBytes(be)
}

// PutIntLE writes x in two's complement, little-endian, filling dst. It
// reports false when x is outside the signed range of len(dst) bytes.
func PutIntLE(dst []byte, x *big.Int) bool {
	bits := uint(len(dst) * 8)
	limit := new(big.Int).Lsh(big.NewInt(1), bits-1)
	if x.Cmp(limit) >= 0 || x.Cmp(new(big.Int).Neg(limit)) < 0 {
		return false
	}
	v := x
	if x.Sign() < 0 {
		v = new(big.Int).Add(x, new(big.Int).Lsh(big.NewInt(1), bits))
	}
	v.FillBytes(dst)
	reverse(dst)
	return true
}

// IntFromLE decodes a two's complement little-endian integer.
func IntFromLE(src []byte) *big.Int {
	x := UintFromLE(src)
	bits := uint(len(src) * 8)
	if len(src) > 0 && src[len(src)-1]&0x80 != 0 {
		x.Sub(x, new(big.Int).Lsh(big.NewInt(1), bits))
	}
	return x
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
