package beet

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/rawbytedev/beet/internal/common"
)

// primitive is a fixed codec whose encoding is a single machine value.
type primitive[T any] struct {
	size int
	name string
	put  func(b []byte, v T) error
	get  func(b []byte) (T, error)
}

func (p *primitive[T]) Kind() Kind          { return KindFixed }
func (*primitive[T]) encodes(T)             {}
func (p *primitive[T]) Description() string { return p.name }
func (p *primitive[T]) ByteSize() int       { return p.size }

func (p *primitive[T]) Write(buf []byte, offset int, value T) error {
	if err := needWrite(buf, offset, p.size, p.name); err != nil {
		return err
	}
	return p.put(buf[offset:offset+p.size], value)
}

func (p *primitive[T]) Read(buf []byte, offset int) (T, error) {
	if err := needRead(buf, offset, p.size, p.name); err != nil {
		var zero T
		return zero, err
	}
	return p.get(buf[offset : offset+p.size])
}

func newPrimitive[T any](name string, size int, put func([]byte, T), get func([]byte) T) FixedCodec[T] {
	return &primitive[T]{
		size: size,
		name: name,
		put:  func(b []byte, v T) error { put(b, v); return nil },
		get:  func(b []byte) (T, error) { return get(b), nil },
	}
}

var (
	U8 = newPrimitive("u8", 1,
		func(b []byte, v uint8) { b[0] = v },
		func(b []byte) uint8 { return b[0] })
	U16 = newPrimitive("u16", 2, binary.LittleEndian.PutUint16, binary.LittleEndian.Uint16)
	U32 = newPrimitive("u32", 4, binary.LittleEndian.PutUint32, binary.LittleEndian.Uint32)
	U64 = newPrimitive("u64", 8, binary.LittleEndian.PutUint64, binary.LittleEndian.Uint64)

	I8 = newPrimitive("i8", 1,
		func(b []byte, v int8) { b[0] = byte(v) },
		func(b []byte) int8 { return int8(b[0]) })
	I16 = newPrimitive("i16", 2,
		func(b []byte, v int16) { binary.LittleEndian.PutUint16(b, uint16(v)) },
		func(b []byte) int16 { return int16(binary.LittleEndian.Uint16(b)) })
	I32 = newPrimitive("i32", 4,
		func(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) },
		func(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) })
	I64 = newPrimitive("i64", 8,
		func(b []byte, v int64) { binary.LittleEndian.PutUint64(b, uint64(v)) },
		func(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) })

	F32 = newPrimitive("f32", 4,
		func(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) },
		func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) })
	F64 = newPrimitive("f64", 8,
		func(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) },
		func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) })

	U128 = wideUint("u128", 16)
	U256 = wideUint("u256", 32)
	U512 = wideUint("u512", 64)
	I128 = wideInt("i128", 16)
	I256 = wideInt("i256", 32)
	I512 = wideInt("i512", 64)

	// Bool is a single byte holding 0 or 1. Any other byte is malformed.
	Bool FixedCodec[bool] = &primitive[bool]{
		size: 1,
		name: "bool",
		put: func(b []byte, v bool) error {
			b[0] = 0
			if v {
				b[0] = 1
			}
			return nil
		},
		get: func(b []byte) (bool, error) {
			switch b[0] {
			case 0:
				return false, nil
			case 1:
				return true, nil
			default:
				return false, malformedf("bool: invalid byte %#x", b[0])
			}
		},
	}

	// Unit occupies no bytes.
	Unit FixedCodec[struct{}] = &primitive[struct{}]{
		name: "unit",
		put:  func([]byte, struct{}) error { return nil },
		get:  func([]byte) (struct{}, error) { return struct{}{}, nil },
	}
)

func wideUint(name string, size int) FixedCodec[*big.Int] {
	return &primitive[*big.Int]{
		size: size,
		name: name,
		put: func(b []byte, v *big.Int) error {
			if v == nil {
				return shapef("%s: nil integer", name)
			}
			if !common.PutUintLE(b, v) {
				return sizeMismatchf("%s: %s does not fit in %d unsigned bytes", name, v, size)
			}
			return nil
		},
		get: func(b []byte) (*big.Int, error) { return common.UintFromLE(b), nil },
	}
}

func wideInt(name string, size int) FixedCodec[*big.Int] {
	return &primitive[*big.Int]{
		size: size,
		name: name,
		put: func(b []byte, v *big.Int) error {
			if v == nil {
				return shapef("%s: nil integer", name)
			}
			if !common.PutIntLE(b, v) {
				return sizeMismatchf("%s: %s does not fit in %d signed bytes", name, v, size)
			}
			return nil
		},
		get: func(b []byte) (*big.Int, error) { return common.IntFromLE(b), nil },
	}
}
