package beet

import (
	"github.com/cockroachdb/errors"

	"github.com/rawbytedev/beet/internal/common"
)

var (
	// ErrSizeMismatch marks a value whose encoded size disagrees with the
	// length a fixed codec was built for.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrMalformedBuffer marks bytes that cannot be decoded by the codec
	// reading them: short reads, bad discriminants, lying length headers.
	ErrMalformedBuffer = errors.New("malformed buffer")
	// ErrShapeMismatch marks a value whose shape does not fit the codec,
	// such as a missing struct field or an unknown enum kind.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrCapacityOverflow marks a write past the end of the output buffer.
	ErrCapacityOverflow = errors.New("capacity overflow")
	// ErrUnsupported marks Go types the reflection builder cannot encode.
	ErrUnsupported = errors.New("unsupported type")
)

func sizeMismatchf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrSizeMismatch)
}

func malformedf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrMalformedBuffer)
}

func shapef(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrShapeMismatch)
}

// overflowf reports a write past the end of a buffer sized by the
// codec itself, which is always a bug.
func overflowf(format string, args ...any) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrCapacityOverflow)
}

func unsupportedf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrUnsupported)
}

// needRead guards a read of n bytes at offset.
func needRead(buf []byte, offset, n int, what string) error {
	if !common.InBounds(buf, offset, n) {
		return malformedf("%s: need %d bytes at offset %d, buffer holds %d", what, n, offset, len(buf))
	}
	return nil
}

// needWrite guards a write of n bytes at offset.
func needWrite(buf []byte, offset, n int, what string) error {
	if !common.InBounds(buf, offset, n) {
		return overflowf("%s: need %d bytes at offset %d, buffer holds %d", what, n, offset, len(buf))
	}
	return nil
}
