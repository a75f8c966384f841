// Package varint implements the packed-integer codec used throughout the
// fsfs item-index engine: 7-bits-per-byte unsigned varints, and a
// zigzag-mapped signed variant for delta-encoded streams.
//
// The encoding mirrors the style of mebo's delta encoders
// (encoding/ts_delta.go): zigzag mapping is performed explicitly, then the
// zigzagged magnitude is varint-encoded with encoding/binary, rather than
// relying on encoding/binary's own PutVarint/Varint (which apply a
// different, but compatible, zigzag convention). Keeping the mapping
// explicit here matches spec.md §4.1's definition of the mapping
// (v < 0 ? -1-2v : 2v) byte for byte.
package varint

import (
	"encoding/binary"

	"github.com/go-fsfs/fsfs/errs"
)

// MaxLen is the maximum number of bytes a single encoded value (signed or
// unsigned) can occupy: 10 groups of 7 bits cover a full 64-bit magnitude.
const MaxLen = binary.MaxVarintLen64

// PutUvarint encodes v into buf (which must have at least MaxLen bytes of
// capacity) and returns the number of bytes written.
func PutUvarint(buf []byte, v uint64) int {
	return binary.PutUvarint(buf, v)
}

// Uvarint decodes an unsigned varint from the front of buf. It returns the
// value and the number of bytes consumed, or (0, 0) if buf does not hold a
// complete value, or (0, <0) if the encoded magnitude overflows 64 bits.
func Uvarint(buf []byte) (uint64, int) {
	return binary.Uvarint(buf)
}

// EncodeZigzag maps a signed value to its unsigned zigzag representation:
// non-negative v maps to 2v, negative v maps to -1-2v (spec.md §4.1).
// Implemented branchlessly, matching encoding/ts_delta.go's
// `(v << 1) ^ (v >> 63)` idiom.
func EncodeZigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63)) //nolint:gosec
}

// DecodeZigzag is the inverse of EncodeZigzag.
func DecodeZigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1) //nolint:gosec
}

// PutVarint encodes the zigzag mapping of v and returns the number of bytes
// written, mirroring PutUvarint for signed values.
func PutVarint(buf []byte, v int64) int {
	return binary.PutUvarint(buf, EncodeZigzag(v))
}

// Varint decodes a zigzag-mapped signed varint, mirroring Uvarint.
func Varint(buf []byte) (int64, int) {
	u, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, n
	}

	return DecodeZigzag(u), n
}

// AppendUvarint appends the varint encoding of v to buf and returns the
// extended slice, avoiding a temp-buffer round trip for callers that are
// already building up a byte slice (the encoder/builder hot path).
func AppendUvarint(buf []byte, v uint64) []byte {
	return binary.AppendUvarint(buf, v)
}

// AppendVarint appends the zigzag-varint encoding of v to buf.
func AppendVarint(buf []byte, v int64) []byte {
	return binary.AppendUvarint(buf, EncodeZigzag(v))
}

// ReadUvarint decodes a single unsigned varint from the front of buf,
// returning a structured error (ErrUnexpectedEOF / ErrNumberTooLarge) on
// failure instead of the bare (0,0)/(0,<0) sentinel pair Uvarint returns.
// file is used only to annotate the error with context.
func ReadUvarint(buf []byte, file string, offset int64) (uint64, int, error) {
	v, n := binary.Uvarint(buf)
	if n == 0 {
		return 0, 0, errs.IO(file, offset, errs.ErrUnexpectedEOF)
	}
	if n < 0 {
		return 0, 0, errs.IO(file, offset, errs.ErrNumberTooLarge)
	}

	return v, n, nil
}

// ReadVarint is the signed counterpart of ReadUvarint.
func ReadVarint(buf []byte, file string, offset int64) (int64, int, error) {
	u, n, err := ReadUvarint(buf, file, offset)
	if err != nil {
		return 0, 0, err
	}

	return DecodeZigzag(u), n, nil
}
