package section

import (
	"github.com/go-fsfs/fsfs/varint"
)

// EncodeL2PPage encodes one L2P page body: for each offsetPlusOne (already
// file_offset+1, with 0 meaning unused), writes the signed zigzag-varint
// delta from the previous entry (offsets[-1] = 0), per spec.md §6.
func EncodeL2PPage(offsetsPlusOne []int64) []byte {
	buf := make([]byte, 0, len(offsetsPlusOne)*2)

	var last int64

	for _, v := range offsetsPlusOne {
		buf = varint.AppendVarint(buf, v-last)
		last = v
	}

	return buf
}

// DecodeL2PPage decodes a page body of entryCount delta-encoded offsets,
// returning the file offsets directly (O_i, with -1 for unused slots) as
// spec.md §3 "Page bodies" requires: "decoding recovers the sequence
// O_i + 1 ..., so the caller receives O_i with -1 for unused."
func DecodeL2PPage(raw []byte, entryCount int64, file string, baseOffset int64) ([]int64, error) {
	out := make([]int64, entryCount)

	pos := 0

	var last int64

	for i := int64(0); i < entryCount; i++ {
		delta, n, err := varint.ReadVarint(raw[pos:], file, baseOffset+int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n
		last += delta
		out[i] = last - 1 // recover O_i from O_i+1, 0 -> -1 (unused)
	}

	return out, nil
}
