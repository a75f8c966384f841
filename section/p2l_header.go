package section

import (
	"os"

	"github.com/go-fsfs/fsfs/errs"
	"github.com/go-fsfs/fsfs/varint"
)

// P2LHeader is the fully-decoded header of a P2L index file.
type P2LHeader struct {
	FirstRevision int64
	FileSize      int64
	PageSize      int64 // Q
	PageCount     int64
	PageByteSizes []int64
}

// ReadRawP2LHeader reads the header section (everything up to the first
// page body) of an open P2L index file, returning the raw bytes and the
// byte offset where page bodies begin. Mirrors ReadRawL2PHeader.
func ReadRawP2LHeader(f *os.File, file string) ([]byte, int64, error) {
	head := make([]byte, varint.MaxLen*4)

	n, err := f.ReadAt(head, 0)
	if err != nil && n == 0 {
		return nil, 0, errs.IO(file, 0, err)
	}

	head = head[:n]

	pos := 0
	for i := 0; i < 3; i++ {
		_, nn, err := varint.ReadUvarint(head[pos:], file, int64(pos))
		if err != nil {
			return nil, 0, err
		}

		pos += nn
	}

	pageCount, n4, err := varint.ReadUvarint(head[pos:], file, int64(pos))
	if err != nil {
		return nil, 0, err
	}

	pos += n4

	maxHeaderLen := pos + int(pageCount)*varint.MaxLen

	raw := make([]byte, maxHeaderLen)

	rn, err := f.ReadAt(raw, 0)
	if err != nil && rn == 0 {
		return nil, 0, errs.IO(file, 0, err)
	}

	raw = raw[:rn]

	walkPos := pos
	for i := uint64(0); i < pageCount; i++ {
		_, n, err := varint.ReadUvarint(raw[walkPos:], file, int64(walkPos))
		if err != nil {
			return nil, 0, err
		}

		walkPos += n
	}

	return raw[:walkPos], int64(walkPos), nil
}

// DecodeP2LHeader fully decodes raw into a P2LHeader.
func DecodeP2LHeader(raw []byte, file string) (*P2LHeader, error) {
	pos := 0

	firstRevisionU, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return nil, err
	}

	pos += n

	fileSize, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return nil, err
	}

	pos += n

	pageSize, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return nil, err
	}

	pos += n

	pageCount, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return nil, err
	}

	pos += n

	h := &P2LHeader{
		FirstRevision: int64(firstRevisionU), //nolint:gosec
		FileSize:      int64(fileSize), //nolint:gosec
		PageSize:      int64(pageSize), //nolint:gosec
		PageCount:     int64(pageCount), //nolint:gosec
		PageByteSizes: make([]int64, pageCount),
	}

	for i := range h.PageByteSizes {
		v, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n
		h.PageByteSizes[i] = int64(v) //nolint:gosec
	}

	return h, nil
}

// LookupP2LPageOffset is the partial-getter for locating a page's byte
// range in the file (spec.md §4.7 step 1) without materializing
// PageByteSizes for every other page.
func LookupP2LPageOffset(raw []byte, file string, pageNo int64) (bodyByteOffset, byteSize int64, err error) {
	pos := 0

	for i := 0; i < 3; i++ {
		_, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
		if err != nil {
			return 0, 0, err
		}

		pos += n
	}

	pageCountU, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return 0, 0, err
	}

	pos += n
	pageCount := int64(pageCountU) //nolint:gosec

	if pageNo < 0 || pageNo >= pageCount {
		return 0, 0, errs.Overflow(0, uint64(pageNo)) //nolint:gosec
	}

	var offset int64

	for i := int64(0); i <= pageNo; i++ {
		size, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
		if err != nil {
			return 0, 0, err
		}

		pos += n

		if i == pageNo {
			return offset, int64(size), nil //nolint:gosec
		}

		offset += int64(size) //nolint:gosec
	}

	return offset, 0, nil
}

// P2LMaxOffset is the partial-getter backing p2l_get_max_offset: just the
// file_size field, the second varint in the header.
func P2LMaxOffset(raw []byte, file string) (int64, error) {
	pos := 0

	_, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return 0, err
	}

	pos += n

	fileSize, _, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return 0, err
	}

	return int64(fileSize), nil //nolint:gosec
}
