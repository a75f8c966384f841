package section

import (
	"os"

	"github.com/go-fsfs/fsfs/errs"
	"github.com/go-fsfs/fsfs/varint"
)

// L2PPageEntry is one row of the L2P page table: a page's byte size on
// disk and how many item entries it holds (spec.md §3 "Page table").
type L2PPageEntry struct {
	ByteSize   int64
	EntryCount int64
}

// L2PHeader is the fully-decoded form of an L2P index file's header
// section: everything before the page bodies.
type L2PHeader struct {
	FirstRevision  int64
	PageSize       int64 // P
	RevisionCount  int64
	TotalPageCount int64
	PagesPerRev    []int64
	Pages          []L2PPageEntry
}

// PageTableIndex returns the exclusive prefix sum of PagesPerRev: the
// index of the first page belonging to each revision, plus a trailing
// entry equal to TotalPageCount (spec.md §3 invariant).
func (h *L2PHeader) PageTableIndex() []int64 {
	idx := make([]int64, h.RevisionCount+1)
	for i, n := range h.PagesPerRev {
		idx[i+1] = idx[i] + n
	}

	return idx
}

// L2PPageInfo is the result of locating (revision, item_index) within an
// L2P header's page table: which page holds it, the offset of that page's
// bytes from the start of the page-body section, and the page's own table
// entry. Overflow is set when item_index is past the revision's last page
// (spec.md §4.6 "Page-info derivation").
type L2PPageInfo struct {
	PageNo         int64
	PageOffset     int64
	BodyByteOffset int64
	Entry          L2PPageEntry
	Overflow       bool
}

// ReadRawL2PHeader reads the header section (everything up to the first
// page body) of an open L2P index file, returning the raw bytes verbatim
// (suitable for caching) and the byte offset where page bodies begin.
func ReadRawL2PHeader(f *os.File, file string) ([]byte, int64, error) {
	// The first four varints are read first because total_page_count and
	// revision_count determine exactly how many more varints follow; a
	// single bounded read then covers the whole header section without
	// guessing at a buffer size.
	head := make([]byte, varint.MaxLen*4)

	n, err := f.ReadAt(head, 0)
	if err != nil && n == 0 {
		return nil, 0, errs.IO(file, 0, err)
	}

	head = head[:n]

	pos := 0

	_, firstN, err := varint.ReadUvarint(head[pos:], file, int64(pos))
	if err != nil {
		return nil, 0, err
	}

	pos += firstN

	_, n2, err := varint.ReadUvarint(head[pos:], file, int64(pos))
	if err != nil {
		return nil, 0, err
	}

	pos += n2

	revisionCount, n3, err := varint.ReadUvarint(head[pos:], file, int64(pos))
	if err != nil {
		return nil, 0, err
	}

	pos += n3

	totalPageCount, n4, err := varint.ReadUvarint(head[pos:], file, int64(pos))
	if err != nil {
		return nil, 0, err
	}

	pos += n4

	// Upper bound: 4 header varints, revisionCount "pages in rev" varints,
	// and 2*totalPageCount page-table varints, each up to MaxLen bytes.
	maxHeaderLen := pos + int(revisionCount)*varint.MaxLen + int(totalPageCount)*2*varint.MaxLen

	raw := make([]byte, maxHeaderLen)

	rn, err := f.ReadAt(raw, 0)
	if err != nil && rn == 0 {
		return nil, 0, errs.IO(file, 0, err)
	}

	raw = raw[:rn]

	// Walk the rest of the header to find its exact length: revisionCount
	// "pages in rev" varints followed by 2*totalPageCount page-table
	// varints.
	walkPos := pos
	for i := uint64(0); i < revisionCount; i++ {
		_, n, err := varint.ReadUvarint(raw[walkPos:], file, int64(walkPos))
		if err != nil {
			return nil, 0, err
		}

		walkPos += n
	}

	for i := uint64(0); i < totalPageCount*2; i++ {
		_, n, err := varint.ReadUvarint(raw[walkPos:], file, int64(walkPos))
		if err != nil {
			return nil, 0, err
		}

		walkPos += n
	}

	return raw[:walkPos], int64(walkPos), nil
}

// DecodeL2PHeader fully decodes raw (as returned by ReadRawL2PHeader) into
// an L2PHeader, allocating PagesPerRev and Pages slices. Used by
// get_max_ids and by callers that need the whole table, not a single
// lookup.
func DecodeL2PHeader(raw []byte, file string) (*L2PHeader, error) {
	pos := 0

	firstRevisionU, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return nil, err
	}

	pos += n

	pageSize, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return nil, err
	}

	pos += n

	revisionCount, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return nil, err
	}

	pos += n

	totalPageCount, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return nil, err
	}

	pos += n

	h := &L2PHeader{
		FirstRevision:  int64(firstRevisionU), //nolint:gosec
		PageSize:       int64(pageSize), //nolint:gosec
		RevisionCount:  int64(revisionCount), //nolint:gosec
		TotalPageCount: int64(totalPageCount), //nolint:gosec
		PagesPerRev:    make([]int64, revisionCount),
		Pages:          make([]L2PPageEntry, totalPageCount),
	}

	for i := range h.PagesPerRev {
		v, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n
		h.PagesPerRev[i] = int64(v) //nolint:gosec
	}

	for i := range h.Pages {
		size, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n

		count, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n

		h.Pages[i] = L2PPageEntry{ByteSize: int64(size), EntryCount: int64(count)} //nolint:gosec
	}

	return h, nil
}

// LookupL2PPageInfo is the partial-getter of spec.md §4.6 step 1: given the
// still-encoded header bytes, resolve the page-table range for a single
// revision and the page covering itemIndex, without allocating
// PagesPerRev/Pages slices for the revisions and pages it skips over.
func LookupL2PPageInfo(raw []byte, file string, relRev int64, itemIndex uint64) (L2PPageInfo, error) {
	pos := 0

	_, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos)) // first_revision
	if err != nil {
		return L2PPageInfo{}, err
	}

	pos += n

	pageSizeU, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos)) // P
	if err != nil {
		return L2PPageInfo{}, err
	}

	pos += n
	pageSize := int64(pageSizeU) //nolint:gosec

	revisionCountU, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
	if err != nil {
		return L2PPageInfo{}, err
	}

	pos += n
	revisionCount := int64(revisionCountU) //nolint:gosec

	_, n, err = varint.ReadUvarint(raw[pos:], file, int64(pos)) // total_page_count, unused here
	if err != nil {
		return L2PPageInfo{}, err
	}

	pos += n

	if relRev < 0 || relRev >= revisionCount {
		return L2PPageInfo{}, errs.Revision(relRev)
	}

	var pagesBefore, pagesInRev int64

	for i := int64(0); i < revisionCount; i++ {
		v, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
		if err != nil {
			return L2PPageInfo{}, err
		}

		pos += n

		if i < relRev {
			pagesBefore += int64(v) //nolint:gosec
		} else if i == relRev {
			pagesInRev = int64(v) //nolint:gosec
		}
	}

	relPageNo := int64(itemIndex / uint64(pageSize)) //nolint:gosec

	overflow := false
	if pagesInRev == 0 || relPageNo >= pagesInRev {
		relPageNo = pagesInRev - 1
		overflow = true
	}

	targetPageNo := pagesBefore + relPageNo
	if targetPageNo < 0 {
		// Revision has zero pages; there is nothing to return but the
		// caller must still see an overflow rather than a panic.
		return L2PPageInfo{PageNo: pagesBefore, Overflow: true}, nil
	}

	var bodyOffset int64

	var entry L2PPageEntry

	for i := int64(0); i <= targetPageNo; i++ {
		size, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
		if err != nil {
			return L2PPageInfo{}, err
		}

		pos += n

		count, n, err := varint.ReadUvarint(raw[pos:], file, int64(pos))
		if err != nil {
			return L2PPageInfo{}, err
		}

		pos += n

		if i == targetPageNo {
			entry = L2PPageEntry{ByteSize: int64(size), EntryCount: int64(count)} //nolint:gosec

			break
		}

		bodyOffset += int64(size) //nolint:gosec
	}

	pageOffset := itemIndex % uint64(pageSize) //nolint:gosec
	if overflow {
		pageOffset = uint64(pageSize) + 1 //nolint:gosec
	}

	return L2PPageInfo{
		PageNo:         targetPageNo,
		PageOffset:     int64(pageOffset), //nolint:gosec
		BodyByteOffset: bodyOffset,
		Entry:          entry,
		Overflow:       overflow,
	}, nil
}

// L2PMaxIDs implements get_max_ids (spec.md §4.6): for each revision in
// [startRelRev, startRelRev+count), the item count is
// (pages-1)*P + last_page.entry_count.
func L2PMaxIDs(raw []byte, file string, startRelRev, count int64) ([]uint64, error) {
	h, err := DecodeL2PHeader(raw, file)
	if err != nil {
		return nil, err
	}

	if startRelRev < 0 || startRelRev+count > h.RevisionCount {
		return nil, errs.Revision(startRelRev)
	}

	idx := h.PageTableIndex()
	out := make([]uint64, count)

	for i := int64(0); i < count; i++ {
		rev := startRelRev + i
		from, to := idx[rev], idx[rev+1]

		if from == to {
			out[i] = 0

			continue
		}

		lastPage := h.Pages[to-1]
		out[i] = uint64((to-from-1)*h.PageSize + lastPage.EntryCount) //nolint:gosec
	}

	return out, nil
}
