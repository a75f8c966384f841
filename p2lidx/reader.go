package p2lidx

import (
	"os"
	"sort"

	"github.com/go-fsfs/fsfs/errs"
	"github.com/go-fsfs/fsfs/pagecache"
	"github.com/go-fsfs/fsfs/section"
)

// leakingBucketInit is the leaking-bucket counter's starting value for
// prefetch (spec.md §4.7 step 3: "initialized to 4").
const leakingBucketInit = 4

// Reader answers P2L lookups against one finished index file, backed by a
// header cache and a page cache (spec.md §4.7).
type Reader struct {
	f           *os.File
	path        string
	headerCache pagecache.Cache
	pageCache   pagecache.Cache
}

// Open opens an existing P2L index file for lookups.
func Open(f *os.File, path string, headerCache, pageCache pagecache.Cache) *Reader {
	return &Reader{f: f, path: path, headerCache: headerCache, pageCache: pageCache}
}

func (r *Reader) headerKey() pagecache.Key {
	return pagecache.Key{File: r.path, Kind: pagecache.KindP2LHeader}
}

func (r *Reader) pageKey(pageNo int64) pagecache.Key {
	return pagecache.Key{File: r.path, Kind: pagecache.KindP2LPage, PageNo: pageNo}
}

func (r *Reader) rawHeader() ([]byte, error) {
	key := r.headerKey()

	if r.headerCache != nil {
		if raw, ok := r.headerCache.Get(key); ok {
			return raw, nil
		}
	}

	raw, _, err := section.ReadRawP2LHeader(r.f, r.path)
	if err != nil {
		return nil, err
	}

	if r.headerCache != nil {
		r.headerCache.Set(key, raw)
	}

	return raw, nil
}

func (r *Reader) rawPage(pageNo, bodyByteOffset, byteSize, headerLen int64) ([]byte, bool, error) {
	key := r.pageKey(pageNo)

	if r.pageCache != nil {
		if raw, ok := r.pageCache.Get(key); ok {
			return raw, true, nil
		}
	}

	raw := make([]byte, byteSize)

	n, err := r.f.ReadAt(raw, headerLen+bodyByteOffset)
	if err != nil && n < len(raw) {
		return nil, false, errs.IO(r.path, headerLen+bodyByteOffset, err)
	}

	if r.pageCache != nil {
		r.pageCache.Set(key, raw)
	}

	return raw, false, nil
}

// IndexLookup implements p2l_index_lookup (spec.md §4.7): returns every
// entry in the cluster page containing offset, and prefetches neighboring
// pages using a leaking-bucket heuristic.
func (r *Reader) IndexLookup(revision int64, offset int64) ([]section.P2LEntry, error) {
	raw, err := r.rawHeader()
	if err != nil {
		return nil, err
	}

	h, err := section.DecodeP2LHeader(raw, r.path)
	if err != nil {
		return nil, err
	}

	headerLen := int64(len(raw))

	pageNo := offset / h.PageSize
	if pageNo < 0 || pageNo >= h.PageCount {
		return nil, errs.Overflow(revision, uint64(offset)) //nolint:gosec
	}

	bodyOffset, byteSize, err := section.LookupP2LPageOffset(raw, r.path, pageNo)
	if err != nil {
		return nil, err
	}

	pageRaw, wasCached, err := r.rawPage(pageNo, bodyOffset, byteSize, headerLen)
	if err != nil {
		return nil, err
	}

	entries, err := section.DecodeP2LPageAll(pageRaw, h.FirstRevision, r.path, headerLen+bodyOffset)
	if err != nil {
		return nil, err
	}

	if !wasCached {
		r.prefetch(h, headerLen, pageNo, bodyOffset, byteSize)
	}

	return entries, nil
}

// prefetch implements the leaking-bucket heuristic of spec.md §4.7 step 3:
// walk outward (forward then backward) from pageNo through adjacent pages,
// stopping each direction once the bucket (initialized to
// leakingBucketInit, decremented on a cache hit and incremented on a miss)
// reaches zero or the first or last page is passed. The walk is not
// bounded by a byte window around pageNo: bodyOffset and byteSize are not
// used, so with a cold cache every page in that direction is read.
func (r *Reader) prefetch(h *section.P2LHeader, headerLen, pageNo, bodyOffset, byteSize int64) {
	if r.pageCache == nil {
		return
	}

	r.prefetchDirection(h, headerLen, pageNo+1, 1)
	r.prefetchDirection(h, headerLen, pageNo-1, -1)
}

func (r *Reader) prefetchDirection(h *section.P2LHeader, headerLen, start, step int64) {
	bucket := leakingBucketInit

	for p := start; p >= 0 && p < h.PageCount && bucket > 0; p += step {
		key := r.pageKey(p)

		if r.pageCache.HasKey(key) {
			bucket--

			continue
		}

		bucket++

		size := h.PageByteSizes[p]
		bodyOff := cumulativeOffset(h, p)

		raw := make([]byte, size)
		if _, err := r.f.ReadAt(raw, headerLen+bodyOff); err == nil {
			r.pageCache.Set(key, raw)
		}
	}
}

// cumulativeOffset returns the byte offset (relative to the start of page
// bodies) where page pageNo begins.
func cumulativeOffset(h *section.P2LHeader, pageNo int64) int64 {
	var off int64
	for i := int64(0); i < pageNo && i < h.PageCount; i++ {
		off += h.PageByteSizes[i]
	}

	return off
}

// EntryLookup implements p2l_entry_lookup (spec.md §4.7): binary search,
// by offset, for the entry that starts exactly at offset within its page.
func (r *Reader) EntryLookup(revision int64, offset int64) (section.P2LEntry, error) {
	entries, err := r.IndexLookup(revision, offset)
	if err != nil {
		return section.P2LEntry{}, err
	}

	i := sort.Search(len(entries), func(i int) bool { return entries[i].Offset >= offset })
	if i >= len(entries) || entries[i].Offset != offset {
		return section.P2LEntry{}, errs.ErrNotStartOffset
	}

	return entries[i], nil
}

// MaxOffset implements p2l_get_max_offset: the header's file_size field.
func (r *Reader) MaxOffset() (int64, error) {
	raw, err := r.rawHeader()
	if err != nil {
		return 0, err
	}

	return section.P2LMaxOffset(raw, r.path)
}
