package l2pidx

import (
	"os"

	"github.com/go-fsfs/fsfs/errs"
	"github.com/go-fsfs/fsfs/pagecache"
	"github.com/go-fsfs/fsfs/proto"
	"github.com/go-fsfs/fsfs/section"
)

// DefaultPrefetchWindow is the half-width, in bytes, of the block-aligned
// window item_offset prefetches around a page it just read (spec.md §4.6
// step 4, "64 KiB").
const DefaultPrefetchWindow = 64 * 1024

// Reader answers item_offset lookups against one finished L2P index file,
// backed by a header cache and a page cache (spec.md §4.6).
type Reader struct {
	f             *os.File
	path          string
	headerCache   pagecache.Cache
	pageCache     pagecache.Cache
	prefetchWindow int64
}

// Open opens an existing L2P index file for lookups. headerCache and
// pageCache may be shared across readers for different files; nil disables
// caching for that kind (every lookup re-reads from disk).
func Open(f *os.File, path string, headerCache, pageCache pagecache.Cache, prefetchWindow int64) *Reader {
	if prefetchWindow <= 0 {
		prefetchWindow = DefaultPrefetchWindow
	}

	return &Reader{f: f, path: path, headerCache: headerCache, pageCache: pageCache, prefetchWindow: prefetchWindow}
}

func (r *Reader) headerKey() pagecache.Key {
	return pagecache.Key{File: r.path, Kind: pagecache.KindL2PHeader}
}

func (r *Reader) pageKey(pageNo int64) pagecache.Key {
	return pagecache.Key{File: r.path, Kind: pagecache.KindL2PPage, PageNo: pageNo}
}

// rawHeader returns the header section bytes, using the header cache.
func (r *Reader) rawHeader() ([]byte, error) {
	key := r.headerKey()

	if r.headerCache != nil {
		if raw, ok := r.headerCache.Get(key); ok {
			return raw, nil
		}
	}

	raw, _, err := section.ReadRawL2PHeader(r.f, r.path)
	if err != nil {
		return nil, err
	}

	if r.headerCache != nil {
		r.headerCache.Set(key, raw)
	}

	return raw, nil
}

// rawPage returns the body byte slice the pageNo page's offsets were
// encoded into, using the page cache.
func (r *Reader) rawPage(pageNo, bodyByteOffset int64, entry section.L2PPageEntry, headerLen int64) ([]byte, error) {
	key := r.pageKey(pageNo)

	if r.pageCache != nil {
		if raw, ok := r.pageCache.Get(key); ok {
			return raw, nil
		}
	}

	raw := make([]byte, entry.ByteSize)

	n, err := r.f.ReadAt(raw, headerLen+bodyByteOffset)
	if err != nil && n < len(raw) {
		return nil, errs.IO(r.path, headerLen+bodyByteOffset, err)
	}

	if r.pageCache != nil {
		r.pageCache.Set(key, raw)
	}

	return raw, nil
}

// AddressingMode selects which of item_offset's non-txn branches a revision
// uses (spec.md §4.6): the common logical (L2P-lookup) path, or one of the
// two physical-addressing shortcuts a packed or rev-file-is-the-offset
// revision takes instead of touching the L2P index at all.
type AddressingMode int

const (
	// AddressingLogical resolves item_index through the finished L2P
	// index (or, if a txn log is supplied, the rare-path proto scan
	// first). This is the default zero value.
	AddressingLogical AddressingMode = iota
	// AddressingPacked resolves offset = packed_rev_base_offset + item_index.
	AddressingPacked
	// AddressingPlain resolves offset = item_index directly.
	AddressingPlain
)

// PackedRevisionBaseOffset resolves packed_rev_base_offset for relRev: the
// byte offset, within the shared pack file, where that revision's item
// block begins (spec.md §4.6 third branch).
type PackedRevisionBaseOffset func(relRev int64) (int64, error)

// ItemOffsetOptions selects item_offset's branch for one call (spec.md
// §4.6). The zero value is AddressingLogical with no txn log, i.e. a plain
// L2P-lookup against the finished index.
type ItemOffsetOptions struct {
	Mode AddressingMode
	// TxnLog, when non-nil and Mode is AddressingLogical, is scanned first
	// for a transaction-local record before falling back to the finished
	// index (branch 1, "rare path; proto logs are small").
	TxnLog *proto.L2PReader
	// PackedBase is required when Mode is AddressingPacked.
	PackedBase PackedRevisionBaseOffset
}

// ItemOffset implements the full item_offset(revision, txn_id?, item_index)
// dispatcher (spec.md §4.6): a txn-local proto scan, an L2P-lookup via the
// finished index, packed physical addressing, or plain physical addressing,
// selected by opts.
func (r *Reader) ItemOffset(relRev int64, itemIndex uint64, opts ItemOffsetOptions) (int64, error) {
	switch opts.Mode {
	case AddressingPacked:
		if opts.PackedBase == nil {
			return 0, errs.Corrupt(r.path, 0, "AddressingPacked requires PackedBase")
		}

		base, err := opts.PackedBase(relRev)
		if err != nil {
			return 0, err
		}

		return base + int64(itemIndex), nil //nolint:gosec
	case AddressingPlain:
		return int64(itemIndex), nil //nolint:gosec
	default: // AddressingLogical
		if opts.TxnLog != nil {
			offsetPlusOne, found, err := opts.TxnLog.FindItemIndex(relRev, itemIndex)
			if err != nil {
				return 0, err
			}

			if found {
				return int64(offsetPlusOne) - 1, nil //nolint:gosec
			}
		}

		return r.lookupViaIndex(relRev, itemIndex)
	}
}

// lookupViaIndex implements item_offset's L2P-lookup branch (spec.md §4.6):
// given a revision relative to this file's first_revision and an item
// index, returns the file_offset for that item (-1 for an unused slot).
func (r *Reader) lookupViaIndex(relRev int64, itemIndex uint64) (int64, error) {
	raw, err := r.rawHeader()
	if err != nil {
		return 0, err
	}

	info, err := section.LookupL2PPageInfo(raw, r.path, relRev, itemIndex)
	if err != nil {
		return 0, err
	}

	if info.Overflow {
		return 0, errs.Overflow(relRev, itemIndex)
	}

	pageRaw, err := r.rawPage(info.PageNo, info.BodyByteOffset, info.Entry, int64(len(raw)))
	if err != nil {
		return 0, err
	}

	vals, err := section.DecodeL2PPage(pageRaw, info.Entry.EntryCount, r.path, int64(len(raw))+info.BodyByteOffset)
	if err != nil {
		return 0, err
	}

	if info.PageOffset >= int64(len(vals)) {
		return 0, errs.Overflow(relRev, itemIndex)
	}

	offset := vals[info.PageOffset]

	r.prefetch(raw, info, int64(len(raw)))

	return offset, nil
}

// prefetch implements spec.md §4.6 step 4: compute a block-aligned window
// around the page just read and pull in any not-yet-cached pages (in this
// file, across all revisions it covers) whose byte range falls inside it.
func (r *Reader) prefetch(rawHeader []byte, info section.L2PPageInfo, headerLen int64) {
	if r.pageCache == nil {
		return
	}

	h, err := section.DecodeL2PHeader(rawHeader, r.path)
	if err != nil {
		return
	}

	pageStart := info.BodyByteOffset
	pageEnd := pageStart + info.Entry.ByteSize

	min := alignDown(pageStart, r.prefetchWindow) - r.prefetchWindow
	max := alignUp(pageEnd, r.prefetchWindow)

	var cum int64

	for pageNo, entry := range h.Pages {
		start := cum
		end := start + entry.ByteSize
		cum = end

		if start < min {
			continue
		}

		if end > max {
			break
		}

		key := r.pageKey(int64(pageNo))
		if r.pageCache.HasKey(key) {
			continue
		}

		raw := make([]byte, entry.ByteSize)
		if _, err := r.f.ReadAt(raw, headerLen+start); err != nil {
			continue
		}

		r.pageCache.Set(key, raw)
	}
}

func alignDown(v, block int64) int64 {
	return (v / block) * block
}

func alignUp(v, block int64) int64 {
	if v%block == 0 {
		return v
	}

	return (v/block + 1) * block
}

// MaxIDs implements get_max_ids (spec.md §4.6): the item count of each
// revision in [startRelRev, startRelRev+count).
func (r *Reader) MaxIDs(startRelRev, count int64) ([]uint64, error) {
	raw, err := r.rawHeader()
	if err != nil {
		return nil, err
	}

	return section.L2PMaxIDs(raw, r.path, startRelRev, count)
}
