// Package proto implements the fixed-record proto-index append logs
// written during a transaction (spec.md §4.3): an L2P log of
// (offset+1, item_index) pairs and a P2L log of logical P2L entries. Both
// are written and read in the repository's native byte order (spec.md §6)
// since they never leave the host that wrote them.
package proto

import (
	"io"
	"os"

	"github.com/go-fsfs/fsfs/endian"
	"github.com/go-fsfs/fsfs/errs"
)

// L2PRecordSize is the fixed size, in bytes, of one L2P proto record:
// two uint64 fields (spec.md §3 "L2P proto").
const L2PRecordSize = 16

// L2PRecord is one row of the L2P proto log.
type L2PRecord struct {
	OffsetPlusOne uint64
	ItemIndex     uint64
}

// IsEndOfRevision reports whether this record is the sentinel that marks
// the end of one revision's contribution and the start of the next
// (spec.md §4.3: "A record with offset_plus_one == 0 && item_index == 0
// terminates the current revision's contribution").
func (r L2PRecord) IsEndOfRevision() bool {
	return r.OffsetPlusOne == 0 && r.ItemIndex == 0
}

// EndOfRevisionRecord is the sentinel record itself.
var EndOfRevisionRecord = L2PRecord{}

// L2PWriter appends fixed L2PRecord rows to an open file.
type L2PWriter struct {
	f      *os.File
	file   string
	engine endian.EndianEngine
	buf    [L2PRecordSize]byte
}

// NewL2PWriter wraps f (opened for append) as an L2PWriter.
func NewL2PWriter(f *os.File, file string) *L2PWriter {
	return &L2PWriter{f: f, file: file, engine: endian.GetNativeEndianEngine()}
}

// Append writes one (offset+1, item_index) record. The caller is
// responsible for the spec.md §4.3 invariant "item_index < UINT_MAX/2".
func (w *L2PWriter) Append(offsetPlusOne, itemIndex uint64) error {
	w.engine.PutUint64(w.buf[0:8], offsetPlusOne)
	w.engine.PutUint64(w.buf[8:16], itemIndex)

	if _, err := w.f.Write(w.buf[:]); err != nil {
		return errs.IO(w.file, -1, err)
	}

	return nil
}

// EndRevision appends the end-of-revision sentinel record.
func (w *L2PWriter) EndRevision() error {
	return w.Append(0, 0)
}

// Flush syncs the underlying file, matching spec.md §4.3 "writes are
// flushed by the caller upon transaction commit."
func (w *L2PWriter) Flush() error {
	if err := w.f.Sync(); err != nil {
		return errs.IO(w.file, -1, err)
	}

	return nil
}

// L2PReader streams L2PRecord rows from an open proto log, in order,
// exactly once (spec.md §3 "consumed exactly once by the respective index
// builder").
type L2PReader struct {
	f      *os.File
	file   string
	engine endian.EndianEngine
	pos    int64
	buf    [L2PRecordSize]byte
}

// NewL2PReader wraps f as an L2PReader starting at the beginning of the
// file.
func NewL2PReader(f *os.File, file string) *L2PReader {
	return &L2PReader{f: f, file: file, engine: endian.GetNativeEndianEngine()}
}

// Next returns the next record, or ok=false at clean EOF.
func (r *L2PReader) Next() (L2PRecord, bool, error) {
	n, err := r.f.ReadAt(r.buf[:], r.pos)
	if err == io.EOF && n == 0 {
		return L2PRecord{}, false, nil
	}

	if err != nil && err != io.EOF {
		return L2PRecord{}, false, errs.IO(r.file, r.pos, err)
	}

	if n < L2PRecordSize {
		return L2PRecord{}, false, errs.Corrupt(r.file, r.pos, "truncated L2P proto record")
	}

	rec := L2PRecord{
		OffsetPlusOne: r.engine.Uint64(r.buf[0:8]),
		ItemIndex:     r.engine.Uint64(r.buf[8:16]),
	}
	r.pos += L2PRecordSize

	return rec, true, nil
}

// FindItemIndex implements the rare-path linear scan spec.md §4.6
// describes for a transaction-local lookup: scan revision markers until
// relRev is reached, then scan that revision's records for itemIndex.
// Returns the stored offset+1 value (0 if not found) and whether a match
// was found.
func (r *L2PReader) FindItemIndex(relRev int64, itemIndex uint64) (uint64, bool, error) {
	r.pos = 0

	rev := int64(0)

	for {
		rec, ok, err := r.Next()
		if err != nil {
			return 0, false, err
		}

		if !ok {
			return 0, false, nil
		}

		if rec.IsEndOfRevision() {
			rev++

			continue
		}

		if rev == relRev && rec.ItemIndex == itemIndex {
			return rec.OffsetPlusOne, true, nil
		}
	}
}
