package proto

import (
	"io"
	"os"

	"github.com/go-fsfs/fsfs/endian"
	"github.com/go-fsfs/fsfs/errs"
	"github.com/go-fsfs/fsfs/section"
)

// P2LRecordSize is the fixed size, in bytes, of one P2L proto record:
// offset, size, item-number, revision (each 8 bytes), checksum (4 bytes),
// type (1 byte), padded to an 8-byte multiple.
const P2LRecordSize = 40

// InvalidRevision flags a P2L proto record written by a transaction that
// did not yet know its target revision (spec.md §4.5 step 3); the P2L
// builder rewrites these to the finalized revision before emitting pages.
const InvalidRevision int64 = -1

// P2LRecord is one row of the P2L proto log: the logical P2L entry
// verbatim (spec.md §3 "P2L proto: the logical P2L entry verbatim").
type P2LRecord struct {
	section.P2LEntry
}

// P2LWriter appends fixed P2LRecord rows to an open file.
type P2LWriter struct {
	f      *os.File
	file   string
	engine endian.EndianEngine
	buf    [P2LRecordSize]byte
}

// NewP2LWriter wraps f (opened for append) as a P2LWriter.
func NewP2LWriter(f *os.File, file string) *P2LWriter {
	return &P2LWriter{f: f, file: file, engine: endian.GetNativeEndianEngine()}
}

// Append writes one P2L entry verbatim. No reordering or deduplication is
// performed (spec.md §4.3).
func (w *P2LWriter) Append(e section.P2LEntry) error {
	w.engine.PutUint64(w.buf[0:8], uint64(e.Offset))     //nolint:gosec
	w.engine.PutUint64(w.buf[8:16], uint64(e.Size))       //nolint:gosec
	w.engine.PutUint64(w.buf[16:24], e.ItemNumber)
	w.engine.PutUint64(w.buf[24:32], uint64(e.Revision)) //nolint:gosec
	w.engine.PutUint32(w.buf[32:36], e.Checksum)
	w.buf[36] = byte(e.Type)
	w.buf[37], w.buf[38], w.buf[39] = 0, 0, 0

	if _, err := w.f.Write(w.buf[:]); err != nil {
		return errs.IO(w.file, -1, err)
	}

	return nil
}

// Flush syncs the underlying file.
func (w *P2LWriter) Flush() error {
	if err := w.f.Sync(); err != nil {
		return errs.IO(w.file, -1, err)
	}

	return nil
}

// P2LReader streams P2LRecord rows from an open proto log, in order,
// exactly once.
type P2LReader struct {
	f      *os.File
	file   string
	engine endian.EndianEngine
	pos    int64
	buf    [P2LRecordSize]byte
}

// NewP2LReader wraps f as a P2LReader starting at the beginning of the
// file.
func NewP2LReader(f *os.File, file string) *P2LReader {
	return &P2LReader{f: f, file: file, engine: endian.GetNativeEndianEngine()}
}

// Next returns the next record, or ok=false at clean EOF.
func (r *P2LReader) Next() (section.P2LEntry, bool, error) {
	n, err := r.f.ReadAt(r.buf[:], r.pos)
	if err == io.EOF && n == 0 {
		return section.P2LEntry{}, false, nil
	}

	if err != nil && err != io.EOF {
		return section.P2LEntry{}, false, errs.IO(r.file, r.pos, err)
	}

	if n < P2LRecordSize {
		return section.P2LEntry{}, false, errs.Corrupt(r.file, r.pos, "truncated P2L proto record")
	}

	e := section.P2LEntry{
		Offset:     int64(r.engine.Uint64(r.buf[0:8])),  //nolint:gosec
		Size:       int64(r.engine.Uint64(r.buf[8:16])), //nolint:gosec
		ItemNumber: r.engine.Uint64(r.buf[16:24]),
		Revision:   int64(r.engine.Uint64(r.buf[24:32])), //nolint:gosec
		Checksum:   r.engine.Uint32(r.buf[32:36]),
		Type:       section.ItemType(r.buf[36]),
	}
	r.pos += P2LRecordSize

	return e, true, nil
}
