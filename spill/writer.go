// Package spill implements the streaming scratch-buffer abstraction spec.md
// Design Notes §9 calls for: an index builder accumulates page bodies and
// table rows as it streams through a proto log, and that accumulation must
// not force the whole index into memory for large revisions. A Writer
// behaves like a growing byte buffer up to a threshold, then transparently
// continues on a temp file, generalizing the pooled in-memory
// internal/pool.ByteBuffer the rest of the package uses for short-lived
// buffers.
package spill

import (
	"bytes"
	"io"
	"os"

	"github.com/go-fsfs/fsfs/errs"
	"github.com/go-fsfs/fsfs/internal/pool"
)

// DefaultThreshold is the in-memory ceiling before a Writer spills to disk
// (spec.md Design Notes §9).
const DefaultThreshold = 16 * 1024 * 1024

// Writer accumulates written bytes in memory up to a threshold, then spills
// the remainder (and everything already buffered) to a temp file. It
// implements io.Writer only (no io.WriterAt); callers read everything back
// via Reader, before Close, which releases the buffer and removes the
// temp file.
type Writer struct {
	dir       string
	threshold int
	mem       *pool.ByteBuffer
	file      *os.File
	size      int64
}

// NewWriter creates a Writer that spills into dir once more than threshold
// bytes have been written. threshold<=0 selects DefaultThreshold. dir=""
// uses os.TempDir.
func NewWriter(dir string, threshold int) *Writer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return &Writer{
		dir:       dir,
		threshold: threshold,
		mem:       pool.GetBlobSetBuffer(),
	}
}

// Size reports the total number of bytes written so far.
func (w *Writer) Size() int64 {
	return w.size
}

// Spilled reports whether this Writer has moved (or started moving) its
// contents to disk.
func (w *Writer) Spilled() bool {
	return w.file != nil
}

// Write appends p, spilling to disk the first time the threshold is
// crossed.
func (w *Writer) Write(p []byte) (int, error) {
	w.size += int64(len(p))

	if w.file != nil {
		n, err := w.file.Write(p)
		if err != nil {
			return n, errs.IO(w.file.Name(), -1, err)
		}

		return n, nil
	}

	if w.mem.Len()+len(p) <= w.threshold {
		w.mem.MustWrite(p)

		return len(p), nil
	}

	if err := w.spill(); err != nil {
		return 0, err
	}

	n, err := w.file.Write(p)
	if err != nil {
		return n, errs.IO(w.file.Name(), -1, err)
	}

	return n, nil
}

func (w *Writer) spill() error {
	f, err := os.CreateTemp(w.dir, "fsfs-spill-*.tmp")
	if err != nil {
		return errs.IO(w.dir, -1, err)
	}

	if _, err := f.Write(w.mem.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())

		return errs.IO(f.Name(), -1, err)
	}

	pool.PutBlobSetBuffer(w.mem)
	w.mem = nil
	w.file = f

	return nil
}

// Reader returns an io.ReadCloser positioned at the start of everything
// written so far. For an unspilled Writer this is a view over the
// in-memory buffer; for a spilled one it rewinds the temp file. The Writer
// must not be written to again while the returned reader is in use.
func (w *Writer) Reader() (io.ReadCloser, error) {
	if w.file == nil {
		return io.NopCloser(bytes.NewReader(w.mem.Bytes())), nil
	}

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, errs.IO(w.file.Name(), -1, err)
	}

	return w.file, nil
}

// Close releases the Writer's resources: the pooled in-memory buffer, or
// the temp file (removed from disk).
func (w *Writer) Close() error {
	if w.mem != nil {
		pool.PutBlobSetBuffer(w.mem)
		w.mem = nil
	}

	if w.file != nil {
		name := w.file.Name()

		err := w.file.Close()
		os.Remove(name)
		w.file = nil

		if err != nil {
			return errs.IO(name, -1, err)
		}
	}

	return nil
}
