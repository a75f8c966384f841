// Package stream implements the prefetching varint-stream reader spec.md
// §4.1 describes: a wrapper over an open file that presents an
// effectively-infinite (bounded by EOF) sequence of unsigned packed
// integers, with Get() and Seek() as its only two operations.
//
// The refill strategy mirrors the teacher's pooled, growable buffer
// (internal/pool.ByteBuffer: Grow/Extend/Reset) rather than allocating a
// fresh slice per refill.
package stream

import (
	"io"
	"os"

	"github.com/go-fsfs/fsfs/errs"
	"github.com/go-fsfs/fsfs/internal/pool"
	"github.com/go-fsfs/fsfs/varint"
)

// DefaultPrefetchCount is K: the number of decoded values the reader keeps
// buffered ahead of the caller's cursor.
const DefaultPrefetchCount = 64

// entry is one prefetched value, along with the cumulative number of raw
// bytes consumed since the start of the current buffered block.
type entry struct {
	value  uint64
	cumLen int64
}

// Reader is a prefetching reader over the packed-integer stream stored in
// an open file. It is not safe for concurrent use: each lookup must
// construct or receive its own Reader (spec.md §5, "stream readers own a
// file descriptor and are not shared across concurrent operations").
type Reader struct {
	f         *os.File
	file      string
	blockSize int64
	k         int

	buf *pool.ByteBuffer

	startOffset int64 // file offset of the first buffered byte
	entries     []entry
	cur         int // index of the next entry Get() will return

	pendingSeek int64 // next startOffset to refill from, when entries is empty
	eof         bool  // true once a refill hit true EOF with nothing decoded
}

// NewReader constructs a Reader positioned at the start of f. file is used
// only to annotate errors.
func NewReader(f *os.File, file string, blockSize int64) *Reader {
	if blockSize <= 0 {
		blockSize = 64 * 1024
	}

	return &Reader{
		f:         f,
		file:      file,
		blockSize: blockSize,
		k:         DefaultPrefetchCount,
		buf:       pool.NewByteBuffer(DefaultPrefetchCount * varint.MaxLen),
	}
}

// Offset returns the reader's current logical position: the file offset of
// the next byte Get() would decode from.
func (r *Reader) Offset() int64 {
	if r.cur == 0 {
		if len(r.entries) == 0 {
			return r.startOffset
		}

		return r.startOffset
	}

	return r.startOffset + r.entries[r.cur-1].cumLen
}

// Seek repositions the reader's cursor to off. If off falls exactly on a
// value boundary already present in the buffer, the cursor is moved there
// with no I/O; otherwise the buffer is invalidated and off is recorded as
// the position the next refill reads from.
func (r *Reader) Seek(off int64) {
	if off >= r.startOffset {
		pos := r.startOffset

		for i, e := range r.entries {
			if pos == off {
				r.cur = i

				return
			}

			pos = r.startOffset + e.cumLen
		}

		if pos == off {
			r.cur = len(r.entries)

			return
		}
	}

	r.entries = r.entries[:0]
	r.cur = 0
	r.startOffset = off
	r.pendingSeek = off
	r.eof = false
}

// Get decodes and returns the next value in the stream.
func (r *Reader) Get() (uint64, error) {
	if r.cur >= len(r.entries) {
		if err := r.refill(); err != nil {
			return 0, err
		}
	}

	if r.cur >= len(r.entries) {
		return 0, errs.IO(r.file, r.Offset(), io.EOF)
	}

	v := r.entries[r.cur].value
	r.cur++

	return v, nil
}

// refill reads and decodes up to k more values starting at the reader's
// current logical offset, clipping the raw read to the end of the current
// block_size-aligned block so random seeks do not pull in an unrelated
// block. If that clipped window isn't enough to decode even one full
// value (a value straddles the block boundary), the window is grown one
// block at a time until at least one value decodes or EOF is reached.
func (r *Reader) refill() error {
	if r.eof {
		return nil
	}

	start := r.pendingSeekOrOffset()
	r.startOffset = start
	r.entries = r.entries[:0]
	r.cur = 0

	blockEnd := ((start / r.blockSize) + 1) * r.blockSize

	for {
		want := blockEnd - start
		if want <= 0 {
			want = r.blockSize
			blockEnd = start + r.blockSize
		}

		r.buf.Reset()
		r.buf.Grow(int(want))
		r.buf.SetLength(int(want))

		n, err := r.f.ReadAt(r.buf.Bytes(), start)
		if err != nil && err != io.EOF && n == 0 {
			return errs.IO(r.file, start, err)
		}

		raw := r.buf.Bytes()[:n]
		hitEOF := err == io.EOF || n < int(want)

		r.decode(raw)

		if len(r.entries) > 0 || hitEOF {
			if len(r.entries) == 0 && hitEOF {
				r.eof = true
			}

			return nil
		}

		// No complete value fit in this window; widen by one block and retry.
		blockEnd += r.blockSize
	}
}

func (r *Reader) pendingSeekOrOffset() int64 {
	if len(r.entries) == 0 && r.cur == 0 {
		return r.pendingSeek
	}

	return r.Offset()
}

// decode walks raw, appending every complete value it can parse to
// r.entries. Any trailing incomplete bytes (continuation bit still set at
// end of raw) are left unconsumed; they are re-read on the next refill.
func (r *Reader) decode(raw []byte) {
	pos := 0

	for len(r.entries) < r.k && pos < len(raw) {
		v, n := varint.Uvarint(raw[pos:])
		if n <= 0 {
			return
		}

		pos += n
		r.entries = append(r.entries, entry{value: v, cumLen: int64(pos)})
	}
}
