// Package errs defines the sentinel error values returned by the fsfs
// item-index engine, plus the IO wrapping type that carries a file name and
// byte offset alongside an underlying error.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrItemIndexRevision is returned when a lookup targets a revision that
	// is not covered by the index being queried.
	ErrItemIndexRevision = errors.New("revision not covered by index")

	// ErrItemIndexOverflow is returned when an item-index (L2P) or offset
	// (P2L) is past the content the target revision actually has.
	ErrItemIndexOverflow = errors.New("item index past revision content")

	// ErrItemIndexCorruption is returned for varint overflow, truncated
	// streams, and any other structurally invalid index bytes.
	ErrItemIndexCorruption = errors.New("corrupt index")

	// ErrNumberTooLarge is a specific corruption: a decoded varint shift
	// exceeded 64 bits.
	ErrNumberTooLarge = fmt.Errorf("%w: number too large", ErrItemIndexCorruption)

	// ErrUnexpectedEOF is a specific corruption: the stream ended mid-value
	// or mid-record.
	ErrUnexpectedEOF = fmt.Errorf("%w: unexpected EOF", ErrItemIndexCorruption)

	// ErrNotStartOffset is returned by p2l_entry_lookup when the requested
	// offset does not begin an entry.
	ErrNotStartOffset = errors.New("offset is not the start of an entry")
)

// IOError wraps an underlying I/O failure with the file name and byte offset
// active when the failure occurred, per spec.md §7 ("IO — wrapping the
// underlying file-system errors with (file name, byte offset)").
type IOError struct {
	File   string
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: at offset %d: %v", e.File, e.Offset, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IO constructs an IOError, the canonical way every fallible file operation
// in this module should report failure.
func IO(file string, offset int64, err error) error {
	if err == nil {
		return nil
	}

	return &IOError{File: file, Offset: offset, Err: err}
}

// Revision wraps ErrItemIndexRevision with the offending revision.
func Revision(revision int64) error {
	return fmt.Errorf("%w: revision %d", ErrItemIndexRevision, revision)
}

// Overflow wraps ErrItemIndexOverflow with the offending revision and
// item-index (or offset, for P2L callers).
func Overflow(revision int64, itemIndex uint64) error {
	return fmt.Errorf("%w: revision %d, item-index %d", ErrItemIndexOverflow, revision, itemIndex)
}

// Corrupt wraps ErrItemIndexCorruption with the file name and offset where
// the decode failed.
func Corrupt(file string, offset int64, reason string) error {
	return fmt.Errorf("%w: %s: at offset %d: %s", ErrItemIndexCorruption, file, offset, reason)
}
