// Package pagecache defines the generic key/blob cache contract the L2P and
// P2L readers use to avoid re-reading and re-decoding header and page
// sections on every lookup (spec.md §5 "In-memory cache"). The interface
// shape mirrors compress.Codec's interface-plus-factory pattern: a small
// contract callers program against, plus a constructor for the default
// implementation.
package pagecache

import "github.com/go-fsfs/fsfs/varint"

// Key identifies one cached entry. The four cache kinds spec.md §5 names
// (L2P header, L2P page, P2L header, P2L page) share this key shape: a
// file path plus a selector. The readers key pages by page number and
// headers by file path and Kind alone, leaving Rev zero.
type Key struct {
	File   string
	Kind   Kind
	Rev    int64
	PageNo int64
}

// String renders key as a space-separated string: the file path followed
// by its numeric fields in the "older, domain-specific" key encoding
// (varint.AppendKeyInt). The result is printable only while every numeric
// field is below 0x5E in magnitude; see varint/keyenc.go. Implementations that fold the key into a fixed-size
// bucket value (pagecache.LRU) hash this form rather than re-deriving
// their own.
func (k Key) String() string {
	buf := make([]byte, 0, len(k.File)+1+3*4)

	buf = append(buf, k.File...)
	buf = append(buf, ' ')
	buf = varint.AppendKeyInt(buf, int64(k.Kind))
	buf = append(buf, ' ')
	buf = varint.AppendKeyInt(buf, k.Rev)
	buf = append(buf, ' ')
	buf = varint.AppendKeyInt(buf, k.PageNo)

	return string(buf)
}

// Kind distinguishes the four cache kinds spec.md §5 describes. Keys for
// different kinds never collide even if their numeric fields happen to
// match, since the header cache's PageNo is always zero and unused.
type Kind uint8

const (
	KindL2PHeader Kind = iota
	KindL2PPage
	KindP2LHeader
	KindP2LPage
)

// Getter is a partial-getter callback passed to Cache.GetPartial: given the
// cached entry's raw bytes, it extracts and returns whatever field the
// caller actually needs (spec.md §5 "partial getters resolve one field
// without a full decode"). The baton is an arbitrary caller-supplied value
// threaded through unchanged, avoiding a closure allocation per call.
type Getter func(raw []byte, baton any) (any, error)

// Cache is the contract the L2P/P2L readers use for caching raw, encoded
// section bytes (header bytes or one page's body bytes). Implementations
// must return data copied out of any internal storage: a value returned
// from Get or passed into a Getter remains valid after the entry is
// evicted or overwritten.
type Cache interface {
	// Get returns the raw bytes stored under key, if present.
	Get(key Key) ([]byte, bool)

	// GetPartial looks up key and, if present, invokes get on the cached
	// bytes, returning get's result. It avoids exposing the cached slice
	// itself to the caller.
	GetPartial(key Key, get Getter, baton any) (any, bool, error)

	// HasKey reports whether key is present, without affecting recency.
	HasKey(key Key) bool

	// Set stores raw under key, copying raw into cache-owned storage.
	Set(key Key, raw []byte)
}
