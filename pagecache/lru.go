package pagecache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/go-fsfs/fsfs/internal/hash"
)

// LRU is the default Cache implementation: a fixed-capacity least-recently-
// used cache per spec.md §5 ("bounded size, LRU eviction"), backed by
// hashicorp/golang-lru. Each Key is first rendered to its printable,
// combinable string form (Key.String, spec.md §4.1) and then folded to a
// uint64 with the same xxHash-based hash.ID the rest of the package uses
// for string keys (internal/hash), so the LRU's own key type stays a small
// comparable value rather than repeating file-path strings in every bucket.
type LRU struct {
	mu    sync.Mutex
	cache *lru.Cache[uint64, []byte]
}

// New builds an LRU holding at most capacity entries.
func New(capacity int) (*LRU, error) {
	c, err := lru.New[uint64, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("pagecache: %w", err)
	}

	return &LRU{cache: c}, nil
}

func foldKey(k Key) uint64 {
	return hash.ID(k.String())
}

// Get returns a copy of the cached bytes for key, if present.
func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.cache.Get(foldKey(key))
	if !ok {
		return nil, false
	}

	out := make([]byte, len(raw))
	copy(out, raw)

	return out, true
}

// GetPartial looks up key and, if present, runs get against the cached
// bytes while still holding the lock, so a concurrent Set cannot mutate the
// slice get is reading.
func (c *LRU) GetPartial(key Key, get Getter, baton any) (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.cache.Get(foldKey(key))
	if !ok {
		return nil, false, nil
	}

	v, err := get(raw, baton)
	if err != nil {
		return nil, false, err
	}

	return v, true, nil
}

// HasKey reports whether key is present, without affecting LRU recency
// ordering (spec.md §5 "Peek" semantics).
func (c *LRU) HasKey(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.cache.Peek(foldKey(key))

	return ok
}

// Set stores a copy of raw under key.
func (c *LRU) Set(key Key, raw []byte) {
	cp := make([]byte, len(raw))
	copy(cp, raw)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(foldKey(key), cp)
}
