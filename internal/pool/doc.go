// Package pool provides the scratch-arena buffers the item-index engine
// threads through every operation (Design Notes §9, "arena-scoped
// allocation"): pooled, growable byte buffers backing the stream package's
// prefetch refills and the spill package's in-memory write buffer. None of
// these pools hold cached values directly — a value handed to
// pagecache.Cache is always copied out of pool-owned memory first, so a
// pooled buffer can be recycled the moment its owning operation returns.
package pool
