// Package fsfs implements the FSFS logical-to-physical (L2P) and
// physical-to-logical (P2L) item-index engine: the on-disk indexes that let
// a revision's items be addressed by a stable (revision, item-index)
// identifier while their physical location in a per-shard pack file is
// permitted to move.
//
// The engine is organized bottom-up:
//
//   - varint: packed-integer codec (the on-disk number format).
//   - stream: a prefetching reader over that codec, for random-access
//     "seek + get next integer" against an open file.
//   - section: the binary layouts of index headers, page tables, and page
//     entries, plus partial-getters that read one field of a cached header
//     without decoding the rest.
//   - proto: the fixed-record append logs written during a transaction.
//   - l2pidx / p2lidx: the builders that consume a proto log and produce
//     the final index file, and the readers that answer lookups against it.
//   - pagecache: the generic key/blob cache contract the readers require.
//
// No package reads process-wide state (Design Notes §9, "avoid
// module-level singletons"): the readers and builders take the individual
// tunables they need (P, Q, prefetch window, spill directory) as explicit
// constructor arguments, which a caller can take from a Config.
package fsfs

import (
	"fmt"

	"github.com/go-fsfs/fsfs/internal/options"
)

// Default configuration values, chosen to match spec.md's worked examples
// and the scale FSFS itself historically used.
const (
	DefaultItemsPerPage    = 8192            // P, §3 "e.g. 8192"
	DefaultClusterSize     = 64 * 1024        // Q, §3 "e.g. 64 KiB"
	DefaultShardSize       = 1000             // S, a typical FSFS shard count
	DefaultStreamBlockSize = 64 * 1024        // block_size, §4.1 prefetch alignment
	DefaultCacheCapacity   = 1000             // entries per cache, see pagecache
	DefaultPrefetchWindow  = 64 * 1024        // §4.6/§4.7 prefetch window half-width
)

// Config carries the process-wide tunables spec.md §6 says are "supplied by
// the surrounding FS config loader": P, Q, S, and the stream block size.
// Readers and builders do not take a *Config; they take its individual
// values as constructor arguments. There is no package-level default
// instance.
type Config struct {
	// ItemsPerPage is P: the maximum number of L2P entries per page.
	ItemsPerPage int

	// ClusterSize is Q: the byte size of one P2L cluster/page.
	ClusterSize int64

	// ShardSize is S: the number of revisions combined into one pack file
	// once a shard is packed.
	ShardSize int64

	// StreamBlockSize is the file-system block size used to align
	// prefetch-window and stream-refill reads.
	StreamBlockSize int64

	// CacheCapacity is a per-cache entry count for pagecache.New. No
	// constructor in this module reads it; readers receive caches the
	// caller has already built.
	CacheCapacity int
}

// Option configures a Config built by NewConfig.
type Option = options.Option[*Config]

// NewConfig builds a Config from defaults, applying opts in order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		ItemsPerPage:    DefaultItemsPerPage,
		ClusterSize:     DefaultClusterSize,
		ShardSize:       DefaultShardSize,
		StreamBlockSize: DefaultStreamBlockSize,
		CacheCapacity:   DefaultCacheCapacity,
	}

	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if cfg.ItemsPerPage <= 0 {
		return nil, fmt.Errorf("fsfs: ItemsPerPage must be positive, got %d", cfg.ItemsPerPage)
	}
	if cfg.ClusterSize <= 0 {
		return nil, fmt.Errorf("fsfs: ClusterSize must be positive, got %d", cfg.ClusterSize)
	}
	if cfg.ShardSize <= 0 {
		return nil, fmt.Errorf("fsfs: ShardSize must be positive, got %d", cfg.ShardSize)
	}

	return cfg, nil
}

// WithItemsPerPage overrides P.
func WithItemsPerPage(p int) Option {
	return options.NoError(func(c *Config) { c.ItemsPerPage = p })
}

// WithClusterSize overrides Q.
func WithClusterSize(q int64) Option {
	return options.NoError(func(c *Config) { c.ClusterSize = q })
}

// WithShardSize overrides S.
func WithShardSize(s int64) Option {
	return options.NoError(func(c *Config) { c.ShardSize = s })
}

// WithStreamBlockSize overrides the prefetch/refill block-alignment size.
func WithStreamBlockSize(n int64) Option {
	return options.NoError(func(c *Config) { c.StreamBlockSize = n })
}

// WithCacheCapacity overrides the default per-cache entry capacity.
func WithCacheCapacity(n int) Option {
	return options.NoError(func(c *Config) { c.CacheCapacity = n })
}

// BaseRevision returns the base revision for r under this Config's shard
// size: r itself if r's shard isn't packed yet is a decision the caller
// (the transaction/pack layer) makes — BaseRevision only computes the
// arithmetic floor spec.md §3 defines for a *packed* revision. Callers
// that know a revision is unpacked should use r directly as its own base.
func (c *Config) BaseRevision(r int64) int64 {
	return r - (r % c.ShardSize)
}

// ShardIndex returns which shard r belongs to (r / S).
func (c *Config) ShardIndex(r int64) int64 {
	return r / c.ShardSize
}
