package pagecache_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-fsfs/fsfs/pagecache"
	"github.com/go-fsfs/fsfs/varint"
)

// TestKeyStringRoundTrips confirms Key.String produces the space-separated,
// printable, combinable form spec.md §4.1 describes: every byte is
// printable, and each numeric field decodes back with varint.ReadKeyInt.
func TestKeyStringRoundTrips(t *testing.T) {
	key := pagecache.Key{File: "0.l2p", Kind: pagecache.KindL2PPage, Rev: 7, PageNo: 42}

	s := key.String()

	for _, b := range []byte(s) {
		require.GreaterOrEqual(t, b, byte(0x20))
		require.Less(t, b, byte(0x7f))
	}

	fields := strings.SplitN(s, " ", 2)
	require.Equal(t, "0.l2p", fields[0])

	rest := []byte(fields[1])

	kind, n := varint.ReadKeyInt(rest)
	require.Positive(t, n)
	require.Equal(t, int64(pagecache.KindL2PPage), kind)
	rest = rest[n+1:] // +1 for the separating space

	rev, n := varint.ReadKeyInt(rest)
	require.Positive(t, n)
	require.Equal(t, int64(7), rev)
	rest = rest[n+1:]

	pageNo, n := varint.ReadKeyInt(rest)
	require.Positive(t, n)
	require.Equal(t, int64(42), pageNo)
}

// TestKeyStringDistinguishesKinds confirms two keys differing only in Kind
// (header vs. page caches) never render to the same string, matching the
// "keys for different kinds never collide" comment on Kind.
func TestKeyStringDistinguishesKinds(t *testing.T) {
	a := pagecache.Key{File: "0.l2p", Kind: pagecache.KindL2PHeader}
	b := pagecache.Key{File: "0.l2p", Kind: pagecache.KindP2LHeader}

	require.NotEqual(t, a.String(), b.String())
}
