package pagecache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-fsfs/fsfs/pagecache"
)

func TestLRUGetSetHasKey(t *testing.T) {
	c, err := pagecache.New(2)
	require.NoError(t, err)

	key := pagecache.Key{File: "rev.l2p", Kind: pagecache.KindL2PHeader, Rev: 5}

	_, ok := c.Get(key)
	require.False(t, ok)
	require.False(t, c.HasKey(key))

	c.Set(key, []byte("header-bytes"))
	require.True(t, c.HasKey(key))

	got, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, "header-bytes", string(got))

	got[0] = 'X'

	got2, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, "header-bytes", string(got2), "Get must return a fresh copy each time")
}

func TestLRUGetPartial(t *testing.T) {
	c, err := pagecache.New(2)
	require.NoError(t, err)

	key := pagecache.Key{File: "rev.p2l", Kind: pagecache.KindP2LPage, PageNo: 3}
	c.Set(key, []byte{1, 2, 3, 4})

	v, ok, err := c.GetPartial(key, func(raw []byte, baton any) (any, error) {
		idx := baton.(int)

		return raw[idx], nil
	}, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, byte(3), v)
}

func TestLRUEviction(t *testing.T) {
	c, err := pagecache.New(1)
	require.NoError(t, err)

	k1 := pagecache.Key{File: "a", Kind: pagecache.KindL2PPage, PageNo: 1}
	k2 := pagecache.Key{File: "a", Kind: pagecache.KindL2PPage, PageNo: 2}

	c.Set(k1, []byte("one"))
	c.Set(k2, []byte("two"))

	require.False(t, c.HasKey(k1))
	require.True(t, c.HasKey(k2))
}
