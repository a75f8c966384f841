package p2lidx_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-fsfs/fsfs/p2lidx"
	"github.com/go-fsfs/fsfs/pagecache"
	"github.com/go-fsfs/fsfs/proto"
	"github.com/go-fsfs/fsfs/section"
)

func writeP2LProtoLog(t *testing.T, entries []section.P2LEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "proto.p2l")

	f, err := os.Create(path)
	require.NoError(t, err)

	w := proto.NewP2LWriter(f, path)

	for _, e := range entries {
		require.NoError(t, w.Append(e))
	}

	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())

	return path
}

func TestBuildAndIndexLookup(t *testing.T) {
	protoPath := writeP2LProtoLog(t, []section.P2LEntry{
		{Offset: 0, Size: 20, ItemNumber: 1, Type: 1, Revision: 0, Checksum: 0xAA},
		{Offset: 20, Size: 30, ItemNumber: 2, Type: 1, Revision: 0, Checksum: 0xBB},
	})

	f, err := os.Open(protoPath)
	require.NoError(t, err)
	defer f.Close()

	r := proto.NewP2LReader(f, protoPath)

	b := p2lidx.NewBuilder(64, t.TempDir())
	outPath := filepath.Join(t.TempDir(), "0.p2l")
	require.NoError(t, b.Build(r, outPath, 0, 0))

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o444), info.Mode().Perm())

	idxFile, err := os.Open(outPath)
	require.NoError(t, err)
	defer idxFile.Close()

	headerCache, err := pagecache.New(8)
	require.NoError(t, err)
	pageCache, err := pagecache.New(8)
	require.NoError(t, err)

	reader := p2lidx.Open(idxFile, outPath, headerCache, pageCache)

	entries, err := reader.IndexLookup(0, 25)
	require.NoError(t, err)
	require.Len(t, entries, 3) // two real entries plus the synthetic padding entry
	require.Equal(t, uint64(1), entries[0].ItemNumber)
	require.Equal(t, uint64(2), entries[1].ItemNumber)
	require.Equal(t, section.ItemTypePadding, entries[2].Type)

	e, err := reader.EntryLookup(0, 20)
	require.NoError(t, err)
	require.Equal(t, uint64(2), e.ItemNumber)

	_, err = reader.EntryLookup(0, 21)
	require.Error(t, err)

	maxOff, err := reader.MaxOffset()
	require.NoError(t, err)
	require.Equal(t, int64(64), maxOff)
}

// TestBuildMultiBoundarySpan covers an item whose range crosses more than
// one cluster boundary (spec.md §4.5 step 1, §8 "An item whose range spans
// N boundaries closes N pages"): with Q=64, an entry {Offset:0, Size:200}
// touches clusters 0-3, so the index must come out with 4 pages (one per
// cluster) and every pageNo = offset/Q lookup must land on the right page
// instead of silently collapsing the intermediate clusters.
func TestBuildMultiBoundarySpan(t *testing.T) {
	protoPath := writeP2LProtoLog(t, []section.P2LEntry{
		{Offset: 0, Size: 200, ItemNumber: 1, Type: 1, Revision: 0, Checksum: 0xCC},
	})

	f, err := os.Open(protoPath)
	require.NoError(t, err)
	defer f.Close()

	r := proto.NewP2LReader(f, protoPath)

	b := p2lidx.NewBuilder(64, t.TempDir())
	outPath := filepath.Join(t.TempDir(), "0.p2l")
	require.NoError(t, b.Build(r, outPath, 0, 0))

	idxFile, err := os.Open(outPath)
	require.NoError(t, err)
	defer idxFile.Close()

	reader := p2lidx.Open(idxFile, outPath, nil, nil)

	maxOff, err := reader.MaxOffset()
	require.NoError(t, err)
	require.Equal(t, int64(256), maxOff) // 200 rounded up to the next 64-byte cluster

	// Page 0 holds the spanning entry itself.
	entries, err := reader.IndexLookup(0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint64(1), entries[0].ItemNumber)
	require.Equal(t, int64(200), entries[0].Size)

	// Pages 1 and 2 are empty placeholders for the clusters the entry only
	// passes through; a lookup there must not mis-resolve into page 0's
	// byte range or overflow.
	entries, err = reader.IndexLookup(0, 150)
	require.NoError(t, err)
	require.Empty(t, entries)

	entries, err = reader.IndexLookup(0, 70)
	require.NoError(t, err)
	require.Empty(t, entries)

	// Page 3 holds the synthetic padding entry rounding the file out to the
	// next cluster boundary.
	entries, err = reader.IndexLookup(0, 200)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, section.ItemTypePadding, entries[0].Type)
}

func TestBuildRewritesInvalidRevision(t *testing.T) {
	protoPath := writeP2LProtoLog(t, []section.P2LEntry{
		{Offset: 0, Size: 10, ItemNumber: 1, Type: 1, Revision: proto.InvalidRevision, Checksum: 1},
	})

	f, err := os.Open(protoPath)
	require.NoError(t, err)
	defer f.Close()

	r := proto.NewP2LReader(f, protoPath)

	b := p2lidx.NewBuilder(64, t.TempDir())
	outPath := filepath.Join(t.TempDir(), "0.p2l")
	require.NoError(t, b.Build(r, outPath, 7, 7))

	idxFile, err := os.Open(outPath)
	require.NoError(t, err)
	defer idxFile.Close()

	reader := p2lidx.Open(idxFile, outPath, nil, nil)

	entries, err := reader.IndexLookup(7, 0)
	require.NoError(t, err)
	require.Equal(t, int64(7), entries[0].Revision)
}
