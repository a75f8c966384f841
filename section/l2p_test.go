package section_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-fsfs/fsfs/section"
	"github.com/go-fsfs/fsfs/varint"
)

func TestL2PPageRoundTrip(t *testing.T) {
	offsetsPlusOne := []int64{10, 20, 0, 400}

	raw := section.EncodeL2PPage(offsetsPlusOne)

	got, err := section.DecodeL2PPage(raw, int64(len(offsetsPlusOne)), "test", 0)
	require.NoError(t, err)
	require.Equal(t, []int64{9, 19, -1, 399}, got)
}

// writeL2PIndexFile assembles a minimal, valid L2P index file for testing
// header reads and page-info lookups, following spec.md §6's layout.
func writeL2PIndexFile(t *testing.T, firstRevision int64, pageSize int64, pagesPerRev []int64, pages []section.L2PPageEntry, bodies [][]int64) string {
	t.Helper()

	var buf []byte

	buf = varint.AppendUvarint(buf, uint64(firstRevision)) //nolint:gosec
	buf = varint.AppendUvarint(buf, uint64(pageSize))
	buf = varint.AppendUvarint(buf, uint64(len(pagesPerRev)))

	totalPages := 0
	for _, p := range pagesPerRev {
		totalPages += int(p)
	}

	buf = varint.AppendUvarint(buf, uint64(totalPages))

	for _, p := range pagesPerRev {
		buf = varint.AppendUvarint(buf, uint64(p))
	}

	for _, p := range pages {
		buf = varint.AppendUvarint(buf, uint64(p.ByteSize))
		buf = varint.AppendUvarint(buf, uint64(p.EntryCount))
	}

	for _, body := range bodies {
		buf = append(buf, section.EncodeL2PPage(body)...)
	}

	f, err := os.CreateTemp(t.TempDir(), "l2p-*.idx")
	require.NoError(t, err)
	_, err = f.Write(buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	return f.Name()
}

func TestReadRawL2PHeaderAndLookup(t *testing.T) {
	// revision 0: 5 items with P=4 -> two pages (4, 1) per spec.md §8 scenario 3
	body0 := []int64{101, 201, 301, 401}
	body1 := []int64{501}

	page0Bytes := section.EncodeL2PPage(body0)
	page1Bytes := section.EncodeL2PPage(body1)

	pages := []section.L2PPageEntry{
		{ByteSize: int64(len(page0Bytes)), EntryCount: 4},
		{ByteSize: int64(len(page1Bytes)), EntryCount: 1},
	}

	path := writeL2PIndexFile(t, 0, 4, []int64{2}, pages, [][]int64{body0, body1})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	raw, bodyOffset, err := section.ReadRawL2PHeader(f, path)
	require.NoError(t, err)
	require.Positive(t, bodyOffset)

	h, err := section.DecodeL2PHeader(raw, path)
	require.NoError(t, err)
	require.Equal(t, int64(0), h.FirstRevision)
	require.Equal(t, int64(4), h.PageSize)
	require.Equal(t, int64(1), h.RevisionCount)
	require.Equal(t, int64(2), h.TotalPageCount)
	require.Equal(t, []int64{0, 2}, h.PageTableIndex())

	info, err := section.LookupL2PPageInfo(raw, path, 0, 4) // item 4 -> page 1, offset 0
	require.NoError(t, err)
	require.Equal(t, int64(1), info.PageNo)
	require.Equal(t, int64(0), info.PageOffset)
	require.False(t, info.Overflow)
	require.Equal(t, int64(1), info.Entry.EntryCount)

	_, err = section.LookupL2PPageInfo(raw, path, 1, 0)
	require.Error(t, err)

	// item 8 -> page 2, past the revision's two pages. (Item 5 would land on
	// page 1 and is only caught when the page's entries are read.)
	infoOverflow, err := section.LookupL2PPageInfo(raw, path, 0, 8)
	require.NoError(t, err)
	require.True(t, infoOverflow.Overflow)

	ids, err := section.L2PMaxIDs(raw, path, 0, 1)
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, ids)
}
