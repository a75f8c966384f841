package stream_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-fsfs/fsfs/stream"
	"github.com/go-fsfs/fsfs/varint"
)

// writeUvarintStream encodes values back to back into a temp file and
// returns its path along with the byte offset where each value begins.
func writeUvarintStream(t *testing.T, values []uint64) (string, []int64) {
	t.Helper()

	var buf []byte

	offsets := make([]int64, len(values))

	for i, v := range values {
		offsets[i] = int64(len(buf))
		buf = varint.AppendUvarint(buf, v)
	}

	path := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	return path, offsets
}

func openReader(t *testing.T, path string, blockSize int64) *stream.Reader {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return stream.NewReader(f, path, blockSize)
}

func TestReaderSequentialGet(t *testing.T) {
	values := []uint64{1, 127, 128, 16384, 0, 9999999}
	path, _ := writeUvarintStream(t, values)

	r := openReader(t, path, 64*1024)

	for _, want := range values {
		got, err := r.Get()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := r.Get()
	require.Error(t, err)
}

// TestReaderSeekIdempotence covers spec.md §8's "stream idempotence:
// seek(off); get() ... returns equal values" property: seeking back to the
// same value boundary and reading again must return the same value, both
// when that boundary is still inside the live buffer and when the seek
// invalidates it.
func TestReaderSeekIdempotence(t *testing.T) {
	values := []uint64{10, 20, 30, 40, 50}
	path, offsets := writeUvarintStream(t, values)

	// blockSize=2 limits each refill to two one-byte values, so offsets[3]
	// lies outside the buffer filled by the first two Get calls.
	r := openReader(t, path, 2)

	first, err := r.Get()
	require.NoError(t, err)
	require.Equal(t, values[0], first)

	second, err := r.Get()
	require.NoError(t, err)
	require.Equal(t, values[1], second)

	// Seeking back to an offset already covered by the live buffer must not
	// require any I/O to reproduce the same value.
	r.Seek(offsets[1])

	again, err := r.Get()
	require.NoError(t, err)
	require.Equal(t, values[1], again)

	// Seeking to an offset outside the buffer invalidates it and forces a
	// refill, but must still reproduce the same value deterministically.
	r.Seek(offsets[3])

	far, err := r.Get()
	require.NoError(t, err)
	require.Equal(t, values[3], far)

	r.Seek(offsets[3])

	farAgain, err := r.Get()
	require.NoError(t, err)
	require.Equal(t, far, farAgain)
}

// TestReaderBlockAlignedRefill forces a small blockSize so the full value
// sequence spans many refills, confirming each block boundary is crossed
// without losing or duplicating a value.
func TestReaderBlockAlignedRefill(t *testing.T) {
	values := make([]uint64, 200)
	for i := range values {
		values[i] = uint64(i * 3) //nolint:gosec
	}

	path, _ := writeUvarintStream(t, values)

	r := openReader(t, path, 8) // tiny block size: many refills, many boundaries

	for i, want := range values {
		got, err := r.Get()
		require.NoErrorf(t, err, "value %d", i)
		require.Equalf(t, want, got, "value %d", i)
	}
}

// TestReaderTruncatedValueAtBlockBoundary builds a stream where a
// multi-byte value straddles the configured block boundary, so the first
// read window ends mid-value; refill must widen the window and re-read
// rather than returning a truncated/garbage value.
func TestReaderTruncatedValueAtBlockBoundary(t *testing.T) {
	// blockSize=2 means the first window only covers 2 raw bytes. The
	// first value is 1 byte (fits), leaving the second value (a multi-byte
	// varint) split across the first and second blocks.
	values := []uint64{1, 1 << 20}
	path, _ := writeUvarintStream(t, values)

	r := openReader(t, path, 2)

	got, err := r.Get()
	require.NoError(t, err)
	require.Equal(t, values[0], got)

	got, err = r.Get()
	require.NoError(t, err)
	require.Equal(t, values[1], got)
}
