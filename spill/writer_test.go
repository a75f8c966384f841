package spill_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-fsfs/fsfs/spill"
)

func TestWriterInMemoryRoundTrip(t *testing.T) {
	w := spill.NewWriter(t.TempDir(), 1024)
	defer w.Close()

	n, err := w.Write([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.False(t, w.Spilled())

	r, err := w.Reader()
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))
}

func TestWriterSpillsPastThreshold(t *testing.T) {
	w := spill.NewWriter(t.TempDir(), 8)
	defer w.Close()

	_, err := w.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.True(t, w.Spilled())

	_, err = w.Write([]byte("ABCDE"))
	require.NoError(t, err)

	r, err := w.Reader()
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "0123456789ABCDE", string(got))
	require.EqualValues(t, 15, w.Size())
}
