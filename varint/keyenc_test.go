package varint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-fsfs/fsfs/varint"
)

func TestKeyIntRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -127, 128, -128, 1 << 20, -(1 << 20), 1 << 40}

	for _, v := range values {
		var buf []byte
		buf = varint.AppendKeyInt(buf, v)

		got, n := varint.ReadKeyInt(buf)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestKeyIntConcatenation(t *testing.T) {
	var buf []byte
	buf = varint.AppendKeyInt(buf, 42)
	buf = append(buf, ' ')
	buf = varint.AppendKeyInt(buf, -7)

	v1, n1 := varint.ReadKeyInt(buf)
	require.Equal(t, int64(42), v1)
	require.Equal(t, byte(' '), buf[n1])

	v2, _ := varint.ReadKeyInt(buf[n1+1:])
	require.Equal(t, int64(-7), v2)
}
