package varint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-fsfs/fsfs/varint"
)

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, ^uint64(0)}

	for _, v := range values {
		buf := make([]byte, varint.MaxLen)
		n := varint.PutUvarint(buf, v)

		got, m := varint.Uvarint(buf[:n])
		require.Equal(t, n, m)
		require.Equal(t, v, got)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -127, 300, -300, 1 << 40, -(1 << 40)}

	for _, v := range values {
		buf := make([]byte, varint.MaxLen)
		n := varint.PutVarint(buf, v)

		got, m := varint.Varint(buf[:n])
		require.Equal(t, n, m)
		require.Equal(t, v, got)
	}
}

func TestZigzag(t *testing.T) {
	require.Equal(t, uint64(0), varint.EncodeZigzag(0))
	require.Equal(t, uint64(1), varint.EncodeZigzag(-1))
	require.Equal(t, uint64(2), varint.EncodeZigzag(1))
	require.Equal(t, uint64(3), varint.EncodeZigzag(-2))

	for _, v := range []int64{0, 1, -1, 2, -2, 1 << 30, -(1 << 30)} {
		require.Equal(t, v, varint.DecodeZigzag(varint.EncodeZigzag(v)))
	}
}

func TestReadUvarintTruncated(t *testing.T) {
	_, _, err := varint.ReadUvarint([]byte{0x80, 0x80}, "x.idx", 5)
	require.Error(t, err)
}

func TestAppendUvarint(t *testing.T) {
	var buf []byte
	buf = varint.AppendUvarint(buf, 300)
	buf = varint.AppendVarint(buf, -300)

	v, n := varint.Uvarint(buf)
	require.Equal(t, uint64(300), v)

	sv, _ := varint.Varint(buf[n:])
	require.Equal(t, int64(-300), sv)
}
