package bitio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fqcompress/fqc/internal/bitio"
)

func TestZigZagRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 2, -2, 1 << 40, -(1 << 40)}
	for _, v := range values {
		require.Equal(t, v, bitio.ZigZagDecode(bitio.ZigZagEncode(v)))
	}
}

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 34}
	for _, v := range values {
		buf := bitio.AppendUvarint(nil, v)
		require.Equal(t, bitio.VarintLen(v), len(buf))

		got, n, err := bitio.ReadUvarint(buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
}

func TestReadUvarintTruncated(t *testing.T) {
	_, _, err := bitio.ReadUvarint([]byte{0x80, 0x80})
	require.Error(t, err)
}

func TestDeltaVarintRoundTrip(t *testing.T) {
	values := []uint64{1000, 1001, 1005, 1005, 900, 0, 5000000}
	enc := bitio.EncodeDeltaVarint(values)

	got, err := bitio.DecodeDeltaVarint(enc, len(values))
	require.NoError(t, err)
	require.Equal(t, values, got)
}

func TestDeltaVarintEmpty(t *testing.T) {
	enc := bitio.EncodeDeltaVarint(nil)
	require.Nil(t, enc)

	got, err := bitio.DecodeDeltaVarint(nil, 0)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDeltaVarintDetectsTruncation(t *testing.T) {
	values := []uint64{10, 20, 30, 40}
	enc := bitio.EncodeDeltaVarint(values)

	_, err := bitio.DecodeDeltaVarint(enc[:len(enc)-1], len(values))
	require.Error(t, err)
}

func TestDeltaVarintDetectsTrailingBytes(t *testing.T) {
	values := []uint64{10, 20, 30}
	enc := bitio.EncodeDeltaVarint(values)
	enc = append(enc, 0x01)

	_, err := bitio.DecodeDeltaVarint(enc, len(values))
	require.Error(t, err)
}
