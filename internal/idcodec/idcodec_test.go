package idcodec

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fqcompress/fqc/format"
)

func illuminaIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("@SIM:1:FCX:1:%d:%d:%d 1:N:0:1", i+1000, i*3+7, i*11+2)
	}

	return ids
}

func TestEncodeDecodeTokenizeRoundTrip(t *testing.T) {
	ids := illuminaIDs(50)

	tag, payload, err := Encode(ids, Config{})
	require.NoError(t, err)
	require.Equal(t, format.FamilyDeltaZstd, tag.Family())

	got, err := Decode(tag, payload, len(ids))
	require.NoError(t, err)
	require.Equal(t, ids, got)
}

func TestEncodeDecodeTokenizeWithExceptions(t *testing.T) {
	ids := illuminaIDs(40)
	ids[5] = "@totally-different-shape"
	ids[30] = "@also/not;matching:at-all"

	tag, payload, err := Encode(ids, Config{})
	require.NoError(t, err)

	got, err := Decode(tag, payload, len(ids))
	require.NoError(t, err)
	require.Equal(t, ids, got)
}

func TestEncodeDecodeExactModeWhenNoPattern(t *testing.T) {
	ids := []string{"@read-one", "totally different #2", "!!!3"}

	tag, payload, err := Encode(ids, Config{})
	require.NoError(t, err)

	got, err := Decode(tag, payload, len(ids))
	require.NoError(t, err)
	require.Equal(t, ids, got)
}

func TestEncodeDecodeExactModeWhenNoIntColumn(t *testing.T) {
	ids := []string{"@read:alpha", "@read:beta", "@read:gamma"}

	tag, payload, err := Encode(ids, Config{})
	require.NoError(t, err)

	got, err := Decode(tag, payload, len(ids))
	require.NoError(t, err)
	require.Equal(t, ids, got)
}

func TestEncodeLZMAAlgorithm(t *testing.T) {
	ids := illuminaIDs(20)

	tag, payload, err := Encode(ids, Config{PreferLZMA: true})
	require.NoError(t, err)
	require.Equal(t, format.FamilyDeltaLZMA, tag.Family())

	got, err := Decode(tag, payload, len(ids))
	require.NoError(t, err)
	require.Equal(t, ids, got)
}

func TestDiscardSynthesizeUnpaired(t *testing.T) {
	tag, payload, err := Encode(nil, Config{Discard: true, DiscardPrefix: "READ"})
	require.NoError(t, err)
	require.Equal(t, format.FamilyRaw, tag.Family())

	got, err := Synthesize(payload, 3, 100)
	require.NoError(t, err)
	require.Equal(t, []string{"@READ100", "@READ101", "@READ102"}, got)
}

func TestDiscardSynthesizePaired(t *testing.T) {
	_, payload, err := Encode(nil, Config{Discard: true, DiscardPrefix: "PE", DiscardPaired: true})
	require.NoError(t, err)

	got, err := Synthesize(payload, 4, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"@PE0/1", "@PE0/2", "@PE1/1", "@PE1/2"}, got)
}

func TestEncodeEmptyBatch(t *testing.T) {
	tag, payload, err := Encode(nil, Config{})
	require.NoError(t, err)

	got, err := Decode(tag, payload, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	ids := illuminaIDs(10)
	_, payload, err := Encode(ids, Config{})
	require.NoError(t, err)

	_, err = Decode(format.FamilyDeltaZstd, payload[:len(payload)-3], len(ids))
	require.Error(t, err)
}
