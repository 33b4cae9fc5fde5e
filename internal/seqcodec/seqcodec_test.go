package seqcodec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fqcompress/fqc/compress"
	"github.com/fqcompress/fqc/format"
)

func randomBases(n int, r *rand.Rand) []byte {
	const alphabet = "ACGT"
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[r.Intn(4)]
	}

	return out
}

func mutate(seq []byte, numSubs int, r *rand.Rand) []byte {
	out := append([]byte(nil), seq...)
	const alphabet = "ACGT"
	for i := 0; i < numSubs && len(out) > 0; i++ {
		pos := r.Intn(len(out))
		out[pos] = alphabet[r.Intn(4)]
	}

	return out
}

func readLensOf(seqs [][]byte) []int {
	lens := make([]int, len(seqs))
	for i, s := range seqs {
		lens[i] = len(s)
	}

	return lens
}

func TestABCRoundTripSimilarReads(t *testing.T) {
	r := rand.New(rand.NewSource(42)) //nolint:gosec

	base := randomBases(100, r)
	var seqs [][]byte
	for i := 0; i < 30; i++ {
		seqs = append(seqs, mutate(base, 2, r))
	}

	tag, payload, err := Encode(seqs, format.LengthShort, Config{})
	require.NoError(t, err)
	require.Equal(t, format.FamilyABC, tag.Family())

	got, err := Decode(tag, payload, readLensOf(seqs))
	require.NoError(t, err)
	require.Equal(t, seqs, got)
}

func TestABCRoundTripUnrelatedReads(t *testing.T) {
	r := rand.New(rand.NewSource(7)) //nolint:gosec

	var seqs [][]byte
	for i := 0; i < 20; i++ {
		seqs = append(seqs, randomBases(80, r))
	}

	tag, payload, err := Encode(seqs, format.LengthShort, Config{})
	require.NoError(t, err)

	got, err := Decode(tag, payload, readLensOf(seqs))
	require.NoError(t, err)
	require.Equal(t, seqs, got)
}

func TestABCRoundTripVariedLengths(t *testing.T) {
	r := rand.New(rand.NewSource(99)) //nolint:gosec

	seqs := [][]byte{
		randomBases(50, r),
		randomBases(60, r),
		randomBases(50, r),
		randomBases(40, r),
	}

	tag, payload, err := Encode(seqs, format.LengthShort, Config{})
	require.NoError(t, err)

	got, err := Decode(tag, payload, readLensOf(seqs))
	require.NoError(t, err)
	require.Equal(t, seqs, got)
}

func TestZstdPlainRoundTripMedium(t *testing.T) {
	r := rand.New(rand.NewSource(11)) //nolint:gosec

	var seqs [][]byte
	for i := 0; i < 10; i++ {
		seqs = append(seqs, randomBases(2000+i, r))
	}

	tag, payload, err := Encode(seqs, format.LengthMedium, Config{})
	require.NoError(t, err)
	require.Equal(t, format.FamilyZstdPlain, tag.Family())

	got, err := Decode(tag, payload, readLensOf(seqs))
	require.NoError(t, err)
	require.Equal(t, seqs, got)
}

func TestZstdPlainRoundTripLongWithoutOverlap(t *testing.T) {
	r := rand.New(rand.NewSource(13)) //nolint:gosec

	seqs := [][]byte{randomBases(20000, r), randomBases(15000, r)}

	tag, payload, err := Encode(seqs, format.LengthLong, Config{})
	require.NoError(t, err)
	require.Equal(t, format.FamilyZstdPlain, tag.Family())

	got, err := Decode(tag, payload, readLensOf(seqs))
	require.NoError(t, err)
	require.Equal(t, seqs, got)
}

func TestZstdPlainFastUsesS2(t *testing.T) {
	r := rand.New(rand.NewSource(12)) //nolint:gosec

	var seqs [][]byte
	for i := 0; i < 10; i++ {
		seqs = append(seqs, randomBases(2000+i, r))
	}

	tag, payload, err := Encode(seqs, format.LengthMedium, Config{Fast: true})
	require.NoError(t, err)
	require.Equal(t, format.FamilyZstdPlain, tag.Family())
	require.Equal(t, uint8(compress.AlgorithmS2), uint8(tag.Version()))

	got, err := Decode(tag, payload, readLensOf(seqs))
	require.NoError(t, err)
	require.Equal(t, seqs, got)
}

func TestOverlapRoundTripWhenEnabled(t *testing.T) {
	r := rand.New(rand.NewSource(21)) //nolint:gosec

	ref := randomBases(200, r)
	seqs := [][]byte{
		append([]byte(nil), ref[:120]...),
		append([]byte(nil), ref[100:200]...),
	}

	tag, payload, err := Encode(seqs, format.LengthLong, Config{EnableOverlapCodec: true})
	require.NoError(t, err)
	require.Equal(t, format.FamilyOverlap, tag.Family())

	got, err := Decode(tag, payload, readLensOf(seqs))
	require.NoError(t, err)
	require.Equal(t, seqs, got)
}

func TestEmptyBatchRoundTrips(t *testing.T) {
	for _, class := range []format.LengthClass{format.LengthShort, format.LengthMedium, format.LengthLong} {
		tag, payload, err := Encode(nil, class, Config{})
		require.NoError(t, err)

		got, err := Decode(tag, payload, nil)
		require.NoError(t, err)
		require.Empty(t, got)
	}
}

func TestDecodeUnknownFamilyIsFormatError(t *testing.T) {
	_, err := Decode(format.FamilyReserved, []byte{0}, []int{1})
	require.Error(t, err)
}
