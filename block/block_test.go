package block

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fqcompress/fqc/format"
	"github.com/fqcompress/fqc/internal/idcodec"
	"github.com/fqcompress/fqc/record"
)

func sampleReads(n, length int, varyLength bool, r *rand.Rand) []record.Record {
	const bases = "ACGT"
	const quals = "!\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHI"

	out := make([]record.Record, n)
	for i := 0; i < n; i++ {
		l := length
		if varyLength {
			l = length + i%5
		}

		seq := make([]byte, l)
		qual := make([]byte, l)
		for j := 0; j < l; j++ {
			seq[j] = bases[r.Intn(4)]
			qual[j] = quals[r.Intn(len(quals))]
		}

		out[i] = record.Record{
			ID:   fmt.Sprintf("@SIM:1:FCX:1:1:%d:%d", i, i*2),
			Seq:  seq,
			Qual: string(qual),
		}
	}

	return out
}

func TestCompressDecompressUniformLength(t *testing.T) {
	r := rand.New(rand.NewSource(1)) //nolint:gosec
	reads := sampleReads(40, 100, false, r)

	got, err := Compress(reads, 0, 0, format.LengthShort, Config{})
	require.NoError(t, err)
	require.Equal(t, uint32(100), got.Header.UniformReadLength)

	out, err := Decompress(got.Header, got.Payload, 0)
	require.NoError(t, err)
	require.Len(t, out, len(reads))
	for i := range reads {
		require.Equal(t, reads[i].ID, out[i].ID)
		require.Equal(t, reads[i].Seq, out[i].Seq)
		require.Equal(t, reads[i].Qual, out[i].Qual)
	}
}

func TestCompressDecompressVariableLength(t *testing.T) {
	r := rand.New(rand.NewSource(2)) //nolint:gosec
	reads := sampleReads(20, 2000, true, r)

	got, err := Compress(reads, 1, 0, format.LengthMedium, Config{})
	require.NoError(t, err)
	require.Equal(t, uint32(0), got.Header.UniformReadLength)

	out, err := Decompress(got.Header, got.Payload, 0)
	require.NoError(t, err)
	require.Len(t, out, len(reads))
	for i := range reads {
		require.Equal(t, reads[i].Seq, out[i].Seq)
		require.Equal(t, reads[i].Qual, out[i].Qual)
	}
}

func TestCompressDecompressFastAuxPath(t *testing.T) {
	r := rand.New(rand.NewSource(20)) //nolint:gosec
	reads := sampleReads(20, 2000, true, r)

	got, err := Compress(reads, 1, 0, format.LengthMedium, Config{Fast: true})
	require.NoError(t, err)
	require.Equal(t, format.FamilyExternal, got.Header.CodecAux.Family())

	out, err := Decompress(got.Header, got.Payload, 0)
	require.NoError(t, err)
	require.Len(t, out, len(reads))
	for i := range reads {
		require.Equal(t, reads[i].Seq, out[i].Seq)
		require.Equal(t, reads[i].Qual, out[i].Qual)
	}
}

func TestCompressDecompressDiscardIDs(t *testing.T) {
	r := rand.New(rand.NewSource(21)) //nolint:gosec
	reads := sampleReads(8, 40, false, r)

	const archiveIDStart = 100

	got, err := Compress(reads, 5, archiveIDStart, format.LengthShort, Config{ID: idcodec.Config{Discard: true, DiscardPrefix: "SIM:"}})
	require.NoError(t, err)
	require.Equal(t, format.FamilyRaw, got.Header.CodecIDs.Family())

	out, err := Decompress(got.Header, got.Payload, archiveIDStart)
	require.NoError(t, err)
	require.Len(t, out, len(reads))
	for i := range reads {
		require.Equal(t, fmt.Sprintf("@SIM:%d", archiveIDStart+i), out[i].ID)
		require.Equal(t, reads[i].Seq, out[i].Seq)
		require.Equal(t, reads[i].Qual, out[i].Qual)
	}
}

func TestDecompressDetectsChecksumTamper(t *testing.T) {
	r := rand.New(rand.NewSource(3)) //nolint:gosec
	reads := sampleReads(10, 50, false, r)

	got, err := Compress(reads, 2, 0, format.LengthShort, Config{})
	require.NoError(t, err)

	got.Header.BlockXXHash64 ^= 0xFFFFFFFFFFFFFFFF

	_, err = Decompress(got.Header, got.Payload, 0)
	require.Error(t, err)
}

func TestDecompressDetectsTruncatedPayload(t *testing.T) {
	r := rand.New(rand.NewSource(4)) //nolint:gosec
	reads := sampleReads(5, 30, false, r)

	got, err := Compress(reads, 3, 0, format.LengthShort, Config{})
	require.NoError(t, err)

	truncated := got.Payload[:len(got.Payload)/2]
	_, err = Decompress(got.Header, truncated, 0)
	require.Error(t, err)
}

func TestCompressEmptyBlock(t *testing.T) {
	got, err := Compress(nil, 0, 0, format.LengthShort, Config{})
	require.NoError(t, err)

	out, err := Decompress(got.Header, got.Payload, 0)
	require.NoError(t, err)
	require.Empty(t, out)
}
