package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteCommitReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.fqc")

	header := GlobalHeader{
		Flags:                 FlagsOf(false, true, false, false, QualityLossless, IDExact, PELayoutNone, 0),
		CompressionAlgoFamily: 0,
		ChecksumType:          ChecksumXXHash64,
		TotalReadCount:        3,
		OriginalFilename:      "sample.fastq",
		Timestamp:             1700000000,
	}

	w, err := Create(path, header)
	require.NoError(t, err)

	payloadA := []byte("block-a-payload")
	bhA := BlockHeader{
		BlockID:           0,
		ChecksumType:      ChecksumXXHash64,
		UncompressedCount: 2,
		UniformReadLength: 100,
		CompressedSize:    uint64(len(payloadA)),
	}
	require.NoError(t, w.WriteBlock(bhA, payloadA, 0))

	payloadB := []byte("block-b-payload-longer")
	bhB := BlockHeader{
		BlockID:           1,
		ChecksumType:      ChecksumXXHash64,
		UncompressedCount: 1,
		UniformReadLength: 100,
		CompressedSize:    uint64(len(payloadB)),
	}
	require.NoError(t, w.WriteBlock(bhB, payloadB, 2))

	require.NoError(t, w.Commit(nil))

	r, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, uint64(3), r.GlobalHeader().TotalReadCount)
	require.Equal(t, "sample.fastq", r.GlobalHeader().OriginalFilename)
	require.Equal(t, 2, r.NumBlocks())

	gotA, payA, err := r.Block(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), gotA.BlockID)
	require.Equal(t, payloadA, payA)

	gotB, payB, err := r.Block(1)
	require.NoError(t, err)
	require.Equal(t, uint32(1), gotB.BlockID)
	require.Equal(t, payloadB, payB)

	mapBytes, has := r.ReorderMap()
	require.False(t, has)
	require.Nil(t, mapBytes)
}

func TestWriteWithReorderMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "with_map.fqc")

	header := GlobalHeader{
		Flags:          FlagsOf(false, false, true, false, QualityLossless, IDExact, PELayoutNone, 0),
		ChecksumType:   ChecksumXXHash64,
		TotalReadCount: 1,
	}

	w, err := Create(path, header)
	require.NoError(t, err)

	payload := []byte("x")
	require.NoError(t, w.WriteBlock(BlockHeader{BlockID: 0, UncompressedCount: 1, CompressedSize: 1}, payload, 0))

	reorderMap := []byte{1, 2, 3, 4, 5}
	require.NoError(t, w.Commit(reorderMap))

	r, err := Open(path)
	require.NoError(t, err)

	got, has := r.ReorderMap()
	require.True(t, has)
	require.Equal(t, reorderMap, got)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.fqc")

	header := GlobalHeader{ChecksumType: ChecksumXXHash64}
	w, err := Create(path, header)
	require.NoError(t, err)
	require.NoError(t, w.Commit(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] = 0x00
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Open(path)
	require.Error(t, err)
}

func TestOpenRejectsChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tampered.fqc")

	header := GlobalHeader{ChecksumType: ChecksumXXHash64}
	w, err := Create(path, header)
	require.NoError(t, err)
	require.NoError(t, w.WriteBlock(BlockHeader{BlockID: 0, CompressedSize: 1}, []byte("x"), 0))
	require.NoError(t, w.Commit(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a byte inside the checksummed region, well before the footer.
	data[len(Magic)+1+4] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Open(path)
	require.Error(t, err)
}

func TestAbortRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aborted.fqc")

	w, err := Create(path, GlobalHeader{ChecksumType: ChecksumXXHash64})
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))

	_, err = Open(path)
	require.Error(t, err)
}
