package fqc

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fqcompress/fqc/archive"
	"github.com/fqcompress/fqc/internal/bitio"
	"github.com/fqcompress/fqc/record"
)

func sampleRecords(n, length int, r *rand.Rand) []record.Record {
	const bases = "ACGT"
	const quals = "!\"#$%&'()*+,-./0123456789:;<"

	out := make([]record.Record, n)
	for i := 0; i < n; i++ {
		seq := make([]byte, length)
		qual := make([]byte, length)
		for j := 0; j < length; j++ {
			seq[j] = bases[r.Intn(4)]
			qual[j] = quals[r.Intn(len(quals))]
		}
		out[i] = record.Record{ID: fmt.Sprintf("@SIM:1:FCX:1:1:%d:%d", i, i*2), Seq: seq, Qual: string(qual)}
	}
	return out
}

func TestCompressDecompressRoundTripNoReorder(t *testing.T) {
	r := rand.New(rand.NewSource(1)) //nolint:gosec
	reads := sampleRecords(200, 80, r)

	dir := t.TempDir()
	path := filepath.Join(dir, "reads.fqc")

	stats, err := Compress(context.Background(), NewSliceSource(reads), path, WithThreads(2), WithBlockReads(50))
	require.NoError(t, err)
	require.Equal(t, uint64(200), stats.TotalReads)

	out, _, err := Decompress(context.Background(), path, AllReads())
	require.NoError(t, err)
	require.Len(t, out, len(reads))
	for i := range reads {
		require.Equal(t, reads[i].ID, out[i].ID)
		require.Equal(t, reads[i].Seq, out[i].Seq)
		require.Equal(t, reads[i].Qual, out[i].Qual)
	}
}

func TestCompressDecompressRoundTripWithReorder(t *testing.T) {
	r := rand.New(rand.NewSource(2)) //nolint:gosec
	reads := sampleRecords(150, 60, r)

	dir := t.TempDir()
	path := filepath.Join(dir, "reordered.fqc")

	_, err := Compress(context.Background(), NewSliceSource(reads), path, WithReorder(true), WithBlockReads(40))
	require.NoError(t, err)

	out, _, err := Decompress(context.Background(), path, OriginalIDRange(0, 150))
	require.NoError(t, err)
	require.Len(t, out, len(reads))
	for i := range reads {
		require.Equal(t, reads[i].Seq, out[i].Seq)
		require.Equal(t, reads[i].Qual, out[i].Qual)
	}
}

func TestDecompressArchiveIDRange(t *testing.T) {
	r := rand.New(rand.NewSource(3)) //nolint:gosec
	reads := sampleRecords(100, 50, r)

	dir := t.TempDir()
	path := filepath.Join(dir, "range.fqc")

	_, err := Compress(context.Background(), NewSliceSource(reads), path, WithBlockReads(20))
	require.NoError(t, err)

	out, stats, err := Decompress(context.Background(), path, ArchiveIDRange(30, 50))
	require.NoError(t, err)
	require.Len(t, out, 20)
	require.Equal(t, uint64(20), stats.TotalReads)
	for i, rec := range out {
		require.Equal(t, reads[30+i].Seq, rec.Seq)
	}
}

func TestVerifyFullDetectsTamper(t *testing.T) {
	r := rand.New(rand.NewSource(4)) //nolint:gosec
	reads := sampleRecords(40, 40, r)

	dir := t.TempDir()
	path := filepath.Join(dir, "verify.fqc")

	_, err := Compress(context.Background(), NewSliceSource(reads), path)
	require.NoError(t, err)

	report, err := Verify(path, VerifyFull)
	require.NoError(t, err)
	require.True(t, report.OK)
	require.Empty(t, report.BlockErrors)

	tamperBlockPayload(t, path, 0)

	report, err = Verify(path, VerifyFull)
	require.NoError(t, err)
	require.False(t, report.OK)
	require.Len(t, report.BlockErrors, 1)
}

func TestInfoReadsHeaderWithoutDecodingBlocks(t *testing.T) {
	r := rand.New(rand.NewSource(5)) //nolint:gosec
	reads := sampleRecords(10, 30, r)

	dir := t.TempDir()
	path := filepath.Join(dir, "info.fqc")

	_, err := Compress(context.Background(), NewSliceSource(reads), path, WithBlockReads(5))
	require.NoError(t, err)

	summary, err := Info(path)
	require.NoError(t, err)
	require.Equal(t, uint64(10), summary.TotalReadCount)
	require.Equal(t, 2, summary.NumBlocks)
	require.False(t, summary.HasReorderMap)
}

// tamperBlockPayload flips the last byte of block i's compressed payload,
// then patches the footer's global checksum so the file still opens (spec
// §8 scenario 5: a single corrupted block, not a corrupted archive).
func tamperBlockPayload(t *testing.T, path string, blockIdx int) {
	t.Helper()

	r, err := archive.Open(path)
	require.NoError(t, err)
	entry := r.IndexEntry(blockIdx)

	data, err := os.ReadFile(path) //nolint:gosec
	require.NoError(t, err)

	tamperAt := entry.Offset + entry.CompressedSize - 1
	data[tamperAt] ^= 0xFF

	footerBytes := data[len(data)-archive.FooterSize:]
	footer, err := archive.DecodeFooter(footerBytes)
	require.NoError(t, err)
	footer.GlobalChecksum = bitio.Checksum(data[:len(data)-archive.FooterSize])
	copy(footerBytes, footer.Encode())

	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestDecompressSkipCorruptedSynthesizesPlaceholders(t *testing.T) {
	r := rand.New(rand.NewSource(6)) //nolint:gosec
	reads := sampleRecords(100, 40, r)

	dir := t.TempDir()
	path := filepath.Join(dir, "corrupted.fqc")

	_, err := Compress(context.Background(), NewSliceSource(reads), path, WithBlockReads(20))
	require.NoError(t, err)

	const corruptBlock = 2
	tamperBlockPayload(t, path, corruptBlock)

	_, _, err = Decompress(context.Background(), path, AllReads())
	require.Error(t, err)

	out, stats, err := Decompress(context.Background(), path, AllReads(), WithSkipCorrupted(true))
	require.NoError(t, err)
	require.Equal(t, 1, stats.CorruptedBlocks)
	require.Len(t, out, len(reads))

	blockStart := corruptBlock * 20
	for i := blockStart; i < blockStart+20; i++ {
		require.True(t, strings.HasPrefix(out[i].ID, "@corrupted:"))
		for _, b := range out[i].Seq {
			require.Equal(t, byte('N'), b)
		}
		require.Equal(t, strings.Repeat("!", len(out[i].Seq)), out[i].Qual)
	}
	for i, rec := range out {
		if i >= blockStart && i < blockStart+20 {
			continue
		}
		require.Equal(t, reads[i].Seq, rec.Seq)
	}
}

func TestCompressEmptyInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.fqc")

	stats, err := Compress(context.Background(), NewSliceSource(nil), path)
	require.NoError(t, err)
	require.Equal(t, uint64(0), stats.TotalReads)

	out, _, err := Decompress(context.Background(), path, AllReads())
	require.NoError(t, err)
	require.Empty(t, out)
}
