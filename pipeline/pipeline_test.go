package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fqcompress/fqc/archive"
	"github.com/fqcompress/fqc/block"
	"github.com/fqcompress/fqc/format"
	"github.com/fqcompress/fqc/record"
)

func makeBlocks(numBlocks, readsPerBlock, readLen int) []ProtoBlock {
	r := rand.New(rand.NewSource(1)) //nolint:gosec
	const bases = "ACGT"
	const quals = "!\"#$%&'()*+,-./"

	blocks := make([]ProtoBlock, numBlocks)
	archiveID := uint64(0)

	for b := 0; b < numBlocks; b++ {
		reads := make([]record.Record, readsPerBlock)
		for i := range reads {
			seq := make([]byte, readLen)
			qual := make([]byte, readLen)
			for j := range seq {
				seq[j] = bases[r.Intn(4)]
				qual[j] = quals[r.Intn(len(quals))]
			}
			reads[i] = record.Record{ID: fmt.Sprintf("@read:%d:%d", b, i), Seq: seq, Qual: string(qual)}
		}

		blocks[b] = ProtoBlock{
			BlockID:        uint32(b), //nolint:gosec
			ArchiveIDStart: archiveID,
			Reads:          reads,
			Class:          format.LengthShort,
		}
		archiveID += uint64(readsPerBlock) //nolint:gosec
	}

	return blocks
}

func TestCompressWritesBlocksInOrder(t *testing.T) {
	blocks := makeBlocks(12, 20, 80)

	dir := t.TempDir()
	path := filepath.Join(dir, "out.fqc")

	header := archive.GlobalHeader{ChecksumType: archive.ChecksumXXHash64, TotalReadCount: 240}
	w, err := archive.Create(path, header)
	require.NoError(t, err)

	err = Compress(context.Background(), blocks, block.Config{}, Config{Threads: 4, QueueCapacity: 2, OutOfOrderWindow: 3}, w)
	require.NoError(t, err)
	require.NoError(t, w.Commit(nil))

	r, err := archive.Open(path)
	require.NoError(t, err)
	require.Equal(t, len(blocks), r.NumBlocks())

	for i := 0; i < r.NumBlocks(); i++ {
		bh, payload, err := r.Block(i)
		require.NoError(t, err)
		require.Equal(t, uint32(i), bh.BlockID) //nolint:gosec

		reads, err := block.Decompress(bh, payload, r.IndexEntry(i).ArchiveIDStart)
		require.NoError(t, err)
		require.Equal(t, blocks[i].Reads[0].Seq, reads[0].Seq)
	}
}

func TestCompressSingleThreadMatchesMultiThread(t *testing.T) {
	blocks := makeBlocks(6, 10, 60)

	run := func(threads int) []byte {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.fqc")
		w, err := archive.Create(path, archive.GlobalHeader{ChecksumType: archive.ChecksumXXHash64, TotalReadCount: 60})
		require.NoError(t, err)
		require.NoError(t, Compress(context.Background(), blocks, block.Config{}, Config{Threads: threads}, w))
		require.NoError(t, w.Commit(nil))

		r, err := archive.Open(path)
		require.NoError(t, err)

		_, payload, err := r.Block(0)
		require.NoError(t, err)
		return payload
	}

	require.Equal(t, run(1), run(4))
}

func TestCompressCancellationAbortsWriter(t *testing.T) {
	blocks := makeBlocks(50, 50, 100)

	dir := t.TempDir()
	path := filepath.Join(dir, "cancelled.fqc")
	w, err := archive.Create(path, archive.GlobalHeader{ChecksumType: archive.ChecksumXXHash64})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = Compress(ctx, blocks, block.Config{}, Config{Threads: 2}, w)
	require.Error(t, err)

	_, err = archive.Open(path)
	require.Error(t, err)
}

func TestCompressEmptyBlockList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.fqc")
	w, err := archive.Create(path, archive.GlobalHeader{ChecksumType: archive.ChecksumXXHash64})
	require.NoError(t, err)

	require.NoError(t, Compress(context.Background(), nil, block.Config{}, Config{}, w))
	require.NoError(t, w.Commit(nil))

	r, err := archive.Open(path)
	require.NoError(t, err)
	require.Equal(t, 0, r.NumBlocks())
}
