package analyzer

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

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

func TestReorderCoversEveryRead(t *testing.T) {
	r := rand.New(rand.NewSource(1)) //nolint:gosec

	base := randomBases(80, r)
	var seqs [][]byte
	for i := 0; i < 50; i++ {
		cp := append([]byte(nil), base...)
		cp[i%len(cp)] = "ACGT"[r.Intn(4)]
		seqs = append(seqs, cp)
	}

	reverse := Reorder(context.Background(), seqs, Config{Workers: 4})
	require.Len(t, reverse, len(seqs))

	seen := make(map[uint64]bool, len(reverse))
	for _, v := range reverse {
		require.False(t, seen[v], "read %d emitted twice", v)
		seen[v] = true
	}
	require.Len(t, seen, len(seqs))
}

func TestReorderSingleWorkerIsDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(2)) //nolint:gosec

	var seqs [][]byte
	for i := 0; i < 30; i++ {
		seqs = append(seqs, randomBases(60, r))
	}

	a := Reorder(context.Background(), seqs, Config{Workers: 1})
	b := Reorder(context.Background(), seqs, Config{Workers: 1})
	require.Equal(t, a, b)
}

func TestReorderMixedLengthClassesKeepsLongReadsInPlace(t *testing.T) {
	r := rand.New(rand.NewSource(3)) //nolint:gosec

	var seqs [][]byte
	for i := 0; i < 5; i++ {
		seqs = append(seqs, randomBases(100, r)) // SHORT
	}
	for i := 0; i < 3; i++ {
		seqs = append(seqs, randomBases(20000, r)) // LONG
	}

	reverse := Reorder(context.Background(), seqs, Config{Workers: 2})
	require.Len(t, reverse, len(seqs))

	longOriginal := []int{5, 6, 7}
	var longSeen []int
	for _, archiveID := range reverse {
		if int(archiveID) >= 5 {
			longSeen = append(longSeen, int(archiveID))
		}
	}
	require.Equal(t, longOriginal, longSeen)
}

func TestReorderEmptyInput(t *testing.T) {
	reverse := Reorder(context.Background(), nil, Config{})
	require.Empty(t, reverse)
}

func TestPlanBlocksUsesClassDefaults(t *testing.T) {
	lens := make([]int, 250_000)
	for i := range lens {
		lens[i] = 100
	}

	plans := PlanBlocks(lens, format.LengthShort, 0, 0)
	require.Len(t, plans, 3)
	require.Equal(t, 0, plans[0].StartRead)
	require.Equal(t, 100_000, plans[0].EndRead)
	require.Equal(t, 250_000, plans[len(plans)-1].EndRead)
}

func TestPlanBlocksRespectsMaxBlockBases(t *testing.T) {
	lens := make([]int, 1000)
	for i := range lens {
		lens[i] = 10_000
	}

	plans := PlanBlocks(lens, format.LengthLong, 10_000, 100_000)
	for _, p := range plans {
		require.LessOrEqual(t, p.EndRead-p.StartRead, 10)
	}
}

func TestPlanBlocksEmptyInput(t *testing.T) {
	require.Nil(t, PlanBlocks(nil, format.LengthShort, 0, 0))
}

func TestReorderContextCancellationStillCoversAllReads(t *testing.T) {
	r := rand.New(rand.NewSource(4)) //nolint:gosec

	var seqs [][]byte
	for i := 0; i < 20; i++ {
		seqs = append(seqs, randomBases(50, r))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reverse := Reorder(ctx, seqs, Config{Workers: 2})
	require.Len(t, reverse, len(seqs))

	got := append([]uint64(nil), reverse...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, v := range got {
		require.Equal(t, uint64(i), v) //nolint:gosec
	}
}
