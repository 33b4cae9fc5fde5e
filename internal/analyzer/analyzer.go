// Package analyzer implements the global analyzer (C6): the archive-wide
// greedy reordering pass that clusters similar short reads together before
// they are split into blocks, plus the block-boundary planner that turns
// class-specific defaults into concrete per-block read counts.
package analyzer

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/fqcompress/fqc/format"
	"github.com/fqcompress/fqc/internal/bitio"
	"github.com/fqcompress/fqc/internal/seqcodec"
)

// Config controls the reordering pass.
type Config struct {
	// Enabled gates the whole pass; callers skip C6 entirely when false or
	// when the input isn't seekable (spec §4.6 preamble).
	Enabled bool
	// Workers bounds how many goroutines run the greedy loop concurrently
	// over independent seed reads. Values below 1 mean a single,
	// sequential worker.
	Workers int
	// UnmatchedStopFraction aborts a worker's reordering once the unmatched
	// fraction over its trailing window exceeds this value (spec §4.5 stop
	// criterion). Zero selects the spec default of 0.5.
	UnmatchedStopFraction float64
	// StopWindow is the trailing-attempts window size for the stop
	// criterion. Zero selects the spec default of 1,000,000.
	StopWindow int
}

func (c Config) stopFraction() float64 {
	if c.UnmatchedStopFraction > 0 {
		return c.UnmatchedStopFraction
	}
	return 0.5
}

func (c Config) stopWindow() int {
	if c.StopWindow > 0 {
		return c.StopWindow
	}
	return 1_000_000
}

// readState is the per-read bookkeeping shared across the parallel workers:
// claimed acts as the test-and-set flag from spec §4.6 ("per-bucket and
// per-read mutual exclusion... test-and-set on a remaining[rid] flag"),
// guarded by the shared mutex in clusterGreedy rather than an atomic. The
// dictionary itself is read-only once built and is queried without it.
type readState struct {
	claimed bool
	seq     []byte
	bits    *bitio.BitSet2
}

// Reorder runs the greedy clustering pass over seqs and returns
// reverse[archiveID] = originalID (spec §4.6 step 4). Only reads whose
// length class is SHORT participate in clustering; MEDIUM/LONG reads are
// appended after the clustered prefix in their original relative order,
// since ABC_V1 (and therefore this reordering) only targets short reads
// (spec §4.5).
func Reorder(ctx context.Context, seqs [][]byte, cfg Config) []uint64 {
	n := len(seqs)
	reverse := make([]uint64, 0, n)
	if n == 0 {
		return reverse
	}

	shortIdx := make([]int, 0, n)
	restIdx := make([]int, 0)
	for i, s := range seqs {
		if format.ClassifyLengths(len(s), len(s)) == format.LengthShort {
			shortIdx = append(shortIdx, i)
		} else {
			restIdx = append(restIdx, i)
		}
	}

	clustered := clusterGreedy(ctx, seqs, shortIdx, cfg)
	reverse = append(reverse, clustered...)
	for _, i := range restIdx {
		reverse = append(reverse, uint64(i)) //nolint:gosec
	}

	return reverse
}

// clusterGreedy implements spec §4.5's reordering loop restricted to the
// SHORT-class subset named by idx (indices into the caller's seqs slice).
// Workers each own a disjoint slice of candidate seed reads, claim reads via
// readState.claimed, and emit contiguous contig runs; runs across workers
// are concatenated in worker order, which is deterministic for a fixed
// cfg.Workers but not tied to original read order (acceptable: reordering
// exists precisely to break original order for compression gain).
func clusterGreedy(ctx context.Context, seqs [][]byte, idx []int, cfg Config) []uint64 {
	states := make([]*readState, len(idx))
	for i, orig := range idx {
		bs := bitio.NewBitSet2(len(seqs[orig]))
		_ = bs.PackSequence(seqs[orig])
		states[i] = &readState{seq: seqs[orig], bits: bs}
	}

	dict := seedDictionary(states)

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(states) {
		workers = len(states)
	}
	if workers == 0 {
		return nil
	}

	var mu sync.Mutex // guards each readState.claimed flag
	results := make([][]int, workers)

	var wg sync.WaitGroup
	share := (len(states) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * share
		end := start + share
		if end > len(states) {
			end = len(states)
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			results[w] = runWorker(ctx, states, dict, &mu, start, end, cfg)
		}(w, start, end)
	}
	wg.Wait()

	out := make([]uint64, 0, len(states))
	for _, run := range results {
		for _, localIdx := range run {
			out = append(out, uint64(idx[localIdx])) //nolint:gosec
		}
	}

	// Any reads left unclaimed (e.g. a cancelled context, or every worker
	// exhausted its stop budget before reaching them) are appended in their
	// original relative order so Reorder's output always covers every read.
	claimed := make(map[int]bool, len(out))
	for _, v := range out {
		claimed[int(v)] = true
	}
	for i, orig := range idx {
		_ = i
		if !claimed[orig] {
			out = append(out, uint64(orig)) //nolint:gosec
		}
	}

	return out
}

// seedDictionary builds a live dictionary over every state's full sequence,
// keyed the same way seqcodec.Dictionary buckets short reads, so workers can
// query for merge candidates without an O(n^2) scan.
func seedDictionary(states []*readState) *seqcodec.Dictionary {
	seqs := make([][]byte, len(states))
	for i, st := range states {
		seqs[i] = st.seq
	}
	return seqcodec.BuildDictionary(seqs)
}

// runWorker executes the greedy seed/extend/restart loop over
// states[start:end], returning the local indices (into states) in the order
// they were emitted. When no candidate is found the same forward query is
// repeated once before the contig is closed; no reverse-direction search
// is made.
func runWorker(ctx context.Context, states []*readState, dict *seqcodec.Dictionary, mu *sync.Mutex, start, end int, cfg Config) []int {
	order := make([]int, 0, end-start)
	window := make([]bool, 0, cfg.stopWindow())
	unmatchedInWindow := 0

	recordAttempt := func(matched bool) bool {
		if len(window) < cfg.stopWindow() {
			window = append(window, !matched)
			if !matched {
				unmatchedInWindow++
			}
		} else {
			idx := len(order) % cfg.stopWindow()
			if window[idx] {
				unmatchedInWindow--
			}
			window[idx] = !matched
			if !matched {
				unmatchedInWindow++
			}
		}
		if len(window) < cfg.stopWindow() {
			return false
		}
		return float64(unmatchedInWindow)/float64(len(window)) > cfg.stopFraction()
	}

	for local := start; local < end; local++ {
		select {
		case <-ctx.Done():
			return order
		default:
		}

		if !tryClaim(mu, states[local]) {
			continue
		}

		order = append(order, local)
		consensus := append([]byte(nil), states[local].seq...)
		forwardExhausted := false
		reverseExhausted := false

		for {
			cand, shift, ok := bestCandidate(mu, dict, states, consensus, cfg)
			if !ok {
				if forwardExhausted {
					reverseExhausted = true
					break
				}
				forwardExhausted = true
				continue
			}

			order = append(order, cand)
			consensus = extendConsensus(consensus, states[cand].seq, shift)
			if recordAttempt(true) {
				return order
			}
		}

		if reverseExhausted {
			if recordAttempt(false) {
				return order
			}
		}
	}

	return order
}

// tryClaim is the test-and-set from spec §4.6: exactly one worker/goroutine
// wins the claim on a given read.
func tryClaim(mu *sync.Mutex, st *readState) bool {
	mu.Lock()
	defer mu.Unlock()
	if st.claimed {
		return false
	}
	st.claimed = true
	return true
}

// bestCandidate scans the dictionary bucket sharing consensus's seed for the
// lowest-Hamming-distance unclaimed read within ThreshReorder, tie-breaking
// by lowest shift then lowest local index (spec §4.5 tie-break rule). Only
// shift zero is tried (the returned shift is always 0), matching ABC_V1's
// same-length-preferring local merge (seqcodec's
// documented scope decision carries over to the global pass, since both
// share the same dictionary/candidate primitives).
func bestCandidate(mu *sync.Mutex, dict *seqcodec.Dictionary, states []*readState, consensus []byte, cfg Config) (int, int, bool) {
	candidates := dict.Candidates(consensus)
	consBits := bitio.NewBitSet2(len(consensus))
	_ = consBits.PackSequence(consensus)

	best := -1
	bestDist := math.MaxInt32
	bestShift := 0
	tried := 0

	for _, m := range candidates {
		tried++
		if tried > seqcodec.MaxSearchReorder {
			break
		}

		idx := m.Index
		if idx < 0 || idx >= len(states) {
			continue
		}

		mu.Lock()
		claimed := states[idx].claimed
		mu.Unlock()
		if claimed {
			continue
		}

		n := len(consensus)
		if m.Len < n {
			n = m.Len
		}

		dist := consBits.HammingDistance(states[idx].bits, n)
		if dist > seqcodec.ThreshReorder {
			continue
		}

		if dist < bestDist || (dist == bestDist && idx < best) {
			bestDist = dist
			best = idx
			bestShift = 0
		}
	}

	if best < 0 {
		return 0, 0, false
	}

	mu.Lock()
	if states[best].claimed {
		mu.Unlock()
		return 0, 0, false
	}
	states[best].claimed = true
	mu.Unlock()

	return best, bestShift, true
}

// extendConsensus merges seq into consensus at shift (always 0 in this
// implementation; see bestCandidate), taking the majority base at each
// overlapping position is unnecessary here since ABC_V1 itself performs the
// true majority-vote consensus at block-assembly time — this pass only
// needs a representative reference good enough to drive further candidate
// search, so the first member's bases stand in for it.
func extendConsensus(consensus, seq []byte, shift int) []byte {
	if shift != 0 {
		return consensus
	}
	if len(seq) > len(consensus) {
		return append(consensus, seq[len(consensus):]...)
	}
	return consensus
}

// BlockPlan describes the boundaries chosen for one block.
type BlockPlan struct {
	StartRead int
	EndRead   int // exclusive
	Class     format.LengthClass
}

// PlanBlocks implements spec §4.6 step 5: reads_per_block =
// min(config_reads, max_block_bases/median_len), with class-specific
// defaults (SHORT 100k, MEDIUM 50k, LONG 10k) when configReads is zero.
func PlanBlocks(lens []int, class format.LengthClass, configReads, maxBlockBases int) []BlockPlan {
	if len(lens) == 0 {
		return nil
	}

	defaultReads := map[format.LengthClass]int{
		format.LengthShort:  100_000,
		format.LengthMedium: 50_000,
		format.LengthLong:   10_000,
	}[class]

	readsPerBlock := configReads
	if readsPerBlock <= 0 {
		readsPerBlock = defaultReads
	}

	if maxBlockBases > 0 {
		median := medianOf(lens)
		if median > 0 {
			byBases := maxBlockBases / median
			if byBases > 0 && byBases < readsPerBlock {
				readsPerBlock = byBases
			}
		}
	}
	if readsPerBlock < 1 {
		readsPerBlock = 1
	}

	plans := make([]BlockPlan, 0, (len(lens)+readsPerBlock-1)/readsPerBlock)
	for start := 0; start < len(lens); start += readsPerBlock {
		end := start + readsPerBlock
		if end > len(lens) {
			end = len(lens)
		}
		plans = append(plans, BlockPlan{StartRead: start, EndRead: end, Class: class})
	}

	return plans
}

func medianOf(lens []int) int {
	if len(lens) == 0 {
		return 0
	}
	sorted := append([]int(nil), lens...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
