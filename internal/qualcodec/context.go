package qualcodec

import "github.com/fqcompress/fqc/internal/rangecoder"

// phredAlphabet is the Phred+33 symbol count ('!'..'~').
const phredAlphabet = 94

// noPrev marks a previous-symbol slot that hasn't been filled yet (read
// start); it is a distinct value from every real symbol (0..93) so it
// never collides with an actual quality score in the context key.
const noPrev = phredAlphabet

// modelSet lazily allocates one adaptive frequency model per (previous-k
// symbols, position bin) context, so memory scales with contexts actually
// seen instead of the full 94^order * bins space (spec §4.4 sizes this as
// large as 94^2*256 for order 2; most of that space is never visited by a
// real quality batch).
type modelSet struct {
	order  int
	bins   int
	models map[uint64]*rangecoder.Model
}

func newModelSet(order, bins int) *modelSet {
	return &modelSet{order: order, bins: bins, models: make(map[uint64]*rangecoder.Model)}
}

func (ms *modelSet) get(key uint64) *rangecoder.Model {
	m, ok := ms.models[key]
	if !ok {
		m = rangecoder.NewModel(phredAlphabet)
		ms.models[key] = m
	}

	return m
}

// contextKey combines the order previous symbols (or noPrev for unfilled
// slots) with the position bin into one map key. Each previous-symbol slot
// occupies a base-(phredAlphabet+1) digit so distinct (prevs, bin) tuples
// never collide.
func contextKey(prevs []int, bin int) uint64 {
	key := uint64(bin)
	for _, p := range prevs {
		key = key*(phredAlphabet+1) + uint64(p)
	}

	return key
}

// positionBin computes floor(pos*B/readLen) (spec §4.4); readLen must be > 0.
func positionBin(pos, readLen, bins int) int {
	bin := (pos * bins) / readLen
	if bin >= bins {
		bin = bins - 1
	}

	return bin
}

// contextWindow tracks the previous `order` symbols for one read, reset at
// every read boundary via newContextWindow.
type contextWindow struct {
	prevs []int
}

func newContextWindow(order int) *contextWindow {
	prevs := make([]int, order)
	for i := range prevs {
		prevs[i] = noPrev
	}

	return &contextWindow{prevs: prevs}
}

func (w *contextWindow) push(sym int) {
	for i := len(w.prevs) - 1; i > 0; i-- {
		w.prevs[i] = w.prevs[i-1]
	}
	if len(w.prevs) > 0 {
		w.prevs[0] = sym
	}
}
