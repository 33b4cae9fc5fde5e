// Package seqcodec implements the sequence codec (C5): a per-length-class
// dispatch between the assembly-based short-read codec (ABC_V1), a general-
// compressor fallback for medium/long reads (ZSTD_PLAIN), and an optional
// overlap-graph codec for long reads (OVERLAP_V1).
package seqcodec

import "github.com/fqcompress/fqc/internal/bitio"

// kmerLen is the seed window width used to bucket reads into dictionary
// candidates. A fixed, short window keeps bucket construction O(n) and is
// sufficient to find exact-overlap candidates cheaply; it trades recall at
// the margins for a simple, deterministic implementation.
const kmerLen = 12

// ThreshReorder is the maximum Hamming distance (over the shared prefix,
// in bases) for a read to be adopted into an existing consensus (spec
// §4.5 THRESH_REORDER).
const ThreshReorder = 4

// MaxSearchReorder bounds how many candidates from one dictionary bucket
// are tested before giving up on that bucket (spec §4.5 MAX_SEARCH_REORDER).
const MaxSearchReorder = 1000

// Member is one read bucketed into the dictionary: its index in the
// caller's read slice, and its packed 2-bit sequence.
type Member struct {
	Index int
	Bases *bitio.BitSet2
	Len   int
}

// Dictionary buckets reads by their leading kmerLen bases, approximating
// the spec's minimal-perfect-hash-indexed windowed dictionaries with a
// plain map keyed by the literal prefix. Candidate lookup for a consensus
// query then only has to scan members sharing that prefix.
type Dictionary struct {
	buckets map[string][]Member
}

// BuildDictionary indexes seqs (raw ACGTN bytes) by their first kmerLen
// bases. Reads shorter than kmerLen are bucketed under their full sequence.
func BuildDictionary(seqs [][]byte) *Dictionary {
	d := &Dictionary{buckets: make(map[string][]Member)}

	for i, seq := range seqs {
		key := seedKey(seq)
		bs := bitio.NewBitSet2(len(seq))
		_ = bs.PackSequence(seq)
		d.buckets[key] = append(d.buckets[key], Member{Index: i, Bases: bs, Len: len(seq)})
	}

	return d
}

func seedKey(seq []byte) string {
	if len(seq) <= kmerLen {
		return string(seq)
	}

	return string(seq[:kmerLen])
}

// Candidates returns the (unordered) members sharing seq's seed key, for
// the caller to rank by Hamming distance to a running consensus.
func (d *Dictionary) Candidates(seq []byte) []Member {
	return d.buckets[seedKey(seq)]
}

// NewLiveDictionary returns an empty Dictionary that the ABC_V1 assembler
// populates incrementally as new consensus contigs are opened: each bucket
// holds the contigs whose founding read had that seed (a contig is not
// re-keyed when its consensus changes),
// so later reads can query for a merge candidate without rescanning every
// contig built so far.
func NewLiveDictionary() *Dictionary {
	return &Dictionary{buckets: make(map[string][]Member)}
}

// Insert appends a candidate under seq's seed key; existing candidates are
// kept. index is the
// caller-defined payload (e.g. a contig index), carried through Candidates
// unchanged.
func (d *Dictionary) Insert(seq []byte, index int, bases *bitio.BitSet2) {
	key := seedKey(seq)
	d.buckets[key] = append(d.buckets[key], Member{Index: index, Bases: bases, Len: len(seq)})
}
