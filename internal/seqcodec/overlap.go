package seqcodec

import (
	"fmt"

	"github.com/fqcompress/fqc/internal/bitio"
)

// minOverlapWindow is the shortest suffix/prefix match OVERLAP_V1 will
// chain on; shorter matches are rejected as coincidental rather than true
// sequence overlap.
const minOverlapWindow = 20

// maxOverlapSearch bounds the suffix/prefix window scanned when looking
// for a chain point, keeping assembly linear in read length.
const maxOverlapSearch = 64

// encodeOverlap implements OVERLAP_V1 (spec §4.5): an explicit opt-in,
// long-read codec gated by Config.EnableOverlapCodec. Reads are chained
// into components by greedy suffix/prefix matching against the growing
// reference; a component's reference plus each member's start offset and
// edit list (positions where the member diverges from the reference) are
// stored; members that don't chain onto any open reference start a new
// component, exactly like ABC_V1's contig restart but keyed on overlap
// length instead of whole-read Hamming distance.
func encodeOverlap(seqs [][]byte) ([]byte, error) {
	type component struct {
		reference []byte
		starts    []int
	}

	var components []component
	assignment := make([]int, len(seqs))
	startOffset := make([]int, len(seqs))

	for i, seq := range seqs {
		placed := false

		for ci := range components {
			comp := &components[ci]
			overlap := suffixPrefixOverlap(comp.reference, seq)
			if overlap < minOverlapWindow {
				continue
			}

			start := len(comp.reference) - overlap
			if extra := len(seq) - overlap; extra > 0 {
				comp.reference = append(comp.reference, seq[overlap:]...)
			}
			comp.starts = append(comp.starts, start)
			assignment[i] = ci
			startOffset[i] = start
			placed = true
			break
		}

		if !placed {
			components = append(components, component{reference: append([]byte(nil), seq...), starts: []int{0}})
			assignment[i] = len(components) - 1
			startOffset[i] = 0
		}
	}

	refs := make([][]byte, len(components))
	for i, c := range components {
		refs[i] = c.reference
	}

	var structure []byte
	structure = bitio.AppendUvarint(structure, uint64(len(refs)))
	for _, ref := range refs {
		structure = bitio.AppendUvarint(structure, uint64(len(ref)))
		structure = append(structure, ref...)
	}

	structure = bitio.AppendUvarint(structure, uint64(len(seqs)))
	for i, seq := range seqs {
		comp := assignment[i]
		start := startOffset[i]
		structure = bitio.AppendUvarint(structure, uint64(comp))
		structure = bitio.AppendUvarint(structure, uint64(start))

		ref := refs[comp]
		var edits []int
		for p := 0; p < len(seq); p++ {
			rp := start + p
			if rp >= len(ref) || ref[rp] != seq[p] {
				edits = append(edits, p)
			}
		}

		structure = bitio.AppendUvarint(structure, uint64(len(edits)))
		prev := 0
		for _, e := range edits {
			structure = bitio.AppendUvarint(structure, uint64(e-prev))
			structure = append(structure, seq[e])
			prev = e
		}
	}

	return structure, nil
}

// suffixPrefixOverlap returns the length of the longest suffix of ref that
// is also a prefix of seq, scanning only the last maxOverlapSearch bases of
// ref (assembly does not need whole-reference alignment for a pure
// suffix/prefix chain).
func suffixPrefixOverlap(ref, seq []byte) int {
	window := maxOverlapSearch
	if window > len(ref) {
		window = len(ref)
	}
	if window > len(seq) {
		window = len(seq)
	}

	for l := window; l >= minOverlapWindow; l-- {
		if string(ref[len(ref)-l:]) == string(seq[:l]) {
			return l
		}
	}

	return 0
}

func decodeOverlap(payload []byte, readLens []int) ([][]byte, error) {
	pos := 0
	readUvarint := func() (uint64, error) {
		v, n, err := bitio.ReadUvarint(payload[pos:])
		if err != nil {
			return 0, err
		}
		pos += n
		return v, nil
	}

	numRefs, err := readUvarint()
	if err != nil {
		return nil, fmt.Errorf("seqcodec/overlap: ref count: %w", err)
	}

	refs := make([][]byte, numRefs)
	for i := range refs {
		l, err := readUvarint()
		if err != nil {
			return nil, fmt.Errorf("seqcodec/overlap: ref %d length: %w", i, err)
		}
		if pos+int(l) > len(payload) {
			return nil, fmt.Errorf("seqcodec/overlap: ref %d truncated", i)
		}
		refs[i] = append([]byte(nil), payload[pos:pos+int(l)]...)
		pos += int(l)
	}

	numReads, err := readUvarint()
	if err != nil {
		return nil, fmt.Errorf("seqcodec/overlap: read count: %w", err)
	}
	if int(numReads) != len(readLens) {
		return nil, fmt.Errorf("seqcodec/overlap: read count %d does not match block %d", numReads, len(readLens))
	}

	out := make([][]byte, numReads)
	for i := 0; i < int(numReads); i++ {
		compIdx, err := readUvarint()
		if err != nil {
			return nil, fmt.Errorf("seqcodec/overlap: read %d component: %w", i, err)
		}
		if int(compIdx) >= len(refs) {
			return nil, fmt.Errorf("seqcodec/overlap: read %d component %d out of range", i, compIdx)
		}
		start, err := readUvarint()
		if err != nil {
			return nil, fmt.Errorf("seqcodec/overlap: read %d start: %w", i, err)
		}
		numEdits, err := readUvarint()
		if err != nil {
			return nil, fmt.Errorf("seqcodec/overlap: read %d edit count: %w", i, err)
		}

		readLen := readLens[i]
		ref := refs[compIdx]
		buf := make([]byte, readLen)
		for p := 0; p < readLen; p++ {
			rp := int(start) + p
			if rp < len(ref) {
				buf[p] = ref[rp]
			}
		}

		prev := 0
		for e := 0; e < int(numEdits); e++ {
			delta, err := readUvarint()
			if err != nil {
				return nil, fmt.Errorf("seqcodec/overlap: read %d edit %d position: %w", i, e, err)
			}
			prev += int(delta)
			if pos >= len(payload) {
				return nil, fmt.Errorf("seqcodec/overlap: read %d edit %d missing base", i, e)
			}
			if prev >= 0 && prev < readLen {
				buf[prev] = payload[pos]
			}
			pos++
		}

		out[i] = buf
	}

	return out, nil
}
