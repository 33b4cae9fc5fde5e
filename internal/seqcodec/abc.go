package seqcodec

import (
	"fmt"

	"github.com/fqcompress/fqc/internal/bitio"
	"github.com/fqcompress/fqc/internal/rangecoder"
)

// abcContig tracks one consensus cluster during assembly: a running
// per-position base-count table (the majority vote, spec §4.5 "reference =
// majority base") and the packed bitset candidate lookups compare against.
//
// Members only ever join a contig at offset zero: this implementation
// clusters same-length reads rather than searching the full shift range
// the spec allows, trading some recall for a assembler that needs no
// alignment search. See DESIGN.md for the tradeoff.
type abcContig struct {
	length  int
	counts  [][4]uint16
	members []int
	bases   *bitio.BitSet2
}

func newAbcContig(seq []byte) *abcContig {
	c := &abcContig{length: len(seq), counts: make([][4]uint16, len(seq))}
	c.bases = bitio.NewBitSet2(len(seq))
	_ = c.bases.PackSequence(seq)
	c.absorb(seq)

	return c
}

func (c *abcContig) absorb(seq []byte) {
	for pos, b := range seq {
		code, ok := bitio.Base2Bit(b)
		if !ok {
			continue
		}
		if c.counts[pos][code] < 0xFFFF {
			c.counts[pos][code]++
		}
	}
}

// refresh recomputes the majority-vote consensus and repacks the bitset
// candidates are matched against.
func (c *abcContig) refresh() []byte {
	consensus := make([]byte, c.length)
	for pos, count := range c.counts {
		best := uint8(0)
		bestN := count[0]
		for code := uint8(1); code < 4; code++ {
			if count[code] > bestN {
				bestN = count[code]
				best = code
			}
		}
		consensus[pos] = bitio.Base2BitToByte(best)
	}
	_ = c.bases.PackSequence(consensus)

	return consensus
}

// assembleABC clusters seqs into consensus contigs, merging a read into the
// best existing contig when their Hamming distance (over equal-length
// sequences) is within ThreshReorder, else opening a new contig. Returns,
// per read in order, the contig index it was assigned to.
func assembleABC(seqs [][]byte) (contigs []*abcContig, assignment []int) {
	dict := NewLiveDictionary()
	assignment = make([]int, len(seqs))

	for i, seq := range seqs {
		best := -1
		bestDist := ThreshReorder + 1
		scanned := 0

		for _, cand := range dict.Candidates(seq) {
			if scanned >= MaxSearchReorder {
				break
			}
			scanned++
			if cand.Len != len(seq) {
				continue
			}

			tmp := bitio.NewBitSet2(len(seq))
			_ = tmp.PackSequence(seq)
			dist := tmp.HammingDistance(cand.Bases, len(seq))
			if dist <= ThreshReorder && dist < bestDist {
				bestDist = dist
				best = cand.Index
			}
		}

		if best >= 0 {
			contigs[best].absorb(seq)
			contigs[best].refresh()
			assignment[i] = best
			continue
		}

		c := newAbcContig(seq)
		contigs = append(contigs, c)
		idx := len(contigs) - 1
		assignment[i] = idx
		dict.Insert(seq, idx, c.bases)
	}

	return contigs, assignment
}

// noiseEvent is one substitution: a 0-based position within its read and
// the actual base observed there (which differs from the contig consensus).
type noiseEvent struct {
	pos  int
	base byte
}

func diffFromConsensus(seq, consensus []byte) []noiseEvent {
	var events []noiseEvent
	for i := 0; i < len(seq) && i < len(consensus); i++ {
		if seq[i] != consensus[i] {
			events = append(events, noiseEvent{pos: i, base: seq[i]})
		}
	}

	return events
}

// encodeABC implements the ABC_V1 short-read codec (spec §4.5): cluster
// reads into consensus contigs, then emit contig consensus bytes, a
// structure section (per-read contig index, orientation flag, mismatch
// positions), and an arithmetic-coded noise-symbol stream keyed by the
// reference base at each mismatch.
func encodeABC(seqs [][]byte) ([]byte, error) {
	contigs, assignment := assembleABC(seqs)
	consensuses := make([][]byte, len(contigs))
	for i, c := range contigs {
		consensuses[i] = c.refresh()
	}

	var structure []byte
	structure = bitio.AppendUvarint(structure, uint64(len(contigs)))
	for _, cons := range consensuses {
		structure = bitio.AppendUvarint(structure, uint64(len(cons)))
		structure = append(structure, cons...)
	}

	structure = bitio.AppendUvarint(structure, uint64(len(seqs)))

	var allEvents [][]noiseEvent
	for i, seq := range seqs {
		contigIdx := assignment[i]
		events := diffFromConsensus(seq, consensuses[contigIdx])
		allEvents = append(allEvents, events)

		structure = bitio.AppendUvarint(structure, uint64(contigIdx))
		structure = append(structure, 0) // orientation: always forward (spec simplification, see DESIGN.md)
		structure = bitio.AppendUvarint(structure, uint64(len(events)))

		prev := 0
		for _, ev := range events {
			structure = bitio.AppendUvarint(structure, uint64(ev.pos-prev))
			prev = ev.pos
		}
	}

	enc := rangecoder.NewEncoder()
	models := [4]*rangecoder.Model{}
	for i := range models {
		models[i] = rangecoder.NewModel(5)
	}

	for i, seq := range seqs {
		consensus := consensuses[assignment[i]]
		for _, ev := range allEvents[i] {
			refCode, ok := bitio.Base2Bit(consensus[ev.pos])
			if !ok {
				refCode = 0
			}
			sym, ok := bitio.Base3Bit(ev.base)
			if !ok {
				sym = 4
			}

			model := models[refCode]
			cum, freq := model.CumFreq(int(sym)), model.Freq(int(sym))
			enc.Encode(cum, freq, model.Total())
			model.Update(int(sym))
		}
	}

	noise := append([]byte(nil), enc.Finish()...)
	enc.Release()

	out := make([]byte, 0, len(structure)+bitio.VarintLen(uint64(len(noise)))+len(noise))
	out = bitio.AppendUvarint(out, uint64(len(structure)))
	out = append(out, structure...)
	out = append(out, noise...)

	return out, nil
}

// decodeABC reverses encodeABC given the per-read lengths in block order.
func decodeABC(payload []byte, readLens []int) ([][]byte, error) {
	pos := 0
	readUvarint := func() (uint64, error) {
		v, n, err := bitio.ReadUvarint(payload[pos:])
		if err != nil {
			return 0, err
		}
		pos += n
		return v, nil
	}

	structLen, err := readUvarint()
	if err != nil {
		return nil, fmt.Errorf("seqcodec/abc: structure length: %w", err)
	}
	structureEnd := pos + int(structLen)
	if structureEnd > len(payload) {
		return nil, fmt.Errorf("seqcodec/abc: structure section truncated")
	}

	numContigs, err := readUvarint()
	if err != nil {
		return nil, fmt.Errorf("seqcodec/abc: contig count: %w", err)
	}

	consensuses := make([][]byte, numContigs)
	for i := range consensuses {
		l, err := readUvarint()
		if err != nil {
			return nil, fmt.Errorf("seqcodec/abc: consensus %d length: %w", i, err)
		}
		if pos+int(l) > structureEnd {
			return nil, fmt.Errorf("seqcodec/abc: consensus %d truncated", i)
		}
		consensuses[i] = append([]byte(nil), payload[pos:pos+int(l)]...)
		pos += int(l)
	}

	numReads, err := readUvarint()
	if err != nil {
		return nil, fmt.Errorf("seqcodec/abc: read count: %w", err)
	}
	if int(numReads) != len(readLens) {
		return nil, fmt.Errorf("seqcodec/abc: read count %d does not match block %d", numReads, len(readLens))
	}

	contigIdx := make([]int, numReads)
	mismatchPositions := make([][]int, numReads)
	totalMismatches := 0

	for i := 0; i < int(numReads); i++ {
		ci, err := readUvarint()
		if err != nil {
			return nil, fmt.Errorf("seqcodec/abc: read %d contig index: %w", i, err)
		}
		if int(ci) >= len(consensuses) {
			return nil, fmt.Errorf("seqcodec/abc: read %d contig index %d out of range", i, ci)
		}
		contigIdx[i] = int(ci)

		if pos >= structureEnd {
			return nil, fmt.Errorf("seqcodec/abc: read %d missing orientation byte", i)
		}
		pos++ // orientation, unused on decode (always forward)

		numMismatch, err := readUvarint()
		if err != nil {
			return nil, fmt.Errorf("seqcodec/abc: read %d mismatch count: %w", i, err)
		}

		positions := make([]int, numMismatch)
		prev := 0
		for j := range positions {
			delta, err := readUvarint()
			if err != nil {
				return nil, fmt.Errorf("seqcodec/abc: read %d mismatch %d: %w", i, j, err)
			}
			prev += int(delta)
			positions[j] = prev
		}
		mismatchPositions[i] = positions
		totalMismatches += len(positions)
	}

	if pos != structureEnd {
		return nil, fmt.Errorf("seqcodec/abc: structure section has %d trailing bytes", structureEnd-pos)
	}

	dec := rangecoder.NewDecoder(payload[structureEnd:])
	models := [4]*rangecoder.Model{}
	for i := range models {
		models[i] = rangecoder.NewModel(5)
	}

	out := make([][]byte, numReads)
	for i := 0; i < int(numReads); i++ {
		consensus := consensuses[contigIdx[i]]
		readLen := readLens[i]
		if readLen > len(consensus) {
			return nil, fmt.Errorf("seqcodec/abc: read %d length %d exceeds consensus length %d", i, readLen, len(consensus))
		}

		buf := append([]byte(nil), consensus[:readLen]...)
		for _, mpos := range mismatchPositions[i] {
			if mpos >= readLen {
				return nil, fmt.Errorf("seqcodec/abc: read %d mismatch position %d out of range", i, mpos)
			}

			refCode, ok := bitio.Base2Bit(consensus[mpos])
			if !ok {
				refCode = 0
			}
			model := models[refCode]

			target := dec.GetFreq(model.Total())
			sym, cum, freq := model.Find(target)
			dec.Decode(cum, freq, model.Total())
			model.Update(sym)

			b, ok := bitio.Base3BitToByte(uint8(sym))
			if !ok {
				b = 'N'
			}
			buf[mpos] = b
		}

		out[i] = buf
	}

	return out, nil
}
