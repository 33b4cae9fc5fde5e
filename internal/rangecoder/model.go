package rangecoder

// Adaptive frequency model constants (spec §4.2).
const (
	adaptStep = 8
	maxFreq   = 16383
)

// Model is a per-symbol adaptive frequency table. Every alphabet position
// used by the quality codec (one Model per (context, position-bin)
// instance) and the sequence codec (one noise Model per reference base)
// is a Model value, initialized identically by encoder and
// decoder so their state never diverges (spec §4.2 contract, P7).
type Model struct {
	freq  []uint32
	total uint32
}

// NewModel creates a Model over an alphabet of size n with every symbol's
// frequency initialized to 1, as spec §4.2 requires.
func NewModel(n int) *Model {
	m := &Model{freq: make([]uint32, n)}
	for i := range m.freq {
		m.freq[i] = 1
	}
	m.total = uint32(n)

	return m
}

// Size returns the alphabet size.
func (m *Model) Size() int { return len(m.freq) }

// Total returns the current total frequency (the range coder's totalFreq).
func (m *Model) Total() uint32 { return m.total }

// CumFreq returns the cumulative frequency of all symbols strictly below
// sym — the range coder's cumFreq parameter for encoding sym.
func (m *Model) CumFreq(sym int) uint32 {
	var cum uint32
	for i := 0; i < sym; i++ {
		cum += m.freq[i]
	}

	return cum
}

// Freq returns the frequency of sym — the range coder's freq parameter.
func (m *Model) Freq(sym int) uint32 { return m.freq[sym] }

// Find locates the symbol whose cumulative range contains targetFreq (the
// value returned by Decoder.GetFreq), returning the symbol plus its cumFreq
// and freq so the caller can drive Decoder.Decode.
func (m *Model) Find(targetFreq uint32) (sym int, cumFreq, freq uint32) {
	var cum uint32
	for i, f := range m.freq {
		if targetFreq < cum+f {
			return i, cum, f
		}
		cum += f
	}

	// Unreachable for a well-formed encoder/decoder pair; fall back to the
	// last symbol rather than panic so a corrupted stream surfaces as a
	// wrong-but-bounded decode that the block checksum will catch.
	last := len(m.freq) - 1

	return last, cum - m.freq[last], m.freq[last]
}

// Update applies the fixed adapt-step increment to sym's frequency,
// rescaling the whole table first if the increment would push the total
// past MAX_FREQ (spec §4.2).
func (m *Model) Update(sym int) {
	if m.total+adaptStep > maxFreq {
		m.rescale()
	}

	m.freq[sym] += adaptStep
	m.total += adaptStep
}

func (m *Model) rescale() {
	var total uint32
	for i, f := range m.freq {
		nf := f >> 1
		if nf == 0 {
			nf = 1
		}
		m.freq[i] = nf
		total += nf
	}
	m.total = total
}

// EncodeSymbol encodes sym through enc using m, then updates m. This is the
// standard pairing used by every codec built on top of the range coder.
func (m *Model) EncodeSymbol(enc *Encoder, sym int) {
	cum := m.CumFreq(sym)
	freq := m.Freq(sym)
	enc.Encode(cum, freq, m.total)
	m.Update(sym)
}

// DecodeSymbol decodes the next symbol from dec using m, updates m, and
// returns the symbol.
func (m *Model) DecodeSymbol(dec *Decoder) int {
	target := dec.GetFreq(m.total)
	sym, cum, freq := m.Find(target)
	dec.Decode(cum, freq, m.total)
	m.Update(sym)

	return sym
}
