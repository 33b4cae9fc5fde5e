// Package rangecoder implements the 32-bit adaptive range coder shared by
// the quality (C4) and sequence (C5) codecs (spec component C2).
//
// The encoder/decoder pair and the frequency model below mirror the
// accumulate-then-flush discipline of the teacher's bit-level Gorilla
// encoder (internal/encoding/numeric_gorilla.go in the reference repo):
// state lives in hot scalar fields, output accumulates into a pooled byte
// buffer, and a Finish call flushes the tail.
package rangecoder

import "github.com/fqcompress/fqc/internal/bitio"

// Range coder constants (spec §4.2).
const (
	top           uint32 = 0xFFFFFFFF
	half          uint32 = 0x80000000
	firstQuarter  uint32 = 0x40000000
	thirdQuarter  uint32 = 0xC0000000
	codeValueBits        = 32
)

// Encoder is a 32-bit adaptive range coder producing a byte stream that,
// together with identically-initialized Model instances, is a drop-in
// inverse of Decoder (spec §4.2 contract).
type Encoder struct {
	low       uint32
	high      uint32
	pending   int
	buf       *bitio.Buffer
	ownsBuf   bool
	bitBuffer byte
	bitCount  int
}

// NewEncoder creates a range encoder that accumulates output into its own
// pooled buffer.
func NewEncoder() *Encoder {
	return &Encoder{
		low:     0,
		high:    top,
		buf:     bitio.GetStreamBuffer(),
		ownsBuf: true,
	}
}

// NewEncoderInto creates a range encoder that writes into a caller-owned
// buffer, avoiding an extra pool round-trip when the caller already has a
// substream buffer open.
func NewEncoderInto(buf *bitio.Buffer) *Encoder {
	return &Encoder{low: 0, high: top, buf: buf}
}

// Encode encodes one symbol against the cumulative frequency range
// [cumFreq, cumFreq+freq) out of totalFreq, per the classic range-coder
// narrowing step.
func (e *Encoder) Encode(cumFreq, freq, totalFreq uint32) {
	rng := uint64(e.high-e.low) + 1
	e.high = e.low + uint32(rng*uint64(cumFreq+freq)/uint64(totalFreq)) - 1
	e.low = e.low + uint32(rng*uint64(cumFreq)/uint64(totalFreq))

	for {
		if e.high < half {
			e.emitBit(0)
		} else if e.low >= half {
			e.emitBit(1)
			e.low -= half
			e.high -= half
		} else if e.low >= firstQuarter && e.high < thirdQuarter {
			e.pending++
			e.low -= firstQuarter
			e.high -= firstQuarter
		} else {
			break
		}
		e.low <<= 1
		e.high = (e.high << 1) | 1
	}
}

func (e *Encoder) emitBit(bit byte) {
	e.writeBit(bit)
	for ; e.pending > 0; e.pending-- {
		e.writeBit(1 - bit)
	}
}

func (e *Encoder) writeBit(bit byte) {
	e.bitBuffer = (e.bitBuffer << 1) | bit
	e.bitCount++
	if e.bitCount == 8 {
		e.buf.MustWrite([]byte{e.bitBuffer})
		e.bitBuffer = 0
		e.bitCount = 0
	}
}

// Finish flushes the two bits needed to disambiguate the final interval and
// pads the trailing partial byte with zero bits, then returns the encoded
// stream. The Encoder must not be used after Finish unless Reset is called.
func (e *Encoder) Finish() []byte {
	e.pending++
	if e.low < firstQuarter {
		e.emitBit(0)
	} else {
		e.emitBit(1)
	}

	if e.bitCount > 0 {
		e.bitBuffer <<= uint(8 - e.bitCount) //nolint:gosec
		e.buf.MustWrite([]byte{e.bitBuffer})
		e.bitBuffer = 0
		e.bitCount = 0
	}

	return e.buf.Bytes()
}

// Release returns the encoder's buffer to the stream-buffer pool. Only call
// this for encoders created with NewEncoder (not NewEncoderInto).
func (e *Encoder) Release() {
	if e.ownsBuf {
		bitio.PutStreamBuffer(e.buf)
		e.buf = nil
	}
}

// Reset prepares the encoder (and its owned buffer, if any) for reuse
// encoding a new, independent symbol stream with no state carried over.
func (e *Encoder) Reset() {
	e.low = 0
	e.high = top
	e.pending = 0
	e.bitBuffer = 0
	e.bitCount = 0
	if e.buf != nil {
		e.buf.Reset()
	}
}

// Decoder is the inverse of Encoder: fed the same byte stream and driven
// with the same sequence of Model cumulative-frequency calls, it reproduces
// the original symbol sequence exactly (spec §4.2, P7).
type Decoder struct {
	low, high, code uint32
	data            []byte
	pos             int
	bitPos          int
}

// NewDecoder creates a decoder over an encoded byte stream.
func NewDecoder(data []byte) *Decoder {
	d := &Decoder{low: 0, high: top, data: data}
	for i := 0; i < codeValueBits; i++ {
		d.code = (d.code << 1) | uint32(d.nextBit())
	}

	return d
}

func (d *Decoder) nextBit() byte {
	if d.pos >= len(d.data) {
		return 0
	}
	bit := (d.data[d.pos] >> uint(7-d.bitPos)) & 1
	d.bitPos++
	if d.bitPos == 8 {
		d.bitPos = 0
		d.pos++
	}

	return bit
}

// GetFreq returns the scaled cumulative frequency point the decoder's
// current code value falls on, which the caller looks up in its Model to
// find the matching symbol before calling Decode.
func (d *Decoder) GetFreq(totalFreq uint32) uint32 {
	rng := uint64(d.high-d.low) + 1
	freq := (uint64(d.code-d.low+1)*uint64(totalFreq) - 1) / rng

	return uint32(freq)
}

// Decode narrows the decoder's range to [cumFreq, cumFreq+freq) exactly as
// Encode did, given the symbol the caller identified via GetFreq.
func (d *Decoder) Decode(cumFreq, freq, totalFreq uint32) {
	rng := uint64(d.high-d.low) + 1
	d.high = d.low + uint32(rng*uint64(cumFreq+freq)/uint64(totalFreq)) - 1
	d.low = d.low + uint32(rng*uint64(cumFreq)/uint64(totalFreq))

	for {
		if d.high < half {
			// no-op, bits already consistent
		} else if d.low >= half {
			d.low -= half
			d.high -= half
			d.code -= half
		} else if d.low >= firstQuarter && d.high < thirdQuarter {
			d.low -= firstQuarter
			d.high -= firstQuarter
			d.code -= firstQuarter
		} else {
			break
		}
		d.low <<= 1
		d.high = (d.high << 1) | 1
		d.code = (d.code << 1) | uint32(d.nextBit())
	}
}
