// Package bitio provides the fixed-width little-endian I/O, varint/zigzag
// codecs, streaming checksum, and base-packing primitives shared by every
// fqc codec and the archive container (spec component C1).
package bitio

import (
	"io"
	"sync"
)

// StreamBufferDefaultSize is the default size of a Buffer obtained from the pool.
const (
	StreamBufferDefaultSize  = 1024 * 16        // 16KiB: typical per-substream scratch size
	StreamBufferMaxThreshold = 1024 * 1024      // 1MiB: discard larger buffers rather than pool them
	BlockBufferDefaultSize   = 1024 * 256       // 256KiB: typical assembled-block scratch size
	BlockBufferMaxThreshold  = 1024 * 1024 * 16 // 16MiB
)

// Buffer is a growable byte buffer optimized for append-heavy codec output,
// reused across blocks via a sync.Pool to avoid per-block allocation churn.
type Buffer struct {
	B []byte
}

// NewBuffer creates a new Buffer with the given starting capacity.
func NewBuffer(defaultSize int) *Buffer {
	return &Buffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the underlying byte slice.
func (b *Buffer) Bytes() []byte { return b.B }

// Reset empties the buffer while retaining its backing array.
func (b *Buffer) Reset() { b.B = b.B[:0] }

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int { return len(b.B) }

// Cap returns the buffer's current capacity.
func (b *Buffer) Cap() int { return cap(b.B) }

// MustWrite appends data, growing the buffer as needed.
func (b *Buffer) MustWrite(data []byte) {
	b.B = append(b.B, data...)
}

// WriteByte appends a single byte, growing the buffer as needed.
func (b *Buffer) WriteByte(v byte) error {
	b.B = append(b.B, v)
	return nil
}

// Write implements io.Writer.
func (b *Buffer) Write(data []byte) (int, error) {
	b.B = append(b.B, data...)
	return len(data), nil
}

// WriteTo implements io.WriterTo.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.B)
	return int64(n), err
}

// Grow ensures the buffer can accept requiredBytes more bytes without
// reallocating. Small buffers grow by a fixed increment; large buffers grow
// by 25% of their current capacity, balancing allocation count against
// overshoot.
func (b *Buffer) Grow(requiredBytes int) {
	available := cap(b.B) - len(b.B)
	if available >= requiredBytes {
		return
	}

	growBy := StreamBufferDefaultSize
	if cap(b.B) > 4*StreamBufferDefaultSize {
		growBy = cap(b.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(b.B), len(b.B)+growBy)
	copy(newBuf, b.B)
	b.B = newBuf
}

// Extend grows the logical length by n bytes if capacity allows, returning
// false (without mutating the buffer) if it does not.
func (b *Buffer) Extend(n int) bool {
	curLen := len(b.B)
	if cap(b.B)-curLen < n {
		return false
	}
	b.B = b.B[:curLen+n]

	return true
}

// ExtendOrGrow extends the buffer by n bytes, reallocating if necessary.
func (b *Buffer) ExtendOrGrow(n int) {
	if b.Extend(n) {
		return
	}

	start := len(b.B)
	b.Grow(n)
	b.B = b.B[:start+n]
}

// BufferPool pools Buffers of a common default size, discarding buffers
// whose capacity grew past maxThreshold instead of retaining them.
type BufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewBufferPool creates a pool whose buffers start at defaultSize.
func NewBufferPool(defaultSize, maxThreshold int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any { return NewBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a Buffer from the pool.
func (p *BufferPool) Get() *Buffer {
	bb, _ := p.pool.Get().(*Buffer)
	return bb
}

// Put returns a Buffer to the pool, discarding it if it grew too large.
func (p *BufferPool) Put(bb *Buffer) {
	if bb == nil {
		return
	}
	if p.maxThreshold > 0 && cap(bb.B) > p.maxThreshold {
		return
	}
	bb.Reset()
	p.pool.Put(bb)
}

var (
	streamPool = NewBufferPool(StreamBufferDefaultSize, StreamBufferMaxThreshold)
	blockPool  = NewBufferPool(BlockBufferDefaultSize, BlockBufferMaxThreshold)
)

// GetStreamBuffer retrieves a Buffer sized for a single codec substream
// (IDS, SEQ, QUAL or AUX).
func GetStreamBuffer() *Buffer { return streamPool.Get() }

// PutStreamBuffer returns a substream Buffer to its pool.
func PutStreamBuffer(b *Buffer) { streamPool.Put(b) }

// GetBlockBuffer retrieves a Buffer sized for an assembled block (the
// concatenation of all four substreams).
func GetBlockBuffer() *Buffer { return blockPool.Get() }

// PutBlockBuffer returns a block-sized Buffer to its pool.
func PutBlockBuffer(b *Buffer) { blockPool.Put(b) }
