package bitio

import "github.com/cespare/xxhash/v2"

// ChecksumWriter streams bytes through xxHash64 as they are produced,
// matching spec §4.1's requirement that "the hash is streamed over the same
// bytes that are written so that writer and reader compute identically".
type ChecksumWriter struct {
	digest *xxhash.Digest
}

// NewChecksumWriter creates a fresh streaming xxHash64 accumulator.
func NewChecksumWriter() *ChecksumWriter {
	return &ChecksumWriter{digest: xxhash.New()}
}

// Write feeds data into the running hash. It never fails.
func (c *ChecksumWriter) Write(data []byte) (int, error) {
	return c.digest.Write(data)
}

// Sum64 returns the checksum of all bytes written so far.
func (c *ChecksumWriter) Sum64() uint64 {
	return c.digest.Sum64()
}

// Reset clears the accumulator for reuse.
func (c *ChecksumWriter) Reset() {
	c.digest.Reset()
}

// Checksum computes the xxHash64 of a single byte slice in one call,
// equivalent to writing it to a fresh ChecksumWriter and reading Sum64.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// ChecksumAll computes the streaming xxHash64 over the concatenation of
// several logical pieces without allocating the concatenation, used for the
// per-block checksum over "IDS ∥ SEQ ∥ QUAL ∥ AUX" (spec §3/§4.9). The
// global checksum (spec §4.8) is computed with ChecksumWriter and Checksum
// instead.
func ChecksumAll(parts ...[]byte) uint64 {
	w := NewChecksumWriter()
	for _, p := range parts {
		_, _ = w.Write(p)
	}

	return w.Sum64()
}
