package compress

import "fmt"

// Compressor compresses a byte slice produced by one of fqc's domain
// encoders (tokenized identifiers, arithmetic-coded qualities, consensus
// sequences) into a smaller general-purpose-compressed form.
type Compressor interface {
	// Compress compresses data and returns a newly allocated result; the
	// input is never modified.
	Compress(data []byte) ([]byte, error)
}

// Decompressor is the inverse of Compressor.
type Decompressor interface {
	// Decompress decompresses data and returns a newly allocated result.
	// Returns an error if data is corrupted or was compressed by a
	// different algorithm.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// Stats carries compression outcome metrics, surfaced through the
// pipeline's Stats result rather than logged (spec §1: logging is an
// external collaborator's concern).
type Stats struct {
	Algorithm           Algorithm
	OriginalSize        int64
	CompressedSize      int64
	CompressionTimeNs   int64
	DecompressionTimeNs int64
}

// Ratio returns CompressedSize/OriginalSize; 0 if OriginalSize is 0.
func (s Stats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// Algorithm identifies which general compressor produced a substream's
// compressed bytes. It is distinct from the archive's per-family codec tag
// (spec §3): a single codec tag (e.g. DELTA_ZSTD) always implies one
// Algorithm, but Algorithm also covers the sub-choice recorded in a tag's
// version nibble: Zstd or S2 under ZSTD_PLAIN, LZ4 under EXTERNAL.
type Algorithm uint8

const (
	// AlgorithmNone performs no compression.
	AlgorithmNone Algorithm = iota
	// AlgorithmZstd is the default general compressor.
	AlgorithmZstd
	// AlgorithmLZMA backs the DELTA_LZMA identifier family.
	AlgorithmLZMA
	// AlgorithmS2 is the ZSTD_PLAIN sequence fast path for streaming_mode.
	AlgorithmS2
	// AlgorithmLZ4 is the EXTERNAL-family very-fast path for aux streams.
	AlgorithmLZ4
)

// String renders the algorithm name for diagnostics.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmZstd:
		return "zstd"
	case AlgorithmLZMA:
		return "lzma"
	case AlgorithmS2:
		return "s2"
	case AlgorithmLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// New returns the Codec implementation for algo.
func New(algo Algorithm) (Codec, error) {
	switch algo {
	case AlgorithmNone:
		return NewNoOpCompressor(), nil
	case AlgorithmZstd:
		return NewZstdCompressor(), nil
	case AlgorithmLZMA:
		return NewLZMACompressor(), nil
	case AlgorithmS2:
		return NewS2Compressor(), nil
	case AlgorithmLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("compress: unknown algorithm %d", algo)
	}
}

var builtinCodecs = map[Algorithm]Codec{
	AlgorithmNone: NewNoOpCompressor(),
	AlgorithmZstd: NewZstdCompressor(),
	AlgorithmLZMA: NewLZMACompressor(),
	AlgorithmS2:   NewS2Compressor(),
	AlgorithmLZ4:  NewLZ4Compressor(),
}

// Get retrieves the shared, stateless Codec instance for algo.
func Get(algo Algorithm) (Codec, error) {
	if codec, ok := builtinCodecs[algo]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("compress: unsupported algorithm %d", algo)
}
