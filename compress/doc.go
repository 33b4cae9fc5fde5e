// Package compress provides the general-purpose compression codecs used as
// the second stage of every fqc substream: the domain encoders (C3-C5)
// exploit structure first (tokenization, delta, consensus/noise split,
// context-mixed arithmetic coding), then this package squeezes residual
// redundancy out of the resulting byte stream.
//
// # Algorithms
//
//   - NoOp — RAW family (0x0): bypass, available through New/Get; none of
//     the fqc codecs selects it on its own.
//   - Zstd — DELTA_ZSTD (ids, 0x4) and ZSTD_PLAIN (seq fallback, 0x7); also
//     the default wrap stage for the quality codec's arithmetic-coded bytes
//     and for Exact/Tokenize-mode identifier payloads (spec §4.3).
//   - LZMA — DELTA_LZMA (ids, 0x3): higher ratio, slower, selected only
//     when idcodec.Config.PreferLZMA is set.
//   - S2 — opt-in fast path for `streaming_mode` under the ZSTD_PLAIN
//     sequence family (0x7), recorded in that tag's version nibble,
//     trading ratio for throughput on the hot ingestion path.
//   - LZ4 — EXTERNAL family (0xE) opt-in very-fast path for aux streams
//     that are already low-entropy (delta+varint lengths).
//
// # Interfaces
//
//	type Compressor interface { Compress(data []byte) ([]byte, error) }
//	type Decompressor interface { Decompress(data []byte) ([]byte, error) }
//	type Codec interface { Compressor; Decompressor }
//
// Every codec below is stateless and safe for concurrent use; pipeline
// workers (C10) share a single Codec instance per algorithm rather than
// allocating one per block.
package compress
