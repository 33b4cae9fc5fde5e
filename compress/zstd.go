package compress

// ZstdCompressor provides Zstandard compression for fqc archive substreams.
//
// It backs the ZSTD_PLAIN sequence family (medium/long reads), the
// DELTA_ZSTD identifier family, and the general-compressor wrap stage of
// the quality codec (spec §3, §4.3, §4.4, §4.5). Zstd is the archive's
// default general compressor: good ratio on the token/delta streams the
// other codecs produce, without LZMA's slower compression time.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Returns:
//   - ZstdCompressor: New Zstd compressor instance
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(data)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
