package seqcodec

import (
	"fmt"

	"github.com/fqcompress/fqc/compress"
	"github.com/fqcompress/fqc/internal/bitio"
)

// encodeZstdPlain implements the MEDIUM/LONG default: reads are
// concatenated as length-prefixed byte runs and handed to a general
// compressor (spec §4.5). No reordering or consensus modeling is applied.
// algo is normally AlgorithmZstd; streaming_mode callers pass AlgorithmS2
// for lower per-call latency at a worse ratio.
func encodeZstdPlain(seqs [][]byte, algo compress.Algorithm) ([]byte, error) {
	var raw []byte
	for _, seq := range seqs {
		raw = bitio.AppendUvarint(raw, uint64(len(seq)))
		raw = append(raw, seq...)
	}

	codec, err := compress.Get(algo)
	if err != nil {
		return nil, fmt.Errorf("seqcodec/zstdplain: %w", err)
	}

	return codec.Compress(raw)
}

func decodeZstdPlain(payload []byte, count int, algo compress.Algorithm) ([][]byte, error) {
	codec, err := compress.Get(algo)
	if err != nil {
		return nil, fmt.Errorf("seqcodec/zstdplain: %w", err)
	}

	raw, err := codec.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("seqcodec/zstdplain: decompress: %w", err)
	}

	out := make([][]byte, 0, count)
	pos := 0
	for i := 0; i < count; i++ {
		if pos >= len(raw) {
			return nil, fmt.Errorf("seqcodec/zstdplain: stream truncated at read %d", i)
		}
		l, n, err := bitio.ReadUvarint(raw[pos:])
		if err != nil {
			return nil, fmt.Errorf("seqcodec/zstdplain: read %d length: %w", i, err)
		}
		pos += n
		if pos+int(l) > len(raw) {
			return nil, fmt.Errorf("seqcodec/zstdplain: read %d bytes truncated", i)
		}
		out = append(out, append([]byte(nil), raw[pos:pos+int(l)]...))
		pos += int(l)
	}

	if pos != len(raw) {
		return nil, fmt.Errorf("seqcodec/zstdplain: %d trailing bytes", len(raw)-pos)
	}

	return out, nil
}
