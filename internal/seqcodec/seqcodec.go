package seqcodec

import (
	"fmt"

	"github.com/fqcompress/fqc/compress"
	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/format"
)

// Config controls sequence encoding.
type Config struct {
	// EnableOverlapCodec opts into OVERLAP_V1 for LONG blocks; default off
	// (spec §4.5: "must be gated by an explicit config flag").
	EnableOverlapCodec bool

	// Fast swaps ZSTD_PLAIN's general compressor from Zstd to S2 for
	// MEDIUM/LONG reads, trading ratio for the lower per-call latency
	// streaming_mode favors.
	Fast bool
}

// Encode dispatches on class to ABC_V1 (SHORT), ZSTD_PLAIN (MEDIUM/LONG,
// default), or OVERLAP_V1 (LONG, opt-in), returning the block-level codec
// tag and payload.
func Encode(seqs [][]byte, class format.LengthClass, cfg Config) (format.CodecTag, []byte, error) {
	switch class {
	case format.LengthShort:
		payload, err := encodeABC(seqs)
		if err != nil {
			return 0, nil, fmt.Errorf("seqcodec: %w", err)
		}
		return format.FamilyABC, payload, nil

	case format.LengthLong:
		if cfg.EnableOverlapCodec {
			payload, err := encodeOverlap(seqs)
			if err != nil {
				return 0, nil, fmt.Errorf("seqcodec: %w", err)
			}
			return format.FamilyOverlap, payload, nil
		}
		fallthrough

	case format.LengthMedium:
		algo := compress.AlgorithmZstd
		if cfg.Fast {
			algo = compress.AlgorithmS2
		}
		payload, err := encodeZstdPlain(seqs, algo)
		if err != nil {
			return 0, nil, fmt.Errorf("seqcodec: %w", err)
		}
		return format.Tag(format.FamilyZstdPlain, uint8(algo)), payload, nil

	default:
		return 0, nil, errs.New(errs.Internal, fmt.Sprintf("seqcodec: unknown length class %d", class))
	}
}

// Decode reverses Encode given the per-read lengths observed in block
// order (uniform_read_length or the aux stream).
func Decode(tag format.CodecTag, payload []byte, readLens []int) ([][]byte, error) {
	switch tag.Family() {
	case format.FamilyABC:
		return decodeABC(payload, readLens)
	case format.FamilyOverlap:
		return decodeOverlap(payload, readLens)
	case format.FamilyZstdPlain:
		return decodeZstdPlain(payload, len(readLens), compress.Algorithm(tag.Version()))
	default:
		if !format.KnownFamily(tag.Family()) {
			return nil, errs.New(errs.Format, fmt.Sprintf("seqcodec: unknown codec family %#x", tag.Family()))
		}
		return nil, errs.New(errs.UnsupportedCodec, fmt.Sprintf("seqcodec: codec family %s not handled by this decoder", tag))
	}
}
