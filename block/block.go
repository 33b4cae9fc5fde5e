// Package block implements the block compressor/decompressor (C9): it
// assembles one block's IDS/SEQ/QUAL/AUX substreams, concatenates their
// compressed forms, and computes the logical-byte checksum the archive
// container stores per block.
package block

import (
	"fmt"
	"strings"

	"github.com/fqcompress/fqc/archive"
	"github.com/fqcompress/fqc/compress"
	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/format"
	"github.com/fqcompress/fqc/internal/bitio"
	"github.com/fqcompress/fqc/internal/idcodec"
	"github.com/fqcompress/fqc/internal/pool"
	"github.com/fqcompress/fqc/internal/qualcodec"
	"github.com/fqcompress/fqc/internal/seqcodec"
	"github.com/fqcompress/fqc/record"
)

// Config bundles the per-substream codec configurations for one archive.
type Config struct {
	ID   idcodec.Config
	Qual qualcodec.Config
	Seq  seqcodec.Config

	// Fast wraps the aux (read-length) stream with the EXTERNAL family's
	// LZ4 codec instead of leaving it as raw delta+varint bytes. Intended
	// for streaming_mode archives, where the aux stream is written and
	// read far more often relative to its size than in a batch archive,
	// so a cheap extra pass pays for itself even at LZ4's modest ratio.
	Fast bool
}

// Compressed is one block's encoded form, ready to be appended to an
// archive.Writer.
type Compressed struct {
	Header  archive.BlockHeader
	Payload []byte
}

// Compress assembles reads (already sliced to one block's extent) into
// its IDS/SEQ/QUAL/AUX substreams, in that order, and computes the
// block's checksum over the uncompressed logical bytes (spec §4.9).
// archiveIDStart is the block's first read's position in archive order; it
// is only consulted when cfg.ID.Discard is set, so the checksum is
// computed over the same synthesized ids Decompress will reconstruct
// rather than the original, unstored ones.
func Compress(reads []record.Record, blockID uint32, archiveIDStart uint64, class format.LengthClass, cfg Config) (Compressed, error) {
	ids, releaseIDs := pool.GetStringSlice(len(reads))
	defer releaseIDs()
	seqs := make([][]byte, len(reads))
	quals := make([]string, len(reads))
	lens := make([]int, len(reads))

	for i, r := range reads {
		ids[i] = r.ID
		seqs[i] = r.Seq
		quals[i] = r.Qual
		lens[i] = len(r.Seq)
	}

	uniform, auxBytes, auxTag, err := planLengths(lens, cfg.Fast)
	if err != nil {
		return Compressed{}, fmt.Errorf("block: aux: %w", err)
	}

	idTag, idPayload, err := idcodec.Encode(ids, cfg.ID)
	if err != nil {
		return Compressed{}, fmt.Errorf("block: ids: %w", err)
	}

	seqTag, seqPayload, err := seqcodec.Encode(seqs, class, cfg.Seq)
	if err != nil {
		return Compressed{}, fmt.Errorf("block: seq: %w", err)
	}

	qualTag, qualPayload, err := qualcodec.Encode(quals, cfg.Qual)
	if err != nil {
		return Compressed{}, fmt.Errorf("block: qual: %w", err)
	}

	checksumIDs := ids
	if cfg.ID.Discard {
		synthesized, err := idcodec.Synthesize(idPayload, len(reads), archiveIDStart)
		if err != nil {
			return Compressed{}, fmt.Errorf("block: discard checksum: %w", err)
		}
		checksumIDs = synthesized
	}

	checksum := logicalChecksum(checksumIDs, seqs, quals, lens)

	var buf []byte
	buf = append(buf, idPayload...)
	buf = append(buf, seqPayload...)
	buf = append(buf, qualPayload...)
	buf = append(buf, auxBytes...)

	header := archive.BlockHeader{
		BlockID:           blockID,
		ChecksumType:      archive.ChecksumXXHash64,
		CodecIDs:          idTag,
		CodecSeq:          seqTag,
		CodecQual:         qualTag,
		CodecAux:          auxTag,
		BlockXXHash64:     checksum,
		UncompressedCount: uint32(len(reads)), //nolint:gosec
		UniformReadLength: uniform,
		CompressedSize:    uint64(len(buf)), //nolint:gosec
		OffsetIDs:         0,
		SizeIDs:           uint64(len(idPayload)), //nolint:gosec
		OffsetSeq:         uint64(len(idPayload)), //nolint:gosec
		SizeSeq:           uint64(len(seqPayload)), //nolint:gosec
		OffsetQual:        uint64(len(idPayload) + len(seqPayload)), //nolint:gosec
		SizeQual:          uint64(len(qualPayload)),                //nolint:gosec
		OffsetAux:         uint64(len(idPayload) + len(seqPayload) + len(qualPayload)), //nolint:gosec
		SizeAux:           uint64(len(auxBytes)),                                       //nolint:gosec
	}

	return Compressed{Header: header, Payload: buf}, nil
}

// Decompress reverses Compress, validating the block checksum after
// reconstruction (spec §4.9). A mismatch is reported as ChecksumMismatch
// with the block id attached, rather than panicking or silently accepting
// corrupted data. archiveIDStart is the block's first read's position in
// archive order, needed to synthesize ids for Discard-mode (CodecIDs'
// family is format.FamilyRaw) blocks.
func Decompress(header archive.BlockHeader, payload []byte, archiveIDStart uint64) ([]record.Record, error) {
	if uint64(len(payload)) < header.OffsetAux+header.SizeAux { //nolint:gosec
		return nil, errs.New(errs.Format, "block: payload shorter than declared substream sizes").WithBlock(header.BlockID)
	}

	for _, tag := range []format.CodecTag{header.CodecIDs, header.CodecSeq, header.CodecQual, header.CodecAux} {
		if !format.KnownFamily(tag.Family()) {
			return nil, errs.New(errs.Format, fmt.Sprintf("block: unknown codec family %#x", uint8(tag.Family()))).WithBlock(header.BlockID)
		}
	}

	idPayload := payload[header.OffsetIDs : header.OffsetIDs+header.SizeIDs]
	seqPayload := payload[header.OffsetSeq : header.OffsetSeq+header.SizeSeq]
	qualPayload := payload[header.OffsetQual : header.OffsetQual+header.SizeQual]
	auxPayload := payload[header.OffsetAux : header.OffsetAux+header.SizeAux]

	count := int(header.UncompressedCount)

	lens, err := decodeLengths(header.UniformReadLength, header.CodecAux, auxPayload, count)
	if err != nil {
		return nil, errs.Wrap(errs.Format, "block: aux lengths", err).WithBlock(header.BlockID)
	}

	var ids []string
	if header.CodecIDs.Family() == format.FamilyRaw {
		ids, err = idcodec.Synthesize(idPayload, count, archiveIDStart)
	} else {
		ids, err = idcodec.Decode(header.CodecIDs, idPayload, count)
	}
	if err != nil {
		return nil, errs.Wrap(errs.Format, "block: ids", err).WithBlock(header.BlockID)
	}

	seqs, err := seqcodec.Decode(header.CodecSeq, seqPayload, lens)
	if err != nil {
		return nil, errs.Wrap(errs.Format, "block: seq", err).WithBlock(header.BlockID)
	}

	quals, err := qualcodec.Decode(header.CodecQual, qualPayload, lens)
	if err != nil {
		return nil, errs.Wrap(errs.Format, "block: qual", err).WithBlock(header.BlockID)
	}

	if len(ids) != count || len(seqs) != count || len(quals) != count {
		return nil, errs.New(errs.Corrupted, "block: substream counts disagree").WithBlock(header.BlockID)
	}

	checksum := logicalChecksum(ids, seqs, quals, lens)
	if checksum != header.BlockXXHash64 {
		return nil, errs.New(errs.ChecksumMismatch, fmt.Sprintf("block: checksum mismatch (want %x, got %x)", header.BlockXXHash64, checksum)).WithBlock(header.BlockID)
	}

	out := make([]record.Record, count)
	for i := 0; i < count; i++ {
		out[i] = record.Record{ID: ids[i], Seq: seqs[i], Qual: quals[i]}
	}

	return out, nil
}

// planLengths decides between a uniform read length (omitting the aux
// stream entirely) and a delta+varint length stream (spec §4.9). When fast
// is set and the stream isn't uniform, the delta+varint bytes are wrapped
// with the EXTERNAL family's LZ4 codec (format.FamilyExternal) instead of
// being left raw, trading a little ratio for cheap CPU on the streaming
// path where the aux stream is read back far more often per byte written.
func planLengths(lens []int, fast bool) (uniform uint32, aux []byte, tag format.CodecTag, err error) {
	if len(lens) == 0 {
		return 0, nil, format.Tag(format.FamilyDeltaVarint, 1), nil
	}

	first := lens[0]
	allSame := true
	for _, l := range lens {
		if l != first {
			allSame = false
			break
		}
	}

	if allSame {
		return uint32(first), nil, format.Tag(format.FamilyDeltaVarint, 1), nil //nolint:gosec
	}

	u64s, release := pool.GetUint64Slice(len(lens))
	defer release()
	for i, l := range lens {
		u64s[i] = uint64(l) //nolint:gosec
	}

	raw := bitio.EncodeDeltaVarint(u64s)
	if !fast {
		return 0, raw, format.Tag(format.FamilyDeltaVarint, 1), nil
	}

	lz4, err := compress.Get(compress.AlgorithmLZ4)
	if err != nil {
		return 0, nil, 0, err
	}

	wrapped, err := lz4.Compress(raw)
	if err != nil {
		return 0, nil, 0, err
	}

	return 0, wrapped, format.Tag(format.FamilyExternal, uint8(compress.AlgorithmLZ4)), nil
}

func decodeLengths(uniform uint32, tag format.CodecTag, aux []byte, count int) ([]int, error) {
	if uniform != 0 {
		lens := make([]int, count)
		for i := range lens {
			lens[i] = int(uniform)
		}
		return lens, nil
	}

	raw := aux
	if tag.Family() == format.FamilyExternal {
		codec, err := compress.Get(compress.Algorithm(tag.Version()))
		if err != nil {
			return nil, err
		}

		raw, err = codec.Decompress(aux)
		if err != nil {
			return nil, err
		}
	}

	u64s, err := bitio.DecodeDeltaVarint(raw, count)
	if err != nil {
		return nil, err
	}

	lens := make([]int, count)
	for i, v := range u64s {
		lens[i] = int(v)
	}

	return lens, nil
}

// logicalChecksum hashes ids (newline-joined), then sequences, then
// qualities, then decoded lengths, in that exact order (spec §4.9), so an
// encoder and a decoder that reconstruct the same logical reads agree on
// the checksum regardless of substream compression choices.
func logicalChecksum(ids []string, seqs [][]byte, quals []string, lens []int) uint64 {
	idBlob := []byte(strings.Join(ids, "\n"))

	var seqBlob []byte
	for _, s := range seqs {
		seqBlob = append(seqBlob, s...)
	}

	qualBlob := []byte(strings.Join(quals, ""))

	lenBytes := make([]byte, 0, len(lens)*4)
	for _, l := range lens {
		lenBytes = bitio.AppendUint32(lenBytes, uint32(l)) //nolint:gosec
	}

	return bitio.ChecksumAll(idBlob, seqBlob, qualBlob, lenBytes)
}
