package archive

import (
	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/format"
	"github.com/fqcompress/fqc/internal/bitio"
)

// BlockHeader precedes every block's compressed payload (spec §4.8/§4.9).
type BlockHeader struct {
	BlockID           uint32
	ChecksumType      uint8
	CodecIDs          format.CodecTag
	CodecSeq          format.CodecTag
	CodecQual         format.CodecTag
	CodecAux          format.CodecTag
	BlockXXHash64     uint64
	UncompressedCount uint32
	UniformReadLength uint32 // 0 => variable
	CompressedSize    uint64
	OffsetIDs         uint64
	OffsetSeq         uint64
	OffsetQual        uint64
	OffsetAux         uint64
	SizeIDs           uint64
	SizeSeq           uint64
	SizeQual          uint64
	SizeAux           uint64
}

const blockHeaderFixedSize = 4 + 4 + 1 + 4 + 3 + 8 + 4 + 4 + 8 + 8*4 + 8*4

// Encode serializes the fixed-layout block header.
func (b BlockHeader) Encode() []byte {
	buf := make([]byte, 0, blockHeaderFixedSize)
	buf = bitio.AppendUint32(buf, blockHeaderFixedSize)
	buf = bitio.AppendUint32(buf, b.BlockID)
	buf = append(buf, b.ChecksumType, byte(b.CodecIDs), byte(b.CodecSeq), byte(b.CodecQual), byte(b.CodecAux))
	buf = append(buf, 0, 0, 0) // padding to a 4-byte boundary
	buf = bitio.AppendUint64(buf, b.BlockXXHash64)
	buf = bitio.AppendUint32(buf, b.UncompressedCount)
	buf = bitio.AppendUint32(buf, b.UniformReadLength)
	buf = bitio.AppendUint64(buf, b.CompressedSize)
	buf = bitio.AppendUint64(buf, b.OffsetIDs)
	buf = bitio.AppendUint64(buf, b.OffsetSeq)
	buf = bitio.AppendUint64(buf, b.OffsetQual)
	buf = bitio.AppendUint64(buf, b.OffsetAux)
	buf = bitio.AppendUint64(buf, b.SizeIDs)
	buf = bitio.AppendUint64(buf, b.SizeSeq)
	buf = bitio.AppendUint64(buf, b.SizeQual)
	buf = bitio.AppendUint64(buf, b.SizeAux)

	return buf
}

// DecodeBlockHeader reverses Encode, skipping any trailing bytes within a
// larger-than-expected header_size (forward-compatibility rule, spec §4.8).
func DecodeBlockHeader(data []byte) (BlockHeader, int, error) {
	if len(data) < 8 {
		return BlockHeader{}, 0, errs.New(errs.Format, "block header: truncated")
	}

	headerSize := int(bitio.Uint32(data))
	if headerSize < blockHeaderFixedSize || len(data) < headerSize {
		return BlockHeader{}, 0, errs.New(errs.Format, "block header: invalid header_size")
	}

	var b BlockHeader
	b.BlockID = bitio.Uint32(data[4:])
	b.ChecksumType = data[8]
	b.CodecIDs = format.CodecTag(data[9])
	b.CodecSeq = format.CodecTag(data[10])
	b.CodecQual = format.CodecTag(data[11])
	b.CodecAux = format.CodecTag(data[12])
	// data[13:16] is padding.
	b.BlockXXHash64 = bitio.Uint64(data[16:])
	b.UncompressedCount = bitio.Uint32(data[24:])
	b.UniformReadLength = bitio.Uint32(data[28:])
	b.CompressedSize = bitio.Uint64(data[32:])
	b.OffsetIDs = bitio.Uint64(data[40:])
	b.OffsetSeq = bitio.Uint64(data[48:])
	b.OffsetQual = bitio.Uint64(data[56:])
	b.OffsetAux = bitio.Uint64(data[64:])
	b.SizeIDs = bitio.Uint64(data[72:])
	b.SizeSeq = bitio.Uint64(data[80:])
	b.SizeQual = bitio.Uint64(data[88:])
	b.SizeAux = bitio.Uint64(data[96:])

	return b, headerSize, nil
}
