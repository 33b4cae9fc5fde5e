package archive

import (
	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/internal/bitio"
)

// IndexEntry records one block's position and identity in the BlockIndex
// (spec §4.8): offset, compressed_size, archive_id_start, read_count, with
// entry_size padding for forward compatibility.
type IndexEntry struct {
	Offset         uint64
	CompressedSize uint64
	ArchiveIDStart uint64
	ReadCount      uint32
}

const indexEntryFixedSize = 8 + 8 + 8 + 4

// BlockIndex is the trailing per-block directory.
type BlockIndex struct {
	Entries []IndexEntry
}

// Encode serializes the index as header_size u32, entry_size u32,
// num_blocks u64, entries[] (spec §4.8).
func (idx BlockIndex) Encode() []byte {
	const entrySize = indexEntryFixedSize
	headerSize := 4 + 4 + 8

	buf := make([]byte, 0, headerSize+len(idx.Entries)*entrySize)
	buf = bitio.AppendUint32(buf, uint32(headerSize)) //nolint:gosec
	buf = bitio.AppendUint32(buf, uint32(entrySize))
	buf = bitio.AppendUint64(buf, uint64(len(idx.Entries)))

	for _, e := range idx.Entries {
		buf = bitio.AppendUint64(buf, e.Offset)
		buf = bitio.AppendUint64(buf, e.CompressedSize)
		buf = bitio.AppendUint64(buf, e.ArchiveIDStart)
		buf = bitio.AppendUint32(buf, e.ReadCount)
	}

	return buf
}

// DecodeBlockIndex reverses Encode. entry_size larger than the known
// constant is honored by skipping the extra bytes per entry, per the
// forward-compatibility rule (spec §4.8).
func DecodeBlockIndex(data []byte) (BlockIndex, error) {
	if len(data) < 16 {
		return BlockIndex{}, errs.New(errs.Format, "block index: truncated header")
	}

	headerSize := int(bitio.Uint32(data))
	entrySize := int(bitio.Uint32(data[4:]))
	numBlocks := bitio.Uint64(data[8:])

	if headerSize < 16 || entrySize < indexEntryFixedSize || len(data) < headerSize {
		return BlockIndex{}, errs.New(errs.Format, "block index: invalid header")
	}

	body := data[headerSize:]
	need := int(numBlocks) * entrySize
	if len(body) < need {
		return BlockIndex{}, errs.New(errs.Format, "block index: truncated entries")
	}

	entries := make([]IndexEntry, numBlocks)
	for i := range entries {
		rec := body[i*entrySize : i*entrySize+entrySize]
		entries[i] = IndexEntry{
			Offset:         bitio.Uint64(rec),
			CompressedSize: bitio.Uint64(rec[8:]),
			ArchiveIDStart: bitio.Uint64(rec[16:]),
			ReadCount:      bitio.Uint32(rec[24:]),
		}
	}

	return BlockIndex{Entries: entries}, nil
}
