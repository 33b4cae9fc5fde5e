package archive

import (
	"bytes"

	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/internal/bitio"
)

// FooterSize is the fixed 32-byte footer (spec §4.8).
const FooterSize = 8 + 8 + 8 + 8

// Footer is the archive's fixed trailer.
type Footer struct {
	IndexOffset      uint64
	ReorderMapOffset uint64 // 0 if absent
	GlobalChecksum   uint64
}

// Encode writes the 32-byte footer: index_offset, reorder_map_offset,
// global_checksum, magic_end.
func (f Footer) Encode() []byte {
	buf := make([]byte, 0, FooterSize)
	buf = bitio.AppendUint64(buf, f.IndexOffset)
	buf = bitio.AppendUint64(buf, f.ReorderMapOffset)
	buf = bitio.AppendUint64(buf, f.GlobalChecksum)
	buf = append(buf, MagicEnd[:]...)

	return buf
}

// DecodeFooter reverses Encode and validates the trailing magic sentinel.
func DecodeFooter(data []byte) (Footer, error) {
	if len(data) != FooterSize {
		return Footer{}, errs.New(errs.Format, "footer: wrong size")
	}
	if !bytes.Equal(data[24:], MagicEnd[:]) {
		return Footer{}, errs.New(errs.Format, "footer: bad magic_end sentinel")
	}

	return Footer{
		IndexOffset:      bitio.Uint64(data[0:]),
		ReorderMapOffset: bitio.Uint64(data[8:]),
		GlobalChecksum:   bitio.Uint64(data[16:]),
	}, nil
}
