package archive

import (
	"fmt"

	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/internal/bitio"
)

// Magic is the 8-byte archive signature (spec §4.8), modeled on PNG-style
// magic bytes: a non-ASCII lead byte, a mnemonic, and a CRLF/EOF sentinel
// tail that flags accidental text-mode transfer corruption.
var Magic = [8]byte{0x89, 'F', 'Q', 'C', 0x0D, 0x0A, 0x1A, 0x0A}

// MagicEnd is the Footer's trailing sentinel.
var MagicEnd = [8]byte{'F', 'Q', 'C', '_', 'E', 'O', 'F', 0}

// Version is the container format version (major<<4 | minor).
type Version uint8

func NewVersion(major, minor uint8) Version {
	return Version(major<<4 | minor&0x0F)
}

func (v Version) Major() uint8 { return uint8(v) >> 4 }
func (v Version) Minor() uint8 { return uint8(v) & 0x0F }

// CurrentVersion is written by this implementation.
const CurrentVersion = Version(0x10) // 1.0

// GlobalHeader is the archive-wide metadata block (spec §4.8).
type GlobalHeader struct {
	Flags                 Flags
	CompressionAlgoFamily uint8
	ChecksumType          uint8
	TotalReadCount        uint64
	OriginalFilename      string
	Timestamp             uint64
}

// ChecksumXXHash64 is the default checksum algorithm id.
const ChecksumXXHash64 = 0

// Encode serializes h as header_size-prefixed bytes per spec §4.8:
// header_size u32, flags u64, compression_algo_family u8, checksum_type u8,
// total_read_count u64, original_filename_len u16, filename bytes,
// timestamp u64.
func (h GlobalHeader) Encode() []byte {
	nameBytes := []byte(h.OriginalFilename)
	bodySize := 8 + 1 + 1 + 8 + 2 + len(nameBytes) + 8
	headerSize := 4 + bodySize

	buf := make([]byte, 0, headerSize)
	buf = bitio.AppendUint32(buf, uint32(headerSize)) //nolint:gosec
	buf = bitio.AppendUint64(buf, uint64(h.Flags))
	buf = append(buf, h.CompressionAlgoFamily, h.ChecksumType)
	buf = bitio.AppendUint64(buf, h.TotalReadCount)
	buf = bitio.AppendUint16(buf, uint16(len(nameBytes))) //nolint:gosec
	buf = append(buf, nameBytes...)
	buf = bitio.AppendUint64(buf, h.Timestamp)

	return buf
}

// DecodeGlobalHeader reverses Encode. Per the forward-compatibility rule
// (spec §4.8), any bytes within header_size beyond the known fields are
// skipped rather than rejected.
func DecodeGlobalHeader(data []byte) (GlobalHeader, int, error) {
	if len(data) < 4 {
		return GlobalHeader{}, 0, errs.New(errs.Format, "global header: truncated header_size")
	}

	headerSize := int(bitio.Uint32(data))
	if headerSize < 4+20 || len(data) < headerSize {
		return GlobalHeader{}, 0, errs.New(errs.Format, "global header: invalid or truncated header")
	}

	body := data[4:headerSize]
	if len(body) < 18 {
		return GlobalHeader{}, 0, errs.New(errs.Format, "global header: body too small")
	}

	var h GlobalHeader
	h.Flags = Flags(bitio.Uint64(body))
	h.CompressionAlgoFamily = body[8]
	h.ChecksumType = body[9]
	h.TotalReadCount = bitio.Uint64(body[10:])
	nameLen := int(bitio.Uint16(body[18:]))

	off := 20
	if off+nameLen+8 > len(body) {
		return GlobalHeader{}, 0, errs.New(errs.Format, "global header: filename/timestamp out of bounds")
	}
	h.OriginalFilename = string(body[off : off+nameLen])
	off += nameLen
	h.Timestamp = bitio.Uint64(body[off:])

	return h, headerSize, nil
}

func (h GlobalHeader) String() string {
	return fmt.Sprintf("GlobalHeader{reads=%d, filename=%q}", h.TotalReadCount, h.OriginalFilename)
}
