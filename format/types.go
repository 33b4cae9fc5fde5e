// Package format holds the archive's wire-level vocabulary: the codec tag
// byte shared by every block substream, and the length class that governs
// codec selection and block sizing for the lifetime of an archive.
package format

// CodecTag is a byte with high nibble = family, low nibble = version.
// Readers treat an unknown family as a hard error (block.Decompress rejects
// a block whose tags fail KnownFamily). The version nibble is not compared
// against a newest-known version and no warning is reported; under
// FamilyZstdPlain and FamilyExternal it selects the general compressor, so
// a value that names no compress.Algorithm fails decoding.
type CodecTag uint8

// Family extracts the high-nibble codec family.
func (t CodecTag) Family() CodecTag { return t & 0xF0 }

// Version extracts the low-nibble codec version.
func (t CodecTag) Version() uint8 { return uint8(t & 0x0F) }

const (
	// FamilyRaw stores a substream uncompressed.
	FamilyRaw CodecTag = 0x00
	// FamilyABC is the assembly-based sequence codec (short reads).
	FamilyABC CodecTag = 0x10
	// FamilySCM is the statistical context-mixing quality codec.
	FamilySCM CodecTag = 0x20
	// FamilyDeltaLZMA is the delta-tokenized identifier codec, LZMA-backed.
	FamilyDeltaLZMA CodecTag = 0x30
	// FamilyDeltaZstd is the delta-tokenized identifier codec, Zstd-backed.
	FamilyDeltaZstd CodecTag = 0x40
	// FamilyDeltaVarint is the aux (read-length) stream codec.
	FamilyDeltaVarint CodecTag = 0x50
	// FamilyOverlap is the optional overlap-graph long-read sequence codec.
	FamilyOverlap CodecTag = 0x60
	// FamilyZstdPlain is the general-compressor sequence fallback
	// (medium/long reads that don't use FamilyABC or FamilyOverlap).
	FamilyZstdPlain CodecTag = 0x70
	// FamilySCMOrder1 tags the quality codec at context order 1 or 2.
	FamilySCMOrder1 CodecTag = 0x80
	// FamilyExternal wraps a substream with an opt-in fast general
	// compressor (S2 or LZ4) chosen independently of the domain codec.
	FamilyExternal CodecTag = 0xE0
	// FamilyReserved is never produced by this implementation; readers
	// must treat it as a hard error like any other unknown family.
	FamilyReserved CodecTag = 0xF0
)

// Tag builds a CodecTag from a family constant and a version nibble.
func Tag(family CodecTag, version uint8) CodecTag {
	return family | CodecTag(version&0x0F)
}

// KnownFamily reports whether family is one this implementation understands.
// family must already be masked to the high nibble (see Family).
func KnownFamily(family CodecTag) bool {
	switch family {
	case FamilyRaw, FamilyABC, FamilySCM, FamilyDeltaLZMA, FamilyDeltaZstd,
		FamilyDeltaVarint, FamilyOverlap, FamilyZstdPlain, FamilySCMOrder1, FamilyExternal:
		return true
	default:
		return false
	}
}

func (t CodecTag) String() string {
	switch t.Family() {
	case FamilyRaw:
		return "Raw"
	case FamilyABC:
		return "ABC"
	case FamilySCM:
		return "SCM"
	case FamilyDeltaLZMA:
		return "DeltaLZMA"
	case FamilyDeltaZstd:
		return "DeltaZstd"
	case FamilyDeltaVarint:
		return "DeltaVarint"
	case FamilyOverlap:
		return "Overlap"
	case FamilyZstdPlain:
		return "ZstdPlain"
	case FamilySCMOrder1:
		return "SCMOrder1"
	case FamilyExternal:
		return "External"
	default:
		return "Unknown"
	}
}

// LengthClass is derived once per archive from a sample of input read
// lengths and governs codec selection and block sizing for its lifetime.
type LengthClass uint8

const (
	// LengthShort: max <= 511 and median < 1024.
	LengthShort LengthClass = iota
	// LengthMedium: max <= 10240 and (max > 511 or median >= 1024).
	LengthMedium
	// LengthLong: everything else.
	LengthLong
)

func (c LengthClass) String() string {
	switch c {
	case LengthShort:
		return "short"
	case LengthMedium:
		return "medium"
	case LengthLong:
		return "long"
	default:
		return "unknown"
	}
}

// ClassifyLengths derives the archive's length class from the max and
// median of a sample of read lengths, per spec §3.
func ClassifyLengths(max, median int) LengthClass {
	if max <= 511 && median < 1024 {
		return LengthShort
	}
	if max <= 10240 {
		return LengthMedium
	}

	return LengthLong
}
