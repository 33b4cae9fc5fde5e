package archive

// Flags is the packed bitfield carried in GlobalHeader.Flags (spec §4.8).
//
// Bit layout (low to high):
//
//	bit 0      paired
//	bit 1      preserve_order
//	bit 2      legacy_long_read (reserved, must be 0)
//	bits 3-4   quality_mode
//	bits 5-6   id_mode
//	bit 7      has_reorder_map
//	bits 8-9   pe_layout (meaningful only if paired)
//	bits 10-11 length_class
//	bit 12     streaming_mode
//	remainder  reserved, readers must ignore unknown bits
type Flags uint64

const (
	flagPaired         = 1 << 0
	flagPreserveOrder  = 1 << 1
	flagLegacyLongRead = 1 << 2
	flagHasReorderMap  = 1 << 7
	flagStreamingMode  = 1 << 12

	qualityModeShift = 3
	qualityModeMask  = 0b11

	idModeShift = 5
	idModeMask  = 0b11

	peLayoutShift = 8
	peLayoutMask  = 0b11

	lengthClassShift = 10
	lengthClassMask  = 0b11
)

// QualityMode enumerates the quality-stream transform selected for the
// whole archive (spec §4.4).
type QualityMode uint8

const (
	QualityLossless QualityMode = iota
	QualityIllumina8
	QualityQVZ
	QualityDiscard
)

// IDMode enumerates the identifier transform selected for the archive
// (spec §4.3).
type IDMode uint8

const (
	IDExact IDMode = iota
	IDTokenize
	IDDiscard
)

// PELayout enumerates how paired-end reads are interleaved on disk.
type PELayout uint8

const (
	PELayoutNone PELayout = iota
	PELayoutInterleaved
	PELayoutSeparateFiles
)

func (f Flags) Paired() bool        { return f&flagPaired != 0 }
func (f Flags) PreserveOrder() bool { return f&flagPreserveOrder != 0 }
func (f Flags) HasReorderMap() bool { return f&flagHasReorderMap != 0 }
func (f Flags) StreamingMode() bool { return f&flagStreamingMode != 0 }

func (f Flags) QualityMode() QualityMode {
	return QualityMode((uint64(f) >> qualityModeShift) & qualityModeMask)
}

func (f Flags) IDMode() IDMode {
	return IDMode((uint64(f) >> idModeShift) & idModeMask)
}

func (f Flags) PELayout() PELayout {
	return PELayout((uint64(f) >> peLayoutShift) & peLayoutMask)
}

func (f Flags) LengthClass() uint8 {
	return uint8((uint64(f) >> lengthClassShift) & lengthClassMask)
}

// FlagsOf assembles a Flags value from its named components. legacyLongRead
// is always cleared: spec §4.8 reserves bit 2 and requires it be 0.
func FlagsOf(paired, preserveOrder, hasReorderMap, streaming bool, qm QualityMode, im IDMode, pe PELayout, lengthClass uint8) Flags {
	var f uint64
	if paired {
		f |= flagPaired
	}
	if preserveOrder {
		f |= flagPreserveOrder
	}
	if hasReorderMap {
		f |= flagHasReorderMap
	}
	if streaming {
		f |= flagStreamingMode
	}
	f |= (uint64(qm) & qualityModeMask) << qualityModeShift
	f |= (uint64(im) & idModeMask) << idModeShift
	f |= (uint64(pe) & peLayoutMask) << peLayoutShift
	f |= (uint64(lengthClass) & lengthClassMask) << lengthClassShift
	f &^= flagLegacyLongRead

	return Flags(f)
}
