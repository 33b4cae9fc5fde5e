// Package reorder implements the reorder map (C7): the forward/reverse
// permutation arrays linking original input order to archive storage
// order, with delta-varint serialization and an inverse consistency check.
package reorder

import (
	"fmt"

	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/internal/bitio"
)

// headerVersion is the reorder map's own format version, independent of
// the archive container version (spec §4.7).
const headerVersion = 1

// Map holds both permutation directions. Forward[originalID] = archiveID;
// Reverse[archiveID] = originalID. When reordering is disabled, both are
// nil and ReadId == OriginalId implicitly (spec §3).
type Map struct {
	Forward []uint64
	Reverse []uint64
}

// Identity reports whether m represents the no-reordering case.
func (m *Map) Identity() bool {
	return m == nil || (len(m.Forward) == 0 && len(m.Reverse) == 0)
}

// Verify checks the invariant reverse[forward[i]] == i for all i (spec
// §3/§4.7); a mismatch is reported as Corrupted, never panicked.
func (m *Map) Verify() error {
	n := len(m.Forward)
	if len(m.Reverse) != n {
		return errs.New(errs.Corrupted, fmt.Sprintf("reorder map: forward/reverse length mismatch (%d vs %d)", n, len(m.Reverse)))
	}

	for i, archiveID := range m.Forward {
		if int(archiveID) >= n {
			return errs.New(errs.Corrupted, fmt.Sprintf("reorder map: forward[%d]=%d out of range", i, archiveID))
		}
		if int(m.Reverse[archiveID]) != i {
			return errs.New(errs.Corrupted, fmt.Sprintf("reorder map: reverse[forward[%d]]=%d, want %d", i, m.Reverse[archiveID], i))
		}
	}

	return nil
}

// FromReverse derives Forward by inverting a reverse array (spec §4.6 step
// 4: "Derive forward by inversion").
func FromReverse(reverse []uint64) *Map {
	forward := make([]uint64, len(reverse))
	for archiveID, originalID := range reverse {
		forward[originalID] = uint64(archiveID) //nolint:gosec
	}

	return &Map{Forward: forward, Reverse: reverse}
}

// Encode serializes m per spec §4.7:
// [header_size u32][version u32][total_reads u64][forward_size u64]
// [reverse_size u64][forward bytes][reverse bytes].
func Encode(m *Map) []byte {
	forwardBytes := bitio.EncodeDeltaVarint(m.Forward)
	reverseBytes := bitio.EncodeDeltaVarint(m.Reverse)

	const headerSize = 4 + 4 + 8 + 8 + 8

	out := make([]byte, 0, headerSize+len(forwardBytes)+len(reverseBytes))
	out = bitio.AppendUint32(out, uint32(headerSize))
	out = bitio.AppendUint32(out, headerVersion)
	out = bitio.AppendUint64(out, uint64(len(m.Forward)))
	out = bitio.AppendUint64(out, uint64(len(forwardBytes)))
	out = bitio.AppendUint64(out, uint64(len(reverseBytes)))
	out = append(out, forwardBytes...)
	out = append(out, reverseBytes...)

	return out
}

// Decode reverses Encode and verifies the inverse-permutation invariant.
func Decode(data []byte) (*Map, error) {
	if len(data) < 4 {
		return nil, errs.New(errs.Format, "reorder map: truncated header")
	}

	headerSize := bitio.Uint32(data)
	if len(data) < int(headerSize) {
		return nil, errs.New(errs.Format, "reorder map: header_size exceeds available data")
	}
	if headerSize < 32 {
		return nil, errs.New(errs.Format, "reorder map: header_size too small")
	}

	totalReads := bitio.Uint64(data[8:])
	forwardSize := bitio.Uint64(data[16:])
	reverseSize := bitio.Uint64(data[24:])

	// Forward-compatibility: skip any bytes beyond the known fields within
	// the declared header_size (spec §4.8 forward-compatibility rule).
	body := data[headerSize:]
	if uint64(len(body)) < forwardSize+reverseSize {
		return nil, errs.New(errs.Format, "reorder map: body shorter than declared stream sizes")
	}

	forward, err := bitio.DecodeDeltaVarint(body[:forwardSize], int(totalReads))
	if err != nil {
		return nil, errs.Wrap(errs.Format, "reorder map: decode forward", err)
	}

	reverse, err := bitio.DecodeDeltaVarint(body[forwardSize:forwardSize+reverseSize], int(totalReads))
	if err != nil {
		return nil, errs.Wrap(errs.Format, "reorder map: decode reverse", err)
	}

	m := &Map{Forward: forward, Reverse: reverse}
	if err := m.Verify(); err != nil {
		return nil, err
	}

	return m, nil
}
