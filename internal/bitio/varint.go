package bitio

import (
	"encoding/binary"

	"github.com/fqcompress/fqc/errs"
)

// maxVarintBytes bounds a single varint at 10 bytes (enough for any uint64
// plus one bit of continuation slop); a longer run on decode is corruption,
// never a legitimate value (spec §4.1).
const maxVarintBytes = 10

// VarintLen returns the number of bytes PutUvarint would write for n.
func VarintLen(n uint64) int {
	if n == 0 {
		return 1
	}

	length := 0
	for n > 0 {
		length++
		n >>= 7
	}

	return length
}

// ZigZagEncode maps a signed value to an unsigned one so small-magnitude
// negatives stay small after varint encoding: 0,-1,1,-2,2 -> 0,1,2,3,4.
func ZigZagEncode(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63)) //nolint:gosec
}

// ZigZagDecode inverts ZigZagEncode.
func ZigZagDecode(u uint64) int64 {
	return int64(u>>1) ^ -(int64(u & 1)) //nolint:gosec
}

// AppendUvarint appends the varint encoding of v to buf and returns the
// extended slice.
func AppendUvarint(buf []byte, v uint64) []byte {
	return binary.AppendUvarint(buf, v)
}

// AppendVarint appends the zigzag+varint encoding of a signed value to buf.
func AppendVarint(buf []byte, v int64) []byte {
	return binary.AppendUvarint(buf, ZigZagEncode(v))
}

// ReadUvarint reads a single uvarint from data, returning the value and the
// number of bytes consumed. An error is returned if data is exhausted before
// the continuation bit clears, or if more than maxVarintBytes are consumed
// (spec §4.1: "Overflow (varint > 10 bytes...) is a hard error").
func ReadUvarint(data []byte) (uint64, int, error) {
	v, n := binary.Uvarint(data)
	if n == 0 {
		return 0, 0, errs.New(errs.Format, "truncated varint")
	}
	if n < 0 || n > maxVarintBytes {
		return 0, 0, errs.New(errs.Format, "varint exceeds maximum length")
	}

	return v, n, nil
}

// ReadVarint reads a single zigzag+varint encoded signed value from data.
func ReadVarint(data []byte) (int64, int, error) {
	u, n, err := ReadUvarint(data)
	if err != nil {
		return 0, 0, err
	}

	return ZigZagDecode(u), n, nil
}

// EncodeDeltaVarint encodes values as: the first value as a raw (non-zigzag)
// varint, and each subsequent value as the zigzag+varint of its signed delta
// from the previous value (spec §4.7/§4.9 aux length streams, reorder map).
func EncodeDeltaVarint(values []uint64) []byte {
	if len(values) == 0 {
		return nil
	}

	buf := make([]byte, 0, len(values)*2)
	buf = AppendUvarint(buf, values[0])

	prev := int64(values[0]) //nolint:gosec
	for _, v := range values[1:] {
		cur := int64(v) //nolint:gosec
		buf = AppendVarint(buf, cur-prev)
		prev = cur
	}

	return buf
}

// DecodeDeltaVarint decodes a stream produced by EncodeDeltaVarint, expecting
// exactly count values. A short read (fewer values than count, or leftover
// bytes when count is matched) is reported as Format corruption so
// truncation is always detected (spec P6).
func DecodeDeltaVarint(data []byte, count int) ([]uint64, error) {
	if count == 0 {
		if len(data) != 0 {
			return nil, errs.New(errs.Format, "unexpected trailing bytes in empty delta-varint stream")
		}

		return nil, nil
	}

	out := make([]uint64, count)
	offset := 0

	first, n, err := ReadUvarint(data)
	if err != nil {
		return nil, err
	}
	out[0] = first
	offset += n
	prev := int64(first) //nolint:gosec

	for i := 1; i < count; i++ {
		if offset >= len(data) {
			return nil, errs.New(errs.Format, "truncated delta-varint stream")
		}

		delta, n, err := ReadVarint(data[offset:])
		if err != nil {
			return nil, err
		}
		offset += n

		cur := prev + delta
		if cur < 0 {
			return nil, errs.New(errs.Format, "negative value after delta decode")
		}

		out[i] = uint64(cur)
		prev = cur
	}

	if offset != len(data) {
		return nil, errs.New(errs.Format, "trailing bytes after delta-varint stream")
	}

	return out, nil
}
