package bitio

import "encoding/binary"

// All multi-byte archive fields are little-endian (spec §4.1); these are
// thin, allocation-free wrappers around encoding/binary so call sites read
// in terms of the archive's field widths rather than raw binary.* calls.

// PutUint16 writes v into buf[0:2] little-endian.
func PutUint16(buf []byte, v uint16) { binary.LittleEndian.PutUint16(buf, v) }

// PutUint32 writes v into buf[0:4] little-endian.
func PutUint32(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }

// PutUint64 writes v into buf[0:8] little-endian.
func PutUint64(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf, v) }

// Uint16 reads a little-endian uint16 from buf[0:2].
func Uint16(buf []byte) uint16 { return binary.LittleEndian.Uint16(buf) }

// Uint32 reads a little-endian uint32 from buf[0:4].
func Uint32(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf) }

// Uint64 reads a little-endian uint64 from buf[0:8].
func Uint64(buf []byte) uint64 { return binary.LittleEndian.Uint64(buf) }

// AppendUint16 appends the little-endian encoding of v to buf.
func AppendUint16(buf []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(buf, v) }

// AppendUint32 appends the little-endian encoding of v to buf.
func AppendUint32(buf []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(buf, v) }

// AppendUint64 appends the little-endian encoding of v to buf.
func AppendUint64(buf []byte, v uint64) []byte { return binary.LittleEndian.AppendUint64(buf, v) }
