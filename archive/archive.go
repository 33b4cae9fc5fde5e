// Package archive implements the on-disk container (C8): magic/version,
// global header, a sequence of compressed blocks, an optional reorder map,
// a trailing block index, and a fixed footer with a global checksum.
// Writes are atomic via a temp-file-then-rename discipline.
package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/internal/bitio"
)

// Writer assembles an archive incrementally and commits it atomically.
type Writer struct {
	file       *os.File
	buf        *bufio.Writer
	hash       *bitio.ChecksumWriter
	out        io.Writer
	offset     int64
	tmpPath    string
	targetPath string
	index      BlockIndex
	committed  bool
	aborted    bool
}

// Create opens <target>.tmp and writes the Magic/Version/GlobalHeader
// prefix (spec §4.8).
func Create(targetPath string, header GlobalHeader) (*Writer, error) {
	tmpPath := targetPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, errs.Wrap(errs.Io, "archive: create temp file", err)
	}

	w := &Writer{
		file:       f,
		buf:        bufio.NewWriter(f),
		hash:       bitio.NewChecksumWriter(),
		tmpPath:    tmpPath,
		targetPath: targetPath,
	}
	w.out = io.MultiWriter(w.buf, w.hash)

	if err := w.writeRaw(Magic[:]); err != nil {
		_ = w.Abort()
		return nil, err
	}
	if err := w.writeRaw([]byte{byte(CurrentVersion)}); err != nil {
		_ = w.Abort()
		return nil, err
	}
	if err := w.writeRaw(header.Encode()); err != nil {
		_ = w.Abort()
		return nil, err
	}

	return w, nil
}

func (w *Writer) writeRaw(b []byte) error {
	n, err := w.out.Write(b)
	w.offset += int64(n)
	if err != nil {
		return errs.Wrap(errs.Io, "archive: write", err)
	}
	return nil
}

// WriteBlock appends one block's header and compressed payload, recording
// its index entry. headerSize/CompressedSize in bh must already reflect
// the payload's true length.
func (w *Writer) WriteBlock(bh BlockHeader, payload []byte, archiveIDStart uint64) error {
	entryOffset := uint64(w.offset) //nolint:gosec

	headerBytes := bh.Encode()
	if err := w.writeRaw(headerBytes); err != nil {
		return err
	}
	if err := w.writeRaw(payload); err != nil {
		return err
	}

	w.index.Entries = append(w.index.Entries, IndexEntry{
		Offset:         entryOffset,
		CompressedSize: uint64(len(headerBytes) + len(payload)), //nolint:gosec
		ArchiveIDStart: archiveIDStart,
		ReadCount:      bh.UncompressedCount,
	})

	return nil
}

// Commit writes the optional reorder map, the block index, and the footer,
// then renames the temp file into place. reorderMap may be nil when
// reordering is disabled.
func (w *Writer) Commit(reorderMap []byte) error {
	var reorderOffset uint64
	if len(reorderMap) > 0 {
		reorderOffset = uint64(w.offset) //nolint:gosec
		if err := w.writeRaw(reorderMap); err != nil {
			_ = w.Abort()
			return err
		}
	}

	indexOffset := uint64(w.offset) //nolint:gosec
	if err := w.writeRaw(w.index.Encode()); err != nil {
		_ = w.Abort()
		return err
	}

	footer := Footer{
		IndexOffset:      indexOffset,
		ReorderMapOffset: reorderOffset,
		GlobalChecksum:   w.hash.Sum64(),
	}
	// The footer itself is outside the checksummed range (spec §4.8: "every
	// byte from file start up to (but not including) the Footer"), so it
	// bypasses the hashing writer.
	if _, err := w.buf.Write(footer.Encode()); err != nil {
		_ = w.Abort()
		return errs.Wrap(errs.Io, "archive: write footer", err)
	}

	if err := w.buf.Flush(); err != nil {
		_ = w.Abort()
		return errs.Wrap(errs.Io, "archive: flush", err)
	}
	if err := w.file.Sync(); err != nil {
		_ = w.Abort()
		return errs.Wrap(errs.Io, "archive: sync", err)
	}
	if err := w.file.Close(); err != nil {
		return errs.Wrap(errs.Io, "archive: close temp file", err)
	}
	if err := os.Rename(w.tmpPath, w.targetPath); err != nil {
		return errs.Wrap(errs.Io, "archive: rename into place", err)
	}

	w.committed = true

	return nil
}

// Abort closes and removes the temp file; a no-op once committed. Callers
// invoke this on cancellation so a dropped writer never leaves a partial
// file at the target path (spec §4.8 atomic-write rule).
func (w *Writer) Abort() error {
	if w.committed || w.aborted {
		return nil
	}
	w.aborted = true

	_ = w.file.Close()

	if err := os.Remove(w.tmpPath); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.Io, "archive: remove temp file", err)
	}

	return nil
}

// Reader provides random-access reads over a committed archive.
type Reader struct {
	data       []byte
	version    Version
	header     GlobalHeader
	blocksEnd  int
	index      BlockIndex
	reorderMap []byte
	footer     Footer
}

// Open loads path fully into memory (archives are expected to be read by a
// seekable, randomly-addressable decoder per spec §4.6/§4.9), validates the
// magic/version/footer, and verifies the global checksum.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, errs.Wrap(errs.Io, "archive: open", err)
	}

	return OpenBytes(data)
}

// OpenBytes parses an already-loaded archive image.
func OpenBytes(data []byte) (*Reader, error) {
	if len(data) < 8+1+FooterSize {
		return nil, errs.New(errs.Format, "archive: file too small")
	}
	if !bytes.Equal(data[:8], Magic[:]) {
		return nil, errs.New(errs.Format, "archive: bad magic")
	}

	version := Version(data[8])
	pos := 9

	header, headerSize, err := DecodeGlobalHeader(data[pos:])
	if err != nil {
		return nil, err
	}
	pos += headerSize

	footerBytes := data[len(data)-FooterSize:]
	footer, err := DecodeFooter(footerBytes)
	if err != nil {
		return nil, err
	}

	if footer.IndexOffset > uint64(len(data)-FooterSize) {
		return nil, errs.New(errs.Format, "archive: index_offset out of range")
	}
	indexBytes := data[footer.IndexOffset : len(data)-FooterSize]
	index, err := DecodeBlockIndex(indexBytes)
	if err != nil {
		return nil, err
	}

	var reorderMap []byte
	if footer.ReorderMapOffset != 0 {
		if footer.ReorderMapOffset > footer.IndexOffset {
			return nil, errs.New(errs.Format, "archive: reorder_map_offset out of range")
		}
		reorderMap = data[footer.ReorderMapOffset:footer.IndexOffset]
	}

	computed := bitio.Checksum(data[:len(data)-FooterSize])
	if computed != footer.GlobalChecksum {
		return nil, errs.New(errs.ChecksumMismatch, fmt.Sprintf("archive: global checksum mismatch (want %x, got %x)", footer.GlobalChecksum, computed))
	}

	return &Reader{
		data:       data,
		version:    version,
		header:     header,
		blocksEnd:  pos,
		index:      index,
		reorderMap: reorderMap,
		footer:     footer,
	}, nil
}

func (r *Reader) Version() Version           { return r.version }
func (r *Reader) GlobalHeader() GlobalHeader { return r.header }
func (r *Reader) NumBlocks() int             { return len(r.index.Entries) }
func (r *Reader) IndexEntry(i int) IndexEntry { return r.index.Entries[i] }

// ReorderMap returns the raw reorder map bytes and whether one is present.
func (r *Reader) ReorderMap() ([]byte, bool) {
	return r.reorderMap, r.header.Flags.HasReorderMap()
}

// Block returns the decoded header and compressed payload for block i.
func (r *Reader) Block(i int) (BlockHeader, []byte, error) {
	if i < 0 || i >= len(r.index.Entries) {
		return BlockHeader{}, nil, errs.New(errs.Usage, "archive: block index out of range")
	}

	entry := r.index.Entries[i]
	end := entry.Offset + entry.CompressedSize
	if end > uint64(len(r.data)) { //nolint:gosec
		return BlockHeader{}, nil, errs.New(errs.Format, "archive: block entry out of range").WithBlock(uint32(i)) //nolint:gosec
	}

	raw := r.data[entry.Offset:end]
	bh, headerSize, err := DecodeBlockHeader(raw)
	if err != nil {
		return BlockHeader{}, nil, err
	}

	return bh, raw[headerSize:], nil
}
