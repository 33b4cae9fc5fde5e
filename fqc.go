// Package fqc provides a domain-specific archive engine for short/long
// biological read files (FASTQ): lossless-or-configurably-lossy
// compression with block-granular random access.
//
// # Core Features
//
//   - Columnar per-block compression: identifiers, sequences, and quality
//     scores are each routed to the codec suited to their statistics.
//   - Archive-wide greedy reordering of short reads into assembly-friendly
//     neighborhoods, reversible via a compact reorder map.
//   - A seekable, forward-compatible container format with per-block
//     checksums, a trailing block index, and an archive-wide checksum.
//   - Block-granular random access: range decompression by archive
//     position or by original read order.
//
// # Basic Usage
//
//	src := fqc.NewSliceSource(records)
//	stats, err := fqc.Compress(context.Background(), src, "reads.fqc",
//	    fqc.WithReorder(true),
//	    fqc.WithThreads(4),
//	)
//
//	out, _, err := fqc.Decompress(context.Background(), "reads.fqc", fqc.AllReads())
//
// # Package Structure
//
// This package is a thin top-level wrapper around archive, block,
// pipeline, and the internal analyzer/reorder/*codec packages. For
// fine-grained control over any one stage, use those packages directly.
package fqc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fqcompress/fqc/archive"
	"github.com/fqcompress/fqc/block"
	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/format"
	"github.com/fqcompress/fqc/internal/analyzer"
	"github.com/fqcompress/fqc/internal/idcodec"
	"github.com/fqcompress/fqc/internal/options"
	"github.com/fqcompress/fqc/internal/qualcodec"
	"github.com/fqcompress/fqc/internal/reorder"
	"github.com/fqcompress/fqc/internal/seqcodec"
	"github.com/fqcompress/fqc/pipeline"
	"github.com/fqcompress/fqc/record"
)

// RecordSource is an iterator over FASTQ records. FQC's core only requires
// this triple-of-fields view; line parsing, transparent input
// decompression, and the CLI surface are external collaborators.
type RecordSource interface {
	// Next returns the next record, or ok=false once the source is
	// exhausted. A non-nil error aborts Compress immediately.
	Next() (rec record.Record, ok bool, err error)
}

// SliceSource adapts an in-memory slice of records to RecordSource.
type SliceSource struct {
	records []record.Record
	pos     int
}

// NewSliceSource wraps records for use as a RecordSource.
func NewSliceSource(records []record.Record) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) Next() (record.Record, bool, error) {
	if s.pos >= len(s.records) {
		return record.Record{}, false, nil
	}
	r := s.records[s.pos]
	s.pos++
	return r, true, nil
}

// Config controls an archive's encoding parameters. The zero Config is
// usable and selects the same defaults as the subpackages it wraps.
type Config struct {
	// Reorder enables the global analyzer (C6); callers should leave this
	// false for streaming/non-seekable input (spec §4.6 preamble).
	Reorder bool
	// Paired marks the input as paired-end.
	Paired bool
	// PreserveOrder records that decode must restore original read order
	// even when Reorder is disabled (a no-op reorder map is still cheap to
	// carry the flag; when Reorder is enabled PreserveOrder is implied).
	PreserveOrder bool
	// Streaming marks the archive as produced from a streaming encoder
	// (spec §4.8 bit 12) and also selects the fast general compressors:
	// S2 for ZSTD_PLAIN sequences and LZ4 for non-uniform aux streams.
	Streaming bool
	// Threads is the pipeline worker pool size (C10).
	Threads int
	// QueueCapacity bounds the pipeline's task/result channel depth.
	QueueCapacity int
	// OutOfOrderWindow bounds the writer's out-of-order completion buffer.
	OutOfOrderWindow int
	// AnalyzerWorkers bounds parallelism of the reordering pass.
	AnalyzerWorkers int
	// BlockReads overrides the per-class default reads-per-block (0 =
	// class default).
	BlockReads int
	// MaxBlockBases limits reads per block to MaxBlockBases divided by the
	// median read length (0 = no limit); a block's actual base total is not
	// checked against it.
	MaxBlockBases int
	// OriginalFilename is recorded in the GlobalHeader for diagnostics.
	OriginalFilename string
	// SkipCorrupted controls Decompress's behavior on a per-block decode
	// failure: when false (default) the first such error is fatal; when
	// true the block's reads are replaced by placeholders ('N' bases, '!'
	// qualities, synthesized ids) and the failure is recorded instead
	// (spec §7, §8 scenario 5).
	SkipCorrupted bool
	// ID controls the identifier codec (C3).
	ID idcodec.Config
	// Quality controls the quality codec (C4).
	Quality qualcodec.Config
	// Seq controls the sequence codec (C5).
	Seq seqcodec.Config
}

// Option is a functional option for Config, built on the generic
// options.Option type from internal/options.
type Option = options.Option[*Config]

func WithReorder(enabled bool) Option {
	return options.NoError(func(c *Config) { c.Reorder = enabled })
}

func WithPaired(paired bool) Option {
	return options.NoError(func(c *Config) { c.Paired = paired })
}

func WithPreserveOrder(preserve bool) Option {
	return options.NoError(func(c *Config) { c.PreserveOrder = preserve })
}

func WithStreaming(streaming bool) Option {
	return options.NoError(func(c *Config) { c.Streaming = streaming })
}

func WithThreads(n int) Option {
	return options.NoError(func(c *Config) { c.Threads = n })
}

func WithQueueCapacity(n int) Option {
	return options.NoError(func(c *Config) { c.QueueCapacity = n })
}

func WithOutOfOrderWindow(n int) Option {
	return options.NoError(func(c *Config) { c.OutOfOrderWindow = n })
}

func WithAnalyzerWorkers(n int) Option {
	return options.NoError(func(c *Config) { c.AnalyzerWorkers = n })
}

func WithBlockReads(n int) Option {
	return options.NoError(func(c *Config) { c.BlockReads = n })
}

func WithMaxBlockBases(n int) Option {
	return options.NoError(func(c *Config) { c.MaxBlockBases = n })
}

func WithOriginalFilename(name string) Option {
	return options.NoError(func(c *Config) { c.OriginalFilename = name })
}

func WithIDConfig(cfg idcodec.Config) Option {
	return options.NoError(func(c *Config) { c.ID = cfg })
}

func WithQualityConfig(cfg qualcodec.Config) Option {
	return options.NoError(func(c *Config) { c.Quality = cfg })
}

func WithSeqConfig(cfg seqcodec.Config) Option {
	return options.NoError(func(c *Config) { c.Seq = cfg })
}

func WithSkipCorrupted(skip bool) Option {
	return options.NoError(func(c *Config) { c.SkipCorrupted = skip })
}

// Stats reports the outcome of a Compress or Decompress call.
type Stats struct {
	TotalReads      uint64
	TotalBlocks     int
	CompressedBytes uint64
	Duration        time.Duration
	// CorruptedBlocks counts blocks Decompress recovered from via
	// placeholder substitution; only non-zero when SkipCorrupted is set
	// (spec §7, §8 scenario 5).
	CorruptedBlocks int
}

// Compress drains src, optionally reorders short reads for better
// compression, splits the result into blocks, and writes targetPath via
// the pipeline executor (spec §6 "compress(input_reader, writer_session,
// config) → Stats").
func Compress(ctx context.Context, src RecordSource, targetPath string, opts ...Option) (Stats, error) {
	start := time.Now()

	cfg := &Config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return Stats{}, fmt.Errorf("fqc: apply options: %w", err)
	}

	reads, err := drain(src)
	if err != nil {
		return Stats{}, fmt.Errorf("fqc: read input: %w", err)
	}

	for i := range reads {
		if err := reads[i].Validate(); err != nil {
			return Stats{}, fmt.Errorf("fqc: %w", err)
		}
	}

	class := classify(reads)

	var reverse []uint64
	if cfg.Reorder && len(reads) > 0 {
		seqs := make([][]byte, len(reads))
		for i, r := range reads {
			seqs[i] = r.Seq
		}
		reverse = analyzer.Reorder(ctx, seqs, analyzer.Config{Enabled: true, Workers: cfg.AnalyzerWorkers})
	}

	archived := reads
	var rmap *reorder.Map
	if len(reverse) > 0 {
		archived = make([]record.Record, len(reads))
		for archiveID, originalID := range reverse {
			archived[archiveID] = reads[originalID]
		}
		rmap = reorder.FromReverse(reverse)
		if err := rmap.Verify(); err != nil {
			return Stats{}, fmt.Errorf("fqc: %w", err)
		}
	}

	lens := make([]int, len(archived))
	for i, r := range archived {
		lens[i] = len(r.Seq)
	}
	plans := analyzer.PlanBlocks(lens, class, cfg.BlockReads, cfg.MaxBlockBases)

	protoBlocks := make([]pipeline.ProtoBlock, len(plans))
	for i, p := range plans {
		protoBlocks[i] = pipeline.ProtoBlock{
			BlockID:        uint32(i), //nolint:gosec
			ArchiveIDStart: uint64(p.StartRead), //nolint:gosec
			Reads:          archived[p.StartRead:p.EndRead],
			Class:          p.Class,
		}
	}

	idSample := make([]string, len(archived))
	for i, r := range archived {
		idSample[i] = r.ID
	}
	idMode := idcodec.DetectMode(idSample, cfg.ID)

	preserveOrder := cfg.PreserveOrder || rmap != nil
	flags := archive.FlagsOf(cfg.Paired, preserveOrder, rmap != nil, cfg.Streaming,
		qualityModeOf(cfg.Quality.Lossy), idModeOf(idMode), peLayoutOf(cfg.Paired), uint8(class))

	header := archive.GlobalHeader{
		Flags:            flags,
		ChecksumType:     archive.ChecksumXXHash64,
		TotalReadCount:   uint64(len(archived)), //nolint:gosec
		OriginalFilename: cfg.OriginalFilename,
		Timestamp:        uint64(start.Unix()), //nolint:gosec
	}

	w, err := archive.Create(targetPath, header)
	if err != nil {
		return Stats{}, fmt.Errorf("fqc: %w", err)
	}

	seqCfg := cfg.Seq
	seqCfg.Fast = cfg.Streaming
	blockCfg := block.Config{ID: cfg.ID, Qual: cfg.Quality, Seq: seqCfg, Fast: cfg.Streaming}
	pipelineCfg := pipeline.Config{Threads: cfg.Threads, QueueCapacity: cfg.QueueCapacity, OutOfOrderWindow: cfg.OutOfOrderWindow}

	if err := pipeline.Compress(ctx, protoBlocks, blockCfg, pipelineCfg, w); err != nil {
		return Stats{}, fmt.Errorf("fqc: %w", err)
	}

	var reorderBytes []byte
	if rmap != nil {
		reorderBytes = reorder.Encode(rmap)
	}

	if err := w.Commit(reorderBytes); err != nil {
		return Stats{}, fmt.Errorf("fqc: %w", err)
	}

	return Stats{
		TotalReads:  uint64(len(archived)), //nolint:gosec
		TotalBlocks: len(protoBlocks),
		Duration:    time.Since(start),
	}, nil
}

func drain(src RecordSource) ([]record.Record, error) {
	var out []record.Record
	for {
		r, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, r)
	}
}

func classify(reads []record.Record) format.LengthClass {
	if len(reads) == 0 {
		return format.LengthShort
	}
	lens := make([]int, len(reads))
	max := 0
	for i, r := range reads {
		lens[i] = len(r.Seq)
		if lens[i] > max {
			max = lens[i]
		}
	}
	sorted := append([]int(nil), lens...)
	sort.Ints(sorted)
	median := sorted[len(sorted)/2]
	return format.ClassifyLengths(max, median)
}

func qualityModeOf(lossy qualcodec.LossyMode) archive.QualityMode {
	switch lossy {
	case qualcodec.LossyIllumina8:
		return archive.QualityIllumina8
	case qualcodec.LossyQVZ:
		return archive.QualityQVZ
	case qualcodec.LossyDiscard:
		return archive.QualityDiscard
	default:
		return archive.QualityLossless
	}
}

func idModeOf(mode idcodec.Mode) archive.IDMode {
	switch mode {
	case idcodec.ModeDiscard:
		return archive.IDDiscard
	case idcodec.ModeTokenize:
		return archive.IDTokenize
	default:
		return archive.IDExact
	}
}

func peLayoutOf(paired bool) archive.PELayout {
	if !paired {
		return archive.PELayoutNone
	}
	return archive.PELayoutInterleaved
}

// RangeSelector chooses which reads Decompress returns (spec §6:
// "RangeSelector = All | ArchiveIds(start, end) | OriginalIds(start,
// end)").
type RangeSelector struct {
	kind       rangeKind
	start, end int
}

type rangeKind uint8

const (
	rangeAll rangeKind = iota
	rangeArchive
	rangeOriginal
)

// AllReads selects every read in the archive.
func AllReads() RangeSelector { return RangeSelector{kind: rangeAll} }

// ArchiveIDRange selects reads [start, end) by their position in archive
// storage order.
func ArchiveIDRange(start, end int) RangeSelector {
	return RangeSelector{kind: rangeArchive, start: start, end: end}
}

// OriginalIDRange selects reads [start, end) by their position in the
// original input order; it requires the archive to carry a reorder map.
func OriginalIDRange(start, end int) RangeSelector {
	return RangeSelector{kind: rangeOriginal, start: start, end: end}
}

// Decompress opens path, resolves sel against its index (and reorder map,
// if needed), and returns the selected records in the order sel implies:
// archive order for All/ArchiveIDRange, ascending original order for
// OriginalIDRange (spec §6 "decompress(reader_session, output_writer,
// range?) → Stats"). With WithSkipCorrupted(true), a per-block decode
// failure no longer aborts the call: the block's reads are replaced by
// placeholders and Stats.CorruptedBlocks is incremented instead (spec §7).
func Decompress(ctx context.Context, path string, sel RangeSelector, opts ...Option) ([]record.Record, Stats, error) {
	start := time.Now()

	cfg := &Config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, Stats{}, fmt.Errorf("fqc: apply options: %w", err)
	}

	r, err := archive.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("fqc: %w", err)
	}

	total := int(r.GlobalHeader().TotalReadCount)

	archiveIDs, originalOrder, err := resolveSelector(r, sel, total)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("fqc: %w", err)
	}

	want := make(map[int]bool, len(archiveIDs))
	for _, id := range archiveIDs {
		want[id] = true
	}

	byArchiveID := make(map[int]record.Record, len(archiveIDs))
	blocksTouched := 0
	corruptedBlocks := 0

	for i := 0; i < r.NumBlocks(); i++ {
		select {
		case <-ctx.Done():
			return nil, Stats{}, fmt.Errorf("fqc: %w", ctx.Err())
		default:
		}

		entry := r.IndexEntry(i)
		blockStart := int(entry.ArchiveIDStart)
		blockEnd := blockStart + int(entry.ReadCount)

		overlaps := false
		for id := range want {
			if id >= blockStart && id < blockEnd {
				overlaps = true
				break
			}
		}
		if !overlaps {
			continue
		}

		bh, payload, err := r.Block(i)
		if err != nil {
			if !cfg.SkipCorrupted {
				return nil, Stats{}, fmt.Errorf("fqc: %w", err)
			}
			corruptedBlocks++
			fillPlaceholders(byArchiveID, want, blockStart, int(entry.ReadCount), 1, uint64(blockStart)) //nolint:gosec
			blocksTouched++
			continue
		}

		decoded, err := block.Decompress(bh, payload, uint64(blockStart)) //nolint:gosec
		if err != nil {
			if !cfg.SkipCorrupted {
				return nil, Stats{}, fmt.Errorf("fqc: %w", err)
			}
			corruptedBlocks++
			placeholderLen := 1
			if bh.UniformReadLength != 0 {
				placeholderLen = int(bh.UniformReadLength)
			}
			fillPlaceholders(byArchiveID, want, blockStart, int(bh.UncompressedCount), placeholderLen, uint64(blockStart)) //nolint:gosec
			blocksTouched++
			continue
		}

		blocksTouched++
		for j, rec := range decoded {
			archiveID := blockStart + j
			if want[archiveID] {
				byArchiveID[archiveID] = rec
			}
		}
	}

	var order []int
	if originalOrder != nil {
		order = originalOrder
	} else {
		order = archiveIDs
	}

	out := make([]record.Record, 0, len(order))
	for _, id := range order {
		rec, ok := byArchiveID[id]
		if !ok {
			return nil, Stats{}, errs.New(errs.Corrupted, fmt.Sprintf("fqc: archive id %d missing from decoded blocks", id))
		}
		out = append(out, rec)
	}

	return out, Stats{
		TotalReads:      uint64(len(out)), //nolint:gosec
		TotalBlocks:     blocksTouched,
		Duration:        time.Since(start),
		CorruptedBlocks: corruptedBlocks,
	}, nil
}

// fillPlaceholders synthesizes count reads for a block that failed to
// decode, filling in byArchiveID for every requested id the block covers
// (spec §7: 'N' bases, '!' qualities, synthesized ids).
func fillPlaceholders(byArchiveID map[int]record.Record, want map[int]bool, blockStart, count, length int, archiveIDStart uint64) {
	for j := 0; j < count; j++ {
		archiveID := blockStart + j
		if !want[archiveID] {
			continue
		}
		byArchiveID[archiveID] = placeholderRecord(archiveIDStart+uint64(j), length)
	}
}

// placeholderRecord builds one corrupted-block stand-in: an all-'N'
// sequence of length bases and all-'!' qualities, with a synthesized id
// that marks it as recovered rather than genuine (spec §7).
func placeholderRecord(archiveID uint64, length int) record.Record {
	if length < 1 {
		length = 1
	}
	seq := make([]byte, length)
	for i := range seq {
		seq[i] = 'N'
	}
	qual := strings.Repeat("!", length)

	return record.Record{
		ID:   fmt.Sprintf("@corrupted:%d", archiveID),
		Seq:  seq,
		Qual: qual,
	}
}

// resolveSelector returns the archive ids to decode, and (for
// OriginalIDRange) the archive-id sequence that yields ascending original
// order in the output.
func resolveSelector(r *archive.Reader, sel RangeSelector, total int) (archiveIDs []int, originalOrder []int, err error) {
	switch sel.kind {
	case rangeAll:
		ids := make([]int, total)
		for i := range ids {
			ids[i] = i
		}
		return ids, nil, nil

	case rangeArchive:
		s, e := clampRange(sel.start, sel.end, total)
		ids := make([]int, 0, e-s)
		for i := s; i < e; i++ {
			ids = append(ids, i)
		}
		return ids, nil, nil

	case rangeOriginal:
		mapBytes, ok := r.ReorderMap()
		if !ok {
			return nil, nil, errs.New(errs.Usage, "range selector by original id requires a reorder map")
		}
		m, err := reorder.Decode(mapBytes)
		if err != nil {
			return nil, nil, err
		}

		s, e := clampRange(sel.start, sel.end, len(m.Forward))
		ids := make([]int, 0, e-s)
		for orig := s; orig < e; orig++ {
			ids = append(ids, int(m.Forward[orig])) //nolint:gosec
		}

		sorted := append([]int(nil), ids...)
		sort.Ints(sorted)

		return sorted, ids, nil

	default:
		return nil, nil, errs.New(errs.Usage, "unknown range selector")
	}
}

func clampRange(start, end, total int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return start, end
}

// VerifyMode selects the depth of a Verify pass.
type VerifyMode uint8

const (
	// VerifyQuick checks only the magic, footer, and global checksum.
	VerifyQuick VerifyMode = iota
	// VerifyFull additionally decodes and checksums every block and, if
	// present, validates the reorder map's inverse-permutation invariant.
	VerifyFull
)

// BlockError records a single block's verification failure.
type BlockError struct {
	BlockID uint32
	Err     error
}

// Report is Verify's result (spec §6 "verify(path, mode) → Report").
type Report struct {
	OK           bool
	TotalBlocks  int
	TotalReads   uint64
	BlockErrors  []BlockError
	ReorderMapOK bool
}

// Verify opens path (which already validates magic and the global
// checksum) and, in VerifyFull mode, decodes every block and the reorder
// map to surface any corruption that a quick open wouldn't catch.
func Verify(path string, mode VerifyMode) (Report, error) {
	r, err := archive.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("fqc: %w", err)
	}

	report := Report{OK: true, TotalBlocks: r.NumBlocks(), TotalReads: r.GlobalHeader().TotalReadCount, ReorderMapOK: true}

	if mode == VerifyQuick {
		return report, nil
	}

	for i := 0; i < r.NumBlocks(); i++ {
		entry := r.IndexEntry(i)

		bh, payload, err := r.Block(i)
		if err != nil {
			report.OK = false
			report.BlockErrors = append(report.BlockErrors, BlockError{BlockID: uint32(i), Err: err}) //nolint:gosec
			continue
		}
		if _, err := block.Decompress(bh, payload, entry.ArchiveIDStart); err != nil {
			report.OK = false
			report.BlockErrors = append(report.BlockErrors, BlockError{BlockID: bh.BlockID, Err: err})
		}
	}

	if mapBytes, ok := r.ReorderMap(); ok {
		if _, err := reorder.Decode(mapBytes); err != nil {
			report.OK = false
			report.ReorderMapOK = false
		}
	}

	return report, nil
}

// Summary is Info's result: header and index metadata only, no block
// decoding (spec §6 "info(path) → Summary (header + index only)").
type Summary struct {
	Version        archive.Version
	TotalReadCount uint64
	NumBlocks      int
	HasReorderMap  bool
	LengthClass    format.LengthClass
	Paired         bool
}

// Info reads path's header and index without decoding any block payload.
func Info(path string) (Summary, error) {
	r, err := archive.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("fqc: %w", err)
	}

	h := r.GlobalHeader()
	_, hasMap := r.ReorderMap()

	return Summary{
		Version:        r.Version(),
		TotalReadCount: h.TotalReadCount,
		NumBlocks:      r.NumBlocks(),
		HasReorderMap:  hasMap,
		LengthClass:    format.LengthClass(h.Flags.LengthClass()),
		Paired:         h.Flags.Paired(),
	}, nil
}
