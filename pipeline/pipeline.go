// Package pipeline implements the compression executor (C10): a reader
// stage that feeds caller-planned proto-blocks, a worker pool that runs
// each proto-block through the block compressor, and a writer stage that
// serializes completed blocks through the archive container in strictly
// ascending block_id order.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/fqcompress/fqc/archive"
	"github.com/fqcompress/fqc/block"
	"github.com/fqcompress/fqc/errs"
	"github.com/fqcompress/fqc/format"
	"github.com/fqcompress/fqc/record"
)

// Config controls the executor's parallelism and memory bounds.
type Config struct {
	// Threads is the worker pool size; 0 selects 1.
	Threads int
	// QueueCapacity bounds the task/result channel depth; 0 selects 4.
	QueueCapacity int
	// OutOfOrderWindow bounds how many proto-blocks the reader may have
	// in flight ahead of the writer's next expected block_id (spec §4.10
	// "bounded window... back-pressure the reader"); 0 selects 8.
	OutOfOrderWindow int
}

func (c Config) threads() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return 1
}

func (c Config) queueCapacity() int {
	if c.QueueCapacity > 0 {
		return c.QueueCapacity
	}
	return 4
}

func (c Config) outOfOrderWindow() int {
	if c.OutOfOrderWindow > 0 {
		return c.OutOfOrderWindow
	}
	return 8
}

// ProtoBlock is one unit of reader output: a contiguous run of reads ready
// for C9, tagged with its eventual archive position.
type ProtoBlock struct {
	BlockID        uint32
	ArchiveIDStart uint64
	Reads          []record.Record
	Class          format.LengthClass
}

type workResult struct {
	blockID        uint32
	archiveIDStart uint64
	compressed     block.Compressed
	err            error
}

// Compress runs blocks through the worker pool and writes completed blocks
// to w in block_id order. w is aborted automatically on any failure or on
// ctx cancellation (spec §4.10: "the writer calls abort() on its
// container, which unlinks the temp file").
func Compress(ctx context.Context, blocks []ProtoBlock, blockCfg block.Config, cfg Config, w *archive.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCh := make(chan ProtoBlock, cfg.queueCapacity())
	resultCh := make(chan workResult, cfg.queueCapacity())
	window := cfg.outOfOrderWindow()
	slots := make(chan struct{}, window)
	for i := 0; i < window; i++ {
		slots <- struct{}{}
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.threads(); i++ {
		wg.Add(1)
		go runWorker(ctx, &wg, taskCh, resultCh, blockCfg)
	}

	readerDone := make(chan error, 1)
	go func() {
		defer close(taskCh)
		readerDone <- feedReader(ctx, blocks, taskCh, slots)
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	writeErr := writeOrdered(ctx, resultCh, len(blocks), w, slots)
	cancel() // ensure the reader stops promptly once the writer is done or has failed
	readerErr := <-readerDone

	if writeErr != nil {
		return writeErr
	}
	return readerErr
}

func runWorker(ctx context.Context, wg *sync.WaitGroup, taskCh <-chan ProtoBlock, resultCh chan<- workResult, cfg block.Config) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case pb, ok := <-taskCh:
			if !ok {
				return
			}

			compressed, err := block.Compress(pb.Reads, pb.BlockID, pb.ArchiveIDStart, pb.Class, cfg)
			res := workResult{blockID: pb.BlockID, archiveIDStart: pb.ArchiveIDStart, compressed: compressed, err: err}

			select {
			case resultCh <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// feedReader emits proto-blocks to taskCh, acquiring one window slot per
// block; slots are released by writeOrdered as blocks commit, so the
// reader never gets more than window blocks ahead of the writer's next
// expected block_id.
func feedReader(ctx context.Context, blocks []ProtoBlock, taskCh chan<- ProtoBlock, slots <-chan struct{}) error {
	for _, pb := range blocks {
		select {
		case <-ctx.Done():
			return errs.New(errs.Cancelled, "pipeline: reader cancelled")
		case <-slots:
		}

		select {
		case <-ctx.Done():
			return errs.New(errs.Cancelled, "pipeline: reader cancelled")
		case taskCh <- pb:
		}
	}

	return nil
}

// writeOrdered buffers completed blocks until the next strictly-ascending
// block_id is available, then commits it through w (spec §4.10 step 3).
func writeOrdered(ctx context.Context, resultCh <-chan workResult, total int, w *archive.Writer, slots chan<- struct{}) error {
	pending := make(map[uint32]workResult)
	var next uint32
	written := 0

	for written < total {
		select {
		case <-ctx.Done():
			_ = w.Abort()
			return errs.New(errs.Cancelled, "pipeline: writer cancelled")

		case res, ok := <-resultCh:
			if !ok {
				_ = w.Abort()
				return errs.New(errs.Internal, "pipeline: worker pool exited before all blocks completed")
			}
			if res.err != nil {
				_ = w.Abort()
				return fmt.Errorf("pipeline: block %d: %w", res.blockID, res.err)
			}

			pending[res.blockID] = res

			for {
				r, ok := pending[next]
				if !ok {
					break
				}

				if err := w.WriteBlock(r.compressed.Header, r.compressed.Payload, r.archiveIDStart); err != nil {
					_ = w.Abort()
					return err
				}

				delete(pending, next)
				next++
				written++

				select {
				case slots <- struct{}{}:
				default:
				}
			}
		}
	}

	return nil
}
