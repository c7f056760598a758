package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/iyulab/fileflux/pkg/model"
)

// BatchItem is one document submitted to ProcessBatch. Open is called
// lazily, on the worker goroutine that will process this item, so
// callers can defer opening file handles until their turn.
type BatchItem struct {
	Path string
	Open func() (Source, error)
}

// BatchOutcome is the per-path result §4.8's process_batch yields:
// individual failures do not abort the batch.
type BatchOutcome struct {
	Path           string
	Success        bool
	Error          error
	Chunks         []*model.DocumentChunk
	ProcessingTime time.Duration
}

// ProcessBatch runs items in batches of batchSize, running up to
// maxConcurrency pipelines in parallel within each batch. If e.MemGuard
// is set, it is checked once per batch so a resident-memory spike
// across concurrent pipelines can trigger a forced GC/eviction before
// the next batch starts.
func (e *Engine) ProcessBatch(ctx context.Context, items []BatchItem, opts Options, batchSize, maxConcurrency int) <-chan BatchOutcome {
	out := make(chan BatchOutcome)
	if batchSize <= 0 {
		batchSize = 10
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}

	go func() {
		defer close(out)
		for start := 0; start < len(items); start += batchSize {
			end := start + batchSize
			if end > len(items) {
				end = len(items)
			}
			e.runBatchWindow(ctx, items[start:end], opts, maxConcurrency, out)

			if ctx.Err() != nil {
				return
			}
			if e.MemGuard != nil {
				e.MemGuard.Check()
			}
		}
	}()

	return out
}

func (e *Engine) runBatchWindow(ctx context.Context, items []BatchItem, opts Options, maxConcurrency int, out chan<- BatchOutcome) {
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for _, item := range items {
		item := item
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			out <- e.processOne(ctx, item, opts)
		}()
	}

	wg.Wait()
}

func (e *Engine) processOne(ctx context.Context, item BatchItem, opts Options) BatchOutcome {
	started := time.Now()

	src, err := item.Open()
	if err != nil {
		return BatchOutcome{Path: item.Path, Success: false, Error: err, ProcessingTime: time.Since(started)}
	}
	if src.Path == "" {
		src.Path = item.Path
	}

	var last ProcessingResult
	for result := range e.Process(ctx, src, opts) {
		last = result
	}

	if last.Progress.Stage == StageError || last.Err != nil {
		var err error
		if last.Err != nil {
			err = last.Err
		}
		return BatchOutcome{Path: item.Path, Success: false, Error: err, ProcessingTime: time.Since(started)}
	}

	return BatchOutcome{
		Path:           item.Path,
		Success:        true,
		Chunks:         last.Result,
		ProcessingTime: time.Since(started),
	}
}
