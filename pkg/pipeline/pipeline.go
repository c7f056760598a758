// Package pipeline implements the Pipeline Engine (C9): a staged,
// progress-reporting, cancellable orchestration of
// Reader -> Parser -> Selector -> Chunker -> Quality -> Enrichment.
// Source text that isn't already Markdown is expected to have been run
// through the Markdown Converter/Normalizer (pkg/markdown) before
// reaching Process, since the registered Parser implementations
// consume canonical Markdown; cmd/fileflux shows this wiring. Grounded
// on the teacher's internal/server/stage_rpc.go one-function-per-stage
// organization, re-expressed here as a channel-based async iterator
// instead of a Connect RPC handler set, and on pkg/redis/cache.go's
// cache-key idiom for the parsed-content cache lookup.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/iyulab/fileflux/internal/utils"
	"github.com/iyulab/fileflux/pkg/cachestore"
	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/chunking"
	"github.com/iyulab/fileflux/pkg/enrich"
	"github.com/iyulab/fileflux/pkg/model"
	"github.com/iyulab/fileflux/pkg/quality"
)

// Stage names one point in the pipeline's progress sequence.
type Stage string

const (
	StageReading    Stage = "Reading"
	StageExtracting Stage = "Extracting"
	StageParsing    Stage = "Parsing"
	StageChunking   Stage = "Chunking"
	StageValidating Stage = "Validating"
	StageCompleted  Stage = "Completed"
	StageError      Stage = "Error"
)

// nominalProgress is the per-stage overall_progress band from §4.8.
var nominalProgress = map[Stage]float64{
	StageReading:    0.0,
	StageExtracting: 0.25,
	StageParsing:    0.50,
	StageChunking:   0.75,
	StageValidating: 0.90,
	StageCompleted:  1.00,
}

// Progress is the progress envelope attached to every ProcessingResult.
type Progress struct {
	Stage           Stage
	OverallProgress float64
	Message         string
	Timestamp       time.Time
}

func progressAt(stage Stage, message string) Progress {
	return Progress{Stage: stage, OverallProgress: nominalProgress[stage], Message: message, Timestamp: time.Now()}
}

// ProcessingResult is one item of the engine's lazy, finite,
// non-restartable output sequence. Partial artifacts accumulate as
// the pipeline advances: RawContent after Extracting, ParsedContent
// after Parsing, Result after Chunking/Validating/Completed.
type ProcessingResult struct {
	Progress      Progress
	RawContent    *model.RawContent
	ParsedContent *model.ParsedContent
	Result        []*model.DocumentChunk
	Err           *capability.Error
}

// Source describes the single document Process will run the pipeline
// over. Path and ModTime are optional; when both are set and a Cache
// is configured, the engine looks up/stores ParsedContent under the
// §4.8 cache key instead of always re-parsing.
type Source struct {
	Reader   io.Reader
	Filename string
	Size     int64
	Path     string
	ModTime  time.Time
}

// Options configures a single Process invocation.
type Options struct {
	Chunk        chunking.Options
	UseLLM       bool
	EnableEnrich bool
	Enrich       enrich.Options
}

// Engine wires the collaborators (C1-C8, C10) into the C9
// orchestration. Every field is optional except Readers/Parsers; an
// absent Cache, LLM, Embedder or MemGuard degrades the corresponding
// feature rather than failing the pipeline, per §7.
type Engine struct {
	Readers  *capability.ReaderRegistry
	Parsers  *capability.ParserRegistry
	Selector chunking.Selector
	Embedder capability.EmbeddingProvider
	LLM      capability.TextCompletionProvider
	Cache    cachestore.Store
	CacheTTL time.Duration
	MemGuard *cachestore.MemoryGuard

	// StreamThresholdBytes/StreamWindowBytes configure the large-stream
	// path (§4.8 "Large-stream path"); zero means use the spec defaults
	// (50 MiB / 10 MiB).
	StreamThresholdBytes int64
	StreamWindowBytes    int64
}

// NewEngine builds an Engine with the spec's default streaming
// thresholds and cache TTL; callers set the optional collaborator
// fields directly.
func NewEngine(readers *capability.ReaderRegistry, parsers *capability.ParserRegistry) *Engine {
	return &Engine{
		Readers:              readers,
		Parsers:              parsers,
		StreamThresholdBytes: 50 * 1024 * 1024,
		StreamWindowBytes:    10 * 1024 * 1024,
		CacheTTL:             cachestore.DefaultTTL,
	}
}

func (e *Engine) streamThreshold() int64 {
	if e.StreamThresholdBytes > 0 {
		return e.StreamThresholdBytes
	}
	return 50 * 1024 * 1024
}

func (e *Engine) streamWindow() int64 {
	if e.StreamWindowBytes > 0 {
		return e.StreamWindowBytes
	}
	return 10 * 1024 * 1024
}

func (e *Engine) ttl() time.Duration {
	if e.CacheTTL > 0 {
		return e.CacheTTL
	}
	return cachestore.DefaultTTL
}

// Process runs the staged pipeline over src and returns the lazy
// result sequence described by §4.8. The channel is closed after the
// terminal Completed or Error item; the caller must drain it (or
// cancel ctx) to let the producing goroutine exit.
func (e *Engine) Process(ctx context.Context, src Source, opts Options) <-chan ProcessingResult {
	out := make(chan ProcessingResult, 1)
	go e.run(ctx, src, opts, out)
	return out
}

// emit sends result on out, returning false if ctx was cancelled
// first — the suspension point at "yielding each pipeline result"
// from §5.
func (e *Engine) emit(ctx context.Context, out chan<- ProcessingResult, result ProcessingResult) bool {
	select {
	case out <- result:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) emitError(ctx context.Context, out chan<- ProcessingResult, err *capability.Error) {
	result := ProcessingResult{
		Progress: Progress{Stage: StageError, OverallProgress: nominalProgress[StageError], Message: err.Error(), Timestamp: time.Now()},
		Err:      err,
	}
	// Deliver the terminal Error item without racing ctx.Done when the
	// channel has room, so a cancelled run still reports why it stopped.
	select {
	case out <- result:
		return
	default:
	}
	e.emit(ctx, out, result)
}

func (e *Engine) run(ctx context.Context, src Source, opts Options, out chan<- ProcessingResult) {
	defer close(out)

	if err := ctx.Err(); err != nil {
		e.emitError(ctx, out, capability.NewError(capability.KindCancelled, "pipeline", err))
		return
	}

	if src.Size > e.streamThreshold() {
		e.runStreaming(ctx, src, opts, out)
		return
	}

	if !e.emit(ctx, out, ProcessingResult{Progress: progressAt(StageReading, "opening "+src.Filename)}) {
		return
	}

	if e.Readers == nil {
		e.emitError(ctx, out, capability.NewError(capability.KindInternalError, "pipeline.read", fmt.Errorf("no reader registry configured")))
		return
	}
	reader, ok := e.Readers.For(src.Filename)
	if !ok {
		e.emitError(ctx, out, capability.NewError(capability.KindUnsupportedFormat, "pipeline.read", fmt.Errorf("no reader registered for %q", src.Filename)))
		return
	}

	raw, err := reader.Read(ctx, src.Reader, src.Filename)
	if err != nil {
		e.emitError(ctx, out, capability.NewError(capability.AsKind(err), "pipeline.read", err))
		return
	}

	if !e.emit(ctx, out, ProcessingResult{Progress: progressAt(StageExtracting, "extracted raw content"), RawContent: &raw}) {
		return
	}

	var cacheKey string
	if e.Cache != nil && src.Path != "" && !src.ModTime.IsZero() {
		cacheKey = cachestore.Key(src.Path, src.ModTime, string(opts.Chunk.Strategy), opts.Chunk.MaxChunkSize, opts.Chunk.OverlapSize)
		if cached, found, cerr := e.Cache.Get(ctx, cacheKey); cerr == nil && found {
			parsed := cached
			if !e.emit(ctx, out, ProcessingResult{Progress: progressAt(StageParsing, "parsed content cache hit"), RawContent: &raw, ParsedContent: &parsed}) {
				return
			}
			e.continueFromParsed(ctx, &raw, &parsed, opts, out)
			return
		}
	}

	if e.Parsers == nil {
		e.emitError(ctx, out, capability.NewError(capability.KindInternalError, "pipeline.parse", fmt.Errorf("no parser registry configured")))
		return
	}
	parserImpl, ok := e.Parsers.For(src.Filename)
	if !ok {
		e.emitError(ctx, out, capability.NewError(capability.KindUnsupportedFormat, "pipeline.parse", fmt.Errorf("no parser registered for %q", src.Filename)))
		return
	}

	parsed, err := parserImpl.Parse(ctx, raw, capability.ParsingOptions{UseLLM: opts.UseLLM})
	if err != nil {
		e.emitError(ctx, out, capability.NewError(capability.AsKind(err), "pipeline.parse", err))
		return
	}

	if e.Cache != nil && cacheKey != "" {
		_ = e.Cache.Set(ctx, cacheKey, parsed, e.ttl())
	}

	if !e.emit(ctx, out, ProcessingResult{Progress: progressAt(StageParsing, "parsed document"), RawContent: &raw, ParsedContent: &parsed}) {
		return
	}

	e.continueFromParsed(ctx, &raw, &parsed, opts, out)
}

// continueFromParsed runs Chunking, Validating and Completed, shared
// by both the cache-hit and freshly-parsed paths.
func (e *Engine) continueFromParsed(ctx context.Context, raw *model.RawContent, parsed *model.ParsedContent, opts Options, out chan<- ProcessingResult) {
	chunker, err := e.chunkerFor(opts.Chunk.Strategy)
	if err != nil {
		e.emitError(ctx, out, capability.NewError(capability.KindInvalidOptions, "pipeline.chunk", err))
		return
	}

	chunks, err := chunker.Chunk(ctx, parsed, opts.Chunk)
	if err != nil {
		e.emitError(ctx, out, capability.NewError(capability.AsKind(err), "pipeline.chunk", err))
		return
	}
	if len(chunks) == 0 && parsed.StructuredText != "" {
		e.emitError(ctx, out, capability.NewError(capability.KindInternalError, "pipeline.chunk",
			fmt.Errorf("strategy %q produced zero chunks for non-empty input", opts.Chunk.Strategy)))
		return
	}

	if !e.emit(ctx, out, ProcessingResult{
		Progress: progressAt(StageChunking, fmt.Sprintf("produced %d chunks", len(chunks))),
		RawContent: raw, ParsedContent: parsed, Result: chunks,
	}) {
		return
	}

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			e.emitError(ctx, out, capability.NewError(capability.KindCancelled, "pipeline.quality", err))
			return
		}
		m := quality.EvaluateChunk(c, parsed)
		c.Quality = model.ChunkQuality{
			Completeness:        m.SemanticCompleteness,
			ContextIndependence: m.ContextIndependence,
			InformationDensity:  m.InformationDensity,
			BoundarySharpness:   m.BoundarySharpness,
			Overall:             m.Overall,
		}
	}

	if opts.EnableEnrich {
		if err := enrich.Enrich(ctx, chunks, e.LLM, opts.Enrich); err != nil {
			e.emitError(ctx, out, capability.NewError(capability.AsKind(err), "pipeline.enrich", err))
			return
		}
	}

	if !e.emit(ctx, out, ProcessingResult{
		Progress: progressAt(StageValidating, "scored chunk quality"),
		RawContent: raw, ParsedContent: parsed, Result: chunks,
	}) {
		return
	}

	e.emit(ctx, out, ProcessingResult{
		Progress: progressAt(StageCompleted, "done"),
		RawContent: raw, ParsedContent: parsed, Result: chunks,
	})
}

// chunkerFor builds the fully-wired Chunker for strategy, injecting
// the engine's Embedder/Selector where a strategy needs a
// collaborator rather than constructing the zero-value strategies
// pkg/chunking.strategyFor uses internally for Auto's dispatch.
func (e *Engine) chunkerFor(s chunking.Strategy) (chunking.Chunker, error) {
	switch s {
	case chunking.StrategyFixedSize:
		return chunking.FixedSizeChunker{}, nil
	case chunking.StrategyParagraph:
		return chunking.ParagraphChunker{}, nil
	case chunking.StrategySemantic:
		return chunking.SemanticChunker{Embedder: e.Embedder}, nil
	case chunking.StrategySmart:
		return chunking.SmartChunker{}, nil
	case chunking.StrategyHierarchical:
		return chunking.HierarchicalChunker{}, nil
	case chunking.StrategyIntelligent:
		return chunking.IntelligentChunker{}, nil
	case chunking.StrategyAuto, "":
		return chunking.AutoChunker{Selector: e.Selector}, nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", s)
	}
}

// runStreaming implements the §4.8 "Large-stream path": fixed-size
// byte windows, UTF-8 decoded with replacement, chunked with a
// lightweight paragraph-aware splitter, yielding a partial Chunking-stage
// snapshot after each window rather than buffering the whole input.
func (e *Engine) runStreaming(ctx context.Context, src Source, opts Options, out chan<- ProcessingResult) {
	if !e.emit(ctx, out, ProcessingResult{Progress: progressAt(StageReading, "opening "+src.Filename+" (streaming)")}) {
		return
	}

	window := e.streamWindow()
	br := bufio.NewReaderSize(src.Reader, int(window))
	buf := make([]byte, window)
	var allChunks []*model.DocumentChunk
	batchIndex := 0

	strategyForWindow := chunking.ParagraphChunker{}

	for {
		if err := ctx.Err(); err != nil {
			e.emitError(ctx, out, capability.NewError(capability.KindCancelled, "pipeline.stream", err))
			return
		}

		n, readErr := io.ReadFull(br, buf)
		if n == 0 && readErr != nil {
			break
		}

		text := utils.DecodeUTF8Replacing(string(buf[:n]))

		parsed := model.ParsedContent{
			StructuredText: text,
			OriginalText:   text,
			Metadata:       model.DocumentMetadata{FileName: src.Filename, ProcessedAt: time.Now()},
			ParsingInfo:    model.ParsingInfo{ParserName: "stream-window"},
		}

		windowOpts := opts.Chunk
		windowChunks, err := strategyForWindow.Chunk(ctx, &parsed, windowOpts)
		if err != nil {
			e.emitError(ctx, out, capability.NewError(capability.AsKind(err), "pipeline.stream", err))
			return
		}
		for _, c := range windowChunks {
			c.SetProp("BatchIndex", batchIndex)
			c.SetProp("IsStreamProcessed", true)
		}
		allChunks = append(allChunks, windowChunks...)

		progress := 0.25 + 0.5*float64(batchIndex+1)/float64(maxInt(batchIndex+1, estimateWindows(src.Size, window)))
		if progress > 0.95 {
			progress = 0.95
		}
		if !e.emit(ctx, out, ProcessingResult{
			Progress: Progress{Stage: StageChunking, OverallProgress: progress, Message: fmt.Sprintf("processed window %d", batchIndex), Timestamp: time.Now()},
			Result:   allChunks,
		}) {
			return
		}

		batchIndex++
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			e.emitError(ctx, out, capability.NewError(capability.KindIoError, "pipeline.stream", readErr))
			return
		}
	}

	for i, c := range allChunks {
		c.Index = i
	}

	e.emit(ctx, out, ProcessingResult{
		Progress: progressAt(StageCompleted, fmt.Sprintf("streamed %d windows, %d chunks", batchIndex, len(allChunks))),
		Result:   allChunks,
	})
}

func estimateWindows(size, window int64) int {
	if window <= 0 {
		return 1
	}
	n := int(size / window)
	if size%window != 0 {
		n++
	}
	if n < 1 {
		return 1
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
