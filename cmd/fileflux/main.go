// Command fileflux drives the FileFlux pipeline end to end over a
// single local file: Reader -> Converter/Normalizer -> Parser ->
// Selector -> Chunker -> Quality -> Enrichment, logging progress and
// printing the resulting chunks to stdout. It replaces the teacher's
// cmd/server/main.go fx-application bootstrap, dropped along with the
// RPC surface it booted (see DESIGN.md).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/iyulab/fileflux/internal/config"
	"github.com/iyulab/fileflux/internal/logx"
	"github.com/iyulab/fileflux/pkg/cachestore"
	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/chunking"
	"github.com/iyulab/fileflux/pkg/enrich"
	"github.com/iyulab/fileflux/pkg/export"
	"github.com/iyulab/fileflux/pkg/markdown"
	"github.com/iyulab/fileflux/pkg/model"
	"github.com/iyulab/fileflux/pkg/parser"
	"github.com/iyulab/fileflux/pkg/pipeline"
	"github.com/iyulab/fileflux/pkg/providers"
	"github.com/iyulab/fileflux/pkg/reader"
	"github.com/iyulab/fileflux/pkg/selector"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "fileflux:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("fileflux", flag.ContinueOnError)
	input := fs.String("input", "", "path to the document to chunk (required)")
	strategyFlag := fs.String("strategy", string(chunking.StrategyAuto), "Auto|FixedSize|Paragraph|Semantic|Smart|Hierarchical|Intelligent")
	maxChunkSize := fs.Int("max-chunk-size", 1024, "maximum characters per chunk")
	overlapSize := fs.Int("overlap-size", 100, "overlap characters between adjacent chunks")
	format := fs.String("format", "jsonl", "output format: json|jsonl|markdown")
	configDir := fs.String("config-dir", "", "directory containing config.yaml (optional)")
	useLLM := fs.Bool("use-llm", false, "allow LLM-assisted parsing/selection/enrichment when providers are configured")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		fs.Usage()
		return fmt.Errorf("-input is required")
	}

	if err := logx.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logx.Sync()

	cfg, err := loadConfigOrDefault(*configDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine, err := buildEngine(cfg, *useLLM)
	if err != nil {
		return err
	}

	src, cleanup, err := openSource(*input)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := pipeline.Options{
		Chunk: chunking.Options{
			Strategy:          chunking.Strategy(*strategyFlag),
			MaxChunkSize:      *maxChunkSize,
			OverlapSize:       *overlapSize,
			PreserveStructure: true,
		},
		UseLLM:       *useLLM,
		EnableEnrich: cfg.Enrichment.EnableSummarization || cfg.Enrichment.EnableKeywordExtraction,
		Enrich: enrich.Options{
			EnableSummarization:     cfg.Enrichment.EnableSummarization,
			EnableKeywordExtraction: cfg.Enrichment.EnableKeywordExtraction,
			MaxKeywords:             cfg.Enrichment.MaxKeywords,
			SummaryMaxLen:           200,
		},
	}

	var final pipeline.ProcessingResult
	for result := range engine.Process(ctx, src, opts) {
		logx.Get().Infow("pipeline progress",
			"stage", string(result.Progress.Stage),
			"overall_progress", result.Progress.OverallProgress,
			"message", result.Progress.Message,
		)
		final = result
	}

	if final.Err != nil {
		return fmt.Errorf("pipeline failed at %s: %w", final.Progress.Stage, final.Err)
	}

	return writeOutput(*format, final.Result)
}

func loadConfigOrDefault(dir string) (*config.Config, error) {
	if dir != "" {
		cfg, err := config.LoadConfig(dir)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg := &config.Config{}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("default config: %w", err)
	}
	return cfg, nil
}

func buildEngine(cfg *config.Config, useLLM bool) (*pipeline.Engine, error) {
	readers := capability.NewReaderRegistry()
	readers.Register(reader.PlainTextReader{})

	var llm capability.TextCompletionProvider
	if useLLM && cfg.Providers.LLM.BaseURL != "" {
		llm = providers.NewCompletionProvider(toProviderConfig(cfg.Providers.LLM))
	}

	parsers := capability.NewParserRegistry()
	parsers.Register(parser.MarkdownParser{LLM: llm})

	var embedder capability.EmbeddingProvider
	if cfg.Providers.Embedding.BaseURL != "" {
		embedder = providers.NewEmbeddingProvider(toProviderConfig(cfg.Providers.Embedding))
	}

	sel := selector.New(selector.Options{
		ConfidenceThreshold: cfg.Selector.ConfidenceThreshold,
		PreferSpeed:         cfg.Selector.PreferSpeed,
		PreferQuality:       cfg.Selector.PreferQuality,
		UseLLMRefinement:    cfg.Selector.UseLLMRefinement,
	}, llm)

	store := buildCache(cfg)

	engine := pipeline.NewEngine(readers, parsers)
	engine.Selector = sel
	engine.Embedder = embedder
	engine.LLM = llm
	engine.Cache = store
	engine.StreamThresholdBytes = cfg.Pipeline.StreamThresholdBytes
	engine.StreamWindowBytes = cfg.Pipeline.StreamWindowBytes
	if cfg.Pipeline.MemoryThresholdBytes > 0 {
		engine.MemGuard = cachestore.NewMemoryGuard(cfg.Pipeline.MemoryThresholdBytes, 5*time.Second, func() int {
			if evictor, ok := store.(interface{ Evict() int }); ok {
				return evictor.Evict()
			}
			return 0
		})
	}

	return engine, nil
}

// toProviderConfig adapts internal/config's mapstructure-tagged
// ServiceConfig (plain int seconds, for YAML/env friendliness) to
// pkg/providers' ServiceConfig (time.Duration, for direct use by the
// resty client).
func toProviderConfig(c config.ServiceConfig) providers.ServiceConfig {
	return providers.ServiceConfig{
		BaseURL: c.BaseURL,
		APIKey:  c.APIKey,
		Model:   c.Model,
		Timeout: time.Duration(c.Timeout) * time.Second,
	}
}

func buildCache(cfg *config.Config) cachestore.Store {
	if cfg.Cache.Backend == "redis" {
		store, err := cachestore.NewRedisStore(cachestore.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   "fileflux",
		})
		if err == nil {
			return store
		}
		logx.Get().Warnw("redis cache unavailable, falling back to in-memory cache", "error", err)
	}
	return cachestore.NewMemoryStore()
}

// openSource reads filename, converting non-Markdown text through the
// Markdown Converter (C3) and Normalizer (C4) up front so the pipeline
// engine's registered Parser (Markdown-only) always receives canonical
// Markdown, completing the package doc's full
// Reader -> Converter/Normalizer -> Parser chain for source formats
// the engine itself does not convert.
func openSource(filename string) (pipeline.Source, func(), error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".md" || ext == ".markdown" {
		f, err := os.Open(filename)
		if err != nil {
			return pipeline.Source{}, func() {}, fmt.Errorf("open %s: %w", filename, err)
		}
		size, mtime := statOrZero(filename)
		return pipeline.Source{
			Reader: f, Filename: filepath.Base(filename), Size: size,
			Path: filename, ModTime: mtime,
		}, func() { _ = f.Close() }, nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return pipeline.Source{}, func() {}, fmt.Errorf("open %s: %w", filename, err)
	}
	raw, err := reader.PlainTextReader{}.Read(context.Background(), f, filepath.Base(filename))
	_ = f.Close()
	if err != nil {
		return pipeline.Source{}, func() {}, fmt.Errorf("read %s: %w", filename, err)
	}

	converted := markdown.Convert(context.Background(), raw, markdown.DefaultConvertOptions(), nil)
	normalized := markdown.Normalize(converted.Markdown, markdown.DefaultNormalizeOptions())

	_, mtime := statOrZero(filename)
	content := strings.NewReader(normalized.Markdown)
	mdName := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) + ".md"
	return pipeline.Source{
		Reader: content, Filename: mdName,
		Size: int64(content.Len()), Path: filename, ModTime: mtime,
	}, func() {}, nil
}

func statOrZero(filename string) (int64, time.Time) {
	info, err := os.Stat(filename)
	if err != nil {
		return 0, time.Time{}
	}
	return info.Size(), info.ModTime()
}

func writeOutput(format string, chunks []*model.DocumentChunk) error {
	switch strings.ToLower(format) {
	case "json":
		data, err := export.ChunksToJSON(chunks)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	case "jsonl":
		data, err := export.ChunksToJSONL(chunks)
		if err != nil {
			return fmt.Errorf("encode jsonl: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	case "markdown":
		for _, c := range chunks {
			fmt.Fprintln(os.Stdout, export.ChunkToMarkdown(c))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
