// Package capability defines the collaborator contracts FileFlux
// depends on but does not implement on its own: Reader, Parser,
// EmbeddingProvider, TextCompletionProvider. Concrete file-format
// readers and concrete LLM/embedding services are out of scope for
// this module; pkg/providers ships illustrative HTTP-based adapters
// for the optional provider interfaces only.
package capability

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/iyulab/fileflux/pkg/model"
)

// ErrorKind classifies failures across the whole module, matching the
// exit-code intent table in the external-interfaces spec.
type ErrorKind int

const (
	KindOK ErrorKind = iota
	KindInternalError
	KindUnsupportedFormat
	KindNotFound
	KindIoError
	KindDecodeError
	KindProviderError
	KindInvalidOptions
	KindCancelled ErrorKind = 130
)

// Error is the module's sum-typed error: a Kind plus a wrapped cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a Kind and an operation label.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// AsKind extracts the ErrorKind carried by err, defaulting to
// KindInternalError when err does not wrap a *Error.
func AsKind(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindInternalError
}

// Sentinel errors for common reader/parser failure modes.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNotFound          = errors.New("not found")
	ErrIO                = errors.New("io error")
	ErrCancelled         = errors.New("cancelled")
	ErrDecode            = errors.New("decode error")
)

// Reader extracts RawContent from a source file. Implementations are
// registered with a Registry keyed by file extension.
type Reader interface {
	// Read extracts RawContent from r, whose logical filename is
	// filename (used for extension dispatch and FileInfo.Name).
	Read(ctx context.Context, r io.Reader, filename string) (model.RawContent, error)
	// SupportedExtensions lists the lower-cased, dot-prefixed
	// extensions this reader claims (e.g. ".md", ".txt").
	SupportedExtensions() []string
	// CanRead reports whether this reader claims filename's extension.
	CanRead(filename string) bool
}

// StructuringLevel controls how much structural inference a Parser
// attempts beyond what Hints already provided.
type StructuringLevel int

const (
	StructuringLow StructuringLevel = iota
	StructuringMedium
	StructuringHigh
)

// ParsingOptions configures a Parser invocation.
type ParsingOptions struct {
	UseLLM           bool
	StructuringLevel StructuringLevel
}

// Parser turns RawContent into a typed ParsedContent. When UseLLM is
// false, or no completion provider is wired, a Parser must still
// produce a valid ParsedContent via heuristic structure inference and
// report ParsingInfo.UsedLLM=false.
type Parser interface {
	Parse(ctx context.Context, raw model.RawContent, opts ParsingOptions) (model.ParsedContent, error)
	SupportedExtensions() []string
	CanParse(filename string) bool
}

// EmbeddingPurpose documents why an embedding is being requested, for
// providers that vary their model/dimension by use case.
type EmbeddingPurpose int

const (
	PurposeAnalysis EmbeddingPurpose = iota
	PurposeSemanticSearch
	PurposeStorage
)

// EmbeddingProvider produces deterministic embeddings for (text,
// purpose) pairs and compares them. Optional: its absence is not an
// error, callers degrade to heuristic paths.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string, purpose EmbeddingPurpose) ([]float64, error)
	CosineSimilarity(a, b []float64) float64
}

// StructureAnalysis is the typed result of a TextCompletionProvider's
// AnalyzeStructure call.
type StructureAnalysis struct {
	SuggestedStrategy string
	Confidence        float64
	Reasoning         string
	TokensUsed        int
}

// Summary is the typed result of a Summarize call.
type Summary struct {
	Text       string
	TokensUsed int
}

// ExtractedMetadata is the typed result of an ExtractMetadata call.
type ExtractedMetadata struct {
	Title      string
	Author     string
	Keywords   []string
	TokensUsed int
}

// QualityAssessment is the typed result of an AssessQuality call.
type QualityAssessment struct {
	Score      float64
	Notes      string
	TokensUsed int
}

// TextCompletionProvider is the optional LLM collaborator. All
// operations are cancellable via ctx and must be treated as
// best-effort: callers demote failures/timeouts to warnings rather
// than propagating them as fatal errors (§7 error handling design).
type TextCompletionProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	AnalyzeStructure(ctx context.Context, text string) (StructureAnalysis, error)
	Summarize(ctx context.Context, text string, maxLen int) (Summary, error)
	ExtractMetadata(ctx context.Context, text string) (ExtractedMetadata, error)
	AssessQuality(ctx context.Context, text string) (QualityAssessment, error)
}

// ReaderRegistry dispatches Readers by file extension. Registrations
// are additive and concurrency-safe; the last-registered reader for a
// given extension wins on conflict.
type ReaderRegistry struct {
	mu      sync.RWMutex
	readers map[string]Reader
}

// NewReaderRegistry returns an empty registry.
func NewReaderRegistry() *ReaderRegistry {
	return &ReaderRegistry{readers: make(map[string]Reader)}
}

// Register adds r under all of its declared extensions.
func (g *ReaderRegistry) Register(r Reader) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ext := range r.SupportedExtensions() {
		g.readers[normalizeExt(ext)] = r
	}
}

// For returns the reader registered for filename's extension.
func (g *ReaderRegistry) For(filename string) (Reader, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.readers[extOf(filename)]
	return r, ok
}

// ParserRegistry dispatches Parsers by file extension, mirroring
// ReaderRegistry's additive, last-wins semantics.
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewParserRegistry returns an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{parsers: make(map[string]Parser)}
}

// Register adds p under all of its declared extensions.
func (g *ParserRegistry) Register(p Parser) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ext := range p.SupportedExtensions() {
		g.parsers[normalizeExt(ext)] = p
	}
}

// For returns the parser registered for filename's extension.
func (g *ParserRegistry) For(filename string) (Parser, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.parsers[extOf(filename)]
	return p, ok
}

// normalizeExt ASCII-case-folds an extension and ensures a leading dot,
// matching the spec's "locale-invariant" requirement for extension
// matching (never culture-dependent case folding).
func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return ext
}

func extOf(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 {
		return ""
	}
	return normalizeExt(filename[idx:])
}
