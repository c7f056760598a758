// Package model defines the entities that flow through the FileFlux
// pipeline: RawContent, ParsedContent, DocumentChunk, and their
// supporting value types. Entities are created in stage order (raw ->
// parsed -> chunks), are immutable once handed to a downstream stage,
// and are owned by the pipeline until the consumer takes them.
package model

import (
	"time"

	"github.com/google/uuid"
)

// NilID is the zero-value UUID used for absent ownership links.
var NilID = uuid.Nil

// FileInfo describes the source file a RawContent was extracted from.
type FileInfo struct {
	Name      string
	Extension string
	Size      int64
	Reader    string // identity of the Reader that produced the content
	ExtractedAt time.Time
}

// RawContent is the lossless, best-effort text extraction from a source
// file, plus structural hints a Reader was able to observe.
type RawContent struct {
	Text     string
	File     FileInfo
	Hints    Hints
	Warnings []string
}

// Hints is an extensible mapping from well-known string keys to typed
// values. Unknown keys must be preserved by anything that copies a
// Hints value, so it is a plain map rather than a closed struct.
type Hints map[string]any

// Well-known hint keys.
const (
	HintHasHeaders      = "has_headers"
	HintHasTables       = "has_tables"
	HintSemanticElements = "semantic_elements"
	HintTableCount      = "table_count"
	HintCodeLanguages   = "code_languages"
	HintImageCount      = "image_count"
	HintTitle           = "title"
	HintDescription     = "description"
	HintKeywords        = "keywords"
	HintAuthor          = "author"
	HintOGTitle         = "og_title"
)

// Bool reads a boolean hint, returning false if absent or of the wrong type.
func (h Hints) Bool(key string) bool {
	v, ok := h[key].(bool)
	return ok && v
}

// Int reads an integer hint, returning 0 if absent or of the wrong type.
func (h Hints) Int(key string) int {
	switch v := h[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// String reads a string hint, returning "" if absent or of the wrong type.
func (h Hints) String(key string) string {
	v, _ := h[key].(string)
	return v
}

// StringSet reads a set-of-strings hint.
func (h Hints) StringSet(key string) map[string]struct{} {
	switch v := h[key].(type) {
	case map[string]struct{}:
		return v
	case []string:
		out := make(map[string]struct{}, len(v))
		for _, s := range v {
			out[s] = struct{}{}
		}
		return out
	default:
		return nil
	}
}

// Clone returns a shallow copy safe for a downstream stage to mutate
// without affecting the original.
func (h Hints) Clone() Hints {
	out := make(Hints, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Section is a node in the typed heading hierarchy of a parsed document.
// Invariant: Start < End, End <= len(structured text), and a child's
// range is strictly nested within its parent's range.
type Section struct {
	ID       uuid.UUID
	Title    string
	Level    int // 1..6
	Start    int
	End      int
	Children []*Section
}

// Contains reports whether [start,end) lies within the section's range.
func (s *Section) Contains(start, end int) bool {
	return start >= s.Start && end <= s.End
}

// PageRange maps a character offset range onto a source page range,
// when the Reader was able to recover pagination (e.g. from a PDF).
type PageRange struct {
	StartChar int
	EndChar   int
	StartPage int
	EndPage   int
}

// DocumentMetadata captures document-level descriptive fields.
type DocumentMetadata struct {
	FileName         string
	FileType         string
	Title            string
	Author           string
	Language         string
	LanguageConfidence float64
	PageCount        int
	WordCount        int
	CreatedAt        time.Time
	ModifiedAt       time.Time
	ProcessedAt      time.Time
}

// DocumentQuality scores the confidence the parser has in its own output.
type DocumentQuality struct {
	Confidence          float64
	Completeness        float64
	Consistency         float64
	StructureConfidence float64
}

// OverallScore is the weighted mean used throughout the parser and
// quality engine: 0.3*confidence + 0.3*completeness + 0.2*consistency +
// 0.2*structure confidence.
func (q DocumentQuality) OverallScore() float64 {
	return clamp01(0.3*q.Confidence + 0.3*q.Completeness + 0.2*q.Consistency + 0.2*q.StructureConfidence)
}

// ParsingInfo records how ParsedContent came to be.
type ParsingInfo struct {
	UsedLLM     bool
	ParserName  string
	Elapsed     time.Duration
	Warnings    []string
}

// ParsedContent is the canonicalized, structurally-annotated view of a
// document handed to the chunking strategies.
type ParsedContent struct {
	StructuredText string
	OriginalText   string
	Metadata       DocumentMetadata
	Structure      []*Section
	Quality        DocumentQuality
	ParsingInfo    ParsingInfo
	PageRanges     []PageRange
}

// FindHeadingPath returns the ordered titles of sections (root to leaf)
// whose range contains [start,end).
func (p *ParsedContent) FindHeadingPath(start, end int) []string {
	var path []string
	var walk func(sections []*Section)
	walk = func(sections []*Section) {
		for _, s := range sections {
			if s.Contains(start, end) {
				path = append(path, s.Title)
				walk(s.Children)
				return
			}
		}
	}
	walk(p.Structure)
	return path
}

// PagesFor returns the start/end page numbers covering [start,end), if
// page ranges were recovered by the reader.
func (p *ParsedContent) PagesFor(start, end int) (startPage, endPage int, ok bool) {
	for _, pr := range p.PageRanges {
		if start >= pr.StartChar && start < pr.EndChar {
			startPage = pr.StartPage
		}
		if end > pr.StartChar && end <= pr.EndChar {
			endPage = pr.EndPage
			ok = true
		}
	}
	return startPage, endPage, ok
}

// SourceLocation pins a chunk's content back to the parsed document.
type SourceLocation struct {
	StartChar   int
	EndChar     int
	StartPage   int
	EndPage     int
	Section     string
	HeadingPath []string
}

// ChunkQuality holds the per-chunk quality dimensions computed by the
// quality engine (pkg/quality).
type ChunkQuality struct {
	Completeness        float64
	ContextIndependence float64
	InformationDensity  float64
	BoundarySharpness   float64
	Overall             float64
}

// DocumentChunk is a single unit of chunked output, ready for embedding.
type DocumentChunk struct {
	ID       uuid.UUID
	Index    int
	Content  string
	Tokens   int
	Location SourceLocation
	Quality  ChunkQuality

	Importance       float64
	Density          float64
	ContextDependency float64

	Strategy string
	Props    map[string]any

	ParentID uuid.UUID
	RawID    uuid.UUID
	ParsedID uuid.UUID
}

// NewDocumentChunk builds a chunk with a fresh ID and an initialized
// Props map, mirroring the teacher's constructor-with-defaults idiom.
func NewDocumentChunk(content, strategy string) *DocumentChunk {
	return &DocumentChunk{
		ID:       uuid.New(),
		Content:  content,
		Strategy: strategy,
		Props:    make(map[string]any),
	}
}

// SetProp sets a strategy-specific attribute, lazily allocating Props.
func (c *DocumentChunk) SetProp(key string, value any) {
	if c.Props == nil {
		c.Props = make(map[string]any)
	}
	c.Props[key] = value
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp01 clamps v into [0,1]; exported for use by sibling packages
// (quality, boundary, selector) that share the same scoring convention.
func Clamp01(v float64) float64 { return clamp01(v) }
