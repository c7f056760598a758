// Package export renders a processed document's chunks as per-chunk
// JSON/JSONL, per-chunk Markdown with front matter, and a
// document-level Info JSON summary. The shapes are this package's own
// (see ChunkJSON, ChunkToMarkdown and InfoJSON): chunk objects carry no
// chunk/total/navigation fields, JSON output is compact rather than
// indented, and the Markdown footer links chunk IDs rather than
// chunk_N.md files. Grounded
// on the teacher's pkg/redis/json.go sonic wrapper, reused here for
// fast JSON encoding of export payloads instead of cache values.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/iyulab/fileflux/pkg/model"
)

// ChunkJSON is the camelCase wire shape for a single exported chunk.
type ChunkJSON struct {
	ID                string         `json:"id"`
	Index             int            `json:"index"`
	Content           string         `json:"content"`
	Tokens            int            `json:"tokens"`
	Strategy          string         `json:"strategy"`
	StartChar         int            `json:"startChar"`
	EndChar           int            `json:"endChar"`
	StartPage         int            `json:"startPage,omitempty"`
	EndPage           int            `json:"endPage,omitempty"`
	Section           string         `json:"section,omitempty"`
	HeadingPath       []string       `json:"headingPath,omitempty"`
	Quality           QualityJSON    `json:"quality"`
	Importance        float64        `json:"importance"`
	Props             map[string]any `json:"props,omitempty"`
	ParentID          string         `json:"parentId,omitempty"`
}

// QualityJSON is the wire shape for model.ChunkQuality.
type QualityJSON struct {
	Completeness        float64 `json:"completeness"`
	ContextIndependence float64 `json:"contextIndependence"`
	InformationDensity  float64 `json:"informationDensity"`
	BoundarySharpness   float64 `json:"boundarySharpness"`
	Overall             float64 `json:"overall"`
}

func toChunkJSON(c *model.DocumentChunk) ChunkJSON {
	var parentID string
	if c.ParentID != model.NilID {
		parentID = c.ParentID.String()
	}
	return ChunkJSON{
		ID:          c.ID.String(),
		Index:       c.Index,
		Content:     c.Content,
		Tokens:      c.Tokens,
		Strategy:    c.Strategy,
		StartChar:   c.Location.StartChar,
		EndChar:     c.Location.EndChar,
		StartPage:   c.Location.StartPage,
		EndPage:     c.Location.EndPage,
		Section:     c.Location.Section,
		HeadingPath: c.Location.HeadingPath,
		Quality: QualityJSON{
			Completeness:        c.Quality.Completeness,
			ContextIndependence: c.Quality.ContextIndependence,
			InformationDensity:  c.Quality.InformationDensity,
			BoundarySharpness:   c.Quality.BoundarySharpness,
			Overall:             c.Quality.Overall,
		},
		Importance: c.Importance,
		Props:      c.Props,
		ParentID:   parentID,
	}
}

// ChunksToJSON renders chunks as a single JSON array.
func ChunksToJSON(chunks []*model.DocumentChunk) ([]byte, error) {
	out := make([]ChunkJSON, len(chunks))
	for i, c := range chunks {
		out[i] = toChunkJSON(c)
	}
	data, err := sonic.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("export: marshal chunks: %w", err)
	}
	return data, nil
}

// ChunksToJSONL renders chunks as newline-delimited JSON, one chunk
// object per line.
func ChunksToJSONL(chunks []*model.DocumentChunk) ([]byte, error) {
	var b strings.Builder
	for _, c := range chunks {
		data, err := sonic.Marshal(toChunkJSON(c))
		if err != nil {
			return nil, fmt.Errorf("export: marshal chunk %s: %w", c.ID, err)
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// ChunkToMarkdown renders a single chunk as Markdown with a YAML front
// matter block carrying its location/quality metadata, followed by a
// navigation footer linking PreviousChunkId/NextChunkId props.
func ChunkToMarkdown(c *model.DocumentChunk) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: %s\n", c.ID)
	fmt.Fprintf(&b, "index: %d\n", c.Index)
	fmt.Fprintf(&b, "strategy: %s\n", c.Strategy)
	fmt.Fprintf(&b, "tokens: %d\n", c.Tokens)
	if c.Location.Section != "" {
		fmt.Fprintf(&b, "section: %q\n", c.Location.Section)
	}
	if len(c.Location.HeadingPath) > 0 {
		fmt.Fprintf(&b, "headingPath: [%s]\n", strings.Join(quoteAll(c.Location.HeadingPath), ", "))
	}
	fmt.Fprintf(&b, "qualityOverall: %.3f\n", c.Quality.Overall)
	b.WriteString("---\n\n")
	b.WriteString(c.Content)
	b.WriteString("\n")

	if prev, ok := c.Props["PreviousChunkId"].(string); ok {
		fmt.Fprintf(&b, "\n[← previous](%s.md)", prev)
	}
	if next, ok := c.Props["NextChunkId"].(string); ok {
		fmt.Fprintf(&b, "\n[next →](%s.md)", next)
	}
	return b.String()
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}

// InfoJSON is the document-level processing summary described in §6.
type InfoJSON struct {
	Timestamp  time.Time      `json:"timestamp"`
	Input      string         `json:"input"`
	Output     string         `json:"output"`
	Processing ProcessingInfo `json:"processing"`
	Document   DocumentInfo   `json:"document"`
	Source     string         `json:"source"`
	Statistics Statistics     `json:"statistics"`
	Quality    QualitySummary `json:"quality"`
	Version    string         `json:"version"`
}

// ProcessingInfo records how long processing took and which strategy
// was used.
type ProcessingInfo struct {
	Strategy      string        `json:"strategy"`
	Elapsed       time.Duration `json:"elapsedNanoseconds"`
	UsedLLM       bool          `json:"usedLlm"`
	EnrichmentRan bool          `json:"enrichmentRan"`
}

// DocumentInfo mirrors model.DocumentMetadata's exportable fields.
type DocumentInfo struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Language string `json:"language,omitempty"`
	PageCount int   `json:"pageCount,omitempty"`
	WordCount int   `json:"wordCount"`
}

// Statistics summarizes the produced chunk set.
type Statistics struct {
	ChunkCount     int     `json:"chunkCount"`
	TotalTokens    int     `json:"totalTokens"`
	MinChunkSize   int     `json:"minChunkSize"`
	MaxChunkSize   int     `json:"maxChunkSize"`
	AvgChunkSize   float64 `json:"avgChunkSize"`
	SizeRatioMaxMin float64 `json:"sizeRatioMaxMin"`
	Balanced       bool    `json:"balanced"`
}

// QualitySummary surfaces the document-level quality metrics computed
// by pkg/quality.
type QualitySummary struct {
	AverageCompleteness  float64 `json:"averageCompleteness"`
	ContentConsistency   float64 `json:"contentConsistency"`
	BoundaryQuality      float64 `json:"boundaryQuality"`
	SizeDistribution     float64 `json:"sizeDistribution"`
	OverlapEffectiveness float64 `json:"overlapEffectiveness"`
}

// BuildStatistics computes Statistics from a chunk set, including the
// "Balanced" check: max/min ratio <= 5.0 AND min >= max/10, both taken
// over the chunks' own token counts. It is not compared against a
// configured chunk size limit, which this function does not receive.
func BuildStatistics(chunks []*model.DocumentChunk) Statistics {
	if len(chunks) == 0 {
		return Statistics{}
	}
	min, max, total, tokens := chunks[0].Tokens, chunks[0].Tokens, 0, 0
	for _, c := range chunks {
		size := len(c.Content)
		total += size
		tokens += c.Tokens
		if c.Tokens < min {
			min = c.Tokens
		}
		if c.Tokens > max {
			max = c.Tokens
		}
	}
	avg := float64(total) / float64(len(chunks))

	ratio := 1.0
	if min > 0 {
		ratio = float64(max) / float64(min)
	}
	balanced := ratio <= 5.0 && min*10 >= max

	return Statistics{
		ChunkCount:      len(chunks),
		TotalTokens:     tokens,
		MinChunkSize:    min,
		MaxChunkSize:    max,
		AvgChunkSize:    avg,
		SizeRatioMaxMin: ratio,
		Balanced:        balanced,
	}
}

// InfoJSONBytes renders info as JSON.
func InfoJSONBytes(info InfoJSON) ([]byte, error) {
	data, err := sonic.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("export: marshal info: %w", err)
	}
	return data, nil
}
