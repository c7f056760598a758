// Package chunking implements the Chunking Strategies (C6): FixedSize,
// Paragraph, Semantic, Smart, Hierarchical, Intelligent and Auto, plus
// the shared helpers (sentence segmentation, overlap injection, common
// finalization) the strategies compose rather than inherit from, per
// the spec's "polymorphism over inheritance" design note. Grounded on
// the teacher's pkg/chunking/semantic.go (functional-options Config)
// and internal/chunking/markdown.go (sentence/keyword regex, atomic
// code/table handling).
package chunking

import (
	"context"
	"regexp"
	"strings"

	"github.com/iyulab/fileflux/pkg/model"
)

// Strategy names the seven chunking algorithms.
type Strategy string

const (
	StrategyFixedSize    Strategy = "FixedSize"
	StrategyParagraph    Strategy = "Paragraph"
	StrategySemantic     Strategy = "Semantic"
	StrategySmart        Strategy = "Smart"
	StrategyHierarchical Strategy = "Hierarchical"
	StrategyIntelligent  Strategy = "Intelligent"
	StrategyAuto         Strategy = "Auto"
)

// StrategyOptions is the typed-but-open mapping of strategy_options
// keys from §4.5.
type StrategyOptions map[string]any

func (o StrategyOptions) Float64(key string, def float64) float64 {
	if v, ok := o[key].(float64); ok {
		return v
	}
	return def
}

func (o StrategyOptions) String(key, def string) string {
	if v, ok := o[key].(string); ok && v != "" {
		return v
	}
	return def
}

func (o StrategyOptions) Bool(key string) bool {
	v, _ := o[key].(bool)
	return v
}

func (o StrategyOptions) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Options configures a single Chunk invocation. Strategies read
// Options; they never mutate it.
type Options struct {
	Strategy          Strategy
	MaxChunkSize      int
	OverlapSize       int
	PreserveStructure bool
	StrategyOptions   StrategyOptions
}

// DefaultOptions returns the spec's default configuration.
func DefaultOptions() Options {
	return Options{
		Strategy:          StrategyAuto,
		MaxChunkSize:      1024,
		OverlapSize:       100,
		PreserveStructure: true,
		StrategyOptions:   StrategyOptions{},
	}
}

// Chunker is the contract every strategy implements.
type Chunker interface {
	Chunk(ctx context.Context, content *model.ParsedContent, opts Options) ([]*model.DocumentChunk, error)
}

// sentenceBoundaryRe splits on ASCII terminal punctuation followed by
// whitespace or end of text, and on CJK terminal punctuation whether or
// not whitespace follows, keeping the punctuation attached to the
// preceding sentence.
var sentenceBoundaryRe = regexp.MustCompile(`([.!?]+["')\]]*)(\s+|$)|([。！？]+["')\]]*)\s*`)

// splitSentences segments text into sentences, preserving terminal
// punctuation. A trailing fragment with no terminal punctuation is
// still returned as the final "sentence".
func splitSentences(text string) []string {
	if text == "" {
		return nil
	}
	var sentences []string
	last := 0
	locs := sentenceBoundaryRe.FindAllStringSubmatchIndex(text, -1)
	for _, loc := range locs {
		end := loc[3] // end of ASCII punctuation group
		if end < 0 {
			end = loc[7] // end of CJK punctuation group
		}
		sentence := strings.TrimSpace(text[last:end])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		last = loc[1] // end of full match (punctuation + trailing space)
	}
	if last < len(text) {
		rest := strings.TrimSpace(text[last:])
		if rest != "" {
			sentences = append(sentences, rest)
		}
	}
	if len(sentences) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return sentences
}

var (
	fenceLineRe = regexp.MustCompile("^(```|~~~)")
	tableLineRe = regexp.MustCompile(`^\s*\|.*\|\s*$`)
)

// splitParagraphs splits text on blank-line boundaries, keeping fenced
// code blocks and table regions intact as single paragraphs when
// preserveStructure is set.
func splitParagraphs(text string, preserveStructure bool) []string {
	lines := strings.Split(text, "\n")
	var paragraphs []string
	var cur []string
	inFence := false

	flush := func() {
		if len(cur) > 0 {
			p := strings.TrimRight(strings.Join(cur, "\n"), "\n")
			if strings.TrimSpace(p) != "" {
				paragraphs = append(paragraphs, p)
			}
			cur = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if preserveStructure && fenceLineRe.MatchString(strings.TrimSpace(line)) {
			if !inFence {
				flush()
			}
			inFence = !inFence
			cur = append(cur, line)
			if !inFence {
				flush()
			}
			continue
		}
		if inFence {
			cur = append(cur, line)
			continue
		}
		if preserveStructure && tableLineRe.MatchString(line) {
			// consume the whole table as one paragraph
			cur = append(cur, line)
			j := i + 1
			for j < len(lines) && tableLineRe.MatchString(lines[j]) {
				cur = append(cur, lines[j])
				j++
			}
			flush()
			i = j - 1
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return paragraphs
}

// isInsideFence reports whether offset pos in text falls strictly
// inside an (unterminated) fenced code block. Used to keep strategies
// from cutting a chunk boundary mid-fence when preserve_structure is
// set.
func isInsideFence(text string, pos int) bool {
	inFence := false
	idx := 0
	for _, line := range strings.Split(text[:min(pos, len(text))], "\n") {
		if fenceLineRe.MatchString(strings.TrimSpace(line)) {
			inFence = !inFence
		}
		idx += len(line) + 1
	}
	return inFence
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// wordBoundaryCut returns the best split point <= maxSize, preferring
// a whitespace boundary within the last 10% of the window (§4.5.1).
func wordBoundaryCut(text string, maxSize int) int {
	if len(text) <= maxSize {
		return len(text)
	}
	window := maxSize / 10
	if window < 1 {
		window = 1
	}
	searchStart := maxSize - window
	if searchStart < 0 {
		searchStart = 0
	}
	for i := maxSize; i > searchStart; i-- {
		if i < len(text) && (text[i] == ' ' || text[i] == '\n' || text[i] == '\t') {
			return i
		}
	}
	return maxSize
}

// overlapPrefix returns the trailing overlapSize characters of prev,
// shortened to start at the first word boundary inside that window
// (or cut mid-word when the window holds none), for prepending to
// the next chunk (§4.5.1 "Applies overlap by prepending the last
// overlap_size characters of the previous chunk").
func overlapPrefix(prev string, overlapSize int) string {
	if overlapSize <= 0 || prev == "" {
		return ""
	}
	if overlapSize >= len(prev) {
		return prev
	}
	start := len(prev) - overlapSize
	for start < len(prev) && prev[start] != ' ' && prev[start] != '\n' {
		start++
	}
	if start >= len(prev) {
		start = len(prev) - overlapSize
	}
	return strings.TrimLeft(prev[start:], " \n\t")
}

// sentenceOverlap returns the trailing whole sentences of prevSentences
// whose combined length is <= overlapSize, for sentence-aligned overlap
// in Smart/Semantic (§4.5.3, §4.5.4).
func sentenceOverlap(prevSentences []string, overlapSize int) []string {
	if overlapSize <= 0 || len(prevSentences) == 0 {
		return nil
	}
	var out []string
	total := 0
	for i := len(prevSentences) - 1; i >= 0; i-- {
		s := prevSentences[i]
		if total+len(s) > overlapSize && len(out) > 0 {
			break
		}
		out = append([]string{s}, out...)
		total += len(s)
		if total >= overlapSize {
			break
		}
	}
	return out
}

// finalize assigns monotonically increasing indices, heading paths,
// page ranges and prev/next links to chunks produced by a strategy —
// the "Common finalization" step of §4.5, invoked by each strategy at
// the end of its own Chunk call.
func finalize(chunks []*model.DocumentChunk, content *model.ParsedContent) {
	for i, c := range chunks {
		c.Index = i
		c.Location.HeadingPath = content.FindHeadingPath(c.Location.StartChar, c.Location.EndChar)
		if len(c.Location.HeadingPath) > 0 {
			c.Location.Section = c.Location.HeadingPath[len(c.Location.HeadingPath)-1]
		}
		if sp, ep, ok := content.PagesFor(c.Location.StartChar, c.Location.EndChar); ok {
			c.Location.StartPage = sp
			c.Location.EndPage = ep
		}
		if i > 0 {
			c.SetProp("PreviousChunkId", chunks[i-1].ID.String())
		}
		if i < len(chunks)-1 {
			c.SetProp("NextChunkId", chunks[i+1].ID.String())
		}
	}
}

// estimateTokens approximates a token count from character length
// using the teacher's English word/token ratio heuristic (~1.3 tokens
// per word), falling back to a conservative 4 chars/token estimate
// when the text looks non-whitespace-delimited (CJK-heavy).
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		if len(text) == 0 {
			return 0
		}
		return max(1, len(text)/4)
	}
	est := int(float64(words) * 1.3)
	return max(1, est)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
