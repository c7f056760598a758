package chunking

import (
	"context"

	"github.com/iyulab/fileflux/pkg/boundary"
	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/model"
)

// SemanticChunker groups sentences into chunks by detecting meaning
// boundaries between them via an embedding provider, and closing the
// running chunk before the sentence that would make it exceed
// MaxChunkSize when no similarity_threshold boundary triggers first
// (§4.5.3). Grounded on the teacher's pkg/chunking/semantic.go
// SemanticChunker / embeddingCache.
type SemanticChunker struct {
	Embedder capability.EmbeddingProvider
}

var _ Chunker = (*SemanticChunker)(nil)

// Chunk implements Chunker.
func (s SemanticChunker) Chunk(ctx context.Context, content *model.ParsedContent, opts Options) ([]*model.DocumentChunk, error) {
	text := content.StructuredText
	if text == "" {
		return nil, nil
	}

	threshold := opts.StrategyOptions.Float64("similarity_threshold", 0.75)
	detector := boundary.New(threshold, s.Embedder)

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []*model.DocumentChunk
	var curSentences []string
	curLen := 0
	pos := 0
	chunkStart := 0

	flush := func(end int) {
		if len(curSentences) == 0 {
			return
		}
		joined := joinSentences(curSentences)
		chunk := model.NewDocumentChunk(joined, string(StrategySemantic))
		chunk.Location.StartChar = chunkStart
		chunk.Location.EndChar = end
		chunk.Tokens = estimateTokens(joined)
		chunks = append(chunks, chunk)
		chunkStart = end
		curSentences = nil
		curLen = 0
	}

	for i, sentence := range sentences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idx := indexFrom(text, sentence, pos)
		if idx < 0 {
			idx = pos
		}
		end := idx + len(sentence)
		pos = end

		if len(curSentences) == 0 {
			chunkStart = idx
		}

		isBoundary := false
		if len(curSentences) > 0 {
			prev := curSentences[len(curSentences)-1]
			r := detector.Detect(ctx, prev, sentence)
			isBoundary = r.IsBoundary
		}

		overLimit := curLen+len(sentence) > opts.MaxChunkSize && len(curSentences) > 0
		if isBoundary && curLen > 0 || overLimit {
			prevSentences := curSentences
			flush(idx)
			if opts.OverlapSize > 0 {
				curSentences = sentenceOverlap(prevSentences, opts.OverlapSize)
				for _, s := range curSentences {
					curLen += len(s)
				}
				chunkStart = idx - sumLen(curSentences)
				if chunkStart < 0 {
					chunkStart = idx
				}
			}
		}

		curSentences = append(curSentences, sentence)
		curLen += len(sentence)

		if i == len(sentences)-1 {
			flush(end)
		}
	}

	finalize(chunks, content)
	return chunks, nil
}

func joinSentences(sentences []string) string {
	out := ""
	for i, s := range sentences {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

func sumLen(sentences []string) int {
	total := 0
	for _, s := range sentences {
		total += len(s)
	}
	return total
}

// indexFrom finds sentence in text starting no earlier than from,
// falling back to a plain search if the sentence's leading whitespace
// was trimmed during segmentation.
func indexFrom(text, sentence string, from int) int {
	if from > len(text) {
		from = len(text)
	}
	idx := indexOf(text[from:], sentence)
	if idx < 0 {
		return -1
	}
	return from + idx
}

func indexOf(haystack, needle string) int {
	if needle == "" {
		return 0
	}
	n := len(needle)
	h := len(haystack)
	if n > h {
		return -1
	}
	for i := 0; i+n <= h; i++ {
		if haystack[i:i+n] == needle {
			return i
		}
	}
	return -1
}
