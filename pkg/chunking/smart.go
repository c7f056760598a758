package chunking

import (
	"context"
	"regexp"
	"strings"

	"github.com/iyulab/fileflux/pkg/model"
)

// SmartChunker packs whole sentences into chunks targeting a minimum
// completeness ratio (content filled / MaxChunkSize) before accepting
// a cut, splitting at clause punctuation only as a last resort when a
// single sentence alone exceeds MaxChunkSize (§4.5.4). Every produced
// chunk carries a SentenceIntegrity prop recording whether it ends on
// a full sentence boundary.
type SmartChunker struct{}

var _ Chunker = (*SmartChunker)(nil)

const smartCompletenessTarget = 0.70

var clauseBoundaryRe = regexp.MustCompile(`[,;:—–-]\s+`)

// Chunk implements Chunker.
func (SmartChunker) Chunk(ctx context.Context, content *model.ParsedContent, opts Options) ([]*model.DocumentChunk, error) {
	text := content.StructuredText
	if text == "" {
		return nil, nil
	}

	minFill := opts.StrategyOptions.Float64("completeness_target", smartCompletenessTarget)

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []*model.DocumentChunk
	var cur []string
	curLen := 0
	pos := 0
	chunkStart := 0
	sentenceIntegrity := true

	flush := func(end int) {
		if len(cur) == 0 {
			return
		}
		joined := joinSentences(cur)
		chunk := model.NewDocumentChunk(joined, string(StrategySmart))
		chunk.Location.StartChar = chunkStart
		chunk.Location.EndChar = end
		chunk.Tokens = estimateTokens(joined)
		chunk.SetProp("SentenceIntegrity", sentenceIntegrity)
		chunks = append(chunks, chunk)
		chunkStart = end
		cur = nil
		curLen = 0
		sentenceIntegrity = true
	}

	for _, sentence := range sentences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idx := indexFrom(text, sentence, pos)
		if idx < 0 {
			idx = pos
		}
		end := idx + len(sentence)
		pos = end

		if len(cur) == 0 {
			chunkStart = idx
		}

		if len(sentence) > opts.MaxChunkSize {
			flush(idx)
			pieces := splitByClause(sentence, opts.MaxChunkSize)
			base := idx
			for i, p := range pieces {
				chunk := model.NewDocumentChunk(p, string(StrategySmart))
				chunk.Location.StartChar = base
				chunk.Location.EndChar = base + len(p)
				chunk.Tokens = estimateTokens(p)
				chunk.SetProp("SentenceIntegrity", i == len(pieces)-1)
				chunks = append(chunks, chunk)
				base += len(p)
			}
			chunkStart = end
			continue
		}

		wouldBe := curLen + len(sentence)
		if len(cur) > 0 && wouldBe > opts.MaxChunkSize {
			fillRatio := float64(curLen) / float64(opts.MaxChunkSize)
			if fillRatio >= minFill {
				flush(idx)
			}
		}

		cur = append(cur, sentence)
		curLen += len(sentence)
		if curLen >= opts.MaxChunkSize {
			flush(end)
		}
	}
	flush(pos)

	finalize(chunks, content)
	return chunks, nil
}

// splitByClause breaks an over-long single sentence at clause
// punctuation (commas, semicolons, colons, dashes) when possible,
// falling back to a word-boundary cut.
func splitByClause(sentence string, maxSize int) []string {
	var pieces []string
	remaining := sentence
	for len(remaining) > maxSize {
		cut := -1
		locs := clauseBoundaryRe.FindAllStringIndex(remaining[:min(maxSize, len(remaining))], -1)
		if len(locs) > 0 {
			cut = locs[len(locs)-1][1]
		}
		if cut <= 0 {
			cut = wordBoundaryCut(remaining, maxSize)
		}
		if cut <= 0 {
			cut = min(len(remaining), maxSize)
		}
		pieces = append(pieces, strings.TrimSpace(remaining[:cut]))
		remaining = remaining[cut:]
	}
	if remaining != "" {
		pieces = append(pieces, strings.TrimSpace(remaining))
	}
	return pieces
}
