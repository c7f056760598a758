package chunking

import (
	"context"
	"strings"

	"github.com/iyulab/fileflux/pkg/model"
)

// ParagraphChunker splits on blank-line boundaries, packing paragraphs
// greedily until the next would exceed MaxChunkSize. Paragraphs longer
// than MaxChunkSize fall back to FixedSize behavior internally
// (§4.5.2).
type ParagraphChunker struct{}

var _ Chunker = (*ParagraphChunker)(nil)

// Chunk implements Chunker.
func (ParagraphChunker) Chunk(ctx context.Context, content *model.ParsedContent, opts Options) ([]*model.DocumentChunk, error) {
	text := content.StructuredText
	if text == "" {
		return nil, nil
	}

	paragraphs := splitParagraphs(text, opts.PreserveStructure)
	if len(paragraphs) == 0 {
		return nil, nil
	}

	var chunks []*model.DocumentChunk
	var curParts []string
	curLen := 0
	searchFrom := 0

	flush := func() {
		if len(curParts) == 0 {
			return
		}
		joined := strings.Join(curParts, "\n\n")
		start := strings.Index(text[searchFrom:], curParts[0])
		if start < 0 {
			start = 0
		} else {
			start += searchFrom
		}
		end := start + len(joined)
		chunk := model.NewDocumentChunk(joined, string(StrategyParagraph))
		chunk.Location.StartChar = start
		chunk.Location.EndChar = end
		chunk.Tokens = estimateTokens(joined)
		chunks = append(chunks, chunk)
		searchFrom = end
		curParts = nil
		curLen = 0
	}

	for _, p := range paragraphs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(p) > opts.MaxChunkSize {
			flush()
			sub := fixedSizeSplit(p, opts.MaxChunkSize, opts.PreserveStructure)
			base := strings.Index(text[searchFrom:], p)
			if base < 0 {
				base = 0
			} else {
				base += searchFrom
			}
			offset := 0
			for _, s := range sub {
				chunk := model.NewDocumentChunk(s, string(StrategyParagraph))
				chunk.Location.StartChar = base + offset
				chunk.Location.EndChar = base + offset + len(s)
				chunk.Tokens = estimateTokens(s)
				chunks = append(chunks, chunk)
				offset += len(s)
			}
			searchFrom = base + offset
			continue
		}

		addition := len(p)
		if len(curParts) > 0 {
			addition += 2 // "\n\n" joiner
		}
		if curLen+addition > opts.MaxChunkSize && len(curParts) > 0 {
			flush()
		}
		curParts = append(curParts, p)
		curLen += addition
	}
	flush()

	applyPrefixOverlap(chunks, opts.OverlapSize)
	finalize(chunks, content)
	return chunks, nil
}

// fixedSizeSplit breaks a single oversized paragraph into
// word-boundary-respecting pieces, used as Paragraph's fallback.
func fixedSizeSplit(text string, maxSize int, preserveStructure bool) []string {
	var pieces []string
	pos := 0
	for pos < len(text) {
		remaining := text[pos:]
		cut := wordBoundaryCut(remaining, maxSize)
		if preserveStructure {
			cut = adjustCutForStructure(remaining, cut)
		}
		if cut <= 0 {
			cut = min(len(remaining), maxSize)
		}
		pieces = append(pieces, remaining[:cut])
		pos += cut
	}
	return pieces
}

// applyPrefixOverlap rewrites chunk content in place to prepend the
// trailing overlapSize characters of the previous chunk, used by
// Paragraph (and, degenerately, FixedSize's own inline variant).
func applyPrefixOverlap(chunks []*model.DocumentChunk, overlapSize int) {
	if overlapSize <= 0 {
		return
	}
	for i := 1; i < len(chunks); i++ {
		prefix := overlapPrefix(chunks[i-1].Content, overlapSize)
		if prefix == "" {
			continue
		}
		chunks[i].Content = prefix + " " + chunks[i].Content
		chunks[i].Tokens = estimateTokens(chunks[i].Content)
		chunks[i].SetProp("HasOverlap", true)
	}
}
