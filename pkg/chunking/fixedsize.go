package chunking

import (
	"context"

	"github.com/iyulab/fileflux/pkg/model"
)

// FixedSizeChunker splits content.StructuredText into pieces of length
// <= MaxChunkSize, preferring word boundaries in the final 10% of the
// window, with optional prefix overlap (§4.5.1).
type FixedSizeChunker struct{}

var _ Chunker = (*FixedSizeChunker)(nil)

// Chunk implements Chunker.
func (FixedSizeChunker) Chunk(ctx context.Context, content *model.ParsedContent, opts Options) ([]*model.DocumentChunk, error) {
	text := content.StructuredText
	if text == "" {
		return nil, nil
	}

	var chunks []*model.DocumentChunk
	pos := 0
	var prevContent string

	for pos < len(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := text[pos:]
		cut := wordBoundaryCut(remaining, opts.MaxChunkSize)

		if opts.PreserveStructure {
			cut = adjustCutForStructure(remaining, cut)
		}
		if cut <= 0 {
			cut = min(len(remaining), opts.MaxChunkSize)
		}

		piece := remaining[:cut]
		full := piece
		hasOverlap := false
		if prevContent != "" && opts.OverlapSize > 0 {
			prefix := overlapPrefix(prevContent, opts.OverlapSize)
			if prefix != "" {
				full = prefix + " " + piece
				hasOverlap = true
			}
		}

		chunk := model.NewDocumentChunk(full, string(StrategyFixedSize))
		chunk.Location.StartChar = pos
		chunk.Location.EndChar = pos + cut
		chunk.Tokens = estimateTokens(full)
		chunk.SetProp("HasOverlap", hasOverlap)
		chunks = append(chunks, chunk)

		prevContent = piece
		pos += cut
	}

	finalize(chunks, content)
	return chunks, nil
}

// adjustCutForStructure pulls a proposed cut point back (or forward,
// bounded) so it never lands inside a fenced code block or splits a
// Markdown table mid-row.
func adjustCutForStructure(text string, cut int) int {
	if cut >= len(text) {
		return cut
	}
	if isInsideFence(text, cut) {
		if idx := lastFenceBoundary(text, cut); idx > 0 {
			return idx
		}
	}
	if insideTableRow(text, cut) {
		if idx := lastLineBoundary(text, cut); idx > 0 {
			return idx
		}
	}
	return cut
}

func lastFenceBoundary(text string, before int) int {
	idx := 0
	last := -1
	for _, line := range splitKeepLength(text) {
		if idx+len(line) >= before {
			break
		}
		if fenceLineRe.MatchString(line) {
			last = idx
		}
		idx += len(line) + 1
	}
	return last
}

func lastLineBoundary(text string, before int) int {
	if before > len(text) {
		before = len(text)
	}
	for i := before; i > 0; i-- {
		if text[i-1] == '\n' {
			return i
		}
	}
	return 0
}

func insideTableRow(text string, pos int) bool {
	start := lastLineBoundary(text, pos)
	end := pos
	for end < len(text) && text[end] != '\n' {
		end++
	}
	if start >= len(text) || start == end {
		return false
	}
	return tableLineRe.MatchString(text[start:end]) && pos > start && pos < end
}

func splitKeepLength(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	lines = append(lines, text[start:])
	return lines
}
