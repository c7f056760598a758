package chunking

import (
	"context"
	"strings"

	"github.com/iyulab/fileflux/pkg/model"
)

// IntelligentChunker treats fenced code blocks and Markdown tables as
// atomic units that are never split mid-row/mid-fence, doubling the
// effective size budget for a chunk that is carrying one of them
// (§4.5.6). Regular prose between atomic regions packs greedily like
// Paragraph.
type IntelligentChunker struct{}

var _ Chunker = (*IntelligentChunker)(nil)

type atomicRegion struct {
	kind  string // "code", "table", "text"
	start int
	end   int
}

// Chunk implements Chunker.
func (IntelligentChunker) Chunk(ctx context.Context, content *model.ParsedContent, opts Options) ([]*model.DocumentChunk, error) {
	text := content.StructuredText
	if text == "" {
		return nil, nil
	}

	regions := splitAtomicRegions(text)

	var chunks []*model.DocumentChunk
	var curStart, curEnd int
	var curKind string
	curLen := 0
	hasCur := false

	flush := func() {
		if !hasCur {
			return
		}
		piece := text[curStart:curEnd]
		if strings.TrimSpace(piece) == "" {
			hasCur = false
			return
		}
		chunk := model.NewDocumentChunk(piece, string(StrategyIntelligent))
		chunk.Location.StartChar = curStart
		chunk.Location.EndChar = curEnd
		chunk.Tokens = estimateTokens(piece)
		chunk.SetProp("AtomicKind", curKind)
		chunks = append(chunks, chunk)
		hasCur = false
	}

	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		effectiveMax := opts.MaxChunkSize
		if r.kind == "table" || r.kind == "code" {
			effectiveMax = opts.MaxChunkSize * 2
		}
		regionLen := r.end - r.start

		if r.kind != "text" {
			// Atomic regions never split; if the running chunk can't
			// absorb it, flush first and start a fresh chunk for it.
			if hasCur && (curLen+regionLen > effectiveMax || curKind != r.kind) {
				flush()
			}
			if !hasCur {
				curStart = r.start
				curKind = r.kind
				curLen = 0
			}
			curEnd = r.end
			curLen += regionLen
			hasCur = true
			if curLen >= effectiveMax {
				flush()
			}
			continue
		}

		// Text region: pack by paragraph, splitting oversized paragraphs.
		paragraphs := splitParagraphs(text[r.start:r.end], true)
		offset := r.start
		for _, p := range paragraphs {
			idx := indexOf(text[offset:r.end], p)
			base := offset
			if idx >= 0 {
				base = offset + idx
			}
			pEnd := base + len(p)

			if len(p) > opts.MaxChunkSize {
				flush()
				for _, piece := range fixedSizeSplit(p, opts.MaxChunkSize, true) {
					chunk := model.NewDocumentChunk(piece, string(StrategyIntelligent))
					chunk.Location.StartChar = base
					chunk.Location.EndChar = base + len(piece)
					chunk.Tokens = estimateTokens(piece)
					chunk.SetProp("AtomicKind", "text")
					chunks = append(chunks, chunk)
					base += len(piece)
				}
				offset = pEnd
				continue
			}

			if hasCur && curKind != "text" {
				flush()
			}
			if hasCur && curLen+len(p) > opts.MaxChunkSize {
				flush()
			}
			if !hasCur {
				curStart = base
				curKind = "text"
				curLen = 0
			}
			curEnd = pEnd
			curLen += len(p)
			hasCur = true
			offset = pEnd
		}
	}
	flush()

	finalize(chunks, content)
	return chunks, nil
}

// splitAtomicRegions partitions text into alternating code/table/text
// spans, never crossing a fence or table-row boundary.
func splitAtomicRegions(text string) []atomicRegion {
	lines := splitKeepLength(text)

	// lineStart[i] is the byte offset of lines[i] within text.
	lineStart := make([]int, len(lines))
	pos := 0
	for i, l := range lines {
		lineStart[i] = pos
		pos += len(l)
		if i < len(lines)-1 {
			pos++ // account for the '\n' joiner
		}
	}
	lineEnd := func(i int) int {
		if i == len(lines)-1 {
			return len(text)
		}
		return lineStart[i] + len(lines[i]) + 1
	}

	var regions []atomicRegion
	i := 0
	textStart := -1

	flushText := func(end int) {
		if textStart >= 0 && end > textStart {
			regions = append(regions, atomicRegion{kind: "text", start: textStart, end: end})
		}
		textStart = -1
	}

	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if fenceLineRe.MatchString(trimmed) {
			flushText(lineStart[i])
			start := lineStart[i]
			i++
			for i < len(lines) {
				isClose := fenceLineRe.MatchString(strings.TrimSpace(lines[i]))
				i++
				if isClose {
					break
				}
			}
			end := lineEnd(min(i, len(lines)) - 1)
			regions = append(regions, atomicRegion{kind: "code", start: start, end: end})
			continue
		}

		if tableLineRe.MatchString(line) {
			flushText(lineStart[i])
			start := lineStart[i]
			for i < len(lines) && tableLineRe.MatchString(lines[i]) {
				i++
			}
			end := lineEnd(i - 1)
			regions = append(regions, atomicRegion{kind: "table", start: start, end: end})
			continue
		}

		if textStart < 0 {
			textStart = lineStart[i]
		}
		i++
	}
	flushText(len(text))

	return regions
}
