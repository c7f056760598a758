package chunking

import (
	"context"
	"regexp"
	"strings"

	"github.com/iyulab/fileflux/pkg/model"
)

var chunkHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// HierarchicalChunker produces a parent chunk per top-level section and
// child chunks for its content, linking them via ParentId/ChildIds and
// annotating each with HierarchyLevel/HierarchyChunkType props (§4.5.5).
// Sections with no heading structure fall back to a single "document"
// level parent wrapping Paragraph-style children.
type HierarchicalChunker struct{}

var _ Chunker = (*HierarchicalChunker)(nil)

const (
	hierarchyChunkTypeParent = "parent"
	hierarchyChunkTypeChild  = "child"
)

type headingSpan struct {
	level int
	title string
	start int
	end   int
}

// Chunk implements Chunker.
func (HierarchicalChunker) Chunk(ctx context.Context, content *model.ParsedContent, opts Options) ([]*model.DocumentChunk, error) {
	text := content.StructuredText
	if text == "" {
		return nil, nil
	}

	spans := topLevelHeadingSpans(text)
	if len(spans) == 0 {
		spans = []headingSpan{{level: 0, title: "", start: 0, end: len(text)}}
	}

	var chunks []*model.DocumentChunk
	for _, span := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		section := text[span.start:span.end]
		if strings.TrimSpace(section) == "" {
			continue
		}

		parent := model.NewDocumentChunk(summarize(section, opts.MaxChunkSize), string(StrategyHierarchical))
		parent.Location.StartChar = span.start
		parent.Location.EndChar = span.end
		parent.Tokens = estimateTokens(parent.Content)
		parent.SetProp("HierarchyLevel", 0)
		parent.SetProp("HierarchyChunkType", hierarchyChunkTypeParent)
		chunks = append(chunks, parent)

		childParagraphs := splitParagraphs(section, opts.PreserveStructure)
		var childIDs []string
		searchFrom := 0
		for _, p := range childParagraphs {
			if len(strings.TrimSpace(p)) == 0 {
				continue
			}
			pieces := []string{p}
			if len(p) > opts.MaxChunkSize {
				pieces = fixedSizeSplit(p, opts.MaxChunkSize, opts.PreserveStructure)
			}
			offset := indexOf(section[searchFrom:], p)
			base := span.start
			if offset >= 0 {
				base += searchFrom + offset
			} else {
				base += searchFrom
			}
			cursor := 0
			for _, piece := range pieces {
				child := model.NewDocumentChunk(piece, string(StrategyHierarchical))
				child.Location.StartChar = base + cursor
				child.Location.EndChar = base + cursor + len(piece)
				child.Tokens = estimateTokens(piece)
				child.ParentID = parent.ID
				child.SetProp("HierarchyLevel", 1)
				child.SetProp("HierarchyChunkType", hierarchyChunkTypeChild)
				chunks = append(chunks, child)
				childIDs = append(childIDs, child.ID.String())
				cursor += len(piece)
			}
			searchFrom += len(p)
		}
		parent.SetProp("ChildIds", childIDs)
	}

	finalize(chunks, content)
	return chunks, nil
}

// topLevelHeadingSpans splits text at the shallowest heading level
// present, so that "top level" adapts to documents that start at ##
// instead of #.
func topLevelHeadingSpans(text string) []headingSpan {
	lines := strings.Split(text, "\n")
	type hit struct {
		level int
		title string
		pos   int
	}
	var hits []hit
	offset := 0
	for _, line := range lines {
		if m := chunkHeadingRe.FindStringSubmatch(line); m != nil {
			hits = append(hits, hit{level: len(m[1]), title: strings.TrimSpace(m[2]), pos: offset})
		}
		offset += len(line) + 1
	}
	if len(hits) == 0 {
		return nil
	}

	minLevel := hits[0].level
	for _, h := range hits {
		if h.level < minLevel {
			minLevel = h.level
		}
	}

	var tops []hit
	for _, h := range hits {
		if h.level == minLevel {
			tops = append(tops, h)
		}
	}

	var spans []headingSpan
	for i, t := range tops {
		end := len(text)
		if i+1 < len(tops) {
			end = tops[i+1].pos
		}
		spans = append(spans, headingSpan{level: t.level, title: t.title, start: t.pos, end: end})
	}
	return spans
}

// summarize returns the section's content truncated at a word boundary
// to serve as the parent chunk's representative content.
func summarize(section string, maxSize int) string {
	trimmed := strings.TrimSpace(section)
	if len(trimmed) <= maxSize {
		return trimmed
	}
	cut := wordBoundaryCut(trimmed, maxSize)
	if cut <= 0 {
		cut = min(len(trimmed), maxSize)
	}
	return trimmed[:cut]
}
