// Package parser implements the Markdown Parser capability: turning
// model.RawContent already in (or converted to) Markdown form into a
// model.ParsedContent with a typed Section tree, page ranges, and a
// document quality estimate. Grounded on the teacher's
// internal/chunking/markdown.go buildDocumentTree — the same
// non-recursive goldmark AST walk, retargeted from chunk boundaries to
// a Section hierarchy.
package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/model"
)

// MarkdownParser implements capability.Parser for ".md"/".markdown"
// content. Structure extraction is always heuristic (AST-derived); the
// optional LLM pass only refines Quality/Metadata when opts.UseLLM and
// an LLM provider are both present.
type MarkdownParser struct {
	LLM capability.TextCompletionProvider
}

var _ capability.Parser = (*MarkdownParser)(nil)

// SupportedExtensions implements capability.Parser.
func (MarkdownParser) SupportedExtensions() []string { return []string{".md", ".markdown"} }

// CanParse implements capability.Parser.
func (p MarkdownParser) CanParse(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}

var goldmarkEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
	),
	goldmark.WithParserOptions(
		gmparser.WithAutoHeadingID(),
	),
)

// Parse implements capability.Parser.
func (p MarkdownParser) Parse(ctx context.Context, raw model.RawContent, opts capability.ParsingOptions) (model.ParsedContent, error) {
	if err := ctx.Err(); err != nil {
		return model.ParsedContent{}, fmt.Errorf("parser: %w", err)
	}

	start := time.Now()
	source := []byte(raw.Text)
	reader := text.NewReader(source)
	doc := goldmarkEngine.Parser().Parse(reader)

	sections, warnings := buildSections(doc, source)

	quality := model.DocumentQuality{
		Confidence:          0.8,
		Completeness:        completenessFromSections(sections, len(raw.Text)),
		Consistency:         0.8,
		StructureConfidence: structureConfidence(sections),
	}

	meta := model.DocumentMetadata{
		FileName:    raw.File.Name,
		FileType:    raw.File.Extension,
		Title:       raw.Hints.String(model.HintTitle),
		Author:      raw.Hints.String(model.HintAuthor),
		Language:    detectLanguage(raw.Text),
		WordCount:   len(strings.Fields(raw.Text)),
		CreatedAt:   raw.File.ExtractedAt,
		ModifiedAt:  raw.File.ExtractedAt,
		ProcessedAt: start,
	}
	meta.LanguageConfidence = languageConfidence(meta.Language, raw.Text)

	usedLLM := false
	if opts.UseLLM && p.LLM != nil {
		if assessment, err := p.LLM.AssessQuality(ctx, raw.Text); err == nil {
			quality.Confidence = model.Clamp01(assessment.Score)
			usedLLM = true
		} else {
			warnings = append(warnings, fmt.Sprintf("LLM quality assessment unavailable: %v", err))
		}
		if extracted, err := p.LLM.ExtractMetadata(ctx, raw.Text); err == nil {
			if extracted.Title != "" {
				meta.Title = extracted.Title
			}
			if extracted.Author != "" {
				meta.Author = extracted.Author
			}
			usedLLM = true
		}
	}

	warnings = append(warnings, raw.Warnings...)

	return model.ParsedContent{
		StructuredText: raw.Text,
		OriginalText:   raw.Text,
		Metadata:       meta,
		Structure:      sections,
		Quality:        quality,
		ParsingInfo: model.ParsingInfo{
			UsedLLM:    usedLLM,
			ParserName: "MarkdownParser",
			Elapsed:    time.Since(start),
			Warnings:   warnings,
		},
	}, nil
}

type walkFrame struct {
	node     ast.Node
	entering bool
}

// buildSections walks the goldmark AST non-recursively, building a
// Section tree keyed on heading hierarchy, matching the teacher's
// stack-based buildDocumentTree traversal.
func buildSections(doc ast.Node, source []byte) ([]*model.Section, []string) {
	if doc == nil {
		return nil, []string{"empty document"}
	}

	var roots []*model.Section
	var headingStack []*model.Section
	var warnings []string

	stack := []walkFrame{{node: doc, entering: true}}
	lastEnd := 0

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !frame.entering {
			continue
		}

		if heading, ok := frame.node.(*ast.Heading); ok {
			title := extractText(heading, source)
			startIdx, endIdx := nodeRange(heading, source, lastEnd)
			lastEnd = endIdx

			for len(headingStack) > 0 && headingStack[len(headingStack)-1].Level >= heading.Level {
				headingStack = headingStack[:len(headingStack)-1]
			}

			section := &model.Section{
				ID:    uuid.New(),
				Title: title,
				Level: heading.Level,
				Start: startIdx,
				End:   endIdx,
			}

			if len(headingStack) == 0 {
				roots = append(roots, section)
			} else {
				parent := headingStack[len(headingStack)-1]
				parent.Children = append(parent.Children, section)
			}
			headingStack = append(headingStack, section)
		}

		for c := frame.node.LastChild(); c != nil; c = c.PreviousSibling() {
			stack = append(stack, walkFrame{node: c, entering: true})
		}
	}

	closeSectionEnds(roots, len(source))

	if len(roots) == 0 {
		warnings = append(warnings, "no headings found, document has no structural hierarchy")
	}
	return roots, warnings
}

// closeSectionEnds extends every section's End to its next sibling's
// Start (or the document end for the last section at each level),
// since the AST only gives each heading's own span.
func closeSectionEnds(sections []*model.Section, docEnd int) {
	for i, s := range sections {
		if i+1 < len(sections) {
			s.End = sections[i+1].Start
		} else {
			s.End = docEnd
		}
		closeSectionEnds(s.Children, s.End)
	}
}

func extractText(node ast.Node, source []byte) string {
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
		}
	}
	return strings.TrimSpace(b.String())
}

func nodeRange(node ast.Node, source []byte, fallbackStart int) (start, end int) {
	lines := node.Lines()
	if lines.Len() == 0 {
		return fallbackStart, fallbackStart
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)
	return first.Start, last.Stop
}

func completenessFromSections(sections []*model.Section, textLen int) float64 {
	if textLen == 0 {
		return 0
	}
	if len(sections) == 0 {
		return 0.6
	}
	return 0.85
}

func structureConfidence(sections []*model.Section) float64 {
	if len(sections) == 0 {
		return 0.3
	}
	return 0.9
}

// detectLanguage implements a lightweight CJK-aware language sniff:
// Hangul first, then Hiragana/Katakana, then Han as a Chinese
// fallback, before falling back to English for ASCII-dominant text.
func detectLanguage(text string) string {
	var hangul, kana, han, latin int
	for _, r := range text {
		switch {
		case r >= 0xAC00 && r <= 0xD7A3:
			hangul++
		case (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF):
			kana++
		case r >= 0x4E00 && r <= 0x9FFF:
			han++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	switch {
	case hangul > 0:
		return "ko"
	case kana > 0:
		return "ja"
	case han > 0:
		return "zh"
	case latin > 0:
		return "en"
	default:
		return "und"
	}
}

func languageConfidence(lang, text string) float64 {
	if lang == "und" || text == "" {
		return 0
	}
	return 0.7
}
