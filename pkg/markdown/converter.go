// Package markdown implements the Markdown Converter (C3) and the
// Markdown Normalizer (C4): heuristic RawContent -> Markdown conversion,
// and a six-phase rewrite of malformed Markdown. Both are grounded in
// the teacher's internal/chunking/markdown.go line-oriented heuristics
// and scan the text line by line with regular expressions; neither
// builds a goldmark AST. The normalizer uses x/net/html to escape and
// check the <table> markup it wraps complex tables in.
package markdown

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/logx"
	"github.com/iyulab/fileflux/pkg/model"
)

// ConvertMethod records how a conversion was produced.
type ConvertMethod string

const (
	MethodHeuristic ConvertMethod = "Heuristic"
	MethodLLM       ConvertMethod = "LLM"
)

// ConvertOptions enumerates the recognized transformations, all
// default ON per §4.2.
type ConvertOptions struct {
	PreserveHeadings         bool
	ConvertTables            bool
	PreserveLists            bool
	IncludeImagePlaceholders bool
	DetectCodeBlocks         bool
	NormalizeWhitespace      bool
	MinHeadingLevel          int
	MaxHeadingLevel          int
	UseLLMInference          bool
}

// DefaultConvertOptions returns the all-ON default configuration.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{
		PreserveHeadings:         true,
		ConvertTables:            true,
		PreserveLists:            true,
		IncludeImagePlaceholders: true,
		DetectCodeBlocks:         true,
		NormalizeWhitespace:      true,
		MinHeadingLevel:          1,
		MaxHeadingLevel:          6,
	}
}

// ConvertStatistics summarizes what the converter found.
type ConvertStatistics struct {
	HeadingsCount             int
	ListCount                 int
	TableCount                int
	CodeBlockCount            int
	ImagePlaceholderCount     int
	HeadingLevelDistribution  map[int]int
}

// ConvertResult is the converter's full output.
type ConvertResult struct {
	Markdown       string
	OriginalLength int
	MarkdownLength int
	Method         ConvertMethod
	Warnings       []string
	Statistics     ConvertStatistics
}

var (
	allCapsLineRe  = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 \-:.,'"()]{2,}$`)
	numberedSecRe  = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(\S.*)$`)
	unicodeBullet  = regexp.MustCompile(`^[\s]*[•●○■][\s]*`)
	parenNumberRe  = regexp.MustCompile(`^(\d+)\)\s+`)
	letterParenRe  = regexp.MustCompile(`^[a-zA-Z]\)\s+`)
	wrappedNumRe   = regexp.MustCompile(`^\((\d+)\)\s+`)
	imageStartRe   = regexp.MustCompile(`<!--\s*IMAGE_START:(\w+)\s*-->`)
	imageAltRe     = regexp.MustCompile(`\[image:([^\]]*)\]`)
	imageIdxRe     = regexp.MustCompile(`\[img_(\d+)\]`)
	tableRowRe     = regexp.MustCompile(`^\s*\|.*\|\s*$`)
	tableSepRe     = regexp.MustCompile(`^\s*\|?[\s:|-]+\|?\s*$`)
	fenceRe        = regexp.MustCompile("^(```|~~~)(.*)$")
	headingRe      = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listItemRe     = regexp.MustCompile(`^(\s*)([-*+]|\d+\.)\s+`)
)

// Convert turns raw into canonical Markdown, honoring opts. It never
// fails: empty input yields empty output with a warning.
func Convert(ctx context.Context, raw model.RawContent, opts ConvertOptions, llm capability.TextCompletionProvider) ConvertResult {
	if opts.MinHeadingLevel < 1 {
		opts.MinHeadingLevel = 1
	}
	if opts.MaxHeadingLevel < opts.MinHeadingLevel || opts.MaxHeadingLevel > 6 {
		opts.MaxHeadingLevel = 6
	}

	result := ConvertResult{
		OriginalLength: len(raw.Text),
		Method:         MethodHeuristic,
		Statistics:     ConvertStatistics{HeadingLevelDistribution: map[int]int{}},
	}

	if strings.TrimSpace(raw.Text) == "" {
		result.Warnings = append(result.Warnings, "empty input")
		return result
	}

	if opts.UseLLMInference {
		if llm == nil {
			result.Warnings = append(result.Warnings, "LLM inference requested but no completion provider is configured; falling back to heuristic conversion")
		} else {
			md, err := llm.Generate(ctx, buildConversionPrompt(raw.Text))
			if err != nil {
				result.Warnings = append(result.Warnings, "LLM conversion failed: "+err.Error()+"; falling back to heuristic conversion")
				logx.Get().Warn("markdown converter: llm fallback", "error", err)
			} else {
				result.Markdown = md
				result.Method = MethodLLM
				result.MarkdownLength = len(md)
				result.Statistics = computeStatistics(md)
				return result
			}
		}
	}

	lines := strings.Split(raw.Text, "\n")
	var out []string
	inFence := false
	fenceMarker := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if opts.DetectCodeBlocks {
			if m := fenceRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				if !inFence {
					inFence = true
					fenceMarker = m[1]
					result.Statistics.CodeBlockCount++
				} else if m[1] == fenceMarker {
					inFence = false
				}
				out = append(out, line)
				continue
			}
			if inFence {
				out = append(out, line)
				continue
			}
		}

		if opts.ConvertTables && tableRowRe.MatchString(line) {
			tableLines, consumed := collectTable(lines, i)
			tableLines = normalizeTableHeaderSeparator(tableLines)
			out = append(out, tableLines...)
			result.Statistics.TableCount++
			i += consumed - 1
			continue
		}

		if opts.IncludeImagePlaceholders {
			if repl, ok := convertImagePlaceholder(line); ok {
				out = append(out, repl)
				result.Statistics.ImagePlaceholderCount++
				continue
			}
		}

		if opts.PreserveHeadings {
			if lvl, text, ok := detectHeading(line); ok {
				lvl = clampHeadingLevel(lvl, opts.MinHeadingLevel, opts.MaxHeadingLevel)
				out = append(out, strings.Repeat("#", lvl)+" "+text)
				result.Statistics.HeadingsCount++
				result.Statistics.HeadingLevelDistribution[lvl]++
				continue
			}
		}

		if opts.PreserveLists {
			if repl, ok := convertListLine(line); ok {
				out = append(out, repl)
				result.Statistics.ListCount++
				continue
			}
		}

		out = append(out, line)
	}

	md := strings.Join(out, "\n")
	if opts.NormalizeWhitespace {
		md = collapseBlankLines(md, 2)
	}

	result.Markdown = md
	result.MarkdownLength = len(md)
	return result
}

func buildConversionPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Convert the following extracted text into clean GitHub-flavored Markdown, preserving headings, lists, tables and code blocks:\n\n")
	b.WriteString(text)
	return b.String()
}

func detectHeading(line string) (level int, text string, ok bool) {
	trimmed := strings.TrimRight(line, " \t")
	if m := headingRe.FindStringSubmatch(trimmed); m != nil {
		return len(m[1]), strings.TrimSpace(m[2]), true
	}
	s := strings.TrimSpace(trimmed)
	if s == "" {
		return 0, "", false
	}
	if m := numberedSecRe.FindStringSubmatch(s); m != nil {
		level := strings.Count(m[1], ".") + 1
		if level > 6 {
			level = 6
		}
		return level, s, true
	}
	if allCapsLineRe.MatchString(s) && len(s) < 80 {
		return 2, s, true
	}
	return 0, "", false
}

func clampHeadingLevel(level, min, max int) int {
	if level < min {
		return min
	}
	if level > max {
		return max
	}
	return level
}

func convertListLine(line string) (string, bool) {
	trimmed := line
	indent := ""
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t') {
		indent += string(trimmed[0])
		trimmed = trimmed[1:]
	}

	if unicodeBullet.MatchString(line) {
		rest := unicodeBullet.ReplaceAllString(line, "")
		return indent + "- " + strings.TrimSpace(rest), true
	}
	if m := parenNumberRe.FindStringSubmatch(trimmed); m != nil {
		rest := parenNumberRe.ReplaceAllString(trimmed, "")
		return indent + m[1] + ". " + strings.TrimSpace(rest), true
	}
	if m := wrappedNumRe.FindStringSubmatch(trimmed); m != nil {
		rest := wrappedNumRe.ReplaceAllString(trimmed, "")
		return indent + m[1] + ". " + strings.TrimSpace(rest), true
	}
	if letterParenRe.MatchString(trimmed) {
		rest := letterParenRe.ReplaceAllString(trimmed, "")
		return indent + "- " + strings.TrimSpace(rest), true
	}
	if m := listItemRe.FindStringSubmatch(line); m != nil {
		_ = m
		return line, true
	}
	return "", false
}

func convertImagePlaceholder(line string) (string, bool) {
	if m := imageStartRe.FindStringSubmatch(line); m != nil {
		return "![](embedded:" + strings.ToLower(m[1]) + ")", true
	}
	if m := imageAltRe.FindStringSubmatch(line); m != nil {
		alt := strings.TrimSpace(m[1])
		return strings.Replace(line, m[0], "![Image: "+alt+"](embedded:img)", 1), true
	}
	if m := imageIdxRe.FindStringSubmatch(line); m != nil {
		return strings.Replace(line, m[0], "![](embedded:img_"+m[1]+")", 1), true
	}
	return "", false
}

func collectTable(lines []string, start int) ([]string, int) {
	var table []string
	i := start
	for i < len(lines) && tableRowRe.MatchString(lines[i]) {
		table = append(table, lines[i])
		i++
	}
	return table, i - start
}

// normalizeTableHeaderSeparator inserts a missing header separator row
// (§4.2 "insert missing header separator") when a table has a header
// row but no `---` separator on the second line.
func normalizeTableHeaderSeparator(table []string) []string {
	if len(table) == 0 {
		return table
	}
	if len(table) >= 2 && tableSepRe.MatchString(table[1]) && strings.Contains(table[1], "-") {
		return table
	}
	cols := strings.Count(table[0], "|") - 1
	if cols < 1 {
		cols = 1
	}
	sep := "|"
	for i := 0; i < cols; i++ {
		sep += " --- |"
	}
	out := make([]string, 0, len(table)+1)
	out = append(out, table[0], sep)
	out = append(out, table[1:]...)
	return out
}

// collapseBlankLines shortens every run of more than max blank lines
// to exactly max blank lines (max+1 consecutive newlines).
func collapseBlankLines(s string, max int) string {
	blankRunRe := regexp.MustCompile(`\n{` + strconv.Itoa(max+2) + `,}`)
	return blankRunRe.ReplaceAllString(s, strings.Repeat("\n", max+1))
}

func computeStatistics(md string) ConvertStatistics {
	stats := ConvertStatistics{HeadingLevelDistribution: map[int]int{}}
	inFence := false
	for _, line := range strings.Split(md, "\n") {
		if fenceRe.MatchString(strings.TrimSpace(line)) {
			if !inFence {
				stats.CodeBlockCount++
			}
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingRe.FindStringSubmatch(line); m != nil {
			lvl := len(m[1])
			stats.HeadingsCount++
			stats.HeadingLevelDistribution[lvl]++
		}
		if tableRowRe.MatchString(line) {
			stats.TableCount++
		}
		if listItemRe.MatchString(line) {
			stats.ListCount++
		}
	}
	return stats
}

// HeadingCount returns the number of `^#{1,6} ` lines in md — the
// round-trip property checked against ConvertStatistics.HeadingsCount
// (§8 "Converter statistics").
func HeadingCount(md string) int {
	count := 0
	inFence := false
	for _, line := range strings.Split(md, "\n") {
		if fenceRe.MatchString(strings.TrimSpace(line)) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if headingRe.MatchString(line) {
			count++
		}
	}
	return count
}
