package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Action records one edit the normalizer made, in phase order.
type Action struct {
	Type    string
	Details string
}

// Action type tags, referenced by the end-to-end scenarios in §8.
const (
	ActionAnnotationHeadingDemoted = "AnnotationHeadingDemoted"
	ActionEmptyHeadingRemoved      = "EmptyHeadingRemoved"
	ActionFirstHeadingPromoted     = "FirstHeadingPromoted"
	ActionHeadingHierarchyAdjusted = "HeadingHierarchyAdjusted"
	ActionListIndentNormalized     = "ListIndentNormalized"
	ActionComplexTableConverted    = "ComplexTableConverted"
)

// NormalizeOptions toggles each of the six phases independently and
// tunes their thresholds.
type NormalizeOptions struct {
	EnableDemoteAnnotation bool
	EnableRemoveEmpty      bool
	EnableHierarchy        bool
	EnableLists            bool
	EnableTables           bool
	EnableWhitespace       bool

	MaxFirstHeadingLevel int
	MaxHeadingLevelJump  int
	MaxColumnVariance    int
}

// DefaultNormalizeOptions enables all six phases with the spec's
// default thresholds.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		EnableDemoteAnnotation: true,
		EnableRemoveEmpty:      true,
		EnableHierarchy:        true,
		EnableLists:            true,
		EnableTables:           true,
		EnableWhitespace:       true,
		MaxFirstHeadingLevel:   2,
		MaxHeadingLevelJump:    1,
		MaxColumnVariance:      1,
	}
}

// NormalizeStats summarizes the actions taken across all phases.
type NormalizeStats struct {
	HeadingsFound     int
	HeadingsDemoted   int
	HeadingsRemoved   int
	HeadingsAdjusted  int
	ListsNormalized   int
	TablesFound       int
	TablesPreserved   int
	TablesConverted   int
	BlankLinesRemoved int
}

// NormalizeResult is the normalizer's full output.
type NormalizeResult struct {
	Markdown         string
	OriginalMarkdown string
	Actions          []Action
	Stats            NormalizeStats
}

// HasChanges reports whether any phase recorded an action.
func (r NormalizeResult) HasChanges() bool { return len(r.Actions) > 0 }

var (
	annotationParenRe = regexp.MustCompile(`^\s*[（(].*[）)]\s*$`)
	annotationLeadRe  = regexp.MustCompile(`^\s*[※*•●○■]+\s*`)
	punctuationOnlyRe = regexp.MustCompile(`^[\s\p{P}]*$`)
)

// Normalize applies the six ordered phases to md and returns the
// rewritten Markdown plus an action log. Normalize is idempotent:
// Normalize(Normalize(md).Markdown) produces no further actions.
func Normalize(md string, opts NormalizeOptions) NormalizeResult {
	result := NormalizeResult{OriginalMarkdown: md}
	lines := strings.Split(md, "\n")

	if opts.EnableDemoteAnnotation {
		lines = demoteAnnotationHeadings(lines, &result)
	}
	if opts.EnableRemoveEmpty {
		lines = removeEmptyHeadings(lines, &result)
	}
	if opts.EnableHierarchy {
		first := opts.MaxFirstHeadingLevel
		if first <= 0 {
			first = 2
		}
		jump := opts.MaxHeadingLevelJump
		if jump <= 0 {
			jump = 1
		}
		lines = normalizeHeadingHierarchy(lines, first, jump, &result)
	}
	if opts.EnableLists {
		lines = normalizeListStructure(lines, &result)
	}
	if opts.EnableTables {
		variance := opts.MaxColumnVariance
		if variance <= 0 {
			variance = 1
		}
		lines = normalizeTables(lines, variance, &result)
	}

	out := strings.Join(lines, "\n")
	if opts.EnableWhitespace {
		out = normalizeWhitespace(out, &result)
	}

	result.Markdown = out
	return result
}

func demoteAnnotationHeadings(lines []string, result *NormalizeResult) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			result.Stats.HeadingsFound++
			text := strings.TrimSpace(m[2])
			if isAnnotationText(text) {
				out = append(out, text)
				result.Stats.HeadingsDemoted++
				result.Actions = append(result.Actions, Action{
					Type:    ActionAnnotationHeadingDemoted,
					Details: fmt.Sprintf("demoted heading %q", text),
				})
				continue
			}
		}
		out = append(out, line)
	}
	return out
}

func isAnnotationText(text string) bool {
	if text == "" {
		return false
	}
	if annotationParenRe.MatchString(text) {
		return true
	}
	if annotationLeadRe.MatchString(text) {
		return true
	}
	if punctuationOnlyRe.MatchString(text) {
		return true
	}
	return false
}

func removeEmptyHeadings(lines []string, result *NormalizeResult) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			if strings.TrimSpace(m[2]) == "" {
				result.Stats.HeadingsRemoved++
				result.Actions = append(result.Actions, Action{
					Type:    ActionEmptyHeadingRemoved,
					Details: "removed empty heading",
				})
				continue
			}
		}
		out = append(out, line)
	}
	return out
}

type headingRef struct {
	lineIdx int
	level   int
}

func normalizeHeadingHierarchy(lines []string, maxFirst, maxJump int, result *NormalizeResult) []string {
	var headings []headingRef
	for i, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			headings = append(headings, headingRef{lineIdx: i, level: len(m[1])})
		}
	}
	if len(headings) == 0 {
		return lines
	}

	levels := make([]int, len(headings))
	for i, h := range headings {
		levels[i] = h.level
	}

	if levels[0] > maxFirst {
		result.Actions = append(result.Actions, Action{
			Type:    ActionFirstHeadingPromoted,
			Details: fmt.Sprintf("promoted first heading from level %d to %d", levels[0], maxFirst),
		})
		levels[0] = maxFirst
	}

	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1]+maxJump {
			adjusted := levels[i-1] + maxJump
			result.Stats.HeadingsAdjusted++
			result.Actions = append(result.Actions, Action{
				Type:    ActionHeadingHierarchyAdjusted,
				Details: fmt.Sprintf("adjusted heading from level %d to %d", levels[i], adjusted),
			})
			levels[i] = adjusted
		}
	}

	for i, h := range headings {
		if levels[i] != h.level {
			m := headingRe.FindStringSubmatch(lines[h.lineIdx])
			lines[h.lineIdx] = strings.Repeat("#", levels[i]) + " " + m[2]
		}
	}
	return lines
}

func normalizeListStructure(lines []string, result *NormalizeResult) []string {
	out := make([]string, len(lines))
	copy(out, lines)

	baseline := -1
	prevLevel := -1

	for i, line := range out {
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			if strings.TrimSpace(line) != "" {
				baseline = -1
				prevLevel = -1
			}
			continue
		}

		indentWidth := len(m[1])
		if baseline < 0 {
			baseline = indentWidth
			prevLevel = 0
			continue
		}

		level := 0
		if indentWidth > baseline {
			level = (indentWidth - baseline + 1) / 2
		}

		if level > prevLevel+1 {
			collapsed := prevLevel + 1
			newIndent := strings.Repeat("  ", collapsed)
			marker := m[2]
			rest := strings.TrimPrefix(line, m[0])
			out[i] = newIndent + marker + " " + rest
			result.Stats.ListsNormalized++
			result.Actions = append(result.Actions, Action{
				Type:    ActionListIndentNormalized,
				Details: fmt.Sprintf("collapsed list indent from level %d to %d", level, collapsed),
			})
			level = collapsed
		}
		prevLevel = level
	}
	return out
}

func normalizeTables(lines []string, maxVariance int, result *NormalizeResult) []string {
	var out []string
	i := 0
	for i < len(lines) {
		if !tableRowRe.MatchString(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}

		start := i
		var table []string
		for i < len(lines) && tableRowRe.MatchString(lines[i]) {
			table = append(table, lines[i])
			i++
		}
		result.Stats.TablesFound++

		if isComplexTable(table, maxVariance) {
			out = append(out, wrapTableAsHTML(table)...)
			result.Stats.TablesConverted++
			result.Actions = append(result.Actions, Action{
				Type:    ActionComplexTableConverted,
				Details: fmt.Sprintf("wrapped complex table at line %d", start),
			})
		} else {
			out = append(out, table...)
			result.Stats.TablesPreserved++
		}
	}
	return out
}

// isComplexTable implements the unified rule from Open Question
// Decision #2: fewer than 2 rows, a missing header separator, or
// column-count variance beyond maxVariance all mark a table complex.
func isComplexTable(table []string, maxVariance int) bool {
	if len(table) < 2 {
		return true
	}
	if !tableSepRe.MatchString(table[1]) || !strings.Contains(table[1], "-") {
		return true
	}

	counts := make([]int, 0, len(table))
	for i, row := range table {
		if i == 1 {
			continue // separator row doesn't count toward column variance
		}
		counts = append(counts, strings.Count(row, "|"))
	}
	if len(counts) == 0 {
		return true
	}
	min, max := counts[0], counts[0]
	for _, c := range counts {
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	return max-min > maxVariance
}

// wrapTableAsHTML renders a complex Markdown table region as a single
// HTML <table> block, using x/net/html to tokenize the generated
// markup and guard against malformed cell content leaking raw `<`/`>`.
func wrapTableAsHTML(table []string) []string {
	var rows [][]string
	for i, line := range table {
		if i == 1 && tableSepRe.MatchString(line) {
			continue
		}
		cells := splitTableRow(line)
		rows = append(rows, cells)
	}

	var b strings.Builder
	b.WriteString("<table>\n")
	for i, row := range rows {
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		b.WriteString("  <tr>")
		for _, cell := range row {
			b.WriteString("<" + tag + ">" + html.EscapeString(cell) + "</" + tag + ">")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>")

	// Validate the markup is well-formed before handing it back;
	// malformed output here would silently corrupt downstream chunking.
	if _, err := html.Parse(strings.NewReader(b.String())); err != nil {
		b.Reset()
		b.WriteString("<table>\n")
		for _, row := range rows {
			b.WriteString("  <tr><td>" + html.EscapeString(strings.Join(row, " ")) + "</td></tr>\n")
		}
		b.WriteString("</table>")
	}

	return []string{b.String()}
}

func splitTableRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")
	parts := strings.Split(trimmed, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

var trailingSpaceRe = regexp.MustCompile(`[ \t]+$`)

func normalizeWhitespace(md string, result *NormalizeResult) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = trailingSpaceRe.ReplaceAllString(line, "")
	}
	trimmed := strings.Join(lines, "\n")

	collapsed := collapseBlankLines(trimmed, 2)
	result.Stats.BlankLinesRemoved += strings.Count(trimmed, "\n") - strings.Count(collapsed, "\n")
	return collapsed
}
