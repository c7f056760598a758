// Package selector implements the Adaptive Strategy Selector (C7): a
// heuristic rule cascade over document structural features, with an
// optional LLM refinement pass. Grounded on the teacher's
// pkg/search/scoring.go CalculateAdvancedScore weighted-feature idiom,
// re-targeted from result ranking to strategy selection.
package selector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/chunking"
	"github.com/iyulab/fileflux/pkg/model"
)

// Features are the structural signals the rule cascade inspects.
type Features struct {
	CodeDensity            float64
	TableDensity           float64
	HeadingDensity         float64
	AverageSentenceLength  float64
	StructuralComplexity   float64
}

// Options configures a Select call.
type Options struct {
	ConfidenceThreshold float64
	PreferSpeed         bool
	PreferQuality       bool
	UseLLMRefinement    bool
}

// DefaultOptions mirrors the spec's default selector configuration.
func DefaultOptions() Options {
	return Options{ConfidenceThreshold: 0.6}
}

// Selector implements chunking.Selector.
type Selector struct {
	LLM capability.TextCompletionProvider
	Opt Options
}

var _ chunking.Selector = (*Selector)(nil)

// New builds a Selector with the given options and an optional LLM
// refinement provider (nil disables refinement regardless of
// opt.UseLLMRefinement).
func New(opt Options, llm capability.TextCompletionProvider) *Selector {
	return &Selector{LLM: llm, Opt: opt}
}

var (
	fenceRe        = regexp.MustCompile("(?m)^```")
	tableRowRe     = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)
	headingLineRe  = regexp.MustCompile(`(?m)^#{1,6}\s+.+$`)
	sentenceEndRe  = regexp.MustCompile(`[.!?]+\s`)
)

// ComputeFeatures derives structural Features from parsed content.
func ComputeFeatures(content *model.ParsedContent) Features {
	text := content.StructuredText
	if text == "" {
		return Features{}
	}
	totalLen := float64(len(text))
	lines := strings.Split(text, "\n")
	lineCount := float64(len(lines))
	if lineCount == 0 {
		lineCount = 1
	}

	codeLines := 0.0
	inFence := false
	for _, l := range lines {
		if fenceRe.MatchString(l) {
			inFence = !inFence
			codeLines++
			continue
		}
		if inFence {
			codeLines++
		}
	}

	tableLines := float64(len(tableRowRe.FindAllString(text, -1)))
	headingLines := float64(len(headingLineRe.FindAllString(text, -1)))

	sentences := sentenceEndRe.Split(text, -1)
	nonEmpty := 0
	totalSentenceLen := 0
	for _, s := range sentences {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		totalSentenceLen += len(trimmed)
	}
	avgSentenceLen := 0.0
	if nonEmpty > 0 {
		avgSentenceLen = float64(totalSentenceLen) / float64(nonEmpty)
	}

	structuralComplexity := model.Clamp01((headingLines/lineCount)*2 + (tableLines/lineCount) + (codeLines / lineCount))

	_ = totalLen
	return Features{
		CodeDensity:           model.Clamp01(codeLines / lineCount),
		TableDensity:          model.Clamp01(tableLines / lineCount),
		HeadingDensity:        model.Clamp01(headingLines / lineCount),
		AverageSentenceLength: avgSentenceLen,
		StructuralComplexity:  structuralComplexity,
	}
}

// Select implements the fixed rule cascade from §4.6, applied in
// order with first match winning:
//  1. code_density > 0.3 -> Intelligent, confidence 0.9
//  2. table_density > 0.1 -> Intelligent, confidence 0.85
//  3. heading_density > 0.05 and structural_complexity > 0.5 -> Hierarchical, confidence 0.8
//  4. average_sentence_length > 40 -> Smart, confidence 0.75
//  5. structural_complexity > 0.3 -> Semantic, confidence 0.7
//  6. otherwise -> Paragraph, confidence 0.6
//
// An optional LLM refinement pass may override the heuristic pick when
// confidence is below opt.ConfidenceThreshold.
func (s *Selector) Select(ctx context.Context, content *model.ParsedContent, opts chunking.Options) (chunking.SelectionResult, error) {
	f := ComputeFeatures(content)

	strategy, confidence, reasoning := cascade(f)

	if s.Opt.UseLLMRefinement && s.LLM != nil && confidence < s.Opt.ConfidenceThreshold {
		analysis, err := s.LLM.AnalyzeStructure(ctx, content.StructuredText)
		if err == nil && analysis.SuggestedStrategy != "" && analysis.Confidence > confidence {
			strategy = chunking.Strategy(analysis.SuggestedStrategy)
			confidence = analysis.Confidence
			reasoning = fmt.Sprintf("LLM refinement: %s", analysis.Reasoning)
		}
	}

	return chunking.SelectionResult{Strategy: strategy, Confidence: confidence, Reasoning: reasoning}, nil
}

// cascade is the literal §4.6 rule table: fixed thresholds and fixed
// per-rule confidence constants, first match wins.
func cascade(f Features) (chunking.Strategy, float64, string) {
	switch {
	case f.CodeDensity > 0.3:
		return chunking.StrategyIntelligent, 0.9,
			fmt.Sprintf("code density %.2f exceeds 0.3, atomic code handling required", f.CodeDensity)

	case f.TableDensity > 0.1:
		return chunking.StrategyIntelligent, 0.85,
			fmt.Sprintf("table density %.2f exceeds 0.1, atomic table handling required", f.TableDensity)

	case f.HeadingDensity > 0.05 && f.StructuralComplexity > 0.5:
		return chunking.StrategyHierarchical, 0.8,
			fmt.Sprintf("heading density %.2f and structural complexity %.2f indicate nested sections", f.HeadingDensity, f.StructuralComplexity)

	case f.AverageSentenceLength > 40:
		return chunking.StrategySmart, 0.75,
			fmt.Sprintf("average sentence length %.0f exceeds 40, packing for completeness", f.AverageSentenceLength)

	case f.StructuralComplexity > 0.3:
		return chunking.StrategySemantic, 0.7,
			fmt.Sprintf("structural complexity %.2f exceeds 0.3, meaning-based boundaries needed", f.StructuralComplexity)

	default:
		return chunking.StrategyParagraph, 0.6, "no strong structural or length signal, defaulting to paragraph grouping"
	}
}
