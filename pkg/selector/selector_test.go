package selector_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/chunking"
	"github.com/iyulab/fileflux/pkg/model"
	"github.com/iyulab/fileflux/pkg/selector"
)

func parsed(text string) *model.ParsedContent {
	return &model.ParsedContent{StructuredText: text}
}

func TestComputeFeatures_CodeHeavyDocument(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Title\n\n")
	for i := 0; i < 10; i++ {
		b.WriteString("```go\n")
		b.WriteString("fmt.Println(\"x\")\n")
		b.WriteString("```\n")
	}
	f := selector.ComputeFeatures(parsed(b.String()))
	assert.Greater(t, f.CodeDensity, 0.3)
}

func TestComputeFeatures_TableHeavyDocument(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Title\n\n")
	for i := 0; i < 10; i++ {
		b.WriteString("| a | b |\n")
	}
	f := selector.ComputeFeatures(parsed(b.String()))
	assert.Greater(t, f.TableDensity, 0.1)
}

func TestComputeFeatures_HeadingHeavyDocument(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("## Section\n")
		b.WriteString("one line of body text\n")
	}
	f := selector.ComputeFeatures(parsed(b.String()))
	assert.Greater(t, f.HeadingDensity, 0.05)
}

func TestComputeFeatures_EmptyTextReturnsZeroFeatures(t *testing.T) {
	f := selector.ComputeFeatures(parsed(""))
	assert.Equal(t, selector.Features{}, f)
}

func TestSelect_CodeDensityPicksIntelligent(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Title\n\n")
	for i := 0; i < 10; i++ {
		b.WriteString("```go\ncode line\n```\n")
	}
	s := selector.New(selector.DefaultOptions(), nil)
	result, err := s.Select(context.Background(), parsed(b.String()), chunking.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, chunking.StrategyIntelligent, result.Strategy)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestSelect_TableDensityPicksIntelligent(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Title\n\n")
	for i := 0; i < 10; i++ {
		b.WriteString("| a | b |\n")
	}
	s := selector.New(selector.DefaultOptions(), nil)
	result, err := s.Select(context.Background(), parsed(b.String()), chunking.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, chunking.StrategyIntelligent, result.Strategy)
	assert.Equal(t, 0.85, result.Confidence)
}

// TestSelect_HeadingHeavyPicksHierarchical is pure headings with no
// code fences or tables, so only rule 3 (heading_density > 0.05 and
// structural_complexity > 0.5) can fire; rules 1/2 never see any code
// or table lines to trip on.
func TestSelect_HeadingHeavyPicksHierarchical(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("## Section\n")
	}
	f := selector.ComputeFeatures(parsed(b.String()))
	require.Greater(t, f.HeadingDensity, 0.05)
	require.Greater(t, f.StructuralComplexity, 0.5)

	s := selector.New(selector.DefaultOptions(), nil)
	result, err := s.Select(context.Background(), parsed(b.String()), chunking.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, chunking.StrategyHierarchical, result.Strategy)
	assert.Equal(t, 0.8, result.Confidence)
}

// TestSelect_LongSentencesPickSmart exercises rule 4: average sentence
// length over 40 routes to Smart, not Semantic, per §4.6.
func TestSelect_LongSentencesPickSmart(t *testing.T) {
	sentence := strings.Repeat("word ", 15) + "trailing. "
	text := strings.Repeat(sentence, 5)
	f := selector.ComputeFeatures(parsed(text))
	require.Greater(t, f.AverageSentenceLength, 40.0)

	s := selector.New(selector.DefaultOptions(), nil)
	result, err := s.Select(context.Background(), parsed(text), chunking.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, chunking.StrategySmart, result.Strategy)
	assert.Equal(t, 0.75, result.Confidence)
}

// TestSelect_StructurallyComplexShortSentencesPicksSemantic exercises
// rule 5: structural_complexity over 0.3 routes to Semantic when no
// earlier rule fires — code/table/heading densities stay under their
// own trigger thresholds even though they jointly push complexity up,
// and sentences stay short so rule 4 never fires first.
func TestSelect_StructurallyComplexShortSentencesPicksSemantic(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("## Section.\n")
	}
	for i := 0; i < 40; i++ {
		b.WriteString("| a. | b. |\n")
	}
	for i := 0; i < 25; i++ {
		b.WriteString("```go\n")
		b.WriteString("one.\ntwo.\nthree.\n")
		b.WriteString("```\n")
	}
	for i := 0; i < 325; i++ {
		b.WriteString("Short sentence here.\n")
	}
	text := b.String()

	f := selector.ComputeFeatures(parsed(text))
	require.LessOrEqual(t, f.HeadingDensity, 0.05)
	require.LessOrEqual(t, f.TableDensity, 0.1)
	require.LessOrEqual(t, f.CodeDensity, 0.3)
	require.Greater(t, f.StructuralComplexity, 0.3)
	require.LessOrEqual(t, f.AverageSentenceLength, 40.0)

	s := selector.New(selector.DefaultOptions(), nil)
	result, err := s.Select(context.Background(), parsed(text), chunking.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, chunking.StrategySemantic, result.Strategy)
	assert.Equal(t, 0.7, result.Confidence)
}

func TestSelect_NoStrongSignalPicksParagraph(t *testing.T) {
	text := "A short note. Another short line. Done here."
	s := selector.New(selector.DefaultOptions(), nil)
	result, err := s.Select(context.Background(), parsed(text), chunking.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, chunking.StrategyParagraph, result.Strategy)
	assert.Equal(t, 0.6, result.Confidence)
}

type fakeLLM struct {
	capability.TextCompletionProvider
	analysis capability.StructureAnalysis
	err      error
}

func (f fakeLLM) AnalyzeStructure(ctx context.Context, text string) (capability.StructureAnalysis, error) {
	return f.analysis, f.err
}

func TestSelect_LLMRefinementOverridesLowConfidencePick(t *testing.T) {
	text := "A short note. Another short line. Done here."
	llm := fakeLLM{analysis: capability.StructureAnalysis{
		SuggestedStrategy: string(chunking.StrategyHierarchical),
		Confidence:        0.95,
		Reasoning:         "looks structurally nested",
	}}
	opts := selector.Options{ConfidenceThreshold: 0.99, UseLLMRefinement: true}
	s := selector.New(opts, llm)
	result, err := s.Select(context.Background(), parsed(text), chunking.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, chunking.StrategyHierarchical, result.Strategy)
	assert.Contains(t, result.Reasoning, "LLM refinement")
}

func TestSelect_LLMRefinementSkippedWhenConfidenceAlreadyHigh(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Title\n\n")
	for i := 0; i < 10; i++ {
		b.WriteString("```go\ncode line\n```\n")
	}
	llm := fakeLLM{analysis: capability.StructureAnalysis{
		SuggestedStrategy: string(chunking.StrategyParagraph),
		Confidence:        0.99,
	}}
	opts := selector.Options{ConfidenceThreshold: 0.1, UseLLMRefinement: true}
	s := selector.New(opts, llm)
	result, err := s.Select(context.Background(), parsed(b.String()), chunking.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, chunking.StrategyIntelligent, result.Strategy)
}

func TestSelect_NoLLMLeavesHeuristicPickUnchanged(t *testing.T) {
	opts := selector.Options{ConfidenceThreshold: 0.99, UseLLMRefinement: true}
	s := selector.New(opts, nil)
	result, err := s.Select(context.Background(), parsed("A short note. Another short line."), chunking.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, chunking.StrategyParagraph, result.Strategy)
}
