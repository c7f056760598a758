package enrich_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/enrich"
	"github.com/iyulab/fileflux/pkg/model"
)

type fakeLLM struct {
	capability.TextCompletionProvider
	summary    capability.Summary
	summaryErr error
	meta       capability.ExtractedMetadata
	metaErr    error
}

func (f fakeLLM) Summarize(ctx context.Context, text string, maxLen int) (capability.Summary, error) {
	return f.summary, f.summaryErr
}

func (f fakeLLM) ExtractMetadata(ctx context.Context, text string) (capability.ExtractedMetadata, error) {
	return f.meta, f.metaErr
}

func TestEnrich_NilLLMMarksEverythingSkipped(t *testing.T) {
	chunks := []*model.DocumentChunk{model.NewDocumentChunk("hello world", "Paragraph")}
	err := enrich.Enrich(context.Background(), chunks, nil, enrich.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, true, chunks[0].Props[enrich.PropEnrichmentSkipped])
}

func TestEnrich_AttachesSummaryAndKeywords(t *testing.T) {
	chunks := []*model.DocumentChunk{model.NewDocumentChunk("hello world", "Paragraph")}
	llm := fakeLLM{
		summary: capability.Summary{Text: "a short summary"},
		meta:    capability.ExtractedMetadata{Keywords: []string{"a", "b", "c"}},
	}
	err := enrich.Enrich(context.Background(), chunks, llm, enrich.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "a short summary", chunks[0].Props[enrich.PropSummary])
	assert.Equal(t, []string{"a", "b", "c"}, chunks[0].Props[enrich.PropKeywords])
	assert.Nil(t, chunks[0].Props[enrich.PropEnrichmentSkipped])
}

func TestEnrich_CapsKeywordsAtMaxKeywords(t *testing.T) {
	chunks := []*model.DocumentChunk{model.NewDocumentChunk("hello world", "Paragraph")}
	llm := fakeLLM{meta: capability.ExtractedMetadata{Keywords: []string{"a", "b", "c", "d", "e"}}}
	opts := enrich.Options{EnableKeywordExtraction: true, MaxKeywords: 2}
	err := enrich.Enrich(context.Background(), chunks, llm, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, chunks[0].Props[enrich.PropKeywords])
}

func TestEnrich_SummarizeFailureMarksSkippedWithoutError(t *testing.T) {
	chunks := []*model.DocumentChunk{model.NewDocumentChunk("hello world", "Paragraph")}
	llm := fakeLLM{summaryErr: errors.New("upstream timeout")}
	opts := enrich.Options{EnableSummarization: true}
	err := enrich.Enrich(context.Background(), chunks, llm, opts)
	require.NoError(t, err)
	assert.Equal(t, true, chunks[0].Props[enrich.PropEnrichmentSkipped])
	assert.Nil(t, chunks[0].Props[enrich.PropSummary])
}

func TestEnrich_BothDisabledIsNoOp(t *testing.T) {
	chunks := []*model.DocumentChunk{model.NewDocumentChunk("hello world", "Paragraph")}
	err := enrich.Enrich(context.Background(), chunks, fakeLLM{}, enrich.Options{})
	require.NoError(t, err)
	assert.Nil(t, chunks[0].Props[enrich.PropEnrichmentSkipped])
}

func TestEnrich_HonorsCancellation(t *testing.T) {
	chunks := []*model.DocumentChunk{model.NewDocumentChunk("hello world", "Paragraph")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := enrich.Enrich(ctx, chunks, fakeLLM{}, enrich.DefaultOptions())
	assert.Error(t, err)
}
