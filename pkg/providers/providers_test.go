package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate_PassesThroughShortStringsAndCapsLongOnes(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 100))
	assert.Len(t, truncate("0123456789", 5), 5)
}

func TestExtractJSON_PullsObjectOutOfProseOrFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, extractJSON("Sure, here you go:\n```json\n{\"a\":1}\n```"))
	assert.Equal(t, "{}", extractJSON("no json here"))
}

func TestClientError_ErrorFormatsStatusAndCause(t *testing.T) {
	withStatus := newHTTPError("completion", "POST /x", 500, "boom")
	assert.Contains(t, withStatus.Error(), "500")
	assert.Contains(t, withStatus.Error(), "completion")

	noStatus := newClientError("embedding", "POST /y", assert.AnError)
	assert.NotContains(t, noStatus.Error(), "status")
	assert.ErrorIs(t, noStatus, assert.AnError)
}

func TestNullCompletionProvider_EveryMethodErrors(t *testing.T) {
	p := NullCompletionProvider{}
	ctx := context.Background()

	_, err := p.Generate(ctx, "x")
	require.Error(t, err)
	_, err = p.AnalyzeStructure(ctx, "x")
	require.Error(t, err)
	_, err = p.Summarize(ctx, "x", 10)
	require.Error(t, err)
	_, err = p.ExtractMetadata(ctx, "x")
	require.Error(t, err)
	_, err = p.AssessQuality(ctx, "x")
	require.Error(t, err)
}

func TestNullEmbeddingProvider_EmbedErrorsAndSimilarityIsZero(t *testing.T) {
	p := NullEmbeddingProvider{}
	_, err := p.Embed(context.Background(), "x", "")
	require.Error(t, err)
	assert.Equal(t, 0.0, p.CosineSimilarity([]float64{1}, []float64{1}))
}

func TestEmbeddingProvider_CosineSimilarity(t *testing.T) {
	p := &EmbeddingProvider{}
	assert.InDelta(t, 1.0, p.CosineSimilarity([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, p.CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, p.CosineSimilarity([]float64{1, 2}, []float64{1}))
	assert.Equal(t, 0.0, p.CosineSimilarity(nil, []float64{1}))
}
