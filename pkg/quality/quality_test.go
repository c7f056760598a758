package quality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/pkg/model"
	"github.com/iyulab/fileflux/pkg/quality"
)

func chunkWithContent(text string) *model.DocumentChunk {
	c := model.NewDocumentChunk(text, "FixedSize")
	c.Tokens = len(text) / 4
	return c
}

func TestEvaluateChunk_WellFormedTextScoresHigherThanFragment(t *testing.T) {
	content := &model.ParsedContent{StructuredText: "irrelevant"}
	full := chunkWithContent("This is a complete sentence that stands on its own and explains a full idea clearly.")
	fragment := chunkWithContent("and then")

	fullMetrics := quality.EvaluateChunk(full, content)
	fragMetrics := quality.EvaluateChunk(fragment, content)

	assert.Greater(t, fullMetrics.Overall, fragMetrics.Overall)
	for _, m := range []float64{fullMetrics.SemanticCompleteness, fullMetrics.ContextIndependence, fullMetrics.InformationDensity, fullMetrics.BoundarySharpness, fullMetrics.Overall} {
		assert.GreaterOrEqual(t, m, 0.0)
		assert.LessOrEqual(t, m, 1.0)
	}
}

func TestEvaluateDocument_ProducesRecommendationsForTinyChunks(t *testing.T) {
	content := &model.ParsedContent{StructuredText: "doc"}
	chunks := []*model.DocumentChunk{
		chunkWithContent("a"),
		chunkWithContent("b"),
	}
	metrics, recs := quality.EvaluateDocument(chunks, content, 50)

	assert.GreaterOrEqual(t, metrics.AverageCompleteness, 0.0)
	assert.NotNil(t, recs)
}

func TestEvaluateDocument_EmptyChunksReturnsZeroMetrics(t *testing.T) {
	content := &model.ParsedContent{StructuredText: "doc"}
	metrics, recs := quality.EvaluateDocument(nil, content, 50)
	require.Equal(t, quality.DocumentMetrics{}, metrics)
	assert.Empty(t, recs)
}
