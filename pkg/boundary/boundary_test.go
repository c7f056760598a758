package boundary_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/pkg/boundary"
	"github.com/iyulab/fileflux/pkg/capability"
)

// fakeEmbedder maps text to a fixed vector by prefix, so similarity is
// fully under the test's control.
type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (f fakeEmbedder) Embed(_ context.Context, text string, _ capability.EmbeddingPurpose) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0}, nil
}

func (f fakeEmbedder) CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func TestDetect_EmptySegmentIsAlwaysABoundary(t *testing.T) {
	d := boundary.New(0.5, nil)
	r := d.Detect(context.Background(), "", "some text")
	assert.True(t, r.IsBoundary)
	assert.Equal(t, 1.0, r.Confidence)
}

func TestDetect_StructuralStartForcesBoundaryRegardlessOfSimilarity(t *testing.T) {
	embedder := fakeEmbedder{vectors: map[string][]float64{
		"a": {1, 0}, "```go\ncode\n```": {1, 0},
	}}
	d := boundary.New(0.1, embedder)
	r := d.Detect(context.Background(), "a", "```go\ncode\n```")
	assert.True(t, r.IsBoundary)
	assert.Equal(t, boundary.TypeCodeBlock, r.Type)
}

func TestDetect_ListStartForcesBoundary(t *testing.T) {
	d := boundary.New(0.5, nil)
	r := d.Detect(context.Background(), "a", "- item one")
	assert.True(t, r.IsBoundary)
	assert.Equal(t, boundary.TypeList, r.Type)
}

func TestDetect_HeadingStartForcesBoundary(t *testing.T) {
	d := boundary.New(0.5, nil)
	r := d.Detect(context.Background(), "a", "## Section")
	assert.True(t, r.IsBoundary)
	assert.Equal(t, boundary.TypeSection, r.Type)
}

func TestDetect_NoEmbedderFallsBackToNeutralResult(t *testing.T) {
	d := boundary.New(0.5, nil)
	r := d.Detect(context.Background(), "plain a", "plain b")
	assert.False(t, r.IsBoundary)
	assert.Equal(t, 0.5, r.Similarity)
	assert.Equal(t, 0.5, r.Confidence)
}

func TestDetect_EmbedFailureFallsBackToNeutralResult(t *testing.T) {
	d := boundary.New(0.5, fakeEmbedder{err: assert.AnError})
	r := d.Detect(context.Background(), "a", "b")
	assert.False(t, r.IsBoundary)
	assert.Equal(t, 0.5, r.Confidence)
}

func TestDetect_LowSimilarityIsABoundary(t *testing.T) {
	embedder := fakeEmbedder{vectors: map[string][]float64{
		"alpha topic": {1, 0}, "beta topic": {0, 1},
	}}
	d := boundary.New(0.5, embedder)
	r := d.Detect(context.Background(), "alpha topic", "beta topic")
	assert.True(t, r.IsBoundary)
	assert.Equal(t, 0.0, r.Similarity)
}

func TestDetect_HighSimilarityIsNotABoundary(t *testing.T) {
	embedder := fakeEmbedder{vectors: map[string][]float64{
		"alpha topic": {1, 0}, "alpha topic continued": {1, 0},
	}}
	d := boundary.New(0.5, embedder)
	r := d.Detect(context.Background(), "alpha topic", "alpha topic continued")
	assert.False(t, r.IsBoundary)
	assert.Equal(t, 1.0, r.Similarity)
}

func TestNew_ClampsOutOfRangeThreshold(t *testing.T) {
	embedder := fakeEmbedder{vectors: map[string][]float64{"a": {1, 0}, "b": {1, 0}}}
	d := boundary.New(5.0, embedder)
	r := d.Detect(context.Background(), "a", "b")
	assert.False(t, r.IsBoundary, "threshold clamped to 1: identical vectors (similarity 1) do not fall below it")
}

func TestDetectBoundaries_MergesAdjacentBoundariesKeepingHigherConfidence(t *testing.T) {
	segments := []string{"alpha", "## Section", "### Subsection", "beta"}
	d := boundary.New(0.5, nil)
	results := d.DetectBoundaries(context.Background(), segments)

	require.Len(t, results, 1, "the two adjacent heading boundaries should merge into one")
	assert.Equal(t, boundary.TypeSection, results[0].Type)
}

func TestDetectBoundaries_EmptyAndSingleSegmentProduceNoBoundaries(t *testing.T) {
	d := boundary.New(0.5, nil)
	assert.Empty(t, d.DetectBoundaries(context.Background(), nil))
	assert.Empty(t, d.DetectBoundaries(context.Background(), []string{"only one"}))
}
