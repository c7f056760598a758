package chunking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/pkg/chunking"
	"github.com/iyulab/fileflux/pkg/model"
)

const sampleMarkdown = `# Title

First paragraph with enough text to be meaningful and exceed a small size.

Second paragraph follows here with more content than the first one did.

## Subsection

Third paragraph under a subsection heading wraps things up nicely.
`

func sampleParsed() *model.ParsedContent {
	return &model.ParsedContent{
		StructuredText: sampleMarkdown,
		OriginalText:   sampleMarkdown,
		Metadata:       model.DocumentMetadata{FileName: "doc.md"},
	}
}

func assertValidChunks(t *testing.T, chunks []*model.DocumentChunk, content *model.ParsedContent) {
	t.Helper()
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Content)
		assert.NotEqual(t, model.NilID, c.ID)
	}
}

func TestFixedSizeChunker(t *testing.T) {
	content := sampleParsed()
	chunks, err := chunking.FixedSizeChunker{}.Chunk(context.Background(), content, chunking.Options{
		Strategy: chunking.StrategyFixedSize, MaxChunkSize: 80, OverlapSize: 10,
	})
	require.NoError(t, err)
	assertValidChunks(t, chunks, content)
}

func TestParagraphChunker(t *testing.T) {
	content := sampleParsed()
	chunks, err := chunking.ParagraphChunker{}.Chunk(context.Background(), content, chunking.Options{
		Strategy: chunking.StrategyParagraph, MaxChunkSize: 200, OverlapSize: 20,
	})
	require.NoError(t, err)
	assertValidChunks(t, chunks, content)
}

func TestSmartChunker(t *testing.T) {
	content := sampleParsed()
	chunks, err := chunking.SmartChunker{}.Chunk(context.Background(), content, chunking.Options{
		Strategy: chunking.StrategySmart, MaxChunkSize: 150, OverlapSize: 20,
	})
	require.NoError(t, err)
	assertValidChunks(t, chunks, content)
}

func TestHierarchicalChunker(t *testing.T) {
	content := sampleParsed()
	chunks, err := chunking.HierarchicalChunker{}.Chunk(context.Background(), content, chunking.Options{
		Strategy: chunking.StrategyHierarchical, MaxChunkSize: 200, OverlapSize: 0,
	})
	require.NoError(t, err)
	assertValidChunks(t, chunks, content)
}

func TestIntelligentChunker(t *testing.T) {
	content := sampleParsed()
	chunks, err := chunking.IntelligentChunker{}.Chunk(context.Background(), content, chunking.Options{
		Strategy: chunking.StrategyIntelligent, MaxChunkSize: 200, OverlapSize: 20,
	})
	require.NoError(t, err)
	assertValidChunks(t, chunks, content)
}

func TestSemanticChunker_NoEmbedderFallsBackGracefully(t *testing.T) {
	content := sampleParsed()
	chunks, err := chunking.SemanticChunker{}.Chunk(context.Background(), content, chunking.Options{
		Strategy: chunking.StrategySemantic, MaxChunkSize: 150, OverlapSize: 10,
		StrategyOptions: chunking.StrategyOptions{"similarity_threshold": 0.75},
	})
	require.NoError(t, err)
	assertValidChunks(t, chunks, content)
}

func TestAutoChunker_NoSelectorFallsBackToParagraph(t *testing.T) {
	content := sampleParsed()
	chunks, err := chunking.AutoChunker{}.Chunk(context.Background(), content, chunking.DefaultOptions())
	require.NoError(t, err)
	assertValidChunks(t, chunks, content)
	assert.Equal(t, "Auto(Paragraph)", chunks[0].Strategy)
}

func TestChunker_EmptyInputProducesNoChunks(t *testing.T) {
	content := &model.ParsedContent{StructuredText: "", OriginalText: ""}
	for _, c := range []chunking.Chunker{
		chunking.FixedSizeChunker{}, chunking.ParagraphChunker{}, chunking.SmartChunker{},
		chunking.HierarchicalChunker{}, chunking.IntelligentChunker{}, chunking.SemanticChunker{},
	} {
		chunks, err := c.Chunk(context.Background(), content, chunking.DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunker_HonorsCancellation(t *testing.T) {
	content := sampleParsed()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, c := range []chunking.Chunker{
		chunking.FixedSizeChunker{}, chunking.ParagraphChunker{}, chunking.SmartChunker{},
	} {
		_, err := c.Chunk(ctx, content, chunking.Options{Strategy: chunking.StrategyFixedSize, MaxChunkSize: 50})
		assert.Error(t, err)
	}
}
