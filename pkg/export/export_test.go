package export_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/pkg/export"
	"github.com/iyulab/fileflux/pkg/model"
)

func sampleChunks() []*model.DocumentChunk {
	a := model.NewDocumentChunk("first chunk content", "Paragraph")
	a.Index = 0
	a.Tokens = 10
	a.Location = model.SourceLocation{StartChar: 0, EndChar: 20, Section: "Intro"}
	a.Quality = model.ChunkQuality{Overall: 0.8}

	b := model.NewDocumentChunk("second chunk content", "Paragraph")
	b.Index = 1
	b.Tokens = 12
	b.Location = model.SourceLocation{StartChar: 20, EndChar: 41, HeadingPath: []string{"Intro", "Details"}}
	b.Quality = model.ChunkQuality{Overall: 0.9}
	b.ParentID = a.ID
	b.SetProp("PreviousChunkId", a.ID.String())

	return []*model.DocumentChunk{a, b}
}

func TestChunksToJSON_ProducesAnArrayWithEveryChunk(t *testing.T) {
	chunks := sampleChunks()
	data, err := export.ChunksToJSON(chunks)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "first chunk content")
	assert.Contains(t, s, "second chunk content")
	assert.Contains(t, s, `"parentId"`)
}

func TestChunksToJSONL_OneObjectPerLine(t *testing.T) {
	chunks := sampleChunks()
	data, err := export.ChunksToJSONL(chunks)
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, len(chunks), lines)
}

func TestChunkToMarkdown_IncludesFrontMatterAndNavigation(t *testing.T) {
	chunks := sampleChunks()
	md := export.ChunkToMarkdown(chunks[1])
	assert.Contains(t, md, "---\n")
	assert.Contains(t, md, "second chunk content")
	assert.Contains(t, md, "headingPath:")
	assert.Contains(t, md, "previous")
}

func TestBuildStatistics_EmptyInput(t *testing.T) {
	assert.Equal(t, export.Statistics{}, export.BuildStatistics(nil))
}

func TestBuildStatistics_ComputesMinMaxAvgAndBalance(t *testing.T) {
	chunks := sampleChunks()
	stats := export.BuildStatistics(chunks)
	assert.Equal(t, 2, stats.ChunkCount)
	assert.Equal(t, 22, stats.TotalTokens)
	assert.Equal(t, 10, stats.MinChunkSize)
	assert.Equal(t, 12, stats.MaxChunkSize)
	assert.True(t, stats.Balanced)
}

func TestBuildStatistics_UnbalancedWhenSpreadIsWide(t *testing.T) {
	small := model.NewDocumentChunk("x", "FixedSize")
	small.Tokens = 1
	big := model.NewDocumentChunk("y", "FixedSize")
	big.Tokens = 100
	stats := export.BuildStatistics([]*model.DocumentChunk{small, big})
	assert.False(t, stats.Balanced)
}

func TestInfoJSONBytes_RoundTripsExpectedFields(t *testing.T) {
	info := export.InfoJSON{
		Timestamp: time.Unix(0, 0),
		Input:     "doc.txt",
		Output:    "doc.jsonl",
		Processing: export.ProcessingInfo{Strategy: "Auto", UsedLLM: true},
		Document:   export.DocumentInfo{FileName: "doc.txt", WordCount: 42},
		Statistics: export.BuildStatistics(sampleChunks()),
		Version:    "1",
	}
	data, err := export.InfoJSONBytes(info)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "doc.txt")
	assert.Contains(t, s, `"usedLlm":true`)
}
