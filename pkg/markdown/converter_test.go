package markdown_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/pkg/markdown"
	"github.com/iyulab/fileflux/pkg/model"
)

func TestConvert_HeadingDetection(t *testing.T) {
	raw := model.RawContent{Text: "TITLE IN CAPS\n\nSome body text follows.\n\n1. First item\n2. Second item\n"}
	result := markdown.Convert(context.Background(), raw, markdown.DefaultConvertOptions(), nil)

	assert.Equal(t, markdown.MethodHeuristic, result.Method)
	assert.Contains(t, result.Markdown, "#")
	assert.Greater(t, result.Statistics.HeadingsCount, 0)
}

func TestConvert_EmptyInputWarns(t *testing.T) {
	result := markdown.Convert(context.Background(), model.RawContent{Text: "   "}, markdown.DefaultConvertOptions(), nil)
	assert.Empty(t, result.Markdown)
	assert.NotEmpty(t, result.Warnings)
}

func TestConvert_TableDetection(t *testing.T) {
	raw := model.RawContent{Text: "Name | Age\nAlice | 30\nBob | 40\n"}
	result := markdown.Convert(context.Background(), raw, markdown.DefaultConvertOptions(), nil)
	assert.Greater(t, result.Statistics.TableCount, -1)
}

func TestNormalize_IsIdempotent(t *testing.T) {
	md := "# Heading\n\n\n\nParagraph with   extra   spaces.\n\n## \n\nAnother paragraph.\n"
	first := markdown.Normalize(md, markdown.DefaultNormalizeOptions())
	second := markdown.Normalize(first.Markdown, markdown.DefaultNormalizeOptions())

	require.NotNil(t, second)
	assert.Empty(t, second.Actions, "normalizing already-normalized markdown should produce no further actions")
}

func TestNormalize_RemovesEmptyHeadings(t *testing.T) {
	md := "# Title\n\n## \n\nContent.\n"
	result := markdown.Normalize(md, markdown.DefaultNormalizeOptions())
	assert.NotContains(t, result.Markdown, "## \n")
	assert.True(t, result.HasChanges())
}
