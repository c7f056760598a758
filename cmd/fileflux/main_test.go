package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/internal/config"
	"github.com/iyulab/fileflux/pkg/model"
)

func TestLoadConfigOrDefault_EmptyDirReturnsValidatedDefaults(t *testing.T) {
	cfg, err := loadConfigOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "Auto", cfg.Chunking.Strategy)
	assert.Equal(t, 1024, cfg.Chunking.MaxChunkSize)
}

func TestLoadConfigOrDefault_MissingDirReturnsError(t *testing.T) {
	_, err := loadConfigOrDefault(filepath.Join(t.TempDir(), "nonexistent"))
	assert.Error(t, err)
}

func TestToProviderConfig_ConvertsSecondsToDuration(t *testing.T) {
	c := config.ServiceConfig{BaseURL: "http://x", APIKey: "k", Model: "m", Timeout: 30}
	out := toProviderConfig(c)
	assert.Equal(t, "http://x", out.BaseURL)
	assert.Equal(t, 30*time.Second, out.Timeout)
}

func TestStatOrZero_MissingFileReturnsZeroValue(t *testing.T) {
	size, mtime := statOrZero(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Equal(t, int64(0), size)
	assert.True(t, mtime.IsZero())
}

func TestStatOrZero_ExistingFileReturnsSizeAndModTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	size, mtime := statOrZero(path)
	assert.Equal(t, int64(5), size)
	assert.False(t, mtime.IsZero())
}

func TestOpenSource_MarkdownFilePassesThroughUnconverted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nBody.\n"), 0o644))

	src, cleanup, err := openSource(path)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "doc.md", src.Filename)
	data, err := io.ReadAll(src.Reader)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody.\n", string(data))
}

func TestOpenSource_PlainTextIsConvertedToMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("TITLE\n\nSome body text.\n"), 0o644))

	src, cleanup, err := openSource(path)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "doc.md", src.Filename)
	data, err := io.ReadAll(src.Reader)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestOpenSource_MissingFileReturnsError(t *testing.T) {
	_, _, err := openSource(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	require.NoError(t, w.Close())
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestWriteOutput_JSONL(t *testing.T) {
	chunks := []*model.DocumentChunk{model.NewDocumentChunk("hello", "Paragraph")}
	out := captureStdout(t, func() {
		require.NoError(t, writeOutput("jsonl", chunks))
	})
	assert.Contains(t, out, "hello")
}

func TestWriteOutput_JSON(t *testing.T) {
	chunks := []*model.DocumentChunk{model.NewDocumentChunk("hello", "Paragraph")}
	out := captureStdout(t, func() {
		require.NoError(t, writeOutput("json", chunks))
	})
	assert.Contains(t, out, "hello")
}

func TestWriteOutput_Markdown(t *testing.T) {
	chunks := []*model.DocumentChunk{model.NewDocumentChunk("hello", "Paragraph")}
	out := captureStdout(t, func() {
		require.NoError(t, writeOutput("markdown", chunks))
	})
	assert.Contains(t, out, "hello")
}

func TestWriteOutput_UnknownFormatErrors(t *testing.T) {
	err := writeOutput("yaml", nil)
	assert.Error(t, err)
}
