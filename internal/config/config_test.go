package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyulab/fileflux/internal/config"
)

func TestLoadConfig_NotFoundReturnsWrappedSentinel(t *testing.T) {
	_, err := config.LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfigNotFound))
}

func TestLoadConfig_ReadsYAMLAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
chunking:
  max_chunk_size: 2048
providers:
  llm:
    base_url: "http://localhost:1234"
    model: "test-model"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Chunking.MaxChunkSize)
	assert.Equal(t, "Auto", cfg.Chunking.Strategy)
	assert.Equal(t, 100, cfg.Chunking.OverlapSize)
	assert.Equal(t, "http://localhost:1234", cfg.Providers.LLM.BaseURL)
	assert.Equal(t, "test-model", cfg.Providers.LLM.Model)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestChunkingConfig_ValidateRejectsOverlapGreaterThanMaxSize(t *testing.T) {
	c := config.ChunkingConfig{MaxChunkSize: 100, OverlapSize: 200}
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestDefaultConfig_PopulatesEverySection(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "Auto", cfg.Chunking.Strategy)
	assert.Equal(t, 1024, cfg.Chunking.MaxChunkSize)
	assert.Equal(t, 0.75, cfg.Boundary.SimilarityThreshold)
	assert.Equal(t, 0.6, cfg.Selector.ConfidenceThreshold)
	assert.Equal(t, int64(50*1024*1024), cfg.Pipeline.StreamThresholdBytes)
	assert.Equal(t, 10, cfg.Enrichment.MaxKeywords)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "local", cfg.ImageSink.Backend)
	assert.Equal(t, "./fileflux-images", cfg.ImageSink.LocalDir)
}

func TestCacheConfig_ValidateFillsRedisDefaultsOnlyWhenRedisBackend(t *testing.T) {
	mem := config.CacheConfig{}
	require.NoError(t, mem.Validate())
	assert.Empty(t, mem.Redis.Addr)

	redis := config.CacheConfig{Backend: "redis"}
	require.NoError(t, redis.Validate())
	assert.Equal(t, "localhost:6379", redis.Redis.Addr)
	assert.Equal(t, 3600, redis.Redis.TTLSeconds)
}

func TestMustLoadConfig_PanicsOnMissingFile(t *testing.T) {
	assert.Panics(t, func() {
		config.MustLoadConfig(t.TempDir())
	})
}
