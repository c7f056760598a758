// Package config provides configuration management for the FileFlux
// pipeline. It follows Uber Go Style Guide conventions for struct
// organization and error handling.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Common configuration errors
var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ServiceConfig holds common configuration for external provider
// clients (pkg/providers adapters).
type ServiceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout_seconds" validate:"min=0"`
}

// ChunkingConfig defines default text chunking parameters.
type ChunkingConfig struct {
	Strategy          string  `mapstructure:"strategy"`
	MaxChunkSize      int     `mapstructure:"max_chunk_size" validate:"required,min=100,max=10000"`
	OverlapSize       int     `mapstructure:"overlap_size" validate:"min=0"`
	PreserveStructure bool    `mapstructure:"preserve_structure"`
	ForceStrategy     string  `mapstructure:"force_strategy"`
}

// Validate checks the chunking configuration and sets defaults.
func (c *ChunkingConfig) Validate() error {
	if c.Strategy == "" {
		c.Strategy = "Auto"
	}
	if c.MaxChunkSize == 0 {
		c.MaxChunkSize = 1024
	}
	if c.OverlapSize == 0 {
		c.OverlapSize = 100
	}

	if c.OverlapSize >= c.MaxChunkSize {
		return fmt.Errorf("%w: overlap size must be less than max chunk size", ErrInvalidConfig)
	}
	return nil
}

// BoundaryConfig defines the Boundary Detector's similarity threshold.
type BoundaryConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" validate:"min=0.0,max=1.0"`
}

// Validate checks the boundary configuration and sets defaults.
func (c *BoundaryConfig) Validate() error {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.75
	}
	return nil
}

// SelectorConfig defines the Adaptive Strategy Selector's options.
type SelectorConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" validate:"min=0.0,max=1.0"`
	PreferSpeed         bool    `mapstructure:"prefer_speed"`
	PreferQuality       bool    `mapstructure:"prefer_quality"`
	UseLLMRefinement    bool    `mapstructure:"use_llm_refinement"`
}

// Validate checks the selector configuration and sets defaults.
func (c *SelectorConfig) Validate() error {
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = 0.6
	}
	return nil
}

// PipelineConfig defines the Pipeline Engine's streaming and batching
// thresholds.
type PipelineConfig struct {
	StreamThresholdBytes int64 `mapstructure:"stream_threshold_bytes" validate:"min=0"`
	StreamWindowBytes    int64 `mapstructure:"stream_window_bytes" validate:"min=0"`
	BatchSize            int   `mapstructure:"batch_size" validate:"min=1"`
	MaxConcurrency       int   `mapstructure:"max_concurrency" validate:"min=1"`
	MemoryThresholdBytes uint64 `mapstructure:"memory_threshold_bytes" validate:"min=0"`
}

// Validate checks the pipeline configuration and sets defaults.
func (c *PipelineConfig) Validate() error {
	if c.StreamThresholdBytes == 0 {
		c.StreamThresholdBytes = 50 * 1024 * 1024 // 50 MiB
	}
	if c.StreamWindowBytes == 0 {
		c.StreamWindowBytes = 10 * 1024 * 1024 // 10 MiB
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 4
	}
	if c.MemoryThresholdBytes == 0 {
		c.MemoryThresholdBytes = 512 * 1024 * 1024 // 512 MiB
	}
	return nil
}

// EnrichmentConfig configures the optional C10 enrichment hook.
type EnrichmentConfig struct {
	EnableSummarization    bool `mapstructure:"enable_summarization"`
	EnableKeywordExtraction bool `mapstructure:"enable_keyword_extraction"`
	MaxKeywords            int  `mapstructure:"max_keywords" validate:"min=0"`
}

// Validate sets enrichment defaults.
func (c *EnrichmentConfig) Validate() error {
	if c.MaxKeywords == 0 {
		c.MaxKeywords = 10
	}
	return nil
}

// CacheConfig selects and configures the parsed-content cache backend.
type CacheConfig struct {
	Backend string `mapstructure:"backend"` // "memory" or "redis"
	Redis   struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db" validate:"min=0,max=15"`
		TTLSeconds int  `mapstructure:"ttl_seconds" validate:"min=0"`
	} `mapstructure:"redis"`
}

// Validate checks the cache configuration and sets defaults.
func (c *CacheConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Backend == "redis" {
		if c.Redis.Addr == "" {
			c.Redis.Addr = "localhost:6379"
		}
		if c.Redis.TTLSeconds == 0 {
			c.Redis.TTLSeconds = 3600
		}
	}
	return nil
}

// ImageSinkConfig selects and configures the extracted-image sink.
type ImageSinkConfig struct {
	Backend       string `mapstructure:"backend"` // "local" or "minio"
	MinImageBytes int    `mapstructure:"min_image_bytes" validate:"min=0"`
	LocalDir      string `mapstructure:"local_dir"`
	MinIO         struct {
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		BucketName      string `mapstructure:"bucket_name"`
		UseSSL          bool   `mapstructure:"use_ssl"`
	} `mapstructure:"minio"`
}

// Validate checks the image sink configuration and sets defaults.
func (c *ImageSinkConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = "local"
	}
	if c.LocalDir == "" {
		c.LocalDir = "./fileflux-images"
	}
	return nil
}

// Config is the complete application configuration, organized by
// functional domain with clear separation.
type Config struct {
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	Boundary   BoundaryConfig   `mapstructure:"boundary"`
	Selector   SelectorConfig   `mapstructure:"selector"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Cache      CacheConfig      `mapstructure:"cache"`
	ImageSink  ImageSinkConfig  `mapstructure:"image_sink"`

	Providers struct {
		Embedding ServiceConfig `mapstructure:"embedding"`
		LLM       ServiceConfig `mapstructure:"llm"`
	} `mapstructure:"providers"`
}

// Validate performs configuration validation and sets defaults across
// every section.
func (c *Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking config: %w", err)
	}
	if err := c.Boundary.Validate(); err != nil {
		return fmt.Errorf("boundary config: %w", err)
	}
	if err := c.Selector.Validate(); err != nil {
		return fmt.Errorf("selector config: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	if err := c.Enrichment.Validate(); err != nil {
		return fmt.Errorf("enrichment config: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := c.ImageSink.Validate(); err != nil {
		return fmt.Errorf("image sink config: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from file and environment variables
// under configPath (a directory containing config.yaml).
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures sensible default values before a config file
// is merged in, so partial config files still produce a valid Config.
func setDefaults(v *viper.Viper) {
	v.SetDefault("chunking.strategy", "Auto")
	v.SetDefault("chunking.max_chunk_size", 1024)
	v.SetDefault("chunking.overlap_size", 100)
	v.SetDefault("chunking.preserve_structure", true)

	v.SetDefault("boundary.similarity_threshold", 0.75)

	v.SetDefault("selector.confidence_threshold", 0.6)

	v.SetDefault("pipeline.stream_threshold_bytes", 50*1024*1024)
	v.SetDefault("pipeline.stream_window_bytes", 10*1024*1024)
	v.SetDefault("pipeline.batch_size", 10)
	v.SetDefault("pipeline.max_concurrency", 4)
	v.SetDefault("pipeline.memory_threshold_bytes", 512*1024*1024)

	v.SetDefault("enrichment.max_keywords", 10)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis.ttl_seconds", 3600)

	v.SetDefault("image_sink.backend", "local")
	v.SetDefault("image_sink.local_dir", "./fileflux-images")
}

// MustLoadConfig loads configuration and panics on failure. Use this
// only in main() or init() functions where failure should be fatal.
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// DefaultConfig returns a Config populated entirely from defaults,
// useful for tests and for callers that have no config file.
func DefaultConfig() *Config {
	var cfg Config
	_ = cfg.Validate()
	return &cfg
}
