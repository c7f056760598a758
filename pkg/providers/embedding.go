package providers

import (
	"context"
	"fmt"
	"math"

	"github.com/iyulab/fileflux/pkg/capability"
)

// EmbeddingProvider implements capability.EmbeddingProvider against an
// OpenAI-compatible /embeddings endpoint, adapted from the teacher's
// internal/clients/embedding.Client.
type EmbeddingProvider struct {
	http  *httpClient
	model string
}

var _ capability.EmbeddingProvider = (*EmbeddingProvider)(nil)

// NewEmbeddingProvider builds an EmbeddingProvider from cfg.
func NewEmbeddingProvider(cfg ServiceConfig) *EmbeddingProvider {
	return &EmbeddingProvider{http: newHTTPClient("embedding", cfg), model: cfg.Model}
}

type embeddingRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	EncodingFormat string `json:"encoding_format,omitempty"`
}

type embeddingData struct {
	Embedding []float64 `json:"embedding"`
	Index     int        `json:"index"`
}

type embeddingResponse struct {
	Data []embeddingData `json:"data"`
}

// Embed implements capability.EmbeddingProvider. purpose is not sent
// upstream (the illustrative endpoint has no notion of it) but is
// accepted so call sites can vary model/dimension per purpose in a
// production adapter.
func (p *EmbeddingProvider) Embed(ctx context.Context, text string, purpose capability.EmbeddingPurpose) ([]float64, error) {
	_ = purpose
	req := embeddingRequest{Model: p.model, Input: text, EncodingFormat: "float"}
	var resp embeddingResponse
	if err := p.http.post("/embeddings", req, &resp); err != nil {
		return nil, fmt.Errorf("providers: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("providers: embed: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// CosineSimilarity implements capability.EmbeddingProvider.
func (p *EmbeddingProvider) CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NullEmbeddingProvider is a zero-value-safe placeholder used when no
// embedding service is configured: Embed always fails so callers
// degrade to structural-only boundary detection rather than silently
// returning zero vectors.
type NullEmbeddingProvider struct{}

var _ capability.EmbeddingProvider = NullEmbeddingProvider{}

// Embed implements capability.EmbeddingProvider.
func (NullEmbeddingProvider) Embed(context.Context, string, capability.EmbeddingPurpose) ([]float64, error) {
	return nil, fmt.Errorf("providers: no embedding provider configured")
}

// CosineSimilarity implements capability.EmbeddingProvider.
func (NullEmbeddingProvider) CosineSimilarity(a, b []float64) float64 { return 0 }
