package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iyulab/fileflux/internal/utils"
	"github.com/iyulab/fileflux/pkg/capability"
)

// CompletionProvider implements capability.TextCompletionProvider
// against an OpenAI-compatible /chat/completions endpoint, adapted
// from the teacher's internal/clients/openai.Client. Structured
// operations (AnalyzeStructure, Summarize, ExtractMetadata,
// AssessQuality) ask the model for a JSON object via a prompt
// template and decode it, degrading to an error the caller treats as
// best-effort rather than fatal.
type CompletionProvider struct {
	http  *httpClient
	model string
}

var _ capability.TextCompletionProvider = (*CompletionProvider)(nil)

// NewCompletionProvider builds a CompletionProvider from cfg.
func NewCompletionProvider(cfg ServiceConfig) *CompletionProvider {
	return &CompletionProvider{http: newHTTPClient("completion", cfg), model: cfg.Model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

func (p *CompletionProvider) complete(ctx context.Context, prompt string) (string, int, error) {
	_ = ctx
	req := chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	}
	var resp chatResponse
	if err := p.http.post("/chat/completions", req, &resp); err != nil {
		return "", 0, err
	}
	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("providers: completion: empty response")
	}
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}

// Generate implements capability.TextCompletionProvider.
func (p *CompletionProvider) Generate(ctx context.Context, prompt string) (string, error) {
	text, _, err := p.complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("providers: generate: %w", err)
	}
	return text, nil
}

// AnalyzeStructure implements capability.TextCompletionProvider.
func (p *CompletionProvider) AnalyzeStructure(ctx context.Context, text string) (capability.StructureAnalysis, error) {
	prompt := fmt.Sprintf(
		"Analyze the structure of the following document and respond with a JSON object "+
			"{\"strategy\": one of FixedSize|Paragraph|Semantic|Smart|Hierarchical|Intelligent, "+
			"\"confidence\": 0..1, \"reasoning\": string}.\n\n%s", truncate(text, 4000))
	raw, tokens, err := p.complete(ctx, prompt)
	if err != nil {
		return capability.StructureAnalysis{}, fmt.Errorf("providers: analyze structure: %w", err)
	}
	var parsed struct {
		Strategy   string  `json:"strategy"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return capability.StructureAnalysis{}, fmt.Errorf("providers: analyze structure: decode: %w", err)
	}
	return capability.StructureAnalysis{
		SuggestedStrategy: parsed.Strategy,
		Confidence:        parsed.Confidence,
		Reasoning:         parsed.Reasoning,
		TokensUsed:        tokens,
	}, nil
}

// Summarize implements capability.TextCompletionProvider.
func (p *CompletionProvider) Summarize(ctx context.Context, text string, maxLen int) (capability.Summary, error) {
	prompt := fmt.Sprintf("Summarize the following text in at most %d characters:\n\n%s", maxLen, truncate(text, 4000))
	raw, tokens, err := p.complete(ctx, prompt)
	if err != nil {
		return capability.Summary{}, fmt.Errorf("providers: summarize: %w", err)
	}
	return capability.Summary{Text: strings.TrimSpace(raw), TokensUsed: tokens}, nil
}

// ExtractMetadata implements capability.TextCompletionProvider.
func (p *CompletionProvider) ExtractMetadata(ctx context.Context, text string) (capability.ExtractedMetadata, error) {
	prompt := fmt.Sprintf(
		"Extract document metadata as JSON {\"title\": string, \"author\": string, \"keywords\": [string]} "+
			"from the following text:\n\n%s", truncate(text, 4000))
	raw, tokens, err := p.complete(ctx, prompt)
	if err != nil {
		return capability.ExtractedMetadata{}, fmt.Errorf("providers: extract metadata: %w", err)
	}
	var parsed struct {
		Title    string   `json:"title"`
		Author   string   `json:"author"`
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return capability.ExtractedMetadata{}, fmt.Errorf("providers: extract metadata: decode: %w", err)
	}
	return capability.ExtractedMetadata{Title: parsed.Title, Author: parsed.Author, Keywords: parsed.Keywords, TokensUsed: tokens}, nil
}

// AssessQuality implements capability.TextCompletionProvider.
func (p *CompletionProvider) AssessQuality(ctx context.Context, text string) (capability.QualityAssessment, error) {
	prompt := fmt.Sprintf(
		"Assess the structural/semantic quality of the following text as JSON "+
			"{\"score\": 0..1, \"notes\": string}:\n\n%s", truncate(text, 4000))
	raw, tokens, err := p.complete(ctx, prompt)
	if err != nil {
		return capability.QualityAssessment{}, fmt.Errorf("providers: assess quality: %w", err)
	}
	var parsed struct {
		Score float64 `json:"score"`
		Notes string  `json:"notes"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return capability.QualityAssessment{}, fmt.Errorf("providers: assess quality: decode: %w", err)
	}
	return capability.QualityAssessment{Score: parsed.Score, Notes: parsed.Notes, TokensUsed: tokens}, nil
}

func truncate(s string, n int) string {
	return utils.SafeUTF8Truncate(s, n)
}

// extractJSON pulls the first {...} object out of a model response,
// tolerating surrounding prose or markdown code fences.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "{}"
	}
	return s[start : end+1]
}

// NullCompletionProvider is a zero-value-safe placeholder for when no
// LLM is configured; every call fails so callers degrade to their
// heuristic-only path rather than block.
type NullCompletionProvider struct{}

var _ capability.TextCompletionProvider = NullCompletionProvider{}

func (NullCompletionProvider) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("providers: no completion provider configured")
}

func (NullCompletionProvider) AnalyzeStructure(context.Context, string) (capability.StructureAnalysis, error) {
	return capability.StructureAnalysis{}, fmt.Errorf("providers: no completion provider configured")
}

func (NullCompletionProvider) Summarize(context.Context, string, int) (capability.Summary, error) {
	return capability.Summary{}, fmt.Errorf("providers: no completion provider configured")
}

func (NullCompletionProvider) ExtractMetadata(context.Context, string) (capability.ExtractedMetadata, error) {
	return capability.ExtractedMetadata{}, fmt.Errorf("providers: no completion provider configured")
}

func (NullCompletionProvider) AssessQuality(context.Context, string) (capability.QualityAssessment, error) {
	return capability.QualityAssessment{}, fmt.Errorf("providers: no completion provider configured")
}
