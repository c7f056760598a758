// Package enrich implements the optional Enrichment hook (C10):
// attaching LLM-generated summaries and keywords to chunks after
// chunking, degrading gracefully when no TextCompletionProvider is
// configured or a call fails. Grounded on the teacher's
// internal/prompts package's prompt-per-purpose structure and
// internal/clients/openai's graceful-degradation call style.
package enrich

import (
	"context"
	"fmt"

	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/model"
)

// Options configures a single enrichment pass.
type Options struct {
	EnableSummarization     bool
	EnableKeywordExtraction bool
	MaxKeywords             int
	SummaryMaxLen           int
}

// DefaultOptions matches the spec's default enrichment configuration:
// both summarization and keyword extraction enabled, capped at 10
// keywords.
func DefaultOptions() Options {
	return Options{
		EnableSummarization:     true,
		EnableKeywordExtraction: true,
		MaxKeywords:             10,
		SummaryMaxLen:           200,
	}
}

// Well-known chunk prop keys this package writes.
const (
	PropSummary           = "Summary"
	PropKeywords          = "Keywords"
	PropEnrichmentSkipped = "EnrichmentSkipped"
)

// Enrich attaches a summary and/or keywords prop to each chunk via
// llm, per opts. A nil llm, or a per-chunk call failure, sets
// EnrichmentSkipped=true on the affected chunk rather than returning
// an error — enrichment is always best-effort (§7).
func Enrich(ctx context.Context, chunks []*model.DocumentChunk, llm capability.TextCompletionProvider, opts Options) error {
	if !opts.EnableSummarization && !opts.EnableKeywordExtraction {
		return nil
	}

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("enrich: %w", err)
		}

		if llm == nil {
			c.SetProp(PropEnrichmentSkipped, true)
			continue
		}

		skipped := false

		if opts.EnableSummarization {
			maxLen := opts.SummaryMaxLen
			if maxLen <= 0 {
				maxLen = 200
			}
			summary, err := llm.Summarize(ctx, c.Content, maxLen)
			if err != nil {
				skipped = true
			} else {
				c.SetProp(PropSummary, summary.Text)
			}
		}

		if opts.EnableKeywordExtraction {
			extracted, err := llm.ExtractMetadata(ctx, c.Content)
			if err != nil {
				skipped = true
			} else {
				keywords := extracted.Keywords
				maxK := opts.MaxKeywords
				if maxK > 0 && len(keywords) > maxK {
					keywords = keywords[:maxK]
				}
				c.SetProp(PropKeywords, keywords)
			}
		}

		if skipped {
			c.SetProp(PropEnrichmentSkipped, true)
		}
	}

	return nil
}
