package chunking

import (
	"context"
	"fmt"

	"github.com/iyulab/fileflux/pkg/model"
)

// Selector is the subset of the Adaptive Strategy Selector (C7) that
// Auto needs. Defined here (rather than imported from pkg/selector)
// to avoid a dependency cycle, since pkg/selector imports this package
// for Strategy, Options and SelectionResult.
type Selector interface {
	Select(ctx context.Context, content *model.ParsedContent, opts Options) (SelectionResult, error)
}

// SelectionResult is what a Selector returns: the strategy it picked,
// its confidence, and the human-readable reasoning for the choice.
type SelectionResult struct {
	Strategy   Strategy
	Confidence float64
	Reasoning  string
}

// AutoChunker delegates to the Adaptive Strategy Selector to pick an
// underlying strategy, then runs it, recording the choice as
// AutoSelectedStrategy/SelectionReasoning props and reporting itself
// as "Auto(<underlying>)" (§4.5.7).
type AutoChunker struct {
	Selector Selector
}

var _ Chunker = (*AutoChunker)(nil)

// Chunk implements Chunker.
func (a AutoChunker) Chunk(ctx context.Context, content *model.ParsedContent, opts Options) ([]*model.DocumentChunk, error) {
	forced := opts.StrategyOptions.String("force_strategy", "")

	var strategy Strategy
	var reasoning string
	var confidence float64

	switch {
	case forced != "":
		strategy = Strategy(forced)
		reasoning = "force_strategy override"
		confidence = 1
	case a.Selector != nil:
		result, err := a.Selector.Select(ctx, content, opts)
		if err != nil {
			return nil, fmt.Errorf("auto: strategy selection: %w", err)
		}
		strategy = result.Strategy
		reasoning = result.Reasoning
		confidence = result.Confidence
	default:
		strategy = StrategyParagraph
		reasoning = "no selector configured, defaulting to Paragraph"
		confidence = 0
	}

	underlying, err := strategyFor(strategy)
	if err != nil {
		return nil, err
	}

	chunks, err := underlying.Chunk(ctx, content, opts)
	if err != nil {
		return nil, err
	}

	label := fmt.Sprintf("Auto(%s)", strategy)
	for _, c := range chunks {
		c.Strategy = label
		c.SetProp("AutoSelectedStrategy", string(strategy))
		c.SetProp("SelectionReasoning", reasoning)
		c.SetProp("SelectionConfidence", confidence)
	}

	return chunks, nil
}

// strategyFor maps a Strategy name to its Chunker implementation.
// Auto and unknown names are rejected — Auto never recurses into
// itself.
func strategyFor(s Strategy) (Chunker, error) {
	switch s {
	case StrategyFixedSize:
		return FixedSizeChunker{}, nil
	case StrategyParagraph:
		return ParagraphChunker{}, nil
	case StrategySemantic:
		return SemanticChunker{}, nil
	case StrategySmart:
		return SmartChunker{}, nil
	case StrategyHierarchical:
		return HierarchicalChunker{}, nil
	case StrategyIntelligent:
		return IntelligentChunker{}, nil
	default:
		return nil, fmt.Errorf("chunking: unsupported strategy %q for Auto", s)
	}
}
