// Package boundary implements the Boundary Detector (C5): pluggable
// embedding-similarity plus structural detection of semantic and
// structural boundaries between adjacent text segments. Grounded on
// pkg/chunking/semantic.go's embedding-cache-backed similarity usage
// in the teacher.
package boundary

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/iyulab/fileflux/pkg/capability"
	"github.com/iyulab/fileflux/pkg/model"
)

// Type classifies why a boundary was detected.
type Type string

const (
	TypeTopicChange Type = "TopicChange"
	TypeCodeBlock   Type = "CodeBlock"
	TypeTable       Type = "Table"
	TypeList        Type = "List"
	TypeSection     Type = "Section"
)

// Result is the outcome of a single a/b boundary check.
type Result struct {
	IsBoundary bool
	Type       Type
	Similarity float64
	Confidence float64
}

// BatchResult is one entry in the output of DetectBoundaries.
type BatchResult struct {
	SegmentIndex int
	Type         Type
	Similarity   float64
	Confidence   float64
}

// Detector holds the configured similarity threshold and an optional
// embedding provider.
type Detector struct {
	threshold float64
	embedder  capability.EmbeddingProvider
}

// New builds a Detector. threshold is clamped to [0,1]; out-of-range
// values are silently clamped rather than rejected, matching §4.4.
func New(threshold float64, embedder capability.EmbeddingProvider) *Detector {
	return &Detector{threshold: model.Clamp01(clampThreshold(threshold)), embedder: embedder}
}

func clampThreshold(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

var (
	fenceStartRe  = regexp.MustCompile("^```|^~~~")
	tableStartRe  = regexp.MustCompile(`^\s*\|.*\|`)
	listStartRe   = regexp.MustCompile(`^\s*([-*+]|\d+\.)\s+`)
	headingStartRe = regexp.MustCompile(`^#{1,6}\s+`)
)

// structuralType returns the structural type that segment b opens
// with, if any. A structural type forces is_boundary=true regardless
// of embedding similarity (§4.4 step 2).
func structuralType(b string) (Type, bool) {
	trimmed := strings.TrimLeft(b, " \t")
	if fenceStartRe.MatchString(trimmed) {
		return TypeCodeBlock, true
	}
	if tableStartRe.MatchString(trimmed) && strings.Contains(b, "---") {
		return TypeTable, true
	}
	if listStartRe.MatchString(trimmed) {
		return TypeList, true
	}
	if headingStartRe.MatchString(trimmed) {
		return TypeSection, true
	}
	return "", false
}

// Detect evaluates whether a boundary exists between adjacent segments
// a and b, per the algorithm in §4.4.
func (d *Detector) Detect(ctx context.Context, a, b string) Result {
	if a == "" || b == "" {
		return Result{IsBoundary: true, Similarity: 0, Confidence: 1, Type: TypeSection}
	}

	if t, ok := structuralType(b); ok {
		return Result{IsBoundary: true, Type: t, Similarity: 0, Confidence: 1}
	}

	if d.embedder == nil {
		// Absent an embedding provider, structural-only boundaries are
		// still emitted above; non-structural pairs get the documented
		// neutral fallback.
		return Result{IsBoundary: false, Type: TypeTopicChange, Similarity: 0.5, Confidence: 0.5}
	}

	va, errA := d.embedder.Embed(ctx, a, capability.PurposeAnalysis)
	vb, errB := d.embedder.Embed(ctx, b, capability.PurposeAnalysis)
	if errA != nil || errB != nil {
		return Result{IsBoundary: false, Type: TypeTopicChange, Similarity: 0.5, Confidence: 0.5}
	}

	sim := d.embedder.CosineSimilarity(va, vb)
	isBoundary := sim < d.threshold
	// Open Question Decision #1: the stricter confidence formula,
	// applied uniformly to both single-pair and batch mode.
	confidence := model.Clamp01(math.Abs(d.threshold-sim) * 2)

	return Result{IsBoundary: isBoundary, Type: TypeTopicChange, Similarity: sim, Confidence: confidence}
}

// DetectBoundaries runs Detect over every adjacent pair in segments,
// then merges boundaries that are within distance 1 (adjacent),
// keeping the higher-confidence one, per §4.4 batch mode.
func (d *Detector) DetectBoundaries(ctx context.Context, segments []string) []BatchResult {
	var raw []BatchResult
	for i := 0; i+1 < len(segments); i++ {
		r := d.Detect(ctx, segments[i], segments[i+1])
		if !r.IsBoundary {
			continue
		}
		raw = append(raw, BatchResult{
			SegmentIndex: i + 1,
			Type:         r.Type,
			Similarity:   r.Similarity,
			Confidence:   r.Confidence,
		})
	}
	return mergeAdjacent(raw)
}

func mergeAdjacent(boundaries []BatchResult) []BatchResult {
	if len(boundaries) < 2 {
		return boundaries
	}
	merged := make([]BatchResult, 0, len(boundaries))
	merged = append(merged, boundaries[0])
	for i := 1; i < len(boundaries); i++ {
		last := &merged[len(merged)-1]
		cur := boundaries[i]
		if cur.SegmentIndex-last.SegmentIndex <= 1 {
			if cur.Confidence > last.Confidence {
				*last = cur
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}
