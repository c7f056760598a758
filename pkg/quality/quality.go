// Package quality implements the Quality Engine (C8): per-chunk and
// per-document quality metrics plus prioritized recommendations.
// Grounded on the teacher's pkg/search/scoring.go weighted-sum scoring
// and pkg/search/optimizer.go's ranked-recommendation style, re-applied
// to chunk quality instead of search relevance.
package quality

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/iyulab/fileflux/pkg/model"
)

// ChunkMetrics holds the four per-chunk scores plus their combination.
type ChunkMetrics struct {
	SemanticCompleteness float64
	ContextIndependence  float64
	InformationDensity   float64
	BoundarySharpness    float64
	Overall              float64
}

// DocumentMetrics aggregates chunk metrics across a whole document.
type DocumentMetrics struct {
	AverageCompleteness  float64
	ContentConsistency   float64
	BoundaryQuality      float64
	SizeDistribution     float64
	OverlapEffectiveness float64
}

// RecommendationKind classifies the kind of improvement suggested.
type RecommendationKind string

const (
	RecommendIncreaseOverlap   RecommendationKind = "IncreaseOverlap"
	RecommendDecreaseChunkSize RecommendationKind = "DecreaseChunkSize"
	RecommendIncreaseChunkSize RecommendationKind = "IncreaseChunkSize"
	RecommendSwitchStrategy    RecommendationKind = "SwitchStrategy"
	RecommendReviewBoundaries  RecommendationKind = "ReviewBoundaries"
)

// Priority ranks a Recommendation's urgency.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// Recommendation is one actionable suggestion for improving chunk
// quality, ordered by Priority in EvaluateDocument's output.
type Recommendation struct {
	Kind     RecommendationKind
	Priority Priority
	Message  string
}

var sentenceTermRe = sentenceTerminatorSet()

func sentenceTerminatorSet() map[rune]bool {
	return map[rune]bool{'.': true, '!': true, '?': true, '。': true, '！': true, '？': true}
}

// coordinatingConjunctions are the FANBOYS connectives that mark a
// chunk as continuing a clause from before its start.
var coordinatingConjunctions = map[string]bool{
	"and": true, "but": true, "or": true, "nor": true, "for": true, "yet": true, "so": true,
}

// referentialPhrases presume content the reader has already seen.
var referentialPhrases = []string{"as mentioned", "see above", "as discussed", "as noted above"}

// dependentOpeners are pronouns/demonstratives that presume an
// antecedent outside the chunk.
var dependentOpeners = map[string]bool{
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "they": true, "he": true, "she": true, "him": true, "her": true, "them": true,
}

var pronouns = map[string]bool{
	"i": true, "you": true, "he": true, "she": true, "it": true, "we": true, "they": true,
	"me": true, "him": true, "her": true, "us": true, "them": true,
	"this": true, "that": true, "these": true, "those": true,
	"his": true, "hers": true, "its": true, "our": true, "their": true, "your": true, "my": true,
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true, "nor": true, "for": true, "so": true, "yet": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true, "being": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "by": true, "with": true, "from": true, "as": true,
	"it": true, "this": true, "that": true, "these": true, "those": true, "there": true, "here": true,
	"he": true, "she": true, "they": true, "we": true, "you": true, "i": true,
	"do": true, "does": true, "did": true, "has": true, "have": true, "had": true,
	"not": true, "no": true, "can": true, "will": true, "would": true, "could": true, "should": true,
}

var technicalVocabulary = map[string]bool{
	"api": true, "function": true, "algorithm": true, "database": true, "server": true, "client": true,
	"protocol": true, "schema": true, "interface": true, "config": true, "query": true, "async": true,
	"thread": true, "process": true, "kernel": true, "compiler": true, "runtime": true, "cache": true,
}

var (
	numberRe = regexp.MustCompile(`^\d+([.,]\d+)?%?$`)
)

// EvaluateChunk computes the five quality metrics for a single chunk
// in the context of its parent document (§4.7), weighting them into
// Overall. SentenceIntegrity comes from the chunk's own SentenceIntegrity
// prop (set by chunkers such as Smart); chunks lacking it default to a
// neutral 1.0, since most strategies cut only on sentence boundaries.
func EvaluateChunk(chunk *model.DocumentChunk, content *model.ParsedContent) ChunkMetrics {
	text := chunk.Content

	completeness := semanticCompleteness(text)
	independence := contextIndependence(text)
	density := informationDensity(text)
	sharpness := boundarySharpness(text)
	integrity := sentenceIntegrityOf(chunk)

	overall := model.Clamp01(0.3*completeness + 0.2*independence + 0.2*density + 0.2*sharpness + 0.1*integrity)

	return ChunkMetrics{
		SemanticCompleteness: completeness,
		ContextIndependence:  independence,
		InformationDensity:   density,
		BoundarySharpness:    sharpness,
		Overall:              overall,
	}
}

// sentenceIntegrityOf reads the SentenceIntegrity prop a chunker may
// have attached, converting a bool to 1.0/0.0; absent props default
// to 1.0.
func sentenceIntegrityOf(chunk *model.DocumentChunk) float64 {
	v, ok := chunk.Props["SentenceIntegrity"]
	if !ok {
		return 1.0
	}
	if b, ok := v.(bool); ok {
		if b {
			return 1.0
		}
		return 0.0
	}
	if f, ok := v.(float64); ok {
		return model.Clamp01(f)
	}
	return 1.0
}

// semanticCompleteness starts at 1.0 and subtracts 0.15 for each of
// five violated conditions (§4.7).
func semanticCompleteness(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	score := 1.0
	runes := []rune(trimmed)

	if unicode.IsLower(runes[0]) {
		score -= 0.15
	}
	if coordinatingConjunctions[strings.ToLower(firstWordOf(trimmed))] {
		score -= 0.15
	}
	if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, "…") {
		score -= 0.15
	}
	if !bracketsAndQuotesBalanced(trimmed) {
		score -= 0.15
	}
	last := runes[len(runes)-1]
	if !sentenceTermRe[last] && last != '`' && !strings.HasSuffix(trimmed, "```") {
		score -= 0.15
	}

	return model.Clamp01(score)
}

// firstWordOf returns the first run of non-space characters, stripped
// of leading punctuation, lowercased comparisons are the caller's job.
func firstWordOf(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,;:!?\"'([{")
}

// bracketsAndQuotesBalanced checks (), [], {} nest correctly and that
// double quotes appear an even number of times; single quotes are not
// checked.
func bracketsAndQuotesBalanced(text string) bool {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	for _, r := range text {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 0 {
		return false
	}
	if strings.Count(text, `"`)%2 != 0 {
		return false
	}
	return true
}

// contextIndependence starts at 1.0, subtracts 0.15 for a pronoun or
// demonstrative opener, 0.1 for a referential phrase anywhere in the
// chunk, and up to 0.2 scaled by the pronoun-to-noun ratio (§4.7).
func contextIndependence(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	score := 1.0

	firstWord := strings.ToLower(firstWordOf(trimmed))
	if dependentOpeners[firstWord] {
		score -= 0.15
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range referentialPhrases {
		if strings.Contains(lower, phrase) {
			score -= 0.1
			break
		}
	}

	pronounCount, nounCount := 0, 0
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w == "" {
			continue
		}
		if pronouns[w] {
			pronounCount++
			continue
		}
		if !stopwords[w] {
			nounCount++
		}
	}
	if pronounCount+nounCount > 0 {
		ratio := float64(pronounCount) / float64(pronounCount+nounCount)
		score -= 0.2 * ratio
	}

	return model.Clamp01(score)
}

// informationDensity is unique_content_words / total_words, plus
// bonuses for proper nouns, numbers, and technical vocabulary (§4.7).
func informationDensity(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(fields))
	contentWords := 0
	bonus := 0.0

	for i, raw := range fields {
		w := strings.Trim(raw, ".,;:!?()[]{}\"'")
		if w == "" {
			continue
		}
		lower := strings.ToLower(w)
		if stopwords[lower] {
			continue
		}
		contentWords++
		if !seen[lower] {
			seen[lower] = true
		}

		if i > 0 && unicode.IsUpper(rune(w[0])) {
			bonus += 0.01
		}
		if numberRe.MatchString(w) {
			bonus += 0.01
		}
		if technicalVocabulary[lower] {
			bonus += 0.02
		}
	}

	if contentWords == 0 {
		return 0
	}

	ratio := float64(len(seen)) / float64(len(fields))
	return model.Clamp01(ratio + bonus)
}

// boundarySharpness rewards a chunk that opens and closes on clean
// structural boundaries and penalizes one that opens mid-sentence
// (§4.7).
func boundarySharpness(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	score := 0.0
	runes := []rune(trimmed)
	first := runes[0]

	cleanStart := unicode.IsUpper(first) || first == '#' || first == '`'
	if cleanStart {
		score += 0.2
		score += 0.1
	} else if unicode.IsLower(first) {
		score -= 0.3
	}

	last := runes[len(runes)-1]
	if sentenceTermRe[last] || last == '`' || strings.HasSuffix(trimmed, "```") {
		score += 0.2
	}

	return model.Clamp01(score)
}

// EvaluateDocument aggregates per-chunk metrics and overlap into
// document-level metrics, and produces prioritized recommendations.
func EvaluateDocument(chunks []*model.DocumentChunk, content *model.ParsedContent, overlapSize int) (DocumentMetrics, []Recommendation) {
	if len(chunks) == 0 {
		return DocumentMetrics{}, nil
	}

	var completenessSum, boundarySum float64
	sizes := make([]int, len(chunks))
	for i, c := range chunks {
		m := EvaluateChunk(c, content)
		completenessSum += m.SemanticCompleteness
		boundarySum += m.BoundarySharpness
		sizes[i] = len(c.Content)
	}
	n := float64(len(chunks))
	avgCompleteness := completenessSum / n
	boundaryQuality := boundarySum / n

	consistency := sizeConsistency(sizes)
	sizeDist := sizeDistribution(sizes)
	overlapEff := overlapEffectiveness(chunks, overlapSize)

	metrics := DocumentMetrics{
		AverageCompleteness:  avgCompleteness,
		ContentConsistency:   consistency,
		BoundaryQuality:      boundaryQuality,
		SizeDistribution:     sizeDist,
		OverlapEffectiveness: overlapEff,
	}

	return metrics, recommendations(metrics, sizes, overlapSize)
}

func sizeConsistency(sizes []int) float64 {
	if len(sizes) == 0 {
		return 1
	}
	mean := 0.0
	for _, s := range sizes {
		mean += float64(s)
	}
	mean /= float64(len(sizes))
	if mean == 0 {
		return 1
	}
	variance := 0.0
	for _, s := range sizes {
		d := float64(s) - mean
		variance += d * d
	}
	variance /= float64(len(sizes))
	stddev := math.Sqrt(variance)
	cv := stddev / mean
	return model.Clamp01(1 - cv)
}

// sizeDistribution scores the spread of chunk sizes from the max/min
// size ratio alone: 1-(ratio-1)/10 for a ratio up to 5, 1-(ratio-1)/20
// above that, and 0.5 when the smallest size is 0. It does not compare
// sizes against max_chunk_size, which it does not receive.
func sizeDistribution(sizes []int) float64 {
	if len(sizes) == 0 {
		return 1
	}
	min, max := sizes[0], sizes[0]
	for _, s := range sizes {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if min == 0 {
		return 0.5
	}
	ratio := float64(max) / float64(min)
	if ratio <= 5.0 {
		return model.Clamp01(1 - (ratio-1)/10)
	}
	return model.Clamp01(1 - (ratio-1)/20)
}

func overlapEffectiveness(chunks []*model.DocumentChunk, overlapSize int) float64 {
	if overlapSize <= 0 || len(chunks) < 2 {
		return 1
	}
	withOverlap := 0
	for _, c := range chunks[1:] {
		if v, ok := c.Props["HasOverlap"]; ok {
			if b, ok := v.(bool); ok && b {
				withOverlap++
			}
		}
	}
	return model.Clamp01(float64(withOverlap) / float64(len(chunks)-1))
}

func recommendations(m DocumentMetrics, sizes []int, overlapSize int) []Recommendation {
	var recs []Recommendation

	if m.OverlapEffectiveness < 0.5 && overlapSize > 0 {
		recs = append(recs, Recommendation{
			Kind:     RecommendIncreaseOverlap,
			Priority: PriorityMedium,
			Message:  fmt.Sprintf("only %.0f%% of chunks carry overlap; consider increasing overlap_size", m.OverlapEffectiveness*100),
		})
	}

	if m.SizeDistribution < 0.6 {
		if avgSize(sizes) > 0 && hasOutsized(sizes) {
			recs = append(recs, Recommendation{
				Kind:     RecommendDecreaseChunkSize,
				Priority: PriorityHigh,
				Message:  "chunk sizes vary widely; consider decreasing max_chunk_size or switching to Intelligent for atomic regions",
			})
		} else {
			recs = append(recs, Recommendation{
				Kind:     RecommendIncreaseChunkSize,
				Priority: PriorityLow,
				Message:  "chunks are small and uneven; consider increasing max_chunk_size",
			})
		}
	}

	if m.BoundaryQuality < 0.55 {
		recs = append(recs, Recommendation{
			Kind:     RecommendReviewBoundaries,
			Priority: PriorityMedium,
			Message:  "boundary sharpness is low; consider Semantic or Smart strategy for cleaner cut points",
		})
	}

	if m.AverageCompleteness < 0.5 {
		recs = append(recs, Recommendation{
			Kind:     RecommendSwitchStrategy,
			Priority: PriorityHigh,
			Message:  "semantic completeness is low; the current strategy may not fit this document's structure",
		})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority > recs[j].Priority })
	return recs
}

func avgSize(sizes []int) int {
	if len(sizes) == 0 {
		return 0
	}
	total := 0
	for _, s := range sizes {
		total += s
	}
	return total / len(sizes)
}

func hasOutsized(sizes []int) bool {
	avg := avgSize(sizes)
	if avg == 0 {
		return false
	}
	for _, s := range sizes {
		if s > avg*2 {
			return true
		}
	}
	return false
}
