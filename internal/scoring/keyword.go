package scoring

import (
	"regexp"
	"strings"
)

// Per-tier contribution weights and caps. Each tier is capped
// independently so no single tier can dominate the keyword score.
const (
	highWeight = 0.15
	highCap    = 0.6
	medWeight  = 0.08
	medCap     = 0.3
	lowWeight  = 0.04
	lowCap     = 0.1
)

// KeywordTiers holds the three weighted keyword lists from config.
type KeywordTiers struct {
	High   []string
	Medium []string
	Low    []string
}

// KeywordMatcher scores text against the three tiers using whole-word
// matching. Built once, reused across all items in a run.
type KeywordMatcher struct {
	high   map[string]struct{}
	medium map[string]struct{}
	low    map[string]struct{}
}

var wordExpr = regexp.MustCompile(`[a-z0-9]+`)

// NewKeywordMatcher normalizes the tier lists into lookup sets.
func NewKeywordMatcher(tiers KeywordTiers) *KeywordMatcher {
	return &KeywordMatcher{
		high:   toSet(tiers.High),
		medium: toSet(tiers.Medium),
		low:    toSet(tiers.Low),
	}
}

// Score computes the tier-capped keyword relevance of text. Matching is
// case-insensitive and bounded at word edges: "ai" never matches inside
// "email" or "fair". Each keyword counts once regardless of repetition.
func (m *KeywordMatcher) Score(text string) float64 {
	if text == "" {
		return 0
	}

	words := make(map[string]struct{})
	for _, w := range wordExpr.FindAllString(strings.ToLower(text), -1) {
		words[w] = struct{}{}
	}

	high := countMatches(m.high, words)
	med := countMatches(m.medium, words)
	low := countMatches(m.low, words)

	score := capAt(float64(high)*highWeight, highCap) +
		capAt(float64(med)*medWeight, medCap) +
		capAt(float64(low)*lowWeight, lowCap)
	return clamp01(score)
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func countMatches(keywords, words map[string]struct{}) int {
	n := 0
	for kw := range keywords {
		if _, ok := words[kw]; ok {
			n++
		}
	}
	return n
}

func capAt(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}
