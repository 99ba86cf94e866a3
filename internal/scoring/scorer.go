// Package scoring computes the multi-signal relevance score for fetched
// items. All sub-scores are pure, total functions over [0,1]; missing
// input always maps to a documented fallback, never an error.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
)

// Weights tunes the contribution of each sub-score to the total.
type Weights struct {
	Recency        float64 `yaml:"recency"`
	Engagement     float64 `yaml:"engagement"`
	Keyword        float64 `yaml:"keyword"`
	SourcePriority float64 `yaml:"sourcePriority"`
}

// DefaultWeights mirrors the shipped scoring configuration.
func DefaultWeights() Weights {
	return Weights{
		Recency:        0.25,
		Engagement:     0.25,
		Keyword:        0.30,
		SourcePriority: 0.20,
	}
}

const weightTolerance = 0.01

// Validate rejects weight sets that do not sum to 1.0 within tolerance.
func (w Weights) Validate() error {
	sum := w.Recency + w.Engagement + w.Keyword + w.SourcePriority
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("scoring weights sum to %.4f, want 1.0±%.2f", sum, weightTolerance)
	}
	return nil
}

// Scorer aggregates the four sub-scores into one ScoreRecord per item
// per run. It holds no mutable state and is safe for reuse.
type Scorer struct {
	weights    Weights
	keywords   *KeywordMatcher
	priorities map[domain.Category]float64
	now        func() time.Time
}

// NewScorer builds a scorer from validated configuration. The now hook
// exists for deterministic tests; nil means time.Now.
func NewScorer(weights Weights, tiers KeywordTiers, priorities map[domain.Category]float64, now func() time.Time) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Scorer{
		weights:    weights,
		keywords:   NewKeywordMatcher(tiers),
		priorities: priorities,
		now:        now,
	}, nil
}

// Score produces the immutable score record for one item in one run.
func (s *Scorer) Score(item domain.Item, runID string) domain.ScoreRecord {
	recency := Recency(item.PublishedAt, s.now())
	engagement := Engagement(item.Metadata)
	keyword := s.keywords.Score(item.DisplayTitle() + " " + item.DisplayBody())
	priority := SourcePriority(item.SourceCategory, s.priorities)

	total := s.weights.Recency*recency +
		s.weights.Engagement*engagement +
		s.weights.Keyword*keyword +
		s.weights.SourcePriority*priority

	return domain.ScoreRecord{
		ItemID:              item.ID,
		RunID:               runID,
		TotalScore:          round4(total),
		RecencyScore:        round4(recency),
		EngagementScore:     round4(engagement),
		KeywordScore:        round4(keyword),
		SourcePriorityScore: round4(priority),
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
