package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
)

func defaultPriorities() map[domain.Category]float64 {
	return map[domain.Category]float64{
		domain.CategoryModels:    1.0,
		domain.CategoryCommunity: 0.8,
		domain.CategoryIndustry:  0.7,
		domain.CategoryYouTube:   0.6,
		domain.CategoryLegal:     0.5,
	}
}

func TestWeightsValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}

	bad := Weights{Recency: 0.5, Engagement: 0.5, Keyword: 0.5, SourcePriority: 0.5}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected validation error for weights summing to 2.0")
	}

	withinTolerance := Weights{Recency: 0.25, Engagement: 0.25, Keyword: 0.30, SourcePriority: 0.205}
	if err := withinTolerance.Validate(); err != nil {
		t.Fatalf("weights within tolerance rejected: %v", err)
	}
}

func TestSourcePriorityFallback(t *testing.T) {
	t.Parallel()

	priorities := defaultPriorities()
	if got := SourcePriority(domain.CategoryModels, priorities); got != 1.0 {
		t.Fatalf("models priority = %v, want 1.0", got)
	}
	if got := SourcePriority(domain.Category("podcast"), priorities); got != 0.5 {
		t.Fatalf("unknown category priority = %v, want 0.5", got)
	}
}

func TestScorerTotalInRange(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC)
	scorer, err := NewScorer(DefaultWeights(), testTiers(), defaultPriorities(), func() time.Time { return now })
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}

	published := now.Add(-6 * time.Hour)
	item := domain.Item{
		ID:             "item-1",
		SourceID:       "civitai_lora",
		SourceCategory: domain.CategoryModels,
		Title:          "Wan2 anime LoRA release",
		RawBody:        "A new animation workflow tutorial.",
		PublishedAt:    &published,
		Metadata:       domain.Metadata{"downloads": 5000, "rating": 4.5},
	}

	rec := scorer.Score(item, "run-1")
	if rec.ItemID != "item-1" || rec.RunID != "run-1" {
		t.Fatalf("record identity wrong: %+v", rec)
	}
	for name, v := range map[string]float64{
		"total":      rec.TotalScore,
		"recency":    rec.RecencyScore,
		"engagement": rec.EngagementScore,
		"keyword":    rec.KeywordScore,
		"priority":   rec.SourcePriorityScore,
	} {
		if v < 0 || v > 1 {
			t.Fatalf("%s score out of range: %v", name, v)
		}
	}

	want := 0.25*rec.RecencyScore + 0.25*rec.EngagementScore +
		0.30*rec.KeywordScore + 0.20*rec.SourcePriorityScore
	if math.Abs(rec.TotalScore-want) > 0.0001 {
		t.Fatalf("total %v does not match weighted sum %v", rec.TotalScore, want)
	}
}

func TestScorerRoundsToFourDecimals(t *testing.T) {
	t.Parallel()

	scorer, err := NewScorer(DefaultWeights(), testTiers(), defaultPriorities(), nil)
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}

	rec := scorer.Score(domain.Item{SourceCategory: domain.CategoryLegal}, "run-1")
	for _, v := range []float64{rec.TotalScore, rec.RecencyScore, rec.EngagementScore, rec.KeywordScore, rec.SourcePriorityScore} {
		if math.Abs(v*10000-math.Round(v*10000)) > 1e-9 {
			t.Fatalf("score not rounded to 4 decimals: %v", v)
		}
	}
}

func TestNewScorerRejectsBadWeights(t *testing.T) {
	t.Parallel()

	_, err := NewScorer(Weights{Recency: 1, Engagement: 1, Keyword: 1, SourcePriority: 1}, testTiers(), nil, nil)
	if err == nil {
		t.Fatalf("expected error for invalid weights")
	}
}
