package scoring

import (
	"math"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
)

// Engagement folds whatever numeric signals a source attached into a
// single [0,1] value. Each signal gets its own log-scale transform and
// the strongest one wins; absent signals never lower the result.
func Engagement(meta domain.Metadata) float64 {
	best := 0.0

	if v, ok := meta.Number(domain.MetaStars); ok {
		best = math.Max(best, clamp01(math.Log10(math.Max(v, 1))/5))
	}
	if v, ok := meta.Number(domain.MetaDownloads); ok {
		best = math.Max(best, clamp01(math.Log10(math.Max(v, 1))/5))
	}
	if v, ok := meta.Number(domain.MetaFavorites); ok {
		best = math.Max(best, clamp01(math.Log10(math.Max(v, 1))/4))
	}
	if v, ok := meta.Number(domain.MetaRating); ok {
		best = math.Max(best, clamp01(v/5.0))
	}
	if v, ok := meta.Number(domain.MetaScore); ok {
		best = math.Max(best, clamp01(v/50.0))
	}

	return best
}
