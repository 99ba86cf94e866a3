package scoring

import "github.com/shu-bamma/anime-ai-digest/internal/domain"

// Priority assigned to categories missing from the configuration.
const priorityFallback = 0.5

// SourcePriority looks up the fixed per-category priority. Unknown
// categories land in the middle of the range rather than erroring.
func SourcePriority(category domain.Category, priorities map[domain.Category]float64) float64 {
	if v, ok := priorities[category]; ok {
		return clamp01(v)
	}
	return priorityFallback
}
