// Package selection post-processes a ranked item list into a
// category-diverse, per-source-capped subset for the digest.
package selection

import (
	"sort"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
)

// Caps bounds the selection. Callers supply positive values; zero or
// negative caps are a documented precondition violation, not validated.
type Caps struct {
	MinPerCategory int `yaml:"minPerCategory"`
	MaxPerSource   int `yaml:"maxPerSource"`
}

// DefaultCaps mirrors the shipped selection configuration.
func DefaultCaps() Caps {
	return Caps{MinPerCategory: 3, MaxPerSource: 8}
}

// Select runs the two-phase greedy allocation. Phase 1 reserves up to
// MinPerCategory items per category (categories in first-seen order,
// items score-descending within each); Phase 2 fills the rest from the
// full ranked list. Source cap accounting is shared across both phases
// via one mutable map, keeping the whole pass O(n log n). The admitted
// set is re-sorted globally at the end because Phase 1 insertion order
// is category-grouped.
//
// Ties in score keep first-seen input order (stable sort). Never
// errors: empty input yields empty output.
func Select(items []domain.ScoredItem, caps Caps) []domain.ScoredItem {
	if len(items) == 0 {
		return nil
	}

	ranked := make([]domain.ScoredItem, len(items))
	copy(ranked, items)
	sortByScore(ranked)

	var categoryOrder []domain.Category
	byCategory := make(map[domain.Category][]domain.ScoredItem)
	for _, si := range ranked {
		cat := si.Item.SourceCategory
		if _, ok := byCategory[cat]; !ok {
			categoryOrder = append(categoryOrder, cat)
		}
		byCategory[cat] = append(byCategory[cat], si)
	}

	perSource := make(map[string]int)
	admitted := make(map[string]struct{}, len(ranked))
	out := make([]domain.ScoredItem, 0, len(ranked))

	admit := func(si domain.ScoredItem) bool {
		if _, ok := admitted[si.Item.ID]; ok {
			return false
		}
		if perSource[si.Item.SourceID] >= caps.MaxPerSource {
			return false
		}
		admitted[si.Item.ID] = struct{}{}
		perSource[si.Item.SourceID]++
		out = append(out, si)
		return true
	}

	// Phase 1: category floor. A category with fewer than
	// MinPerCategory items contributes all of them, no padding.
	for _, cat := range categoryOrder {
		taken := 0
		for _, si := range byCategory[cat] {
			if taken >= caps.MinPerCategory {
				break
			}
			if admit(si) {
				taken++
			}
		}
	}

	// Phase 2: global fill over the entire ranked list.
	for _, si := range ranked {
		admit(si)
	}

	sortByScore(out)
	return out
}

func sortByScore(items []domain.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score.TotalScore > items[j].Score.TotalScore
	})
}
