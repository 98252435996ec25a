package synthesis

import (
	"sort"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/registry"
)

// recencyBonus is added to items from systems the previous assistant turn
// used, mirroring the router's recency boost.
const recencyBonus = 0.25

// Merge flattens successful adapter results into one ranked list. Ordering
// depends only on score, recency bias and stable tiebreaks, never on the
// order adapters happened to finish in.
func Merge(results map[registry.SystemID]adapters.Result, recentSystems map[registry.SystemID]bool, limit int) []adapters.ResultItem {
	var items []adapters.ResultItem
	for _, res := range results {
		if !res.OK() {
			continue
		}
		items = append(items, res.Items...)
	}

	sort.Slice(items, func(i, j int) bool {
		ei, ej := effectiveScore(items[i], recentSystems), effectiveScore(items[j], recentSystems)
		if ei != ej {
			return ei > ej
		}
		if items[i].SystemID != items[j].SystemID {
			return items[i].SystemID < items[j].SystemID
		}
		return items[i].Title < items[j].Title
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func effectiveScore(it adapters.ResultItem, recent map[registry.SystemID]bool) float64 {
	if recent[it.SystemID] {
		return it.Score + recencyBonus
	}
	return it.Score
}
