package collector

import (
	"sort"

	"github.com/umputun/cubscope/pkg/domain"
)

// DedupeAndRank drops duplicates, orders items newest first and keeps at most max of them.
// Duplicate key is the link, or title+source for items without a link; the first occurrence wins.
// Sorting is stable, items with equal timestamps keep their input order. max <= 0 means no cap.
func DedupeAndRank(items []domain.Item, max int) []domain.Item {
	seen := make(map[string]struct{}, len(items))
	res := make([]domain.Item, 0, len(items))
	for _, it := range items {
		k := dedupeKey(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res = append(res, it)
	}

	sort.SliceStable(res, func(i, j int) bool { return res[i].PublishedTS > res[j].PublishedTS })

	if max > 0 && len(res) > max {
		res = res[:max]
	}
	return res
}

func dedupeKey(it domain.Item) string {
	if it.Link != "" {
		return it.Link
	}
	return it.Title + "\x00" + it.Source
}
