package vector

import (
	"math"
	"sort"
)

// Scored pairs a row index with its similarity.
type Scored struct {
	Index int
	Score float64
}

// TopK returns the k highest scores sorted descending. Equal scores are
// ordered by ascending index, so the result is deterministic. k larger than
// len(scores) returns every row; k <= 0 returns nil. NaN scores sort last.
func TopK(scores []float64, k int) []Scored {
	if k <= 0 || len(scores) == 0 {
		return nil
	}
	all := make([]Scored, len(scores))
	for i, s := range scores {
		all[i] = Scored{Index: i, Score: s}
	}
	sort.Slice(all, func(i, j int) bool {
		if ni, nj := math.IsNaN(all[i].Score), math.IsNaN(all[j].Score); ni || nj {
			if ni != nj {
				return nj
			}
			return all[i].Index < all[j].Index
		}
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Index < all[j].Index
	})
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}
