package compose

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"chorus/internal/core"
)

// SelectionMethod decides which candidates survive when a pool is cut down to
// an item's quota.
type SelectionMethod string

const (
	SelectRandom     SelectionMethod = "random"
	SelectPopularity SelectionMethod = "popularity"
	SelectLatest     SelectionMethod = "latest"
	SelectOriginal   SelectionMethod = "original"
)

// ParseSelectionMethod maps a user supplied method name to a SelectionMethod.
// An empty name selects randomly.
func ParseSelectionMethod(name string) (SelectionMethod, error) {
	switch m := SelectionMethod(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return SelectRandom, nil
	case SelectRandom, SelectPopularity, SelectLatest, SelectOriginal:
		return m, nil
	default:
		return "", fmt.Errorf("unknown selection method %q", name)
	}
}

// Select returns min(count, len(tracks)) tracks chosen from tracks according
// to method. The input slice is never modified. Ties in the popularity and
// latest orderings keep the input order.
func Select(rng *rand.Rand, tracks []core.Track, count int, method SelectionMethod) []core.Track {
	if count <= 0 || len(tracks) == 0 {
		return []core.Track{}
	}
	n := min(count, len(tracks))

	pool := make([]core.Track, len(tracks))
	copy(pool, tracks)

	switch method {
	case SelectPopularity:
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].Popularity > pool[j].Popularity
		})
	case SelectLatest:
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].Album.ReleaseDate.After(pool[j].Album.ReleaseDate)
		})
	case SelectOriginal:
	default:
		// Partial Fisher-Yates: the first n slots end up a uniform sample.
		for i := 0; i < n; i++ {
			j := i + rng.Intn(len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
		}
	}

	return pool[:n:n]
}

// FilterReleased keeps the tracks whose album release date falls inside r.
// A nil range keeps everything.
func FilterReleased(tracks []core.Track, r *core.ReleaseRange) []core.Track {
	if r == nil {
		return tracks
	}
	kept := make([]core.Track, 0, len(tracks))
	for _, t := range tracks {
		if r.Contains(t.Album.ReleaseDate) {
			kept = append(kept, t)
		}
	}
	return kept
}
