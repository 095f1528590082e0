package compose

import (
	"math"
)

// roundingSlack absorbs float error so a share such as 10.000000000000002 is
// not pushed to the next integer. It only applies near positive integers,
// so any positive weight gets at least one song.
const roundingSlack = 1e-9

// Allocation is the outcome of distributing a song target over weighted items.
type Allocation struct {
	// Quotas holds one entry per weight, in input order.
	Quotas []int
	// Total is the sum of Quotas. Ceiling rounding lets it exceed the target
	// by at most len(weights)-1.
	Total int
}

// Allocate gives every weight ceil(weight / sum(weights) * target) songs.
// When the weights sum to zero nothing is allocated.
func Allocate(target int, weights []float64) Allocation {
	alloc := Allocation{Quotas: make([]int, len(weights))}

	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 || target <= 0 {
		return alloc
	}

	for i, w := range weights {
		if w <= 0 {
			continue
		}
		share := w * float64(target) / sum
		if r := math.Round(share); r > 0 && math.Abs(share-r) < roundingSlack {
			share = r
		}
		q := int(math.Ceil(share))
		alloc.Quotas[i] = q
		alloc.Total += q
	}

	return alloc
}
