package compose

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"chorus/internal/core"
)

// MaxSeeds is the number of seeds a recommendation request accepts.
const MaxSeeds = 5

var (
	// ErrNoCandidates is returned when seeds are requested from an empty pool.
	ErrNoCandidates = errors.New("no candidate tracks to pick seeds from")
	// ErrMissingFeatures is returned when candidates were not enriched with
	// audio features before seed finding.
	ErrMissingFeatures = errors.New("candidate tracks carry no audio features")
	// ErrUnknownFeature is returned for a feature absent from the enriched data.
	ErrUnknownFeature = errors.New("unknown audio feature")
)

// FindSeeds returns the k tracks whose value for feature is closest to
// target. Equal distances keep the candidates' order. k is clamped to the
// pool size.
func FindSeeds(tracks []core.Track, feature core.Feature, target float64, k int) ([]core.Track, error) {
	if len(tracks) == 0 {
		return nil, ErrNoCandidates
	}
	if _, _, ok := feature.Bounds(); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}

	type candidate struct {
		track    core.Track
		distance float64
	}
	candidates := make([]candidate, 0, len(tracks))
	for _, t := range tracks {
		if t.Features == nil {
			return nil, fmt.Errorf("%w: track %s", ErrMissingFeatures, t.ID)
		}
		v, ok := t.Features.Value(feature)
		if !ok {
			return nil, fmt.Errorf("%w: %q missing on track %s", ErrUnknownFeature, feature, t.ID)
		}
		candidates = append(candidates, candidate{track: t, distance: math.Abs(v - target)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	k = max(0, min(k, len(candidates)))
	seeds := make([]core.Track, k)
	for i := range seeds {
		seeds[i] = candidates[i].track
	}
	return seeds, nil
}
