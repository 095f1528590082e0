// Package store holds the local state chorus keeps between API calls: a
// bounded set of seen track ids and the SQLite catalog of playlist backups.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// TrackSet is a bounded, concurrency-safe set of track ids. Membership checks
// go through a Bloom filter first; the least recently added ids are evicted
// once the capacity is reached.
type TrackSet struct {
	mu                sync.RWMutex
	ids               map[string]struct{}
	bloom             *bloom.BloomFilter
	order             *lru.Cache[string, struct{}]
	capacity          int
	falsePositiveRate float64
}

// NewTrackSet creates a set holding up to capacity ids. Capacities below one
// are raised to one.
func NewTrackSet(capacity int, falsePositiveRate float64) *TrackSet {
	capacity = max(capacity, 1)
	s := &TrackSet{
		ids:               make(map[string]struct{}, capacity),
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
	}
	// Runs under s.mu, from inside order.Add or order.Purge.
	s.order, _ = lru.NewWithEvict(capacity, func(id string, _ struct{}) {
		delete(s.ids, id)
	})
	return s
}

// Has reports whether id is in the set.
func (s *TrackSet) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.has(id)
}

// AddIfAbsent adds id and reports whether it was new. Empty ids are never
// added.
func (s *TrackSet) AddIfAbsent(id string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.has(id) {
		return false
	}
	s.add(id)
	return true
}

// Load replaces the content of the set with ids.
func (s *TrackSet) Load(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order.Purge()
	s.ids = make(map[string]struct{}, s.capacity)
	s.bloom.ClearAll()
	for _, id := range ids {
		if id != "" && !s.has(id) {
			s.add(id)
		}
	}
}

// Len returns the number of ids in the set.
func (s *TrackSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func (s *TrackSet) has(id string) bool {
	if !s.bloom.TestString(id) {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

func (s *TrackSet) add(id string) {
	s.ids[id] = struct{}{}
	s.bloom.AddString(id)
	s.order.Add(id, struct{}{})
}
