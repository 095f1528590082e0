// Package flood limits how often each client may trigger a composition.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed sliding window (always 1 minute)
	windowDuration = 60 * time.Second
	// cleanupInterval is how often we clean up expired entries
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long before we remove idle client entries
	idleTimeout = 10 * time.Minute
)

// Floodgate is a per-client sliding window rate limiter
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*clientEntry
	mutex          sync.Mutex
	now            func() time.Time
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

// clientEntry tracks request timestamps for one client
type clientEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a Floodgate admitting limitPerMinute requests per client and
// minute. A non-positive limit admits everything.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*clientEntry),
		now:            time.Now,
		stopCleanup:    make(chan struct{}),
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine. It is safe to call twice.
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// Allow records a request from client and reports whether it fits in the
// client's window.
func (fg *Floodgate) Allow(client string) bool {
	if fg.limitPerMinute <= 0 {
		return true
	}

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	now := fg.now()
	entry, exists := fg.entries[client]
	if !exists {
		entry = &clientEntry{
			timestamps: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.entries[client] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0] // Reuse slice capacity
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// RetryAfter returns how long client has to wait before its next request is
// admitted, or zero when it would be admitted now.
func (fg *Floodgate) RetryAfter(client string) time.Duration {
	if fg.limitPerMinute <= 0 {
		return 0
	}

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[client]
	if !exists || len(entry.timestamps) < fg.limitPerMinute {
		return 0
	}

	// Timestamps are appended in order, so the oldest expires first.
	wait := entry.timestamps[len(entry.timestamps)-fg.limitPerMinute].Add(windowDuration).Sub(fg.now())
	return max(wait, 0)
}

func (fg *Floodgate) cleanup() {
	fg.performCleanup()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

// performCleanup removes entries that have been idle for too long
func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	return Stats{
		ActiveClients:  len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveClients  int `json:"active_clients"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
