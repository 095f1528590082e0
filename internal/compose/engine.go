// Package compose turns a weighted composer configuration into a list of
// tracks pulled from playlists, artists, listening history and
// recommendations.
package compose

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"chorus/internal/core"
	"chorus/pkg/fuzzy"
	"chorus/pkg/text"
)

// Recorder receives composition measurements.
type Recorder interface {
	ObserveResolved(kind Kind, tracks int)
	ObserveMiss(kind Kind)
	ObserveCompose(duration time.Duration, tracks int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveResolved(Kind, int)         {}
func (nopRecorder) ObserveMiss(Kind)                  {}
func (nopRecorder) ObserveCompose(time.Duration, int) {}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder reports composition measurements to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// Engine composes track lists. All randomness comes from the injected rng, so
// a fixed seed and fixed upstream answers give the same composition.
type Engine struct {
	client     core.SpotifyClient
	logger     *zap.Logger
	recorder   Recorder
	normalizer *fuzzy.Normalizer
	parser     *text.Parser

	// mu serializes compositions; rng is not safe for concurrent use.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates an engine reading from client.
func NewEngine(client core.SpotifyClient, rng *rand.Rand, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		client:     client,
		logger:     logger,
		recorder:   nopRecorder{},
		normalizer: fuzzy.NewNormalizer(),
		parser:     text.NewParser(),
		rng:        rng,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compose resolves every item of cfg and returns the pooled tracks in random
// order. Tracks are not deduplicated. Sources that cannot be found contribute
// nothing; an error is returned only when the context ends or recommendation
// seeding is impossible.
func (e *Engine) Compose(ctx context.Context, cfg *Config) ([]core.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	alloc := cfg.Allocate()
	e.logger.Info("Allocated songs to sources",
		zap.String("playlist", cfg.Name()),
		zap.Int("target", cfg.NbSongs()),
		zap.Int("allocated", alloc.Total))

	r := &run{releaseRange: cfg.ReleaseRange()}

	for i, item := range cfg.Items() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		quota := alloc.Quotas[i]
		kind := item.Source.Kind()
		if quota <= 0 {
			continue
		}

		tracks, err := e.resolve(ctx, r, item, quota)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s %q: %w", kind, item.Source.Label(), err)
		}

		if len(tracks) == 0 {
			e.recorder.ObserveMiss(kind)
		}
		e.recorder.ObserveResolved(kind, len(tracks))
		e.logger.Debug("Resolved source",
			zap.String("kind", string(kind)),
			zap.String("source", item.Source.Label()),
			zap.Int("quota", quota),
			zap.Int("tracks", len(tracks)))

		r.resolved = append(r.resolved, tracks...)
	}

	pool := make([]core.Track, len(r.resolved))
	copy(pool, r.resolved)
	e.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	e.recorder.ObserveCompose(time.Since(start), len(pool))
	e.logger.Info("Composed playlist",
		zap.String("playlist", cfg.Name()),
		zap.Int("tracks", len(pool)),
		zap.Duration("duration", time.Since(start)))

	return pool, nil
}
