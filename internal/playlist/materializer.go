// Package playlist writes track lists back to the user's account: it
// creates or replaces target playlists, fills them, and backs them up.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"chorus/internal/core"
	"chorus/internal/store"
	"chorus/pkg/fuzzy"
)

const (
	// DefaultQueueDescription describes playlists created from the playback queue.
	DefaultQueueDescription = "Mix generated from queue"

	// MaxPlaylistTracks is the number of items a playlist can hold.
	MaxPlaylistTracks = 10000

	dedupFalsePositiveRate = 0.001
)

// Service materializes track lists as playlists of the authenticated user.
type Service struct {
	client     core.SpotifyClient
	logger     *zap.Logger
	normalizer *fuzzy.Normalizer

	// present holds the ids of the playlist being filled.
	fillMu  sync.Mutex
	present *store.TrackSet

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates a playlist service. rng drives Shuffle.
func NewService(client core.SpotifyClient, rng *rand.Rand, logger *zap.Logger) *Service {
	return &Service{
		client:     client,
		logger:     logger,
		normalizer: fuzzy.NewNormalizer(),
		present:    store.NewTrackSet(MaxPlaylistTracks, dedupFalsePositiveRate),
		rng:        rng,
	}
}

// Find returns the user's playlist whose simplified name matches name.
func (s *Service) Find(ctx context.Context, name string) (*core.Playlist, error) {
	playlists, err := s.client.UserPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	for i := range playlists {
		if s.normalizer.SameName(playlists[i].Name, name) {
			return &playlists[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %q", core.ErrPlaylistNotFound, name)
}

// CreateOrReplace returns an empty playlist called name. An existing playlist
// with the same simplified name is emptied and reused when overwrite is set,
// and is an ErrPlaylistExists error otherwise.
func (s *Service) CreateOrReplace(ctx context.Context, name, description string, overwrite bool) (*core.Playlist, error) {
	existing, err := s.Find(ctx, name)
	switch {
	case err == nil:
		if !overwrite {
			return nil, fmt.Errorf("%w: %q", core.ErrPlaylistExists, name)
		}
		if err := s.Clear(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.Info("Emptied existing playlist", zap.String("playlist", existing.Name), zap.String("id", existing.ID))
		return existing, nil
	case !isNotFound(err):
		return nil, err
	}

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	created, err := s.client.CreatePlaylist(ctx, user.ID, name, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist %q: %w", name, err)
	}

	s.logger.Info("Created playlist", zap.String("playlist", created.Name), zap.String("id", created.ID))
	return created, nil
}

// Clear removes every track from the playlist.
func (s *Service) Clear(ctx context.Context, p *core.Playlist) error {
	tracks, err := s.client.PlaylistTracks(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to read playlist %q: %w", p.Name, err)
	}
	if len(tracks) == 0 {
		return nil
	}

	if err := s.client.RemoveTracks(ctx, p.ID, uniqueIDs(tracks)); err != nil {
		return fmt.Errorf("failed to empty playlist %q: %w", p.Name, err)
	}
	return nil
}

// Fill adds the tracks the playlist does not hold yet, each id at most once,
// and returns how many were added.
func (s *Service) Fill(ctx context.Context, p *core.Playlist, tracks []core.Track) (int, error) {
	if len(tracks) == 0 {
		return 0, nil
	}

	current, err := s.client.PlaylistTracks(ctx, p.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to read playlist %q: %w", p.Name, err)
	}

	s.fillMu.Lock()
	defer s.fillMu.Unlock()

	s.present.Load(trackIDs(current))
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" || s.present.Has(t.ID) {
			continue
		}
		s.present.AddIfAbsent(t.ID)
		ids = append(ids, t.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.client.AddTracks(ctx, p.ID, ids); err != nil {
		return 0, fmt.Errorf("failed to fill playlist %q: %w", p.Name, err)
	}

	if skipped := len(tracks) - len(ids); skipped > 0 {
		s.logger.Debug("Skipped tracks already present",
			zap.String("playlist", p.Name),
			zap.Int("skipped", skipped),
			zap.Int("present", s.present.Len()))
	}
	s.logger.Info("Filled playlist", zap.String("playlist", p.Name), zap.Int("tracks", len(ids)))
	return len(ids), nil
}

// Materialize creates or replaces the playlist and fills it with tracks.
func (s *Service) Materialize(ctx context.Context, name, description string, overwrite bool, tracks []core.Track) (*core.Playlist, int, error) {
	p, err := s.CreateOrReplace(ctx, name, description, overwrite)
	if err != nil {
		return nil, 0, err
	}

	added, err := s.Fill(ctx, p, tracks)
	if err != nil {
		return p, 0, err
	}
	return p, added, nil
}

// Shuffle reorders the named playlist at random.
func (s *Service) Shuffle(ctx context.Context, name string) (*core.Playlist, error) {
	p, err := s.Find(ctx, name)
	if err != nil {
		return nil, err
	}

	tracks, err := s.client.PlaylistTracks(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist %q: %w", p.Name, err)
	}

	s.rngMu.Lock()
	s.rng.Shuffle(len(tracks), func(i, j int) {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	})
	s.rngMu.Unlock()

	if err := s.Clear(ctx, p); err != nil {
		return nil, err
	}
	// Duplicated items are kept.
	if ids := trackIDs(tracks); len(ids) > 0 {
		if err := s.client.AddTracks(ctx, p.ID, ids); err != nil {
			return nil, fmt.Errorf("failed to refill playlist %q: %w", p.Name, err)
		}
	}

	return p, nil
}

// FromQueue replaces the named playlist with the current playback queue.
// The platform only exposes the next few queued tracks.
func (s *Service) FromQueue(ctx context.Context, name, description string) (*core.Playlist, int, error) {
	tracks, err := s.client.Queue(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read playback queue: %w", err)
	}
	if description == "" {
		description = DefaultQueueDescription
	}

	return s.Materialize(ctx, name, description, true, tracks)
}

// Like saves tracks to the user's library and returns how many were saved.
func (s *Service) Like(ctx context.Context, tracks []core.Track) (int, error) {
	ids := uniqueIDs(tracks)
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.client.SaveTracks(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to save tracks: %w", err)
	}

	s.logger.Info("Saved tracks to library", zap.Int("tracks", len(ids)))
	return len(ids), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrPlaylistNotFound)
}

// trackIDs returns the non-empty track ids in order, repeats included.
func trackIDs(tracks []core.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// uniqueIDs returns the distinct non-empty track ids in first-seen order.
func uniqueIDs(tracks []core.Track) []string {
	seen := store.NewTrackSet(len(tracks), dedupFalsePositiveRate)
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if seen.AddIfAbsent(t.ID) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
