// Package spotify adapts the Spotify Web API to the core.SpotifyClient contract.
package spotify

import (
	"context"
	"fmt"
	"math"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chorus/internal/core"
)

const (
	// MaxSearchResults limits playlist and artist searches
	MaxSearchResults = 10
	// PlaylistPageSize is the page size used to walk playlist items
	PlaylistPageSize = 100
	// UserPlaylistPageSize is the page size used to walk the user's playlists
	UserPlaylistPageSize = 50
	// PlaylistWriteBatch is the number of tracks sent per playlist add or remove
	PlaylistWriteBatch = 99
	// LibraryWriteBatch is the number of tracks saved to the library per call
	LibraryWriteBatch = 50
	// AudioFeaturesBatch is the number of tracks analysed per call
	AudioFeaturesBatch = 100
)

type Client struct {
	config  *core.SpotifyConfig
	logger  *zap.Logger
	client  *spotify.Client
	auth    *spotifyauth.Authenticator
	limiter *rate.Limiter
}

var _ core.SpotifyClient = (*Client)(nil)

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopeUserTopRead,
			spotifyauth.ScopeUserLibraryModify,
			spotifyauth.ScopeUserReadPlaybackState,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	return &Client{
		config:  config,
		logger:  logger,
		auth:    auth,
		limiter: newLimiter(config.RequestsPerSecond),
	}
}

// newLimiter paces API calls; a non-positive rate disables pacing.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 || math.IsInf(perSecond, 1) {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// wait checks authentication and blocks until the limiter admits a call.
func (c *Client) wait(ctx context.Context) error {
	if c.client == nil {
		return core.ErrNotAuthenticated
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) market() spotify.RequestOption {
	return spotify.Market(c.config.Market)
}

func (c *Client) CurrentUser(ctx context.Context) (*core.User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return &core.User{ID: user.ID, Name: user.DisplayName, URI: string(user.URI)}, nil
}

func (c *Client) UserPlaylists(ctx context.Context) ([]core.Playlist, error) {
	var playlists []core.Playlist
	offset := 0

	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		page, err := c.client.CurrentUsersPlaylists(ctx,
			spotify.Limit(UserPlaylistPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("failed to get user playlists: %w", err)
		}

		for i := range page.Playlists {
			playlists = append(playlists, convertPlaylist(&page.Playlists[i]))
		}

		if len(page.Playlists) < UserPlaylistPageSize {
			break
		}
		offset += UserPlaylistPageSize
	}

	c.logger.Debug("Retrieved user playlists", zap.Int("count", len(playlists)))
	return playlists, nil
}

// SearchPlaylists searches for playlists based on a query string
func (c *Client) SearchPlaylists(ctx context.Context, query string) ([]core.Playlist, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	results, err := c.client.Search(ctx, query, spotify.SearchTypePlaylist,
		c.market(), spotify.Limit(MaxSearchResults))
	if err != nil {
		return nil, fmt.Errorf("playlist search failed: %w", err)
	}

	if results.Playlists == nil {
		return nil, nil
	}

	playlists := make([]core.Playlist, 0, len(results.Playlists.Playlists))
	for i := range results.Playlists.Playlists {
		playlist := &results.Playlists.Playlists[i]
		if playlist.ID == "" {
			continue
		}
		playlists = append(playlists, convertPlaylist(playlist))
	}

	return playlists, nil
}

func (c *Client) SearchArtists(ctx context.Context, query string) ([]core.Artist, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	results, err := c.client.Search(ctx, query, spotify.SearchTypeArtist,
		c.market(), spotify.Limit(MaxSearchResults))
	if err != nil {
		return nil, fmt.Errorf("artist search failed: %w", err)
	}

	if results.Artists == nil {
		return nil, nil
	}

	artists := make([]core.Artist, 0, len(results.Artists.Artists))
	for i := range results.Artists.Artists {
		artists = append(artists, convertFullArtist(&results.Artists.Artists[i]))
	}

	return artists, nil
}

func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]core.Track, error) {
	spotifyPlaylistID := spotify.ID(playlistID)
	var tracks []core.Track
	offset := 0

	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		items, err := c.client.GetPlaylistItems(ctx, spotifyPlaylistID,
			spotify.Limit(PlaylistPageSize), spotify.Offset(offset), c.market())
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist items: %w", err)
		}

		for i := range items.Items {
			// Only process tracks (not episodes or null items)
			if track, ok := convertPlaylistItem(&items.Items[i]); ok {
				tracks = append(tracks, track)
			}
		}

		if len(items.Items) < PlaylistPageSize {
			break
		}
		offset += PlaylistPageSize
	}

	c.logger.Debug("Retrieved playlist tracks",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(tracks)))

	return tracks, nil
}

func (c *Client) TopTracks(ctx context.Context, timeRange core.TimeRange, limit int) ([]core.Track, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	page, err := c.client.CurrentUsersTopTracks(ctx,
		spotify.Timerange(spotify.Range(timeRange)), spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get top tracks: %w", err)
	}

	tracks := make([]core.Track, 0, len(page.Tracks))
	for i := range page.Tracks {
		tracks = append(tracks, convertFullTrack(&page.Tracks[i]))
	}

	return tracks, nil
}

func (c *Client) RelatedArtists(ctx context.Context, artistID string) ([]core.Artist, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	related, err := c.client.GetRelatedArtists(ctx, spotify.ID(artistID))
	if err != nil {
		return nil, fmt.Errorf("failed to get related artists: %w", err)
	}

	artists := make([]core.Artist, 0, len(related))
	for i := range related {
		artists = append(artists, convertFullArtist(&related[i]))
	}

	return artists, nil
}

func (c *Client) ArtistTopTracks(ctx context.Context, artistID string) ([]core.Track, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	top, err := c.client.GetArtistsTopTracks(ctx, spotify.ID(artistID), c.config.Market)
	if err != nil {
		return nil, fmt.Errorf("failed to get artist top tracks: %w", err)
	}

	tracks := make([]core.Track, 0, len(top))
	for i := range top {
		tracks = append(tracks, convertFullTrack(&top[i]))
	}

	return tracks, nil
}

func (c *Client) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]core.AudioFeatures, error) {
	features := make(map[string]core.AudioFeatures, len(trackIDs))

	for _, batch := range batches(trackIDs, AudioFeaturesBatch) {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		analysed, err := c.client.GetAudioFeatures(ctx, toIDs(batch)...)
		if err != nil {
			return nil, fmt.Errorf("failed to get audio features: %w", err)
		}
		for i, af := range analysed {
			// The API answers null for tracks it has not analysed
			if af == nil || i >= len(batch) {
				continue
			}
			features[batch[i]] = convertAudioFeatures(af)
		}
	}

	return features, nil
}

func (c *Client) Recommendations(
	ctx context.Context, seeds core.Seeds, targets map[core.Feature]float64, limit int,
) ([]core.Track, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	spotifySeeds := spotify.Seeds{
		Artists: toIDs(seeds.ArtistIDs),
		Tracks:  toIDs(seeds.TrackIDs),
		Genres:  seeds.Genres,
	}

	recommended, err := c.client.GetRecommendations(ctx, spotifySeeds, trackAttributes(targets),
		spotify.Limit(limit), c.market())
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}

	tracks := make([]core.Track, 0, len(recommended.Tracks))
	for i := range recommended.Tracks {
		tracks = append(tracks, convertSimpleTrack(&recommended.Tracks[i]))
	}

	return tracks, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string) (*core.Playlist, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	created, err := c.client.CreatePlaylistForUser(ctx, userID, name, description, true, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	playlist := convertPlaylist(&created.SimplePlaylist)
	c.logger.Info("Playlist created",
		zap.String("playlistID", playlist.ID),
		zap.String("name", name))

	return &playlist, nil
}

func (c *Client) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	for _, batch := range batches(trackIDs, PlaylistWriteBatch) {
		if err := c.wait(ctx); err != nil {
			return err
		}
		if _, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), toIDs(batch)...); err != nil {
			return fmt.Errorf("failed to add tracks to playlist: %w", err)
		}
	}

	c.logger.Debug("Tracks added to playlist",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(trackIDs)))

	return nil
}

func (c *Client) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	for _, batch := range batches(trackIDs, PlaylistWriteBatch) {
		if err := c.wait(ctx); err != nil {
			return err
		}
		if _, err := c.client.RemoveTracksFromPlaylist(ctx, spotify.ID(playlistID), toIDs(batch)...); err != nil {
			return fmt.Errorf("failed to remove tracks from playlist: %w", err)
		}
	}

	c.logger.Debug("Tracks removed from playlist",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(trackIDs)))

	return nil
}

func (c *Client) SaveTracks(ctx context.Context, trackIDs []string) error {
	for _, batch := range batches(trackIDs, LibraryWriteBatch) {
		if err := c.wait(ctx); err != nil {
			return err
		}
		if err := c.client.AddTracksToLibrary(ctx, toIDs(batch)...); err != nil {
			return fmt.Errorf("failed to save tracks: %w", err)
		}
	}

	return nil
}

// Queue returns the tracks waiting in the user's playback queue
func (c *Client) Queue(ctx context.Context) ([]core.Track, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	queue, err := c.client.GetQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user queue: %w", err)
	}

	tracks := make([]core.Track, 0, len(queue.Items))
	for i := range queue.Items {
		if queue.Items[i].ID != "" {
			tracks = append(tracks, convertFullTrack(&queue.Items[i]))
		}
	}

	return tracks, nil
}
