// Package spotifytest provides an in-memory [core.SpotifyClient] for tests.
package spotifytest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chorus/internal/core"
)

// ErrUnknownPlaylist is returned for playlist ids the fake does not hold.
var ErrUnknownPlaylist = errors.New("spotifytest: unknown playlist")

// Fake is a scriptable, concurrency-safe transport. Exported maps may be
// filled directly before the fake is used.
type Fake struct {
	mu sync.Mutex

	Me core.User
	// Owned is returned by UserPlaylists.
	Owned []core.Playlist
	// Tracks holds playlist contents by playlist id.
	Tracks map[string][]core.Track
	// PlaylistSearch and ArtistSearch map exact queries to results.
	PlaylistSearch map[string][]core.Playlist
	ArtistSearch   map[string][]core.Artist
	Related        map[string][]core.Artist
	ArtistTop      map[string][]core.Track
	History        map[core.TimeRange][]core.Track
	Features       map[string]core.AudioFeatures
	Recommended    []core.Track
	QueueTracks    []core.Track

	// Fail makes the named method return the error.
	Fail map[string]error

	// Calls counts invocations per method name.
	Calls map[string]int
	// TopTracksLimits records the limit of every TopTracks call.
	TopTracksLimits []int
	// RecommendationCalls records every recommendation request.
	RecommendationCalls []RecommendationCall
	// Saved lists track ids saved to the library, in order.
	Saved []string

	nextID int
}

// RecommendationCall is one recorded Recommendations request.
type RecommendationCall struct {
	Seeds   core.Seeds
	Targets map[core.Feature]float64
	Limit   int
}

// NewFake returns an empty fake logged in as user "me".
func NewFake() *Fake {
	return &Fake{
		Me:             core.User{ID: "me", Name: "Me", URI: "spotify:user:me"},
		Tracks:         make(map[string][]core.Track),
		PlaylistSearch: make(map[string][]core.Playlist),
		ArtistSearch:   make(map[string][]core.Artist),
		Related:        make(map[string][]core.Artist),
		ArtistTop:      make(map[string][]core.Track),
		History:        make(map[core.TimeRange][]core.Track),
		Features:       make(map[string]core.AudioFeatures),
		Fail:           make(map[string]error),
		Calls:          make(map[string]int),
	}
}

// MakeTracks builds n distinct tracks with ids prefix-0 .. prefix-(n-1).
// Popularity and release year grow with the index.
func MakeTracks(prefix string, n int) []core.Track {
	tracks := make([]core.Track, n)
	for i := range tracks {
		id := fmt.Sprintf("%s-%d", prefix, i)
		tracks[i] = core.Track{
			ID:         id,
			URI:        "spotify:track:" + id,
			Name:       fmt.Sprintf("Song %d", i),
			DurationMs: 180000 + i*1000,
			Popularity: i % 101,
			Album: core.Album{
				ID:          prefix + "-album",
				Name:        prefix + " album",
				ReleaseDate: time.Date(1970+i, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			Artists: []core.Artist{{ID: prefix + "-artist", Name: prefix + " artist"}},
		}
	}
	return tracks
}

// AddOwned registers a playlist owned by the caller.
func (f *Fake) AddOwned(name string, tracks []core.Track) core.Playlist {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.newPlaylist(name, "", f.Me.URI)
	f.Owned = append(f.Owned, p)
	f.Tracks[p.ID] = append([]core.Track(nil), tracks...)
	return p
}

// AddSearchable registers a playlist returned by SearchPlaylists for query.
func (f *Fake) AddSearchable(query, name, ownerURI string, tracks []core.Track) core.Playlist {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.newPlaylist(name, "", ownerURI)
	f.PlaylistSearch[query] = append(f.PlaylistSearch[query], p)
	f.Tracks[p.ID] = append([]core.Track(nil), tracks...)
	return p
}

// TrackIDs returns the ids currently in the playlist.
func (f *Fake) TrackIDs(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.Tracks[playlistID]))
	for _, t := range f.Tracks[playlistID] {
		ids = append(ids, t.ID)
	}
	return ids
}

// CallCount returns how often method was called.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func (f *Fake) newPlaylist(name, description, ownerURI string) core.Playlist {
	f.nextID++
	id := fmt.Sprintf("pl%d", f.nextID)
	return core.Playlist{
		ID:          id,
		URI:         "spotify:playlist:" + id,
		Name:        name,
		Description: description,
		OwnerURI:    ownerURI,
	}
}

// enter records the call and returns the scripted failure, if any. The
// caller must hold f.mu.
func (f *Fake) enter(method string) error {
	f.Calls[method]++
	return f.Fail[method]
}

func (f *Fake) CurrentUser(_ context.Context) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CurrentUser"); err != nil {
		return nil, err
	}
	u := f.Me
	return &u, nil
}

func (f *Fake) UserPlaylists(_ context.Context) ([]core.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UserPlaylists"); err != nil {
		return nil, err
	}
	out := make([]core.Playlist, len(f.Owned))
	for i, p := range f.Owned {
		p.TrackCount = len(f.Tracks[p.ID])
		out[i] = p
	}
	return out, nil
}

func (f *Fake) SearchPlaylists(_ context.Context, query string) ([]core.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SearchPlaylists"); err != nil {
		return nil, err
	}
	return append([]core.Playlist(nil), f.PlaylistSearch[query]...), nil
}

func (f *Fake) SearchArtists(_ context.Context, query string) ([]core.Artist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SearchArtists"); err != nil {
		return nil, err
	}
	return append([]core.Artist(nil), f.ArtistSearch[query]...), nil
}

func (f *Fake) PlaylistTracks(_ context.Context, playlistID string) ([]core.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PlaylistTracks"); err != nil {
		return nil, err
	}
	tracks, ok := f.Tracks[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlaylist, playlistID)
	}
	return append([]core.Track(nil), tracks...), nil
}

func (f *Fake) TopTracks(_ context.Context, timeRange core.TimeRange, limit int) ([]core.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TopTracksLimits = append(f.TopTracksLimits, limit)
	if err := f.enter("TopTracks"); err != nil {
		return nil, err
	}
	tracks := f.History[timeRange]
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return append([]core.Track(nil), tracks...), nil
}

func (f *Fake) RelatedArtists(_ context.Context, artistID string) ([]core.Artist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RelatedArtists"); err != nil {
		return nil, err
	}
	return append([]core.Artist(nil), f.Related[artistID]...), nil
}

func (f *Fake) ArtistTopTracks(_ context.Context, artistID string) ([]core.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ArtistTopTracks"); err != nil {
		return nil, err
	}
	return append([]core.Track(nil), f.ArtistTop[artistID]...), nil
}

func (f *Fake) AudioFeatures(_ context.Context, trackIDs []string) (map[string]core.AudioFeatures, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("AudioFeatures"); err != nil {
		return nil, err
	}
	out := make(map[string]core.AudioFeatures, len(trackIDs))
	for _, id := range trackIDs {
		if af, ok := f.Features[id]; ok {
			out[id] = af
		}
	}
	return out, nil
}

func (f *Fake) Recommendations(_ context.Context, seeds core.Seeds, targets map[core.Feature]float64, limit int) ([]core.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RecommendationCalls = append(f.RecommendationCalls, RecommendationCall{Seeds: seeds, Targets: targets, Limit: limit})
	if err := f.enter("Recommendations"); err != nil {
		return nil, err
	}
	tracks := f.Recommended
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return append([]core.Track(nil), tracks...), nil
}

func (f *Fake) CreatePlaylist(_ context.Context, _, name, description string) (*core.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreatePlaylist"); err != nil {
		return nil, err
	}
	p := f.newPlaylist(name, description, f.Me.URI)
	f.Owned = append(f.Owned, p)
	f.Tracks[p.ID] = nil
	return &p, nil
}

func (f *Fake) AddTracks(_ context.Context, playlistID string, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("AddTracks"); err != nil {
		return err
	}
	if _, ok := f.Tracks[playlistID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlaylist, playlistID)
	}
	for _, id := range trackIDs {
		f.Tracks[playlistID] = append(f.Tracks[playlistID], core.Track{ID: id, URI: "spotify:track:" + id})
	}
	return nil
}

func (f *Fake) RemoveTracks(_ context.Context, playlistID string, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RemoveTracks"); err != nil {
		return err
	}
	remove := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		remove[id] = true
	}
	kept := f.Tracks[playlistID][:0]
	for _, t := range f.Tracks[playlistID] {
		if !remove[t.ID] {
			kept = append(kept, t)
		}
	}
	f.Tracks[playlistID] = kept
	return nil
}

func (f *Fake) SaveTracks(_ context.Context, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SaveTracks"); err != nil {
		return err
	}
	f.Saved = append(f.Saved, trackIDs...)
	return nil
}

func (f *Fake) Queue(_ context.Context) ([]core.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Queue"); err != nil {
		return nil, err
	}
	return append([]core.Track(nil), f.QueueTracks...), nil
}

var _ core.SpotifyClient = (*Fake)(nil)
