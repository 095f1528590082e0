package core

import (
	"context"
	"fmt"
	"time"
)

// CuratorURI identifies the platform's official curator account. Curated
// "This Is" and genre mix playlists are owned by it.
const CuratorURI = "spotify:user:spotify"

type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	URI    string   `json:"uri"`
	Genres []string `json:"genres,omitempty"`
}

type Album struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URI         string    `json:"uri"`
	ReleaseDate time.Time `json:"release_date"`
}

// AudioFeatures holds the audio analysis of a track. Every field is optional
// because the upstream API may omit any of them.
type AudioFeatures struct {
	Acousticness     *float64 `json:"acousticness,omitempty"`
	Danceability     *float64 `json:"danceability,omitempty"`
	Energy           *float64 `json:"energy,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty"`
	Liveness         *float64 `json:"liveness,omitempty"`
	Loudness         *float64 `json:"loudness,omitempty"`
	Speechiness      *float64 `json:"speechiness,omitempty"`
	Valence          *float64 `json:"valence,omitempty"`
	Tempo            *float64 `json:"tempo,omitempty"`
	Mode             *int     `json:"mode,omitempty"`
	Key              *int     `json:"key,omitempty"`
}

// Feature names an audio feature that can be targeted by recommendations.
type Feature string

const (
	FeatureAcousticness     Feature = "acousticness"
	FeatureDanceability     Feature = "danceability"
	FeatureEnergy           Feature = "energy"
	FeatureInstrumentalness Feature = "instrumentalness"
	FeatureLiveness         Feature = "liveness"
	FeatureLoudness         Feature = "loudness"
	FeatureSpeechiness      Feature = "speechiness"
	FeatureValence          Feature = "valence"
	FeatureTempo            Feature = "tempo"
)

// Features lists every targetable feature, in a stable order.
var Features = []Feature{
	FeatureAcousticness,
	FeatureDanceability,
	FeatureEnergy,
	FeatureInstrumentalness,
	FeatureLiveness,
	FeatureLoudness,
	FeatureSpeechiness,
	FeatureValence,
	FeatureTempo,
}

// Bounds returns the inclusive range of valid values for the feature.
func (f Feature) Bounds() (lo, hi float64, ok bool) {
	switch f {
	case FeatureAcousticness, FeatureDanceability, FeatureEnergy, FeatureInstrumentalness,
		FeatureLiveness, FeatureSpeechiness, FeatureValence:
		return 0, 1, true
	case FeatureLoudness:
		return -60, 0, true
	case FeatureTempo:
		return 0, 250, true
	default:
		return 0, 0, false
	}
}

// Value returns the value of the named feature, or false when it is absent.
func (af *AudioFeatures) Value(f Feature) (float64, bool) {
	if af == nil {
		return 0, false
	}
	var v *float64
	switch f {
	case FeatureAcousticness:
		v = af.Acousticness
	case FeatureDanceability:
		v = af.Danceability
	case FeatureEnergy:
		v = af.Energy
	case FeatureInstrumentalness:
		v = af.Instrumentalness
	case FeatureLiveness:
		v = af.Liveness
	case FeatureLoudness:
		v = af.Loudness
	case FeatureSpeechiness:
		v = af.Speechiness
	case FeatureValence:
		v = af.Valence
	case FeatureTempo:
		v = af.Tempo
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Track is a fetched track. Tracks are treated as values; Features may be
// attached after the fact with WithFeatures.
type Track struct {
	ID         string         `json:"id"`
	URI        string         `json:"uri"`
	Name       string         `json:"name"`
	DurationMs int            `json:"duration_ms"`
	Popularity int            `json:"popularity"`
	Album      Album          `json:"album"`
	Artists    []Artist       `json:"artists"`
	Features   *AudioFeatures `json:"features,omitempty"`
	AddedAt    *time.Time     `json:"added_at,omitempty"`
}

// WithFeatures returns a copy of the track carrying the given features.
func (t Track) WithFeatures(af AudioFeatures) Track {
	t.Features = &af
	return t
}

// MainArtist returns the first credited artist name, or "" when there is none.
func (t Track) MainArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

func (t Track) String() string {
	if artist := t.MainArtist(); artist != "" {
		return fmt.Sprintf("%s - %s", artist, t.Name)
	}
	return t.Name
}

type Playlist struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerURI    string `json:"owner_uri,omitempty"`
	TrackCount  int    `json:"track_count,omitempty"`
}

type User struct {
	ID   string
	Name string
	URI  string
}

// TimeRange is a listening history bucket.
type TimeRange string

const (
	// ShortTerm covers roughly the last 4 weeks
	ShortTerm TimeRange = "short_term"
	// MediumTerm covers roughly the last 6 months
	MediumTerm TimeRange = "medium_term"
	// LongTerm covers all listening history
	LongTerm TimeRange = "long_term"
)

// Valid reports whether the time range is one the upstream API knows.
func (tr TimeRange) Valid() bool {
	switch tr {
	case ShortTerm, MediumTerm, LongTerm:
		return true
	}
	return false
}

// ReleaseRange is an inclusive window on album release dates.
type ReleaseRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range, bounds included.
func (r ReleaseRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Seeds anchors a recommendation request. The upstream API accepts at most
// five seeds in total.
type Seeds struct {
	TrackIDs  []string
	ArtistIDs []string
	Genres    []string
}

// Len returns the total number of seeds.
func (s Seeds) Len() int {
	return len(s.TrackIDs) + len(s.ArtistIDs) + len(s.Genres)
}

// SpotifyClient is the upstream transport contract. Implementations own
// authentication, pagination and batching of write calls.
type SpotifyClient interface {
	CurrentUser(ctx context.Context) (*User, error)
	UserPlaylists(ctx context.Context) ([]Playlist, error)
	SearchPlaylists(ctx context.Context, query string) ([]Playlist, error)
	SearchArtists(ctx context.Context, query string) ([]Artist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error)
	TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]Track, error)
	RelatedArtists(ctx context.Context, artistID string) ([]Artist, error)
	ArtistTopTracks(ctx context.Context, artistID string) ([]Track, error)
	// AudioFeatures returns features keyed by track ID. Tracks the API has no
	// analysis for are absent from the map.
	AudioFeatures(ctx context.Context, trackIDs []string) (map[string]AudioFeatures, error)
	Recommendations(ctx context.Context, seeds Seeds, targets map[Feature]float64, limit int) ([]Track, error)
	CreatePlaylist(ctx context.Context, userID, name, description string) (*Playlist, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error
	SaveTracks(ctx context.Context, trackIDs []string) error
	Queue(ctx context.Context) ([]Track, error)
}
