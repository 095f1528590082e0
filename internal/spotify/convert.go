package spotify

import (
	"time"

	"github.com/zmb3/spotify/v2"

	"chorus/internal/core"
)

// ReleaseDateYearLength is the expected length of a release date year string
const ReleaseDateYearLength = 4

var releaseDateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// parseReleaseDate reads the day, month or year precision dates the API
// returns. Unparseable dates yield the zero time.
func parseReleaseDate(value string) time.Time {
	if len(value) < ReleaseDateYearLength {
		return time.Time{}
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func convertArtists(artists []spotify.SimpleArtist) []core.Artist {
	converted := make([]core.Artist, 0, len(artists))
	for i := range artists {
		converted = append(converted, core.Artist{
			ID:   string(artists[i].ID),
			Name: artists[i].Name,
			URI:  string(artists[i].URI),
		})
	}
	return converted
}

func convertFullArtist(artist *spotify.FullArtist) core.Artist {
	return core.Artist{
		ID:     string(artist.ID),
		Name:   artist.Name,
		URI:    string(artist.URI),
		Genres: artist.Genres,
	}
}

func convertAlbum(album *spotify.SimpleAlbum) core.Album {
	return core.Album{
		ID:          string(album.ID),
		Name:        album.Name,
		URI:         string(album.URI),
		ReleaseDate: parseReleaseDate(album.ReleaseDate),
	}
}

func convertFullTrack(track *spotify.FullTrack) core.Track {
	converted := convertSimpleTrack(&track.SimpleTrack)
	converted.Album = convertAlbum(&track.Album)
	converted.Popularity = int(track.Popularity)
	return converted
}

func convertSimpleTrack(track *spotify.SimpleTrack) core.Track {
	return core.Track{
		ID:         string(track.ID),
		URI:        string(track.URI),
		Name:       track.Name,
		DurationMs: int(track.Duration),
		Album:      convertAlbum(&track.Album),
		Artists:    convertArtists(track.Artists),
	}
}

func convertPlaylistItem(item *spotify.PlaylistItem) (core.Track, bool) {
	if item.Track.Track == nil || item.Track.Track.ID == "" {
		return core.Track{}, false
	}
	track := convertFullTrack(item.Track.Track)
	if addedAt, err := time.Parse(time.RFC3339, item.AddedAt); err == nil {
		track.AddedAt = &addedAt
	}
	return track, true
}

func convertPlaylist(playlist *spotify.SimplePlaylist) core.Playlist {
	return core.Playlist{
		ID:          string(playlist.ID),
		URI:         string(playlist.URI),
		Name:        playlist.Name,
		Description: playlist.Description,
		OwnerURI:    string(playlist.Owner.URI),
		TrackCount:  int(playlist.Tracks.Total), //nolint:gosec // Spotify playlist counts are reasonable for int conversion
	}
}

func float(v float32) *float64 {
	f := float64(v)
	return &f
}

func integer(v int) *int {
	return &v
}

func convertAudioFeatures(af *spotify.AudioFeatures) core.AudioFeatures {
	return core.AudioFeatures{
		Acousticness:     float(af.Acousticness),
		Danceability:     float(af.Danceability),
		Energy:           float(af.Energy),
		Instrumentalness: float(af.Instrumentalness),
		Liveness:         float(af.Liveness),
		Loudness:         float(af.Loudness),
		Speechiness:      float(af.Speechiness),
		Valence:          float(af.Valence),
		Tempo:            float(af.Tempo),
		Mode:             integer(int(af.Mode)),
		Key:              integer(int(af.Key)),
	}
}

// trackAttributes turns feature targets into recommendation attributes.
// Unknown features are ignored.
func trackAttributes(targets map[core.Feature]float64) *spotify.TrackAttributes {
	attrs := spotify.NewTrackAttributes()
	for feature, value := range targets {
		switch feature {
		case core.FeatureAcousticness:
			attrs = attrs.TargetAcousticness(value)
		case core.FeatureDanceability:
			attrs = attrs.TargetDanceability(value)
		case core.FeatureEnergy:
			attrs = attrs.TargetEnergy(value)
		case core.FeatureInstrumentalness:
			attrs = attrs.TargetInstrumentalness(value)
		case core.FeatureLiveness:
			attrs = attrs.TargetLiveness(value)
		case core.FeatureLoudness:
			attrs = attrs.TargetLoudness(value)
		case core.FeatureSpeechiness:
			attrs = attrs.TargetSpeechiness(value)
		case core.FeatureValence:
			attrs = attrs.TargetValence(value)
		case core.FeatureTempo:
			attrs = attrs.TargetTempo(value)
		}
	}
	return attrs
}

func toIDs(ids []string) []spotify.ID {
	converted := make([]spotify.ID, 0, len(ids))
	for _, id := range ids {
		converted = append(converted, spotify.ID(id))
	}
	return converted
}

// batches splits ids into consecutive chunks of at most size elements.
func batches(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
