package compose

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chorus/internal/core"
)

const (
	// MaxHistoryTracks is the most top tracks the platform returns per request.
	MaxHistoryTracks = 50
	// MaxRelatedArtists bounds the artists pooled into a radio besides the artist itself.
	MaxRelatedArtists = 10
	// MaxTopTracksPerArtist bounds the tracks each radio artist contributes.
	MaxTopTracksPerArtist = 10
	// MaxRecommendations is the most tracks one recommendation request returns.
	MaxRecommendations = 100

	radioConcurrency = 4
	thisIsPrefix     = "This Is "
	mixSuffix        = " mix"
)

// run carries what one composition shares between its resolvers.
type run struct {
	releaseRange  *core.ReleaseRange
	resolved      []core.Track
	userPlaylists []core.Playlist
	loadedUser    bool
}

// resolve turns one item into at most item quota tracks. Missing sources and
// failed best-effort fetches produce no tracks and no error.
func (e *Engine) resolve(ctx context.Context, r *run, item Item, quota int) ([]core.Track, error) {
	var pool []core.Track

	switch s := item.Source.(type) {
	case PlaylistSource:
		pool = e.fromPlaylistName(ctx, r, s)
	case URISource:
		pool = e.fromPlaylistRef(ctx, s)
	case ArtistSource:
		pool = e.fromArtist(ctx, s)
	case RadioSource:
		pool = e.fromRadio(ctx, s)
	case MixSource:
		pool = e.fromMix(ctx, s)
	case HistorySource:
		return e.fromHistory(ctx, s, quota), nil
	case FeatureSource:
		return e.fromFeature(ctx, r, s, quota, item.Method)
	default:
		return nil, fmt.Errorf("unsupported source %T", item.Source)
	}

	pool = FilterReleased(pool, r.releaseRange)
	return Select(e.rng, pool, quota, item.Method), nil
}

func (e *Engine) fromPlaylistName(ctx context.Context, r *run, s PlaylistSource) []core.Track {
	if !r.loadedUser {
		playlists, err := e.client.UserPlaylists(ctx)
		if err != nil {
			e.logger.Warn("Failed to list user playlists", zap.Error(err))
		}
		r.userPlaylists = playlists
		r.loadedUser = true
	}

	for _, p := range r.userPlaylists {
		if p.ID != "" && e.normalizer.SameName(p.Name, s.Name) {
			return e.playlistTracks(ctx, p.ID, s.Name)
		}
	}

	e.logger.Warn("Playlist not found among user playlists", zap.String("playlist", s.Name))
	return nil
}

func (e *Engine) fromPlaylistRef(ctx context.Context, s URISource) []core.Track {
	id, err := e.parser.ExtractPlaylistID(s.Ref)
	if err != nil {
		e.logger.Warn("Ignoring invalid playlist reference", zap.String("ref", s.Ref), zap.Error(err))
		return nil
	}
	return e.playlistTracks(ctx, id, s.Ref)
}

func (e *Engine) fromArtist(ctx context.Context, s ArtistSource) []core.Track {
	title := thisIsPrefix + s.Artist
	p := e.findCurated(ctx, title, func(p core.Playlist) bool {
		return e.normalizer.Match(p.Name, title)
	})
	if p == nil {
		e.logger.Warn("No curated artist playlist found", zap.String("artist", s.Artist))
		return nil
	}
	return e.playlistTracks(ctx, p.ID, s.Artist)
}

func (e *Engine) fromMix(ctx context.Context, s MixSource) []core.Track {
	p := e.findCurated(ctx, s.Genre+mixSuffix, func(core.Playlist) bool { return true })
	if p == nil {
		e.logger.Warn("No curated mix found", zap.String("genre", s.Genre))
		return nil
	}
	return e.playlistTracks(ctx, p.ID, s.Genre)
}

// findCurated returns the first search result owned by the curator account
// that also satisfies accept.
func (e *Engine) findCurated(ctx context.Context, query string, accept func(core.Playlist) bool) *core.Playlist {
	results, err := e.client.SearchPlaylists(ctx, query)
	if err != nil {
		e.logger.Warn("Playlist search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	for i := range results {
		p := results[i]
		if p.ID == "" || p.OwnerURI != core.CuratorURI {
			continue
		}
		if accept(p) {
			return &p
		}
	}
	return nil
}

func (e *Engine) playlistTracks(ctx context.Context, id, label string) []core.Track {
	tracks, err := e.client.PlaylistTracks(ctx, id)
	if err != nil {
		e.logger.Warn("Failed to fetch playlist tracks",
			zap.String("source", label), zap.String("playlist_id", id), zap.Error(err))
		return nil
	}
	return tracks
}

func (e *Engine) fromRadio(ctx context.Context, s RadioSource) []core.Track {
	results, err := e.client.SearchArtists(ctx, s.Artist)
	if err != nil {
		e.logger.Warn("Artist search failed", zap.String("artist", s.Artist), zap.Error(err))
		return nil
	}

	var artist *core.Artist
	for i := range results {
		if results[i].ID != "" && e.normalizer.Match(results[i].Name, s.Artist) {
			artist = &results[i]
			break
		}
	}
	if artist == nil {
		e.logger.Warn("Artist not found", zap.String("artist", s.Artist))
		return nil
	}

	related, err := e.client.RelatedArtists(ctx, artist.ID)
	if err != nil {
		e.logger.Warn("Failed to fetch related artists", zap.String("artist", artist.Name), zap.Error(err))
	}
	if len(related) > MaxRelatedArtists {
		related = related[:MaxRelatedArtists]
	}
	artists := append([]core.Artist{*artist}, related...)

	perArtist := make([][]core.Track, len(artists))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(radioConcurrency)
	for i, a := range artists {
		g.Go(func() error {
			tracks, err := e.client.ArtistTopTracks(gctx, a.ID)
			if err != nil {
				e.logger.Warn("Failed to fetch artist top tracks", zap.String("artist", a.Name), zap.Error(err))
				return nil
			}
			perArtist[i] = tracks
			return nil
		})
	}
	_ = g.Wait()

	var pool []core.Track
	for _, tracks := range perArtist {
		pool = append(pool, Select(e.rng, tracks, MaxTopTracksPerArtist, SelectRandom)...)
	}
	return pool
}

func (e *Engine) fromHistory(ctx context.Context, s HistorySource, quota int) []core.Track {
	limit := quota
	if limit > MaxHistoryTracks {
		e.logger.Warn("History quota exceeds the platform limit, reducing it",
			zap.String("time_range", string(s.Range)),
			zap.Int("requested", quota),
			zap.Int("limit", MaxHistoryTracks))
		limit = MaxHistoryTracks
	}

	tracks, err := e.client.TopTracks(ctx, s.Range, limit)
	if err != nil {
		e.logger.Warn("Failed to fetch top tracks", zap.String("time_range", string(s.Range)), zap.Error(err))
		return nil
	}
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks
}

func (e *Engine) fromFeature(ctx context.Context, r *run, s FeatureSource, quota int, method SelectionMethod) ([]core.Track, error) {
	candidates := r.resolved
	if len(candidates) == 0 {
		top, err := e.client.TopTracks(ctx, core.ShortTerm, MaxHistoryTracks)
		if err != nil {
			e.logger.Warn("Failed to fetch top tracks for seeding", zap.Error(err))
		}
		candidates = top
	}

	// An empty pool after enrichment fails the run with ErrNoCandidates.
	candidates = e.enrich(ctx, candidates, s.Feature)
	seeds, err := FindSeeds(candidates, s.Feature, s.Value, MaxSeeds)
	if err != nil {
		return nil, err
	}

	limit := quota
	if limit > MaxRecommendations {
		e.logger.Warn("Feature quota exceeds the recommendation limit, reducing it",
			zap.String("feature", string(s.Feature)),
			zap.Int("requested", quota),
			zap.Int("limit", MaxRecommendations))
		limit = MaxRecommendations
	}

	ids := make([]string, len(seeds))
	for i, t := range seeds {
		ids[i] = t.ID
	}
	recommended, err := e.client.Recommendations(ctx,
		core.Seeds{TrackIDs: ids},
		map[core.Feature]float64{s.Feature: s.Value},
		limit)
	if err != nil {
		e.logger.Warn("Failed to fetch recommendations", zap.String("feature", string(s.Feature)), zap.Error(err))
		return nil, nil
	}

	return Select(e.rng, recommended, quota, method), nil
}

// enrich attaches audio features to distinct candidates and keeps the ones
// carrying a value for feature.
func (e *Engine) enrich(ctx context.Context, tracks []core.Track, feature core.Feature) []core.Track {
	seen := make(map[string]bool, len(tracks))
	unique := make([]core.Track, 0, len(tracks))
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		unique = append(unique, t)
		ids = append(ids, t.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	features, err := e.client.AudioFeatures(ctx, ids)
	if err != nil {
		e.logger.Warn("Failed to fetch audio features", zap.Int("tracks", len(ids)), zap.Error(err))
		return nil
	}

	enriched := make([]core.Track, 0, len(unique))
	for _, t := range unique {
		af, ok := features[t.ID]
		if !ok {
			continue
		}
		if _, ok := af.Value(feature); !ok {
			continue
		}
		enriched = append(enriched, t.WithFeatures(af))
	}
	return enriched
}
