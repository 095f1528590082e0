package compose

import (
	"fmt"
	"math"
	"strings"
	"time"

	"chorus/internal/core"
)

const (
	// DefaultName names composed playlists when the configuration does not.
	DefaultName = "🤖 Robot Mix"
	// DefaultDescription describes composed playlists when the configuration does not.
	DefaultDescription = "Randomly generated mix"
	// MaxFeatureItems bounds feature items; recommendations take at most five
	// seeds and targets.
	MaxFeatureItems = 5
)

// Kind is a category of track source.
type Kind string

const (
	KindPlaylists Kind = "playlists"
	KindURIs      Kind = "uris"
	KindArtists   Kind = "artists"
	KindRadios    Kind = "radios"
	KindMixes     Kind = "mixes"
	KindHistory   Kind = "history"
	KindFeatures  Kind = "features"
)

// Kinds lists source kinds in dispatch order. Features come last because
// their seeds are drawn from what the other kinds resolved.
var Kinds = []Kind{KindPlaylists, KindURIs, KindArtists, KindRadios, KindMixes, KindHistory, KindFeatures}

// Source describes where an item's candidate tracks come from. The set of
// implementations is closed; resolvers switch over it exhaustively.
type Source interface {
	Kind() Kind
	Label() string
	isSource()
}

// PlaylistSource is one of the caller's own playlists, looked up by name.
type PlaylistSource struct{ Name string }

// URISource is any playlist, referenced by id, URI or share link.
type URISource struct{ Ref string }

// ArtistSource is the curated "This Is" playlist of an artist.
type ArtistSource struct{ Artist string }

// RadioSource pools the top tracks of an artist and related artists.
type RadioSource struct{ Artist string }

// MixSource is the curated "{genre} mix" playlist.
type MixSource struct{ Genre string }

// HistorySource is the caller's top tracks over a time range.
type HistorySource struct{ Range core.TimeRange }

// FeatureSource asks for recommendations near a target audio feature value.
type FeatureSource struct {
	Feature core.Feature
	Value   float64
}

func (PlaylistSource) Kind() Kind { return KindPlaylists }
func (URISource) Kind() Kind      { return KindURIs }
func (ArtistSource) Kind() Kind   { return KindArtists }
func (RadioSource) Kind() Kind    { return KindRadios }
func (MixSource) Kind() Kind      { return KindMixes }
func (HistorySource) Kind() Kind  { return KindHistory }
func (FeatureSource) Kind() Kind  { return KindFeatures }

func (s PlaylistSource) Label() string { return s.Name }
func (s URISource) Label() string      { return s.Ref }
func (s ArtistSource) Label() string   { return s.Artist }
func (s RadioSource) Label() string    { return s.Artist }
func (s MixSource) Label() string      { return s.Genre }
func (s HistorySource) Label() string  { return string(s.Range) }
func (s FeatureSource) Label() string  { return fmt.Sprintf("%s=%g", s.Feature, s.Value) }

func (PlaylistSource) isSource() {}
func (URISource) isSource()      {}
func (ArtistSource) isSource()   {}
func (RadioSource) isSource()    {}
func (MixSource) isSource()      {}
func (HistorySource) isSource()  {}
func (FeatureSource) isSource()  {}

// Item is a weighted source. Quota is filled in by Build.
type Item struct {
	Source Source
	Weight float64
	Method SelectionMethod
	Quota  int
}

// ValidationError lists every problem found while building a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid composer configuration: " + strings.Join(e.Problems, "; ")
}

// Draft accumulates composer settings. Nothing is checked until Build.
type Draft struct {
	Name         string
	Description  string
	NbSongs      int
	ReleaseRange *core.ReleaseRange

	items    []Item
	problems []string
}

// NewDraft returns a draft carrying the default name and description.
func NewDraft() *Draft {
	return &Draft{
		Name:        DefaultName,
		Description: DefaultDescription,
	}
}

// Add appends a weighted source. An empty method means random selection.
func (d *Draft) Add(src Source, weight float64, method SelectionMethod) *Draft {
	d.items = append(d.items, Item{Source: src, Weight: weight, Method: method})
	return d
}

func (d *Draft) reject(format string, args ...any) {
	d.problems = append(d.problems, fmt.Sprintf(format, args...))
}

// Build validates the draft as a whole and returns the finalized
// configuration with every item's quota computed. All problems are reported
// together in a *ValidationError.
func (d *Draft) Build() (*Config, error) {
	problems := append([]string(nil), d.problems...)

	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "name must not be empty")
	}
	if d.NbSongs <= 0 {
		problems = append(problems, fmt.Sprintf("nb_songs must be positive, got %d", d.NbSongs))
	}
	if r := d.ReleaseRange; r != nil && r.End.Before(r.Start) {
		problems = append(problems, fmt.Sprintf("release_range ends (%s) before it starts (%s)",
			r.End.Format(DateLayout), r.Start.Format(DateLayout)))
	}

	items := make([]Item, 0, len(d.items))
	seenRanges := make(map[core.TimeRange]bool)
	features := 0

	for _, kind := range Kinds {
		for _, item := range d.items {
			if item.Source == nil || item.Source.Kind() != kind {
				continue
			}
			where := fmt.Sprintf("%s[%s]", kind, item.Source.Label())

			if item.Weight < 0 || math.IsNaN(item.Weight) || math.IsInf(item.Weight, 0) {
				problems = append(problems, fmt.Sprintf("%s: weight must be a finite number >= 0, got %v", where, item.Weight))
			}
			method, err := ParseSelectionMethod(string(item.Method))
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", where, err))
			}
			item.Method = method

			if p := validateSource(item.Source, seenRanges, &features); p != "" {
				problems = append(problems, fmt.Sprintf("%s: %s", where, p))
			}

			items = append(items, item)
		}
	}
	for _, item := range d.items {
		if item.Source == nil {
			problems = append(problems, "item without a source")
		}
	}
	if features > MaxFeatureItems {
		problems = append(problems, fmt.Sprintf("at most %d feature items are supported, got %d", MaxFeatureItems, features))
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	cfg := &Config{
		name:        d.Name,
		description: d.Description,
		nbSongs:     d.NbSongs,
		items:       items,
	}
	if d.ReleaseRange != nil {
		r := *d.ReleaseRange
		cfg.releaseRange = &r
	}

	alloc := cfg.Allocate()
	for i := range cfg.items {
		cfg.items[i].Quota = alloc.Quotas[i]
	}

	return cfg, nil
}

func validateSource(src Source, seenRanges map[core.TimeRange]bool, features *int) string {
	switch s := src.(type) {
	case PlaylistSource:
		if strings.TrimSpace(s.Name) == "" {
			return "playlist name must not be empty"
		}
	case URISource:
		if strings.TrimSpace(s.Ref) == "" {
			return "playlist reference must not be empty"
		}
	case ArtistSource:
		if strings.TrimSpace(s.Artist) == "" {
			return "artist name must not be empty"
		}
	case RadioSource:
		if strings.TrimSpace(s.Artist) == "" {
			return "artist name must not be empty"
		}
	case MixSource:
		if strings.TrimSpace(s.Genre) == "" {
			return "genre must not be empty"
		}
	case HistorySource:
		if !s.Range.Valid() {
			return fmt.Sprintf("unknown time_range %q", s.Range)
		}
		if seenRanges[s.Range] {
			return fmt.Sprintf("time_range %s appears more than once", s.Range)
		}
		seenRanges[s.Range] = true
	case FeatureSource:
		*features++
		lo, hi, ok := s.Feature.Bounds()
		if !ok {
			return fmt.Sprintf("unknown feature %q", s.Feature)
		}
		if math.IsNaN(s.Value) || s.Value < lo || s.Value > hi {
			return fmt.Sprintf("value %v outside [%v, %v]", s.Value, lo, hi)
		}
		if s.Feature == core.FeatureTempo && s.Value == 0 {
			return "tempo must be positive"
		}
	default:
		return fmt.Sprintf("unsupported source %T", src)
	}
	return ""
}

// Config is a validated composer configuration. It is never modified after
// Build returns it.
type Config struct {
	name         string
	description  string
	nbSongs      int
	releaseRange *core.ReleaseRange
	items        []Item
}

func (c *Config) Name() string        { return c.name }
func (c *Config) Description() string { return c.description }
func (c *Config) NbSongs() int        { return c.nbSongs }

// ReleaseRange returns a copy of the release filter, or nil when there is none.
func (c *Config) ReleaseRange() *core.ReleaseRange {
	if c.releaseRange == nil {
		return nil
	}
	r := *c.releaseRange
	return &r
}

// Items returns a copy of the items in dispatch order.
func (c *Config) Items() []Item {
	items := make([]Item, len(c.items))
	copy(items, c.items)
	return items
}

// ItemsOf returns the items of one kind.
func (c *Config) ItemsOf(kind Kind) []Item {
	var items []Item
	for _, item := range c.items {
		if item.Source.Kind() == kind {
			items = append(items, item)
		}
	}
	return items
}

// Allocate recomputes the quota of every item from the weights. The result
// matches the quotas stored at build time.
func (c *Config) Allocate() Allocation {
	weights := make([]float64, len(c.items))
	for i, item := range c.items {
		weights[i] = item.Weight
	}
	return Allocate(c.nbSongs, weights)
}

// Total is the number of songs the quotas add up to. It may exceed NbSongs.
func (c *Config) Total() int {
	total := 0
	for _, item := range c.items {
		total += item.Quota
	}
	return total
}

// DateLayout is the dd/mm/yyyy format of release_range bounds.
const DateLayout = "02/01/2006"

// DefaultReleaseStart is used when a release range leaves its start open.
var DefaultReleaseStart = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
