package compose

import (
	"errors"
	"strings"
	"testing"
	"time"

	"chorus/internal/core"
)

func TestDraft_BuildDefaults(t *testing.T) {
	d := NewDraft()
	d.NbSongs = 20
	d.Add(PlaylistSource{Name: "p"}, 1, "")

	cfg, err := d.Build()
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	if cfg.Name() != DefaultName {
		t.Errorf("Name() = %q, want %q", cfg.Name(), DefaultName)
	}
	if cfg.Description() != DefaultDescription {
		t.Errorf("Description() = %q, want %q", cfg.Description(), DefaultDescription)
	}
	if cfg.ReleaseRange() != nil {
		t.Error("Expected no release range")
	}

	items := cfg.Items()
	if len(items) != 1 || items[0].Method != SelectRandom || items[0].Quota != 20 {
		t.Errorf("Unexpected items %+v", items)
	}
}

func TestDraft_BuildQuotasAndOrder(t *testing.T) {
	d := NewDraft()
	d.NbSongs = 20
	d.Add(FeatureSource{Feature: core.FeatureEnergy, Value: 0.9}, 1, "")
	d.Add(PlaylistSource{Name: "p"}, 1, SelectionMethod("POPULARITY"))
	d.Add(HistorySource{Range: core.LongTerm}, 0.2, "")

	cfg, err := d.Build()
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	items := cfg.Items()
	kinds := []Kind{KindPlaylists, KindHistory, KindFeatures}
	quotas := []int{10, 2, 10}
	for i, item := range items {
		if item.Source.Kind() != kinds[i] {
			t.Errorf("Item %d kind = %s, want %s", i, item.Source.Kind(), kinds[i])
		}
		if item.Quota != quotas[i] {
			t.Errorf("Item %d quota = %d, want %d", i, item.Quota, quotas[i])
		}
	}
	if items[0].Method != SelectPopularity {
		t.Errorf("Selection method = %q, want normalized %q", items[0].Method, SelectPopularity)
	}
	if cfg.Total() != 22 {
		t.Errorf("Total() = %d, want 22", cfg.Total())
	}

	alloc := cfg.Allocate()
	for i, item := range items {
		if alloc.Quotas[i] != item.Quota {
			t.Errorf("Re-allocation changed quota %d: %d vs %d", i, alloc.Quotas[i], item.Quota)
		}
	}
}

func TestDraft_BuildIsolation(t *testing.T) {
	r := &core.ReleaseRange{
		Start: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	d := NewDraft()
	d.NbSongs = 5
	d.ReleaseRange = r
	d.Add(MixSource{Genre: "jazz"}, 1, "")

	cfg, err := d.Build()
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	r.Start = time.Time{}
	cfg.Items()[0].Quota = 99
	cfg.ReleaseRange().End = time.Time{}

	if cfg.ReleaseRange().Start.Year() != 2000 || cfg.ReleaseRange().End.Year() != 2001 {
		t.Error("Config release range changed after Build")
	}
	if cfg.Items()[0].Quota != 5 {
		t.Error("Config items changed through Items()")
	}
}

func TestDraft_BuildValidation(t *testing.T) {
	tests := []struct {
		name    string
		draft   func() *Draft
		problem string
	}{
		{
			name: "Non-positive nb_songs",
			draft: func() *Draft {
				return NewDraft().Add(PlaylistSource{Name: "p"}, 1, "")
			},
			problem: "nb_songs must be positive",
		},
		{
			name: "Duplicate history range",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				d.Add(HistorySource{Range: core.ShortTerm}, 1, "")
				d.Add(HistorySource{Range: core.ShortTerm}, 2, "")
				return d
			},
			problem: "appears more than once",
		},
		{
			name: "Unknown time range",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				return d.Add(HistorySource{Range: "forever"}, 1, "")
			},
			problem: "unknown time_range",
		},
		{
			name: "Unknown feature",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				return d.Add(FeatureSource{Feature: "groove", Value: 0.5}, 1, "")
			},
			problem: "unknown feature",
		},
		{
			name: "Feature value out of range",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				return d.Add(FeatureSource{Feature: core.FeatureValence, Value: 1.5}, 1, "")
			},
			problem: "outside",
		},
		{
			name: "Zero tempo",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				return d.Add(FeatureSource{Feature: core.FeatureTempo, Value: 0}, 1, "")
			},
			problem: "tempo must be positive",
		},
		{
			name: "Too many features",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				for _, f := range core.Features[:MaxFeatureItems+1] {
					d.Add(FeatureSource{Feature: f, Value: 0}, 1, "")
				}
				return d
			},
			problem: "at most 5 feature items",
		},
		{
			name: "Negative weight",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				return d.Add(ArtistSource{Artist: "Muse"}, -1, "")
			},
			problem: "weight must be",
		},
		{
			name: "Unknown selection method",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				return d.Add(URISource{Ref: "abc"}, 1, "loudest")
			},
			problem: "unknown selection method",
		},
		{
			name: "Empty playlist name",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				return d.Add(PlaylistSource{}, 1, "")
			},
			problem: "playlist name must not be empty",
		},
		{
			name: "Inverted release range",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				d.ReleaseRange = &core.ReleaseRange{
					Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
					End:   time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
				}
				return d
			},
			problem: "release_range ends",
		},
		{
			name: "Empty name",
			draft: func() *Draft {
				d := NewDraft()
				d.NbSongs = 10
				d.Name = " "
				return d
			},
			problem: "name must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.draft().Build()
			if cfg != nil {
				t.Error("Build() returned a configuration for an invalid draft")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Build() error = %v, want *ValidationError", err)
			}
			if !strings.Contains(verr.Error(), tt.problem) {
				t.Errorf("Build() error = %q, want it to mention %q", verr.Error(), tt.problem)
			}
		})
	}
}

func TestDraft_BuildReportsAllProblems(t *testing.T) {
	d := NewDraft()
	d.Add(HistorySource{Range: core.MediumTerm}, 1, "")
	d.Add(HistorySource{Range: core.MediumTerm}, 1, "")
	d.Add(FeatureSource{Feature: "mood", Value: 1}, 1, "")

	_, err := d.Build()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Build() error = %v, want *ValidationError", err)
	}
	if len(verr.Problems) != 3 {
		t.Errorf("Got %d problems, want 3: %v", len(verr.Problems), verr.Problems)
	}
}

func TestConfig_EmptyIsValid(t *testing.T) {
	d := NewDraft()
	d.NbSongs = 10

	cfg, err := d.Build()
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if len(cfg.Items()) != 0 || cfg.Total() != 0 {
		t.Errorf("Empty configuration has %d items and total %d", len(cfg.Items()), cfg.Total())
	}
}

func TestSource_Labels(t *testing.T) {
	tests := []struct {
		source Source
		kind   Kind
		label  string
	}{
		{PlaylistSource{Name: "Road Trip"}, KindPlaylists, "Road Trip"},
		{URISource{Ref: "abc"}, KindURIs, "abc"},
		{ArtistSource{Artist: "Muse"}, KindArtists, "Muse"},
		{RadioSource{Artist: "Muse"}, KindRadios, "Muse"},
		{MixSource{Genre: "jazz"}, KindMixes, "jazz"},
		{HistorySource{Range: core.LongTerm}, KindHistory, "long_term"},
		{FeatureSource{Feature: core.FeatureEnergy, Value: 0.8}, KindFeatures, "energy=0.8"},
	}

	for _, tt := range tests {
		if tt.source.Kind() != tt.kind {
			t.Errorf("%T.Kind() = %s, want %s", tt.source, tt.source.Kind(), tt.kind)
		}
		if tt.source.Label() != tt.label {
			t.Errorf("%T.Label() = %q, want %q", tt.source, tt.source.Label(), tt.label)
		}
	}
}
