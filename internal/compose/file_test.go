package compose

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chorus/internal/core"
)

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

const yamlDocument = `
name: Weekend
description: Mixed for the weekend
nb_songs: 30
release_range: ["01/01/2000", null]
playlists:
  - name: Road Trip
    weight: 2
    selection_method: Popularity
uris:
  - name: https://open.spotify.com/playlist/abc123?si=xyz
artists:
  - name: Daft Punk
radios:
  - name: Air
    weight: 0.5
genres:
  - name: bossa nova
history:
  - time_range: long_term
    weight: 1
features:
  - name: Energy
    value: 0.8
`

func TestDecode_YAML(t *testing.T) {
	d, err := Decode([]byte(yamlDocument), FormatYAML, fixedNow)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	cfg, err := d.Build()
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	if cfg.Name() != "Weekend" || cfg.Description() != "Mixed for the weekend" || cfg.NbSongs() != 30 {
		t.Errorf("Unexpected header %q %q %d", cfg.Name(), cfg.Description(), cfg.NbSongs())
	}

	r := cfg.ReleaseRange()
	if r == nil {
		t.Fatal("Expected a release range")
	}
	if !r.Start.Equal(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Release start = %v", r.Start)
	}
	if !r.End.Equal(fixedNow) {
		t.Errorf("Open release end = %v, want %v", r.End, fixedNow)
	}

	expected := []struct {
		source Source
		weight float64
		method SelectionMethod
	}{
		{PlaylistSource{Name: "Road Trip"}, 2, SelectPopularity},
		{URISource{Ref: "https://open.spotify.com/playlist/abc123?si=xyz"}, 1, SelectRandom},
		{ArtistSource{Artist: "Daft Punk"}, 1, SelectRandom},
		{RadioSource{Artist: "Air"}, 0.5, SelectRandom},
		{MixSource{Genre: "bossa nova"}, 1, SelectRandom},
		{HistorySource{Range: core.LongTerm}, 1, SelectRandom},
		{FeatureSource{Feature: core.FeatureEnergy, Value: 0.8}, 1, SelectRandom},
	}

	items := cfg.Items()
	if len(items) != len(expected) {
		t.Fatalf("Got %d items, want %d", len(items), len(expected))
	}
	for i, want := range expected {
		if items[i].Source != want.source {
			t.Errorf("Item %d source = %#v, want %#v", i, items[i].Source, want.source)
		}
		if items[i].Weight != want.weight {
			t.Errorf("Item %d weight = %v, want %v", i, items[i].Weight, want.weight)
		}
		if items[i].Method != want.method {
			t.Errorf("Item %d method = %q, want %q", i, items[i].Method, want.method)
		}
	}
}

func TestDecode_JSON(t *testing.T) {
	doc := `{"nb_songs": 10, "mixes": [{"name": "jazz", "weight": 3}], "history": [{}]}`

	d, err := Decode([]byte(doc), FormatYAML, fixedNow)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	cfg, err := d.Build()
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	if cfg.Name() != DefaultName {
		t.Errorf("Name() = %q, want default", cfg.Name())
	}
	history := cfg.ItemsOf(KindHistory)
	if len(history) != 1 || history[0].Source != (HistorySource{Range: core.ShortTerm}) {
		t.Errorf("History defaults = %+v, want short_term", history)
	}
	if mixes := cfg.ItemsOf(KindMixes); len(mixes) != 1 || mixes[0].Quota != 8 {
		t.Errorf("Mix items = %+v, want one item with quota 8", mixes)
	}
}

func TestDecode_TOML(t *testing.T) {
	doc := `
name = "Focus"
nb_songs = 12
release_range = ["", "31/12/1999"]

[[playlists]]
name = "Deep Work"
selection_method = "latest"

[[features]]
name = "instrumentalness"
value = 0.9
weight = 2
`
	d, err := Decode([]byte(doc), FormatTOML, fixedNow)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	cfg, err := d.Build()
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	r := cfg.ReleaseRange()
	if !r.Start.Equal(DefaultReleaseStart) {
		t.Errorf("Open release start = %v, want %v", r.Start, DefaultReleaseStart)
	}
	if !r.End.Equal(time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Release end = %v", r.End)
	}

	items := cfg.Items()
	if len(items) != 2 {
		t.Fatalf("Got %d items, want 2", len(items))
	}
	if items[0].Method != SelectLatest || items[0].Quota != 4 {
		t.Errorf("Playlist item = %+v", items[0])
	}
	if items[1].Quota != 8 {
		t.Errorf("Feature quota = %d, want 8", items[1].Quota)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		format  Format
		problem string
		syntax  bool
	}{
		{
			name:    "Unknown YAML field",
			doc:     "nb_songs: 3\nplaylist:\n  - name: x\n",
			format:  FormatYAML,
			problem: "playlist",
			syntax:  true,
		},
		{
			name:    "Unknown TOML field",
			doc:     "nb_songs = 3\ncolour = \"red\"\n",
			format:  FormatTOML,
			problem: "colour",
			syntax:  true,
		},
		{
			name:    "Broken YAML",
			doc:     "nb_songs: [3\n",
			format:  FormatYAML,
			problem: "failed to parse",
			syntax:  true,
		},
		{
			name:    "Bad date",
			doc:     "nb_songs: 3\nrelease_range: [\"2000-01-01\", null]\n",
			format:  FormatYAML,
			problem: "not a dd/mm/yyyy date",
		},
		{
			name:    "Too many bounds",
			doc:     "nb_songs: 3\nrelease_range: [\"01/01/2000\", \"01/01/2001\", \"01/01/2002\"]\n",
			format:  FormatYAML,
			problem: "[start, end] pair",
		},
		{
			name:    "Feature without value",
			doc:     "nb_songs: 3\nfeatures:\n  - name: energy\n",
			format:  FormatYAML,
			problem: "value is required",
		},
		{
			name:    "Empty document",
			doc:     "",
			format:  FormatYAML,
			problem: "nb_songs must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decode([]byte(tt.doc), tt.format, fixedNow)
			if tt.syntax {
				if err == nil || !strings.Contains(err.Error(), tt.problem) {
					t.Fatalf("Decode() error = %v, want it to mention %q", err, tt.problem)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}

			_, err = d.Build()
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

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		format  Format
		wantErr bool
	}{
		{"mix.yaml", FormatYAML, false},
		{"mix.YML", FormatYAML, false},
		{"dir/mix.json", FormatYAML, false},
		{"mix.toml", FormatTOML, false},
		{"mix.ini", "", true},
		{"mix", "", true},
	}

	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatFromPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
		if got != tt.format {
			t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.format)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mix.yaml")
	if err := os.WriteFile(path, []byte("nb_songs: 4\nplaylists:\n  - name: a\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() unexpected error: %v", err)
	}
	if cfg.Total() != 4 {
		t.Errorf("Total() = %d, want 4", cfg.Total())
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
