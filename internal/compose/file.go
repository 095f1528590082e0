package compose

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"chorus/internal/core"
)

// Format is the encoding of a composer document.
type Format string

const (
	// FormatYAML also covers JSON documents, which are valid YAML.
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported composer file extension %q", ext)
	}
}

type document struct {
	Name         *string      `yaml:"name" toml:"name"`
	Description  *string      `yaml:"description" toml:"description"`
	NbSongs      int          `yaml:"nb_songs" toml:"nb_songs"`
	ReleaseRange []string     `yaml:"release_range" toml:"release_range"`
	Playlists    []itemDoc    `yaml:"playlists" toml:"playlists"`
	URIs         []itemDoc    `yaml:"uris" toml:"uris"`
	Artists      []itemDoc    `yaml:"artists" toml:"artists"`
	Radios       []itemDoc    `yaml:"radios" toml:"radios"`
	Mixes        []itemDoc    `yaml:"mixes" toml:"mixes"`
	Genres       []itemDoc    `yaml:"genres" toml:"genres"`
	History      []historyDoc `yaml:"history" toml:"history"`
	Features     []featureDoc `yaml:"features" toml:"features"`
}

type itemDoc struct {
	Name            string   `yaml:"name" toml:"name"`
	Weight          *float64 `yaml:"weight" toml:"weight"`
	SelectionMethod string   `yaml:"selection_method" toml:"selection_method"`
}

type historyDoc struct {
	TimeRange string   `yaml:"time_range" toml:"time_range"`
	Weight    *float64 `yaml:"weight" toml:"weight"`
}

type featureDoc struct {
	Name   string   `yaml:"name" toml:"name"`
	Value  *float64 `yaml:"value" toml:"value"`
	Weight *float64 `yaml:"weight" toml:"weight"`
}

func weightOrDefault(w *float64) float64 {
	if w == nil {
		return 1
	}
	return *w
}

// Decode reads a composer document into a draft. Syntax errors are returned
// directly; semantic problems are recorded on the draft and reported by
// Build. now closes an open-ended release range.
func Decode(data []byte, format Format, now time.Time) (*Draft, error) {
	var doc document

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse composer document: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse composer document: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("failed to parse composer document: unknown fields %s", strings.Join(keys, ", "))
		}
	default:
		return nil, fmt.Errorf("unsupported composer format %q", format)
	}

	return doc.draft(now), nil
}

func (doc *document) draft(now time.Time) *Draft {
	d := NewDraft()
	if doc.Name != nil {
		d.Name = *doc.Name
	}
	if doc.Description != nil {
		d.Description = *doc.Description
	}
	d.NbSongs = doc.NbSongs
	d.ReleaseRange = parseReleaseRange(d, doc.ReleaseRange, now)

	add := func(items []itemDoc, source func(name string) Source) {
		for _, it := range items {
			d.Add(source(strings.TrimSpace(it.Name)), weightOrDefault(it.Weight), SelectionMethod(it.SelectionMethod))
		}
	}
	add(doc.Playlists, func(n string) Source { return PlaylistSource{Name: n} })
	add(doc.URIs, func(n string) Source { return URISource{Ref: n} })
	add(doc.Artists, func(n string) Source { return ArtistSource{Artist: n} })
	add(doc.Radios, func(n string) Source { return RadioSource{Artist: n} })
	add(doc.Mixes, func(n string) Source { return MixSource{Genre: n} })
	add(doc.Genres, func(n string) Source { return MixSource{Genre: n} })

	for _, h := range doc.History {
		tr := core.TimeRange(strings.ToLower(strings.TrimSpace(h.TimeRange)))
		if tr == "" {
			tr = core.ShortTerm
		}
		d.Add(HistorySource{Range: tr}, weightOrDefault(h.Weight), SelectRandom)
	}

	for _, f := range doc.Features {
		name := core.Feature(strings.ToLower(strings.TrimSpace(f.Name)))
		if f.Value == nil {
			d.reject("features[%s]: value is required", name)
			continue
		}
		d.Add(FeatureSource{Feature: name, Value: *f.Value}, weightOrDefault(f.Weight), SelectRandom)
	}

	return d
}

func parseReleaseRange(d *Draft, bounds []string, now time.Time) *core.ReleaseRange {
	if len(bounds) == 0 {
		return nil
	}
	if len(bounds) > 2 {
		d.reject("release_range takes a [start, end] pair, got %d values", len(bounds))
		return nil
	}

	r := &core.ReleaseRange{Start: DefaultReleaseStart, End: now}
	if start := strings.TrimSpace(bounds[0]); start != "" {
		t, err := time.Parse(DateLayout, start)
		if err != nil {
			d.reject("release_range start %q is not a dd/mm/yyyy date", start)
			return nil
		}
		r.Start = t
	}
	if len(bounds) == 2 {
		if end := strings.TrimSpace(bounds[1]); end != "" {
			t, err := time.Parse(DateLayout, end)
			if err != nil {
				d.reject("release_range end %q is not a dd/mm/yyyy date", end)
				return nil
			}
			r.End = t
		}
	}
	return r
}

// Parse decodes and builds a composer document.
func Parse(data []byte, format Format) (*Config, error) {
	d, err := Decode(data, format, time.Now())
	if err != nil {
		return nil, err
	}
	return d.Build()
}

// LoadFile reads the composer document at path.
func LoadFile(path string) (*Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read composer file: %w", err)
	}

	return Parse(data, format)
}
