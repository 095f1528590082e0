package playlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"chorus/internal/core"
)

// Summary is a playlist with its full track list. It is the backup format.
type Summary struct {
	Playlist core.Playlist `json:"playlist"`
	Tracks   []core.Track  `json:"tracks"`
	Version  string        `json:"version"`
}

// Stats are aggregates computed from a summary's tracks.
type Stats struct {
	Tracks        int
	Artists       int
	TotalDuration time.Duration
	AvgPopularity float64
	// AvgFeatures averages each feature over the tracks that carry it.
	AvgFeatures map[core.Feature]float64
}

// NewSummary builds a summary stamped with the current tool version.
func NewSummary(p core.Playlist, tracks []core.Track) *Summary {
	return &Summary{Playlist: p, Tracks: tracks, Version: core.Version}
}

// Stats computes the summary aggregates.
func (s *Summary) Stats() Stats {
	stats := Stats{Tracks: len(s.Tracks), AvgFeatures: make(map[core.Feature]float64)}
	if len(s.Tracks) == 0 {
		return stats
	}

	artists := make(map[string]struct{})
	featureSums := make(map[core.Feature]float64)
	featureCounts := make(map[core.Feature]int)
	popularity := 0

	for _, t := range s.Tracks {
		if a := t.MainArtist(); a != "" {
			artists[a] = struct{}{}
		}
		stats.TotalDuration += time.Duration(t.DurationMs) * time.Millisecond
		popularity += t.Popularity

		for _, f := range core.Features {
			if v, ok := t.Features.Value(f); ok {
				featureSums[f] += v
				featureCounts[f]++
			}
		}
	}

	stats.Artists = len(artists)
	stats.AvgPopularity = float64(popularity) / float64(len(s.Tracks))
	for f, sum := range featureSums {
		stats.AvgFeatures[f] = sum / float64(featureCounts[f])
	}

	return stats
}

// Summarize reads the named playlist into a summary.
func (s *Service) Summarize(ctx context.Context, name string) (*Summary, error) {
	p, err := s.Find(ctx, name)
	if err != nil {
		return nil, err
	}

	tracks, err := s.client.PlaylistTracks(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist %q: %w", p.Name, err)
	}
	p.TrackCount = len(tracks)

	return NewSummary(*p, tracks), nil
}

// Dump writes the summary as JSON.
func Dump(w io.Writer, summary *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Load reads a summary written by Dump.
func Load(r io.Reader) (*Summary, error) {
	var summary Summary
	if err := json.NewDecoder(r).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	return &summary, nil
}

// WriteFile dumps the summary to path, creating parent directories.
func WriteFile(path string, summary *Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}

	if err := Dump(f, summary); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads the summary stored at path.
func ReadFile(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Restore recreates a backed up playlist under name, or under its original
// name when name is empty. It never overwrites an existing playlist. A backup
// from another tool version is restored with a warning.
func (s *Service) Restore(ctx context.Context, summary *Summary, name string) (*core.Playlist, int, error) {
	if summary.Version != core.Version {
		s.logger.Warn("Backup was written by another version",
			zap.String("backup_version", summary.Version),
			zap.String("version", core.Version))
	}
	if name == "" {
		name = summary.Playlist.Name
	}

	return s.Materialize(ctx, name, summary.Playlist.Description, false, summary.Tracks)
}
