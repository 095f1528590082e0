package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"chorus/internal/core"
)

var _ list.Item = trackItem{}

// trackItem wraps [core.Track] to implement [list.Item].
type trackItem struct {
	track core.Track
}

func (i trackItem) FilterValue() string { return i.track.String() }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	names := make([]string, 0, len(i.track.Artists))
	for _, a := range i.track.Artists {
		names = append(names, a.Name)
	}
	desc := strings.Join(names, ", ")
	if i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	if !i.track.Album.ReleaseDate.IsZero() {
		desc = fmt.Sprintf("%s (%d)", desc, i.track.Album.ReleaseDate.Year())
	}
	return fmt.Sprintf("%s • %s", desc, formatDuration(time.Duration(i.track.DurationMs)*time.Millisecond))
}

// formatDuration renders d as m:ss, or h:mm:ss past the hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func totalDuration(tracks []core.Track) time.Duration {
	var total time.Duration
	for _, t := range tracks {
		total += time.Duration(t.DurationMs) * time.Millisecond
	}
	return total
}
