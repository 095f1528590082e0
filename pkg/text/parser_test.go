package text

import (
	"errors"
	"testing"
)

func TestParser_ExtractPlaylistID(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "Share link with tracking parameter",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DX4sWSpwq3LiO?si=a1b2c3d4",
			expected: "37i9dQZF1DX4sWSpwq3LiO",
		},
		{
			name:     "Share link without query",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DX4sWSpwq3LiO",
			expected: "37i9dQZF1DX4sWSpwq3LiO",
		},
		{
			name:     "Localized share link",
			input:    "https://open.spotify.com/intl-fr/playlist/37i9dQZF1DX4sWSpwq3LiO?si=x",
			expected: "37i9dQZF1DX4sWSpwq3LiO",
		},
		{
			name:     "Link with trailing punctuation",
			input:    "https://open.spotify.com/playlist/abc123.",
			expected: "abc123",
		},
		{
			name:     "Playlist URI",
			input:    "spotify:playlist:37i9dQZF1DX4sWSpwq3LiO",
			expected: "37i9dQZF1DX4sWSpwq3LiO",
		},
		{
			name:     "Legacy user playlist URI",
			input:    "spotify:user:someone:playlist:abc123",
			expected: "abc123",
		},
		{
			name:     "Bare id with surrounding spaces",
			input:    "  abc123  ",
			expected: "abc123",
		},
		{
			name:    "Track link",
			input:   "https://open.spotify.com/track/4iV5W9uYEdYUVa79Axb7Rh",
			wantErr: true,
		},
		{
			name:    "Track URI",
			input:   "spotify:track:4iV5W9uYEdYUVa79Axb7Rh",
			wantErr: true,
		},
		{
			name:    "Other domain",
			input:   "https://example.com/playlist/abc123",
			wantErr: true,
		},
		{
			name:    "Free text",
			input:   "my favourite songs",
			wantErr: true,
		},
		{
			name:    "Empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := parser.ExtractPlaylistID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrNotAPlaylist) {
					t.Errorf("ExtractPlaylistID(%q) error = %v, want ErrNotAPlaylist", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractPlaylistID(%q) unexpected error: %v", tt.input, err)
			}
			if id != tt.expected {
				t.Errorf("ExtractPlaylistID(%q) = %q, want %q", tt.input, id, tt.expected)
			}
		})
	}
}
