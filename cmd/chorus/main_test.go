package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"chorus/internal/core"
	"chorus/internal/store"
)

func TestFlagToEnvVar(t *testing.T) {
	tests := []struct {
		flag     string
		expected string
	}{
		{"log-level", "CHORUS_LOG_LEVEL"},
		{"spotify-client-id", "CHORUS_SPOTIFY_CLIENT_ID"},
		{"seed", "CHORUS_SEED"},
	}

	for _, tt := range tests {
		if got := flagToEnvVar(tt.flag); got != tt.expected {
			t.Errorf("flagToEnvVar(%q) = %q, expected %q", tt.flag, got, tt.expected)
		}
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	for _, line := range []string{
		"CHORUS_SPOTIFY_MARKET=" + core.DefaultMarket,
		"CHORUS_SERVER_PORT=8080",
		"CHORUS_LOG_LEVEL=info",
		"CHORUS_SPOTIFY_CLIENT_SECRET=\n",
	} {
		if !strings.Contains(content, line) {
			t.Errorf("Expected .env.example to contain %q", line)
		}
	}
}

func TestBuildConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	viper.Set("server-host", "0.0.0.0")
	viper.Set("server-port", 9000)
	viper.Set("spotify-market", "de")
	viper.Set("spotify-requests-per-second", 2.5)
	viper.Set("seed", 42)
	viper.Set("watch-debounce", time.Duration(0))

	cfg := buildConfig()

	if cfg.Spotify.Market != "DE" {
		t.Errorf("Market = %q, expected DE", cfg.Spotify.Market)
	}
	if cfg.Spotify.RedirectURL != "http://127.0.0.1:9000/callback" {
		t.Errorf("RedirectURL = %q, expected the local callback", cfg.Spotify.RedirectURL)
	}
	if cfg.Spotify.RequestsPerSecond != 2.5 {
		t.Errorf("RequestsPerSecond = %v, expected 2.5", cfg.Spotify.RequestsPerSecond)
	}
	if cfg.App.Seed != 42 {
		t.Errorf("Seed = %d, expected 42", cfg.App.Seed)
	}
	if cfg.App.WatchDebounce != core.DefaultWatchDebounce {
		t.Errorf("WatchDebounce = %v, expected the default", cfg.App.WatchDebounce)
	}
	if cfg.App.BackupDir != "./backups" {
		t.Errorf("BackupDir = %q, expected the default", cfg.App.BackupDir)
	}
}

func TestBuildLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		if logger := buildLogger("debug", format); logger == nil {
			t.Errorf("buildLogger(%q) returned nil", format)
		}
	}

	logger := buildLogger("warn", "json")
	if logger.Core().Enabled(-1) {
		t.Error("Debug should be disabled at warn level")
	}
}

func TestBackupPath(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expected string
	}{
		{"Road Trip", "roadtrip-20240309T140500Z.json"},
		{"🤖 Robot Mix", "robotmix-20240309T140500Z.json"},
		{"Rock & Roll", "rock_roll-20240309T140500Z.json"},
		{"../..", "playlist-20240309T140500Z.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backupPath("backups", tt.name, at)
			if got != filepath.Join("backups", tt.expected) {
				t.Errorf("backupPath(%q) = %q, expected %q", tt.name, got, tt.expected)
			}
		})
	}
}

func TestRenderBackups(t *testing.T) {
	rendered := renderBackups([]store.BackupEntry{{
		PlaylistName: "Road Trip",
		Tracks:       12,
		Version:      core.Version,
		Path:         "backups/road.json",
		CreatedAt:    time.Now(),
	}})

	for _, cell := range []string{"Playlist", "Road Trip", "12", "backups/road.json"} {
		if !strings.Contains(rendered, cell) {
			t.Errorf("Expected table to contain %q:\n%s", cell, rendered)
		}
	}
}
