package core

import (
	"time"
)

const (
	// DefaultServerPort is the HTTP API port when none is configured
	DefaultServerPort = 8080
	// DefaultMarket is the market used for searches and artist top tracks
	DefaultMarket = "FR"
	// DefaultRequestsPerSecond paces calls to the Spotify Web API
	DefaultRequestsPerSecond = 10
	// DefaultComposeRatePerMinute limits POST /compose calls per client on the HTTP API
	DefaultComposeRatePerMinute = 6
	// DefaultWatchDebounce delays recomposition after a composer file change
	DefaultWatchDebounce = 500 * time.Millisecond
)

type Config struct {
	Spotify SpotifyConfig
	Server  ServerConfig
	Log     LogConfig
	App     AppConfig
}

type SpotifyConfig struct {
	ClientID          string
	ClientSecret      string
	RedirectURL       string
	TokenPath         string
	Market            string
	RequestsPerSecond float64
}

type ServerConfig struct {
	Host                 string
	Port                 int
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	ComposeRatePerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	// Seed makes compositions reproducible; zero means seed from the clock.
	Seed          int64
	BackupDir     string
	CatalogPath   string
	WatchDebounce time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL:       "http://127.0.0.1:8080/callback",
			TokenPath:         "./spotify_token.json",
			Market:            DefaultMarket,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Server: ServerConfig{
			Host:                 "0.0.0.0",
			Port:                 DefaultServerPort,
			ReadTimeout:          10 * time.Second,
			WriteTimeout:         2 * time.Minute,
			ComposeRatePerMinute: DefaultComposeRatePerMinute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			BackupDir:     "./backups",
			CatalogPath:   "./chorus.db",
			WatchDebounce: DefaultWatchDebounce,
		},
	}
}
