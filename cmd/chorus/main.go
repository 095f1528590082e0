// Package main provides the chorus CLI application entry point.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"chorus/internal/core"
)

const (
	defaultServerHost = "0.0.0.0"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chorus",
	Short: "chorus - weighted Spotify playlist composer",
	Long: `chorus builds Spotify playlists from several sources (playlists, artists, radios,
genre mixes, listening history, audio-feature recommendations) mixed under weighted quotas.`,
	SilenceUsage: true,
	RunE:         runRoot,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, console)")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("spotify-redirect-url", "", "Spotify OAuth redirect URL")
	rootCmd.PersistentFlags().String("spotify-token-path", "./spotify_token.json", "Where the Spotify OAuth token is stored")
	rootCmd.PersistentFlags().String("spotify-market", core.DefaultMarket, "Market used for searches and top tracks")
	rootCmd.PersistentFlags().Float64("spotify-requests-per-second", core.DefaultRequestsPerSecond,
		"Spotify API request pacing (0 disables pacing)")
	rootCmd.PersistentFlags().String("server-host", defaultServerHost, "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", core.DefaultServerPort, "HTTP server port")
	rootCmd.PersistentFlags().Int("compose-rate-per-minute", core.DefaultComposeRatePerMinute,
		"Maximum POST /compose calls per client and minute (0 disables the limit)")
	rootCmd.PersistentFlags().Int64("seed", 0, "Random seed for reproducible compositions (0 seeds from the clock)")
	rootCmd.PersistentFlags().String("backup-dir", "./backups", "Directory for playlist backups")
	rootCmd.PersistentFlags().String("catalog-path", "./chorus.db", "SQLite catalog of written backups")
	rootCmd.PersistentFlags().Duration("watch-debounce", core.DefaultWatchDebounce,
		"Delay before recomposing after a composer file change")
	rootCmd.Flags().Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		newComposeCmd(),
		newPreviewCmd(),
		newShuffleCmd(),
		newFromQueueCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newBackupsCmd(),
		newServeCmd(),
	)
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		// Don't exit if .env file doesn't exist, just warn
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("CHORUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func runRoot(cmd *cobra.Command, _ []string) error {
	generate, err := cmd.Flags().GetBool("generate-env-example")
	if err != nil {
		return err
	}
	if generate {
		return generateEnvExample(cmd)
	}
	return cmd.Help()
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureSpotify(cfg)
	configureApp(cfg)

	return cfg
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.RedirectURL = viper.GetString("spotify-redirect-url")
	cfg.Spotify.TokenPath = viper.GetString("spotify-token-path")
	if cfg.Spotify.TokenPath == "" {
		cfg.Spotify.TokenPath = "./spotify_token.json"
	}
	cfg.Spotify.Market = strings.ToUpper(viper.GetString("spotify-market"))
	if cfg.Spotify.Market == "" {
		cfg.Spotify.Market = core.DefaultMarket
	}
	cfg.Spotify.RequestsPerSecond = viper.GetFloat64("spotify-requests-per-second")

	// Build default redirect URL based on server configuration if not explicitly set
	if cfg.Spotify.RedirectURL == "" {
		serverHost := cfg.Server.Host
		if serverHost == defaultServerHost {
			serverHost = "127.0.0.1" // Use localhost for OAuth callback
		}
		cfg.Spotify.RedirectURL = fmt.Sprintf("http://%s:%d/callback", serverHost, cfg.Server.Port)
	}
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.ComposeRatePerMinute = viper.GetInt("compose-rate-per-minute")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureApp(cfg *core.Config) {
	cfg.App.Seed = viper.GetInt64("seed")
	if dir := viper.GetString("backup-dir"); dir != "" {
		cfg.App.BackupDir = dir
	}
	if path := viper.GetString("catalog-path"); path != "" {
		cfg.App.CatalogPath = path
	}
	cfg.App.WatchDebounce = viper.GetDuration("watch-debounce")
	if cfg.App.WatchDebounce <= 0 {
		cfg.App.WatchDebounce = core.DefaultWatchDebounce
	}
}

func buildLogger(level, format string, outputs ...string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if len(outputs) > 0 {
		cfg.OutputPaths = outputs
		cfg.ErrorOutputPaths = outputs
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func validateSpotifyConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}

	return nil
}

// seedFor returns the configured seed shifted by offset, or a clock seed.
func seedFor(offset int64) int64 {
	if config.App.Seed != 0 {
		return config.App.Seed + offset
	}
	return time.Now().UnixNano() + offset
}
