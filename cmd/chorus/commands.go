package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chorus/internal/compose"
	"chorus/internal/core"
	httpserver "chorus/internal/http"
	"chorus/internal/playlist"
	"chorus/internal/spotify"
	"chorus/internal/store"
	"chorus/internal/ui"
	"chorus/pkg/fuzzy"
)

type services struct {
	spotify   *spotify.Client
	engine    *compose.Engine
	playlists *playlist.Service
}

func initializeServices(ctx context.Context, opts ...compose.Option) (*services, error) {
	if err := validateSpotifyConfig(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if err := spotifyClient.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}

	//nolint:gosec // Music selection doesn't require crypto-secure randomness
	engineRand := rand.New(rand.NewSource(seedFor(0)))
	//nolint:gosec // Music selection doesn't require crypto-secure randomness
	playlistRand := rand.New(rand.NewSource(seedFor(1)))

	return &services{
		spotify:   spotifyClient,
		engine:    compose.NewEngine(spotifyClient, engineRand, logger.Named("compose"), opts...),
		playlists: playlist.NewService(spotifyClient, playlistRand, logger.Named("playlist")),
	}, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

type composeOptions struct {
	overwrite bool
	dryRun    bool
	like      bool
}

func newComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose <file>",
		Short: "Compose a playlist from a composer file and push it",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompose,
	}
	cmd.Flags().Bool("overwrite", false, "Replace the playlist when it already exists")
	cmd.Flags().Bool("dry-run", false, "Print the composition without writing anything")
	cmd.Flags().Bool("like", false, "Also save the composed tracks to the library")
	cmd.Flags().Bool("watch", false, "Recompose and push again whenever the file changes")
	return cmd
}

func runCompose(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	flags := cmd.Flags()
	var opts composeOptions
	var watch bool
	var err error
	if opts.overwrite, err = flags.GetBool("overwrite"); err != nil {
		return err
	}
	if opts.dryRun, err = flags.GetBool("dry-run"); err != nil {
		return err
	}
	if opts.like, err = flags.GetBool("like"); err != nil {
		return err
	}
	if watch, err = flags.GetBool("watch"); err != nil {
		return err
	}

	path := args[0]
	cfg, err := compose.LoadFile(path)
	if err != nil {
		return err
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := composeOnce(ctx, svcs, cfg, opts, out); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	// Later runs necessarily replace the playlist written by the first one.
	opts.overwrite = true
	return compose.Watch(ctx, path, config.App.WatchDebounce, logger.Named("watch"),
		func(ctx context.Context, cfg *compose.Config) error {
			return composeOnce(ctx, svcs, cfg, opts, out)
		})
}

func composeOnce(ctx context.Context, svcs *services, cfg *compose.Config, opts composeOptions, out io.Writer) error {
	tracks, err := svcs.engine.Compose(ctx, cfg)
	if err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Fprintf(out, "%s (%d tracks, dry run)\n", cfg.Name(), len(tracks))
		fmt.Fprintln(out, renderTracks(tracks))
		return nil
	}

	p, added, err := svcs.playlists.Materialize(ctx, cfg.Name(), cfg.Description(), opts.overwrite, tracks)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d tracks added (%s)\n", p.Name, added, p.URI)

	if opts.like {
		saved, err := svcs.playlists.Like(ctx, tracks)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d tracks saved to the library\n", saved)
	}

	return nil
}

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <file>",
		Short: "Browse a composition in the terminal before pushing it",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	cfg, err := compose.LoadFile(args[0])
	if err != nil {
		return err
	}

	// Logs would interfere with the TUI rendering
	logger = buildLogger(config.Log.Level, config.Log.Format, "chorus-preview.log")

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, cfg.Name(),
		func(ctx context.Context) ([]core.Track, error) {
			return svcs.engine.Compose(ctx, cfg)
		},
		func(ctx context.Context, tracks []core.Track) (*core.Playlist, int, error) {
			return svcs.playlists.Materialize(ctx, cfg.Name(), cfg.Description(), true, tracks)
		})

	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func newShuffleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shuffle <name>",
		Short: "Shuffle one of your playlists in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			svcs, err := initializeServices(ctx)
			if err != nil {
				return err
			}
			p, err := svcs.playlists.Shuffle(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s shuffled\n", p.Name)
			return nil
		},
	}
}

func newFromQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "from-queue <name>",
		Short: "Write your current playback queue to a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			description, err := cmd.Flags().GetString("description")
			if err != nil {
				return err
			}
			svcs, err := initializeServices(ctx)
			if err != nil {
				return err
			}
			p, added, err := svcs.playlists.FromQueue(ctx, args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d queued tracks added\n", p.Name, added)
			return nil
		},
	}
	cmd.Flags().String("description", "", "Playlist description")
	return cmd
}

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup <name>",
		Short: "Save a playlist and its tracks to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackup,
	}
	cmd.Flags().String("out", "", "Backup file path (default: a timestamped file in the backup directory)")
	return cmd
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	summary, err := svcs.playlists.Summarize(ctx, args[0])
	if err != nil {
		return err
	}
	if out == "" {
		out = backupPath(config.App.BackupDir, summary.Playlist.Name, time.Now())
	}
	if err := playlist.WriteFile(out, summary); err != nil {
		return err
	}

	catalog, err := store.OpenCatalog(config.App.CatalogPath)
	if err != nil {
		return err
	}
	defer catalog.Close()

	entry, err := catalog.Record(ctx, store.BackupEntry{
		PlaylistID:   summary.Playlist.ID,
		PlaylistName: summary.Playlist.Name,
		Path:         out,
		Tracks:       len(summary.Tracks),
		Version:      summary.Version,
	})
	if err != nil {
		return err
	}

	stats := summary.Stats()
	logger.Info("Playlist backed up",
		zap.String("id", entry.ID),
		zap.String("name", entry.PlaylistName),
		zap.String("path", out))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tracks by %d artists, %s, saved to %s\n",
		summary.Playlist.Name, stats.Tracks, stats.Artists, stats.TotalDuration.Round(time.Second), out)
	return nil
}

// backupPath builds a file name that is safe on every platform from the
// playlist name and the backup time.
func backupPath(dir, name string, at time.Time) string {
	slug := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return -1
	}, fuzzy.NewNormalizer().Simplify(name))
	if slug == "" {
		slug = "playlist"
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", slug, at.UTC().Format("20060102T150405Z")))
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore [path]",
		Short: "Recreate a playlist from a backup file",
		Long: `Recreate a playlist from a backup file. Without a path, the latest backup
recorded in the catalog for --name is used. An existing playlist is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRestore,
	}
	cmd.Flags().String("name", "", "Name of the restored playlist (default: the backed up name)")
	return cmd
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		if name == "" {
			return fmt.Errorf("a backup path or --name is required")
		}
		catalog, err := store.OpenCatalog(config.App.CatalogPath)
		if err != nil {
			return err
		}
		entry, err := catalog.Latest(ctx, name)
		catalog.Close()
		if err != nil {
			return err
		}
		path = entry.Path
	}

	summary, err := playlist.ReadFile(path)
	if err != nil {
		return err
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	p, added, err := svcs.playlists.Restore(ctx, summary, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s restored with %d tracks\n", p.Name, added)
	return nil
}

func newBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List the backups recorded in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := store.OpenCatalog(config.App.CatalogPath)
			if err != nil {
				return err
			}
			defer catalog.Close()

			entries, err := catalog.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBackups(entries))
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	logger.Info("Starting chorus",
		zap.String("version", core.Version),
		zap.String("market", config.Spotify.Market))

	metrics := httpserver.NewMetrics()
	svcs, err := initializeServices(ctx, compose.WithRecorder(metrics))
	if err != nil {
		return err
	}

	server := httpserver.NewServer(&config.Server, logger.Named("http"), metrics, httpserver.API{
		Engine:    svcs.engine,
		Playlists: svcs.playlists,
		Client:    svcs.spotify,
	})

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gCtx)
	})

	logger.Info("chorus started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("chorus stopped with error", zap.Error(err))
		return err
	}

	logger.Info("chorus stopped gracefully")
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderTracks(tracks []core.Track) string {
	t := newTable("#", "Artist", "Title", "Album", "Year", "Length")
	for i, track := range tracks {
		year := ""
		if !track.Album.ReleaseDate.IsZero() {
			year = strconv.Itoa(track.Album.ReleaseDate.Year())
		}
		length := (time.Duration(track.DurationMs) * time.Millisecond).Round(time.Second)
		t.Row(strconv.Itoa(i+1), track.MainArtist(), track.Name, track.Album.Name, year, length.String())
	}
	return t.String()
}

func renderBackups(entries []store.BackupEntry) string {
	t := newTable("Created", "Playlist", "Tracks", "Version", "Path")
	for _, e := range entries {
		t.Row(e.CreatedAt.Local().Format(time.DateTime), e.PlaylistName, strconv.Itoa(e.Tracks), e.Version, e.Path)
	}
	return t.String()
}
