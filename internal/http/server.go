// Package http serves the composition API together with health and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chorus/internal/compose"
	"chorus/internal/core"
	"chorus/internal/flood"
	"chorus/internal/playlist"
)

// MaxDocumentBytes bounds the size of a composer document posted to /compose
const MaxDocumentBytes = 1 << 20

type Server struct {
	config *core.ServerConfig
	logger *zap.Logger
	server *http.Server
	gate   *flood.Floodgate
}

// API holds the services behind the HTTP routes.
type API struct {
	Engine    *compose.Engine
	Playlists *playlist.Service
	Client    core.SpotifyClient
}

type api struct {
	API
	logger  *zap.Logger
	metrics *Metrics
	gate    *flood.Floodgate
}

func NewServer(config *core.ServerConfig, logger *zap.Logger, metrics *Metrics, services API) *Server {
	handlers := &api{
		API:     services,
		logger:  logger,
		metrics: metrics,
		gate:    flood.New(config.ComposeRatePerMinute),
	}
	mux := setupRoutes(logger, handlers)

	return &Server{
		config: config,
		logger: logger,
		server: createHTTPServer(config, mux),
		gate:   handlers.gate,
	}
}

func createHTTPServer(config *core.ServerConfig, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

// clientKey identifies the caller for per-client rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func setupRoutes(logger *zap.Logger, handlers *api) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok","service":"chorus"}`)); err != nil {
			logger.Debug("Failed to write health response", zap.Error(err))
		}
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, readyResponse{
			Status:      "ready",
			Service:     "chorus",
			ComposeGate: handlers.gate.GetStats(),
		})
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(handlers.metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /compose", handlers.compose)
	mux.HandleFunc("GET /playlists", handlers.listPlaylists)
	mux.HandleFunc("GET /playlists/summary", handlers.summary)
	mux.HandleFunc("POST /playlists/shuffle", handlers.shuffle)

	mux.HandleFunc("GET /{$}", homeHandler(logger))

	return mux
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Chorus</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #1db954; }
        .endpoint a:hover { text-decoration: underline; }
        code { background: #f4f4f4; padding: 2px 4px; }
    </style>
</head>
<body>
    <h1 class="header">🎶 Chorus</h1>
    <p>Weighted Spotify playlist composer</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><code>POST /compose</code> - Compose and push a playlist from a composer document</div>
    <div class="endpoint">📃 <a href="/playlists">Playlists</a> - Playlists of the authenticated user</div>
    <div class="endpoint"><code>GET /playlists/summary?name=</code> - Tracks and statistics of a playlist</div>
    <div class="endpoint"><code>POST /playlists/shuffle?name=</code> - Shuffle a playlist in place</div>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

type readyResponse struct {
	Status      string      `json:"status"`
	Service     string      `json:"service"`
	ComposeGate flood.Stats `json:"compose_gate"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

type composeResponse struct {
	RunID    string         `json:"run_id"`
	Name     string         `json:"name"`
	DryRun   bool           `json:"dry_run"`
	Playlist *core.Playlist `json:"playlist,omitempty"`
	Added    int            `json:"added"`
	Tracks   []core.Track   `json:"tracks"`
}

type statsResponse struct {
	Tracks          int                      `json:"tracks"`
	Artists         int                      `json:"artists"`
	DurationSeconds float64                  `json:"duration_seconds"`
	AvgPopularity   float64                  `json:"avg_popularity"`
	AvgFeatures     map[core.Feature]float64 `json:"avg_features,omitempty"`
}

type summaryResponse struct {
	*playlist.Summary
	Stats statsResponse `json:"stats"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var validation *compose.ValidationError
	if errors.As(err, &validation) {
		resp.Error = "invalid composer document"
		resp.Problems = validation.Problems
	}
	writeJSON(w, status, resp)
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s parameter %q", name, raw)
	}
	return v, nil
}

func documentFormat(r *http.Request) (compose.Format, error) {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "yaml", "yml", "json":
		return compose.FormatYAML, nil
	case "toml":
		return compose.FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported format %q", r.URL.Query().Get("format"))
	}
}

// composeStatus maps an engine failure to an HTTP status.
func composeStatus(err error) int {
	switch {
	case errors.Is(err, compose.ErrNoCandidates),
		errors.Is(err, compose.ErrMissingFeatures),
		errors.Is(err, compose.ErrUnknownFeature):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (a *api) compose(w http.ResponseWriter, r *http.Request) {
	client := clientKey(r)
	if !a.gate.Allow(client) {
		a.metrics.RateLimited.Inc()
		retry := a.gate.RetryAfter(client)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(retry.Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "compose rate limit exceeded"})
		return
	}

	runID := uuid.NewString()
	logger := a.logger.With(zap.String("run", runID))

	overwrite, err := boolParam(r, "overwrite")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dryRun, err := boolParam(r, "dry_run")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	format, err := documentFormat(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("failed to read document: %w", err))
		return
	}

	cfg, err := compose.Parse(data, format)
	if err != nil {
		a.metrics.RecordComposeRun("invalid")
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tracks, err := a.Engine.Compose(r.Context(), cfg)
	if err != nil {
		a.metrics.RecordComposeRun("failed")
		logger.Warn("Composition failed", zap.Error(err))
		writeError(w, composeStatus(err), err)
		return
	}

	resp := composeResponse{RunID: runID, Name: cfg.Name(), DryRun: dryRun, Tracks: tracks}
	if !dryRun {
		p, added, err := a.Playlists.Materialize(r.Context(), cfg.Name(), cfg.Description(), overwrite, tracks)
		if err != nil {
			a.metrics.RecordComposeRun("failed")
			status := http.StatusBadGateway
			if errors.Is(err, core.ErrPlaylistExists) {
				status = http.StatusConflict
			}
			logger.Warn("Failed to write playlist", zap.String("name", cfg.Name()), zap.Error(err))
			writeError(w, status, err)
			return
		}
		resp.Playlist = p
		resp.Added = added
	}

	a.metrics.RecordComposeRun("ok")
	logger.Info("Composition served",
		zap.String("name", cfg.Name()),
		zap.Int("tracks", len(tracks)),
		zap.Bool("dryRun", dryRun))
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) listPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := a.Client.UserPlaylists(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if playlists == nil {
		playlists = []core.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

func requiredName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing name parameter"))
		return "", false
	}
	return name, true
}

func playlistStatus(err error) int {
	if errors.Is(err, core.ErrPlaylistNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func (a *api) summary(w http.ResponseWriter, r *http.Request) {
	name, ok := requiredName(w, r)
	if !ok {
		return
	}

	summary, err := a.Playlists.Summarize(r.Context(), name)
	if err != nil {
		writeError(w, playlistStatus(err), err)
		return
	}

	stats := summary.Stats()
	writeJSON(w, http.StatusOK, summaryResponse{
		Summary: summary,
		Stats: statsResponse{
			Tracks:          stats.Tracks,
			Artists:         stats.Artists,
			DurationSeconds: stats.TotalDuration.Seconds(),
			AvgPopularity:   stats.AvgPopularity,
			AvgFeatures:     stats.AvgFeatures,
		},
	})
}

func (a *api) shuffle(w http.ResponseWriter, r *http.Request) {
	name, ok := requiredName(w, r)
	if !ok {
		return
	}

	p, err := a.Playlists.Shuffle(r.Context(), name)
	if err != nil {
		writeError(w, playlistStatus(err), err)
		return
	}

	a.logger.Info("Playlist shuffled", zap.String("name", name))
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")
		s.gate.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}
