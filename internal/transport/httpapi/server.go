// Package httpapi exposes the playlist generator over a JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/plexmix/plexmix-backend/internal/config"
	"github.com/plexmix/plexmix-backend/internal/domain/analyze"
	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
	"github.com/plexmix/plexmix-backend/internal/version"
)

// LibraryClient is the media server collaborator.
type LibraryClient interface {
	Ping(ctx context.Context) error
	MusicLibraries(ctx context.Context) ([]string, error)
	ListTracks(ctx context.Context, library string) ([]playlist.TrackRecord, error)
	SearchTracks(ctx context.Context, library, query string) ([]playlist.TrackRecord, error)
	CreatePlaylist(ctx context.Context, name string, trackIDs []string) (string, error)
	Art(ctx context.Context, trackID string) ([]byte, string, error)
}

// Generator runs the playlist pipeline.
type Generator interface {
	Generate(ctx context.Context, req playlist.GenerationRequest) (playlist.Playlist, error)
}

// Analyzer is the analysis-tier collaborator.
type Analyzer interface {
	AnalyzePrompt(ctx context.Context, prompt string, summary analyze.LibrarySummary) (analyze.PromptAnalysis, error)
	AnalyzeSeed(ctx context.Context, track playlist.TrackRecord) (analyze.SeedAnalysis, error)
}

// Deps bundles the collaborators the handlers call.
type Deps struct {
	Library   LibraryClient
	Generator Generator
	Analyzer  Analyzer
}

// RewireFunc rebuilds collaborators after a runtime config update.
type RewireFunc func(config.Config) (Deps, error)

// Server is the REST API server. Config and collaborators can be
// swapped at runtime through POST /api/config.
type Server struct {
	router *gin.Engine

	mu     sync.RWMutex
	cfg    config.Config
	deps   Deps
	rewire RewireFunc
}

// NewServer builds the router. rewire may be nil, in which case config
// updates change settings without rebuilding clients.
func NewServer(cfg config.Config, deps Deps, rewire RewireFunc) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		cfg:    cfg,
		deps:   deps,
		rewire: rewire,
	}

	s.router.Use(gin.Recovery(), corsMiddleware())

	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/version", s.handleVersion)
	api.GET("/config", s.handleGetConfig)
	api.POST("/config", s.handleUpdateConfig)
	api.GET("/libraries", s.handleLibraries)
	api.GET("/library/stats", s.handleLibraryStats)
	api.GET("/tracks/search", s.handleSearchTracks)
	api.POST("/analyze", s.handleAnalyzePrompt)
	api.POST("/analyze/track", s.handleAnalyzeTrack)
	api.POST("/generate", s.handleGenerate)
	api.POST("/playlists", s.handleCreatePlaylist)
	api.GET("/art/:id", s.handleArt)

	return s
}

// ServeHTTP makes the server mountable on a standard http.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ServeStatic mounts a frontend build directory at the root path.
func (s *Server) ServeStatic(dir string) {
	s.router.NoRoute(gin.WrapH(http.FileServer(http.Dir(dir))))
}

func (s *Server) snapshot() (config.Config, Deps) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.deps
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	cfg, deps := s.snapshot()

	plexConnected := false
	if deps.Library != nil {
		plexConnected = deps.Library.Ping(c.Request.Context()) == nil
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"plex_connected": plexConnected,
		"llm_configured": cfg.LLM.APIKey != "",
	})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.GetInfo())
}

func (s *Server) handleGetConfig(c *gin.Context) {
	cfg, _ := s.snapshot()
	c.JSON(http.StatusOK, configView(cfg))
}

// configUpdate is a partial config; only supplied fields change.
type configUpdate struct {
	Plex struct {
		URL          *string `json:"url"`
		Token        *string `json:"token"`
		MusicLibrary *string `json:"music_library"`
	} `json:"plex"`
	LLM struct {
		Provider        *string `json:"provider"`
		APIKey          *string `json:"api_key"`
		BaseURL         *string `json:"base_url"`
		ModelAnalysis   *string `json:"model_analysis"`
		ModelGeneration *string `json:"model_generation"`
		SmartGeneration *bool   `json:"smart_generation"`
	} `json:"llm"`
	Defaults struct {
		TrackCount       *int `json:"track_count"`
		MaxTracksToModel *int `json:"max_tracks_to_model"`
	} `json:"defaults"`
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	var update configUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "kind": "validation"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	applyUpdate(&cfg, update)

	if s.rewire != nil {
		deps, err := s.rewire(cfg)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
			return
		}
		s.deps = deps
	}
	s.cfg = cfg
	log.Info().Msg("Configuration updated")

	c.JSON(http.StatusOK, configView(cfg))
}

func applyUpdate(cfg *config.Config, update configUpdate) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&cfg.Plex.URL, update.Plex.URL)
	setString(&cfg.Plex.Token, update.Plex.Token)
	setString(&cfg.Plex.MusicLibrary, update.Plex.MusicLibrary)
	setString(&cfg.LLM.Provider, update.LLM.Provider)
	setString(&cfg.LLM.APIKey, update.LLM.APIKey)
	setString(&cfg.LLM.BaseURL, update.LLM.BaseURL)
	setString(&cfg.LLM.ModelAnalysis, update.LLM.ModelAnalysis)
	setString(&cfg.LLM.ModelGeneration, update.LLM.ModelGeneration)
	if update.LLM.SmartGeneration != nil {
		cfg.LLM.SmartGeneration = *update.LLM.SmartGeneration
	}
	if update.Defaults.TrackCount != nil && *update.Defaults.TrackCount > 0 {
		cfg.Defaults.TrackCount = *update.Defaults.TrackCount
	}
	if update.Defaults.MaxTracksToModel != nil && *update.Defaults.MaxTracksToModel > 0 {
		cfg.Defaults.MaxTracksToModel = *update.Defaults.MaxTracksToModel
	}
}

// configView shapes the redacted config for the API; secrets are
// reported as set or unset, never echoed.
func configView(cfg config.Config) gin.H {
	return gin.H{
		"plex": gin.H{
			"url":           cfg.Plex.URL,
			"token_set":     cfg.Plex.Token != "",
			"music_library": cfg.Plex.MusicLibrary,
		},
		"llm": gin.H{
			"provider":         cfg.LLM.Provider,
			"api_key_set":      cfg.LLM.APIKey != "",
			"base_url":         cfg.LLM.BaseURL,
			"model_analysis":   cfg.LLM.ModelAnalysis,
			"model_generation": cfg.LLM.ModelGeneration,
			"smart_generation": cfg.LLM.SmartGeneration,
		},
		"defaults": gin.H{
			"track_count":         cfg.Defaults.TrackCount,
			"max_tracks_to_model": cfg.Defaults.MaxTracksToModel,
		},
	}
}

func (s *Server) handleLibraries(c *gin.Context) {
	_, deps := s.snapshot()
	libraries, err := deps.Library.MusicLibraries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"libraries": libraries})
}

func (s *Server) handleLibraryStats(c *gin.Context) {
	cfg, deps := s.snapshot()
	tracks, err := deps.Library.ListTracks(c.Request.Context(), cfg.Plex.MusicLibrary)
	if err != nil {
		writeError(c, err)
		return
	}

	summary := analyze.BuildLibrarySummary(tracks)
	c.JSON(http.StatusOK, gin.H{
		"total_tracks": summary.TrackCount,
		"genres":       summary.Genres,
		"decades":      summary.Decades,
		"year_min":     summary.YearMin,
		"year_max":     summary.YearMax,
	})
}

func (s *Server) handleSearchTracks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter required", "kind": "validation"})
		return
	}

	cfg, deps := s.snapshot()
	tracks, err := deps.Library.SearchTracks(c.Request.Context(), cfg.Plex.MusicLibrary, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

func (s *Server) handleAnalyzePrompt(c *gin.Context) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required", "kind": "validation"})
		return
	}

	cfg, deps := s.snapshot()
	tracks, err := deps.Library.ListTracks(c.Request.Context(), cfg.Plex.MusicLibrary)
	if err != nil {
		writeError(c, err)
		return
	}

	analysis, err := deps.Analyzer.AnalyzePrompt(c.Request.Context(), body.Prompt, analyze.BuildLibrarySummary(tracks))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleAnalyzeTrack(c *gin.Context) {
	var track playlist.TrackRecord
	if err := c.ShouldBindJSON(&track); err != nil || track.Title == "" || track.Artist == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "track with title and artist is required", "kind": "validation"})
		return
	}

	_, deps := s.snapshot()
	analysis, err := deps.Analyzer.AnalyzeSeed(c.Request.Context(), track)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req playlist.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "kind": "validation"})
		return
	}
	if req.Prompt == "" && req.SeedTrackID == "" && req.Filter.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt, seed track or filters required", "kind": "validation"})
		return
	}

	_, deps := s.snapshot()
	result, err := deps.Generator.Generate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCreatePlaylist(c *gin.Context) {
	var body struct {
		Name     string   `json:"name"`
		TrackIDs []string `json:"track_ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" || len(body.TrackIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and track_ids are required", "kind": "validation"})
		return
	}

	_, deps := s.snapshot()
	id, err := deps.Library.CreatePlaylist(c.Request.Context(), body.Name, body.TrackIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "name": body.Name, "track_count": len(body.TrackIDs)})
}

func (s *Server) handleArt(c *gin.Context) {
	_, deps := s.snapshot()
	data, contentType, err := deps.Library.Art(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "art not found", "kind": "not_found"})
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// writeError maps pipeline error kinds onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var provErr *playlist.ProviderError

	switch {
	case errors.Is(err, playlist.ErrRepositoryUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "kind": "repository_unavailable"})
	case errors.Is(err, playlist.ErrSaveFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": "save_failed"})
	case errors.As(err, &provErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": "provider_error"})
	case errors.Is(err, playlist.ErrBudgetExhausted):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "kind": "budget_exhausted"})
	case errors.Is(err, playlist.ErrNoCandidates):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no tracks match the requested filters", "kind": "no_candidates"})
	default:
		log.Error().Err(err).Msg("Unhandled API error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "kind": "internal"})
	}
}
