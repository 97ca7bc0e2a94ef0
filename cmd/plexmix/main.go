// Package main is the entry point for the PlexMix playlist generator backend.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/plexmix/plexmix-backend/internal/config"
	"github.com/plexmix/plexmix-backend/internal/domain/analyze"
	"github.com/plexmix/plexmix-backend/internal/domain/generate"
	"github.com/plexmix/plexmix-backend/internal/infra/llm"
	"github.com/plexmix/plexmix-backend/internal/infra/plex"
	"github.com/plexmix/plexmix-backend/internal/transport/httpapi"
	"github.com/plexmix/plexmix-backend/internal/version"
)

func main() {
	// Command line flags
	port := flag.String("port", "8090", "HTTP server port")
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	staticDir := flag.String("static", "", "Directory to serve static files from (optional)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  AI Playlist Generator for Plex")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", *port).
		Str("plex_url", cfg.Plex.URL).
		Str("music_library", cfg.Plex.MusicLibrary).
		Str("model_analysis", cfg.LLM.ModelAnalysis).
		Str("model_generation", cfg.LLM.ModelGeneration).
		Bool("plex_token_set", cfg.Plex.Token != "").
		Bool("llm_key_set", cfg.LLM.APIKey != "").
		Msg("Configuration")

	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("Configuration incomplete, finish setup via POST /api/config")
	}

	deps := buildDeps(cfg)

	// Verify the Plex connection up front; the server still starts so
	// setup can be completed over the API.
	if deps.Library != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := deps.Library.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Plex server not reachable")
		} else {
			log.Info().Msg("Plex connection verified")
		}
		cancel()
	}

	server := httpapi.NewServer(cfg, deps, func(updated config.Config) (httpapi.Deps, error) {
		if err := updated.Validate(); err != nil {
			return httpapi.Deps{}, err
		}
		return buildDeps(updated), nil
	})
	if *staticDir != "" {
		log.Info().Str("dir", *staticDir).Msg("Serving static files")
		server.ServeStatic(*staticDir)
	}

	httpServer := &http.Server{
		Addr:         ":" + *port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown did not finish cleanly")
	}
	log.Info().Msg("Server stopped")
}

// buildDeps wires the Plex and model clients into the pipeline. Called
// at startup and again whenever the configuration changes at runtime.
func buildDeps(cfg config.Config) httpapi.Deps {
	plexClient := plex.NewClient(cfg.Plex.URL, cfg.Plex.Token)

	llmOpts := []llm.Option{}
	if cfg.LLM.BaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(cfg.LLM.BaseURL))
	}
	llmClient := llm.NewClient(cfg.LLM.APIKey, llmOpts...)

	analyzer := analyze.NewService(llmClient, cfg.LLM.ModelAnalysis)
	generator := generate.NewService(plexClient, llmClient, analyzer, generate.Options{
		Library:            cfg.Plex.MusicLibrary,
		AnalysisModel:      cfg.LLM.ModelAnalysis,
		GenerationModel:    cfg.LLM.ModelGeneration,
		SmartGeneration:    cfg.LLM.SmartGeneration,
		ContextLimitTokens: cfg.Defaults.ContextLimitTokens,
		DefaultTrackCount:  cfg.Defaults.TrackCount,
		MaxTracksToModel:   cfg.Defaults.MaxTracksToModel,
	})

	return httpapi.Deps{
		Library:   plexClient,
		Generator: generator,
		Analyzer:  analyzer,
	}
}
