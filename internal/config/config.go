// Package config loads the application configuration from a YAML file
// with environment variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the file and environment leave a knob unset.
const (
	DefaultTrackCount         = 25
	DefaultMaxTracksToModel   = 2000
	DefaultContextLimitTokens = 128000
)

// Config is the full application configuration.
type Config struct {
	Plex     PlexConfig     `yaml:"plex"`
	LLM      LLMConfig      `yaml:"llm"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// PlexConfig locates the media server and the music section to use.
type PlexConfig struct {
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	MusicLibrary string `yaml:"music_library"`
}

// LLMConfig selects the provider and the two-tier model split.
type LLMConfig struct {
	Provider        string `yaml:"provider"`
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	ModelAnalysis   string `yaml:"model_analysis"`
	ModelGeneration string `yaml:"model_generation"`
	SmartGeneration bool   `yaml:"smart_generation"`
}

// DefaultsConfig holds request defaults the API applies when a request
// leaves them unset.
type DefaultsConfig struct {
	TrackCount         int `yaml:"track_count"`
	MaxTracksToModel   int `yaml:"max_tracks_to_model"`
	ContextLimitTokens int `yaml:"context_limit_tokens"`
}

// Load reads the YAML file at path, applies environment overrides and
// fills unset defaults. A missing file is not an error; env-only setups
// are supported.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Debug().Str("path", path).Msg("No config file, using environment only")
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.Plex.URL, "PLEX_URL")
	overrideString(&c.Plex.Token, "PLEX_TOKEN")
	overrideString(&c.Plex.MusicLibrary, "PLEX_MUSIC_LIBRARY")
	overrideString(&c.LLM.Provider, "LLM_PROVIDER")
	overrideString(&c.LLM.APIKey, "LLM_API_KEY")
	overrideString(&c.LLM.BaseURL, "LLM_BASE_URL")
	overrideString(&c.LLM.ModelAnalysis, "LLM_MODEL_ANALYSIS")
	overrideString(&c.LLM.ModelGeneration, "LLM_MODEL_GENERATION")
	overrideBool(&c.LLM.SmartGeneration, "LLM_SMART_GENERATION")
	overrideInt(&c.Defaults.TrackCount, "DEFAULT_TRACK_COUNT")
	overrideInt(&c.Defaults.MaxTracksToModel, "MAX_TRACKS_TO_MODEL")
	overrideInt(&c.Defaults.ContextLimitTokens, "CONTEXT_LIMIT_TOKENS")
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.ModelAnalysis == "" {
		c.LLM.ModelAnalysis = "gpt-4o"
	}
	if c.LLM.ModelGeneration == "" {
		c.LLM.ModelGeneration = "gpt-4o-mini"
	}
	if c.Defaults.TrackCount <= 0 {
		c.Defaults.TrackCount = DefaultTrackCount
	}
	if c.Defaults.MaxTracksToModel <= 0 {
		c.Defaults.MaxTracksToModel = DefaultMaxTracksToModel
	}
	if c.Defaults.ContextLimitTokens <= 0 {
		c.Defaults.ContextLimitTokens = DefaultContextLimitTokens
	}
}

// Validate reports the settings without which the server cannot serve
// generation requests.
func (c *Config) Validate() error {
	if c.Plex.URL == "" {
		return fmt.Errorf("plex.url is required")
	}
	if c.Plex.Token == "" {
		return fmt.Errorf("plex.token is required")
	}
	if c.Plex.MusicLibrary == "" {
		return fmt.Errorf("plex.music_library is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	return nil
}

// Redacted returns a copy safe to expose over the API, with secrets
// blanked.
func (c Config) Redacted() Config {
	out := c
	if out.Plex.Token != "" {
		out.Plex.Token = "***"
	}
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "***"
	}
	return out
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-integer environment override")
		return
	}
	*dst = n
}

func overrideBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-boolean environment override")
		return
	}
	*dst = b
}
