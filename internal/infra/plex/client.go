// Package plex implements the track repository and playlist save
// collaborators against the Plex Media Server HTTP API.
package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

const (
	// DefaultTimeout for HTTP requests; full library listings on large
	// servers can take a while.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is requests per second against the Plex server.
	DefaultRateLimit = 5

	// trackType is the Plex metadata type id for tracks.
	trackType = "10"
)

// Client talks to one Plex Media Server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets a custom request rate per second.
func WithRateLimit(rps int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
}

// NewClient creates a Plex API client for the given server and token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// mediaContainer is the envelope of every Plex JSON response; only the
// fields this client reads are declared.
type mediaContainer struct {
	MediaContainer struct {
		MachineIdentifier string      `json:"machineIdentifier"`
		Directory         []directory `json:"Directory"`
		Metadata          []metadata  `json:"Metadata"`
		Size              int         `json:"size"`
	} `json:"MediaContainer"`
}

type directory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type metadata struct {
	RatingKey        string  `json:"ratingKey"`
	Title            string  `json:"title"`
	GrandparentTitle string  `json:"grandparentTitle"`
	ParentTitle      string  `json:"parentTitle"`
	Year             int     `json:"year"`
	ParentYear       int     `json:"parentYear"`
	UserRating       float64 `json:"userRating"`
	Duration         int     `json:"duration"`
	Thumb            string  `json:"thumb"`
	Genre            []tag   `json:"Genre"`
}

type tag struct {
	Tag string `json:"tag"`
}

// get performs one rate-limited JSON GET against the server. Transport
// failures map to ErrRepositoryUnavailable.
func (c *Client) get(ctx context.Context, path string, query url.Values, out *mediaContainer) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", playlist.ErrRepositoryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: plex returned status %d for %s", playlist.ErrRepositoryUnavailable, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", playlist.ErrRepositoryUnavailable, err)
	}
	return nil
}

// Ping verifies the server is reachable and the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	var container mediaContainer
	return c.get(ctx, "/identity", nil, &container)
}

// MusicLibraries returns the titles of all music sections.
func (c *Client) MusicLibraries(ctx context.Context) ([]string, error) {
	var container mediaContainer
	if err := c.get(ctx, "/library/sections", nil, &container); err != nil {
		return nil, err
	}

	var titles []string
	for _, d := range container.MediaContainer.Directory {
		if d.Type == "artist" {
			titles = append(titles, d.Title)
		}
	}
	return titles, nil
}

// sectionKey resolves a library name to its section key.
func (c *Client) sectionKey(ctx context.Context, library string) (string, error) {
	var container mediaContainer
	if err := c.get(ctx, "/library/sections", nil, &container); err != nil {
		return "", err
	}

	for _, d := range container.MediaContainer.Directory {
		if d.Type == "artist" && strings.EqualFold(d.Title, library) {
			return d.Key, nil
		}
	}
	return "", fmt.Errorf("%w: music library %q not found", playlist.ErrRepositoryUnavailable, library)
}

// ListTracks fetches the full track snapshot of one music library.
func (c *Client) ListTracks(ctx context.Context, library string) ([]playlist.TrackRecord, error) {
	key, err := c.sectionKey(ctx, library)
	if err != nil {
		return nil, err
	}

	query := url.Values{"type": {trackType}}
	var container mediaContainer
	if err := c.get(ctx, "/library/sections/"+key+"/all", query, &container); err != nil {
		return nil, err
	}

	tracks := make([]playlist.TrackRecord, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		tracks = append(tracks, toTrackRecord(m))
	}
	log.Debug().Int("tracks", len(tracks)).Str("library", library).Msg("Listed library tracks")
	return tracks, nil
}

// SearchTracks finds tracks by title or artist within one library.
func (c *Client) SearchTracks(ctx context.Context, library, q string) ([]playlist.TrackRecord, error) {
	key, err := c.sectionKey(ctx, library)
	if err != nil {
		return nil, err
	}

	query := url.Values{"type": {trackType}, "query": {q}}
	var container mediaContainer
	if err := c.get(ctx, "/library/sections/"+key+"/search", query, &container); err != nil {
		return nil, err
	}

	tracks := make([]playlist.TrackRecord, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		tracks = append(tracks, toTrackRecord(m))
	}
	return tracks, nil
}

// CreatePlaylist saves an ordered set of track ids as a new playlist
// and returns the playlist's rating key.
func (c *Client) CreatePlaylist(ctx context.Context, name string, trackIDs []string) (string, error) {
	if len(trackIDs) == 0 {
		return "", fmt.Errorf("%w: no tracks to save", playlist.ErrSaveFailed)
	}

	machineID, err := c.machineIdentifier(ctx)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	uri := fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s",
		machineID, strings.Join(trackIDs, ","))
	query := url.Values{
		"type":  {"audio"},
		"title": {name},
		"smart": {"0"},
		"uri":   {uri},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/playlists?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", playlist.ErrSaveFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: plex returned status %d", playlist.ErrSaveFailed, resp.StatusCode)
	}

	var container mediaContainer
	if err := json.NewDecoder(resp.Body).Decode(&container); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", playlist.ErrSaveFailed, err)
	}
	if len(container.MediaContainer.Metadata) == 0 {
		return "", fmt.Errorf("%w: server accepted no tracks, library may have changed", playlist.ErrSaveFailed)
	}

	handle := container.MediaContainer.Metadata[0].RatingKey
	log.Info().Str("playlist", name).Str("id", handle).Int("tracks", len(trackIDs)).Msg("Created Plex playlist")
	return handle, nil
}

// Art fetches the album art for a track, returning the image bytes and
// content type.
func (c *Client) Art(ctx context.Context, ratingKey string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s/library/metadata/%s/thumb?X-Plex-Token=%s", c.baseURL, ratingKey, url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", playlist.ErrRepositoryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("art not found for track %s", ratingKey)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read art: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

func (c *Client) machineIdentifier(ctx context.Context) (string, error) {
	var container mediaContainer
	if err := c.get(ctx, "/identity", nil, &container); err != nil {
		return "", err
	}
	if container.MediaContainer.MachineIdentifier == "" {
		return "", fmt.Errorf("%w: server reported no machine identifier", playlist.ErrRepositoryUnavailable)
	}
	return container.MediaContainer.MachineIdentifier, nil
}

func toTrackRecord(m metadata) playlist.TrackRecord {
	t := playlist.TrackRecord{
		ID:         m.RatingKey,
		Title:      m.Title,
		Artist:     m.GrandparentTitle,
		Album:      m.ParentTitle,
		DurationMS: m.Duration,
	}
	if m.RatingKey != "" {
		t.ArtURL = "/api/art/" + m.RatingKey
	}

	year := m.Year
	if year == 0 {
		year = m.ParentYear
	}
	if year > 0 {
		t.Year = &year
	}
	if m.UserRating > 0 {
		rating := m.UserRating
		t.Rating = &rating
	}
	for _, g := range m.Genre {
		if g.Tag != "" {
			t.Genres = append(t.Genres, g.Tag)
		}
	}
	return t
}
