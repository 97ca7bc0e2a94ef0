package generate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/plexmix/plexmix-backend/internal/domain/analyze"
	"github.com/plexmix/plexmix-backend/internal/domain/budget"
	"github.com/plexmix/plexmix-backend/internal/domain/filter"
	"github.com/plexmix/plexmix-backend/internal/domain/match"
	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

const generationMaxTokens = 4096

// retryBackoff is the pause before the single retry of a transient
// provider failure. Variable so tests can shorten it.
var retryBackoff = 2 * time.Second

const generationSystem = `You are a music curator creating a playlist from a user's music library.

You will be given:
1. A description of what the user wants (prompt, seed track dimensions, or both)
2. A numbered list of tracks that are available in their library

Select tracks that best match the request, picking ONLY from the
supplied list. Vary artists and albums, and consider how the tracks
flow in sequence. If a seed track is given, do not include it.

Return ONLY a JSON array like:
[
  {"artist": "Artist Name", "album": "Album Name", "title": "Track Title"},
  ...
]

No markdown formatting, no explanations - just the JSON array.`

// Service runs the generation pipeline. All state is request-scoped;
// concurrent calls do not interfere.
type Service struct {
	repo      TrackRepository
	completer Completer
	analyzer  PromptAnalyzer
	opts      Options
}

// NewService wires the pipeline to its collaborators.
func NewService(repo TrackRepository, completer Completer, analyzer PromptAnalyzer, opts Options) *Service {
	return &Service{repo: repo, completer: completer, analyzer: analyzer, opts: opts}
}

// Generate produces a playlist for one request. Fatal collaborator
// errors surface as typed errors; degraded analysis and unmatched
// suggestions annotate the result instead of failing it.
func (s *Service) Generate(ctx context.Context, req playlist.GenerationRequest) (playlist.Playlist, error) {
	if req.TrackCount <= 0 {
		req.TrackCount = s.opts.DefaultTrackCount
	}

	tracks, err := s.repo.ListTracks(ctx, s.opts.Library)
	if err != nil {
		return playlist.Playlist{}, err
	}
	log.Info().Int("tracks", len(tracks)).Str("library", s.opts.Library).Msg("Fetched library snapshot")

	spec := req.Filter
	degraded := false
	tokensUsed := 0

	if req.AnalyzeWithModel && req.Prompt != "" {
		summary := analyze.BuildLibrarySummary(tracks)
		analysis, err := s.analyzePromptWithRetry(ctx, req.Prompt, summary)
		if err != nil {
			return playlist.Playlist{}, err
		}
		degraded = analysis.Outcome == analyze.OutcomeDegraded
		tokensUsed += analysis.TokensUsed
		spec = mergeFilters(req.Filter, analysis.Filter)
	}

	var seed *playlist.TrackRecord
	if req.SeedTrackID != "" {
		seed = findTrack(tracks, req.SeedTrackID)
		if seed != nil {
			spec.ExcludeIDs = append(spec.ExcludeIDs, seed.ID)
		}
	}

	candidates := filter.Apply(tracks, spec)
	if req.ExcludeLive {
		candidates = filter.ExcludeLive(candidates)
	}
	candidates = playlist.DedupeByID(candidates)
	if len(candidates) == 0 {
		return playlist.Playlist{}, playlist.ErrNoCandidates
	}
	log.Info().Int("candidates", len(candidates)).Msg("Filtered candidate set")

	decision, err := budget.Decide(len(candidates), s.opts.ContextLimitTokens, budget.AvgTokensPerTrack)
	if err != nil {
		return playlist.Playlist{}, err
	}
	target := decision.TargetCount
	if limit := s.maxTracksToModel(req); limit > 0 && limit < target {
		target = limit
	}
	if target < len(candidates) {
		seedVal := rand.Int63()
		log.Debug().Int("target", target).Int64("sample_seed", seedVal).Msg("Sampling candidate set")
		candidates = budget.Sample(candidates, target, seedVal)
	}

	prompt := buildGenerationPrompt(req, seed, candidates)
	completion, err := s.completeWithRetry(ctx, s.generationModel(req), generationSystem, prompt, generationMaxTokens)
	if err != nil {
		return playlist.Playlist{}, err
	}
	tokensUsed += completion.TotalTokens()

	raws := parseSelections(completion.Text)
	results := match.Resolve(raws, candidates)

	var matched []playlist.TrackRecord
	var unmatched []string
	for _, r := range results {
		if r.Track == nil {
			unmatched = append(unmatched, r.Raw)
			continue
		}
		if len(matched) < req.TrackCount {
			matched = append(matched, *r.Track)
		}
	}
	matched = playlist.DedupeByID(matched)

	if len(unmatched) > 0 {
		log.Warn().Int("unmatched", len(unmatched)).Msg("Some model suggestions did not resolve to library tracks")
	}

	return playlist.Playlist{
		Tracks:        matched,
		TokensUsed:    tokensUsed,
		EstimatedCost: s.completer.EstimateCost(s.generationModel(req), completion.InputTokens, completion.OutputTokens),
		Unmatched:     unmatched,
		Degraded:      degraded,
	}, nil
}

func (s *Service) generationModel(req playlist.GenerationRequest) string {
	if req.SmartGeneration || s.opts.SmartGeneration {
		return s.opts.AnalysisModel
	}
	return s.opts.GenerationModel
}

func (s *Service) maxTracksToModel(req playlist.GenerationRequest) int {
	if req.MaxTracksToModel > 0 {
		return req.MaxTracksToModel
	}
	return s.opts.MaxTracksToModel
}

// completeWithRetry retries a transient provider failure once with a
// short backoff before surfacing it.
func (s *Service) completeWithRetry(ctx context.Context, model, system, prompt string, maxTokens int) (playlist.Completion, error) {
	completion, err := s.completer.Complete(ctx, model, system, prompt, maxTokens)
	if err == nil || !isRetryable(err) {
		return completion, err
	}

	log.Warn().Err(err).Msg("Transient provider error, retrying once")
	select {
	case <-ctx.Done():
		return playlist.Completion{}, ctx.Err()
	case <-time.After(retryBackoff):
	}
	return s.completer.Complete(ctx, model, system, prompt, maxTokens)
}

func (s *Service) analyzePromptWithRetry(ctx context.Context, prompt string, summary analyze.LibrarySummary) (analyze.PromptAnalysis, error) {
	analysis, err := s.analyzer.AnalyzePrompt(ctx, prompt, summary)
	if err == nil || !isRetryable(err) {
		return analysis, err
	}

	log.Warn().Err(err).Msg("Transient provider error during analysis, retrying once")
	select {
	case <-ctx.Done():
		return analyze.PromptAnalysis{}, ctx.Err()
	case <-time.After(retryBackoff):
	}
	return s.analyzer.AnalyzePrompt(ctx, prompt, summary)
}

func isRetryable(err error) bool {
	var provErr *playlist.ProviderError
	return errors.As(err, &provErr) && provErr.Retryable
}

// mergeFilters combines user-supplied constraints with analysis
// suggestions. User values always win; suggestions only fill gaps.
func mergeFilters(user, suggested playlist.FilterSpec) playlist.FilterSpec {
	out := user
	if len(out.Genres) == 0 {
		out.Genres = suggested.Genres
	}
	if out.DecadeFrom == nil && out.DecadeTo == nil {
		out.DecadeFrom = suggested.DecadeFrom
		out.DecadeTo = suggested.DecadeTo
	}
	if out.MinRating == nil {
		out.MinRating = suggested.MinRating
	}
	out.ExcludeSubstrings = append(out.ExcludeSubstrings, suggested.ExcludeSubstrings...)
	return out
}

func findTrack(tracks []playlist.TrackRecord, id string) *playlist.TrackRecord {
	for i := range tracks {
		if tracks[i].ID == id {
			return &tracks[i]
		}
	}
	return nil
}

func formatYear(year *int) string {
	if year == nil {
		return "Unknown year"
	}
	return fmt.Sprintf("%d", *year)
}

// buildGenerationPrompt lays out the request description and the
// numbered candidate list, in post-sampling order.
func buildGenerationPrompt(req playlist.GenerationRequest, seed *playlist.TrackRecord, candidates []playlist.TrackRecord) string {
	var parts []string

	if req.Prompt != "" {
		parts = append(parts, "User's request: "+req.Prompt)
	}
	if seed != nil {
		parts = append(parts, fmt.Sprintf("Seed track: %s by %s (from %s, %s)",
			seed.Title, seed.Artist, seed.Album, formatYear(seed.Year)))
		if len(req.SeedDimensions) > 0 {
			parts = append(parts, "Explore these dimensions: "+strings.Join(req.SeedDimensions, ", "))
		}
	}
	if req.AdditionalNotes != "" {
		parts = append(parts, "Additional notes: "+req.AdditionalNotes)
	}

	var list strings.Builder
	for i, t := range candidates {
		fmt.Fprintf(&list, "%d. %s - %s (%s, %s)\n", i+1, t.Artist, t.Title, t.Album, formatYear(t.Year))
	}
	parts = append(parts, fmt.Sprintf("\nSelect %d tracks from this library:\n%s", req.TrackCount, list.String()))

	return strings.Join(parts, "\n\n")
}
