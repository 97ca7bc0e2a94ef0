package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

const analysisMaxTokens = 1024

const promptSystem = `You are a music librarian helping narrow a library before playlist generation.

Given the user's request and a summary of their library, suggest filters.
Return ONLY a JSON object like:
{
  "genres": ["Genre1", "Genre2"],
  "decades": ["1990s"],
  "min_rating": 0,
  "exclude_terms": [],
  "reasoning": "one sentence"
}

Only suggest genres and decades that exist in the library summary.
No markdown formatting, no explanations outside the JSON.`

const seedSystem = `You are a music expert describing what makes a track distinctive.

Given a track, identify 3-5 musical dimensions a listener might want to
explore: mood, era, vocals, instrumentation, energy, and so on.
Return ONLY a JSON object like:
{
  "dimensions": [
    {"id": "mood", "label": "specific description", "description": "longer explanation"}
  ]
}

Labels must be specific to this track, never generic.
No markdown formatting, no explanations outside the JSON.`

// Service performs prompt and seed-track analysis on the analysis model
// tier.
type Service struct {
	completer Completer
	model     string
}

// NewService creates an analysis service bound to one model.
func NewService(completer Completer, model string) *Service {
	return &Service{completer: completer, model: model}
}

// promptResponse is the expected shape of the model's filter
// suggestion. All fields are optional; anything missing means "no
// constraint".
type promptResponse struct {
	Genres       []string `json:"genres"`
	Decades      []string `json:"decades"`
	MinRating    *float64 `json:"min_rating"`
	ExcludeTerms []string `json:"exclude_terms"`
	Reasoning    string   `json:"reasoning"`
}

// AnalyzePrompt asks the model to translate a free-text prompt into
// filter suggestions. Collaborator errors surface untouched; a response
// that cannot be parsed degrades to an unconstrained result.
func (s *Service) AnalyzePrompt(ctx context.Context, prompt string, summary LibrarySummary) (PromptAnalysis, error) {
	userPrompt := fmt.Sprintf("User's request: %s\n\nLibrary summary:\n%s", prompt, renderSummary(summary))

	completion, err := s.completer.Complete(ctx, s.model, promptSystem, userPrompt, analysisMaxTokens)
	if err != nil {
		return PromptAnalysis{}, err
	}

	var parsed promptResponse
	if err := json.Unmarshal(extractJSON(completion.Text), &parsed); err != nil {
		log.Warn().Err(err).Msg("Prompt analysis response unparseable, degrading to unconstrained defaults")
		return PromptAnalysis{Outcome: OutcomeDegraded, TokensUsed: completion.TotalTokens()}, nil
	}

	spec := playlist.FilterSpec{
		Genres:            keepKnownGenres(parsed.Genres, summary),
		MinRating:         parsed.MinRating,
		ExcludeSubstrings: parsed.ExcludeTerms,
	}
	spec.DecadeFrom, spec.DecadeTo = decadeBounds(parsed.Decades)

	return PromptAnalysis{
		Filter:     spec,
		Reasoning:  parsed.Reasoning,
		Outcome:    OutcomeParsed,
		TokensUsed: completion.TotalTokens(),
	}, nil
}

// AnalyzeSeed asks the model for the musical dimensions of a seed
// track. Same degradation rule as AnalyzePrompt.
func (s *Service) AnalyzeSeed(ctx context.Context, track playlist.TrackRecord) (SeedAnalysis, error) {
	year := "unknown year"
	if track.Year != nil {
		year = strconv.Itoa(*track.Year)
	}
	userPrompt := fmt.Sprintf("Track: %s by %s (from %s, %s)\nGenres: %s",
		track.Title, track.Artist, track.Album, year, strings.Join(track.Genres, ", "))

	completion, err := s.completer.Complete(ctx, s.model, seedSystem, userPrompt, analysisMaxTokens)
	if err != nil {
		return SeedAnalysis{}, err
	}

	var parsed struct {
		Dimensions []Dimension `json:"dimensions"`
	}
	if err := json.Unmarshal(extractJSON(completion.Text), &parsed); err != nil || len(parsed.Dimensions) == 0 {
		log.Warn().Str("track", track.Title).Msg("Seed analysis response unparseable, degrading")
		return SeedAnalysis{Track: track, Outcome: OutcomeDegraded, TokensUsed: completion.TotalTokens()}, nil
	}

	return SeedAnalysis{
		Track:      track,
		Dimensions: parsed.Dimensions,
		Outcome:    OutcomeParsed,
		TokensUsed: completion.TotalTokens(),
	}, nil
}

func renderSummary(summary LibrarySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total tracks: %d\n", summary.TrackCount)
	if summary.YearMin > 0 {
		fmt.Fprintf(&b, "Year range: %d-%d\n", summary.YearMin, summary.YearMax)
	}
	b.WriteString("Genres:")
	for _, g := range summary.Genres {
		fmt.Fprintf(&b, " %s (%d),", g.Name, g.Count)
	}
	b.WriteString("\nDecades:")
	for _, d := range summary.Decades {
		fmt.Fprintf(&b, " %s (%d),", d.Name, d.Count)
	}
	return b.String()
}

// keepKnownGenres drops suggestions that do not exist in the library.
func keepKnownGenres(suggested []string, summary LibrarySummary) []string {
	if len(suggested) == 0 {
		return nil
	}
	var kept []string
	for _, s := range suggested {
		for _, g := range summary.Genres {
			if strings.EqualFold(s, g.Name) {
				kept = append(kept, g.Name)
				break
			}
		}
	}
	return kept
}

var decadePattern = regexp.MustCompile(`^(\d{4})s$`)

// decadeBounds converts decade labels like "1990s" into one inclusive
// year range spanning all of them. Unparseable labels are dropped.
func decadeBounds(decades []string) (*int, *int) {
	var from, to *int
	for _, d := range decades {
		m := decadePattern.FindStringSubmatch(strings.TrimSpace(d))
		if m == nil {
			continue
		}
		start, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		end := start + 9
		if from == nil || start < *from {
			from = &start
		}
		if to == nil || end > *to {
			to = &end
		}
	}
	return from, to
}

// extractJSON trims markdown fences and any prose around the outermost
// JSON value so a strict decoder can run on model output.
func extractJSON(text string) []byte {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return []byte(text)
	}
	var end int
	if text[start] == '{' {
		end = strings.LastIndex(text, "}")
	} else {
		end = strings.LastIndex(text, "]")
	}
	if end <= start {
		return []byte(text)
	}
	return []byte(text[start : end+1])
}
