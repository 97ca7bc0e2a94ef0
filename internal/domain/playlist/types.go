// Package playlist defines the shared data model for playlist generation:
// library track snapshots, filter constraints, match results, and the
// final playlist response.
package playlist

// TrackRecord is an immutable snapshot of one playable library entry.
// ID is the library-assigned rating key; it is opaque and stable for the
// lifetime of a single request.
type TrackRecord struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	Album      string   `json:"album"`
	Genres     []string `json:"genres,omitempty"`
	Year       *int     `json:"year,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	DurationMS int      `json:"duration_ms,omitempty"`
	ArtURL     string   `json:"art_url,omitempty"`
}

// FilterSpec holds the structured constraints applied before any model
// call. A track passes iff it satisfies every present constraint; within
// Genres any single match is enough.
type FilterSpec struct {
	Genres            []string `json:"genres,omitempty"`
	DecadeFrom        *int     `json:"decade_from,omitempty"`
	DecadeTo          *int     `json:"decade_to,omitempty"`
	MinRating         *float64 `json:"min_rating,omitempty"`
	ExcludeIDs        []string `json:"exclude_ids,omitempty"`
	ExcludeSubstrings []string `json:"exclude_substrings,omitempty"`
}

// IsEmpty reports whether no constraint is set at all.
func (s FilterSpec) IsEmpty() bool {
	return len(s.Genres) == 0 &&
		s.DecadeFrom == nil && s.DecadeTo == nil &&
		s.MinRating == nil &&
		len(s.ExcludeIDs) == 0 && len(s.ExcludeSubstrings) == 0
}

// GenerationRequest describes one playlist generation call.
type GenerationRequest struct {
	Prompt             string     `json:"prompt,omitempty"`
	SeedTrackID        string     `json:"seed_track_id,omitempty"`
	SeedDimensions     []string   `json:"seed_dimensions,omitempty"`
	AdditionalNotes    string     `json:"additional_notes,omitempty"`
	TrackCount         int        `json:"track_count"`
	SmartGeneration    bool       `json:"smart_generation,omitempty"`
	ExcludeLive        bool       `json:"exclude_live"`
	MaxTracksToModel   int        `json:"max_tracks_to_model,omitempty"`
	Filter             FilterSpec `json:"filter"`
	AnalyzeWithModel   bool       `json:"analyze_with_model,omitempty"`
}

// MatchMethod describes how a model suggestion was resolved.
type MatchMethod string

const (
	MatchExact     MatchMethod = "exact"
	MatchFuzzy     MatchMethod = "fuzzy"
	MatchUnmatched MatchMethod = "unmatched"
)

// MatchResult is the resolution of one free-text track identification.
// Track is nil when Method is MatchUnmatched.
type MatchResult struct {
	Track  *TrackRecord `json:"track,omitempty"`
	Score  int          `json:"score"`
	Method MatchMethod  `json:"method"`
	Raw    string       `json:"raw"`
}

// Playlist is the final ordered, deduplicated generation result.
type Playlist struct {
	Tracks        []TrackRecord `json:"tracks"`
	TokensUsed    int           `json:"token_count"`
	EstimatedCost float64       `json:"estimated_cost"`
	Unmatched     []string      `json:"unmatched,omitempty"`
	Degraded      bool          `json:"degraded,omitempty"`
}

// Completion is the result of one model completion call, as returned by
// the LLM collaborator.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// TotalTokens is the combined input and output token count.
func (c Completion) TotalTokens() int { return c.InputTokens + c.OutputTokens }

// DedupeByID removes duplicate ids from tracks, keeping the first
// occurrence and preserving order.
func DedupeByID(tracks []TrackRecord) []TrackRecord {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]TrackRecord, 0, len(tracks))
	for _, t := range tracks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
