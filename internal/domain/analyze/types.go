// Package analyze turns a natural-language prompt or a seed track into
// structured filter suggestions using one model call on the analysis
// tier. Malformed model output degrades to unconstrained defaults
// instead of failing the request.
package analyze

import (
	"context"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

// Completer is the model collaborator needed by this service.
type Completer interface {
	Complete(ctx context.Context, model, system, prompt string, maxTokens int) (playlist.Completion, error)
}

// GenreCount is one genre with its track count in the library.
type GenreCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DecadeCount is one decade label ("1990s") with its track count.
type DecadeCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// LibrarySummary is the compact aggregate sent to the model instead of
// the raw track list, to bound analysis-call token cost.
type LibrarySummary struct {
	TrackCount int           `json:"total_tracks"`
	Genres     []GenreCount  `json:"genres"`
	Decades    []DecadeCount `json:"decades"`
	YearMin    int           `json:"year_min,omitempty"`
	YearMax    int           `json:"year_max,omitempty"`
}

// Outcome tags whether the model response parsed cleanly or the
// analysis fell back to defaults.
type Outcome string

const (
	OutcomeParsed   Outcome = "parsed"
	OutcomeDegraded Outcome = "degraded"
)

// PromptAnalysis is the structured result of analyzing a free-text
// prompt. On OutcomeDegraded the filter carries no constraints.
type PromptAnalysis struct {
	Filter     playlist.FilterSpec `json:"filter"`
	Reasoning  string              `json:"reasoning,omitempty"`
	Outcome    Outcome             `json:"outcome"`
	TokensUsed int                 `json:"token_count"`
}

// Dimension is one musical aspect of a seed track the user can choose
// to explore.
type Dimension struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// SeedAnalysis is the structured result of analyzing a seed track.
type SeedAnalysis struct {
	Track      playlist.TrackRecord `json:"track"`
	Dimensions []Dimension          `json:"dimensions"`
	Outcome    Outcome              `json:"outcome"`
	TokensUsed int                  `json:"token_count"`
}
