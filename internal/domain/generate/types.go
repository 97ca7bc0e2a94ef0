// Package generate orchestrates the filter-first playlist pipeline:
// analyze intent, filter the library snapshot, fit the candidate set to
// the model's context window, ask the model for selections, and resolve
// them back to real library entries.
package generate

import (
	"context"

	"github.com/plexmix/plexmix-backend/internal/domain/analyze"
	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

// TrackRepository is the library collaborator. The snapshot is fetched
// fresh per request and discarded afterwards; nothing is cached.
type TrackRepository interface {
	ListTracks(ctx context.Context, library string) ([]playlist.TrackRecord, error)
}

// Completer is the model collaborator used for the generation call.
type Completer interface {
	Complete(ctx context.Context, model, system, prompt string, maxTokens int) (playlist.Completion, error)
	EstimateCost(model string, inputTokens, outputTokens int) float64
}

// PromptAnalyzer is the analysis-tier collaborator.
type PromptAnalyzer interface {
	AnalyzePrompt(ctx context.Context, prompt string, summary analyze.LibrarySummary) (analyze.PromptAnalysis, error)
}

// Options is the explicit two-model configuration threaded through
// every generation call; there is no ambient model selection.
type Options struct {
	Library            string
	AnalysisModel      string
	GenerationModel    string
	SmartGeneration    bool
	ContextLimitTokens int
	DefaultTrackCount  int
	MaxTracksToModel   int
}

// selection is one structured track pick in the model's response.
type selection struct {
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Title  string `json:"title"`
}
