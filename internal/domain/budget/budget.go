// Package budget decides whether a candidate set fits a provider's
// context window and, when it does not, samples it down to size.
package budget

import (
	"github.com/rs/zerolog/log"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

const (
	// AvgTokensPerTrack is the estimate for one serialized
	// "N. Artist - Title (Album, Year)" candidate line.
	AvgTokensPerTrack = 15

	// usableWindowFraction is the share of the provider window left for
	// candidate lines; the rest covers the model's output.
	usableWindowFraction = 0.7

	// reservedTokens covers the system prompt and request framing.
	reservedTokens = 800
)

// Decision is the budgeter's verdict for one generation call.
type Decision struct {
	NeedsSampling bool
	TargetCount   int
}

// Decide computes whether candidateCount serialized tracks fit inside
// providerLimitTokens. When they do not, TargetCount is the largest
// count that does. Returns ErrBudgetExhausted when not even one track
// fits and there are candidates to send.
func Decide(candidateCount, providerLimitTokens, avgTokensPerTrack int) (Decision, error) {
	if avgTokensPerTrack <= 0 {
		avgTokensPerTrack = AvgTokensPerTrack
	}

	usable := int(float64(providerLimitTokens)*usableWindowFraction) - reservedTokens
	maxCount := usable / avgTokensPerTrack

	if maxCount < 1 {
		if candidateCount > 0 {
			return Decision{}, playlist.ErrBudgetExhausted
		}
		return Decision{}, nil
	}

	if candidateCount <= maxCount {
		return Decision{NeedsSampling: false, TargetCount: candidateCount}, nil
	}

	log.Debug().
		Int("candidates", candidateCount).
		Int("target", maxCount).
		Int("provider_limit", providerLimitTokens).
		Msg("Candidate set exceeds token budget, sampling required")

	return Decision{NeedsSampling: true, TargetCount: maxCount}, nil
}
