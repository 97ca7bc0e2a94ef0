package match

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/rs/zerolog/log"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

// AcceptThreshold is the minimum 0-100 similarity score for a fuzzy
// match to be accepted.
const AcceptThreshold = 60

// candidate is a library track with its precomputed normalized keys.
// Model output names tracks as either "Artist - Title" or
// "Title - Artist", so both orderings are kept.
type candidate struct {
	track       playlist.TrackRecord
	artistTitle string
	titleArtist string
	used        bool
}

// Resolve maps each raw identification to at most one library track,
// order preserved, one MatchResult per input. A candidate id is consumed
// by its first match and cannot appear twice in the same call.
func Resolve(raws []string, tracks []playlist.TrackRecord) []playlist.MatchResult {
	candidates := make([]candidate, len(tracks))
	for i, t := range tracks {
		candidates[i] = candidate{
			track:       t,
			artistTitle: Normalize(t.Artist + " " + t.Title),
			titleArtist: Normalize(t.Title + " " + t.Artist),
		}
	}

	lev := metrics.NewLevenshtein()

	results := make([]playlist.MatchResult, 0, len(raws))
	for _, raw := range raws {
		query := Normalize(raw)
		if query == "" {
			results = append(results, playlist.MatchResult{Method: playlist.MatchUnmatched, Raw: raw})
			continue
		}

		if idx := exactMatch(candidates, query); idx >= 0 {
			candidates[idx].used = true
			results = append(results, playlist.MatchResult{
				Track:  &candidates[idx].track,
				Score:  100,
				Method: playlist.MatchExact,
				Raw:    raw,
			})
			continue
		}

		idx, score := fuzzyMatch(candidates, query, lev)
		if idx < 0 {
			log.Debug().Str("raw", raw).Int("best_score", score).Msg("No candidate above match threshold")
			results = append(results, playlist.MatchResult{Score: score, Method: playlist.MatchUnmatched, Raw: raw})
			continue
		}

		candidates[idx].used = true
		results = append(results, playlist.MatchResult{
			Track:  &candidates[idx].track,
			Score:  score,
			Method: playlist.MatchFuzzy,
			Raw:    raw,
		})
	}
	return results
}

// exactMatch returns the index of the best unused candidate whose
// normalized key equals query, or -1. Ties prefer the higher-rated
// candidate, then the earlier one.
func exactMatch(candidates []candidate, query string) int {
	best := -1
	for i := range candidates {
		c := &candidates[i]
		if c.used {
			continue
		}
		if c.artistTitle != query && c.titleArtist != query {
			continue
		}
		if best < 0 || ratingOf(c.track) > ratingOf(candidates[best].track) {
			best = i
		}
	}
	return best
}

// fuzzyMatch returns the index and score of the best-scoring unused
// candidate at or above AcceptThreshold, or (-1, bestScore) when none
// qualifies.
func fuzzyMatch(candidates []candidate, query string, lev *metrics.Levenshtein) (int, int) {
	best := -1
	bestScore := 0
	for i := range candidates {
		c := &candidates[i]
		if c.used {
			continue
		}
		score := similarity(query, c.artistTitle, lev)
		if s := similarity(query, c.titleArtist, lev); s > score {
			score = s
		}
		switch {
		case score > bestScore:
			best, bestScore = i, score
		case score == bestScore && best >= 0 && ratingOf(c.track) > ratingOf(candidates[best].track):
			best = i
		}
	}
	if bestScore < AcceptThreshold {
		return -1, bestScore
	}
	return best, bestScore
}

func similarity(a, b string, lev *metrics.Levenshtein) int {
	return int(strutil.Similarity(a, b, lev) * 100)
}

func ratingOf(t playlist.TrackRecord) float64 {
	if t.Rating == nil {
		return -1
	}
	return *t.Rating
}
