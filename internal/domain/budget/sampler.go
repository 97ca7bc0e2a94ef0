package budget

import (
	"math/rand"
	"sort"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

// Sample returns a uniform random subset of targetCount tracks without
// replacement. Selected tracks keep their relative input order. The seed
// makes the selection reproducible within one generation call; callers
// draw a fresh seed per request.
func Sample(tracks []playlist.TrackRecord, targetCount int, seed int64) []playlist.TrackRecord {
	if targetCount >= len(tracks) {
		return tracks
	}
	if targetCount <= 0 {
		return []playlist.TrackRecord{}
	}

	rng := rand.New(rand.NewSource(seed))

	// Partial Fisher-Yates over the index space, then restore input
	// order for the selected indices.
	indices := make([]int, len(tracks))
	for i := range indices {
		indices[i] = i
	}
	for i := 0; i < targetCount; i++ {
		j := i + rng.Intn(len(indices)-i)
		indices[i], indices[j] = indices[j], indices[i]
	}
	picked := indices[:targetCount]
	sort.Ints(picked)

	out := make([]playlist.TrackRecord, 0, targetCount)
	for _, idx := range picked {
		out = append(out, tracks[idx])
	}
	return out
}
