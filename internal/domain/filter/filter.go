// Package filter narrows a library track snapshot with structured
// constraints before any model call. All functions are pure and keep the
// input order.
package filter

import (
	"strings"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

// Apply returns the tracks that satisfy every constraint present in
// spec. Constraint types combine with AND; the genre list matches with
// OR. Tracks without a year fail any decade bound. An empty spec is the
// identity.
func Apply(tracks []playlist.TrackRecord, spec playlist.FilterSpec) []playlist.TrackRecord {
	if spec.IsEmpty() {
		return tracks
	}

	excludeIDs := make(map[string]struct{}, len(spec.ExcludeIDs))
	for _, id := range spec.ExcludeIDs {
		excludeIDs[id] = struct{}{}
	}

	substrings := make([]string, 0, len(spec.ExcludeSubstrings))
	for _, s := range spec.ExcludeSubstrings {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			substrings = append(substrings, s)
		}
	}

	out := make([]playlist.TrackRecord, 0, len(tracks))
	for _, t := range tracks {
		if _, excluded := excludeIDs[t.ID]; excluded {
			continue
		}
		if !matchesGenres(t, spec.Genres) {
			continue
		}
		if !matchesDecade(t, spec.DecadeFrom, spec.DecadeTo) {
			continue
		}
		if spec.MinRating != nil {
			if t.Rating == nil || *t.Rating < *spec.MinRating {
				continue
			}
		}
		if matchesSubstring(t, substrings) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesGenres(t playlist.TrackRecord, genres []string) bool {
	if len(genres) == 0 {
		return true
	}
	for _, want := range genres {
		for _, have := range t.Genres {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

func matchesDecade(t playlist.TrackRecord, from, to *int) bool {
	if from == nil && to == nil {
		return true
	}
	if t.Year == nil {
		return false
	}
	if from != nil && *t.Year < *from {
		return false
	}
	if to != nil && *t.Year > *to {
		return false
	}
	return true
}

func matchesSubstring(t playlist.TrackRecord, substrings []string) bool {
	if len(substrings) == 0 {
		return false
	}
	title := strings.ToLower(t.Title)
	album := strings.ToLower(t.Album)
	for _, s := range substrings {
		if strings.Contains(title, s) || strings.Contains(album, s) {
			return true
		}
	}
	return false
}
