package filter

import (
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

// liveMarkers is the marker vocabulary for live recordings. Single words
// are matched on word boundaries so titles like "Alive" or "Delivered"
// pass through; phrases are matched as-is.
var liveMarkers = []string{
	"live",
	"concert",
	"unplugged",
	"bootleg",
	"live at",
	"live in",
	"live from",
}

var markerPatterns = compileMarkers(liveMarkers)

// bracketYear finds a bare 4-digit year inside parentheses or brackets,
// e.g. "(Live at Wembley 1985)" or "[1994]".
var bracketYear = regexp.MustCompile(`[(\[][^)\]]*\b(19\d{2}|20\d{2})\b[^)\]]*[)\]]`)

func compileMarkers(markers []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(markers))
	for _, m := range markers {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(m)+`\b`))
	}
	return patterns
}

// ExcludeLive drops tracks whose title or album indicates a live or
// concert recording. False positives are accepted; the pass is
// idempotent. A bracketed year that differs from the track's own release
// year also counts as a live marker ("(Live at Wembley 1985)" style
// reissue tagging).
func ExcludeLive(tracks []playlist.TrackRecord) []playlist.TrackRecord {
	out := make([]playlist.TrackRecord, 0, len(tracks))
	dropped := 0
	for _, t := range tracks {
		if isLive(t) {
			dropped++
			continue
		}
		out = append(out, t)
	}
	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Int("kept", len(out)).Msg("Excluded live recordings")
	}
	return out
}

func isLive(t playlist.TrackRecord) bool {
	for _, field := range []string{t.Title, t.Album} {
		for _, p := range markerPatterns {
			if p.MatchString(field) {
				return true
			}
		}
		if hasForeignBracketYear(field, t.Year) {
			return true
		}
	}
	return false
}

func hasForeignBracketYear(s string, releaseYear *int) bool {
	m := bracketYear.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	if releaseYear != nil && year == *releaseYear {
		return false
	}
	// A bracketed year with no release year to compare against is
	// treated as a live/reissue marker.
	return true
}
