package generate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

var numberedLine = regexp.MustCompile(`^\s*\d+[.)]\s*(.+)$`)

// parseSelections turns the model's generation response into free-text
// track identifications for the matcher. The expected shape is a JSON
// array of {artist, album, title}; a plain numbered or dashed list is
// accepted as a fallback so a malformed response degrades instead of
// failing the request.
func parseSelections(text string) []string {
	var selections []selection
	if err := json.Unmarshal(extractJSONArray(text), &selections); err == nil {
		raws := make([]string, 0, len(selections))
		for _, sel := range selections {
			artist := strings.TrimSpace(sel.Artist)
			title := strings.TrimSpace(sel.Title)
			switch {
			case artist != "" && title != "":
				raws = append(raws, artist+" - "+title)
			case title != "":
				raws = append(raws, title)
			}
		}
		return raws
	}

	log.Warn().Msg("Generation response is not a JSON array, falling back to line parsing")

	var raws []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			line = strings.TrimSpace(m[1])
		}
		if line == "" || !strings.Contains(line, " - ") {
			continue
		}
		raws = append(raws, line)
	}
	return raws
}

// extractJSONArray trims markdown fences and surrounding prose down to
// the outermost JSON array.
func extractJSONArray(text string) []byte {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return []byte(text)
	}
	return []byte(text[start : end+1])
}
