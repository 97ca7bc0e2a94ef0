package analyze

import (
	"fmt"
	"sort"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

// BuildLibrarySummary aggregates a track snapshot into the compact form
// sent to the model: distinct genres and decades with counts, the year
// range, and the total track count.
func BuildLibrarySummary(tracks []playlist.TrackRecord) LibrarySummary {
	genreCounts := make(map[string]int)
	decadeCounts := make(map[string]int)
	yearMin, yearMax := 0, 0

	for _, t := range tracks {
		for _, g := range t.Genres {
			genreCounts[g]++
		}
		if t.Year != nil {
			decade := (*t.Year / 10) * 10
			decadeCounts[fmt.Sprintf("%ds", decade)]++
			if yearMin == 0 || *t.Year < yearMin {
				yearMin = *t.Year
			}
			if *t.Year > yearMax {
				yearMax = *t.Year
			}
		}
	}

	summary := LibrarySummary{
		TrackCount: len(tracks),
		Genres:     make([]GenreCount, 0, len(genreCounts)),
		Decades:    make([]DecadeCount, 0, len(decadeCounts)),
		YearMin:    yearMin,
		YearMax:    yearMax,
	}
	for name, count := range genreCounts {
		summary.Genres = append(summary.Genres, GenreCount{Name: name, Count: count})
	}
	for name, count := range decadeCounts {
		summary.Decades = append(summary.Decades, DecadeCount{Name: name, Count: count})
	}

	// Largest first, name as tiebreaker so output is stable.
	sort.Slice(summary.Genres, func(i, j int) bool {
		if summary.Genres[i].Count != summary.Genres[j].Count {
			return summary.Genres[i].Count > summary.Genres[j].Count
		}
		return summary.Genres[i].Name < summary.Genres[j].Name
	})
	sort.Slice(summary.Decades, func(i, j int) bool {
		return summary.Decades[i].Name < summary.Decades[j].Name
	})

	return summary
}
