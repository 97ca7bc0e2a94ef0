package filter

import (
	"testing"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

func TestExcludeLive_MarkerWords(t *testing.T) {
	tracks := []playlist.TrackRecord{
		{ID: "1", Title: "One", Album: "Live at Wembley"},
		{ID: "2", Title: "Song (Unplugged)", Album: "Sessions"},
		{ID: "3", Title: "In Concert Tonight", Album: "Whatever"},
		{ID: "4", Title: "Plain Song", Album: "Plain Album"},
	}

	got := ExcludeLive(tracks)

	if len(got) != 1 || got[0].ID != "4" {
		t.Fatalf("Expected only track 4 to survive, got %d tracks", len(got))
	}
}

func TestExcludeLive_WordBoundary(t *testing.T) {
	tracks := []playlist.TrackRecord{
		{ID: "1", Title: "Alive", Album: "Ten"},
		{ID: "2", Title: "Delivered", Album: "Letters"},
		{ID: "3", Title: "Oblivion", Album: "Visions"},
	}

	got := ExcludeLive(tracks)

	if len(got) != 3 {
		t.Errorf("Words containing 'live' should not be excluded, got %d of 3 tracks", len(got))
	}
}

func TestExcludeLive_ForeignBracketYear(t *testing.T) {
	year := 1979
	tracks := []playlist.TrackRecord{
		// Bracketed year differs from release year: excluded.
		{ID: "1", Title: "Anthem (Wembley 1985)", Year: &year},
		// Bracketed year equals release year: kept.
		{ID: "2", Title: "Anthem (1979)", Year: &year},
		// Bracketed year, no release year to compare: excluded.
		{ID: "3", Title: "Anthem [1994]"},
		{ID: "4", Title: "Anthem"},
	}

	got := ExcludeLive(tracks)

	if len(got) != 2 {
		t.Fatalf("Expected 2 tracks, got %d", len(got))
	}
	if got[0].ID != "2" || got[1].ID != "4" {
		t.Errorf("Unexpected survivors: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestExcludeLive_Idempotent(t *testing.T) {
	tracks := []playlist.TrackRecord{
		{ID: "1", Title: "One", Album: "Live at Wembley"},
		{ID: "2", Title: "Two", Album: "Studio"},
		{ID: "3", Title: "Three (Concert)", Album: "Studio"},
	}

	once := ExcludeLive(tracks)
	twice := ExcludeLive(once)

	if len(once) != len(twice) {
		t.Fatalf("Not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Errorf("Order differs at %d: %s vs %s", i, once[i].ID, twice[i].ID)
		}
	}
}

func TestExcludeLive_EmptyInput(t *testing.T) {
	got := ExcludeLive(nil)

	if len(got) != 0 {
		t.Errorf("Expected empty result, got %d", len(got))
	}
}
