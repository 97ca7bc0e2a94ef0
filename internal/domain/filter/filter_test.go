package filter

import (
	"testing"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }

func sampleTracks() []playlist.TrackRecord {
	return []playlist.TrackRecord{
		{ID: "1", Title: "Friday I'm in Love", Artist: "The Cure", Album: "Wish", Genres: []string{"Alternative"}, Year: intPtr(1992), Rating: floatPtr(8)},
		{ID: "2", Title: "Just Like Heaven", Artist: "The Cure", Album: "Kiss Me", Genres: []string{"Alternative", "Rock"}, Year: intPtr(1987), Rating: floatPtr(9)},
		{ID: "3", Title: "Black", Artist: "Pearl Jam", Album: "Ten", Genres: []string{"Grunge"}, Year: intPtr(1991)},
		{ID: "4", Title: "Undated Song", Artist: "Nobody", Album: "Lost Tapes", Genres: []string{"Rock"}},
	}
}

func TestApply_EmptySpecIsIdentity(t *testing.T) {
	tracks := sampleTracks()

	got := Apply(tracks, playlist.FilterSpec{})

	if len(got) != len(tracks) {
		t.Fatalf("Expected %d tracks, got %d", len(tracks), len(got))
	}
	for i := range tracks {
		if got[i].ID != tracks[i].ID {
			t.Errorf("Order changed at %d: expected %s, got %s", i, tracks[i].ID, got[i].ID)
		}
	}
}

func TestApply_GenresMatchWithOR(t *testing.T) {
	got := Apply(sampleTracks(), playlist.FilterSpec{Genres: []string{"Grunge", "Rock"}})

	if len(got) != 3 {
		t.Fatalf("Expected 3 tracks, got %d", len(got))
	}
	if got[0].ID != "2" || got[1].ID != "3" || got[2].ID != "4" {
		t.Errorf("Unexpected ids: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestApply_GenreMatchIsCaseInsensitive(t *testing.T) {
	got := Apply(sampleTracks(), playlist.FilterSpec{Genres: []string{"grunge"}})

	if len(got) != 1 || got[0].ID != "3" {
		t.Fatalf("Expected only track 3, got %d tracks", len(got))
	}
}

func TestApply_DecadeRangeInclusive(t *testing.T) {
	got := Apply(sampleTracks(), playlist.FilterSpec{DecadeFrom: intPtr(1990), DecadeTo: intPtr(1999)})

	if len(got) != 2 {
		t.Fatalf("Expected 2 tracks in the 90s, got %d", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("Unexpected ids: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestApply_MissingYearFailsDecadeConstraint(t *testing.T) {
	got := Apply(sampleTracks(), playlist.FilterSpec{DecadeFrom: intPtr(1900)})

	for _, tr := range got {
		if tr.ID == "4" {
			t.Error("Track without year should fail any decade constraint")
		}
	}
}

func TestApply_MinRating(t *testing.T) {
	got := Apply(sampleTracks(), playlist.FilterSpec{MinRating: floatPtr(8.5)})

	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("Expected only track 2 at rating >= 8.5, got %d tracks", len(got))
	}
}

func TestApply_MinRating_MissingRatingFails(t *testing.T) {
	got := Apply(sampleTracks(), playlist.FilterSpec{MinRating: floatPtr(1)})

	for _, tr := range got {
		if tr.ID == "3" {
			t.Error("Track without rating should fail a min rating constraint")
		}
	}
}

func TestApply_ExcludeByID(t *testing.T) {
	got := Apply(sampleTracks(), playlist.FilterSpec{ExcludeIDs: []string{"1", "3"}})

	if len(got) != 2 {
		t.Fatalf("Expected 2 tracks, got %d", len(got))
	}
	if got[0].ID != "2" || got[1].ID != "4" {
		t.Errorf("Unexpected ids: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestApply_ExcludeBySubstringTitleAndAlbum(t *testing.T) {
	got := Apply(sampleTracks(), playlist.FilterSpec{ExcludeSubstrings: []string{"TEN", "heaven"}})

	// "TEN" matches album "Ten" (track 3), "heaven" matches the title
	// of track 2.
	for _, tr := range got {
		if tr.ID == "2" || tr.ID == "3" {
			t.Errorf("Track %s should have been excluded by substring", tr.ID)
		}
	}
}

func TestApply_CombinesConstraintTypesWithAND(t *testing.T) {
	got := Apply(sampleTracks(), playlist.FilterSpec{
		Genres:     []string{"Alternative"},
		DecadeFrom: intPtr(1990),
		DecadeTo:   intPtr(1999),
	})

	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("Expected only track 1, got %d tracks", len(got))
	}
}
