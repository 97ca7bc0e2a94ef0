package budget

import (
	"errors"
	"testing"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

func TestDecide_FitsWithoutSampling(t *testing.T) {
	// 1000 tracks * 15 tokens = 15000, well under a 128K window.
	d, err := Decide(1000, 128000, AvgTokensPerTrack)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.NeedsSampling {
		t.Error("Expected no sampling for a fitting set")
	}
	if d.TargetCount != 1000 {
		t.Errorf("Expected target 1000, got %d", d.TargetCount)
	}
}

func TestDecide_OversizedSetRequiresSampling(t *testing.T) {
	// Spec scenario: 40,000 filtered tracks against a 128K window.
	d, err := Decide(40000, 128000, AvgTokensPerTrack)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !d.NeedsSampling {
		t.Fatal("Expected sampling to be required")
	}
	if d.TargetCount < 1 || d.TargetCount >= 40000 {
		t.Errorf("Target count out of range: %d", d.TargetCount)
	}
	if d.TargetCount*AvgTokensPerTrack > int(float64(128000)*0.7) {
		t.Errorf("Target %d does not fit the usable window", d.TargetCount)
	}
}

func TestDecide_BudgetExhausted(t *testing.T) {
	_, err := Decide(10, 100, AvgTokensPerTrack)
	if !errors.Is(err, playlist.ErrBudgetExhausted) {
		t.Fatalf("Expected ErrBudgetExhausted, got %v", err)
	}
}

func TestDecide_ZeroCandidatesNeverErrors(t *testing.T) {
	d, err := Decide(0, 100, AvgTokensPerTrack)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.NeedsSampling {
		t.Error("Empty set never needs sampling")
	}
}

func TestDecide_NeverReturnsZeroTargetForNonEmptySet(t *testing.T) {
	// Smallest window that still fits one line after the reserve.
	fraction := float64(usableWindowFraction)
	limit := int(float64(reservedTokens+AvgTokensPerTrack)/fraction) + 2
	d, err := Decide(5000, limit, AvgTokensPerTrack)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.TargetCount < 1 {
		t.Errorf("Target count must be at least 1, got %d", d.TargetCount)
	}
}

func TestDecide_DefaultsAvgTokens(t *testing.T) {
	d, err := Decide(100, 128000, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.TargetCount != 100 {
		t.Errorf("Expected target 100, got %d", d.TargetCount)
	}
}

func makeTracks(n int) []playlist.TrackRecord {
	tracks := make([]playlist.TrackRecord, n)
	for i := range tracks {
		tracks[i] = playlist.TrackRecord{ID: string(rune('a' + i%26)) + "-" + itoa(i)}
	}
	return tracks
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func TestSample_ExactSize(t *testing.T) {
	tracks := makeTracks(100)

	got := Sample(tracks, 30, 42)

	if len(got) != 30 {
		t.Fatalf("Expected 30 tracks, got %d", len(got))
	}
}

func TestSample_SubsetWithoutDuplicates(t *testing.T) {
	tracks := makeTracks(200)
	valid := make(map[string]struct{}, len(tracks))
	for _, tr := range tracks {
		valid[tr.ID] = struct{}{}
	}

	got := Sample(tracks, 50, 7)

	seen := make(map[string]struct{})
	for _, tr := range got {
		if _, ok := valid[tr.ID]; !ok {
			t.Errorf("Sampled track %s is not in the input", tr.ID)
		}
		if _, dup := seen[tr.ID]; dup {
			t.Errorf("Duplicate track %s in sample", tr.ID)
		}
		seen[tr.ID] = struct{}{}
	}
}

func TestSample_PreservesRelativeOrder(t *testing.T) {
	tracks := makeTracks(100)
	pos := make(map[string]int, len(tracks))
	for i, tr := range tracks {
		pos[tr.ID] = i
	}

	got := Sample(tracks, 40, 99)

	for i := 1; i < len(got); i++ {
		if pos[got[i-1].ID] >= pos[got[i].ID] {
			t.Fatalf("Relative order not preserved at %d", i)
		}
	}
}

func TestSample_TargetLargerThanInput(t *testing.T) {
	tracks := makeTracks(10)

	got := Sample(tracks, 50, 1)

	if len(got) != 10 {
		t.Errorf("Expected all 10 tracks, got %d", len(got))
	}
}

func TestSample_ReproduciblePerSeed(t *testing.T) {
	tracks := makeTracks(300)

	a := Sample(tracks, 20, 1234)
	b := Sample(tracks, 20, 1234)

	if len(a) != len(b) {
		t.Fatalf("Sizes differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("Samples differ at %d with the same seed", i)
		}
	}
}
