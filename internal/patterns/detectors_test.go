package patterns

import (
	"fmt"
	"testing"
	"time"

	"github.com/calsper/tasteline/internal/taste"
)

var base = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func events(ratings ...float64) []taste.RatingEvent {
	out := make([]taste.RatingEvent, len(ratings))
	for i, r := range ratings {
		out[i] = taste.RatingEvent{
			ID:        int64(i),
			User:      "testuser",
			Item:      fmt.Sprintf("track-%d", i),
			Rating:    r,
			CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}
	}
	return out
}

func detectionIDs(ds []Detection) map[string]Detection {
	out := make(map[string]Detection, len(ds))
	for _, d := range ds {
		out[d.ID] = d
	}
	return out
}

func TestDetectNeedsMinimumHistory(t *testing.T) {
	if got := Detect(events(1, 1, 1, 1)); got != nil {
		t.Errorf("Detect with 4 events = %v, want nil", got)
	}
}

func TestDetectCriticalEar(t *testing.T) {
	low := make([]float64, 15)
	for i := range low {
		low[i] = 3
	}
	ds := detectionIDs(Detect(events(low...)))
	d, ok := ds["critical_ear"]
	if !ok {
		t.Fatalf("critical_ear not detected in %v", ds)
	}
	if d.Confidence < 0.5 || d.Confidence > 1 {
		t.Errorf("confidence = %v, want within [0.5,1]", d.Confidence)
	}
	if _, ok := ds["music_optimist"]; ok {
		t.Error("music_optimist detected on all-low ratings")
	}
}

func TestDetectCriticalEarNeedsFifteen(t *testing.T) {
	low := make([]float64, 14)
	for i := range low {
		low[i] = 3
	}
	ds := detectionIDs(Detect(events(low...)))
	if _, ok := ds["critical_ear"]; ok {
		t.Error("critical_ear fired with only 14 events")
	}
}

func TestDetectMusicOptimist(t *testing.T) {
	high := make([]float64, 15)
	for i := range high {
		high[i] = 9
	}
	ds := detectionIDs(Detect(events(high...)))
	if _, ok := ds["music_optimist"]; !ok {
		t.Errorf("music_optimist not detected in %v", ds)
	}
}

func TestDetectPolarizedTaste(t *testing.T) {
	// 8 extreme, 2 middle: 80% extreme, 20% middle.
	ds := detectionIDs(Detect(events(1, 2, 10, 9, 1, 10, 2, 9, 5, 6)))
	if _, ok := ds["polarized_taste"]; !ok {
		t.Errorf("polarized_taste not detected in %v", ds)
	}

	// Mostly middling ratings.
	ds = detectionIDs(Detect(events(5, 6, 5, 6, 7, 5, 6, 5, 6, 7)))
	if _, ok := ds["polarized_taste"]; ok {
		t.Error("polarized_taste detected on middling ratings")
	}
}

func TestDetectPerfectionSeeker(t *testing.T) {
	ds := detectionIDs(Detect(events(10, 10, 10, 10, 9, 7, 6)))
	if _, ok := ds["perfection_seeker"]; !ok {
		t.Errorf("perfection_seeker not detected in %v", ds)
	}

	// More nines than tens.
	ds = detectionIDs(Detect(events(9, 9, 9, 9, 10, 10, 10)))
	if _, ok := ds["perfection_seeker"]; ok {
		t.Error("perfection_seeker detected with nines outnumbering tens")
	}
}

func TestDetectDeepDiveSprints(t *testing.T) {
	evs := events(7, 8, 7, 8, 7, 8, 7, 8, 7, 8)
	for i := 2; i <= 4; i++ {
		evs[i].Artist = "Boards of Canada"
	}
	ds := detectionIDs(Detect(evs))
	if _, ok := ds["deep_dive_sprints"]; !ok {
		t.Errorf("deep_dive_sprints not detected in %v", ds)
	}
}

func TestDetectDeepDiveSprintsRespectsSpan(t *testing.T) {
	// Same artist three times but spread over a month.
	evs := events(7, 8, 7, 8, 7)
	evs[0].Artist = "Low"
	evs[2].Artist = "Low"
	evs[4].Artist = "Low"
	evs[4].CreatedAt = base.Add(30 * 24 * time.Hour)
	ds := detectionIDs(Detect(evs))
	if _, ok := ds["deep_dive_sprints"]; ok {
		t.Error("deep_dive_sprints detected across a month-long spread")
	}
}

func TestDetectArchiveDiver(t *testing.T) {
	evs := events(make([]float64, 15)...)
	for i := range evs {
		evs[i].Rating = 7
		evs[i].ItemAgeYears = 25
	}
	ds := detectionIDs(Detect(evs))
	if _, ok := ds["archive_diver"]; !ok {
		t.Errorf("archive_diver not detected in %v", ds)
	}
	if _, ok := ds["new_release_hunter"]; ok {
		t.Error("new_release_hunter detected on 25-year-old records")
	}
}

func TestDetectGenreExplorer(t *testing.T) {
	evs := events(7, 7, 7, 7, 7, 7, 7, 7, 7, 7)
	for i := range evs {
		evs[i].Genres = []string{fmt.Sprintf("genre-%d", i)}
	}
	ds := detectionIDs(Detect(evs))
	if _, ok := ds["genre_explorer"]; !ok {
		t.Errorf("genre_explorer not detected in %v", ds)
	}
}

func TestConfidenceClamped(t *testing.T) {
	// 15 ratings of 0 push the raw critical_ear confidence above 1.
	zero := make([]float64, 15)
	for _, d := range Detect(events(zero...)) {
		if d.Confidence < 0 || d.Confidence > 1 {
			t.Errorf("%s confidence = %v outside [0,1]", d.ID, d.Confidence)
		}
	}
}
