package drift

import (
	"fmt"
	"testing"
	"time"

	"github.com/calsper/tasteline/internal/taste"
)

var driftNow = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func ratedEvents(n int, rating float64) []taste.RatingEvent {
	out := make([]taste.RatingEvent, n)
	for i := range out {
		out[i] = taste.RatingEvent{
			ID:        int64(i),
			User:      "testuser",
			Item:      fmt.Sprintf("track-%d", i),
			Rating:    rating,
			CreatedAt: driftNow.Add(time.Duration(i-n) * time.Hour),
		}
	}
	return out
}

func alertTypes(alerts []Alert) map[string]int {
	out := make(map[string]int)
	for _, a := range alerts {
		out[a.Type]++
	}
	return out
}

func TestCompareFirstRunNoAlerts(t *testing.T) {
	next := BuildSnapshot(ratedEvents(10, 7), []string{"critical_ear"}, driftNow)
	if got := Compare(nil, next, nil, driftNow); got != nil {
		t.Errorf("Compare against nil snapshot = %v, want nil", got)
	}
}

func TestComparePatternEmergedAndDisappeared(t *testing.T) {
	prev := BuildSnapshot(ratedEvents(10, 7), []string{"critical_ear"}, driftNow.Add(-24*time.Hour))
	next := BuildSnapshot(ratedEvents(10, 7), []string{"genre_explorer"}, driftNow)

	types := alertTypes(Compare(&prev, next, nil, driftNow))
	if types[AlertPatternEmerged] != 1 {
		t.Errorf("emerged alerts = %d, want 1", types[AlertPatternEmerged])
	}
	if types[AlertPatternDisappeared] != 1 {
		t.Errorf("disappeared alerts = %d, want 1", types[AlertPatternDisappeared])
	}
}

func TestCompareContradiction(t *testing.T) {
	prev := BuildSnapshot(ratedEvents(10, 7), nil, driftNow.Add(-24*time.Hour))
	next := BuildSnapshot(ratedEvents(10, 7), []string{"critical_ear", "music_optimist"}, driftNow)

	alerts := Compare(&prev, next, nil, driftNow)
	found := false
	for _, a := range alerts {
		if a.Type == AlertContradiction {
			found = true
			if a.Magnitude != 0.7 {
				t.Errorf("contradiction magnitude = %v, want 0.7", a.Magnitude)
			}
			if len(a.AffectedPatterns) != 2 {
				t.Errorf("AffectedPatterns = %v", a.AffectedPatterns)
			}
		}
	}
	if !found {
		t.Error("no contradiction alert for critical_ear + music_optimist")
	}
}

func TestCompareRatingStyleShift(t *testing.T) {
	prev := BuildSnapshot(ratedEvents(10, 8), nil, driftNow.Add(-24*time.Hour))
	next := BuildSnapshot(ratedEvents(10, 4), nil, driftNow)

	alerts := Compare(&prev, next, nil, driftNow)
	found := false
	for _, a := range alerts {
		if a.Type == AlertRatingStyleShift {
			found = true
			// |8-4| / 5
			if a.Magnitude != 0.8 {
				t.Errorf("magnitude = %v, want 0.8", a.Magnitude)
			}
		}
	}
	if !found {
		t.Error("mean rating moved by 4 points without an alert")
	}
}

func TestCompareSignatureShift(t *testing.T) {
	quiet := ratedEvents(10, 7)
	for i := range quiet {
		quiet[i].Features = &taste.FeatureVector{Energy: 0.2, Tempo: 100}
	}
	loud := ratedEvents(10, 7)
	for i := range loud {
		loud[i].Features = &taste.FeatureVector{Energy: 0.9, Tempo: 100}
	}

	prev := BuildSnapshot(quiet, nil, driftNow.Add(-24*time.Hour))
	next := BuildSnapshot(loud, nil, driftNow)

	types := alertTypes(Compare(&prev, next, nil, driftNow))
	if types[AlertSignatureShift] == 0 {
		t.Error("energy moved 0.2 to 0.9 without a signature alert")
	}
}

func TestWindowGenreShift(t *testing.T) {
	// 30 older events in two genres, then 20 recent events in three new ones.
	var events []taste.RatingEvent
	for i := 0; i < 30; i++ {
		events = append(events, taste.RatingEvent{
			ID: int64(i), Rating: 7,
			Genres:    []string{"rock", "pop"},
			CreatedAt: driftNow.Add(time.Duration(i-200) * time.Hour),
		})
	}
	for i := 30; i < 50; i++ {
		events = append(events, taste.RatingEvent{
			ID: int64(i), Rating: 7,
			Genres:    []string{"techno", "house", "ambient"},
			CreatedAt: driftNow.Add(time.Duration(i-50) * time.Hour),
		})
	}

	prev := BuildSnapshot(events[:30], nil, driftNow.Add(-24*time.Hour))
	next := BuildSnapshot(events, nil, driftNow)
	types := alertTypes(Compare(&prev, next, events, driftNow))
	// Three genres appeared and two disappeared from the recent window.
	if types[AlertGenreShift] != 1 {
		t.Errorf("genre shift alerts = %d, want 1 (appeared only; 2 disappeared is under the threshold)", types[AlertGenreShift])
	}
}

func TestWindowAlertsNeedEnoughEvents(t *testing.T) {
	events := ratedEvents(24, 7)
	for i := range events {
		events[i].Genres = []string{fmt.Sprintf("g%d", i)}
	}
	prev := BuildSnapshot(events[:4], nil, driftNow.Add(-24*time.Hour))
	next := BuildSnapshot(events, nil, driftNow)
	for _, a := range Compare(&prev, next, events, driftNow) {
		if a.Type == AlertGenreShift || a.Type == AlertDescriptorShift {
			t.Errorf("window alert %s fired with only 24 events", a.Type)
		}
	}
}

func TestSignificant(t *testing.T) {
	a := Alert{Magnitude: 0.4}
	if !a.Significant() {
		t.Error("unacknowledged 0.4 should be significant")
	}
	a.Acknowledged = true
	if a.Significant() {
		t.Error("acknowledged alert should not be significant")
	}
	b := Alert{Magnitude: 0.2}
	if b.Significant() {
		t.Error("0.2 magnitude should not be significant")
	}
}

func TestAppendAlertsRing(t *testing.T) {
	var ring []Alert
	for i := 0; i < 130; i++ {
		ring = AppendAlerts(ring, Alert{ID: fmt.Sprintf("a-%d", i)})
	}
	if len(ring) != 100 {
		t.Fatalf("ring length = %d, want 100", len(ring))
	}
	if ring[0].ID != "a-30" {
		t.Errorf("oldest kept = %s, want a-30", ring[0].ID)
	}
	if ring[99].ID != "a-129" {
		t.Errorf("newest = %s, want a-129", ring[99].ID)
	}
}

func TestSkewLabels(t *testing.T) {
	// Mostly high ratings with a low tail skew negative.
	events := append(ratedEvents(12, 9), taste.RatingEvent{ID: 99, Rating: 1, CreatedAt: driftNow})
	snap := BuildSnapshot(events, nil, driftNow)
	if snap.RatingStyle.SkewLabel != "negative" {
		t.Errorf("SkewLabel = %s, want negative", snap.RatingStyle.SkewLabel)
	}

	flat := BuildSnapshot(ratedEvents(10, 7), nil, driftNow)
	if flat.RatingStyle.SkewLabel != "balanced" {
		t.Errorf("SkewLabel = %s, want balanced for flat ratings", flat.RatingStyle.SkewLabel)
	}
}
