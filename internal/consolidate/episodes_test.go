package consolidate

import (
	"fmt"
	"testing"
	"time"

	"github.com/calsper/tasteline/internal/taste"
)

var dayStart = time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)

func eventAtHours(id int, hours float64, rating float64) taste.RatingEvent {
	return taste.RatingEvent{
		ID:        int64(id),
		User:      "testuser",
		Item:      fmt.Sprintf("track-%d", id),
		Rating:    rating,
		CreatedAt: dayStart.Add(time.Duration(hours * float64(time.Hour))),
	}
}

func TestEpisodesSplitOnGap(t *testing.T) {
	// Two bursts around a gap well past six hours.
	evs := []taste.RatingEvent{
		eventAtHours(1, 0, 7),
		eventAtHours(2, 1, 8),
		eventAtHours(3, 2, 9),
		eventAtHours(4, 10, 4),
		eventAtHours(5, 11, 5),
	}

	eps := Episodes(evs)
	if len(eps) != 2 {
		t.Fatalf("got %d episodes, want 2", len(eps))
	}
	if got := len(eps[0].EventIDs); got != 3 {
		t.Errorf("first episode has %d events, want 3", got)
	}
	if got := len(eps[1].EventIDs); got != 2 {
		t.Errorf("second episode has %d events, want 2", got)
	}
}

func TestEpisodesDropSingletons(t *testing.T) {
	evs := []taste.RatingEvent{
		eventAtHours(1, 0, 7),
		eventAtHours(2, 20, 8), // isolated
		eventAtHours(3, 40, 6),
	}
	if eps := Episodes(evs); len(eps) != 0 {
		t.Errorf("got %d episodes from isolated events, want 0", len(eps))
	}
}

func TestEpisodesDeterministicIDs(t *testing.T) {
	evs := []taste.RatingEvent{
		eventAtHours(1, 0, 7),
		eventAtHours(2, 1, 8),
	}
	a := Episodes(evs)
	b := Episodes(evs)
	if a[0].ID != b[0].ID {
		t.Errorf("episode ids differ across rebuilds: %s vs %s", a[0].ID, b[0].ID)
	}
	want := fmt.Sprintf("ep-%d", dayStart.Unix())
	if a[0].ID != want {
		t.Errorf("episode id = %s, want %s", a[0].ID, want)
	}
}

func TestEpisodesBounded(t *testing.T) {
	var evs []taste.RatingEvent
	// 60 well-separated pairs.
	for i := 0; i < 60; i++ {
		day := float64(i) * 24
		evs = append(evs, eventAtHours(2*i, day, 7), eventAtHours(2*i+1, day+1, 8))
	}
	eps := Episodes(evs)
	if len(eps) != 50 {
		t.Fatalf("got %d episodes, want the 50 most recent", len(eps))
	}
	// The oldest episodes are the evicted ones.
	if eps[0].StartTime.Before(dayStart.Add(10 * 24 * time.Hour)) {
		t.Errorf("oldest kept episode starts %v, expected eviction of the first ten days", eps[0].StartTime)
	}
}

func TestEpisodeSummary(t *testing.T) {
	evs := []taste.RatingEvent{
		eventAtHours(1, 0, 9),
		eventAtHours(2, 1, 7),
	}
	evs[0].Genres = []string{"ambient"}
	evs[0].Artist = "Stars of the Lid"
	evs[1].Genres = []string{"ambient", "drone"}
	evs[1].Artist = "Stars of the Lid"

	eps := Episodes(evs)
	if len(eps) != 1 {
		t.Fatalf("got %d episodes, want 1", len(eps))
	}
	ep := eps[0]
	if ep.AvgRating != 8 {
		t.Errorf("AvgRating = %v, want 8", ep.AvgRating)
	}
	// Tone maps the 0-10 scale onto [-1,1].
	if ep.EmotionalTone != 0.6 {
		t.Errorf("EmotionalTone = %v, want 0.6", ep.EmotionalTone)
	}
	if ep.RatingVariance != 1 {
		t.Errorf("RatingVariance = %v, want 1", ep.RatingVariance)
	}
	if len(ep.GenreFocus) == 0 || ep.GenreFocus[0] != "ambient" {
		t.Errorf("GenreFocus = %v, want ambient first", ep.GenreFocus)
	}
	if len(ep.ArtistFocus) != 1 || ep.ArtistFocus[0] != "Stars of the Lid" {
		t.Errorf("ArtistFocus = %v", ep.ArtistFocus)
	}
}

func TestTastesQualification(t *testing.T) {
	now := dayStart.Add(24 * time.Hour)
	evs := []taste.RatingEvent{
		eventAtHours(1, 0, 9),
		eventAtHours(2, 1, 8),
		eventAtHours(3, 2, 3),
		eventAtHours(4, 3, 2),
	}
	evs[0].Genres = []string{"jazz"}
	evs[1].Genres = []string{"jazz"}
	evs[2].Genres = []string{"metalcore"}
	evs[3].Genres = []string{"metalcore"}

	tastes := Tastes(evs, now)
	if len(tastes) != 1 {
		t.Fatalf("got %d tastes, want 1 (only jazz qualifies): %+v", len(tastes), tastes)
	}
	got := tastes[0]
	if got.Name != "jazz" || got.Type != TasteGenre {
		t.Errorf("taste = %+v, want jazz/genre", got)
	}
	if got.TotalReviews != 2 {
		t.Errorf("TotalReviews = %d, want 2", got.TotalReviews)
	}
	// min(1, 2/10) * (8.5/10)
	want := 0.2 * 0.85
	if diff := got.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Confidence = %v, want %v", got.Confidence, want)
	}
}

func TestTastesTrend(t *testing.T) {
	now := dayStart
	old := func(id int, rating float64) taste.RatingEvent {
		e := eventAtHours(id, 0, rating)
		e.CreatedAt = now.Add(-300 * 24 * time.Hour)
		e.Genres = []string{"shoegaze"}
		return e
	}
	recent := func(id int, rating float64) taste.RatingEvent {
		e := eventAtHours(id, 0, rating)
		e.CreatedAt = now.Add(-10 * 24 * time.Hour)
		e.Genres = []string{"shoegaze"}
		return e
	}

	tastes := Tastes([]taste.RatingEvent{old(1, 6), old(2, 6), recent(3, 9), recent(4, 9)}, now)
	if len(tastes) != 1 || tastes[0].Trend != TrendStrengthening {
		t.Fatalf("want strengthening, got %+v", tastes)
	}

	tastes = Tastes([]taste.RatingEvent{old(1, 9), old(2, 9), recent(3, 6), recent(4, 6)}, now)
	if len(tastes) != 1 || tastes[0].Trend != TrendFading {
		t.Fatalf("want fading, got %+v", tastes)
	}

	// All history on one side of the window cannot show movement.
	tastes = Tastes([]taste.RatingEvent{recent(1, 9), recent(2, 6)}, now)
	if len(tastes) != 1 || tastes[0].Trend != TrendStable {
		t.Fatalf("want stable for one-sided history, got %+v", tastes)
	}
}
