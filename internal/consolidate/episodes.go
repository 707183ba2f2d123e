// Package consolidate segments rating history into listening episodes
// and classifies long-run taste trends against recent behavior.
package consolidate

import (
	"fmt"
	"sort"
	"time"

	"github.com/calsper/tasteline/internal/patterns"
	"github.com/calsper/tasteline/internal/taste"
)

const (
	// episodeGap splits a new episode when consecutive events sit more
	// than this far apart.
	episodeGap = 6 * time.Hour
	// minEpisodeEvents discards trivial episodes.
	minEpisodeEvents = 2
	// maxEpisodes bounds the rolling window; oldest evicted.
	maxEpisodes = 50

	maxGenreFocus  = 5
	maxArtistFocus = 3
)

// Episode is one burst of temporally-clustered rating activity.
type Episode struct {
	ID               string    `json:"id"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	EventIDs         []int64   `json:"event_ids"`
	PatternsDetected []string  `json:"patterns_detected"`
	EmotionalTone    float64   `json:"emotional_tone"`
	GenreFocus       []string  `json:"genre_focus"`
	ArtistFocus      []string  `json:"artist_focus"`
	AvgRating        float64   `json:"avg_rating"`
	RatingVariance   float64   `json:"rating_variance"`
}

// Episodes segments events by time gap, drops episodes below the
// minimum size, and keeps only the most recent maxEpisodes. Episode ids
// derive from the start timestamp so rebuilding from the same log yields
// the same ids.
func Episodes(events []taste.RatingEvent) []Episode {
	if len(events) == 0 {
		return nil
	}

	sorted := make([]taste.RatingEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var groups [][]taste.RatingEvent
	current := []taste.RatingEvent{sorted[0]}
	for _, e := range sorted[1:] {
		if e.CreatedAt.Sub(current[len(current)-1].CreatedAt) > episodeGap {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, e)
	}
	groups = append(groups, current)

	var episodes []Episode
	for _, group := range groups {
		if len(group) < minEpisodeEvents {
			continue
		}
		episodes = append(episodes, summarize(group))
	}

	if len(episodes) > maxEpisodes {
		episodes = episodes[len(episodes)-maxEpisodes:]
	}
	return episodes
}

func summarize(group []taste.RatingEvent) Episode {
	ratings := make([]float64, len(group))
	ids := make([]int64, len(group))
	for i, e := range group {
		ratings[i] = e.Rating
		ids[i] = e.ID
	}
	mean := taste.Mean(ratings)
	sd := taste.StdDev(ratings)

	var detected []string
	for _, d := range patterns.Detect(group) {
		detected = append(detected, d.ID)
	}
	sort.Strings(detected)

	return Episode{
		ID:               fmt.Sprintf("ep-%d", group[0].CreatedAt.Unix()),
		StartTime:        group[0].CreatedAt,
		EndTime:          group[len(group)-1].CreatedAt,
		EventIDs:         ids,
		PatternsDetected: detected,
		EmotionalTone:    (mean - 5) / 5,
		GenreFocus:       topCounted(group, maxGenreFocus, func(e taste.RatingEvent) []string { return e.Genres }),
		ArtistFocus:      topCounted(group, maxArtistFocus, func(e taste.RatingEvent) []string { return []string{e.Artist} }),
		AvgRating:        mean,
		RatingVariance:   sd * sd,
	}
}

func topCounted(group []taste.RatingEvent, limit int, pick func(taste.RatingEvent) []string) []string {
	counts := make(map[string]int)
	for _, e := range group {
		for _, v := range pick(e) {
			if v == "" {
				continue
			}
			counts[v]++
		}
	}

	type kv struct {
		key   string
		count int
	}
	pairs := make([]kv, 0, len(counts))
	for k, c := range counts {
		pairs = append(pairs, kv{k, c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].key < pairs[j].key
	})

	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.key
	}
	return out
}
