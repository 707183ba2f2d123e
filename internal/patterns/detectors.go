package patterns

import (
	"sort"
	"time"

	"github.com/calsper/tasteline/internal/taste"
)

// minEventsForDetection gates all detectors: under five ratings nothing
// fires.
const minEventsForDetection = 5

type detector func(events []taste.RatingEvent) *Detection

var detectors = []detector{
	detectCriticalEar,
	detectMusicOptimist,
	detectPolarizedTaste,
	detectPerfectionSeeker,
	detectGenreExplorer,
	detectNewReleaseHunter,
	detectArchiveDiver,
	detectDiscographyCompletionist,
	detectDeepDiveSprints,
	detectEmotionalListener,
	detectDiscoveryComfortOscillation,
}

// Detect runs every detector over the history, oldest first. Each
// detector yields at most one detection.
func Detect(events []taste.RatingEvent) []Detection {
	if len(events) < minEventsForDetection {
		return nil
	}

	sorted := make([]taste.RatingEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var out []Detection
	for _, d := range detectors {
		if det := d(sorted); det != nil {
			det.Confidence = taste.Clamp(det.Confidence, 0, 1)
			out = append(out, *det)
		}
	}
	return out
}

func ratingsOf(events []taste.RatingEvent) []float64 {
	out := make([]float64, len(events))
	for i, e := range events {
		out[i] = e.Rating
	}
	return out
}

func detectCriticalEar(events []taste.RatingEvent) *Detection {
	if len(events) < 15 {
		return nil
	}
	mean := taste.Mean(ratingsOf(events))
	if mean >= 5.5 {
		return nil
	}
	return &Detection{
		ID:         "critical_ear",
		Name:       "Critical Ear",
		Category:   CategoryRating,
		Confidence: 0.5 + (5.5-mean)/5,
	}
}

func detectMusicOptimist(events []taste.RatingEvent) *Detection {
	if len(events) < 15 {
		return nil
	}
	mean := taste.Mean(ratingsOf(events))
	if mean <= 7.5 {
		return nil
	}
	return &Detection{
		ID:         "music_optimist",
		Name:       "Music Optimist",
		Category:   CategoryRating,
		Confidence: 0.5 + (mean-7.5)/5,
	}
}

func detectPolarizedTaste(events []taste.RatingEvent) *Detection {
	var extreme, middle int
	for _, e := range events {
		switch {
		case e.Rating <= 4 || e.Rating >= 8:
			extreme++
		default:
			middle++
		}
	}
	n := float64(len(events))
	extremeShare := float64(extreme) / n
	middleShare := float64(middle) / n
	if extremeShare <= 0.7 || middleShare >= 0.3 {
		return nil
	}
	return &Detection{
		ID:         "polarized_taste",
		Name:       "Polarized Taste",
		Category:   CategoryRating,
		Confidence: extremeShare,
	}
}

func detectPerfectionSeeker(events []taste.RatingEvent) *Detection {
	var tens, nines int
	for _, e := range events {
		switch {
		case e.Rating == 10:
			tens++
		case e.Rating >= 9:
			nines++
		}
	}
	if tens <= nines || tens < 3 {
		return nil
	}
	return &Detection{
		ID:         "perfection_seeker",
		Name:       "Perfection Seeker",
		Category:   CategoryRating,
		Confidence: 0.4 + 0.1*float64(tens),
	}
}

func detectGenreExplorer(events []taste.RatingEvent) *Detection {
	if len(events) < 10 {
		return nil
	}
	genres := make(map[string]struct{})
	for _, e := range events {
		for _, g := range e.Genres {
			genres[g] = struct{}{}
		}
	}
	share := float64(len(genres)) / float64(len(events))
	if share <= 0.5 {
		return nil
	}
	return &Detection{
		ID:         "genre_explorer",
		Name:       "Genre Explorer",
		Category:   CategoryDiscovery,
		Confidence: share,
	}
}

func detectNewReleaseHunter(events []taste.RatingEvent) *Detection {
	if len(events) < 10 {
		return nil
	}
	ages := make([]float64, len(events))
	for i, e := range events {
		ages[i] = e.ItemAgeYears
	}
	meanAge := taste.Mean(ages)
	if meanAge >= 2 {
		return nil
	}
	return &Detection{
		ID:         "new_release_hunter",
		Name:       "New Release Hunter",
		Category:   CategoryDiscovery,
		Confidence: 1 - meanAge/4,
	}
}

func detectArchiveDiver(events []taste.RatingEvent) *Detection {
	if len(events) < 15 {
		return nil
	}
	ages := make([]float64, len(events))
	for i, e := range events {
		ages[i] = e.ItemAgeYears
	}
	meanAge := taste.Mean(ages)
	if meanAge <= 15 {
		return nil
	}
	return &Detection{
		ID:         "archive_diver",
		Name:       "Archive Diver",
		Category:   CategoryDiscovery,
		Confidence: meanAge / 30,
	}
}

func detectDiscographyCompletionist(events []taste.RatingEvent) *Detection {
	counts := make(map[string]int)
	max := 0
	for _, e := range events {
		if e.Artist == "" {
			continue
		}
		counts[e.Artist]++
		if counts[e.Artist] > max {
			max = counts[e.Artist]
		}
	}
	if max < 5 {
		return nil
	}
	return &Detection{
		ID:         "discography_completionist",
		Name:       "Discography Completionist",
		Category:   CategoryEngagement,
		Confidence: float64(max) / 10,
	}
}

// detectDeepDiveSprints looks for any 5-event sliding window where one
// artist accounts for at least 3 events landing within 7 days.
func detectDeepDiveSprints(events []taste.RatingEvent) *Detection {
	const window = 5
	const sprintSpan = 7 * 24 * time.Hour

	sprints := 0
	for i := 0; i+window <= len(events); i++ {
		byArtist := make(map[string][]time.Time)
		for _, e := range events[i : i+window] {
			if e.Artist == "" {
				continue
			}
			byArtist[e.Artist] = append(byArtist[e.Artist], e.CreatedAt)
		}
		for _, times := range byArtist {
			if len(times) < 3 {
				continue
			}
			if times[len(times)-1].Sub(times[0]) <= sprintSpan {
				sprints++
				break
			}
		}
	}
	if sprints == 0 {
		return nil
	}
	return &Detection{
		ID:         "deep_dive_sprints",
		Name:       "Deep Dive Sprints",
		Category:   CategoryEngagement,
		Confidence: 0.4 + 0.1*float64(sprints),
	}
}

func detectEmotionalListener(events []taste.RatingEvent) *Detection {
	if len(events) < 10 {
		return nil
	}
	sd := taste.StdDev(ratingsOf(events))
	if sd <= 2.5 {
		return nil
	}
	return &Detection{
		ID:         "emotional_listener",
		Name:       "Emotional Listener",
		Category:   CategorySignature,
		Confidence: sd / 4,
	}
}

// detectDiscoveryComfortOscillation counts switches between events whose
// genres are all new to the user and events on already-familiar ground.
func detectDiscoveryComfortOscillation(events []taste.RatingEvent) *Detection {
	if len(events) < 10 {
		return nil
	}

	seen := make(map[string]struct{})
	alternations := 0
	var prevDiscovery *bool
	for _, e := range events {
		if len(e.Genres) == 0 {
			continue
		}
		discovery := true
		for _, g := range e.Genres {
			if _, ok := seen[g]; ok {
				discovery = false
				break
			}
		}
		for _, g := range e.Genres {
			seen[g] = struct{}{}
		}
		if prevDiscovery != nil && *prevDiscovery != discovery {
			alternations++
		}
		d := discovery
		prevDiscovery = &d
	}
	if alternations < 5 {
		return nil
	}
	return &Detection{
		ID:         "discovery_comfort_oscillation",
		Name:       "Discovery/Comfort Oscillation",
		Category:   CategorySignature,
		Confidence: float64(alternations) / 10,
	}
}
