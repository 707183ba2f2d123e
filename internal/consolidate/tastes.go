package consolidate

import (
	"math"
	"sort"
	"time"

	"github.com/calsper/tasteline/internal/taste"
)

type TasteType string

const (
	TasteGenre      TasteType = "genre"
	TasteArtist     TasteType = "artist"
	TasteDescriptor TasteType = "descriptor"
)

type Trend string

const (
	TrendStrengthening Trend = "strengthening"
	TrendFading        Trend = "fading"
	TrendStable        Trend = "stable"
)

// ConsolidatedTaste is one genre/artist/descriptor preference with its
// recent-vs-historical trajectory. The full set is recomputed fresh on
// every run; nothing here is updated incrementally.
type ConsolidatedTaste struct {
	Name         string    `json:"name"`
	Type         TasteType `json:"type"`
	Trend        Trend     `json:"trend"`
	RecentAvg    float64   `json:"recent_avg"`
	OlderAvg     float64   `json:"older_avg"`
	TotalReviews int       `json:"total_reviews"`
	Confidence   float64   `json:"confidence"`
}

const (
	// recentWindow partitions history for trend classification.
	recentWindow = 180 * 24 * time.Hour
	// qualifyAvg and qualifyCount gate which names count as tastes.
	qualifyAvg   = 6.0
	qualifyCount = 2
	// trendDelta is how far recent must move from older to leave stable.
	trendDelta = 0.5
)

// Tastes recomputes the consolidated taste list from scratch.
func Tastes(events []taste.RatingEvent, now time.Time) []ConsolidatedTaste {
	cutoff := now.Add(-recentWindow)

	var out []ConsolidatedTaste
	out = append(out, consolidateBy(events, cutoff, TasteGenre, func(e taste.RatingEvent) []string { return e.Genres })...)
	out = append(out, consolidateBy(events, cutoff, TasteArtist, func(e taste.RatingEvent) []string { return []string{e.Artist} })...)
	out = append(out, consolidateBy(events, cutoff, TasteDescriptor, func(e taste.RatingEvent) []string { return e.Descriptors })...)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func consolidateBy(events []taste.RatingEvent, cutoff time.Time, typ TasteType, pick func(taste.RatingEvent) []string) []ConsolidatedTaste {
	type bucket struct {
		recentSum, olderSum     float64
		recentCount, olderCount int
	}
	buckets := make(map[string]*bucket)
	for _, e := range events {
		for _, name := range pick(e) {
			if name == "" {
				continue
			}
			b := buckets[name]
			if b == nil {
				b = &bucket{}
				buckets[name] = b
			}
			if e.CreatedAt.After(cutoff) {
				b.recentSum += e.Rating
				b.recentCount++
			} else {
				b.olderSum += e.Rating
				b.olderCount++
			}
		}
	}

	var out []ConsolidatedTaste
	for name, b := range buckets {
		total := b.recentCount + b.olderCount
		if total < qualifyCount {
			continue
		}
		combinedAvg := (b.recentSum + b.olderSum) / float64(total)
		if combinedAvg < qualifyAvg {
			continue
		}

		recentAvg := 0.0
		if b.recentCount > 0 {
			recentAvg = b.recentSum / float64(b.recentCount)
		}
		olderAvg := 0.0
		if b.olderCount > 0 {
			olderAvg = b.olderSum / float64(b.olderCount)
		}

		trend := TrendStable
		switch {
		case b.olderCount == 0 || b.recentCount == 0:
			// One-sided history cannot demonstrate movement.
		case recentAvg-olderAvg > trendDelta:
			trend = TrendStrengthening
		case recentAvg-olderAvg < -trendDelta:
			trend = TrendFading
		}

		out = append(out, ConsolidatedTaste{
			Name:         name,
			Type:         typ,
			Trend:        trend,
			RecentAvg:    recentAvg,
			OlderAvg:     olderAvg,
			TotalReviews: total,
			Confidence:   math.Min(1, float64(total)/10) * (combinedAvg / 10),
		})
	}
	return out
}
