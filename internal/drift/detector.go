// Package drift diffs successive snapshots of a user's listening profile
// and raises alerts when the profile moves or contradicts itself.
package drift

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/calsper/tasteline/internal/taste"
)

// SignatureDims labels the 7 dimensions of the listening signature.
var SignatureDims = [7]string{
	"energy", "valence", "danceability", "acousticness",
	"tempo", "genre_diversity", "rating_level",
}

// RatingStyle captures the shape of a user's rating distribution.
type RatingStyle struct {
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Skew      float64 `json:"skew"`
	SkewLabel string  `json:"skew_label"`
}

// Snapshot is the persisted state the next run diffs against.
type Snapshot struct {
	ActivePatternIDs []string    `json:"active_pattern_ids"`
	Signature        [7]float64  `json:"signature"`
	RatingStyle      RatingStyle `json:"rating_style"`
	TakenAt          time.Time   `json:"taken_at"`
}

// Alert types.
const (
	AlertPatternEmerged     = "pattern_emerged"
	AlertPatternDisappeared = "pattern_disappeared"
	AlertContradiction      = "contradiction"
	AlertSignatureShift     = "signature_shift"
	AlertRatingStyleShift   = "rating_style_shift"
	AlertDescriptorShift    = "descriptor_shift"
	AlertGenreShift         = "genre_shift"
)

// Alert is one detected change, held in a capacity-bounded ring.
type Alert struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	Description      string    `json:"description"`
	Magnitude        float64   `json:"magnitude"`
	OldValue         string    `json:"old_value"`
	NewValue         string    `json:"new_value"`
	AffectedPatterns []string  `json:"affected_patterns,omitempty"`
	DetectedAt       time.Time `json:"detected_at"`
	Acknowledged     bool      `json:"acknowledged"`
}

// Significant reports whether the alert should surface prominently.
func (a Alert) Significant() bool {
	return a.Magnitude >= 0.3 && !a.Acknowledged
}

// contradictions lists pattern pairs that should not hold at once.
var contradictions = [][2]string{
	{"critical_ear", "music_optimist"},
	{"new_release_hunter", "archive_diver"},
	{"genre_explorer", "discography_completionist"},
}

const (
	signatureShiftThreshold  = 0.15
	ratingMeanShiftThreshold = 0.5
	descriptorFreqThreshold  = 0.2
	genreShiftCount          = 3
	// recentWindowEvents splits history for the descriptor and genre
	// window comparisons.
	recentWindowEvents = 20
)

// BuildSnapshot derives the snapshot for the current state of history.
func BuildSnapshot(events []taste.RatingEvent, activeIDs []string, now time.Time) Snapshot {
	ratings := make([]float64, len(events))
	for i, e := range events {
		ratings[i] = e.Rating
	}
	mean := taste.Mean(ratings)
	skew := taste.Skewness(ratings)

	ids := make([]string, len(activeIDs))
	copy(ids, activeIDs)
	sort.Strings(ids)

	return Snapshot{
		ActivePatternIDs: ids,
		Signature:        signature(events),
		RatingStyle: RatingStyle{
			Mean:      mean,
			StdDev:    taste.StdDev(ratings),
			Skew:      skew,
			SkewLabel: skewLabel(skew),
		},
		TakenAt: now,
	}
}

func skewLabel(skew float64) string {
	switch {
	case skew > 0.5:
		return "positive"
	case skew < -0.5:
		return "negative"
	default:
		return "balanced"
	}
}

func signature(events []taste.RatingEvent) [7]float64 {
	var sig [7]float64
	var featured int
	genres := make(map[string]struct{})
	var ratingSum float64
	for _, e := range events {
		if e.Features != nil {
			sig[0] += e.Features.Energy
			sig[1] += e.Features.Valence
			sig[2] += e.Features.Danceability
			sig[3] += e.Features.Acousticness
			sig[4] += e.Features.Tempo / 200
			featured++
		}
		for _, g := range e.Genres {
			genres[g] = struct{}{}
		}
		ratingSum += e.Rating
	}
	if featured > 0 {
		for i := 0; i < 5; i++ {
			sig[i] /= float64(featured)
		}
	}
	if len(events) > 0 {
		sig[5] = math.Min(1, float64(len(genres))/float64(len(events)))
		sig[6] = ratingSum / float64(len(events)) / 10
	}
	return sig
}

// Compare diffs the previous snapshot against the next one and scans the
// recent/older event windows for descriptor and genre movement. A nil
// prev (first run) yields no alerts.
func Compare(prev *Snapshot, next Snapshot, events []taste.RatingEvent, now time.Time) []Alert {
	if prev == nil {
		return nil
	}

	var alerts []Alert
	add := func(typ, desc string, magnitude float64, oldV, newV string, affected []string) {
		alerts = append(alerts, Alert{
			ID:               uuid.NewString(),
			Type:             typ,
			Description:      desc,
			Magnitude:        taste.Clamp(magnitude, 0, 1),
			OldValue:         oldV,
			NewValue:         newV,
			AffectedPatterns: affected,
			DetectedAt:       now,
		})
	}

	prevSet := toSet(prev.ActivePatternIDs)
	nextSet := toSet(next.ActivePatternIDs)
	for _, id := range next.ActivePatternIDs {
		if _, ok := prevSet[id]; !ok {
			add(AlertPatternEmerged, fmt.Sprintf("pattern %q emerged", id), 0.4, "", id, []string{id})
		}
	}
	for _, id := range prev.ActivePatternIDs {
		if _, ok := nextSet[id]; !ok {
			add(AlertPatternDisappeared, fmt.Sprintf("pattern %q disappeared", id), 0.5, id, "", []string{id})
		}
	}

	for _, pair := range contradictions {
		if _, ok := nextSet[pair[0]]; !ok {
			continue
		}
		if _, ok := nextSet[pair[1]]; !ok {
			continue
		}
		add(AlertContradiction,
			fmt.Sprintf("patterns %q and %q are active simultaneously", pair[0], pair[1]),
			0.7, "", "", []string{pair[0], pair[1]})
	}

	for i, dim := range SignatureDims {
		delta := next.Signature[i] - prev.Signature[i]
		if math.Abs(delta) > signatureShiftThreshold {
			add(AlertSignatureShift,
				fmt.Sprintf("listening signature %s moved by %+.2f", dim, delta),
				math.Abs(delta),
				fmt.Sprintf("%.2f", prev.Signature[i]),
				fmt.Sprintf("%.2f", next.Signature[i]), nil)
		}
	}

	meanDelta := next.RatingStyle.Mean - prev.RatingStyle.Mean
	if math.Abs(meanDelta) > ratingMeanShiftThreshold {
		add(AlertRatingStyleShift,
			fmt.Sprintf("mean rating moved by %+.2f", meanDelta),
			math.Abs(meanDelta)/5,
			fmt.Sprintf("%.2f", prev.RatingStyle.Mean),
			fmt.Sprintf("%.2f", next.RatingStyle.Mean), nil)
	}
	if prev.RatingStyle.SkewLabel != next.RatingStyle.SkewLabel {
		add(AlertRatingStyleShift,
			fmt.Sprintf("rating skew shifted from %s to %s", prev.RatingStyle.SkewLabel, next.RatingStyle.SkewLabel),
			0.4, prev.RatingStyle.SkewLabel, next.RatingStyle.SkewLabel, nil)
	}

	alerts = append(alerts, windowAlerts(events, now)...)
	return alerts
}

// windowAlerts compares the most recent events against everything
// before them for descriptor-frequency and genre-set movement. Both
// windows need enough events to carry a signal.
func windowAlerts(events []taste.RatingEvent, now time.Time) []Alert {
	if len(events) < recentWindowEvents+5 {
		return nil
	}

	sorted := make([]taste.RatingEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	older := sorted[:len(sorted)-recentWindowEvents]
	recent := sorted[len(sorted)-recentWindowEvents:]

	var alerts []Alert

	oldFreq := descriptorFreq(older)
	newFreq := descriptorFreq(recent)
	for _, d := range unionKeys(oldFreq, newFreq) {
		delta := newFreq[d] - oldFreq[d]
		if math.Abs(delta) > descriptorFreqThreshold {
			alerts = append(alerts, Alert{
				ID:          uuid.NewString(),
				Type:        AlertDescriptorShift,
				Description: fmt.Sprintf("descriptor %q usage moved by %+.2f", d, delta),
				Magnitude:   taste.Clamp(math.Abs(delta), 0, 1),
				OldValue:    fmt.Sprintf("%.2f", oldFreq[d]),
				NewValue:    fmt.Sprintf("%.2f", newFreq[d]),
				DetectedAt:  now,
			})
		}
	}

	oldGenres := genreSet(older)
	newGenres := genreSet(recent)
	appeared := setDiff(newGenres, oldGenres)
	disappeared := setDiff(oldGenres, newGenres)
	if len(appeared) >= genreShiftCount {
		alerts = append(alerts, Alert{
			ID:          uuid.NewString(),
			Type:        AlertGenreShift,
			Description: fmt.Sprintf("%d new genres entered the rotation", len(appeared)),
			Magnitude:   taste.Clamp(0.3+0.05*float64(len(appeared)), 0, 1),
			NewValue:    fmt.Sprintf("%v", appeared),
			DetectedAt:  now,
		})
	}
	if len(disappeared) >= genreShiftCount {
		alerts = append(alerts, Alert{
			ID:          uuid.NewString(),
			Type:        AlertGenreShift,
			Description: fmt.Sprintf("%d genres left the rotation", len(disappeared)),
			Magnitude:   taste.Clamp(0.3+0.05*float64(len(disappeared)), 0, 1),
			OldValue:    fmt.Sprintf("%v", disappeared),
			DetectedAt:  now,
		})
	}
	return alerts
}

func descriptorFreq(events []taste.RatingEvent) map[string]float64 {
	freq := make(map[string]float64)
	if len(events) == 0 {
		return freq
	}
	for _, e := range events {
		for _, d := range e.Descriptors {
			freq[d]++
		}
	}
	for d := range freq {
		freq[d] /= float64(len(events))
	}
	return freq
}

func genreSet(events []taste.RatingEvent) map[string]struct{} {
	set := make(map[string]struct{})
	for _, e := range events {
		for _, g := range e.Genres {
			set[g] = struct{}{}
		}
	}
	return set
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func unionKeys(a, b map[string]float64) []string {
	set := make(map[string]struct{})
	for k := range a {
		set[k] = struct{}{}
	}
	for k := range b {
		set[k] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setDiff(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// maxAlerts caps the persisted alert ring.
const maxAlerts = 100

// AppendAlerts appends to the ring, evicting oldest entries past the
// capacity.
func AppendAlerts(ring []Alert, alerts ...Alert) []Alert {
	ring = append(ring, alerts...)
	if len(ring) > maxAlerts {
		ring = ring[len(ring)-maxAlerts:]
	}
	return ring
}
