package predict

import (
	"math"
	"time"
)

// OutcomeClass grades a realized prediction.
type OutcomeClass string

const (
	OutcomePerfect  OutcomeClass = "perfect"
	OutcomeClose    OutcomeClass = "close"
	OutcomeMatch    OutcomeClass = "match"
	OutcomeSurprise OutcomeClass = "surprise"
	OutcomeMiss     OutcomeClass = "miss"
)

// Correct reports whether the class counts as a correct prediction for
// accuracy and streak purposes: match-or-better.
func (c OutcomeClass) Correct() bool {
	return c == OutcomePerfect || c == OutcomeClose || c == OutcomeMatch
}

// Outcome is the post-hoc result for one prediction, appended to the
// immutable prediction history.
type Outcome struct {
	PredictionID string       `json:"prediction_id"`
	Actual       float64      `json:"actual"`
	Diff         float64      `json:"diff"`
	Class        OutcomeClass `json:"class"`
	RecordedAt   time.Time    `json:"recorded_at"`
}

// Classify grades the prediction against the actual rating. The match
// and surprise thresholds widen as confidence drops, so an uncertain
// prediction is graded more charitably and surprises less easily.
func Classify(predicted, actual, confidence float64) OutcomeClass {
	diff := math.Abs(predicted - actual)
	matchThreshold := 1.0 + (1-confidence)*1.0
	surpriseThreshold := 2.0 + (1-confidence)*0.5

	switch {
	case diff <= 0.5:
		return OutcomePerfect
	case diff <= 1.0:
		return OutcomeClose
	case diff <= matchThreshold:
		return OutcomeMatch
	case diff > surpriseThreshold:
		return OutcomeSurprise
	default:
		return OutcomeMiss
	}
}

// NextStreak advances the consecutive-correct counters.
func NextStreak(current, longest int, class OutcomeClass) (int, int) {
	if class.Correct() {
		current++
		if current > longest {
			longest = current
		}
		return current, longest
	}
	return 0, longest
}
