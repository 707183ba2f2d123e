package predict

import (
	"fmt"
	"testing"
	"time"

	"github.com/calsper/tasteline/internal/taste"
)

var predictNow = time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)

func historyOf(n int, rating float64, f taste.FeatureVector) []taste.RatingEvent {
	out := make([]taste.RatingEvent, n)
	for i := range out {
		fv := f
		out[i] = taste.RatingEvent{
			ID:        int64(i),
			User:      "testuser",
			Item:      fmt.Sprintf("track-%d", i),
			Rating:    rating,
			Features:  &fv,
			CreatedAt: predictNow.Add(time.Duration(i-n) * time.Hour),
		}
	}
	return out
}

func TestPredictBounds(t *testing.T) {
	model := taste.NewPreferenceModel("testuser")
	f := &taste.FeatureVector{Energy: 0.9, Valence: 0.9, Danceability: 0.9, Tempo: 180, Loudness: -5}
	p := Predict(model, "track-x", f, nil, 1, predictNow)

	if p.Predicted < 0 || p.Predicted > 10 {
		t.Errorf("Predicted = %v outside [0,10]", p.Predicted)
	}
	if p.Confidence < 0.1 || p.Confidence > 0.95 {
		t.Errorf("Confidence = %v outside [0.1,0.95]", p.Confidence)
	}
	if p.RangeLow > p.Predicted || p.RangeHigh < p.Predicted {
		t.Errorf("range [%v,%v] does not bracket %v", p.RangeLow, p.RangeHigh, p.Predicted)
	}
	if !p.HasFeatures {
		t.Error("HasFeatures = false with a feature vector")
	}
	if p.ID == "" {
		t.Error("prediction id empty")
	}
}

func TestPredictConfidenceGrowsWithEvidence(t *testing.T) {
	blank := taste.NewPreferenceModel("testuser")
	seasoned := taste.NewPreferenceModel("testuser")
	seasoned.TotalPredictions = 80
	seasoned.CorrectPredictions = 64
	seasoned.Correlations.Energy = 0.7
	seasoned.Correlations.Danceability = 0.6

	f := &taste.FeatureVector{Energy: 0.7, Tempo: 120}
	pBlank := Predict(blank, "x", f, nil, 1, predictNow)
	pSeasoned := Predict(seasoned, "x", f, nil, 1, predictNow)

	if pSeasoned.Confidence <= pBlank.Confidence {
		t.Errorf("confidence did not grow with evidence: %v <= %v", pSeasoned.Confidence, pBlank.Confidence)
	}
	// More confidence, tighter range.
	if pSeasoned.RangeHigh-pSeasoned.RangeLow >= pBlank.RangeHigh-pBlank.RangeLow {
		t.Errorf("range did not tighten: [%v,%v] vs [%v,%v]",
			pSeasoned.RangeLow, pSeasoned.RangeHigh, pBlank.RangeLow, pBlank.RangeHigh)
	}
}

func TestPredictFeaturelessUsesRecentLevel(t *testing.T) {
	model := taste.NewPreferenceModel("testuser")
	history := historyOf(10, 8.5, taste.FeatureVector{Energy: 0.5, Tempo: 120})

	p := Predict(model, "mystery-track", nil, history, 1, predictNow)
	if p.HasFeatures {
		t.Error("HasFeatures = true without features")
	}
	if p.Predicted != 8.5 {
		t.Errorf("Predicted = %v, want the recent level 8.5", p.Predicted)
	}
	if len(p.SuggestedDescriptors) != 0 {
		t.Errorf("descriptors suggested without features: %v", p.SuggestedDescriptors)
	}
}

func TestPredictFeaturelessEmptyHistoryIsNeutral(t *testing.T) {
	model := taste.NewPreferenceModel("testuser")
	p := Predict(model, "mystery-track", nil, nil, 1, predictNow)
	if p.Predicted != 5.5 {
		t.Errorf("Predicted = %v, want neutral 5.5", p.Predicted)
	}
}

func TestPredictLeansOnSimilarItems(t *testing.T) {
	model := taste.NewPreferenceModel("testuser")
	liked := taste.FeatureVector{Energy: 0.8, Valence: 0.7, Danceability: 0.9, Tempo: 125}
	history := historyOf(20, 9, liked)

	near := &taste.FeatureVector{Energy: 0.8, Valence: 0.7, Danceability: 0.88, Tempo: 126}
	p := Predict(model, "similar-track", near, history, 1, predictNow)
	if p.Predicted < 6.5 {
		t.Errorf("Predicted = %v for a near-clone of uniformly loved tracks, want >= 6.5", p.Predicted)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		predicted, actual, confidence float64
		want                          OutcomeClass
	}{
		{8, 8, 0.9, OutcomePerfect},
		{8, 8.5, 0.9, OutcomePerfect},
		{8, 7.2, 0.9, OutcomeClose},
		{8, 6.9, 0.9, OutcomeMatch},   // threshold 1.1 at 0.9 confidence
		{8, 6.9, 0.2, OutcomeMatch},   // low confidence widens to 1.8
		{8, 6.1, 0.9, OutcomeMiss},     // 1.9 is past the 0.9-conf match band, under surprise
		{8, 5.8, 0.2, OutcomeMiss},     // 2.2 sits between the 0.2-conf match and surprise bounds
		{8, 4.9, 0.2, OutcomeSurprise}, // 3.1 past the 0.2-conf bound 2.4
		{8, 5.0, 0.9, OutcomeSurprise}, // 3.0 past the 0.9-conf bound 2.05
	}
	for _, c := range cases {
		got := Classify(c.predicted, c.actual, c.confidence)
		if got != c.want {
			t.Errorf("Classify(%v, %v, conf %v) = %s, want %s", c.predicted, c.actual, c.confidence, got, c.want)
		}
	}
}

func TestOutcomeCorrect(t *testing.T) {
	for _, c := range []struct {
		class OutcomeClass
		want  bool
	}{
		{OutcomePerfect, true},
		{OutcomeClose, true},
		{OutcomeMatch, true},
		{OutcomeMiss, false},
		{OutcomeSurprise, false},
	} {
		if got := c.class.Correct(); got != c.want {
			t.Errorf("%s.Correct() = %v, want %v", c.class, got, c.want)
		}
	}
}

func TestNextStreak(t *testing.T) {
	cur, longest := NextStreak(2, 5, OutcomeClose)
	if cur != 3 || longest != 5 {
		t.Errorf("NextStreak correct = (%d,%d), want (3,5)", cur, longest)
	}
	cur, longest = NextStreak(5, 5, OutcomePerfect)
	if cur != 6 || longest != 6 {
		t.Errorf("NextStreak record = (%d,%d), want (6,6)", cur, longest)
	}
	cur, longest = NextStreak(4, 6, OutcomeMiss)
	if cur != 0 || longest != 6 {
		t.Errorf("NextStreak miss = (%d,%d), want (0,6)", cur, longest)
	}
}

func TestSuggestDescriptorsNeedFeatures(t *testing.T) {
	energetic := &taste.FeatureVector{Energy: 0.95, Valence: 0.9, Danceability: 0.9, Tempo: 170, Loudness: -4}
	got := SuggestDescriptors(energetic)
	if len(got) == 0 {
		t.Fatal("no descriptors for an extreme feature vector")
	}
	if len(got) > 5 {
		t.Errorf("suggested %d descriptors, want at most 5", len(got))
	}
}

func TestReasoningDeterministic(t *testing.T) {
	model := taste.NewPreferenceModel("testuser")
	model.Correlations.Energy = 0.8
	f := &taste.FeatureVector{Energy: 0.9, Tempo: 120}

	a := Reasoning(model, f, 0.8, 42)
	b := Reasoning(model, f, 0.8, 42)
	if len(a) != len(b) {
		t.Fatalf("reasoning lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("reasoning differs at %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestReasoningLowConfidenceDisclaimer(t *testing.T) {
	model := taste.NewPreferenceModel("testuser")
	lines := Reasoning(model, nil, 0.15, 7)
	if len(lines) == 0 {
		t.Fatal("no reasoning at low confidence, want a disclaimer")
	}
}
