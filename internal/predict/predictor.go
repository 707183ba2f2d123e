// Package predict estimates how a user will rate a candidate track from
// their acoustic fingerprint, and classifies realized outcomes.
package predict

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/calsper/tasteline/internal/taste"
)

// Prediction is produced per item-of-interest and consumed once the real
// rating arrives.
type Prediction struct {
	ID                   string    `json:"id"`
	User                 string    `json:"user"`
	Item                 string    `json:"item"`
	Predicted            float64   `json:"predicted"`
	Confidence           float64   `json:"confidence"`
	RangeLow             float64   `json:"range_low"`
	RangeHigh            float64   `json:"range_high"`
	SuggestedDescriptors []string  `json:"suggested_descriptors,omitempty"`
	Reasoning            []string  `json:"reasoning"`
	HasFeatures          bool      `json:"has_features"`
	CreatedAt            time.Time `json:"created_at"`
}

const (
	neutralRating = 5.5

	// similarItem knobs: how much history the neighbor search sees, how
	// many neighbors vote, and how many are needed to vote at all.
	similarHistory   = 50
	similarTopK      = 10
	similarMinItems  = 3
	similarSteepness = 5.0

	// combination weights, with and without a similar-item estimate.
	weightSimilarityFull = 0.25
	weightRegressionFull = 0.35
	weightNeighborsFull  = 0.40
	weightSimilarityBare = 0.40
	weightRegressionBare = 0.60
)

// Predict runs the three predictors and combines them. features may be
// nil when the catalog could not supply a vector; the estimate then
// degrades to the user's recent rating level and confidence floors. The
// seed drives only the reasoning phrasing.
func Predict(model *taste.PreferenceModel, item string, features *taste.FeatureVector, history []taste.RatingEvent, seed int64, now time.Time) Prediction {
	confidence := confidence(model, features != nil)
	recent := lastFeatured(history, similarHistory)

	var predicted float64
	if features != nil {
		a := featureSimilarity(model, features)
		b := correlationRegression(model.Correlations, features)
		c, ok := similarItemAverage(features, recent)
		if ok {
			predicted = weightSimilarityFull*(a*10) + weightRegressionFull*b + weightNeighborsFull*c
		} else {
			predicted = weightSimilarityBare*(a*10) + weightRegressionBare*b
		}
	} else {
		predicted = recentLevel(recent)
	}
	predicted = taste.Round1(taste.Clamp(predicted, 0, 10))

	halfWidth := 1.0 + (1-confidence)*3.0

	p := Prediction{
		ID:          uuid.NewString(),
		User:        model.User,
		Item:        item,
		Predicted:   predicted,
		Confidence:  confidence,
		RangeLow:    taste.Clamp(predicted-halfWidth, 0, 10),
		RangeHigh:   taste.Clamp(predicted+halfWidth, 0, 10),
		HasFeatures: features != nil,
		CreatedAt:   now,
	}
	if features != nil {
		p.SuggestedDescriptors = SuggestDescriptors(features)
	}
	p.Reasoning = Reasoning(model, features, confidence, seed)
	return p
}

// confidence scores how much the estimate can be trusted, bounded to
// [0.1, 0.95]. It grows with resolved predictions, realized accuracy and
// correlation strength, and drops to near the floor without features.
func confidence(model *taste.PreferenceModel, hasFeatures bool) float64 {
	c := math.Min(0.25, float64(model.TotalPredictions)/100*0.25)
	c += model.Accuracy() * 0.35
	if hasFeatures {
		c += 0.2
	} else {
		c += 0.05
	}
	c += model.Correlations.MeanAbs() * 0.2
	return taste.Clamp(c, 0.1, 0.95)
}

// featureSimilarity scores [0,1] how close the track sits to each
// learned sweet spot, averaged by each range's learned weight.
func featureSimilarity(model *taste.PreferenceModel, f *taste.FeatureVector) float64 {
	type dim struct {
		r     taste.FeatureRange
		value float64
	}
	dims := []dim{
		{model.Energy, f.Energy},
		{model.Valence, f.Valence},
		{model.Danceability, f.Danceability},
		{model.Acousticness, f.Acousticness},
		{model.Tempo, f.Tempo},
	}

	var scores, weights []float64
	for _, d := range dims {
		width := d.r.Max - d.r.Min
		if width <= 0 {
			width = 0.1
		}
		scores = append(scores, math.Max(0, 1-math.Abs(d.value-d.r.SweetSpot)/width))
		weights = append(weights, d.r.Weight)
	}
	return taste.WeightedMean(scores, weights)
}

// correlationRegression nudges a neutral baseline by each feature's
// deviation from center, scaled by the learned correlation.
func correlationRegression(c taste.FeatureCorrelations, f *taste.FeatureVector) float64 {
	score := neutralRating
	score += (f.Energy - 0.5) * c.Energy * 2
	score += (f.Valence - 0.5) * c.Valence * 2
	score += (f.Danceability - 0.5) * c.Danceability * 2
	score += (f.Acousticness - 0.5) * c.Acousticness * 2
	score += (f.Tempo/200 - 0.5) * c.Tempo * 2
	score += (normalizeLoudness(f.Loudness) - 0.5) * c.Loudness * 2
	return taste.Clamp(score, 0, 10)
}

// normalizeLoudness maps typical track loudness (-60..0 dB) onto [0,1].
func normalizeLoudness(db float64) float64 {
	return taste.Clamp((db+60)/60, 0, 1)
}

// similarItemAverage finds the user's most acoustically similar rated
// tracks and averages their ratings weighted by similarity. It needs at
// least similarMinItems feature-bearing ratings to vote.
func similarItemAverage(f *taste.FeatureVector, recent []taste.RatingEvent) (float64, bool) {
	if len(recent) < similarMinItems {
		return 0, false
	}

	type neighbor struct {
		rating, similarity float64
	}
	neighbors := make([]neighbor, 0, len(recent))
	for _, e := range recent {
		d := featureDistance(f, e.Features)
		neighbors = append(neighbors, neighbor{
			rating:     e.Rating,
			similarity: 1 / (1 + similarSteepness*d),
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].similarity > neighbors[j].similarity
	})
	if len(neighbors) > similarTopK {
		neighbors = neighbors[:similarTopK]
	}

	var sum, weight float64
	for _, n := range neighbors {
		sum += n.rating * n.similarity
		weight += n.similarity
	}
	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}

func featureDistance(a, b *taste.FeatureVector) float64 {
	dims := [][2]float64{
		{a.Energy, b.Energy},
		{a.Valence, b.Valence},
		{a.Danceability, b.Danceability},
		{a.Acousticness, b.Acousticness},
		{a.Tempo / 200, b.Tempo / 200},
	}
	var sum float64
	for _, d := range dims {
		diff := d[0] - d[1]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// lastFeatured returns up to limit feature-bearing events, newest side
// of the history.
func lastFeatured(history []taste.RatingEvent, limit int) []taste.RatingEvent {
	sorted := make([]taste.RatingEvent, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var out []taste.RatingEvent
	for i := len(sorted) - 1; i >= 0 && len(out) < limit; i-- {
		if sorted[i].Features != nil {
			out = append(out, sorted[i])
		}
	}
	return out
}

// recentLevel is the featureless fallback: the user's recent average, or
// neutral with nothing to go on.
func recentLevel(recent []taste.RatingEvent) float64 {
	if len(recent) < similarMinItems {
		return neutralRating
	}
	ratings := make([]float64, len(recent))
	for i, e := range recent {
		ratings[i] = e.Rating
	}
	return taste.Mean(ratings)
}
