package taste

import (
	"math"
	"time"
)

// minFeatureEvents is how many feature-bearing ratings a user needs
// before any learning happens; below it the defaults stand.
const minFeatureEvents = 5

// minSweetSpotItems is how many liked items a feature needs before its
// sweet spot moves off the default.
const minSweetSpotItems = 3

// minDescriptorUses is how many rated items must carry a descriptor
// before it earns an entry in the descriptor map.
const minDescriptorUses = 3

// Learn recomputes the acoustic fingerprint from the full rating history.
// The prediction counters are carried over from prior verbatim; only the
// learned fields are replaced. Learn never mutates prior.
func Learn(events []RatingEvent, prior *PreferenceModel, now time.Time) *PreferenceModel {
	user := ""
	if prior != nil {
		user = prior.User
	} else if len(events) > 0 {
		user = events[0].User
	}

	model := NewPreferenceModel(user)
	if prior != nil {
		model.TotalPredictions = prior.TotalPredictions
		model.CorrectPredictions = prior.CorrectPredictions
		model.CurrentStreak = prior.CurrentStreak
		model.LongestStreak = prior.LongestStreak
		model.SurpriseCount = prior.SurpriseCount
		model.PredictionAccuracy = prior.PredictionAccuracy
		model.Version = prior.Version
	}
	model.UpdatedAt = now

	featured := withFeatures(events)
	if len(featured) >= minFeatureEvents {
		ratings := make([]float64, len(featured))
		for i, e := range featured {
			ratings[i] = e.Rating
		}

		model.Energy = learnRange(featured, ratings, func(f *FeatureVector) float64 { return f.Energy }, DefaultNormalizedRange())
		model.Valence = learnRange(featured, ratings, func(f *FeatureVector) float64 { return f.Valence }, DefaultNormalizedRange())
		model.Danceability = learnRange(featured, ratings, func(f *FeatureVector) float64 { return f.Danceability }, DefaultNormalizedRange())
		model.Acousticness = learnRange(featured, ratings, func(f *FeatureVector) float64 { return f.Acousticness }, DefaultNormalizedRange())
		model.Tempo = learnRange(featured, ratings, func(f *FeatureVector) float64 { return f.Tempo }, DefaultTempoRange())

		model.Correlations = learnCorrelations(featured, ratings)
		model.DescriptorMap = learnDescriptorMap(featured)
	}

	model.DecipherProgress = decipherProgress(
		model.Accuracy(),
		len(events),
		vibeConsistency(events),
		model.Correlations.MeanAbs(),
	)
	return model
}

func withFeatures(events []RatingEvent) []RatingEvent {
	var out []RatingEvent
	for _, e := range events {
		if e.Features != nil {
			out = append(out, e)
		}
	}
	return out
}

func learnRange(featured []RatingEvent, ratings []float64, pick func(*FeatureVector) float64, fallback FeatureRange) FeatureRange {
	r := fallback

	// Liked items only: weight scales with how far above neutral the
	// rating sits.
	var likedVals, likedWeights []float64
	for _, e := range featured {
		if e.Rating >= 6 {
			likedVals = append(likedVals, pick(e.Features))
			likedWeights = append(likedWeights, e.Rating-5)
		}
	}

	if len(likedVals) >= minSweetSpotItems {
		r.SweetSpot = WeightedMean(likedVals, likedWeights)
	}
	if len(likedVals) > 0 {
		r.Min = WeightedPercentile(likedVals, likedWeights, 10)
		r.Max = WeightedPercentile(likedVals, likedWeights, 90)
	}

	vals := make([]float64, len(featured))
	for i, e := range featured {
		vals[i] = pick(e.Features)
	}
	r.Weight = math.Min(1, 2*math.Abs(Pearson(ratings, vals)))
	return r
}

func learnCorrelations(featured []RatingEvent, ratings []float64) FeatureCorrelations {
	col := func(pick func(*FeatureVector) float64) []float64 {
		vals := make([]float64, len(featured))
		for i, e := range featured {
			vals[i] = pick(e.Features)
		}
		return vals
	}
	return FeatureCorrelations{
		Energy:       Pearson(ratings, col(func(f *FeatureVector) float64 { return f.Energy })),
		Valence:      Pearson(ratings, col(func(f *FeatureVector) float64 { return f.Valence })),
		Danceability: Pearson(ratings, col(func(f *FeatureVector) float64 { return f.Danceability })),
		Acousticness: Pearson(ratings, col(func(f *FeatureVector) float64 { return f.Acousticness })),
		Tempo:        Pearson(ratings, col(func(f *FeatureVector) float64 { return f.Tempo })),
		Loudness:     Pearson(ratings, col(func(f *FeatureVector) float64 { return f.Loudness })),
	}
}

func learnDescriptorMap(featured []RatingEvent) map[string]DescriptorProfile {
	type acc struct {
		energy, valence, dance float64
		count                  int
	}
	byDescriptor := make(map[string]*acc)
	for _, e := range featured {
		for _, d := range e.Descriptors {
			a := byDescriptor[d]
			if a == nil {
				a = &acc{}
				byDescriptor[d] = a
			}
			a.energy += e.Features.Energy
			a.valence += e.Features.Valence
			a.dance += e.Features.Danceability
			a.count++
		}
	}

	out := make(map[string]DescriptorProfile)
	for d, a := range byDescriptor {
		if a.count < minDescriptorUses {
			continue
		}
		n := float64(a.count)
		out[d] = DescriptorProfile{
			Energy:       a.energy / n,
			Valence:      a.valence / n,
			Danceability: a.dance / n,
			Count:        a.count,
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// vibeConsistency measures how tightly a user's ratings cluster within
// each descriptor they use repeatedly: 1 means every use of a descriptor
// lands on the same rating, 0 means maximal spread (or no repeated
// descriptors at all).
func vibeConsistency(events []RatingEvent) float64 {
	byDescriptor := make(map[string][]float64)
	for _, e := range events {
		for _, d := range e.Descriptors {
			byDescriptor[d] = append(byDescriptor[d], e.Rating)
		}
	}

	var sum float64
	var n int
	for _, ratings := range byDescriptor {
		if len(ratings) < minDescriptorUses {
			continue
		}
		sum += Clamp(1-StdDev(ratings)/5, 0, 1)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// decipherProgress scores 0-100 how well the engine understands the user.
func decipherProgress(accuracy float64, totalRatings int, consistency, correlationStrength float64) float64 {
	progress := 40*accuracy +
		20*math.Min(1, float64(totalRatings)/100) +
		20*consistency +
		20*correlationStrength
	return math.Min(100, progress)
}
