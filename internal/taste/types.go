package taste

import "time"

// FeatureVector holds the acoustic measurements for a single track.
// Energy, valence, danceability and acousticness are normalized to [0,1];
// tempo is BPM and loudness is dB.
type FeatureVector struct {
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	Danceability float64 `json:"danceability"`
	Acousticness float64 `json:"acousticness"`
	Tempo        float64 `json:"tempo"`
	Loudness     float64 `json:"loudness"`
}

// RatingEvent is one entry in a user's append-only rating log. Events are
// immutable once written; everything the engine derives is reproducible
// from the full sequence of them.
type RatingEvent struct {
	ID           int64
	User         string
	Item         string
	Artist       string
	Rating       float64
	Genres       []string
	Descriptors  []string
	Features     *FeatureVector
	ItemAgeYears float64
	CreatedAt    time.Time
}

// FeatureRange is the learned acceptable band for one acoustic feature.
type FeatureRange struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	SweetSpot float64 `json:"sweet_spot"`
	Weight    float64 `json:"weight"`
}

// FeatureCorrelations holds the Pearson correlation between the user's
// ratings and each acoustic feature.
type FeatureCorrelations struct {
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	Danceability float64 `json:"danceability"`
	Acousticness float64 `json:"acousticness"`
	Tempo        float64 `json:"tempo"`
	Loudness     float64 `json:"loudness"`
}

// DescriptorProfile is the mean acoustic shape of the tracks a user has
// tagged with one descriptor.
type DescriptorProfile struct {
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	Danceability float64 `json:"danceability"`
	Count        int     `json:"count"`
}

// PreferenceModel is the per-user acoustic fingerprint. Recomputation
// replaces the learned fields but carries the prediction counters over
// from the prior record verbatim.
type PreferenceModel struct {
	User string

	Energy       FeatureRange
	Valence      FeatureRange
	Danceability FeatureRange
	Acousticness FeatureRange
	Tempo        FeatureRange

	Correlations  FeatureCorrelations
	DescriptorMap map[string]DescriptorProfile

	TotalPredictions   int
	CorrectPredictions int
	CurrentStreak      int
	LongestStreak      int
	SurpriseCount      int
	PredictionAccuracy float64
	DecipherProgress   float64

	Version   int64
	UpdatedAt time.Time
}

// Accuracy returns CorrectPredictions/TotalPredictions, or 0 before any
// prediction has been resolved.
func (m *PreferenceModel) Accuracy() float64 {
	if m.TotalPredictions == 0 {
		return 0
	}
	return float64(m.CorrectPredictions) / float64(m.TotalPredictions)
}

const (
	// DefaultTempoMin and friends are the fingerprint values used before
	// enough feature-bearing ratings exist to learn anything.
	DefaultTempoMin       = 60.0
	DefaultTempoMax       = 180.0
	DefaultTempoSweetSpot = 120.0
	DefaultTempoWeight    = 0.3
)

// DefaultNormalizedRange is the fallback for the [0,1] features.
func DefaultNormalizedRange() FeatureRange {
	return FeatureRange{Min: 0, Max: 1, SweetSpot: 0.5, Weight: 0.5}
}

// DefaultTempoRange is the fallback for tempo.
func DefaultTempoRange() FeatureRange {
	return FeatureRange{
		Min:       DefaultTempoMin,
		Max:       DefaultTempoMax,
		SweetSpot: DefaultTempoSweetSpot,
		Weight:    DefaultTempoWeight,
	}
}

// NewPreferenceModel returns the model a user has before any learning.
func NewPreferenceModel(user string) *PreferenceModel {
	return &PreferenceModel{
		User:         user,
		Energy:       DefaultNormalizedRange(),
		Valence:      DefaultNormalizedRange(),
		Danceability: DefaultNormalizedRange(),
		Acousticness: DefaultNormalizedRange(),
		Tempo:        DefaultTempoRange(),
	}
}

// MeanAbsCorrelation is the mean absolute value over all six correlation
// dimensions, used by decipher progress and prediction confidence.
func (c FeatureCorrelations) MeanAbs() float64 {
	sum := abs(c.Energy) + abs(c.Valence) + abs(c.Danceability) +
		abs(c.Acousticness) + abs(c.Tempo) + abs(c.Loudness)
	return sum / 6
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
