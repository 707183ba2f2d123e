package predict

import (
	"math"

	"github.com/calsper/tasteline/internal/taste"
)

// Phrase banks keyed by reasoning category. Variant choice is driven by
// the caller-supplied seed so identical inputs always phrase identically.
var phraseBank = map[string][]string{
	"high_energy_liked": {
		"this track's high energy sits right in your wheelhouse",
		"you consistently rate high-energy tracks well, and this one delivers",
		"the intensity here matches what you usually reward",
	},
	"high_energy_disliked": {
		"this much intensity usually costs a track points with you",
		"high-energy tracks tend to rate lower in your history",
	},
	"low_energy_liked": {
		"you tend to reward quieter, lower-energy material like this",
		"subdued tracks like this one have scored well with you before",
	},
	"low_energy_disliked": {
		"tracks this subdued usually rate below your average",
		"low-energy material hasn't landed for you historically",
	},
	"high_valence_liked": {
		"bright, positive-sounding tracks score well in your history",
		"your ratings favor upbeat moods, and this one qualifies",
	},
	"low_valence_liked": {
		"darker moods like this have been a reliable match for you",
		"you rate moodier material above your average",
	},
	"danceable_liked": {
		"strong grooves correlate with your higher ratings",
		"danceable tracks like this one tend to score well with you",
	},
	"acoustic_liked": {
		"acoustic textures are a consistent positive in your ratings",
		"you reward organic, acoustic production like this",
	},
	"acoustic_disliked": {
		"heavily acoustic tracks tend to rate lower for you",
	},
	"fast_tempo_liked": {
		"faster tempos line up with your better-rated tracks",
	},
	"generic": {
		"this estimate leans on your overall rating level",
		"based on the overall shape of your rating history",
		"drawn from your aggregate listening profile",
	},
}

const (
	extremityHigh       = 0.75
	extremityLow        = 0.25
	correlationMaterial = 0.3
	maxReasoningPhrases = 3
	lowConfidenceBar    = 0.4
)

// Reasoning assembles up to three phrases explaining the estimate,
// keyed on feature extremity crossed with correlation direction. The
// seed picks phrase variants deterministically.
func Reasoning(model *taste.PreferenceModel, f *taste.FeatureVector, confidence float64, seed int64) []string {
	var categories []string
	if f != nil {
		c := model.Correlations
		if f.Energy >= extremityHigh && c.Energy >= correlationMaterial {
			categories = append(categories, "high_energy_liked")
		}
		if f.Energy >= extremityHigh && c.Energy <= -correlationMaterial {
			categories = append(categories, "high_energy_disliked")
		}
		if f.Energy <= extremityLow && c.Energy <= -correlationMaterial {
			categories = append(categories, "low_energy_liked")
		}
		if f.Energy <= extremityLow && c.Energy >= correlationMaterial {
			categories = append(categories, "low_energy_disliked")
		}
		if f.Valence >= extremityHigh && c.Valence >= correlationMaterial {
			categories = append(categories, "high_valence_liked")
		}
		if f.Valence <= extremityLow && c.Valence <= -correlationMaterial {
			categories = append(categories, "low_valence_liked")
		}
		if f.Danceability >= extremityHigh && c.Danceability >= correlationMaterial {
			categories = append(categories, "danceable_liked")
		}
		if f.Acousticness >= extremityHigh && c.Acousticness >= correlationMaterial {
			categories = append(categories, "acoustic_liked")
		}
		if f.Acousticness >= extremityHigh && c.Acousticness <= -correlationMaterial {
			categories = append(categories, "acoustic_disliked")
		}
		if f.Tempo >= 140 && c.Tempo >= correlationMaterial {
			categories = append(categories, "fast_tempo_liked")
		}
	}
	if len(categories) > maxReasoningPhrases {
		categories = categories[:maxReasoningPhrases]
	}
	if len(categories) == 0 {
		categories = []string{"generic"}
	}

	phrases := make([]string, 0, len(categories)+1)
	if confidence < lowConfidenceBar {
		phrases = append(phrases, "still learning your taste, so take this with a grain of salt")
	}
	for i, cat := range categories {
		phrases = append(phrases, pickPhrase(cat, seed+int64(i)))
	}
	return phrases
}

// pickPhrase is a pure function of (category, seed).
func pickPhrase(category string, seed int64) string {
	variants := phraseBank[category]
	if len(variants) == 0 {
		variants = phraseBank["generic"]
	}
	idx := int(math.Abs(float64(seed))) % len(variants)
	return variants[idx]
}
