package predict

import (
	"sort"

	"github.com/calsper/tasteline/internal/taste"
)

// bound is one sub-check on a feature value.
type bound struct {
	pick     func(*taste.FeatureVector) float64
	min, max float64
}

func energy(min, max float64) bound {
	return bound{func(f *taste.FeatureVector) float64 { return f.Energy }, min, max}
}
func valence(min, max float64) bound {
	return bound{func(f *taste.FeatureVector) float64 { return f.Valence }, min, max}
}
func dance(min, max float64) bound {
	return bound{func(f *taste.FeatureVector) float64 { return f.Danceability }, min, max}
}
func acoustic(min, max float64) bound {
	return bound{func(f *taste.FeatureVector) float64 { return f.Acousticness }, min, max}
}
func tempo(min, max float64) bound {
	return bound{func(f *taste.FeatureVector) float64 { return f.Tempo }, min, max}
}
func loudness(min, max float64) bound {
	return bound{func(f *taste.FeatureVector) float64 { return f.Loudness }, min, max}
}

type descriptorRule struct {
	name   string
	checks []bound
}

// descriptorRules maps acoustic sub-ranges to the descriptor vocabulary
// users tend to reach for. Scores are the fraction of checks satisfied.
var descriptorRules = []descriptorRule{
	{"euphoric", []bound{energy(0.7, 1), valence(0.75, 1), tempo(115, 200)}},
	{"melancholic", []bound{valence(0, 0.3), energy(0, 0.5), acoustic(0.3, 1)}},
	{"dreamy", []bound{energy(0.2, 0.55), valence(0.4, 0.75), acoustic(0.3, 0.9)}},
	{"aggressive", []bound{energy(0.8, 1), valence(0, 0.45), loudness(-8, 0)}},
	{"chill", []bound{energy(0.1, 0.45), tempo(60, 110), loudness(-60, -8)}},
	{"danceable", []bound{dance(0.7, 1), tempo(100, 135)}},
	{"acoustic", []bound{acoustic(0.7, 1), loudness(-60, -8)}},
	{"energetic", []bound{energy(0.75, 1), tempo(120, 200)}},
	{"brooding", []bound{valence(0, 0.35), energy(0.4, 0.7), tempo(60, 110)}},
	{"uplifting", []bound{valence(0.7, 1), energy(0.5, 0.9)}},
	{"hypnotic", []bound{dance(0.5, 0.85), energy(0.3, 0.6), tempo(90, 125)}},
	{"raw", []bound{acoustic(0, 0.3), loudness(-10, 0), energy(0.6, 1)}},
	{"polished", []bound{acoustic(0, 0.4), dance(0.5, 0.9), loudness(-12, -4)}},
	{"intimate", []bound{acoustic(0.6, 1), energy(0, 0.4), loudness(-60, -12)}},
	{"anthemic", []bound{energy(0.7, 1), valence(0.55, 1), loudness(-8, 0)}},
	{"groovy", []bound{dance(0.65, 1), energy(0.5, 0.85), tempo(95, 125)}},
	{"atmospheric", []bound{energy(0.1, 0.5), acoustic(0.2, 0.8), tempo(60, 100)}},
	{"frantic", []bound{tempo(150, 220), energy(0.8, 1)}},
	{"serene", []bound{energy(0, 0.3), valence(0.5, 0.85), acoustic(0.5, 1)}},
	{"moody", []bound{valence(0.15, 0.45), energy(0.3, 0.65)}},
	{"playful", []bound{valence(0.65, 1), dance(0.6, 1), tempo(100, 140)}},
	{"cinematic", []bound{energy(0.4, 0.8), acoustic(0.3, 0.9), loudness(-20, -6)}},
	{"lo-fi", []bound{loudness(-60, -10), energy(0.2, 0.5), dance(0.4, 0.8)}},
	{"driving", []bound{energy(0.65, 0.95), tempo(120, 160), dance(0.5, 0.85)}},
	{"gentle", []bound{energy(0, 0.35), loudness(-60, -12), tempo(60, 100)}},
	{"dark", []bound{valence(0, 0.25), energy(0.45, 0.9)}},
	{"bright", []bound{valence(0.7, 1), acoustic(0, 0.5), tempo(110, 150)}},
	{"punchy", []bound{loudness(-7, 0), energy(0.7, 1), dance(0.55, 0.95)}},
	{"sparse", []bound{energy(0, 0.35), acoustic(0.4, 1), dance(0, 0.45)}},
	{"lush", []bound{acoustic(0.35, 0.85), valence(0.45, 0.8), energy(0.3, 0.65)}},
	{"nocturnal", []bound{valence(0.2, 0.5), tempo(80, 115), loudness(-18, -6)}},
}

const (
	descriptorKeepScore = 0.5
	descriptorTopN      = 5
)

// SuggestDescriptors scores every rule against the track and returns the
// top matches.
func SuggestDescriptors(f *taste.FeatureVector) []string {
	type scored struct {
		name  string
		score float64
	}
	var kept []scored
	for _, rule := range descriptorRules {
		satisfied := 0
		for _, c := range rule.checks {
			v := c.pick(f)
			if v >= c.min && v <= c.max {
				satisfied++
			}
		}
		score := float64(satisfied) / float64(len(rule.checks))
		if score >= descriptorKeepScore {
			kept = append(kept, scored{rule.name, score})
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	if len(kept) > descriptorTopN {
		kept = kept[:descriptorTopN]
	}
	out := make([]string, len(kept))
	for i, s := range kept {
		out[i] = s.name
	}
	return out
}
