package consolidate

import (
	"time"

	"github.com/calsper/tasteline/internal/graph"
	"github.com/calsper/tasteline/internal/patterns"
)

// BuildGraph projects the pattern set and episode window into a fresh
// cognitive graph: episodes point at the patterns they exhibited, and
// patterns that co-occur across episodes reinforce each other with
// weight = co-occurrences / total episodes.
func BuildGraph(ps []patterns.Pattern, episodes []Episode, now time.Time) *graph.Graph {
	g := graph.New()

	for _, p := range ps {
		g.AddNode(p.ID, graph.NodePattern, p.Confidence, map[string]string{
			"name":     p.Name,
			"category": string(p.Category),
			"status":   string(p.Status),
		}, p.FirstDetected)
		// Recency for importance scoring tracks the last confirmation.
		if n, ok := g.Node(p.ID); ok && n.UpdatedAt.Before(p.LastConfirmed) {
			g.AddNode(p.ID, graph.NodePattern, p.Confidence, n.Payload, p.LastConfirmed)
		}
	}

	cooccur := make(map[[2]string]int)
	for _, ep := range episodes {
		g.AddNode(ep.ID, graph.NodeEpisode, ep.AvgRating/10, nil, ep.EndTime)
		for _, pid := range ep.PatternsDetected {
			g.AddEdge(ep.ID, pid, graph.EdgeExhibitedIn, 1, now)
		}
		for i := 0; i < len(ep.PatternsDetected); i++ {
			for j := i + 1; j < len(ep.PatternsDetected); j++ {
				a, b := ep.PatternsDetected[i], ep.PatternsDetected[j]
				if a > b {
					a, b = b, a
				}
				cooccur[[2]string{a, b}]++
			}
		}
	}

	if len(episodes) > 0 {
		total := float64(len(episodes))
		for pair, count := range cooccur {
			w := float64(count) / total
			g.AddEdge(pair[0], pair[1], graph.EdgeReinforces, w, now)
			g.AddEdge(pair[1], pair[0], graph.EdgeReinforces, w, now)
		}
	}
	return g
}

// RankPatterns writes the graph's importance scores back onto the
// pattern set.
func RankPatterns(ps []patterns.Pattern, g *graph.Graph, now time.Time) []patterns.Pattern {
	scores := g.ImportanceScores(now)
	out := make([]patterns.Pattern, len(ps))
	copy(out, ps)
	for i := range out {
		out[i].ImportanceScore = scores[out[i].ID]
	}
	return out
}
