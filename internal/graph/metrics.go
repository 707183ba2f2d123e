package graph

import (
	"math"
	"time"
)

const (
	pageRankDamping    = 0.85
	pageRankIterations = 20
	hitsIterations     = 20
)

// PageRank runs the standard power iteration with uniform initialization.
// Rank mass that flows into dangling nodes is not redistributed, which
// slightly deflates totals on graphs with sinks; fine at the node counts
// patterns and episodes produce.
func (g *Graph) PageRank() map[string]float64 {
	n := len(g.nodes)
	if n == 0 {
		return map[string]float64{}
	}

	ranks := make([]float64, n)
	for i := range ranks {
		ranks[i] = 1.0 / float64(n)
	}

	base := (1 - pageRankDamping) / float64(n)
	for iter := 0; iter < pageRankIterations; iter++ {
		next := make([]float64, n)
		for i := range next {
			next[i] = base
		}
		for i := 0; i < n; i++ {
			if len(g.out[i]) == 0 {
				// Dangling nodes keep their own rank; mass is not
				// spread across the graph.
				next[i] += pageRankDamping * ranks[i]
				continue
			}
			share := pageRankDamping * ranks[i] / float64(len(g.out[i]))
			for _, j := range g.out[i] {
				next[j] += share
			}
		}
		ranks = next
	}

	return g.toMap(ranks)
}

// HITS returns hub and authority scores after a fixed number of
// normalized iterations, uniform start.
func (g *Graph) HITS() (hubs, authorities map[string]float64) {
	n := len(g.nodes)
	if n == 0 {
		return map[string]float64{}, map[string]float64{}
	}

	hub := make([]float64, n)
	auth := make([]float64, n)
	for i := range hub {
		hub[i] = 1
		auth[i] = 1
	}

	for iter := 0; iter < hitsIterations; iter++ {
		for i := 0; i < n; i++ {
			var sum float64
			for _, j := range g.in[i] {
				sum += hub[j]
			}
			auth[i] = sum
		}
		for i := 0; i < n; i++ {
			var sum float64
			for _, j := range g.out[i] {
				sum += auth[j]
			}
			hub[i] = sum
		}
		normalize(auth)
		normalize(hub)
	}

	return g.toMap(hub), g.toMap(auth)
}

func normalize(scores []float64) {
	var sum float64
	for _, s := range scores {
		sum += s * s
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range scores {
		scores[i] /= norm
	}
}

// Betweenness computes node betweenness centrality with Brandes'
// algorithm, treating every edge as unweighted and directed. Scores are
// normalized by 1/((n-1)(n-2)) when n > 2.
func (g *Graph) Betweenness() map[string]float64 {
	n := len(g.nodes)
	scores := make([]float64, n)

	for s := 0; s < n; s++ {
		// BFS from s.
		stack := make([]int, 0, n)
		preds := make([][]int, n)
		sigma := make([]float64, n)
		dist := make([]int, n)
		for i := range dist {
			dist[i] = -1
		}
		sigma[s] = 1
		dist[s] = 0

		queue := []int{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range g.out[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		// Dependency accumulation in reverse BFS order.
		delta := make([]float64, n)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				scores[w] += delta[w]
			}
		}
	}

	if n > 2 {
		scale := 1.0 / (float64(n-1) * float64(n-2))
		for i := range scores {
			scores[i] *= scale
		}
	}
	return g.toMap(scores)
}

const (
	importancePageRankWeight    = 0.30
	importanceAuthorityWeight   = 0.25
	importanceHubWeight         = 0.15
	importanceBetweennessWeight = 0.15
	importanceRecencyWeight     = 0.15
	recencyHalfLifeDays         = 30.0
)

// ImportanceScores combines PageRank, HITS, betweenness and recency into
// one ranking score per node. Recency decays with the node's UpdatedAt.
func (g *Graph) ImportanceScores(now time.Time) map[string]float64 {
	pr := g.PageRank()
	hubs, auths := g.HITS()
	betw := g.Betweenness()

	out := make(map[string]float64, len(g.nodes))
	for _, node := range g.nodes {
		ageDays := now.Sub(node.UpdatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		recency := math.Exp(-ageDays / recencyHalfLifeDays)

		out[node.ID] = importancePageRankWeight*pr[node.ID] +
			importanceAuthorityWeight*auths[node.ID] +
			importanceHubWeight*hubs[node.ID] +
			importanceBetweennessWeight*betw[node.ID] +
			importanceRecencyWeight*recency
	}
	return out
}

func (g *Graph) toMap(scores []float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for i, s := range scores {
		out[g.nodes[i].ID] = s
	}
	return out
}
