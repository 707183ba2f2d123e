package graph

import (
	"math"
	"testing"
	"time"
)

func TestPageRankNoEdgesIsUniform(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(id, NodePattern, 1, nil, testTime)
	}

	ranks := g.PageRank()
	for id, r := range ranks {
		if math.Abs(r-0.25) > 1e-9 {
			t.Errorf("rank[%s] = %v, want 0.25", id, r)
		}
	}
}

func TestPageRankSumsToOne(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		g.AddNode(id, NodePattern, 1, nil, testTime)
	}
	g.AddEdge("a", "b", EdgeReinforces, 1, testTime)
	g.AddEdge("b", "c", EdgeReinforces, 1, testTime)
	g.AddEdge("c", "a", EdgeReinforces, 1, testTime)
	g.AddEdge("d", "a", EdgeReinforces, 1, testTime)

	var sum float64
	for _, r := range g.PageRank() {
		sum += r
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("ranks sum to %v, want 1", sum)
	}
}

func TestPageRankFavorsPointedAtNodes(t *testing.T) {
	g := New()
	for _, id := range []string{"hub", "a", "b", "c"} {
		g.AddNode(id, NodePattern, 1, nil, testTime)
	}
	g.AddEdge("a", "hub", EdgeReinforces, 1, testTime)
	g.AddEdge("b", "hub", EdgeReinforces, 1, testTime)
	g.AddEdge("c", "hub", EdgeReinforces, 1, testTime)

	ranks := g.PageRank()
	for _, id := range []string{"a", "b", "c"} {
		if ranks["hub"] <= ranks[id] {
			t.Errorf("rank[hub]=%v not above rank[%s]=%v", ranks["hub"], id, ranks[id])
		}
	}
}

func TestHITSNormalized(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id, NodePattern, 1, nil, testTime)
	}
	g.AddEdge("a", "b", EdgeReinforces, 1, testTime)
	g.AddEdge("a", "c", EdgeReinforces, 1, testTime)
	g.AddEdge("b", "c", EdgeReinforces, 1, testTime)

	hubs, auths := g.HITS()

	var hubNorm, authNorm float64
	for _, h := range hubs {
		hubNorm += h * h
	}
	for _, a := range auths {
		authNorm += a * a
	}
	if math.Abs(hubNorm-1) > 1e-6 {
		t.Errorf("hub scores L2 norm = %v, want 1", math.Sqrt(hubNorm))
	}
	if math.Abs(authNorm-1) > 1e-6 {
		t.Errorf("authority scores L2 norm = %v, want 1", math.Sqrt(authNorm))
	}
	if auths["c"] <= auths["b"] {
		t.Errorf("c (2 in-links) should out-score b (1 in-link): %v vs %v", auths["c"], auths["b"])
	}
	if hubs["a"] <= hubs["b"] {
		t.Errorf("a (2 out-links) should out-score b: %v vs %v", hubs["a"], hubs["b"])
	}
}

func TestBetweennessPathMiddle(t *testing.T) {
	// a -> m -> b: every shortest path between the endpoints crosses m.
	g := New()
	for _, id := range []string{"a", "m", "b"} {
		g.AddNode(id, NodePattern, 1, nil, testTime)
	}
	g.AddEdge("a", "m", EdgeReinforces, 1, testTime)
	g.AddEdge("m", "b", EdgeReinforces, 1, testTime)

	bw := g.Betweenness()
	if bw["m"] <= bw["a"] || bw["m"] <= bw["b"] {
		t.Errorf("middle node not highest: %v", bw)
	}
	for id, v := range bw {
		if v < 0 || v > 1 {
			t.Errorf("betweenness[%s] = %v outside [0,1]", id, v)
		}
	}
}

func TestImportanceScoresRecency(t *testing.T) {
	now := testTime.Add(90 * 24 * time.Hour)
	g := New()
	// Same topology, different last-touched times.
	g.AddNode("fresh", NodePattern, 1, nil, now)
	g.AddNode("stale", NodePattern, 1, nil, testTime)

	scores := g.ImportanceScores(now)
	if scores["fresh"] <= scores["stale"] {
		t.Errorf("recently updated node should rank higher: %v", scores)
	}
	for id, s := range scores {
		if s < 0 {
			t.Errorf("importance[%s] = %v negative", id, s)
		}
	}
}
