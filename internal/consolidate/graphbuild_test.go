package consolidate

import (
	"testing"
	"time"

	"github.com/calsper/tasteline/internal/graph"
	"github.com/calsper/tasteline/internal/patterns"
)

func TestBuildGraphTopology(t *testing.T) {
	now := dayStart
	ps := []patterns.Pattern{
		{ID: "critical_ear", Status: patterns.StatusConfirmed, Confidence: 0.8, FirstDetected: now, LastConfirmed: now},
		{ID: "archive_diver", Status: patterns.StatusEmerging, Confidence: 0.6, FirstDetected: now, LastConfirmed: now},
	}
	eps := []Episode{
		{ID: "ep-1", EndTime: now, AvgRating: 8, PatternsDetected: []string{"critical_ear", "archive_diver"}},
		{ID: "ep-2", EndTime: now, AvgRating: 6, PatternsDetected: []string{"critical_ear"}},
	}

	g := BuildGraph(ps, eps, now)
	if g.NodeCount() != 4 {
		t.Fatalf("NodeCount = %d, want 4", g.NodeCount())
	}
	// Three exhibited_in edges plus the reinforces pair in both directions.
	if g.EdgeCount() != 5 {
		t.Fatalf("EdgeCount = %d, want 5", g.EdgeCount())
	}

	found := false
	for _, e := range g.Edges() {
		if e.Type == graph.EdgeReinforces && e.Source == "archive_diver" && e.Target == "critical_ear" {
			found = true
			if e.Weight != 0.5 {
				t.Errorf("reinforces weight = %v, want 0.5 (1 co-occurrence / 2 episodes)", e.Weight)
			}
		}
	}
	if !found {
		t.Error("reinforces edge archive_diver -> critical_ear missing")
	}
}

func TestBuildGraphSkipsUnknownPatternEdges(t *testing.T) {
	now := dayStart
	eps := []Episode{
		{ID: "ep-1", EndTime: now, AvgRating: 7, PatternsDetected: []string{"not_persisted"}},
	}
	g := BuildGraph(nil, eps, now)
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount = %d, want 0 for unknown pattern target", g.EdgeCount())
	}
}

func TestRankPatterns(t *testing.T) {
	now := dayStart
	ps := []patterns.Pattern{
		{ID: "hub", Status: patterns.StatusConfirmed, Confidence: 0.9, FirstDetected: now, LastConfirmed: now},
		{ID: "leaf", Status: patterns.StatusEmerging, Confidence: 0.5, FirstDetected: now.Add(-90 * 24 * time.Hour), LastConfirmed: now.Add(-90 * 24 * time.Hour)},
	}
	eps := []Episode{
		{ID: "ep-1", EndTime: now, AvgRating: 8, PatternsDetected: []string{"hub", "leaf"}},
		{ID: "ep-2", EndTime: now, AvgRating: 8, PatternsDetected: []string{"hub"}},
		{ID: "ep-3", EndTime: now, AvgRating: 8, PatternsDetected: []string{"hub"}},
	}

	g := BuildGraph(ps, eps, now)
	ranked := RankPatterns(ps, g, now)
	scores := map[string]float64{}
	for _, p := range ranked {
		scores[p.ID] = p.ImportanceScore
	}
	if scores["hub"] <= scores["leaf"] {
		t.Errorf("hub importance %v not above leaf %v", scores["hub"], scores["leaf"])
	}
	if ranked[0].ID != ps[0].ID {
		t.Errorf("RankPatterns reordered input")
	}
}
