// Package graph provides the weighted typed graph that patterns and
// episodes are projected into, plus the centrality metrics used to rank
// them. Graphs are rebuilt per recompute; none of this is incremental.
package graph

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type NodeType string

const (
	NodePattern NodeType = "pattern"
	NodeEpisode NodeType = "episode"
	NodeTaste   NodeType = "taste"
)

type EdgeType string

const (
	EdgeExhibitedIn EdgeType = "exhibited_in"
	EdgeReinforces  EdgeType = "reinforces"
)

// Node is one vertex. Nodes live in an arena slice and are addressed by
// index internally; the string ID is for callers.
type Node struct {
	ID        string            `json:"id"`
	Type      NodeType          `json:"type"`
	Payload   map[string]string `json:"payload,omitempty"`
	Weight    float64           `json:"weight"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Edge links two nodes by arena index. The external edge id is
// "source|type|target", so re-adding the same logical edge upserts.
type Edge struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Type      EdgeType  `json:"type"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}

// Graph stores nodes and edges in arenas with index side-tables, and
// keeps adjacency as index slices so the metric passes never chase
// pointers.
type Graph struct {
	nodes []Node
	edges []Edge

	nodeIndex map[string]int
	edgeIndex map[string]int

	out [][]int // out[i] = arena indices of nodes i points to
	in  [][]int // in[i]  = arena indices of nodes pointing to i
}

func New() *Graph {
	return &Graph{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[string]int),
	}
}

// AddNode upserts a node by id. On upsert the payload, weight and type
// are replaced and UpdatedAt moves; CreatedAt is kept.
func (g *Graph) AddNode(id string, typ NodeType, weight float64, payload map[string]string, now time.Time) {
	if i, ok := g.nodeIndex[id]; ok {
		g.nodes[i].Type = typ
		g.nodes[i].Weight = weight
		g.nodes[i].Payload = payload
		g.nodes[i].UpdatedAt = now
		return
	}
	g.nodeIndex[id] = len(g.nodes)
	g.nodes = append(g.nodes, Node{
		ID:        id,
		Type:      typ,
		Payload:   payload,
		Weight:    weight,
		CreatedAt: now,
		UpdatedAt: now,
	})
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
}

// AddEdge upserts the edge source|type|target. Both endpoints must
// already exist; unknown endpoints are ignored rather than implicitly
// created, since every edge builder adds its nodes first.
func (g *Graph) AddEdge(source, target string, typ EdgeType, weight float64, now time.Time) {
	si, ok := g.nodeIndex[source]
	if !ok {
		return
	}
	ti, ok := g.nodeIndex[target]
	if !ok {
		return
	}

	id := fmt.Sprintf("%s|%s|%s", source, typ, target)
	if i, ok := g.edgeIndex[id]; ok {
		g.edges[i].Weight = weight
		return
	}
	g.edgeIndex[id] = len(g.edges)
	g.edges = append(g.edges, Edge{
		ID:        id,
		Source:    source,
		Target:    target,
		Type:      typ,
		Weight:    weight,
		CreatedAt: now,
	})
	g.out[si] = append(g.out[si], ti)
	g.in[ti] = append(g.in[ti], si)
}

// NodeCount reports the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount reports the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns copies of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Neighbors returns the ids of nodes the given node points to.
func (g *Graph) Neighbors(id string) []string {
	i, ok := g.nodeIndex[id]
	if !ok {
		return nil
	}
	return g.idsOf(g.out[i])
}

// IncomingNeighbors returns the ids of nodes pointing to the given node.
func (g *Graph) IncomingNeighbors(id string) []string {
	i, ok := g.nodeIndex[id]
	if !ok {
		return nil
	}
	return g.idsOf(g.in[i])
}

func (g *Graph) idsOf(indices []int) []string {
	if len(indices) == 0 {
		return nil
	}
	ids := make([]string, len(indices))
	for j, i := range indices {
		ids[j] = g.nodes[i].ID
	}
	return ids
}

type snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// MarshalJSON serializes the graph as flat node and edge lists.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{Nodes: g.nodes, Edges: g.edges})
}

// UnmarshalJSON rebuilds a graph from a serialized snapshot.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*g = *New()
	for _, n := range s.Nodes {
		g.AddNode(n.ID, n.Type, n.Weight, n.Payload, n.CreatedAt)
		// AddNode stamps UpdatedAt = CreatedAt; restore the real one.
		g.nodes[g.nodeIndex[n.ID]].UpdatedAt = n.UpdatedAt
	}
	for _, e := range s.Edges {
		g.AddEdge(e.Source, e.Target, e.Type, e.Weight, e.CreatedAt)
	}
	return nil
}
