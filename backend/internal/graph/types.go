package graph

import "time"

// ============================================================================
// Graph Types
// ============================================================================

// Node is a graph vertex keyed by a caller-supplied id
type Node struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label"`
	Properties map[string]interface{} `json:"properties"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// IsPlaceholder reports whether the node was only ever created implicitly
// as an edge endpoint and has not been labeled since.
func (n Node) IsPlaceholder() bool {
	return n.Label == ""
}

// Edge is a directed, typed relationship. (From, To, Type) is its identity;
// ID is a surrogate assigned on creation.
type Edge struct {
	ID         string                 `json:"id"`
	From       string                 `json:"from_id"`
	To         string                 `json:"to_id"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Other returns the endpoint of e that is not id
func (e Edge) Other(id string) string {
	if e.From == id {
		return e.To
	}
	return e.From
}

// Neighbor is one hop out of a node: the edge followed and the node reached
type Neighbor struct {
	Edge Edge `json:"edge"`
	Node Node `json:"node"`
}

// NodeInput is an upsert_node request. An empty Label leaves the stored
// label untouched; Properties are merged key by key.
type NodeInput struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// EdgeInput is an upsert_edge request
type EdgeInput struct {
	From       string                 `json:"from_id"`
	To         string                 `json:"to_id"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

type edgeKey struct {
	from, to, typ string
}

func (in EdgeInput) key() edgeKey {
	return edgeKey{from: in.From, to: in.To, typ: in.Type}
}

// Stats counts what the graph holds. Placeholders are counted apart from
// labeled nodes.
type Stats struct {
	Nodes             int            `json:"nodes"`
	Edges             int            `json:"edges"`
	Placeholders      int            `json:"placeholders"`
	Labels            map[string]int `json:"labels"`
	RelationshipTypes map[string]int `json:"relationship_types"`
}

func newStats() *Stats {
	return &Stats{Labels: map[string]int{}, RelationshipTypes: map[string]int{}}
}

func (s *Stats) addNodes(label string, n int) {
	s.Nodes += n
	if label == "" {
		s.Placeholders += n
		return
	}
	s.Labels[label] += n
}

func (s *Stats) addEdges(relType string, n int) {
	s.Edges += n
	s.RelationshipTypes[relType] += n
}
