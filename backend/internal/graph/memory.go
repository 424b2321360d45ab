package graph

import (
	"context"
	"iter"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	apperrors "kinship/backend/pkg/errors"
	"kinship/backend/pkg/logger"
)

type nodeEntry struct {
	mu   sync.Mutex
	node Node
}

type edgeEntry struct {
	mu   sync.Mutex
	edge Edge
}

// MemoryStore keeps the graph in process memory. The store lock guards
// membership and adjacency; each node and edge has its own mutex for
// property merges.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*nodeEntry
	edges map[edgeKey]*edgeEntry
	out   map[string][]edgeKey
	in    map[string][]edgeKey

	now func() time.Time
	log *zap.Logger
}

// NewMemoryStore creates an empty in-memory graph
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]*nodeEntry),
		edges: make(map[edgeKey]*edgeEntry),
		out:   make(map[string][]edgeKey),
		in:    make(map[string][]edgeKey),
		now:   func() time.Time { return time.Now().UTC() },
		log:   logger.Named("graph.memory"),
	}
}

func (s *MemoryStore) UpsertNode(ctx context.Context, in NodeInput) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("upsert_node", err)
	}
	in, err := NormalizeNodeInput(in)
	if err != nil {
		return nil, err
	}

	e, created := s.ensureNode(in.ID)

	e.mu.Lock()
	e.node.Properties = mergeProperties(e.node.Properties, in.Properties)
	if in.Label != "" {
		e.node.Label = in.Label
	}
	e.node.UpdatedAt = s.now()
	n := cloneNode(e.node)
	e.mu.Unlock()

	s.log.Info("Node upserted",
		zap.String("node_id", n.ID),
		zap.String("label", n.Label),
		zap.Bool("created", created),
	)
	return &n, nil
}

func (s *MemoryStore) UpsertEdge(ctx context.Context, in EdgeInput) (*Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("upsert_edge", err)
	}
	in, err := NormalizeEdgeInput(in)
	if err != nil {
		return nil, err
	}

	// endpoints and edge appear under one lock so a concurrent DeleteNode
	// never leaves an edge without its nodes
	k := in.key()
	s.mu.Lock()
	s.ensureNodeLocked(in.From)
	s.ensureNodeLocked(in.To)
	e, ok := s.edges[k]
	if !ok {
		now := s.now()
		e = &edgeEntry{edge: Edge{
			ID:         uuid.New().String(),
			From:       in.From,
			To:         in.To,
			Type:       in.Type,
			Properties: map[string]interface{}{},
			CreatedAt:  now,
			UpdatedAt:  now,
		}}
		s.edges[k] = e
		s.out[in.From] = append(s.out[in.From], k)
		s.in[in.To] = append(s.in[in.To], k)
	}
	s.mu.Unlock()

	e.mu.Lock()
	e.edge.Properties = mergeProperties(e.edge.Properties, in.Properties)
	e.edge.UpdatedAt = s.now()
	edge := cloneEdge(e.edge)
	e.mu.Unlock()

	s.log.Info("Edge upserted",
		zap.String("from", edge.From),
		zap.String("to", edge.To),
		zap.String("type", edge.Type),
		zap.Bool("created", !ok),
	)
	return &edge, nil
}

func (s *MemoryStore) GetNode(ctx context.Context, id string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("get_node", err)
	}
	s.mu.RLock()
	e, ok := s.nodes[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNodeNotFound(id)
	}
	e.mu.Lock()
	n := cloneNode(e.node)
	e.mu.Unlock()
	return &n, nil
}

func (s *MemoryStore) ListNodes(ctx context.Context, label string) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("list_nodes", err)
	}
	s.mu.RLock()
	entries := make([]*nodeEntry, 0, len(s.nodes))
	for _, e := range s.nodes {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Node, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if labelMatches(e.node.Label, label) {
			out = append(out, cloneNode(e.node))
		}
		e.mu.Unlock()
	}
	sortNodes(out)
	return out, nil
}

func (s *MemoryStore) ResolveNode(ctx context.Context, name string) (*Node, error) {
	if err := validateResolveName(name); err != nil {
		return nil, err
	}
	all, err := s.ListNodes(ctx, "")
	if err != nil {
		return nil, err
	}
	return pickResolved(name, all)
}

func (s *MemoryStore) Neighbors(ctx context.Context, id, relType string) iter.Seq2[Neighbor, error] {
	relType = strings.TrimSpace(relType)
	return func(yield func(Neighbor, error) bool) {
		s.mu.RLock()
		keys := append([]edgeKey(nil), s.out[id]...)
		s.mu.RUnlock()

		sort.Slice(keys, func(i, j int) bool {
			if keys[i].typ != keys[j].typ {
				return keys[i].typ < keys[j].typ
			}
			return keys[i].to < keys[j].to
		})

		for _, k := range keys {
			if relType != "" && k.typ != relType {
				continue
			}
			if err := ctx.Err(); err != nil {
				yield(Neighbor{}, apperrors.NewContextCancelled("get_neighbors", err))
				return
			}

			s.mu.RLock()
			ee := s.edges[k]
			ne := s.nodes[k.to]
			s.mu.RUnlock()
			if ee == nil || ne == nil {
				continue
			}

			ee.mu.Lock()
			edge := cloneEdge(ee.edge)
			ee.mu.Unlock()
			ne.mu.Lock()
			node := cloneNode(ne.node)
			ne.mu.Unlock()

			if !yield(Neighbor{Edge: edge, Node: node}, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) IncidentEdges(ctx context.Context, id string) ([]Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("incident_edges", err)
	}
	s.mu.RLock()
	keys := append(append([]edgeKey(nil), s.out[id]...), s.in[id]...)
	entries := make([]*edgeEntry, 0, len(keys))
	seen := make(map[edgeKey]bool, len(keys))
	for _, k := range keys {
		// a self-loop sits in both lists
		if seen[k] {
			continue
		}
		seen[k] = true
		if e := s.edges[k]; e != nil {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	out := make([]Edge, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, cloneEdge(e.edge))
		e.mu.Unlock()
	}
	sortEdges(out)
	return out, nil
}

func (s *MemoryStore) DeleteNode(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.NewContextCancelled("delete_node", err)
	}

	s.mu.Lock()
	if _, ok := s.nodes[id]; !ok {
		s.mu.Unlock()
		return 0, apperrors.NewNodeNotFound(id)
	}
	removed := 0
	for _, k := range lo.Uniq(append(append([]edgeKey(nil), s.out[id]...), s.in[id]...)) {
		if _, ok := s.edges[k]; !ok {
			continue
		}
		delete(s.edges, k)
		s.out[k.from] = lo.Without(s.out[k.from], k)
		s.in[k.to] = lo.Without(s.in[k.to], k)
		removed++
	}
	delete(s.nodes, id)
	delete(s.out, id)
	delete(s.in, id)
	s.mu.Unlock()

	s.log.Info("Node deleted", zap.String("node_id", id), zap.Int("edges_removed", removed))
	return removed, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("graph_stats", err)
	}
	stats := newStats()

	s.mu.RLock()
	nodes := lo.Values(s.nodes)
	for k := range s.edges {
		stats.addEdges(k.typ, 1)
	}
	s.mu.RUnlock()

	for _, e := range nodes {
		e.mu.Lock()
		stats.addNodes(e.node.Label, 1)
		e.mu.Unlock()
	}
	return stats, nil
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}

// ensureNode returns the entry for id, creating a placeholder if absent
func (s *MemoryStore) ensureNode(id string) (*nodeEntry, bool) {
	s.mu.RLock()
	e, ok := s.nodes[id]
	s.mu.RUnlock()
	if ok {
		return e, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureNodeLocked(id)
}

// ensureNodeLocked is ensureNode for callers already holding s.mu
func (s *MemoryStore) ensureNodeLocked(id string) (*nodeEntry, bool) {
	if e, ok := s.nodes[id]; ok {
		return e, false
	}
	now := s.now()
	e := &nodeEntry{node: Node{
		ID:         id,
		Properties: map[string]interface{}{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}}
	s.nodes[id] = e
	return e, true
}

func cloneNode(n Node) Node {
	n.Properties = copyProperties(n.Properties)
	return n
}

func cloneEdge(e Edge) Edge {
	e.Properties = copyProperties(e.Properties)
	return e
}
