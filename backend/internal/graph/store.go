// Package graph is the property-graph representation: nodes keyed by
// caller-supplied ids and directed, typed edges, all upserted.
package graph

import (
	"context"
	"iter"
	"strings"

	"github.com/samber/lo"

	"kinship/backend/internal/constants"
	"kinship/backend/internal/identity"
	apperrors "kinship/backend/pkg/errors"
)

// Store is implemented by every graph backend.
//
// Upserts never fail on duplicates. An edge whose endpoints do not exist
// creates them as placeholders (empty label) which a later UpsertNode
// fills in.
type Store interface {
	UpsertNode(ctx context.Context, in NodeInput) (*Node, error)
	UpsertEdge(ctx context.Context, in EdgeInput) (*Edge, error)
	GetNode(ctx context.Context, id string) (*Node, error)
	// ListNodes returns nodes ordered by id. An empty label lists all.
	ListNodes(ctx context.Context, label string) ([]Node, error)
	// ResolveNode finds the one node a display name refers to
	ResolveNode(ctx context.Context, name string) (*Node, error)
	// Neighbors lazily walks outgoing edges of id, optionally of one type.
	// An unknown id yields nothing.
	Neighbors(ctx context.Context, id, relType string) iter.Seq2[Neighbor, error]
	// IncidentEdges returns every edge into or out of id
	IncidentEdges(ctx context.Context, id string) ([]Edge, error)
	// DeleteNode removes id together with every edge into or out of it and
	// returns how many edges went with it. NotFound if id is unknown.
	DeleteNode(ctx context.Context, id string) (int, error)
	Stats(ctx context.Context) (*Stats, error)
	Close(ctx context.Context) error
}

// CollectNeighbors drains a neighbor sequence, stopping at the first error
func CollectNeighbors(seq iter.Seq2[Neighbor, error]) ([]Neighbor, error) {
	out := []Neighbor{}
	for n, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// pickResolved applies the resolution order shared by all backends: nodes
// whose id normalizes to the key win, then nodes whose name property does.
// More than one candidate at the winning tier is ambiguous.
func pickResolved(name string, candidates []Node) (*Node, error) {
	key := identity.Normalize(name)

	byID := lo.Filter(candidates, func(n Node, _ int) bool {
		return identity.Normalize(n.ID) == key
	})
	tier := byID
	if len(tier) == 0 {
		tier = lo.Filter(candidates, func(n Node, _ int) bool {
			s, ok := n.Properties[constants.PropertyName].(string)
			return ok && identity.Normalize(s) == key
		})
	}

	switch len(tier) {
	case 0:
		return nil, apperrors.NewNodeNotFound(name)
	case 1:
		return &tier[0], nil
	default:
		sortNodes(tier)
		return nil, apperrors.NewAmbiguousMatch(name, lo.Map(tier, func(n Node, _ int) string { return n.ID }))
	}
}

func validateResolveName(name string) error {
	if identity.Normalize(name) == "" {
		return apperrors.NewValidation("name", "must not be empty")
	}
	return nil
}

func labelMatches(have, want string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(have, want)
}
