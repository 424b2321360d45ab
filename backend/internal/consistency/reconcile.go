package consistency

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kinship/backend/internal/constants"
	"kinship/backend/internal/graph"
	"kinship/backend/internal/identity"
	apperrors "kinship/backend/pkg/errors"
)

// DriftKind names one way the two representations of a contact disagree
type DriftKind string

const (
	// DriftMissingNode: no graph node resolves from the contact's name
	DriftMissingNode DriftKind = "missing_node"
	// DriftLabelMismatch: the resolved node is labeled something other than Person
	DriftLabelMismatch DriftKind = "label_mismatch"
	// DriftFactWithoutEdge: a fact mentions another node but no edge joins them
	DriftFactWithoutEdge DriftKind = "fact_without_edge"
	// DriftEdgeWithoutFact: an edge reaches a node no fact or summary mentions
	DriftEdgeWithoutFact DriftKind = "edge_without_fact"
)

// Drift is one finding of a reconciliation
type Drift struct {
	Kind    DriftKind `json:"kind"`
	Slot    int       `json:"slot,omitempty"`
	Fact    string    `json:"fact,omitempty"`
	NodeID  string    `json:"node_id,omitempty"`
	EdgeID  string    `json:"edge_id,omitempty"`
	RelType string    `json:"relationship_type,omitempty"`
	Detail  string    `json:"detail"`
}

// Report is the advisory result of reconciling one contact
type Report struct {
	ContactID   int64     `json:"contact_id"`
	ContactName string    `json:"contact_name"`
	NodeID      string    `json:"node_id,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
	Drift       []Drift   `json:"drift"`
	Consistent  bool      `json:"consistent"`
	Error       string    `json:"error,omitempty"`
}

// Reconcile compares a contact's facts and summary with the edges incident
// to its graph node. It reads both stores and writes neither, so abandoning
// it through ctx leaves nothing half done.
func (l *Layer) Reconcile(ctx context.Context, contactID int64) (*Report, error) {
	c, err := l.contacts.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ContactID:   c.ID,
		ContactName: c.Name,
		CheckedAt:   l.now(),
		Drift:       []Drift{},
	}

	node, err := l.graph.ResolveNode(ctx, c.Name)
	if apperrors.IsNotFound(err) {
		report.Drift = append(report.Drift, Drift{
			Kind:   DriftMissingNode,
			Detail: fmt.Sprintf("no graph node resolves from %q", c.Name),
		})
		return l.finish(report), nil
	}
	if err != nil {
		return nil, err
	}
	report.NodeID = node.ID

	if node.Label != "" && node.Label != constants.LabelPerson {
		report.Drift = append(report.Drift, Drift{
			Kind:   DriftLabelMismatch,
			NodeID: node.ID,
			Detail: fmt.Sprintf("node is labeled %q, expected %q", node.Label, constants.LabelPerson),
		})
	}

	nodes, err := l.graph.ListNodes(ctx, "")
	if err != nil {
		return nil, err
	}
	edges, err := l.graph.IncidentEdges(ctx, node.ID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	linked := make(map[string]bool, len(edges))
	for _, e := range edges {
		linked[e.Other(node.ID)] = true
	}

	facts := c.Facts.Occupied()

	for _, f := range facts {
		for _, other := range nodes {
			if err := ctx.Err(); err != nil {
				return nil, apperrors.NewContextCancelled("reconcile", err)
			}
			if other.ID == node.ID || linked[other.ID] || !mentions(f.Text, other) {
				continue
			}
			report.Drift = append(report.Drift, Drift{
				Kind:   DriftFactWithoutEdge,
				Slot:   f.Slot,
				Fact:   f.Text,
				NodeID: other.ID,
				Detail: fmt.Sprintf("fact %d mentions %q but no edge joins it to %q", f.Slot, other.ID, node.ID),
			})
		}
	}

	for _, e := range edges {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewContextCancelled("reconcile", err)
		}
		otherID := e.Other(node.ID)
		if otherID == node.ID {
			continue
		}
		other, ok := byID[otherID]
		if !ok {
			other = graph.Node{ID: otherID}
		}

		found := mentions(c.Summary, other)
		for _, f := range facts {
			if found {
				break
			}
			found = mentions(f.Text, other)
		}
		if found {
			continue
		}
		report.Drift = append(report.Drift, Drift{
			Kind:    DriftEdgeWithoutFact,
			NodeID:  otherID,
			EdgeID:  e.ID,
			RelType: e.Type,
			Detail:  fmt.Sprintf("edge %s -[%s]-> %s is not backed by any fact", e.From, e.Type, e.To),
		})
	}

	return l.finish(report), nil
}

func (l *Layer) finish(r *Report) *Report {
	r.Consistent = len(r.Drift) == 0
	if !r.Consistent {
		l.logger.Debug("Drift detected",
			zap.Int64("contact_id", r.ContactID),
			zap.Int("findings", len(r.Drift)),
		)
	}
	return r
}

// mentions reports whether text names n by its id or its name property
func mentions(text string, n graph.Node) bool {
	if identity.Mentions(text, n.ID) {
		return true
	}
	if name, ok := n.Properties[constants.PropertyName].(string); ok {
		return identity.Mentions(text, name)
	}
	return false
}
