// Package consistency links the contact table and the property graph.
//
// Neither store knows about the other. The layer mirrors a contact into
// the graph only when asked to, and reconciliation is a read-only report:
// it never writes to either store.
package consistency

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kinship/backend/internal/constants"
	"kinship/backend/internal/contacts"
	"kinship/backend/internal/graph"
	"kinship/backend/internal/identity"
	apperrors "kinship/backend/pkg/errors"
	"kinship/backend/pkg/logger"
)

// Layer orchestrates the operations that touch both stores
type Layer struct {
	contacts    contacts.Store
	graph       graph.Store
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// NewLayer creates a consistency layer. concurrency bounds ReconcileAll.
func NewLayer(contactStore contacts.Store, graphStore graph.Store, concurrency int) *Layer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Layer{
		contacts:    contactStore,
		graph:       graphStore,
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.Named("consistency"),
	}
}

// MirrorContact upserts the Person node for a contact. A node that already
// resolves from the contact's name is reused; otherwise the node id is the
// normalized name. The node records the contact id and display name.
func (l *Layer) MirrorContact(ctx context.Context, contactID int64, props map[string]interface{}) (*graph.Node, error) {
	c, err := l.contacts.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}

	nodeID := identity.Normalize(c.Name)
	existing, err := l.graph.ResolveNode(ctx, c.Name)
	switch {
	case err == nil:
		nodeID = existing.ID
	case apperrors.IsNotFound(err):
	default:
		return nil, err
	}

	merged := make(map[string]interface{}, len(props)+2)
	for k, v := range props {
		merged[k] = v
	}
	merged[constants.PropertyContactID] = c.ID
	if _, ok := merged[constants.PropertyName]; !ok {
		merged[constants.PropertyName] = c.Name
	}

	n, err := l.graph.UpsertNode(ctx, graph.NodeInput{
		ID:         nodeID,
		Label:      constants.LabelPerson,
		Properties: merged,
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Contact mirrored",
		zap.Int64("contact_id", c.ID),
		zap.String("node_id", n.ID),
	)
	return n, nil
}

// ReconcileAll reconciles every contact with bounded concurrency. Per
// contact lookup failures are recorded on that contact's report; storage
// failures and cancellation abort the whole run.
func (l *Layer) ReconcileAll(ctx context.Context) ([]Report, error) {
	all, err := l.contacts.List(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i := range all {
		c := all[i]
		g.Go(func() error {
			r, err := l.Reconcile(gctx, c.ID)
			if err != nil {
				switch apperrors.TypeOf(err) {
				case apperrors.ErrorTypeStorage, apperrors.ErrorTypeContext, "":
					return err
				}
				reports[i] = Report{
					ContactID:   c.ID,
					ContactName: c.Name,
					CheckedAt:   l.now(),
					Error:       err.Error(),
					Drift:       []Drift{},
				}
				return nil
			}
			reports[i] = *r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	inconsistent := 0
	for _, r := range reports {
		if !r.Consistent {
			inconsistent++
		}
	}
	l.logger.Info("Reconciliation finished",
		zap.Int("contacts", len(reports)),
		zap.Int("inconsistent", inconsistent),
	)
	return reports, nil
}
