package graph

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	apperrors "kinship/backend/pkg/errors"
	"kinship/backend/pkg/logger"
)

type nodeRow struct {
	ID         string    `db:"id"`
	Label      string    `db:"label"`
	Properties string    `db:"properties"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r nodeRow) toNode() (Node, error) {
	props, err := decodeProperties(r.Properties)
	if err != nil {
		return Node{}, err
	}
	return Node{ID: r.ID, Label: r.Label, Properties: props, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}, nil
}

type edgeRow struct {
	ID           string    `db:"id"`
	FromNode     string    `db:"from_node"`
	ToNode       string    `db:"to_node"`
	Relationship string    `db:"relationship"`
	Properties   string    `db:"properties"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r edgeRow) toEdge() (Edge, error) {
	props, err := decodeProperties(r.Properties)
	if err != nil {
		return Edge{}, err
	}
	return Edge{
		ID:         r.ID,
		From:       r.FromNode,
		To:         r.ToNode,
		Type:       r.Relationship,
		Properties: props,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

// SQLStore keeps the graph in the graph_nodes and graph_edges tables of
// the shared SQLite file. Properties are a JSON object column merged in
// Go inside an IMMEDIATE transaction.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
	log *zap.Logger
}

// NewSQLStore creates a graph store over an already-migrated database
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		log: logger.Named("graph.sqlite"),
	}
}

func (s *SQLStore) UpsertNode(ctx context.Context, in NodeInput) (*Node, error) {
	in, err := NormalizeNodeInput(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.fail(ctx, "upsert_node", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	created, err := ensureNodeRow(ctx, tx, in.ID, now)
	if err != nil {
		return nil, s.fail(ctx, "upsert_node", err)
	}
	current, err := getNodeRow(ctx, tx, in.ID)
	if err != nil {
		return nil, s.fail(ctx, "upsert_node", err)
	}

	merged := mergeProperties(current.Properties, in.Properties)
	raw, err := encodeProperties(merged)
	if err != nil {
		return nil, s.fail(ctx, "upsert_node", err)
	}
	label := current.Label
	if in.Label != "" {
		label = in.Label
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE graph_nodes SET label = ?, properties = ?, updated_at = ? WHERE id = ?`,
		label, raw, now, in.ID); err != nil {
		return nil, s.fail(ctx, "upsert_node", err)
	}

	n, err := getNodeRow(ctx, tx, in.ID)
	if err != nil {
		return nil, s.fail(ctx, "upsert_node", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, s.fail(ctx, "upsert_node", err)
	}

	s.log.Info("Node upserted",
		zap.String("node_id", n.ID),
		zap.String("label", n.Label),
		zap.Bool("created", created),
	)
	return n, nil
}

func (s *SQLStore) UpsertEdge(ctx context.Context, in EdgeInput) (*Edge, error) {
	in, err := NormalizeEdgeInput(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.fail(ctx, "upsert_edge", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	for _, id := range []string{in.From, in.To} {
		if _, err := ensureNodeRow(ctx, tx, id, now); err != nil {
			return nil, s.fail(ctx, "upsert_edge", err)
		}
	}

	var row edgeRow
	err = tx.GetContext(ctx, &row,
		`SELECT * FROM graph_edges WHERE from_node = ? AND to_node = ? AND relationship = ?`,
		in.From, in.To, in.Type)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return nil, s.fail(ctx, "upsert_edge", err)
	}

	if created {
		raw, err := encodeProperties(in.Properties)
		if err != nil {
			return nil, s.fail(ctx, "upsert_edge", err)
		}
		row = edgeRow{
			ID:           uuid.New().String(),
			FromNode:     in.From,
			ToNode:       in.To,
			Relationship: in.Type,
			Properties:   raw,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO graph_edges (id, from_node, to_node, relationship, properties, created_at, updated_at)
			 VALUES (:id, :from_node, :to_node, :relationship, :properties, :created_at, :updated_at)`,
			row); err != nil {
			return nil, s.fail(ctx, "upsert_edge", err)
		}
	} else {
		existing, err := decodeProperties(row.Properties)
		if err != nil {
			return nil, s.fail(ctx, "upsert_edge", err)
		}
		raw, err := encodeProperties(mergeProperties(existing, in.Properties))
		if err != nil {
			return nil, s.fail(ctx, "upsert_edge", err)
		}
		row.Properties = raw
		row.UpdatedAt = now
		if _, err := tx.ExecContext(ctx,
			`UPDATE graph_edges SET properties = ?, updated_at = ? WHERE id = ?`,
			row.Properties, row.UpdatedAt, row.ID); err != nil {
			return nil, s.fail(ctx, "upsert_edge", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, s.fail(ctx, "upsert_edge", err)
	}

	edge, err := row.toEdge()
	if err != nil {
		return nil, s.fail(ctx, "upsert_edge", err)
	}
	s.log.Info("Edge upserted",
		zap.String("from", edge.From),
		zap.String("to", edge.To),
		zap.String("type", edge.Type),
		zap.Bool("created", created),
	)
	return &edge, nil
}

func (s *SQLStore) GetNode(ctx context.Context, id string) (*Node, error) {
	n, err := getNodeRow(ctx, s.db, id)
	if err != nil {
		return nil, s.fail(ctx, "get_node", err)
	}
	return n, nil
}

func (s *SQLStore) ListNodes(ctx context.Context, label string) ([]Node, error) {
	var rows []nodeRow
	var err error
	if label = strings.TrimSpace(label); label == "" {
		err = s.db.SelectContext(ctx, &rows, `SELECT * FROM graph_nodes ORDER BY id`)
	} else {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT * FROM graph_nodes WHERE label = ? COLLATE NOCASE ORDER BY id`, label)
	}
	if err != nil {
		return nil, s.fail(ctx, "list_nodes", err)
	}

	out := make([]Node, 0, len(rows))
	for _, r := range rows {
		n, err := r.toNode()
		if err != nil {
			return nil, s.fail(ctx, "list_nodes", err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *SQLStore) ResolveNode(ctx context.Context, name string) (*Node, error) {
	if err := validateResolveName(name); err != nil {
		return nil, err
	}
	// SQLite lower() only folds ASCII, so matching happens in Go
	all, err := s.ListNodes(ctx, "")
	if err != nil {
		return nil, err
	}
	return pickResolved(name, all)
}

// Neighbors streams rows straight from the cursor; breaking out of the
// loop closes it.
func (s *SQLStore) Neighbors(ctx context.Context, id, relType string) iter.Seq2[Neighbor, error] {
	relType = strings.TrimSpace(relType)
	return func(yield func(Neighbor, error) bool) {
		query := `
			SELECT
				e.id AS edge_id, e.from_node, e.to_node, e.relationship,
				e.properties AS edge_properties,
				e.created_at AS edge_created_at, e.updated_at AS edge_updated_at,
				n.label, n.properties AS node_properties,
				n.created_at AS node_created_at, n.updated_at AS node_updated_at
			FROM graph_edges e
			JOIN graph_nodes n ON n.id = e.to_node
			WHERE e.from_node = ? AND (? = '' OR e.relationship = ?)
			ORDER BY e.relationship, e.to_node`

		rows, err := s.db.QueryxContext(ctx, query, id, relType, relType)
		if err != nil {
			yield(Neighbor{}, s.fail(ctx, "get_neighbors", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var r struct {
				EdgeID         string    `db:"edge_id"`
				FromNode       string    `db:"from_node"`
				ToNode         string    `db:"to_node"`
				Relationship   string    `db:"relationship"`
				EdgeProperties string    `db:"edge_properties"`
				EdgeCreatedAt  time.Time `db:"edge_created_at"`
				EdgeUpdatedAt  time.Time `db:"edge_updated_at"`
				Label          string    `db:"label"`
				NodeProperties string    `db:"node_properties"`
				NodeCreatedAt  time.Time `db:"node_created_at"`
				NodeUpdatedAt  time.Time `db:"node_updated_at"`
			}
			if err := rows.StructScan(&r); err != nil {
				yield(Neighbor{}, s.fail(ctx, "get_neighbors", err))
				return
			}

			edge, err := edgeRow{
				ID: r.EdgeID, FromNode: r.FromNode, ToNode: r.ToNode, Relationship: r.Relationship,
				Properties: r.EdgeProperties, CreatedAt: r.EdgeCreatedAt, UpdatedAt: r.EdgeUpdatedAt,
			}.toEdge()
			if err != nil {
				yield(Neighbor{}, s.fail(ctx, "get_neighbors", err))
				return
			}
			node, err := nodeRow{
				ID: r.ToNode, Label: r.Label, Properties: r.NodeProperties,
				CreatedAt: r.NodeCreatedAt, UpdatedAt: r.NodeUpdatedAt,
			}.toNode()
			if err != nil {
				yield(Neighbor{}, s.fail(ctx, "get_neighbors", err))
				return
			}

			if !yield(Neighbor{Edge: edge, Node: node}, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Neighbor{}, s.fail(ctx, "get_neighbors", err))
		}
	}
}

func (s *SQLStore) IncidentEdges(ctx context.Context, id string) ([]Edge, error) {
	var rows []edgeRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM graph_edges WHERE from_node = ? OR to_node = ?`, id, id)
	if err != nil {
		return nil, s.fail(ctx, "incident_edges", err)
	}
	out := make([]Edge, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEdge()
		if err != nil {
			return nil, s.fail(ctx, "incident_edges", err)
		}
		out = append(out, e)
	}
	sortEdges(out)
	return out, nil
}

func (s *SQLStore) DeleteNode(ctx context.Context, id string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, s.fail(ctx, "delete_node", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getNodeRow(ctx, tx, id); err != nil {
		return 0, s.fail(ctx, "delete_node", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM graph_edges WHERE from_node = ? OR to_node = ?`, id, id)
	if err != nil {
		return 0, s.fail(ctx, "delete_node", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail(ctx, "delete_node", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_nodes WHERE id = ?`, id); err != nil {
		return 0, s.fail(ctx, "delete_node", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, s.fail(ctx, "delete_node", err)
	}

	s.log.Info("Node deleted", zap.String("node_id", id), zap.Int64("edges_removed", removed))
	return int(removed), nil
}

func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	type group struct {
		Name  string `db:"name"`
		Count int    `db:"n"`
	}
	stats := newStats()

	var labels []group
	if err := s.db.SelectContext(ctx, &labels,
		`SELECT label AS name, COUNT(*) AS n FROM graph_nodes GROUP BY label`); err != nil {
		return nil, s.fail(ctx, "graph_stats", err)
	}
	for _, l := range labels {
		stats.addNodes(l.Name, l.Count)
	}

	var types []group
	if err := s.db.SelectContext(ctx, &types,
		`SELECT relationship AS name, COUNT(*) AS n FROM graph_edges GROUP BY relationship`); err != nil {
		return nil, s.fail(ctx, "graph_stats", err)
	}
	for _, t := range types {
		stats.addEdges(t.Name, t.Count)
	}
	return stats, nil
}

// Close is a no-op: the database handle is shared and owned by the caller
func (s *SQLStore) Close(context.Context) error {
	return nil
}

func (s *SQLStore) fail(ctx context.Context, op string, err error) error {
	if apperrors.TypeOf(err) != "" {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.NewContextCancelled(op, ctxErr)
	}
	s.log.Error("Graph store operation failed", zap.String("operation", op), zap.Error(err))
	return apperrors.NewStorage(op, err)
}

// ensureNodeRow inserts a placeholder for id unless it already exists
func ensureNodeRow(ctx context.Context, tx *sqlx.Tx, id string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO graph_nodes (id, label, properties, created_at, updated_at)
		 VALUES (?, '', '{}', ?, ?) ON CONFLICT(id) DO NOTHING`,
		id, now, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func getNodeRow(ctx context.Context, q sqlx.QueryerContext, id string) (*Node, error) {
	var row nodeRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT * FROM graph_nodes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNodeNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	n, err := row.toNode()
	if err != nil {
		return nil, err
	}
	return &n, nil
}
