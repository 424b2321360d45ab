package graph

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"kinship/backend/internal/constants"
	"kinship/backend/internal/identity"
	apperrors "kinship/backend/pkg/errors"
	"kinship/backend/pkg/logger"
)

// Neo4jStore keeps the graph in Neo4j. Every node is an :Entity with id and
// label properties plus the normalized id_key and name_key used by
// ResolveNode; every edge is a :RELATES relationship carrying its type in
// rel_type, since relationship types cannot be parameterized.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewNeo4jStore creates a graph store over an open driver
func NewNeo4jStore(driver neo4j.DriverWithContext) *Neo4jStore {
	return &Neo4jStore{
		driver: driver,
		logger: logger.Named("graph.neo4j"),
	}
}

// ConnectNeo4j opens a driver and verifies the server is reachable
func ConnectNeo4j(ctx context.Context, uri, user, password string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}
	return NewNeo4jStore(driver), nil
}

// Close closes the Neo4j driver connection
func (r *Neo4jStore) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// EnsureIndexes creates the id uniqueness constraint that makes concurrent
// MERGEs on one id safe, a label index for list_nodes and the lookup-key
// indexes for resolve_node.
func (r *Neo4jStore) EnsureIndexes(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (n:Entity) REQUIRE n.id IS UNIQUE`,
		`CREATE INDEX entity_label IF NOT EXISTS FOR (n:Entity) ON (n.label)`,
		`CREATE INDEX entity_id_key IF NOT EXISTS FOR (n:Entity) ON (n.id_key)`,
		`CREATE INDEX entity_name_key IF NOT EXISTS FOR (n:Entity) ON (n.name_key)`,
	}
	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to ensure graph indexes: %w", err)
		}
	}
	r.logger.Info("Graph constraints ensured")
	return nil
}

func (r *Neo4jStore) UpsertNode(ctx context.Context, in NodeInput) (*Node, error) {
	in, err := NormalizeNodeInput(in)
	if err != nil {
		return nil, err
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (n:Entity {id: $id})
		ON CREATE SET n.label = '', n.created_at = datetime($now)
		SET n += $props, n.updated_at = datetime($now), n.id_key = $idKey
		SET n.label = CASE WHEN $label <> '' THEN $label ELSE n.label END
		SET n.name_key = CASE WHEN $setName THEN $nameKey ELSE n.name_key END
		RETURN n
	`

	// name_key follows the name property; a non-string name matches nothing
	rawName, setName := in.Properties[constants.PropertyName]
	nameKey := ""
	if name, ok := rawName.(string); ok {
		nameKey = identity.Normalize(name)
	}

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"id":      in.ID,
			"idKey":   identity.Normalize(in.ID),
			"label":   in.Label,
			"props":   in.Properties,
			"setName": setName,
			"nameKey": nameKey,
			"now":     time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return nodeFromRecord(record, "n")
	})
	if err != nil {
		return nil, r.fail(ctx, "upsert_node", err)
	}

	n := result.(Node)
	r.logger.Info("Node upserted", zap.String("node_id", n.ID), zap.String("label", n.Label))
	return &n, nil
}

func (r *Neo4jStore) UpsertEdge(ctx context.Context, in EdgeInput) (*Edge, error) {
	in, err := NormalizeEdgeInput(in)
	if err != nil {
		return nil, err
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (a:Entity {id: $from})
		ON CREATE SET a.label = '', a.id_key = $fromKey, a.created_at = datetime($now), a.updated_at = datetime($now)
		MERGE (b:Entity {id: $to})
		ON CREATE SET b.label = '', b.id_key = $toKey, b.created_at = datetime($now), b.updated_at = datetime($now)
		MERGE (a)-[r:RELATES {rel_type: $type}]->(b)
		ON CREATE SET r.id = $edgeID, r.created_at = datetime($now)
		SET r += $props, r.updated_at = datetime($now)
		RETURN r, a.id AS from_id, b.id AS to_id
	`

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"from":    in.From,
			"fromKey": identity.Normalize(in.From),
			"to":      in.To,
			"toKey":   identity.Normalize(in.To),
			"type":    in.Type,
			"props":   in.Properties,
			"edgeID":  uuid.New().String(),
			"now":     time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return edgeFromRecord(record)
	})
	if err != nil {
		return nil, r.fail(ctx, "upsert_edge", err)
	}

	e := result.(Edge)
	r.logger.Info("Edge upserted",
		zap.String("from", e.From),
		zap.String("to", e.To),
		zap.String("type", e.Type),
	)
	return &e, nil
}

func (r *Neo4jStore) GetNode(ctx context.Context, id string) (*Node, error) {
	nodes, err := r.readNodes(ctx, "get_node",
		`MATCH (n:Entity {id: $id}) RETURN n`,
		map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, apperrors.NewNodeNotFound(id)
	}
	return &nodes[0], nil
}

func (r *Neo4jStore) ListNodes(ctx context.Context, label string) ([]Node, error) {
	return r.readNodes(ctx, "list_nodes", `
		MATCH (n:Entity)
		WHERE $label = '' OR toLower(n.label) = toLower($label)
		RETURN n
		ORDER BY n.id
	`, map[string]interface{}{"label": strings.TrimSpace(label)})
}

func (r *Neo4jStore) ResolveNode(ctx context.Context, name string) (*Node, error) {
	if err := validateResolveName(name); err != nil {
		return nil, err
	}
	candidates, err := r.readNodes(ctx, "resolve_node", `
		MATCH (n:Entity)
		WHERE n.id_key = $key OR n.name_key = $key
		RETURN n
	`, map[string]interface{}{"key": identity.Normalize(name)})
	if err != nil {
		return nil, err
	}
	return pickResolved(name, candidates)
}

// Neighbors streams records from an auto-commit result; the session stays
// open until the caller stops iterating.
func (r *Neo4jStore) Neighbors(ctx context.Context, id, relType string) iter.Seq2[Neighbor, error] {
	relType = strings.TrimSpace(relType)
	return func(yield func(Neighbor, error) bool) {
		session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
		defer session.Close(ctx)

		query := `
			MATCH (a:Entity {id: $id})-[r:RELATES]->(b:Entity)
			WHERE $type = '' OR r.rel_type = $type
			RETURN r, a.id AS from_id, b.id AS to_id, b
			ORDER BY r.rel_type, b.id
		`
		result, err := session.Run(ctx, query, map[string]interface{}{"id": id, "type": relType})
		if err != nil {
			yield(Neighbor{}, r.fail(ctx, "get_neighbors", err))
			return
		}

		for result.Next(ctx) {
			record := result.Record()
			edge, err := edgeFromRecord(record)
			if err != nil {
				yield(Neighbor{}, r.fail(ctx, "get_neighbors", err))
				return
			}
			node, err := nodeFromRecord(record, "b")
			if err != nil {
				yield(Neighbor{}, r.fail(ctx, "get_neighbors", err))
				return
			}
			if !yield(Neighbor{Edge: edge, Node: node}, nil) {
				return
			}
		}
		if err := result.Err(); err != nil {
			yield(Neighbor{}, r.fail(ctx, "get_neighbors", err))
		}
	}
}

func (r *Neo4jStore) IncidentEdges(ctx context.Context, id string) ([]Edge, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (a:Entity)-[r:RELATES]->(b:Entity)
		WHERE a.id = $id OR b.id = $id
		RETURN r, a.id AS from_id, b.id AS to_id
	`
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]interface{}{"id": id})
		if err != nil {
			return nil, err
		}
		var edges []Edge
		for res.Next(ctx) {
			e, err := edgeFromRecord(res.Record())
			if err != nil {
				return nil, err
			}
			edges = append(edges, e)
		}
		return edges, res.Err()
	})
	if err != nil {
		return nil, r.fail(ctx, "incident_edges", err)
	}

	edges, _ := result.([]Edge)
	sortEdges(edges)
	return edges, nil
}

// DeleteNode detaches and deletes the node in one statement
func (r *Neo4jStore) DeleteNode(ctx context.Context, id string) (int, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH (n:Entity {id: $id})
		OPTIONAL MATCH (n)-[r:RELATES]-()
		WITH n, count(DISTINCT r) AS edges
		DETACH DELETE n
		RETURN edges
	`
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]interface{}{"id": id})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			// no row: the node does not exist
			return int64(-1), res.Err()
		}
		edges, _ := res.Record().Get("edges")
		n, _ := edges.(int64)
		return n, nil
	})
	if err != nil {
		return 0, r.fail(ctx, "delete_node", err)
	}

	removed := result.(int64)
	if removed < 0 {
		return 0, apperrors.NewNodeNotFound(id)
	}
	r.logger.Info("Node deleted", zap.String("node_id", id), zap.Int64("edges_removed", removed))
	return int(removed), nil
}

func (r *Neo4jStore) Stats(ctx context.Context) (*Stats, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		stats := newStats()
		labels, err := tx.Run(ctx, `MATCH (n:Entity) RETURN n.label AS key, count(*) AS count`, nil)
		if err != nil {
			return nil, err
		}
		for labels.Next(ctx) {
			key, count := keyCount(labels.Record())
			stats.addNodes(key, count)
		}
		if err := labels.Err(); err != nil {
			return nil, err
		}

		types, err := tx.Run(ctx, `MATCH (:Entity)-[r:RELATES]->(:Entity) RETURN r.rel_type AS key, count(*) AS count`, nil)
		if err != nil {
			return nil, err
		}
		for types.Next(ctx) {
			key, count := keyCount(types.Record())
			stats.addEdges(key, count)
		}
		return stats, types.Err()
	})
	if err != nil {
		return nil, r.fail(ctx, "graph_stats", err)
	}
	return result.(*Stats), nil
}

func (r *Neo4jStore) readNodes(ctx context.Context, op, query string, params map[string]interface{}) ([]Node, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		nodes := []Node{}
		for res.Next(ctx) {
			n, err := nodeFromRecord(res.Record(), "n")
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		return nodes, res.Err()
	})
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	return result.([]Node), nil
}

func (r *Neo4jStore) fail(ctx context.Context, op string, err error) error {
	if apperrors.TypeOf(err) != "" {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.NewContextCancelled(op, ctxErr)
	}
	r.logger.Error("Graph store operation failed", zap.String("operation", op), zap.Error(err))
	return apperrors.NewStorage(op, fmt.Errorf("neo4j %s: %w", op, err))
}
