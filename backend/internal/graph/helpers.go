package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/samber/lo"
)

// ============================================================================
// Neo4j Record Helpers
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getStringFromMap(m map[string]interface{}, key string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return fmt.Sprint(val)
}

func getTimeFromMap(m map[string]interface{}, key string) time.Time {
	val, ok := m[key]
	if !ok {
		return time.Time{}
	}
	// Neo4j datetime values come as time.Time
	if t, ok := val.(time.Time); ok {
		return t.UTC()
	}
	return time.Time{}
}

// userProperties strips the bookkeeping keys an entity of one kind carries
func userProperties(props map[string]interface{}, kindKeys []string) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		if lo.Contains(entityKeys, k) || lo.Contains(kindKeys, k) {
			continue
		}
		if s, ok := scalar(v); ok {
			out[k] = s
		} else {
			out[k] = v
		}
	}
	return out
}

// keyCount reads a (key, count) aggregation row
func keyCount(record *neo4j.Record) (string, int) {
	count, _ := record.Get("count")
	n, _ := count.(int64)
	return getStringFromRecord(record, "key"), int(n)
}

func nodeFromRecord(record *neo4j.Record, key string) (Node, error) {
	val, ok := record.Get(key)
	if !ok {
		return Node{}, fmt.Errorf("record has no %q column", key)
	}
	n, ok := val.(neo4j.Node)
	if !ok {
		return Node{}, fmt.Errorf("column %q is %T, not a node", key, val)
	}
	return Node{
		ID:         getStringFromMap(n.Props, "id"),
		Label:      getStringFromMap(n.Props, "label"),
		Properties: userProperties(n.Props, nodeKeys),
		CreatedAt:  getTimeFromMap(n.Props, "created_at"),
		UpdatedAt:  getTimeFromMap(n.Props, "updated_at"),
	}, nil
}

func edgeFromRecord(record *neo4j.Record) (Edge, error) {
	val, ok := record.Get("r")
	if !ok {
		return Edge{}, fmt.Errorf("record has no relationship column")
	}
	r, ok := val.(neo4j.Relationship)
	if !ok {
		return Edge{}, fmt.Errorf("column r is %T, not a relationship", val)
	}
	return Edge{
		ID:         getStringFromMap(r.Props, "id"),
		From:       getStringFromRecord(record, "from_id"),
		To:         getStringFromRecord(record, "to_id"),
		Type:       getStringFromMap(r.Props, "rel_type"),
		Properties: userProperties(r.Props, edgeKeys),
		CreatedAt:  getTimeFromMap(r.Props, "created_at"),
		UpdatedAt:  getTimeFromMap(r.Props, "updated_at"),
	}, nil
}
