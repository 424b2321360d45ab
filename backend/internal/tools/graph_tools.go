package tools

import (
	"kinship/backend/internal/adapter"
)

var propertiesParam = map[string]interface{}{
	"type":        "object",
	"description": "Key/value properties. Nested objects are flattened into underscore-joined keys; id, created_at and updated_at are reserved, as are label, id_key and name_key on nodes and rel_type on edges.",
}

var nodeSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"id":         param("string", "Node id, e.g. the person's name"),
		"label":      param("string", "Person, Place, Organization, Event, Activity, Date, ..."),
		"properties": propertiesParam,
	},
	"required": []string{"id"},
}

var edgeSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"from":         param("string", "Source node id"),
		"to":           param("string", "Target node id"),
		"relationship": param("string", "Relationship type, e.g. friends_with"),
		"properties":   propertiesParam,
	},
	"required": []string{"from", "to", "relationship"},
}

// GetGraphTools returns property graph tools
func GetGraphTools() []adapter.Tool {
	return []adapter.Tool{
		function(ToolUpsertNode,
			"Create a node or merge into an existing one. Properties are merged key by key; the label is only replaced when a non-empty one is given.",
			map[string]interface{}{
				"id":         param("string", "Node id, e.g. the person's name"),
				"label":      param("string", "Person, Place, Organization, Event, Activity, Date, ..."),
				"properties": propertiesParam,
			},
			"id",
		),
		function(ToolUpsertEdge,
			"Create a directed relationship or merge properties into the existing one with the same endpoints and type. Endpoints that do not exist yet are created as unlabeled placeholders.",
			map[string]interface{}{
				"from_id":    param("string", "Source node id"),
				"to_id":      param("string", "Target node id"),
				"type":       param("string", "Relationship type, e.g. friends_with"),
				"properties": propertiesParam,
			},
			"from_id", "to_id", "type",
		),
		function(ToolBatchUpdateGraph,
			"Upsert many nodes and then many edges, in order. Entries are applied independently: one failure does not undo or stop the others. Returns a per-entry report.",
			map[string]interface{}{
				"nodes": map[string]interface{}{
					"type":        "array",
					"items":       nodeSchema,
					"description": "Nodes to upsert",
				},
				"edges": map[string]interface{}{
					"type":        "array",
					"items":       edgeSchema,
					"description": "Edges to upsert, applied after all nodes",
				},
			},
		),
		function(ToolGetNode,
			"Get one node by its exact id.",
			map[string]interface{}{
				"id": param("string", "Node id"),
			},
			"id",
		),
		function(ToolListNodes,
			"List nodes, optionally only those with one label.",
			map[string]interface{}{
				"label": param("string", "Only nodes with this label"),
			},
		),
		function(ToolResolveNode,
			"Find the node a display name refers to, by id or name property, ignoring case and extra spaces.",
			map[string]interface{}{
				"name": param("string", "Name to resolve"),
			},
			"name",
		),
		function(ToolGetNeighbors,
			"List the outgoing relationships of a node and the nodes they point to.",
			map[string]interface{}{
				"id":   param("string", "Node id"),
				"type": param("string", "Only relationships of this type"),
			},
			"id",
		),
		function(ToolDeleteNode,
			"Delete a node and every relationship into or out of it. This cannot be undone and does not touch contacts.",
			map[string]interface{}{
				"id": param("string", "Node id"),
			},
			"id",
		),
		function(ToolGraphStatistics,
			"Count nodes per label, unlabeled placeholder nodes and relationships per type.",
			map[string]interface{}{},
		),
	}
}
