package tools

import (
	"kinship/backend/internal/adapter"
)

// Tool names - Contact Tools
const (
	ToolAddOrGetContact      = "add_or_get_contact"
	ToolGetContact           = "get_contact"
	ToolListContacts         = "list_contacts"
	ToolResolveContact       = "resolve_contact"
	ToolUpdateContactSummary = "update_contact_summary"
	ToolDeleteContact        = "delete_contact"
)

// Tool names - Fact Tools
const (
	ToolAddFact        = "add_fact"
	ToolUpdateFact     = "update_fact"
	ToolDeleteFact     = "delete_fact"
	ToolDeleteAllFacts = "delete_all_facts"
	ToolUpdateFactType = "update_fact_type"
	ToolGetFactsByType = "get_facts_by_type"
	ToolSearchFacts    = "search_facts"
)

// Tool names - Graph Tools
const (
	ToolUpsertNode       = "upsert_node"
	ToolUpsertEdge       = "upsert_edge"
	ToolBatchUpdateGraph = "batch_update_graph"
	ToolGetNode          = "get_node"
	ToolListNodes        = "list_nodes"
	ToolResolveNode      = "resolve_node"
	ToolGetNeighbors     = "get_neighbors"
	ToolDeleteNode       = "delete_node"
	ToolGraphStatistics  = "get_graph_statistics"
)

// Tool names - Consistency Tools
const (
	ToolMirrorContact    = "mirror_contact"
	ToolReconcileContact = "reconcile_contact"
	ToolReconcileAll     = "reconcile_all"
)

// GetAllTools returns every tool the executor serves
func GetAllTools() []adapter.Tool {
	tools := []adapter.Tool{}

	// Contact Tools
	tools = append(tools, GetContactTools()...)

	// Fact Tools
	tools = append(tools, GetFactTools()...)

	// Graph Tools
	tools = append(tools, GetGraphTools()...)

	// Consistency Tools
	tools = append(tools, GetConsistencyTools()...)

	return tools
}

// function builds a tool definition with an object parameter schema
func function(name, description string, properties map[string]interface{}, required ...string) adapter.Tool {
	if required == nil {
		required = []string{}
	}
	return adapter.Tool{
		Type: "function",
		Function: adapter.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

func param(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}
