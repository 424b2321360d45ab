package tools

import (
	"kinship/backend/internal/adapter"
)

// GetConsistencyTools returns the tools that touch both the contacts and the graph
func GetConsistencyTools() []adapter.Tool {
	return []adapter.Tool{
		function(ToolMirrorContact,
			"Create or update the Person node for a contact. A node that already matches the contact's name is reused; properties are merged into it.",
			map[string]interface{}{
				"contact_id": param("integer", "Contact id"),
				"properties": propertiesParam,
			},
			"contact_id",
		),
		function(ToolReconcileContact,
			"Compare a contact's facts with the relationships of its Person node and report where they disagree. Nothing is changed.",
			map[string]interface{}{
				"contact_id": param("integer", "Contact id"),
			},
			"contact_id",
		),
		function(ToolReconcileAll,
			"Reconcile every contact and report the disagreements. Nothing is changed.",
			map[string]interface{}{},
		),
	}
}
