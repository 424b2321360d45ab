package tools

import (
	"kinship/backend/internal/adapter"
)

// GetContactTools returns contact record management tools
func GetContactTools() []adapter.Tool {
	return []adapter.Tool{
		function(ToolAddOrGetContact,
			"Create a contact, or return the existing one whose name matches ignoring case and extra spaces. If a summary is given it replaces the stored summary; it is never appended.",
			map[string]interface{}{
				"name":    param("string", "Display name of the person"),
				"summary": param("string", "Optional summary of who this person is to the user"),
			},
			"name",
		),
		function(ToolGetContact,
			"Look up contacts with their fact slots. Give exactly one of contact_id (exact) or name (case-insensitive substring; may return several or none).",
			map[string]interface{}{
				"contact_id": param("integer", "Contact id"),
				"name":       param("string", "Part of the contact's name"),
			},
		),
		function(ToolListContacts,
			"List every contact with its fact slots, ordered by id.",
			map[string]interface{}{},
		),
		function(ToolResolveContact,
			"Find the single contact a name refers to. An exact name match wins over partial matches; if several contacts still match, the candidates are returned instead of a guess.",
			map[string]interface{}{
				"name": param("string", "Name to resolve"),
			},
			"name",
		),
		function(ToolUpdateContactSummary,
			"Replace a contact's summary.",
			map[string]interface{}{
				"contact_id": param("integer", "Contact id"),
				"summary":    param("string", "The new summary"),
			},
			"contact_id", "summary",
		),
		function(ToolDeleteContact,
			"Delete a contact and all of its facts. This cannot be undone.",
			map[string]interface{}{
				"contact_id": param("integer", "Contact id"),
			},
			"contact_id",
		),
	}
}
