package tools

import (
	"fmt"
	"strings"

	"kinship/backend/internal/adapter"
	"kinship/backend/internal/constants"
)

var factTypeHelp = fmt.Sprintf("Fact category, e.g. %s (default %s)",
	strings.Join(constants.KnownFactTypes[:len(constants.KnownFactTypes)-1], ", "),
	constants.DefaultFactType,
)

var factNumberHelp = fmt.Sprintf("Fact slot number, 1 to %d", constants.FactSlotCount)

// GetFactTools returns fact slot management tools
func GetFactTools() []adapter.Tool {
	return []adapter.Tool{
		function(ToolAddFact,
			fmt.Sprintf("Store a fact about a contact in the first empty slot. Each contact has %d slots; when all are full this fails and an existing fact must be updated or deleted first. Returns the slot number used.", constants.FactSlotCount),
			map[string]interface{}{
				"contact_id": param("integer", "Contact id"),
				"fact_text":  param("string", "The fact, as one short sentence"),
				"fact_type":  param("string", factTypeHelp),
			},
			"contact_id", "fact_text",
		),
		function(ToolUpdateFact,
			"Overwrite the fact in one slot, whether or not the slot is occupied.",
			map[string]interface{}{
				"contact_id":  param("integer", "Contact id"),
				"fact_number": param("integer", factNumberHelp),
				"fact_text":   param("string", "The new fact text"),
				"fact_type":   param("string", "New category; omit to keep the current one"),
			},
			"contact_id", "fact_number", "fact_text",
		),
		function(ToolDeleteFact,
			"Clear one fact slot. Other facts keep their slot numbers. Clearing an empty slot succeeds.",
			map[string]interface{}{
				"contact_id":  param("integer", "Contact id"),
				"fact_number": param("integer", factNumberHelp),
			},
			"contact_id", "fact_number",
		),
		function(ToolDeleteAllFacts,
			"Clear every fact slot of a contact. The contact itself is kept.",
			map[string]interface{}{
				"contact_id": param("integer", "Contact id"),
			},
			"contact_id",
		),
		function(ToolUpdateFactType,
			"Change the category of an occupied fact slot without changing its text.",
			map[string]interface{}{
				"contact_id":  param("integer", "Contact id"),
				"fact_number": param("integer", factNumberHelp),
				"fact_type":   param("string", factTypeHelp),
			},
			"contact_id", "fact_number", "fact_type",
		),
		function(ToolGetFactsByType,
			"List facts, optionally limited to one contact and/or one category.",
			map[string]interface{}{
				"contact_id": param("integer", "Only facts of this contact"),
				"fact_type":  param("string", "Only facts of this category"),
			},
		),
		function(ToolSearchFacts,
			"Find contacts whose facts or summary contain the query, ignoring case.",
			map[string]interface{}{
				"query": param("string", "Text to search for"),
			},
			"query",
		),
	}
}
