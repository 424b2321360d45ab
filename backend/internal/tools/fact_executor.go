package tools

import (
	"context"
	"fmt"

	"kinship/backend/internal/contacts"
)

// ============================================================================
// Fact Tool Implementations
// ============================================================================

func (e *Executor) executeAddFact(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredInt(args, "contact_id")
	if err != nil {
		return e.fail(ToolAddFact, err)
	}
	text, err := requiredString(args, "fact_text", "text", "fact")
	if err != nil {
		return e.fail(ToolAddFact, err)
	}
	factType, err := optionalString(args, "fact_type")
	if err != nil {
		return e.fail(ToolAddFact, err)
	}

	slot, err := e.contacts.AddFact(ctx, id, text, factType)
	if err != nil {
		return e.fail(ToolAddFact, err)
	}
	e.metrics.IncrementCounter("facts_added")

	return &ToolResult{
		Success: true,
		Data: map[string]interface{}{
			"contact_id":  id,
			"fact_number": slot,
		},
		Message: fmt.Sprintf("Fact stored in slot %d", slot),
	}
}

func (e *Executor) executeUpdateFact(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredInt(args, "contact_id")
	if err != nil {
		return e.fail(ToolUpdateFact, err)
	}
	slot, err := requiredSlot(args)
	if err != nil {
		return e.fail(ToolUpdateFact, err)
	}
	text, err := requiredString(args, "fact_text", "new_fact_text", "text", "fact")
	if err != nil {
		return e.fail(ToolUpdateFact, err)
	}
	factType, err := optionalString(args, "fact_type")
	if err != nil {
		return e.fail(ToolUpdateFact, err)
	}

	if err := e.contacts.UpdateFact(ctx, id, slot, text, factType); err != nil {
		return e.fail(ToolUpdateFact, err)
	}
	return &ToolResult{
		Success: true,
		Message: fmt.Sprintf("Fact %d of contact %d updated", slot, id),
	}
}

func (e *Executor) executeDeleteFact(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredInt(args, "contact_id")
	if err != nil {
		return e.fail(ToolDeleteFact, err)
	}
	slot, err := requiredSlot(args)
	if err != nil {
		return e.fail(ToolDeleteFact, err)
	}

	if err := e.contacts.DeleteFact(ctx, id, slot); err != nil {
		return e.fail(ToolDeleteFact, err)
	}
	return &ToolResult{
		Success: true,
		Message: fmt.Sprintf("Fact %d of contact %d cleared", slot, id),
	}
}

func (e *Executor) executeDeleteAllFacts(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredInt(args, "contact_id")
	if err != nil {
		return e.fail(ToolDeleteAllFacts, err)
	}
	if err := e.contacts.DeleteAllFacts(ctx, id); err != nil {
		return e.fail(ToolDeleteAllFacts, err)
	}
	return &ToolResult{
		Success: true,
		Message: fmt.Sprintf("All facts of contact %d cleared", id),
	}
}

func (e *Executor) executeUpdateFactType(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredInt(args, "contact_id")
	if err != nil {
		return e.fail(ToolUpdateFactType, err)
	}
	slot, err := requiredSlot(args)
	if err != nil {
		return e.fail(ToolUpdateFactType, err)
	}
	factType, err := requiredString(args, "fact_type", "new_fact_type")
	if err != nil {
		return e.fail(ToolUpdateFactType, err)
	}

	if err := e.contacts.UpdateFactType(ctx, id, slot, factType); err != nil {
		return e.fail(ToolUpdateFactType, err)
	}
	return &ToolResult{
		Success: true,
		Message: fmt.Sprintf("Fact %d of contact %d is now %s", slot, id, factType),
	}
}

func (e *Executor) executeGetFactsByType(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := optionalInt(args, "contact_id")
	if err != nil {
		return e.fail(ToolGetFactsByType, err)
	}
	factType, err := optionalString(args, "fact_type")
	if err != nil {
		return e.fail(ToolGetFactsByType, err)
	}

	facts, err := contacts.FactsByType(ctx, e.contacts, id, factType)
	if err != nil {
		return e.fail(ToolGetFactsByType, err)
	}
	return &ToolResult{
		Success: true,
		Data:    facts,
		Message: fmt.Sprintf("Found %d facts", len(facts)),
	}
}

func (e *Executor) executeSearchFacts(ctx context.Context, args map[string]interface{}) *ToolResult {
	query, err := requiredString(args, "query")
	if err != nil {
		return e.fail(ToolSearchFacts, err)
	}

	found, err := contacts.SearchFacts(ctx, e.contacts, query)
	if err != nil {
		return e.fail(ToolSearchFacts, err)
	}
	if found == nil {
		found = []contacts.Contact{}
	}
	return &ToolResult{
		Success: true,
		Data:    found,
		Message: fmt.Sprintf("Found %d contacts mentioning %q", len(found), query),
	}
}
