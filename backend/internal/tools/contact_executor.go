package tools

import (
	"context"
	"fmt"

	"kinship/backend/internal/contacts"
	apperrors "kinship/backend/pkg/errors"
)

// ============================================================================
// Contact Tool Implementations
// ============================================================================

func (e *Executor) executeAddOrGetContact(ctx context.Context, args map[string]interface{}) *ToolResult {
	name, err := requiredString(args, "name")
	if err != nil {
		return e.fail(ToolAddOrGetContact, err)
	}
	summaryText, hasSummary, err := stringArg(args, "summary")
	if err != nil {
		return e.fail(ToolAddOrGetContact, err)
	}
	var summary *string
	if hasSummary {
		summary = &summaryText
	}

	contact, created, err := e.contacts.AddOrGet(ctx, name, summary)
	if err != nil {
		return e.fail(ToolAddOrGetContact, err)
	}

	message := fmt.Sprintf("Found existing contact %s (id %d)", contact.Name, contact.ID)
	if created {
		e.metrics.IncrementCounter("contacts_created")
		message = fmt.Sprintf("Created contact %s (id %d)", contact.Name, contact.ID)
	}

	return &ToolResult{
		Success: true,
		Data: map[string]interface{}{
			"contact": contact,
			"created": created,
		},
		Message: message,
	}
}

func (e *Executor) executeGetContact(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := optionalInt(args, "contact_id", "id")
	if err != nil {
		return e.fail(ToolGetContact, err)
	}
	name, err := optionalString(args, "name")
	if err != nil {
		return e.fail(ToolGetContact, err)
	}

	found, err := contacts.Query(ctx, e.contacts, id, name)
	if err != nil {
		return e.fail(ToolGetContact, err)
	}

	return &ToolResult{
		Success: true,
		Data:    found,
		Message: fmt.Sprintf("Found %d contacts", len(found)),
	}
}

func (e *Executor) executeListContacts(ctx context.Context, _ map[string]interface{}) *ToolResult {
	all, err := e.contacts.List(ctx)
	if err != nil {
		return e.fail(ToolListContacts, err)
	}
	return &ToolResult{
		Success: true,
		Data:    all,
		Message: fmt.Sprintf("%d contacts", len(all)),
	}
}

func (e *Executor) executeResolveContact(ctx context.Context, args map[string]interface{}) *ToolResult {
	name, err := requiredString(args, "name")
	if err != nil {
		return e.fail(ToolResolveContact, err)
	}

	contact, err := contacts.Resolve(ctx, e.contacts, name)
	if err != nil {
		return e.fail(ToolResolveContact, err)
	}
	return &ToolResult{
		Success: true,
		Data:    contact,
		Message: fmt.Sprintf("%q is %s (id %d)", name, contact.Name, contact.ID),
	}
}

func (e *Executor) executeUpdateContactSummary(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredInt(args, "contact_id", "id")
	if err != nil {
		return e.fail(ToolUpdateContactSummary, err)
	}
	summary, hasSummary, err := stringArg(args, "summary", "new_summary", "text")
	if err != nil {
		return e.fail(ToolUpdateContactSummary, err)
	}
	if !hasSummary {
		return e.fail(ToolUpdateContactSummary, apperrors.NewValidation("summary", "is required"))
	}

	if err := e.contacts.UpdateSummary(ctx, id, summary); err != nil {
		return e.fail(ToolUpdateContactSummary, err)
	}
	return &ToolResult{
		Success: true,
		Message: fmt.Sprintf("Summary of contact %d replaced", id),
	}
}

func (e *Executor) executeDeleteContact(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredInt(args, "contact_id", "id")
	if err != nil {
		return e.fail(ToolDeleteContact, err)
	}
	if err := e.contacts.Delete(ctx, id); err != nil {
		return e.fail(ToolDeleteContact, err)
	}
	return &ToolResult{
		Success: true,
		Message: fmt.Sprintf("Contact %d deleted", id),
	}
}
