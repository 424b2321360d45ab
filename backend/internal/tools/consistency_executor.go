package tools

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"kinship/backend/internal/consistency"
)

// ============================================================================
// Consistency Tool Implementations
// ============================================================================

func (e *Executor) executeMirrorContact(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredInt(args, "contact_id")
	if err != nil {
		return e.fail(ToolMirrorContact, err)
	}
	props, err := mapArg(args, "properties")
	if err != nil {
		return e.fail(ToolMirrorContact, err)
	}

	node, err := e.layer.MirrorContact(ctx, id, props)
	if err != nil {
		return e.fail(ToolMirrorContact, err)
	}
	e.metrics.IncrementCounter("graph_upserts", "node")

	return &ToolResult{
		Success: true,
		Data:    node,
		Message: fmt.Sprintf("Contact %d mirrored to node %s", id, node.ID),
	}
}

func (e *Executor) executeReconcileContact(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredInt(args, "contact_id")
	if err != nil {
		return e.fail(ToolReconcileContact, err)
	}

	report, err := e.layer.Reconcile(ctx, id)
	if err != nil {
		return e.fail(ToolReconcileContact, err)
	}
	e.countDrift(*report)

	message := fmt.Sprintf("Contact %d is consistent", id)
	if !report.Consistent {
		message = fmt.Sprintf("Contact %d has %d findings", id, len(report.Drift))
	}
	return &ToolResult{
		Success: true,
		Data:    report,
		Message: message,
	}
}

func (e *Executor) executeReconcileAll(ctx context.Context, _ map[string]interface{}) *ToolResult {
	reports, err := e.layer.ReconcileAll(ctx)
	if err != nil {
		return e.fail(ToolReconcileAll, err)
	}
	for _, r := range reports {
		e.countDrift(r)
	}

	inconsistent := lo.CountBy(reports, func(r consistency.Report) bool { return !r.Consistent })
	return &ToolResult{
		Success: true,
		Data:    reports,
		Message: fmt.Sprintf("%d of %d contacts need attention", inconsistent, len(reports)),
	}
}

func (e *Executor) countDrift(r consistency.Report) {
	for _, d := range r.Drift {
		e.metrics.IncrementCounter("drift_findings", string(d.Kind))
	}
}
