package tools

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"kinship/backend/internal/adapter"
	"kinship/backend/internal/consistency"
	"kinship/backend/internal/contacts"
	"kinship/backend/internal/graph"
	"kinship/backend/internal/metrics"
	apperrors "kinship/backend/pkg/errors"
	"kinship/backend/pkg/logger"
)

// ErrorCodeUnknownTool is the error code for a tool name the executor does not serve
const ErrorCodeUnknownTool = "unknown_tool"

// ExecutionContext holds context for tool execution
type ExecutionContext struct {
	RequestID string
	Source    string // "http", "tool_call", "seed"
}

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// Executor handles tool execution. Each call is one store operation, or
// one consistency-layer operation for the composite tools.
type Executor struct {
	contacts contacts.Store
	graph    graph.Store
	layer    *consistency.Layer
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewExecutor creates a new tool executor. collector may be nil.
func NewExecutor(contactStore contacts.Store, graphStore graph.Store, layer *consistency.Layer, collector *metrics.Collector) *Executor {
	return &Executor{
		contacts: contactStore,
		graph:    graphStore,
		layer:    layer,
		metrics:  collector,
		logger:   logger.Named("tools"),
	}
}

// Execute runs a tool call and returns the result
func (e *Executor) Execute(ctx context.Context, execCtx *ExecutionContext, toolCall adapter.ToolCall) *ToolResult {
	if execCtx == nil {
		execCtx = &ExecutionContext{}
	}
	args := toolCall.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	e.logger.Debug("Executing tool",
		zap.String("tool", toolCall.Name),
		zap.String("request_id", execCtx.RequestID),
		zap.String("source", execCtx.Source),
	)

	start := time.Now()
	result := e.dispatch(ctx, toolCall.Name, args)

	outcome := "ok"
	if !result.Success {
		outcome = result.ErrorCode
	}
	e.metrics.ObserveTool(toolCall.Name, outcome, time.Since(start))

	return result
}

func (e *Executor) dispatch(ctx context.Context, name string, args map[string]interface{}) *ToolResult {
	switch name {
	// Contact Tools
	case ToolAddOrGetContact:
		return e.executeAddOrGetContact(ctx, args)
	case ToolGetContact:
		return e.executeGetContact(ctx, args)
	case ToolListContacts:
		return e.executeListContacts(ctx, args)
	case ToolResolveContact:
		return e.executeResolveContact(ctx, args)
	case ToolUpdateContactSummary:
		return e.executeUpdateContactSummary(ctx, args)
	case ToolDeleteContact:
		return e.executeDeleteContact(ctx, args)

	// Fact Tools
	case ToolAddFact:
		return e.executeAddFact(ctx, args)
	case ToolUpdateFact:
		return e.executeUpdateFact(ctx, args)
	case ToolDeleteFact:
		return e.executeDeleteFact(ctx, args)
	case ToolDeleteAllFacts:
		return e.executeDeleteAllFacts(ctx, args)
	case ToolUpdateFactType:
		return e.executeUpdateFactType(ctx, args)
	case ToolGetFactsByType:
		return e.executeGetFactsByType(ctx, args)
	case ToolSearchFacts:
		return e.executeSearchFacts(ctx, args)

	// Graph Tools
	case ToolUpsertNode:
		return e.executeUpsertNode(ctx, args)
	case ToolUpsertEdge:
		return e.executeUpsertEdge(ctx, args)
	case ToolBatchUpdateGraph:
		return e.executeBatchUpdateGraph(ctx, args)
	case ToolGetNode:
		return e.executeGetNode(ctx, args)
	case ToolListNodes:
		return e.executeListNodes(ctx, args)
	case ToolResolveNode:
		return e.executeResolveNode(ctx, args)
	case ToolGetNeighbors:
		return e.executeGetNeighbors(ctx, args)
	case ToolDeleteNode:
		return e.executeDeleteNode(ctx, args)
	case ToolGraphStatistics:
		return e.executeGraphStatistics(ctx, args)

	// Consistency Tools
	case ToolMirrorContact:
		return e.executeMirrorContact(ctx, args)
	case ToolReconcileContact:
		return e.executeReconcileContact(ctx, args)
	case ToolReconcileAll:
		return e.executeReconcileAll(ctx, args)

	default:
		e.logger.Warn("Unknown tool", zap.String("tool", name))
		return &ToolResult{
			Success:   false,
			Error:     "Unknown tool: " + name,
			ErrorCode: ErrorCodeUnknownTool,
		}
	}
}

// fail turns an error into a result carrying its machine-readable code
func (e *Executor) fail(tool string, err error) *ToolResult {
	code := ErrorCode(err)
	if code == string(apperrors.ErrorTypeStorage) {
		e.logger.Error("Tool failed", zap.String("tool", tool), zap.Error(err))
	} else {
		e.logger.Debug("Tool rejected", zap.String("tool", tool), zap.String("error_code", code), zap.Error(err))
	}

	result := &ToolResult{Success: false, Error: err.Error(), ErrorCode: code}

	var ambiguous *apperrors.ErrAmbiguousMatch
	if errors.As(err, &ambiguous) {
		result.Data = map[string]interface{}{"candidates": ambiguous.Candidates}
	}
	return result
}

// ErrorCode maps an error to the code reported on a failed result. Errors
// outside the store's taxonomy are reported as storage failures.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if t := apperrors.TypeOf(err); t != "" {
		return string(t)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return string(apperrors.ErrorTypeContext)
	}
	return string(apperrors.ErrorTypeStorage)
}
