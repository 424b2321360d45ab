package tools

import (
	"context"
	"fmt"

	"kinship/backend/internal/graph"
)

// ============================================================================
// Graph Tool Implementations
// ============================================================================

func (e *Executor) executeUpsertNode(ctx context.Context, args map[string]interface{}) *ToolResult {
	in, err := nodeInputArg(args)
	if err != nil {
		return e.fail(ToolUpsertNode, err)
	}

	node, err := e.graph.UpsertNode(ctx, in)
	if err != nil {
		return e.fail(ToolUpsertNode, err)
	}
	e.metrics.IncrementCounter("graph_upserts", "node")

	return &ToolResult{
		Success: true,
		Data:    node,
		Message: fmt.Sprintf("Node %s upserted", node.ID),
	}
}

func (e *Executor) executeUpsertEdge(ctx context.Context, args map[string]interface{}) *ToolResult {
	in, err := edgeInputArg(args)
	if err != nil {
		return e.fail(ToolUpsertEdge, err)
	}

	edge, err := e.graph.UpsertEdge(ctx, in)
	if err != nil {
		return e.fail(ToolUpsertEdge, err)
	}
	e.metrics.IncrementCounter("graph_upserts", "edge")

	return &ToolResult{
		Success: true,
		Data:    edge,
		Message: fmt.Sprintf("Edge %s -[%s]-> %s upserted", edge.From, edge.Type, edge.To),
	}
}

// executeBatchUpdateGraph succeeds whenever the batch ran; failures of
// single entries, including entries that do not decode, are in the
// report, not on the result.
func (e *Executor) executeBatchUpdateGraph(ctx context.Context, args map[string]interface{}) *ToolResult {
	rawNodes, err := listArg(args, "nodes")
	if err != nil {
		return e.fail(ToolBatchUpdateGraph, err)
	}
	rawEdges, err := listArg(args, "edges")
	if err != nil {
		return e.fail(ToolBatchUpdateGraph, err)
	}

	nodes := make([]graph.BatchNode, 0, len(rawNodes))
	for i, raw := range rawNodes {
		var entry graph.BatchNode
		m, err := entryArg("nodes", i, raw)
		if err == nil {
			entry.Input, err = nodeInputArg(m)
		}
		entry.Err = err
		nodes = append(nodes, entry)
	}
	edges := make([]graph.BatchEdge, 0, len(rawEdges))
	for i, raw := range rawEdges {
		var entry graph.BatchEdge
		m, err := entryArg("edges", i, raw)
		if err == nil {
			entry.Input, err = edgeInputArg(m)
		}
		entry.Err = err
		edges = append(edges, entry)
	}

	report := graph.ApplyEntries(ctx, e.graph, nodes, edges)
	for _, item := range report.Items {
		result := "ok"
		if !item.Success {
			result = "error"
		}
		e.metrics.IncrementCounter("batch_items", item.Kind, result)
	}

	message := fmt.Sprintf("Applied %d of %d entries", report.Succeeded, len(report.Items))
	if !report.OK() {
		message += fmt.Sprintf("; %d failed", report.Failed)
	}
	return &ToolResult{
		Success: true,
		Data:    report,
		Message: message,
	}
}

func (e *Executor) executeGetNode(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredString(args, "id", "node_id")
	if err != nil {
		return e.fail(ToolGetNode, err)
	}
	node, err := e.graph.GetNode(ctx, id)
	if err != nil {
		return e.fail(ToolGetNode, err)
	}
	return &ToolResult{Success: true, Data: node}
}

func (e *Executor) executeListNodes(ctx context.Context, args map[string]interface{}) *ToolResult {
	label, err := optionalString(args, "label")
	if err != nil {
		return e.fail(ToolListNodes, err)
	}
	nodes, err := e.graph.ListNodes(ctx, label)
	if err != nil {
		return e.fail(ToolListNodes, err)
	}
	return &ToolResult{
		Success: true,
		Data:    nodes,
		Message: fmt.Sprintf("%d nodes", len(nodes)),
	}
}

func (e *Executor) executeResolveNode(ctx context.Context, args map[string]interface{}) *ToolResult {
	name, err := requiredString(args, "name")
	if err != nil {
		return e.fail(ToolResolveNode, err)
	}
	node, err := e.graph.ResolveNode(ctx, name)
	if err != nil {
		return e.fail(ToolResolveNode, err)
	}
	return &ToolResult{
		Success: true,
		Data:    node,
		Message: fmt.Sprintf("%q is node %s", name, node.ID),
	}
}

func (e *Executor) executeGetNeighbors(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredString(args, "id", "node_id")
	if err != nil {
		return e.fail(ToolGetNeighbors, err)
	}
	relType, err := optionalString(args, "type", "relationship")
	if err != nil {
		return e.fail(ToolGetNeighbors, err)
	}

	neighbors, err := graph.CollectNeighbors(e.graph.Neighbors(ctx, id, relType))
	if err != nil {
		return e.fail(ToolGetNeighbors, err)
	}
	return &ToolResult{
		Success: true,
		Data:    neighbors,
		Message: fmt.Sprintf("%d neighbors", len(neighbors)),
	}
}

func (e *Executor) executeDeleteNode(ctx context.Context, args map[string]interface{}) *ToolResult {
	id, err := requiredString(args, "id", "node_id")
	if err != nil {
		return e.fail(ToolDeleteNode, err)
	}
	removed, err := e.graph.DeleteNode(ctx, id)
	if err != nil {
		return e.fail(ToolDeleteNode, err)
	}
	return &ToolResult{
		Success: true,
		Data:    map[string]interface{}{"id": id, "edges_removed": removed},
		Message: fmt.Sprintf("Node %s deleted with %d relationships", id, removed),
	}
}

func (e *Executor) executeGraphStatistics(ctx context.Context, _ map[string]interface{}) *ToolResult {
	stats, err := e.graph.Stats(ctx)
	if err != nil {
		return e.fail(ToolGraphStatistics, err)
	}
	return &ToolResult{
		Success: true,
		Data:    stats,
		Message: fmt.Sprintf("%d nodes, %d relationships", stats.Nodes, stats.Edges),
	}
}
