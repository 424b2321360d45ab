package graph

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	apperrors "kinship/backend/pkg/errors"
	"kinship/backend/pkg/logger"
)

// BatchItem reports the outcome of one entry of a batch
type BatchItem struct {
	Kind      string `json:"kind"` // node or edge
	Index     int    `json:"index"`
	Key       string `json:"key"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// BatchReport lists every entry of a batch in application order
type BatchReport struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// OK reports whether every entry succeeded
func (r BatchReport) OK() bool {
	return r.Failed == 0
}

// BatchNode is one node entry of a batch. A non-nil Err marks an entry
// rejected while decoding; it is reported as failed and never applied.
type BatchNode struct {
	Input NodeInput
	Err   error
}

// BatchEdge is one edge entry of a batch, see BatchNode
type BatchEdge struct {
	Input EdgeInput
	Err   error
}

// ApplyBatch upserts all nodes, then all edges, each in the order given.
func ApplyBatch(ctx context.Context, store Store, nodes []NodeInput, edges []EdgeInput) BatchReport {
	return ApplyEntries(ctx, store,
		lo.Map(nodes, func(n NodeInput, _ int) BatchNode { return BatchNode{Input: n} }),
		lo.Map(edges, func(e EdgeInput, _ int) BatchEdge { return BatchEdge{Input: e} }),
	)
}

// ApplyEntries is ApplyBatch for entries that may already carry a decode
// error.
//
// The batch is not atomic: an entry that fails is recorded and the rest
// still run, and earlier successes stay committed. Once ctx ends the
// remaining entries are reported as failed without being attempted.
func ApplyEntries(ctx context.Context, store Store, nodes []BatchNode, edges []BatchEdge) BatchReport {
	log := logger.Named("graph.batch")
	report := BatchReport{Items: make([]BatchItem, 0, len(nodes)+len(edges))}

	record := func(item BatchItem, err error) {
		if err != nil {
			item.Error = err.Error()
			item.ErrorCode = string(apperrors.TypeOf(err))
			report.Failed++
		} else {
			item.Success = true
			report.Succeeded++
		}
		report.Items = append(report.Items, item)
	}

	for i, n := range nodes {
		item := BatchItem{Kind: "node", Index: i, Key: n.Input.ID}
		switch {
		case n.Err != nil:
			record(item, n.Err)
		case ctx.Err() != nil:
			record(item, apperrors.NewContextCancelled("batch_update_graph", ctx.Err()))
		default:
			_, err := store.UpsertNode(ctx, n.Input)
			record(item, err)
		}
	}

	for i, e := range edges {
		item := BatchItem{Kind: "edge", Index: i, Key: e.Input.From + " -[" + e.Input.Type + "]-> " + e.Input.To}
		switch {
		case e.Err != nil:
			record(item, e.Err)
		case ctx.Err() != nil:
			record(item, apperrors.NewContextCancelled("batch_update_graph", ctx.Err()))
		default:
			_, err := store.UpsertEdge(ctx, e.Input)
			record(item, err)
		}
	}

	if report.Failed > 0 {
		log.Warn("Graph batch partially failed",
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed),
		)
	} else {
		log.Info("Graph batch applied",
			zap.Int("nodes", len(nodes)),
			zap.Int("edges", len(edges)),
		)
	}
	return report
}
