package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kinship/backend/internal/adapter"
	"kinship/backend/internal/contacts"
	"kinship/backend/internal/graph"
	"kinship/backend/internal/tools"
)

// seeder replays the Ellen and Tomorrah scenarios through the tool
// executor, exactly as a model's tool calls would arrive.
type seeder struct {
	exec *tools.Executor
	log  *zap.Logger
}

func toolCall(name string, args map[string]interface{}) adapter.ToolCall {
	return adapter.ToolCall{ID: "seed_" + name, Name: name, Arguments: args}
}

func (s *seeder) execCtx() *tools.ExecutionContext {
	return &tools.ExecutionContext{RequestID: "seed", Source: "seed"}
}

func (s *seeder) call(ctx context.Context, name string, args map[string]interface{}) (*tools.ToolResult, error) {
	result := s.exec.Execute(ctx, s.execCtx(), toolCall(name, args))
	if !result.Success {
		return nil, fmt.Errorf("%s: %s (%s)", name, result.Error, result.ErrorCode)
	}
	s.log.Info(result.Message, zap.String("tool", name))
	return result, nil
}

func (s *seeder) contact(ctx context.Context, name, summary string) (int64, error) {
	result, err := s.call(ctx, tools.ToolAddOrGetContact, map[string]interface{}{"name": name, "summary": summary})
	if err != nil {
		return 0, err
	}
	return result.Data.(map[string]interface{})["contact"].(*contacts.Contact).ID, nil
}

func (s *seeder) run(ctx context.Context) error {
	if err := s.seedEllen(ctx); err != nil {
		return err
	}
	return s.seedTomorrah(ctx)
}

// seedEllen: two facts, the first deleted; the second keeps slot 2
func (s *seeder) seedEllen(ctx context.Context) error {
	id, err := s.contact(ctx, "Ellen", "The user's mother")
	if err != nil {
		return err
	}

	steps := []struct {
		tool string
		args map[string]interface{}
	}{
		{tools.ToolDeleteAllFacts, map[string]interface{}{"contact_id": id}},
		{tools.ToolAddFact, map[string]interface{}{"contact_id": id, "fact_text": "mother", "fact_type": "relationship"}},
		{tools.ToolAddFact, map[string]interface{}{"contact_id": id, "fact_text": "lives in Denver", "fact_type": "personal"}},
		{tools.ToolDeleteFact, map[string]interface{}{"contact_id": id, "fact_number": 1}},
	}
	for _, step := range steps {
		if _, err := s.call(ctx, step.tool, step.args); err != nil {
			return err
		}
	}

	mirrored, err := s.call(ctx, tools.ToolMirrorContact, map[string]interface{}{
		"contact_id": id,
		"properties": map[string]interface{}{"relationship_to_user": "mother"},
	})
	if err != nil {
		return err
	}
	node := mirrored.Data.(*graph.Node)

	_, err = s.call(ctx, tools.ToolBatchUpdateGraph, map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"id": "Denver", "label": "Place", "properties": map[string]interface{}{"kind": "city"}},
		},
		"edges": []interface{}{
			map[string]interface{}{"from": node.ID, "to": "Denver", "relationship": "lives_in"},
		},
	})
	return err
}

// seedTomorrah: the edge arrives before either node exists
func (s *seeder) seedTomorrah(ctx context.Context) error {
	if _, err := s.call(ctx, tools.ToolUpsertEdge, map[string]interface{}{
		"from_id": "Tomorrah", "to_id": "Deja", "type": "friends_with",
	}); err != nil {
		return err
	}

	if _, err := s.call(ctx, tools.ToolBatchUpdateGraph, map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"id": "Tomorrah", "label": "Person", "properties": map[string]interface{}{"relationship_to_user": "wife"}},
			map[string]interface{}{"id": "Deja", "label": "Person"},
		},
	}); err != nil {
		return err
	}

	id, err := s.contact(ctx, "Tomorrah", "The user's wife")
	if err != nil {
		return err
	}
	if _, err := s.call(ctx, tools.ToolDeleteAllFacts, map[string]interface{}{"contact_id": id}); err != nil {
		return err
	}
	if _, err := s.call(ctx, tools.ToolAddFact, map[string]interface{}{
		"contact_id": id, "fact_text": "Best friends with Deja", "fact_type": "relationship",
	}); err != nil {
		return err
	}
	_, err = s.call(ctx, tools.ToolMirrorContact, map[string]interface{}{"contact_id": id})
	return err
}
