package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kinship/backend/internal/adapter"
	"kinship/backend/internal/constants"
	"kinship/backend/internal/contacts"
	"kinship/backend/internal/graph"
	"kinship/backend/internal/tools"
	"kinship/backend/pkg/config"
)

func testConfig(contactBackend, graphBackend, path string) *config.Config {
	return &config.Config{
		Port:                 "0",
		Env:                  "development",
		RequestTimeout:       time.Second,
		ContactBackend:       contactBackend,
		GraphBackend:         graphBackend,
		SQLitePath:           path,
		ReconcileConcurrency: 2,
	}
}

func TestStart_Memory(t *testing.T) {
	ctx := context.Background()
	sm, err := Start(ctx, testConfig(constants.BackendMemory, constants.BackendMemory, ""), nil, zap.NewNop())
	require.NoError(t, err)

	assert.IsType(t, &contacts.MemoryStore{}, sm.Contacts)
	assert.IsType(t, &graph.MemoryStore{}, sm.Graph)
	require.NoError(t, sm.Shutdown(ctx))
	require.NoError(t, sm.Shutdown(ctx), "second shutdown is a no-op")
}

func TestStart_SQLiteSharedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kinship.db")

	sm, err := Start(ctx, testConfig(constants.BackendSQLite, constants.BackendSQLite, path), nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &contacts.SQLStore{}, sm.Contacts)
	assert.IsType(t, &graph.SQLStore{}, sm.Graph)

	res := sm.Executor.Execute(ctx, nil, adapter.ToolCall{Name: tools.ToolAddOrGetContact, Arguments: map[string]interface{}{"name": "Ellen"}})
	require.True(t, res.Success, res.Error)
	res = sm.Executor.Execute(ctx, nil, adapter.ToolCall{Name: tools.ToolMirrorContact, Arguments: map[string]interface{}{"contact_id": 1}})
	require.True(t, res.Success, res.Error)
	require.NoError(t, sm.Shutdown(ctx))

	// data survives a restart
	sm, err = Start(ctx, testConfig(constants.BackendSQLite, constants.BackendSQLite, path), nil, zap.NewNop())
	require.NoError(t, err)
	defer sm.Shutdown(ctx)

	c, err := sm.Contacts.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ellen", c.Name)
	n, err := sm.Graph.GetNode(ctx, "ellen")
	require.NoError(t, err)
	assert.Equal(t, constants.LabelPerson, n.Label)
}

func TestStart_Neo4jUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a network address")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := testConfig(constants.BackendMemory, constants.BackendNeo4j, "")
	cfg.Neo4jURI = "neo4j://127.0.0.1:1"
	cfg.Neo4jUser = "neo4j"
	cfg.Neo4jPassword = "password"

	_, err := Start(ctx, cfg, nil, zap.NewNop())
	assert.Error(t, err)
}
