package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate_CreatesTables(t *testing.T) {
	ctx := context.Background()
	db, err := OpenAndMigrate(ctx, filepath.Join(t.TempDir(), "kinship.db"))
	require.NoError(t, err)
	defer db.Close()

	var tables []string
	err = db.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('contacts', 'graph_nodes', 'graph_edges') ORDER BY name`)
	require.NoError(t, err)
	assert.Equal(t, []string{"contacts", "graph_edges", "graph_nodes"}, tables)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := OpenAndMigrate(ctx, filepath.Join(t.TempDir(), "kinship.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, Migrate(ctx, db))
}

func TestContactsTable_HasTenFactColumns(t *testing.T) {
	ctx := context.Background()
	db, err := OpenAndMigrate(ctx, filepath.Join(t.TempDir(), "kinship.db"))
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM pragma_table_info('contacts') WHERE name GLOB 'fact_[0-9]*' AND name NOT LIKE '%_type'`)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestDSN(t *testing.T) {
	assert.Contains(t, dsn("data.db"), "file:data.db?")
	assert.Contains(t, dsn("file:data.db?mode=rwc"), "file:data.db?mode=rwc&_txlock=immediate")
}
