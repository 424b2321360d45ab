// Package database opens the embedded SQLite file shared by the contact
// table and the SQL-backed property graph, and applies its migrations.
package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"kinship/backend/pkg/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Open connects to the SQLite file at path.
//
// Transactions begin IMMEDIATE so that read-then-write sequences (add_or_get,
// first-free-slot allocation, property merges) hold the write lock from
// their first statement.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	return db, nil
}

// OpenAndMigrate opens the database and brings its schema up to date
func OpenAndMigrate(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs all pending migrations
func Migrate(ctx context.Context, db *sqlx.DB) error {
	log := logger.Named("database")

	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		log.Error("Database migrations failed", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		log.Info("Migration applied",
			zap.String("source", r.Source.Path),
			zap.Duration("duration", r.Duration),
		)
	}
	return nil
}

func dsn(path string) string {
	params := "_txlock=immediate&_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL"
	if strings.HasPrefix(path, "file:") {
		if strings.Contains(path, "?") {
			return path + "&" + params
		}
		return path + "?" + params
	}
	return "file:" + path + "?" + params
}
