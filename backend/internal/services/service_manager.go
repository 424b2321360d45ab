// Package services opens the configured storage backends and builds the
// components on top of them, and tears them down again in reverse order.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"kinship/backend/internal/consistency"
	"kinship/backend/internal/constants"
	"kinship/backend/internal/contacts"
	"kinship/backend/internal/database"
	"kinship/backend/internal/graph"
	"kinship/backend/internal/metrics"
	"kinship/backend/internal/tools"
	"kinship/backend/pkg/config"
)

// ServiceManager owns the stores and everything wired on top of them
type ServiceManager struct {
	Contacts contacts.Store
	Graph    graph.Store
	Layer    *consistency.Layer
	Executor *tools.Executor
	Metrics  *metrics.Collector

	logger  *zap.Logger
	mu      sync.Mutex
	closers []namedCloser
	stopped bool
}

type namedCloser struct {
	name  string
	close func(ctx context.Context) error
}

// Start opens the backends named by cfg. A SQLite file is opened once and
// shared when both stores live in it. On failure everything already
// opened is closed again.
func Start(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*ServiceManager, error) {
	sm := &ServiceManager{Metrics: collector, logger: logger}

	var db *sqlx.DB
	if cfg.UsesSQLite() {
		var err error
		db, err = database.OpenAndMigrate(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		sm.onShutdown("sqlite", func(context.Context) error { return db.Close() })
		logger.Info("SQLite ready", zap.String("path", cfg.SQLitePath))
	}

	switch cfg.ContactBackend {
	case constants.BackendSQLite:
		sm.Contacts = contacts.NewSQLStore(db)
	default:
		sm.Contacts = contacts.NewMemoryStore()
	}

	switch cfg.GraphBackend {
	case constants.BackendNeo4j:
		store, err := graph.ConnectNeo4j(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			sm.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
		}
		sm.onShutdown("neo4j", store.Close)
		if err := store.EnsureIndexes(ctx); err != nil {
			sm.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create Neo4j indexes: %w", err)
		}
		sm.Graph = store
		logger.Info("Neo4j ready", zap.String("uri", cfg.Neo4jURI))
	case constants.BackendSQLite:
		sm.Graph = graph.NewSQLStore(db)
	default:
		sm.Graph = graph.NewMemoryStore()
	}

	sm.Layer = consistency.NewLayer(sm.Contacts, sm.Graph, cfg.ReconcileConcurrency)
	sm.Executor = tools.NewExecutor(sm.Contacts, sm.Graph, sm.Layer, collector)

	logger.Info("Services started",
		zap.String("contact_backend", cfg.ContactBackend),
		zap.String("graph_backend", cfg.GraphBackend),
	)
	return sm, nil
}

func (sm *ServiceManager) onShutdown(name string, fn func(ctx context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.closers = append(sm.closers, namedCloser{name: name, close: fn})
}

// Shutdown closes every backend in reverse opening order. It is safe to
// call more than once.
func (sm *ServiceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.stopped {
		return nil
	}
	sm.stopped = true

	var errs []error
	for i := len(sm.closers) - 1; i >= 0; i-- {
		c := sm.closers[i]
		if err := c.close(ctx); err != nil {
			sm.logger.Error("Failed to close backend", zap.String("backend", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		sm.logger.Info("Backend closed", zap.String("backend", c.name))
	}
	return errors.Join(errs...)
}
