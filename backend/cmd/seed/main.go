package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"kinship/backend/internal/services"
	"kinship/backend/internal/tools"
	"kinship/backend/pkg/config"
	"kinship/backend/pkg/logger"
)

func main() {
	reconcile := flag.Bool("reconcile", true, "Reconcile every contact after seeding and log the findings")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	svc, err := services.Start(ctx, cfg, nil, log)
	if err != nil {
		log.Fatal("Failed to start services", zap.Error(err))
	}
	defer svc.Shutdown(ctx)

	s := &seeder{exec: svc.Executor, log: log}
	if err := s.run(ctx); err != nil {
		log.Error("Seeding failed", zap.Error(err))
		svc.Shutdown(ctx)
		os.Exit(1)
	}

	if *reconcile {
		result := s.exec.Execute(ctx, s.execCtx(), toolCall(tools.ToolReconcileAll, nil))
		if !result.Success {
			log.Error("Reconciliation failed", zap.String("error", result.Error))
		} else {
			log.Info(result.Message)
		}
	}

	log.Info("Seeding complete")
}
