package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/config"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/extract"
	server "github.com/Mucrypt/e-com-app-admin-sub002/internal/http"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/importer"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/jobs"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/migrate"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/orchestrator"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Run migrations on a short-lived connection
	if err := migrate.Run(cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Create a shared *sql.DB with pooling for the Store
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	// Basic pool settings; adjust as needed
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)

	// Ensure initial admin API key if configured
	if cfg.Auth.Enabled && cfg.Auth.InitialAdminKey != "" {
		if _, err := st.EnsureAdminAPIKey(context.Background(), cfg.Auth.InitialAdminKey, "initial-admin"); err != nil {
			log.Fatalf("ensure admin api key failed: %v", err)
		}
	}

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	pipeline := extract.NewFromConfig(cfg, logger)
	coord := importer.NewCoordinator(st, st, logger)

	orch := orchestrator.New(st, st, pipeline, coord, logger)
	if cfg.Scraper.InterRequestDelayMs > 0 {
		orch.SetInterRequestDelay(time.Duration(cfg.Scraper.InterRequestDelayMs) * time.Millisecond)
	}
	orch.SetMaxBatchSize(cfg.Scraper.MaxBatchSize)

	staleAfter := jobs.DefaultStaleAfter
	if cfg.Reconciler.StaleAfterMinutes > 0 {
		staleAfter = time.Duration(cfg.Reconciler.StaleAfterMinutes) * time.Minute
	}
	reconciler := jobs.NewReconciler(st, staleAfter, logger)

	rootCtx := context.Background()

	startRunner := func() {
		runnerCfg := jobs.RunnerConfig{
			SweepInterval: time.Duration(cfg.Reconciler.SweepIntervalMinutes) * time.Minute,
			StaleAfter:    staleAfter,
		}
		if cfg.Retention.Enabled {
			runnerCfg.CleanupInterval = time.Duration(cfg.Retention.CleanupIntervalMinutes) * time.Minute
			runnerCfg.Retention = jobs.RetentionPolicy{
				JobAge:       time.Duration(cfg.Retention.Jobs.DefaultDays) * 24 * time.Hour,
				CandidateAge: time.Duration(cfg.Retention.Candidates.DefaultDays) * 24 * time.Hour,
			}
		}
		jobs.StartRunner(rootCtx, st, runnerCfg, logger)
	}

	switch *role {
	case "api":
		// API-only: do not start the maintenance runner.
		s := server.NewServer(cfg, st, orch, coord, reconciler, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case "worker":
		// Worker-only: run the maintenance loops and block.
		startRunner()
		select {}
	case "all":
		// Default: run both API and maintenance loops in one process.
		startRunner()
		s := server.NewServer(cfg, st, orch, coord, reconciler, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	default:
		log.Fatalf("invalid role: %s (expected api|worker|all)", *role)
	}
}
