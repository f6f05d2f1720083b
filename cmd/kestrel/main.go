// Kestrel - Credit report reconciliation and dispute prioritization.
// Copyright (c) 2025 DisputeGrid
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/disputegrid/kestrel/internal/api"
	"github.com/disputegrid/kestrel/internal/bus"
	"github.com/disputegrid/kestrel/internal/cache"
	"github.com/disputegrid/kestrel/internal/classify"
	"github.com/disputegrid/kestrel/internal/conflict"
	"github.com/disputegrid/kestrel/internal/domain"
	"github.com/disputegrid/kestrel/internal/pipeline"
	"github.com/disputegrid/kestrel/internal/repository"
	"github.com/disputegrid/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Classifier with the active lexicon
	classifier := classify.New(loadLexiconFromDatabase(ctx, repo))
	slog.Info("classifier initialized", "lexicon_version", classifier.Lexicon().Version)

	// Initialize custom conflict rule engine
	ruleEngine, err := conflict.NewRuleEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}

	// Load rules from database (no hardcoded defaults - configure via API)
	if err := loadRulesFromDatabase(ctx, repo, ruleEngine); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", ruleEngine.RuleCount())

	// Assemble the analysis pipeline
	p := pipeline.New(nil, classifier, nil, ruleEngine, nil)
	slog.Info("pipeline initialized", "engine_version", pipeline.EngineVersion)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("KESTREL_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, cacheImpl, p)

		// Get tenant IDs to process (from environment or default)
		tenantIDs := []string{}
		if envTenants := os.Getenv("KESTREL_TENANTS"); envTenants != "" {
			for _, tenant := range strings.Split(envTenants, ",") {
				if tenant = strings.TrimSpace(tenant); tenant != "" {
					tenantIDs = append(tenantIDs, tenant)
				}
			}
		}

		workerCfg := worker.Config{
			TenantIDs: tenantIDs,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, p, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

// GlobalTenantID is used for rules and lexicons that apply to all tenants.
const GlobalTenantID = "*"

// loadRulesFromDatabase loads custom conflict rules from the database into
// the engine. All rules must be configured via POST /rules API - no hardcoded
// defaults.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *conflict.RuleEngine) error {
	dbRules, err := repo.ListConflictRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no rules in database - configure via POST /rules API")
	return nil
}

// loadLexiconFromDatabase returns the most recently updated enabled lexicon,
// falling back to the built-in default when none is stored.
func loadLexiconFromDatabase(ctx context.Context, repo domain.Repository) *domain.Lexicon {
	lexicons, err := repo.ListLexicons(ctx, GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list lexicons from database", "error", err)
		return classify.DefaultLexicon()
	}

	var active *domain.Lexicon
	for _, lex := range lexicons {
		if !lex.Enabled {
			continue
		}
		if active == nil || lex.UpdatedAt.After(active.UpdatedAt) {
			active = lex
		}
	}

	if active == nil {
		slog.Info("no lexicon in database - using built-in default",
			"version", classify.DefaultLexiconVersion)
		return classify.DefaultLexicon()
	}

	slog.Info("loaded lexicon from database", "version", active.Version)
	return active
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               KESTREL                     ║")
	fmt.Println("  ║    Credit Report Reconciliation Engine    ║")
	fmt.Println("  ║     Every bureau. Every discrepancy.      ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyze               - Analyze a batch of bureau records")
	fmt.Println("    GET  /analyses/{id}         - Get analysis by ID")
	fmt.Println("    GET  /batches/{id}/analysis - Get latest analysis for a batch")
	fmt.Println("    GET  /rules                 - List custom conflict rules")
	fmt.Println("    POST /rules                 - Create a custom conflict rule")
	fmt.Println("    POST /rules/reload          - Hot-reload rules from database")
	fmt.Println("    GET  /lexicons              - List lexicon versions")
	fmt.Println("    POST /lexicons              - Store a lexicon version")
	fmt.Println("    POST /lexicons/reload       - Activate a lexicon version")
	fmt.Println("    GET  /health                - Health check")
	fmt.Println()
}
