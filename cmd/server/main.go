package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ghuser/prodvault/migrations/catalog"
	"github.com/ghuser/prodvault/pkg/config"
	"github.com/ghuser/prodvault/pkg/database"
	"github.com/ghuser/prodvault/pkg/events"
	"github.com/ghuser/prodvault/pkg/httpx"
	"github.com/ghuser/prodvault/pkg/logger"
	"github.com/ghuser/prodvault/pkg/metrics"
	"github.com/ghuser/prodvault/pkg/workpool"
	"github.com/ghuser/prodvault/services/catalog/application/collection"
	"github.com/ghuser/prodvault/services/catalog/application/commands"
	"github.com/ghuser/prodvault/services/catalog/application/server"
	"github.com/ghuser/prodvault/services/catalog/infrastructure/persistence/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	// An optional positional argument overrides the listen port. A malformed
	// value is not fatal: warn and keep the default.
	if len(os.Args) > 1 {
		if port, err := strconv.Atoi(os.Args[1]); err == nil && port > 0 && port <= 65535 {
			cfg.Port = port
		} else {
			log.Warn("invalid port argument, using default",
				"arg", os.Args[1], "port", config.DefaultPort)
			cfg.Port = config.DefaultPort
		}
	}

	if err := catalog.Run(cfg.DatabaseURL); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: startup failure
	}
	defer db.Close() //nolint:errcheck
	log.Info("database connected")

	eventBus, err := events.NewEventBus(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	m := metrics.New(cfg.ServiceName)

	products := postgres.NewProductRepository(db, eventBus)
	users := postgres.NewUserRepository(db)

	store := collection.NewStore()
	loaded, err := products.LoadAll(ctx)
	if err != nil {
		log.Error("failed to load collection", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	store.ReplaceAll(loaded)
	log.Info("collection loaded", "products", store.Len())

	pool := workpool.New(cfg.WorkerPoolSize)
	defer pool.Close()

	registry := commands.NewRegistry(store, products, log, m)

	// Ops surface: health + metrics over HTTP, separate from the TCP port.
	opsRouter := httpx.NewOpsRouter(httpx.HealthChecks{
		Database: db,
		EventBus: eventBus,
	}, m.Handler())
	opsSrv := httpx.NewServer(cfg.OpsAddr, opsRouter)
	go func() {
		log.Info("ops server listening", "addr", opsSrv.Addr)
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ops server error", "error", err)
		}
	}()

	srv := server.New(cfg.Port, log, m, store, registry, users, pool)
	log.Info("starting server", "port", cfg.Port, "env", cfg.Environment)
	if err := srv.Run(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("ops server forced shutdown", "error", err)
	}
	log.Info("server stopped")
}
