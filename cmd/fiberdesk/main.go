package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fiberdesk/fiberdesk/internal/adapter/alwatani"
	fdhttp "github.com/fiberdesk/fiberdesk/internal/adapter/http"
	fdnats "github.com/fiberdesk/fiberdesk/internal/adapter/nats"
	fdotel "github.com/fiberdesk/fiberdesk/internal/adapter/otel"
	"github.com/fiberdesk/fiberdesk/internal/adapter/postgres"
	"github.com/fiberdesk/fiberdesk/internal/adapter/ristretto"
	"github.com/fiberdesk/fiberdesk/internal/config"
	"github.com/fiberdesk/fiberdesk/internal/logger"
	"github.com/fiberdesk/fiberdesk/internal/middleware"
	"github.com/fiberdesk/fiberdesk/internal/port/messagequeue"
	"github.com/fiberdesk/fiberdesk/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logger.New(cfg.Logging))

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"master_db", cfg.Postgres.MasterDB,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	if err := postgres.EnsureMasterDatabase(ctx, cfg.Postgres); err != nil {
		return fmt.Errorf("master database: %w", err)
	}
	slog.Info("master database ready")

	masterPool, err := postgres.NewPool(ctx, cfg.Postgres, cfg.Postgres.MasterDB)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer masterPool.Close()

	registry := postgres.NewRegistry(cfg.Postgres)
	defer registry.CloseAll()

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()

	// NATS is optional: without it, sync progress is poll-only.
	var queue messagequeue.Queue
	if q, err := fdnats.Connect(ctx, cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, progress events disabled", "error", err)
	} else {
		queue = q
		defer func() { _ = q.Close() }()
	}

	metrics, err := fdotel.NewMetrics()
	if err != nil {
		slog.Warn("metrics init failed", "error", err)
	}

	// --- Services ---

	dir := postgres.NewDirectory(masterPool)
	schema := postgres.NewSchemaManager(cfg.Postgres)
	store := postgres.NewStore()
	portal := alwatani.NewClient(cfg.Alwatani)

	resolver := service.NewResolver(dir, registry, store, l1, cfg.Cache.DirectoryTTL, metrics)
	provisioner := service.NewProvisioner(dir, schema, registry, store, metrics)
	tracker := service.NewProgressTracker()
	syncSvc := service.NewSyncService(resolver, store, tracker, portal, queue, metrics)

	// --- HTTP ---

	handlers := fdhttp.NewHandlers(resolver, provisioner, tracker, syncSvc, store)

	r := chi.NewRouter()
	r.Use(fdhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(fdhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(fdotel.HTTPMiddleware(cfg.Logging.Service))

	fdhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
