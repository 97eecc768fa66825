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

	fdhttp "github.com/fiberdesk/fiberdesk/internal/adapter/http"
	fdnats "github.com/fiberdesk/fiberdesk/internal/adapter/nats"
	"github.com/fiberdesk/fiberdesk/internal/config"
	"github.com/fiberdesk/fiberdesk/internal/logger"
	"github.com/fiberdesk/fiberdesk/internal/middleware"
	"github.com/fiberdesk/fiberdesk/internal/ops"
	"github.com/fiberdesk/fiberdesk/internal/port/messagequeue"
)

func main() {
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
	logCfg := cfg.Logging
	logCfg.Service = "fiberdesk-ops"
	slog.SetDefault(logger.New(logCfg))

	if cfg.Ops.Token == "" {
		slog.Warn("no ops token configured, all ops routes will reject requests")
	}

	ctx := context.Background()

	// NATS is optional: without it, deploy events are not published.
	var queue messagequeue.Queue
	if q, err := fdnats.Connect(ctx, cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, deploy events disabled", "error", err)
	} else {
		queue = q
		defer func() { _ = q.Close() }()
	}

	runner := ops.NewRunner(cfg.Ops)
	handlers := ops.NewHandlers(runner, queue)

	r := chi.NewRouter()
	r.Use(fdhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	ops.MountRoutes(r, handlers, cfg.Ops.Token)

	addr := ":" + cfg.Ops.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: journal streaming connections are long-lived.
		IdleTimeout: 120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting ops server", "addr", addr, "service_unit", cfg.Ops.ServiceUnit)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down ops server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
