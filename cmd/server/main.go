package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dandantas/boomerang/internal/callback"
	"github.com/dandantas/boomerang/internal/config"
	"github.com/dandantas/boomerang/internal/database"
	"github.com/dandantas/boomerang/internal/handler"
	"github.com/dandantas/boomerang/internal/scheduler"
	"github.com/dandantas/boomerang/internal/service"
	"github.com/dandantas/boomerang/internal/webhook"
	"github.com/dandantas/boomerang/internal/worker"
	"github.com/dandantas/boomerang/pkg/middleware"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	config.InitLogger(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting Boomerang job service",
		"version", version,
		"store_driver", cfg.StoreDriver,
		"callback_url", cfg.CallbackURL(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the job store
	store, err := database.Open(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open job store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	normalizer, err := callback.NewNormalizerFromConfig(cfg.Callback)
	if err != nil {
		slog.Error("Invalid callback configuration", "error", err)
		_ = store.Close(context.Background())
		os.Exit(1)
	}

	dispatcher := webhook.NewDispatcher(cfg.Trigger)

	pool := worker.NewWorkerPool(cfg.Dispatch.Workers, cfg.Dispatch.QueueSize)
	pool.Start()

	lifecycle := service.NewLifecycle(store, normalizer, dispatcher, pool, service.LifecycleConfig{
		AllowedHosts: cfg.AllowedTargetHosts,
		CallbackURL:  cfg.CallbackURL(),
	})

	// Initialize scheduler
	sched := scheduler.NewScheduler(cfg.Purge, lifecycle)
	if err := sched.Start(ctx); err != nil {
		slog.Error("Failed to start purge scheduler", "error", err)
		_ = lifecycle.Close(context.Background())
		os.Exit(1)
	}

	// Initialize handlers
	jobHandler := handler.NewJobHandler(lifecycle)
	callbackHandler := handler.NewCallbackHandler(lifecycle)
	healthHandler := handler.NewHealthHandler(lifecycle, dispatcher, cfg.StoreDriver, version)

	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}

	router := handler.NewRouter(jobHandler, callbackHandler, healthHandler, corsConfig)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a server failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		slog.Info("Received shutdown signal, initiating graceful shutdown")
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	slog.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	sched.Stop(shutdownCtx)
	cancel()

	// Drain pending dispatches, then close the store
	slog.Info("Closing job lifecycle...")
	if err := lifecycle.Close(shutdownCtx); err != nil {
		slog.Error("Lifecycle shutdown error", "error", err)
		exitCode = 1
	}

	slog.Info("Boomerang job service stopped")
	os.Exit(exitCode)
}
