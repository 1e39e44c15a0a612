package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ciq-assistant/internal/app"
	"ciq-assistant/internal/config"
	"ciq-assistant/internal/handlers"
	"ciq-assistant/internal/http"
)

// General API information
//
// This API answers questions about telecom CIQ workbooks, templates and logs,
// and standardizes uploaded CIQ workbooks against the standard CIQ template.
//
// ---
// info:
//   title: CIQ Assistant API
//   version: 1.0.0
// consumes:
//   - application/json
//   - multipart/form-data
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	if cfg.RebuildOnStart {
		// Start indexing in background; queries against a collection without
		// an index are answered without context until it is built.
		go func() {
			slog.Info("Starting background indexing of collections")
			if _, err := a.Builder.BuildAll(ctx); err != nil {
				slog.Error("Indexing completed with errors", "error", err)
			} else {
				slog.Info("Indexing completed successfully")
			}
		}()
	}

	deps := &http.Deps{
		QueryService:   a.Query,
		SchemaService:  a.Schema,
		DB:             a.DB,
		Store:          a.Store,
		MaxUploadBytes: handlers.DefaultMaxUploadBytes,
	}
	srv := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           http.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", srv.Addr)
		slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName, "router_model", cfg.RouterModelName)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			slog.Error("API server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}
