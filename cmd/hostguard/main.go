package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/hostguard/internal/api"
	"github.com/mcoot/hostguard/internal/config"
	"github.com/mcoot/hostguard/internal/factory"
	"github.com/mcoot/hostguard/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		logger.Error("failed to set up tracing", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	app, err := factory.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close application", slog.String("error", err.Error()))
		}
	}()

	go app.Hub.Run()

	// The engine stops on its own context so it outlives the HTTP server
	// during shutdown and its final flush sees every request
	engineCtx, stopEngine := context.WithCancel(context.Background())
	engineDone := make(chan error, 1)
	go func() { engineDone <- app.Engine.Run(engineCtx) }()
	select {
	case <-app.Engine.Ready():
	case err := <-engineDone:
		logger.Error("engine failed to start", slog.String("error", err.Error()))
		stopEngine()
		return 1
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:  logger,
		Auth:    app.Auth,
		Engine:  app.Engine,
		Session: app.Session,
		Hub:     app.Hub,
	})
	server := api.NewServer(router, api.DefaultServerConfig(cfg.Addr()), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	if !app.Auth.Enabled() {
		logger.Warn("operator API is unauthenticated; set HOSTGUARD_OPERATOR_TOKEN_HASH")
	}
	logger.Info("hostguard started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage),
		slog.Bool("discord", app.Notifier != nil),
	)

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		// Close event streams first so Shutdown doesn't wait on them
		app.Hub.Close()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	stopEngine()
	if err := <-engineDone; err != nil {
		logger.Error("engine error", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("hostguard stopped")
	return exitCode
}
