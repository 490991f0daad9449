package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mcoot/battleship-server/internal/api"
	"github.com/mcoot/battleship-server/internal/config"
	"github.com/mcoot/battleship-server/internal/factory"
)

func main() {
	cfg, err := config.Load(os.Getenv("BS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Optional positional argument overrides the game port
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			fmt.Fprintf(os.Stderr, "usage: %s [port]\n", os.Args[0])
			os.Exit(2)
		}
		cfg.Server.Port = port
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := factory.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close application", slog.String("error", err.Error()))
		}
	}()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start game server: %w", err)
	}
	logger.Info("game server listening",
		slog.String("addr", app.Server.Addr().String()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("events", cfg.Events.Type))

	errCh := make(chan error, 1)
	var adminServer *api.Server
	if cfg.Admin.Enabled {
		router := api.NewRouter(api.RouterConfig{
			Logger:   logger,
			Registry: app.Registry,
			Storage:  app.Storage,
			Stats:    app.Stats,
			Feed:     app.Feed,
			Token:    cfg.Admin.Token,
		})
		adminServer = api.NewServer(router, cfg.Admin, logger)
		if err := adminServer.Listen(); err != nil {
			return err
		}
		go func() {
			errCh <- adminServer.Serve()
		}()
	}

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if adminServer != nil {
		if err := adminServer.Shutdown(context.Background()); err != nil {
			logger.Error("admin shutdown error", slog.String("error", err.Error()))
		}
	}
	return nil
}
