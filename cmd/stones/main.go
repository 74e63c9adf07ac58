package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"stones/internal/http"
	"stones/pkg/store"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "stones:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path := defaultConfigPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := initConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(&cfg)

	tree, err := store.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	server := http.NewServer(tree, cfg.Server)
	if err := server.Start(); err != nil {
		_ = tree.Close()
		return err
	}

	<-ctx.Done()
	slog.Info("shutting down")

	if err := server.Stop(); err != nil {
		slog.Error("Error stopping server", "error", err)
	}
	if err := tree.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	slog.Info("stones stopped")
	return nil
}
