package main

import (
	"log/slog"
	"os"

	"stones/pkg/config"
)

const dataDirEnv = "STONES_DATA_DIR"

// initConfig loads the YAML config at path. A missing file yields
// config.Default(); STONES_DATA_DIR overrides db.persistence.path.
func initConfig(path string) (config.Config, error) {
	cfg, found, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if !found {
		slog.Info("config file not found, using default config", "path", path)
	}

	if dir := os.Getenv(dataDirEnv); dir != "" {
		cfg.Persistence.RootPath = dir
	}

	return cfg, nil
}

// initLogger installs the global slog.Logger (JSON or text).
func initLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logger.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{AddSource: true, Level: level}

	var handler slog.Handler
	if cfg.Logger.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", "level", level.String(), "json", cfg.Logger.JSON)
}
