package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"retrohint/hintd/config"
	"retrohint/hintd/hint"
)

// LogFile is the daemon log kept in the hints directory
const LogFile = "daemon.log"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "detect-buttons" {
		os.Exit(runDetect(os.Args[2:]))
	}

	var arg string
	if len(os.Args) > 1 {
		arg = os.Args[1]
	}
	configPath := config.ConfigPath(arg)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger, logPath, closeLog, err := setupLogging(cfg)
	if err != nil {
		slog.Error("Failed to open log file", "error", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded", "path", cfg.Path(), "api_key_source", cfg.APIKeySource())

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent, err := NewAgent(ctx, logger, cfg)
	if err != nil {
		if errors.Is(err, hint.ErrNoCredential) {
			logger.Error("No API key found", "env", config.APIKeyEnvVar(cfg.Hint.Provider), "secrets", cfg.SecretsPath(), "config", cfg.Path())
		} else {
			logger.Error("Failed to create agent", "error", err)
		}
		os.Exit(1)
	}

	printBanner(os.Stdout, cfg, agent, logPath)

	if err := agent.Run(ctx); err != nil {
		logger.Error("Agent error", "error", err)
		os.Exit(1)
	}

	logger.Info("Hint daemon stopped")
}

// setupLogging writes to stdout and to the daemon log through one handler
func setupLogging(cfg *config.Config) (*slog.Logger, string, func(), error) {
	if err := os.MkdirAll(cfg.Paths.HintsDir, 0755); err != nil {
		return nil, "", nil, fmt.Errorf("failed to create hints directory: %w", err)
	}

	logPath := filepath.Join(cfg.Paths.HintsDir, LogFile)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, "", nil, err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(io.MultiWriter(os.Stdout, f), &slog.HandlerOptions{
		Level: level,
	}))
	return logger, logPath, func() { f.Close() }, nil
}
