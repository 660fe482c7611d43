// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ManuGH/hlsladder/internal/config"
	"github.com/ManuGH/hlsladder/internal/daemon"
	"github.com/ManuGH/hlsladder/internal/log"
	"github.com/ManuGH/hlsladder/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	log.Configure(log.Config{Level: "info", Service: "hlsladder", Version: version.Version})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := resolveConfigPath(strings.TrimSpace(*configPath))
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: "hlsladder", Version: cfg.Version})
	logger = log.WithComponent("daemon")
	if path != "" {
		logger.Info().Str(log.FieldEvent, "config.loaded").Str("source", "file").Str("path", path).Msg("loaded configuration from file")
	} else {
		logger.Info().Str(log.FieldEvent, "config.loaded").Str("source", "env+defaults").Msg("loaded configuration from environment and defaults")
	}

	var holder *config.ConfigHolder
	if path != "" {
		holder = config.NewConfigHolder(cfg, loader)
	}

	app, err := daemon.Bootstrap(cfg, holder, daemon.Encoders{})
	if err != nil {
		logger.Fatal().Err(err).Str(log.FieldEvent, "startup.failed").Msg("failed to build daemon")
	}

	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.exit_error").Msg("daemon exited with error")
		os.Exit(1)
	}
}

// resolveConfigPath prefers an explicit flag, then <dataDir>/config.yaml if present.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dataDir := strings.TrimSpace(config.ParseString(config.EnvDataDir, ""))
	if dataDir == "" {
		return ""
	}
	auto := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(auto); err == nil {
		return auto
	}
	return ""
}
