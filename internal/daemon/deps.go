// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/hlsladder/internal/config"
	"github.com/ManuGH/hlsladder/internal/control/transcode"
)

// ServerConfig bounds the HTTP listener.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
}

// DefaultServerConfig returns production timeouts for addr.
func DefaultServerConfig(addr string) ServerConfig {
	return ServerConfig{
		ListenAddr:      addr,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    2 * time.Minute, // segment downloads
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		MaxHeaderBytes:  1 << 20,
	}
}

// Deps holds everything the App runs.
type Deps struct {
	Logger       zerolog.Logger
	Server       ServerConfig
	Handler      http.Handler
	Orchestrator *transcode.Orchestrator
	Reaper       *transcode.Reaper
	// ConfigHolder is optional; without it there is no hot reload.
	ConfigHolder *config.ConfigHolder
}

// Validate checks that required dependencies are present.
func (d Deps) Validate() error {
	if d.Handler == nil {
		return ErrMissingHandler
	}
	if d.Orchestrator == nil {
		return ErrMissingOrchestrator
	}
	if d.Reaper == nil {
		return ErrMissingReaper
	}
	return nil
}
