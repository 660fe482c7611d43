// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/hlsladder/internal/config"
	"github.com/ManuGH/hlsladder/internal/control/transcode"
	"github.com/ManuGH/hlsladder/internal/log"
)

// App owns the long-lived runtime: the HTTP server, the reaper, config
// reload wiring and the orderly shutdown of in-flight jobs.
type App struct {
	deps         Deps
	logger       zerolog.Logger
	reloadSignal os.Signal

	mu      sync.Mutex
	running bool
	addr    net.Addr
	ready   chan struct{}
}

// NewApp creates a new App.
func NewApp(deps Deps) (*App, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if deps.Server.ShutdownTimeout <= 0 {
		deps.Server.ShutdownTimeout = DefaultServerConfig("").ShutdownTimeout
	}
	return &App{
		deps:         deps,
		logger:       deps.Logger,
		reloadSignal: syscall.SIGHUP,
		ready:        make(chan struct{}),
	}, nil
}

// Ready is closed once the HTTP listener is bound.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Addr returns the bound listen address, or "" before Ready.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.addr == nil {
		return ""
	}
	return a.addr.String()
}

// Run starts all owned subsystems and blocks until ctx is cancelled or one
// of them fails. Every processing job is cancelled before Run returns.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.running = true
	a.mu.Unlock()

	ln, err := net.Listen("tcp", a.deps.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.deps.Server.ListenAddr, err)
	}
	a.mu.Lock()
	a.addr = ln.Addr()
	a.mu.Unlock()

	srv := &http.Server{
		Handler:           a.deps.Handler,
		ReadTimeout:       a.deps.Server.ReadTimeout,
		ReadHeaderTimeout: a.deps.Server.ReadTimeout / 2,
		WriteTimeout:      a.deps.Server.WriteTimeout,
		IdleTimeout:       a.deps.Server.IdleTimeout,
		MaxHeaderBytes:    a.deps.Server.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().
			Str(log.FieldEvent, "api.listening").
			Str("addr", ln.Addr().String()).
			Msg("API server listening (HTTP)")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str(log.FieldEvent, "api.server.failed").Msg("API server failed")
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})
	close(a.ready)

	g.Go(func() error {
		return a.deps.Reaper.Run(gctx)
	})

	if holder := a.deps.ConfigHolder; holder != nil {
		// Best-effort: startup should not fail if the watcher cannot be started
		if err := holder.StartWatcher(gctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}

		applyCh := make(chan config.AppConfig, 1)
		holder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case cfg := <-applyCh:
					a.ApplyConfig(cfg)
				}
			}
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				hup := make(chan os.Signal, 1)
				signal.Notify(hup, a.reloadSignal)
				defer signal.Stop(hup)
				for {
					select {
					case <-gctx.Done():
						return nil
					case <-hup:
						a.logger.Info().
							Str(log.FieldEvent, "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						if err := holder.Reload(gctx); err != nil {
							a.logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("config reload failed")
						}
					}
				}
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown(srv)
	})

	return g.Wait()
}

// shutdown stops the listener first so no new jobs arrive, then cancels
// every running job. Both share one bounded, detached context.
func (a *App) shutdown(srv *http.Server) error {
	a.logger.Info().Str(log.FieldEvent, "daemon.shutdown").Msg("shutdown initiated")
	ctx, cancel := context.WithTimeout(context.Background(), a.deps.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.deps.Orchestrator.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("orchestrator shutdown: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error().Err(err).Str(log.FieldEvent, "daemon.shutdown_failed").Msg("shutdown incomplete")
		return err
	}
	a.logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("shutdown complete")
	return nil
}

// ApplyConfig pushes the hot-reloadable settings of cfg into the running
// components. Listen address, binaries and the concurrency limit need a restart.
func (a *App) ApplyConfig(cfg config.AppConfig) {
	if cfg.LogLevel != "" {
		if err := log.SetLevel(cfg.LogLevel); err != nil {
			a.logger.Warn().Err(err).Str("level", cfg.LogLevel).Msg("ignoring invalid log level")
		}
	}
	if cfg.Jobs.Retention > 0 {
		a.deps.Reaper.SetRetention(cfg.Jobs.Retention)
	}
	if policy, err := transcode.ParseManifestPolicy(cfg.Jobs.ManifestPolicy); err != nil {
		a.logger.Warn().Err(err).Msg("ignoring invalid manifest policy")
	} else {
		a.deps.Orchestrator.SetManifestPolicy(policy)
	}

	a.logger.Info().
		Str(log.FieldEvent, "config.applied").
		Str("log_level", cfg.LogLevel).
		Dur("retention", a.deps.Reaper.Retention()).
		Str("manifest_policy", string(a.deps.Orchestrator.ManifestPolicy())).
		Msg("runtime config applied")
}
