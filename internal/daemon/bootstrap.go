// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ManuGH/hlsladder/internal/api"
	"github.com/ManuGH/hlsladder/internal/config"
	"github.com/ManuGH/hlsladder/internal/control/transcode"
	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/health"
	"github.com/ManuGH/hlsladder/internal/infra/ffmpeg"
	"github.com/ManuGH/hlsladder/internal/log"
)

// Encoders lets tests swap the ffmpeg adapters.
type Encoders struct {
	Runner domain.Runner
	Prober domain.Prober
}

// Bootstrap builds the full runtime for cfg. A nil holder disables hot
// reload. Zero Encoders use the ffmpeg and ffprobe binaries from cfg.
func Bootstrap(cfg config.AppConfig, holder *config.ConfigHolder, enc Encoders) (*App, error) {
	for _, dir := range []string{cfg.UploadsDir(), cfg.TranscodedDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	if enc.Runner == nil {
		enc.Runner = ffmpeg.NewExecutor(cfg.FFmpeg.Bin, log.WithComponent("ffmpeg"))
	}
	if enc.Prober == nil {
		enc.Prober = ffmpeg.NewProber(cfg.FFmpeg.FFprobeBin)
	}

	policy, err := transcode.ParseManifestPolicy(cfg.Jobs.ManifestPolicy)
	if err != nil {
		return nil, err
	}

	clock := transcode.RealClock{}
	registry := transcode.NewRegistry(clock)
	orch := transcode.NewOrchestrator(transcode.Config{
		Runner:                  enc.Runner,
		Prober:                  enc.Prober,
		Registry:                registry,
		Clock:                   clock,
		MaxConcurrentRenditions: cfg.Jobs.MaxConcurrentRenditions,
		StallTimeout:            cfg.Jobs.StallTimeout,
		ManifestPolicy:          policy,
	})
	reaper := transcode.NewReaper(registry, clock, cfg.Jobs.ReapInterval, cfg.Jobs.Retention)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewDirChecker("transcoded_dir", cfg.TranscodedDir()))
	hm.RegisterChecker(health.NewBinaryChecker("ffmpeg", cfg.FFmpeg.Bin))
	hm.RegisterChecker(health.NewBinaryChecker("ffprobe", cfg.FFmpeg.FFprobeBin))
	hm.RegisterChecker(health.NewFuncChecker("jobs", func(context.Context) health.CheckResult {
		c := registry.Counts()
		return health.CheckResult{
			Status: health.StatusHealthy,
			Message: fmt.Sprintf("processing=%d completed=%d failed=%d cancelled=%d",
				c[string(domain.StatusProcessing)], c[string(domain.StatusCompleted)],
				c[string(domain.StatusFailed)], c[string(domain.StatusCancelled)]),
		}
	}))

	logger := log.WithComponent("daemon")
	logStartup(logger, cfg)

	return NewApp(Deps{
		Logger:       logger,
		Server:       DefaultServerConfig(cfg.API.ListenAddr),
		Handler:      api.New(orch, cfg, hm).Handler(),
		Orchestrator: orch,
		Reaper:       reaper,
		ConfigHolder: holder,
	})
}

func logStartup(logger zerolog.Logger, cfg config.AppConfig) {
	logger.Info().
		Str(log.FieldEvent, "daemon.configured").
		Str("version", cfg.Version).
		Str("listen", cfg.API.ListenAddr).
		Str("data_dir", cfg.DataDir).
		Str("ffmpeg", cfg.FFmpeg.Bin).
		Str("ffprobe", cfg.FFmpeg.FFprobeBin).
		Bool("metrics", cfg.API.MetricsEnabled).
		Int("max_concurrent_renditions", cfg.Jobs.MaxConcurrentRenditions).
		Dur("retention", cfg.Jobs.Retention).
		Dur("stall_timeout", cfg.Jobs.StallTimeout).
		Str("manifest_policy", cfg.Jobs.ManifestPolicy).
		Msg("daemon configured")
}
