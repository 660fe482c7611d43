// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/hls"
	"github.com/ManuGH/hlsladder/internal/log"
	"github.com/ManuGH/hlsladder/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RenditionWorkerConfig configures one rendition worker.
type RenditionWorkerConfig struct {
	JobID          string
	Input          string
	JobDir         string // the rendition writes into JobDir/<label>
	Profile        domain.Profile
	SourceDuration time.Duration
	Runner         domain.Runner
	Clock          Clock
	FS             FS

	// StallTimeout fails the rendition after this long without progress. Zero disables.
	StallTimeout time.Duration

	// Emit receives every event in order. It must not block.
	Emit func(RenditionEvent)

	// Track is called with the live handle once the encoder runs; the
	// returned func is called after the process has exited.
	Track func(quality string, h domain.Handle) (untrack func())
}

// RenditionWorker drives one (source, quality) pair through the encode runner.
type RenditionWorker struct {
	cfg RenditionWorkerConfig
	dir string

	logSometimes rate.Sometimes
}

// NewRenditionWorker creates a worker.
func NewRenditionWorker(cfg RenditionWorkerConfig) *RenditionWorker {
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.FS == nil {
		cfg.FS = RealFS{}
	}
	if cfg.Emit == nil {
		cfg.Emit = func(RenditionEvent) {}
	}
	return &RenditionWorker{
		cfg:          cfg,
		dir:          filepath.Join(cfg.JobDir, cfg.Profile.Label),
		logSometimes: rate.Sometimes{Interval: 10 * time.Second},
	}
}

// Run executes the rendition until a terminal outcome. It emits exactly one
// EventStarted followed by progress and exactly one terminal event, and
// returns a *domain.RenditionError on failure. Partial output is left on disk.
func (w *RenditionWorker) Run(ctx context.Context) error {
	label := w.cfg.Profile.Label
	logger := log.WithComponentFromContext(ctx, "rendition").With().
		Str(log.FieldQuality, label).
		Str(log.FieldResolution, w.cfg.Profile.Resolution()).
		Logger()

	if err := w.cfg.FS.MkdirAll(w.dir, 0o755); err != nil {
		return w.fail(fmt.Sprintf("create output dir: %v", err), time.Time{})
	}

	started := w.cfg.Clock.Now()
	w.emit(RenditionEvent{Kind: EventStarted})
	metrics.RenditionStarted()
	logger.Info().Str(log.FieldEvent, "rendition.started").Str(log.FieldOutputDir, w.dir).Msg("rendition started")

	handle, err := w.cfg.Runner.Start(ctx, domain.Spec{
		Input:          w.cfg.Input,
		OutputDir:      w.dir,
		Profile:        w.cfg.Profile,
		SourceDuration: w.cfg.SourceDuration,
	})
	if err != nil {
		return w.fail(fmt.Sprintf("start encoder: %v", err), started)
	}

	handle = &onceStopHandle{Handle: handle}
	if w.cfg.Track != nil {
		untrack := w.cfg.Track(label, handle)
		defer untrack()
	}

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- handle.Wait()
	}()

	progressCh := handle.Progress()
	lastSeen := w.cfg.Clock.Now()
	var timeoutCh <-chan time.Time
	if w.cfg.StallTimeout > 0 {
		timeoutCh = w.cfg.Clock.After(w.cfg.StallTimeout)
	}

	for {
		select {
		case <-ctx.Done():
			_ = handle.Stop(StopGrace, KillDelay)
			<-waitCh
			logger.Info().Str(log.FieldEvent, "rendition.cancelled").Msg("rendition stopped")
			return w.fail(domain.ErrCancelled.Error(), started)

		case ev, ok := <-progressCh:
			if !ok {
				progressCh = nil
				continue
			}
			lastSeen = w.cfg.Clock.Now()
			if w.cfg.StallTimeout > 0 {
				timeoutCh = w.cfg.Clock.After(w.cfg.StallTimeout)
			}
			w.emit(RenditionEvent{Kind: EventProgress, Percent: ev.Percent})
			w.logSometimes.Do(func() {
				logger.Debug().Str(log.FieldEvent, "rendition.progress").Int(log.FieldProgress, ev.Percent).Msg("rendition progress")
			})

		case <-timeoutCh:
			elapsed := w.cfg.Clock.Now().Sub(lastSeen)
			if elapsed < w.cfg.StallTimeout {
				// False alarm, re-arm
				timeoutCh = w.cfg.Clock.After(w.cfg.StallTimeout - elapsed)
				continue
			}
			_ = handle.Stop(StopGrace, KillDelay)
			<-waitCh
			logger.Warn().Str(log.FieldEvent, "rendition.stalled").Dur("stall_timeout", w.cfg.StallTimeout).Msg("no encoder progress, stopped")
			return w.fail(fmt.Sprintf("stalled: no progress for %s", w.cfg.StallTimeout), started)

		case err := <-waitCh:
			if err != nil {
				msg := err.Error()
				if diag := handle.Diagnostics(); len(diag) > 0 {
					msg = fmt.Sprintf("%s: %s", msg, diag[len(diag)-1])
				}
				logger.Warn().Err(err).Str(log.FieldEvent, "rendition.failed").Strs("diagnostics", handle.Diagnostics()).Msg("encoder failed")
				return w.fail(msg, started)
			}
			return w.finish(logger, started)
		}
	}
}

func (w *RenditionWorker) finish(logger zerolog.Logger, started time.Time) error {
	playlistPath := filepath.Join(w.dir, domain.PlaylistName)
	pl, err := hls.ReadMediaPlaylist(playlistPath)
	if err != nil {
		return w.fail(fmt.Sprintf("read playlist: %v", err), started)
	}
	if !pl.IsVOD {
		return w.fail("playlist is not finite (missing #EXT-X-ENDLIST)", started)
	}

	w.emit(RenditionEvent{
		Kind:        EventSucceeded,
		Segments:    len(pl.Segments),
		DurationSec: pl.TotalDuration.Seconds(),
	})
	metrics.ObserveRenditionFinished(w.cfg.Profile.Label, "success", w.cfg.Clock.Now().Sub(started))
	logger.Info().
		Str(log.FieldEvent, "rendition.completed").
		Str(log.FieldPlaylistPath, playlistPath).
		Int("segments", len(pl.Segments)).
		Msg("rendition completed")
	return nil
}

// fail emits the terminal failure. A zero started means the encoder never ran.
func (w *RenditionWorker) fail(msg string, started time.Time) error {
	if started.IsZero() {
		w.emit(RenditionEvent{Kind: EventStarted})
	} else {
		metrics.ObserveRenditionFinished(w.cfg.Profile.Label, "failure", w.cfg.Clock.Now().Sub(started))
	}
	w.emit(RenditionEvent{Kind: EventFailed, Error: msg})
	return &domain.RenditionError{Quality: w.cfg.Profile.Label, Message: msg}
}

func (w *RenditionWorker) emit(ev RenditionEvent) {
	ev.Quality = w.cfg.Profile.Label
	w.cfg.Emit(ev)
}

// onceStopHandle forwards Stop to the encoder at most once, so the worker and
// a cancelling orchestrator can both call it.
type onceStopHandle struct {
	domain.Handle
	once sync.Once
	err  error
}

func (h *onceStopHandle) Stop(grace, kill time.Duration) error {
	h.once.Do(func() {
		h.err = h.Handle.Stop(grace, kill)
	})
	return h.err
}
