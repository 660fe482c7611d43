// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"context"
	"sync/atomic"
	"time"

	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/log"
	"github.com/ManuGH/hlsladder/internal/metrics"
)

// Reaper evicts completed records once they are older than the retention
// window. Failed and cancelled records are kept until removed explicitly.
type Reaper struct {
	registry  *Registry
	clock     Clock
	interval  time.Duration
	retention atomic.Int64 // time.Duration
}

// NewReaper creates a reaper. Non-positive durations fall back to the defaults.
func NewReaper(registry *Registry, clock Clock, interval, retention time.Duration) *Reaper {
	if clock == nil {
		clock = RealClock{}
	}
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	r := &Reaper{registry: registry, clock: clock, interval: interval}
	r.SetRetention(retention)
	return r
}

// SetRetention changes the window used by subsequent sweeps.
func (r *Reaper) SetRetention(d time.Duration) {
	if d <= 0 {
		d = DefaultRetention
	}
	r.retention.Store(int64(d))
}

// Retention returns the current window.
func (r *Reaper) Retention() time.Duration {
	return time.Duration(r.retention.Load())
}

// Sweep removes every completed record whose endedAt lies more than the
// retention window before now, and returns how many were removed.
func (r *Reaper) Sweep(now time.Time) int {
	retention := r.Retention()
	removed := r.registry.RemoveIf(func(job *domain.Job) bool {
		return job.Status == domain.StatusCompleted && job.EndedAt != nil && age(job, now) > retention
	})
	metrics.ObserveReaperSweep(len(removed))

	logger := log.WithComponent("reaper")
	evt := logger.Debug()
	if len(removed) > 0 {
		evt = logger.Info().Strs("job_ids", removed)
	}
	evt.Str(log.FieldEvent, "reaper.sweep").
		Int("removed", len(removed)).
		Dur("retention", retention).
		Msg("reaper sweep")
	return len(removed)
}

// Run sweeps on every interval tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(r.clock.Now())
		}
	}
}
