// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/log"
	"github.com/ManuGH/hlsladder/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Config wires an Orchestrator.
type Config struct {
	Runner   domain.Runner
	Prober   domain.Prober
	Registry *Registry
	Clock    Clock
	FS       FS

	// MaxConcurrentRenditions bounds renditions running at once per job. Zero means unbounded.
	MaxConcurrentRenditions int
	// StallTimeout is passed to every rendition worker. Zero disables stall detection.
	StallTimeout   time.Duration
	ManifestPolicy ManifestPolicy
}

// Orchestrator accepts jobs, fans them out into rendition workers and
// finalizes them once every rendition has settled.
type Orchestrator struct {
	runner   domain.Runner
	prober   domain.Prober
	registry *Registry
	clock    Clock
	fs       FS

	maxConcurrent int
	stallTimeout  time.Duration
	policy        atomic.Value // ManifestPolicy

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu     sync.Mutex
	runs   map[string]*jobRun
	closed bool
	wg   sync.WaitGroup
}

// jobRun is the live part of a processing job: its context and the encoder
// handles currently running for it.
type jobRun struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	handles map[string]domain.Handle
}

func (r *jobRun) track(quality string, h domain.Handle) func() {
	r.mu.Lock()
	r.handles[quality] = h
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.handles, quality)
		r.mu.Unlock()
	}
}

// stop signals every live handle and cancels launches that have not started.
func (r *jobRun) stop() int {
	r.cancel()
	r.mu.Lock()
	handles := make([]domain.Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()
	for _, h := range handles {
		_ = h.Stop(StopGrace, KillDelay)
	}
	return len(handles)
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Runner == nil {
		panic("invariant violation: runner is nil in NewOrchestrator")
	}
	if cfg.Prober == nil {
		panic("invariant violation: prober is nil in NewOrchestrator")
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.FS == nil {
		cfg.FS = RealFS{}
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry(cfg.Clock)
	}
	if cfg.ManifestPolicy == "" {
		cfg.ManifestPolicy = ManifestAll
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		runner:        cfg.Runner,
		prober:        cfg.Prober,
		registry:      cfg.Registry,
		clock:         cfg.Clock,
		fs:            cfg.FS,
		maxConcurrent: cfg.MaxConcurrentRenditions,
		stallTimeout:  cfg.StallTimeout,
		baseCtx:       ctx,
		baseCancel:    cancel,
		runs:          make(map[string]*jobRun),
	}
	o.policy.Store(cfg.ManifestPolicy)
	return o
}

// Registry returns the registry the orchestrator reports into.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// SetManifestPolicy changes the policy for jobs finalized from now on.
func (o *Orchestrator) SetManifestPolicy(p ManifestPolicy) { o.policy.Store(p) }

// ManifestPolicy returns the policy applied at finalization.
func (o *Orchestrator) ManifestPolicy() ManifestPolicy {
	return o.policy.Load().(ManifestPolicy)
}

// Submit validates the request, records a processing job and starts it in
// the background. The returned id is usable immediately.
func (o *Orchestrator) Submit(ctx context.Context, inputPath, outputDir string, qualities []string) (string, error) {
	if err := domain.ValidateQualities(qualities); err != nil {
		metrics.IncJobRejected("validation")
		return "", err
	}
	if _, err := o.fs.Stat(inputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			metrics.IncJobRejected("not_found")
			return "", fmt.Errorf("input %s: %w", inputPath, domain.ErrNotFound)
		}
		metrics.IncJobRejected("stat")
		return "", fmt.Errorf("stat input: %w", err)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		metrics.IncJobRejected("shutdown")
		return "", fmt.Errorf("submit %s: %w", inputPath, domain.ErrUnavailable)
	}
	job, err := o.registry.Create(inputPath, outputDir, qualities)
	if err != nil {
		o.mu.Unlock()
		metrics.IncJobRejected("validation")
		return "", err
	}

	runCtx, cancel := context.WithCancel(o.baseCtx)
	runCtx = log.ContextWithJobID(runCtx, job.ID)
	if reqID := log.RequestIDFromContext(ctx); reqID != "" {
		runCtx = log.ContextWithRequestID(runCtx, reqID)
	}
	run := &jobRun{
		cancel:  cancel,
		done:    make(chan struct{}),
		handles: make(map[string]domain.Handle),
	}

	o.runs[job.ID] = run
	o.wg.Add(1)
	o.mu.Unlock()

	metrics.IncJobSubmitted()
	logger := log.WithComponentFromContext(runCtx, "orchestrator")
	logger.Info().
		Str(log.FieldEvent, "job.submitted").
		Str(log.FieldPath, inputPath).
		Str(log.FieldOutputDir, outputDir).
		Strs("qualities", job.Qualities).
		Msg("job submitted")

	go o.run(runCtx, job, run)

	return job.ID, nil
}

// GetStatus returns a snapshot of the job.
func (o *Orchestrator) GetStatus(id string) (*domain.Job, error) {
	return o.registry.Get(id)
}

// ListJobs returns snapshots of every job in the registry.
func (o *Orchestrator) ListJobs() []*domain.Job {
	return o.registry.List()
}

// Cancel stops every running encoder of a processing job and moves it to
// cancelled. No manifest is written for a cancelled job.
func (o *Orchestrator) Cancel(id string) (*domain.Job, error) {
	job, err := o.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, fmt.Errorf("job %s is %s: %w", id, job.Status, domain.ErrTerminal)
	}

	cancelled, ok := o.registry.Finalize(id, domain.StatusCancelled)
	if !ok {
		// Lost the race against the job's own finalization
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrTerminal)
	}

	stopped := 0
	if run := o.lookupRun(id); run != nil {
		stopped = run.stop()
	}

	metrics.ObserveJobFinished(string(domain.StatusCancelled), o.clock.Now().Sub(cancelled.StartedAt))
	logger := log.WithComponent("orchestrator")
	logger.Info().
		Str(log.FieldJobID, id).
		Str(log.FieldEvent, "job.cancelled").
		Int("stopped_handles", stopped).
		Msg("job cancelled")
	return cancelled, nil
}

// Remove deletes the job record. A still running job has its encoders
// stopped first. Removing an unknown job is a no-op.
func (o *Orchestrator) Remove(id string) {
	if run := o.lookupRun(id); run != nil {
		run.stop()
	}
	if o.registry.Remove(id) {
		logger := log.WithComponent("orchestrator")
		logger.Info().
			Str(log.FieldJobID, id).
			Str(log.FieldEvent, "job.removed").
			Msg("job removed")
	}
}

// Shutdown rejects further submissions, cancels every processing job and
// waits for their workers to exit or for ctx to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	ids := make([]string, 0, len(o.runs))
	for id := range o.runs {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		if _, err := o.Cancel(id); err != nil && !errors.Is(err, domain.ErrTerminal) && !errors.Is(err, domain.ErrNotFound) {
			logger := log.WithComponent("orchestrator")
			logger.Warn().Err(err).Str(log.FieldJobID, id).Msg("cancel on shutdown failed")
		}
	}
	o.baseCancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) lookupRun(id string) *jobRun {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runs[id]
}

func (o *Orchestrator) run(ctx context.Context, job *domain.Job, run *jobRun) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		delete(o.runs, job.ID)
		o.mu.Unlock()
		run.cancel()
		close(run.done)
	}()

	logger := log.WithComponentFromContext(ctx, "orchestrator")

	meta, err := o.prober.Probe(ctx, job.InputPath)
	if err != nil {
		if ctx.Err() != nil {
			o.abandon(job.ID)
			return
		}
		if failed, ok := o.registry.Fail(job.ID, fmt.Sprintf("probe: %v", err)); ok {
			metrics.ObserveJobFinished(string(domain.StatusFailed), o.clock.Now().Sub(failed.StartedAt))
		}
		logger.Error().Err(err).Str(log.FieldEvent, "job.failed").Msg("source probe failed")
		return
	}
	o.registry.SetSourceMetadata(job.ID, meta)

	emit := func(ev RenditionEvent) {
		o.registry.Apply(job.ID, ev)
	}

	// Plain Group: a failed rendition must not cancel its siblings.
	var g errgroup.Group
	if o.maxConcurrent > 0 {
		g.SetLimit(o.maxConcurrent)
	}
	for _, q := range job.Qualities {
		if ctx.Err() != nil {
			break
		}
		profile, _ := domain.LookupProfile(q)
		w := NewRenditionWorker(RenditionWorkerConfig{
			JobID:          job.ID,
			Input:          job.InputPath,
			JobDir:         job.OutputDir,
			Profile:        profile,
			SourceDuration: meta.DurationValue(),
			Runner:         o.runner,
			Clock:          o.clock,
			FS:             o.fs,
			StallTimeout:   o.stallTimeout,
			Emit:           emit,
			Track:          run.track,
		})
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return w.Run(ctx)
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		o.abandon(job.ID)
		return
	}
	o.finalize(ctx, job.ID)
}

// abandon moves a job whose run was interrupted to cancelled. It is a no-op
// when Cancel already made the job terminal.
func (o *Orchestrator) abandon(id string) {
	if job, ok := o.registry.Finalize(id, domain.StatusCancelled); ok {
		metrics.ObserveJobFinished(string(domain.StatusCancelled), o.clock.Now().Sub(job.StartedAt))
	}
}

// finalize decides the terminal status once every rendition has settled and
// writes the master manifest.
func (o *Orchestrator) finalize(ctx context.Context, id string) {
	logger := log.WithComponentFromContext(ctx, "orchestrator")

	job, err := o.registry.Get(id)
	if err != nil || job.Status.IsTerminal() {
		return
	}

	status := domain.StatusCompleted
	for _, q := range job.Qualities {
		if job.Renditions[q].Status != domain.StatusCompleted {
			status = domain.StatusFailed
			break
		}
	}

	var master string
	merr := o.fs.MkdirAll(job.OutputDir, 0o755)
	if merr == nil {
		master, merr = writeMaster(job, o.ManifestPolicy())
	}

	var (
		final *domain.Job
		ok    bool
	)
	if merr != nil {
		// A job without its master cannot be played back
		logger.Error().Err(merr).Str(log.FieldEvent, "manifest.failed").Msg("master manifest write failed")
		status = domain.StatusFailed
		final, ok = o.registry.Fail(id, fmt.Sprintf("master manifest: %v", merr))
	} else {
		final, ok = o.registry.Finalize(id, status)
	}
	if !ok {
		return
	}
	metrics.ObserveJobFinished(string(status), o.clock.Now().Sub(final.StartedAt))

	evt := logger.Info()
	if status == domain.StatusFailed {
		evt = logger.Warn().Err(final.Err())
	}
	evt.Str(log.FieldEvent, "job."+string(status)).
		Str(log.FieldPlaylistPath, master).
		Int(log.FieldProgress, final.Progress).
		Msg("job finished")
}
