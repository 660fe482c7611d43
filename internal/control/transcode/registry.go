// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"fmt"
	"sync"
	"time"

	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/metrics"
	"github.com/google/uuid"
)

// Registry is the process-lifetime store of job records. It is the only owner
// of *domain.Job values; callers always receive clones.
type Registry struct {
	mu    sync.RWMutex
	jobs  map[string]*domain.Job
	clock Clock
}

// NewRegistry creates an empty registry.
func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = RealClock{}
	}
	return &Registry{
		jobs:  make(map[string]*domain.Job),
		clock: clock,
	}
}

// Create validates qualities and stores a new processing record.
func (r *Registry) Create(inputPath, outputDir string, qualities []string) (*domain.Job, error) {
	if err := domain.ValidateQualities(qualities); err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:         uuid.NewString(),
		Status:     domain.StatusProcessing,
		InputPath:  inputPath,
		OutputDir:  outputDir,
		Qualities:  append([]string(nil), qualities...),
		Renditions: make(map[string]domain.RenditionState, len(qualities)),
		Errors:     []domain.RenditionError{},
		StartedAt:  r.clock.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	r.publishLocked()
	return job.Clone(), nil
}

// Get returns a snapshot of the record.
func (r *Registry) Get(id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	return job.Clone(), nil
}

// List returns snapshots of all records in no particular order.
func (r *Registry) List() []*domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job.Clone())
	}
	return out
}

// Remove deletes the record. It reports whether a record existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return false
	}
	delete(r.jobs, id)
	r.publishLocked()
	return true
}

// RemoveIf deletes every record matching pred and returns their ids.
func (r *Registry) RemoveIf(pred func(*domain.Job) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for id, job := range r.jobs {
		if pred(job) {
			delete(r.jobs, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		r.publishLocked()
	}
	return removed
}

// SetSourceMetadata attaches probe results to a processing job.
func (r *Registry) SetSourceMetadata(id string, meta *domain.SourceMetadata) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.IsTerminal() || meta == nil {
		return false
	}
	m := *meta
	job.SourceMetadata = &m
	return true
}

// Apply routes a rendition event into the record and recomputes job progress.
// Events for unknown or terminal jobs, and events for a rendition that has
// already settled, are dropped. It reports whether the record changed.
func (r *Registry) Apply(id string, ev RenditionEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return false
	}

	state, started := job.Renditions[ev.Quality]
	if started && state.Status.IsTerminal() {
		return false
	}
	if !started {
		state = domain.RenditionState{Status: domain.StatusProcessing}
	}

	switch ev.Kind {
	case EventStarted:
		if started {
			return false
		}
	case EventProgress:
		state.Progress = clampPercent(ev.Percent)
	case EventSucceeded:
		state.Status = domain.StatusCompleted
		state.Progress = 100
		state.Segments = ev.Segments
		state.DurationSec = ev.DurationSec
	case EventFailed:
		state.Status = domain.StatusFailed
		state.Error = ev.Error
		job.Errors = append(job.Errors, domain.RenditionError{Quality: ev.Quality, Message: ev.Error})
	default:
		return false
	}

	job.Renditions[ev.Quality] = state
	job.Progress = domain.AggregateProgress(job.Renditions)
	return true
}

// Fail records a job-level error (empty quality) and moves the job to failed.
func (r *Registry) Fail(id, message string) (*domain.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return nil, false
	}
	job.Errors = append(job.Errors, domain.RenditionError{Message: message})
	r.finalizeLocked(job, domain.StatusFailed)
	return job.Clone(), true
}

// Finalize moves a processing job to a terminal status. Renditions still in
// flight when a job is cancelled are marked cancelled as well.
func (r *Registry) Finalize(id string, status domain.Status) (*domain.Job, bool) {
	if !status.IsTerminal() {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return nil, false
	}
	r.finalizeLocked(job, status)
	return job.Clone(), true
}

func (r *Registry) finalizeLocked(job *domain.Job, status domain.Status) {
	now := r.clock.Now()
	job.Status = status
	job.EndedAt = &now

	switch status {
	case domain.StatusCompleted:
		job.Progress = 100
	case domain.StatusCancelled:
		for q, st := range job.Renditions {
			if !st.Status.IsTerminal() {
				st.Status = domain.StatusCancelled
				job.Renditions[q] = st
			}
		}
	}
	r.publishLocked()
}

// Counts returns the number of records per status.
func (r *Registry) Counts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countsLocked()
}

func (r *Registry) countsLocked() map[string]int {
	counts := map[string]int{
		string(domain.StatusProcessing): 0,
		string(domain.StatusCompleted):  0,
		string(domain.StatusFailed):     0,
		string(domain.StatusCancelled):  0,
	}
	for _, job := range r.jobs {
		counts[string(job.Status)]++
	}
	return counts
}

func (r *Registry) publishLocked() {
	metrics.SetRegistryJobs(r.countsLocked())
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// age reports how long ago a terminal job ended.
func age(job *domain.Job, now time.Time) time.Duration {
	if job.EndedAt == nil {
		return 0
	}
	return now.Sub(*job.EndedAt)
}
