// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation classifies rejected submissions. Use errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound covers unknown job ids and missing source inputs.
	ErrNotFound = errors.New("not found")
	// ErrJobFailed marks a job that ended with one or more failed renditions.
	ErrJobFailed = errors.New("job failed")
	// ErrTerminal is returned when an operation needs a job that is still processing.
	ErrTerminal = errors.New("job already finished")
	// ErrUnavailable is returned for submissions after shutdown started.
	ErrUnavailable = errors.New("orchestrator is shutting down")
	// ErrCancelled is reported by renditions stopped through cancellation.
	ErrCancelled = errors.New("cancelled")
)

// ValidationError describes why a quality list was rejected.
type ValidationError struct {
	Reason  string
	Invalid []string
	Valid   []string
}

func (e *ValidationError) Error() string {
	if len(e.Invalid) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Invalid, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RenditionError is one quality's encode failure.
type RenditionError struct {
	Quality string `json:"quality"`
	Message string `json:"error"`
}

func (e *RenditionError) Error() string {
	return fmt.Sprintf("rendition %s: %s", e.Quality, e.Message)
}

// JobError aggregates every failing rendition of a job.
type JobError struct {
	Renditions []RenditionError
}

func (e *JobError) Error() string {
	parts := make([]string, 0, len(e.Renditions))
	for _, r := range e.Renditions {
		parts = append(parts, r.Error())
	}
	return fmt.Sprintf("%s: %s", ErrJobFailed, strings.Join(parts, "; "))
}

func (e *JobError) Unwrap() error { return ErrJobFailed }
