// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingHandler is returned when the API handler is not provided
	ErrMissingHandler = errors.New("API handler is required")

	// ErrMissingOrchestrator is returned when the job orchestrator is not provided
	ErrMissingOrchestrator = errors.New("orchestrator is required")

	// ErrMissingReaper is returned when the job reaper is not provided
	ErrMissingReaper = errors.New("reaper is required")

	// ErrAlreadyRunning is returned when Run is called twice on the same App.
	ErrAlreadyRunning = errors.New("app already running")
)
