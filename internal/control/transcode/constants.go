// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import "time"

// Supervision constants.
const (
	// StopGrace is the grace period given to Stop() before Kill().
	StopGrace = 2 * time.Second

	// KillDelay is the additional time to wait for process termination after Kill().
	KillDelay = 5 * time.Second

	// DefaultStallTimeout fails a rendition that reports no progress for this long.
	DefaultStallTimeout = 5 * time.Minute

	// DefaultRetention is how long completed records stay queryable.
	DefaultRetention = 24 * time.Hour

	// DefaultReapInterval is the reaper tick.
	DefaultReapInterval = time.Hour
)
