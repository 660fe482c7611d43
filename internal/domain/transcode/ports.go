// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"context"
	"time"
)

// SegmentDuration is the fixed HLS target segment length for every rendition.
const SegmentDuration = 10 * time.Second

// Spec defines the immutable configuration for one rendition encode.
// This is a Port (interface contract) that Control defines and Infra implements.
type Spec struct {
	// Input is the source file path.
	Input string

	// OutputDir is the rendition's exclusive subdirectory.
	// Infrastructure MUST NOT write outside this directory.
	OutputDir string

	// Profile is the quality ladder entry to encode.
	Profile Profile

	// SourceDuration is the probed source duration, used to turn encoder
	// timestamps into a percentage. Zero means unknown.
	SourceDuration time.Duration
}

// PlaylistName is the per-rendition sub-manifest filename.
const PlaylistName = "playlist.m3u8"

// SegmentPattern is the printf-style segment filename inside OutputDir.
const SegmentPattern = "segment_%03d.ts"

// ProgressEvent reports encode completion in percent (0..100).
type ProgressEvent struct {
	Percent int
	At      time.Time
}

// Runner defines the contract for starting an external encode process.
// This interface MUST be implemented by the Infrastructure layer.
type Runner interface {
	// Start launches the process defined by Spec.
	// Returns immediate error if execution fails to start/fork.
	Start(ctx context.Context, spec Spec) (Handle, error)
}

// Handle controls a running encode process.
type Handle interface {
	// Wait blocks until the process exits.
	// Returns nil if exit code 0, error otherwise.
	Wait() error

	// Stop attempts graceful termination (SIGTERM), then kills (SIGKILL) after grace.
	// kill bounds how long to wait for SIGKILL to take effect.
	Stop(grace, kill time.Duration) error

	// Progress returns a read-only channel of progress events. It is closed
	// when the process output ends.
	Progress() <-chan ProgressEvent

	// Diagnostics returns a bounded snapshot of recent logs/errors (ring buffer).
	Diagnostics() []string
}

// Prober inspects a source file.
type Prober interface {
	Probe(ctx context.Context, path string) (*SourceMetadata, error)
}

// SourceMetadata holds the probed properties of a source file.
type SourceMetadata struct {
	Duration float64      `json:"duration"` // seconds
	Size     int64        `json:"size"`     // container size in bytes
	Bitrate  int64        `json:"bitrate"`  // bits per second
	Video    *VideoStream `json:"video"`
	Audio    *AudioStream `json:"audio"`
}

type VideoStream struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Codec   string `json:"codec"`
	Bitrate int64  `json:"bitrate"`
}

type AudioStream struct {
	Codec    string `json:"codec"`
	Bitrate  int64  `json:"bitrate"`
	Channels int    `json:"channels"`
}

// DurationValue returns Duration as a time.Duration.
func (m *SourceMetadata) DurationValue() time.Duration {
	if m == nil || m.Duration <= 0 {
		return 0
	}
	return time.Duration(m.Duration * float64(time.Second))
}
