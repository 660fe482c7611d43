// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

// EventKind classifies a rendition event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventSucceeded
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RenditionEvent is what a rendition worker reports about its quality.
type RenditionEvent struct {
	Quality string
	Kind    EventKind
	Percent int    // EventProgress
	Error   string // EventFailed

	// EventSucceeded, taken from the sub-manifest.
	Segments    int
	DurationSec float64
}
