// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"math"
	"time"
)

// Status is the lifecycle state of a job or of a single rendition.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal returns true if the status is terminal (no further transitions).
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// RenditionState tracks one quality of a job.
type RenditionState struct {
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`

	// Filled from the sub-manifest once the rendition succeeds.
	Segments    int     `json:"segments,omitempty"`
	DurationSec float64 `json:"durationSec,omitempty"`
}

// Job is the central job record. Only the registry mutates it; everything
// handed out is a Clone.
type Job struct {
	ID             string                    `json:"id"`
	Status         Status                    `json:"status"`
	InputPath      string                    `json:"inputPath"`
	OutputDir      string                    `json:"outputDir"`
	Qualities      []string                  `json:"qualities"`
	Renditions     map[string]RenditionState `json:"renditions"`
	Progress       int                       `json:"progress"`
	SourceMetadata *SourceMetadata           `json:"sourceMetadata,omitempty"`
	Errors         []RenditionError          `json:"errors"`
	StartedAt      time.Time                 `json:"startedAt"`
	EndedAt        *time.Time                `json:"endedAt,omitempty"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Qualities = append([]string(nil), j.Qualities...)
	out.Renditions = make(map[string]RenditionState, len(j.Renditions))
	for k, v := range j.Renditions {
		out.Renditions[k] = v
	}
	out.Errors = append([]RenditionError{}, j.Errors...)
	if j.SourceMetadata != nil {
		meta := *j.SourceMetadata
		if meta.Video != nil {
			v := *meta.Video
			meta.Video = &v
		}
		if meta.Audio != nil {
			a := *meta.Audio
			meta.Audio = &a
		}
		out.SourceMetadata = &meta
	}
	if j.EndedAt != nil {
		t := *j.EndedAt
		out.EndedAt = &t
	}
	return &out
}

// Err reports how a terminal job ended: a *JobError when it failed,
// ErrCancelled when it was cancelled, nil otherwise.
func (j *Job) Err() error {
	switch j.Status {
	case StatusFailed:
		return &JobError{Renditions: append([]RenditionError(nil), j.Errors...)}
	case StatusCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// AggregateProgress is the rounded mean progress of the renditions that have
// started. Qualities that have not started yet do not count.
func AggregateProgress(renditions map[string]RenditionState) int {
	if len(renditions) == 0 {
		return 0
	}
	total := 0
	for _, r := range renditions {
		total += r.Progress
	}
	return int(math.Round(float64(total) / float64(len(renditions))))
}
