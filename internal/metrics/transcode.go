// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsladder_jobs_submitted_total",
		Help: "Total number of accepted transcode jobs",
	})

	jobsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsladder_jobs_rejected_total",
		Help: "Total number of rejected transcode submissions",
	}, []string{"reason"}) // reason=validation|not_found

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsladder_jobs_finished_total",
		Help: "Total number of jobs that reached a terminal state",
	}, []string{"status"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlsladder_job_duration_seconds",
		Help:    "Wall time from submission to terminal state",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
	}, []string{"status"})

	renditionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hlsladder_renditions_active",
		Help: "Number of rendition encodes currently running",
	})

	renditionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsladder_renditions_finished_total",
		Help: "Total number of finished rendition encodes by outcome",
	}, []string{"quality", "result"}) // result=success|failure|cancelled

	renditionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlsladder_rendition_duration_seconds",
		Help:    "Wall time of a single rendition encode",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	}, []string{"quality"})

	manifestWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsladder_manifest_writes_total",
		Help: "Master manifest write attempts by outcome",
	}, []string{"outcome"})

	reaperRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsladder_reaper_removed_total",
		Help: "Total number of job records evicted by the reaper",
	})

	reaperSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsladder_reaper_sweeps_total",
		Help: "Total number of reaper sweeps",
	})

	registryJobs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hlsladder_registry_jobs",
		Help: "Job records currently held by the registry by status",
	}, []string{"status"})
)

// IncJobSubmitted counts an accepted submission.
func IncJobSubmitted() { jobsSubmitted.Inc() }

// IncJobRejected counts a rejected submission.
func IncJobRejected(reason string) { jobsRejected.WithLabelValues(reason).Inc() }

// ObserveJobFinished records a terminal transition and its wall time.
func ObserveJobFinished(status string, d time.Duration) {
	jobsFinished.WithLabelValues(status).Inc()
	jobDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RenditionStarted increments the active gauge.
func RenditionStarted() { renditionsActive.Inc() }

// ObserveRenditionFinished decrements the active gauge and records the outcome.
func ObserveRenditionFinished(quality, result string, d time.Duration) {
	renditionsActive.Dec()
	renditionsFinished.WithLabelValues(quality, result).Inc()
	renditionDuration.WithLabelValues(quality).Observe(d.Seconds())
}

// IncManifestWrite counts a master manifest write attempt.
func IncManifestWrite(outcome string) { manifestWrites.WithLabelValues(outcome).Inc() }

// ObserveReaperSweep records one sweep and how many records it removed.
func ObserveReaperSweep(removed int) {
	reaperSweeps.Inc()
	reaperRemoved.Add(float64(removed))
}

// SetRegistryJobs publishes the per-status record count.
func SetRegistryJobs(counts map[string]int) {
	registryJobs.Reset()
	for status, n := range counts {
		registryJobs.WithLabelValues(status).Set(float64(n))
	}
}
