// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procStart = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsladder_ffmpeg_start_total",
		Help: "Total number of encoder process starts",
	}, []string{"result"})

	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsladder_proc_terminate_total",
		Help: "Signals sent to encoder process groups",
	}, []string{"signal", "result"}) // result=sent|esrch|error

	procWait = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsladder_proc_wait_total",
		Help: "Observed encoder process exits",
	}, []string{"result"})

	probeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsladder_probe_total",
		Help: "Source probe attempts by outcome",
	}, []string{"outcome"})
)

// IncProcStart counts an encoder start attempt.
func IncProcStart(result string) { procStart.WithLabelValues(result).Inc() }

// IncProcTerminate counts a signal sent to a process group.
func IncProcTerminate(signal, result string) { procTerminate.WithLabelValues(signal, result).Inc() }

// IncProcWait counts an observed process exit.
func IncProcWait(result string) { procWait.WithLabelValues(result).Inc() }

// IncProbe counts a probe attempt.
func IncProbe(outcome string) { probeTotal.WithLabelValues(outcome).Inc() }
