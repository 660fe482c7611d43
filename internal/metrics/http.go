// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fileRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsladder_file_requests_total",
		Help: "Requests for transcoded output files by result",
	}, []string{"result"}) // result=allowed|not_modified|path_escape|directory_listing|not_found|...

	videosDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsladder_videos_deleted_total",
		Help: "Total number of transcoded output trees deleted via the API",
	})
)

// IncFileRequest counts a request served or denied by the output file server.
func IncFileRequest(result string) { fileRequests.WithLabelValues(result).Inc() }

// IncVideoDeleted counts a removed output tree.
func IncVideoDeleted() { videosDeleted.Inc() }
