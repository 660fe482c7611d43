// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the transcode orchestrator over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/hlsladder/internal/api/middleware"
	"github.com/ManuGH/hlsladder/internal/config"
	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/health"
)

// JobService is the orchestrator surface the handlers need.
type JobService interface {
	Submit(ctx context.Context, inputPath, outputDir string, qualities []string) (string, error)
	GetStatus(id string) (*domain.Job, error)
	ListJobs() []*domain.Job
	Cancel(id string) (*domain.Job, error)
	Remove(id string)
}

// Server wires the HTTP routes.
type Server struct {
	svc           JobService
	health        *health.Manager
	uploadsDir    string
	transcodedDir string
	rateLimit     int
	rateWindow    time.Duration
	metrics       bool
}

// New builds a server for cfg. A nil health manager serves a bare liveness probe.
func New(svc JobService, cfg config.AppConfig, hm *health.Manager) *Server {
	if hm == nil {
		hm = health.NewManager(cfg.Version)
	}
	return &Server{
		svc:           svc,
		health:        hm,
		uploadsDir:    cfg.UploadsDir(),
		transcodedDir: cfg.TranscodedDir(),
		rateLimit:     cfg.API.RateLimit,
		rateWindow:    cfg.API.RateWindow,
		metrics:       cfg.API.MetricsEnabled,
	}
}

// Handler returns the configured HTTP handler with all routes and middleware applied.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/transcode", func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestLimit: s.rateLimit,
			WindowSize:   s.rateWindow,
		}))

		r.Post("/start", s.handleStart)
		r.Get("/status/{jobId}", s.handleStatus)
		r.Get("/jobs", s.handleListJobs)
		r.Delete("/cancel/{jobId}", s.handleCancel)
		r.Delete("/jobs/{jobId}", s.handleRemove)

		r.Get("/video/{fileId}", s.handleVideoInfo)
		r.Get("/videos", s.handleListVideos)
		r.Delete("/video/{fileId}", s.handleDeleteVideo)
	})

	r.Handle("/videos/*", http.StripPrefix("/videos", outputFileServer(s.transcodedDir)))

	return r
}
