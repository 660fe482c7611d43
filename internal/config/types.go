// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"time"
)

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version  string
	DataDir  string
	LogLevel string

	API    APIConfig
	FFmpeg FFmpegConfig
	Jobs   JobsConfig
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	ListenAddr string
	// RateLimit is requests per RateWindow per client IP. Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration

	// MetricsEnabled mounts the Prometheus /metrics route.
	MetricsEnabled bool
}

// FFmpegConfig locates the encoder binaries.
type FFmpegConfig struct {
	Bin        string
	FFprobeBin string
}

// JobsConfig tunes the orchestrator and reaper.
type JobsConfig struct {
	Retention               time.Duration
	ReapInterval            time.Duration
	MaxConcurrentRenditions int
	StallTimeout            time.Duration
	ManifestPolicy          string
}

// UploadsDir holds one <fileId>.json descriptor per uploaded source.
func (c AppConfig) UploadsDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// TranscodedDir is the root of every job's output tree.
func (c AppConfig) TranscodedDir() string {
	return filepath.Join(c.DataDir, "transcoded")
}

// FileConfig is the YAML shape. Pointers distinguish "unset" from zero.
type FileConfig struct {
	DataDir  *string `yaml:"dataDir"`
	LogLevel *string `yaml:"logLevel"`

	API    *FileAPIConfig    `yaml:"api"`
	FFmpeg *FileFFmpegConfig `yaml:"ffmpeg"`
	Jobs   *FileJobsConfig   `yaml:"jobs"`
}

type FileAPIConfig struct {
	ListenAddr *string `yaml:"listenAddr"`
	RateLimit  *int    `yaml:"rateLimit"`
	RateWindow *string `yaml:"rateWindow"`

	MetricsEnabled *bool `yaml:"metricsEnabled"`
}

type FileFFmpegConfig struct {
	Bin        *string `yaml:"bin"`
	FFprobeBin *string `yaml:"ffprobeBin"`
}

type FileJobsConfig struct {
	Retention               *string `yaml:"retention"`
	ReapInterval            *string `yaml:"reapInterval"`
	MaxConcurrentRenditions *int    `yaml:"maxConcurrentRenditions"`
	StallTimeout            *string `yaml:"stallTimeout"`
	ManifestPolicy          *string `yaml:"manifestPolicy"`
}
