// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys.
const (
	EnvListen          = "HLSLADDER_LISTEN"
	EnvDataDir         = "HLSLADDER_DATA"
	EnvLogLevel        = "HLSLADDER_LOG_LEVEL"
	EnvRateLimit       = "HLSLADDER_RATE_LIMIT"
	EnvRateWindow      = "HLSLADDER_RATE_WINDOW"
	EnvMetricsEnabled  = "HLSLADDER_METRICS_ENABLED"
	EnvFFmpegBin       = "HLSLADDER_FFMPEG_BIN"
	EnvFFprobeBin      = "HLSLADDER_FFPROBE_BIN"
	EnvRetention       = "HLSLADDER_RETENTION"
	EnvReapInterval    = "HLSLADDER_REAP_INTERVAL"
	EnvMaxRenditions   = "HLSLADDER_MAX_CONCURRENT_RENDITIONS"
	EnvStallTimeout    = "HLSLADDER_STALL_TIMEOUT"
	EnvManifestPolicy  = "HLSLADDER_MANIFEST_POLICY"
)

const (
	defaultListenAddr  = ":8088"
	defaultDataDir     = "/tmp/hlsladder"
	defaultRateLimit   = 100
	defaultRateWindow  = 15 * time.Minute
	defaultRetention   = 24 * time.Hour
	defaultReapEvery   = time.Hour
	defaultStall       = 5 * time.Minute
	defaultManifestAll = "all"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the YAML file this loader reads, or "" for ENV-only.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	// SAFETY: Ensure DataDir is absolute
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func defaults() AppConfig {
	return AppConfig{
		DataDir:  defaultDataDir,
		LogLevel: "info",
		API: APIConfig{
			ListenAddr:     defaultListenAddr,
			RateLimit:      defaultRateLimit,
			RateWindow:     defaultRateWindow,
			MetricsEnabled: true,
		},
		FFmpeg: FFmpegConfig{
			Bin:        "ffmpeg",
			FFprobeBin: "ffprobe",
		},
		Jobs: JobsConfig{
			Retention:      defaultRetention,
			ReapInterval:   defaultReapEvery,
			StallTimeout:   defaultStall,
			ManifestPolicy: defaultManifestAll,
		},
	}
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.DataDir, f.DataDir)
	setString(&cfg.LogLevel, f.LogLevel)

	if f.API != nil {
		setString(&cfg.API.ListenAddr, f.API.ListenAddr)
		if f.API.RateLimit != nil {
			cfg.API.RateLimit = *f.API.RateLimit
		}
		if err := setDuration(&cfg.API.RateWindow, f.API.RateWindow, "api.rateWindow"); err != nil {
			return err
		}
		if f.API.MetricsEnabled != nil {
			cfg.API.MetricsEnabled = *f.API.MetricsEnabled
		}
	}
	if f.FFmpeg != nil {
		setString(&cfg.FFmpeg.Bin, f.FFmpeg.Bin)
		setString(&cfg.FFmpeg.FFprobeBin, f.FFmpeg.FFprobeBin)
	}
	if f.Jobs != nil {
		if err := setDuration(&cfg.Jobs.Retention, f.Jobs.Retention, "jobs.retention"); err != nil {
			return err
		}
		if err := setDuration(&cfg.Jobs.ReapInterval, f.Jobs.ReapInterval, "jobs.reapInterval"); err != nil {
			return err
		}
		if err := setDuration(&cfg.Jobs.StallTimeout, f.Jobs.StallTimeout, "jobs.stallTimeout"); err != nil {
			return err
		}
		if f.Jobs.MaxConcurrentRenditions != nil {
			cfg.Jobs.MaxConcurrentRenditions = *f.Jobs.MaxConcurrentRenditions
		}
		setString(&cfg.Jobs.ManifestPolicy, f.Jobs.ManifestPolicy)
	}
	return nil
}

// mergeEnvConfig applies environment overrides (highest priority).
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.API.ListenAddr = l.envString(EnvListen, cfg.API.ListenAddr)
	cfg.API.RateLimit = l.envInt(EnvRateLimit, cfg.API.RateLimit)
	cfg.API.RateWindow = l.envDuration(EnvRateWindow, cfg.API.RateWindow)
	cfg.API.MetricsEnabled = l.envBool(EnvMetricsEnabled, cfg.API.MetricsEnabled)

	cfg.FFmpeg.Bin = l.envString(EnvFFmpegBin, cfg.FFmpeg.Bin)
	cfg.FFmpeg.FFprobeBin = l.envString(EnvFFprobeBin, cfg.FFmpeg.FFprobeBin)

	cfg.Jobs.Retention = l.envDuration(EnvRetention, cfg.Jobs.Retention)
	cfg.Jobs.ReapInterval = l.envDuration(EnvReapInterval, cfg.Jobs.ReapInterval)
	cfg.Jobs.MaxConcurrentRenditions = l.envInt(EnvMaxRenditions, cfg.Jobs.MaxConcurrentRenditions)
	cfg.Jobs.StallTimeout = l.envDuration(EnvStallTimeout, cfg.Jobs.StallTimeout)
	cfg.Jobs.ManifestPolicy = l.envString(EnvManifestPolicy, cfg.Jobs.ManifestPolicy)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
