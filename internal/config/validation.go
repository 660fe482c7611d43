// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ValidationError names the offending key.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s=%v: %s", e.Field, e.Value, e.Message)
}

// Validate checks a resolved configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		add("dataDir", cfg.DataDir, "must not be empty")
	}
	if cfg.API.ListenAddr == "" {
		add("api.listenAddr", cfg.API.ListenAddr, "must not be empty")
	}
	if cfg.API.RateLimit < 0 {
		add("api.rateLimit", cfg.API.RateLimit, "must be >= 0")
	}
	if cfg.API.RateLimit > 0 && cfg.API.RateWindow <= 0 {
		add("api.rateWindow", cfg.API.RateWindow, "must be positive when rate limiting is enabled")
	}
	if cfg.FFmpeg.Bin == "" {
		add("ffmpeg.bin", cfg.FFmpeg.Bin, "must not be empty")
	}
	if cfg.FFmpeg.FFprobeBin == "" {
		add("ffmpeg.ffprobeBin", cfg.FFmpeg.FFprobeBin, "must not be empty")
	}
	if cfg.Jobs.Retention <= 0 {
		add("jobs.retention", cfg.Jobs.Retention, "must be positive")
	}
	if cfg.Jobs.ReapInterval <= 0 {
		add("jobs.reapInterval", cfg.Jobs.ReapInterval, "must be positive")
	}
	if cfg.Jobs.MaxConcurrentRenditions < 0 {
		add("jobs.maxConcurrentRenditions", cfg.Jobs.MaxConcurrentRenditions, "must be >= 0 (0 = unbounded)")
	}
	if cfg.Jobs.StallTimeout < 0 {
		add("jobs.stallTimeout", cfg.Jobs.StallTimeout, "must be >= 0 (0 = disabled)")
	}
	switch cfg.Jobs.ManifestPolicy {
	case "all", "succeeded":
	default:
		add("jobs.manifestPolicy", cfg.Jobs.ManifestPolicy, `must be "all" or "succeeded"`)
	}
	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
			add("logLevel", cfg.LogLevel, "unknown level")
		}
	}

	return errors.Join(errs...)
}
