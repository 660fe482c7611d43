// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "/tmp/hlsladder", cfg.DataDir)
	assert.Equal(t, ":8088", cfg.API.ListenAddr)
	assert.Equal(t, 100, cfg.API.RateLimit)
	assert.Equal(t, 15*time.Minute, cfg.API.RateWindow)
	assert.True(t, cfg.API.MetricsEnabled)
	assert.Equal(t, "ffmpeg", cfg.FFmpeg.Bin)
	assert.Equal(t, "ffprobe", cfg.FFmpeg.FFprobeBin)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.Retention)
	assert.Equal(t, time.Hour, cfg.Jobs.ReapInterval)
	assert.Equal(t, 0, cfg.Jobs.MaxConcurrentRenditions)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.StallTimeout)
	assert.Equal(t, "all", cfg.Jobs.ManifestPolicy)

	assert.Equal(t, "/tmp/hlsladder/uploads", cfg.UploadsDir())
	assert.Equal(t, "/tmp/hlsladder/transcoded", cfg.TranscodedDir())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
dataDir: `+dataDir+`
logLevel: debug
api:
  listenAddr: "127.0.0.1:9000"
  rateLimit: 0
  metricsEnabled: false
ffmpeg:
  bin: /opt/ffmpeg/bin/ffmpeg
jobs:
  retention: 48h
  maxConcurrentRenditions: 2
  stallTimeout: 0s
  manifestPolicy: succeeded
`)
	t.Setenv(EnvRetention, "12h")
	t.Setenv(EnvFFprobeBin, "/opt/ffmpeg/bin/ffprobe")

	l := NewLoader(path, "dev")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.ListenAddr)
	assert.Equal(t, 0, cfg.API.RateLimit)
	assert.False(t, cfg.API.MetricsEnabled)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpeg.Bin)
	assert.Equal(t, "/opt/ffmpeg/bin/ffprobe", cfg.FFmpeg.FFprobeBin, "env wins over default")
	assert.Equal(t, 12*time.Hour, cfg.Jobs.Retention, "env wins over file")
	assert.Equal(t, 2, cfg.Jobs.MaxConcurrentRenditions)
	assert.Equal(t, time.Duration(0), cfg.Jobs.StallTimeout)
	assert.Equal(t, "succeeded", cfg.Jobs.ManifestPolicy)

	assert.Contains(t, l.ConsumedEnvKeys, EnvRetention)
	assert.Contains(t, l.ConsumedEnvKeys, EnvManifestPolicy)
}

func TestLoad_MetricsEnabledFromEnv(t *testing.T) {
	t.Setenv(EnvMetricsEnabled, "no")
	l := NewLoader("", "")
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.False(t, cfg.API.MetricsEnabled)
	assert.Contains(t, l.ConsumedEnvKeys, EnvMetricsEnabled)
}

func TestLoad_RelativeDataDirIsMadeAbsolute(t *testing.T) {
	t.Setenv(EnvDataDir, "relative/data")
	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoad_StrictYAML(t *testing.T) {
	path := writeConfig(t, "jobs:\n  retentionn: 1h\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict config parse error")
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, ":8088", cfg.API.ListenAddr)
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}

func TestLoad_BadDurationInFile(t *testing.T) {
	path := writeConfig(t, "jobs:\n  reapInterval: hourly\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs.reapInterval")
}

func TestLoad_InvalidResultFailsValidation(t *testing.T) {
	t.Setenv(EnvManifestPolicy, "best-effort")
	_, err := NewLoader("", "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs.manifestPolicy")
}
