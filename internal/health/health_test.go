// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(name string, s Status) Checker {
	return NewFuncChecker(name, func(context.Context) CheckResult { return CheckResult{Status: s} })
}

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_VerboseOnly(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(fixed("ok", StatusHealthy))
	m.RegisterChecker(fixed("slow", StatusDegraded))

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(fixed("slow", StatusDegraded))
	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)

	m.RegisterChecker(fixed("down", StatusUnhealthy))
	resp = m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("v1")
	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	m.RegisterChecker(fixed("down", StatusUnhealthy))
	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.Contains(t, body.Checks, "down")
}

func TestServeHealth_AlwaysOK(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(fixed("down", StatusUnhealthy))
	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	res := NewDirChecker("data", dir).Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be cleaned up")

	res = NewDirChecker("data", filepath.Join(dir, "missing")).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "directory not found", res.Error)

	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	res = NewDirChecker("data", file).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
}

func TestBinaryChecker(t *testing.T) {
	c := NewBinaryChecker("ffmpeg", "ffmpeg")
	c.look = func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "/usr/bin/ffmpeg", res.Message)

	c.look = func(string) (string, error) { return "", errors.New("executable file not found in $PATH") }
	res = c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
}
