// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/hlsladder/internal/config"
	"github.com/ManuGH/hlsladder/internal/control/transcode"
	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
)

// blockingRunner starts encodes that only end when stopped.
type blockingRunner struct {
	mu      sync.Mutex
	started int
}

func (r *blockingRunner) Start(_ context.Context, _ domain.Spec) (domain.Handle, error) {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()
	return &blockingHandle{progress: make(chan domain.ProgressEvent), done: make(chan struct{})}, nil
}

func (r *blockingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

type blockingHandle struct {
	once     sync.Once
	progress chan domain.ProgressEvent
	done     chan struct{}
}

func (h *blockingHandle) Wait() error {
	<-h.done
	return errors.New("signal: terminated")
}

func (h *blockingHandle) Stop(time.Duration, time.Duration) error {
	h.once.Do(func() {
		close(h.progress)
		close(h.done)
	})
	return nil
}

func (h *blockingHandle) Progress() <-chan domain.ProgressEvent { return h.progress }
func (h *blockingHandle) Diagnostics() []string                 { return nil }

type staticProber struct{}

func (staticProber) Probe(context.Context, string) (*domain.SourceMetadata, error) {
	return &domain.SourceMetadata{Duration: 30}, nil
}

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	return config.AppConfig{
		Version:  "test",
		DataDir:  t.TempDir(),
		LogLevel: "info",
		API:      config.APIConfig{ListenAddr: "127.0.0.1:0", RateLimit: 0, RateWindow: time.Minute},
		FFmpeg:   config.FFmpegConfig{Bin: "ffmpeg", FFprobeBin: "ffprobe"},
		Jobs: config.JobsConfig{
			Retention:      time.Hour,
			ReapInterval:   time.Hour,
			StallTimeout:   time.Minute,
			ManifestPolicy: "all",
		},
	}
}

func TestNewApp_MissingDeps(t *testing.T) {
	_, err := NewApp(Deps{})
	assert.ErrorIs(t, err, ErrMissingHandler)

	_, err = NewApp(Deps{Handler: http.NotFoundHandler()})
	assert.ErrorIs(t, err, ErrMissingOrchestrator)
}

func TestBootstrap_InvalidPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Jobs.ManifestPolicy = "some"
	_, err := Bootstrap(cfg, nil, Encoders{Runner: &blockingRunner{}, Prober: staticProber{}})
	require.Error(t, err)
}

func TestApp_ServesAndCancelsJobsOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t)
	runner := &blockingRunner{}
	app, err := Bootstrap(cfg, nil, Encoders{Runner: runner, Prober: staticProber{}})
	require.NoError(t, err)

	for _, dir := range []string{cfg.UploadsDir(), cfg.TranscodedDir()} {
		_, err := os.Stat(dir)
		require.NoError(t, err)
	}
	src := filepath.Join(cfg.UploadsDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.UploadsDir(), "clip.json"), []byte(`{"path":"clip.mp4"}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- app.Run(ctx) }()

	select {
	case <-app.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("app never became ready")
	}
	base := "http://" + app.Addr()
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(base + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Post(base+"/api/transcode/start", "application/json",
		bytes.NewBufferString(`{"fileId":"clip","qualities":["320p","480p"]}`))
	require.NoError(t, err)
	var started struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	_ = resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, started.JobID)

	require.Eventually(t, func() bool { return runner.count() == 2 }, 2*time.Second, 5*time.Millisecond)

	client.CloseIdleConnections()
	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}

	_, err = os.Stat(filepath.Join(cfg.TranscodedDir(), "clip", "master.m3u8"))
	assert.True(t, os.IsNotExist(err), "cancelled job must not write a master")
}

func TestApp_RunTwice(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	app, err := Bootstrap(testConfig(t), nil, Encoders{Runner: &blockingRunner{}, Prober: staticProber{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- app.Run(ctx) }()
	<-app.Ready()

	assert.ErrorIs(t, app.Run(ctx), ErrAlreadyRunning)
	cancel()
	require.NoError(t, <-runErr)
}

func TestApp_ListenFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.ListenAddr = "256.0.0.1:99999"
	app, err := Bootstrap(cfg, nil, Encoders{Runner: &blockingRunner{}, Prober: staticProber{}})
	require.NoError(t, err)
	assert.Error(t, app.Run(context.Background()))
}

func TestApplyConfig(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	orch := transcode.NewOrchestrator(transcode.Config{Runner: &blockingRunner{}, Prober: staticProber{}})
	reaper := transcode.NewReaper(orch.Registry(), transcode.RealClock{}, time.Hour, time.Hour)
	app, err := NewApp(Deps{
		Logger:       zerolog.Nop(),
		Handler:      http.NotFoundHandler(),
		Orchestrator: orch,
		Reaper:       reaper,
	})
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.LogLevel = "debug"
	cfg.Jobs.Retention = 2 * time.Hour
	cfg.Jobs.ManifestPolicy = "succeeded"
	app.ApplyConfig(cfg)

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Equal(t, 2*time.Hour, reaper.Retention())
	assert.Equal(t, transcode.ManifestSucceeded, orch.ManifestPolicy())

	// Invalid values keep the running settings
	cfg.LogLevel = "loud"
	cfg.Jobs.Retention = 0
	cfg.Jobs.ManifestPolicy = "some"
	app.ApplyConfig(cfg)

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Equal(t, 2*time.Hour, reaper.Retention())
	assert.Equal(t, transcode.ManifestSucceeded, orch.ManifestPolicy())
}
