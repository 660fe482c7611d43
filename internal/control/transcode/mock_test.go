// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/stretchr/testify/require"
)

// mockRunner implements domain.Runner with one controllable handle per quality.
type mockRunner struct {
	mu       sync.Mutex
	startErr map[string]error
	handles  map[string]*mockHandle
	starts   int
}

func newMockRunner() *mockRunner {
	return &mockRunner{
		startErr: make(map[string]error),
		handles:  make(map[string]*mockHandle),
	}
}

func (r *mockRunner) failStart(quality string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startErr[quality] = err
}

func (r *mockRunner) Start(ctx context.Context, spec domain.Spec) (domain.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	if err := r.startErr[spec.Profile.Label]; err != nil {
		return nil, err
	}
	h := &mockHandle{
		spec:     spec,
		progress: make(chan domain.ProgressEvent, 16),
		done:     make(chan struct{}),
	}
	r.handles[spec.Profile.Label] = h
	return h, nil
}

func (r *mockRunner) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *mockRunner) lookup(quality string) *mockHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[quality]
}

// waitHandle blocks until the encoder for quality has been started.
func (r *mockRunner) waitHandle(t *testing.T, quality string) *mockHandle {
	t.Helper()
	var h *mockHandle
	require.Eventually(t, func() bool {
		h = r.lookup(quality)
		return h != nil
	}, 2*time.Second, time.Millisecond, "encoder for %s never started", quality)
	return h
}

type stopCall struct {
	Grace time.Duration
	Kill  time.Duration
}

// mockHandle implements domain.Handle. Tests drive it with send, succeed and fail.
type mockHandle struct {
	spec     domain.Spec
	progress chan domain.ProgressEvent

	once sync.Once
	done chan struct{}
	err  error

	mu        sync.Mutex
	diag      []string
	stopCalls []stopCall
}

func (h *mockHandle) Wait() error {
	<-h.done
	return h.err
}

func (h *mockHandle) Stop(grace, kill time.Duration) error {
	h.mu.Lock()
	h.stopCalls = append(h.stopCalls, stopCall{Grace: grace, Kill: kill})
	h.mu.Unlock()
	h.exit(errors.New("signal: terminated"))
	return nil
}

func (h *mockHandle) Progress() <-chan domain.ProgressEvent { return h.progress }

func (h *mockHandle) Diagnostics() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.diag...)
}

func (h *mockHandle) exit(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

func (h *mockHandle) send(percent int) {
	h.progress <- domain.ProgressEvent{Percent: percent, At: time.Now()}
}

// succeed writes a two-segment VOD playlist into the rendition dir and exits 0.
func (h *mockHandle) succeed(t *testing.T) {
	t.Helper()
	writeRendition(t, h.spec.OutputDir, true)
	h.exit(nil)
}

func (h *mockHandle) fail(line string) {
	h.mu.Lock()
	h.diag = append(h.diag, line)
	h.mu.Unlock()
	h.exit(errors.New("exit status 1"))
}

func (h *mockHandle) stops() []stopCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]stopCall(nil), h.stopCalls...)
}

func writeRendition(t *testing.T, dir string, vod bool) {
	t.Helper()
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXT-X-MEDIA-SEQUENCE:0\n")
	for i, d := range []string{"10.000000", "4.500000"} {
		name := fmt.Sprintf("segment_%03d.ts", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("ts"), 0o644))
		fmt.Fprintf(&b, "#EXTINF:%s,\n%s\n", d, name)
	}
	if vod {
		b.WriteString("#EXT-X-ENDLIST\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.PlaylistName), []byte(b.String()), 0o644))
}

// mockProber returns fixed metadata or an error.
type mockProber struct {
	meta *domain.SourceMetadata
	err  error
}

func (p *mockProber) Probe(ctx context.Context, path string) (*domain.SourceMetadata, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.meta != nil {
		return p.meta, nil
	}
	return &domain.SourceMetadata{
		Duration: 14.5,
		Size:     1 << 20,
		Bitrate:  800000,
		Video:    &domain.VideoStream{Width: 1920, Height: 1080, Codec: "h264"},
		Audio:    &domain.AudioStream{Codec: "aac", Channels: 2},
	}, nil
}

// eventLog collects worker events.
type eventLog struct {
	mu     sync.Mutex
	events []RenditionEvent
}

func (l *eventLog) emit(ev RenditionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (l *eventLog) last() RenditionEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}
