// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"context"
	"testing"
	"time"

	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func finishedJob(t *testing.T, reg *Registry, clock *MockClock, status domain.Status, endedAgo time.Duration) string {
	t.Helper()
	job, err := reg.Create("/in.mp4", "/out", []string{"320p"})
	require.NoError(t, err)
	// Finalize stamps clock.Now(); rewind first so endedAt lands endedAgo in the past
	clock.mu.Lock()
	clock.now = clock.now.Add(-endedAgo)
	clock.mu.Unlock()
	_, ok := reg.Finalize(job.ID, status)
	require.True(t, ok)
	clock.Advance(endedAgo)
	return job.ID
}

func TestReaper_Sweep(t *testing.T) {
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	reg := NewRegistry(clock)
	reaper := NewReaper(reg, clock, time.Hour, 24*time.Hour)

	expired := finishedJob(t, reg, clock, domain.StatusCompleted, 25*time.Hour)
	fresh := finishedJob(t, reg, clock, domain.StatusCompleted, time.Hour)
	oldFailed := finishedJob(t, reg, clock, domain.StatusFailed, 30*24*time.Hour)
	oldCancelled := finishedJob(t, reg, clock, domain.StatusCancelled, 48*time.Hour)
	running, err := reg.Create("/in.mp4", "/out", []string{"480p"})
	require.NoError(t, err)

	removed := reaper.Sweep(clock.Now())
	assert.Equal(t, 1, removed)

	_, err = reg.Get(expired)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	for _, id := range []string{fresh, oldFailed, oldCancelled, running.ID} {
		_, err := reg.Get(id)
		assert.NoError(t, err, id)
	}

	// Nothing left to expire
	assert.Zero(t, reaper.Sweep(clock.Now()))
}

func TestReaper_SetRetention(t *testing.T) {
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	reg := NewRegistry(clock)
	reaper := NewReaper(reg, clock, 0, 0)
	assert.Equal(t, DefaultRetention, reaper.Retention())

	id := finishedJob(t, reg, clock, domain.StatusCompleted, 2*time.Hour)
	assert.Zero(t, reaper.Sweep(clock.Now()))

	reaper.SetRetention(time.Hour)
	assert.Equal(t, 1, reaper.Sweep(clock.Now()))
	_, err := reg.Get(id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReaper_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	reg := NewRegistry(clock)
	id := finishedJob(t, reg, clock, domain.StatusCompleted, 48*time.Hour)
	reaper := NewReaper(reg, clock, 5*time.Millisecond, 24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reaper.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := reg.Get(id)
		return err != nil
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
