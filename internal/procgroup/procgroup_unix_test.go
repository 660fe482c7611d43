// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package procgroup

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKill_WholeGroup(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 10 & sleep 10")
	Set(cmd)
	require.NoError(t, cmd.Start())

	pid := cmd.Process.Pid
	time.Sleep(100 * time.Millisecond)

	pgid, err := syscall.Getpgid(pid)
	require.NoError(t, err)
	assert.Equal(t, pid, pgid, "process should be group leader")

	require.NoError(t, Kill(cmd, syscall.SIGKILL))
	assert.Error(t, cmd.Wait(), "killed process must report a non-nil exit")
}

func TestKill_NilAndFinished(t *testing.T) {
	assert.NoError(t, Kill(nil, syscall.SIGTERM))
	assert.NoError(t, Kill(&exec.Cmd{}, syscall.SIGTERM))

	cmd := exec.Command("true")
	Set(cmd)
	require.NoError(t, cmd.Run())
	assert.NoError(t, Kill(cmd, syscall.SIGTERM))
}

func TestSignal_TermThenKill(t *testing.T) {
	cmd := exec.Command("sh", "-c", "trap '' TERM; while true; do sleep 1; done")
	Set(cmd)
	require.NoError(t, cmd.Start())
	time.Sleep(100 * time.Millisecond)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	require.NoError(t, Signal(cmd, syscall.SIGTERM))
	select {
	case <-waitCh:
		t.Fatal("TERM is trapped, process must survive")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, Signal(cmd, syscall.SIGKILL))
	select {
	case err := <-waitCh:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("SIGKILL did not stop the group")
	}
}

func TestSignal_GracefulExit(t *testing.T) {
	cmd := exec.Command("sleep", "10")
	Set(cmd)
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	require.NoError(t, Signal(cmd, syscall.SIGTERM))
	select {
	case <-waitCh:
	case <-time.After(5 * time.Second):
		t.Fatal("sleep ignored SIGTERM")
	}
}
