// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/log"
	"github.com/ManuGH/hlsladder/internal/metrics"
	"github.com/ManuGH/hlsladder/internal/procgroup"
	"github.com/rs/zerolog"
)

// Ensure Executor implements transcode.Runner
var _ transcode.Runner = (*Executor)(nil)

// Executor starts one ffmpeg process per rendition.
type Executor struct {
	BinaryPath string
	Logger     zerolog.Logger
}

func NewExecutor(binaryPath string, logger zerolog.Logger) *Executor {
	if binaryPath == "" {
		binaryPath = "ffmpeg"
	}
	return &Executor{
		BinaryPath: binaryPath,
		Logger:     logger,
	}
}

// Start launches ffmpeg for spec. The process is not bound to ctx; callers
// stop it through Handle.Stop so the whole process group is signalled.
func (e *Executor) Start(ctx context.Context, spec transcode.Spec) (transcode.Handle, error) {
	args := BuildRenditionArgs(spec)

	// #nosec G204 -- binary is operator-configured; args are built from the fixed ladder
	cmd := exec.Command(e.BinaryPath, args...)
	procgroup.Set(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		metrics.IncProcStart("error")
		return nil, fmt.Errorf("exec start failed: %w", err)
	}
	metrics.IncProcStart("ok")

	logger := log.WithContext(ctx, e.Logger)
	logger.Info().
		Str(log.FieldEvent, "ffmpeg.started").
		Str(log.FieldQuality, spec.Profile.Label).
		Int(log.FieldPID, cmd.Process.Pid).
		Str("command", cmd.String()).
		Msg("started encoder process")

	h := &handle{
		cmd:      cmd,
		total:    spec.SourceDuration,
		progress: make(chan transcode.ProgressEvent, 16),
		done:     make(chan struct{}),
		ring:     NewLineRing(100),
	}
	go h.monitor(stdout, stderr)

	return h, nil
}

type handle struct {
	cmd      *exec.Cmd
	total    time.Duration
	progress chan transcode.ProgressEvent
	ring     *LineRing

	done chan struct{} // closed once the process has been reaped
	err  error

	stopOnce sync.Once
}

func (h *handle) Wait() error {
	<-h.done
	return h.err
}

// Stop sends SIGTERM to the process group and SIGKILL after grace if the
// process is still running. Exit is observed via Wait().
func (h *handle) Stop(grace, kill time.Duration) error {
	var err error
	h.stopOnce.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}

		err = procgroup.Signal(h.cmd, syscall.SIGTERM)

		go func() {
			select {
			case <-h.done:
				return
			case <-time.After(grace):
			}
			_ = procgroup.Signal(h.cmd, syscall.SIGKILL)
			select {
			case <-h.done:
			case <-time.After(kill):
				logger := log.WithComponent("ffmpeg")
				logger.Error().
					Int(log.FieldPID, h.cmd.Process.Pid).
					Msg("encoder did not exit after SIGKILL")
			}
		}()
	})
	return err
}

func (h *handle) Progress() <-chan transcode.ProgressEvent {
	return h.progress
}

func (h *handle) Diagnostics() []string {
	return h.ring.Lines()
}

func (h *handle) monitor(stdout, stderr io.Reader) {
	var ioWg sync.WaitGroup
	ioWg.Add(2)

	go func() {
		defer ioWg.Done()
		parseProgress(stdout, func(p Progress) {
			ev := transcode.ProgressEvent{Percent: p.Percent(h.total), At: time.Now()}
			select {
			case h.progress <- ev:
			default:
				// A slow consumer only loses intermediate values
			}
		})
	}()

	go func() {
		defer ioWg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				h.ring.Add(line)
			}
		}
	}()

	// Pipes must be drained before Wait closes them
	ioWg.Wait()
	close(h.progress)

	err := h.cmd.Wait()
	if err != nil {
		metrics.IncProcWait("exit_nonzero")
		h.err = fmt.Errorf("ffmpeg exited: %w", err)
	} else {
		metrics.IncProcWait("exit0")
	}
	close(h.done)
}
