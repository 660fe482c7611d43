// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/log"
	"github.com/ManuGH/hlsladder/internal/metrics"
)

// Ensure Prober implements transcode.Prober
var _ transcode.Prober = (*Prober)(nil)

// Prober implements transcode.Prober using ffprobe.
type Prober struct {
	BinaryPath string
}

func NewProber(binaryPath string) *Prober {
	if binaryPath == "" {
		binaryPath = "ffprobe"
	}
	return &Prober{BinaryPath: binaryPath}
}

const maxStderr = 4096

// Probe executes ffprobe and returns source metadata.
func (p *Prober) Probe(ctx context.Context, path string) (*transcode.SourceMetadata, error) {
	if _, err := os.Stat(path); err != nil {
		metrics.IncProbe("missing")
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: input %s", transcode.ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	// #nosec G204 -- binary is operator-configured; path is opaque
	cmd := exec.CommandContext(ctx, p.BinaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		metrics.IncProbe("error")
		errStr := stderr.String()
		if len(errStr) > maxStderr {
			errStr = errStr[:maxStderr] + "..."
		}
		return nil, fmt.Errorf("ffprobe failed: %w (stderr: %s)", err, errStr)
	}

	meta, err := parseProbeOutput(out)
	if err != nil {
		metrics.IncProbe("error")
		return nil, err
	}
	metrics.IncProbe("ok")

	logger := log.WithComponent("ffprobe")
	logger.Debug().
		Str(log.FieldPath, path).
		Float64("duration", meta.Duration).
		Msg("probed source")
	return meta, nil
}

type probeData struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	BitRate   string `json:"bit_rate"`
	Channels  int    `json:"channels"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// parseProbeOutput maps ffprobe JSON to SourceMetadata. The first video and
// first audio stream win; numeric fields ffprobe reports as strings are
// parsed leniently and stay zero when absent.
func parseProbeOutput(out []byte) (*transcode.SourceMetadata, error) {
	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	meta := &transcode.SourceMetadata{
		Duration: parseFloat(data.Format.Duration),
		Size:     parseInt(data.Format.Size),
		Bitrate:  parseInt(data.Format.BitRate),
	}

	for _, s := range data.Streams {
		switch s.CodecType {
		case "video":
			if meta.Video != nil {
				continue
			}
			meta.Video = &transcode.VideoStream{
				Width:   s.Width,
				Height:  s.Height,
				Codec:   s.CodecName,
				Bitrate: parseInt(s.BitRate),
			}
		case "audio":
			if meta.Audio != nil {
				continue
			}
			meta.Audio = &transcode.AudioStream{
				Codec:    s.CodecName,
				Bitrate:  parseInt(s.BitRate),
				Channels: s.Channels,
			}
		}
	}

	if meta.Video == nil && meta.Audio == nil {
		return nil, fmt.Errorf("ffprobe returned empty data (no playable streams)")
	}
	return meta, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
