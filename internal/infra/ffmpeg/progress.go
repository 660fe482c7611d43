// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Progress is one flushed block of `-progress` key=value output.
type Progress struct {
	Frame     int
	OutTimeUs int64
	TotalSize int64
	Speed     string
	Ended     bool // progress=end
}

// Percent converts encoded media time into completion of a source of the given
// duration, rounded and clamped to [0,100]. Unknown duration yields 0.
func (p Progress) Percent(total time.Duration) int {
	if p.Ended {
		return 100
	}
	if total <= 0 || p.OutTimeUs <= 0 {
		return 0
	}
	pct := math.Round(float64(p.OutTimeUs) / float64(total.Microseconds()) * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// parseProgress reads key=value lines from r and emits one Progress per
// `progress=` flush line. It returns when r is exhausted.
func parseProgress(r io.Reader, emit func(Progress)) {
	scanner := bufio.NewScanner(r)
	var current Progress

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)

		switch key {
		case "frame":
			if v, err := strconv.Atoi(val); err == nil {
				current.Frame = v
			}
		// out_time_ms is microseconds as well (historic ffmpeg naming)
		case "out_time_us", "out_time_ms":
			if v, err := strconv.ParseInt(val, 10, 64); err == nil {
				current.OutTimeUs = v
			}
		case "total_size":
			if v, err := strconv.ParseInt(val, 10, 64); err == nil {
				current.TotalSize = v
			}
		case "speed":
			current.Speed = val
		case "progress":
			current.Ended = val == "end"
			emit(current)
		}
	}
}
