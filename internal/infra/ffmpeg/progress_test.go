// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgress_Blocks(t *testing.T) {
	input := strings.Join([]string{
		"frame=10",
		"out_time_us=2500000",
		"total_size=1024",
		"speed=1.5x",
		"progress=continue",
		"frame=40",
		"out_time_ms=7500000",
		"progress=continue",
		"garbage line",
		"out_time_us=N/A",
		"progress=end",
		"",
	}, "\n")

	var got []Progress
	parseProgress(strings.NewReader(input), func(p Progress) { got = append(got, p) })

	require.Len(t, got, 3)
	assert.Equal(t, Progress{Frame: 10, OutTimeUs: 2500000, TotalSize: 1024, Speed: "1.5x"}, got[0])
	assert.Equal(t, 40, got[1].Frame)
	assert.Equal(t, int64(7500000), got[1].OutTimeUs)
	assert.False(t, got[1].Ended)
	// N/A keeps the last known value
	assert.Equal(t, int64(7500000), got[2].OutTimeUs)
	assert.True(t, got[2].Ended)
}

func TestProgressPercent(t *testing.T) {
	total := 10 * time.Second
	tests := []struct {
		name  string
		p     Progress
		total time.Duration
		want  int
	}{
		{"unknown duration", Progress{OutTimeUs: 5_000_000}, 0, 0},
		{"no output yet", Progress{}, total, 0},
		{"half", Progress{OutTimeUs: 5_000_000}, total, 50},
		{"rounds", Progress{OutTimeUs: 3_333_333}, total, 33},
		{"rounds up", Progress{OutTimeUs: 6_666_666}, total, 67},
		{"clamped", Progress{OutTimeUs: 12_000_000}, total, 100},
		{"end wins", Progress{Ended: true}, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Percent(tt.total))
		})
	}
}
