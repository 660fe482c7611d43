// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/hlsladder/internal/domain/transcode"
)

// BuildRenditionArgs converts a rendition spec into ffmpeg flags producing a
// finite HLS playlist with numbered MPEG-TS segments.
func BuildRenditionArgs(spec transcode.Spec) []string {
	p := spec.Profile
	segmentSec := strconv.Itoa(int(transcode.SegmentDuration.Seconds()))

	return []string{
		"-y", "-nostdin", "-hide_banner", "-loglevel", "error",
		"-progress", "pipe:1",
		"-i", spec.Input,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:v", p.VideoBitrate,
		"-b:a", p.AudioBitrate,
		"-vf", fmt.Sprintf("scale=%d:%d", p.Width, p.Height),
		"-preset", "fast",
		"-crf", "23",
		"-f", "hls",
		"-hls_time", segmentSec,
		// 0 keeps every segment: VOD, not a sliding window
		"-hls_list_size", "0",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(spec.OutputDir, transcode.SegmentPattern),
		"-hls_flags", "independent_segments",
		filepath.Join(spec.OutputDir, transcode.PlaylistName),
	}
}
