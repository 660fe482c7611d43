// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// MediaPlaylist is what a rendition sub-manifest says about its segments.
type MediaPlaylist struct {
	TargetDuration time.Duration
	TotalDuration  time.Duration
	Segments       []string // segment URIs in playlist order
	IsVOD          bool     // #EXT-X-PLAYLIST-TYPE:VOD or #EXT-X-ENDLIST
}

// ParseMediaPlaylist reads a media playlist and sums its EXTINF durations.
func ParseMediaPlaylist(r io.Reader) (*MediaPlaylist, error) {
	scanner := bufio.NewScanner(r)
	pl := &MediaPlaylist{}

	var (
		nextDuration time.Duration
		sawHeader    bool
		hasEndList   bool
		hasTypeVOD   bool
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "#EXTM3U":
			sawHeader = true
		case strings.HasPrefix(line, "#EXT-X-PLAYLIST-TYPE:"):
			hasTypeVOD = strings.TrimPrefix(line, "#EXT-X-PLAYLIST-TYPE:") == "VOD"
		case line == "#EXT-X-ENDLIST":
			hasEndList = true
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			v := strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:")
			secs, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid target duration: %s", v)
			}
			pl.TargetDuration = time.Duration(secs) * time.Second
		case strings.HasPrefix(line, "#EXTINF:"):
			// Format: #EXTINF:10.000000,
			durPart := strings.TrimPrefix(line, "#EXTINF:")
			if idx := strings.Index(durPart, ","); idx != -1 {
				durPart = durPart[:idx]
			}
			secs, err := strconv.ParseFloat(durPart, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid EXTINF duration: %s", durPart)
			}
			nextDuration = time.Duration(secs * float64(time.Second))
		case strings.HasPrefix(line, "#"):
			// other tags are irrelevant here
		default:
			pl.Segments = append(pl.Segments, line)
			pl.TotalDuration += nextDuration
			nextDuration = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("missing #EXTM3U header")
	}

	pl.IsVOD = hasTypeVOD || hasEndList
	return pl, nil
}

// ReadMediaPlaylist parses the playlist at path.
func ReadMediaPlaylist(path string) (*MediaPlaylist, error) {
	// #nosec G304 -- path is built from the job's own output directory
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseMediaPlaylist(f)
}
