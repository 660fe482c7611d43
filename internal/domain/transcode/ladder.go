// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"fmt"
	"strconv"
	"strings"
)

// Profile is one entry of the fixed quality ladder.
type Profile struct {
	Label        string
	Width        int
	Height       int
	VideoBitrate string // ffmpeg notation, e.g. "500k"
	AudioBitrate string
}

// Resolution renders WxH.
func (p Profile) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// Bandwidth returns the advertised bits per second: the numeric part of the
// video bitrate (kilobits) times 1000.
func (p Profile) Bandwidth() int {
	return kilobits(p.VideoBitrate) * 1000
}

func kilobits(v string) int {
	digits := strings.TrimRightFunc(strings.TrimSpace(v), func(r rune) bool {
		return r < '0' || r > '9'
	})
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

var ladder = []Profile{
	{Label: "320p", Width: 568, Height: 320, VideoBitrate: "500k", AudioBitrate: "64k"},
	{Label: "480p", Width: 854, Height: 480, VideoBitrate: "1000k", AudioBitrate: "96k"},
	{Label: "720p", Width: 1280, Height: 720, VideoBitrate: "2500k", AudioBitrate: "128k"},
	{Label: "1080p", Width: 1920, Height: 1080, VideoBitrate: "5000k", AudioBitrate: "192k"},
}

// Ladder returns a copy of the supported profiles, lowest first.
func Ladder() []Profile {
	out := make([]Profile, len(ladder))
	copy(out, ladder)
	return out
}

// Labels returns the supported quality labels, lowest first.
func Labels() []string {
	out := make([]string, 0, len(ladder))
	for _, p := range ladder {
		out = append(out, p.Label)
	}
	return out
}

// LookupProfile finds a ladder entry by label.
func LookupProfile(label string) (Profile, bool) {
	for _, p := range ladder {
		if p.Label == label {
			return p, true
		}
	}
	return Profile{}, false
}

// ValidateQualities checks a requested quality list against the ladder.
// Each label may appear once since every quality owns its output directory.
func ValidateQualities(qualities []string) error {
	if len(qualities) == 0 {
		return &ValidationError{Reason: "at least one quality must be specified", Valid: Labels()}
	}
	var invalid, dup []string
	seen := make(map[string]bool, len(qualities))
	for _, q := range qualities {
		if _, ok := LookupProfile(q); !ok {
			invalid = append(invalid, q)
			continue
		}
		if seen[q] {
			dup = append(dup, q)
		}
		seen[q] = true
	}
	if len(invalid) > 0 {
		return &ValidationError{Reason: "invalid qualities specified", Invalid: invalid, Valid: Labels()}
	}
	if len(dup) > 0 {
		return &ValidationError{Reason: "duplicate qualities specified", Invalid: dup, Valid: Labels()}
	}
	return nil
}
