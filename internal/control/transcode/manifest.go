// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"fmt"
	"path"
	"path/filepath"

	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/hls"
	"github.com/ManuGH/hlsladder/internal/metrics"
)

// ManifestPolicy selects which renditions the master manifest lists.
type ManifestPolicy string

const (
	// ManifestAll lists every requested quality, failed ones included.
	ManifestAll ManifestPolicy = "all"
	// ManifestSucceeded lists only renditions that completed.
	ManifestSucceeded ManifestPolicy = "succeeded"
)

// ParseManifestPolicy accepts "all", "succeeded" or "" (all).
func ParseManifestPolicy(s string) (ManifestPolicy, error) {
	switch ManifestPolicy(s) {
	case "", ManifestAll:
		return ManifestAll, nil
	case ManifestSucceeded:
		return ManifestSucceeded, nil
	}
	return "", fmt.Errorf("unknown manifest policy %q (want %q or %q)", s, ManifestAll, ManifestSucceeded)
}

// MasterVariants lists the job's qualities in submitted order as master
// manifest entries, filtered by policy.
func MasterVariants(job *domain.Job, policy ManifestPolicy) []hls.Variant {
	variants := make([]hls.Variant, 0, len(job.Qualities))
	for _, q := range job.Qualities {
		if policy == ManifestSucceeded && job.Renditions[q].Status != domain.StatusCompleted {
			continue
		}
		p, ok := domain.LookupProfile(q)
		if !ok {
			continue
		}
		variants = append(variants, hls.Variant{
			Bandwidth:  p.Bandwidth(),
			Resolution: p.Resolution(),
			URI:        path.Join(q, domain.PlaylistName),
		})
	}
	return variants
}

// writeMaster synthesizes <outputDir>/master.m3u8. An empty variant list is
// not written.
func writeMaster(job *domain.Job, policy ManifestPolicy) (string, error) {
	variants := MasterVariants(job, policy)
	if len(variants) == 0 {
		metrics.IncManifestWrite("skipped")
		return "", nil
	}
	target := filepath.Join(job.OutputDir, hls.MasterFilename)
	if err := hls.WriteMaster(target, variants); err != nil {
		metrics.IncManifestWrite("error")
		return "", err
	}
	metrics.IncManifestWrite("ok")
	return target, nil
}
