// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/renameio/v2"
)

// MasterFilename is the top-level adaptive manifest name inside a job's output directory.
const MasterFilename = "master.m3u8"

// Variant is one #EXT-X-STREAM-INF entry of a master playlist.
type Variant struct {
	Bandwidth  int    // bits per second
	Resolution string // WxH
	URI        string // relative sub-manifest reference
}

// RenderMaster renders a version 3 master playlist with variants in the given order.
func RenderMaster(variants []Variant) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n\n")
	for _, v := range variants {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n", v.Bandwidth, v.Resolution)
		b.WriteString(v.URI)
		b.WriteString("\n")
	}
	return b.String()
}

// WriteMaster writes the master playlist durably: temp file, fsync, rename.
// Players never observe a half-written manifest.
func WriteMaster(path string, variants []Variant) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending master playlist: %w", err)
	}
	// Cleanup is a no-op once committed
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := io.WriteString(pendingFile, RenderMaster(variants)); err != nil {
		return fmt.Errorf("write master playlist: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace master playlist: %w", err)
	}
	return nil
}
