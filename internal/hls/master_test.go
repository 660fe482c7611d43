// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMaster_BitExact(t *testing.T) {
	got := RenderMaster([]Variant{
		{Bandwidth: 500000, Resolution: "568x320", URI: "320p/playlist.m3u8"},
		{Bandwidth: 2500000, Resolution: "1280x720", URI: "720p/playlist.m3u8"},
	})
	want := "#EXTM3U\n#EXT-X-VERSION:3\n\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=500000,RESOLUTION=568x320\n320p/playlist.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2500000,RESOLUTION=1280x720\n720p/playlist.m3u8\n"
	assert.Equal(t, want, got)
}

func TestRenderMaster_Empty(t *testing.T) {
	assert.Equal(t, "#EXTM3U\n#EXT-X-VERSION:3\n\n", RenderMaster(nil))
}

func TestWriteMaster_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MasterFilename)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	v := []Variant{{Bandwidth: 1000000, Resolution: "854x480", URI: "480p/playlist.m3u8"}}
	require.NoError(t, WriteMaster(path, v))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, RenderMaster(v), string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteMaster_MissingDir(t *testing.T) {
	err := WriteMaster(filepath.Join(t.TempDir(), "nope", MasterFilename), nil)
	assert.Error(t, err)
}
