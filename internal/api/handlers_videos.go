// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/fsutil"
	"github.com/ManuGH/hlsladder/internal/hls"
	"github.com/ManuGH/hlsladder/internal/log"
	"github.com/ManuGH/hlsladder/internal/metrics"
)

// QualityInfo summarizes one rendition directory on disk.
type QualityInfo struct {
	PlaylistURL string `json:"playlistUrl"`
	TotalSize   int64  `json:"totalSize"`
	FileCount   int    `json:"fileCount"`
}

// VideoInfo describes a finished output tree.
type VideoInfo struct {
	FileID            string                 `json:"fileId"`
	MasterPlaylistURL string                 `json:"masterPlaylistUrl"`
	Qualities         []string               `json:"qualities"`
	QualityInfo       map[string]QualityInfo `json:"qualityInfo"`
	TranscodedAt      time.Time              `json:"transcodedAt"`
}

// VideoSummary is one entry of the video listing.
type VideoSummary struct {
	FileID            string    `json:"fileId"`
	MasterPlaylistURL string    `json:"masterPlaylistUrl"`
	TranscodedAt      time.Time `json:"transcodedAt"`
}

// VideosResponse lists every output tree that has a master playlist.
type VideosResponse struct {
	Videos []VideoSummary `json:"videos"`
	Count  int            `json:"count"`
}

func masterURL(fileID string) string {
	return path.Join("/videos", fileID, hls.MasterFilename)
}

func (s *Server) videoParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "fileId")
	if !validFileID(id) {
		writeProblem(w, r, http.StatusBadRequest, CodeValidation, "Validation Failed", "invalid file ID", nil)
		return "", false
	}
	return id, true
}

func (s *Server) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	fileID, ok := s.videoParam(w, r)
	if !ok {
		return
	}
	dir := filepath.Join(s.transcodedDir, fileID)
	master, err := os.Stat(filepath.Join(dir, hls.MasterFilename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, r, fmt.Errorf("transcoded video %s: %w", fileID, domain.ErrNotFound))
			return
		}
		writeError(w, r, err)
		return
	}

	info := VideoInfo{
		FileID:            fileID,
		MasterPlaylistURL: masterURL(fileID),
		Qualities:         []string{},
		QualityInfo:       map[string]QualityInfo{},
		TranscodedAt:      master.ModTime().UTC(),
	}
	// Ladder order, and only directories that hold a sub-manifest
	for _, q := range domain.Labels() {
		qdir := filepath.Join(dir, q)
		if _, err := os.Stat(filepath.Join(qdir, domain.PlaylistName)); err != nil {
			continue
		}
		size, count, err := dirUsage(qdir)
		if err != nil {
			writeError(w, r, err)
			return
		}
		info.Qualities = append(info.Qualities, q)
		info.QualityInfo[q] = QualityInfo{
			PlaylistURL: path.Join("/videos", fileID, q, domain.PlaylistName),
			TotalSize:   size,
			FileCount:   count,
		}
	}
	writeJSON(w, http.StatusOK, info)
}

// dirUsage sums regular files directly inside dir.
func dirUsage(dir string) (int64, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", dir, err)
	}
	var (
		total int64
		count int
	)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, 0, err
		}
		total += fi.Size()
		count++
	}
	return total, count, nil
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	resp := VideosResponse{Videos: []VideoSummary{}}
	entries, err := os.ReadDir(s.transcodedDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		writeError(w, r, err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		master, err := os.Stat(filepath.Join(s.transcodedDir, e.Name(), hls.MasterFilename))
		if err != nil {
			continue
		}
		resp.Videos = append(resp.Videos, VideoSummary{
			FileID:            e.Name(),
			MasterPlaylistURL: masterURL(e.Name()),
			TranscodedAt:      master.ModTime().UTC(),
		})
	}
	sort.Slice(resp.Videos, func(i, j int) bool {
		return resp.Videos[i].TranscodedAt.After(resp.Videos[j].TranscodedAt)
	})
	resp.Count = len(resp.Videos)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	fileID, ok := s.videoParam(w, r)
	if !ok {
		return
	}
	dir, err := fsutil.ConfineRelPath(s.transcodedDir, fileID)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			writeError(w, r, fmt.Errorf("transcoded video %s: %w", fileID, domain.ErrNotFound))
		case errors.Is(err, fsutil.ErrEscapesRoot):
			writeProblem(w, r, http.StatusBadRequest, CodeValidation, "Validation Failed", "invalid file ID", nil)
		default:
			writeError(w, r, err)
		}
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		writeError(w, r, fmt.Errorf("remove %s: %w", dir, err))
		return
	}

	metrics.IncVideoDeleted()
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "api.video_deleted").
		Str(log.FieldFileID, fileID).
		Str(log.FieldOutputDir, dir).
		Msg("transcoded video deleted")

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Transcoded video deleted successfully"})
}
