// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/fsutil"
	"github.com/ManuGH/hlsladder/internal/log"
)

const maxStartBody = 64 << 10

// StartRequest is the body of POST /api/transcode/start.
type StartRequest struct {
	FileID    string   `json:"fileId"`
	Qualities []string `json:"qualities,omitempty"`
}

// StartResponse acknowledges an accepted job.
type StartResponse struct {
	Message   string        `json:"message"`
	JobID     string        `json:"jobId"`
	FileID    string        `json:"fileId"`
	Qualities []string      `json:"qualities"`
	Status    domain.Status `json:"status"`
}

// JobsResponse lists every known job.
type JobsResponse struct {
	Jobs  []*domain.Job `json:"jobs"`
	Count int           `json:"count"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string      `json:"message"`
	Job     *domain.Job `json:"job,omitempty"`
}

// uploadDescriptor is written by the upload service next to the stored source.
type uploadDescriptor struct {
	Path string `json:"path"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxStartBody))
	if err := dec.Decode(&req); err != nil {
		writeProblem(w, r, http.StatusBadRequest, CodeValidation, "Validation Failed", "invalid JSON body", nil)
		return
	}
	if req.FileID == "" {
		writeProblem(w, r, http.StatusBadRequest, CodeValidation, "Validation Failed", "File ID is required", nil)
		return
	}
	if !validFileID(req.FileID) {
		writeProblem(w, r, http.StatusBadRequest, CodeValidation, "Validation Failed", "invalid file ID", nil)
		return
	}

	qualities := req.Qualities
	if len(qualities) == 0 {
		qualities = domain.Labels()
	}

	input, err := s.resolveUpload(req.FileID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	outputDir := filepath.Join(s.transcodedDir, req.FileID)
	jobID, err := s.svc.Submit(r.Context(), input, outputDir, qualities)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "api.job_started").
		Str(log.FieldJobID, jobID).
		Str(log.FieldFileID, req.FileID).
		Strs("qualities", qualities).
		Msg("transcode job accepted")

	writeJSON(w, http.StatusAccepted, StartResponse{
		Message:   "Transcoding started",
		JobID:     jobID,
		FileID:    req.FileID,
		Qualities: qualities,
		Status:    domain.StatusProcessing,
	})
}

// resolveUpload maps a file id to the stored source path via its descriptor.
func (s *Server) resolveUpload(fileID string) (string, error) {
	// #nosec G304 -- fileID is a validated single path element
	raw, err := os.ReadFile(filepath.Join(s.uploadsDir, fileID+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file %s: %w", fileID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("read upload descriptor: %w", err)
	}
	var desc uploadDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return "", fmt.Errorf("decode upload descriptor %s: %w", fileID, err)
	}
	if desc.Path == "" {
		return "", fmt.Errorf("upload descriptor %s has no path: %w", fileID, domain.ErrNotFound)
	}
	src := desc.Path
	if !filepath.IsAbs(src) {
		src = filepath.Join(s.uploadsDir, src)
	}
	if err := fsutil.IsRegularFile(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("source for %s: %w", fileID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("source for %s: %v: %w", fileID, err, domain.ErrValidation)
	}
	return src, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.GetStatus(chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := s.svc.ListJobs()
	if jobs == nil {
		jobs = []*domain.Job{}
	}
	writeJSON(w, http.StatusOK, JobsResponse{Jobs: jobs, Count: len(jobs)})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.Cancel(chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Job cancelled successfully", Job: job})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	s.svc.Remove(chi.URLParam(r, "jobId"))
	w.WriteHeader(http.StatusNoContent)
}
