// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	domain "github.com/ManuGH/hlsladder/internal/domain/transcode"
	"github.com/ManuGH/hlsladder/internal/log"
)

// Stable problem codes.
const (
	CodeValidation  = "VALIDATION_FAILED"
	CodeNotFound    = "NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodeUnavailable = "UNAVAILABLE"
	CodeInternal    = "INTERNAL"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Status    int            `json:"status"`
	Code      string         `json:"code"`
	Detail    string         `json:"detail,omitempty"`
	Instance  string         `json:"instance,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// writeProblem writes an RFC 7807 response and adds the request id.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, code, title, detail string, extra map[string]any) {
	p := Problem{
		Type:      "about:blank",
		Title:     title,
		Status:    status,
		Code:      code,
		Detail:    detail,
		Instance:  r.URL.Path,
		RequestID: log.RequestIDFromContext(r.Context()),
		Extra:     extra,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

// writeError maps domain errors to problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		extra := map[string]any{"validQualities": verr.Valid}
		if len(verr.Invalid) > 0 {
			extra["invalidQualities"] = verr.Invalid
		}
		writeProblem(w, r, http.StatusBadRequest, CodeValidation, "Validation Failed", verr.Error(), extra)
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, r, http.StatusBadRequest, CodeValidation, "Validation Failed", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, r, http.StatusNotFound, CodeNotFound, "Not Found", err.Error(), nil)
	case errors.Is(err, domain.ErrTerminal):
		writeProblem(w, r, http.StatusConflict, CodeConflict, "Conflict", "Cannot cancel completed or failed job", nil)
	case errors.Is(err, domain.ErrUnavailable):
		writeProblem(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Service Unavailable", err.Error(), nil)
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "api.internal_error").
			Str("path", r.URL.Path).
			Msg("request failed")
		writeProblem(w, r, http.StatusInternalServerError, CodeInternal, "Internal Server Error", "", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
