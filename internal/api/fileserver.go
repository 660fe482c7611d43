// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/hlsladder/internal/fsutil"
	"github.com/ManuGH/hlsladder/internal/log"
	"github.com/ManuGH/hlsladder/internal/metrics"
)

// outputFileServer serves playlists and segments below root. The request path
// must already have the route prefix stripped.
func outputFileServer(root string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "api")

		deny := func(status int, reason string) {
			logger.Warn().
				Str(log.FieldEvent, "file_req.denied").
				Str("path", r.URL.Path).
				Str("reason", reason).
				Msg("file request denied")
			metrics.IncFileRequest(reason)
			http.Error(w, http.StatusText(status), status)
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			deny(http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}

		p := r.URL.Path
		if isPathTraversal(p) {
			deny(http.StatusForbidden, "path_escape")
			return
		}
		if p == "" || strings.HasSuffix(p, "/") {
			deny(http.StatusForbidden, "directory_listing")
			return
		}

		realPath, err := fsutil.ConfineRelPath(root, p)
		if err != nil {
			switch {
			case errors.Is(err, os.ErrNotExist):
				metrics.IncFileRequest("not_found")
				http.Error(w, "Not found", http.StatusNotFound)
			case errors.Is(err, fsutil.ErrEscapesRoot):
				deny(http.StatusForbidden, "path_escape")
			default:
				deny(http.StatusInternalServerError, "internal_error")
			}
			return
		}

		// #nosec G304 -- realPath is validated to reside inside root
		f, err := os.Open(realPath)
		if err != nil {
			deny(http.StatusInternalServerError, "internal_error")
			return
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Warn().Err(err).Str("path", realPath).Msg("failed to close file")
			}
		}()

		info, err := f.Stat()
		if err != nil {
			deny(http.StatusInternalServerError, "internal_error")
			return
		}
		if info.IsDir() {
			deny(http.StatusForbidden, "directory_listing")
			return
		}

		etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			metrics.IncFileRequest("not_modified")
			w.WriteHeader(http.StatusNotModified)
			return
		}

		switch strings.ToLower(filepath.Ext(info.Name())) {
		case ".m3u8":
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			// Playlists are rewritten while a job runs
			w.Header().Set("Cache-Control", "no-cache")
		case ".ts":
			w.Header().Set("Content-Type", "video/mp2t")
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}

		metrics.IncFileRequest("allowed")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// isPathTraversal decodes the input a few times to catch double encoding,
// applies Unicode normalization and looks for parent references and NULs.
func isPathTraversal(p string) bool {
	decoded := p
	for i := 0; i < 3; i++ {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		} else if d2, err2 := url.QueryUnescape(decoded); err2 == nil {
			decoded = d2
		}
		if decoded == prev {
			break
		}
	}

	lower := strings.ToLower(decoded)
	for _, pat := range []string{"..", "%00", "\x00", "%c0%ae", "%e0%80%ae"} {
		if strings.Contains(lower, pat) {
			return true
		}
	}

	normalized := strings.ToLower(norm.NFC.String(decoded))
	if strings.Contains(normalized, "..") {
		return true
	}
	// Fullwidth and one-dot-leader lookalikes
	return strings.ContainsAny(normalized, "．․／＼")
}

// validFileID accepts a single path element that is safe to join below the
// uploads and output roots.
func validFileID(id string) bool {
	if id == "" || len(id) > 255 {
		return false
	}
	if id != norm.NFC.String(id) {
		return false
	}
	if strings.ContainsAny(id, `/\`) || id == "." || isPathTraversal(id) {
		return false
	}
	return !strings.HasPrefix(id, ".")
}
