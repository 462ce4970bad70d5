package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/repoapi"
	"github.com/incgraph/incgraph/internal/snapshot"
)

// apiError is the error half of the JSON envelope every failure returns.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRoots answers with the loaded snapshot's roots, falling back to the
// configured ones before the first crawl.
func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	roots := s.roots
	if snap := s.Snapshot(); snap != nil {
		roots = snap.RootDirectories
	}
	if roots == nil {
		roots = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"rootDirectories": roots})
}

func (s *Server) handleGraphs(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	if snap == nil {
		writeError(w, http.StatusNotFound, "no_snapshot", "no snapshot loaded; POST /api/crawl to build one")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleTree serves one directory's graph: from the snapshot when the
// directory is there, otherwise analyzed live. The empty path is the
// repository root.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	dir := crawl.NormalizePath(r.URL.Query().Get("path"))

	if snap := s.Snapshot(); snap != nil {
		if dg, ok := snap.Graphs[dir]; ok {
			writeJSON(w, http.StatusOK, dg)
			return
		}
	}

	res, err := s.crawler.Analyze(r.Context(), dir)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot.DirectoryGraph{
		Graph:          res.Graph,
		Subdirectories: res.Subdirectories,
	})
}

type crawlRequest struct {
	Roots []string `json:"roots,omitempty"`
}

// handleCrawl starts a background tree crawl. Only one runs at a time.
func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body: "+err.Error())
		return
	}

	roots := s.roots
	if len(req.Roots) > 0 {
		roots = req.Roots
	}
	if len(roots) == 0 {
		roots = []string{""}
	}

	if !s.beginCrawl() {
		writeError(w, http.StatusConflict, "crawl_running", "a crawl is already running")
		return
	}
	go s.runCrawl(roots)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "started",
		"roots":  roots,
	})
}

// withCORS adds permissive CORS headers; the front end is served from a
// different origin during development.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARNING: server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

// writeAPIError maps crawl and repository errors onto the envelope.
func writeAPIError(w http.ResponseWriter, err error) {
	var rl *repoapi.RateLimitError
	switch {
	case repoapi.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &rl):
		if secs := int(time.Until(rl.Reset).Seconds()) + 1; !rl.Reset.IsZero() && secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	default:
		var te *repoapi.TransportError
		if errors.As(err, &te) {
			writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
