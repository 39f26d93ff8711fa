// Package server exposes extraction over HTTP for the admin tooling.
//
// Routes:
//
//	POST /extract   run one extraction and save the result
//	GET  /robots    robots.txt decision for ?url=
//	GET  /results   saved result files, newest first
//	GET  /healthz   liveness
//	GET  /metrics   Prometheus collectors
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/locate918/eventengine/internal/event"
	"github.com/locate918/eventengine/internal/extract"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/robots"
	"github.com/locate918/eventengine/internal/storage"
)

// Extractor runs one extraction job.
type Extractor interface {
	Run(ctx context.Context, job extract.Job) (*extract.Result, error)
}

// RobotsChecker answers robots.txt questions.
type RobotsChecker interface {
	CheckAllowed(ctx context.Context, rawURL string) robots.Decision
}

// ResultStore persists extraction results.
type ResultStore interface {
	SaveResult(source string, events []*event.Event, at time.Time) (string, error)
	SaveHTML(source, html string, at time.Time) (string, error)
	ListResults() ([]storage.FileInfo, error)
}

// Backend is the set of components one configuration produces. The server
// swaps it as a whole when the configuration is reloaded.
type Backend struct {
	Extractor Extractor
	Robots    RobotsChecker
	Store     ResultStore
	// FutureOnly is used when a request does not say.
	FutureOnly bool
	SaveHTML   bool
}

// Server holds the HTTP routes.
type Server struct {
	mu      sync.RWMutex
	backend Backend
	handler http.Handler
	now     func() time.Time
}

// New creates a Server and registers all routes.
func New(b Backend) *Server {
	s := &Server{backend: b, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("GET /robots", s.handleRobots)
	mux.HandleFunc("GET /results", s.handleResults)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = loggingMiddleware(mux)
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Swap replaces the backend. Requests in flight finish on the old one.
func (s *Server) Swap(b Backend) {
	s.mu.Lock()
	s.backend = b
	s.mu.Unlock()
}

func (s *Server) current() Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

// ExtractRequest is the body of POST /extract.
type ExtractRequest struct {
	URL          string `json:"url"`
	Name         string `json:"name"`
	FutureOnly   *bool  `json:"future_only"`
	Render       bool   `json:"render"`
	IgnoreRobots bool   `json:"ignore_robots"`
}

// ExtractResponse is the body of a successful POST /extract.
type ExtractResponse struct {
	RunID    string         `json:"run_id"`
	Events   []*event.Event `json:"events"`
	HTMLSize int            `json:"html_size"`
	Filename string         `json:"filename,omitempty"`
	Methods  []string       `json:"methods"`
	Detected string         `json:"detected,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// POST /extract
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}

	b := s.current()
	job := extract.Job{
		URL:          req.URL,
		SourceName:   req.Name,
		FutureOnly:   b.FutureOnly,
		Render:       req.Render,
		IgnoreRobots: req.IgnoreRobots,
	}
	if req.FutureOnly != nil {
		job.FutureOnly = *req.FutureOnly
	}

	res, err := b.Extractor.Run(r.Context(), job)
	if err != nil {
		var pe *extract.PolicyError
		switch {
		case errors.As(err, &pe):
			writeError(w, http.StatusForbidden, "robots_blocked", pe.Decision.Message)
		case errors.Is(err, extract.ErrInvalidURL):
			writeError(w, http.StatusBadRequest, "invalid_url", err.Error())
		default:
			writeError(w, http.StatusBadGateway, "fetch_failed", err.Error())
		}
		return
	}

	event.StripProvenance(res.Events)
	resp := ExtractResponse{
		RunID:    res.RunID,
		Events:   res.Events,
		HTMLSize: res.HTMLSize,
		Methods:  res.Methods,
		Detected: res.Detected,
		Reason:   res.Reason,
	}
	if resp.Events == nil {
		resp.Events = []*event.Event{}
	}

	if b.Store != nil && len(res.Events) > 0 {
		source := job.SourceName
		if source == "" {
			source = event.HostOf(job.URL)
		}
		at := s.now()
		name, err := b.Store.SaveResult(source, res.Events, at)
		if err != nil {
			logger.Error("Saving result failed", logger.Fields{"source": source}, err)
		}
		resp.Filename = name
		if b.SaveHTML && res.HTML != "" {
			if _, err := b.Store.SaveHTML(source, res.HTML, at); err != nil {
				logger.Warn("Saving page HTML failed", logger.Fields{"source": source, "error": err.Error()})
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /robots?url=
func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}
	b := s.current()
	if b.Robots == nil {
		writeError(w, http.StatusServiceUnavailable, "robots_disabled", "robots checking is not configured")
		return
	}
	writeJSON(w, http.StatusOK, b.Robots.CheckAllowed(r.Context(), target))
}

// GET /results
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	b := s.current()
	if b.Store == nil {
		writeJSON(w, http.StatusOK, []storage.FileInfo{})
		return
	}
	files, err := b.Store.ListResults()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if files == nil {
		files = []storage.FileInfo{}
	}
	writeJSON(w, http.StatusOK, files)
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().UTC(),
	})
}
