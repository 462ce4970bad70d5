// Package server exposes crawl results over HTTP for the visualization
// front end: snapshot queries, live directory analysis, and a websocket
// progress feed.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/incgraph/incgraph/internal/crawl"
	"github.com/incgraph/incgraph/internal/snapshot"
)

// Server answers front-end queries from a snapshot and falls back to live
// analysis through its crawler.
type Server struct {
	crawler *crawl.Crawler
	roots   []string
	hub     *hub
	extra   map[string]http.Handler

	mu       sync.RWMutex
	snap     *snapshot.Snapshot
	crawling bool

	// crawlCtx outlives individual requests; Stop cancels it so a
	// background crawl never survives the server.
	crawlCtx    context.Context
	crawlCancel context.CancelFunc

	http *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSnapshot loads a previously written snapshot to serve from.
func WithSnapshot(snap *snapshot.Snapshot) Option {
	return func(s *Server) { s.snap = snap }
}

// WithRoots sets the directories a triggered crawl starts from.
func WithRoots(roots []string) Option {
	return func(s *Server) { s.roots = roots }
}

// WithReporter feeds crawl progress events to websocket subscribers. The
// reporter should be the one the crawler emits on.
func WithReporter(r *crawl.Reporter) Option {
	return func(s *Server) {
		go s.hub.run(r.Subscribe())
	}
}

// WithHandler mounts an additional handler, such as an MCP endpoint, on the
// server's mux.
func WithHandler(pattern string, h http.Handler) Option {
	return func(s *Server) {
		if s.extra == nil {
			s.extra = make(map[string]http.Handler)
		}
		s.extra[pattern] = h
	}
}

// New creates a Server around crawler.
func New(crawler *crawl.Crawler, opts ...Option) *Server {
	s := &Server{
		crawler: crawler,
		hub:     newHub(),
	}
	s.crawlCtx, s.crawlCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler, CORS included. Exposed so callers can
// mount it themselves or combine it with other handlers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/roots", s.handleRoots)
	mux.HandleFunc("GET /api/graphs", s.handleGraphs)
	mux.HandleFunc("GET /api/tree", s.handleTree)
	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("POST /api/crawl", s.handleCrawl)

	for pattern, h := range s.extra {
		mux.Handle(pattern, h)
	}

	return withCORS(mux)
}

// Start begins serving on addr. It returns immediately after starting the
// server in a background goroutine.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("WARNING: server: listen %s: %v", addr, err)
		}
	}()

	return nil
}

// Stop cancels any background crawl and gracefully shuts down the HTTP
// server.
func (s *Server) Stop(ctx context.Context) error {
	s.crawlCancel()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Snapshot returns the currently loaded snapshot, nil when none is loaded.
func (s *Server) Snapshot() *snapshot.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// beginCrawl marks a crawl as running. It reports false when one already is.
func (s *Server) beginCrawl() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crawling {
		return false
	}
	s.crawling = true
	return true
}

// runCrawl walks roots and installs the assembled snapshot on success.
func (s *Server) runCrawl(roots []string) {
	defer func() {
		s.mu.Lock()
		s.crawling = false
		s.mu.Unlock()
	}()

	res, err := s.crawler.CrawlTree(s.crawlCtx, roots)
	if err != nil {
		log.Printf("WARNING: server: crawl failed: %v", err)
		return
	}

	snap := snapshot.Assemble(roots, res.Results)
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	log.Printf("server: crawl finished: %d directories, %d failed", len(res.Results), len(res.Failed))
}
