// Package server publishes the episode database over HTTP: a JSON API, the database
// document in the published format and a podcast RSS feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/lepdl/pkg/domain"
	"github.com/umputun/lepdl/pkg/repository"
)

//go:generate moq -out mocks/snapshot.go -pkg mocks -skip-ensure -fmt goimports . Snapshot

// Server represents HTTP server instance
type Server struct {
	cfg      Config
	snapshot Snapshot
	version  string
	debug    bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Snapshot provides the stored episode database, repository stores implement it
type Snapshot interface {
	Load(ctx context.Context) ([]domain.Episode, error)
}

// savedAtSource reports when the snapshot was last written, the sqlite store implements it
type savedAtSource interface {
	SavedAt(ctx context.Context) (time.Time, error)
}

// downloadLog returns per-run download records, the sqlite store implements it
type downloadLog interface {
	Downloads(ctx context.Context, runID string) ([]repository.DownloadRecord, error)
}

// Config defines server parameters
type Config struct {
	Listen   string
	Timeout  time.Duration
	BaseURL  string // public url, used in feed links
	Location string // snapshot location reported by status
}

// New initializes a new server instance
func New(cfg Config, snapshot Snapshot, version string, debug bool) *Server {
	s := &Server{
		cfg:      cfg,
		snapshot: snapshot,
		version:  version,
		debug:    debug,
		router:   routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	log.Printf("[INFO] starting server on %s", s.cfg.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Timeout,
		ReadTimeout:       s.cfg.Timeout,
		WriteTimeout:      s.cfg.Timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.lock.Lock()
		defer s.lock.Unlock()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("lepdl", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(64 * 1024))
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /episodes", s.episodesHandler)
		r.HandleFunc("GET /episodes/last", s.lastEpisodeHandler)
		r.HandleFunc("GET /downloads/{run}", s.downloadsHandler)
	})

	s.router.HandleFunc("GET /lep-db.json", s.databaseHandler)
	s.router.HandleFunc("GET /rss", s.rssHandler)
}
