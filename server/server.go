package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/newspulse/pkg/domain"
)

//go:generate moq -out mocks/news.go -pkg mocks -skip-ensure -fmt goimports . NewsStore
//go:generate moq -out mocks/pool.go -pkg mocks -skip-ensure -fmt goimports . PoolInfo

// Server represents HTTP server instance
type Server struct {
	cfg     Config
	news    NewsStore
	pool    PoolInfo
	version string
	debug   bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Config defines server settings
type Config struct {
	Listen   string
	Timeout  time.Duration    // read and write timeout
	Throttle int64            // max concurrent requests, 0 means 100
	Now      func() time.Time // clock used for "today", time.Now if nil
}

// NewsStore is the news storage used by the handlers
type NewsStore interface {
	ByDate(ctx context.Context, day time.Time) ([]domain.NewsItem, error)
	DeleteByDate(ctx context.Context, day time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// PoolInfo reports the state of the connection pool
type PoolInfo interface {
	Dialect() string
	Stats() sql.DBStats
}

// New initializes a new server instance
func New(cfg Config, news NewsStore, pool PoolInfo, version string, debug bool) *Server {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Throttle <= 0 {
		cfg.Throttle = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		cfg:     cfg,
		news:    news,
		pool:    pool,
		version: version,
		debug:   debug,
		router:  routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	lgr.Printf("[INFO] starting server on %s", s.cfg.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.Timeout,
		WriteTimeout:      s.cfg.Timeout,
	}
	httpServer := s.httpServer
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Handler returns the router with all middlewares, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware chain, timing goes first to cover everything after it
func (s *Server) setupMiddleware() {
	s.router.Use(Timing)
	s.router.Use(rest.AppInfo("newspulse", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(s.cfg.Throttle))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.healthHandler)
	s.router.HandleFunc("GET /news", s.newsHandler)
	s.router.HandleFunc("DELETE /del_news", s.deleteNewsHandler)

	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
	})
}
