// Package server runs the passport API over net/http with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/internal/api/router"
	"github.com/petmvp/passportview/internal/config"
	"github.com/petmvp/passportview/pkg/logger"
)

const (
	readTimeout     = 30 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
	stopTimeout     = 5 * time.Second
)

// Server serves the passport API
type Server struct {
	cfg        *config.Config
	deps       router.Deps
	router     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error
}

// New creates a server over deps; gin runs in debug mode only with server.debug
func New(cfg *config.Config, deps router.Deps) *Server {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	return &Server{
		cfg:    cfg,
		deps:   deps,
		router: r,
	}
}

// SetupRoutes installs the middleware and routes
func (s *Server) SetupRoutes() {
	router.Setup(s.router, s.deps, s.cfg)
}

// Start binds the listen address and serves in the background. Bind
// failures are returned here; later serve failures end Run.
// The write timeout leaves room for a PDF export.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address())
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: s.cfg.Export.PDF.ExportTimeout() + readTimeout,
		IdleTimeout:  idleTimeout,
	}
	s.serveErr = make(chan error, 1)

	logger.Info("Starting HTTP server",
		zap.String("address", ln.Addr().String()),
		zap.Bool("debug", s.cfg.Server.Debug),
	)
	go func() {
		defer close(s.serveErr)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Server.Address()
}

// Run blocks until ctx is done or the server fails. On cancellation it lets
// in-flight views finish for up to shutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	if s.httpServer == nil {
		return errors.New("server not started")
	}
	select {
	case err, ok := <-s.serveErr:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down, waiting for in-flight views", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.shutdown(shutdownCtx)
}

// Stop shuts the server down, waiting briefly for in-flight views
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return s.shutdown(ctx)
}

func (s *Server) shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
