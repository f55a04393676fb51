// Package api exposes the result store over a read-only HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/resultstore"
)

// Server is the HTTP server for the API.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    logger.Logger
}

// NewRouter builds the gin engine with middleware and routes.
// A nil gatherer leaves /metrics unregistered.
func NewRouter(store resultstore.Reader, gatherer prometheus.Gatherer, log logger.Logger, version string, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(log))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(log))

	h := NewHandler(store, version)
	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	v1.GET("/domains", h.ListDomains)
	v1.GET("/domains/:domain", h.GetDomain)
	v1.GET("/summary", h.Summary)

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

// NewServer creates a server listening on cfg.Address.
func NewServer(cfg config.ServerConfig, router *gin.Engine, log logger.Logger) *Server {
	return &Server{
		router: router,
		server: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

// Router returns the underlying gin engine.
func (s *Server) Router() *gin.Engine { return s.router }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", logger.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.server.WriteTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}
