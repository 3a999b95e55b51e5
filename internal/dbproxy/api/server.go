// Package api wires the HTTP surface of the gateway.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yaw/dbproxy/internal/dbproxy/api/handlers"
	"github.com/yaw/dbproxy/internal/dbproxy/apierror"
	"github.com/yaw/dbproxy/pkg/logging"
)

// Config holds the listener settings.
type Config struct {
	Host           string
	Port           string
	TLSCertFile    string
	TLSKeyFile     string
	DevMode        bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PayloadMaxSize int64
}

// Dependencies are the shared components requests are served from.
type Dependencies struct {
	Dispatcher handlers.Dispatcher
	Health     handlers.HealthChecker
	Logger     logging.Logger
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     Config
	logger     logging.Logger
}

func NewServer(cfg Config, deps Dependencies) *Server {
	router := gin.New()
	router.Use(TraceMiddleware())
	router.Use(RecoveryMiddleware(deps.Logger))
	router.Use(LoggerMiddleware(deps.Logger))
	router.Use(MetricsMiddleware())

	s := &Server{
		router: router,
		config: cfg,
		logger: deps.Logger,
	}
	s.registerRoutes(handlers.NewHandler(deps.Dispatcher, deps.Health, deps.Logger, cfg.PayloadMaxSize))

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

func (s *Server) registerRoutes(h *handlers.Handler) {
	s.router.GET("/", h.Root)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v2 := s.router.Group("/v2")
	v2.GET("/", h.Root)
	v2.GET("/health", h.HealthCheck)
	v2.POST("/execute_statement", h.ExecuteStatement)
	v2.POST("/direct_statement", h.DirectStatement)

	s.router.NoRoute(func(c *gin.Context) {
		handlers.WriteError(c, apierror.NotFound(apierror.KindRouteNotFound, fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path)))
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTPS, or plain HTTP in development mode. It returns nil
// after a graceful Stop.
func (s *Server) Start() error {
	var err error
	if s.config.DevMode {
		s.logger.Warnf("Starting server on %s without TLS (development mode)", s.httpServer.Addr)
		err = s.httpServer.ListenAndServe()
	} else {
		s.logger.Infof("Starting server on %s", s.httpServer.Addr)
		err = s.httpServer.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
