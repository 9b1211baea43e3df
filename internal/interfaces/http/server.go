// Package http provides the HTTP adapter for the voucher services.
// Handlers translate requests into service calls and service errors into
// status codes; no business rules live here.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/voucher-sync/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthFunc reports whether the backing stores are usable
type HealthFunc func(ctx context.Context) error

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CookieConfig controls the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	cookie     CookieConfig
	httpServer *http.Server
	router     *gin.Engine
	identity   service.IdentityService
	vouchers   service.VoucherService
	health     HealthFunc
	logger     Logger
}

// NewServer creates a new HTTP server with the given services.
// health may be nil.
func NewServer(
	config ServerConfig,
	cookie CookieConfig,
	identity service.IdentityService,
	vouchers service.VoucherService,
	health HealthFunc,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	if cookie.Name == "" {
		cookie.Name = "voucher_session"
	}

	server := &Server{
		config:   config,
		cookie:   cookie,
		router:   gin.New(),
		identity: identity,
		vouchers: vouchers,
		health:   health,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.identity, s.vouchers, s.health, s.cookie, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		api.GET("/session", handlers.CheckSession)
		api.POST("/logout", handlers.Logout)

		authed := api.Group("", s.authMiddleware())
		authed.GET("/next-number", handlers.NextNumber)
		authed.GET("/vouchers", handlers.ListVouchers)
		authed.POST("/vouchers", handlers.SubmitVoucher)
		authed.PUT("/vouchers/:id", handlers.UpdateVoucher)
		authed.DELETE("/vouchers/:number", handlers.DeleteVoucher)
		authed.GET("/vouchers/:id/preview", handlers.PreviewVoucher)
		authed.GET("/exports/vouchers.xlsx", handlers.ExportVouchers)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
