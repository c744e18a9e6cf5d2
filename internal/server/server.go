package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/equitylens/internal/app"
	"github.com/ternarybob/equitylens/internal/common"
)

// Server manages the HTTP server and routes
type Server struct {
	app    *app.App
	router *http.ServeMux
	server *http.Server
}

// New creates a new HTTP server with the given app
func New(application *app.App) *Server {
	s := &Server{
		app: application,
	}

	s.router = s.setupRoutes()

	writeTimeout := generationWriteTimeout(application.Config)

	addr := fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.app.Config.Server.Host, s.app.Config.Server.Port)

	s.app.Logger.Info().
		Str("address", addr).
		Msg("HTTP server starting")

	s.app.Logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d/%s", s.app.Config.Server.Host, s.app.Config.Server.Port, s.app.Config.DefaultTicker)).
		Msg("Web UI available")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}

// generationWriteTimeout outlasts every generation attempt plus the delays between them,
// so a synchronous /analyze call is never cut off by the server.
func generationWriteTimeout(config *common.Config) time.Duration {
	attempt := common.Duration(config.Gemini.Timeout, 3*time.Minute)
	if config.LLM.Provider == common.LLMProviderClaude {
		attempt = common.Duration(config.Claude.Timeout, 3*time.Minute)
	}
	retries := config.LLM.MaxRetries
	if retries < 0 {
		retries = 0
	}
	delay := common.Duration(config.LLM.RetryDelay, 5*time.Second)

	// Two calls per request at most: localized name, then the report
	perCall := attempt*time.Duration(retries+1) + delay*time.Duration(retries)
	return 2*perCall + 30*time.Second
}
