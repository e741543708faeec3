package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/reportrelay/internal/app"
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

	addr := fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(application),
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// writeTimeout covers one synchronous pipeline run: login, page load,
// model request with retries, then the sinks
func writeTimeout(application *app.App) time.Duration {
	cfg := application.Config
	budget := cfg.Source.LoginTimeout + cfg.Source.PageTimeout
	budget += cfg.LLM.Timeout * time.Duration(cfg.LLM.MaxRetries+1)
	budget += cfg.Notion.Timeout + cfg.Telegram.Timeout + cfg.Email.Timeout
	budget += 30 * time.Second
	if budget < 2*time.Minute {
		budget = 2 * time.Minute
	}
	return budget
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.app.Logger.Info().
		Str("address", s.server.Addr).
		Str("write_timeout", s.server.WriteTimeout.String()).
		Msg("HTTP server starting")

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
