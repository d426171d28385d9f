package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"atsquick/internal/config"
	"atsquick/internal/observability"
)

const shutdownTimeout = 30 * time.Second

// Start runs the HTTP server until ctx is cancelled, then shuts it down gracefully
func (s *Server) Start(ctx context.Context) error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)

	httpServer := s.setupHTTPServer(om)

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	watcher := s.startPromptWatcher()
	defer s.stopPromptWatcher(watcher)

	s.displayServerInfo()

	return s.startWithGracefulShutdown(ctx, httpServer)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)

	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	return om, nil
}

// shutdownObservability handles observability cleanup
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	handler := om.HTTPMiddleware()(s.setupRoutes(om))

	return &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      handler,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startPromptWatcher starts hot reload of the analysis prompt file when enabled.
// A watcher that fails to start is logged and skipped.
func (s *Server) startPromptWatcher() *config.PromptWatcher {
	prompts := s.AppConfig.AI.CustomPrompts
	if !prompts.Watch || prompts.AnalyzeResumeFile == "" {
		return nil
	}

	watcher, err := config.NewPromptWatcher(s.AppConfig, nil, s.Logger)
	if err != nil {
		s.Logger.LogError(err, "Failed to create prompt watcher")
		return nil
	}
	if err := watcher.Start(); err != nil {
		s.Logger.LogError(err, "Failed to start prompt watcher")
		return nil
	}
	return watcher
}

func (s *Server) stopPromptWatcher(watcher *config.PromptWatcher) {
	if watcher == nil {
		return
	}
	if err := watcher.Stop(); err != nil {
		s.Logger.LogError(err, "Failed to stop prompt watcher")
	}
}

// startWithGracefulShutdown serves until ctx is done or the listener fails
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.cleanupRateLimiter()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.cleanupRateLimiter()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	if err := s.Analyzer.Close(); err != nil {
		s.Logger.LogError(err, "Failed to close AI service")
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanupRateLimiter cleans up the rate limiter resources
func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
