package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"atsquick/internal/observability"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

type contextKey string

const requestIDKey contextKey = "request_id"

// setupRoutes configures all HTTP routes and their middleware
func (s *Server) setupRoutes(om *observability.ObservabilityManager) http.Handler {
	mux := http.NewServeMux()

	rateLimit := s.createRateLimitMiddleware(om)
	sizeLimit := s.requestSizeLimitMiddleware()

	api := func(route string, h http.HandlerFunc) http.HandlerFunc {
		return observability.RouteMiddleware(om, route)(rateLimit(s.authMiddleware(sizeLimit(h))))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("/api/analyze", api("/api/analyze", s.createAnalyzeHandler(om)))
	mux.HandleFunc("/api/contact", api("/api/contact", s.createContactHandler(om)))

	return s.recoveryMiddleware(s.requestIDMiddleware(s.corsMiddleware(mux)))
}

// recoveryMiddleware turns a handler panic into a 500 response
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.Logger.LogError(fmt.Errorf("panic: %v", rec), "Recovered from handler panic",
					"endpoint", r.URL.Path,
					"request_id", requestIDFrom(r.Context()),
					"stack", string(debug.Stack()))
				writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware propagates or assigns a request ID
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// corsMiddleware answers browser preflights for allowed origins. Requests from
// other origins are served without CORS headers, so browsers block them.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" && (s.AllowedOrigins["*"] || s.AllowedOrigins[origin])

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Authorization, "+requestIDHeader)
				w.Header().Set("Access-Control-Max-Age", "600")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := extractAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, http.StatusUnauthorized, ErrorResponse{
				Error:   "Missing API key",
				Details: "X-API-Key header or Authorization Bearer token required",
			})
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, http.StatusUnauthorized, ErrorResponse{Error: "Invalid API key"})
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestSizeLimitMiddleware caps the request body at the upload limit plus
// room for multipart framing
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize+multipartOverhead)
			}
			next(w, r)
		}
	}
}

// extractAPIKey reads X-API-Key, falling back to a Bearer token
func extractAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
