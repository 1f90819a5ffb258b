package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/uabbasi/good-measure-giving/internal/catalog"
	"github.com/uabbasi/good-measure-giving/internal/config"
	"github.com/uabbasi/good-measure-giving/internal/log"
	"github.com/uabbasi/good-measure-giving/internal/metrics"
	"github.com/uabbasi/good-measure-giving/internal/recap"
	"github.com/uabbasi/good-measure-giving/internal/server/middleware"
	"github.com/uabbasi/good-measure-giving/internal/server/ratelimit"
	"github.com/uabbasi/good-measure-giving/internal/store"
)

// Server is the HTTP server tying together the charity catalog, the user
// data store, and the optional recap service.
type Server struct {
	httpServer  *http.Server
	mux         *http.ServeMux
	store       store.Store
	catalog     *catalog.Catalog
	recap       *recap.Service
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler
	validator   *validator.Validate
	cfg         *config.ServerConfig
	logger      zerolog.Logger
}

// Config holds the server's dependencies. Store and Catalog are required;
// Recap may be nil when no LLM is configured.
type Config struct {
	Server  *config.ServerConfig
	Store   store.Store
	Catalog *catalog.Catalog
	Recap   *recap.Service
}

// New creates a new server instance.
func New(cfg Config) (*Server, error) {
	if cfg.Server == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}

	s := &Server{
		store:     cfg.Store,
		catalog:   cfg.Catalog,
		recap:     cfg.Recap,
		validator: validator.New(),
		cfg:       cfg.Server,
		logger:    log.WithComponent("server"),
	}

	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	s.userService = NewUserService(cfg.Store, passwordConfig)

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	s.jwtService = NewJWTService(jwtConfig)

	s.authHandler = NewAuthHandler(s.userService, s.jwtService)

	if err := s.buildRoutes(); err != nil {
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.mux))),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// buildRoutes registers every route on the server's mux.
func (s *Server) buildRoutes() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Public catalog endpoints.
	mux.HandleFunc("GET /api/charities", s.handleListCharities)
	mux.HandleFunc("GET /api/charities/{ein}", s.handleGetCharity)
	mux.HandleFunc("GET /api/charities/{ein}/evaluation", s.handleGetEvaluation)
	mux.HandleFunc("GET /api/charities/{ein}/citations", s.handleGetCitations)

	// Authentication.
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	mux.Handle("GET /auth/me", s.authed(s.authHandler.Me))
	mux.Handle("PUT /auth/password", s.authed(s.authHandler.UpdatePassword))

	// Donor profile.
	mux.Handle("GET /api/me/profile", s.authed(s.handleGetProfile))
	mux.Handle("PUT /api/me/profile", s.authed(s.handleUpdateProfile))

	// Bookmarks.
	mux.Handle("GET /api/me/bookmarks", s.authed(s.handleListBookmarks))
	mux.Handle("PUT /api/me/bookmarks/{ein}", s.authed(s.handleAddBookmark))
	mux.Handle("DELETE /api/me/bookmarks/{ein}", s.authed(s.handleRemoveBookmark))

	// Giving history.
	mux.Handle("GET /api/me/donations", s.authed(s.handleListDonations))
	mux.Handle("POST /api/me/donations", s.authed(s.handleCreateDonation))
	mux.Handle("GET /api/me/donations/summary", s.authed(s.handleDonationSummary))
	mux.Handle("PUT /api/me/donations/{id}", s.authed(s.handleUpdateDonation))
	mux.Handle("DELETE /api/me/donations/{id}", s.authed(s.handleDeleteDonation))

	// Per-charity dollar targets.
	mux.Handle("GET /api/me/targets", s.authed(s.handleListTargets))
	mux.Handle("PUT /api/me/targets/{ein}", s.authed(s.handleSetTarget))
	mux.Handle("DELETE /api/me/targets/{ein}", s.authed(s.handleRemoveTarget))

	// Giving plan.
	mux.Handle("GET /api/me/plan", s.authed(s.handleGetPlan))
	mux.Handle("PUT /api/me/plan", s.authed(s.handleSavePlan))
	mux.Handle("POST /api/me/plan/buckets", s.authed(s.handleCreateBucket))
	mux.Handle("PATCH /api/me/plan/buckets/{id}", s.authed(s.handlePatchBucket))
	mux.Handle("DELETE /api/me/plan/buckets/{id}", s.authed(s.handleDeleteBucket))
	mux.Handle("GET /api/me/plan/progress", s.authed(s.handlePlanProgress))

	// Giving recap.
	mux.Handle("POST /api/me/recap", s.authed(s.handleRecap))

	// Converted charity data files.
	mux.Handle("GET /data/", http.StripPrefix("/data/", newDataFileServer(s.cfg.DataDir)))

	// Reverse proxy for the hosted auth flow.
	if s.cfg.AuthUpstreamURL != "" {
		proxy, err := newAuthProxy(s.cfg.AuthUpstreamURL, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create auth proxy: %w", err)
		}
		mux.Handle("/__/auth/", proxy)
	}

	s.mux = mux
	return nil
}

// userHandler is a handler that requires an authenticated user.
type userHandler func(w http.ResponseWriter, r *http.Request, userID uuid.UUID)

// authed wraps a userHandler with JWT validation and user ID extraction.
func (s *Server) authed(h userHandler) http.Handler {
	requireAuth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	return requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.GetUserID(r)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h(w, r, userID)
	}))
}

// Start begins listening for requests and blocks until the process receives
// SIGINT or SIGTERM, then drains in-flight requests.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.store.Close()
	s.logger.Info().Msg("server stopped")
	return nil
}

// Handler returns the fully wired HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withCORS adds CORS headers. With no configured allowlist any origin is
// allowed; otherwise only listed origins are echoed back.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.corsOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsOrigin(origin string) string {
	if len(s.cfg.AllowedOrigins) == 0 {
		return "*"
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		if !allowed {
			s.setRateLimitHeaders(w, info)
			s.rateLimitResponse(w, info)
			return
		}

		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// withLogging logs every request and records the Prometheus request
// counters, labeled with the matched route pattern.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		route := s.routePattern(r)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", duration).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// routePattern resolves the mux pattern a request matches, so metric labels
// stay bounded by the route table rather than raw URLs.
func (s *Server) routePattern(r *http.Request) string {
	if _, pattern := s.mux.Handler(r); pattern != "" {
		return pattern
	}
	return "unmatched"
}

// statusWriter captures the response status code for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"charities": s.catalog.Len(),
	})
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger := log.WithComponent("server")
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; an X-Forwarded-For version
// would need a trusted-proxy list first.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit
// information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"resetAt":   info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retryAfter"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds())))
	}

	s.logger.Warn().
		Int("limit", info.Limit).
		Int("remaining", info.Remaining).
		Time("reset", info.ResetTime).
		Msg("rate limit exceeded")

	jsonResponse(w, http.StatusTooManyRequests, response)
}
