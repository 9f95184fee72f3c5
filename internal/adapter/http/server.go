package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"
)

// RateLimit configures the per-client limit on /api routes. Clients are
// keyed by peer address. TrustForwardHeader switches the key to the first
// X-Forwarded-For hop (or X-Real-IP) and must only be set behind a proxy
// that rewrites those headers.
type RateLimit struct {
	Rate               limiter.Rate
	TrustForwardHeader bool
}

// Server exposes health, readiness and metrics endpoints plus the /api
// routes for route checks and the notification inbox.
type Server struct {
	httpServer *http.Server
	checker    Checker
	inbox      Inbox
	logger     *slog.Logger
}

// NewServer creates an HTTP server. Every /api route is rate limited per
// client according to rl.
func NewServer(addr string, ready sharedobs.ReadinessChecker, checker Checker, inbox Inbox, rl RateLimit, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		checker: checker,
		inbox:   inbox,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	api := http.NewServeMux()
	api.HandleFunc("POST /api/check-intersection", s.handleCheck)
	api.HandleFunc("GET /api/notifications", s.handleListNotifications)
	api.HandleFunc("GET /api/notifications/unread-count", s.handleUnreadCount)
	api.HandleFunc("PUT /api/notifications/read-all", s.handleMarkAllRead)
	api.HandleFunc("PUT /api/notifications/{id}/read", s.handleMarkRead)
	api.HandleFunc("DELETE /api/notifications/{id}", s.handleDeleteNotification)
	mux.Handle("/api/", rateLimit(rl, logger)(api))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	sharedobs.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
