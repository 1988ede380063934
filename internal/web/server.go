// Package web exposes the event service, the grid layout engine and the
// ICS helpers over HTTP. Every JSON response uses the APIResponse envelope.
package web

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"meetgrid/internal/config"
	"meetgrid/internal/event"
	appLog "meetgrid/internal/log"
)

// tokenHeader carries host and guest edit tokens.
const tokenHeader = "X-Edit-Token"

// Server routes API requests to an event.Service.
type Server struct {
	cfg *config.Config
	svc *event.Service
	mux *http.ServeMux
	now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *event.Service) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
		now: time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the mux wrapped in access logging, CORS and, when
// configured, basic auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	h = corsMiddleware(s.cfg.CORSOrigins, h)
	return loggingMiddleware(h)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	s.mux.HandleFunc("PATCH /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("POST /api/events/{id}/fix", s.handleFixEvent)
	s.mux.HandleFunc("GET /api/events/{id}/suggest", s.handleSuggestFix)
	s.mux.HandleFunc("GET /api/events/{id}/grid", s.handleEventGrid)
	s.mux.HandleFunc("GET /api/events/{id}/calendar.ics", s.handleCalendar)

	s.mux.HandleFunc("POST /api/events/{id}/guests", s.handleRegisterGuest)
	s.mux.HandleFunc("PUT /api/events/{id}/guests/{guestID}", s.handleUpdateAnswers)

	s.mux.HandleFunc("POST /api/layout", s.handleLayout)
	s.mux.HandleFunc("POST /api/candidates/expand", s.handleExpand)
	s.mux.HandleFunc("POST /api/candidates/import", s.handleImport)
	s.mux.HandleFunc("GET /api/timezones", s.handleTimezones)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="meetgrid", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, APIError{Code: ErrCodeUnauthorized, Message: "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// shareURL is the public link guests open to answer.
func (s *Server) shareURL(id string) string {
	return strings.TrimSuffix(s.cfg.BaseURL, "/") + "/events/" + id
}

// ListenAndServe serves s until ctx is cancelled, then shuts down
// gracefully, waiting at most grace for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
