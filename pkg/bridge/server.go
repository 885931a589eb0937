// Package bridge exposes the gateway over HTTP for local tools that cannot spawn
// the CLI themselves.
package bridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/rexliu/m365/pkg/config"
	"github.com/rexliu/m365/pkg/core"
	"github.com/rexliu/m365/pkg/logging"
)

// Caller performs one tool call; *gateway.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]any) any
}

// HistorySource lists recent calls; *sqlite.Store satisfies it.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]core.CallRecord, error)
}

const shutdownTimeout = 5 * time.Second

// Server routes HTTP requests to a Caller.
type Server struct {
	cfg     config.BridgeConfig
	router  *chi.Mux
	caller  Caller
	history HistorySource
	limiter *rate.Limiter
	logger  logging.Logger

	// one server process at a time
	callMu sync.Mutex
}

// New constructs a Server with middleware and routes configured. history may be
// nil when the profile keeps none.
func New(caller Caller, history HistorySource, cfg config.BridgeConfig, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		caller:  caller,
		history: history,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(s.auth)
		r.With(s.rateLimit).Post("/tools/{tool}", s.handleCall)
		r.Get("/history", s.handleHistory)
	})
	return s
}

// Router exposes the root HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

// Serve answers requests on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(map[string]any{
			"requestId": middleware.GetReqID(r.Context()),
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"bytes":     ww.BytesWritten(),
			"elapsed":   time.Since(start),
		}).Info("http request")
	})
}
