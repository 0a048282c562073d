// Package httpapi serves the reclaim daemon over HTTP: URL checks, the
// redirect and interstitial pages a browser is sent through, rule management
// and monitor status.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/haukened/reclaim/internal/reclaim/common/clock"
	"github.com/haukened/reclaim/internal/reclaim/common/log"
	"github.com/haukened/reclaim/internal/reclaim/domain"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulestore"
	"github.com/haukened/reclaim/internal/reclaim/services/monitor"
)

// shutdownTimeout bounds how long Stop waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// Checker decides whether URLs are blocked.
type Checker interface {
	Check(ctx context.Context, rawURL string) (domain.BlockDecision, error)
	Release(ctx context.Context, originalURL string) (bool, error)
}

// StatusSource reports the monitor's latest pass.
type StatusSource interface {
	Snapshot() ([]monitor.RuleStatus, time.Time)
}

type Options struct {
	Addr   string
	Gate   Checker
	Rules  rulestore.Store
	Status StatusSource // optional
	Clock  clock.Clock
	Logger log.Logger
}

// Server implements the daemon's HTTP transport. It owns its listener and
// handles requests with the gate and rule store it was built with.
type Server struct {
	addr   string
	gate   Checker
	rules  rulestore.Store
	status StatusSource
	clock  clock.Clock
	logger log.Logger

	mu       sync.RWMutex
	running  bool
	listener net.Listener
	srv      *http.Server
}

func New(opts Options) *Server {
	s := &Server{
		addr:   opts.Addr,
		gate:   opts.Gate,
		rules:  opts.Rules,
		status: opts.Status,
		clock:  opts.Clock,
		logger: opts.Logger,
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = log.NewNoopLogger()
	}
	return s
}

// Start binds the listen address and serves in the background until Stop is
// called or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("HTTP server already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.running = true

	s.logger.Info(map[string]any{
		"transport": "http",
		"address":   ln.Addr().String(),
	}, "HTTP server started")

	srv := s.srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(map[string]any{"error": err}, "HTTP server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Warn(map[string]any{"error": err}, "error stopping HTTP server")
		}
	}()
	return nil
}

// Stop gracefully shuts the server down. Calling Stop on a stopped server is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.srv.Shutdown(ctx)

	s.logger.Info(map[string]any{
		"transport": "http",
		"address":   s.listener.Addr().String(),
	}, "HTTP server stopped")
	return err
}

// Address returns the bound address while running, else the configured one.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.running && s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Handler returns the routed handler, wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/check", s.handleCheck)
	mux.HandleFunc("GET /go", s.handleGo)
	mux.HandleFunc("GET /blocked", s.handleBlocked)
	mux.HandleFunc("GET /v1/rules", s.handleListRules)
	mux.HandleFunc("POST /v1/rules", s.handleAddRule)
	mux.HandleFunc("GET /v1/rules/{id}", s.handleGetRule)
	mux.HandleFunc("PATCH /v1/rules/{id}", s.handlePatchRule)
	mux.HandleFunc("DELETE /v1/rules/{id}", s.handleDeleteRule)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	return s.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}, "HTTP request")
	})
}
