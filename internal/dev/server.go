package dev

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/qstate/internal/config"
	"github.com/vango-dev/qstate/internal/errors"
	"github.com/vango-dev/qstate/internal/replay"
)

// maxScriptBytes bounds POST /ops request bodies.
const maxScriptBytes = 4 << 20

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Session is the state tree served and mutated.
	Session *replay.Session

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Logger receives request and lifecycle logs.
	// Default: slog.Default()
	Logger *slog.Logger

	// OnApply is called after every applied script.
	OnApply func(events []replay.Event)
}

// Server is the development server.
type Server struct {
	config     *config.Config
	options    ServerOptions
	session    *replay.Session
	stream     *StreamServer
	logger     *slog.Logger
	httpServer *http.Server

	// sessionMu serializes access to the session and its container.
	sessionMu sync.Mutex

	mu      sync.Mutex
	running bool
}

// NewServer creates a new development server.
func NewServer(options ServerOptions) *Server {
	cfg := options.Config
	if cfg == nil {
		cfg = config.New()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		options: options,
		session: options.Session,
		stream:  NewStreamServer(),
		logger:  logger,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleState)
	r.Post("/ops", s.handleOps)
	r.Get("/ws", s.stream.HandleWebSocket)
	if s.options.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.options.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Stream returns the WebSocket stream server.
func (s *Server) Stream() *StreamServer {
	return s.stream
}

// Start runs the server until ctx is cancelled or listening fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.httpServer = &http.Server{
		Addr:              s.config.ServerAddress(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	s.logger.Info("dev server running", "addr", "http://"+s.config.ServerAddress())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		return err
	}
}

// Stop stops the development server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	s.stream.Close()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.sessionMu.Lock()
	snap := s.session.Snapshot()
	s.sessionMu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleOps(w http.ResponseWriter, r *http.Request) {
	ops, err := replay.ParseScript(io.LimitReader(r.Body, maxScriptBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.sessionMu.Lock()
	events, err := s.session.Apply(r.Context(), ops)
	if err == nil {
		// Broadcast under the lock so clients see scripts in order.
		s.stream.NotifyEvents(events)
	}
	s.sessionMu.Unlock()

	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if s.options.OnApply != nil {
		s.options.OnApply(events)
	}
	if events == nil {
		events = []replay.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	qe := errors.FromError(err, "Q202")
	s.logger.Warn("dev server: request rejected", "code", qe.Code, "error", qe.Error())
	s.stream.NotifyError(qe.Error())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, qe.FormatJSON())
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("dev server: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
