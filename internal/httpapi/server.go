// Package httpapi exposes a single state machine over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/atlekbai/hfsm"
	"github.com/atlekbai/hfsm/graph"
	"github.com/atlekbai/hfsm/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Machine is the part of a state machine the server drives.
type Machine interface {
	FireCtx(ctx context.Context, trigger string, args ...any) error
	GetStateMachineState(ctx context.Context) (hfsm.MachineState[string], error)
	GetPermittedTriggers(ctx context.Context, args ...any) ([]string, error)
	GetInfo() *hfsm.StateMachineInfo
}

// AfterFireFunc is called with the new configuration after every handled
// trigger, while the machine is still locked.
type AfterFireFunc func(ctx context.Context, state hfsm.MachineState[string]) error

// Server serializes all requests against one machine; the machine itself is
// not safe for concurrent use.
type Server struct {
	mu        sync.Mutex
	machine   Machine
	logger    *slog.Logger
	gatherer  prometheus.Gatherer
	afterFire AfterFireFunc
}

type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer serves the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithAfterFire registers fn to run after every handled trigger.
func WithAfterFire(fn AfterFireFunc) Option {
	return func(s *Server) {
		s.afterFire = fn
	}
}

// FireRequest is the optional body of POST /fire/{trigger}.
type FireRequest struct {
	Args []any `json:"args"`
}

// FireResponse reports the configuration after a fire.
type FireResponse struct {
	State    hfsm.MachineState[string] `json:"state"`
	Snapshot string                    `json:"snapshot"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a server for machine.
func NewServer(machine Machine, opts ...Option) *Server {
	s := &Server{
		machine:  machine,
		logger:   logging.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/state", s.GetState)
	r.Get("/triggers", s.GetTriggers)
	r.Post("/fire/{trigger}", s.Fire)
	r.Get("/graph", s.GetGraph)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// GetState handles GET /state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.machine.GetStateMachineState(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, FireResponse{State: state, Snapshot: state.String()})
}

// GetTriggers handles GET /triggers.
func (s *Server) GetTriggers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	triggers, err := s.machine.GetPermittedTriggers(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if triggers == nil {
		triggers = []string{}
	}
	writeJSON(w, http.StatusOK, triggers)
}

// Fire handles POST /fire/{trigger}.
func (s *Server) Fire(w http.ResponseWriter, r *http.Request) {
	trigger := chi.URLParam(r, "trigger")

	var body FireRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := r.Context()
	if err := s.machine.FireCtx(ctx, trigger, body.Args...); err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}

	state, err := s.machine.GetStateMachineState(ctx)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if s.afterFire != nil {
		if err := s.afterFire(ctx, state); err != nil {
			s.fail(w, r, http.StatusInternalServerError, err)
			return
		}
	}

	s.logger.InfoContext(ctx, "trigger fired", "trigger", trigger, "state", state.String())
	writeJSON(w, http.StatusOK, FireResponse{State: state, Snapshot: state.String()})
}

// GetGraph handles GET /graph. The format query parameter selects "mermaid"
// (the default) or "dot".
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	info := s.machine.GetInfo()

	switch r.URL.Query().Get("format") {
	case "", "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, graph.MermaidGraph(info, nil))
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = io.WriteString(w, graph.UmlDotGraph(info))
	default:
		s.fail(w, r, http.StatusBadRequest, errors.New("format must be mermaid or dot"))
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, hfsm.ErrUnhandledTrigger):
		return http.StatusConflict
	case errors.Is(err, hfsm.ErrParameterMismatch):
		return http.StatusBadRequest
	case errors.Is(err, hfsm.ErrAmbiguousGuard):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.WarnContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
