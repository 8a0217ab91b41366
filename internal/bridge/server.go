package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"convrt/internal/config"
	"convrt/internal/events"
	"convrt/internal/history"
	"convrt/internal/logging"
	"convrt/internal/modelcache"
	"convrt/internal/pipeline"
)

// Workflows is the subset of the coordinator the bridge drives.
type Workflows interface {
	Acquire(ctx context.Context, req pipeline.AcquireRequest) (string, error)
	Transcribe(ctx context.Context, req pipeline.TranscribeRequest) (pipeline.Transcript, error)
	Trim(ctx context.Context, req pipeline.TrimRequest) (string, error)
}

// Models lists and fetches cached acoustic models.
type Models interface {
	List() ([]modelcache.Descriptor, error)
	Resolve(ctx context.Context, name string) (string, error)
}

// History reads recorded runs.
type History interface {
	List(ctx context.Context, filter history.Filter) ([]history.Run, error)
}

// Options wires the server's collaborators. Nil History or Events disable the
// corresponding endpoints.
type Options struct {
	Bind      string
	Token     string
	Workflows Workflows
	Models    Models
	History   History
	Events    *events.Bus
	Logger    *slog.Logger
}

// Server serves the local bridge API.
type Server struct {
	bind      string
	logger    *slog.Logger
	workflows Workflows
	models    Models
	history   History
	bus       *events.Bus

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// New builds a server. Workflows and Models are required.
func New(opts Options) (*Server, error) {
	if opts.Workflows == nil || opts.Models == nil {
		return nil, errors.New("bridge: workflows and models are required")
	}
	bind := strings.TrimSpace(opts.Bind)
	if bind == "" {
		return nil, errors.New("bridge: bind address is required")
	}
	if strings.TrimSpace(opts.Token) == "" && !loopbackBind(bind) {
		return nil, fmt.Errorf("bridge: refusing to listen on %s without paths.api_token; bind to 127.0.0.1 or set a token", bind)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		bind:      bind,
		logger:    logger.With(logging.String(logging.FieldComponent, "bridge")),
		workflows: opts.Workflows,
		models:    opts.Models,
		history:   opts.History,
		bus:       opts.Events,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("POST /api/models/{name}", s.handleModelEnsure)
	mux.HandleFunc("POST /api/acquire", s.handleAcquire)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /api/trim", s.handleTrim)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	s.handler = originMiddleware(authMiddleware(opts.Token, mux))

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// NewFromConfig builds a server bound to paths.api_bind.
func NewFromConfig(cfg *config.Config, workflows Workflows, models Models, store History, bus *events.Bus, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("bridge: config is required")
	}
	return New(Options{
		Bind:      cfg.Paths.APIBind,
		Token:     cfg.Paths.APIToken,
		Workflows: workflows,
		Models:    models,
		History:   store,
		Events:    bus,
		Logger:    logger,
	})
}

// Handler returns the routed handler, including origin and token checks.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the bind address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("bridge listen: %w", err)
	}
	s.listener = listener
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("bridge server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("bridge listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "bridge_listening"),
	)
	return nil
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, pipeline.Outcome{Error: message})
}
