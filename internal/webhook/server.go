package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"podsum/internal/episode"
	"podsum/internal/logging"
	"podsum/internal/pipeline"
	"podsum/internal/services"
)

const (
	defaultMaxBodyBytes   = 64 * 1024
	defaultRequestTimeout = 5 * time.Minute
	shutdownTimeout       = 5 * time.Second
	requestIDHeader       = "X-Request-ID"
)

// Processor runs one episode event.
type Processor interface {
	Process(ctx context.Context, event episode.Event) (pipeline.Outcome, error)
}

// Response is the JSON body returned for every processed event.
type Response struct {
	RequestID      string `json:"requestId"`
	RunID          string `json:"runId,omitempty"`
	State          string `json:"state,omitempty"`
	CanonicalID    string `json:"canonicalId,omitempty"`
	Branch         string `json:"branch,omitempty"`
	ArtifactPath   string `json:"artifactPath,omitempty"`
	PullRequestURL string `json:"pullRequestUrl,omitempty"`
	Existing       bool   `json:"existing,omitempty"`
	Degraded       bool   `json:"degraded,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Server is the HTTP listener.
type Server struct {
	bind           string
	maxBodyBytes   int64
	requestTimeout time.Duration
	processor      Processor
	logger         *slog.Logger

	listener net.Listener
	server   *http.Server
}

// Option customizes a Server.
type Option func(*Server)

func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithRequestTimeout bounds one pipeline run started by a request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a listener for bind that hands events to processor.
func New(bind string, processor Processor, opts ...Option) *Server {
	s := &Server{
		bind:           strings.TrimSpace(bind),
		maxBodyBytes:   defaultMaxBodyBytes,
		requestTimeout: defaultRequestTimeout,
		processor:      processor,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "webhook")
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.requestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routing mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /episodes", s.handleEpisode)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start binds the listener and serves in the background until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return services.Wrap(services.ErrConfiguration, "webhook", "listen", "webhook.bind is empty", nil)
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webhook server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("webhook listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)
	resp := Response{RequestID: requestID}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			resp.Error = fmt.Sprintf("payload exceeds %d bytes", s.maxBodyBytes)
			s.writeJSON(w, http.StatusRequestEntityTooLarge, resp)
			return
		}
		resp.Error = "failed to read request body"
		s.writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	event, err := episode.ParseEvent(body)
	if err != nil {
		resp.Error = err.Error()
		s.writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	// The run outlives a disconnecting caller so a publish is never cut short.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.requestTimeout)
	defer cancel()
	ctx = services.WithRequestID(ctx, requestID)

	outcome, err := s.processor.Process(ctx, event)
	resp.RunID = outcome.RunID
	resp.State = string(outcome.State)
	resp.CanonicalID = outcome.Identity.CanonicalID
	resp.Branch = outcome.Branch
	resp.PullRequestURL = outcome.PullRequest.URL
	resp.Existing = outcome.Existing
	resp.Degraded = outcome.Degraded
	resp.Reason = outcome.Reason
	resp.ArtifactPath = outcome.ArtifactPath
	if err != nil {
		resp.Error = err.Error()
	}
	s.logger.Info("episode request handled",
		logging.String("request_id", requestID),
		logging.String("state", resp.State),
		logging.String(logging.FieldCanonicalID, resp.CanonicalID),
	)
	s.writeJSON(w, statusFor(outcome.State, err), resp)
}

func statusFor(state pipeline.State, err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case state == pipeline.StateFailedRetryable:
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrAuthentication), errors.Is(err, services.ErrRemoteState):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}
