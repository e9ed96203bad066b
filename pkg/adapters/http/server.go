// Package http exposes a flow bot over a JSON API: flow validation,
// inbound conversation events, and instance inspection.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/botwalk/botwalk"
	"github.com/botwalk/botwalk/internal/logging"
	"github.com/botwalk/botwalk/pkg/domain"
	"github.com/botwalk/botwalk/pkg/flowfile"
)

const maxBodyBytes = 1 << 20

// Bot is the surface of the engine facade the server drives.
type Bot interface {
	Trigger(ctx context.Context, instanceID, message string, opts botwalk.TriggerOptions) (*domain.ExecutionState, error)
	Resume(ctx context.Context, instanceID, input string, opts botwalk.ResumeOptions) (*domain.ExecutionState, error)
	Cancel(ctx context.Context, instanceID string) error
	State(ctx context.Context, instanceID string) (*domain.ExecutionState, error)
	Instances(ctx context.Context) ([]string, error)
}

// Server handles the JSON API routes.
type Server struct {
	bot      Bot
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithGatherer exposes the given metrics registry at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewHandler builds the routed HTTP handler for a bot.
func NewHandler(bot Bot, opts ...Option) http.Handler {
	s := &Server{bot: bot, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/flows/validate", s.validateFlow)
	r.Post("/instances/{id}/events", s.postEvent)
	r.Get("/instances/{id}", s.getInstance)
	r.Delete("/instances/{id}", s.cancelInstance)
	r.Get("/instances", s.listInstances)
	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validateFlow accepts a flow document (YAML or JSON) and returns the
// validation result. Structural errors in the document itself are a 400;
// a parseable flow always returns 200 with the issue list.
func (s *Server) validateFlow(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	flow, err := flowfile.Parse(data)
	if err != nil {
		s.logger.Warn("flow document rejected", "err", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, botwalk.Validate(flow))
}

// eventRequest is one inbound conversation event. Text carries the user's
// message, OptionID a tapped question option, EventID the provider's
// delivery id used for idempotency.
type eventRequest struct {
	Text     string `json:"text"`
	OptionID string `json:"option_id,omitempty"`
	EventID  string `json:"event_id,omitempty"`
}

// postEvent routes an inbound event to the right engine entry point:
// unknown instances go through trigger matching, known waiting instances
// through resume.
func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "id")

	var req eventRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, err := s.bot.State(r.Context(), instanceID)
	switch {
	case errors.Is(err, domain.ErrInstanceNotFound):
		state, err := s.bot.Trigger(r.Context(), instanceID, req.Text, botwalk.TriggerOptions{EventID: req.EventID})
		if errors.Is(err, domain.ErrNoTriggerMatch) {
			s.writeError(w, http.StatusUnprocessableEntity, "no trigger matched this message")
			return
		}
		if err != nil {
			s.logger.Error("trigger failed", "instance", instanceID, "err", err)
			s.writeError(w, http.StatusInternalServerError, "trigger failed")
			return
		}
		s.writeJSON(w, http.StatusCreated, state)
	case err != nil:
		s.logger.Error("state lookup failed", "instance", instanceID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "state lookup failed")
	default:
		state, err := s.bot.Resume(r.Context(), instanceID, req.Text, botwalk.ResumeOptions{
			OptionID: req.OptionID,
			EventID:  req.EventID,
		})
		if errors.Is(err, domain.ErrNotWaiting) {
			s.writeError(w, http.StatusConflict, "instance is not waiting for input")
			return
		}
		if err != nil {
			s.logger.Error("resume failed", "instance", instanceID, "err", err)
			s.writeError(w, http.StatusInternalServerError, "resume failed")
			return
		}
		s.writeJSON(w, http.StatusOK, state)
	}
}

func (s *Server) getInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "id")
	state, err := s.bot.State(r.Context(), instanceID)
	if errors.Is(err, domain.ErrInstanceNotFound) {
		s.writeError(w, http.StatusNotFound, "instance not found")
		return
	}
	if err != nil {
		s.logger.Error("state lookup failed", "instance", instanceID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "state lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) cancelInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "id")
	err := s.bot.Cancel(r.Context(), instanceID)
	if errors.Is(err, domain.ErrInstanceNotFound) {
		s.writeError(w, http.StatusNotFound, "instance not found")
		return
	}
	if err != nil {
		s.logger.Error("cancel failed", "instance", instanceID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "cancel failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listInstances(w http.ResponseWriter, r *http.Request) {
	ids, err := s.bot.Instances(r.Context())
	if err != nil {
		s.logger.Error("list instances failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"instances": ids})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
