package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/learning-platform/internal/auth"
	"github.com/gokatarajesh/learning-platform/internal/config"
	"github.com/gokatarajesh/learning-platform/pkg/http/ws"
)

// WSUpgrader handles WebSocket upgrades (configure CORS/security as needed).
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Dependencies are the services the HTTP layer fronts. Nil Jobs or Hub
// leave the asynchronous routes unregistered.
type Dependencies struct {
	Questions questionService
	Jobs      jobService
	Hub       *ws.Hub
	Verifier  auth.Verifier
	Checks    []HealthCheck
}

// NewHTTPServer wires the API routes.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Dependencies) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: NewHandler(logger, deps),
	}
}

// NewHandler builds the routed handler with access logging and panic recovery.
func NewHandler(logger zerolog.Logger, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), deps.Checks); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	protect := auth.RequireBearer(deps.Verifier, logger)
	h := &assessmentHandlers{questions: deps.Questions, jobs: deps.Jobs}

	if deps.Questions != nil {
		mux.Handle("POST /v1/assessments/{kind}/{id}/questions", protect(http.HandlerFunc(h.generateQuestions)))
	}
	if deps.Jobs != nil {
		mux.Handle("POST /v1/assessments/{kind}/{id}/jobs", protect(http.HandlerFunc(h.submitJob)))
		mux.Handle("GET /v1/jobs/{id}", protect(http.HandlerFunc(h.getJob)))
		mux.Handle("GET /v1/jobs/{id}/export.xlsx", protect(http.HandlerFunc(h.exportJob)))
	}
	if deps.Jobs != nil && deps.Hub != nil {
		stream := &jobStream{hub: deps.Hub, jobs: deps.Jobs, logger: logger.With().Str("component", "job_stream").Logger()}
		mux.Handle("GET /ws/jobs", protect(stream))
	}

	return withRecovery(logger, withAccessLog(logger, mux))
}

func pingDependencies(ctx context.Context, checks []HealthCheck) error {
	for _, c := range checks {
		if err := c.Check(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil
}
