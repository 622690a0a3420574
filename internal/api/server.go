// Package api exposes the HTTP surface: auth, CRUD, telemetry ingest,
// analytics and the websocket endpoint.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"collarwatch/internal/auth"
	"collarwatch/internal/cache"
	"collarwatch/internal/model"
	"collarwatch/internal/realtime"
	"collarwatch/internal/scoring"
	"collarwatch/internal/store"
)

type Server struct {
	store      *store.Store
	pipeline   *scoring.Pipeline
	classifier *scoring.Classifier
	latest     *cache.Latest
	hub        *realtime.Hub
	tokens     *auth.Manager
}

func NewServer(st *store.Store, pipeline *scoring.Pipeline, classifier *scoring.Classifier, latest *cache.Latest, hub *realtime.Hub, tokens *auth.Manager) *Server {
	return &Server{
		store:      st,
		pipeline:   pipeline,
		classifier: classifier,
		latest:     latest,
		hub:        hub,
		tokens:     tokens,
	}
}

// Handler builds the route table. Device-facing endpoints (telemetry ingest,
// websocket) and auth itself stay open; everything else requires a bearer
// token.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	mux.HandleFunc("POST /api/v1/sensor-data", s.handleIngest)
	mux.HandleFunc("GET /ws/{clientID}", s.handleWebsocket)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/v1/auth/me", s.handleMe)

	protected.HandleFunc("POST /api/v1/dogs", s.handleCreateDog)
	protected.HandleFunc("GET /api/v1/dogs", s.handleListDogs)
	protected.HandleFunc("GET /api/v1/dogs/{id}", s.handleGetDog)
	protected.HandleFunc("PUT /api/v1/dogs/{id}", s.handleUpdateDog)
	protected.HandleFunc("DELETE /api/v1/dogs/{id}", s.handleDeleteDog)

	protected.HandleFunc("POST /api/v1/collars", s.handleCreateCollar)
	protected.HandleFunc("GET /api/v1/collars", s.handleListCollars)
	protected.HandleFunc("GET /api/v1/collars/{id}", s.handleGetCollar)

	protected.HandleFunc("GET /api/v1/sensor-data/{dogID}", s.handleReadings)
	protected.HandleFunc("GET /api/v1/sensor-data/latest/{dogID}", s.handleLatestReading)

	protected.HandleFunc("GET /api/v1/interventions", s.handleListInterventions)
	protected.HandleFunc("POST /api/v1/interventions/{id}/acknowledge", s.handleAcknowledge)

	protected.HandleFunc("GET /api/v1/analytics/aggression-trends/{dogID}", s.handleAggressionTrends)
	protected.HandleFunc("GET /api/v1/analytics/health-metrics/{dogID}", s.handleHealthMetrics)
	protected.HandleFunc("GET /api/v1/analytics/dashboard", s.handleDashboard)

	mux.Handle("/api/v1/", s.tokens.Middleware(protected))

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"service":     "collarwatch",
		"model_ready": s.classifier.Ready(),
		"observers":   s.hub.ObserverCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps domain errors onto status codes. Validation failures
// are the caller's fault, missing entities are 404, everything else is a
// server error that should not leak internals.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		log.Printf("api: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
