// Package api serves the layer-catalog HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/delta10/layer-catalog/internal/auth"
	"github.com/delta10/layer-catalog/internal/cache"
	"github.com/delta10/layer-catalog/internal/config"
	"github.com/delta10/layer-catalog/internal/telemetry"
	"github.com/delta10/layer-catalog/internal/utils"
)

// Fetcher retrieves capability documents from upstream services.
type Fetcher interface {
	FetchCapabilities(ctx context.Context, service config.Service) ([]byte, error)
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	config   *config.Config
	fetcher  Fetcher
	cache    *cache.Cache
	verifier *auth.Verifier
	logger   zerolog.Logger
}

// NewServer assembles the catalog service. A nil verifier disables bearer
// token authentication.
func NewServer(cfg *config.Config, fetcher Fetcher, documentCache *cache.Cache, verifier *auth.Verifier, logger zerolog.Logger) *Server {
	return &Server{
		config:   cfg,
		fetcher:  fetcher,
		cache:    documentCache,
		verifier: verifier,
		logger:   logger,
	}
}

// Router returns the HTTP handler for the catalog service. The health and
// metrics endpoints stay open; everything under /services requires a valid
// bearer token once a verifier is configured.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(s.loggingMiddleware)
	router.Use(telemetry.MetricsMiddleware)

	router.Handle("/metrics", telemetry.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	services := router.PathPrefix("/services").Subrouter()
	if s.verifier != nil {
		services.Use(s.verifier.Middleware)
	}
	services.HandleFunc("", s.handleServices).Methods(http.MethodGet)
	services.HandleFunc("/{slug}/layers", s.handleLayers).Methods(http.MethodGet)

	return router
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Str("ip", utils.ReadUserIP(r)).
			Str("request_id", w.Header().Get("X-Request-Id")).
			Msg("handled request")
	})
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	resp := make(map[string]string)
	resp["message"] = message
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("could not marshal error response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(jsonResp)
}
