/*
 * Copyright 2025 The FrameHub Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api provides the HTTP API server for FrameHub
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/framehub/framehub/pkg/dispatch"
	"github.com/framehub/framehub/pkg/hub"
	fhHttp "github.com/framehub/framehub/pkg/http"
	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/models"
	"github.com/framehub/framehub/pkg/registry"
)

// NewAPIServer creates a new API server instance with the given configuration
func NewAPIServer(corsConfig models.CORSConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: corsConfig,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithHub wires the coordination layer into the API server.
func WithHub(h HubService) func(server *APIServer) {
	return func(server *APIServer) {
		server.hub = h
	}
}

// WithRegistry wires the desired-state store into the API server.
func WithRegistry(r RegistryService) func(server *APIServer) {
	return func(server *APIServer) {
		server.registry = r
	}
}

// WithWebhookID sets the per-installation webhook identifier tablets post to.
func WithWebhookID(id string) func(server *APIServer) {
	return func(server *APIServer) {
		server.webhookID = id
	}
}

// WithAPIKey protects the /api routes with a shared key. Empty disables it.
func WithAPIKey(key string) func(server *APIServer) {
	return func(server *APIServer) {
		server.apiKey = key
	}
}

// WithLogger sets the logger for the API server.
func WithLogger(log logger.Logger) func(server *APIServer) {
	return func(server *APIServer) {
		server.logger = log
	}
}

func (s *APIServer) setupRoutes() {
	if s.logger == nil {
		s.logger = logger.NewTestLogger()
	}

	s.setupMiddleware()

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Webhooks are authenticated by the webhook identifier in the path,
	// not the API key; tablets never hold the key.
	s.router.HandleFunc("/webhook/{webhook_id}/status", s.handleStatusWebhook).Methods("POST")
	s.router.HandleFunc("/webhook/{webhook_id}/register", s.handleRegisterWebhook).Methods("POST")

	s.setupProtectedRoutes()
}

func (s *APIServer) setupMiddleware() {
	s.router.Use(func(next http.Handler) http.Handler {
		return fhHttp.CommonMiddleware(next, s.corsConfig, s.logger)
	})
	s.router.Use(fhHttp.MetricsMiddleware)
}

// setupProtectedRoutes configures the API-key protected admin surface.
func (s *APIServer) setupProtectedRoutes() {
	protected := s.router.PathPrefix("/api").Subrouter()

	// The websocket route authenticates after the upgrade instead;
	// browsers cannot attach headers to a websocket handshake.
	protected.Use(fhHttp.APIKeyMiddlewareWithOptions(fhHttp.APIKeyOptions{
		APIKey:          s.apiKey,
		ExcludePaths:    []string{"/api/ws"},
		LogUnauthorized: true,
		Logger:          s.logger,
	}))

	protected.HandleFunc("/devices", s.getDevices).Methods("GET")
	protected.HandleFunc("/devices/{id}", s.getDevice).Methods("GET")
	protected.HandleFunc("/devices/{id}", s.putDevice).Methods("PUT")
	protected.HandleFunc("/devices/{id}", s.deleteDevice).Methods("DELETE")
	protected.HandleFunc("/devices/{id}/next_image", s.postNextImage).Methods("POST")
	protected.HandleFunc("/devices/{id}/refresh_config", s.postRefreshConfig).Methods("POST")
	protected.HandleFunc("/devices/{id}/set_profile", s.postSetProfile).Methods("POST")

	protected.HandleFunc("/profiles", s.getProfiles).Methods("GET")
	protected.HandleFunc("/profiles/{id}", s.getProfile).Methods("GET")
	protected.HandleFunc("/profiles/{id}", s.putProfile).Methods("PUT")
	protected.HandleFunc("/profiles/{id}", s.deleteProfile).Methods("DELETE")

	protected.HandleFunc("/discovery/pending", s.getPendingDevices).Methods("GET")
	protected.HandleFunc("/discovery/pending/{id}/approve", s.postApproveDevice).Methods("POST")

	protected.HandleFunc("/fleet/refresh_config", s.postRefreshFleet).Methods("POST")

	protected.HandleFunc("/ws", s.handleStream).Methods("GET")
}

func (s *APIServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if err := s.encodeJSONResponse(w, webhookAck{Status: "ok"}); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Start starts the API server on the specified address
func (s *APIServer) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	return srv.ListenAndServe()
}

// Router exposes the configured handler for embedding in another server.
func (s *APIServer) Router() *mux.Router {
	return s.router
}

func (s *APIServer) encodeJSONResponse(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")

	return json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

// writeServiceError maps coordination-layer errors onto HTTP statuses. This
// is the only place domain errors become wire statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrDeviceNotFound),
		errors.Is(err, registry.ErrProfileNotFound),
		errors.Is(err, dispatch.ErrUnknownDevice),
		errors.Is(err, hub.ErrUnknownDevice),
		errors.Is(err, hub.ErrNotPending):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrInvalidProfileReference),
		errors.Is(err, registry.ErrDeviceIDRequired),
		errors.Is(err, registry.ErrProfileIDRequired),
		errors.Is(err, hub.ErrMalformedPayload):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, registry.ErrProfileInUse),
		errors.Is(err, dispatch.ErrBusy):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, dispatch.ErrTimeout):
		writeError(w, err.Error(), http.StatusGatewayTimeout)
	case errors.Is(err, dispatch.ErrUnreachable),
		errors.Is(err, dispatch.ErrRejected):
		writeError(w, err.Error(), http.StatusBadGateway)
	default:
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}
