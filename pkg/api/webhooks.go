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

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/framehub/framehub/pkg/hub"
	"github.com/framehub/framehub/pkg/models"
)

// checkWebhookID guards the webhook routes. The identifier is unique per
// installation and acts as the shared secret with the tablets.
func (s *APIServer) checkWebhookID(w http.ResponseWriter, r *http.Request) bool {
	if mux.Vars(r)["webhook_id"] != s.webhookID || s.webhookID == "" {
		writeError(w, "Unknown webhook", http.StatusNotFound)

		return false
	}

	return true
}

// handleStatusWebhook ingests one tablet status report.
func (s *APIServer) handleStatusWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.checkWebhookID(w, r) {
		return
	}

	var report models.StatusReport

	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		s.logger.Debug().Err(err).Msg("Undecodable status report")
		writeError(w, "Malformed status report", http.StatusBadRequest)

		return
	}

	if err := s.hub.ReceiveStatus(r.Context(), &report); err != nil {
		switch {
		case errors.Is(err, hub.ErrMalformedPayload):
			writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, hub.ErrUnknownDevice):
			writeError(w, err.Error(), http.StatusNotFound)
		default:
			s.logger.Error().Err(err).Str("device_id", report.DeviceID).Msg("Status ingest failed")
			writeError(w, "Internal server error", http.StatusInternalServerError)
		}

		return
	}

	if err := s.encodeJSONResponse(w, webhookAck{Status: "ok"}); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleRegisterWebhook serves device discovery: announcements park the
// device as pending, polls answer with the approval state.
func (s *APIServer) handleRegisterWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.checkWebhookID(w, r) {
		return
	}

	var req hub.RegistrationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Debug().Err(err).Msg("Undecodable registration request")
		writeError(w, "Malformed registration request", http.StatusBadRequest)

		return
	}

	resp, err := s.hub.HandleRegistration(r.Context(), &req)
	if err != nil {
		if errors.Is(err, hub.ErrMalformedPayload) {
			writeError(w, err.Error(), http.StatusBadRequest)

			return
		}

		s.logger.Error().Err(err).Str("device_id", req.DeviceID).Msg("Registration failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	if err := s.encodeJSONResponse(w, resp); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
