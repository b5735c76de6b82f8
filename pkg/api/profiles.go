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
	"net/http"

	"github.com/gorilla/mux"

	"github.com/framehub/framehub/pkg/models"
)

func (s *APIServer) getProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := s.registry.ListProfiles(r.Context())

	if err := s.encodeJSONResponse(w, profiles); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *APIServer) getProfile(w http.ResponseWriter, r *http.Request) {
	profileID := mux.Vars(r)["id"]

	profile, err := s.registry.GetProfile(r.Context(), profileID)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	if err := s.encodeJSONResponse(w, profile); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// putProfile creates or edits a profile. The path id wins over any id in
// the body; editing a referenced profile repushes configuration to every
// device using it.
func (s *APIServer) putProfile(w http.ResponseWriter, r *http.Request) {
	profileID := mux.Vars(r)["id"]

	var profile models.Profile

	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, "Malformed profile", http.StatusBadRequest)

		return
	}

	profile.ProfileID = profileID

	stored, err := s.registry.UpsertProfile(r.Context(), &profile)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	if err := s.encodeJSONResponse(w, stored); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *APIServer) deleteProfile(w http.ResponseWriter, r *http.Request) {
	profileID := mux.Vars(r)["id"]

	if err := s.registry.DeleteProfile(r.Context(), profileID); err != nil {
		writeServiceError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) getPendingDevices(w http.ResponseWriter, r *http.Request) {
	pending := s.hub.ListPendingDevices(r.Context())

	if err := s.encodeJSONResponse(w, pending); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *APIServer) postApproveDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	var req models.ApproveDeviceRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProfileID == "" {
		writeError(w, "Malformed approval request", http.StatusBadRequest)

		return
	}

	device, err := s.hub.ApproveDevice(r.Context(), deviceID, req.ProfileID)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	if err := s.encodeJSONResponse(w, device); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
