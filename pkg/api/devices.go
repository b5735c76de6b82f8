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

	"github.com/framehub/framehub/pkg/models"
	"github.com/framehub/framehub/pkg/registry"
)

func (s *APIServer) getDevices(w http.ResponseWriter, r *http.Request) {
	views := s.hub.ListDeviceViews(r.Context())

	if err := s.encodeJSONResponse(w, views); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *APIServer) getDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	view, err := s.hub.GetDeviceView(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	if err := s.encodeJSONResponse(w, view); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *APIServer) putDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	var req models.DeviceUpsertRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Malformed device request", http.StatusBadRequest)

		return
	}

	settings, err := s.resolveSettings(r, deviceID, req.Settings)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	device, err := s.registry.UpsertDevice(r.Context(), deviceID, req.Address, req.ProfileID, settings)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	if err := s.encodeJSONResponse(w, device); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// resolveSettings picks the display settings for an upsert: the request's
// when given, the stored ones on update, the defaults on create.
func (s *APIServer) resolveSettings(r *http.Request, deviceID string, requested *models.DisplaySettings) (models.DisplaySettings, error) {
	if requested != nil {
		return *requested, nil
	}

	existing, err := s.registry.GetDevice(r.Context(), deviceID)
	if err == nil {
		return existing.Settings, nil
	}

	if errors.Is(err, registry.ErrDeviceNotFound) {
		return models.DefaultDisplaySettings(), nil
	}

	return models.DisplaySettings{}, err
}

func (s *APIServer) deleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	if err := s.registry.DeleteDevice(r.Context(), deviceID); err != nil {
		writeServiceError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) postNextImage(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	if err := s.hub.NextImage(r.Context(), deviceID); err != nil {
		writeServiceError(w, err)

		return
	}

	if err := s.encodeJSONResponse(w, webhookAck{Status: "ok"}); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *APIServer) postRefreshConfig(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	if err := s.hub.RefreshConfig(r.Context(), deviceID); err != nil {
		writeServiceError(w, err)

		return
	}

	if err := s.encodeJSONResponse(w, webhookAck{Status: "ok"}); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *APIServer) postSetProfile(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	var req models.SetProfileRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Profile == "" {
		writeError(w, "Malformed profile request", http.StatusBadRequest)

		return
	}

	if err := s.hub.SetProfile(r.Context(), deviceID, req.Profile); err != nil {
		writeServiceError(w, err)

		return
	}

	if err := s.encodeJSONResponse(w, webhookAck{Status: "ok"}); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *APIServer) postRefreshFleet(w http.ResponseWriter, r *http.Request) {
	result, err := s.hub.RefreshFleet(r.Context())
	if err != nil {
		writeServiceError(w, err)

		return
	}

	if err := s.encodeJSONResponse(w, result); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
